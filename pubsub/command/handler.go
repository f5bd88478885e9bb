package command

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"

	"qrmang/entity"
	"qrmang/pubsub/bus"
)

type BookingsRepository interface {
	GetByReference(ctx context.Context, bookingReference string) (entity.Booking, error)
}

type TicketsRepository interface {
	// Cancel publishes TicketCancelled_v1 when it moved the ticket to cancelled.
	Cancel(ctx context.Context, bookingID string) (bool, error)
}

type Handler struct {
	bookingsRepo BookingsRepository
	ticketsRepo  TicketsRepository
}

func NewHandler(
	bookingsRepo BookingsRepository,
	ticketsRepo TicketsRepository,
) Handler {
	if bookingsRepo == nil {
		panic("missing bookingsRepo")
	}
	if ticketsRepo == nil {
		panic("missing ticketsRepo")
	}

	return Handler{
		bookingsRepo: bookingsRepo,
		ticketsRepo:  ticketsRepo,
	}
}

func NewProcessorConfig(rdb *redis.Client, watermillLogger watermill.LoggerAdapter) cqrs.CommandProcessorConfig {
	return cqrs.CommandProcessorConfig{
		SubscriberConstructor: func(params cqrs.CommandProcessorSubscriberConstructorParams) (message.Subscriber, error) {
			return redisstream.NewSubscriber(redisstream.SubscriberConfig{
				Client:        rdb,
				ConsumerGroup: "svc-qrmang.commands." + params.HandlerName,
			}, watermillLogger)
		},
		GenerateSubscribeTopic: func(params cqrs.CommandProcessorGenerateSubscribeTopicParams) (string, error) {
			return bus.CommandTopic(params.CommandName), nil
		},
		Marshaler: bus.Marshaler,
		Logger:    watermillLogger,
	}
}
