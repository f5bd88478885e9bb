package event

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
	qrcode "github.com/skip2/go-qrcode"

	"qrmang/entity"
	"qrmang/pubsub/bus"
	"qrmang/qr"
)

type FilesService interface {
	UploadFile(ctx context.Context, fileID string, fileContent string) error
}

type BookingsRepository interface {
	GetBookingAndEventAndTicket(ctx context.Context, bookingReference string) (entity.BookingDetails, error)
}

type TicketsRepository interface {
	Issue(ctx context.Context, ticket entity.Ticket) (entity.Ticket, error)
}

type Handler struct {
	eventBus     *cqrs.EventBus
	bookingsRepo BookingsRepository
	ticketsRepo  TicketsRepository
	filesService FilesService
	codec        qr.Codec
	renderer     qr.Renderer
}

func NewHandler(
	eventBus *cqrs.EventBus,
	bookingsRepo BookingsRepository,
	ticketsRepo TicketsRepository,
	filesService FilesService,
	codec qr.Codec,
	renderer qr.Renderer,
) Handler {
	if eventBus == nil {
		panic("missing eventBus")
	}
	if bookingsRepo == nil {
		panic("missing bookingsRepo")
	}
	if ticketsRepo == nil {
		panic("missing ticketsRepo")
	}
	if filesService == nil {
		panic("missing filesService")
	}

	return Handler{
		eventBus:     eventBus,
		bookingsRepo: bookingsRepo,
		ticketsRepo:  ticketsRepo,
		filesService: filesService,
		codec:        codec,
		// ticket documents get printed, paper damage needs the higher error correction
		renderer: renderer.WithRecoveryLevel(qrcode.High),
	}
}

func NewProcessorConfig(rdb *redis.Client, watermillLogger watermill.LoggerAdapter) cqrs.EventProcessorConfig {
	return cqrs.EventProcessorConfig{
		SubscriberConstructor: func(params cqrs.EventProcessorSubscriberConstructorParams) (message.Subscriber, error) {
			return redisstream.NewSubscriber(redisstream.SubscriberConfig{
				Client:        rdb,
				ConsumerGroup: "svc-qrmang." + params.HandlerName,
			}, watermillLogger)
		},
		GenerateSubscribeTopic: func(params cqrs.EventProcessorGenerateSubscribeTopicParams) (string, error) {
			return bus.EventTopic(params.EventName), nil
		},
		Marshaler: bus.Marshaler,
		Logger:    watermillLogger,
	}
}
