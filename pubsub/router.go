package pubsub

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"

	"qrmang/entity"
	"qrmang/pubsub/bus"
	"qrmang/pubsub/command"
	"qrmang/pubsub/event"
)

type DataLake interface {
	StoreEvent(ctx context.Context, dataLakeEvent entity.DataLakeEvent) error
}

func NewWatermillRouter(
	rdb *redis.Client,
	redisPublisher message.Publisher,
	eventProcessorConfig cqrs.EventProcessorConfig,
	eventHandler event.Handler,
	commandProcessorConfig cqrs.CommandProcessorConfig,
	commandsHandler command.Handler,
	dataLake DataLake,
	watermillLogger watermill.LoggerAdapter,
) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, watermillLogger)
	if err != nil {
		return nil, fmt.Errorf("could not create router: %w", err)
	}

	useMiddlewares(router, watermillLogger)

	eventProcessor, err := cqrs.NewEventProcessorWithConfig(router, eventProcessorConfig)
	if err != nil {
		return nil, fmt.Errorf("could not create event processor: %w", err)
	}

	err = eventProcessor.AddHandlers(
		eventHandler.IssueTicketHandler(),
	)
	if err != nil {
		return nil, fmt.Errorf("could not add handlers to event processor: %w", err)
	}

	commandProcessor, err := cqrs.NewCommandProcessorWithConfig(router, commandProcessorConfig)
	if err != nil {
		return nil, fmt.Errorf("could not create command processor: %w", err)
	}

	err = commandProcessor.AddHandlers(
		commandsHandler.CancelTicketHandler(),
	)
	if err != nil {
		return nil, fmt.Errorf("could not add handlers to command processor: %w", err)
	}

	// each handler reads the whole "events" stream in its own consumer group
	router.AddNoPublisherHandler(
		"events_splitter",
		bus.EventsTopic,
		NewRedisSubscriber(rdb, "svc-qrmang.events_splitter", watermillLogger),
		func(msg *message.Message) error {
			eventName := eventProcessorConfig.Marshaler.NameFromMessage(msg)
			if eventName == "" {
				return fmt.Errorf("could not get event name from message")
			}

			return redisPublisher.Publish(bus.EventTopic(eventName), msg)
		},
	)

	router.AddNoPublisherHandler(
		"store_to_data_lake",
		bus.EventsTopic,
		NewRedisSubscriber(rdb, "svc-qrmang.store_to_data_lake", watermillLogger),
		func(msg *message.Message) error {
			dataLakeEvent, err := toDataLakeEvent(eventProcessorConfig.Marshaler, msg)
			if err != nil {
				return err
			}

			return dataLake.StoreEvent(msg.Context(), dataLakeEvent)
		},
	)

	return router, nil
}

func toDataLakeEvent(marshaler cqrs.CommandEventMarshaler, msg *message.Message) (entity.DataLakeEvent, error) {
	eventName := marshaler.NameFromMessage(msg)
	if eventName == "" {
		return entity.DataLakeEvent{}, fmt.Errorf("could not get event name from message")
	}

	// only the header is needed, the payload is stored as is
	type Event struct {
		Header entity.EventHeader `json:"header"`
	}

	var e Event
	if err := marshaler.Unmarshal(msg, &e); err != nil {
		return entity.DataLakeEvent{}, fmt.Errorf("could not unmarshal event: %w", err)
	}

	return entity.DataLakeEvent{
		ID:          e.Header.ID,
		PublishedAt: e.Header.PublishedAt,
		Name:        eventName,
		Payload:     msg.Payload,
	}, nil
}
