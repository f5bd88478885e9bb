package bus

import (
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
)

// EventsTopic receives every event. The router stores it in the data lake and
// splits it into per-event topics.
const EventsTopic = "events"

const idempotencyKeyMetadata = "idempotency_key"

var Marshaler = cqrs.JSONMarshaler{
	GenerateName: cqrs.StructName,
}

func EventTopic(eventName string) string {
	return EventsTopic + "." + eventName
}

func CommandTopic(commandName string) string {
	return "commands." + commandName
}

type idempotentCommand interface {
	IdempotencyKey() string
}

func NewEventBus(pub message.Publisher) (*cqrs.EventBus, error) {
	return cqrs.NewEventBusWithConfig(pub, cqrs.EventBusConfig{
		GeneratePublishTopic: func(params cqrs.GenerateEventPublishTopicParams) (string, error) {
			return EventsTopic, nil
		},
		Marshaler: Marshaler,
	})
}

// NewCommandBus copies the command's idempotency key to message metadata, so a
// repeated HTTP request can be told apart from a new one in logs.
func NewCommandBus(pub message.Publisher) (*cqrs.CommandBus, error) {
	return cqrs.NewCommandBusWithConfig(pub, cqrs.CommandBusConfig{
		GeneratePublishTopic: func(params cqrs.CommandBusGeneratePublishTopicParams) (string, error) {
			return CommandTopic(params.CommandName), nil
		},
		OnSend: func(params cqrs.CommandBusOnSendParams) error {
			if cmd, ok := params.Command.(idempotentCommand); ok {
				params.Message.Metadata.Set(idempotencyKeyMetadata, cmd.IdempotencyKey())
			}
			return nil
		},
		Marshaler: Marshaler,
	})
}
