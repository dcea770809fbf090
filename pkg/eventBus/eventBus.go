// Package eventBus lets the pipeline announce finished and failed runs to
// interested components without depending on them.
package eventBus

import (
	"github.com/NFTX-project/accounting/pkg/eventBus/eventBusTypes"
	"go.uber.org/zap"
)

type EventBus struct {
	consumers *eventBusTypes.ConsumerList
	logger    *zap.Logger
}

func NewEventBus(l *zap.Logger) *EventBus {
	return &EventBus{
		consumers: eventBusTypes.NewConsumerList(),
		logger:    l,
	}
}

func (eb *EventBus) Subscribe(consumer *eventBusTypes.Consumer) {
	eb.consumers.Add(consumer)
	eb.logger.Sugar().Debugw("Subscribed consumer", zap.String("consumerId", string(consumer.Id)))
}

func (eb *EventBus) Unsubscribe(consumer *eventBusTypes.Consumer) {
	eb.consumers.Remove(consumer)
	eb.logger.Sugar().Infow("Unsubscribed consumer", zap.String("consumerId", string(consumer.Id)))
}

// Publish hands event to every consumer whose channel has room. Consumers
// with a nil or full channel, or a cancelled context, are skipped.
func (eb *EventBus) Publish(event *eventBusTypes.Event) {
	eb.logger.Sugar().Debugw("Publishing event", zap.String("eventName", event.Name.String()))
	for _, consumer := range eb.consumers.GetAll() {
		if consumer.Channel == nil {
			eb.logger.Sugar().Debugw("Consumer channel is nil", zap.String("consumerId", string(consumer.Id)))
			continue
		}
		if consumer.Context != nil && consumer.Context.Err() != nil {
			eb.logger.Sugar().Debugw("Consumer context is done", zap.String("consumerId", string(consumer.Id)))
			continue
		}
		select {
		case consumer.Channel <- event:
			eb.logger.Sugar().Debugw("Published event to consumer",
				zap.String("consumerId", string(consumer.Id)),
				zap.String("eventName", event.Name.String()),
			)
		default:
			eb.logger.Sugar().Debugw("No receiver available, or channel is full",
				zap.String("consumerId", string(consumer.Id)),
				zap.String("eventName", event.Name.String()),
			)
		}
	}
}
