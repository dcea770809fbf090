// Package eventBusTypes holds the event, consumer and payload types shared by
// publishers and subscribers of the event bus.
package eventBusTypes

import (
	"context"
	"sync"

	"github.com/NFTX-project/accounting/pkg/reconciler"
	"github.com/NFTX-project/accounting/pkg/reports"
)

type EventName string

func (en *EventName) String() string {
	return string(*en)
}

var (
	// Event_RunCompleted is published after a run's report has been built and
	// its artifacts written.
	Event_RunCompleted EventName = "run_completed"
	// Event_RunFailed is published when any stage of a run returns an error.
	Event_RunFailed EventName = "run_failed"
)

type Event struct {
	Name EventName
	Data any
}

type ConsumerId string

// Consumer receives published events on Channel. Publishing never blocks, so
// a consumer with a full channel misses events.
type Consumer struct {
	Id      ConsumerId
	Context context.Context
	Channel chan *Event
}

type ConsumerList struct {
	mu        sync.Mutex
	consumers []*Consumer
}

func NewConsumerList() *ConsumerList {
	return &ConsumerList{
		consumers: make([]*Consumer, 0),
	}
}

func (cl *ConsumerList) Add(consumer *Consumer) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.consumers = append(cl.consumers, consumer)
}

// Remove drops the first consumer with a matching Id.
func (cl *ConsumerList) Remove(consumer *Consumer) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	for i, c := range cl.consumers {
		if c.Id == consumer.Id {
			cl.consumers = append(cl.consumers[:i], cl.consumers[i+1:]...)
			break
		}
	}
}

// GetAll returns a snapshot of the current consumers.
func (cl *ConsumerList) GetAll() []*Consumer {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	out := make([]*Consumer, len(cl.consumers))
	copy(out, cl.consumers)
	return out
}

type IEventBus interface {
	Subscribe(consumer *Consumer)
	Unsubscribe(consumer *Consumer)
	Publish(event *Event)
}

// RunCompletedData is the payload of Event_RunCompleted.
type RunCompletedData struct {
	RunId     string
	Summary   *reconciler.Summary
	Report    *reports.Report
	Artifacts []string
}

// RunFailedData is the payload of Event_RunFailed.
type RunFailedData struct {
	RunId string
	Stage string
	Error error
}
