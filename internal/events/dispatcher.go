package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher delivers events to named subscribers.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, name string, handler EventHandler)
	SubscribeAll(name string, handler EventHandler)
}

type subscription struct {
	name    string
	handler EventHandler
}

// Bus delivers synchronously inside Publish. Type subscribers run before
// catch-all subscribers, each group in subscription order.
type Bus struct {
	mu     sync.RWMutex
	byType map[EventType][]subscription
	all    []subscription
}

// NewBus returns a bus without subscribers.
func NewBus() *Bus {
	return &Bus{byType: make(map[EventType][]subscription)}
}

func (b *Bus) Subscribe(eventType EventType, name string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byType[eventType] = append(b.byType[eventType], subscription{name: name, handler: handler})
}

func (b *Bus) SubscribeAll(name string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, subscription{name: name, handler: handler})
}

// Publish runs every subscriber even when some fail. The returned error joins one
// *DeliveryError per failed subscriber.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	var failures []error
	for _, sub := range b.subscribers(event.Type) {
		if err := deliver(ctx, sub.handler, event); err != nil {
			failures = append(failures, &DeliveryError{Subscriber: sub.name, Event: event, Err: err})
		}
	}
	return errors.Join(failures...)
}

func (b *Bus) subscribers(eventType EventType) []subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()
	subs := make([]subscription, 0, len(b.byType[eventType])+len(b.all))
	subs = append(subs, b.byType[eventType]...)
	return append(subs, b.all...)
}

// deliver turns a panicking subscriber into an error; the write that produced the
// event has already been committed.
func deliver(ctx context.Context, handler EventHandler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return handler(ctx, event)
}

// DeliveryError records which subscriber failed on which event.
type DeliveryError struct {
	Subscriber string
	Event      Event
	Err        error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s on %s %s: %v", e.Subscriber, e.Event.Type, e.Event.SubjectID, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// DeliveryErrors lists the failed deliveries inside an error returned by Publish.
func DeliveryErrors(err error) []*DeliveryError {
	var out []*DeliveryError
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			out = append(out, DeliveryErrors(e)...)
		}
		return out
	}
	var de *DeliveryError
	if errors.As(err, &de) {
		out = append(out, de)
	}
	return out
}

var _ Dispatcher = (*Bus)(nil)
