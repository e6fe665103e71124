package webhooks

import (
	"context"
	"sync"
	"time"

	"meetpoint/internal/types"
)

// MockResolver implements SubscriberResolver for testing. It returns the
// predefined Subscribers, or Err when set. Every call is recorded for
// assertion purposes.
type MockResolver struct {
	Subscribers []Subscriber
	Err         error

	// ResolveFunc optionally overrides the default behavior.
	ResolveFunc func(ctx context.Context, trigger types.TriggerEvent, filter SubscriberFilter) ([]Subscriber, error)

	mu    sync.Mutex
	Calls []ResolveCall
}

// ResolveCall records the arguments of one Resolve invocation.
type ResolveCall struct {
	Trigger types.TriggerEvent
	Filter  SubscriberFilter
}

// Resolve implements SubscriberResolver.
func (m *MockResolver) Resolve(ctx context.Context, trigger types.TriggerEvent, filter SubscriberFilter) ([]Subscriber, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, ResolveCall{Trigger: trigger, Filter: filter})
	m.mu.Unlock()

	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, trigger, filter)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Subscribers, nil
}

// CallCount returns how many times Resolve was invoked.
func (m *MockResolver) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockRecorder implements DispatchRecorder for testing.
type MockRecorder struct {
	mu         sync.Mutex
	Fanouts    []int
	Deliveries []RecordedDelivery
}

// RecordedDelivery captures one RecordDelivery invocation.
type RecordedDelivery struct {
	Trigger types.TriggerEvent
	OK      bool
	Elapsed time.Duration
}

// RecordFanout implements DispatchRecorder.
func (m *MockRecorder) RecordFanout(trigger types.TriggerEvent, subscribers int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fanouts = append(m.Fanouts, subscribers)
}

// RecordDelivery implements DispatchRecorder.
func (m *MockRecorder) RecordDelivery(trigger types.TriggerEvent, ok bool, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deliveries = append(m.Deliveries, RecordedDelivery{Trigger: trigger, OK: ok, Elapsed: elapsed})
}

// DeliveryCount returns how many deliveries were recorded.
func (m *MockRecorder) DeliveryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Deliveries)
}
