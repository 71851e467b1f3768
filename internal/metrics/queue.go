// Package metrics buffers analytics events until the analytics sink is
// available, then forwards them.
package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event kinds.
const (
	KindRecord   = "record"
	KindBilled   = "billed"
	KindSignedUp = "signedUp"
	KindIdentify = "identify"
)

// Event is one analytics call.
type Event struct {
	ID     string         `json:"id"`
	Kind   string         `json:"kind"`
	Name   string         `json:"name,omitempty"`
	Amount float64        `json:"amount,omitempty"`
	Props  map[string]any `json:"props,omitempty"`
	At     time.Time      `json:"at"`
}

// Sink receives events once the queue is ready. Delivery is fire and forget.
type Sink interface {
	Deliver(ev Event)
}

// Policy decides which event is lost when the buffer is full.
type Policy string

const (
	DropOldest Policy = "drop-oldest"
	DropNewest Policy = "drop-newest"
)

// ParsePolicy validates a configured policy name. Empty means DropOldest.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", DropOldest:
		return DropOldest, nil
	case DropNewest:
		return DropNewest, nil
	default:
		return "", fmt.Errorf("unknown metrics saturation policy %q", s)
	}
}

// Queue holds events until Ready. The buffer is bounded; overflow follows
// the configured Policy and is counted.
type Queue struct {
	logger   *zap.Logger
	capacity int
	policy   Policy

	mu      sync.Mutex
	buf     []Event
	sink    Sink
	dropped int
}

// NewQueue creates a queue holding at most capacity events before Ready.
func NewQueue(capacity int, policy Policy, logger *zap.Logger) *Queue {
	if capacity <= 0 {
		capacity = 100
	}
	if policy == "" {
		policy = DropOldest
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{logger: logger.Named("metrics"), capacity: capacity, policy: policy}
}

// Record tracks a named event.
func (q *Queue) Record(name string, props map[string]any) {
	q.push(Event{Kind: KindRecord, Name: name, Props: props})
}

// RecordSale tracks a purchase.
func (q *Queue) RecordSale(amount float64, props map[string]any) {
	q.push(Event{Kind: KindBilled, Name: "Purchase", Amount: amount, Props: props})
}

// RecordSignup tracks an account creation.
func (q *Queue) RecordSignup() {
	q.push(Event{Kind: KindSignedUp})
}

// Identify ties later events to a customer.
func (q *Queue) Identify(email string) {
	if email == "" {
		return
	}
	q.push(Event{Kind: KindIdentify, Name: email})
}

func (q *Queue) push(ev Event) {
	ev.ID = uuid.NewString()
	ev.At = time.Now().UTC()

	q.mu.Lock()
	if q.sink != nil {
		sink := q.sink
		q.mu.Unlock()
		sink.Deliver(ev)
		return
	}
	defer q.mu.Unlock()

	// An identity applies to everything buffered, so it goes first. When
	// that overflows, the policy picks which buffered event makes room.
	if ev.Kind == KindIdentify {
		rest := dropIdentify(q.buf)
		if len(rest) >= q.capacity {
			var lost Event
			q.dropped++
			if q.policy == DropNewest {
				lost, rest = rest[len(rest)-1], rest[:len(rest)-1]
				q.logger.Warn("metrics buffer full, dropping newest event", zap.String("kind", lost.Kind), zap.String("name", lost.Name), zap.Int("dropped", q.dropped))
			} else {
				lost, rest = rest[0], rest[1:]
				q.logger.Warn("metrics buffer full, dropping oldest event", zap.String("kind", lost.Kind), zap.String("name", lost.Name), zap.Int("dropped", q.dropped))
			}
		}
		q.buf = append([]Event{ev}, rest...)
		return
	}

	if len(q.buf) < q.capacity {
		q.buf = append(q.buf, ev)
		return
	}
	q.dropped++
	switch q.policy {
	case DropNewest:
		q.logger.Warn("metrics buffer full, dropping event", zap.String("kind", ev.Kind), zap.String("name", ev.Name), zap.Int("dropped", q.dropped))
	default:
		lost := q.buf[0]
		copy(q.buf, q.buf[1:])
		q.buf[len(q.buf)-1] = ev
		q.logger.Warn("metrics buffer full, dropping oldest event", zap.String("kind", lost.Kind), zap.String("name", lost.Name), zap.Int("dropped", q.dropped))
	}
}

func dropIdentify(buf []Event) []Event {
	out := buf[:0]
	for _, ev := range buf {
		if ev.Kind != KindIdentify {
			out = append(out, ev)
		}
	}
	return out
}

// Ready hands the queue its sink: buffered events are delivered in order and
// later ones go straight through.
func (q *Queue) Ready(sink Sink) {
	q.mu.Lock()
	buf := q.buf
	q.buf = nil
	q.sink = sink
	q.mu.Unlock()

	for _, ev := range buf {
		sink.Deliver(ev)
	}
}

// Len returns the number of buffered events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// Dropped returns how many events overflowed the buffer.
func (q *Queue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
