// Package events is the page-wide notification bus feature handlers use to
// coordinate without holding references to each other.
package events

import (
	"sync"

	"go.uber.org/zap"
)

// Name identifies a notification channel.
type Name string

// Lifecycle channels fired by the page core.
const (
	Init           Name = "util:init"
	Destruct       Name = "util:destruct"
	ViewEvent      Name = "util:onviewevent"
	KeyEvent       Name = "util:onkeyevent"
	ResizeEvent    Name = "util:onresizeevent"
	SubmitEvent    Name = "util:onsubmitevent"
	SubmitComplete Name = "util:onsubmitcomplete"
	HideDialog     Name = "util:hide-dialog"
)

// Shopping bag channels.
const (
	RemoveProduct          Name = "shopping-bag:remove-product"
	AddProductToWaitlist   Name = "shopping-bag:add-product-to-waitlist"
	ProductRemoved         Name = "shopping-bag:product-removed"
	ProductAdded           Name = "shopping-bag:product-added"
	ProductAddedToWaitlist Name = "shopping-bag:product-added-to-waitlist"
)

// Handler receives a notification payload.
type Handler func(payload any)

type subscription struct {
	id int
	fn Handler
}

// Bus delivers notifications synchronously, in subscription order.
type Bus struct {
	logger *zap.Logger

	mu     sync.RWMutex
	nextID int
	subs   map[Name][]subscription
}

// NewBus creates an empty bus.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		logger: logger.Named("events"),
		subs:   make(map[Name][]subscription),
	}
}

// Subscribe registers fn for name and returns a func that removes it.
func (b *Bus) Subscribe(name Name, fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[name] = append(b.subs[name], subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			subs := b.subs[name]
			for i, s := range subs {
				if s.id == id {
					b.subs[name] = append(subs[:i:i], subs[i+1:]...)
					break
				}
			}
			if len(b.subs[name]) == 0 {
				delete(b.subs, name)
			}
		})
	}
}

// Notify calls every subscriber of name with payload. Subscribers added or
// removed during delivery take effect on the next Notify.
func (b *Bus) Notify(name Name, payload any) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs[name]))
	copy(subs, b.subs[name])
	b.mu.RUnlock()

	b.logger.Debug("notify", zap.String("channel", string(name)), zap.Int("subscribers", len(subs)))
	for _, s := range subs {
		s.fn(payload)
	}
}

// Subscribers returns how many handlers listen on name.
func (b *Bus) Subscribers(name Name) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[name])
}

// Reset drops every subscription.
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[Name][]subscription)
}
