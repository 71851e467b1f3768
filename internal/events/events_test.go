package events

import (
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestNotifyInSubscriptionOrder(t *testing.T) {
	b := NewBus(zaptest.NewLogger(t))
	var got []string
	b.Subscribe(ProductRemoved, func(any) { got = append(got, "first") })
	b.Subscribe(ProductRemoved, func(p any) { got = append(got, p.(string)) })

	b.Notify(ProductRemoved, "second")
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Fatalf("got %v", got)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := NewBus(nil)
	calls := 0
	unsub := b.Subscribe(Init, func(any) { calls++ })
	b.Notify(Init, nil)
	unsub()
	unsub()
	b.Notify(Init, nil)

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if b.Subscribers(Init) != 0 {
		t.Errorf("Subscribers = %d, want 0", b.Subscribers(Init))
	}
}

func TestSubscribeDuringNotify(t *testing.T) {
	b := NewBus(nil)
	late := 0
	b.Subscribe(KeyEvent, func(any) {
		b.Subscribe(KeyEvent, func(any) { late++ })
	})

	b.Notify(KeyEvent, nil)
	if late != 0 {
		t.Fatal("handler added during delivery must not run in the same Notify")
	}
	b.Notify(KeyEvent, nil)
	if late != 1 {
		t.Errorf("late = %d, want 1", late)
	}
}

func TestNotifyWithoutSubscribers(t *testing.T) {
	b := NewBus(nil)
	b.Notify(ResizeEvent, nil)
	b.Reset()
	if b.Subscribers(ResizeEvent) != 0 {
		t.Error("expected no subscribers")
	}
}
