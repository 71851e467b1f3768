package loop

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLoopRunsInPostingOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := New(8)
	go l.Run(ctx)
	defer func() {
		cancel()
		<-l.Done()
	}()

	var got []int
	for i := 0; i < 5; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}

	var snapshot []int
	if err := l.Do(ctx, func() { snapshot = append(snapshot, got...) }); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if len(snapshot) != 5 {
		t.Fatalf("expected 5 funcs to have run, got %d", len(snapshot))
	}
	for i, v := range snapshot {
		if v != i {
			t.Errorf("snapshot[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestLoopDoAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := New(1)
	go l.Run(ctx)
	cancel()
	<-l.Done()

	if err := l.Do(context.Background(), func() {}); err != ErrStopped {
		t.Fatalf("Do after stop = %v, want ErrStopped", err)
	}
	// Post after stop must not block.
	l.Post(func() { t.Error("posted func ran after stop") })
}

func TestLoopSerializesConcurrentPosts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := New(4)
	go l.Run(ctx)
	defer func() {
		cancel()
		<-l.Done()
	}()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Post(func() { counter++ })
		}()
	}
	wg.Wait()

	var got int
	if err := l.Do(ctx, func() { got = counter }); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got != 50 {
		t.Errorf("counter = %d, want 50", got)
	}
}

func TestManualClockFiresInDeadlineOrder(t *testing.T) {
	c := NewManualClock()
	var order []string
	c.AfterFunc(200*time.Millisecond, func() { order = append(order, "b") })
	c.AfterFunc(100*time.Millisecond, func() { order = append(order, "a") })
	stopped := c.AfterFunc(150*time.Millisecond, func() { order = append(order, "never") })
	if !stopped.Stop() {
		t.Fatal("Stop on pending timer should report true")
	}

	c.Advance(99 * time.Millisecond)
	if len(order) != 0 {
		t.Fatalf("nothing should fire before 100ms, got %v", order)
	}

	c.Advance(101 * time.Millisecond)
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("order = %v, want [a b]", order)
	}
	if c.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", c.Pending())
	}
	if c.Elapsed() != 200*time.Millisecond {
		t.Errorf("Elapsed = %v, want 200ms", c.Elapsed())
	}
}

func TestManualClockNestedTimers(t *testing.T) {
	c := NewManualClock()
	fired := false
	c.AfterFunc(10*time.Millisecond, func() {
		c.AfterFunc(10*time.Millisecond, func() { fired = true })
	})

	c.Advance(15 * time.Millisecond)
	if fired {
		t.Fatal("nested timer fired early")
	}
	c.Advance(5 * time.Millisecond)
	if !fired {
		t.Fatal("nested timer did not fire at its deadline")
	}
}

func TestRealClockPostsOntoPoster(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := New(4)
	go l.Run(ctx)
	defer func() {
		cancel()
		<-l.Done()
	}()

	fired := make(chan struct{})
	RealClock{Poster: l}.AfterFunc(time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("real clock timer never fired")
	}
}
