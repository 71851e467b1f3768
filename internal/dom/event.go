package dom

import "golang.org/x/net/html"

// Event is a user interaction delivered by the host.
type Event struct {
	Type   string
	Target *Node

	// Key is set for keydown events.
	Key string
	// Width and Height are the new viewport size for resize events.
	Width, Height int

	prevented bool
	stopped   bool
}

// NewEvent builds an event of typ aimed at target.
func NewEvent(typ string, target *Node) *Event {
	return &Event{Type: typ, Target: target}
}

// PreventDefault cancels the host's default action (navigation, submission).
func (ev *Event) PreventDefault() { ev.prevented = true }

// DefaultPrevented reports whether PreventDefault was called.
func (ev *Event) DefaultPrevented() bool { return ev.prevented }

// StopPropagation stops bubbling to further ancestors.
func (ev *Event) StopPropagation() { ev.stopped = true }

// PropagationStopped reports whether StopPropagation was called.
func (ev *Event) PropagationStopped() bool { return ev.stopped }

// Listener handles an event delivered to a specific element.
type Listener func(ev *Event)

type listenerEntry struct {
	id int
	fn Listener
}

type listenerTable struct {
	nextID int
	byNode map[*html.Node]map[string][]listenerEntry
}

// On attaches a listener for typ directly to the element and returns a func
// that detaches it.
func (e *Node) On(typ string, fn Listener) (off func()) {
	if e == nil {
		return func() {}
	}
	t := &e.doc.listeners
	if t.byNode == nil {
		t.byNode = make(map[*html.Node]map[string][]listenerEntry)
	}
	if t.byNode[e.n] == nil {
		t.byNode[e.n] = make(map[string][]listenerEntry)
	}
	t.nextID++
	id := t.nextID
	t.byNode[e.n][typ] = append(t.byNode[e.n][typ], listenerEntry{id: id, fn: fn})

	return func() {
		entries := t.byNode[e.n][typ]
		for i, l := range entries {
			if l.id == id {
				t.byNode[e.n][typ] = append(entries[:i:i], entries[i+1:]...)
				return
			}
		}
	}
}

// Dispatch delivers ev to listeners on the target and then on each ancestor,
// until one of them stops propagation.
func (d *Document) Dispatch(ev *Event) {
	if ev == nil || ev.Target == nil {
		return
	}
	for n := ev.Target.n; n != nil; n = n.Parent {
		entries := d.listeners.byNode[n][ev.Type]
		if len(entries) == 0 {
			continue
		}
		snapshot := make([]listenerEntry, len(entries))
		copy(snapshot, entries)
		for _, l := range snapshot {
			l.fn(ev)
		}
		if ev.stopped {
			return
		}
	}
}

// ClearListeners detaches every element listener.
func (d *Document) ClearListeners() {
	d.listeners = listenerTable{}
}
