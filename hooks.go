package evently

import (
	"reflect"
	"sync"

	"github.com/agentstation/evently/pkg/types"
)

// Hook function types for store events
type (
	// EventAddedHook is called when an event enters the event store
	EventAddedHook func(event types.Event)

	// EventUpdatedHook is called when a held event changes
	EventUpdatedHook func(old, new types.Event)

	// EventRemovedHook is called when an event leaves the event store
	EventRemovedHook func(event types.Event)

	// SessionHook is called when the signed-in user changes; nil means signed out
	SessionHook func(user *types.User)
)

// hooks manages callbacks for store changes
type hooks struct {
	mu             sync.RWMutex
	onEventAdded   []EventAddedHook
	onEventUpdated []EventUpdatedHook
	onEventRemoved []EventRemovedHook
	onSession      []SessionHook

	seen        map[int]types.Event
	sessionUser int
}

// newHooks creates a new hooks instance. The session starts signed out.
func newHooks() *hooks {
	return &hooks{seen: map[int]types.Event{}}
}

// OnEventAdded registers a callback for when events are added
func (h *hooks) OnEventAdded(fn EventAddedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEventAdded = append(h.onEventAdded, fn)
}

// OnEventUpdated registers a callback for when events are updated
func (h *hooks) OnEventUpdated(fn EventUpdatedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEventUpdated = append(h.onEventUpdated, fn)
}

// OnEventRemoved registers a callback for when events are removed
func (h *hooks) OnEventRemoved(fn EventRemovedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEventRemoved = append(h.onEventRemoved, fn)
}

// OnSessionChange registers a callback for sign in, sign out and user switches
func (h *hooks) OnSessionChange(fn SessionHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onSession = append(h.onSession, fn)
}

// triggerEventsUpdate compares the held events with the last seen set and
// triggers the matching hooks.
func (h *hooks) triggerEventsUpdate(current map[int]types.Event) {
	var calls []func()

	h.mu.Lock()
	for id, ev := range current {
		ev := ev
		old, exists := h.seen[id]
		switch {
		case !exists:
			for _, hook := range h.onEventAdded {
				hook := hook
				calls = append(calls, func() { hook(ev) })
			}
		case !reflect.DeepEqual(old, ev):
			for _, hook := range h.onEventUpdated {
				hook := hook
				calls = append(calls, func() { hook(old, ev) })
			}
		}
	}
	for id, old := range h.seen {
		old := old
		if _, exists := current[id]; !exists {
			for _, hook := range h.onEventRemoved {
				hook := hook
				calls = append(calls, func() { hook(old) })
			}
		}
	}
	h.seen = current
	h.mu.Unlock()

	for _, call := range calls {
		call()
	}
}

// triggerSessionUpdate calls the session hooks when the signed-in user
// differs from the last one seen.
func (h *hooks) triggerSessionUpdate(user *types.User) {
	id := 0
	if user != nil {
		id = user.ID
	}

	h.mu.Lock()
	if h.sessionUser == id {
		h.mu.Unlock()
		return
	}
	h.sessionUser = id
	fns := append([]SessionHook(nil), h.onSession...)
	h.mu.Unlock()

	for _, fn := range fns {
		if user == nil {
			fn(nil)
			continue
		}
		u := *user
		fn(&u)
	}
}
