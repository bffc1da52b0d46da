package store

import "github.com/agentstation/evently/pkg/types"

// AuthSnapshot is the durable slice of the auth state. Loading and error
// flags are never persisted.
type AuthSnapshot struct {
	User            *types.User `json:"user" yaml:"user"`
	IsAuthenticated bool        `json:"isAuthenticated" yaml:"is_authenticated"`
}

// EventSnapshot is the durable slice of the event state. Lists, paging and
// flags are rebuilt each session.
type EventSnapshot struct {
	EventsByID      map[int]types.Event `json:"eventsById" yaml:"events_by_id"`
	SelectedFilters types.EventQuery    `json:"selectedFilters" yaml:"selected_filters"`
}

// Snapshot returns the durable slice of the auth state.
func (s *AuthStore) Snapshot() AuthSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := AuthSnapshot{IsAuthenticated: s.state.IsAuthenticated}
	if s.state.User != nil {
		u := *s.state.User
		snap.User = &u
	}
	return snap
}

// Restore replaces the durable slice with snap. A snapshot claiming a
// session without a user is restored as anonymous.
func (s *AuthStore) Restore(snap AuthSnapshot) {
	s.update(func(st AuthState) AuthState {
		if !snap.IsAuthenticated || snap.User == nil {
			return st.anonymous()
		}
		return st.authenticated(*snap.User)
	})
}

// Snapshot returns the durable slice of the event state.
func (s *EventStore) Snapshot() EventSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return EventSnapshot{
		EventsByID:      copyMap(s.state.EventsByID),
		SelectedFilters: s.state.SelectedFilters,
	}
}

// Restore replaces the held events and selected filters with snap.
func (s *EventStore) Restore(snap EventSnapshot) {
	s.update(func(st EventState) EventState {
		st.EventsByID = copyMap(snap.EventsByID)
		st.SelectedFilters = snap.SelectedFilters
		return st
	})
}
