package store

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/evently/internal/debounce"
	"github.com/agentstation/evently/pkg/api"
	"github.com/agentstation/evently/pkg/logging"
	"github.com/agentstation/evently/pkg/normalize"
	"github.com/agentstation/evently/pkg/pagination"
	"github.com/agentstation/evently/pkg/types"
)

// Collection names a view of the event store.
type Collection int

// Event store views. The three lists keep independent id lists and paging;
// CollectionEvent tracks single-event reads. A list fetch supersedes older
// fetches of its list. Single-event reads are superseded only by a delete or
// a Clear, so a read in flight never brings back a dropped event.
const (
	CollectionAll Collection = iota
	CollectionNearby
	CollectionMine
	CollectionEvent
	numCollections
)

var listCollections = []Collection{CollectionAll, CollectionNearby, CollectionMine}

// String returns the name of a collection.
func (c Collection) String() string {
	switch c {
	case CollectionAll:
		return "all"
	case CollectionNearby:
		return "nearby"
	case CollectionMine:
		return "mine"
	case CollectionEvent:
		return "event"
	}
	return "unknown"
}

// EventPagination is the paging view of each event list.
type EventPagination struct {
	All    pagination.State `json:"allEvents" yaml:"all_events"`
	Nearby pagination.State `json:"nearbyEvents" yaml:"nearby_events"`
	Mine   pagination.State `json:"myEvents" yaml:"my_events"`
}

func initialEventPagination() EventPagination {
	return EventPagination{All: pagination.Initial(), Nearby: pagination.Initial(), Mine: pagination.Initial()}
}

// EventState is the state of an EventStore. EventsByID is the single source
// of truth; the id lists are views over it and may name ids it no longer
// holds.
type EventState struct {
	EventsByID      map[int]types.Event
	AllIDs          []int
	NearbyIDs       []int
	MyIDs           []int
	Pagination      EventPagination
	SelectedFilters types.EventQuery
	Loading         bool
	Mutating        bool
	Error           string

	statuses [numCollections]Status
	gens     [numCollections]uint64
	fetching int
	mutating int
}

func initialEventState() EventState {
	st := EventState{
		EventsByID: map[int]types.Event{},
		Pagination: initialEventPagination(),
	}
	for i := range st.statuses {
		st.statuses[i] = StatusIdle
	}
	return st
}

// Status returns the fetch state of c.
func (st EventState) Status(c Collection) Status {
	if c < 0 || c >= numCollections {
		return StatusIdle
	}
	return st.statuses[c]
}

// IDs returns the id list of a list collection.
func (st EventState) IDs(c Collection) []int {
	switch c {
	case CollectionAll:
		return st.AllIDs
	case CollectionNearby:
		return st.NearbyIDs
	case CollectionMine:
		return st.MyIDs
	}
	return nil
}

func (st EventState) upsert(events map[int]types.Event) EventState {
	if len(events) == 0 {
		return st
	}
	st.EventsByID = normalize.Merge(st.EventsByID, events)
	return st
}

func (st EventState) upsertOne(ev types.Event) EventState {
	return st.upsert(map[int]types.Event{ev.ID: ev})
}

func (st EventState) withList(c Collection, ids []int, page pagination.State) EventState {
	switch c {
	case CollectionAll:
		st.AllIDs, st.Pagination.All = ids, page
	case CollectionNearby:
		st.NearbyIDs, st.Pagination.Nearby = ids, page
	case CollectionMine:
		st.MyIDs, st.Pagination.Mine = ids, page
	}
	st.statuses[c] = StatusReady
	return st
}

func (st EventState) without(id int) EventState {
	st.gens[CollectionEvent]++
	if st.statuses[CollectionEvent] == StatusLoading {
		st.statuses[CollectionEvent] = StatusIdle
	}
	byID := copyMap(st.EventsByID)
	delete(byID, id)
	st.EventsByID = byID
	st.AllIDs = normalize.Without(st.AllIDs, id)
	st.NearbyIDs = normalize.Without(st.NearbyIDs, id)
	st.MyIDs = normalize.Without(st.MyIDs, id)
	return st
}

// invalidated drops every list view and the selected filters so the next
// read refetches. In-flight list fetches become stale.
func (st EventState) invalidated() EventState {
	st.AllIDs, st.NearbyIDs, st.MyIDs = nil, nil, nil
	st.SelectedFilters = types.EventQuery{}
	st.Pagination = initialEventPagination()
	for _, c := range listCollections {
		st.statuses[c] = StatusIdle
		st.gens[c]++
	}
	return st
}

func (st EventState) clone() EventState {
	st.EventsByID = copyMap(st.EventsByID)
	st.AllIDs = copyIDs(st.AllIDs)
	st.NearbyIDs = copyIDs(st.NearbyIDs)
	st.MyIDs = copyIDs(st.MyIDs)
	return st
}

// EventStore holds events and the list views over them.
type EventStore struct {
	observers

	svc    *api.Events
	logger *zerolog.Logger
	queue  *debounce.Debouncer

	mu    sync.RWMutex
	state EventState
}

// NewEventStore creates an empty event store over svc.
func NewEventStore(svc *api.Events, opts ...Option) *EventStore {
	cfg := newConfig(opts)
	return &EventStore{
		svc:    svc,
		logger: cfg.logger,
		queue:  debounce.New(cfg.debounce),
		state:  initialEventState(),
	}
}

func (s *EventStore) update(fn func(EventState) EventState) {
	s.mu.Lock()
	s.state = fn(s.state)
	s.mu.Unlock()
	s.notify()
}

// commit applies fn only if ctx is still live and c was not superseded
// since gen was taken.
func (s *EventStore) commit(ctx context.Context, c Collection, gen uint64, fn func(EventState) EventState) bool {
	s.mu.Lock()
	ok := ctx.Err() == nil && s.state.gens[c] == gen
	if ok {
		s.state = fn(s.state)
	}
	s.mu.Unlock()

	if ok {
		s.notify()
	}
	return ok
}

func (s *EventStore) beginFetch(c Collection, prep func(EventState) EventState) uint64 {
	var gen uint64
	s.update(func(st EventState) EventState {
		if prep != nil {
			st = prep(st)
		}
		if c != CollectionEvent {
			st.gens[c]++
		}
		gen = st.gens[c]
		st.statuses[c] = StatusLoading
		st.fetching++
		st.Loading = true
		st.Error = ""
		return st
	})
	return gen
}

func (s *EventStore) endFetch(c Collection, gen uint64) {
	s.update(func(st EventState) EventState {
		st.fetching--
		st.Loading = st.fetching > 0
		if st.statuses[c] == StatusLoading && st.gens[c] == gen {
			st.statuses[c] = StatusIdle
		}
		return st
	})
}

func (s *EventStore) fetchFailed(ctx context.Context, c Collection, gen uint64, op string, err error) error {
	ce := classify(s.logger, op, err)
	s.commit(ctx, c, gen, func(st EventState) EventState {
		st.statuses[c] = StatusError
		st.Error = ce.Message
		return st
	})
	return ce
}

func (s *EventStore) fetchList(ctx context.Context, c Collection, op string, prep func(EventState) EventState,
	call func(context.Context) (*types.EventList, error)) ([]types.Event, error) {
	gen := s.beginFetch(c, prep)
	defer s.endFetch(c, gen)

	list, err := call(ctx)
	if err != nil {
		return nil, s.fetchFailed(ctx, c, gen, op, err)
	}

	res := normalize.Normalize(list.Events)
	page := pagination.FromMeta(list.Meta)
	committed := s.commit(ctx, c, gen, func(st EventState) EventState {
		return st.upsert(res.ByID).withList(c, res.IDs, page)
	})
	if !committed {
		s.logger.Debug().
			Str("collection", c.String()).
			Int("events", len(list.Events)).
			Msg("dropped superseded event list response")
	}
	return list.Events, nil
}

// FetchEvents records q as the selected filters and loads one page of the
// event listing. A filter change resets the listing's paging.
func (s *EventStore) FetchEvents(ctx context.Context, q types.EventQuery) ([]types.Event, error) {
	prep := func(st EventState) EventState {
		if !st.SelectedFilters.Equal(q) {
			st.Pagination.All = pagination.Initial()
		}
		st.SelectedFilters = q
		return st
	}
	return s.fetchList(ctx, CollectionAll, "fetch_events", prep, func(ctx context.Context) (*types.EventList, error) {
		return s.svc.List(ctx, q)
	})
}

// FetchNearbyEvents loads one page of events around a point into the
// nearby view.
func (s *EventStore) FetchNearbyEvents(ctx context.Context, q types.NearbyEventsQuery) ([]types.Event, error) {
	return s.fetchList(ctx, CollectionNearby, "fetch_nearby_events", nil, func(ctx context.Context) (*types.EventList, error) {
		return s.svc.Nearby(ctx, q)
	})
}

// FetchMyEvents loads one page of the current user's own events.
func (s *EventStore) FetchMyEvents(ctx context.Context, q types.EventQuery) ([]types.Event, error) {
	return s.fetchList(ctx, CollectionMine, "fetch_my_events", nil, func(ctx context.Context) (*types.EventList, error) {
		return s.svc.Mine(ctx, q)
	})
}

// FetchEventByID returns the event with id. An event already held is
// returned without a network call or any state change.
func (s *EventStore) FetchEventByID(ctx context.Context, id int) (types.Event, error) {
	if ev, ok := s.Event(id); ok {
		return ev, nil
	}
	ctx = forEvent(ctx, s.logger, id)

	gen := s.beginFetch(CollectionEvent, nil)
	defer s.endFetch(CollectionEvent, gen)

	ev, err := s.svc.Get(ctx, id)
	if err != nil {
		return types.Event{}, s.fetchFailed(ctx, CollectionEvent, gen, "fetch_event", err)
	}
	committed := s.commit(ctx, CollectionEvent, gen, func(st EventState) EventState {
		st = st.upsertOne(*ev)
		st.statuses[CollectionEvent] = StatusReady
		return st
	})
	if !committed {
		logging.FromContext(ctx).Debug().Msg("dropped superseded event response")
	}
	return *ev, nil
}

// QueueFilters fetches the listing for q once filter edits have been quiet
// for the debounce window. Only the last queued query of a burst is fetched.
func (s *EventStore) QueueFilters(ctx context.Context, q types.EventQuery) {
	s.queue.Trigger(func() {
		if _, err := s.FetchEvents(ctx, q); err != nil {
			s.logger.Debug().Err(err).Msg("queued filter fetch failed")
		}
	})
}

// FlushFilters runs a queued filter fetch now and reports whether one was queued.
func (s *EventStore) FlushFilters() bool {
	return s.queue.Flush()
}

// CancelFilters drops a queued filter fetch and reports whether one was queued.
func (s *EventStore) CancelFilters() bool {
	return s.queue.Stop()
}

func (s *EventStore) beginMutation() {
	s.update(func(st EventState) EventState {
		st.mutating++
		st.Mutating = true
		st.Error = ""
		return st
	})
}

func (s *EventStore) endMutation() {
	s.update(func(st EventState) EventState {
		st.mutating--
		st.Mutating = st.mutating > 0
		return st
	})
}

func (s *EventStore) mutationFailed(op string, err error) error {
	ce := classify(s.logger, op, err)
	s.update(func(st EventState) EventState {
		st.Error = ce.Message
		return st
	})
	return ce
}

// CreateEvent creates an event and holds the server's copy. Every list view
// and the selected filters are invalidated, so lists refetch before showing it.
func (s *EventStore) CreateEvent(ctx context.Context, data types.CreateEventData) (types.Event, error) {
	s.beginMutation()
	defer s.endMutation()

	ev, err := s.svc.Create(ctx, data)
	if err != nil {
		return types.Event{}, s.mutationFailed("create_event", err)
	}
	s.update(func(st EventState) EventState {
		return st.upsertOne(*ev).invalidated()
	})
	s.logger.Debug().Int("event_id", ev.ID).Msg("event created")
	return *ev, nil
}

// UpdateEvent applies patch on the server and replaces the held event with
// the server's full representation. List views are invalidated.
func (s *EventStore) UpdateEvent(ctx context.Context, id int, patch types.UpdateEventData) (types.Event, error) {
	ctx = forEvent(ctx, s.logger, id)
	s.beginMutation()
	defer s.endMutation()

	ev, err := s.svc.Update(ctx, id, patch)
	if err != nil {
		return types.Event{}, s.mutationFailed("update_event", err)
	}
	s.update(func(st EventState) EventState {
		return st.upsertOne(*ev).invalidated()
	})
	logging.FromContext(ctx).Debug().Msg("event updated")
	return *ev, nil
}

// DeleteEvent deletes an event and drops it from the map and every list.
func (s *EventStore) DeleteEvent(ctx context.Context, id int) error {
	ctx = forEvent(ctx, s.logger, id)
	s.beginMutation()
	defer s.endMutation()

	if err := s.svc.Delete(ctx, id); err != nil {
		return s.mutationFailed("delete_event", err)
	}
	s.update(func(st EventState) EventState {
		return st.without(id)
	})
	logging.FromContext(ctx).Debug().Msg("event deleted")
	return nil
}

// BookEvent registers the current user for an event. No event or booking
// state changes here; bookings are read through the BookingStore.
func (s *EventStore) BookEvent(ctx context.Context, id int) (types.Registration, error) {
	ctx = forEvent(ctx, s.logger, id)
	s.beginMutation()
	defer s.endMutation()

	reg, err := s.svc.Book(ctx, id)
	if err != nil {
		return types.Registration{}, s.mutationFailed("book_event", err)
	}
	logging.FromContext(ctx).Debug().Int("registration_id", reg.ID).Msg("event booked")
	return *reg, nil
}

// Event returns a held event.
func (s *EventStore) Event(id int) (types.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.state.EventsByID[id]
	return ev, ok
}

// Events returns the events of a list view in order, skipping ids no
// longer held.
func (s *EventStore) Events(c Collection) []types.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return normalize.Resolve(s.state.IDs(c), s.state.EventsByID)
}

// AllEvents returns the current page of the event listing.
func (s *EventStore) AllEvents() []types.Event {
	return s.Events(CollectionAll)
}

// NearbyEvents returns the current page of the nearby search.
func (s *EventStore) NearbyEvents() []types.Event {
	return s.Events(CollectionNearby)
}

// MyEvents returns the current page of the user's own events.
func (s *EventStore) MyEvents() []types.Event {
	return s.Events(CollectionMine)
}

// Pagination returns the paging view of every list.
func (s *EventStore) Pagination() EventPagination {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Pagination
}

// SelectedFilters returns the filters of the last listing fetch.
func (s *EventStore) SelectedFilters() types.EventQuery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.SelectedFilters
}

// Status returns the fetch state of c.
func (s *EventStore) Status(c Collection) Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Status(c)
}

// IsLoading reports whether a fetch is in flight.
func (s *EventStore) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Loading
}

// IsMutating reports whether a create, update, delete or booking is in flight.
func (s *EventStore) IsMutating() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Mutating
}

// Err returns the user message of the last failure, or "".
func (s *EventStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Error
}

// State returns a copy of the whole state.
func (s *EventStore) State() EventState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// ClearError forgets the last failure.
func (s *EventStore) ClearError() {
	s.update(func(st EventState) EventState {
		st.Error = ""
		return st
	})
}

// Clear drops every event, list and filter. In-flight fetches are discarded
// when they complete.
func (s *EventStore) Clear() {
	s.queue.Stop()
	s.update(func(st EventState) EventState {
		fresh := initialEventState()
		fresh.gens = st.gens
		for c := range fresh.gens {
			fresh.gens[c]++
		}
		fresh.fetching, fresh.Loading = st.fetching, st.Loading
		fresh.mutating, fresh.Mutating = st.mutating, st.Mutating
		return fresh
	})
}
