package store

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/evently/internal/cache"
	"github.com/agentstation/evently/pkg/api"
	"github.com/agentstation/evently/pkg/constants"
	"github.com/agentstation/evently/pkg/normalize"
	"github.com/agentstation/evently/pkg/pagination"
	"github.com/agentstation/evently/pkg/types"
)

// BookingState is the state of a BookingStore.
type BookingState struct {
	BookingsByID    map[int]types.Registration
	MyIDs           []int
	Pagination      pagination.State
	EventID         int
	EventIDs        []int
	EventPagination pagination.State
	Status          Status
	Loading         bool
	Mutating        bool
	Error           string

	gen      uint64
	fetching int
}

func initialBookingState() BookingState {
	return BookingState{
		BookingsByID:    map[int]types.Registration{},
		Pagination:      pagination.Initial(),
		EventPagination: pagination.Initial(),
		Status:          StatusIdle,
	}
}

func (st BookingState) upsert(regs map[int]types.Registration) BookingState {
	if len(regs) == 0 {
		return st
	}
	st.BookingsByID = normalize.Merge(st.BookingsByID, regs)
	return st
}

func (st BookingState) without(id int) BookingState {
	byID := copyMap(st.BookingsByID)
	delete(byID, id)
	st.BookingsByID = byID
	st.MyIDs = normalize.Without(st.MyIDs, id)
	st.EventIDs = normalize.Without(st.EventIDs, id)
	return st
}

func (st BookingState) clone() BookingState {
	st.BookingsByID = copyMap(st.BookingsByID)
	st.MyIDs = copyIDs(st.MyIDs)
	st.EventIDs = copyIDs(st.EventIDs)
	return st
}

// BookingStore holds the current user's registrations and the registrations
// of one event for its organizer.
type BookingStore struct {
	observers

	svc    *api.Bookings
	events *api.Events
	logger *zerolog.Logger
	cache  *cache.Cache[types.Registration]

	mu    sync.RWMutex
	state BookingState
}

// NewBookingStore creates an empty booking store.
func NewBookingStore(svc *api.Bookings, events *api.Events, opts ...Option) *BookingStore {
	cfg := newConfig(opts)
	return &BookingStore{
		svc:    svc,
		events: events,
		logger: cfg.logger,
		cache:  cache.New[types.Registration](cfg.cacheTTL, constants.CacheCleanupInterval),
		state:  initialBookingState(),
	}
}

func (s *BookingStore) update(fn func(BookingState) BookingState) {
	s.mu.Lock()
	s.state = fn(s.state)
	s.mu.Unlock()
	s.notify()
}

func (s *BookingStore) commit(ctx context.Context, gen uint64, fn func(BookingState) BookingState) bool {
	s.mu.Lock()
	ok := ctx.Err() == nil && s.state.gen == gen
	if ok {
		s.state = fn(s.state)
	}
	s.mu.Unlock()

	if ok {
		s.notify()
	}
	return ok
}

func (s *BookingStore) beginFetch() uint64 {
	var gen uint64
	s.update(func(st BookingState) BookingState {
		st.gen++
		gen = st.gen
		st.fetching++
		st.Loading = true
		st.Status = StatusLoading
		st.Error = ""
		return st
	})
	return gen
}

func (s *BookingStore) endFetch(gen uint64) {
	s.update(func(st BookingState) BookingState {
		st.fetching--
		st.Loading = st.fetching > 0
		if st.Status == StatusLoading && st.gen == gen {
			st.Status = StatusIdle
		}
		return st
	})
}

func (s *BookingStore) fail(op string, err error) error {
	ce := classify(s.logger, op, err)
	s.update(func(st BookingState) BookingState {
		st.Error = ce.Message
		if st.fetching > 0 {
			st.Status = StatusError
		}
		return st
	})
	return ce
}

// FetchMyBookings loads one page of the current user's registrations.
func (s *BookingStore) FetchMyBookings(ctx context.Context, q types.RegistrationQuery) ([]types.Registration, error) {
	gen := s.beginFetch()
	defer s.endFetch(gen)

	list, err := s.svc.Mine(ctx, q)
	if err != nil {
		return nil, s.fail("fetch_my_bookings", err)
	}

	res := normalize.Normalize(list.Registrations)
	for id, reg := range res.ByID {
		s.cache.Set(id, reg)
	}
	page := pagination.FromMeta(list.Meta)
	if !s.commit(ctx, gen, func(st BookingState) BookingState {
		st = st.upsert(res.ByID)
		st.MyIDs = res.IDs
		st.Pagination = page
		st.Status = StatusReady
		return st
	}) {
		s.logger.Debug().Msg("dropped superseded booking list response")
	}
	return list.Registrations, nil
}

// FetchEventBookings loads one page of the registrations of an event.
func (s *BookingStore) FetchEventBookings(ctx context.Context, eventID int, q types.RegistrationQuery) ([]types.Registration, error) {
	gen := s.beginFetch()
	defer s.endFetch(gen)

	list, err := s.events.Bookings(ctx, eventID, q)
	if err != nil {
		return nil, s.fail("fetch_event_bookings", err)
	}

	res := normalize.Normalize(list.Registrations)
	page := pagination.FromMeta(list.Meta)
	s.commit(ctx, gen, func(st BookingState) BookingState {
		st = st.upsert(res.ByID)
		st.EventID = eventID
		st.EventIDs = res.IDs
		st.EventPagination = page
		st.Status = StatusReady
		return st
	})
	return list.Registrations, nil
}

// FetchBookingByID returns a registration, served from memory while its
// cache entry is fresh.
func (s *BookingStore) FetchBookingByID(ctx context.Context, id int) (types.Registration, error) {
	if reg, ok := s.cache.Get(id); ok {
		return reg, nil
	}

	s.update(func(st BookingState) BookingState {
		st.fetching++
		st.Loading = true
		st.Error = ""
		return st
	})
	defer s.update(func(st BookingState) BookingState {
		st.fetching--
		st.Loading = st.fetching > 0
		return st
	})

	reg, err := s.svc.Get(ctx, id)
	if err != nil {
		ce := classify(s.logger, "fetch_booking", err)
		s.update(func(st BookingState) BookingState {
			st.Error = ce.Message
			return st
		})
		return types.Registration{}, ce
	}
	s.cache.Set(reg.ID, *reg)
	s.update(func(st BookingState) BookingState {
		return st.upsert(map[int]types.Registration{reg.ID: *reg})
	})
	return *reg, nil
}

// CancelBooking cancels a registration and forgets it.
func (s *BookingStore) CancelBooking(ctx context.Context, id int) error {
	s.update(func(st BookingState) BookingState {
		st.Mutating = true
		st.Error = ""
		return st
	})
	defer s.update(func(st BookingState) BookingState {
		st.Mutating = false
		return st
	})

	if err := s.svc.Cancel(ctx, id); err != nil {
		ce := classify(s.logger, "cancel_booking", err)
		s.update(func(st BookingState) BookingState {
			st.Error = ce.Message
			return st
		})
		return ce
	}
	s.cache.Delete(id)
	s.update(func(st BookingState) BookingState {
		return st.without(id)
	})
	s.logger.Debug().Int("registration_id", id).Msg("booking cancelled")
	return nil
}

// Booking returns a held registration.
func (s *BookingStore) Booking(id int) (types.Registration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reg, ok := s.state.BookingsByID[id]
	return reg, ok
}

// MyBookings returns the current page of the user's registrations.
func (s *BookingStore) MyBookings() []types.Registration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return normalize.Resolve(s.state.MyIDs, s.state.BookingsByID)
}

// EventBookings returns the current page of registrations of the last
// fetched event, with that event's id.
func (s *BookingStore) EventBookings() (int, []types.Registration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.EventID, normalize.Resolve(s.state.EventIDs, s.state.BookingsByID)
}

// IsBooked reports whether the current page of the user's registrations
// includes eventID.
func (s *BookingStore) IsBooked(eventID int) bool {
	for _, reg := range s.MyBookings() {
		if reg.EventID == eventID {
			return true
		}
	}
	return false
}

// Pagination returns the paging view of the user's registrations.
func (s *BookingStore) Pagination() pagination.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Pagination
}

// IsLoading reports whether a fetch is in flight.
func (s *BookingStore) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Loading
}

// IsMutating reports whether a cancellation is in flight.
func (s *BookingStore) IsMutating() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Mutating
}

// Err returns the user message of the last failure, or "".
func (s *BookingStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Error
}

// State returns a copy of the whole state.
func (s *BookingStore) State() BookingState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// ClearError forgets the last failure.
func (s *BookingStore) ClearError() {
	s.update(func(st BookingState) BookingState {
		st.Error = ""
		return st
	})
}

// Clear forgets every registration.
func (s *BookingStore) Clear() {
	s.cache.Clear()
	s.update(func(st BookingState) BookingState {
		fresh := initialBookingState()
		fresh.gen = st.gen + 1
		fresh.fetching, fresh.Loading = st.fetching, st.Loading
		return fresh
	})
}
