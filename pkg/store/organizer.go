package store

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/evently/pkg/api"
	"github.com/agentstation/evently/pkg/errors"
	"github.com/agentstation/evently/pkg/normalize"
	"github.com/agentstation/evently/pkg/pagination"
	"github.com/agentstation/evently/pkg/types"
)

// OrganizerState is the state of an OrganizerStore.
type OrganizerState struct {
	RequestsByID map[int]types.OrganizerRequest
	IDs          []int
	Pagination   pagination.State
	Status       Status
	Loading      bool
	Mutating     bool
	Error        string
}

func (st OrganizerState) upsert(reqs map[int]types.OrganizerRequest) OrganizerState {
	if len(reqs) == 0 {
		return st
	}
	st.RequestsByID = normalize.Merge(st.RequestsByID, reqs)
	return st
}

func (st OrganizerState) clone() OrganizerState {
	st.RequestsByID = copyMap(st.RequestsByID)
	st.IDs = copyIDs(st.IDs)
	return st
}

// OrganizerStore holds organizer applications. The server decides every
// status change; the store only refuses transitions that can never succeed.
type OrganizerStore struct {
	observers

	svc    *api.OrganizerRequests
	logger *zerolog.Logger

	mu    sync.RWMutex
	state OrganizerState
}

// NewOrganizerStore creates an empty organizer request store.
func NewOrganizerStore(svc *api.OrganizerRequests, opts ...Option) *OrganizerStore {
	cfg := newConfig(opts)
	return &OrganizerStore{
		svc:    svc,
		logger: cfg.logger,
		state: OrganizerState{
			RequestsByID: map[int]types.OrganizerRequest{},
			Pagination:   pagination.Initial(),
			Status:       StatusIdle,
		},
	}
}

func (s *OrganizerStore) update(fn func(OrganizerState) OrganizerState) {
	s.mu.Lock()
	s.state = fn(s.state)
	s.mu.Unlock()
	s.notify()
}

// run wraps one action: it sets the busy flag, clears the previous error,
// and on failure records the classified message.
func (s *OrganizerStore) run(op string, mutating bool, fn func() error) error {
	s.update(func(st OrganizerState) OrganizerState {
		if mutating {
			st.Mutating = true
		} else {
			st.Loading = true
			st.Status = StatusLoading
		}
		st.Error = ""
		return st
	})

	err := fn()

	var ce *errors.ClassifiedError
	if err != nil {
		ce = classify(s.logger, op, err)
	}
	s.update(func(st OrganizerState) OrganizerState {
		if mutating {
			st.Mutating = false
		} else {
			st.Loading = false
			st.Status = StatusReady
			if ce != nil {
				st.Status = StatusError
			}
		}
		if ce != nil {
			st.Error = ce.Message
		}
		return st
	})

	if ce != nil {
		return ce
	}
	return nil
}

// Submit applies for the organizer role.
func (s *OrganizerStore) Submit(ctx context.Context, data types.CreateOrganizerRequestData) (types.OrganizerRequest, error) {
	var out types.OrganizerRequest
	err := s.run("submit_organizer_request", true, func() error {
		req, err := s.svc.Create(ctx, data)
		if err != nil {
			return err
		}
		out = *req
		s.update(func(st OrganizerState) OrganizerState {
			return st.upsert(map[int]types.OrganizerRequest{req.ID: *req})
		})
		return nil
	})
	return out, err
}

// FetchRequests loads one page of applications.
func (s *OrganizerStore) FetchRequests(ctx context.Context, q types.OrganizerRequestQuery) ([]types.OrganizerRequest, error) {
	var items []types.OrganizerRequest
	err := s.run("fetch_organizer_requests", false, func() error {
		list, err := s.svc.List(ctx, q)
		if err != nil {
			return err
		}
		items = list.Items()
		res := normalize.Normalize(items)
		page := pagination.FromMeta(list.Meta)
		s.update(func(st OrganizerState) OrganizerState {
			st = st.upsert(res.ByID)
			st.IDs = res.IDs
			st.Pagination = page
			return st
		})
		return nil
	})
	return items, err
}

// FetchRequestByID returns an application, from memory when already held.
func (s *OrganizerStore) FetchRequestByID(ctx context.Context, id int) (types.OrganizerRequest, error) {
	if req, ok := s.Request(id); ok {
		return req, nil
	}

	var out types.OrganizerRequest
	err := s.run("fetch_organizer_request", false, func() error {
		req, err := s.svc.Get(ctx, id)
		if err != nil {
			return err
		}
		out = *req
		s.update(func(st OrganizerState) OrganizerState {
			return st.upsert(map[int]types.OrganizerRequest{req.ID: *req})
		})
		return nil
	})
	return out, err
}

// Review moves a pending application to ACCEPTED or REJECTED and holds the
// server's copy. Any other transition fails without a network call.
func (s *OrganizerStore) Review(ctx context.Context, id int, status types.RequestStatus) (types.OrganizerRequest, error) {
	current, err := s.FetchRequestByID(ctx, id)
	if err != nil {
		return types.OrganizerRequest{}, err
	}

	var out types.OrganizerRequest
	err = s.run("review_organizer_request", true, func() error {
		if !current.Status.CanTransition(status) {
			return errors.NewValidationError("status", status,
				"cannot move a "+current.Status.String()+" request to "+status.String())
		}
		req, err := s.svc.UpdateStatus(ctx, id, status)
		if err != nil {
			return err
		}
		out = *req
		s.update(func(st OrganizerState) OrganizerState {
			return st.upsert(map[int]types.OrganizerRequest{req.ID: *req})
		})
		s.logger.Debug().Int("request_id", id).Str("status", req.Status.String()).Msg("organizer request reviewed")
		return nil
	})
	return out, err
}

// Request returns a held application.
func (s *OrganizerStore) Request(id int) (types.OrganizerRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.state.RequestsByID[id]
	return req, ok
}

// Requests returns the current page of applications.
func (s *OrganizerStore) Requests() []types.OrganizerRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return normalize.Resolve(s.state.IDs, s.state.RequestsByID)
}

// Pending returns the applications of the current page awaiting review.
func (s *OrganizerStore) Pending() []types.OrganizerRequest {
	var out []types.OrganizerRequest
	for _, req := range s.Requests() {
		if req.Status == types.RequestPending {
			out = append(out, req)
		}
	}
	return out
}

// Pagination returns the paging view of the applications.
func (s *OrganizerStore) Pagination() pagination.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Pagination
}

// IsLoading reports whether a fetch is in flight.
func (s *OrganizerStore) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Loading
}

// IsMutating reports whether a submission or review is in flight.
func (s *OrganizerStore) IsMutating() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Mutating
}

// Err returns the user message of the last failure, or "".
func (s *OrganizerStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Error
}

// State returns a copy of the whole state.
func (s *OrganizerStore) State() OrganizerState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// ClearError forgets the last failure.
func (s *OrganizerStore) ClearError() {
	s.update(func(st OrganizerState) OrganizerState {
		st.Error = ""
		return st
	})
}

// Clear forgets every application.
func (s *OrganizerStore) Clear() {
	s.update(func(OrganizerState) OrganizerState {
		return OrganizerState{
			RequestsByID: map[int]types.OrganizerRequest{},
			Pagination:   pagination.Initial(),
			Status:       StatusIdle,
		}
	})
}
