package api

import (
	"context"
	"net/http"

	"github.com/agentstation/evently/internal/transport"
	"github.com/agentstation/evently/pkg/types"
)

// Bookings is the registration service of the current user.
type Bookings struct {
	r Requester
}

// Get returns one registration.
func (s *Bookings) Get(ctx context.Context, id int) (*types.Registration, error) {
	var reg types.Registration
	if err := s.r.Do(ctx, transport.Request{Method: http.MethodGet, Path: "/booking/" + itoa(id)}, &reg); err != nil {
		return nil, notFound("registration", id, err)
	}
	return &reg, nil
}

// Mine returns one page of the current user's registrations.
func (s *Bookings) Mine(ctx context.Context, q types.RegistrationQuery) (*types.RegistrationList, error) {
	var out types.RegistrationList
	req := transport.Request{Method: http.MethodGet, Path: "/booking/get/my-bookings", Query: q.Values()}
	if err := s.r.Do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Cancel cancels a registration.
func (s *Bookings) Cancel(ctx context.Context, id int) error {
	return s.r.Do(ctx, transport.Request{Method: http.MethodDelete, Path: "/booking/" + itoa(id)}, nil)
}
