package api

import (
	"context"
	"net/http"

	"github.com/agentstation/evently/internal/transport"
	"github.com/agentstation/evently/pkg/errors"
	"github.com/agentstation/evently/pkg/types"
)

// OrganizerRequests is the organizer application service.
type OrganizerRequests struct {
	r Requester
}

// Create submits an application. It is always sent as multipart.
func (s *OrganizerRequests) Create(ctx context.Context, data types.CreateOrganizerRequestData) (*types.OrganizerRequest, error) {
	if data.Resume.Content == nil {
		return nil, errors.NewValidationError("resume", data.Resume.Name, "a resume file is required")
	}
	form := transport.NewForm(map[string]string{"overview": data.Overview}).AddFile("resume", data.Resume)

	var out types.OrganizerRequest
	req := transport.Request{Method: http.MethodPost, Path: "/organizer-request/create", Form: form}
	if err := s.r.Do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns one page of applications (admin view).
func (s *OrganizerRequests) List(ctx context.Context, q types.OrganizerRequestQuery) (*types.OrganizerRequestList, error) {
	var out types.OrganizerRequestList
	req := transport.Request{Method: http.MethodGet, Path: "/organizer-request/get", Query: q.Values()}
	if err := s.r.Do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns one application.
func (s *OrganizerRequests) Get(ctx context.Context, id int) (*types.OrganizerRequest, error) {
	var out types.OrganizerRequest
	if err := s.r.Do(ctx, transport.Request{Method: http.MethodGet, Path: "/organizer-request/get/" + itoa(id)}, &out); err != nil {
		return nil, notFound("organizer_request", id, err)
	}
	return &out, nil
}

// UpdateStatus asks the server to move an application to status.
// The server decides whether the transition is allowed.
func (s *OrganizerRequests) UpdateStatus(ctx context.Context, id int, status types.RequestStatus) (*types.OrganizerRequest, error) {
	var out types.OrganizerRequest
	req := transport.Request{
		Method: http.MethodPut,
		Path:   "/organizer-request/update/" + itoa(id),
		Body:   types.UpdateRequestStatusData{Status: status},
	}
	if err := s.r.Do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
