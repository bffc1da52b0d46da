package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/agentstation/evently/internal/transport"
	"github.com/agentstation/evently/pkg/types"
)

// Events is the event service.
type Events struct {
	r Requester
}

// List returns one page of events matching q.
func (s *Events) List(ctx context.Context, q types.EventQuery) (*types.EventList, error) {
	return s.list(ctx, "/events", q.Values())
}

// Nearby returns one page of events around a point.
func (s *Events) Nearby(ctx context.Context, q types.NearbyEventsQuery) (*types.EventList, error) {
	return s.list(ctx, "/events/search/nearby", q.Values())
}

// Mine returns one page of the events created by the current user.
func (s *Events) Mine(ctx context.Context, q types.EventQuery) (*types.EventList, error) {
	return s.list(ctx, "/events/get/my-events", q.Values())
}

// Get returns one event.
func (s *Events) Get(ctx context.Context, id int) (*types.Event, error) {
	var ev types.Event
	if err := s.r.Do(ctx, transport.Request{Method: http.MethodGet, Path: "/events/" + itoa(id)}, &ev); err != nil {
		return nil, notFound("event", id, err)
	}
	return &ev, nil
}

// Create creates an event. Images switch the request to multipart, one
// "images" part per file.
func (s *Events) Create(ctx context.Context, data types.CreateEventData) (*types.Event, error) {
	req := transport.Request{Method: http.MethodPost, Path: "/events", Body: data}
	if len(data.Images) > 0 {
		req.Body = nil
		req.Form = imageForm(data.Fields(), data.Images)
	}

	var ev types.Event
	if err := s.r.Do(ctx, req, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// Update patches an event and returns the server's full representation.
func (s *Events) Update(ctx context.Context, id int, data types.UpdateEventData) (*types.Event, error) {
	req := transport.Request{Method: http.MethodPut, Path: "/events/" + itoa(id), Body: data}
	if len(data.Images) > 0 {
		req.Body = nil
		req.Form = imageForm(data.Fields(), data.Images)
	}

	var ev types.Event
	if err := s.r.Do(ctx, req, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// Delete deletes an event.
func (s *Events) Delete(ctx context.Context, id int) error {
	return s.r.Do(ctx, transport.Request{Method: http.MethodDelete, Path: "/events/" + itoa(id)}, nil)
}

// Book registers the current user for an event.
func (s *Events) Book(ctx context.Context, id int) (*types.Registration, error) {
	var reg types.Registration
	if err := s.r.Do(ctx, transport.Request{Method: http.MethodPost, Path: "/events/" + itoa(id) + "/book"}, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Bookings returns one page of the registrations of an event (organizer view).
func (s *Events) Bookings(ctx context.Context, id int, q types.RegistrationQuery) (*types.RegistrationList, error) {
	var out types.RegistrationList
	req := transport.Request{Method: http.MethodGet, Path: "/events/get/bookings/" + itoa(id), Query: q.Values()}
	if err := s.r.Do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Events) list(ctx context.Context, path string, query url.Values) (*types.EventList, error) {
	var out types.EventList
	if err := s.r.Do(ctx, transport.Request{Method: http.MethodGet, Path: path, Query: query}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func imageForm(fields map[string]string, images []types.File) *transport.Form {
	form := transport.NewForm(fields)
	for _, img := range images {
		form.AddFile("images", img)
	}
	return form
}
