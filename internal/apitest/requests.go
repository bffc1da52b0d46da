package apitest

import (
	"encoding/json"
	"net/http"

	"github.com/agentstation/utc"

	"github.com/agentstation/evently/pkg/types"
)

func (s *Server) createRequest(w http.ResponseWriter, r *http.Request, user types.User) {
	b, err := readBody(r)
	if err != nil {
		BadRequest(w, "Malformed body")
		return
	}
	invalid := map[string][]string{}
	if b.fields["overview"] == "" {
		invalid["overview"] = []string{"overview is required"}
	}
	if len(b.files["resume"]) == 0 {
		invalid["resume"] = []string{"resume is required"}
	}
	if len(invalid) > 0 {
		Invalid(w, invalid)
		return
	}

	s.mu.Lock()
	exists := false
	for _, req := range s.requests {
		if req.UserID == user.ID {
			exists = true
		}
	}
	s.mu.Unlock()
	if exists {
		Fail(w, http.StatusConflict, "You have already submitted a request")
		return
	}

	now := utc.Now()
	req := s.AddRequest(types.OrganizerRequest{
		UserID:    user.ID,
		Overview:  b.fields["overview"],
		Resume:    CDN + b.files["resume"][0],
		Status:    types.RequestPending,
		CreatedAt: now,
		UpdatedAt: now,
		User:      summary(user),
	})
	Created(w, req)
}

func (s *Server) listRequests(w http.ResponseWriter, r *http.Request, user types.User) {
	if user.Role != types.RoleAdmin {
		Forbidden(w)
		return
	}
	s.mu.Lock()
	all := sortedValues(s.requests)
	s.mu.Unlock()

	page, meta := paged(all, queryInt(r, "page", 1), queryInt(r, "limit", 10))
	OK(w, types.OrganizerRequestList{Data: page, Meta: meta})
}

func (s *Server) getRequest(w http.ResponseWriter, r *http.Request, user types.User) {
	req, ok := s.lookupRequest(w, r)
	if !ok {
		return
	}
	if req.UserID != user.ID && user.Role != types.RoleAdmin {
		Forbidden(w)
		return
	}
	OK(w, req)
}

func (s *Server) updateRequest(w http.ResponseWriter, r *http.Request, user types.User) {
	if user.Role != types.RoleAdmin {
		Forbidden(w)
		return
	}
	req, ok := s.lookupRequest(w, r)
	if !ok {
		return
	}

	var in types.UpdateRequestStatusData
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		BadRequest(w, "Malformed body")
		return
	}
	if !req.Status.CanTransition(in.Status) {
		BadRequest(w, "Invalid status transition")
		return
	}

	req.Status = in.Status
	req.UpdatedAt = utc.Now()

	s.mu.Lock()
	s.requests[req.ID] = req
	if u, ok := s.users[req.UserID]; ok && in.Status == types.RequestAccepted {
		u.Role = types.RoleOrganizer
		s.users[u.ID] = u
	}
	s.mu.Unlock()

	s.hub.broadcast("organizer-request:updated", req)
	OK(w, req)
}

func (s *Server) lookupRequest(w http.ResponseWriter, r *http.Request) (types.OrganizerRequest, bool) {
	id, ok := pathID(r)
	if !ok {
		BadRequest(w, "Invalid request id")
		return types.OrganizerRequest{}, false
	}
	s.mu.Lock()
	req, exists := s.requests[id]
	s.mu.Unlock()
	if !exists {
		NotFound(w, "Organizer request")
		return types.OrganizerRequest{}, false
	}
	return req, true
}
