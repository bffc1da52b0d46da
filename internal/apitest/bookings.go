package apitest

import (
	"net/http"

	"github.com/agentstation/evently/pkg/types"
)

func (s *Server) myBookings(w http.ResponseWriter, r *http.Request, user types.User) {
	s.mu.Lock()
	all := sortedValues(s.bookings)
	s.mu.Unlock()

	mine := make([]types.Registration, 0, len(all))
	for _, b := range all {
		if b.UserID == user.ID {
			mine = append(mine, b)
		}
	}
	if r.URL.Query().Get("sortOrder") == string(types.SortDesc) {
		for i, j := 0, len(mine)-1; i < j; i, j = i+1, j-1 {
			mine[i], mine[j] = mine[j], mine[i]
		}
	}
	page, meta := paged(mine, queryInt(r, "page", 1), queryInt(r, "limit", 10))
	OK(w, types.RegistrationList{Registrations: page, Meta: meta})
}

func (s *Server) getBooking(w http.ResponseWriter, r *http.Request, user types.User) {
	reg, ok := s.ownedBooking(w, r, user)
	if !ok {
		return
	}
	OK(w, reg)
}

func (s *Server) cancelBooking(w http.ResponseWriter, r *http.Request, user types.User) {
	reg, ok := s.ownedBooking(w, r, user)
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.bookings, reg.ID)
	s.mu.Unlock()
	OK(w, nil)
}

func (s *Server) ownedBooking(w http.ResponseWriter, r *http.Request, user types.User) (types.Registration, bool) {
	id, ok := pathID(r)
	if !ok {
		BadRequest(w, "Invalid booking id")
		return types.Registration{}, false
	}

	s.mu.Lock()
	reg, exists := s.bookings[id]
	s.mu.Unlock()

	switch {
	case !exists:
		NotFound(w, "Booking")
		return types.Registration{}, false
	case reg.UserID != user.ID && user.Role != types.RoleAdmin:
		Forbidden(w)
		return types.Registration{}, false
	}
	return reg, true
}
