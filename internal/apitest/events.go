package apitest

import (
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/agentstation/utc"

	"github.com/agentstation/evently/pkg/types"
)

const earthRadiusKm = 6371.0

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	search := strings.ToLower(q.Get("search"))
	city := q.Get("city")
	location := strings.ToLower(q.Get("location"))

	s.mu.Lock()
	all := sortedValues(s.events)
	s.mu.Unlock()

	matched := make([]types.Event, 0, len(all))
	for _, ev := range all {
		if search != "" && !strings.Contains(strings.ToLower(ev.Title+" "+ev.Description), search) {
			continue
		}
		if city != "" && !strings.EqualFold(ev.City, city) {
			continue
		}
		if location != "" && !strings.Contains(strings.ToLower(ev.Place()+" "+ev.Address), location) {
			continue
		}
		matched = append(matched, ev)
	}
	if q.Get("sortBy") == "date" {
		desc := q.Get("sortOrder") == string(types.SortDesc)
		sort.SliceStable(matched, func(i, j int) bool {
			if desc {
				return matched[i].Date.After(matched[j].Date)
			}
			return matched[i].Date.Before(matched[j].Date)
		})
	}

	page, meta := paged(matched, queryInt(r, "page", 1), queryInt(r, "limit", 10))
	OK(w, types.EventList{Events: page, Meta: meta})
}

func (s *Server) nearbyEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("latitude"), 64)
	lng, errLng := strconv.ParseFloat(q.Get("longitude"), 64)
	if errLat != nil || errLng != nil {
		BadRequest(w, "latitude and longitude are required")
		return
	}
	radius := 10.0
	if v, err := strconv.ParseFloat(q.Get("radius"), 64); err == nil && v > 0 {
		radius = v
	}
	if q.Get("unit") == string(types.UnitMiles) {
		radius *= 1.609344
	}

	s.mu.Lock()
	all := sortedValues(s.events)
	s.mu.Unlock()

	near := make([]types.Event, 0, len(all))
	for _, ev := range all {
		if distanceKm(lat, lng, ev.Latitude, ev.Longitude) <= radius {
			near = append(near, ev)
		}
	}
	page, meta := paged(near, queryInt(r, "page", 1), queryInt(r, "limit", 10))
	OK(w, types.EventList{Events: page, Meta: meta})
}

func (s *Server) myEvents(w http.ResponseWriter, r *http.Request, user types.User) {
	s.mu.Lock()
	all := sortedValues(s.events)
	s.mu.Unlock()

	mine := make([]types.Event, 0, len(all))
	for _, ev := range all {
		if ev.CreatedBy == user.ID {
			mine = append(mine, ev)
		}
	}
	page, meta := paged(mine, queryInt(r, "page", 1), queryInt(r, "limit", 10))
	OK(w, types.EventList{Events: page, Meta: meta})
}

func (s *Server) getEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		BadRequest(w, "Invalid event id")
		return
	}
	ev, ok := s.Event(id)
	if !ok {
		NotFound(w, "Event")
		return
	}
	OK(w, ev)
}

func (s *Server) createEvent(w http.ResponseWriter, r *http.Request, user types.User) {
	if !user.Role.CanOrganize() {
		Forbidden(w)
		return
	}
	b, err := readBody(r)
	if err != nil {
		BadRequest(w, "Malformed body")
		return
	}

	now := utc.Now()
	ev := types.Event{CreatedBy: user.ID, CreatedAt: now, UpdatedAt: now, Creator: summary(user)}
	invalid := applyEvent(&ev, b)
	if ev.Title == "" {
		invalid["title"] = append(invalid["title"], "title is required")
	}
	if len(invalid) > 0 {
		Invalid(w, invalid)
		return
	}
	Created(w, s.AddEvent(ev))
}

func (s *Server) updateEvent(w http.ResponseWriter, r *http.Request, user types.User) {
	ev, ok := s.ownedEvent(w, r, user)
	if !ok {
		return
	}
	b, err := readBody(r)
	if err != nil {
		BadRequest(w, "Malformed body")
		return
	}
	if invalid := applyEvent(&ev, b); len(invalid) > 0 {
		Invalid(w, invalid)
		return
	}
	ev.UpdatedAt = utc.Now()

	s.mu.Lock()
	s.events[ev.ID] = ev
	s.mu.Unlock()
	OK(w, ev)
}

func (s *Server) deleteEvent(w http.ResponseWriter, r *http.Request, user types.User) {
	ev, ok := s.ownedEvent(w, r, user)
	if !ok {
		return
	}

	s.mu.Lock()
	delete(s.events, ev.ID)
	for id, b := range s.bookings {
		if b.EventID == ev.ID {
			delete(s.bookings, id)
		}
	}
	s.mu.Unlock()
	OK(w, nil)
}

func (s *Server) bookEvent(w http.ResponseWriter, r *http.Request, user types.User) {
	id, ok := pathID(r)
	if !ok {
		BadRequest(w, "Invalid event id")
		return
	}

	s.mu.Lock()
	ev, exists := s.events[id]
	booked := false
	for _, b := range s.bookings {
		if b.EventID == id && b.UserID == user.ID {
			booked = true
		}
	}
	s.mu.Unlock()

	switch {
	case !exists:
		NotFound(w, "Event")
		return
	case booked:
		Fail(w, http.StatusConflict, "Already registered for this event")
		return
	}

	now := utc.Now()
	reg := s.AddBooking(types.Registration{
		UserID:       user.ID,
		EventID:      id,
		RegisteredAt: now,
		CreatedAt:    now,
		User:         summary(user),
		Event:        &ev,
	})
	s.hub.broadcast("event:booked", map[string]int{"eventId": id, "userId": user.ID})
	Created(w, reg)
}

func (s *Server) eventBookings(w http.ResponseWriter, r *http.Request, user types.User) {
	ev, ok := s.ownedEvent(w, r, user)
	if !ok {
		return
	}

	s.mu.Lock()
	all := sortedValues(s.bookings)
	s.mu.Unlock()

	regs := make([]types.Registration, 0, len(all))
	for _, b := range all {
		if b.EventID == ev.ID {
			regs = append(regs, b)
		}
	}
	page, meta := paged(regs, queryInt(r, "page", 1), queryInt(r, "limit", 10))
	OK(w, types.RegistrationList{Registrations: page, Meta: meta})
}

// ownedEvent loads the event in the path and checks user may manage it.
// It writes the error response itself.
func (s *Server) ownedEvent(w http.ResponseWriter, r *http.Request, user types.User) (types.Event, bool) {
	id, ok := pathID(r)
	if !ok {
		BadRequest(w, "Invalid event id")
		return types.Event{}, false
	}
	ev, ok := s.Event(id)
	if !ok {
		NotFound(w, "Event")
		return types.Event{}, false
	}
	if ev.CreatedBy != user.ID && user.Role != types.RoleAdmin {
		Forbidden(w)
		return types.Event{}, false
	}
	return ev, true
}

// distanceKm is the great-circle distance between two points.
func distanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
