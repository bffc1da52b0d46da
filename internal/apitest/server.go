// Package apitest runs an in-memory booking API for tests. It speaks the
// same envelope, cookie session and multipart conventions as the real
// service, and lets a test seed fixtures, count calls and inject failures.
package apitest

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/agentstation/evently/pkg/types"
)

// Prefix is the path the API is mounted under.
const Prefix = "/api/v1"

// SocketPath is the push channel endpoint.
const SocketPath = "/socket"

// Session cookie names.
const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

// Server is a fake booking API.
type Server struct {
	srv *httptest.Server
	hub *hub

	mu        sync.Mutex
	nextID    int
	users     map[int]types.User
	passwords map[string]string
	events    map[int]types.Event
	bookings  map[int]types.Registration
	requests  map[int]types.OrganizerRequest
	access    map[string]int
	refresh   map[string]int
	calls     map[string]int
	failures  map[string]int
	delays    map[string]time.Duration
}

// New starts a fake API that is shut down when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		nextID:    100,
		users:     map[int]types.User{},
		passwords: map[string]string{},
		events:    map[int]types.Event{},
		bookings:  map[int]types.Registration{},
		requests:  map[int]types.OrganizerRequest{},
		access:    map[string]int{},
		refresh:   map[string]int{},
		calls:     map[string]int{},
		failures:  map[string]int{},
		delays:    map[string]time.Duration{},
	}
	s.hub = newHub()
	s.srv = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// URL returns the API base URL.
func (s *Server) URL() string {
	return s.srv.URL + Prefix
}

// SocketURL returns the push channel URL.
func (s *Server) SocketURL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http") + SocketPath
}

// Close disconnects push clients and stops the server.
func (s *Server) Close() {
	s.hub.closeAll()
	s.srv.Close()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.track)

	r.Route(Prefix, func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.login)
			r.Post("/register", s.register)
			r.Put("/update", s.authed(s.updateProfile))
			r.Get("/me", s.authed(s.me))
			r.Post("/logout", s.logout)
			r.Post("/refresh-token", s.refreshToken)
		})
		r.Route("/events", func(r chi.Router) {
			r.Get("/", s.listEvents)
			r.Post("/", s.authed(s.createEvent))
			r.Get("/search/nearby", s.nearbyEvents)
			r.Get("/get/my-events", s.authed(s.myEvents))
			r.Get("/get/bookings/{id}", s.authed(s.eventBookings))
			r.Get("/{id}", s.getEvent)
			r.Put("/{id}", s.authed(s.updateEvent))
			r.Delete("/{id}", s.authed(s.deleteEvent))
			r.Post("/{id}/book", s.authed(s.bookEvent))
		})
		r.Route("/booking", func(r chi.Router) {
			r.Get("/get/my-bookings", s.authed(s.myBookings))
			r.Get("/{id}", s.authed(s.getBooking))
			r.Delete("/{id}", s.authed(s.cancelBooking))
		})
		r.Route("/organizer-request", func(r chi.Router) {
			r.Post("/create", s.authed(s.createRequest))
			r.Get("/get", s.authed(s.listRequests))
			r.Get("/get/{id}", s.authed(s.getRequest))
			r.Put("/update/{id}", s.authed(s.updateRequest))
		})
	})
	r.Get(SocketPath, s.serveSocket)
	return r
}

// track counts calls and applies injected delays and failures.
func (s *Server) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + strings.TrimPrefix(r.URL.Path, Prefix)

		s.mu.Lock()
		s.calls[key]++
		status := s.failures[key]
		delay := s.delays[key]
		s.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if status != 0 {
			Fail(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Calls returns how many times "METHOD /path" was requested. Paths are
// relative to Prefix, e.g. "GET /events/5".
func (s *Server) Calls(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

// TotalCalls returns the number of requests served.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// Fail makes every request to key answer with status until Recover.
func (s *Server) Fail(key string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[key] = status
}

// Recover removes an injected failure.
func (s *Server) Recover(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, key)
}

// Delay holds every request to key for d before answering.
func (s *Server) Delay(key string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[key] = d
}

// ExpireSessions invalidates every access token. Refresh tokens stay valid.
func (s *Server) ExpireSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = map[string]int{}
}

// RevokeSessions invalidates every access and refresh token.
func (s *Server) RevokeSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = map[string]int{}
	s.refresh = map[string]int{}
}

// AddUser seeds an account. A zero id is assigned.
func (s *Server) AddUser(u types.User, password string) types.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = s.id()
	}
	if u.Role == "" {
		u.Role = types.RoleUser
	}
	s.users[u.ID] = u
	s.passwords[strings.ToLower(u.Email)] = password
	return u
}

// AddEvent seeds an event. A zero id is assigned.
func (s *Server) AddEvent(e types.Event) types.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == 0 {
		e.ID = s.id()
	}
	s.events[e.ID] = e
	return e
}

// AddBooking seeds a registration. A zero id is assigned.
func (s *Server) AddBooking(r types.Registration) types.Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		r.ID = s.id()
	}
	s.bookings[r.ID] = r
	return r
}

// AddRequest seeds an organizer request. A zero id is assigned.
func (s *Server) AddRequest(r types.OrganizerRequest) types.OrganizerRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		r.ID = s.id()
	}
	if r.Status == "" {
		r.Status = types.RequestPending
	}
	s.requests[r.ID] = r
	return r
}

// Event returns the server's copy of an event.
func (s *Server) Event(id int) (types.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	return e, ok
}

// User returns the server's copy of an account.
func (s *Server) User(id int) (types.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	return u, ok
}

// Bookings returns the server's registrations ordered by id.
func (s *Server) Bookings() []types.Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedValues(s.bookings)
}

// id must be called with mu held.
func (s *Server) id() int {
	s.nextID++
	return s.nextID
}

// startSession issues fresh session cookies for u. mu must not be held.
func (s *Server) startSession(w http.ResponseWriter, userID int) {
	access, refresh := uuid.NewString(), uuid.NewString()
	s.mu.Lock()
	s.access[access] = userID
	s.refresh[refresh] = userID
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: AccessCookie, Value: access, Path: "/", HttpOnly: true})
	http.SetCookie(w, &http.Cookie{Name: RefreshCookie, Value: refresh, Path: "/", HttpOnly: true})
}

// currentUser resolves the session of r from its access cookie or bearer token.
func (s *Server) currentUser(r *http.Request) (types.User, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if c, err := r.Cookie(AccessCookie); err == nil {
		token = c.Value
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.access[token]
	if !ok {
		return types.User{}, false
	}
	u, ok := s.users[id]
	return u, ok
}

type authedHandler func(w http.ResponseWriter, r *http.Request, user types.User)

func (s *Server) authed(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.currentUser(r)
		if !ok {
			Unauthorized(w)
			return
		}
		h(w, r, user)
	}
}

func summary(u types.User) *types.UserSummary {
	return &types.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, ProfileImage: u.ProfileImage}
}

func sortedValues[T types.Identifiable](m map[int]T) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GetID() < out[j].GetID() })
	return out
}
