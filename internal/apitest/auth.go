package apitest

import (
	"net/http"
	"strings"

	"github.com/agentstation/utc"

	"github.com/agentstation/evently/pkg/types"
)

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	b, err := readBody(r)
	if err != nil {
		BadRequest(w, "Malformed body")
		return
	}
	email := strings.ToLower(b.fields["email"])

	s.mu.Lock()
	password, known := s.passwords[email]
	var user types.User
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			user = u
		}
	}
	s.mu.Unlock()

	if !known || password != b.fields["password"] {
		Fail(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	s.startSession(w, user.ID)
	OK(w, user)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	b, err := readBody(r)
	if err != nil {
		BadRequest(w, "Malformed body")
		return
	}
	invalid := map[string][]string{}
	for _, k := range []string{"name", "email", "password"} {
		if b.fields[k] == "" {
			invalid[k] = []string{k + " is required"}
		}
	}
	if len(invalid) > 0 {
		Invalid(w, invalid)
		return
	}

	email := strings.ToLower(b.fields["email"])
	s.mu.Lock()
	_, taken := s.passwords[email]
	s.mu.Unlock()
	if taken {
		Fail(w, http.StatusConflict, "Email already registered")
		return
	}

	now := utc.Now()
	u := types.User{Name: b.fields["name"], Email: email, CreatedAt: now, UpdatedAt: now}
	if imgs := b.files["profileImage"]; len(imgs) > 0 {
		u.ProfileImage = types.ImageURL(CDN + imgs[0])
	}
	u = s.AddUser(u, b.fields["password"])
	s.startSession(w, u.ID)
	Created(w, u)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request, user types.User) {
	b, err := readBody(r)
	if err != nil {
		BadRequest(w, "Malformed body")
		return
	}

	s.mu.Lock()
	if name := b.fields["name"]; name != "" {
		user.Name = name
	}
	if pw := b.fields["password"]; pw != "" {
		s.passwords[strings.ToLower(user.Email)] = pw
	}
	user.UpdatedAt = utc.Now()
	s.users[user.ID] = user
	s.mu.Unlock()

	OK(w, user)
}

func (s *Server) me(w http.ResponseWriter, _ *http.Request, user types.User) {
	OK(w, user)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if c, err := r.Cookie(AccessCookie); err == nil {
		delete(s.access, c.Value)
	}
	if c, err := r.Cookie(RefreshCookie); err == nil {
		delete(s.refresh, c.Value)
	}
	s.mu.Unlock()

	for _, name := range []string{AccessCookie, RefreshCookie} {
		http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1})
	}
	OK(w, nil)
}

func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(RefreshCookie)
	if err != nil {
		Unauthorized(w)
		return
	}

	s.mu.Lock()
	id, ok := s.refresh[c.Value]
	user := s.users[id]
	if ok {
		delete(s.refresh, c.Value)
	}
	s.mu.Unlock()

	if !ok {
		Unauthorized(w)
		return
	}
	s.startSession(w, id)
	OK(w, user)
}
