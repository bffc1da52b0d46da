package api

import (
	"context"
	"net/http"

	"github.com/agentstation/evently/internal/transport"
	"github.com/agentstation/evently/pkg/types"
)

// Auth is the session and account service.
type Auth struct {
	r Requester
}

// Login starts a session. The session cookies land in the transport's jar.
func (s *Auth) Login(ctx context.Context, creds types.LoginCredentials) (*types.User, error) {
	var user types.User
	if err := s.r.Do(ctx, transport.Request{Method: http.MethodPost, Path: "/auth/login", Body: creds}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Register creates an account. A profile image switches the request to multipart.
func (s *Auth) Register(ctx context.Context, data types.RegisterData) (*types.User, error) {
	req := transport.Request{Method: http.MethodPost, Path: "/auth/register", Body: data}
	if data.ProfileImage != nil {
		req.Body = nil
		req.Form = transport.NewForm(data.Fields()).AddFile("profileImage", *data.ProfileImage)
	}

	var user types.User
	if err := s.r.Do(ctx, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile changes the current user's name or password.
func (s *Auth) UpdateProfile(ctx context.Context, data types.UpdateUserData) (*types.User, error) {
	var user types.User
	if err := s.r.Do(ctx, transport.Request{Method: http.MethodPut, Path: "/auth/update", Body: data}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Me returns the user of the current session.
func (s *Auth) Me(ctx context.Context) (*types.User, error) {
	var user types.User
	if err := s.r.Do(ctx, transport.Request{Method: http.MethodGet, Path: "/auth/me"}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout ends the session on the server.
func (s *Auth) Logout(ctx context.Context) error {
	return s.r.Do(ctx, transport.Request{Method: http.MethodPost, Path: "/auth/logout"}, nil)
}

// RefreshToken renews the session cookies. The server may return the user.
func (s *Auth) RefreshToken(ctx context.Context) (*types.User, error) {
	var user types.User
	if err := s.r.Do(ctx, transport.Request{Method: http.MethodPost, Path: transport.RefreshPath}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
