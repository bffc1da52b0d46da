package store

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/agentstation/evently/pkg/api"
	"github.com/agentstation/evently/pkg/errors"
	"github.com/agentstation/evently/pkg/logging"
	"github.com/agentstation/evently/pkg/types"
)

// Phase is the session state of an AuthStore.
type Phase string

// Session phases.
const (
	PhaseAnonymous      Phase = "anonymous"
	PhaseAuthenticating Phase = "authenticating"
	PhaseAuthenticated  Phase = "authenticated"
)

// String returns the string representation of a phase.
func (p Phase) String() string {
	return string(p)
}

// AuthState is the state of an AuthStore.
type AuthState struct {
	User            *types.User
	IsAuthenticated bool
	Phase           Phase
	Loading         bool
	Error           string
	Checked         bool
}

func (st AuthState) authenticated(u types.User) AuthState {
	st.User = &u
	st.IsAuthenticated = true
	st.Phase = PhaseAuthenticated
	return st
}

func (st AuthState) anonymous() AuthState {
	st.User = nil
	st.IsAuthenticated = false
	st.Phase = PhaseAnonymous
	return st
}

func (st AuthState) clone() AuthState {
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

// AuthStore holds the session of the current user.
type AuthStore struct {
	observers

	svc    *api.Auth
	logger *zerolog.Logger
	checks singleflight.Group

	mu    sync.RWMutex
	state AuthState
}

// NewAuthStore creates an anonymous auth store over svc.
func NewAuthStore(svc *api.Auth, opts ...Option) *AuthStore {
	cfg := newConfig(opts)
	return &AuthStore{
		svc:    svc,
		logger: cfg.logger,
		state:  AuthState{Phase: PhaseAnonymous},
	}
}

func (s *AuthStore) update(fn func(AuthState) AuthState) {
	s.mu.Lock()
	s.state = fn(s.state)
	s.mu.Unlock()
	s.notify()
}

func (s *AuthStore) begin() {
	s.update(func(st AuthState) AuthState {
		st.Loading = true
		st.Error = ""
		if !st.IsAuthenticated {
			st.Phase = PhaseAuthenticating
		}
		return st
	})
}

func (s *AuthStore) end() {
	s.update(func(st AuthState) AuthState {
		st.Loading = false
		if st.Phase == PhaseAuthenticating {
			st.Phase = PhaseAnonymous
		}
		return st
	})
}

// CheckAuth asks the server for the current session and reports whether
// one exists. Failure is the expected state of a first visit: the store
// becomes anonymous and no error is recorded. Concurrent calls share one
// request.
func (s *AuthStore) CheckAuth(ctx context.Context) bool {
	v, _, _ := s.checks.Do("check", func() (any, error) {
		s.begin()
		defer s.end()

		user, err := s.svc.Me(ctx)
		if err != nil {
			s.logger.Debug().Str("kind", errors.KindOf(err).String()).Msg("no active session")
			s.update(func(st AuthState) AuthState {
				st = st.anonymous()
				st.Checked = true
				return st
			})
			return false, nil
		}

		s.update(func(st AuthState) AuthState {
			st = st.authenticated(*user)
			st.Checked = true
			return st
		})
		return true, nil
	})
	ok, _ := v.(bool)
	return ok
}

// Login starts a session for creds.
func (s *AuthStore) Login(ctx context.Context, creds types.LoginCredentials) (types.User, error) {
	s.begin()
	defer s.end()

	user, err := s.svc.Login(ctx, creds)
	if err != nil {
		return types.User{}, s.failed("login", err)
	}
	s.update(func(st AuthState) AuthState {
		return st.authenticated(*user)
	})
	logging.FromContext(forUser(ctx, s.logger, user.ID)).Debug().Msg("logged in")
	return *user, nil
}

// Register creates an account and starts its session.
func (s *AuthStore) Register(ctx context.Context, data types.RegisterData) (types.User, error) {
	s.begin()
	defer s.end()

	user, err := s.svc.Register(ctx, data)
	if err != nil {
		return types.User{}, s.failed("register", err)
	}
	s.update(func(st AuthState) AuthState {
		return st.authenticated(*user)
	})
	logging.FromContext(forUser(ctx, s.logger, user.ID)).Debug().Msg("registered")
	return *user, nil
}

// failed records a login or registration failure. The store ends anonymous.
func (s *AuthStore) failed(op string, err error) error {
	ce := classify(s.logger, op, err)
	s.update(func(st AuthState) AuthState {
		st = st.anonymous()
		st.Error = ce.Message
		return st
	})
	return ce
}

// Logout ends the session. Local state is always cleared. Only a server
// error is reported, since the session may then still be live remotely;
// network failures and rejected sessions mean the user is already out.
func (s *AuthStore) Logout(ctx context.Context) error {
	s.update(func(st AuthState) AuthState {
		st.Loading = true
		st.Error = ""
		return st
	})

	err := s.svc.Logout(ctx)

	var ce *errors.ClassifiedError
	if err != nil {
		ce = classify(s.logger, "logout", err)
	}
	s.update(func(st AuthState) AuthState {
		st = st.anonymous()
		st.Loading = false
		if ce != nil && ce.Kind == errors.KindServer {
			st.Error = ce.Message
		}
		return st
	})

	if ce != nil && ce.Kind == errors.KindServer {
		return ce
	}
	return nil
}

// RefreshToken renews the session and reports whether the server handed
// back a user. A failed renewal signs the store out. It never records an
// error.
func (s *AuthStore) RefreshToken(ctx context.Context) bool {
	user, err := s.svc.RefreshToken(ctx)
	if err != nil || user == nil || user.ID == 0 {
		if err != nil {
			s.logger.Debug().Str("kind", errors.KindOf(err).String()).Msg("session refresh failed")
		}
		s.update(func(st AuthState) AuthState {
			return st.anonymous()
		})
		return false
	}
	s.update(func(st AuthState) AuthState {
		return st.authenticated(*user)
	})
	return true
}

// UpdateProfile changes the current user's name or password and holds the
// server's copy of the user.
func (s *AuthStore) UpdateProfile(ctx context.Context, data types.UpdateUserData) (types.User, error) {
	s.update(func(st AuthState) AuthState {
		st.Loading = true
		st.Error = ""
		return st
	})
	defer s.update(func(st AuthState) AuthState {
		st.Loading = false
		return st
	})

	user, err := s.svc.UpdateProfile(ctx, data)
	if err != nil {
		ce := classify(s.logger, "update_profile", err)
		s.update(func(st AuthState) AuthState {
			st.Error = ce.Message
			return st
		})
		return types.User{}, ce
	}
	s.update(func(st AuthState) AuthState {
		return st.authenticated(*user)
	})
	logging.FromContext(forUser(ctx, s.logger, user.ID)).Debug().Msg("profile updated")
	return *user, nil
}

// ClearAuth forgets the session locally, e.g. once it expired server side.
func (s *AuthStore) ClearAuth() {
	s.update(func(st AuthState) AuthState {
		st = st.anonymous()
		st.Error = ""
		return st
	})
}

// ClearError forgets the last failure.
func (s *AuthStore) ClearError() {
	s.update(func(st AuthState) AuthState {
		st.Error = ""
		return st
	})
}

// User returns the current user.
func (s *AuthStore) User() (types.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.User == nil {
		return types.User{}, false
	}
	return *s.state.User, true
}

// IsAuthenticated reports whether a session is held.
func (s *AuthStore) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsAuthenticated
}

// Phase returns the session phase.
func (s *AuthStore) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Phase
}

// IsLoading reports whether an auth action is in flight.
func (s *AuthStore) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Loading
}

// Err returns the user message of the last failure, or "".
func (s *AuthStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Error
}

// State returns a copy of the whole state.
func (s *AuthStore) State() AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}
