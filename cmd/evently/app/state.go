package app

import (
	"context"
	"net/http"
	"path/filepath"

	"github.com/agentstation/evently"
	"github.com/agentstation/evently/pkg/constants"
	"github.com/agentstation/evently/pkg/errors"
	"github.com/agentstation/evently/pkg/persistence"
)

// sqliteFile is the database file of the sqlite backend inside StateDir.
const sqliteFile = "state.db"

// sessionCookie is the persisted form of a session cookie. The jar only
// reports names and values, so nothing else is kept.
type sessionCookie struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// stateStore opens the configured backend once. It must be called with mu held.
func (a *App) stateStore(ctx context.Context) (persistence.Store, error) {
	if a.state != nil {
		return a.state, nil
	}

	var (
		store persistence.Store
		err   error
	)
	switch a.config.StateBackend {
	case BackendMemory:
		store = persistence.NewMemoryStore()
	case BackendSQLite:
		store, err = persistence.OpenSQLiteStore(ctx, filepath.Join(a.config.StateDir, sqliteFile))
	default:
		store, err = persistence.NewFileStore(a.config.StateDir)
	}
	if err != nil {
		return nil, errors.WrapResource("open", "state", a.config.StateBackend, err)
	}

	a.logger.Debug().
		Str("backend", a.config.StateBackend).
		Str("dir", a.config.StateDir).
		Msg("Opened state store")
	a.state = store
	return store, nil
}

// restoreSession hands saved session cookies to c. A missing or unreadable
// session just means the user is signed out.
func (a *App) restoreSession(ctx context.Context, c *evently.Client) {
	var saved []sessionCookie
	ok, err := a.state.Load(ctx, constants.SessionStateKey, &saved)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Ignoring unreadable session")
		return
	}
	if !ok || len(saved) == 0 {
		return
	}

	cookies := make([]*http.Cookie, 0, len(saved))
	for _, s := range saved {
		cookies = append(cookies, &http.Cookie{Name: s.Name, Value: s.Value, Path: "/"})
	}
	c.SetCookies(cookies)
}

// saveSession stores the session cookies of c, or removes them once the
// user is signed out.
func (a *App) saveSession(ctx context.Context, store persistence.Store, c *evently.Client) error {
	if store == nil {
		return nil
	}
	if !c.Auth().IsAuthenticated() {
		return store.Delete(ctx, constants.SessionStateKey)
	}

	cookies := c.Cookies()
	saved := make([]sessionCookie, 0, len(cookies))
	for _, ck := range cookies {
		saved = append(saved, sessionCookie{Name: ck.Name, Value: ck.Value})
	}
	if err := store.Save(ctx, constants.SessionStateKey, saved); err != nil {
		return errors.WrapResource("save", "session", constants.SessionStateKey, err)
	}
	return nil
}
