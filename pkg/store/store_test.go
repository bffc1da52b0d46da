package store

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/evently/internal/apitest"
	"github.com/agentstation/evently/internal/transport"
	"github.com/agentstation/evently/pkg/api"
	"github.com/agentstation/evently/pkg/types"
)

// requesterFunc scripts the API in tests that need control over timing.
type requesterFunc func(ctx context.Context, req transport.Request, out any) error

func (f requesterFunc) Do(ctx context.Context, req transport.Request, out any) error {
	return f(ctx, req, out)
}

type fixture struct {
	srv *apitest.Server
	svc *api.Services
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	srv := apitest.New(t)
	c, err := transport.New(srv.URL(), transport.WithLogger(nopLogger()))
	require.NoError(t, err)
	return fixture{srv: srv, svc: api.New(c)}
}

func (f fixture) loginAs(t *testing.T, role types.Role) types.User {
	t.Helper()
	u := f.srv.AddUser(types.User{Name: "Sam " + string(role), Email: string(role) + "@evently.test", Role: role}, "pw")
	_, err := f.svc.Auth.Login(context.Background(), types.LoginCredentials{Email: u.Email, Password: "pw"})
	require.NoError(t, err)
	return u
}

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func quiet() Option {
	return WithLogger(nopLogger())
}

// changes counts OnChange notifications.
func changes(o interface{ OnChange(func()) }) *atomic.Int32 {
	var n atomic.Int32
	o.OnChange(func() { n.Add(1) })
	return &n
}

func eventsOver(r requesterFunc) *api.Events {
	return api.New(r).Events
}
