package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/evently/internal/apitest"
	"github.com/agentstation/evently/pkg/constants"
	"github.com/agentstation/evently/pkg/errors"
	"github.com/agentstation/evently/pkg/persistence"
	"github.com/agentstation/evently/pkg/types"
)

func testConfig(t *testing.T, srv *apitest.Server) *Config {
	t.Helper()
	return &Config{
		Format:       "table",
		Quiet:        true,
		APIURL:       srv.URL(),
		Timeout:      5 * time.Second,
		StateDir:     t.TempDir(),
		StateBackend: BackendMemory,
		LogFormat:    "json",
		LogOutput:    "stderr",
	}
}

// run executes one CLI invocation against srv, the way main does, and
// returns what it printed.
func run(t *testing.T, srv *apitest.Server, state persistence.Store, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	nop := zerolog.Nop()
	a, err := New("1.2.3", "abc123", "2025-01-01", "test",
		WithConfig(testConfig(t, srv)),
		WithLogger(&nop),
		WithOutput(&out, &out),
		WithStateStore(state),
	)
	require.NoError(t, err)

	runErr := a.Execute(context.Background(), args)
	require.NoError(t, a.Shutdown(context.Background()))
	return out.String(), runErr
}

func signIn(t *testing.T, srv *apitest.Server, state persistence.Store, role types.Role) types.User {
	t.Helper()
	u := srv.AddUser(types.User{Name: "Ada", Email: string(role) + "@evently.test", Role: role}, "pw")
	_, err := run(t, srv, state, "auth", "login", "--email", u.Email, "--password", "pw")
	require.NoError(t, err)
	return u
}

func TestNew_InvalidConfig(t *testing.T) {
	srv := apitest.New(t)
	cfg := testConfig(t, srv)
	cfg.StateBackend = "s3"

	_, err := New("dev", "", "", "", WithConfig(cfg))
	assert.Error(t, err)
}

func TestEventsList(t *testing.T) {
	srv := apitest.New(t)
	srv.AddEvent(types.Event{Title: "Go Night", Geo: types.Geo{City: "Berlin"}})
	srv.AddEvent(types.Event{Title: "Jazz Brunch", Geo: types.Geo{City: "Paris"}})

	t.Run("json", func(t *testing.T) {
		out, err := run(t, srv, persistence.NewMemoryStore(), "events", "list", "-o", "json")
		require.NoError(t, err)

		var events []types.Event
		require.NoError(t, json.Unmarshal([]byte(out), &events))
		titles := make([]string, 0, len(events))
		for _, ev := range events {
			titles = append(titles, ev.Title)
		}
		assert.ElementsMatch(t, []string{"Go Night", "Jazz Brunch"}, titles)
	})

	t.Run("table", func(t *testing.T) {
		out, err := run(t, srv, persistence.NewMemoryStore(), "events", "list", "--city", "Berlin")
		require.NoError(t, err)
		assert.Contains(t, out, "Go Night")
		assert.NotContains(t, out, "Jazz Brunch")
		assert.Contains(t, out, "Page 1 of")
	})

	t.Run("bad format", func(t *testing.T) {
		_, err := run(t, srv, persistence.NewMemoryStore(), "events", "list", "-o", "xml")
		assert.Error(t, err)
	})
}

func TestSessionSurvivesRuns(t *testing.T) {
	srv := apitest.New(t)
	state := persistence.NewMemoryStore()
	u := signIn(t, srv, state, types.RoleUser)

	ok, err := state.Load(context.Background(), constants.SessionStateKey, &[]sessionCookie{})
	require.NoError(t, err)
	require.True(t, ok, "login stores the session")

	out, err := run(t, srv, state, "auth", "whoami", "-o", "json")
	require.NoError(t, err)
	var got types.User
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, u.Email, got.Email)

	_, err = run(t, srv, state, "auth", "logout")
	require.NoError(t, err)

	ok, err = state.Load(context.Background(), constants.SessionStateKey, &[]sessionCookie{})
	require.NoError(t, err)
	assert.False(t, ok, "logout removes the session")

	_, err = run(t, srv, state, "auth", "whoami")
	assert.True(t, errors.IsUnauthenticated(err))
}

func TestLoginWrongPassword(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser(types.User{Name: "Ada", Email: "ada@evently.test"}, "pw")

	_, err := run(t, srv, persistence.NewMemoryStore(), "auth", "login", "--email", "ada@evently.test", "--password", "nope")
	assert.Error(t, err)
}

func TestBookings(t *testing.T) {
	srv := apitest.New(t)
	state := persistence.NewMemoryStore()
	u := signIn(t, srv, state, types.RoleUser)
	ev := srv.AddEvent(types.Event{Title: "Book fair"})

	out, err := run(t, srv, state, "events", "book", strconv.Itoa(ev.ID), "-o", "json")
	require.NoError(t, err)
	var reg types.Registration
	require.NoError(t, json.Unmarshal([]byte(out), &reg))
	assert.Equal(t, u.ID, reg.UserID)

	out, err = run(t, srv, state, "bookings", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Book fair")

	ticket := filepath.Join(t.TempDir(), "ticket.png")
	_, err = run(t, srv, state, "bookings", "ticket", strconv.Itoa(reg.ID), "--out", ticket)
	require.NoError(t, err)
	png, err := os.ReadFile(ticket)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])

	out, err = run(t, srv, state, "bookings", "cancel", strconv.Itoa(reg.ID))
	require.NoError(t, err)
	assert.Contains(t, out, "cancelled")
	assert.Empty(t, srv.Bookings())

	_, err = run(t, srv, state, "bookings", "cancel", "abc")
	assert.True(t, errors.IsValidationError(err))
}

func TestOrganizerRequests(t *testing.T) {
	srv := apitest.New(t)
	userState := persistence.NewMemoryStore()
	signIn(t, srv, userState, types.RoleUser)

	resume := filepath.Join(t.TempDir(), "cv.pdf")
	require.NoError(t, os.WriteFile(resume, []byte("%PDF-1.4"), 0o600))
	out, err := run(t, srv, userState, "requests", "submit", "--overview", "I run the Go meetup", "--resume", resume, "-o", "json")
	require.NoError(t, err)
	var req types.OrganizerRequest
	require.NoError(t, json.Unmarshal([]byte(out), &req))
	assert.Equal(t, types.RequestPending, req.Status)

	adminState := persistence.NewMemoryStore()
	signIn(t, srv, adminState, types.RoleAdmin)

	out, err = run(t, srv, adminState, "requests", "list", "--pending", "-o", "json")
	require.NoError(t, err)
	var pending []types.OrganizerRequest
	require.NoError(t, json.Unmarshal([]byte(out), &pending))
	require.Len(t, pending, 1)

	out, err = run(t, srv, adminState, "requests", "approve", strconv.Itoa(req.ID), "-o", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &req))
	assert.Equal(t, types.RequestAccepted, req.Status)
}

func TestWatch(t *testing.T) {
	srv := apitest.New(t)
	state := persistence.NewMemoryStore()
	signIn(t, srv, state, types.RoleUser)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		tick := time.NewTicker(50 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tick.C:
				if srv.SocketClients() > 0 {
					srv.Broadcast("event:created", map[string]int{"id": 42})
				}
			}
		}
	}()

	out, err := run(t, srv, state, "watch", "--for", "600ms", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"event":"event:created"`)
	assert.Contains(t, out, `"data":{"id":42}`)
}

func TestWatchNeedsSession(t *testing.T) {
	srv := apitest.New(t)
	_, err := run(t, srv, persistence.NewMemoryStore(), "watch", "--for", "50ms")
	assert.True(t, errors.IsUnauthenticated(err))
}

func TestVersionCommand(t *testing.T) {
	srv := apitest.New(t)
	out, err := run(t, srv, persistence.NewMemoryStore(), "version")
	require.NoError(t, err)
	assert.Equal(t, "evently 1.2.3\n", out)
}
