package evently

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/evently/internal/apitest"
	"github.com/agentstation/evently/pkg/errors"
	"github.com/agentstation/evently/pkg/persistence"
	"github.com/agentstation/evently/pkg/types"
)

const wait = 2 * time.Second

func testClient(t *testing.T, srv *apitest.Server, opts ...Option) *Client {
	t.Helper()
	nop := zerolog.Nop()
	opts = append([]Option{
		WithBaseURL(srv.URL()),
		WithLogger(&nop),
		WithFilterDebounce(10 * time.Millisecond),
	}, opts...)
	c, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func login(t *testing.T, c *Client, srv *apitest.Server, role types.Role) types.User {
	t.Helper()
	u := srv.AddUser(types.User{Name: "Kim", Email: string(role) + "@evently.test", Role: role}, "pw")
	_, err := c.Auth().Login(context.Background(), types.LoginCredentials{Email: u.Email, Password: "pw"})
	require.NoError(t, err)
	return u
}

func TestNew(t *testing.T) {
	_, err := New(WithBaseURL(""))
	assert.True(t, errors.IsValidationError(err))

	_, err = New(WithTimeout(0))
	assert.True(t, errors.IsValidationError(err))

	c, err := New(WithBaseURL("https://api.evently.test/api/v1"))
	require.NoError(t, err)
	require.NotNil(t, c.Socket())
	assert.Equal(t, "wss://api.evently.test/socket", c.Socket().URL())

	c, err = New(WithBaseURL("http://localhost:3000/api/v1"), WithSocketURL("ws://push.evently.test/ws"))
	require.NoError(t, err)
	assert.Equal(t, "ws://push.evently.test/ws", c.Socket().URL())

	c, err = New(WithSocketDisabled())
	require.NoError(t, err)
	assert.Nil(t, c.Socket())
}

func TestClient_StartAnonymous(t *testing.T) {
	srv := apitest.New(t)
	c := testClient(t, srv)

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Start(context.Background()), "starting twice is a no-op")

	assert.False(t, c.Auth().IsAuthenticated())
	assert.Equal(t, 1, srv.Calls("GET /auth/me"))
	assert.False(t, c.Socket().Connected())
}

func TestClient_SocketFollowsSession(t *testing.T) {
	srv := apitest.New(t)
	c := testClient(t, srv)
	require.NoError(t, c.Start(context.Background()))

	login(t, c, srv, types.RoleUser)
	require.Eventually(t, func() bool { return srv.SocketClients() == 1 }, wait, 5*time.Millisecond)
	assert.True(t, c.Socket().Connected())

	require.NoError(t, c.Auth().Logout(context.Background()))
	assert.False(t, c.Socket().Connected(), "logout returns with the channel closed")
	require.Eventually(t, func() bool { return srv.SocketClients() == 0 }, wait, 5*time.Millisecond)
}

func TestClient_EventHooks(t *testing.T) {
	srv := apitest.New(t)
	c := testClient(t, srv, WithSocketDisabled())
	org := login(t, c, srv, types.RoleOrganizer)

	first := srv.AddEvent(types.Event{Title: "Go meetup", CreatedBy: org.ID})
	second := srv.AddEvent(types.Event{Title: "Rust meetup", CreatedBy: org.ID})

	var (
		mu      sync.Mutex
		added   []int
		updated []string
		removed []int
	)
	c.OnEventAdded(func(ev types.Event) {
		mu.Lock()
		defer mu.Unlock()
		added = append(added, ev.ID)
	})
	c.OnEventUpdated(func(old, ev types.Event) {
		mu.Lock()
		defer mu.Unlock()
		updated = append(updated, old.Title+" -> "+ev.Title)
	})
	c.OnEventRemoved(func(ev types.Event) {
		mu.Lock()
		defer mu.Unlock()
		removed = append(removed, ev.ID)
	})

	ctx := context.Background()
	_, err := c.Events().FetchEvents(ctx, types.EventQuery{})
	require.NoError(t, err)

	title := "Go meetup #2"
	_, err = c.Events().UpdateEvent(ctx, first.ID, types.UpdateEventData{Title: &title})
	require.NoError(t, err)

	require.NoError(t, c.Events().DeleteEvent(ctx, second.ID))

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []int{first.ID, second.ID}, added)
	assert.Equal(t, []string{"Go meetup -> Go meetup #2"}, updated)
	assert.Equal(t, []int{second.ID}, removed)
}

func TestClient_SessionChange(t *testing.T) {
	srv := apitest.New(t)
	c := testClient(t, srv, WithSocketDisabled())

	var seen []int
	c.OnSessionChange(func(u *types.User) {
		if u == nil {
			seen = append(seen, 0)
			return
		}
		seen = append(seen, u.ID)
	})

	u := login(t, c, srv, types.RoleUser)
	ev := srv.AddEvent(types.Event{Title: "Jazz night"})
	srv.AddBooking(types.Registration{UserID: u.ID, EventID: ev.ID})

	_, err := c.Bookings().FetchMyBookings(context.Background(), types.RegistrationQuery{})
	require.NoError(t, err)
	require.Len(t, c.Bookings().MyBookings(), 1)

	require.NoError(t, c.Auth().Logout(context.Background()))

	assert.Equal(t, []int{u.ID, 0}, seen)
	assert.Empty(t, c.Bookings().MyBookings(), "signing out drops the user's bookings")
}

func TestClient_SessionExpired(t *testing.T) {
	srv := apitest.New(t)
	c := testClient(t, srv, WithSocketDisabled())
	login(t, c, srv, types.RoleOrganizer)

	srv.RevokeSessions()
	_, err := c.Events().FetchMyEvents(context.Background(), types.EventQuery{})
	require.Error(t, err)

	assert.False(t, c.Auth().IsAuthenticated())
	_, ok := c.Auth().User()
	assert.False(t, ok)
}

func TestClient_Persistence(t *testing.T) {
	srv := apitest.New(t)
	ev := srv.AddEvent(types.Event{Title: "Book fair"})
	store, err := persistence.NewFileStore(t.TempDir())
	require.NoError(t, err)

	c := testClient(t, srv, WithSocketDisabled(), WithPersistence(store))
	require.NoError(t, c.Start(context.Background()))
	login(t, c, srv, types.RoleUser)
	_, err = c.Events().FetchEvents(context.Background(), types.EventQuery{City: ""})
	require.NoError(t, err)

	saved := func(key string) bool {
		_, err := os.Stat(store.Path(key))
		return err == nil
	}
	require.Eventually(t, func() bool { return saved("auth") && saved("events") }, wait, 5*time.Millisecond)
	cookies := c.Cookies()
	require.NoError(t, c.Close(context.Background()))

	t.Run("session carried over", func(t *testing.T) {
		next := testClient(t, srv, WithSocketDisabled(), WithPersistence(store))
		next.SetCookies(cookies)
		require.NoError(t, next.Start(context.Background()))

		assert.True(t, next.Auth().IsAuthenticated())
		got, ok := next.Events().Event(ev.ID)
		require.True(t, ok)
		assert.Equal(t, "Book fair", got.Title)
	})

	t.Run("stale session dropped", func(t *testing.T) {
		next := testClient(t, srv, WithSocketDisabled(), WithPersistence(store))
		require.NoError(t, next.Start(context.Background()))

		assert.False(t, next.Auth().IsAuthenticated())
		_, ok := next.Events().Event(ev.ID)
		assert.True(t, ok, "cached events survive without a session")
	})
}

func TestClient_AutoRefresh(t *testing.T) {
	srv := apitest.New(t)
	c := testClient(t, srv, WithSocketDisabled(), WithAutoRefreshInterval(20*time.Millisecond))

	require.NoError(t, c.AutoRefreshOn())
	require.Eventually(t, func() bool { return srv.Calls("GET /events") >= 2 }, wait, 5*time.Millisecond)

	require.NoError(t, c.AutoRefreshOff())
	require.NoError(t, c.AutoRefreshOff(), "stopping twice is harmless")
	time.Sleep(50 * time.Millisecond)
	n := srv.Calls("GET /events")
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, n, srv.Calls("GET /events"))

	bad, err := New(WithAutoRefreshInterval(0))
	require.NoError(t, err)
	assert.True(t, errors.IsValidationError(bad.AutoRefreshOn()))
}

func TestClient_Close(t *testing.T) {
	srv := apitest.New(t)
	c := testClient(t, srv)
	require.NoError(t, c.Start(context.Background()))
	login(t, c, srv, types.RoleUser)
	require.Eventually(t, func() bool { return srv.SocketClients() == 1 }, wait, 5*time.Millisecond)

	require.NoError(t, c.Close(context.Background()))
	require.NoError(t, c.Close(context.Background()))

	assert.False(t, c.Socket().Connected())
	assert.Error(t, c.Start(context.Background()))
	assert.Error(t, c.AutoRefreshOn())
}
