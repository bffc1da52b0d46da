package socket

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/evently/internal/apitest"
	"github.com/agentstation/evently/internal/transport"
	"github.com/agentstation/evently/pkg/api"
	"github.com/agentstation/evently/pkg/errors"
	"github.com/agentstation/evently/pkg/types"
)

const wait = 2 * time.Second

func setup(t *testing.T, loggedIn bool) (*apitest.Server, *Conn) {
	t.Helper()
	nop := zerolog.Nop()
	srv := apitest.New(t)
	c, err := transport.New(srv.URL(), transport.WithLogger(&nop))
	require.NoError(t, err)

	if loggedIn {
		srv.AddUser(types.User{Name: "Ada", Email: "ada@evently.test"}, "pw")
		_, err := api.New(c).Auth.Login(context.Background(), types.LoginCredentials{Email: "ada@evently.test", Password: "pw"})
		require.NoError(t, err)
	}

	conn, err := New(srv.SocketURL(), WithJar(c.Jar()), WithLogger(&nop))
	require.NoError(t, err)
	t.Cleanup(conn.Disconnect)
	return srv, conn
}

// recv collects the data of event on a channel.
func recv(c *Conn, event string) <-chan json.RawMessage {
	ch := make(chan json.RawMessage, 8)
	c.On(event, func(data json.RawMessage) { ch <- data })
	return ch
}

func next(t *testing.T, ch <-chan json.RawMessage) json.RawMessage {
	t.Helper()
	select {
	case data := <-ch:
		return data
	case <-time.After(wait):
		t.Fatal("timed out waiting for socket event")
		return nil
	}
}

func TestNew(t *testing.T) {
	c, err := New("http://localhost:3000/socket")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:3000/socket", c.URL())
	assert.NotEmpty(t, c.ID())
	assert.False(t, c.Connected())

	c, err = New("https://api.evently.test/socket")
	require.NoError(t, err)
	assert.Equal(t, "wss://api.evently.test/socket", c.URL())

	_, err = New("ftp://example.com")
	assert.True(t, errors.IsValidationError(err))
}

func TestConn_RejectedWithoutSession(t *testing.T) {
	_, c := setup(t, false)
	failures := recv(c, EventConnectError)
	connects := recv(c, EventConnect)

	err := c.Connect(context.Background())

	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, string(next(t, failures)), "message")
	assert.False(t, c.Connected())
	assert.Empty(t, connects)
}

func TestConn_ServerEvents(t *testing.T) {
	srv, c := setup(t, true)
	connects := recv(c, EventConnect)
	booked := recv(c, "event:booked")

	require.NoError(t, c.Connect(context.Background()))
	next(t, connects)
	assert.True(t, c.Connected())
	require.Eventually(t, func() bool { return srv.SocketClients() == 1 }, wait, 5*time.Millisecond)

	require.NoError(t, c.Connect(context.Background()), "connecting twice is a no-op")
	assert.Empty(t, connects)

	srv.Broadcast("event:booked", map[string]int{"eventId": 12})

	var payload struct {
		EventID int `json:"eventId"`
	}
	require.NoError(t, json.Unmarshal(next(t, booked), &payload))
	assert.Equal(t, 12, payload.EventID)
}

func TestConn_Emit(t *testing.T) {
	srv, c := setup(t, true)
	pong := recv(c, "pong")

	assert.ErrorIs(t, c.Emit("ping", nil), ErrNotConnected)

	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Emit("ping", map[string]string{"from": "test"}))

	next(t, pong)
	frames := srv.Received()
	require.Len(t, frames, 1)
	assert.Equal(t, "ping", frames[0].Event)
	assert.JSONEq(t, `{"from":"test"}`, string(frames[0].Data))
}

func TestConn_Disconnect(t *testing.T) {
	srv, c := setup(t, true)
	gone := recv(c, EventDisconnect)
	require.NoError(t, c.Connect(context.Background()))
	require.Eventually(t, func() bool { return srv.SocketClients() == 1 }, wait, 5*time.Millisecond)

	c.Disconnect()

	assert.False(t, c.Connected(), "disconnected as soon as Disconnect returns")
	assert.Contains(t, string(next(t, gone)), "client disconnect")
	assert.ErrorIs(t, c.Emit("ping", nil), ErrNotConnected)
	require.Eventually(t, func() bool { return srv.SocketClients() == 0 }, wait, 5*time.Millisecond)

	c.Disconnect()
	assert.Empty(t, gone, "a second disconnect raises nothing")

	require.NoError(t, c.Connect(context.Background()), "a closed connection can reopen")
	assert.True(t, c.Connected())
}

func TestConn_DisconnectWhileDialing(t *testing.T) {
	srv, c := setup(t, true)
	connects := recv(c, EventConnect)
	srv.Delay("GET "+apitest.SocketPath, 300*time.Millisecond)

	dialed := make(chan error, 1)
	go func() { dialed <- c.Connect(context.Background()) }()
	require.Eventually(t, func() bool { return srv.Calls("GET "+apitest.SocketPath) == 1 }, wait, 5*time.Millisecond)

	start := time.Now()
	assert.False(t, c.Connected())
	c.Disconnect()
	assert.Less(t, time.Since(start), 100*time.Millisecond, "the dial does not hold the connection lock")

	select {
	case err := <-dialed:
		require.NoError(t, err)
	case <-time.After(wait):
		t.Fatal("connect never returned")
	}
	assert.False(t, c.Connected(), "an abandoned dial is not installed")
	assert.Empty(t, connects)
	require.Eventually(t, func() bool { return srv.SocketClients() == 0 }, wait, 5*time.Millisecond)
}

func TestConn_ServerGoesAway(t *testing.T) {
	srv, c := setup(t, true)
	gone := recv(c, EventDisconnect)
	require.NoError(t, c.Connect(context.Background()))
	require.Eventually(t, func() bool { return srv.SocketClients() == 1 }, wait, 5*time.Millisecond)

	srv.Close()

	next(t, gone)
	assert.False(t, c.Connected())
}

func TestConn_Off(t *testing.T) {
	srv, c := setup(t, true)
	hits := recv(c, "organizer-request:updated")
	marker := recv(c, "marker")
	require.NoError(t, c.Connect(context.Background()))
	require.Eventually(t, func() bool { return srv.SocketClients() == 1 }, wait, 5*time.Millisecond)

	c.Off("organizer-request:updated")
	srv.Broadcast("organizer-request:updated", map[string]string{"status": "ACCEPTED"})
	srv.Broadcast("marker", nil)

	next(t, marker)
	assert.Empty(t, hits)
}
