package evently

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/evently/pkg/errors"
	"github.com/agentstation/evently/pkg/store"
	"github.com/agentstation/evently/pkg/types"
)

type fakeSocket struct {
	mu          sync.Mutex
	connected   bool
	connects    int
	disconnects int
	fail        error
	dialing     func()
}

func (s *fakeSocket) Connect(context.Context) error {
	if s.dialing != nil {
		s.dialing()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connects++
	if s.fail != nil {
		return s.fail
	}
	s.connected = true
	return nil
}

func (s *fakeSocket) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected {
		s.disconnects++
	}
	s.connected = false
}

func (s *fakeSocket) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *fakeSocket) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connects, s.disconnects
}

func newTestConnector(t *testing.T) (*store.AuthStore, *fakeSocket, *Connector) {
	t.Helper()
	nop := zerolog.Nop()
	auth := store.NewAuthStore(nil, store.WithLogger(&nop))
	sock := &fakeSocket{}
	c := NewConnector(auth, sock, &nop)
	t.Cleanup(c.Close)
	return auth, sock, c
}

func TestConnector_FollowsSession(t *testing.T) {
	auth, sock, c := newTestConnector(t)
	c.Start()
	c.Start()

	time.Sleep(20 * time.Millisecond)
	assert.False(t, sock.Connected(), "no connection while signed out")

	auth.Restore(store.AuthSnapshot{IsAuthenticated: true, User: &types.User{ID: 7, Name: "Lee"}})
	require.Eventually(t, sock.Connected, wait, 5*time.Millisecond)

	auth.ClearAuth()
	assert.False(t, sock.Connected(), "signing out closes the channel before returning")

	connects, disconnects := sock.counts()
	assert.Equal(t, 1, connects)
	assert.Equal(t, 1, disconnects)
}

func TestConnector_SyncIsIdempotent(t *testing.T) {
	auth, sock, c := newTestConnector(t)
	auth.Restore(store.AuthSnapshot{IsAuthenticated: true, User: &types.User{ID: 7}})

	c.Sync()
	c.Sync()
	c.Sync()

	connects, _ := sock.counts()
	assert.Equal(t, 1, connects)
}

func TestConnector_SignOutWhileDialing(t *testing.T) {
	auth, sock, c := newTestConnector(t)
	auth.Restore(store.AuthSnapshot{IsAuthenticated: true, User: &types.User{ID: 7}})
	sock.dialing = auth.ClearAuth

	c.Sync()

	assert.False(t, sock.Connected(), "a dial that outlives the session is dropped")
	connects, disconnects := sock.counts()
	assert.Equal(t, 1, connects)
	assert.Equal(t, 1, disconnects)
}

func TestConnector_UserWithoutID(t *testing.T) {
	auth, sock, c := newTestConnector(t)
	auth.Restore(store.AuthSnapshot{IsAuthenticated: true, User: &types.User{Name: "ghost"}})

	c.Sync()

	connects, _ := sock.counts()
	assert.Zero(t, connects)
}

func TestConnector_ConnectFailure(t *testing.T) {
	auth, sock, c := newTestConnector(t)
	sock.fail = errors.NewNetworkError("GET", "ws://localhost/socket", context.DeadlineExceeded)
	auth.Restore(store.AuthSnapshot{IsAuthenticated: true, User: &types.User{ID: 7}})

	c.Sync()
	assert.False(t, sock.Connected())

	sock.mu.Lock()
	sock.fail = nil
	sock.mu.Unlock()
	c.Sync()
	assert.True(t, sock.Connected(), "the next sync retries")
}

func TestConnector_Close(t *testing.T) {
	auth, sock, c := newTestConnector(t)
	auth.Restore(store.AuthSnapshot{IsAuthenticated: true, User: &types.User{ID: 7}})
	c.Start()
	require.Eventually(t, sock.Connected, wait, 5*time.Millisecond)

	c.Close()
	assert.False(t, sock.Connected())

	c.Sync()
	assert.False(t, sock.Connected(), "a closed connector never reconnects")
	c.Close()
}
