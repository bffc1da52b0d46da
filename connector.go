package evently

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/evently/pkg/constants"
	"github.com/agentstation/evently/pkg/store"
	"github.com/agentstation/evently/pkg/types"
)

// Socket is the part of the push channel the Connector drives.
type Socket interface {
	Connect(ctx context.Context) error
	Disconnect()
	Connected() bool
}

// Connector keeps the push channel open exactly while a user is signed in.
// Losing the session closes the channel before the auth change returns.
// Connecting happens on a single worker goroutine.
type Connector struct {
	auth   *store.AuthStore
	socket Socket
	logger *zerolog.Logger

	kick chan struct{}
	stop chan struct{}
	done chan struct{}

	mu      sync.Mutex
	started bool
	closed  bool
}

// NewConnector creates a Connector. It does nothing until Start.
func NewConnector(auth *store.AuthStore, socket Socket, logger *zerolog.Logger) *Connector {
	return &Connector{
		auth:   auth,
		socket: socket,
		logger: logger,
		kick:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start subscribes to the auth store and brings the socket in line with
// the current session. Calling it again is a no-op.
func (c *Connector) Start() {
	c.mu.Lock()
	if c.started || c.closed {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	c.auth.OnChange(c.changed)
	go c.loop()
	c.nudge()
}

func (c *Connector) changed() {
	if _, want := c.wanted(); !want {
		c.disconnect()
		return
	}
	c.nudge()
}

func (c *Connector) nudge() {
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

func (c *Connector) loop() {
	defer close(c.done)
	for {
		select {
		case <-c.stop:
			return
		case <-c.kick:
			c.Sync()
		}
	}
}

// Sync connects when a signed-in user with an id is present and
// disconnects otherwise. It is idempotent.
func (c *Connector) Sync() {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}

	u, want := c.wanted()
	if !want {
		c.disconnect()
		return
	}
	if c.socket.Connected() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultTimeout)
	defer cancel()
	if err := c.socket.Connect(ctx); err != nil {
		c.logger.Warn().Err(err).Int("user_id", u.ID).Msg("push channel connect failed")
		return
	}
	// The session may have ended while the dial was in flight.
	if _, want := c.wanted(); !want {
		c.disconnect()
		return
	}
	c.logger.Debug().Int("user_id", u.ID).Msg("push channel connected")
}

func (c *Connector) wanted() (types.User, bool) {
	u, ok := c.auth.User()
	return u, ok && c.auth.IsAuthenticated() && u.ID != 0
}

func (c *Connector) disconnect() {
	if !c.socket.Connected() {
		return
	}
	c.socket.Disconnect()
	c.logger.Debug().Msg("push channel disconnected")
}

// Close stops the worker and disconnects the socket.
func (c *Connector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	started := c.started
	c.mu.Unlock()

	close(c.stop)
	if started {
		<-c.done
	}
	c.socket.Disconnect()
}
