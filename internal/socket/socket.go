// Package socket is the client side of the booking API's push channel.
//
// Frames are JSON objects {"event": name, "data": payload}. Handlers are
// registered per event name; the connection also raises the local events
// EventConnect, EventDisconnect and EventConnectError.
package socket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/agentstation/evently/pkg/constants"
	"github.com/agentstation/evently/pkg/errors"
	"github.com/agentstation/evently/pkg/logging"
)

// Local events raised by the connection itself.
const (
	EventConnect      = "connect"
	EventDisconnect   = "disconnect"
	EventConnectError = "connect_error"
)

// Frame is one message on the push channel.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Handler receives the raw data of an event.
type Handler func(data json.RawMessage)

// ErrNotConnected is returned by Emit while no connection is open.
var ErrNotConnected = errors.New("socket not connected")

// Option configures a Conn.
type Option func(*Conn)

// WithLogger sets the logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(c *Conn) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithJar sends the session cookies held in jar on connect. Share the
// transport's jar so the socket authenticates as the same user.
func WithJar(jar http.CookieJar) Option {
	return func(c *Conn) {
		c.dialer.Jar = jar
	}
}

// WithHeader adds headers to the handshake request.
func WithHeader(h http.Header) Option {
	return func(c *Conn) {
		c.header = h.Clone()
	}
}

// WithHandshakeTimeout bounds the opening handshake.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Conn) {
		c.dialer.HandshakeTimeout = d
	}
}

// Conn is a push channel connection. It can be connected and disconnected
// repeatedly; handlers survive reconnects.
type Conn struct {
	url    string
	id     string
	dialer *websocket.Dialer
	header http.Header
	logger *zerolog.Logger

	hmu      sync.RWMutex
	handlers map[string][]Handler

	mu    sync.Mutex
	ws    *websocket.Conn
	send  chan Frame
	done  chan struct{}
	epoch int
}

// New creates a disconnected Conn for rawURL. http and https URLs are
// rewritten to ws and wss.
func New(rawURL string, opts ...Option) (*Conn, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.NewValidationError("url", rawURL, "invalid socket URL")
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, errors.NewValidationError("url", rawURL, "socket URL must use ws, wss, http or https")
	}

	d := *websocket.DefaultDialer
	c := &Conn{
		url:      u.String(),
		id:       uuid.NewString(),
		dialer:   &d,
		logger:   logging.Default(),
		handlers: map[string][]Handler{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ID identifies this client in logs.
func (c *Conn) ID() string {
	return c.id
}

// URL returns the endpoint the connection dials.
func (c *Conn) URL() string {
	return c.url
}

// On registers fn for event.
func (c *Conn) On(event string, fn Handler) {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	c.handlers[event] = append(c.handlers[event], fn)
}

// Off removes every handler of event.
func (c *Conn) Off(event string) {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	delete(c.handlers, event)
}

func (c *Conn) dispatch(event string, data json.RawMessage) {
	c.hmu.RLock()
	hs := append([]Handler(nil), c.handlers[event]...)
	c.hmu.RUnlock()

	for _, fn := range hs {
		fn(data)
	}
}

func (c *Conn) raise(event string, fields map[string]string) {
	var data json.RawMessage
	if fields != nil {
		data, _ = json.Marshal(fields)
	}
	c.dispatch(event, data)
}

// Connected reports whether a connection is open.
func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws != nil
}

// Connect opens the connection. It is a no-op while already connected.
// A failed handshake raises EventConnectError and returns the failure.
// The dial runs without holding the connection lock; if Disconnect is
// called meanwhile, the new connection is closed and Connect returns nil.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.ws != nil {
		c.mu.Unlock()
		return nil
	}
	epoch := c.epoch
	c.mu.Unlock()

	ws, resp, err := c.dialer.DialContext(ctx, c.url, c.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		err = dialError(c.url, resp, err)
		c.logger.Debug().Err(err).Str("client_id", c.id).Msg("socket connect failed")
		c.raise(EventConnectError, map[string]string{"message": err.Error()})
		return err
	}

	c.mu.Lock()
	if c.ws != nil || c.epoch != epoch {
		c.mu.Unlock()
		_ = ws.Close()
		return nil
	}
	ws.SetReadLimit(constants.SocketMaxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(constants.SocketPongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(constants.SocketPongWait))
	})

	send := make(chan Frame, constants.SocketSendBuffer)
	done := make(chan struct{})
	c.ws, c.send, c.done = ws, send, done
	c.mu.Unlock()

	go c.writePump(ws, send, done)
	go c.readPump(ws)

	c.logger.Debug().Str("client_id", c.id).Str("url", c.url).Msg("socket connected")
	c.raise(EventConnect, nil)
	return nil
}

func dialError(endpoint string, resp *http.Response, err error) error {
	if resp != nil && resp.StatusCode >= 400 {
		return &errors.APIError{
			StatusCode: resp.StatusCode,
			Message:    "socket handshake rejected",
			Endpoint:   endpoint,
			Err:        err,
		}
	}
	return errors.NewNetworkError(http.MethodGet, endpoint, err)
}

// Disconnect closes the connection and abandons any dial in flight.
// Connected reports false once it returns.
func (c *Conn) Disconnect() {
	c.mu.Lock()
	c.epoch++
	c.mu.Unlock()
	if !c.drop(nil) {
		return
	}
	c.raise(EventDisconnect, map[string]string{"reason": "client disconnect"})
}

// drop closes the open connection if it is ws, or any open connection for
// a nil ws. It reports whether it closed one.
func (c *Conn) drop(ws *websocket.Conn) bool {
	c.mu.Lock()
	cur := c.ws
	if cur == nil || (ws != nil && cur != ws) {
		c.mu.Unlock()
		return false
	}
	c.ws = nil
	close(c.done)
	c.mu.Unlock()

	_ = cur.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(constants.SocketWriteWait))
	_ = cur.Close()
	return true
}

// Emit queues a frame for the server.
func (c *Conn) Emit(event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return errors.WrapParse("json", event, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ws == nil {
		return ErrNotConnected
	}
	select {
	case c.send <- Frame{Event: event, Data: raw}:
		return nil
	default:
		return fmt.Errorf("socket send buffer full, dropped %q", event)
	}
}

func (c *Conn) readPump(ws *websocket.Conn) {
	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			if c.drop(ws) {
				reason := "server disconnect"
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					reason = "transport error"
					c.logger.Debug().Err(err).Str("client_id", c.id).Msg("socket read error")
				}
				c.raise(EventDisconnect, map[string]string{"reason": reason})
			}
			return
		}

		var f Frame
		if err := json.Unmarshal(msg, &f); err != nil || f.Event == "" {
			c.logger.Warn().Str("client_id", c.id).Int("bytes", len(msg)).Msg("ignoring malformed socket frame")
			continue
		}
		c.dispatch(f.Event, f.Data)
	}
}

func (c *Conn) writePump(ws *websocket.Conn, send <-chan Frame, done <-chan struct{}) {
	ticker := time.NewTicker(constants.SocketPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return

		case f := <-send:
			_ = ws.SetWriteDeadline(time.Now().Add(constants.SocketWriteWait))
			if err := ws.WriteJSON(f); err != nil {
				c.logger.Debug().Err(err).Str("client_id", c.id).Str("event", f.Event).Msg("socket write failed")
				_ = ws.Close()
				return
			}

		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(constants.SocketWriteWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = ws.Close()
				return
			}
		}
	}
}
