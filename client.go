// Package evently is a client for the Evently event booking API. It keeps
// normalized, observable state for events, the user session, bookings and
// organizer requests, and optionally a push channel and durable state.
//
// Example usage:
//
//	c, err := evently.New(
//	    evently.WithBaseURL("https://api.example.com/api/v1"),
//	    evently.WithPersistence(persistence.NewMemoryStore()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close(context.Background())
//
//	if err := c.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	c.OnEventAdded(func(ev types.Event) {
//	    log.Printf("new event: %s", ev.Title)
//	})
//
//	events, err := c.Events().FetchEvents(ctx, types.EventQuery{City: "Berlin"})
package evently

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/evently/internal/debounce"
	"github.com/agentstation/evently/internal/socket"
	"github.com/agentstation/evently/internal/transport"
	"github.com/agentstation/evently/pkg/api"
	"github.com/agentstation/evently/pkg/constants"
	"github.com/agentstation/evently/pkg/errors"
	"github.com/agentstation/evently/pkg/store"
	"github.com/agentstation/evently/pkg/types"
)

// Client wires the API services, the stores, persistence and the push
// channel together.
type Client struct {
	*hooks

	options   *options
	logger    *zerolog.Logger
	transport *transport.Client
	services  *api.Services

	auth     *store.AuthStore
	events   *store.EventStore
	bookings *store.BookingStore
	requests *store.OrganizerStore

	socket    *socket.Conn
	connector *Connector
	saver     *debounce.Debouncer

	mu      sync.Mutex
	started bool
	closed  bool

	// auto refresh state
	refreshTicker *time.Ticker
	stopCh        chan struct{}
	refreshCancel context.CancelFunc
}

// New creates a Client. Nothing is loaded or fetched until Start.
func New(opts ...Option) (*Client, error) {
	o, err := defaults().apply(opts...)
	if err != nil {
		return nil, err
	}

	var topts []transport.Option
	if o.httpClient != nil {
		topts = append(topts, transport.WithHTTPClient(o.httpClient))
	}
	topts = append(topts, transport.WithLogger(o.logger), transport.WithTimeout(o.timeout))
	tr, err := transport.New(o.baseURL, topts...)
	if err != nil {
		return nil, err
	}
	svc := api.New(tr)

	sopts := []store.Option{
		store.WithLogger(o.logger),
		store.WithDebounce(o.filterDebounce),
		store.WithCacheTTL(o.bookingCacheTTL),
	}
	c := &Client{
		hooks:     newHooks(),
		options:   o,
		logger:    o.logger,
		transport: tr,
		services:  svc,
		auth:      store.NewAuthStore(svc.Auth, sopts...),
		events:    store.NewEventStore(svc.Events, sopts...),
		bookings:  store.NewBookingStore(svc.Bookings, svc.Events, sopts...),
		requests:  store.NewOrganizerStore(svc.OrganizerRequests, sopts...),
		saver:     debounce.New(constants.PersistDebounce),
		stopCh:    make(chan struct{}),
	}

	if !o.socketDisabled {
		socketURL := o.socketURL
		if socketURL == "" {
			socketURL = deriveSocketURL(tr.BaseURL())
		}
		conn, err := socket.New(socketURL, socket.WithJar(tr.Jar()), socket.WithLogger(o.logger))
		if err != nil {
			return nil, errors.NewConfigError("socket_url", "invalid socket URL "+socketURL, err)
		}
		c.socket = conn
		c.connector = NewConnector(c.auth, conn, o.logger)
	}

	tr.OnSessionExpired(c.sessionExpired)
	c.events.OnChange(func() {
		c.triggerEventsUpdate(c.events.State().EventsByID)
	})
	c.auth.OnChange(func() {
		u, ok := c.auth.User()
		if !ok || !c.auth.IsAuthenticated() {
			c.triggerSessionUpdate(nil)
			return
		}
		c.triggerSessionUpdate(&u)
	})
	c.OnSessionChange(func(u *types.User) {
		if u == nil {
			c.bookings.Clear()
			c.requests.Clear()
		}
	})

	return c, nil
}

// deriveSocketURL maps ".../api/v1" on host h to "ws://h/socket".
func deriveSocketURL(base *url.URL) string {
	u := *base
	u.Path = "/socket"
	u.RawQuery = ""
	return u.String()
}

// Auth returns the session store.
func (c *Client) Auth() *store.AuthStore { return c.auth }

// Events returns the event store.
func (c *Client) Events() *store.EventStore { return c.events }

// Bookings returns the booking store.
func (c *Client) Bookings() *store.BookingStore { return c.bookings }

// Requests returns the organizer request store.
func (c *Client) Requests() *store.OrganizerStore { return c.requests }

// API returns the raw API services, bypassing the stores.
func (c *Client) API() *api.Services { return c.services }

// Socket returns the push channel, or nil when it is disabled.
func (c *Client) Socket() *socket.Conn { return c.socket }

// Cookies returns the session cookies, for callers persisting the session
// themselves.
func (c *Client) Cookies() []*http.Cookie {
	return c.transport.Cookies()
}

// SetCookies restores session cookies returned by Cookies.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	c.transport.SetCookies(cookies)
}

// sessionExpired runs when the transport could not renew the session.
func (c *Client) sessionExpired() {
	c.logger.Debug().Msg("session expired")
	c.auth.ClearAuth()
}
