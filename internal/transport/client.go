// Package transport is the shared HTTP client of the booking API. It decodes
// the response envelope, carries the session cookies and transparently
// refreshes an expired session once per request.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/agentstation/evently/pkg/constants"
	"github.com/agentstation/evently/pkg/errors"
	"github.com/agentstation/evently/pkg/logging"
	"github.com/agentstation/evently/pkg/types"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// RefreshPath is the endpoint that renews the session cookies.
const RefreshPath = "/auth/refresh-token"

// RequestIDHeader carries the per-request trace id.
const RequestIDHeader = "X-Request-ID"

// noRefreshPaths never trigger a session refresh on 401.
var noRefreshPaths = map[string]bool{
	"/auth/login":  true,
	RefreshPath:    true,
	"/auth/logout": true,
}

// Client provides HTTP client functionality for the booking API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	auth      Authenticator
	logger    *zerolog.Logger
	userAgent string

	refreshes singleflight.Group

	mu        sync.RWMutex
	onExpired func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient uses hc for requests. A cookie jar is added when hc has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithAuthenticator sets an additional credential source.
func WithAuthenticator(a Authenticator) Option {
	return func(c *Client) {
		if a != nil {
			c.auth = a
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zerolog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithSessionExpired registers the callback run when the server rejects a
// session refresh.
func WithSessionExpired(fn func()) Option {
	return func(c *Client) {
		c.onExpired = fn
	}
}

// New creates a new transport client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.NewConfigError("api_url", "invalid base URL "+baseURL, err)
	}

	c := &Client{
		baseURL:   u,
		http:      &http.Client{Timeout: DefaultHTTPTimeout},
		auth:      &NoAuth{},
		logger:    logging.Default(),
		userAgent: constants.UserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, errors.NewConfigError("cookie_jar", "failed to create cookie jar", err)
		}
		c.http.Jar = jar
	}
	return c, nil
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Jar returns the cookie jar holding the session.
func (c *Client) Jar() http.CookieJar {
	return c.http.Jar
}

// Cookies returns the session cookies for the API host.
func (c *Client) Cookies() []*http.Cookie {
	return c.http.Jar.Cookies(c.baseURL)
}

// SetCookies restores previously saved session cookies.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	if len(cookies) == 0 {
		return
	}
	c.http.Jar.SetCookies(c.rootURL(), cookies)
}

// OnSessionExpired replaces the callback run when the server rejects a
// session refresh.
func (c *Client) OnSessionExpired(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onExpired = fn
}

// Do performs req and decodes the envelope's data into out (which may be nil).
// A 401 outside the auth endpoints triggers one session refresh and one replay.
// The session counts as expired only when the server rejects the refresh;
// a refresh that fails to reach the server leaves it alone.
//
// The X-Request-ID comes from ctx when logging.WithRequestID set one, and
// a replay reuses the id of the call it repeats.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	body, err := req.encode()
	if err != nil {
		return err
	}
	if logging.RequestID(ctx) == "" {
		ctx = logging.WithRequestID(ctx, uuid.NewString())
	}

	env, err := c.send(ctx, req, body)
	if err != nil && c.shouldRefresh(req, err) {
		if refreshErr := c.refresh(ctx); refreshErr != nil {
			logging.Ctx(ctx, c.logger).Debug().Err(refreshErr).Str("path", req.Path).Msg("session refresh failed")
			if rejected(refreshErr) {
				c.sessionExpired()
			}
			return err
		}
		env, err = c.send(ctx, req, body)
	}
	if err != nil {
		return err
	}

	return decodeData(env, req.Path, out)
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path}, out)
}

// Upload performs a multipart request.
func (c *Client) Upload(ctx context.Context, method, path string, form *Form, out any) error {
	return c.Do(ctx, Request{Method: method, Path: path, Form: form}, out)
}

func (c *Client) shouldRefresh(req Request, err error) bool {
	var apiErr *errors.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		return false
	}
	return !noRefreshPaths[req.Path]
}

// refresh renews the session. Concurrent callers share one request, which
// is not bound to any caller's cancellation; a caller that gives up waiting
// gets a NetworkError for its own context.
func (c *Client) refresh(ctx context.Context) error {
	ch := c.refreshes.DoChan(RefreshPath, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.DefaultHTTPTimeout)
		defer cancel()
		rctx = logging.WithRequestID(rctx, uuid.NewString())
		_, err := c.send(rctx, Request{Method: http.MethodPost, Path: RefreshPath}, payload{})
		return nil, err
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return errors.NewNetworkError(http.MethodPost, RefreshPath, ctx.Err())
	}
}

// rejected reports whether the server turned a refresh down.
func rejected(err error) bool {
	var apiErr *errors.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
}

func (c *Client) sessionExpired() {
	c.mu.RLock()
	fn := c.onExpired
	c.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (c *Client) send(ctx context.Context, req Request, body payload) (*types.Envelope, error) {
	endpoint := c.resolve(req)

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, endpoint, body.reader())
	if err != nil {
		return nil, errors.WrapResource("create", "request", req.Method+" "+req.Path, err)
	}

	requestID := logging.RequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	log := logging.Ctx(ctx, c.logger)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set(RequestIDHeader, requestID)
	if body.contentType != "" {
		httpReq.Header.Set("Content-Type", body.contentType)
	}
	c.auth.Apply(httpReq)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		log.Debug().
			Str("request_id", requestID).
			Str("method", req.Method).
			Str("path", req.Path).
			Dur("duration", time.Since(start)).
			Err(err).
			Msg("api request failed")
		return nil, errors.NewNetworkError(req.Method, req.Path, c.timedOut(ctx, req, err))
	}

	log.Debug().
		Str("request_id", requestID).
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("api request")

	return DecodeResponse(resp, req.Path)
}

// timedOut wraps err in a TimeoutError when the request ran out of time,
// either on the caller's deadline or on the client's own timeout.
func (c *Client) timedOut(ctx context.Context, req Request, err error) error {
	op := req.Method + " " + req.Path
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.NewTimeoutError(op, 0, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.NewTimeoutError(op, c.http.Timeout, err)
	}
	return err
}

func (c *Client) resolve(req Request) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}
	return u.String()
}

func (c *Client) rootURL() *url.URL {
	u := *c.baseURL
	u.Path = "/"
	return &u
}

// DecodeResponse reads an API response into its envelope. Non-2xx statuses and
// envelopes reporting success=false become *errors.APIError.
func DecodeResponse(resp *http.Response, endpoint string) (*types.Envelope, error) {
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		method := ""
		if resp.Request != nil {
			method = resp.Request.Method
		}
		return nil, errors.NewNetworkError(method, endpoint, err)
	}

	var env types.Envelope
	var probe struct {
		Success *bool `json:"success"`
	}
	decodeErr := json.Unmarshal(raw, &env)
	if decodeErr == nil {
		decodeErr = json.Unmarshal(raw, &probe)
	}

	status := resp.StatusCode
	if status >= 200 && status < 300 {
		if decodeErr != nil {
			return nil, errors.WrapParse("json", endpoint, decodeErr)
		}
		if probe.Success == nil || *probe.Success {
			return &env, nil
		}
		if env.StatusCode >= 400 {
			status = env.StatusCode
		} else {
			status = http.StatusBadRequest
		}
	}

	msg := env.Message
	if msg == "" {
		msg = env.Error
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return nil, &errors.APIError{
		StatusCode: status,
		Message:    msg,
		Endpoint:   endpoint,
		Fields:     env.Errors,
	}
}

func decodeData(env *types.Envelope, endpoint string, out any) error {
	if out == nil || len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return errors.WrapParse("json", endpoint, err)
	}
	return nil
}
