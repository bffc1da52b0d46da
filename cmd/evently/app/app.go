// Package app provides the application context and dependency management
// for the evently CLI: configuration, logging, the API client and the
// state store it persists the session in.
package app

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/evently"
	appcontext "github.com/agentstation/evently/cmd/evently/context"
	"github.com/agentstation/evently/pkg/errors"
	"github.com/agentstation/evently/pkg/persistence"
)

var _ appcontext.Context = (*App)(nil)

// App represents the evently application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	httpClient *http.Client
	out        io.Writer
	errOut     io.Writer

	mu      sync.Mutex
	state   persistence.Store
	client  *evently.Client
	clients []*evently.Client
}

// New creates a new App with configuration loaded from the environment.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	if app.config == nil {
		config, err := LoadConfig()
		if err != nil {
			return nil, errors.WrapResource("load", "config", "", err)
		}
		app.config = config
	}
	if app.logger == nil {
		logger := NewLogger(app.config)
		app.logger = &logger
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Client returns the shared client, creating and starting it on first use.
func (a *App) Client(ctx context.Context) (*evently.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return a.client, nil
	}
	c, err := a.newClient(ctx, evently.WithSocketDisabled())
	if err != nil {
		return nil, err
	}
	a.client = c
	return c, nil
}

// LiveClient returns a new started client with the push channel enabled.
func (a *App) LiveClient(ctx context.Context) (*evently.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var opts []evently.Option
	if a.config.SocketURL != "" {
		opts = append(opts, evently.WithSocketURL(a.config.SocketURL))
	}
	return a.newClient(ctx, opts...)
}

// newClient must be called with mu held.
func (a *App) newClient(ctx context.Context, extra ...evently.Option) (*evently.Client, error) {
	state, err := a.stateStore(ctx)
	if err != nil {
		return nil, err
	}

	opts := []evently.Option{
		evently.WithBaseURL(a.config.APIURL),
		evently.WithTimeout(a.config.Timeout),
		evently.WithLogger(a.logger),
		evently.WithPersistence(state),
	}
	if a.httpClient != nil {
		opts = append(opts, evently.WithHTTPClient(a.httpClient))
	}
	opts = append(opts, extra...)

	c, err := evently.New(opts...)
	if err != nil {
		return nil, errors.WrapResource("create", "client", "", err)
	}
	a.restoreSession(ctx, c)

	if err := c.Start(ctx); err != nil {
		_ = c.Close(ctx)
		return nil, errors.WrapResource("start", "client", "", err)
	}
	a.clients = append(a.clients, c)
	return c, nil
}

// Shutdown saves the session of every client created and closes them.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	clients := a.clients
	a.clients, a.client = nil, nil
	state := a.state
	a.state = nil
	a.mu.Unlock()

	var errs []error
	for _, c := range clients {
		if err := a.saveSession(ctx, state, c); err != nil {
			errs = append(errs, err)
		}
		if err := c.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if closer, ok := state.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		if err := config.Validate(); err != nil {
			return err
		}
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(a *App) error {
		a.httpClient = hc
		return nil
	}
}

// WithOutput redirects command output, e.g. to a buffer in tests.
func WithOutput(out, errOut io.Writer) Option {
	return func(a *App) error {
		a.out, a.errOut = out, errOut
		return nil
	}
}

// WithStateStore uses store instead of the configured backend.
func WithStateStore(store persistence.Store) Option {
	return func(a *App) error {
		a.state = store
		return nil
	}
}
