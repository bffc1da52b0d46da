package evently

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/evently/pkg/constants"
	"github.com/agentstation/evently/pkg/errors"
	"github.com/agentstation/evently/pkg/logging"
	"github.com/agentstation/evently/pkg/persistence"
)

// Option is a function that configures a Client.
type Option func(*options) error

type options struct {
	baseURL         string
	socketURL       string
	httpClient      *http.Client
	persist         persistence.Store
	logger          *zerolog.Logger
	timeout         time.Duration
	socketDisabled  bool
	filterDebounce  time.Duration
	bookingCacheTTL time.Duration
	refreshInterval time.Duration
	autoRefresh     bool
}

func defaults() *options {
	return &options{
		baseURL:         constants.DefaultAPIURL,
		logger:          logging.Default(),
		timeout:         constants.DefaultHTTPTimeout,
		filterDebounce:  constants.FilterDebounce,
		bookingCacheTTL: constants.BookingCacheTTL,
		refreshInterval: constants.DefaultRefreshInterval,
	}
}

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithBaseURL sets the booking API base URL, e.g. "https://api.example.com/api/v1".
func WithBaseURL(url string) Option {
	return func(o *options) error {
		if url == "" {
			return errors.NewValidationError("baseURL", url, "must not be empty")
		}
		o.baseURL = url
		return nil
	}
}

// WithSocketURL sets the push channel endpoint. By default it is derived
// from the base URL: same host, path "/socket".
func WithSocketURL(url string) Option {
	return func(o *options) error {
		o.socketURL = url
		return nil
	}
}

// WithHTTPClient uses hc for API requests. A cookie jar is added when hc has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) error {
		o.httpClient = hc
		return nil
	}
}

// WithPersistence keeps the durable state slices in store between runs.
func WithPersistence(store persistence.Store) Option {
	return func(o *options) error {
		o.persist = store
		return nil
	}
}

// WithLogger configures the logger used by the client and its stores.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) error {
		if logger != nil {
			o.logger = logger
		}
		return nil
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return errors.NewValidationError("timeout", d, "must be positive")
		}
		o.timeout = d
		return nil
	}
}

// WithSocketDisabled turns the push channel off.
func WithSocketDisabled() Option {
	return func(o *options) error {
		o.socketDisabled = true
		return nil
	}
}

// WithFilterDebounce sets the quiet period of Events().QueueFilters.
func WithFilterDebounce(d time.Duration) Option {
	return func(o *options) error {
		o.filterDebounce = d
		return nil
	}
}

// WithBookingCacheTTL sets how long a fetched booking is served from memory.
func WithBookingCacheTTL(d time.Duration) Option {
	return func(o *options) error {
		o.bookingCacheTTL = d
		return nil
	}
}

// WithAutoRefresh configures whether the event listing is refetched periodically.
func WithAutoRefresh(enabled bool) Option {
	return func(o *options) error {
		o.autoRefresh = enabled
		return nil
	}
}

// WithAutoRefreshInterval configures how often the event listing is refetched.
func WithAutoRefreshInterval(interval time.Duration) Option {
	return func(o *options) error {
		o.refreshInterval = interval
		return nil
	}
}
