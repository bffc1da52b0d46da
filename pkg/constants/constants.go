// Package constants provides shared constants used throughout the evently codebase.
// This includes timeouts, debounce windows, cache lifetimes, persistence keys and
// file permissions that should be consistent across the library and the CLI.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for requests to the booking API
	DefaultHTTPTimeout = 10 * time.Second

	// DefaultTimeout is the standard timeout for general operations
	DefaultTimeout = 10 * time.Second

	// CommandTimeout is the default timeout for CLI commands
	CommandTimeout = 2 * time.Minute

	// ShutdownTimeout bounds the graceful shutdown of the client (final save, socket close)
	ShutdownTimeout = 5 * time.Second

	// FilterDebounce is the quiet period before a burst of filter edits triggers one fetch
	FilterDebounce = 300 * time.Millisecond

	// PersistDebounce is the quiet period before state changes are written to the persistence store
	PersistDebounce = 250 * time.Millisecond

	// DefaultRefreshInterval is how often the event listing is refetched when auto refresh is on
	DefaultRefreshInterval = 5 * time.Minute
)

// Push channel constants
const (
	// SocketWriteWait is the time allowed to write a frame to the server.
	SocketWriteWait = 10 * time.Second

	// SocketPongWait is the time allowed to read the next pong from the server.
	SocketPongWait = 60 * time.Second

	// SocketPingPeriod must be less than SocketPongWait.
	SocketPingPeriod = (SocketPongWait * 9) / 10

	// SocketMaxMessageSize is the maximum frame size accepted from the server.
	SocketMaxMessageSize = 64 * 1024

	// SocketSendBuffer is the number of outgoing frames queued before Emit fails.
	SocketSendBuffer = 64
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwx------)
	DirPermissions = 0700

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644

	// SecureFilePermissions is for persisted session state (rw-------)
	SecureFilePermissions = 0600
)

// Pagination constants
const (
	// DefaultPage is the first page number used by the API
	DefaultPage = 1

	// DefaultPageSize is the page size used by the CLI when none is given
	DefaultPageSize = 10
)

// Cache constants
const (
	// BookingCacheTTL is how long a fetched booking is served without a network call
	BookingCacheTTL = 5 * time.Minute

	// CacheCleanupInterval is how often to clean expired cache entries
	CacheCleanupInterval = 10 * time.Minute
)

// Persistence keys for the durable client state slices
const (
	// AuthStateKey holds the persisted auth slice (user, isAuthenticated)
	AuthStateKey = "auth"

	// EventStateKey holds the persisted event cache slice (eventsById, selectedFilters)
	EventStateKey = "events"

	// SessionStateKey holds the persisted session cookies (CLI only)
	SessionStateKey = "session"
)

// Defaults for configuration
const (
	// DefaultAPIURL is the booking API base URL used when none is configured
	DefaultAPIURL = "http://localhost:3000/api/v1"

	// DefaultStateDir is the directory, relative to the home directory, for persisted state
	DefaultStateDir = ".evently"

	// UserAgent is sent with every API request
	UserAgent = "evently-go"
)
