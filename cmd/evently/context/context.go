// Package context provides the application context interface for evently
// commands.
//
// Commands accept this interface rather than the concrete App, so they can
// be tested against a fake API:
//
//	func NewCommand(appCtx context.Context) *cobra.Command {
//	    return &cobra.Command{
//	        RunE: func(cmd *cobra.Command, args []string) error {
//	            client, err := appCtx.Client(cmd.Context())
//	            if err != nil {
//	                return err
//	            }
//	            // ... use client
//	            return nil
//	        },
//	    }
//	}
package context

import (
	stdctx "context"

	"github.com/rs/zerolog"

	"github.com/agentstation/evently"
)

// Context provides what commands need from the application.
//
// Thread Safety: All methods must be safe for concurrent access.
type Context interface {
	// Client returns the started API client, creating it on first use.
	// The push channel is disabled on this client.
	Client(ctx stdctx.Context) (*evently.Client, error)

	// LiveClient returns a started API client whose push channel follows
	// the session. Each call creates a new client.
	LiveClient(ctx stdctx.Context) (*evently.Client, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (json, yaml, table, etc).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
