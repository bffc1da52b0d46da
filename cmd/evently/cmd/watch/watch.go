// Package watch streams live updates from the push channel.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/agentstation/utc"
	"github.com/spf13/cobra"

	appcontext "github.com/agentstation/evently/cmd/evently/context"
	"github.com/agentstation/evently/internal/cmd/output"
	"github.com/agentstation/evently/internal/socket"
	"github.com/agentstation/evently/pkg/errors"
)

// DefaultEvents are the server events watched when --event is not given.
var DefaultEvents = []string{
	"event:created",
	"event:updated",
	"event:deleted",
	"event:booked",
	"booking:cancelled",
	"organizer-request:updated",
}

// Line is one printed update.
type Line struct {
	At    utc.Time        `json:"at"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewCommand creates the watch command.
func NewCommand(appCtx appcontext.Context) *cobra.Command {
	var (
		events []string
		dur    time.Duration
	)
	cmd := &cobra.Command{
		Use:     "watch",
		GroupID: "core",
		Short:   "Stream live event and booking updates",
		Long: `Opens the push channel for the signed-in user and prints every update
until interrupted. Structured formats print one JSON object per line.`,
		Example: `  evently watch
  evently watch --event event:booked --for 10m -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if dur > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, dur)
				defer cancel()
			}

			client, err := appCtx.LiveClient(ctx)
			if err != nil {
				return err
			}
			if !client.Auth().IsAuthenticated() {
				return errors.NewAuthenticationError("session", "watching requires a session, run: evently auth login", nil)
			}
			conn := client.Socket()
			if conn == nil {
				return errors.NewConfigError("socket", "push channel is disabled", nil)
			}

			p := &printer{
				w:          cmd.OutOrStdout(),
				structured: !output.DetectFormat(appCtx.OutputFormat()).IsTabular(),
			}
			names := append([]string{socket.EventConnect, socket.EventDisconnect, socket.EventConnectError}, events...)
			for _, name := range names {
				conn.On(name, p.handler(name))
			}
			defer func() {
				for _, name := range names {
					conn.Off(name)
				}
			}()

			appCtx.Logger().Info().Strs("events", events).Str("url", conn.URL()).Msg("Watching for updates")
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&events, "event", "e", DefaultEvents, "server event to watch (repeatable)")
	cmd.Flags().DurationVar(&dur, "for", 0, "stop after this long (0 runs until interrupted)")
	return cmd
}

type printer struct {
	mu         sync.Mutex
	w          io.Writer
	structured bool
}

func (p *printer) handler(event string) socket.Handler {
	return func(data json.RawMessage) {
		p.print(Line{At: utc.Now(), Event: event, Data: data})
	}
}

func (p *printer) print(l Line) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.structured {
		_ = json.NewEncoder(p.w).Encode(l)
		return
	}
	data := string(l.Data)
	if data == "" {
		data = "-"
	}
	fmt.Fprintf(p.w, "%s  %-26s %s\n", l.At.Format(time.TimeOnly), l.Event, data)
}
