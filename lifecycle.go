package evently

import (
	"context"

	"github.com/agentstation/evently/pkg/errors"
)

// Start restores persisted state, confirms the session with the server and
// opens the push channel for a signed-in user. A stored session the server
// no longer accepts is dropped rather than returned as an error.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return errors.NewConfigError("client", "client is closed", nil)
	case c.started:
		c.mu.Unlock()
		return nil
	}
	c.started = true
	c.mu.Unlock()

	c.loadState(ctx)
	if c.options.persist != nil {
		c.auth.OnChange(c.scheduleSave)
		c.events.OnChange(c.scheduleSave)
	}

	authed := c.auth.CheckAuth(ctx)
	c.logger.Debug().Bool("authenticated", authed).Msg("session checked")
	if err := ctx.Err(); err != nil {
		return err
	}

	if c.connector != nil {
		c.connector.Start()
	}
	if c.options.autoRefresh {
		if err := c.AutoRefreshOn(); err != nil {
			return err
		}
	}
	return nil
}

// Close stops background work, closes the push channel and writes the
// durable state one last time. The Client cannot be restarted.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	_ = c.AutoRefreshOff()

	c.mu.Lock()
	c.closed = true
	started := c.started
	c.mu.Unlock()

	c.events.CancelFilters()
	if c.connector != nil {
		c.connector.Close()
	}
	c.saver.Stop()

	if !started {
		return nil
	}
	return c.SaveState(ctx)
}
