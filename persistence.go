package evently

import (
	"context"

	"github.com/agentstation/evently/pkg/constants"
	"github.com/agentstation/evently/pkg/errors"
	"github.com/agentstation/evently/pkg/store"
)

// loadState restores the durable slices from the configured store. A slice
// that cannot be read is logged and left at its initial value.
func (c *Client) loadState(ctx context.Context) {
	if c.options.persist == nil {
		return
	}

	var auth store.AuthSnapshot
	switch ok, err := c.options.persist.Load(ctx, constants.AuthStateKey, &auth); {
	case err != nil:
		c.logger.Warn().Err(err).Str("key", constants.AuthStateKey).Msg("ignoring unreadable state")
	case ok:
		c.auth.Restore(auth)
	}

	var events store.EventSnapshot
	switch ok, err := c.options.persist.Load(ctx, constants.EventStateKey, &events); {
	case err != nil:
		c.logger.Warn().Err(err).Str("key", constants.EventStateKey).Msg("ignoring unreadable state")
	case ok:
		c.events.Restore(events)
	}
}

// SaveState writes the durable slices to the configured store now. It is a
// no-op without persistence.
func (c *Client) SaveState(ctx context.Context) error {
	if c.options.persist == nil {
		return nil
	}

	var errs []error
	if err := c.options.persist.Save(ctx, constants.AuthStateKey, c.auth.Snapshot()); err != nil {
		errs = append(errs, errors.WrapResource("save", "state", constants.AuthStateKey, err))
	}
	if err := c.options.persist.Save(ctx, constants.EventStateKey, c.events.Snapshot()); err != nil {
		errs = append(errs, errors.WrapResource("save", "state", constants.EventStateKey, err))
	}
	return errors.Join(errs...)
}

// scheduleSave coalesces bursts of state changes into one write.
func (c *Client) scheduleSave() {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}

	c.saver.Trigger(func() {
		ctx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		if err := c.SaveState(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("saving state failed")
		}
	})
}
