package evently

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/agentstation/evently/pkg/constants"
	"github.com/agentstation/evently/pkg/errors"
)

// AutoRefreshOn begins refetching the event listing with the selected
// filters at the configured interval. Calling it again restarts the ticker.
func (c *Client) AutoRefreshOn() error {
	if c.options.refreshInterval <= 0 {
		return &errors.ValidationError{
			Field:   "refreshInterval",
			Value:   c.options.refreshInterval,
			Message: "refresh interval must be positive",
		}
	}

	if err := c.AutoRefreshOff(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.NewConfigError("client", "client is closed", nil)
	}

	stop := make(chan struct{})
	ticker := time.NewTicker(c.options.refreshInterval)
	ctx, cancel := context.WithCancel(context.Background())
	c.stopCh, c.refreshTicker, c.refreshCancel = stop, ticker, cancel

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := c.refresh(ctx); err != nil {
					if stderrors.Is(err, context.Canceled) {
						return
					}
					c.logger.Warn().Err(err).Msg("event refresh failed")
				}
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()

	return nil
}

// AutoRefreshOff stops periodic refetching. It is safe to call when
// refreshing is not running.
func (c *Client) AutoRefreshOff() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.refreshTicker != nil {
		c.refreshTicker.Stop()
		c.refreshTicker = nil
	}
	if c.refreshCancel != nil {
		c.refreshCancel()
		c.refreshCancel = nil
	}
	select {
	case <-c.stopCh:
	default:
		close(c.stopCh)
	}
	return nil
}

// refresh refetches the listing the user is looking at.
func (c *Client) refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, constants.CommandTimeout)
	defer cancel()

	_, err := c.events.FetchEvents(ctx, c.events.SelectedFilters())
	return err
}
