// SPDX-License-Identifier: MIT

package backend

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

type eventsPage struct {
	Events []AuthEvent `json:"events"`
	Cursor uint64      `json:"cursor"`
}

// SessionEvents subscribes to the provider's auth change notifications.
// Events are delivered in provider order, one at a time; the channel is
// closed when ctx is cancelled. Poll errors are logged and retried, they do
// not terminate the subscription.
func (c *Client) SessionEvents(ctx context.Context) <-chan AuthEvent {
	out := make(chan AuthEvent)
	poll := c.poll
	if poll <= 0 {
		poll = 5 * time.Second
	}

	go func() {
		defer close(out)
		var cursor uint64
		for {
			page, err := c.fetchEvents(ctx, cursor)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				c.logger.Warn().Err(err).Msg("auth event poll failed")
			} else {
				for _, ev := range page.Events {
					select {
					case out <- ev:
					case <-ctx.Done():
						return
					}
				}
				if page.Cursor > cursor {
					cursor = page.Cursor
				}
			}

			select {
			case <-time.After(poll):
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

func (c *Client) fetchEvents(ctx context.Context, cursor uint64) (*eventsPage, error) {
	var page eventsPage
	path := "/auth/v1/events?cursor=" + strconv.FormatUint(cursor, 10)
	err := c.do(ctx, "events", http.MethodGet, path, nil, &page)
	if err != nil {
		// An empty queue is not a failure.
		if IsNotFound(err) {
			return &eventsPage{Cursor: cursor}, nil
		}
		return nil, err
	}
	return &page, nil
}
