// Package push delivers task lifecycle events from the backend's
// websocket channel. Delivery is at-least-once with no ordering
// guarantee relative to local writes; the merge rules downstream are
// idempotent, so that is enough.
package push

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/metalagman/taskdeck/internal/merge"
	"github.com/rs/zerolog/log"
)

// Subscriber maintains a websocket subscription to one project's
// event stream, reconnecting with exponential backoff. A disconnect
// only flips the connectivity flag; task state is never touched here.
type Subscriber struct {
	url      string
	onEvent  func(merge.Event)
	onStatus func(connected bool)
}

// NewSubscriber creates a subscriber for a ws:// or wss:// URL. Both
// callbacks are invoked from the subscriber's goroutine.
func NewSubscriber(url string, onEvent func(merge.Event), onStatus func(bool)) *Subscriber {
	if onStatus == nil {
		onStatus = func(bool) {}
	}
	return &Subscriber{url: url, onEvent: onEvent, onStatus: onStatus}
}

// Run connects and delivers events until the context ends. The first
// message after every (re)connect is the server's initial_tasks
// snapshot, which resynchronizes local state after any gap.
func (s *Subscriber) Run(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxInterval = 30 * time.Second
	policy.MaxElapsedTime = 0

	for {
		if err := s.consume(ctx, policy); err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return ctx.Err()
			}
			wait := policy.NextBackOff()
			log.Warn().Err(err).Dur("retry_in", wait).Msg("push: connection lost")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}
}

// consume holds one connection open and pumps its messages.
func (s *Subscriber) consume(ctx context.Context, policy *backoff.ExponentialBackOff) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	defer conn.Close()

	policy.Reset()
	s.onStatus(true)
	defer s.onStatus(false)
	log.Debug().Str("url", s.url).Msg("push: connected")

	// Unblock ReadMessage when the context ends.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", err)
		}
		ev, err := merge.Decode(raw)
		if err != nil {
			// A malformed message is logged and skipped; it must not
			// tear down the subscription.
			log.Warn().Err(err).Msg("push: dropping undecodable event")
			continue
		}
		s.onEvent(ev)
	}
}
