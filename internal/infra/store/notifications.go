package store

import (
	"context"

	"github.com/crickstream/gateway/internal/domain/errs"
)

const notificationBuffer = 64

// Subscription is a live wildcard pattern subscription to the upstream
// notification channel. Names() yields the channel name of each published
// message; payloads are ignored by contract.
type Subscription struct {
	closer interface{ Close() error }
	names  chan string
}

// Names returns the stream of notification channel names. The channel closes
// when the subscription terminates for any reason.
func (n *Subscription) Names() <-chan string { return n.names }

// Close tears down the subscription and eventually closes Names().
func (n *Subscription) Close() error { return n.closer.Close() }

// SubscribeNotifications opens a pattern subscription on match_updates:* and
// confirms it with the store before returning.
func (s *Store) SubscribeNotifications(ctx context.Context) (*Subscription, error) {
	pubsub := s.client.PSubscribe(ctx, NotificationPattern)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, errs.New("store/subscribe_notifications", errs.CodeNetwork,
			errs.WithMessage("pattern subscription failed"), errs.WithCause(err))
	}

	sub := &Subscription{
		closer: pubsub,
		names:  make(chan string, notificationBuffer),
	}

	messages := pubsub.Channel()
	go func() {
		defer close(sub.names)
		for {
			select {
			case <-ctx.Done():
				_ = pubsub.Close()
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				select {
				case sub.names <- msg.Channel:
				case <-ctx.Done():
					_ = pubsub.Close()
					return
				}
			}
		}
	}()

	return sub, nil
}
