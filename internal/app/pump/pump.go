// Package pump runs the long-lived task that turns upstream notifications
// into hub broadcasts.
package pump

import (
	"context"
	"strings"
	"time"

	"github.com/crickstream/gateway/internal/app/hub"
	"github.com/crickstream/gateway/internal/domain/schema"
	"github.com/crickstream/gateway/internal/infra/logging"
	"github.com/crickstream/gateway/internal/infra/store"
)

const reconnectDelay = 5 * time.Second

// Pump consumes the wildcard notification stream, re-reads the affected
// match state from the store and broadcasts derived updates into the hub.
type Pump struct {
	store *store.Store
	hub   *hub.Hub
	log   *logging.Logger
}

// New wires a pump to its collaborators.
func New(st *store.Store, h *hub.Hub, log *logging.Logger) *Pump {
	return &Pump{store: st, hub: h, log: log}
}

// Run consumes notifications until ctx is cancelled, re-establishing the
// subscription after any terminal stream error. One instance runs for the
// lifetime of the process.
func (p *Pump) Run(ctx context.Context) {
	for {
		p.log.Warnf("starting notification listener on %s", store.NotificationPattern)
		if err := p.listen(ctx); err != nil {
			p.log.Errorf("notification listener error: %v; reconnecting in %v", err, reconnectDelay)
		} else {
			p.log.Warnf("notification stream ended")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
		p.log.Warnf("reconnecting notification listener")
	}
}

func (p *Pump) listen(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorf("notification listener panicked: %v", r)
			err = nil
		}
	}()

	sub, err := p.store.SubscribeNotifications(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = sub.Close() }()

	p.log.Infof("notification listener started, listening for %s", store.NotificationPattern)

	for {
		select {
		case <-ctx.Done():
			return nil
		case channel, ok := <-sub.Names():
			if !ok {
				return nil
			}
			p.handleNotification(ctx, channel)
		}
	}
}

// handleNotification processes one notification: the channel name encodes
// the match id; the payload is ignored. A failure for one match never stops
// the pump.
func (p *Pump) handleNotification(ctx context.Context, channel string) {
	p.log.Debugf("received notification on channel %s", channel)

	parts := strings.Split(channel, ":")
	if len(parts) != 2 {
		p.log.Warnf("invalid notification channel name: %s", channel)
		return
	}
	matchID := parts[1]

	score, err := p.store.LiveScore(ctx, matchID)
	if err != nil {
		p.log.Errorf("fetch score for match %s: %v", matchID, err)
	} else {
		p.hub.Broadcast(ctx, matchID, schema.NewScoreUpdate(score))
		p.log.Debugf("broadcast score update for match %s", matchID)
	}

	for _, inning := range []uint8{1, 2} {
		card, err := p.store.Scorecard(ctx, matchID, inning)
		if err != nil {
			p.log.Errorf("fetch scorecard for match %s inning %d: %v", matchID, inning, err)
			continue
		}
		if card == nil {
			// No scorecard for this inning yet.
			continue
		}
		p.hub.Broadcast(ctx, matchID, schema.NewScorecardUpdate(card, inning))
		p.log.Debugf("broadcast scorecard update for match %s inning %d", matchID, inning)
	}
}
