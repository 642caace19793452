// Package hub maintains the per-match broadcast channel registry that fans
// notification-derived updates out to subscribed client sessions.
package hub

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/crickstream/gateway/internal/domain/schema"
	"github.com/crickstream/gateway/internal/infra/logging"
	"github.com/crickstream/gateway/internal/infra/telemetry"
)

// ChannelCapacity bounds each per-match broadcast queue. Slow consumers lag
// and recover: on overflow the oldest undelivered message is dropped rather
// than blocking the publisher.
const ChannelCapacity = 100

// SubscriptionID identifies one receiver attached to a per-match channel.
type SubscriptionID string

type receiver struct {
	matchID string
	ch      chan *schema.ServerMessage
	once    sync.Once
}

func (r *receiver) close() {
	r.once.Do(func() { close(r.ch) })
}

// Hub is the process-wide registry mapping match ids to broadcast channels.
// It performs no I/O and does not interpret messages.
type Hub struct {
	mu      sync.RWMutex
	matches map[string]map[SubscriptionID]*receiver
	nextID  uint64
	log     *logging.Logger

	publishedCounter metric.Int64Counter
	droppedCounter   metric.Int64Counter
	subscriberGauge  metric.Int64UpDownCounter
	fanoutHistogram  metric.Int64Histogram
}

// New constructs an empty hub.
func New(log *logging.Logger) *Hub {
	h := &Hub{
		matches: make(map[string]map[SubscriptionID]*receiver),
		log:     log,
	}

	meter := otel.Meter("hub")
	h.publishedCounter, _ = meter.Int64Counter("hub.messages.published",
		metric.WithDescription("Number of messages broadcast into per-match channels"),
		metric.WithUnit("{message}"))
	h.droppedCounter, _ = meter.Int64Counter("hub.messages.dropped",
		metric.WithDescription("Number of messages dropped for lagging receivers"),
		metric.WithUnit("{message}"))
	h.subscriberGauge, _ = meter.Int64UpDownCounter("hub.subscribers",
		metric.WithDescription("Number of active per-match receivers"),
		metric.WithUnit("{subscriber}"))
	h.fanoutHistogram, _ = meter.Int64Histogram("hub.fanout.size",
		metric.WithDescription("Number of receivers per broadcast"),
		metric.WithUnit("{subscriber}"))

	return h
}

// Subscribe attaches a new receiver to the match's broadcast channel,
// creating the channel lazily on first subscription.
func (h *Hub) Subscribe(ctx context.Context, matchID string) (SubscriptionID, <-chan *schema.ServerMessage) {
	rcv := &receiver{
		matchID: matchID,
		ch:      make(chan *schema.ServerMessage, ChannelCapacity),
	}
	id := SubscriptionID(fmt.Sprintf("sub-%d", atomic.AddUint64(&h.nextID, 1)))

	h.mu.Lock()
	if _, ok := h.matches[matchID]; !ok {
		h.matches[matchID] = make(map[SubscriptionID]*receiver)
	}
	h.matches[matchID][id] = rcv
	h.mu.Unlock()

	if h.subscriberGauge != nil {
		h.subscriberGauge.Add(ctx, 1, metric.WithAttributes(telemetry.AttrMatchID.String(matchID)))
	}

	return id, rcv.ch
}

// Unsubscribe detaches the receiver and closes its channel. Idempotent; the
// match entry is pruned once its last receiver leaves.
func (h *Hub) Unsubscribe(id SubscriptionID) {
	if id == "" {
		return
	}
	h.mu.Lock()
	for matchID, receivers := range h.matches {
		if rcv, ok := receivers[id]; ok {
			delete(receivers, id)
			if len(receivers) == 0 {
				delete(h.matches, matchID)
			}
			h.mu.Unlock()
			if h.subscriberGauge != nil {
				h.subscriberGauge.Add(context.Background(), -1, metric.WithAttributes(telemetry.AttrMatchID.String(matchID)))
			}
			rcv.close()
			return
		}
	}
	h.mu.Unlock()
}

// Broadcast fans msg out to every receiver attached to the match. Messages
// for matches with no receivers are dropped silently. Delivery never blocks:
// a full receiver loses its oldest undelivered message instead.
//
// Delivery happens under the read lock: Unsubscribe closes receiver channels
// only after removing them under the write lock, so a send can never race a
// close. Sends are non-blocking, so the lock is held only briefly.
func (h *Hub) Broadcast(ctx context.Context, matchID string, msg *schema.ServerMessage) {
	h.mu.RLock()
	subMap := h.matches[matchID]
	n := len(subMap)
	for _, rcv := range subMap {
		h.deliver(ctx, matchID, rcv, msg)
	}
	h.mu.RUnlock()

	if h.fanoutHistogram != nil {
		h.fanoutHistogram.Record(ctx, int64(n), metric.WithAttributes(
			telemetry.AttrMatchID.String(matchID),
			telemetry.AttrFrameType.String(msg.Type)))
	}
	if n == 0 {
		return
	}

	if h.publishedCounter != nil {
		h.publishedCounter.Add(ctx, 1, metric.WithAttributes(
			telemetry.AttrMatchID.String(matchID),
			telemetry.AttrFrameType.String(msg.Type)))
	}
}

func (h *Hub) deliver(ctx context.Context, matchID string, rcv *receiver, msg *schema.ServerMessage) {
	select {
	case rcv.ch <- msg:
		return
	default:
	}

	// Receiver buffer full: drop the oldest undelivered message and retry once.
	select {
	case <-rcv.ch:
	default:
	}
	h.log.Debugf("hub: receiver lagging on match %s; dropped oldest %s", matchID, msg.Type)
	if h.droppedCounter != nil {
		h.droppedCounter.Add(ctx, 1, metric.WithAttributes(
			telemetry.AttrMatchID.String(matchID),
			telemetry.AttrFrameType.String(msg.Type)))
	}
	select {
	case rcv.ch <- msg:
	default:
	}
}

// Subscribers reports the number of receivers currently attached to a match.
func (h *Hub) Subscribers(matchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.matches[matchID])
}
