// Package session implements the per-connection WebSocket state machine that
// forwards hub broadcasts to a single client.
package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	json "github.com/goccy/go-json"

	"github.com/crickstream/gateway/internal/app/hub"
	"github.com/crickstream/gateway/internal/domain/errs"
	"github.com/crickstream/gateway/internal/domain/schema"
	"github.com/crickstream/gateway/internal/infra/logging"
	"github.com/crickstream/gateway/internal/infra/store"
)

const (
	readLimit      = 1 << 20 // 1 MiB
	writeTimeout   = 10 * time.Second
	outboundBuffer = 64
)

// Handler upgrades incoming requests to WebSocket client sessions.
type Handler struct {
	store *store.Store
	hub   *hub.Hub
	log   *logging.Logger
}

// NewHandler wires the session handler to its collaborators.
func NewHandler(st *store.Store, h *hub.Hub, log *logging.Logger) *Handler {
	return &Handler{store: st, hub: h, log: log}
}

// ServeHTTP upgrades the connection and runs the session until the client
// disconnects or the server shuts down. A panic inside one session is
// recovered here and never reaches other sessions.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Errorf("websocket upgrade failed: %v", err)
		return
	}

	sess := &Session{
		conn:  conn,
		store: h.store,
		hub:   h.hub,
		log:   h.log,
		out:   make(chan *schema.ServerMessage, outboundBuffer),
		subs:  make(map[string]hub.SubscriptionID),
	}

	defer func() {
		if rec := recover(); rec != nil {
			h.log.Errorf("session panicked: %v", rec)
		}
		sess.teardown()
	}()

	sess.run(r.Context())
}

// Session tracks one client connection: its subscription set, the hub
// receivers backing each subscription, and the single outbound writer.
type Session struct {
	conn  *websocket.Conn
	store *store.Store
	hub   *hub.Hub
	log   *logging.Logger

	out chan *schema.ServerMessage

	mu   sync.Mutex
	subs map[string]hub.SubscriptionID

	forwarders sync.WaitGroup
}

func (s *Session) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.conn.SetReadLimit(readLimit)

	var writers sync.WaitGroup
	writers.Add(1)
	go func() {
		defer writers.Done()
		s.writeLoop(ctx, cancel)
	}()

	s.readLoop(ctx)

	cancel()
	writers.Wait()
}

// readLoop consumes inbound frames until the connection terminates. The
// transport answers ping frames and handles close handshakes inside Read;
// non-text data frames are ignored.
func (s *Session) readLoop(ctx context.Context) {
	for {
		msgType, data, err := s.conn.Read(ctx)
		if err != nil {
			s.logReadTermination(err)
			return
		}
		if msgType != websocket.MessageText {
			continue
		}
		s.handleTextFrame(ctx, data)
	}
}

func (s *Session) logReadTermination(err error) {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, net.ErrClosed):
		s.log.Debugf("session read loop ended: %v", err)
	case websocket.CloseStatus(err) == websocket.StatusNormalClosure,
		websocket.CloseStatus(err) == websocket.StatusGoingAway:
		s.log.Infof("client closed connection")
	default:
		s.log.Errorf("websocket read error: %v", err)
	}
}

// handleTextFrame runs one inbound command. Malformed frames produce an
// error frame and keep the connection open.
func (s *Session) handleTextFrame(ctx context.Context, data []byte) {
	msg, err := schema.ParseClientMessage(data)
	if err != nil {
		s.log.Errorf("malformed client frame: %v", err)
		s.enqueue(ctx, schema.NewError(fmt.Sprintf("failed to process message: %s", clientText(err))))
		return
	}

	switch msg.Action {
	case schema.ActionSubscribe:
		s.subscribe(ctx, msg.MatchID)
	case schema.ActionUnsubscribe:
		s.unsubscribe(msg.MatchID)
	}
}

// subscribe records the subscription, attaches a hub receiver, and hydrates
// the client with a full snapshot. The receiver is attached before the
// snapshot read so no notification processed after this command is missed;
// its forwarder starts only after the snapshot (or error) frame is queued,
// so buffered deltas follow the acknowledgment.
func (s *Session) subscribe(ctx context.Context, matchID string) {
	s.log.Debugf("client subscribing to match %s", matchID)

	s.mu.Lock()
	_, already := s.subs[matchID]
	var (
		id hub.SubscriptionID
		ch <-chan *schema.ServerMessage
	)
	if !already {
		id, ch = s.hub.Subscribe(ctx, matchID)
		s.subs[matchID] = id
	}
	s.mu.Unlock()

	state, err := s.store.FullMatchState(ctx, matchID)
	if err != nil {
		s.log.Errorf("fetch match state for %s: %v", matchID, err)
		s.enqueue(ctx, schema.NewError(fmt.Sprintf("failed to get match state: %s", clientText(err))))
	} else {
		s.enqueue(ctx, schema.NewFullState(state))
		s.log.Infof("sent full state for match %s", matchID)
	}

	if !already {
		s.forwarders.Add(1)
		go s.forward(ctx, ch)
	}
}

// unsubscribe releases the subscription and its receiver. Idempotent.
func (s *Session) unsubscribe(matchID string) {
	s.mu.Lock()
	id, ok := s.subs[matchID]
	delete(s.subs, matchID)
	s.mu.Unlock()

	if ok {
		s.hub.Unsubscribe(id)
		s.log.Infof("client unsubscribed from match %s", matchID)
	}
}

// forward copies one hub receiver into the outbound queue. It exits when the
// receiver closes (unsubscribe or hub teardown) or the session ends. While
// the outbound queue is saturated the hub receiver absorbs lag and sheds its
// oldest messages, so a slow client only loses its own updates.
func (s *Session) forward(ctx context.Context, ch <-chan *schema.ServerMessage) {
	defer s.forwarders.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			s.enqueue(ctx, msg)
		}
	}
}

func (s *Session) enqueue(ctx context.Context, msg *schema.ServerMessage) {
	select {
	case s.out <- msg:
	case <-ctx.Done():
	}
}

// writeLoop is the only goroutine writing to the transport. A write failure
// terminates the session.
func (s *Session) writeLoop(ctx context.Context, cancel context.CancelFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-s.out:
			payload, err := json.Marshal(msg)
			if err != nil {
				s.log.Errorf("marshal outbound frame: %v", err)
				continue
			}
			writeCtx, done := context.WithTimeout(ctx, writeTimeout)
			err = s.conn.Write(writeCtx, websocket.MessageText, payload)
			done()
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					s.log.Errorf("websocket write error: %v", err)
				}
				cancel()
				return
			}
		}
	}
}

// teardown releases every hub receiver held by the session and closes the
// transport. Subscriptions are implicitly released on session destruction.
func (s *Session) teardown() {
	s.mu.Lock()
	ids := make([]hub.SubscriptionID, 0, len(s.subs))
	for matchID, id := range s.subs {
		ids = append(ids, id)
		delete(s.subs, matchID)
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.hub.Unsubscribe(id)
	}
	s.forwarders.Wait()

	_ = s.conn.Close(websocket.StatusNormalClosure, "")
	s.log.Debugf("session cleaned up")
}

// clientText extracts the human-readable message for a client-facing error
// frame; structured envelopes expose only their message text.
func clientText(err error) string {
	var e *errs.E
	if errors.As(err, &e) {
		return e.ClientMessage()
	}
	return err.Error()
}
