package schema

import (
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/crickstream/gateway/internal/domain/errs"
)

// Client command actions.
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// Server frame type tags.
const (
	FrameFullState       = "full_state"
	FrameScoreUpdate     = "score_update"
	FrameScorecardUpdate = "scorecard_update"
	FrameError           = "error"
)

// ClientMessage is an inbound text frame: {"action": "...", "match_id": "..."}.
type ClientMessage struct {
	Action  string `json:"action"`
	MatchID string `json:"match_id"`
}

// ParseClientMessage decodes and validates an inbound text frame.
func ParseClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, errs.New("session/parse", errs.CodeInvalid,
			errs.WithMessage(fmt.Sprintf("invalid JSON message: %v", err)), errs.WithCause(err))
	}
	switch msg.Action {
	case ActionSubscribe, ActionUnsubscribe:
	default:
		return ClientMessage{}, errs.New("session/parse", errs.CodeInvalid,
			errs.WithMessage(fmt.Sprintf("unknown action %q", msg.Action)))
	}
	if msg.MatchID == "" {
		return ClientMessage{}, errs.New("session/parse", errs.CodeInvalid,
			errs.WithMessage("match_id required"))
	}
	return msg, nil
}

// ServerMessage is an outbound frame tagged by Type. Exactly one of the data
// fields is populated according to the tag.
type ServerMessage struct {
	Type      string          `json:"type"`
	FullState *FullMatchState `json:"data,omitempty"`
	Score     *LiveScore      `json:"-"`
	Scorecard *Scorecard      `json:"-"`
	Inning    uint8           `json:"inning,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// NewFullState wraps a hydration snapshot.
func NewFullState(state *FullMatchState) *ServerMessage {
	return &ServerMessage{Type: FrameFullState, FullState: state}
}

// NewScoreUpdate wraps a live-score delta.
func NewScoreUpdate(score *LiveScore) *ServerMessage {
	return &ServerMessage{Type: FrameScoreUpdate, Score: score}
}

// NewScorecardUpdate wraps a per-inning scorecard delta.
func NewScorecardUpdate(card *Scorecard, inning uint8) *ServerMessage {
	return &ServerMessage{Type: FrameScorecardUpdate, Scorecard: card, Inning: inning}
}

// NewError wraps a client-visible error frame.
func NewError(message string) *ServerMessage {
	return &ServerMessage{Type: FrameError, Message: message}
}

// MarshalJSON renders the tagged union: the data field carries whichever
// payload matches the type tag.
func (m *ServerMessage) MarshalJSON() ([]byte, error) {
	switch m.Type {
	case FrameFullState:
		return json.Marshal(struct {
			Type string          `json:"type"`
			Data *FullMatchState `json:"data"`
		}{m.Type, m.FullState})
	case FrameScoreUpdate:
		return json.Marshal(struct {
			Type string     `json:"type"`
			Data *LiveScore `json:"data"`
		}{m.Type, m.Score})
	case FrameScorecardUpdate:
		return json.Marshal(struct {
			Type   string     `json:"type"`
			Data   *Scorecard `json:"data"`
			Inning uint8      `json:"inning"`
		}{m.Type, m.Scorecard, m.Inning})
	case FrameError:
		return json.Marshal(struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		}{m.Type, m.Message})
	default:
		return nil, fmt.Errorf("schema: unknown server message type %q", m.Type)
	}
}
