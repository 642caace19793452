// Package schema defines the match data model and the WebSocket wire frames.
package schema

import (
	"strconv"

	json "github.com/goccy/go-json"
)

// Match status values the gateway treats as live.
const (
	StatusLive       = "Live"
	StatusInProgress = "in_progress"
	StatusActive     = "active"
)

// IsLiveStatus reports whether a match_status value denotes a live match.
func IsLiveStatus(status string) bool {
	switch status {
	case StatusLive, StatusInProgress, StatusActive:
		return true
	default:
		return false
	}
}

// MatchInfo holds the static per-match descriptor stored under match:{id}:info.
type MatchInfo struct {
	TeamAName    string  `json:"team_a_name"`
	TeamAShort   string  `json:"team_a_short"`
	TeamBName    string  `json:"team_b_name"`
	TeamBShort   string  `json:"team_b_short"`
	Venue        string  `json:"venue"`
	MatchType    string  `json:"match_type"`
	Date         string  `json:"date"`
	TossWinner   *string `json:"toss_winner"`
	TossDecision *string `json:"toss_decision"`
	Stage        *string `json:"stage"`
	GroupID      *string `json:"group_id"`
}

// LiveScore is the per-ball snapshot stored under match:{id}:score.
// Numeric fields are parsed from string-valued hash fields; overs and run
// rates stay preformatted strings by contract.
type LiveScore struct {
	CurrentInning   string  `json:"current_inning"`
	BattingTeam     string  `json:"batting_team"`
	BowlingTeam     string  `json:"bowling_team"`
	Runs            uint32  `json:"runs"`
	Wickets         uint8   `json:"wickets"`
	Overs           string  `json:"overs"`
	Target          *uint32 `json:"target"`
	StrikerID       string  `json:"striker_id"`
	StrikerName     string  `json:"striker_name"`
	NonStrikerID    string  `json:"non_striker_id"`
	NonStrikerName  string  `json:"non_striker_name"`
	BowlerID        string  `json:"bowler_id"`
	BowlerName      string  `json:"bowler_name"`
	StrikerRuns     uint32  `json:"striker_runs"`
	StrikerBalls    uint32  `json:"striker_balls"`
	StrikerFours    uint8   `json:"striker_fours"`
	StrikerSixes    uint8   `json:"striker_sixes"`
	NonStrikerRuns  uint32  `json:"non_striker_runs"`
	NonStrikerBalls uint32  `json:"non_striker_balls"`
	NonStrikerFours uint8   `json:"non_striker_fours"`
	NonStrikerSixes uint8   `json:"non_striker_sixes"`
	BowlerOvers     string  `json:"bowler_overs"`
	BowlerRuns      uint32  `json:"bowler_runs"`
	BowlerWickets   uint8   `json:"bowler_wickets"`
	BowlerMaidens   uint8   `json:"bowler_maidens"`
	LastBall        string  `json:"last_ball"`
	LastCommentary  string  `json:"last_commentary"`
	Commentary      string  `json:"commentary"`
	RunRate         string  `json:"run_rate"`
	ReqRunRate      *string `json:"req_run_rate"`
	MatchStatus     string  `json:"match_status"`
}

// BatsmanStats describes a single batsman line in a scorecard.
type BatsmanStats struct {
	Name       string  `json:"name"`
	Runs       uint32  `json:"runs"`
	Balls      uint32  `json:"balls"`
	Fours      uint8   `json:"fours"`
	Sixes      uint8   `json:"sixes"`
	StrikeRate float32 `json:"strike_rate"`
	Status     string  `json:"status"`
}

// BowlerStats describes a single bowler line in a scorecard.
type BowlerStats struct {
	Name    string  `json:"name"`
	Overs   string  `json:"overs"`
	Maidens uint8   `json:"maidens"`
	Runs    uint32  `json:"runs"`
	Wickets uint8   `json:"wickets"`
	Economy float32 `json:"economy"`
}

// Scorecard aggregates one inning, keyed by player id.
type Scorecard struct {
	Batsmen map[string]BatsmanStats `json:"batsmen"`
	Bowlers map[string]BowlerStats  `json:"bowlers"`
}

// FullMatchState is the hydration snapshot sent on a successful subscribe.
type FullMatchState struct {
	MatchID       string     `json:"match_id"`
	Info          MatchInfo  `json:"info"`
	Score         LiveScore  `json:"score"`
	ScorecardInn1 *Scorecard `json:"scorecard_inn_1"`
	ScorecardInn2 *Scorecard `json:"scorecard_inn_2"`
}

// MatchSummary is a compact live-list entry.
type MatchSummary struct {
	MatchID    string  `json:"match_id"`
	TeamA      string  `json:"team_a"`
	TeamB      string  `json:"team_b"`
	TeamAScore string  `json:"team_a_score"`
	TeamBScore string  `json:"team_b_score"`
	Overs      string  `json:"overs"`
	Status     string  `json:"status"`
	Stage      *string `json:"stage"`
}

// MatchInfoFromHash builds a MatchInfo from a string-valued store hash.
// Missing fields default to empty strings; optional fields to nil.
func MatchInfoFromHash(hash map[string]string) MatchInfo {
	return MatchInfo{
		TeamAName:    hash["team_a_name"],
		TeamAShort:   hash["team_a_short"],
		TeamBName:    hash["team_b_name"],
		TeamBShort:   hash["team_b_short"],
		Venue:        hash["venue"],
		MatchType:    hash["match_type"],
		Date:         hash["date"],
		TossWinner:   optString(hash, "toss_winner"),
		TossDecision: optString(hash, "toss_decision"),
		Stage:        optString(hash, "stage"),
		GroupID:      optString(hash, "group_id"),
	}
}

// LiveScoreFromHash builds a LiveScore from a string-valued store hash.
// Absent numeric fields parse to zero, absent strings to empty; the
// commentary blob defaults to an empty JSON array and current_inning to "1".
func LiveScoreFromHash(hash map[string]string) LiveScore {
	score := LiveScore{
		CurrentInning:   hashOr(hash, "current_inning", "1"),
		BattingTeam:     hash["batting_team"],
		BowlingTeam:     hash["bowling_team"],
		Runs:            hashUint32(hash, "runs"),
		Wickets:         hashUint8(hash, "wickets"),
		Overs:           hash["overs"],
		Target:          optUint32(hash, "target"),
		StrikerID:       hash["striker_id"],
		StrikerName:     hash["striker_name"],
		NonStrikerID:    hash["non_striker_id"],
		NonStrikerName:  hash["non_striker_name"],
		BowlerID:        hash["bowler_id"],
		BowlerName:      hash["bowler_name"],
		StrikerRuns:     hashUint32(hash, "striker_runs"),
		StrikerBalls:    hashUint32(hash, "striker_balls"),
		StrikerFours:    hashUint8(hash, "striker_fours"),
		StrikerSixes:    hashUint8(hash, "striker_sixes"),
		NonStrikerRuns:  hashUint32(hash, "non_striker_runs"),
		NonStrikerBalls: hashUint32(hash, "non_striker_balls"),
		NonStrikerFours: hashUint8(hash, "non_striker_fours"),
		NonStrikerSixes: hashUint8(hash, "non_striker_sixes"),
		BowlerOvers:     hash["bowler_overs"],
		BowlerRuns:      hashUint32(hash, "bowler_runs"),
		BowlerWickets:   hashUint8(hash, "bowler_wickets"),
		BowlerMaidens:   hashUint8(hash, "bowler_maidens"),
		LastBall:        hash["last_ball"],
		LastCommentary:  hash["last_commentary"],
		Commentary:      hashOr(hash, "commentary", "[]"),
		RunRate:         hash["run_rate"],
		ReqRunRate:      optString(hash, "req_run_rate"),
		MatchStatus:     hash["match_status"],
	}
	return score
}

// ScorecardFromHash builds a Scorecard from a store hash whose batsmen and
// bowlers fields each carry a JSON object string. Unparseable or missing
// blobs yield empty maps rather than errors.
func ScorecardFromHash(hash map[string]string) Scorecard {
	card := Scorecard{
		Batsmen: make(map[string]BatsmanStats),
		Bowlers: make(map[string]BowlerStats),
	}
	if raw, ok := hash["batsmen"]; ok {
		var batsmen map[string]BatsmanStats
		if err := json.Unmarshal([]byte(raw), &batsmen); err == nil && batsmen != nil {
			card.Batsmen = batsmen
		}
	}
	if raw, ok := hash["bowlers"]; ok {
		var bowlers map[string]BowlerStats
		if err := json.Unmarshal([]byte(raw), &bowlers); err == nil && bowlers != nil {
			card.Bowlers = bowlers
		}
	}
	return card
}

func hashOr(hash map[string]string, key, fallback string) string {
	if v, ok := hash[key]; ok && v != "" {
		return v
	}
	return fallback
}

func optString(hash map[string]string, key string) *string {
	if v, ok := hash[key]; ok {
		return &v
	}
	return nil
}

func hashUint32(hash map[string]string, key string) uint32 {
	v, err := strconv.ParseUint(hash[key], 10, 32)
	if err != nil {
		return 0
	}
	return uint32(v)
}

func hashUint8(hash map[string]string, key string) uint8 {
	v, err := strconv.ParseUint(hash[key], 10, 8)
	if err != nil {
		return 0
	}
	return uint8(v)
}

func optUint32(hash map[string]string, key string) *uint32 {
	raw, ok := hash[key]
	if !ok {
		return nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil
	}
	parsed := uint32(v)
	return &parsed
}
