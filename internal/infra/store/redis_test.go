package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/crickstream/gateway/internal/domain/errs"
	"github.com/crickstream/gateway/internal/infra/logging"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	st, err := New("redis://"+mr.Addr(), logging.New("store-test ", logging.LevelError))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	return st, mr
}

func seedLiveMatch(t *testing.T, mr *miniredis.Miniredis, matchID string) {
	t.Helper()
	mr.HSet("match:"+matchID+":score",
		"match_status", "Live",
		"runs", "45",
		"wickets", "2",
		"overs", "6.3",
		"batting_team", "India",
		"current_inning", "1")
	mr.HSet("match:"+matchID+":info",
		"team_a_name", "India",
		"team_a_short", "IND",
		"team_b_name", "Australia",
		"team_b_short", "AUS")
}

func TestListLiveMatchesShape(t *testing.T) {
	st, mr := setupTestStore(t)
	seedLiveMatch(t, mr, "X")

	matches, err := st.ListLiveMatches(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}

	m := matches[0]
	if m.MatchID != "X" {
		t.Errorf("match_id = %q", m.MatchID)
	}
	if m.TeamA != "IND" || m.TeamB != "AUS" {
		t.Errorf("teams = %q/%q", m.TeamA, m.TeamB)
	}
	if m.TeamAScore != "45/2" {
		t.Errorf("team_a_score = %q", m.TeamAScore)
	}
	if m.TeamBScore != "-" {
		t.Errorf("team_b_score = %q", m.TeamBScore)
	}
	if m.Overs != "6.3" || m.Status != "Live" {
		t.Errorf("overs/status = %q/%q", m.Overs, m.Status)
	}
	if m.Stage != nil {
		t.Errorf("stage = %v", m.Stage)
	}
}

func TestListLiveMatchesBowlingSideGetsDash(t *testing.T) {
	st, mr := setupTestStore(t)
	seedLiveMatch(t, mr, "X")
	mr.HSet("match:X:score", "batting_team", "Australia")

	matches, err := st.ListLiveMatches(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if matches[0].TeamAScore != "-" || matches[0].TeamBScore != "45/2" {
		t.Errorf("scores = %q/%q", matches[0].TeamAScore, matches[0].TeamBScore)
	}
}

func TestListLiveMatchesSkipsNonLive(t *testing.T) {
	st, mr := setupTestStore(t)
	seedLiveMatch(t, mr, "X")
	mr.HSet("match:Y:score", "match_status", "completed", "runs", "200")
	mr.HSet("match:Y:info", "team_a_short", "ENG")

	matches, err := st.ListLiveMatches(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 || matches[0].MatchID != "X" {
		t.Errorf("expected only live match X, got %+v", matches)
	}
}

func TestListLiveMatchesAcceptsAllLiveStatuses(t *testing.T) {
	st, mr := setupTestStore(t)
	for i, status := range []string{"Live", "in_progress", "active"} {
		id := string(rune('A' + i))
		seedLiveMatch(t, mr, id)
		mr.HSet("match:"+id+":score", "match_status", status)
	}

	matches, err := st.ListLiveMatches(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 3 {
		t.Errorf("expected 3 live matches, got %d", len(matches))
	}
}

func TestFullMatchStateNotFound(t *testing.T) {
	st, _ := setupTestStore(t)

	_, err := st.FullMatchState(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errs.IsNotFound(err) {
		t.Errorf("expected not_found, got %v", err)
	}
}

func TestFullMatchStateWithScorecards(t *testing.T) {
	st, mr := setupTestStore(t)
	seedLiveMatch(t, mr, "X")
	mr.HSet("match:X:scorecard:1",
		"batsmen", `{"p1":{"name":"Rohit","runs":30,"balls":22,"fours":4,"sixes":1,"strike_rate":136.4,"status":"out"}}`,
		"bowlers", `{}`)

	state, err := st.FullMatchState(context.Background(), "X")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.MatchID != "X" {
		t.Errorf("match_id = %q", state.MatchID)
	}
	if state.Info.TeamAName != "India" {
		t.Errorf("info = %+v", state.Info)
	}
	if state.Score.Runs != 45 || state.Score.Wickets != 2 {
		t.Errorf("score = %+v", state.Score)
	}
	if state.ScorecardInn1 == nil {
		t.Fatal("expected inning 1 scorecard")
	}
	if state.ScorecardInn1.Batsmen["p1"].Name != "Rohit" {
		t.Errorf("batsmen = %+v", state.ScorecardInn1.Batsmen)
	}
	if state.ScorecardInn2 != nil {
		t.Error("expected no inning 2 scorecard")
	}
}

func TestLiveScoreMissingHashDefaults(t *testing.T) {
	st, _ := setupTestStore(t)

	score, err := st.LiveScore(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score.Runs != 0 || score.CurrentInning != "1" || score.Commentary != "[]" {
		t.Errorf("unexpected defaults %+v", score)
	}
}

func TestScorecardEmptyMeansNone(t *testing.T) {
	st, _ := setupTestStore(t)

	card, err := st.Scorecard(context.Background(), "X", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if card != nil {
		t.Errorf("expected nil scorecard, got %+v", card)
	}
}

func TestReadSurfacesTransientErrorAfterRetries(t *testing.T) {
	st, mr := setupTestStore(t)
	mr.Close()

	start := time.Now()
	_, err := st.ListLiveMatches(context.Background())
	if err == nil {
		t.Fatal("expected error against a dead store")
	}
	if !errs.IsTransient(err) {
		t.Errorf("expected network code, got %v", err)
	}
	// Three attempts with 100ms fixed spacing between them.
	if elapsed := time.Since(start); elapsed < 200*time.Millisecond {
		t.Errorf("expected bounded retries before surfacing, took %v", elapsed)
	}
}

func TestSubscribeNotificationsYieldsChannelNames(t *testing.T) {
	st, mr := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := st.SubscribeNotifications(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer func() { _ = sub.Close() }()

	mr.Publish("match_updates:X", "1")

	select {
	case name := <-sub.Names():
		if name != "match_updates:X" {
			t.Errorf("channel name = %q", name)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestSubscribeNotificationsClosesOnCancel(t *testing.T) {
	st, _ := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := st.SubscribeNotifications(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	cancel()

	select {
	case _, open := <-sub.Names():
		if open {
			t.Error("expected closed names channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("names channel did not close after cancel")
	}
}

func TestNewRejectsInvalidURL(t *testing.T) {
	_, err := New("://bad", logging.New("store-test ", logging.LevelError))
	if err == nil {
		t.Fatal("expected error for invalid URL")
	}
}
