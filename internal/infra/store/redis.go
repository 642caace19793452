// Package store implements the upstream adapter over the Redis-compatible
// key-value and pub/sub store that holds authoritative match state.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/crickstream/gateway/internal/domain/errs"
	"github.com/crickstream/gateway/internal/domain/schema"
	"github.com/crickstream/gateway/internal/infra/logging"
	"github.com/crickstream/gateway/internal/infra/telemetry"
)

const (
	// Bounded retry for individual read operations over transient store errors.
	readMaxAttempts = 3
	readRetryDelay  = 100 * time.Millisecond

	// Key layout consumed by the gateway.
	scoreKeyPattern = "match:*:score"
	scanPageSize    = 100

	// NotificationPattern is the wildcard pub/sub channel the ingestion
	// pipeline publishes match update notifications on.
	NotificationPattern = "match_updates:*"
)

func infoKey(matchID string) string { return fmt.Sprintf("match:%s:info", matchID) }

func scoreKey(matchID string) string { return fmt.Sprintf("match:%s:score", matchID) }

func scorecardKey(matchID string, inning uint8) string {
	return fmt.Sprintf("match:%s:scorecard:%d", matchID, inning)
}

// Store wraps the upstream connection and exposes snapshot reads plus the
// notification subscription.
type Store struct {
	client *redis.Client
	log    *logging.Logger

	opsCounter   metric.Int64Counter
	errorCounter metric.Int64Counter
}

// New creates a store over the given connection URL. The connection is lazy;
// call Ping to verify reachability.
func New(redisURL string, log *logging.Logger) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errs.New("store/connect", errs.CodeInvalid,
			errs.WithMessage(fmt.Sprintf("invalid store URL %q", redisURL)), errs.WithCause(err))
	}

	s := &Store{
		client: redis.NewClient(opts),
		log:    log,
	}

	meter := otel.Meter("store")
	s.opsCounter, _ = meter.Int64Counter("store.ops",
		metric.WithDescription("Number of store operations executed"),
		metric.WithUnit("{operation}"))
	s.errorCounter, _ = meter.Int64Counter("store.errors",
		metric.WithDescription("Number of store operations that failed after retries"),
		metric.WithUnit("{error}"))

	return s, nil
}

// Ping verifies that the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return errs.New("store/ping", errs.CodeNetwork,
			errs.WithMessage("store unreachable"), errs.WithCause(err))
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.client.Close() }

// ListLiveMatches enumerates match:*:score keys with an incremental cursor
// scan and returns a summary for every match whose status is live.
func (s *Store) ListLiveMatches(ctx context.Context) ([]schema.MatchSummary, error) {
	return retryRead(ctx, s, "list_live_matches", func() ([]schema.MatchSummary, error) {
		keys, err := s.scanScoreKeys(ctx)
		if err != nil {
			return nil, err
		}

		matches := make([]schema.MatchSummary, 0, len(keys))
		for _, key := range keys {
			parts := strings.Split(key, ":")
			if len(parts) != 3 {
				continue
			}
			matchID := parts[1]

			scoreHash, err := s.client.HGetAll(ctx, key).Result()
			if err != nil {
				return nil, fmt.Errorf("read score hash %s: %w", key, err)
			}
			if !schema.IsLiveStatus(scoreHash["match_status"]) {
				continue
			}

			infoHash, err := s.client.HGetAll(ctx, infoKey(matchID)).Result()
			if err != nil {
				return nil, fmt.Errorf("read info hash for %s: %w", matchID, err)
			}

			matches = append(matches, buildSummary(matchID, scoreHash, infoHash))
		}

		s.log.Debugf("found %d live matches", len(matches))
		return matches, nil
	})
}

// FullMatchState reads the info, score and both scorecards for a match.
// A match without an info hash does not exist.
func (s *Store) FullMatchState(ctx context.Context, matchID string) (*schema.FullMatchState, error) {
	return retryRead(ctx, s, "full_match_state", func() (*schema.FullMatchState, error) {
		infoHash, err := s.client.HGetAll(ctx, infoKey(matchID)).Result()
		if err != nil {
			return nil, fmt.Errorf("read match info: %w", err)
		}
		if len(infoHash) == 0 {
			return nil, backoff.Permanent(errs.New("store/full_match_state", errs.CodeNotFound,
				errs.WithMessage(fmt.Sprintf("match not found: %s", matchID)), errs.WithMatch(matchID)))
		}

		scoreHash, err := s.client.HGetAll(ctx, scoreKey(matchID)).Result()
		if err != nil {
			return nil, fmt.Errorf("read match score: %w", err)
		}

		state := &schema.FullMatchState{
			MatchID: matchID,
			Info:    schema.MatchInfoFromHash(infoHash),
			Score:   schema.LiveScoreFromHash(scoreHash),
		}

		for _, inning := range []uint8{1, 2} {
			cardHash, err := s.client.HGetAll(ctx, scorecardKey(matchID, inning)).Result()
			if err != nil {
				return nil, fmt.Errorf("read scorecard %d: %w", inning, err)
			}
			if len(cardHash) == 0 {
				continue
			}
			card := schema.ScorecardFromHash(cardHash)
			if inning == 1 {
				state.ScorecardInn1 = &card
			} else {
				state.ScorecardInn2 = &card
			}
		}

		return state, nil
	})
}

// LiveScore reads and parses the score hash for a match. Missing fields
// default per the schema contract; a missing hash parses to a zero score.
func (s *Store) LiveScore(ctx context.Context, matchID string) (*schema.LiveScore, error) {
	return retryRead(ctx, s, "live_score", func() (*schema.LiveScore, error) {
		scoreHash, err := s.client.HGetAll(ctx, scoreKey(matchID)).Result()
		if err != nil {
			return nil, fmt.Errorf("read match score: %w", err)
		}
		score := schema.LiveScoreFromHash(scoreHash)
		return &score, nil
	})
}

// Scorecard reads the per-inning scorecard hash. An empty hash means no
// scorecard yet and yields nil without error.
func (s *Store) Scorecard(ctx context.Context, matchID string, inning uint8) (*schema.Scorecard, error) {
	return retryRead(ctx, s, "scorecard", func() (*schema.Scorecard, error) {
		cardHash, err := s.client.HGetAll(ctx, scorecardKey(matchID, inning)).Result()
		if err != nil {
			return nil, fmt.Errorf("read scorecard %d: %w", inning, err)
		}
		if len(cardHash) == 0 {
			return nil, nil
		}
		card := schema.ScorecardFromHash(cardHash)
		return &card, nil
	})
}

func (s *Store) scanScoreKeys(ctx context.Context) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		page, next, err := s.client.Scan(ctx, cursor, scoreKeyPattern, scanPageSize).Result()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", scoreKeyPattern, err)
		}
		keys = append(keys, page...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

// buildSummary derives the two team-score strings by comparing the batting
// team to team_a_name. Both innings use the same derivation; the second
// inning intentionally does not consult the first-inning total.
func buildSummary(matchID string, scoreHash, infoHash map[string]string) schema.MatchSummary {
	runs := scoreHash["runs"]
	wickets := scoreHash["wickets"]
	battingScore := fmt.Sprintf("%s/%s", runs, wickets)

	teamAScore, teamBScore := "-", "-"
	if scoreHash["batting_team"] == infoHash["team_a_name"] {
		teamAScore = battingScore
	} else {
		teamBScore = battingScore
	}

	var stage *string
	if v, ok := infoHash["stage"]; ok {
		stage = &v
	}

	return schema.MatchSummary{
		MatchID:    matchID,
		TeamA:      infoHash["team_a_short"],
		TeamB:      infoHash["team_b_short"],
		TeamAScore: teamAScore,
		TeamBScore: teamBScore,
		Overs:      scoreHash["overs"],
		Status:     scoreHash["match_status"],
		Stage:      stage,
	}
}

// retryRead runs op under the bounded read-retry policy: transient failures
// are retried on a fixed delay and the last error is surfaced wrapped in the
// domain envelope. Permanent errors (e.g. match not found) short-circuit.
func retryRead[T any](ctx context.Context, s *Store, operation string, op func() (T, error)) (T, error) {
	attempt := 0
	result, err := backoff.Retry(ctx, func() (T, error) {
		attempt++
		out, opErr := op()
		if opErr != nil && attempt < readMaxAttempts {
			s.log.Warnf("store operation %s failed (attempt %d/%d): %v; retrying in %v",
				operation, attempt, readMaxAttempts, opErr, readRetryDelay)
		}
		return out, opErr
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(readRetryDelay)),
		backoff.WithMaxTries(readMaxAttempts),
	)

	resultTag := "success"
	if err != nil {
		resultTag = "error"
	}
	if s.opsCounter != nil {
		s.opsCounter.Add(ctx, 1, metric.WithAttributes(telemetry.OperationAttributes(operation, resultTag)...))
	}

	if err != nil {
		s.log.Errorf("store operation %s failed after %d attempts: %v", operation, attempt, err)
		if s.errorCounter != nil {
			s.errorCounter.Add(ctx, 1, metric.WithAttributes(telemetry.OperationAttributes(operation, "error")...))
		}
		var zero T
		if code := errs.CodeOf(err); code != "" {
			return zero, err
		}
		return zero, errs.New("store/"+operation, errs.CodeNetwork,
			errs.WithMessage(fmt.Sprintf("store operation %s failed", operation)), errs.WithCause(err))
	}
	return result, nil
}
