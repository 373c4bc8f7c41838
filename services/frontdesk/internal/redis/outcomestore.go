package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/go-redis/redis/v8"

	"github.com/appetiteclub/frontdesk/services/frontdesk/internal/frontdesk"
)

const (
	keyPrefix            = "frontdesk:outcomes:"
	defaultRetention     = 7 * 24 * time.Hour
	defaultMaxPerSession = 50
)

// OutcomeStore keeps each session's submit outcomes in a capped Redis list,
// newest first, shared by every front desk replica.
type OutcomeStore struct {
	client    *redis.Client
	logger    apt.Logger
	config    *apt.Config
	retention time.Duration
	max       int64
}

func NewOutcomeStore(config *apt.Config, logger apt.Logger) *OutcomeStore {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &OutcomeStore{
		logger:    logger,
		config:    config,
		retention: defaultRetention,
		max:       defaultMaxPerSession,
	}
}

func (s *OutcomeStore) Start(ctx context.Context) error {
	addr := s.config.GetStringOrDef("db.redis.addr", "localhost:6379")
	password := s.config.GetStringOrDef("db.redis.password", "")

	retention, err := time.ParseDuration(s.config.GetStringOrDef("db.redis.retention", defaultRetention.String()))
	if err != nil {
		return fmt.Errorf("invalid db.redis.retention: %w", err)
	}
	s.retention = retention

	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DialTimeout: 10 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("cannot ping Redis: %w", err)
	}

	s.client = client
	s.logger.Infof("Connected to Redis: %s", addr)
	return nil
}

func (s *OutcomeStore) Stop(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("cannot close Redis client: %w", err)
	}
	s.logger.Info("Disconnected from Redis")
	return nil
}

func (s *OutcomeStore) Save(ctx context.Context, outcome *frontdesk.Outcome) error {
	if outcome == nil {
		return fmt.Errorf("outcome is nil")
	}

	data, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("cannot marshal outcome: %w", err)
	}

	key := keyPrefix + outcome.SessionID
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, s.max-1)
	pipe.Expire(ctx, key, s.retention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cannot save outcome: %w", err)
	}
	return nil
}

func (s *OutcomeStore) ListBySession(ctx context.Context, sessionID string, limit int) ([]*frontdesk.Outcome, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	values, err := s.client.LRange(ctx, keyPrefix+sessionID, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("cannot list outcomes: %w", err)
	}

	result := make([]*frontdesk.Outcome, 0, len(values))
	for _, v := range values {
		var o frontdesk.Outcome
		if err := json.Unmarshal([]byte(v), &o); err != nil {
			s.logger.Error("skipping unreadable outcome", "session_id", sessionID, "error", err)
			continue
		}
		// the session id is not part of the JSON form
		o.SessionID = sessionID
		result = append(result, &o)
	}
	return result, nil
}

var _ frontdesk.OutcomeStore = (*OutcomeStore)(nil)
