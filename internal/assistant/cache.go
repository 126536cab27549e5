package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CachedSummarizer keeps summaries in redis for ttl. Redis failures are logged and
// the request falls through to the wrapped Summarizer.
type CachedSummarizer struct {
	next   Summarizer
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func NewCachedSummarizer(next Summarizer, client *redis.Client, ttl time.Duration, logger zerolog.Logger) *CachedSummarizer {
	if client == nil {
		panic("assistant: redis client cannot be nil")
	}
	return &CachedSummarizer{next: next, redis: client, ttl: ttl, logger: logger}
}

func (c *CachedSummarizer) Summarize(ctx context.Context, patientID uuid.UUID) (*Summary, error) {
	key := summaryKey(patientID)

	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var s Summary
		if jerr := json.Unmarshal(data, &s); jerr == nil {
			return &s, nil
		}
		c.logger.Warn().Str("key", key).Msg("discarding undecodable cached summary")
	case !errors.Is(err, redis.Nil):
		c.logger.Warn().Err(err).Str("key", key).Msg("summary cache read failed")
	}

	s, err := c.next.Summarize(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if err := c.store(ctx, key, s); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("summary cache write failed")
	}
	return s, nil
}

// Invalidate drops the cached summary of a patient.
func (c *CachedSummarizer) Invalidate(ctx context.Context, patientID uuid.UUID) error {
	if err := c.redis.Del(ctx, summaryKey(patientID)).Err(); err != nil {
		return fmt.Errorf("assistant: invalidate summary: %w", err)
	}
	return nil
}

func (c *CachedSummarizer) store(ctx context.Context, key string, s *Summary) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("assistant: marshal summary: %w", err)
	}
	return c.redis.Set(ctx, key, data, c.ttl).Err()
}

func summaryKey(patientID uuid.UUID) string {
	return fmt.Sprintf("assistant:summary:%s", patientID)
}
