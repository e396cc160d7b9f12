package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"qa-training-service/internal/domain"
)

// ProgressBackend is the primary persistence the shadow cache wraps.
type ProgressBackend interface {
	GetProgress(ctx context.Context, username, quizName string) (domain.Progress, bool, error)
	SaveProgress(ctx context.Context, username string, progress domain.Progress) error
	ResetProgress(ctx context.Context, username, quizName string) error
}

// ProgressCache shadows every progress record in Redis. Writes go through to
// the primary and mirror into the shadow best-effort; the shadow is consulted
// only when a primary read fails, never ahead of it. Keys follow
// progress:{username}:{quizName}.
type ProgressCache struct {
	primary ProgressBackend
	client  *redis.Client
	ttl     time.Duration
}

func NewProgressCache(primary ProgressBackend, client *redis.Client, ttl time.Duration) *ProgressCache {
	return &ProgressCache{primary: primary, client: client, ttl: ttl}
}

func (c *ProgressCache) GetProgress(ctx context.Context, username, quizName string) (domain.Progress, bool, error) {
	progress, found, err := c.primary.GetProgress(ctx, username, quizName)
	if err == nil {
		return progress, found, nil
	}

	raw, redisErr := c.client.Get(ctx, c.key(username, quizName)).Bytes()
	if redisErr != nil || len(raw) == 0 {
		return domain.Progress{}, false, err
	}
	var shadow domain.Progress
	if jsonErr := json.Unmarshal(raw, &shadow); jsonErr != nil {
		return domain.Progress{}, false, err
	}
	return shadow, true, nil
}

func (c *ProgressCache) SaveProgress(ctx context.Context, username string, progress domain.Progress) error {
	// Mirror first so a failed primary save still leaves the latest answer
	// recoverable through the fallback read path.
	if raw, err := json.Marshal(progress); err == nil {
		_ = c.client.Set(ctx, c.key(username, progress.QuizName), raw, c.ttl).Err()
	}
	return c.primary.SaveProgress(ctx, username, progress)
}

func (c *ProgressCache) ResetProgress(ctx context.Context, username, quizName string) error {
	if err := c.primary.ResetProgress(ctx, username, quizName); err != nil {
		return err
	}
	_ = c.client.Del(ctx, c.key(username, quizName)).Err()
	return nil
}

func (c *ProgressCache) key(username, quizName string) string {
	return "progress:" + username + ":" + quizName
}
