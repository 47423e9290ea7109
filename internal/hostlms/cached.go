package hostlms

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/openlearnhq/learning-paths/pkg/enums"
	"github.com/openlearnhq/learning-paths/pkg/logger"
	"github.com/openlearnhq/learning-paths/pkg/redis"
)

// CachedClient decorates a host client with a short-lived redis cache on the
// read paths that get hammered by path-level grade aggregation. Writes pass
// through and invalidate nothing; the TTL bounds staleness.
type CachedClient struct {
	inner Client
	cache *redis.Client
	ttl   time.Duration
	logg  *logger.Logger
}

func NewCachedClient(inner Client, cache *redis.Client, ttl time.Duration, logg *logger.Logger) *CachedClient {
	return &CachedClient{inner: inner, cache: cache, ttl: ttl, logg: logg}
}

func (c *CachedClient) EnrollUserInCourse(ctx context.Context, username, courseKey string, mode enums.EnrollmentMode) (bool, error) {
	return c.inner.EnrollUserInCourse(ctx, username, courseKey, mode)
}

func (c *CachedClient) UnenrollUserFromCourse(ctx context.Context, username, courseKey string) error {
	return c.inner.UnenrollUserFromCourse(ctx, username, courseKey)
}

func (c *CachedClient) CourseGrade(ctx context.Context, username, courseKey string) (Grade, error) {
	key := c.cache.GradeKey(username, courseKey)
	if cached, err := c.cache.Get(ctx, key); err == nil {
		if grade, ok := decodeGrade(cached); ok {
			return grade, nil
		}
	} else if !errors.Is(err, redis.ErrCacheMiss) && c.logg != nil {
		c.logg.Warn(ctx, "grade cache read failed")
	}

	grade, err := c.inner.CourseGrade(ctx, username, courseKey)
	if err != nil {
		return Grade{}, err
	}
	if setErr := c.cache.Set(ctx, key, encodeGrade(grade), c.ttl); setErr != nil && c.logg != nil {
		c.logg.Warn(ctx, "grade cache write failed")
	}
	return grade, nil
}

func (c *CachedClient) CourseCompletionPercent(ctx context.Context, username, courseKey string) (float64, error) {
	key := c.cache.CompletionKey(username, courseKey)
	if cached, err := c.cache.Get(ctx, key); err == nil {
		if percent, parseErr := strconv.ParseFloat(cached, 64); parseErr == nil {
			return percent, nil
		}
	} else if !errors.Is(err, redis.ErrCacheMiss) && c.logg != nil {
		c.logg.Warn(ctx, "completion cache read failed")
	}

	percent, err := c.inner.CourseCompletionPercent(ctx, username, courseKey)
	if err != nil {
		return 0, err
	}
	encoded := strconv.FormatFloat(percent, 'f', -1, 64)
	if setErr := c.cache.Set(ctx, key, encoded, c.ttl); setErr != nil && c.logg != nil {
		c.logg.Warn(ctx, "completion cache write failed")
	}
	return percent, nil
}

func (c *CachedClient) FulfillMilestone(ctx context.Context, username, courseKey string) error {
	return c.inner.FulfillMilestone(ctx, username, courseKey)
}

func encodeGrade(grade Grade) string {
	passed := "0"
	if grade.Passed {
		passed = "1"
	}
	return strconv.FormatFloat(grade.Percent, 'f', -1, 64) + "|" + passed
}

func decodeGrade(encoded string) (Grade, bool) {
	for i := len(encoded) - 1; i >= 0; i-- {
		if encoded[i] == '|' {
			percent, err := strconv.ParseFloat(encoded[:i], 64)
			if err != nil {
				return Grade{}, false
			}
			return Grade{Percent: percent, Passed: encoded[i+1:] == "1"}, true
		}
	}
	return Grade{}, false
}
