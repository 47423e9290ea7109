package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openlearnhq/learning-paths/pkg/config"
)

func TestOptionsFromConfigRequiresEndpoint(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	assert.Error(t, err)
}

func TestOptionsFromConfigAddress(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{
		Address:  "localhost:6379",
		Password: "secret",
		DB:       2,
		PoolSize: 5,
	})
	assert.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 5, opts.PoolSize)
}

func TestOptionsFromConfigURL(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://:pw@cache:6380/3"})
	assert.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 3, opts.DB)
}

func TestCacheKeys(t *testing.T) {
	var c Client
	assert.Equal(t, "lp:grade:alice:course-v1:OLX+C1+R1", c.GradeKey("alice", "course-v1:OLX+C1+R1"))
	assert.Equal(t, "lp:completion:alice:course-v1:OLX+C1+R1", c.CompletionKey("alice", "course-v1:OLX+C1+R1"))
}
