//go:build integration

package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ateneo/internal/ratelimit"
	"ateneo/pkg/testutil/containers"
)

type RedisLimiterSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	ctx   context.Context
}

func TestRedisLimiterSuite(t *testing.T) {
	suite.Run(t, new(RedisLimiterSuite))
}

func (s *RedisLimiterSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.ctx = context.Background()
}

func (s *RedisLimiterSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisLimiterSuite) TestAllowUpToLimit() {
	limiter := ratelimit.NewRedisLimiter(s.redis.Client, 3, time.Minute)

	for i := range 3 {
		res, err := limiter.Allow(s.ctx, "ip:1.2.3.4")
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.Equal(2-i, res.Remaining)
	}

	res, err := limiter.Allow(s.ctx, "ip:1.2.3.4")
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.True(res.ResetAt.After(time.Now()))

	res, err = limiter.Allow(s.ctx, "ip:5.6.7.8")
	s.Require().NoError(err)
	s.True(res.Allowed)
}

func (s *RedisLimiterSuite) TestWindowExpires() {
	limiter := ratelimit.NewRedisLimiter(s.redis.Client, 1, 200*time.Millisecond)

	res, err := limiter.Allow(s.ctx, "ip:expiring")
	s.Require().NoError(err)
	s.True(res.Allowed)

	res, err = limiter.Allow(s.ctx, "ip:expiring")
	s.Require().NoError(err)
	s.False(res.Allowed)

	s.Eventually(func() bool {
		res, err := limiter.Allow(s.ctx, "ip:expiring")
		return err == nil && res.Allowed
	}, 2*time.Second, 50*time.Millisecond)
}
