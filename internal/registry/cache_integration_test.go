//go:build integration

package registry_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"hirelane/internal/registry"
	"hirelane/pkg/testutil/containers"
)

// countingChecker is a programmable Existence backend that counts how often
// the cache falls through to it.
type countingChecker struct {
	mu     sync.Mutex
	truths map[string]bool
	calls  int
}

func (c *countingChecker) set(entityType registry.EntityType, entityID string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.truths == nil {
		c.truths = make(map[string]bool)
	}
	c.truths[string(entityType)+":"+entityID] = ok
}

func (c *countingChecker) Exists(_ context.Context, entityType registry.EntityType, entityID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.truths[string(entityType)+":"+entityID], nil
}

func (c *countingChecker) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type CachedRegistrySuite struct {
	suite.Suite
	redis   *containers.RedisContainer
	backend *countingChecker
	cached  *registry.Cached
}

func TestCachedRegistrySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(CachedRegistrySuite))
}

func (s *CachedRegistrySuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
}

func (s *CachedRegistrySuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.backend = &countingChecker{}
	s.cached = registry.NewCached(s.backend, s.redis.Client, 5*time.Minute, logger)
}

func (s *CachedRegistrySuite) TestPositiveAnswerIsCached() {
	ctx := context.Background()
	appID := uuid.NewString()
	s.backend.set(registry.EntityApplication, appID, true)

	ok, err := s.cached.Exists(ctx, registry.EntityApplication, appID)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(1, s.backend.callCount())

	ok, err = s.cached.Exists(ctx, registry.EntityApplication, appID)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(1, s.backend.callCount(), "second check should be served from the cache")
}

func (s *CachedRegistrySuite) TestNegativeAnswerIsRechecked() {
	ctx := context.Background()
	staffID := uuid.NewString()

	ok, err := s.cached.Exists(ctx, registry.EntityStaff, staffID)
	s.Require().NoError(err)
	s.False(ok)

	ok, err = s.cached.Exists(ctx, registry.EntityStaff, staffID)
	s.Require().NoError(err)
	s.False(ok)
	s.Equal(2, s.backend.callCount(), "misses must always reach the store")

	s.Run("entity appearing later is visible immediately", func() {
		s.backend.set(registry.EntityStaff, staffID, true)

		ok, err := s.cached.Exists(ctx, registry.EntityStaff, staffID)
		s.Require().NoError(err)
		s.True(ok)
		s.Equal(3, s.backend.callCount())
	})
}

func (s *CachedRegistrySuite) TestEntityTypesDoNotCollide() {
	ctx := context.Background()
	sharedID := uuid.NewString()
	s.backend.set(registry.EntityApplicant, sharedID, true)

	ok, err := s.cached.Exists(ctx, registry.EntityApplicant, sharedID)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.cached.Exists(ctx, registry.EntityPosting, sharedID)
	s.Require().NoError(err)
	s.False(ok, "a cached applicant must not satisfy a posting check")
}

func (s *CachedRegistrySuite) TestStaleHitExpiresWithTTL() {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	shortLived := registry.NewCached(s.backend, s.redis.Client, 100*time.Millisecond, logger)

	postingID := uuid.NewString()
	s.backend.set(registry.EntityPosting, postingID, true)

	ok, err := shortLived.Exists(ctx, registry.EntityPosting, postingID)
	s.Require().NoError(err)
	s.True(ok)

	// The posting closes; the cache serves the stale hit until the TTL
	// bounds it.
	s.backend.set(registry.EntityPosting, postingID, false)

	ok, err = shortLived.Exists(ctx, registry.EntityPosting, postingID)
	s.Require().NoError(err)
	s.True(ok, "inside the TTL the stale hit is expected")

	time.Sleep(150 * time.Millisecond)

	ok, err = shortLived.Exists(ctx, registry.EntityPosting, postingID)
	s.Require().NoError(err)
	s.False(ok, "after the TTL the closed posting must be gone")
}
