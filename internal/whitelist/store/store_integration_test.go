//go:build integration

package store_test

import (
	"context"
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"

	whitelistStore "salegate/internal/whitelist/store"
	id "salegate/pkg/domain"
	"salegate/pkg/testutil/containers"
)

type WhitelistStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	redis *containers.RedisContainer
	store *whitelistStore.Redis

	account id.Account
}

func TestWhitelistStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(WhitelistStoreSuite))
}

func (s *WhitelistStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.redis = containers.NewRedisContainer(s.T())
	s.store = whitelistStore.NewRedis(s.redis.Client, whitelistStore.NewPostgres(s.pg.DB))
	s.account = id.Account("0x1111111111111111111111111111111111111111")
}

func (s *WhitelistStoreSuite) TearDownSuite() {
	_ = s.pg.DB.Close()
	_ = s.pg.Container.Terminate(context.Background())
	_ = s.redis.Client.Close()
	_ = s.redis.Container.Terminate(context.Background())
}

func (s *WhitelistStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(context.Background()))
	s.Require().NoError(s.redis.Client.FlushAll(context.Background()).Err())
}

func (s *WhitelistStoreSuite) TestAddAndContains() {
	ctx := context.Background()

	ok, err := s.store.Contains(ctx, s.account)
	s.Require().NoError(err)
	s.False(ok)

	added, err := s.store.Add(ctx, s.account)
	s.Require().NoError(err)
	s.True(added)

	// First read populates the cache, second is served from it.
	for range 2 {
		ok, err = s.store.Contains(ctx, s.account)
		s.Require().NoError(err)
		s.True(ok)
	}

	added, err = s.store.Add(ctx, s.account)
	s.Require().NoError(err)
	s.False(added, "duplicate add reports not added")
}

func (s *WhitelistStoreSuite) TestRemoveInvalidatesCache() {
	ctx := context.Background()

	added, err := s.store.Add(ctx, s.account)
	s.Require().NoError(err)
	s.True(added)

	// Warm the cache with the positive entry.
	ok, err := s.store.Contains(ctx, s.account)
	s.Require().NoError(err)
	s.True(ok)

	removed, err := s.store.Remove(ctx, s.account)
	s.Require().NoError(err)
	s.True(removed)

	ok, err = s.store.Contains(ctx, s.account)
	s.Require().NoError(err)
	s.False(ok, "removal is visible immediately, not after a TTL")

	removed, err = s.store.Remove(ctx, s.account)
	s.Require().NoError(err)
	s.False(removed, "removing an absent account reports not removed")
}

func (s *WhitelistStoreSuite) TestCacheEntriesExpire() {
	ctx := context.Background()

	added, err := s.store.Add(ctx, s.account)
	s.Require().NoError(err)
	s.True(added)

	// Populate the cache, then check the entry carries an expiry. An entry
	// cached off a read that raced a write must not outlive the TTL.
	ok, err := s.store.Contains(ctx, s.account)
	s.Require().NoError(err)
	s.True(ok)

	ttl, err := s.redis.Client.TTL(ctx, "salegate:whitelist:member:"+s.account.String()).Result()
	s.Require().NoError(err)
	s.Positive(ttl, "cache entries must expire")
}
