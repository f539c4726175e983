package redis

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-MMP/pkg/errors"
)

type CacheTestSuite struct {
	suite.Suite
	client *Client
	cache  Cache
}

func (s *CacheTestSuite) SetupTest() {
	s.client, _ = newTestClient(s.T())
	s.cache = NewRedisCache(s.client, logging.NewNopLogger(), WithPrefix("test:"), WithDefaultTTL(time.Hour))
}

type atomCount struct {
	Smiles string `json:"smiles"`
	Count  int    `json:"count"`
}

func (s *CacheTestSuite) TestSetGet() {
	ctx := context.Background()
	want := atomCount{Smiles: "CCO", Count: 3}
	s.Require().NoError(s.cache.Set(ctx, "atoms:CCO", want, 0))

	var got atomCount
	s.Require().NoError(s.cache.Get(ctx, "atoms:CCO", &got))
	s.Equal(want, got)

	raw, err := s.client.Underlying().Get(ctx, "test:atoms:CCO").Result()
	s.Require().NoError(err)
	s.JSONEq(`{"smiles":"CCO","count":3}`, raw)

	ttl := s.client.Underlying().TTL(ctx, "test:atoms:CCO").Val()
	s.InDelta(float64(time.Hour), float64(ttl), float64(7*time.Minute))
}

func (s *CacheTestSuite) TestGet_Miss() {
	var got atomCount
	err := s.cache.Get(context.Background(), "absent", &got)
	s.Equal(ErrCacheMiss, err)
}

func (s *CacheTestSuite) TestGet_CorruptValue() {
	ctx := context.Background()
	s.Require().NoError(s.client.Underlying().Set(ctx, "test:bad", "{not json", 0).Err())
	var got atomCount
	err := s.cache.Get(ctx, "bad", &got)
	s.True(errors.IsCode(err, errors.CodeSerialization))
}

func (s *CacheTestSuite) TestDeleteAndMGet() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Set(ctx, "a", "1", 0))
	s.Require().NoError(s.cache.Set(ctx, "b", "2", 0))

	vals, err := s.cache.MGet(ctx, []string{"a", "b", "c"})
	s.Require().NoError(err)
	s.Len(vals, 2)
	s.Equal(`"1"`, string(vals["a"]))

	s.Require().NoError(s.cache.Delete(ctx, "a"))
	vals, err = s.cache.MGet(ctx, []string{"a", "b"})
	s.Require().NoError(err)
	s.Len(vals, 1)
	s.NoError(s.cache.Delete(ctx))
}

func (s *CacheTestSuite) TestGetOrSet() {
	ctx := context.Background()
	var calls int32
	loader := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "c1ccccc1", nil
	}

	var got string
	s.Require().NoError(s.cache.GetOrSet(ctx, "canon:benzene", &got, 0, loader))
	s.Equal("c1ccccc1", got)

	got = ""
	s.Require().NoError(s.cache.GetOrSet(ctx, "canon:benzene", &got, 0, loader))
	s.Equal("c1ccccc1", got)
	s.Equal(int32(1), atomic.LoadInt32(&calls))
}

func (s *CacheTestSuite) TestGetOrSet_LoaderError() {
	boom := fmt.Errorf("boom")
	var got string
	err := s.cache.GetOrSet(context.Background(), "k", &got, 0, func(context.Context) (interface{}, error) {
		return nil, boom
	})
	s.ErrorIs(err, boom)

	err = s.cache.Get(context.Background(), "k", &got)
	s.Equal(ErrCacheMiss, err)
}

func (s *CacheTestSuite) TestGetOrSet_Concurrent() {
	ctx := context.Background()
	var calls int32
	release := make(chan struct{})
	loader := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(s.T(), s.cache.GetOrSet(ctx, "shared", &results[i], 0, loader))
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, r := range results {
		s.Equal(42, r)
	}
	s.LessOrEqual(atomic.LoadInt32(&calls), int32(8))
	s.GreaterOrEqual(atomic.LoadInt32(&calls), int32(1))
}

func TestCacheTestSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func TestJitterTTL(t *testing.T) {
	c := &redisCache{defaultTTL: time.Minute}
	for i := 0; i < 50; i++ {
		ttl := c.jitterTTL(0)
		require.GreaterOrEqual(t, ttl, 54*time.Second)
		require.LessOrEqual(t, ttl, 66*time.Second)
	}
	assert.Equal(t, time.Duration(0), (&redisCache{}).jitterTTL(0))
}

//Personal.AI order the ending
