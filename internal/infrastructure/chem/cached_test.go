package chem

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/database/redis"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-MMP/internal/testutil"
	"github.com/turtacn/KeyIP-MMP/pkg/errors"
)

func newCache(t *testing.T) (redis.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redis.NewClient(&redis.RedisConfig{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return redis.NewRedisCache(client, nil, redis.WithPrefix("t:")), mr
}

func TestCachedToolkit_SharesAcrossInstances(t *testing.T) {
	cache, mr := newCache(t)
	fake := testutil.NewFakeToolkit()
	fake.Aliases["OCC"] = "CCO"

	hits := map[bool]int{}
	first := NewCachedToolkit(fake, cache, WithCacheObserver(func(op string, hit bool) { hits[hit]++ }))
	second := NewCachedToolkit(fake, cache)
	ctx := context.Background()

	s, err := first.CanonicalSmiles(ctx, testutil.FakeMolecule{Text: "OCC"})
	require.NoError(t, err)
	assert.Equal(t, "CCO", s)

	s, err = second.CanonicalSmiles(ctx, testutil.FakeMolecule{Text: "OCC"})
	require.NoError(t, err)
	assert.Equal(t, "CCO", s)
	assert.Equal(t, 1, fake.Calls("canonical"))
	assert.True(t, mr.Exists("t:canon:OCC"))

	n, err := first.AtomCount(ctx, testutil.FakeMolecule{Text: "CCO"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = first.AtomCount(ctx, testutil.FakeMolecule{Text: "CCO"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, fake.Calls("atoms"))

	assert.Equal(t, 1, hits[true])
	assert.Equal(t, 2, hits[false])
}

func TestCachedToolkit_PassesThroughAndKeepsErrors(t *testing.T) {
	cache, _ := newCache(t)
	fake := testutil.NewFakeToolkit()
	fake.AddCut("CCO", "C[*]", "[*]CO")
	tk := NewCachedToolkit(fake, cache)
	ctx := context.Background()

	mol, err := tk.Parse(ctx, "CCO")
	require.NoError(t, err)
	cuts, err := tk.ApplySingleCutReaction(ctx, mol)
	require.NoError(t, err)
	assert.Len(t, cuts, 1)

	fake.Err = errors.New(errors.ErrCodeToolkitUnavailable, "down")
	_, err = tk.CanonicalSmiles(ctx, testutil.FakeMolecule{Text: "CCN"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeToolkitUnavailable))
}

func TestCachedToolkit_DegradesWhenRedisIsDown(t *testing.T) {
	cache, mr := newCache(t)
	fake := testutil.NewFakeToolkit()
	tk := NewCachedToolkit(fake, cache)
	mr.SetError("LOADING redis is loading the dataset")

	s, err := tk.CanonicalSmiles(context.Background(), testutil.FakeMolecule{Text: "CC"})
	require.NoError(t, err)
	assert.Equal(t, "CC", s)
}

//Personal.AI order the ending
