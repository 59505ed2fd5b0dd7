package cache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/bankassist/internal/storage"
	"github.com/kalambet/bankassist/internal/usecase"
)

const dims = 64

// fakeEmbedder returns fixed vectors for known queries and a one-hot
// vector for "q<N>" queries, so numbered queries are mutually dissimilar.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   atomic.Int32
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	var n int
	if _, err := fmt.Sscanf(text, "q%d", &n); err == nil {
		v := make([]float32, dims)
		v[n%dims] = 1
		return v, nil
	}
	v := make([]float32, dims)
	v[dims-1] = 1
	return v, nil
}

func vec(head ...float32) []float32 {
	v := make([]float32, dims)
	copy(v, head)
	return v
}

func newTestCache(t *testing.T, store Store, emb Embedder) *Cache {
	t.Helper()
	if emb == nil {
		emb = &fakeEmbedder{}
	}
	return New(store, emb, Options{})
}

func public(q, resp string) Entry {
	return Entry{Query: q, Response: resp, Source: "rag", UseCase: usecase.BankingNorms}
}

func TestNonPublicUseCaseNeverTouchesCache(t *testing.T) {
	emb := &fakeEmbedder{}
	c := newTestCache(t, nil, emb)
	ctx := context.Background()

	for _, uc := range []usecase.UseCase{usecase.TransactionHistory, usecase.FraudComplaint, usecase.Unknown, usecase.Unclear} {
		c.Set(ctx, Entry{Query: "q1", Response: "r", UseCase: uc})
		_, ok := c.Get(ctx, "q1", uc)
		assert.False(t, ok, uc)
	}
	assert.Zero(t, emb.calls.Load())
	assert.Zero(t, c.Len(ctx))
}

func TestSetThenGet(t *testing.T) {
	c := newTestCache(t, nil, nil)
	ctx := context.Background()

	c.Set(ctx, public("q1", "The repo rate is 6.5%."))
	got, ok := c.Get(ctx, "q1", usecase.BankingNorms)
	require.True(t, ok)
	assert.Equal(t, "The repo rate is 6.5%.", got.Response)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestParaphraseKeepsFirstResponse(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"What is the repo rate?":       vec(1, 0.1),
		"Tell me the current repo rate": vec(1, 0.2),
	}}
	c := newTestCache(t, nil, emb)
	ctx := context.Background()

	c.Set(ctx, public("What is the repo rate?", "first"))
	c.Set(ctx, public("Tell me the current repo rate", "second"))
	require.Equal(t, 1, c.Len(ctx))

	for _, q := range []string{"What is the repo rate?", "Tell me the current repo rate"} {
		got, ok := c.Get(ctx, q, usecase.BankingNorms)
		require.True(t, ok)
		assert.Equal(t, "first", got.Response)
	}
}

func TestDissimilarQueryMisses(t *testing.T) {
	c := newTestCache(t, nil, nil)
	ctx := context.Background()
	c.Set(ctx, public("q1", "r1"))

	_, ok := c.Get(ctx, "q2", usecase.BankingNorms)
	assert.False(t, ok)
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := newTestCache(t, nil, nil)
	ctx := context.Background()

	c.Set(ctx, public("q0", "r0"))
	c.Set(ctx, public("q1", "r1"))
	_, ok := c.Get(ctx, "q0", usecase.BankingNorms)
	require.True(t, ok)
	for i := 2; i <= 50; i++ {
		c.Set(ctx, public(fmt.Sprintf("q%d", i), fmt.Sprintf("r%d", i)))
	}

	assert.Equal(t, DefaultCapacity, c.Len(ctx))
	_, ok = c.Get(ctx, "q0", usecase.BankingNorms)
	assert.True(t, ok, "recently read entry must survive")
	_, ok = c.Get(ctx, "q1", usecase.BankingNorms)
	assert.False(t, ok, "least recently used entry must be evicted")
}

func TestEmbeddingFailureIsAMiss(t *testing.T) {
	emb := &fakeEmbedder{err: errors.New("quota")}
	c := newTestCache(t, nil, emb)
	ctx := context.Background()

	c.Set(ctx, public("q1", "r1"))
	_, ok := c.Get(ctx, "q1", usecase.BankingNorms)
	assert.False(t, ok)
	assert.Zero(t, c.Len(ctx))
}

func TestClear(t *testing.T) {
	store := NewMemoryStore()
	c := newTestCache(t, store, nil)
	ctx := context.Background()
	c.Set(ctx, public("q1", "r1"))

	require.NoError(t, c.Clear(ctx))
	assert.Zero(t, c.Len(ctx))
	persisted, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestConcurrentAccess(t *testing.T) {
	c := newTestCache(t, nil, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q := fmt.Sprintf("q%d", i%5)
			c.Set(ctx, public(q, "r"))
			c.Get(ctx, q, usecase.BankingNorms)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 5, c.Len(ctx))
}

func TestPersistenceAcrossInstances(t *testing.T) {
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	redisServer := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: redisServer.Addr()})
	t.Cleanup(func() { client.Close() })

	stores := map[string]func() Store{
		BackendSQLite: func() Store { return NewSQLiteStore(db) },
		BackendFile:   func() Store { return NewFileStore(filepath.Join(t.TempDir(), "cache.json")) },
		BackendRedis:  func() Store { return NewRedisStore(client, "test:cache") },
	}
	for name, mk := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := mk()

			first := newTestCache(t, store, nil)
			first.Set(ctx, public("q1", "r1"))
			first.Set(ctx, public("q2", "r2"))
			_, ok := first.Get(ctx, "q1", usecase.BankingNorms)
			require.True(t, ok)

			second := newTestCache(t, store, nil)
			entries := second.Entries(ctx)
			require.Len(t, entries, 2)
			assert.Equal(t, "q2", entries[0].Query)
			assert.Equal(t, "q1", entries[1].Query, "promotion must be persisted")
			assert.Equal(t, usecase.BankingNorms, entries[1].UseCase)

			require.NoError(t, second.Clear(ctx))
		})
	}
}

func TestLoadReembedsEntriesWithoutVectors(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, []Entry{public("q3", "r3")}))

	emb := &fakeEmbedder{}
	c := newTestCache(t, store, emb)
	got, ok := c.Get(ctx, "q3", usecase.BankingNorms)
	require.True(t, ok)
	assert.Equal(t, "r3", got.Response)
	assert.Equal(t, int32(2), emb.calls.Load())
}

// shortEmbedder stands in for a different embedding model: same direction
// as fakeEmbedder, fewer dimensions.
type shortEmbedder struct {
	fakeEmbedder
	size int
}

func (s *shortEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := s.fakeEmbedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return v[:s.size], nil
}

func TestEmbeddingModelChangeKeepsOneEntryPerQuery(t *testing.T) {
	ctx := context.Background()
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	before := newTestCache(t, NewSQLiteStore(db), nil)
	before.Set(ctx, public("q1", "r1"))
	before.Set(ctx, public("q2", "r2"))

	after := newTestCache(t, NewSQLiteStore(db), &shortEmbedder{size: 8})
	got, ok := after.Get(ctx, "q1", usecase.BankingNorms)
	require.True(t, ok)
	assert.Equal(t, "r1", got.Response)

	after.Set(ctx, public("q1", "newer answer"))
	after.Set(ctx, public("q3", "r3"))

	entries := after.Entries(ctx)
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.Len(t, e.Embedding, 8, e.Query)
	}

	rows, err := db.LoadCacheRows(ctx)
	require.NoError(t, err)
	var queries []string
	for _, r := range rows {
		queries = append(queries, r.Query)
	}
	assert.ElementsMatch(t, []string{"q1", "q2", "q3"}, queries, "later writes must still persist")
}

func TestSetSameQueryIsNoOp(t *testing.T) {
	ctx := context.Background()
	emb := &fakeEmbedder{vectors: map[string][]float32{"odd": make([]float32, dims)}}
	c := newTestCache(t, nil, emb)

	c.Set(ctx, public("odd", "first"))
	c.Set(ctx, public("odd", "second"))

	require.Equal(t, 1, c.Len(ctx))
	got, ok := c.Get(ctx, "odd", usecase.BankingNorms)
	require.True(t, ok)
	assert.Equal(t, "first", got.Response)
}

func TestLoadKeepsLatestCopyOfRepeatedQuery(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, []Entry{public("q1", "old"), public("q2", "r2"), public("q1", "new")}))

	entries := newTestCache(t, store, nil).Entries(ctx)
	require.Len(t, entries, 2)
	assert.Equal(t, "q2", entries[0].Query)
	assert.Equal(t, "new", entries[1].Response)
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	entries, err := NewFileStore(filepath.Join(t.TempDir(), "none.json")).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoadRedisConfig(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://cache:6380/2")
	t.Setenv("REDIS_READ_TIMEOUT", "7")

	cfg, err := LoadRedisConfig()
	require.NoError(t, err)
	assert.Equal(t, "redis://cache:6380/2", cfg.URL)
	assert.Equal(t, 7, cfg.ReadTimeout)
	assert.Equal(t, "bankassist:cache", cfg.Key)
}

func TestCosine(t *testing.T) {
	a := []float32{1, 0}
	assert.InDelta(t, 1.0, cosine(a, []float32{2, 0}, norm(a)), 1e-6)
	assert.InDelta(t, 0.0, cosine(a, []float32{0, 1}, norm(a)), 1e-6)
	assert.Zero(t, cosine(a, []float32{1, 0, 0}, norm(a)))
}
