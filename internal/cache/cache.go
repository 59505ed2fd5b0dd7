// Package cache is the global semantic response cache. Entries are matched
// by cosine similarity of query embeddings and evicted least recently used
// first. Only public use cases are ever read from or written to it.
package cache

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/kalambet/bankassist/internal/logx"
	"github.com/kalambet/bankassist/internal/usecase"
)

const (
	DefaultCapacity  = 50
	DefaultThreshold = 0.85
)

// Entry is one cached response.
type Entry struct {
	Query     string          `json:"query"`
	Response  string          `json:"response"`
	Source    string          `json:"source"`
	UseCase   usecase.UseCase `json:"use_case"`
	Validated bool            `json:"validated"`
	CreatedAt time.Time       `json:"timestamp"`
	Embedding []float32       `json:"embedding,omitempty"`
}

// Embedder turns a query into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Options bounds the cache.
type Options struct {
	Capacity  int
	Threshold float64
}

// Cache holds entries ordered from least to most recently used. Lookups
// share a read lock; mutations and persistence take the write lock.
// Embeddings are always computed before a lock is taken.
type Cache struct {
	store    Store
	embedder Embedder
	opts     Options

	loadMu sync.Mutex
	loaded bool

	mu      sync.RWMutex
	entries []Entry
}

func New(store Store, embedder Embedder, opts Options) *Cache {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if store == nil {
		store = NewMemoryStore()
	}
	return &Cache{store: store, embedder: embedder, opts: opts}
}

// Get returns the first entry similar to query and promotes it to most
// recently used. The reorder is persisted immediately.
func (c *Cache) Get(ctx context.Context, query string, uc usecase.UseCase) (Entry, bool) {
	if !uc.IsPublic() || strings.TrimSpace(query) == "" {
		return Entry{}, false
	}
	c.ensureLoaded(ctx)

	vec, err := c.embedder.Embed(ctx, query)
	if err != nil {
		logx.Warn().Err(err).Msg("cache lookup skipped: embedding failed")
		return Entry{}, false
	}

	c.mu.RLock()
	i := c.find(vec)
	if i < 0 {
		i = c.indexOf(query)
	}
	var hit Entry
	if i >= 0 {
		hit = c.entries[i]
	}
	c.mu.RUnlock()
	if i < 0 {
		return Entry{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if j := c.indexOf(hit.Query); j >= 0 && j != len(c.entries)-1 {
		e := c.entries[j]
		c.entries = append(c.entries[:j], c.entries[j+1:]...)
		c.entries = append(c.entries, e)
		c.persist(ctx)
	}
	logx.Debug().Str("query", query).Str("matched", hit.Query).Msg("cache hit")
	return hit, true
}

// Set inserts e unless a similar query is already cached. At capacity the
// least recently used entry is evicted first.
func (c *Cache) Set(ctx context.Context, e Entry) {
	if !e.UseCase.IsPublic() || strings.TrimSpace(e.Query) == "" {
		return
	}
	c.ensureLoaded(ctx)

	vec, err := c.embedder.Embed(ctx, e.Query)
	if err != nil {
		logx.Warn().Err(err).Msg("cache insert skipped: embedding failed")
		return
	}
	e.Embedding = vec
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.find(vec) >= 0 || c.indexOf(e.Query) >= 0 {
		return
	}
	if len(c.entries) >= c.opts.Capacity {
		evicted := c.entries[0]
		c.entries = append(c.entries[:0:0], c.entries[1:]...)
		logx.Debug().Str("query", evicted.Query).Msg("cache evicted")
	}
	c.entries = append(c.entries, e)
	c.persist(ctx)
}

// Entries returns a snapshot, least recently used first.
func (c *Cache) Entries(ctx context.Context) []Entry {
	c.ensureLoaded(ctx)
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of cached entries.
func (c *Cache) Len(ctx context.Context) int {
	c.ensureLoaded(ctx)
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops every entry and persists the empty cache.
func (c *Cache) Clear(ctx context.Context) error {
	c.ensureLoaded(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
	return c.store.Save(ctx, nil)
}

// ensureLoaded reads the persisted entries once. Entries stored without an
// embedding, or with one of a different dimension than the current embedder
// produces, are re-embedded before they become visible. Repeated queries keep
// their most recent copy.
func (c *Cache) ensureLoaded(ctx context.Context) {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	if c.loaded {
		return
	}
	c.loaded = true

	entries, err := c.store.Load(ctx)
	if err != nil {
		logx.Warn().Err(err).Msg("cache load failed, starting empty")
		return
	}

	dim := -1
	var kept []Entry
	for _, e := range entries {
		if dim < 0 || len(e.Embedding) != dim {
			vec, err := c.embedder.Embed(ctx, e.Query)
			if err != nil {
				logx.Warn().Err(err).Str("query", e.Query).Msg("dropping cache entry: re-embedding failed")
				continue
			}
			if dim >= 0 && len(vec) != dim {
				logx.Warn().Str("query", e.Query).Msg("dropping cache entry: inconsistent embedding size")
				continue
			}
			dim = len(vec)
			e.Embedding = vec
		}
		kept = dropQuery(kept, e.Query)
		kept = append(kept, e)
	}
	if len(kept) > c.opts.Capacity {
		kept = kept[len(kept)-c.opts.Capacity:]
	}

	c.mu.Lock()
	c.entries = kept
	c.mu.Unlock()
	logx.Debug().Int("entries", len(kept)).Int("dim", dim).Msg("cache loaded")
}

func dropQuery(entries []Entry, query string) []Entry {
	for i, e := range entries {
		if e.Query == query {
			return append(entries[:i], entries[i+1:]...)
		}
	}
	return entries
}

// persist must be called with mu held for writing.
func (c *Cache) persist(ctx context.Context) {
	snapshot := make([]Entry, len(c.entries))
	copy(snapshot, c.entries)
	if err := c.store.Save(ctx, snapshot); err != nil {
		logx.Warn().Err(err).Msg("cache persist failed")
	}
}

func (c *Cache) find(vec []float32) int {
	qNorm := norm(vec)
	if qNorm == 0 {
		return -1
	}
	for i, e := range c.entries {
		if float64(cosine(vec, e.Embedding, qNorm)) >= c.opts.Threshold {
			return i
		}
	}
	return -1
}

func (c *Cache) indexOf(query string) int {
	for i, e := range c.entries {
		if e.Query == query {
			return i
		}
	}
	return -1
}

func norm(v []float32) float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return float32(math.Sqrt(sum))
}

// cosine computes dot(a,b) / (aNorm * |b|). aNorm is the precomputed L2
// norm of a. Vectors of different length are dissimilar.
func cosine(a, b []float32, aNorm float32) float32 {
	if len(a) != len(b) || aNorm == 0 {
		return 0
	}
	var dot, bNormSq float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		bNormSq += float64(b[i]) * float64(b[i])
	}
	bNorm := math.Sqrt(bNormSq)
	if bNorm == 0 {
		return 0
	}
	return float32(dot / (float64(aNorm) * bNorm))
}
