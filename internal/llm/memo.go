package llm

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoEmbedder remembers recent embeddings so the same query text is not
// sent to the embedding model twice within ttl.
type MemoEmbedder struct {
	next Embedder
	memo *cache.Cache
}

func NewMemoEmbedder(next Embedder, ttl time.Duration) *MemoEmbedder {
	return &MemoEmbedder{
		next: next,
		memo: cache.New(ttl, 2*ttl),
	}
}

func (m *MemoEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := strings.ToLower(strings.TrimSpace(text))
	if v, ok := m.memo.Get(key); ok {
		return v.([]float32), nil
	}
	vec, err := m.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	m.memo.SetDefault(key, vec)
	return vec, nil
}
