package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// LoadCacheRows returns every persisted cache row, least recently used first.
func (s *Store) LoadCacheRows(ctx context.Context) ([]CacheRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, query, response, source, use_case, validated, created_at, embedding
		FROM cache_entries ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying cache entries: %w", err)
	}
	defer rows.Close()

	var out []CacheRow
	for rows.Next() {
		var r CacheRow
		var createdAt string
		var blob []byte
		if err := rows.Scan(&r.Position, &r.Query, &r.Response, &r.Source, &r.UseCase, &r.Validated, &createdAt, &blob); err != nil {
			return nil, fmt.Errorf("scanning cache entry: %w", err)
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at for %q: %w", r.Query, err)
		}
		if r.Embedding, err = decodeFloat32s(blob); err != nil {
			return nil, fmt.Errorf("decoding embedding for %q: %w", r.Query, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReplaceCacheRows rewrites the whole cache table in one transaction. Row
// positions are taken from slice order.
func (s *Store) ReplaceCacheRows(ctx context.Context, entries []CacheRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning cache rewrite: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_entries`); err != nil {
		tx.Rollback()
		return fmt.Errorf("clearing cache entries: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cache_entries (position, query, response, source, use_case, validated, created_at, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing cache insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range entries {
		createdAt := r.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx, i, r.Query, r.Response, r.Source, r.UseCase, r.Validated,
			createdAt.UTC().Format(time.RFC3339Nano), encodeFloat32s(r.Embedding)); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting cache entry %q: %w", r.Query, err)
		}
	}
	return tx.Commit()
}

// encodeFloat32s packs v as little-endian float32s.
func encodeFloat32s(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeFloat32s(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}
