package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AppendTurn records a completed turn in the audit log.
func (s *Store) AppendTurn(ctx context.Context, t TurnRow) error {
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO turn_log (id, session_id, user_id, query, intent, use_case, context, response, cached, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.SessionID, t.UserID, t.Query, t.Intent, t.UseCase, t.Context, t.Response, t.Cached,
		createdAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting turn %s: %w", t.ID, err)
	}
	return nil
}

// GetTurn returns a single logged turn by id.
func (s *Store) GetTurn(ctx context.Context, id string) (TurnRow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, user_id, query, intent, use_case, context, response, cached, created_at
		FROM turn_log WHERE id = ?`, id)
	t, err := scanTurn(row)
	if err == sql.ErrNoRows {
		return TurnRow{}, ErrNotFound
	}
	return t, err
}

// RecentTurns returns up to limit logged turns, newest first. An empty userID
// matches every user.
func (s *Store) RecentTurns(ctx context.Context, userID string, limit int) ([]TurnRow, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, session_id, user_id, query, intent, use_case, context, response, cached, created_at
		FROM turn_log`
	args := []any{}
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	var out []TurnRow
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTurn(sc scanner) (TurnRow, error) {
	var t TurnRow
	var createdAt string
	if err := sc.Scan(&t.ID, &t.SessionID, &t.UserID, &t.Query, &t.Intent, &t.UseCase, &t.Context, &t.Response, &t.Cached, &createdAt); err != nil {
		return TurnRow{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return TurnRow{}, fmt.Errorf("parsing created_at for turn %s: %w", t.ID, err)
	}
	t.CreatedAt = ts
	return t, nil
}
