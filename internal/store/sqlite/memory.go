// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Frontdesk Contributors

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/frontdesk-dev/frontdesk/internal/store"
)

// conversationStore implements store.ConversationStore over the
// conversation_memory table. Ordering is by autoincrement id, which gives
// monotonic append order per key even when two turns share a timestamp.
type conversationStore struct {
	db *sql.DB
}

func (s *conversationStore) AppendTurn(ctx context.Context, key string, role store.TurnRole, message string) error {
	if key == "" {
		key = store.AnonymousKey
	}
	if role == "" {
		return fmt.Errorf("appending turn for %s: role is empty: %w", key, store.ErrInvalidInput)
	}

	const q = `INSERT INTO conversation_memory (user_key, role, message, created_at) VALUES (?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q, key, string(role), message, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("appending turn for %s: %w", key, err)
	}
	return nil
}

func (s *conversationStore) LoadRecent(ctx context.Context, key string, limit int) ([]store.Turn, error) {
	if key == "" {
		key = store.AnonymousKey
	}
	if limit <= 0 {
		limit = 10
	}

	// Sub-select the N most recent, then re-order chronologically.
	const q = `SELECT id, user_key, role, message, created_at
FROM (
	SELECT id, user_key, role, message, created_at
	FROM conversation_memory WHERE user_key = ?
	ORDER BY id DESC LIMIT ?
) ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, q, key, limit)
	if err != nil {
		return nil, fmt.Errorf("loading recent turns for %s: %w", key, err)
	}
	defer rows.Close()

	var turns []store.Turn
	for rows.Next() {
		var turn store.Turn
		var createdAt string
		if err := rows.Scan(&turn.ID, &turn.Key, &turn.Role, &turn.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning turn row: %w", err)
		}
		turn.CreatedAt = parseTime(createdAt)
		turns = append(turns, turn)
	}

	return turns, rows.Err()
}

func (s *conversationStore) Cleanup(ctx context.Context, olderThan time.Time) (int64, error) {
	const q = `DELETE FROM conversation_memory WHERE created_at < ?`

	res, err := s.db.ExecContext(ctx, q, formatTime(olderThan))
	if err != nil {
		return 0, fmt.Errorf("cleaning up conversation memory: %w", err)
	}
	return res.RowsAffected()
}
