// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Frontdesk Contributors

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/frontdesk-dev/frontdesk/internal/store"
)

// auditStore implements store.AuditStore over the audit_logs table.
type auditStore struct {
	db *sql.DB
}

func (s *auditStore) Append(ctx context.Context, entry *store.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	const q = `INSERT INTO audit_logs (id, event, detail, action_by, created_at) VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q, entry.ID, entry.Event, entry.Detail, entry.ActionBy, formatTime(entry.CreatedAt))
	if err != nil {
		return fmt.Errorf("appending audit entry %s: %w", entry.Event, err)
	}
	return nil
}

func (s *auditStore) Query(ctx context.Context, filter store.AuditFilter) ([]*store.AuditEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	q := `SELECT id, event, detail, action_by, created_at FROM audit_logs`
	var args []any
	var where []string
	if filter.Event != "" {
		where = append(where, "event = ?")
		args = append(args, filter.Event)
	}
	if filter.ActionBy != "" {
		where = append(where, "action_by = ?")
		args = append(args, filter.ActionBy)
	}
	for i, cond := range where {
		if i == 0 {
			q += " WHERE " + cond
		} else {
			q += " AND " + cond
		}
	}
	q += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	var entries []*store.AuditEntry
	for rows.Next() {
		var entry store.AuditEntry
		var createdAt string
		if err := rows.Scan(&entry.ID, &entry.Event, &entry.Detail, &entry.ActionBy, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning audit row: %w", err)
		}
		entry.CreatedAt = parseTime(createdAt)
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
