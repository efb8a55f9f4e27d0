package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/robalobadob/battleship/internal/conversation"
)

// tsLayout is fixed-width so created_at sorts lexically.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLLog is a conversation.Log backed by the messages table.
type SQLLog struct{ db *sql.DB }

func NewSQLLog(db *sql.DB) *SQLLog { return &SQLLog{db: db} }

func (l *SQLLog) Insert(ctx context.Context, m conversation.Message) error {
	_, err := l.db.ExecContext(ctx, `
        INSERT INTO messages (id, session_id, sender, caption, url, snapshot, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.SessionID, m.Sender, m.Caption, m.URL, m.Snapshot, m.CreatedAt.UTC().Format(tsLayout),
	)
	return err
}

func (l *SQLLog) Get(ctx context.Context, id string) (conversation.Message, error) {
	row := l.db.QueryRowContext(ctx, `
        SELECT id, session_id, sender, caption, url, snapshot, created_at
        FROM messages WHERE id=?`, id)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return conversation.Message{}, conversation.ErrNotFound
	}
	return m, err
}

func (l *SQLLog) Thread(ctx context.Context, sessionID string) ([]conversation.Message, error) {
	rows, err := l.db.QueryContext(ctx, `
        SELECT id, session_id, sender, caption, url, snapshot, created_at
        FROM messages WHERE session_id=?
        ORDER BY created_at ASC, rowid ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []conversation.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(s scanner) (conversation.Message, error) {
	var m conversation.Message
	var created string
	if err := s.Scan(&m.ID, &m.SessionID, &m.Sender, &m.Caption, &m.URL, &m.Snapshot, &created); err != nil {
		return conversation.Message{}, err
	}
	t, err := time.Parse(tsLayout, created)
	if err != nil {
		return conversation.Message{}, fmt.Errorf("message %s created_at: %w", m.ID, err)
	}
	m.CreatedAt = t
	return m, nil
}
