package store

import (
	"context"
	"database/sql"
	"time"
)

// GameRecord is the history row of one attack, owned by an account or by an
// anonymous participant until they sign in.
type GameRecord struct {
	ID          string `json:"id"`
	UserID      string `json:"-"`
	AnonymousID string `json:"-"`
	SessionID   string `json:"sessionId"`
	MessageID   string `json:"messageId"`
	Status      string `json:"status"`
	Attempts    int    `json:"attempts"`
	StartedAt   string `json:"startedAt"`
	FinishedAt  string `json:"finishedAt,omitempty"`
}

// Games reads and writes the games table and the per-user totals it drives.
type Games struct{ db *sql.DB }

func NewGames(db *sql.DB) *Games { return &Games{db: db} }

// Start records a newly opened attack.
func (g *Games) Start(ctx context.Context, r GameRecord, at time.Time) error {
	_, err := g.db.ExecContext(ctx, `
        INSERT INTO games (id, user_id, anonymous_id, session_id, message_id, started_at, status, attempts)
        VALUES (?,?,?,?,?,?,?,0)`,
		r.ID, nullable(r.UserID), nullable(r.AnonymousID), r.SessionID, r.MessageID,
		at.UTC().Format(time.RFC3339), r.Status)
	return err
}

// Progress stores the attempt count. When status is terminal it also stamps
// the finish time and, for an account, updates games played, wins and streak,
// all in one transaction.
func (g *Games) Progress(ctx context.Context, id, userID, status string, attempts int, at time.Time) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE games SET attempts=?, status=? WHERE id=?`, attempts, status, id); err != nil {
		return err
	}
	if status == "won" || status == "lost" {
		if _, err := tx.ExecContext(ctx, `UPDATE games SET finished_at=? WHERE id=?`, at.UTC().Format(time.RFC3339), id); err != nil {
			return err
		}
		if userID != "" {
			if err := recordFinish(ctx, tx, userID, status == "won"); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// recordFinish bumps games played; a win extends the streak, a loss resets it.
func recordFinish(ctx context.Context, tx *sql.Tx, userID string, won bool) error {
	streak := "0"
	if won {
		streak = "streak + 1"
	}
	_, err := tx.ExecContext(ctx, `
        UPDATE users SET games_played = games_played + 1, wins = wins + ?, streak = `+streak+`
        WHERE id=?`, btoi(won), userID)
	return err
}

// Claim moves anonymous history to the account that just signed in.
func (g *Games) Claim(ctx context.Context, anonID, userID string) error {
	if anonID == "" || userID == "" {
		return nil
	}
	_, err := g.db.ExecContext(ctx, `UPDATE games SET user_id=?, anonymous_id=NULL WHERE anonymous_id=?`, userID, anonID)
	return err
}

// ByUser lists the user's games, newest first.
func (g *Games) ByUser(ctx context.Context, userID string, limit int) ([]GameRecord, error) {
	rows, err := g.db.QueryContext(ctx, `
        SELECT id, session_id, message_id, status, attempts, started_at, COALESCE(finished_at, '')
        FROM games WHERE user_id=?
        ORDER BY started_at DESC, rowid DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []GameRecord{}
	for rows.Next() {
		r := GameRecord{UserID: userID}
		if err := rows.Scan(&r.ID, &r.SessionID, &r.MessageID, &r.Status, &r.Attempts, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
