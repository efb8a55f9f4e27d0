package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username taken")
)

// User is one account with its running totals.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	GamesPlayed  int       `json:"gamesPlayed"`
	Wins         int       `json:"wins"`
	Streak       int       `json:"streak"`
	BoardsPlaced int       `json:"boardsPlaced"`
}

// Users reads and writes the users table.
type Users struct{ db *sql.DB }

func NewUsers(db *sql.DB) *Users { return &Users{db: db} }

const userColumns = `id, username, password_hash, created_at, games_played, wins, streak, boards_placed`

// Create inserts an account. Usernames are unique regardless of case.
func (u *Users) Create(ctx context.Context, id, username, passwordHash string, now time.Time) (*User, error) {
	created := now.UTC().Truncate(time.Second)
	_, err := u.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
		id, username, passwordHash, created.Format(time.RFC3339))
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) && sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, err
	}
	return &User{ID: id, Username: username, PasswordHash: passwordHash, CreatedAt: created}, nil
}

func (u *Users) ByID(ctx context.Context, id string) (*User, error) {
	return scanUser(u.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id))
}

// ByUsername matches case-insensitively.
func (u *Users) ByUsername(ctx context.Context, username string) (*User, error) {
	return scanUser(u.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(username)=lower(?)`, username))
}

// BoardPlaced counts one more board posted by the user.
func (u *Users) BoardPlaced(ctx context.Context, id string) error {
	_, err := u.db.ExecContext(ctx, `UPDATE users SET boards_placed = boards_placed + 1 WHERE id=?`, id)
	return err
}

func scanUser(s scanner) (*User, error) {
	var (
		usr     User
		created string
	)
	err := s.Scan(&usr.ID, &usr.Username, &usr.PasswordHash, &created,
		&usr.GamesPlayed, &usr.Wins, &usr.Streak, &usr.BoardsPlaced)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if usr.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return nil, fmt.Errorf("user %s created_at: %w", usr.ID, err)
	}
	return &usr, nil
}
