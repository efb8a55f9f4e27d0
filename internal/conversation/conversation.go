// internal/conversation/conversation.go
//
// The message channel boards travel through.
// A session is one conversation thread: the placing player posts the encoded
// board, the attacker posts the completed board back in the same session.
// The encoded URL is the only hand-off between the two sides; receiving a
// message decodes it, and a decode failure is returned to the caller.

package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/robalobadob/battleship/internal/game"
)

var ErrNotFound = errors.New("message not found")

// Message is one posted board.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Sender    string    `json:"sender"`
	Caption   string    `json:"caption"`
	URL       string    `json:"url"`
	Snapshot  string    `json:"snapshot"` // blinded rendering of the board
	CreatedAt time.Time `json:"createdAt"`
}

// Log persists messages. Implementations live in the store package.
type Log interface {
	Insert(ctx context.Context, m Message) error
	// Get returns ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) (Message, error)
	// Thread returns the messages of a session oldest first.
	Thread(ctx context.Context, sessionID string) ([]Message, error)
}

// Transport encodes states into messages and back.
type Transport struct {
	log     Log
	baseURL string
	now     func() time.Time
}

// NewTransport builds a Transport; an empty baseURL uses game.DefaultBaseURL.
func NewTransport(l Log, baseURL string) *Transport {
	if baseURL == "" {
		baseURL = game.DefaultBaseURL
	}
	return &Transport{log: l, baseURL: baseURL, now: time.Now}
}

// NewSession returns a fresh session identifier.
func (t *Transport) NewSession() string { return uuid.NewString() }

// Post encodes st and appends it to the session as a message from sender.
func (t *Transport) Post(ctx context.Context, sessionID, sender, caption string, st game.GameState, snapshot string) (Message, error) {
	m := Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Sender:    sender,
		Caption:   caption,
		URL:       game.EncodeWithBase(t.baseURL, st),
		Snapshot:  snapshot,
		CreatedAt: t.now().UTC(),
	}
	if err := t.log.Insert(ctx, m); err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}
	return m, nil
}

// Receive loads a message and decodes the board it carries.
func (t *Transport) Receive(ctx context.Context, messageID string) (Message, game.GameState, error) {
	m, err := t.log.Get(ctx, messageID)
	if err != nil {
		return Message{}, game.GameState{}, err
	}
	st, err := game.Decode(m.URL)
	if err != nil {
		return m, game.GameState{}, fmt.Errorf("message %s: %w", m.ID, err)
	}
	return m, st, nil
}

// Thread lists a session's messages.
func (t *Transport) Thread(ctx context.Context, sessionID string) ([]Message, error) {
	return t.log.Thread(ctx, sessionID)
}

func PlacedCaption(player string) string {
	return fmt.Sprintf("$%s placed their ships! Can you find them?", player)
}

// ResultCaption announces how the attacker's game ended.
func ResultCaption(player string, won bool) string {
	if won {
		return fmt.Sprintf("$%s destroyed all the ships!", player)
	}
	return fmt.Sprintf("$%s lost!", player)
}
