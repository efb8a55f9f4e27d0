package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"

	"github.com/robalobadob/battleship/internal/game"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Ships returns the day's ship placement: shipCount distinct cells derived
// from HMAC(salt, YYYY-MM-DD), the same for every player on that date.
func Ships(date time.Time, salt string, shipCount int) []int {
	if shipCount <= 0 || shipCount > game.BoardCells {
		return nil
	}
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)

	// Partial Fisher–Yates over the cells, one 4-byte word of the digest per
	// swap; a 32-byte digest covers every board size.
	cells := make([]int, game.BoardCells)
	for i := range cells {
		cells[i] = i
	}
	for i := 0; i < shipCount; i++ {
		n := binary.BigEndian.Uint32(sum[(i*4)%len(sum):])
		j := i + int(n%uint32(game.BoardCells-i))
		cells[i], cells[j] = cells[j], cells[i]
	}
	return append([]int(nil), cells[:shipCount]...)
}
