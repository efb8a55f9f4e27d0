// internal/game/codec.go
//
// Wire format for handing a GameState to the other player:
//
//	<base>?Ship_Location=<int>&Ship_Location=<int>&...&Is_Complete=<0|1>
//
// Only the ship locations and the completion flag travel; attempted cells
// stay with the attacker. Unknown query parameters are ignored on decode.

package game

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultBaseURL prefixes every encoded state unless a base is given.
	DefaultBaseURL = "www.shinobicontrols.com/battleship"

	keyShipLocation = "Ship_Location"
	keyIsComplete   = "Is_Complete"
)

// Encode renders s against DefaultBaseURL.
func Encode(s GameState) string {
	return EncodeWithBase(DefaultBaseURL, s)
}

// EncodeWithBase renders s as a query string appended to base. Ship entries
// keep their order and come before Is_Complete.
func EncodeWithBase(base string, s GameState) string {
	parts := make([]string, 0, len(s.ShipLocations)+1)
	for _, c := range s.ShipLocations {
		parts = append(parts, keyShipLocation+"="+strconv.Itoa(c))
	}
	complete := "0"
	if s.IsComplete {
		complete = "1"
	}
	parts = append(parts, keyIsComplete+"="+complete)
	return base + "?" + strings.Join(parts, "&")
}

// Decode parses an encoded state. Zero Ship_Location entries decode to an
// empty set rather than an error.
func Decode(raw string) (GameState, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return GameState{}, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}
	q, err := gameParams(u.RawQuery)
	if err != nil {
		return GameState{}, err
	}

	st := GameState{ShipLocations: []int{}, AttemptedCells: []int{}}
	for _, v := range q[keyShipLocation] {
		c, err := strconv.Atoi(v)
		if err != nil {
			return GameState{}, fmt.Errorf("%w: %s=%q is not an integer", ErrMalformedState, keyShipLocation, v)
		}
		if !validCell(c) {
			return GameState{}, fmt.Errorf("%w: %s=%d out of range", ErrMalformedState, keyShipLocation, c)
		}
		if contains(st.ShipLocations, c) {
			return GameState{}, fmt.Errorf("%w: %s=%d repeated", ErrMalformedState, keyShipLocation, c)
		}
		st.ShipLocations = append(st.ShipLocations, c)
	}

	flags := q[keyIsComplete]
	switch {
	case len(flags) == 0:
		return GameState{}, fmt.Errorf("%w: missing %s", ErrMalformedState, keyIsComplete)
	case len(flags) > 1:
		return GameState{}, fmt.Errorf("%w: %s given %d times", ErrMalformedState, keyIsComplete, len(flags))
	}
	switch flags[0] {
	case "1":
		st.IsComplete = true
	case "0":
	default:
		return GameState{}, fmt.Errorf("%w: %s=%q", ErrMalformedState, keyIsComplete, flags[0])
	}
	return st, nil
}

// gameParams collects the Ship_Location and Is_Complete values of a raw query.
// Other parameters are skipped without being decoded, so a foreign key that
// url.ParseQuery would reject (a ';' or a bad escape) does not fail the state.
func gameParams(rawQuery string) (url.Values, error) {
	q := url.Values{}
	for _, pair := range strings.Split(rawQuery, "&") {
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil || (key != keyShipLocation && key != keyIsComplete) {
			continue
		}
		val, err := url.QueryUnescape(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedState, key, err)
		}
		q.Add(key, val)
	}
	return q, nil
}
