package pagination

import (
	"strconv"
	"strings"
	"time"

	"beomusic_backend/internal/model"
)

// Cursor marks where the next page starts: the timestamp of the last comment
// already returned. The zero value is the none cursor (start of sequence).
type Cursor struct {
	at  time.Time
	set bool
}

// None is the start-of-sequence cursor.
func None() Cursor {
	return Cursor{}
}

// At returns a cursor positioned at t.
func At(t time.Time) Cursor {
	return Cursor{at: t, set: true}
}

func (c Cursor) IsNone() bool {
	return !c.set
}

// Time returns the cursor position. It is the zero time for the none cursor.
func (c Cursor) Time() time.Time {
	return c.at
}

// String encodes the cursor as decimal Unix nanoseconds, "" for none.
func (c Cursor) String() string {
	if !c.set {
		return ""
	}
	return strconv.FormatInt(c.at.UnixNano(), 10)
}

// Ptr returns the encoded cursor, or nil for none. Handy for JSON responses.
func (c Cursor) Ptr() *string {
	if !c.set {
		return nil
	}
	s := c.String()
	return &s
}

// ParseCursor decodes a cursor produced by String. Blank input is the none cursor.
func ParseCursor(s string) (Cursor, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return None(), nil
	}
	nanos, err := strconv.ParseInt(s, 10, 64)
	if err != nil || nanos < 0 {
		return Cursor{}, model.ErrInvalidCursor
	}
	return At(time.Unix(0, nanos).UTC()), nil
}
