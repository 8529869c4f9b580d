package domain

import (
	"html"
	"strings"
	"time"
)

const (
	// HistoryLimit bounds a room's message ring; the oldest entry is
	// evicted when a new message would exceed it.
	HistoryLimit = 500

	// MaxMessageLen caps message text before escaping.
	MaxMessageLen = 2000

	// MessageInterval is the minimum gap between two accepted messages
	// from the same connection.
	MessageInterval = 200 * time.Millisecond

	// EditWindow is how long after posting a message its author may
	// still edit it. Deletes carry no window.
	EditWindow = 60 * time.Second
)

type MessageKind string

const (
	KindPlain   MessageKind = "plain"
	KindSticker MessageKind = "sticker"
)

func (k MessageKind) Valid() bool {
	return k == KindPlain || k == KindSticker
}

// Message is a single history entry. Immutable once broadcast except for
// Text/EditedAt via the author-only edit path; ID is the addressing key.
type Message struct {
	ID       string      `json:"id"`
	Author   string      `json:"author"`
	Text     string      `json:"text"`
	Kind     MessageKind `json:"kind"`
	Ts       time.Time   `json:"ts"`
	EditedAt *time.Time  `json:"edited_at,omitempty"`
}

// SanitizeText trims, length-caps and HTML-escapes message text. This is
// output encoding, not input validation: literal content is preserved,
// markup cannot survive it.
func SanitizeText(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyMessage
	}
	runes := []rune(text)
	if len(runes) > MaxMessageLen {
		text = string(runes[:MaxMessageLen])
	}
	return html.EscapeString(text), nil
}
