package core

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avolkov/parlor/internal/domain"
)

// Room broadcast payloads. Every event carries a "type" discriminator so
// clients can dispatch on a single envelope field.

type RosterEvent struct {
	Type    string      `json:"type"`
	Members []MemberDTO `json:"members"`
	OwnerID ConnID      `json:"owner_id,omitempty"`
}

type SystemEvent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type MessageEvent struct {
	Type    string         `json:"type"`
	Message domain.Message `json:"message"`
}

type MessageEditedEvent struct {
	Type     string    `json:"type"`
	ID       string    `json:"id"`
	Text     string    `json:"text"`
	EditedAt time.Time `json:"edited_at"`
}

type MessageDeletedEvent struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type RoomClearedEvent struct {
	Type string `json:"type"`
	By   string `json:"by"`
}

type KickedEvent struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type TypingEvent struct {
	Type     string `json:"type"`
	ID       ConnID `json:"id"`
	Username string `json:"username"`
	IsTyping bool   `json:"is_typing"`
}

const (
	EvRoster         = "roster"
	EvSystem         = "system"
	EvMessage        = "message"
	EvMessageEdited  = "message_edited"
	EvMessageDeleted = "message_deleted"
	EvRoomCleared    = "room_cleared"
	EvKicked         = "kicked"
	EvTyping         = "typing"
)

func encode(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "core.events").Msg("encode event")
		return nil
	}
	return b
}
