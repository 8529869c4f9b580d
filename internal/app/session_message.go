package app

import (
	"github.com/google/uuid"

	"github.com/avolkov/parlor/internal/core"
	"github.com/avolkov/parlor/internal/domain"
)

// SendMessage admits, stores and broadcasts one message. The throttle
// timestamp only advances once all cheaper validations have passed.
func (s *Session) SendMessage(id core.ConnID, text string, kind domain.MessageKind) (domain.Message, error) {
	code, name, ok := s.reg.RoomOf(id)
	if !ok {
		return domain.Message{}, domain.ErrNotInRoom
	}
	if kind == "" {
		kind = domain.KindPlain
	}
	if !kind.Valid() {
		return domain.Message{}, domain.ErrInvalidInput
	}
	safe, err := domain.SanitizeText(text)
	if err != nil {
		return domain.Message{}, err
	}
	if !s.throttle.Allow(id) {
		return domain.Message{}, domain.ErrRateLimited
	}

	room, ok := s.store.Get(code)
	if !ok {
		s.reg.ClearRoom(id)
		return domain.Message{}, domain.ErrNotInRoom
	}
	msg := domain.Message{
		ID:     uuid.NewString(),
		Author: name,
		Text:   safe,
		Kind:   kind,
		Ts:     s.now(),
	}
	if err := room.Append(msg); err != nil {
		s.reg.ClearRoom(id)
		return domain.Message{}, domain.ErrNotInRoom
	}
	return msg, nil
}

// EditMessage rewrites a message the caller authored, within the edit
// window measured against the message's original timestamp.
func (s *Session) EditMessage(id core.ConnID, msgID, text string) (domain.Message, error) {
	code, name, ok := s.reg.RoomOf(id)
	if !ok {
		return domain.Message{}, domain.ErrNotInRoom
	}
	safe, err := domain.SanitizeText(text)
	if err != nil {
		return domain.Message{}, err
	}
	room, ok := s.store.Get(code)
	if !ok {
		return domain.Message{}, domain.ErrNotInRoom
	}
	return room.Edit(name, msgID, safe, s.now())
}

// DeleteMessage removes a message the caller authored. No time window.
func (s *Session) DeleteMessage(id core.ConnID, msgID string) error {
	code, name, ok := s.reg.RoomOf(id)
	if !ok {
		return domain.ErrNotInRoom
	}
	room, ok := s.store.Get(code)
	if !ok {
		return domain.ErrNotInRoom
	}
	return room.Delete(name, msgID)
}

// ClearRoom truncates the room's history. Host-only, never global.
func (s *Session) ClearRoom(id core.ConnID) error {
	code, name, ok := s.reg.RoomOf(id)
	if !ok {
		return domain.ErrNotInRoom
	}
	room, ok := s.store.Get(code)
	if !ok {
		return domain.ErrNotInRoom
	}
	return room.Clear(id, name)
}

// Typing relays the transient typing signal to the caller's roommates.
func (s *Session) Typing(id core.ConnID, isTyping bool) {
	code, name, ok := s.reg.RoomOf(id)
	if !ok {
		return
	}
	if room, ok := s.store.Get(code); ok {
		room.Typing(id, name, isTyping)
	}
}
