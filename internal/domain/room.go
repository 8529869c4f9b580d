// Package domain contains entities and the limits they are validated
// against, no transport or lifecycle logic.
package domain

import "html"

// GlobalCode identifies the permanent global room. It is created once at
// startup and never deleted.
const GlobalCode = "GLOBAL_CHAT_DIVINE"

const (
	MaxCodeLen     = 36
	MaxUsernameLen = 36

	MinRoomUsers     = 2
	MaxRoomUsers     = 200
	DefaultRoomUsers = 10
)

// Room is the immutable part of a room: everything here is fixed at
// creation time. Membership, ownership and history live in core.
type Room struct {
	Code         string
	PasswordHash string
	MaxUsers     int // 0 means unbounded (global room only)
	IsGlobal     bool
	SafeTeardown bool
}

// NewRoom builds room meta for a player-created room. maxUsers <= 0 falls
// back to the default, anything else is clamped to [MinRoomUsers, MaxRoomUsers].
func NewRoom(code, passwordHash string, maxUsers int, safe bool) *Room {
	return &Room{
		Code:         code,
		PasswordHash: passwordHash,
		MaxUsers:     ClampMaxUsers(maxUsers),
		SafeTeardown: safe,
	}
}

// NewGlobalRoom builds the single always-on room: open join, no owner,
// no capacity bound.
func NewGlobalRoom() *Room {
	return &Room{Code: GlobalCode, IsGlobal: true}
}

func ClampMaxUsers(n int) int {
	if n <= 0 {
		return DefaultRoomUsers
	}
	if n < MinRoomUsers {
		return MinRoomUsers
	}
	if n > MaxRoomUsers {
		return MaxRoomUsers
	}
	return n
}

// ValidateCode checks an externally supplied room code.
func ValidateCode(code string) error {
	if code == "" || len(code) > MaxCodeLen {
		return ErrInvalidInput
	}
	return nil
}

// SanitizeName validates and output-encodes a display name. Escaping here
// keeps markup out of every downstream roster and notice payload.
func SanitizeName(name string) (string, error) {
	if name == "" || len(name) > MaxUsernameLen {
		return "", ErrInvalidInput
	}
	return html.EscapeString(name), nil
}
