package domain

import "errors"

// Every transition failure maps to exactly one of these sentinels, so
// adapters can translate them to wire error codes with errors.Is.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrDuplicateCode     = errors.New("room code already exists")
	ErrRoomNotFound      = errors.New("room not found")
	ErrNameTaken         = errors.New("username already taken in this room")
	ErrBadPassword       = errors.New("incorrect password")
	ErrRoomFull          = errors.New("room is full")
	ErrNotInRoom         = errors.New("not in a room")
	ErrUnknownConnection = errors.New("unknown connection")
	ErrEmptyMessage      = errors.New("empty message")
	ErrRateLimited       = errors.New("sending messages too quickly")
	ErrMessageNotFound   = errors.New("message not found")
	ErrNotAuthor         = errors.New("only the author can do that")
	ErrEditWindowExpired = errors.New("edit window expired")
	ErrNotOwner          = errors.New("only the host can do that")
	ErrGlobalRoom        = errors.New("not allowed in the global room")
)
