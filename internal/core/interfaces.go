package core

import (
	"time"

	"github.com/avolkov/parlor/internal/domain"
)

// ConnID is the opaque identifier of one live network connection.
type ConnID string

// SignalConn abstracts the transport endpoint of a member.
// Owned by the adapter; the adapter must Close() it. TrySend must never
// block, so it is safe to call while holding a room's lock.
type SignalConn interface {
	TrySend([]byte) error
}

// MemberDTO is a read-only roster view (no transport fields).
type MemberDTO struct {
	ID       ConnID    `json:"id"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joined_at"`
}

// RoomInfo is the ops-facing room listing entry.
type RoomInfo struct {
	Code        string `json:"code"`
	MemberCount int    `json:"member_count"`
	MaxUsers    int    `json:"max_users,omitempty"`
	IsGlobal    bool   `json:"is_global,omitempty"`
}

// Snapshot is what a successful create/join hands back to the caller:
// a consistent view of the room taken under its lock.
type Snapshot struct {
	Code     string           `json:"code"`
	IsGlobal bool             `json:"is_global"`
	MaxUsers int              `json:"max_users,omitempty"`
	OwnerID  ConnID           `json:"owner_id,omitempty"`
	Members  []MemberDTO      `json:"members"`
	History  []domain.Message `json:"history"`
}

// OutcomeKind tags what a member removal did to room ownership, so
// callers and tests can assert on succession directly.
type OutcomeKind int

const (
	OwnerUnchanged OutcomeKind = iota
	OwnerReassigned
	RoomClosed
)

// RemoveOutcome reports the result of removing a member.
type RemoveOutcome struct {
	Kind         OutcomeKind
	NewOwner     ConnID
	NewOwnerName string
}
