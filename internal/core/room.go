package core

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avolkov/parlor/internal/domain"
)

// Member is one live connection's participation in a room.
type Member struct {
	Name     string
	JoinedAt time.Time
	// Seq is the connection's registration order; succession picks the
	// surviving member with the lowest one.
	Seq  uint64
	Conn SignalConn
}

// Room is a threadsafe in-memory room. Every transition that reads then
// writes members, owner or history runs under the room's lock, and its
// broadcast goes out before the lock is released, so all members observe
// mutations in commit order. It never closes adapter-owned connections.
type Room struct {
	meta *domain.Room

	mu      sync.RWMutex
	members map[ConnID]*Member
	ownerID ConnID
	history []domain.Message
	// closed marks a room that has been emptied or force-closed but whose
	// pointer may still be held by a racing caller; every transition on a
	// closed room fails ErrRoomNotFound.
	closed bool
}

func NewRoom(meta *domain.Room) *Room {
	return &Room{
		meta:    meta,
		members: make(map[ConnID]*Member),
	}
}

func (r *Room) Meta() *domain.Room { return r.meta }

func (r *Room) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

func (r *Room) Owner() ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ownerID
}

// Join adds a member and returns a consistent snapshot of the room taken
// in the same critical section. asOwner is set only by the create path;
// the global room never has an owner.
func (r *Room) Join(id ConnID, m *Member, asOwner bool) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, domain.ErrRoomNotFound
	}
	if r.meta.MaxUsers > 0 && len(r.members) >= r.meta.MaxUsers {
		return nil, domain.ErrRoomFull
	}
	for _, existing := range r.members {
		if strings.EqualFold(existing.Name, m.Name) {
			return nil, domain.ErrNameTaken
		}
	}

	r.members[id] = m
	if asOwner && !r.meta.IsGlobal {
		r.ownerID = id
	}
	log.Info().Str("module", "core.room").Str("room", r.meta.Code).
		Str("conn", string(id)).Str("username", m.Name).Msg("member joined")

	r.broadcastLocked(r.rosterEventLocked())
	if !asOwner {
		where := "the room"
		if r.meta.IsGlobal {
			where = "Global Chat"
		}
		r.broadcastLocked(SystemEvent{Type: EvSystem, Text: m.Name + " joined " + where + "."})
	}
	return r.snapshotLocked(), nil
}

// Remove takes a member out and runs ownership succession. When the last
// member of a non-global room leaves, the room marks itself closed in the
// same critical section, so a racing Join cannot resurrect it after the
// store drops it.
func (r *Room) Remove(id ConnID) (RemoveOutcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[id]; !ok {
		return RemoveOutcome{}, false
	}
	delete(r.members, id)
	log.Info().Str("module", "core.room").Str("room", r.meta.Code).
		Str("conn", string(id)).Msg("member removed")

	if !r.meta.IsGlobal && len(r.members) == 0 {
		r.closed = true
		r.ownerID = ""
		return RemoveOutcome{Kind: RoomClosed}, true
	}

	out := RemoveOutcome{Kind: OwnerUnchanged}
	if r.ownerID == id {
		nid, next := r.earliestLocked()
		r.ownerID = nid
		out = RemoveOutcome{Kind: OwnerReassigned, NewOwner: nid, NewOwnerName: next.Name}
		r.broadcastLocked(SystemEvent{Type: EvSystem, Text: next.Name + " is now the host."})
	}
	r.broadcastLocked(r.rosterEventLocked())
	return out, true
}

// earliestLocked picks the surviving member with the lowest registration
// order. Callers guarantee members is non-empty.
func (r *Room) earliestLocked() (ConnID, *Member) {
	var bestID ConnID
	var best *Member
	for id, m := range r.members {
		if best == nil || m.Seq < best.Seq {
			bestID, best = id, m
		}
	}
	return bestID, best
}

// Append adds a message to the ring, evicting the oldest past the bound.
func (r *Room) Append(msg domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return domain.ErrRoomNotFound
	}
	r.history = append(r.history, msg)
	if len(r.history) > domain.HistoryLimit {
		r.history = r.history[len(r.history)-domain.HistoryLimit:]
	}
	r.broadcastLocked(MessageEvent{Type: EvMessage, Message: msg})
	return nil
}

// Edit mutates a history entry in place, author-only and only within the
// edit window. Identity by ID is preserved across the edit.
func (r *Room) Edit(author, msgID, text string, now time.Time) (domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(msgID)
	if i < 0 {
		return domain.Message{}, domain.ErrMessageNotFound
	}
	msg := &r.history[i]
	if msg.Author != author {
		return domain.Message{}, domain.ErrNotAuthor
	}
	if now.Sub(msg.Ts) > domain.EditWindow {
		return domain.Message{}, domain.ErrEditWindowExpired
	}
	msg.Text = text
	edited := now
	msg.EditedAt = &edited
	r.broadcastLocked(MessageEditedEvent{Type: EvMessageEdited, ID: msg.ID, Text: msg.Text, EditedAt: now})
	return *msg, nil
}

// Delete removes a history entry, author-only, no time window.
func (r *Room) Delete(author, msgID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(msgID)
	if i < 0 {
		return domain.ErrMessageNotFound
	}
	if r.history[i].Author != author {
		return domain.ErrNotAuthor
	}
	r.history = append(r.history[:i], r.history[i+1:]...)
	r.broadcastLocked(MessageDeletedEvent{Type: EvMessageDeleted, ID: msgID})
	return nil
}

func (r *Room) indexLocked(msgID string) int {
	for i := range r.history {
		if r.history[i].ID == msgID {
			return i
		}
	}
	return -1
}

// Clear truncates history. Host-only, never on the global room.
func (r *Room) Clear(by ConnID, byName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.meta.IsGlobal {
		return domain.ErrGlobalRoom
	}
	if r.ownerID != by {
		return domain.ErrNotOwner
	}
	r.history = nil
	r.broadcastLocked(RoomClearedEvent{Type: EvRoomCleared, By: byName})
	return nil
}

// Typing relays a transient activity signal to the other members. No
// state is stored and no invariant is maintained here.
func (r *Room) Typing(from ConnID, name string, isTyping bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b := encode(TypingEvent{Type: EvTyping, ID: from, Username: name, IsTyping: isTyping})
	if b == nil {
		return
	}
	for id, m := range r.members {
		if id == from {
			continue
		}
		_ = m.Conn.TrySend(b)
	}
}

// Close force-closes the room: notifies everyone with a kicked event,
// drops all members and marks the room dead. Returns the connections
// that were detached so the caller can clear their registry entries.
func (r *Room) Close(reason string) []ConnID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.broadcastLocked(KickedEvent{Type: EvKicked, Reason: reason})
	ids := make([]ConnID, 0, len(r.members))
	for id := range r.members {
		ids = append(ids, id)
	}
	r.members = make(map[ConnID]*Member)
	r.ownerID = ""
	r.closed = true
	log.Info().Str("module", "core.room").Str("room", r.meta.Code).
		Int("kicked", len(ids)).Msg("room closed")
	return ids
}

func (r *Room) Roster() ([]MemberDTO, ConnID) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rosterLocked(), r.ownerID
}

func (r *Room) History() []domain.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Message(nil), r.history...)
}

func (r *Room) rosterLocked() []MemberDTO {
	out := make([]MemberDTO, 0, len(r.members))
	for id, m := range r.members {
		out = append(out, MemberDTO{ID: id, Username: m.Name, JoinedAt: m.JoinedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

func (r *Room) rosterEventLocked() RosterEvent {
	return RosterEvent{Type: EvRoster, Members: r.rosterLocked(), OwnerID: r.ownerID}
}

func (r *Room) snapshotLocked() *Snapshot {
	return &Snapshot{
		Code:     r.meta.Code,
		IsGlobal: r.meta.IsGlobal,
		MaxUsers: r.meta.MaxUsers,
		OwnerID:  r.ownerID,
		Members:  r.rosterLocked(),
		History:  append([]domain.Message(nil), r.history...),
	}
}

// broadcastLocked fans an event out to every member. TrySend never
// blocks, so holding the lock here is what gives per-room ordering.
func (r *Room) broadcastLocked(v any) {
	b := encode(v)
	if b == nil {
		return
	}
	dropped := 0
	for _, m := range r.members {
		if err := m.Conn.TrySend(b); err != nil {
			dropped++
		}
	}
	if dropped > 0 {
		log.Debug().Str("module", "core.room").Str("room", r.meta.Code).
			Int("dropped", dropped).Msg("broadcast drops")
	}
}
