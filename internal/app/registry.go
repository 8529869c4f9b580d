package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avolkov/parlor/internal/core"
)

type connEntry struct {
	Room string // current room code, "" when unjoined
	Name string
	Seq  uint64
	Conn core.SignalConn
}

// Registry maps live connections to their transient state. Entries are
// created on network connect and destroyed on disconnect; nothing here
// survives a reconnect. Per-connection fields are only mutated by the
// transition currently executing for that connection.
type Registry struct {
	mu      sync.RWMutex
	conns   map[core.ConnID]*connEntry
	nextSeq uint64
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[core.ConnID]*connEntry)}
}

// Register creates an entry and assigns the monotonic registration order
// used by ownership succession.
func (r *Registry) Register(id core.ConnID, conn core.SignalConn) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSeq++
	r.conns[id] = &connEntry{Seq: r.nextSeq, Conn: conn}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("registered connection")
	return r.nextSeq
}

func (r *Registry) Unregister(id core.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("unregistered connection")
}

// Bind points a connection at a room and fixes its display name.
func (r *Registry) Bind(id core.ConnID, room, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok {
		return false
	}
	e.Room = room
	e.Name = name
	log.Info().Str("module", "app.registry").Str("conn", string(id)).
		Str("room", room).Str("username", name).Msg("bound to room")
	return true
}

// ClearRoom drops the room association but keeps the connection.
func (r *Registry) ClearRoom(id core.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[id]; ok {
		e.Room = ""
	}
}

// RoomOf returns the connection's current room code and display name.
func (r *Registry) RoomOf(id core.ConnID) (room, name string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[id]
	if !ok || e.Room == "" {
		return "", "", false
	}
	return e.Room, e.Name, true
}

// Member builds the room-membership record for a registered connection.
func (r *Registry) Member(id core.ConnID, name string, joinedAt time.Time) (*core.Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[id]
	if !ok {
		return nil, false
	}
	return &core.Member{Name: name, JoinedAt: joinedAt, Seq: e.Seq, Conn: e.Conn}, true
}

func (r *Registry) Known(id core.ConnID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[id]
	return ok
}
