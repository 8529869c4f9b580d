// Package app holds the room session manager: the only component that
// mutates rooms, connections and their relations. Adapters call in with a
// connection id, the manager validates against store state, commits and
// broadcasts.
package app

import (
	"time"

	"github.com/avolkov/parlor/internal/core"
	"github.com/avolkov/parlor/internal/domain"
)

type Session struct {
	store    *core.Store
	reg      *Registry
	throttle *Throttle
	verifier Verifier

	// injectable clock for the rate-limit and edit-window checks
	now func() time.Time
}

func NewSession(store *core.Store, reg *Registry, verifier Verifier) *Session {
	return &Session{
		store:    store,
		reg:      reg,
		throttle: NewThrottle(domain.MessageInterval),
		verifier: verifier,
		now:      time.Now,
	}
}

// Connect registers a fresh network connection.
func (s *Session) Connect(id core.ConnID, conn core.SignalConn) {
	s.reg.Register(id, conn)
}

// Disconnect runs the leave path for an abruptly dropped connection and
// then releases its identifier.
func (s *Session) Disconnect(id core.ConnID) {
	s.leave(id)
	s.reg.Unregister(id)
	s.throttle.Forget(id)
}

func (s *Session) ListRooms() []core.RoomInfo {
	return s.store.List()
}

// leave removes the connection from its current room, if any, and drops
// the room when that emptied it.
func (s *Session) leave(id core.ConnID) (core.RemoveOutcome, bool) {
	code, _, ok := s.reg.RoomOf(id)
	if !ok {
		return core.RemoveOutcome{}, false
	}
	s.reg.ClearRoom(id)
	room, ok := s.store.Get(code)
	if !ok {
		return core.RemoveOutcome{}, false
	}
	out, removed := room.Remove(id)
	if removed && out.Kind == core.RoomClosed {
		s.store.Delete(code)
	}
	return out, removed
}
