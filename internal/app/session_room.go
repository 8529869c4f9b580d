package app

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/avolkov/parlor/internal/core"
	"github.com/avolkov/parlor/internal/domain"
)

// CreateRoom creates a room with the caller as sole member and host.
// Password hashing happens before any lock is taken.
func (s *Session) CreateRoom(id core.ConnID, username, code, password string, maxUsers int, safe bool) (*core.Snapshot, error) {
	name, err := domain.SanitizeName(strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if err := domain.ValidateCode(code); err != nil {
		return nil, err
	}
	if !s.reg.Known(id) {
		return nil, domain.ErrUnknownConnection
	}

	hash := ""
	if password != "" {
		hash, err = s.verifier.Hash(password)
		if err != nil {
			return nil, err
		}
	}

	member, ok := s.reg.Member(id, name, s.now())
	if !ok {
		return nil, domain.ErrUnknownConnection
	}

	// Build the room and seat the creator before publishing, so the store
	// never exposes an empty room; a failed Put discards the whole thing
	// and leaves all prior state untouched.
	room := core.NewRoom(domain.NewRoom(code, hash, maxUsers, safe))
	snap, err := room.Join(id, member, true)
	if err != nil {
		return nil, err
	}
	if err := s.store.Put(room); err != nil {
		return nil, err
	}
	s.leave(id)
	s.reg.Bind(id, code, name)
	log.Info().Str("module", "app.session").Str("conn", string(id)).
		Str("room", code).Str("username", name).Msg("room created")
	return snap, nil
}

// JoinRoom adds the caller to an existing room. The bcrypt compare runs
// outside the room's lock against the immutable hash; capacity and name
// uniqueness are re-validated inside the commit.
func (s *Session) JoinRoom(id core.ConnID, username, code, password string) (*core.Snapshot, error) {
	name, err := domain.SanitizeName(strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	room, ok := s.store.Get(strings.TrimSpace(code))
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	if hash := room.Meta().PasswordHash; hash != "" {
		if !s.verifier.Compare(hash, password) {
			return nil, domain.ErrBadPassword
		}
	}
	return s.join(id, room, name)
}

// JoinGlobal is JoinRoom against the fixed global room: no password, no
// capacity bound, name uniqueness still enforced.
func (s *Session) JoinGlobal(id core.ConnID, username string) (*core.Snapshot, error) {
	name, err := domain.SanitizeName(strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	return s.join(id, s.store.Global(), name)
}

func (s *Session) join(id core.ConnID, room *core.Room, name string) (*core.Snapshot, error) {
	member, ok := s.reg.Member(id, name, s.now())
	if !ok {
		return nil, domain.ErrUnknownConnection
	}
	// Join the target first so a rejected join leaves the caller exactly
	// where it was; only a committed join detaches from the old room.
	snap, err := room.Join(id, member, false)
	if err != nil {
		return nil, err
	}
	s.leave(id)
	s.reg.Bind(id, room.Meta().Code, name)
	return snap, nil
}

// LeaveRoom is the explicit leave. The outcome reports what happened to
// ownership so callers and tests can assert on succession.
func (s *Session) LeaveRoom(id core.ConnID) (core.RemoveOutcome, bool) {
	return s.leave(id)
}

// ClientRefresh handles the explicit "about to reload" signal. For a
// safe-teardown room it force-closes the room for everyone; otherwise it
// is a no-op and the subsequent disconnect takes the ordinary drop path.
func (s *Session) ClientRefresh(id core.ConnID) {
	code, _, ok := s.reg.RoomOf(id)
	if !ok {
		return
	}
	room, ok := s.store.Get(code)
	if !ok {
		return
	}
	meta := room.Meta()
	if meta.IsGlobal || !meta.SafeTeardown {
		return
	}
	for _, kicked := range room.Close("Room closed due to page refresh.") {
		s.reg.ClearRoom(kicked)
	}
	s.store.Delete(code)
	log.Info().Str("module", "app.session").Str("room", code).Msg("room torn down on client refresh")
}
