package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/avolkov/parlor/internal/domain"
)

// Store owns the code->Room mapping. The code is the sole room identity;
// create, lookup and delete serialize through the store's lock. Rooms are
// only ever reachable through here and only the session manager mutates
// them.
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewStore builds the store with the permanent global room already live.
func NewStore() *Store {
	s := &Store{rooms: make(map[string]*Room)}
	s.rooms[domain.GlobalCode] = NewRoom(domain.NewGlobalRoom())
	return s
}

// Put publishes a freshly built room. The duplicate check and the insert
// are one critical section; callers never overwrite a live code. The room
// arrives with its creator already joined, so an empty room is never
// observable through the store.
func (s *Store) Put(room *Room) error {
	code := room.Meta().Code
	if err := domain.ValidateCode(code); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[code]; ok {
		return domain.ErrDuplicateCode
	}
	s.rooms[code] = room
	log.Info().Str("module", "core.store").Str("room", code).
		Int("max_users", room.Meta().MaxUsers).Msg("room created")
	return nil
}

func (s *Store) Get(code string) (*Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	return room, ok
}

func (s *Store) Global() *Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[domain.GlobalCode]
}

// Delete drops a room from the table. The global room is never deleted.
func (s *Store) Delete(code string) {
	if code == domain.GlobalCode {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[code]; ok {
		delete(s.rooms, code)
		log.Info().Str("module", "core.store").Str("room", code).Msg("room deleted")
	}
}

func (s *Store) List() []RoomInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RoomInfo, 0, len(s.rooms))
	for code, r := range s.rooms {
		out = append(out, RoomInfo{
			Code:        code,
			MemberCount: r.MemberCount(),
			MaxUsers:    r.Meta().MaxUsers,
			IsGlobal:    r.Meta().IsGlobal,
		})
	}
	return out
}
