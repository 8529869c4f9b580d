package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkov/parlor/internal/core"
	"github.com/avolkov/parlor/internal/domain"
)

func seededRoom(t *testing.T, code string) *core.Room {
	t.Helper()
	room := core.NewRoom(domain.NewRoom(code, "", 10, true))
	m := &core.Member{Name: "Alice", JoinedAt: time.Now(), Seq: 1, Conn: &fakeConn{}}
	_, err := room.Join("c-alice", m, true)
	require.NoError(t, err)
	return room
}

func TestStoreGlobalRoomAlwaysLive(t *testing.T) {
	s := core.NewStore()
	global, ok := s.Get(domain.GlobalCode)
	require.True(t, ok)
	assert.True(t, global.Meta().IsGlobal)
	assert.Same(t, global, s.Global())

	s.Delete(domain.GlobalCode)
	_, ok = s.Get(domain.GlobalCode)
	assert.True(t, ok, "global room is never deleted")
}

func TestStorePutRejectsDuplicates(t *testing.T) {
	s := core.NewStore()
	require.NoError(t, s.Put(seededRoom(t, "ABC1")))
	assert.ErrorIs(t, s.Put(seededRoom(t, "ABC1")), domain.ErrDuplicateCode)
	assert.ErrorIs(t, s.Put(seededRoom(t, domain.GlobalCode)), domain.ErrDuplicateCode)
}

func TestStorePutRejectsBadCode(t *testing.T) {
	room := core.NewRoom(domain.NewRoom("", "", 10, true))
	assert.ErrorIs(t, core.NewStore().Put(room), domain.ErrInvalidInput)
}

func TestStoreCodeIsCaseSensitive(t *testing.T) {
	s := core.NewStore()
	require.NoError(t, s.Put(seededRoom(t, "abc")))
	require.NoError(t, s.Put(seededRoom(t, "ABC")))

	_, ok := s.Get("abc")
	assert.True(t, ok)
	_, ok = s.Get("ABC")
	assert.True(t, ok)
}

func TestStoreDelete(t *testing.T) {
	s := core.NewStore()
	require.NoError(t, s.Put(seededRoom(t, "ABC1")))
	s.Delete("ABC1")
	_, ok := s.Get("ABC1")
	assert.False(t, ok)
}

func TestStoreList(t *testing.T) {
	s := core.NewStore()
	require.NoError(t, s.Put(seededRoom(t, "ABC1")))

	infos := s.List()
	require.Len(t, infos, 2)
	byCode := map[string]core.RoomInfo{}
	for _, info := range infos {
		byCode[info.Code] = info
	}
	assert.True(t, byCode[domain.GlobalCode].IsGlobal)
	assert.Equal(t, 1, byCode["ABC1"].MemberCount)
	assert.Equal(t, 10, byCode["ABC1"].MaxUsers)
}
