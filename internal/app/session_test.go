package app

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkov/parlor/internal/core"
	"github.com/avolkov/parlor/internal/domain"
)

type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
}

func (f *fakeConn) TrySend(b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(b))
	copy(cp, b)
	f.frames = append(f.frames, cp)
	return nil
}

func (f *fakeConn) lastOfType(t *testing.T, typ string) map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	var found map[string]any
	for _, b := range f.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(b, &m))
		if m["type"] == typ {
			found = m
		}
	}
	return found
}

// fakeVerifier keeps the session tests off the real bcrypt cost; the real
// implementation is covered in hasher_test.go.
type fakeVerifier struct{}

func (fakeVerifier) Hash(pw string) (string, error) { return "h:" + pw, nil }
func (fakeVerifier) Compare(hash, pw string) bool   { return hash == "h:"+pw }

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type harness struct {
	session *Session
	store   *core.Store
	clock   *fakeClock
}

func newHarness() *harness {
	store := core.NewStore()
	session := NewSession(store, NewRegistry(), fakeVerifier{})
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	session.now = clock.Now
	session.throttle.now = clock.Now
	return &harness{session: session, store: store, clock: clock}
}

func (h *harness) connect(id string) *fakeConn {
	conn := &fakeConn{}
	h.session.Connect(core.ConnID(id), conn)
	return conn
}

func TestCreateJoinFullScenario(t *testing.T) {
	h := newHarness()
	h.connect("c-alice")
	h.connect("c-bob")
	h.connect("c-carol")

	snap, err := h.session.CreateRoom("c-alice", "Alice", "ABC1", "", 2, true)
	require.NoError(t, err)
	assert.Equal(t, "ABC1", snap.Code)
	assert.Equal(t, core.ConnID("c-alice"), snap.OwnerID)
	assert.Len(t, snap.Members, 1)
	assert.Empty(t, snap.History)

	snap, err = h.session.JoinRoom("c-bob", "Bob", "ABC1", "")
	require.NoError(t, err)
	assert.Len(t, snap.Members, 2)
	assert.Equal(t, core.ConnID("c-alice"), snap.OwnerID)

	_, err = h.session.JoinRoom("c-carol", "Carol", "ABC1", "")
	assert.ErrorIs(t, err, domain.ErrRoomFull)

	room, ok := h.store.Get("ABC1")
	require.True(t, ok)
	assert.Equal(t, 2, room.MemberCount())
}

func TestOwnerDisconnectSuccession(t *testing.T) {
	h := newHarness()
	h.connect("c-alice")
	bobConn := h.connect("c-bob")

	_, err := h.session.CreateRoom("c-alice", "Alice", "ABC1", "", 10, true)
	require.NoError(t, err)
	_, err = h.session.JoinRoom("c-bob", "Bob", "ABC1", "")
	require.NoError(t, err)

	h.session.Disconnect("c-alice")

	room, ok := h.store.Get("ABC1")
	require.True(t, ok)
	assert.Equal(t, core.ConnID("c-bob"), room.Owner())

	roster := bobConn.lastOfType(t, core.EvRoster)
	require.NotNil(t, roster)
	assert.Equal(t, "c-bob", roster["owner_id"])
	notice := bobConn.lastOfType(t, core.EvSystem)
	require.NotNil(t, notice)
	assert.Equal(t, "Bob is now the host.", notice["text"])
}

func TestLastLeaveDeletesRoom(t *testing.T) {
	h := newHarness()
	h.connect("c-alice")
	h.connect("c-bob")

	_, err := h.session.CreateRoom("c-alice", "Alice", "ABC1", "", 10, true)
	require.NoError(t, err)
	_, err = h.session.JoinRoom("c-bob", "Bob", "ABC1", "")
	require.NoError(t, err)

	out, ok := h.session.LeaveRoom("c-alice")
	require.True(t, ok)
	assert.Equal(t, core.OwnerReassigned, out.Kind)

	out, ok = h.session.LeaveRoom("c-bob")
	require.True(t, ok)
	assert.Equal(t, core.RoomClosed, out.Kind)

	_, found := h.store.Get("ABC1")
	assert.False(t, found)
}

func TestPasswordGate(t *testing.T) {
	h := newHarness()
	h.connect("c-alice")
	h.connect("c-bob")

	_, err := h.session.CreateRoom("c-alice", "Alice", "ABC1", "sekret", 10, true)
	require.NoError(t, err)

	_, err = h.session.JoinRoom("c-bob", "Bob", "ABC1", "wrong")
	assert.ErrorIs(t, err, domain.ErrBadPassword)
	_, err = h.session.JoinRoom("c-bob", "Bob", "ABC1", "")
	assert.ErrorIs(t, err, domain.ErrBadPassword)

	snap, err := h.session.JoinRoom("c-bob", "Bob", "ABC1", "sekret")
	require.NoError(t, err)
	assert.Len(t, snap.Members, 2)
}

func TestJoinUnknownRoom(t *testing.T) {
	h := newHarness()
	h.connect("c-bob")
	_, err := h.session.JoinRoom("c-bob", "Bob", "NOPE", "")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestDuplicateCodeRejected(t *testing.T) {
	h := newHarness()
	h.connect("c-alice")
	h.connect("c-bob")

	_, err := h.session.CreateRoom("c-alice", "Alice", "ABC1", "", 10, true)
	require.NoError(t, err)
	_, err = h.session.CreateRoom("c-bob", "Bob", "ABC1", "", 10, true)
	assert.ErrorIs(t, err, domain.ErrDuplicateCode)

	// the failed create must not have detached Alice
	room, ok := h.store.Get("ABC1")
	require.True(t, ok)
	assert.Equal(t, 1, room.MemberCount())
}

func TestJoinGlobalEnforcesUniqueName(t *testing.T) {
	h := newHarness()
	h.connect("c-alice")
	h.connect("c-imposter")

	snap, err := h.session.JoinGlobal("c-alice", "Alice")
	require.NoError(t, err)
	assert.True(t, snap.IsGlobal)
	assert.Equal(t, core.ConnID(""), snap.OwnerID)

	_, err = h.session.JoinGlobal("c-imposter", "alice")
	assert.ErrorIs(t, err, domain.ErrNameTaken)
}

func TestSendMessageValidation(t *testing.T) {
	h := newHarness()
	h.connect("c-alice")

	_, err := h.session.SendMessage("c-alice", "hello", domain.KindPlain)
	assert.ErrorIs(t, err, domain.ErrNotInRoom)

	_, err = h.session.CreateRoom("c-alice", "Alice", "ABC1", "", 10, true)
	require.NoError(t, err)

	_, err = h.session.SendMessage("c-alice", "   ", domain.KindPlain)
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)

	_, err = h.session.SendMessage("c-alice", "hi", domain.MessageKind("gif"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	msg, err := h.session.SendMessage("c-alice", "<b>hi</b>", domain.KindPlain)
	require.NoError(t, err)
	assert.Equal(t, "&lt;b&gt;hi&lt;/b&gt;", msg.Text)
	assert.Equal(t, "Alice", msg.Author)
	assert.NotEmpty(t, msg.ID)

	h.clock.Advance(time.Second)
	sticker, err := h.session.SendMessage("c-alice", ":party:", domain.KindSticker)
	require.NoError(t, err)
	assert.Equal(t, domain.KindSticker, sticker.Kind)
}

func TestRateLimit(t *testing.T) {
	h := newHarness()
	h.connect("c-alice")
	_, err := h.session.CreateRoom("c-alice", "Alice", "ABC1", "", 10, true)
	require.NoError(t, err)

	_, err = h.session.SendMessage("c-alice", "one", domain.KindPlain)
	require.NoError(t, err)

	h.clock.Advance(150 * time.Millisecond)
	_, err = h.session.SendMessage("c-alice", "two", domain.KindPlain)
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	h.clock.Advance(250 * time.Millisecond)
	_, err = h.session.SendMessage("c-alice", "three", domain.KindPlain)
	assert.NoError(t, err)
}

func TestRateLimitIsPerConnection(t *testing.T) {
	h := newHarness()
	h.connect("c-alice")
	h.connect("c-bob")
	_, err := h.session.CreateRoom("c-alice", "Alice", "ABC1", "", 10, true)
	require.NoError(t, err)
	_, err = h.session.JoinRoom("c-bob", "Bob", "ABC1", "")
	require.NoError(t, err)

	_, err = h.session.SendMessage("c-alice", "one", domain.KindPlain)
	require.NoError(t, err)
	_, err = h.session.SendMessage("c-bob", "two", domain.KindPlain)
	assert.NoError(t, err)
}

func TestEditWindow(t *testing.T) {
	h := newHarness()
	h.connect("c-alice")
	_, err := h.session.CreateRoom("c-alice", "Alice", "ABC1", "", 10, true)
	require.NoError(t, err)

	msg, err := h.session.SendMessage("c-alice", "tpyo", domain.KindPlain)
	require.NoError(t, err)

	h.clock.Advance(59 * time.Second)
	edited, err := h.session.EditMessage("c-alice", msg.ID, "typo")
	require.NoError(t, err)
	assert.Equal(t, "typo", edited.Text)

	h.clock.Advance(2 * time.Second)
	_, err = h.session.EditMessage("c-alice", msg.ID, "too late")
	assert.ErrorIs(t, err, domain.ErrEditWindowExpired)
}

func TestEditDeleteAuthorship(t *testing.T) {
	h := newHarness()
	h.connect("c-alice")
	h.connect("c-bob")
	_, err := h.session.CreateRoom("c-alice", "Alice", "ABC1", "", 10, true)
	require.NoError(t, err)
	_, err = h.session.JoinRoom("c-bob", "Bob", "ABC1", "")
	require.NoError(t, err)

	msg, err := h.session.SendMessage("c-alice", "mine", domain.KindPlain)
	require.NoError(t, err)

	_, err = h.session.EditMessage("c-bob", msg.ID, "stolen")
	assert.ErrorIs(t, err, domain.ErrNotAuthor)
	assert.ErrorIs(t, h.session.DeleteMessage("c-bob", msg.ID), domain.ErrNotAuthor)

	_, err = h.session.EditMessage("c-alice", "no-such-id", "x")
	assert.ErrorIs(t, err, domain.ErrMessageNotFound)

	require.NoError(t, h.session.DeleteMessage("c-alice", msg.ID))
}

func TestClearRoomAuthorization(t *testing.T) {
	h := newHarness()
	h.connect("c-alice")
	h.connect("c-bob")
	h.connect("c-global")

	_, err := h.session.CreateRoom("c-alice", "Alice", "ABC1", "", 10, true)
	require.NoError(t, err)
	_, err = h.session.JoinRoom("c-bob", "Bob", "ABC1", "")
	require.NoError(t, err)
	_, err = h.session.SendMessage("c-alice", "hello", domain.KindPlain)
	require.NoError(t, err)

	assert.ErrorIs(t, h.session.ClearRoom("c-bob"), domain.ErrNotOwner)
	require.NoError(t, h.session.ClearRoom("c-alice"))

	_, err = h.session.JoinGlobal("c-global", "Watcher")
	require.NoError(t, err)
	assert.ErrorIs(t, h.session.ClearRoom("c-global"), domain.ErrGlobalRoom)
}

func TestClientRefreshSafeTeardown(t *testing.T) {
	h := newHarness()
	h.connect("c-alice")
	bobConn := h.connect("c-bob")

	_, err := h.session.CreateRoom("c-alice", "Alice", "ABC1", "", 10, true)
	require.NoError(t, err)
	_, err = h.session.JoinRoom("c-bob", "Bob", "ABC1", "")
	require.NoError(t, err)

	h.session.ClientRefresh("c-alice")

	_, found := h.store.Get("ABC1")
	assert.False(t, found, "safe room is torn down for everyone")

	kicked := bobConn.lastOfType(t, core.EvKicked)
	require.NotNil(t, kicked)
	assert.Equal(t, "Room closed due to page refresh.", kicked["reason"])

	// Bob's registry entry no longer points anywhere
	_, err = h.session.SendMessage("c-bob", "anyone?", domain.KindPlain)
	assert.ErrorIs(t, err, domain.ErrNotInRoom)
}

func TestClientRefreshUnsafeIsNoop(t *testing.T) {
	h := newHarness()
	h.connect("c-alice")
	h.connect("c-bob")

	_, err := h.session.CreateRoom("c-alice", "Alice", "ABC1", "", 10, false)
	require.NoError(t, err)
	_, err = h.session.JoinRoom("c-bob", "Bob", "ABC1", "")
	require.NoError(t, err)

	h.session.ClientRefresh("c-alice")

	room, found := h.store.Get("ABC1")
	require.True(t, found)
	assert.Equal(t, 2, room.MemberCount())

	// the subsequent drop takes the ordinary leave path
	h.session.Disconnect("c-alice")
	room, found = h.store.Get("ABC1")
	require.True(t, found)
	assert.Equal(t, 1, room.MemberCount())
	assert.Equal(t, core.ConnID("c-bob"), room.Owner())
}

func TestClientRefreshGlobalIsNoop(t *testing.T) {
	h := newHarness()
	h.connect("c-alice")
	_, err := h.session.JoinGlobal("c-alice", "Alice")
	require.NoError(t, err)

	h.session.ClientRefresh("c-alice")

	global := h.store.Global()
	assert.Equal(t, 1, global.MemberCount())
}

func TestJoinSwitchesRooms(t *testing.T) {
	h := newHarness()
	h.connect("c-alice")
	h.connect("c-bob")

	_, err := h.session.CreateRoom("c-alice", "Alice", "ABC1", "", 10, true)
	require.NoError(t, err)
	_, err = h.session.CreateRoom("c-bob", "Bob", "XYZ9", "", 10, true)
	require.NoError(t, err)

	snap, err := h.session.JoinRoom("c-alice", "Alice", "XYZ9", "")
	require.NoError(t, err)
	assert.Len(t, snap.Members, 2)

	// Alice's old room emptied, so it is gone
	_, found := h.store.Get("ABC1")
	assert.False(t, found)
}

func TestTypingRelaysToRoommates(t *testing.T) {
	h := newHarness()
	h.connect("c-alice")
	bobConn := h.connect("c-bob")

	_, err := h.session.CreateRoom("c-alice", "Alice", "ABC1", "", 10, true)
	require.NoError(t, err)
	_, err = h.session.JoinRoom("c-bob", "Bob", "ABC1", "")
	require.NoError(t, err)

	h.session.Typing("c-alice", true)

	ev := bobConn.lastOfType(t, core.EvTyping)
	require.NotNil(t, ev)
	assert.Equal(t, "Alice", ev["username"])
	assert.Equal(t, true, ev["is_typing"])
}
