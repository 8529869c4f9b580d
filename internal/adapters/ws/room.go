package ws

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/avolkov/parlor/internal/core"
	"github.com/avolkov/parlor/internal/domain"
)

// roomState is the direct reply to a successful create/join: the room
// descriptor plus a consistent history/roster snapshot.
type roomState struct {
	Type string `json:"type"`
	*core.Snapshot
}

func (ctl *Controller) handleCreate(id core.ConnID, c *Conn, data []byte) {
	var p struct {
		Type     string `json:"type"`
		Username string `json:"username"`
		Code     string `json:"code"`
		Password string `json:"password"`
		MaxUsers int    `json:"max_users"`
		Safe     *bool  `json:"safe"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad create payload")
		ctl.sendErr(c, "create", domain.ErrInvalidInput)
		return
	}
	safe := true
	if p.Safe != nil {
		safe = *p.Safe
	}
	snap, err := ctl.Session.CreateRoom(id, p.Username, p.Code, p.Password, p.MaxUsers, safe)
	if err != nil {
		ctl.sendErr(c, "create", err)
		return
	}
	ctl.sendJSON(c, roomState{Type: "room_state", Snapshot: snap})
}

func (ctl *Controller) handleJoin(id core.ConnID, c *Conn, data []byte) {
	var p struct {
		Type     string `json:"type"`
		Username string `json:"username"`
		Code     string `json:"code"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad join payload")
		ctl.sendErr(c, "join", domain.ErrInvalidInput)
		return
	}
	snap, err := ctl.Session.JoinRoom(id, p.Username, p.Code, p.Password)
	if err != nil {
		ctl.sendErr(c, "join", err)
		return
	}
	ctl.sendJSON(c, roomState{Type: "room_state", Snapshot: snap})
}

func (ctl *Controller) handleJoinGlobal(id core.ConnID, c *Conn, data []byte) {
	var p struct {
		Type     string `json:"type"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad join_global payload")
		ctl.sendErr(c, "join_global", domain.ErrInvalidInput)
		return
	}
	snap, err := ctl.Session.JoinGlobal(id, p.Username)
	if err != nil {
		ctl.sendErr(c, "join_global", err)
		return
	}
	ctl.sendJSON(c, roomState{Type: "room_state", Snapshot: snap})
}

// handleLeave is the explicit leave; the connection stays up.
func (ctl *Controller) handleLeave(id core.ConnID, c *Conn) {
	ctl.Session.LeaveRoom(id)
	ctl.sendJSON(c, map[string]any{"type": "left"})
}
