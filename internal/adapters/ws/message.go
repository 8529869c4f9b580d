package ws

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/avolkov/parlor/internal/core"
	"github.com/avolkov/parlor/internal/domain"
)

func (ctl *Controller) handleMessage(id core.ConnID, c *Conn, data []byte) {
	var p struct {
		Type string             `json:"type"`
		Text string             `json:"text"`
		Kind domain.MessageKind `json:"kind"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad message payload")
		ctl.sendErr(c, "message", domain.ErrInvalidInput)
		return
	}
	if _, err := ctl.Session.SendMessage(id, p.Text, p.Kind); err != nil {
		ctl.sendErr(c, "message", err)
		return
	}
	ctl.sendOK(c, "message")
}

func (ctl *Controller) handleEdit(id core.ConnID, c *Conn, data []byte) {
	var p struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad edit payload")
		ctl.sendErr(c, "edit", domain.ErrInvalidInput)
		return
	}
	if _, err := ctl.Session.EditMessage(id, p.ID, p.Text); err != nil {
		ctl.sendErr(c, "edit", err)
		return
	}
	ctl.sendOK(c, "edit")
}

func (ctl *Controller) handleDelete(id core.ConnID, c *Conn, data []byte) {
	var p struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad delete payload")
		ctl.sendErr(c, "delete", domain.ErrInvalidInput)
		return
	}
	if err := ctl.Session.DeleteMessage(id, p.ID); err != nil {
		ctl.sendErr(c, "delete", err)
		return
	}
	ctl.sendOK(c, "delete")
}

func (ctl *Controller) handleClear(id core.ConnID, c *Conn) {
	if err := ctl.Session.ClearRoom(id); err != nil {
		ctl.sendErr(c, "clear", err)
		return
	}
	ctl.sendOK(c, "clear")
}

// Typing is fire-and-forget; stale indicators are the receiving UI's
// problem, not ours.
func (ctl *Controller) handleTyping(id core.ConnID, data []byte) {
	var p struct {
		Type     string `json:"type"`
		IsTyping bool   `json:"is_typing"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad typing payload")
		return
	}
	ctl.Session.Typing(id, p.IsTyping)
}
