package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/avolkov/parlor/internal/core"
	"github.com/avolkov/parlor/internal/domain"
)

const writeWait = 5 * time.Second

func (ctl *Controller) writePump(ctx context.Context, c *Conn) {
	ticker := time.NewTicker(ctl.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump processes inbound events one at a time, in order, so no two
// transitions are ever in flight for the same connection. Its exit is the
// disconnect path.
func (ctl *Controller) readPump(ctx context.Context, id core.ConnID, c *Conn) {
	defer func() {
		log.Info().Str("module", "ws").Str("conn", string(id)).Msg("readPump closing")
		ctl.Session.Disconnect(id)
		c.Close()
	}()

	c.conn.SetReadLimit(ctl.ReadLimit)
	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warn().Err(err).Str("module", "ws").Str("conn", string(id)).Msg("readPump read error")
				}
				return
			}
			ctl.handle(id, c, data)
		}
	}
}

func (ctl *Controller) handle(id core.ConnID, c *Conn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad json")
		ctl.sendErr(c, "", domain.ErrInvalidInput)
		return
	}

	switch env.Type {
	case "create":
		ctl.handleCreate(id, c, data)
	case "join":
		ctl.handleJoin(id, c, data)
	case "join_global":
		ctl.handleJoinGlobal(id, c, data)
	case "message":
		ctl.handleMessage(id, c, data)
	case "edit":
		ctl.handleEdit(id, c, data)
	case "delete":
		ctl.handleDelete(id, c, data)
	case "clear":
		ctl.handleClear(id, c)
	case "leave":
		ctl.handleLeave(id, c)
	case "refresh":
		ctl.Session.ClientRefresh(id)
	case "typing":
		ctl.handleTyping(id, data)
	case "ping":
		ctl.sendJSON(c, map[string]any{"type": "pong"})
	default:
		log.Warn().Str("module", "ws").Str("type", env.Type).Msg("unknown signal")
		ctl.sendErr(c, env.Type, domain.ErrInvalidInput)
	}
}

func (ctl *Controller) sendJSON(c *Conn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *Controller) sendOK(c *Conn, op string) {
	ctl.sendJSON(c, map[string]any{"type": "ok", "op": op})
}

func (ctl *Controller) sendErr(c *Conn, op string, err error) {
	ctl.sendJSON(c, map[string]any{
		"type":    "error",
		"op":      op,
		"error":   errCode(err),
		"message": err.Error(),
	})
}

func errCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrDuplicateCode):
		return "duplicate_code"
	case errors.Is(err, domain.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, domain.ErrNameTaken):
		return "name_taken"
	case errors.Is(err, domain.ErrBadPassword):
		return "bad_password"
	case errors.Is(err, domain.ErrRoomFull):
		return "room_full"
	case errors.Is(err, domain.ErrNotInRoom):
		return "not_in_room"
	case errors.Is(err, domain.ErrEmptyMessage):
		return "empty_message"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrMessageNotFound):
		return "message_not_found"
	case errors.Is(err, domain.ErrNotAuthor):
		return "not_author"
	case errors.Is(err, domain.ErrEditWindowExpired):
		return "edit_window_expired"
	case errors.Is(err, domain.ErrNotOwner):
		return "not_owner"
	case errors.Is(err, domain.ErrGlobalRoom):
		return "global_room"
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnknownConnection):
		return "invalid_input"
	default:
		return "server_error"
	}
}
