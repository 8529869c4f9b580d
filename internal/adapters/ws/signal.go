// Package ws is the websocket signal adapter: it owns connections and
// their pumps, decodes the type-envelope protocol and calls into the
// session manager. It never mutates room state itself.
package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/avolkov/parlor/internal/app"
	"github.com/avolkov/parlor/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

type Controller struct {
	Session *app.Session

	ReadLimit  int64
	PingPeriod time.Duration
}

func NewController(session *app.Session, readLimit int64, pingPeriod time.Duration) *Controller {
	return &Controller{Session: session, ReadLimit: readLimit, PingPeriod: pingPeriod}
}

// Conn wraps a websocket with a buffered outbound queue. TrySend never
// blocks; a full queue is reported as backpressure and the frame dropped.
type Conn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func (c *Conn) TrySend(b []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- b:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and registers a fresh connection.
// The identifier is per-connection, not per-browser: a reconnect is a
// new connection with no carried-over state.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("upgrade")
		return
	}

	id := core.ConnID(uuid.NewString())
	log.Info().Str("module", "ws").Str("conn", string(id)).
		Str("client_token", c.GetString("client_token")).Msg("new WS connection")

	conn := &Conn{
		conn: ws,
		send: make(chan []byte, 32),
	}
	ctl.Session.Connect(id, conn)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go func() {
		defer cancel()
		ctl.readPump(ctx, id, conn)
	}()
}
