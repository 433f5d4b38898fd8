package adapters

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

	"foldback/internal/app"
	"foldback/internal/core"
	"foldback/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

const writeDeadline = 5 * time.Second

// wsConn is the adapter-owned transport endpoint for one session.
type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame
	once sync.Once
}

func (c *wsConn) TrySend(f core.Frame) error {
	select {
	case c.send <- f:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *wsConn) Close() {
	c.once.Do(func() {
		close(c.send)
		_ = c.conn.Close()
	})
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSController upgrades connections and pumps frames between the socket and
// the broker.
type WSController struct {
	Broker     *app.Broker
	Limiter    *SessionRateLimiter
	ReadLimit  int64
	PingPeriod time.Duration
	SendBuffer int
}

// newSessionID mints a per-connection session id. The client-token cookie
// identifies a browser across requests; a session is a single connection,
// so two tabs from one browser must never share an id.
func newSessionID() core.SessionID {
	return core.SessionID(uuid.NewString())
}

func (ctl *WSController) HandleWS(ctx context.Context, c *gin.Context) {
	sid := newSessionID()
	log.Info().Str("module", "adapters.ws").Str("sid", string(sid)).Str("client", c.GetString("client_token")).Msg("new ws connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Str("module", "adapters.ws").Err(err).Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	buffer := ctl.SendBuffer
	if buffer <= 0 {
		buffer = 64
	}
	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, buffer),
	}

	// Role stays empty until the session joins a room.
	sess := core.NewMemberSession(domain.NewMember(""), conn)
	ctx, cancel := context.WithCancel(ctx)
	ctl.Broker.Connect(sid, sess, cancel)

	go ctl.writePump(ctx, sid, conn)
	go ctl.readPump(ctx, sid, conn)
}

func (ctl *WSController) writePump(ctx context.Context, sid core.SessionID, c *wsConn) {
	period := ctl.PingPeriod
	if period <= 0 {
		period = 54 * time.Second
	}
	ping := time.NewTicker(period)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
				log.Debug().Str("module", "adapters.ws").Str("sid", string(sid)).Err(err).Msg("set write deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Str("module", "adapters.ws").Str("sid", string(sid)).Err(err).Msg("write")
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (ctl *WSController) readPump(ctx context.Context, sid core.SessionID, c *wsConn) {
	defer func() {
		log.Info().Str("module", "adapters.ws").Str("sid", string(sid)).Msg("read pump closing")
		ctl.Broker.OnDisconnect(sid)
		if ctl.Limiter != nil {
			ctl.Limiter.Forget(sid)
		}
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Debug().Str("module", "adapters.ws").Str("sid", string(sid)).Err(err).Msg("read")
				return
			}
			ctl.handleFrame(sid, data)
		}
	}
}

// handleFrame decodes one inbound frame and hands it to the broker.
// Malformed payloads and unknown events are dropped, never fatal.
func (ctl *WSController) handleFrame(sid core.SessionID, data []byte) {
	if ctl.Limiter != nil && !ctl.Limiter.Allow(sid) {
		log.Debug().Str("module", "adapters.ws").Str("sid", string(sid)).Msg("rate limited frame dropped")
		return
	}
	act, err := DecodeAction(data)
	if err != nil {
		log.Debug().Str("module", "adapters.ws").Str("sid", string(sid)).Err(err).Msg("frame dropped")
		return
	}
	ctl.Broker.OnAction(sid, act)
}
