package handlers

import (
	"net/http"
	"strconv"
	"time"

	"doorman/internal/mailbox"
	"doorman/internal/models"
	"doorman/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMsgSize       = 1 << 12 // 4 KB
	defaultInterval  = 1 * time.Second
	maxInterval      = 10 * time.Second
	maxIntervalMilli = 10_000 // 10s in ms
)

// Envelope used for WebSocket messages.
type wsEnvelope struct {
	Type   string      `json:"type"`
	Reason string      `json:"reason,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Why a status message was sent.
const (
	pushInitial   = "initial"
	pushChanged   = "changed"
	pushHeartbeat = "heartbeat"
)

// statusPoll is how often the stream looks for a change.
const statusPoll = 200 * time.Millisecond

// statusKey is the part of a status that is pushed as soon as it changes.
// The live peak moves every tick and rides on the heartbeat.
type statusKey struct {
	consumed  models.PersistedStatus
	state     string
	lastEvent string
	mailbox   mailbox.Stats
}

func keyOf(st service.Status) statusKey {
	return statusKey{
		consumed:  st.LastConsumed,
		state:     st.Detector.State,
		lastEvent: st.Detector.LastEvent.Filename,
		mailbox:   st.Mailbox,
	}
}

// statusStream decides when a client gets a status message: once on connect,
// on every change, and otherwise after interval of silence.
type statusStream struct {
	get      func() (service.Status, error)
	write    func(wsEnvelope) error
	interval time.Duration

	started bool
	last    statusKey
	sentAt  time.Time
}

func (s *statusStream) push(now time.Time) error {
	st, err := s.get()
	if err != nil {
		return err
	}
	key := keyOf(st)

	var reason string
	switch {
	case !s.started:
		reason = pushInitial
	case key != s.last:
		reason = pushChanged
	case now.Sub(s.sentAt) >= s.interval:
		reason = pushHeartbeat
	default:
		return nil
	}
	if err := s.write(wsEnvelope{Type: "status", Reason: reason, Data: st}); err != nil {
		return err
	}
	s.started, s.last, s.sentAt = true, key, now
	return nil
}

// Upgrader for HTTP -> WebSocket.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (h *Handler) wsConnect(c *gin.Context) {
	interval := h.parseInterval(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	// Configure read limits and pong handler to extend read deadline.
	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Reader goroutine to handle control frames and detect disconnects.
	done := make(chan struct{})
	go h.startReader(conn, done)

	stream := &statusStream{
		get: func() (service.Status, error) { return h.services.GetStatus() },
		write: func(env wsEnvelope) error {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			return conn.WriteJSON(env)
		},
		interval: interval,
	}

	poll := time.NewTicker(min(statusPoll, interval))
	ping := time.NewTicker(pingPeriod)
	defer func() {
		poll.Stop()
		ping.Stop()
	}()

	if err := stream.push(time.Now()); err != nil {
		if h.log != nil {
			h.log.Infow("ws_write_failed_initial", "err", err)
		}
		return
	}

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		case now := <-poll.C:
			if err := stream.push(now); err != nil {
				if h.log != nil {
					h.log.Infow("ws_status_push_failed", "err", err)
				}
				return
			}
		}
	}
}

// parseInterval reads the heartbeat period from ?interval=2s or ?interval_ms=2000.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	interval := defaultInterval

	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 && d <= maxInterval {
			return d
		}
	}

	if ms := c.Query("interval_ms"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 && v <= maxIntervalMilli {
			return time.Duration(v) * time.Millisecond
		}
	}

	return interval
}

// Helper: startReader drains incoming messages to handle control frames and detect closure.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
	}
}
