package control

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/star/horizon/internal/httputil"
	"github.com/star/horizon/internal/input"
	"github.com/star/horizon/internal/metrics"
	"github.com/star/horizon/internal/uniform"
)

// Config holds control channel configuration.
type Config struct {
	PollInterval    time.Duration // How often the store is checked for a new frame (default: 50ms).
	PingInterval    time.Duration // Ping period; a peer silent for twice this is dropped (default: 30s).
	MaxMessageBytes int64         // Read limit per client message (default: 4096).
}

// DefaultConfig returns the default control channel configuration.
func DefaultConfig() Config {
	return Config{
		PollInterval:    50 * time.Millisecond,
		PingInterval:    30 * time.Second,
		MaxMessageBytes: 4096,
	}
}

const writeWait = 10 * time.Second

// Handler serves the websocket control channel.
type Handler struct {
	board    *input.Board
	store    *uniform.Store
	config   Config
	resolver httputil.IPResolver
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a control channel handler.
func NewHandler(board *input.Board, store *uniform.Store, config Config, resolver httputil.IPResolver, logger *slog.Logger) *Handler {
	def := DefaultConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.PingInterval <= 0 {
		config.PingInterval = def.PingInterval
	}
	if config.MaxMessageBytes <= 0 {
		config.MaxMessageBytes = def.MaxMessageBytes
	}
	return &Handler{
		board:    board,
		store:    store,
		config:   config,
		resolver: resolver,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Renderers are served from other origins; access is gated by auth.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// ServeHTTP upgrades the connection and runs it until either side closes.
// GET /api/v1/control
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		metrics.IncStreamErrors("upgrade_error")
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	ip := h.resolver.Resolve(r)
	metrics.IncStreamConnections(metrics.TransportWebsocket, "connect")
	metrics.IncStreamsActive(metrics.TransportWebsocket)
	startTime := time.Now()
	h.logger.Info("control connected", "conn_id", id, "remote_ip", ip)

	defer func() {
		metrics.IncStreamConnections(metrics.TransportWebsocket, "disconnect")
		metrics.DecStreamsActive(metrics.TransportWebsocket)
		h.logger.Info("control disconnected",
			"conn_id", id,
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}()

	rejects := make(chan error, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.readLoop(conn, id, rejects)
	}()

	h.writeLoop(conn, id, rejects, done)
}

// readLoop applies client messages until the connection fails or closes.
// It never writes; rejected input is handed to the writer.
func (h *Handler) readLoop(conn *websocket.Conn, id string, rejects chan<- error) {
	pongWait := 2 * h.config.PingInterval
	conn.SetReadLimit(h.config.MaxMessageBytes)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("control read error", "conn_id", id, "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
		if kind != websocket.TextMessage {
			h.reject(rejects, id, errors.New("expected a JSON text message"))
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			h.reject(rejects, id, err)
			continue
		}
		if err := Apply(h.board, msg); err != nil {
			h.reject(rejects, id, err)
			continue
		}
		metrics.IncControlMessages(msg.Type)
		h.logger.Debug("control message applied", "conn_id", id, "type", msg.Type)
	}
}

func (h *Handler) reject(rejects chan<- error, id string, err error) {
	metrics.IncControlMessages("rejected")
	h.logger.Debug("control message rejected", "conn_id", id, "error", err)
	select {
	case rejects <- err:
	default:
		// Writer is behind; the client still gets later replies.
	}
}

// writeLoop pushes each new snapshot, ping, and reject reply. It is the
// connection's only writer.
func (h *Handler) writeLoop(conn *websocket.Conn, id string, rejects <-chan error, done <-chan struct{}) {
	poll := time.NewTicker(h.config.PollInterval)
	defer poll.Stop()
	ping := time.NewTicker(h.config.PingInterval)
	defer ping.Stop()

	var lastFrame uint64
	for {
		select {
		case <-done:
			return

		case err := <-rejects:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if werr := conn.WriteJSON(errorMessage{Type: "error", Error: err.Error()}); werr != nil {
				metrics.IncStreamErrors("send_error")
				return
			}

		case <-poll.C:
			snap := h.store.Get()
			if snap == nil || snap.Frame == lastFrame {
				continue
			}
			data, err := snap.ToMsgpack()
			if err != nil {
				metrics.IncStreamErrors("marshal_error")
				h.logger.Warn("control marshal error", "conn_id", id, "frame", snap.Frame, "error", err)
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Debug("control write error", "conn_id", id, "error", err)
				return
			}
			lastFrame = snap.Frame
			metrics.IncStreamMessages(metrics.TransportWebsocket)
			metrics.AddStreamBytes(metrics.TransportWebsocket, int64(len(data)))

		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				metrics.IncStreamErrors("send_error")
				return
			}
		}
	}
}
