package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/inventory-dashboard/internal/dashboard"
	"github.com/vyrodovalexey/inventory-dashboard/internal/model"
	"github.com/vyrodovalexey/inventory-dashboard/internal/store"
)

// WebSocket configuration constants.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	// DefaultSendBuffer is the number of client intents queued per
	// connection before the reader waits for the writer.
	DefaultSendBuffer = 16
)

var errMalformedMessage = errors.New("malformed message")

// intent is a client message handed from the reader to the writer.
type intent struct {
	msg model.ClientMessage
	err error
}

// WebSocketHandler serves live dashboard sessions over WebSocket.
type WebSocketHandler struct {
	upgrader   websocket.Upgrader
	store      store.Store
	sorter     dashboard.CategorySorter
	sendBuffer int
	logger     *zap.Logger
	mu         sync.RWMutex
	clients    map[*websocket.Conn]context.CancelFunc
}

// NewWebSocketHandler creates a new WebSocketHandler instance. A
// non-positive sendBuffer selects DefaultSendBuffer. Handshakes carrying
// an Origin header are refused unless allowOrigin accepts it; a nil
// allowOrigin accepts every origin.
func NewWebSocketHandler(
	s store.Store,
	sorter dashboard.CategorySorter,
	sendBuffer int,
	allowOrigin func(origin string) bool,
	logger *zap.Logger,
) *WebSocketHandler {
	if sendBuffer <= 0 {
		sendBuffer = DefaultSendBuffer
	}

	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowOrigin == nil || allowOrigin(origin)
			},
		},
		store:      s,
		sorter:     sorter,
		sendBuffer: sendBuffer,
		logger:     logger,
		clients:    make(map[*websocket.Conn]context.CancelFunc),
	}
}

// RegisterRoutes registers the WebSocket routes with the router.
func (h *WebSocketHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws", h.HandleWebSocket).Methods(http.MethodGet)
}

// HandleWebSocket upgrades the request and starts a dashboard session.
//
//nolint:contextcheck // intentional: WebSocket connections outlive the HTTP request context
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	// The request context is canceled when this handler returns, so the
	// session gets its own.
	ctx, cancel := context.WithCancel(context.Background())

	h.mu.Lock()
	h.clients[conn] = cancel
	h.mu.Unlock()

	h.logger.Info("websocket client connected", zap.String("remote_addr", conn.RemoteAddr().String()))

	intents := make(chan intent, h.sendBuffer)
	changes, unsubscribe := h.store.Subscribe()

	go h.writePump(ctx, conn, intents, changes, unsubscribe)
	go h.readPump(ctx, conn, cancel, intents)
}

// readPump decodes client intents and forwards them to the writer.
func (h *WebSocketHandler) readPump(
	ctx context.Context,
	conn *websocket.Conn,
	cancel context.CancelFunc,
	intents chan<- intent,
) {
	defer func() {
		cancel()
		h.removeClient(conn)
		if err := conn.Close(); err != nil {
			h.logger.Debug("error closing connection", zap.Error(err))
		}
	}()

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		h.logger.Error("failed to set read deadline", zap.Error(err))
		return
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		h.logger.Debug("received message", zap.ByteString("message", message))

		var in intent
		if err := json.Unmarshal(message, &in.msg); err != nil {
			in.err = fmt.Errorf("%w: %v", errMalformedMessage, err)
		}

		select {
		case intents <- in:
		case <-ctx.Done():
			return
		}
	}
}

// writePump owns the session of one connection. It renders a view on
// connect, after every intent and after every store change.
func (h *WebSocketHandler) writePump(
	ctx context.Context,
	conn *websocket.Conn,
	intents <-chan intent,
	changes <-chan model.ChangeEvent,
	unsubscribe func(),
) {
	pingTicker := time.NewTicker(pingPeriod)
	session := dashboard.NewSession()

	defer func() {
		pingTicker.Stop()
		unsubscribe()
	}()

	if err := h.sendView(ctx, conn, session); err != nil {
		h.logger.Debug("failed to send initial view", zap.Error(err))
		h.closeConn(conn)
		return
	}

	for {
		select {
		case <-ctx.Done():
			h.sendCloseMessage(conn)
			return
		case in := <-intents:
			if err := h.handleIntent(ctx, conn, session, in); err != nil {
				h.logger.Debug("failed to answer intent", zap.Error(err))
				h.closeConn(conn)
				return
			}
		case _, ok := <-changes:
			if !ok {
				return
			}
			drain(changes)
			if err := h.sendView(ctx, conn, session); err != nil {
				h.logger.Debug("failed to send view", zap.Error(err))
				h.closeConn(conn)
				return
			}
		case <-pingTicker.C:
			if err := h.sendPing(conn); err != nil {
				h.logger.Debug("failed to send ping", zap.Error(err))
				h.closeConn(conn)
				return
			}
		}
	}
}

// handleIntent applies a client intent and writes the reply.
func (h *WebSocketHandler) handleIntent(
	ctx context.Context,
	conn *websocket.Conn,
	session *dashboard.Session,
	in intent,
) error {
	if in.err != nil {
		return h.send(conn, model.NewErrorMessage(in.err.Error()))
	}

	if in.msg.Type == model.WSMessageTypePing {
		return h.send(conn, model.NewPongMessage())
	}

	if err := session.Apply(in.msg); err != nil {
		h.logger.Debug("rejected intent", zap.String("type", in.msg.Type), zap.Error(err))
		return h.send(conn, model.NewErrorMessage(err.Error()))
	}

	return h.sendView(ctx, conn, session)
}

// sendView renders the session and writes the view to the connection.
func (h *WebSocketHandler) sendView(ctx context.Context, conn *websocket.Conn, session *dashboard.Session) error {
	view, err := session.Render(ctx, h.store, h.sorter)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		h.logger.Error("failed to render view", zap.Error(err))
		return h.send(conn, model.NewErrorMessage("failed to render view"))
	}

	return h.send(conn, model.NewViewMessage(view))
}

// send writes msg as JSON to the connection.
func (h *WebSocketHandler) send(conn *websocket.Conn, msg model.WebSocketMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}

// sendPing sends a ping message to the connection.
func (h *WebSocketHandler) sendPing(conn *websocket.Conn) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.PingMessage, nil)
}

// sendCloseMessage sends a close message to the connection.
func (h *WebSocketHandler) sendCloseMessage(conn *websocket.Conn) {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		h.logger.Debug("failed to set write deadline for close", zap.Error(err))
		return
	}

	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutting down")
	if err := conn.WriteMessage(websocket.CloseMessage, closeMsg); err != nil {
		h.logger.Debug("failed to send close message", zap.Error(err))
	}
}

// closeConn unblocks the reader after a failed write.
func (h *WebSocketHandler) closeConn(conn *websocket.Conn) {
	if err := conn.Close(); err != nil {
		h.logger.Debug("error closing connection", zap.Error(err))
	}
}

// removeClient removes a client from the clients map.
func (h *WebSocketHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cancel, exists := h.clients[conn]; exists {
		cancel()
		delete(h.clients, conn)
		h.logger.Info("websocket client disconnected", zap.String("remote_addr", conn.RemoteAddr().String()))
	}
}

// ClientCount returns the number of connected dashboard clients.
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAllConnections closes all active WebSocket connections.
func (h *WebSocketHandler) CloseAllConnections() {
	h.mu.Lock()
	// Copy the clients map to avoid holding the lock while closing
	clients := make(map[*websocket.Conn]context.CancelFunc, len(h.clients))
	for conn, cancel := range h.clients {
		clients[conn] = cancel
	}
	h.mu.Unlock()

	// Canceling makes each writePump send its close message.
	for _, cancel := range clients {
		cancel()
	}

	time.Sleep(100 * time.Millisecond)

	h.mu.Lock()
	for conn := range h.clients {
		if err := conn.Close(); err != nil {
			h.logger.Debug("error closing connection", zap.Error(err))
		}
		delete(h.clients, conn)
	}
	h.mu.Unlock()

	h.logger.Info("all websocket connections closed")
}

// drain discards queued change events; one render covers all of them.
func drain(changes <-chan model.ChangeEvent) {
	for {
		select {
		case _, ok := <-changes:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
