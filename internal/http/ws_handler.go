package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"vitalstream/internal/domain"
	"vitalstream/internal/hub"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
)

// WSHandler 实时推送端点（WebSocket）
// 与 SSE 载荷完全一致：每帧一个自描述 JSON 事件
type WSHandler struct {
	hub      *hub.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewWSHandler(h *hub.Hub, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Stream GET /data/api/v1/vitals/stream/ws
func (h *WSHandler) Stream(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, Fail("missing_token"))
		return
	}

	sub, err := h.hub.Subscribe(token)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.Unsubscribe(sub)
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	go h.readPump(conn, sub)
	h.writePump(conn, sub)
}

// readPump 只为探测客户端断连；收到的消息一律忽略
func (h *WSHandler) readPump(conn *websocket.Conn, sub *hub.Subscriber) {
	defer h.hub.Unsubscribe(sub)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WSHandler) writePump(conn *websocket.Conn, sub *hub.Subscriber) {
	defer func() {
		h.hub.Unsubscribe(sub)
		_ = conn.Close()
	}()

	if err := h.writeEvent(conn, domain.NewHeartbeatEvent(time.Now().Unix())); err != nil {
		return
	}

	for event := range sub.Events() {
		if err := h.writeEvent(conn, event); err != nil {
			return
		}
	}

	// 队列关闭：hub 侧终止（退订或被淘汰），通知客户端后断开
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
}

func (h *WSHandler) writeEvent(conn *websocket.Conn, event domain.BroadcastEvent) error {
	data, err := event.Encode()
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}
