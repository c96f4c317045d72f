package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"vitalstream/internal/domain"
	"vitalstream/internal/hub"
)

// StreamHandler 实时推送端点（SSE）
type StreamHandler struct {
	hub    *hub.Hub
	logger *zap.Logger
}

func NewStreamHandler(h *hub.Hub, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{hub: h, logger: logger}
}

// Stream GET /data/api/v1/vitals/stream
// SSE 帧格式：event: {type}\ndata: {json}\n\n
// 队列关闭即连接结束（退订或被淘汰均表现为断连，客户端需重连）
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
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
	defer h.hub.Unsubscribe(sub)

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, Fail("streaming_unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// 先发一帧心跳，让客户端立即确认连接已建立
	if err := writeSSE(w, domain.NewHeartbeatEvent(time.Now().Unix())); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-sub.Events():
			if !open {
				if h.hub.Evicted(sub) {
					h.logger.Warn("Stream closed: subscriber evicted",
						zap.String("subscriber_id", sub.ID),
					)
				}
				return
			}
			if err := writeSSE(w, event); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, event domain.BroadcastEvent) error {
	data, err := event.Encode()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
	return err
}
