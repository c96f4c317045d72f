package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"vitalstream/internal/domain"
)

// writeRaw 编码 v 但不设置头（调用方已写好状态码与 Content-Type）
func writeRaw(w http.ResponseWriter, v any) {
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDomainError 按错误种类映射 HTTP 状态码和稳定错误码
func writeDomainError(w http.ResponseWriter, err error) {
	writeJSON(w, statusForError(err), Fail(domain.ErrorCode(err)))
}

func statusForError(err error) int {
	var fe *domain.FieldError
	switch {
	case errors.Is(err, domain.ErrDeviceInactive):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUnknownDevice),
		errors.Is(err, domain.ErrInvalidSignature),
		errors.Is(err, domain.ErrReplayDetected),
		errors.Is(err, domain.ErrTokenMalformed),
		errors.Is(err, domain.ErrTokenExpired),
		errors.Is(err, domain.ErrTokenRevoked):
		return http.StatusUnauthorized
	case errors.As(err, &fe):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrBroadcastUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func readBody(r *http.Request, maxBytes int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, maxBytes))
}

// bearerToken 从 Authorization 头或 token 查询参数提取会话令牌
// （EventSource 无法携带自定义头，流式端点允许查询参数）
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
