package domain

import (
	"errors"
	"fmt"
)

// 设备认证错误（ingest 路径，对应 4xx 响应）
var (
	ErrUnknownDevice    = errors.New("unknown device")
	ErrDeviceInactive   = errors.New("device inactive")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrReplayDetected   = errors.New("replay detected")
)

// 会话令牌错误（按校验顺序：格式 → 过期 → 吊销）
var (
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenRevoked   = errors.New("token revoked")
)

// ErrBroadcastUnavailable 广播中心已关闭，无法接受新订阅
// （publish 永不报错，只会丢弃，见 hub 包）
var ErrBroadcastUnavailable = errors.New("broadcast hub unavailable")

// FieldError 数值范围校验错误，携带具体字段名
// 客户端需要区分"哪个字段越界"，不能折叠成笼统错误
type FieldError struct {
	Field string
	Value float64
	Min   float64
	Max   float64
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s out of range: %v not in [%v, %v]", e.Field, e.Value, e.Min, e.Max)
}

// ErrorCode 返回给客户端的稳定错误码
// 每种错误一个固定字符串，便于客户端重试逻辑区分
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrUnknownDevice):
		return "unknown_device"
	case errors.Is(err, ErrDeviceInactive):
		return "device_inactive"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrReplayDetected):
		return "replay_detected"
	case errors.Is(err, ErrTokenMalformed):
		return "token_malformed"
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrTokenRevoked):
		return "token_revoked"
	case errors.Is(err, ErrBroadcastUnavailable):
		return "broadcast_unavailable"
	}
	var fe *FieldError
	if errors.As(err, &fe) {
		return "field_out_of_range:" + fe.Field
	}
	return "internal_error"
}
