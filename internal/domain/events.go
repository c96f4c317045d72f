package domain

import "encoding/json"

// EventType 广播事件类型
type EventType string

const (
	EventVitals    EventType = "vitals"
	EventAlert     EventType = "alert"
	EventHeartbeat EventType = "heartbeat"
)

// VitalsPayload vitals 事件负载：读数 + 分类结果
type VitalsPayload struct {
	Reading Reading       `json:"reading"`
	Result  AnomalyResult `json:"result"`
}

// AlertPayload alert 事件负载
type AlertPayload struct {
	Level   AlertLevel      `json:"level"`
	Message string          `json:"message"`
	Details []AnomalyDetail `json:"details,omitempty"`
}

// BroadcastEvent 广播事件（带类型标签的联合体）
// 创建后不可变：所有订阅者共享同一份事件，任何一方不得修改
type BroadcastEvent struct {
	Type      EventType      `json:"type"`
	Vitals    *VitalsPayload `json:"data,omitempty"`
	Alert     *AlertPayload  `json:"alert,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

// NewVitalsEvent 构造 vitals 事件
func NewVitalsEvent(reading Reading, result AnomalyResult) BroadcastEvent {
	return BroadcastEvent{
		Type:      EventVitals,
		Vitals:    &VitalsPayload{Reading: reading, Result: result},
		Timestamp: reading.Timestamp,
	}
}

// NewAlertEvent 构造 alert 事件
func NewAlertEvent(level AlertLevel, message string, details []AnomalyDetail, ts int64) BroadcastEvent {
	return BroadcastEvent{
		Type:      EventAlert,
		Alert:     &AlertPayload{Level: level, Message: message, Details: details},
		Timestamp: ts,
	}
}

// NewHeartbeatEvent 构造 heartbeat 事件（让客户端区分"空闲"和"断连"）
func NewHeartbeatEvent(ts int64) BroadcastEvent {
	return BroadcastEvent{Type: EventHeartbeat, Timestamp: ts}
}

// Encode 序列化为自描述 JSON（SSE/WebSocket 两种传输共用）
func (e BroadcastEvent) Encode() ([]byte, error) {
	return json.Marshal(e)
}
