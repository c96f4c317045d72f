package domain

import "time"

// 生命体征取值范围（与设备端约定一致，越界的读数不会进入分类/存储）
const (
	HeartRateMin = 0
	HeartRateMax = 300
	SpO2Min      = 0
	SpO2Max      = 100
	TempMin      = 25.0
	TempMax      = 45.0
)

// DeviceCredential 设备凭证（外部凭证库所有，verifier 仅在单次验证期间持有）
type DeviceCredential struct {
	DeviceID string
	Secret   string
	Active   bool
}

// IngestRequest 设备上报的原始请求（每个 HTTP/MQTT 调用创建一次）
// RawBody 是签名覆盖的原始字节，验签必须用它而不是反序列化后的结构
type IngestRequest struct {
	DeviceID  string
	Timestamp int64
	HeartRate int
	SpO2      int
	Temp      float64
	RawBody   []byte
	Signature string
}

// Reading 已通过范围校验的读数
// 不变式：所有字段都在声明范围内，否则 Reading 不会被构造
type Reading struct {
	DeviceID  string  `json:"device_id"`
	HeartRate int     `json:"heartRate"`
	SpO2      int     `json:"spo2"`
	Temp      float64 `json:"temperature"`
	Timestamp int64   `json:"timestamp"`
}

// NewReading 构造 Reading，任何字段越界返回 *FieldError（指明具体字段）
func NewReading(deviceID string, hr, spo2 int, temp float64, ts int64) (Reading, error) {
	if hr < HeartRateMin || hr > HeartRateMax {
		return Reading{}, &FieldError{Field: "heart_rate", Value: float64(hr), Min: HeartRateMin, Max: HeartRateMax}
	}
	if spo2 < SpO2Min || spo2 > SpO2Max {
		return Reading{}, &FieldError{Field: "spo2", Value: float64(spo2), Min: SpO2Min, Max: SpO2Max}
	}
	if temp < TempMin || temp > TempMax {
		return Reading{}, &FieldError{Field: "temperature", Value: temp, Min: TempMin, Max: TempMax}
	}
	return Reading{
		DeviceID:  deviceID,
		HeartRate: hr,
		SpO2:      spo2,
		Temp:      temp,
		Timestamp: ts,
	}, nil
}

// Time 读数时间戳（unix 秒）
func (r Reading) Time() time.Time {
	return time.Unix(r.Timestamp, 0)
}

// LatestVitals 最新读数快照（缓存在 Redis，供 /vitals/latest 查询）
// 字段命名与前端约定保持一致
type LatestVitals struct {
	HeartRate    int      `json:"heartRate"`
	SpO2         int      `json:"spo2"`
	Temp         float64  `json:"temperature"`
	Timestamp    int64    `json:"timestamp"`
	QualityScore *float64 `json:"quality_score,omitempty"`
	AlertLevel   *string  `json:"alert_level,omitempty"`
}
