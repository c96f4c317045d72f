package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"vitalstream/internal/dispatcher"
	"vitalstream/internal/domain"
)

// ingestMaxBodyBytes 设备上报体积上限
const ingestMaxBodyBytes = 64 << 10

// IngestHandler 设备上报入口
type IngestHandler struct {
	dispatcher *dispatcher.Dispatcher
	logger     *zap.Logger
}

func NewIngestHandler(d *dispatcher.Dispatcher, logger *zap.Logger) *IngestHandler {
	return &IngestHandler{dispatcher: d, logger: logger}
}

// ingestBody 设备上报负载（原始字节参与验签，解析仅为取值）
type ingestBody struct {
	HeartRate int     `json:"heartRate"`
	SpO2      int     `json:"spo2"`
	Temp      float64 `json:"temperature"`
}

// Ingest POST /device/api/v1/vitals/ingest
// 头部：X-Device-Id / X-Timestamp / X-Signature；签名覆盖
// "{timestamp}.{原始 body 字节}"
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	deviceID := r.Header.Get("X-Device-Id")
	tsHeader := r.Header.Get("X-Timestamp")
	signature := r.Header.Get("X-Signature")
	if deviceID == "" || tsHeader == "" || signature == "" {
		writeJSON(w, http.StatusUnauthorized, Fail("missing_device_headers"))
		return
	}

	timestamp, err := strconv.ParseInt(tsHeader, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, Fail("malformed_timestamp"))
		return
	}

	rawBody, err := readBody(r, ingestMaxBodyBytes)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("unreadable_body"))
		return
	}

	var body ingestBody
	if err := json.Unmarshal(rawBody, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("malformed_body"))
		return
	}

	result, err := h.dispatcher.Ingest(r.Context(), domain.IngestRequest{
		DeviceID:  deviceID,
		Timestamp: timestamp,
		HeartRate: body.HeartRate,
		SpO2:      body.SpO2,
		Temp:      body.Temp,
		RawBody:   rawBody,
		Signature: signature,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"status":         "accepted",
		"classification": result.Classification,
		"alert_level":    result.AlertLevel,
		"anomaly_score":  result.AnomalyScore,
		"quality_score":  result.QualityScore,
	}))
}
