package httpapi

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"vitalstream/internal/auth"
	"vitalstream/internal/domain"
	"vitalstream/internal/fhir"
	"vitalstream/internal/repository"
	"vitalstream/internal/store"
)

const (
	fhirExportDefaultLimit = 100
	fhirExportMaxLimit     = 1000
)

// VitalsHandler 查询端点：最新快照 + FHIR 导出
type VitalsHandler struct {
	sessions *auth.SessionAuthority
	cache    *store.LatestVitalsCache // 可为 nil（无 Redis 时直接回源）
	readings repository.ReadingsRepo
	builder  *fhir.Builder
	logger   *zap.Logger
}

func NewVitalsHandler(
	sessions *auth.SessionAuthority,
	cache *store.LatestVitalsCache,
	readings repository.ReadingsRepo,
	builder *fhir.Builder,
	logger *zap.Logger,
) *VitalsHandler {
	return &VitalsHandler{
		sessions: sessions,
		cache:    cache,
		readings: readings,
		builder:  builder,
		logger:   logger,
	}
}

// Latest GET /data/api/v1/vitals/latest
// 缓存优先；未命中或缓存不可用时回源数据库
func (h *VitalsHandler) Latest(w http.ResponseWriter, r *http.Request) {
	if requireSession(w, r, h.sessions) == nil {
		return
	}

	if h.cache != nil {
		vitals, err := h.cache.Get(r.Context())
		if err == nil {
			writeJSON(w, http.StatusOK, Ok(vitals))
			return
		}
		if !errors.Is(err, store.ErrMiss) {
			h.logger.Warn("Latest vitals cache read failed, falling back to database",
				zap.Error(err),
			)
		}
	}

	stored, err := h.readings.LatestReading(r.Context())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, Fail("no_readings"))
			return
		}
		h.logger.Error("Failed to query latest reading", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("query_failed"))
		return
	}

	quality := stored.Result.QualityScore
	level := string(stored.Result.AlertLevel)
	writeJSON(w, http.StatusOK, Ok(domain.LatestVitals{
		HeartRate:    stored.Reading.HeartRate,
		SpO2:         stored.Reading.SpO2,
		Temp:         stored.Reading.Temp,
		Timestamp:    stored.Reading.Timestamp,
		QualityScore: &quality,
		AlertLevel:   &level,
	}))
}

// FHIRExport GET /data/api/v1/fhir/export?limit=N
// 最近 N 条读数的 Observation collection Bundle
func (h *VitalsHandler) FHIRExport(w http.ResponseWriter, r *http.Request) {
	if requireSession(w, r, h.sessions) == nil {
		return
	}

	limit := parseInt(r.URL.Query().Get("limit"), fhirExportDefaultLimit)
	if limit < 1 {
		limit = fhirExportDefaultLimit
	}
	if limit > fhirExportMaxLimit {
		limit = fhirExportMaxLimit
	}

	stored, err := h.readings.RecentReadings(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to query readings for FHIR export", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("query_failed"))
		return
	}

	readings := make([]domain.Reading, 0, len(stored))
	for _, s := range stored {
		readings = append(readings, s.Reading)
	}

	bundle := h.builder.CollectionBundle(readings, time.Now())
	w.Header().Set("Content-Type", "application/fhir+json")
	w.WriteHeader(http.StatusOK)
	writeRaw(w, bundle)
}

// Healthz GET /healthz
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
