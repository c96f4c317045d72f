package repository

import (
	"context"

	"vitalstream/internal/domain"
)

// StoredReading 已落库的读数（含分类结果）
type StoredReading struct {
	ID      int64
	Reading domain.Reading
	Result  domain.AnomalyResult
}

// ReadingsRepo 读数持久化接口（持久化协作方，核心只保证调用发生）
type ReadingsRepo interface {
	// InsertReading 写入读数与分类结果，返回读数 ID
	InsertReading(ctx context.Context, reading domain.Reading, result domain.AnomalyResult) (int64, error)

	// LatestReading 最近一条读数（缓存未命中时的回源查询）
	LatestReading(ctx context.Context) (*StoredReading, error)

	// RecentReadings 按时间倒序取最近 limit 条（FHIR 导出用）
	RecentReadings(ctx context.Context, limit int) ([]StoredReading, error)
}

// ObservationsRepo 编码记录（FHIR Observation）持久化接口
type ObservationsRepo interface {
	// InsertObservation 写入一条 FHIR 资源（JSON 字节）
	InsertObservation(ctx context.Context, readingID int64, resource []byte) error
}
