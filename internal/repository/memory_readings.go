package repository

import (
	"context"
	"database/sql"
	"sync"

	"vitalstream/internal/domain"
)

// MemoryReadingsRepo 内存读数库（保留最近 maxKeep 条）
type MemoryReadingsRepo struct {
	mu       sync.RWMutex
	readings []StoredReading
	nextID   int64
	maxKeep  int
}

func NewMemoryReadingsRepo() *MemoryReadingsRepo {
	return &MemoryReadingsRepo{nextID: 1, maxKeep: 1000}
}

func (r *MemoryReadingsRepo) InsertReading(_ context.Context, reading domain.Reading, result domain.AnomalyResult) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.readings = append(r.readings, StoredReading{ID: id, Reading: reading, Result: result})
	if len(r.readings) > r.maxKeep {
		r.readings = r.readings[len(r.readings)-r.maxKeep:]
	}
	return id, nil
}

func (r *MemoryReadingsRepo) LatestReading(_ context.Context) (*StoredReading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.readings) == 0 {
		return nil, sql.ErrNoRows
	}
	sr := r.readings[len(r.readings)-1]
	return &sr, nil
}

func (r *MemoryReadingsRepo) RecentReadings(_ context.Context, limit int) ([]StoredReading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := len(r.readings)
	if limit > n {
		limit = n
	}
	out := make([]StoredReading, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, r.readings[i])
	}
	return out, nil
}

// MemoryObservationsRepo 内存 FHIR 资源库
type MemoryObservationsRepo struct {
	mu        sync.RWMutex
	resources map[int64][]byte
}

func NewMemoryObservationsRepo() *MemoryObservationsRepo {
	return &MemoryObservationsRepo{resources: make(map[int64][]byte)}
}

func (r *MemoryObservationsRepo) InsertObservation(_ context.Context, readingID int64, resource []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resources[readingID] = resource
	return nil
}

// Observation 按读数 ID 取回资源（测试用）
func (r *MemoryObservationsRepo) Observation(readingID int64) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.resources[readingID]
	return b, ok
}
