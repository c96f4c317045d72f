package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"vitalstream/internal/domain"
)

// PostgresReadingsRepo sensor_readings / ml_analysis 表实现
type PostgresReadingsRepo struct {
	db *sql.DB
}

func NewPostgresReadingsRepo(db *sql.DB) *PostgresReadingsRepo {
	return &PostgresReadingsRepo{db: db}
}

func (r *PostgresReadingsRepo) InsertReading(ctx context.Context, reading domain.Reading, result domain.AnomalyResult) (int64, error) {
	detailsJSON, err := json.Marshal(result.Details)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal analysis details: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	var readingID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO sensor_readings (device_id, heart_rate, spo2, temperature, reading_timestamp, quality_score)
		VALUES ($1, $2, $3, $4, to_timestamp($5), $6)
		RETURNING id`,
		reading.DeviceID, reading.HeartRate, reading.SpO2, reading.Temp, reading.Timestamp, result.QualityScore,
	).Scan(&readingID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert sensor reading: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ml_analysis (sensor_reading_id, anomaly_detected, anomaly_score, classification, alert_level, analysis_details)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		readingID, result.Anomalous(), result.AnomalyScore, string(result.Classification), string(result.AlertLevel), detailsJSON,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert analysis: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit reading: %w", err)
	}
	return readingID, nil
}

func (r *PostgresReadingsRepo) LatestReading(ctx context.Context) (*StoredReading, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT sr.id, sr.device_id, sr.heart_rate, sr.spo2, sr.temperature,
		       EXTRACT(EPOCH FROM sr.reading_timestamp)::bigint, sr.quality_score,
		       COALESCE(ma.anomaly_score, 0), COALESCE(ma.classification, 'normal'), COALESCE(ma.alert_level, 'none')
		FROM sensor_readings sr
		LEFT JOIN ml_analysis ma ON ma.sensor_reading_id = sr.id
		ORDER BY sr.reading_timestamp DESC
		LIMIT 1`))
}

func (r *PostgresReadingsRepo) RecentReadings(ctx context.Context, limit int) ([]StoredReading, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sr.id, sr.device_id, sr.heart_rate, sr.spo2, sr.temperature,
		       EXTRACT(EPOCH FROM sr.reading_timestamp)::bigint, sr.quality_score,
		       COALESCE(ma.anomaly_score, 0), COALESCE(ma.classification, 'normal'), COALESCE(ma.alert_level, 'none')
		FROM sensor_readings sr
		LEFT JOIN ml_analysis ma ON ma.sensor_reading_id = sr.id
		ORDER BY sr.reading_timestamp DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent readings: %w", err)
	}
	defer rows.Close()

	var out []StoredReading
	for rows.Next() {
		sr, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sr)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresReadingsRepo) scanOne(row rowScanner) (*StoredReading, error) {
	sr, err := r.scanRow(row)
	if err == sql.ErrNoRows {
		return nil, sql.ErrNoRows
	}
	return sr, err
}

func (r *PostgresReadingsRepo) scanRow(row rowScanner) (*StoredReading, error) {
	var sr StoredReading
	var classification, alertLevel string
	err := row.Scan(
		&sr.ID, &sr.Reading.DeviceID, &sr.Reading.HeartRate, &sr.Reading.SpO2, &sr.Reading.Temp,
		&sr.Reading.Timestamp, &sr.Result.QualityScore,
		&sr.Result.AnomalyScore, &classification, &alertLevel,
	)
	if err != nil {
		return nil, err
	}
	sr.Result.Classification = domain.Classification(classification)
	sr.Result.AlertLevel = domain.AlertLevel(alertLevel)
	return &sr, nil
}

// PostgresObservationsRepo fhir_observations 表实现
type PostgresObservationsRepo struct {
	db *sql.DB
}

func NewPostgresObservationsRepo(db *sql.DB) *PostgresObservationsRepo {
	return &PostgresObservationsRepo{db: db}
}

func (r *PostgresObservationsRepo) InsertObservation(ctx context.Context, readingID int64, resource []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO fhir_observations (sensor_reading_id, resource)
		VALUES ($1, $2)`,
		readingID, resource)
	if err != nil {
		return fmt.Errorf("failed to insert fhir observation: %w", err)
	}
	return nil
}
