package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"vitalstream/internal/domain"
)

// PostgresDevicesRepo devices 表实现
type PostgresDevicesRepo struct {
	db *sql.DB
}

func NewPostgresDevicesRepo(db *sql.DB) *PostgresDevicesRepo {
	return &PostgresDevicesRepo{db: db}
}

func (r *PostgresDevicesRepo) GetCredential(ctx context.Context, deviceID string) (*domain.DeviceCredential, error) {
	query := `
		SELECT device_id, secret, is_active
		FROM devices
		WHERE device_id = $1`

	var cred domain.DeviceCredential
	err := r.db.QueryRowContext(ctx, query, deviceID).Scan(&cred.DeviceID, &cred.Secret, &cred.Active)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrUnknownDevice
		}
		return nil, fmt.Errorf("failed to query device credential: %w", err)
	}
	return &cred, nil
}

func (r *PostgresDevicesRepo) TouchLastSeen(ctx context.Context, deviceID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE devices SET last_seen_at = $2 WHERE device_id = $1`,
		deviceID, at)
	if err != nil {
		return fmt.Errorf("failed to update last_seen_at: %w", err)
	}
	return nil
}

// PostgresUsersRepo users 表实现
type PostgresUsersRepo struct {
	db *sql.DB
}

func NewPostgresUsersRepo(db *sql.DB) *PostgresUsersRepo {
	return &PostgresUsersRepo{db: db}
}

func (r *PostgresUsersRepo) GetUserForLogin(ctx context.Context, accountHash, passwordHash []byte) (*domain.User, error) {
	query := `
		SELECT user_id, user_account, role, status = 'active'
		FROM users
		WHERE user_account_hash = $1 AND password_hash = $2`

	var u domain.User
	err := r.db.QueryRowContext(ctx, query, accountHash, passwordHash).Scan(&u.UserID, &u.Account, &u.Role, &u.Active)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
