package repository

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"

	"vitalstream/internal/domain"
)

// MemoryDevicesRepo 内存设备库（DB 未就绪时的联测/单测实现）
type MemoryDevicesRepo struct {
	mu       sync.RWMutex
	devices  map[string]*domain.DeviceCredential
	lastSeen map[string]time.Time
}

func NewMemoryDevicesRepo() *MemoryDevicesRepo {
	return &MemoryDevicesRepo{
		devices:  make(map[string]*domain.DeviceCredential),
		lastSeen: make(map[string]time.Time),
	}
}

// UpsertDevice 注册或更新设备凭证（dev seed 用）
func (r *MemoryDevicesRepo) UpsertDevice(deviceID, secret string, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices[deviceID] = &domain.DeviceCredential{DeviceID: deviceID, Secret: secret, Active: active}
}

func (r *MemoryDevicesRepo) GetCredential(_ context.Context, deviceID string) (*domain.DeviceCredential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cred, ok := r.devices[deviceID]
	if !ok {
		return nil, domain.ErrUnknownDevice
	}
	c := *cred
	return &c, nil
}

func (r *MemoryDevicesRepo) TouchLastSeen(_ context.Context, deviceID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastSeen[deviceID] = at
	return nil
}

// LastSeen 查询 last_seen（测试用）
func (r *MemoryDevicesRepo) LastSeen(deviceID string) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.lastSeen[deviceID]
	return t, ok
}

// MemoryUsersRepo 内存用户库
type MemoryUsersRepo struct {
	mu    sync.RWMutex
	users []memoryUser
}

type memoryUser struct {
	user         domain.User
	accountHash  []byte
	passwordHash []byte
}

func NewMemoryUsersRepo() *MemoryUsersRepo {
	return &MemoryUsersRepo{}
}

// UpsertUser 注册用户（账号/口令即刻哈希，不保留明文）
func (r *MemoryUsersRepo) UpsertUser(account, password, role string) string {
	ah := sha256.Sum256([]byte(account))
	ph := sha256.Sum256([]byte(password))

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.users {
		if bytes.Equal(r.users[i].accountHash, ah[:]) {
			r.users[i].passwordHash = ph[:]
			r.users[i].user.Role = role
			return r.users[i].user.UserID
		}
	}
	id := uuid.NewString()
	r.users = append(r.users, memoryUser{
		user:         domain.User{UserID: id, Account: account, Role: role, Active: true},
		accountHash:  ah[:],
		passwordHash: ph[:],
	})
	return id
}

func (r *MemoryUsersRepo) GetUserForLogin(_ context.Context, accountHash, passwordHash []byte) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.users {
		if bytes.Equal(r.users[i].accountHash, accountHash) && bytes.Equal(r.users[i].passwordHash, passwordHash) {
			u := r.users[i].user
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}
