package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vitalstream/internal/domain"
)

func newTestAuthority(t *testing.T) *SessionAuthority {
	t.Helper()
	return NewSessionAuthority("test-session-secret-32-bytes-long!", time.Hour, zap.NewNop())
}

func TestSessionAuthority_IssueValidateRoundtrip(t *testing.T) {
	authority := newTestAuthority(t)

	session, err := authority.Issue("user-1", "Clinician")
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)
	assert.NotEmpty(t, session.TokenID)

	claims, err := authority.Validate(session.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "Clinician", claims.Role)
	assert.Equal(t, session.TokenID, claims.ID)
}

func TestSessionAuthority_UniqueTokenIDs(t *testing.T) {
	authority := newTestAuthority(t)

	s1, err := authority.Issue("user-1", "Clinician")
	require.NoError(t, err)
	s2, err := authority.Issue("user-1", "Clinician")
	require.NoError(t, err)

	assert.NotEqual(t, s1.TokenID, s2.TokenID)
}

func TestSessionAuthority_MalformedToken(t *testing.T) {
	authority := newTestAuthority(t)

	_, err := authority.Validate("not-a-jwt")
	assert.ErrorIs(t, err, domain.ErrTokenMalformed)
}

func TestSessionAuthority_WrongSecret(t *testing.T) {
	authority := newTestAuthority(t)
	other := NewSessionAuthority("a-completely-different-secret-here", time.Hour, zap.NewNop())

	session, err := other.Issue("user-1", "Clinician")
	require.NoError(t, err)

	_, err = authority.Validate(session.Token)
	assert.ErrorIs(t, err, domain.ErrTokenMalformed)
}

func TestSessionAuthority_ExpiredToken(t *testing.T) {
	authority := newTestAuthority(t)

	session, err := authority.Issue("user-1", "Clinician")
	require.NoError(t, err)

	// 拨快时钟越过 TTL
	authority.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err = authority.Validate(session.Token)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestSessionAuthority_RevokedBeforeExpiry(t *testing.T) {
	authority := newTestAuthority(t)

	session, err := authority.Issue("user-1", "Clinician")
	require.NoError(t, err)

	authority.Revoke(session.TokenID, session.ExpiresAt)

	_, err = authority.Validate(session.Token)
	assert.ErrorIs(t, err, domain.ErrTokenRevoked)
}

func TestSessionAuthority_RevokeIsIdempotent(t *testing.T) {
	authority := newTestAuthority(t)

	session, err := authority.Issue("user-1", "Clinician")
	require.NoError(t, err)

	authority.Revoke(session.TokenID, session.ExpiresAt)
	authority.Revoke(session.TokenID, session.ExpiresAt)

	assert.Equal(t, 1, authority.RevokedCount())
	_, err = authority.Validate(session.Token)
	assert.ErrorIs(t, err, domain.ErrTokenRevoked)
}

func TestSessionAuthority_RevokeDoesNotAffectOtherSessions(t *testing.T) {
	authority := newTestAuthority(t)

	s1, err := authority.Issue("user-1", "Clinician")
	require.NoError(t, err)
	s2, err := authority.Issue("user-1", "Clinician")
	require.NoError(t, err)

	authority.Revoke(s1.TokenID, s1.ExpiresAt)

	_, err = authority.Validate(s1.Token)
	assert.ErrorIs(t, err, domain.ErrTokenRevoked)

	_, err = authority.Validate(s2.Token)
	assert.NoError(t, err)
}

func TestSessionAuthority_PruneDropsExpiredEntries(t *testing.T) {
	authority := newTestAuthority(t)

	s1, err := authority.Issue("user-1", "Clinician")
	require.NoError(t, err)
	s2, err := authority.Issue("user-2", "Clinician")
	require.NoError(t, err)

	authority.Revoke(s1.TokenID, s1.ExpiresAt)
	authority.Revoke(s2.TokenID, s2.ExpiresAt)
	require.Equal(t, 2, authority.RevokedCount())

	// 未过期时 Prune 不删任何条目
	assert.Equal(t, 0, authority.Prune())
	assert.Equal(t, 2, authority.RevokedCount())

	authority.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.Equal(t, 2, authority.Prune())
	assert.Equal(t, 0, authority.RevokedCount())

	// 过期后令牌本身已失效，删除吊销条目不会重新放行
	_, err = authority.Validate(s1.Token)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}
