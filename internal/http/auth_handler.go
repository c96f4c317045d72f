package httpapi

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"vitalstream/internal/auth"
	"vitalstream/internal/domain"
	"vitalstream/internal/repository"
)

// AuthHandler 会话签发/吊销
type AuthHandler struct {
	users    repository.UsersRepo
	sessions *auth.SessionAuthority
	logger   *zap.Logger
}

func NewAuthHandler(users repository.UsersRepo, sessions *auth.SessionAuthority, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, logger: logger}
}

type loginRequest struct {
	Account  string `json:"account"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
	UserID    string `json:"user_id"`
	Account   string `json:"account"`
	Role      string `json:"role"`
}

// Login POST /auth/api/v1/login
// 口令校验归外部用户库；这里只负责匹配成功后的会话签发
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r, 1<<20)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("unreadable_body"))
		return
	}
	var req loginRequest
	if err := json.Unmarshal(body, &req); err != nil || req.Account == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, Fail("missing_credentials"))
		return
	}

	accountHash := sha256.Sum256([]byte(req.Account))
	passwordHash := sha256.Sum256([]byte(req.Password))

	user, err := h.users.GetUserForLogin(r.Context(), accountHash[:], passwordHash[:])
	if err != nil {
		h.logger.Warn("User login failed: invalid credentials",
			zap.String("account", req.Account),
			zap.String("ip_address", r.RemoteAddr),
			zap.String("reason", "invalid_credentials"),
		)
		writeJSON(w, http.StatusUnauthorized, Fail("invalid_credentials"))
		return
	}
	if !user.Active {
		h.logger.Warn("User login failed: account not active",
			zap.String("user_id", user.UserID),
			zap.String("reason", "account_not_active"),
		)
		writeJSON(w, http.StatusForbidden, Fail("account_not_active"))
		return
	}

	session, err := h.sessions.Issue(user.UserID, user.Role)
	if err != nil {
		h.logger.Error("Failed to issue session", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("session_issue_failed"))
		return
	}

	h.logger.Info("User login successful",
		zap.String("user_id", user.UserID),
		zap.String("role", user.Role),
		zap.String("token_id", session.TokenID),
		zap.Time("login_time", time.Now()),
	)

	writeJSON(w, http.StatusOK, Ok(loginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.Unix(),
		UserID:    user.UserID,
		Account:   user.Account,
		Role:      user.Role,
	}))
}

// Logout POST /auth/api/v1/logout
// 吊销幂等：重复注销同一令牌与注销一次效果相同
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, Fail("missing_token"))
		return
	}

	claims, err := h.sessions.Validate(token)
	if err != nil {
		if errors.Is(err, domain.ErrTokenRevoked) {
			// 已吊销，再次注销视为成功
			writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "logged_out"}))
			return
		}
		writeDomainError(w, err)
		return
	}

	h.sessions.Revoke(claims.ID, claims.ExpiresAt.Time)
	writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "logged_out"}))
}

// requireSession 校验 bearer token；失败时写入 401 响应并返回 nil
func requireSession(w http.ResponseWriter, r *http.Request, sessions *auth.SessionAuthority) *auth.SessionClaims {
	token := bearerToken(r)
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, Fail("missing_token"))
		return nil
	}
	claims, err := sessions.Validate(token)
	if err != nil {
		writeDomainError(w, err)
		return nil
	}
	return claims
}
