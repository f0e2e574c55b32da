package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	db "spotserv/src/repository"

	"github.com/cristalhq/jwt/v5"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const userIDKey = "user_id"

var (
	ErrNoSession      = errors.New("no session")
	ErrSessionExpired = errors.New("session expired")
	ErrSessionRevoked = errors.New("session revoked")
)

// SessionManager issues HS256 session tokens. Every token id is registered
// in the AuthDB and a token whose id is missing there is rejected.
type SessionManager struct {
	signer   jwt.Signer
	verifier jwt.Verifier
	registry db.AuthDB
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionManager(secret string, ttl time.Duration, registry db.AuthDB) (*SessionManager, error) {
	if secret == "" {
		return nil, errors.New("session secret is empty")
	}
	signer, err := jwt.NewSignerHS(jwt.HS256, []byte(secret))
	if err != nil {
		return nil, fmt.Errorf("create session signer: %w", err)
	}
	verifier, err := jwt.NewVerifierHS(jwt.HS256, []byte(secret))
	if err != nil {
		return nil, fmt.Errorf("create session verifier: %w", err)
	}
	if !registry.Connect() {
		return nil, errors.New("can not connect to session registry")
	}
	return &SessionManager{
		signer:   signer,
		verifier: verifier,
		registry: registry,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// Issue signs a session for subject and returns the token with its expiry.
func (s *SessionManager) Issue(subject string) (string, time.Time, error) {
	now := s.now().UTC()
	expires := now.Add(s.ttl)
	claims := &jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewBuilder(s.signer).Build(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	if err := s.registry.UploadUser(claims.ID, subject, expires); err != nil {
		return "", time.Time{}, fmt.Errorf("register session: %w", err)
	}
	return token.String(), expires, nil
}

// Verify checks signature, expiry and revocation and returns the claims.
func (s *SessionManager) Verify(raw string) (*jwt.RegisteredClaims, error) {
	if raw == "" {
		return nil, ErrNoSession
	}
	var claims jwt.RegisteredClaims
	if err := jwt.ParseClaims([]byte(raw), s.verifier, &claims); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if !claims.IsValidAt(s.now()) {
		return nil, ErrSessionExpired
	}
	if !s.registry.VerifyUser(claims.ID) {
		return nil, ErrSessionRevoked
	}
	return &claims, nil
}

// Revoke drops the token id from the registry. Invalid tokens are ignored.
func (s *SessionManager) Revoke(raw string) {
	var claims jwt.RegisteredClaims
	if err := jwt.ParseClaims([]byte(raw), s.verifier, &claims); err != nil {
		return
	}
	s.registry.RevokeUser(claims.ID)
}

// sessionToken reads the bearer header first and falls back to the cookie.
func sessionToken(c *gin.Context, cookieName string) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	cookie, err := c.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return cookie
}

// RequireSession aborts with 401 unless the request carries a live session.
func (a *AppHandler) RequireSession(c *gin.Context) {
	if a.sessions == nil {
		abortWithError(c, http.StatusServiceUnavailable, errors.New("sign-in is not configured"))
		return
	}
	claims, err := a.sessions.Verify(sessionToken(c, a.config.Auth.SessionCookieName))
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, errors.New("please sign in first"))
		return
	}
	c.Set(userIDKey, claims.Subject)
	c.Next()
}

func currentUser(c *gin.Context) string {
	return c.GetString(userIDKey)
}
