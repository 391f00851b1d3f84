package auth

import (
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/enums"
)

const (
	tokenIssuer   = "advent-api"
	tokenAudience = "advent-web"
)

// JWTManager signs short-lived HS256 access tokens. Revocation is handled by
// the session lookup in Service.ValidateAccessToken, not here.
type JWTManager struct {
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
}

type accessTokenClaims struct {
	SessionID string     `json:"sid"`
	Role      enums.Role `json:"role"`
	jwt.RegisteredClaims
}

func NewJWTManager(secret string, accessTTL time.Duration) *JWTManager {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	return &JWTManager{secret: []byte(secret), accessTTL: accessTTL, now: time.Now}
}

func (m *JWTManager) GenerateAccessToken(userID uuid.UUID, sid string, role enums.Role) (string, time.Time, error) {
	switch {
	case len(m.secret) == 0:
		return "", time.Time{}, fmt.Errorf("jwt secret is empty")
	case userID == uuid.Nil, strings.TrimSpace(sid) == "":
		return "", time.Time{}, fmt.Errorf("invalid access token payload")
	}
	parsedRole, ok := enums.ParseRole(string(role))
	if !ok {
		return "", time.Time{}, fmt.Errorf("unknown role %q", role)
	}

	issued := m.now().UTC().Truncate(time.Second)
	expires := issued.Add(m.accessTTL)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessTokenClaims{
		SessionID: sid,
		Role:      parsedRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expires, nil
}

// ParseAccessToken verifies signature, issuer, audience and expiry. Every
// failure maps to ErrUnauthorized.
func (m *JWTManager) ParseAccessToken(raw string) (AccessClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return AccessClaims{}, ErrUnauthorized
	}

	var claims accessTokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return AccessClaims{}, ErrUnauthorized
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil || strings.TrimSpace(claims.SessionID) == "" {
		return AccessClaims{}, ErrUnauthorized
	}
	role, ok := enums.ParseRole(string(claims.Role))
	if !ok {
		return AccessClaims{}, ErrUnauthorized
	}

	return AccessClaims{
		UserID:    userID,
		SID:       claims.SessionID,
		Role:      role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
