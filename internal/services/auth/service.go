package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/enums"
	"github.com/keito-ux/advent-calendar-bolt/internal/domain/model"
	"github.com/keito-ux/advent-calendar-bolt/internal/pkg/validate"
)

const (
	MinRefreshTTL = 30 * 24 * time.Hour
	MaxRefreshTTL = 90 * 24 * time.Hour
)

type SessionStore interface {
	Create(ctx context.Context, session SessionRecord, refreshToken string) error
	GetSession(ctx context.Context, sid string) (SessionRecord, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (SessionRecord, error)
	RotateRefresh(ctx context.Context, sid, oldRefreshToken, newRefreshToken string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, sid string) error
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) error
}

// AccountStore persists credentials. CreateAccount writes the user and its
// profile atomically and reports ErrEmailTaken or ErrUsernameTaken on
// conflicts.
type AccountStore interface {
	CreateAccount(ctx context.Context, user model.User, profile model.Profile) error
	FindUserByEmail(ctx context.Context, email string) (model.User, error)
}

type Service struct {
	jwt        *JWTManager
	sessions   SessionStore
	accounts   AccountStore
	refreshTTL time.Duration
	admins     map[string]struct{}
	now        func() time.Time
}

func NewService(jwtManager *JWTManager, sessions SessionStore, accounts AccountStore, refreshTTL time.Duration) *Service {
	if refreshTTL < MinRefreshTTL {
		refreshTTL = MinRefreshTTL
	}
	if refreshTTL > MaxRefreshTTL {
		refreshTTL = MaxRefreshTTL
	}

	return &Service{
		jwt:        jwtManager,
		sessions:   sessions,
		accounts:   accounts,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// AttachAdminEmails grants the admin role to sessions issued for the given
// addresses regardless of the stored role.
func (s *Service) AttachAdminEmails(emails []string) {
	admins := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		if email = normalizeEmail(email); email != "" {
			admins[email] = struct{}{}
		}
	}
	s.admins = admins
}

func (s *Service) SignUp(ctx context.Context, in SignUpInput) (AuthResult, error) {
	if s.accounts == nil {
		return AuthResult{}, fmt.Errorf("account store is nil")
	}

	email := normalizeEmail(in.Email)
	username := strings.TrimSpace(in.Username)
	if !validate.Email(email) || !validate.Username(username) {
		return AuthResult{}, ErrInvalidInput
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return AuthResult{}, err
	}

	now := s.now().UTC()
	user := model.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         enums.RoleUser,
		CreatedAt:    now,
	}
	profile := model.Profile{
		ID:        user.ID,
		Username:  username,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.accounts.CreateAccount(ctx, user, profile); err != nil {
		if errors.Is(err, ErrEmailTaken) || errors.Is(err, ErrUsernameTaken) {
			return AuthResult{}, err
		}
		return AuthResult{}, fmt.Errorf("create account: %w", err)
	}

	return s.issueForUser(ctx, Me{ID: user.ID, Email: email, Username: username, Role: s.roleFor(email, user.Role)})
}

func (s *Service) Login(ctx context.Context, email, password string) (AuthResult, error) {
	if s.accounts == nil {
		return AuthResult{}, fmt.Errorf("account store is nil")
	}

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return AuthResult{}, ErrInvalidInput
	}

	user, err := s.accounts.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("find user by email: %w", err)
	}
	if err := CheckPassword(user.PasswordHash, password); err != nil {
		return AuthResult{}, err
	}

	return s.issueForUser(ctx, Me{ID: user.ID, Email: user.Email, Role: s.roleFor(user.Email, user.Role)})
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return AuthResult{}, ErrInvalidInput
	}

	session, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, fmt.Errorf("get refresh token session: %w", err)
	}
	if s.now().After(session.ExpiresAt) {
		return AuthResult{}, ErrUnauthorized
	}

	newRefreshToken, err := NewRefreshToken()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate refresh token: %w", err)
	}

	newExpiresAt := s.now().Add(s.refreshTTL)
	if err := s.sessions.RotateRefresh(ctx, session.SID, refreshToken, newRefreshToken, newExpiresAt); err != nil {
		if errors.Is(err, ErrRefreshNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	accessToken, accessExpires, err := s.jwt.GenerateAccessToken(session.UserID, session.SID, session.Role)
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate access token: %w", err)
	}

	return AuthResult{
		AccessToken:   accessToken,
		RefreshToken:  newRefreshToken,
		AccessExpires: accessExpires,
		Me: Me{
			ID:   session.UserID,
			Role: session.Role,
		},
	}, nil
}

func (s *Service) Logout(ctx context.Context, sid string) error {
	if strings.TrimSpace(sid) == "" {
		return ErrInvalidInput
	}
	if err := s.sessions.DeleteSession(ctx, sid); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Service) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return ErrInvalidInput
	}
	if err := s.sessions.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("delete all sessions: %w", err)
	}
	return nil
}

func (s *Service) ValidateAccessToken(ctx context.Context, accessToken string) (AccessClaims, error) {
	claims, err := s.jwt.ParseAccessToken(accessToken)
	if err != nil {
		return AccessClaims{}, ErrUnauthorized
	}

	session, err := s.sessions.GetSession(ctx, claims.SID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return AccessClaims{}, ErrUnauthorized
		}
		return AccessClaims{}, fmt.Errorf("get session: %w", err)
	}

	if session.UserID != claims.UserID || session.Role != claims.Role {
		return AccessClaims{}, ErrUnauthorized
	}
	if s.now().After(session.ExpiresAt) {
		return AccessClaims{}, ErrUnauthorized
	}

	return claims, nil
}

func (s *Service) issueForUser(ctx context.Context, me Me) (AuthResult, error) {
	if me.Role == "" {
		me.Role = enums.RoleUser
	}

	sessionID, err := NewSessionID()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate session id: %w", err)
	}
	refreshToken, err := NewRefreshToken()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate refresh token: %w", err)
	}

	session := SessionRecord{
		SID:       sessionID,
		UserID:    me.ID,
		Role:      me.Role,
		ExpiresAt: s.now().Add(s.refreshTTL),
	}
	if err := s.sessions.Create(ctx, session, refreshToken); err != nil {
		return AuthResult{}, fmt.Errorf("create session: %w", err)
	}

	accessToken, accessExpires, err := s.jwt.GenerateAccessToken(me.ID, sessionID, me.Role)
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate access token: %w", err)
	}

	return AuthResult{
		AccessToken:   accessToken,
		RefreshToken:  refreshToken,
		AccessExpires: accessExpires,
		Me:            me,
	}, nil
}

func (s *Service) roleFor(email string, stored enums.Role) enums.Role {
	if _, ok := s.admins[normalizeEmail(email)]; ok {
		return enums.RoleAdmin
	}
	if stored == "" {
		return enums.RoleUser
	}
	return stored
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
