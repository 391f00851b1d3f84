package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/model"
	redrepo "github.com/keito-ux/advent-calendar-bolt/internal/repo/redis"
	authsvc "github.com/keito-ux/advent-calendar-bolt/internal/services/auth"
	"github.com/keito-ux/advent-calendar-bolt/internal/transport/http/dto"
	httperrors "github.com/keito-ux/advent-calendar-bolt/internal/transport/http/errors"
)

func TestAuthSignUpLoginRefresh(t *testing.T) {
	handler := newAuthHandlerForTest(t)

	rr := postJSON(t, handler.SignUp, dto.SignUpRequest{Email: "elf@example.com", Username: "elf", Password: "jingle"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("sign up: got %d want %d (%s)", rr.Code, http.StatusCreated, rr.Body.String())
	}
	var signup dto.AuthTokensResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &signup); err != nil {
		t.Fatalf("decode sign up: %v", err)
	}
	if signup.AccessToken == "" || signup.RefreshToken == "" || signup.ExpiresInSec <= 0 {
		t.Fatalf("unexpected tokens: %+v", signup)
	}
	if signup.Me.Username != "elf" || signup.Me.Role != "user" {
		t.Fatalf("unexpected me: %+v", signup.Me)
	}

	rr = postJSON(t, handler.Login, dto.LoginRequest{Email: "ELF@example.com", Password: "jingle"})
	if rr.Code != http.StatusOK {
		t.Fatalf("login: got %d want %d", rr.Code, http.StatusOK)
	}

	rr = postJSON(t, handler.Refresh, dto.RefreshRequest{RefreshToken: signup.RefreshToken})
	if rr.Code != http.StatusOK {
		t.Fatalf("refresh: got %d want %d", rr.Code, http.StatusOK)
	}

	// the old refresh token was rotated away
	rr = postJSON(t, handler.Refresh, dto.RefreshRequest{RefreshToken: signup.RefreshToken})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("reused refresh: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthErrorsMapToStatus(t *testing.T) {
	handler := newAuthHandlerForTest(t)

	if rr := postJSON(t, handler.SignUp, dto.SignUpRequest{Email: "elf@example.com", Username: "elf", Password: "jingle"}); rr.Code != http.StatusCreated {
		t.Fatalf("first sign up: got %d", rr.Code)
	}

	tests := []struct {
		name   string
		handle http.HandlerFunc
		body   any
		status int
		code   string
	}{
		{name: "duplicate email", handle: handler.SignUp, body: dto.SignUpRequest{Email: "elf@example.com", Username: "elf2", Password: "jingle"}, status: http.StatusConflict, code: "EMAIL_TAKEN"},
		{name: "short password", handle: handler.SignUp, body: dto.SignUpRequest{Email: "new@example.com", Username: "new", Password: "123"}, status: http.StatusBadRequest, code: "INVALID_REQUEST"},
		{name: "wrong password", handle: handler.Login, body: dto.LoginRequest{Email: "elf@example.com", Password: "nope!!"}, status: http.StatusUnauthorized, code: "INVALID_CREDENTIALS"},
		{name: "unknown field", handle: handler.Login, body: map[string]string{"email": "elf@example.com", "pass": "x"}, status: http.StatusBadRequest, code: "INVALID_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postJSON(t, tt.handle, tt.body)
			if rr.Code != tt.status {
				t.Fatalf("unexpected status: got %d want %d", rr.Code, tt.status)
			}
			var apiErr httperrors.APIError
			if err := json.Unmarshal(rr.Body.Bytes(), &apiErr); err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if apiErr.Code != tt.code {
				t.Fatalf("unexpected code: got %q want %q", apiErr.Code, tt.code)
			}
		})
	}
}

func TestAuthLogoutRequiresIdentity(t *testing.T) {
	handler := newAuthHandlerForTest(t)

	rr := httptest.NewRecorder()
	handler.Logout(rr, httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func newAuthHandlerForTest(t *testing.T) *AuthHandler {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	redisClient := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	jwtManager := authsvc.NewJWTManager("test-secret", 15*time.Minute)
	accounts := &memoryAccounts{users: map[string]model.User{}, usernames: map[string]uuid.UUID{}}
	return NewAuthHandler(authsvc.NewService(jwtManager, redrepo.NewSessionRepo(redisClient), accounts, 45*24*time.Hour))
}

func postJSON(t *testing.T, handle http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatalf("encode body: %v", err)
	}
	rr := httptest.NewRecorder()
	handle(rr, httptest.NewRequest(http.MethodPost, "/", &buf))
	return rr
}

type memoryAccounts struct {
	mu        sync.Mutex
	users     map[string]model.User
	usernames map[string]uuid.UUID
}

func (m *memoryAccounts) CreateAccount(_ context.Context, user model.User, profile model.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.Email]; ok {
		return authsvc.ErrEmailTaken
	}
	key := strings.ToLower(profile.Username)
	if _, ok := m.usernames[key]; ok {
		return authsvc.ErrUsernameTaken
	}
	m.users[user.Email] = user
	m.usernames[key] = user.ID
	return nil
}

func (m *memoryAccounts) FindUserByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[email]
	if !ok {
		return model.User{}, authsvc.ErrUserNotFound
	}
	return user, nil
}
