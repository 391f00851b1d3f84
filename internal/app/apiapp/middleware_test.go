package apiapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/enums"
	"github.com/keito-ux/advent-calendar-bolt/internal/domain/model"
	redrepo "github.com/keito-ux/advent-calendar-bolt/internal/repo/redis"
	authsvc "github.com/keito-ux/advent-calendar-bolt/internal/services/auth"
)

func TestRequireRoleAllowsCaseInsensitiveMatch(t *testing.T) {
	mw := RequireRole("ADMIN")

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/overview", nil)
	req = req.WithContext(authsvc.WithIdentity(context.Background(), authsvc.Identity{
		UserID: uuid.New(),
		SID:    "sid-1",
		Role:   enums.RoleAdmin,
	}))
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNoContent)
	}
}

func TestRequireRoleRejectsForbiddenRole(t *testing.T) {
	mw := RequireRole(enums.RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/overview", nil)
	req = req.WithContext(authsvc.WithIdentity(context.Background(), authsvc.Identity{
		UserID: uuid.New(),
		SID:    "sid-2",
		Role:   enums.RoleUser,
	}))
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler must not be called for forbidden role")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusForbidden)
	}
}

func TestRequireRoleWithoutIdentity(t *testing.T) {
	rr := httptest.NewRecorder()
	RequireRole(enums.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler must not be called without identity")
	})).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/admin/overview", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware(t *testing.T) {
	service, token := newAuthServiceWithSession(t)
	mw := AuthMiddleware(service, zap.NewNop())

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "missing token", header: "", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + token, status: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not-a-jwt", status: http.StatusUnauthorized},
		{name: "valid token", header: "bearer " + token, status: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if authsvc.ViewerFromContext(r.Context()) == nil {
					t.Fatalf("identity missing in context")
				}
				w.WriteHeader(http.StatusNoContent)
			})).ServeHTTP(rr, req)

			if rr.Code != tt.status {
				t.Fatalf("unexpected status: got %d want %d", rr.Code, tt.status)
			}
		})
	}
}

func TestOptionalAuthMiddleware(t *testing.T) {
	service, token := newAuthServiceWithSession(t)
	mw := OptionalAuthMiddleware(service, zap.NewNop())

	var sawViewer bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawViewer = authsvc.ViewerFromContext(r.Context()) != nil
		w.WriteHeader(http.StatusNoContent)
	})

	rr := httptest.NewRecorder()
	mw(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/shared/abc", nil))
	if rr.Code != http.StatusNoContent || sawViewer {
		t.Fatalf("anonymous request: status %d viewer %v", rr.Code, sawViewer)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/shared/abc", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	mw(next).ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent || !sawViewer {
		t.Fatalf("authenticated request: status %d viewer %v", rr.Code, sawViewer)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/shared/abc", nil)
	req.Header.Set("Authorization", "Bearer expired.or.forged")
	rr = httptest.NewRecorder()
	mw(next).ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("invalid token: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func newAuthServiceWithSession(t *testing.T) (*authsvc.Service, string) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	service := authsvc.NewService(
		authsvc.NewJWTManager("middleware-secret", 15*time.Minute),
		redrepo.NewSessionRepo(client),
		&memoryAccountStore{users: map[string]model.User{}},
		45*24*time.Hour,
	)

	result, err := service.SignUp(context.Background(), authsvc.SignUpInput{
		Email:    "santa@example.com",
		Username: "santa",
		Password: "hohoho",
	})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	return service, result.AccessToken
}

type memoryAccountStore struct {
	mu    sync.Mutex
	users map[string]model.User
}

func (m *memoryAccountStore) CreateAccount(_ context.Context, user model.User, _ model.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Email]; ok {
		return authsvc.ErrEmailTaken
	}
	m.users[user.Email] = user
	return nil
}

func (m *memoryAccountStore) FindUserByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[email]
	if !ok {
		return model.User{}, authsvc.ErrUserNotFound
	}
	return user, nil
}

func TestRequireSecondFactor(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	enrolled := uuid.New()
	secrets := staticTOTPSecrets{enrolled: "JBSWY3DPEHPK3PXP"}
	mw := RequireSecondFactor(authsvc.NewSecondFactor(secrets, redrepo.NewTOTPRepo(client), "Advent"), zap.NewNop())

	tests := []struct {
		name   string
		userID uuid.UUID
		code   string
		status int
	}{
		{name: "not enrolled", userID: uuid.New(), status: http.StatusNoContent},
		{name: "enrolled without code", userID: enrolled, status: http.StatusUnauthorized},
		{name: "enrolled with bad code", userID: enrolled, code: "12345", status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/admin/overview", nil)
			req = req.WithContext(authsvc.WithIdentity(context.Background(), authsvc.Identity{
				UserID: tt.userID,
				SID:    "sid",
				Role:   enums.RoleAdmin,
			}))
			if tt.code != "" {
				req.Header.Set(adminOTPHeader, tt.code)
			}
			rr := httptest.NewRecorder()
			mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})).ServeHTTP(rr, req)

			if rr.Code != tt.status {
				t.Fatalf("unexpected status: got %d want %d", rr.Code, tt.status)
			}
		})
	}
}

type staticTOTPSecrets map[uuid.UUID]string

func (s staticTOTPSecrets) GetTOTPSecret(_ context.Context, userID uuid.UUID) (string, error) {
	return s[userID], nil
}

func (s staticTOTPSecrets) SetTOTPSecret(_ context.Context, userID uuid.UUID, secret string) error {
	s[userID] = secret
	return nil
}
