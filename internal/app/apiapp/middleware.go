package apiapp

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/enums"
	"github.com/keito-ux/advent-calendar-bolt/internal/infra/metrics"
	authsvc "github.com/keito-ux/advent-calendar-bolt/internal/services/auth"
	httperrors "github.com/keito-ux/advent-calendar-bolt/internal/transport/http/errors"
)

const adminOTPHeader = "X-Admin-OTP"

func ApplyMiddlewares(r chiRouter, log *zap.Logger, m *metrics.Metrics) {
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(requestLogger(log, m))
}

// AuthMiddleware rejects requests without a valid bearer token.
func AuthMiddleware(authService *authsvc.Service, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authService == nil {
				httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{
					Code:    "AUTH_SERVICE_UNAVAILABLE",
					Message: "auth service is unavailable",
				})
				return
			}

			accessToken, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{
					Code:    "UNAUTHORIZED",
					Message: "missing bearer token",
				})
				return
			}

			identity, err := identityFromToken(r, authService, accessToken)
			if err != nil {
				if log != nil {
					log.Debug("auth middleware validation failed", zap.Error(err))
				}
				httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{
					Code:    "UNAUTHORIZED",
					Message: "invalid access token",
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(authsvc.WithIdentity(r.Context(), identity)))
		})
	}
}

// OptionalAuthMiddleware attaches an identity when a valid bearer token is
// present and lets anonymous requests through. An invalid token is rejected
// so a client with an expired session knows to refresh.
func OptionalAuthMiddleware(authService *authsvc.Service, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accessToken, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok || authService == nil {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := identityFromToken(r, authService, accessToken)
			if err != nil {
				if log != nil {
					log.Debug("optional auth validation failed", zap.Error(err))
				}
				httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{
					Code:    "UNAUTHORIZED",
					Message: "invalid access token",
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(authsvc.WithIdentity(r.Context(), identity)))
		})
	}
}

func RequireRole(roles ...enums.Role) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[strings.ToLower(string(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := authsvc.IdentityFromContext(r.Context())
			if !ok {
				httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{
					Code:    "UNAUTHORIZED",
					Message: "authentication required",
				})
				return
			}
			if _, ok := allowed[strings.ToLower(string(identity.Role))]; !ok {
				httperrors.Write(w, http.StatusForbidden, httperrors.APIError{
					Code:    "FORBIDDEN",
					Message: "insufficient role",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func identityFromToken(r *http.Request, authService *authsvc.Service, accessToken string) (authsvc.Identity, error) {
	claims, err := authService.ValidateAccessToken(r.Context(), accessToken)
	if err != nil {
		return authsvc.Identity{}, err
	}
	return authsvc.Identity{
		UserID: claims.UserID,
		SID:    claims.SID,
		Role:   claims.Role,
	}, nil
}

func extractBearerToken(value string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(value), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return parts[1], true
}

// requestLogger logs every request and records its latency under the matched
// route pattern, never the raw path, so share codes stay out of metric labels.
func requestLogger(log *zap.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}
			elapsed := time.Since(start)
			m.ObserveHTTP(r.Method, route, status, elapsed)

			if log != nil {
				log.Info("http_request",
					zap.String("method", r.Method),
					zap.String("route", route),
					zap.Int("status", status),
					zap.String("request_id", chimiddleware.GetReqID(r.Context())),
					zap.Duration("duration", elapsed),
				)
			}
		})
	}
}

type chiRouter interface {
	Use(middlewares ...func(http.Handler) http.Handler)
}

// RequireSecondFactor checks the X-Admin-OTP header for admins that enrolled
// a TOTP authenticator. It must run after AuthMiddleware.
func RequireSecondFactor(factor *authsvc.SecondFactor, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if factor == nil {
				next.ServeHTTP(w, r)
				return
			}
			identity, ok := authsvc.IdentityFromContext(r.Context())
			if !ok {
				httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{
					Code:    "UNAUTHORIZED",
					Message: "authentication required",
				})
				return
			}

			err := factor.Verify(r.Context(), identity.UserID, r.Header.Get(adminOTPHeader))
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, authsvc.ErrTOTPRequired):
				httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{
					Code:    "TOTP_REQUIRED",
					Message: "one-time code required",
				})
			case errors.Is(err, authsvc.ErrInvalidTOTP):
				httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{
					Code:    "INVALID_TOTP",
					Message: "invalid one-time code",
				})
			default:
				if log != nil {
					log.Error("second factor check failed", zap.Error(err))
				}
				httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{
					Code:    "INTERNAL_ERROR",
					Message: "internal server error",
				})
			}
		})
	}
}
