package apiapp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/keito-ux/advent-calendar-bolt/internal/config"
	"github.com/keito-ux/advent-calendar-bolt/internal/domain/enums"
	"github.com/keito-ux/advent-calendar-bolt/internal/infra/metrics"
	analyticsvc "github.com/keito-ux/advent-calendar-bolt/internal/services/analytics"
	authsvc "github.com/keito-ux/advent-calendar-bolt/internal/services/auth"
	calendarsvc "github.com/keito-ux/advent-calendar-bolt/internal/services/calendars"
	profilesvc "github.com/keito-ux/advent-calendar-bolt/internal/services/profiles"
	purchasesvc "github.com/keito-ux/advent-calendar-bolt/internal/services/purchases"
	scenesvc "github.com/keito-ux/advent-calendar-bolt/internal/services/scenes"
	sharesvc "github.com/keito-ux/advent-calendar-bolt/internal/services/share"
	tipsvc "github.com/keito-ux/advent-calendar-bolt/internal/services/tips"
	httperrors "github.com/keito-ux/advent-calendar-bolt/internal/transport/http/errors"
	"github.com/keito-ux/advent-calendar-bolt/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService      *authsvc.Service
	SecondFactor     *authsvc.SecondFactor
	AnalyticsService *analyticsvc.Service
	CalendarService  *calendarsvc.Service
	ProfileService   *profilesvc.Service
	PurchaseService  *purchasesvc.Service
	SceneService     *scenesvc.Service
	ShareService     *sharesvc.Service
	TipService       *tipsvc.Service
	HealthChecks     map[string]handlers.Pinger
	Metrics          *metrics.Metrics
	Logger           *zap.Logger
	Config           config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	authHandler := handlers.NewAuthHandler(deps.AuthService)
	healthHandler := handlers.NewHealthHandler(deps.HealthChecks)
	meHandler := handlers.NewMeHandler(deps.ProfileService, deps.PurchaseService)
	usersHandler := handlers.NewUsersHandler(deps.ProfileService)
	calendarHandler := handlers.NewCalendarHandler(deps.CalendarService, deps.ShareService)
	sharedHandler := handlers.NewSharedHandler(deps.CalendarService, deps.PurchaseService)
	sceneHandler := handlers.NewSceneHandler(deps.SceneService, deps.TipService)
	eventsHandler := handlers.NewEventsHandler(deps.AnalyticsService)
	adminHandler := handlers.NewAdminHandler(deps.CalendarService, deps.SceneService)
	totpHandler := handlers.NewTOTPHandler(deps.SecondFactor)
	if deps.Metrics != nil {
		sharedHandler.AttachRateObserver(deps.Metrics)
		sceneHandler.AttachRateObserver(deps.Metrics)
	}

	requireAuth := AuthMiddleware(deps.AuthService, deps.Logger)
	optionalAuth := OptionalAuthMiddleware(deps.AuthService, deps.Logger)

	r.Get("/healthz", healthHandler.Live)
	r.Get("/readyz", healthHandler.Ready)
	if deps.Config.Metrics.Enabled && deps.Metrics != nil {
		r.Handle(deps.Config.Metrics.Path, deps.Metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.SignUp)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.With(requireAuth).Post("/logout", authHandler.Logout)
			r.With(requireAuth).Post("/logout_all", authHandler.LogoutAll)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/me", meHandler.Get)
			r.Put("/me", meHandler.Update)
			r.Put("/me/avatar", meHandler.Avatar)
			r.Get("/me/purchases", meHandler.Purchases)

			r.Post("/calendars", calendarHandler.Create)
			r.Get("/calendars/mine", calendarHandler.Mine)
			r.Get("/calendars/{calendarID}", calendarHandler.Editor)
			r.Patch("/calendars/{calendarID}", calendarHandler.Update)
			r.Delete("/calendars/{calendarID}", calendarHandler.Delete)
			r.Put("/calendars/{calendarID}/days/{day}", calendarHandler.UpsertDay)
			r.Post("/calendars/{calendarID}/days/{day}/image", calendarHandler.DayImage)
			r.Post("/calendars/{calendarID}/background", calendarHandler.Background)
			r.Get("/calendars/{calendarID}/share", calendarHandler.ShareLink)

			r.Post("/shared/{code}/purchase", sharedHandler.Purchase)
		})

		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)

			r.Get("/shared/{code}", sharedHandler.View)
			r.Get("/shared/{code}/qr.png", calendarHandler.QRCode)
			r.Get("/calendars/search", calendarHandler.Search)
			r.Get("/users/search", usersHandler.Search)

			r.Get("/scenes", sceneHandler.List)
			r.Get("/scenes/{day}", sceneHandler.Detail)
			r.Post("/scenes/{day}/unlock", sceneHandler.Unlock)
			r.Get("/artists/{artistID}", sceneHandler.Artist)
			r.Post("/artists/{artistID}/tips", sceneHandler.Tip)
			r.Get("/tips/presets", sceneHandler.TipPresets)

			r.Post("/events/batch", eventsHandler.Batch)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(RequireRole(enums.RoleAdmin))

			r.Post("/totp/setup", totpHandler.Setup)
			r.Post("/totp/confirm", totpHandler.Confirm)

			r.Group(func(r chi.Router) {
				r.Use(RequireSecondFactor(deps.SecondFactor, deps.Logger))

				r.Get("/overview", adminHandler.Overview)
				r.Post("/scenes", adminHandler.CreateScene)
				r.Post("/artists", adminHandler.CreateArtist)
				r.Put("/scenes/{day}/translations/{lang}", adminHandler.SetTranslation)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.Write(w, http.StatusNotFound, httperrors.APIError{
			Code:    "NOT_FOUND",
			Message: "route not found",
		})
	})
}
