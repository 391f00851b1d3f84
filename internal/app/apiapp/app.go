package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/keito-ux/advent-calendar-bolt/internal/config"
	"github.com/keito-ux/advent-calendar-bolt/internal/infra/metrics"
	s3infra "github.com/keito-ux/advent-calendar-bolt/internal/infra/s3"
	"github.com/keito-ux/advent-calendar-bolt/internal/jobs/cleanup"
	pgrepo "github.com/keito-ux/advent-calendar-bolt/internal/repo/postgres"
	redrepo "github.com/keito-ux/advent-calendar-bolt/internal/repo/redis"
	analyticsvc "github.com/keito-ux/advent-calendar-bolt/internal/services/analytics"
	authsvc "github.com/keito-ux/advent-calendar-bolt/internal/services/auth"
	calendarsvc "github.com/keito-ux/advent-calendar-bolt/internal/services/calendars"
	mediasvc "github.com/keito-ux/advent-calendar-bolt/internal/services/media"
	profilesvc "github.com/keito-ux/advent-calendar-bolt/internal/services/profiles"
	purchasesvc "github.com/keito-ux/advent-calendar-bolt/internal/services/purchases"
	ratesvc "github.com/keito-ux/advent-calendar-bolt/internal/services/rate"
	scenesvc "github.com/keito-ux/advent-calendar-bolt/internal/services/scenes"
	sharesvc "github.com/keito-ux/advent-calendar-bolt/internal/services/share"
	tipsvc "github.com/keito-ux/advent-calendar-bolt/internal/services/tips"
	"github.com/keito-ux/advent-calendar-bolt/internal/transport/http/handlers"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	metrics    *metrics.Metrics
	cleanup    *cleanup.Job
	httpRouter http.Handler

	backgroundCtx  context.Context
	stopBackground context.CancelFunc
	background     sync.WaitGroup
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log, m)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
		if cfg.Postgres.Migrate {
			if err := pgrepo.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrate postgres: %w", err)
			}
		}
	}

	redisClient, err := redrepo.NewClient(ctx, redrepo.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, fmt.Errorf("init redis: %w", err)
	}

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		Bucket:    cfg.S3.Bucket,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		s3Client = c
	}

	sessionRepo := redrepo.NewSessionRepo(redisClient)
	rateRepo := redrepo.NewRateRepo(redisClient)
	cacheRepo := redrepo.NewCacheRepo(redisClient)
	userRepo := pgrepo.NewUserRepo(pool)
	profileRepo := pgrepo.NewProfileRepo(pool)
	calendarRepo := pgrepo.NewCalendarRepo(pool)
	purchaseRepo := pgrepo.NewPurchaseRepo(pool)
	sceneRepo := pgrepo.NewSceneRepo(pool)
	tipRepo := pgrepo.NewTipRepo(pool)
	mediaRepo := pgrepo.NewMediaRepo(pool)
	eventRepo := pgrepo.NewEventRepo(pool)

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	authService := authsvc.NewService(jwtManager, sessionRepo, userRepo, cfg.Auth.RefreshTTL)
	authService.AttachAdminEmails(cfg.Auth.AdminEmails)
	secondFactor := authsvc.NewSecondFactor(userRepo, redrepo.NewTOTPRepo(redisClient), cfg.Auth.TOTPIssuer)

	analyticsService := analyticsvc.NewService(eventRepo, log, analyticsvc.Config{
		MaxBatchSize: 100,
	})

	mediaStorage := mediasvc.NewS3Storage(s3Client, cfg.S3.Bucket)
	mediaService := mediasvc.NewService(mediaRepo, mediaStorage, cfg.S3.PublicBaseURL)
	profileService := profilesvc.NewService(profileRepo, calendarRepo, mediaService)

	policy := cfg.Calendar.UnlockPolicy()
	calendarService := calendarsvc.NewService(calendarsvc.Dependencies{
		Store:     calendarRepo,
		Purchases: purchaseRepo,
		Cache:     cacheRepo,
		Media:     mediaService,
		Profiles:  profileRepo,
		Logger:    log,
	}, calendarsvc.Config{
		Policy:          policy,
		DefaultTitle:    cfg.Calendar.DefaultTitle,
		DefaultCurrency: cfg.Calendar.DefaultCurrency,
		CacheTTL:        cfg.Calendar.ShareCacheTTL,
		SearchLimit:     cfg.Calendar.SearchLimit,
	})

	purchaseService := purchasesvc.NewService(purchaseRepo, calendarService, policy)
	purchaseService.AttachRateLimiter(ratesvc.NewLimiter(rateRepo, "purchase", cfg.Purchases.RatePerMinute, cfg.Purchases.RatePer10Seconds))
	purchaseService.AttachTracker(analyticsService)

	tipService := tipsvc.NewService(tipRepo, tipsvc.Config{
		DefaultCurrency: cfg.Calendar.DefaultCurrency,
		MaxAmountCents:  cfg.Tips.MaxAmountCents,
		PresetAmounts:   cfg.Tips.PresetAmountsCents,
	})
	tipService.AttachRateLimiter(ratesvc.NewLimiter(rateRepo, "tip", cfg.Tips.RatePerMinute, cfg.Tips.RatePer10Seconds))
	tipService.AttachTracker(analyticsService)

	sceneService := scenesvc.NewService(sceneRepo, tipService, mediaService, policy)
	sceneService.AttachTracker(analyticsService)

	shareService := sharesvc.NewService(cfg.Share.BaseURL, cfg.Share.QRSize)

	cleanupJob := cleanup.New(mediaRepo, mediaStorage, cfg.Cleanup.BatchSize, log.Named("cleanup"))

	if m != nil {
		purchaseService.AttachObserver(m)
		tipService.AttachObserver(m)
		cleanupJob.AttachObserver(m)
	}

	healthChecks := map[string]handlers.Pinger{
		"redis": redisPinger{client: redisClient},
	}
	if pool != nil {
		healthChecks["postgres"] = pool
	}

	RegisterRoutes(r, Dependencies{
		AuthService:      authService,
		SecondFactor:     secondFactor,
		AnalyticsService: analyticsService,
		CalendarService:  calendarService,
		ProfileService:   profileService,
		PurchaseService:  purchaseService,
		SceneService:     sceneService,
		ShareService:     shareService,
		TipService:       tipService,
		HealthChecks:     healthChecks,
		Metrics:          m,
		Logger:           log,
		Config:           cfg,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	backgroundCtx, stopBackground := context.WithCancel(context.Background())

	return &App{
		cfg:            cfg,
		logger:         log,
		server:         server,
		postgres:       pool,
		redis:          redisClient,
		s3:             s3Client,
		metrics:        m,
		cleanup:        cleanupJob,
		httpRouter:     r,
		backgroundCtx:  backgroundCtx,
		stopBackground: stopBackground,
	}, nil
}

// Run starts the background jobs and serves HTTP until Shutdown.
func (a *App) Run() error {
	bgCtx := a.backgroundCtx

	if a.postgres != nil && a.s3 != nil {
		a.background.Add(1)
		go func() {
			defer a.background.Done()
			a.cleanup.Loop(bgCtx, a.cfg.Cleanup.Interval)
		}()
	}
	if a.metrics != nil && a.postgres != nil {
		a.background.Add(1)
		go func() {
			defer a.background.Done()
			a.metrics.RunDatabaseProbe(bgCtx, a.postgres, 0, a.logger)
		}()
	}

	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	a.stopBackground()
	a.background.Wait()

	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}

type redisPinger struct {
	client *goredis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
