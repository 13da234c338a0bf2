package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/ehr/records/internal/config"
	"github.com/ehr/records/internal/domain/hospital"
	"github.com/ehr/records/internal/domain/patient"
	"github.com/ehr/records/internal/domain/testresult"
	"github.com/ehr/records/internal/domain/user"
	"github.com/ehr/records/internal/platform/auth"
	"github.com/ehr/records/internal/platform/db"
	"github.com/ehr/records/internal/platform/middleware"
	"github.com/ehr/records/internal/platform/sandbox"
)

// services holds one instance of every domain service, built once per
// process over the shared pool.
type services struct {
	hospitals   *hospital.Service
	users       *user.Service
	patients    *patient.Service
	testResults *testresult.Service
	testTypes   testresult.TypeRepository
}

func newServices(pool *pgxpool.Pool) *services {
	hospitalSvc := hospital.NewService(hospital.NewRepo(pool))
	userSvc := user.NewService(user.NewRepo(pool))
	patientSvc := patient.NewService(patient.NewRepo(pool), userSvc)
	typeRepo := testresult.NewTypeRepo(pool)
	resultSvc := testresult.NewService(typeRepo, testresult.NewResultRepo(pool), patientSvc)
	return &services{
		hospitals:   hospitalSvc,
		users:       userSvc,
		patients:    patientSvc,
		testResults: resultSvc,
		testTypes:   typeRepo,
	}
}

func (s *services) seedServices() sandbox.Services {
	return sandbox.Services{
		Hospitals:   s.hospitals,
		Users:       s.users,
		Patients:    s.patients,
		TestResults: s.testResults,
		TestTypes:   s.testTypes,
	}
}

// newLoginLimiter selects the throttle for POST /token. A Redis URL shares
// the budget across processes; otherwise each process keeps its own buckets.
// A nil limiter disables login throttling. The returned closer releases the
// Redis client, if any.
func newLoginLimiter(cfg *config.Config) (middleware.Limiter, io.Closer, error) {
	if cfg.LoginRateLimit <= 0 {
		return nil, nil, nil
	}
	if cfg.RedisURL != "" {
		client, err := middleware.ParseRedisURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return middleware.NewRedisLimiter(client, cfg.LoginRateLimit, cfg.LoginRateWindow), client, nil
	}
	return middleware.NewMemoryLimiter(middleware.PerWindow(cfg.LoginRateLimit, cfg.LoginRateWindow)), nil, nil
}

// newServer assembles the HTTP surface. pool may be nil in tests that only
// exercise routes which never reach storage.
func newServer(cfg *config.Config, pool *pgxpool.Pool, svc *services, loginLimiter middleware.Limiter, logger zerolog.Logger) (*echo.Echo, error) {
	tokens, err := auth.NewTokenService([]byte(cfg.SecretKey), cfg.JWTAlgorithm, cfg.AccessTokenTTL())
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.HTTPErrorHandler(logger)
	e.Pre(echomw.RemoveTrailingSlash())

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.Sanitize(logger))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderXRequestID},
		ExposeHeaders:    []string{"X-Total-Count", "Link", echo.HeaderXRequestID},
		AllowCredentials: true,
	}))
	e.Use(middleware.RateLimit(middleware.NewMemoryLimiter(rateLimitCfg), "api", nil))

	e.GET("/health", db.LivenessHandler)
	e.GET("/health/db", db.HealthHandler(pool))

	verifier := auth.NewCredentialVerifier(tokens, map[auth.Kind]auth.AccountSource{
		auth.KindHospital: svc.hospitals,
		auth.KindUser:     svc.users,
		auth.KindPatient:  svc.patients,
	})
	// The storage session is mounted per route, after any throttling, so
	// unmatched routes and rejected logins never hold a pool connection.
	session := db.SessionMiddleware(pool, nil)

	var loginMW []echo.MiddlewareFunc
	if loginLimiter != nil {
		loginMW = append(loginMW, middleware.RateLimit(loginLimiter, "login", nil))
	}
	loginMW = append(loginMW, session)
	auth.NewHandler(verifier).RegisterRoutes(e, loginMW...)

	requireHospital := withSession(session, hospital.Authenticate(tokens, svc.hospitals))
	requireUser := withSession(session, user.Authenticate(tokens, svc.users))
	requirePatient := withSession(session, patient.Authenticate(tokens, svc.patients))

	hospital.NewHandler(svc.hospitals).RegisterRoutes(e, session, requireHospital)
	user.NewHandler(svc.users).RegisterRoutes(e, requireHospital, requireUser)
	patient.NewHandler(svc.patients).RegisterRoutes(e, requireHospital, requirePatient)
	testresult.NewHandler(svc.testResults).RegisterRoutes(e, requireHospital, requirePatient)

	return e, nil
}

// withSession runs authenticate inside the storage session so the principal
// lookup and the handler share one connection.
func withSession(session, authenticate echo.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return session(authenticate(next))
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(cfg)

	pc, err := poolConfig(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("refusing to start")
	}

	ctx := logger.WithContext(context.Background())
	pool, err := db.NewPool(ctx, pc)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	loginLimiter, closer, err := newLoginLimiter(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure login rate limiter")
	}
	if closer != nil {
		defer closer.Close()
	}

	e, err := newServer(cfg, pool, newServices(pool), loginLimiter, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
