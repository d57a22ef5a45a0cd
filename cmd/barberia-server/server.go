package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Carloolivera/barberia-cobran/internal/config"
	"github.com/Carloolivera/barberia-cobran/internal/domain/booking"
	"github.com/Carloolivera/barberia-cobran/internal/domain/calendar"
	"github.com/Carloolivera/barberia-cobran/internal/domain/catalog"
	"github.com/Carloolivera/barberia-cobran/internal/domain/clients"
	"github.com/Carloolivera/barberia-cobran/internal/platform/auth"
	"github.com/Carloolivera/barberia-cobran/internal/platform/db"
	"github.com/Carloolivera/barberia-cobran/internal/platform/middleware"
	"github.com/Carloolivera/barberia-cobran/internal/platform/outbox"
	"github.com/Carloolivera/barberia-cobran/internal/platform/telemetry"
)

const bookingTracerName = "github.com/Carloolivera/barberia-cobran/internal/domain/booking"

// stores bundles the collaborators behind the booking engine for one
// storage backend.
type stores struct {
	catalog      *catalog.Manager
	calendar     *calendar.Service
	clients      *clients.Registry
	appointments booking.AppointmentRepository
}

// newPostgresStores wires the pgx repositories. A nil events store disables
// the appointment outbox.
func newPostgresStores(pool *pgxpool.Pool, loc *time.Location, events *outbox.Store) stores {
	return stores{
		catalog:      catalog.NewManager(catalog.NewServiceRepoPG(pool)),
		calendar:     calendar.NewService(calendar.NewWorkingHourRepoPG(pool), calendar.NewBlockedDateRepoPG(pool), loc),
		clients:      clients.NewRegistry(clients.NewTrustedClientRepoPG(pool)),
		appointments: booking.NewAppointmentRepoPG(pool, events),
	}
}

func newMemoryStores(loc *time.Location) stores {
	appts := booking.NewMemoryRepo()
	services := catalog.NewMemoryRepo()
	services.SetReferenceCheck(appts.ReferencesService)
	cal := calendar.NewMemoryStore()
	return stores{
		catalog:      catalog.NewManager(services),
		calendar:     calendar.NewService(cal.WorkingHours(), cal.BlockedDates(), loc),
		clients:      clients.NewRegistry(clients.NewMemoryRepo()),
		appointments: appts,
	}
}

type server struct {
	echo    *echo.Echo
	logger  zerolog.Logger
	tel     *telemetry.Provider
	pool    *pgxpool.Pool
	redis   *redis.Client
	booking *booking.Service

	stopWorkers context.CancelFunc
	workers     sync.WaitGroup
}

func newServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*server, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	tel, err := telemetry.New(ctx, telemetry.Config{
		ServiceName:    cfg.OTelServiceName,
		ServiceVersion: version,
		Environment:    cfg.Env,
		TracingEnabled: cfg.OTelEnabled,
		OTLPEndpoint:   cfg.OTelEndpoint,
		SampleRatio:    cfg.OTelSamplingRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	s := &server{logger: logger, tel: tel}
	workerCtx, cancel := context.WithCancel(context.Background())
	s.stopWorkers = cancel

	var st stores
	switch cfg.Store {
	case config.StoreMemory:
		st = newMemoryStores(loc)
		res, err := seedDefaults(ctx, st.catalog, st.calendar)
		if err != nil {
			s.close(ctx)
			return nil, fmt.Errorf("seed memory store: %w", err)
		}
		logger.Info().Int("services", res.Services).Int("working_hours", res.WorkingHours).Msg("memory store seeded")
	default:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			s.close(ctx)
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		s.pool = pool
		tel.RegisterPoolStats(pool.Stat)
		logger.Info().Msg("connected to database")

		var events *outbox.Store
		if cfg.KafkaBrokers != "" {
			events = outbox.NewStore()
			pub := outbox.NewPublisher(pool, events, logger, outbox.PublisherConfig{
				Brokers:   cfg.KafkaBrokers,
				PollEvery: cfg.OutboxPollInterval,
			})
			s.workers.Add(1)
			go func() {
				defer s.workers.Done()
				pub.Run(workerCtx)
			}()
		}
		st = newPostgresStores(pool, loc, events)
	}

	s.booking = booking.NewService(st.appointments, st.catalog, st.calendar, st.clients, booking.Options{
		Location:    loc,
		HorizonDays: cfg.BookingHorizonDays,
		Logger:      logger,
		Metrics:     booking.NewMetrics(tel.Registry()),
		Tracer:      tel.Tracer(bookingTracerName),
	})

	if err := s.connectRedis(ctx, cfg); err != nil {
		s.close(ctx)
		return nil, err
	}
	s.echo = s.routes(cfg, st, s.bookingLimiter(cfg))
	return s, nil
}

// connectRedis opens the shared client when REDIS_URL is set. An unreachable
// server only logs here: the booking limiter fails open and token checks
// answer 503 until it recovers.
func (s *server) connectRedis(ctx context.Context, cfg *config.Config) error {
	if cfg.RedisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse REDIS_URL: %w", err)
	}
	s.redis = redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := s.redis.Ping(pingCtx).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("redis unreachable at startup")
	}
	return nil
}

func (s *server) routes(cfg *config.Config, st stores, bookLimit echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(s.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(s.logger))
	e.Use(s.tel.TracingMiddleware())
	e.Use(s.tel.MetricsMiddleware())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	if cfg.RequestTimeout > 0 {
		e.Use(middleware.RequestTimeout(cfg.RequestTimeout, "/metrics"))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
			"store":   cfg.Store,
		})
	})
	if s.pool != nil {
		e.GET("/health/db", db.HealthHandler(s.pool))
	}
	e.GET("/metrics", s.tel.Handler())

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))

	var adminAuth echo.MiddlewareFunc
	var logout echo.HandlerFunc
	if cfg.ResolvedAuthMode() == config.AuthModeJWT {
		revoked := s.revocations()
		jwtCfg := auth.JWTConfig{Issuer: cfg.AuthIssuer, SigningKey: []byte(cfg.AuthSigningKey), Revocations: revoked}
		adminAuth = auth.JWTMiddleware(jwtCfg)
		logout = auth.LogoutHandler(revoked)
		authn := auth.NewAuthenticator(cfg.AdminPasswordHash, jwtCfg, cfg.AuthTokenTTL)
		if bookLimit != nil {
			apiV1.POST("/auth/login", authn.LoginHandler, bookLimit)
		} else {
			apiV1.POST("/auth/login", authn.LoginHandler)
		}
	} else {
		adminAuth = auth.DevAuthMiddleware()
	}
	admin := apiV1.Group("/admin", adminAuth)
	if logout != nil {
		admin.POST("/auth/logout", logout)
	}

	catalog.NewHandler(st.catalog).RegisterRoutes(apiV1, admin)
	calendar.NewHandler(st.calendar).RegisterRoutes(apiV1, admin)
	clients.NewHandler(st.clients).RegisterRoutes(admin)
	booking.NewHandler(s.booking).RegisterRoutes(apiV1, admin, bookLimit)

	return e
}

// bookingLimiter returns the limiter for POST /appointments: a Redis fixed
// window shared by every instance when REDIS_URL is set, otherwise a
// per-process token bucket with the same average rate.
func (s *server) bookingLimiter(cfg *config.Config) echo.MiddlewareFunc {
	if cfg.BookingRateLimit <= 0 || cfg.BookingRateWindow <= 0 {
		return nil
	}
	if s.redis == nil {
		return middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: float64(cfg.BookingRateLimit) / cfg.BookingRateWindow.Seconds(),
			BurstSize:         cfg.BookingRateLimit,
		})
	}
	limiter := middleware.NewRedisRateLimiter(s.redis, cfg.BookingRateLimit, cfg.BookingRateWindow, "barberia:ratelimit:book", s.logger)
	return limiter.Middleware()
}

// revocations shares logouts across instances when Redis is available.
func (s *server) revocations() auth.RevocationList {
	if s.redis != nil {
		return auth.NewRedisRevocationList(s.redis, "barberia:revoked:")
	}
	return auth.NewMemoryRevocationList()
}

func (s *server) start(addr string) error {
	err := s.echo.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *server) shutdown(ctx context.Context) error {
	err := s.echo.Shutdown(ctx)
	s.close(ctx)
	return err
}

// close stops background workers and releases connections. It is safe to
// call on a partially built server.
func (s *server) close(ctx context.Context) {
	if s.stopWorkers != nil {
		s.stopWorkers()
	}
	s.workers.Wait()
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("close redis")
		}
		s.redis = nil
	}
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	if s.tel != nil {
		if err := s.tel.Shutdown(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("flush traces")
		}
	}
}
