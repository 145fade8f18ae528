// Package app wires configuration into the auth services. It is shared by cmd/server and cmd/authctl.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/benbjohnson/clock"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"social-tippster/backend/internal/audit"
	auditrepo "social-tippster/backend/internal/audit/repository"
	"social-tippster/backend/internal/config"
	"social-tippster/backend/internal/db"
	healthhandler "social-tippster/backend/internal/health/handler"
	identityservice "social-tippster/backend/internal/identity/service"
	"social-tippster/backend/internal/lockout"
	"social-tippster/backend/internal/policy/engine"
	rtrepo "social-tippster/backend/internal/refreshtoken/repository"
	rtservice "social-tippster/backend/internal/refreshtoken/service"
	"social-tippster/backend/internal/security"
	"social-tippster/backend/internal/server"
	"social-tippster/backend/internal/server/interceptors"
	sessionrepo "social-tippster/backend/internal/session/repository"
	sessionservice "social-tippster/backend/internal/session/service"
	"social-tippster/backend/internal/telemetry"
	otelsetup "social-tippster/backend/internal/telemetry/otel"
	"social-tippster/backend/internal/telemetry/producer"
	telemetryrepo "social-tippster/backend/internal/telemetry/repository"
	userrepo "social-tippster/backend/internal/user/repository"
)

// App holds the wired services and everything that must be closed on shutdown.
type App struct {
	Config   *config.Config
	DB       *sql.DB // nil in memory mode
	Clock    clock.Clock
	Users    userrepo.Repository
	Tokens   *security.TokenProvider
	Policies *engine.OPAResolver
	Monitor  *telemetry.Monitor
	Audit    *audit.Logger
	Ledger   *rtservice.Ledger
	Tracker  *sessionservice.Tracker
	Auth     *identityservice.AuthService
	Health   *health.Server
	Checker  *healthhandler.Checker
	OTel     *otelsetup.Providers

	memCounter *lockout.MemoryCounter
	closers    []func(context.Context) error
}

// Option configures New.
type Option func(*options)

type options struct {
	clock clock.Clock
}

// WithClock sets the clock shared by every service.
func WithClock(c clock.Clock) Option { return func(o *options) { o.clock = c } }

// New builds the App from cfg. With an empty DATABASE_URL all stores are in memory and seeded
// with the development users. On error everything opened so far is closed.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (_ *App, err error) {
	o := options{clock: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}
	a := &App{Config: cfg, Clock: o.clock}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	a.OTel, err = otelsetup.NewProviders(ctx, otelsetup.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		return nil, fmt.Errorf("otel: %w", err)
	}
	a.OTel.SetGlobal()
	a.closers = append(a.closers, a.OTel.Shutdown)

	secrets, err := loadSecrets(cfg)
	if err != nil {
		return nil, err
	}
	a.Tokens = security.NewTokenProvider(secrets, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), cfg.RefreshTTL())
	hasher := security.NewHasher(cfg.BcryptCost)

	module, err := engine.LoadModule(cfg.SessionPolicyRego)
	if err != nil {
		return nil, err
	}
	if a.Policies, err = engine.NewOPAResolver(ctx, module); err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}

	counter, err := a.lockoutCounter(ctx)
	if err != nil {
		return nil, err
	}

	var (
		tx       db.TxRunner
		tokens   rtrepo.Repository
		sessions sessionrepo.Repository
		audits   auditrepo.Repository
		sinks    []telemetry.Sink
	)
	if cfg.DatabaseURL == "" {
		log.Printf("app: DATABASE_URL not set; using in-memory stores")
		users := userrepo.NewMemoryRepository()
		memTokens := rtrepo.NewMemoryRepository()
		a.Users, tokens, sessions = users, memTokens, sessionrepo.NewMemoryRepository(memTokens)
		audits = auditrepo.NewMemoryRepository()
		tx = db.NewSerialTxManager()
		n, seedErr := userrepo.SeedDevUsers(ctx, users, hasher)
		if seedErr != nil {
			return nil, fmt.Errorf("seed: %w", seedErr)
		}
		log.Printf("app: seeded %d development users", n)
	} else {
		if a.DB, err = db.Open(cfg.DatabaseURL); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return a.DB.Close() })
		a.Users = userrepo.NewPostgresRepository(a.DB)
		tokens = rtrepo.NewPostgresRepository(a.DB)
		sessions = sessionrepo.NewPostgresRepository(a.DB)
		audits = auditrepo.NewPostgresRepository(a.DB)
		tx = db.NewTxManager(a.DB)
		sinks = append(sinks, telemetryrepo.NewPostgresRepository(a.DB))
	}

	if kp := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.SecurityKafkaTopic); kp != nil {
		sinks = append(sinks, kp)
		a.closers = append(a.closers, func(context.Context) error { return kp.Close() })
	}
	if cfg.OTLPEndpoint != "" {
		sinks = append(sinks, otelsetup.NewEventSink(a.OTel.LoggerProvider))
	}
	a.Monitor = telemetry.NewMonitor(sinks, telemetry.WithClock(a.Clock), telemetry.WithMeter(a.OTel.Meter()))
	a.Audit = audit.NewLogger(audits, interceptors.ClientIP, a.Clock)

	a.Ledger = rtservice.NewLedger(tokens, a.Users, sessions, a.Tokens, tx, a.Monitor, a.Clock)
	a.Tracker = sessionservice.NewTracker(sessions, a.Ledger, a.Users, a.Policies, tx,
		sessionservice.WithClock(a.Clock),
		sessionservice.WithMaxAge(cfg.SessionMaxAgeDuration()),
		sessionservice.WithAuditLogger(a.Audit),
	)
	creds := identityservice.NewCredentialValidator(a.Users, hasher, counter, a.Monitor, a.Clock,
		cfg.LockoutMaxAttempts, cfg.LockoutWindowDuration())
	a.Auth = identityservice.NewAuthService(creds, a.Ledger, a.Tracker, a.Tokens, a.Users, tx,
		identityservice.WithClock(a.Clock),
		identityservice.WithEvents(a.Monitor),
		identityservice.WithIPExtractor(interceptors.ClientIP),
		identityservice.WithPolicies(a.Policies),
	)

	a.Health = health.NewServer()
	var pinger healthhandler.Pinger
	if a.DB != nil {
		pinger = a.DB
	}
	a.Checker = healthhandler.NewChecker(a.Health, pinger, a.Policies, a.Clock, server.ServiceNames...)
	return a, nil
}

func loadSecrets(cfg *config.Config) (*security.Secrets, error) {
	access, err := security.LoadSecret(cfg.JWTAccessSecret)
	if err != nil {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET: %w", err)
	}
	refresh, err := security.LoadSecret(cfg.JWTRefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("JWT_REFRESH_SECRET: %w", err)
	}
	if len(access) == 0 && len(refresh) == 0 && !cfg.IsProduction() {
		log.Printf("app: JWT secrets not set; using random per-process secrets (tokens will not survive a restart)")
		return security.RandomSecrets(), nil
	}
	if len(access) == 0 || len(refresh) == 0 {
		return nil, errors.New("app: JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must both be set")
	}
	if cfg.IsProduction() {
		if err := security.CheckSecretLength("JWT_ACCESS_SECRET", access, security.MinSecretLen); err != nil {
			return nil, err
		}
		if err := security.CheckSecretLength("JWT_REFRESH_SECRET", refresh, security.MinSecretLen); err != nil {
			return nil, err
		}
	}
	return security.NewSecrets(access, refresh)
}

func (a *App) lockoutCounter(ctx context.Context) (lockout.Counter, error) {
	window := a.Config.LockoutWindowDuration()
	if a.Config.RedisURL == "" {
		a.memCounter = lockout.NewMemoryCounter(window)
		return a.memCounter, nil
	}
	client, err := lockout.NewRedisClient(ctx, a.Config.RedisURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return client.Close() })
	return lockout.NewRedisCounter(client, window), nil
}

// NewGRPCServer returns a gRPC server with every service registered.
func (a *App) NewGRPCServer(opts ...grpc.ServerOption) *grpc.Server {
	s := server.NewGRPCServer(a.Auth, opts...)
	server.RegisterServices(s, server.Deps{Auth: a.Auth, Sessions: a.Tracker, Health: a.Health})
	return s
}

// RunSweeper runs the session sweeper until ctx is done. In memory mode it also drops
// lockout entries whose window has long passed.
func (a *App) RunSweeper(ctx context.Context) error {
	interval := a.Config.SweepInterval()
	if a.memCounter != nil && interval > 0 {
		go func() {
			t := a.Clock.Ticker(interval)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					if n := a.memCounter.Prune(a.Clock.Now().UTC()); n > 0 {
						log.Printf("lockout: pruned %d idle entries", n)
					}
				}
			}
		}()
	}
	return sessionservice.NewSweeper(a.Tracker, interval, a.Clock).Run(ctx)
}

// Close drains the asynchronous event and audit writers, then closes sinks, stores and
// providers in reverse order of creation. It returns the first error.
func (a *App) Close(ctx context.Context) error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	drainCtx, cancel := context.WithTimeout(ctx, telemetry.ShutdownDrainDuration+time.Second)
	defer cancel()
	if a.Monitor != nil {
		keep(a.Monitor.Drain(drainCtx))
	}
	if a.Audit != nil {
		keep(a.Audit.Drain(drainCtx))
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		keep(a.closers[i](ctx))
	}
	a.closers = nil
	return first
}
