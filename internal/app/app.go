// Package app assembles the stores, queues and services described by the
// runtime configuration. The API server, the worker and the CLI share it.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"wedding/internal/attempts"
	"wedding/internal/attendance"
	"wedding/internal/auth"
	"wedding/internal/config"
	"wedding/internal/content"
	"wedding/internal/dietary"
	"wedding/internal/guest"
	"wedding/internal/guestbook"
	"wedding/internal/handler"
	"wedding/internal/logging"
	"wedding/internal/metrics"
	"wedding/internal/queue"
	"wedding/internal/records"
	"wedding/internal/seating"
	"wedding/internal/songs"
	"wedding/internal/store"
)

// Options override the defaults derived from config.
type Options struct {
	// Sessions replaces the configured session backend.
	Sessions auth.SessionStore
	// DirectAttempts records login attempts synchronously instead of via the queue.
	DirectAttempts bool
	Registerer     prometheus.Registerer
}

// App is the wired service graph.
type App struct {
	Config config.App
	Log    zerolog.Logger

	Store   records.Store
	DB      *store.DB
	Redis   *store.Redis
	Queue   queue.Queue
	Metrics *metrics.Metrics
	Content content.Sections

	Guests     *guest.Service
	GuestRepo  *guest.Repository
	Auth       *auth.Authorizer
	Attendance *attendance.Service
	Dietary    *dietary.Service
	Songs      *songs.Service
	Guestbook  *guestbook.Service
	Seating    *seating.Reconciler
	Manual     *seating.Manual
	Attempts   *attempts.StoreSink
}

// Open connects the configured backends and builds every service.
func Open(ctx context.Context, cfg config.App, log zerolog.Logger, opts Options) (*App, error) {
	a := &App{Config: cfg, Log: log}

	if needsRedis(cfg, opts) {
		a.Redis = store.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	}

	st, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = st

	if cfg.QueueBackend == config.BackendRedis {
		a.Queue = queue.NewRedisQueue(a.Redis.Client, cfg.QueueKey)
	} else {
		a.Queue = queue.NewInMemory(64)
	}

	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	a.Metrics = metrics.New(reg)

	a.Content, err = content.Load(cfg.ContentFile)
	if err != nil {
		a.Close()
		return nil, err
	}

	sessions := opts.Sessions
	if sessions == nil {
		if cfg.SessionBackend == config.BackendRedis {
			sessions = auth.NewRedisSessions(a.Redis.Client, cfg.SessionTTL)
		} else {
			sessions = auth.NewMemorySessions()
		}
	}

	a.Attempts = attempts.NewStoreSink(a.Store)
	var rec attempts.Recorder = attempts.NewQueueRecorder(a.Queue)
	if opts.DirectAttempts {
		rec = attempts.Direct{Sink: a.Attempts}
	}

	a.GuestRepo = guest.NewRepository(a.Store)
	a.Guests = guest.NewService(a.GuestRepo, a.Metrics)
	a.Auth = auth.NewAuthorizer(auth.NewMatcher(a.GuestRepo), sessions, rec, a.Metrics, logging.Component(log, "auth"))
	a.Attendance = attendance.NewService(a.Auth, a.GuestRepo, logging.Component(log, "attendance"))
	a.Dietary = dietary.NewService(a.Auth, a.Store, logging.Component(log, "dietary"))
	a.Songs = songs.NewService(a.Store)
	a.Guestbook = guestbook.NewService(a.Store)
	a.Seating = seating.NewReconciler(a.GuestRepo, cfg.TableCount, a.Metrics, logging.Component(log, "seating"))
	a.Manual = seating.NewManual(a.GuestRepo, a.Metrics, logging.Component(log, "seating"))
	return a, nil
}

func needsRedis(cfg config.App, opts Options) bool {
	if cfg.QueueBackend == config.BackendRedis {
		return true
	}
	return opts.Sessions == nil && cfg.SessionBackend == config.BackendRedis
}

func (a *App) openStore(ctx context.Context) (records.Store, error) {
	cfg := a.Config
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return records.NewMemory(), nil
	case config.BackendREST:
		c := records.NewREST(cfg.SupabaseURL, cfg.SupabaseAnonKey)
		if !c.IsConfigured() {
			// Requests will fail with the generic message until real credentials are set.
			a.Log.Warn().Msg("SUPABASE_URL / SUPABASE_ANON_KEY not configured")
		}
		return c, nil
	case config.BackendSQL:
		db, err := store.NewDB(ctx, cfg.DBDriver, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.DB = db
		return records.NewSQL(db.Client), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// Health reports reachability of the backends in use.
func (a *App) Health(ctx context.Context) map[string]bool {
	out := map[string]bool{}
	switch s := a.Store.(type) {
	case *records.SQL:
		out["db"] = a.DB.Healthy(ctx)
	case *records.REST:
		out["db"] = s.IsConfigured()
	}
	if a.Redis != nil {
		out["redis"] = a.Redis.Healthy(ctx)
	}
	return out
}

// Handler builds the HTTP handler set over the wired services.
func (a *App) Handler() *handler.Handler {
	return handler.New(handler.Deps{
		Guests:     a.Guests,
		GuestRepo:  a.GuestRepo,
		Auth:       a.Auth,
		Attendance: a.Attendance,
		Dietary:    a.Dietary,
		Songs:      a.Songs,
		Guestbook:  a.Guestbook,
		Seating:    a.Seating,
		Manual:     a.Manual,
		Content:    a.Content,
		Health:     a.Health,
		SigningKey: a.Config.JWTSigningKey,
		Issuer:     a.Config.JWTIssuer,
		SessionTTL: a.Config.SessionTTL,
		Log:        logging.Component(a.Log, "http"),
	})
}

// Close releases database and redis connections.
func (a *App) Close() error {
	return errors.Join(a.DB.Close(), a.Redis.Close())
}
