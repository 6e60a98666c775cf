package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/growcoach/jobboard/internal/api"
	"github.com/growcoach/jobboard/internal/app"
	"github.com/growcoach/jobboard/internal/app/maintenance"
	iauth "github.com/growcoach/jobboard/internal/auth"
	"github.com/growcoach/jobboard/internal/cache"
	"github.com/growcoach/jobboard/internal/database"
	"github.com/growcoach/jobboard/internal/handlers"
	"github.com/growcoach/jobboard/internal/middleware"
	"github.com/growcoach/jobboard/internal/monitoring"
	"github.com/growcoach/jobboard/internal/monitoring/checks"
	"github.com/growcoach/jobboard/internal/services"
	"github.com/growcoach/jobboard/internal/storage"
	"github.com/growcoach/jobboard/pkg/logger"
	"github.com/growcoach/jobboard/pkg/mail"
)

// maintenanceMaxAge is how long a maintenance job may go without a
// successful run before readiness reports it degraded.
const maintenanceMaxAge = 3 * time.Hour

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB      *gorm.DB
	Redis   *cache.RedisStore
	Cleaner *maintenance.Cleaner
	Router  *gin.Engine
}

// bootstrapRuntime initialises the database, cache, mailer, services and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var store cache.Store = cache.NewDatabaseStore(stack.DB)
	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisStore(ctx, cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to database-backed cache", zap.Error(err))
		} else {
			store = stack.Redis
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	mailer, err := newMailer(ctx, cfg.Email)
	if err != nil {
		return nil, err
	}

	files, err := storage.NewFileStore(cfg.Uploads.Dir, storage.WithMaxBytes(cfg.Uploads.MaxBytes))
	if err != nil {
		return nil, fmt.Errorf("initialise upload directory: %w", err)
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	denylist, err := iauth.NewTokenDenylist(stack.DB, store)
	if err != nil {
		return nil, fmt.Errorf("initialise token denylist: %w", err)
	}

	workflow, err := services.NewWorkflowService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise workflow service: %w", err)
	}
	notifications, err := services.NewNotificationService(stack.DB, workflow)
	if err != nil {
		return nil, fmt.Errorf("initialise notification service: %w", err)
	}
	accounts, err := services.NewAccountService(stack.DB, notifications)
	if err != nil {
		return nil, fmt.Errorf("initialise account service: %w", err)
	}
	jobs, err := services.NewJobService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise job service: %w", err)
	}
	authSvc, err := services.NewAuthService(stack.DB, accounts, jwtSvc, denylist,
		services.WithMailer(mailer),
		services.WithResetCodeLength(cfg.Auth.ResetCodeLength()),
	)
	if err != nil {
		return nil, fmt.Errorf("initialise auth service: %w", err)
	}

	var oauth handlers.OAuthProvider
	if cfg.Auth.OAuth.Google.Enabled {
		googleCfg, err := cfg.Auth.GoogleConfig()
		if err != nil {
			return nil, err
		}
		google, err := iauth.NewGoogleOAuth(ctx, googleCfg)
		if err != nil {
			return nil, fmt.Errorf("initialise google sign-in: %w", err)
		}
		oauth = google
		log.Info("google sign-in enabled")
	}

	tracker := monitoring.NewMaintenanceTracker()
	health := monitoring.NewHealthManager(cfg.Monitoring.Health.Timeout)
	health.Register(monitoring.Liveness, checks.UploadDir(files.Root()))
	health.Register(monitoring.Readiness, checks.Database(stack.DB))
	if pinger, ok := store.(cache.Pinger); ok {
		health.Register(monitoring.Readiness, checks.Cache(cacheName(stack.Redis != nil), pinger))
	}

	if cfg.Maintenance.Enabled {
		opts := []maintenance.Option{
			maintenance.WithTracker(tracker),
			maintenance.WithResetCodeSchedule(cfg.Maintenance.ResetCodeSchedule),
			maintenance.WithTokenSchedule(cfg.Maintenance.TokenSchedule),
			maintenance.WithCacheSchedule(cfg.Maintenance.CacheSchedule),
		}
		if purger, ok := store.(cache.Purger); ok {
			opts = append(opts, maintenance.WithCachePurger(purger))
		}
		stack.Cleaner = maintenance.NewCleaner(authSvc, denylist, opts...)
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
		health.Register(monitoring.Readiness, checks.Maintenance(tracker, maintenanceMaxAge))
	}

	stack.Router, err = api.NewRouter(api.Dependencies{
		Config:        cfg,
		JWT:           jwtSvc,
		Revocations:   denylist,
		Auth:          authSvc,
		Accounts:      accounts,
		Workflow:      workflow,
		Notifications: notifications,
		Jobs:          jobs,
		Files:         files,
		Health:        health,
		RateStore:     middleware.NewStoreRateStore(store),
		OAuth:         oauth,
		Version:       version,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if stopCtx != nil {
			ctx = stopCtx
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
		s.Cleaner = nil
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
		s.Redis = nil
	}

	if s.DB != nil {
		if err := database.Close(s.DB); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
		s.DB = nil
	}
}

func cacheName(redis bool) string {
	if redis {
		return "redis"
	}
	return "database_cache"
}

// newMailer picks the outbound email transport. Without a provider, reset
// codes are logged as undeliverable.
func newMailer(ctx context.Context, cfg app.EmailConfig) (mail.Mailer, error) {
	switch cfg.ProviderName() {
	case app.EmailProviderSMTP:
		mailer, err := mail.NewSMTPMailer(cfg.SMTPSettings())
		if err != nil {
			return nil, fmt.Errorf("initialise smtp mailer: %w", err)
		}
		return mailer, nil
	case app.EmailProviderSES:
		mailer, err := mail.NewSESMailer(ctx, cfg.SESSettings())
		if err != nil {
			return nil, fmt.Errorf("initialise ses mailer: %w", err)
		}
		return mailer, nil
	case app.EmailProviderNone:
		return mail.NopMailer{}, nil
	default:
		return nil, fmt.Errorf("unsupported email provider %q", cfg.Provider)
	}
}

func initialiseDatabase(ctx context.Context, cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(ctx, db, cfg.Auth.AdminSeed()); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver:   strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:     strings.TrimSpace(cfg.Database.Path),
		DSN:      strings.TrimSpace(cfg.Database.DSN),
		LogLevel: strings.TrimSpace(cfg.Database.LogLevel),
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		applyHostConfig(&dbCfg, cfg.Database.Postgres)
	case "mysql":
		applyHostConfig(&dbCfg, cfg.Database.MySQL)
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	return dbCfg
}

func applyHostConfig(dbCfg *database.Config, auth app.DBAuthConfig) {
	dbCfg.Host = strings.TrimSpace(auth.Host)
	dbCfg.Port = auth.Port
	dbCfg.Name = strings.TrimSpace(auth.Database)
	dbCfg.User = strings.TrimSpace(auth.Username)
	dbCfg.Password = strings.TrimSpace(auth.Password)
}
