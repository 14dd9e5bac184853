package app

import (
	"errors"
	"net/http"

	"github.com/crewboard/server/internal/module/collaboration"
	"github.com/crewboard/server/internal/module/identity"
	"github.com/crewboard/server/internal/module/notification"
	"github.com/crewboard/server/internal/module/project"
	"github.com/crewboard/server/internal/shared/cache"
	"github.com/crewboard/server/internal/shared/config"
	"github.com/crewboard/server/internal/shared/database"
	"github.com/crewboard/server/internal/shared/httpclient"
	"github.com/crewboard/server/internal/shared/logger"
	"github.com/crewboard/server/internal/shared/metrics"
	"github.com/google/wire"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ===== Infrastructure Providers =====

// InfraSet provides infrastructure dependencies.
var InfraSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideHTTPClient,
	ProvideDatabase,
	ProvideRedisClient,
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) *zap.Logger {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
}

// ProvideMetrics creates a metrics instance.
func ProvideMetrics() *metrics.Metrics {
	return metrics.New("crewboard")
}

// ProvideHTTPClient creates a shared HTTP client with connection pooling.
func ProvideHTTPClient(cfg *config.Config) *http.Client {
	return httpclient.New(cfg.HTTPClient)
}

// ProvideDatabase opens postgres and runs migrations. It returns a nil
// handle for the memory driver.
func ProvideDatabase(cfg *config.Config, log *zap.Logger) (*gorm.DB, func(), error) {
	if cfg.Database.IsMemory() {
		log.Warn("using in-memory store, data is lost on restart")
		return nil, func() {}, nil
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := database.Close(db); err != nil {
			log.Error("failed to close database", zap.Error(err))
		}
	}

	if cfg.Database.AutoMigrate {
		models := append(collaboration.Models(), project.Models()...)
		if err := database.Migrate(db, models...); err != nil {
			cleanup()
			return nil, nil, err
		}
	}
	return db, cleanup, nil
}

// ProvideRedisClient creates a Redis client. Redis is optional: a missing
// address or a failed ping yields nil.
func ProvideRedisClient(cfg *config.Config, log *zap.Logger) (goredis.UniversalClient, func()) {
	if !cfg.Redis.Enabled() {
		return nil, func() {}
	}
	client, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Warn("Redis connection failed, continuing without it", zap.Error(err))
		return nil, func() {}
	}
	return client, func() { _ = cache.Close(client) }
}

// ===== Identity Providers =====

// IdentitySet provides identity provider dependencies.
var IdentitySet = wire.NewSet(
	ProvideIdentityGateway,
	ProvideVerifier,
	ProvideWebhookVerifier,
)

// ProvideIdentityGateway creates the identity provider client, or an
// in-memory gateway when no secret key is configured.
func ProvideIdentityGateway(cfg *config.Config, httpClient *http.Client, m *metrics.Metrics, log *zap.Logger) identity.Gateway {
	if cfg.Identity.SecretKey == "" {
		log.Warn("identity secret key not set, using in-memory identity gateway")
		return identity.NewMemoryGateway()
	}
	return identity.NewClient(identity.ClientConfig{
		BaseURL:   cfg.Identity.APIURL,
		SecretKey: cfg.Identity.SecretKey,
		Timeout:   cfg.Identity.Timeout,
	}, httpClient, m, log)
}

// ProvideVerifier creates the session token verifier.
func ProvideVerifier(cfg *config.Config) (*identity.Verifier, error) {
	return identity.NewVerifier(cfg.Identity)
}

// ProvideWebhookVerifier creates the identity webhook signature verifier.
func ProvideWebhookVerifier(cfg *config.Config) (*collaboration.WebhookVerifier, error) {
	if cfg.Identity.WebhookSecret == "" {
		return nil, errors.New("config: identity.webhook_secret is required")
	}
	return collaboration.NewWebhookVerifier(cfg.Identity.WebhookSecret, cfg.Identity.WebhookTolerance)
}

// ===== Collaboration Providers =====

// CollaborationSet provides team and membership dependencies.
var CollaborationSet = wire.NewSet(
	ProvideTeamRepository,
	collaboration.NewService,
	ProvideReconciler,
	collaboration.NewHandler,
	collaboration.NewWebhookHandler,
)

// ProvideTeamRepository selects the team store for the configured driver.
func ProvideTeamRepository(db *gorm.DB) (collaboration.Repository, error) {
	if db == nil {
		return collaboration.NewMemoryRepository()
	}
	return collaboration.NewRepository(db), nil
}

// ProvideReconciler creates the invitation reconciler.
func ProvideReconciler(cfg *config.Config, teams *collaboration.Service, identities identity.Gateway, m *metrics.Metrics, log *zap.Logger) *collaboration.Reconciler {
	return collaboration.NewReconciler(teams, identities, cfg.Identity.InviteRedirectURL, m, log)
}

// ===== Project Providers =====

// ProjectSet provides project and task dependencies.
var ProjectSet = wire.NewSet(
	ProvideProjectRepository,
	wire.Bind(new(project.TeamDirectory), new(*collaboration.Service)),
	wire.Bind(new(project.MemberInviter), new(*collaboration.Reconciler)),
	project.NewService,
	project.NewHandler,
)

// ProvideProjectRepository selects the project store for the configured
// driver.
func ProvideProjectRepository(db *gorm.DB) (project.Repository, error) {
	if db == nil {
		return project.NewMemoryRepository()
	}
	return project.NewRepository(db), nil
}

// ===== Notification Providers =====

// NotificationSet provides deadline reminder dependencies.
var NotificationSet = wire.NewSet(
	ProvidePusher,
	ProvideTokenResolver,
	ProvideLedger,
	ProvideDispatcher,
	ProvideScheduler,
	notification.NewHandler,
)

// ProvidePusher creates the push gateway client.
func ProvidePusher(cfg *config.Config, httpClient *http.Client, m *metrics.Metrics, log *zap.Logger) notification.Pusher {
	return notification.NewExpoClient(cfg.Push, httpClient, m, log)
}

// ProvideTokenResolver reads push tokens from identity metadata.
func ProvideTokenResolver(identities identity.Gateway) notification.TokenResolver {
	return notification.NewTokenResolver(identities)
}

// ProvideLedger keeps reminder claims in Redis when available so reruns
// across instances do not resend.
func ProvideLedger(cfg *config.Config, client goredis.UniversalClient) notification.Ledger {
	if client == nil {
		return notification.NewMemoryLedger(cfg.Scheduler.LedgerTTL)
	}
	return notification.NewRedisLedger(client, cfg.Scheduler.LedgerTTL)
}

// ProvideDispatcher creates the reminder dispatcher.
func ProvideDispatcher(
	cfg *config.Config,
	tasks project.Repository,
	tokens notification.TokenResolver,
	pusher notification.Pusher,
	ledger notification.Ledger,
	m *metrics.Metrics,
	log *zap.Logger,
) (*notification.Dispatcher, error) {
	loc, err := cfg.Scheduler.Location()
	if err != nil {
		return nil, err
	}
	return notification.NewDispatcher(tasks, tokens, pusher, ledger, notification.DispatcherConfig{
		Concurrency:     cfg.Scheduler.Concurrency,
		DispatchTimeout: cfg.Scheduler.DispatchTimeout,
		Location:        loc,
	}, m, log), nil
}

// ProvideScheduler creates the daily reminder scheduler. It returns nil
// when the scheduler is disabled.
func ProvideScheduler(cfg *config.Config, dispatcher *notification.Dispatcher, log *zap.Logger) (*notification.Scheduler, error) {
	if !cfg.Scheduler.Enabled {
		return nil, nil
	}
	loc, err := cfg.Scheduler.Location()
	if err != nil {
		return nil, err
	}
	return notification.NewScheduler(cfg.Scheduler.Spec, loc, dispatcher, log)
}

// ===== Application =====

// AppSet provides every application dependency.
var AppSet = wire.NewSet(
	InfraSet,
	IdentitySet,
	CollaborationSet,
	ProjectSet,
	NotificationSet,
	wire.Struct(new(Handlers), "*"),
	New,
)
