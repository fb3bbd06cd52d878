package swapcore

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kekpa/swap-frontend-sub003/backend"
	"github.com/kekpa/swap-frontend-sub003/devicetoken"
	"github.com/kekpa/swap-frontend-sub003/internal/audit"
	"github.com/kekpa/swap-frontend-sub003/internal/metrics"
	"github.com/kekpa/swap-frontend-sub003/securestore"
)

// Builder assembles a Core. Configure it during initialization, call
// Build once, then treat the Core as the single owner of auth state.
type Builder struct {
	config Config

	redis     redis.UniversalClient
	store     securestore.Store
	client    backend.Client
	biometric BiometricGateway
	cache     CacheInvalidator
	auditSink AuditSink
	logger    *zap.Logger
	clock     func() time.Time

	built bool
}

// New returns a Builder carrying the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the Redis client backing the secure store.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStore supplies an explicit secure store, overriding WithRedis.
func (b *Builder) WithStore(store securestore.Store) *Builder {
	b.store = store
	return b
}

// WithBackend supplies an explicit backend client. Without it, Build
// constructs an HTTP client from Config.Backend.
func (b *Builder) WithBackend(client backend.Client) *Builder {
	b.client = client
	return b
}

// WithBiometricGateway supplies the device biometric hardware bridge.
// Without it, biometric login and step-up prompts report unavailable.
func (b *Builder) WithBiometricGateway(gw BiometricGateway) *Builder {
	b.biometric = gw
	return b
}

// WithCacheInvalidator supplies the session-scoped cache clearer.
func (b *Builder) WithCacheInvalidator(c CacheInvalidator) *Builder {
	b.cache = c
	return b
}

// WithAuditSink supplies the audit event consumer.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger supplies the structured logger. Defaults to a nop logger.
func (b *Builder) WithLogger(log *zap.Logger) *Builder {
	b.logger = log
	return b
}

// WithClock overrides the time source. Test hook.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithMetricsEnabled toggles metric recording.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, wires every service and returns
// the Core. A Builder can build only once.
func (b *Builder) Build() (*Core, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store := b.store
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("secure store required: provide WithStore or WithRedis")
		}
		store = securestore.NewRedisStore(b.redis, cfg.Session.StorePrefix)
	}

	client := b.client
	if client == nil {
		httpClient, err := backend.NewHTTPClient(backend.HTTPConfig{
			BaseURL:        cfg.Backend.BaseURL,
			RequestTimeout: cfg.Backend.RequestTimeout,
			RetryBackoff:   cfg.Backend.RetryBackoff,
		})
		if err != nil {
			return nil, err
		}
		client = httpClient
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	var devTokens *devicetoken.Manager
	if len(cfg.DeviceToken.PrivateKey) > 0 {
		dm, err := devicetoken.NewManager(devicetoken.Config{
			TTL:        cfg.DeviceToken.TTL,
			PrivateKey: cfg.DeviceToken.PrivateKey,
			PublicKey:  cfg.DeviceToken.PublicKey,
			Issuer:     cfg.DeviceToken.Issuer,
		})
		if err != nil {
			return nil, err
		}
		devTokens = dm
	}

	deps := coreDeps{
		cfg:       cfg,
		store:     store,
		client:    client,
		biometric: b.biometric,
		cache:     b.cache,
		devTokens: devTokens,
		bus:       NewBus(),
		log:       logger,
		now:       clock,
		metrics: metrics.New(metrics.Config{
			Enabled:       cfg.Metrics.Enabled,
			EnableLatency: cfg.Metrics.EnableLatencyHistograms,
		}),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}

	deps.state = newAuthStateMachine(logger, deps.metrics, deps.bus, newSubscriptionID)
	deps.sessions = newSessionManager(deps)
	deps.wallet = newWalletSecurity(deps)

	core := &Core{
		config:   cfg,
		bus:      deps.bus,
		state:    deps.state,
		sessions: deps.sessions,
		login:    newLoginService(deps),
		accounts: newAccountSwitcher(deps),
		profiles: newProfileSwitchOrchestrator(deps),
		wallet:   deps.wallet,
		appLock:  newAppLockService(deps),
		loading:  newLoadingOrchestrator(deps.state.operationInFlight),
		audit:    deps.audit,
		metrics:  deps.metrics,
	}

	b.built = true
	return core, nil
}
