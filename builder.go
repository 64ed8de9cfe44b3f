package tokenauth

import (
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/tokenauth/identity"
	internalaudit "github.com/MrEthical07/tokenauth/internal/audit"
	"github.com/MrEthical07/tokenauth/internal/flows"
	"github.com/MrEthical07/tokenauth/jwt"
	"github.com/MrEthical07/tokenauth/store"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. A Builder can be built once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	identities identity.Store
	auditSink  AuditSink
	logger     *slog.Logger
	now        func() time.Time

	built bool
}

// New describes the new operation and its observable behavior.
//
// New starts from DefaultConfig. The signing secret and a Redis client must be
// supplied before Build.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig stores a deep copy of cfg; later changes to the caller's value have no effect.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the refresh and revocation stores.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithIdentityStore sets identity persistence. Defaults to an in-memory store.
func (b *Builder) WithIdentityStore(s identity.Store) *Builder {
	b.identities = s
	return b
}

// WithAuditSink sets the audit destination. A non-nil sink enables auditing
// regardless of Config.Audit.Enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source used for token issue and expiry checks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build validates the configuration, constructs the token codec and stores,
// and starts the audit dispatcher when auditing is enabled. Build returns an
// error when called twice, when no Redis client was provided, or when the
// configuration is invalid.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	manager, err := jwt.NewManager(jwt.Config{
		Secret:     cfg.JWT.Secret,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
		Issuer:     cfg.JWT.Issuer,
		Leeway:     cfg.JWT.Leeway,
		Now:        now,
	})
	if err != nil {
		return nil, err
	}

	identities := b.identities
	if identities == nil {
		identities = identity.NewMemoryStore()
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		config:       cfg,
		jwtManager:   manager,
		refreshStore: store.NewRefreshStore(b.redis, cfg.Store.RefreshPrefix, cfg.JWT.RefreshTTL),
		revocations:  store.NewRevocationStore(b.redis, cfg.Store.BlacklistPrefix),
		resolver:     identity.NewResolver(identities, now),
		metrics:      NewMetrics(cfg.Metrics),
		logger:       logger,
	}

	if cfg.Audit.Enabled || b.auditSink != nil {
		e.audit = internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    true,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink)
	}

	e.initFlowDeps()
	b.built = true
	return e, nil
}

func (e *Engine) initFlowDeps() {
	mint := flows.MintDeps{
		CreateAccess:  e.jwtManager.CreateAccess,
		CreateRefresh: e.jwtManager.CreateRefresh,
	}

	e.flows = flows.New(flows.Deps{
		Login: flows.LoginDeps{
			Normalize:    identity.Normalize,
			Resolve:      e.resolver.Resolve,
			Mint:         mint,
			RefreshStore: e.refreshStore,
		},
		Authenticate: flows.AuthenticateDeps{
			Parse:       e.jwtManager.Parse,
			Revocations: e.revocations,
		},
		Reissue: flows.ReissueDeps{
			Parse:          e.jwtManager.Parse,
			FindIdentity:   e.resolver.Find,
			Mint:           mint,
			RefreshStore:   e.refreshStore,
			CompareAndSwap: e.config.Store.CompareAndSwapRotation,
		},
		Logout: flows.LogoutDeps{
			Parse:        e.jwtManager.Parse,
			Remaining:    e.jwtManager.Remaining,
			RefreshStore: e.refreshStore,
			Revocations:  e.revocations,
		},
	})
}
