package distribution

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/distribution/caller"
	"github.com/xraph/distribution/entitlement"
	"github.com/xraph/distribution/event"
	"github.com/xraph/distribution/plugin"
	"github.com/xraph/distribution/store"
	"github.com/xraph/distribution/token"
	"github.com/xraph/distribution/types"
)

// TracerName is the instrumentation scope used for ledger spans.
const TracerName = "github.com/xraph/distribution"

// Ledger is the custodial reward-distribution engine.
type Ledger struct {
	store   store.Store
	token   token.Token
	plugins *plugin.Registry
	logger  *slog.Logger
	tracer  trace.Tracer
	policy  AccessPolicy

	administrator common.Address
	custody       common.Address

	// mu serialises read-validate-commit sections. It is never held across
	// a token transfer.
	mu sync.Mutex
	// inflight is custody already promised to transfers that have not
	// returned yet. Guarded by mu.
	inflight types.Amount
}

// New creates a Ledger. The caller carried by ctx becomes the
// administrator. WithCustody is required: it names the token account that
// holds the reserve and signs outgoing transfers.
func New(ctx context.Context, s store.Store, tok token.Token, opts ...Option) (*Ledger, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil store", ErrInvalidConfiguration)
	}
	if tok == nil {
		return nil, fmt.Errorf("%w: nil token", ErrInvalidConfiguration)
	}
	admin, ok := caller.From(ctx)
	if !ok {
		return nil, fmt.Errorf("%w: no constructing caller", ErrInvalidConfiguration)
	}

	l := &Ledger{
		store:         s,
		token:         tok,
		plugins:       plugin.NewRegistry(),
		logger:        slog.Default(),
		tracer:        otel.Tracer(TracerName),
		policy:        AdministratorOnly,
		administrator: admin,
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.custody == (common.Address{}) {
		return nil, fmt.Errorf("%w: custody address not set", ErrInvalidConfiguration)
	}
	if l.policy == nil {
		return nil, fmt.Errorf("%w: nil access policy", ErrInvalidConfiguration)
	}

	return l, nil
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPluginTimeout bounds each plugin call.
func WithPluginTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		l.plugins.WithTimeout(d)
	}
}

// WithCustody sets the token account that holds the reserve.
func WithCustody(addr common.Address) Option {
	return func(l *Ledger) {
		l.custody = addr
	}
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(l *Ledger) {
		l.tracer = t
	}
}

// WithAccessPolicy replaces the administrator-only access check.
func WithAccessPolicy(p AccessPolicy) Option {
	return func(l *Ledger) {
		l.policy = p
	}
}

// Start migrates the store, pins the administrator and initialises plugins.
func (l *Ledger) Start(ctx context.Context) error {
	// Migrate database
	if err := l.store.Migrate(ctx); err != nil {
		return err
	}

	stored, err := l.store.InitSettings(ctx, l.administrator)
	if err != nil {
		return fmt.Errorf("distribution: init settings: %w", err)
	}
	if stored != l.administrator {
		return fmt.Errorf("%w: store belongs to administrator %s", ErrInvalidConfiguration, stored.Hex())
	}

	// Initialize plugins
	l.plugins.EmitInit(ctx, l)

	l.logger.Info("distribution ledger started",
		"administrator", l.administrator.Hex(),
		"custody", l.custody.Hex(),
		"plugins", l.plugins.Count(),
	)

	return nil
}

// Stop shuts down the Ledger.
func (l *Ledger) Stop() error {
	ctx := context.Background()
	l.plugins.EmitShutdown(ctx)

	return l.store.Close()
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// Administrator returns the identity fixed at construction.
func (l *Ledger) Administrator() common.Address { return l.administrator }

// Custody returns the account holding the reserve.
func (l *Ledger) Custody() common.Address { return l.custody }

// Store returns the underlying store.
func (l *Ledger) Store() store.Store { return l.store }

// Plugins returns the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry { return l.plugins }

// EntitlementOf returns what beneficiary may currently claim.
func (l *Ledger) EntitlementOf(ctx context.Context, beneficiary common.Address) (types.Amount, error) {
	return l.store.GetEntitlement(ctx, beneficiary)
}

// BalanceOf is an alias of EntitlementOf.
func (l *Ledger) BalanceOf(ctx context.Context, beneficiary common.Address) (types.Amount, error) {
	return l.EntitlementOf(ctx, beneficiary)
}

// IsLocked reports whether claims are suspended.
func (l *Ledger) IsLocked(ctx context.Context) (bool, error) {
	return l.store.IsLocked(ctx)
}

// Reserve returns the live token balance held in custody.
func (l *Ledger) Reserve(ctx context.Context) (types.Amount, error) {
	return l.token.BalanceOf(ctx, l.custody)
}

// Outstanding returns the sum of all entitlements. It may exceed Reserve
// after an emergency withdrawal.
func (l *Ledger) Outstanding(ctx context.Context) (types.Amount, error) {
	list, err := l.store.ListEntitlements(ctx, entitlement.ListOpts{})
	if err != nil {
		return types.Zero, err
	}
	return entitlement.Total(list), nil
}

// Beneficiaries lists non-zero entitlements.
func (l *Ledger) Beneficiaries(ctx context.Context, opts entitlement.ListOpts) ([]*entitlement.Entitlement, error) {
	return l.store.ListEntitlements(ctx, opts)
}

// Events lists the event log.
func (l *Ledger) Events(ctx context.Context, opts event.ListOpts) ([]*event.Event, error) {
	return l.store.ListEvents(ctx, opts)
}

// ──────────────────────────────────────────────────
// Internals
// ──────────────────────────────────────────────────

// custodyCtx marks token calls as made by the custody account.
func (l *Ledger) custodyCtx(ctx context.Context) context.Context {
	return caller.With(ctx, l.custody)
}

// availableLocked returns the live reserve minus in-flight payouts.
// l.mu must be held.
func (l *Ledger) availableLocked(ctx context.Context) (types.Amount, error) {
	bal, err := l.token.BalanceOf(ctx, l.custody)
	if err != nil {
		return types.Zero, fmt.Errorf("distribution: read reserve: %w", err)
	}
	return bal.SaturatingSub(l.inflight), nil
}

// publish emits committed events to plugins.
func (l *Ledger) publish(ctx context.Context, events []*event.Event) {
	for _, e := range events {
		l.plugins.EmitEvent(ctx, e)
	}
}

// fail records a rejected command and returns err unchanged.
func (l *Ledger) fail(ctx context.Context, span trace.Span, op Operation, who common.Address, err error) error {
	recordError(span, err)
	l.logger.Debug("distribution operation rejected",
		"operation", string(op),
		"caller", who.Hex(),
		"error", err,
	)
	l.plugins.EmitOperationFailed(ctx, string(op), who, err)
	return err
}
