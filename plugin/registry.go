package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/distribution/event"
)

// DefaultTimeout bounds a single plugin call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit                      []OnInit
	onShutdown                  []OnShutdown
	onBeneficiaryBalanceChanged []OnBeneficiaryBalanceChanged
	onLockRewards               []OnLockRewards
	onDeposit                   []OnDeposit
	onEmergencyWithdraw         []OnEmergencyWithdraw
	onClaim                     []OnClaim
	onOperationFailed           []OnOperationFailed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-call plugin timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnBeneficiaryBalanceChanged); ok {
		r.onBeneficiaryBalanceChanged = append(r.onBeneficiaryBalanceChanged, v)
	}
	if v, ok := p.(OnLockRewards); ok {
		r.onLockRewards = append(r.onLockRewards, v)
	}
	if v, ok := p.(OnDeposit); ok {
		r.onDeposit = append(r.onDeposit, v)
	}
	if v, ok := p.(OnEmergencyWithdraw); ok {
		r.onEmergencyWithdraw = append(r.onEmergencyWithdraw, v)
	}
	if v, ok := p.(OnClaim); ok {
		r.onClaim = append(r.onClaim, v)
	}
	if v, ok := p.(OnOperationFailed); ok {
		r.onOperationFailed = append(r.onOperationFailed, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnBeneficiaryBalanceChanged)(nil)).Elem(), "OnBeneficiaryBalanceChanged")
	checkInterface(reflect.TypeOf((*OnLockRewards)(nil)).Elem(), "OnLockRewards")
	checkInterface(reflect.TypeOf((*OnDeposit)(nil)).Elem(), "OnDeposit")
	checkInterface(reflect.TypeOf((*OnEmergencyWithdraw)(nil)).Elem(), "OnEmergencyWithdraw")
	checkInterface(reflect.TypeOf((*OnClaim)(nil)).Elem(), "OnClaim")
	checkInterface(reflect.TypeOf((*OnOperationFailed)(nil)).Elem(), "OnOperationFailed")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, ledger interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, ledger)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitEvent dispatches a committed ledger event to the hook matching its kind.
func (r *Registry) EmitEvent(ctx context.Context, e *event.Event) {
	switch e.Kind {
	case event.KindBalanceChanged:
		r.mu.RLock()
		plugins := r.onBeneficiaryBalanceChanged
		r.mu.RUnlock()
		for _, p := range plugins {
			r.dispatch(ctx, p.Name(), "OnBeneficiaryBalanceChanged", func() error {
				return p.OnBeneficiaryBalanceChanged(ctx, e)
			})
		}
	case event.KindLockRewards:
		r.mu.RLock()
		plugins := r.onLockRewards
		r.mu.RUnlock()
		for _, p := range plugins {
			r.dispatch(ctx, p.Name(), "OnLockRewards", func() error {
				return p.OnLockRewards(ctx, e)
			})
		}
	case event.KindDeposit:
		r.mu.RLock()
		plugins := r.onDeposit
		r.mu.RUnlock()
		for _, p := range plugins {
			r.dispatch(ctx, p.Name(), "OnDeposit", func() error {
				return p.OnDeposit(ctx, e)
			})
		}
	case event.KindEmergencyWithdraw:
		r.mu.RLock()
		plugins := r.onEmergencyWithdraw
		r.mu.RUnlock()
		for _, p := range plugins {
			r.dispatch(ctx, p.Name(), "OnEmergencyWithdraw", func() error {
				return p.OnEmergencyWithdraw(ctx, e)
			})
		}
	case event.KindClaim:
		r.mu.RLock()
		plugins := r.onClaim
		r.mu.RUnlock()
		for _, p := range plugins {
			r.dispatch(ctx, p.Name(), "OnClaim", func() error {
				return p.OnClaim(ctx, e)
			})
		}
	default:
		r.logger.Warn("plugin: unknown event kind", "kind", string(e.Kind))
	}
}

// EmitOperationFailed emits a failed command.
func (r *Registry) EmitOperationFailed(ctx context.Context, op string, caller common.Address, opErr error) {
	r.mu.RLock()
	plugins := r.onOperationFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnOperationFailed", func() error {
			return p.OnOperationFailed(ctx, op, caller, opErr)
		})
	}
}

func (r *Registry) dispatch(ctx context.Context, name, hook string, fn func() error) {
	if err := r.callWithTimeout(ctx, name, fn); err != nil {
		r.logger.Warn("plugin "+hook+" failed",
			"plugin", name,
			"error", err,
		)
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block settlement.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(r.timeout):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
