// Package extension provides the Forge extension adapter for the
// distribution ledger.
//
// It implements the forge.Extension interface to integrate the ledger
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.distribution" or
// "distribution" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/distribution"
	"github.com/xraph/distribution/api"
	"github.com/xraph/distribution/caller"
	"github.com/xraph/distribution/internal/storeopen"
	"github.com/xraph/distribution/store"
	"github.com/xraph/distribution/store/memory"
	"github.com/xraph/distribution/token"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "distribution"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Custodial reward-distribution ledger"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the distribution ledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *distribution.Ledger
	handler    *api.Handler
	store      store.Store
	token      token.Token
	verifier   api.Verifier
	ledgerOpts []distribution.Option
	useGrove   bool
}

// New creates a new distribution Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying ledger.
// This is nil until Register is called.
func (e *Extension) Engine() *distribution.Ledger { return e.engine }

// Handler returns the HTTP handler, or nil when routes are disabled.
// Mount it with Handler().Register on a router group at BasePath.
func (e *Extension) Handler() *api.Handler { return e.handler }

// BasePath returns the configured URL prefix for distribution routes.
func (e *Extension) BasePath() string { return e.config.BasePath }

// Register implements [forge.Extension]. It loads configuration,
// builds the ledger, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if err := e.resolveStore(fapp.Container()); err != nil {
		return err
	}
	if err := e.resolveToken(fapp.Container()); err != nil {
		return err
	}

	eng, err := e.buildLedger()
	if err != nil {
		return err
	}
	e.engine = eng

	if err := vessel.Provide(fapp.Container(), func() (*distribution.Ledger, error) {
		return e.engine, nil
	}); err != nil {
		return err
	}

	if e.config.DisableRoutes {
		return nil
	}

	if e.verifier == nil {
		signer, err := api.NewSigner([]byte(e.config.JWTSecret), e.config.JWTIssuer)
		if err != nil {
			return fmt.Errorf("distribution: %w", err)
		}
		e.verifier = signer
	}
	e.handler = api.New(e.engine, e.verifier)

	return vessel.Provide(fapp.Container(), func() (*api.Handler, error) {
		return e.handler, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("distribution: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("distribution: store not initialized")
	}
	return e.store.Ping(ctx)
}

// resolveStore picks the programmatic store, then the grove database, then
// an in-memory store.
func (e *Extension) resolveStore(c vessel.Vessel) error {
	if e.store != nil {
		return nil
	}
	if !e.useGrove && e.config.GroveDatabase == "" {
		e.store = memory.New()
		return nil
	}

	var (
		db  *grove.DB
		err error
	)
	if e.config.GroveDatabase != "" {
		db, err = vessel.InjectNamed[*grove.DB](c, e.config.GroveDatabase)
	} else {
		db, err = vessel.Inject[*grove.DB](c)
	}
	if err != nil {
		return fmt.Errorf("distribution: resolve grove database: %w", err)
	}

	s, err := storeopen.FromGrove(db)
	if err != nil {
		return fmt.Errorf("distribution: %w", err)
	}
	e.store = s

	e.Logger().Debug("distribution: using grove store",
		forge.F("database", e.config.GroveDatabase),
		forge.F("driver", db.Driver().Name()),
	)
	return nil
}

func (e *Extension) resolveToken(c vessel.Vessel) error {
	if e.token != nil {
		return nil
	}
	tok, err := vessel.Inject[token.Token](c)
	if err != nil {
		return fmt.Errorf("distribution: no token configured: %w", err)
	}
	e.token = tok
	return nil
}

// buildLedger constructs the ledger from the resolved config.
func (e *Extension) buildLedger() (*distribution.Ledger, error) {
	admin, err := parseAddress("administrator", e.config.Administrator)
	if err != nil {
		return nil, err
	}
	custody, err := parseAddress("custody", e.config.Custody)
	if err != nil {
		return nil, err
	}

	opts := make([]distribution.Option, 0, len(e.ledgerOpts)+2)
	opts = append(opts, distribution.WithCustody(custody))
	if e.config.PluginTimeout > 0 {
		opts = append(opts, distribution.WithPluginTimeout(e.config.PluginTimeout))
	}

	// Append any pass-through ledger options.
	opts = append(opts, e.ledgerOpts...)

	ctx := caller.With(context.Background(), admin)
	return distribution.New(ctx, e.store, e.token, opts...)
}

func parseAddress(field, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %s %q is not an address", distribution.ErrInvalidConfiguration, field, s)
	}
	addr := common.HexToAddress(s)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: %s is the zero address", distribution.ErrInvalidConfiguration, field)
	}
	return addr, nil
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("distribution: configuration is required but not found in config files; " +
				"ensure 'extensions.distribution' or 'distribution' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("distribution: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("base_path", e.config.BasePath),
		forge.F("administrator", e.config.Administrator),
		forge.F("custody", e.config.Custody),
		forge.F("plugin_timeout", e.config.PluginTimeout),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	for _, key := range []string{"extensions.distribution", "distribution"} {
		if !cm.IsSet(key) {
			continue
		}
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("distribution: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("distribution: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.BasePath == "" {
		cfg.BasePath = defaults.BasePath
	}
	if cfg.PluginTimeout == 0 {
		cfg.PluginTimeout = defaults.PluginTimeout
	}
	if cfg.JWTIssuer == "" {
		cfg.JWTIssuer = defaults.JWTIssuer
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	fill := func(dst *string, src string) {
		if *dst == "" && src != "" {
			*dst = src
		}
	}
	fill(&yamlConfig.BasePath, programmaticConfig.BasePath)
	fill(&yamlConfig.Administrator, programmaticConfig.Administrator)
	fill(&yamlConfig.Custody, programmaticConfig.Custody)
	fill(&yamlConfig.JWTSecret, programmaticConfig.JWTSecret)
	fill(&yamlConfig.JWTIssuer, programmaticConfig.JWTIssuer)
	fill(&yamlConfig.GroveDatabase, programmaticConfig.GroveDatabase)

	if yamlConfig.PluginTimeout == 0 && programmaticConfig.PluginTimeout != 0 {
		yamlConfig.PluginTimeout = programmaticConfig.PluginTimeout
	}

	// Fill remaining zeros with defaults.
	return mergeWithDefaults(yamlConfig)
}
