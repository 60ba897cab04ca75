package extension

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/distribution"
	"github.com/xraph/distribution/api"
	"github.com/xraph/distribution/plugin"
	"github.com/xraph/distribution/store"
	"github.com/xraph/distribution/token"
)

// Option configures the distribution Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithToken sets the token the ledger settles against. Without it the
// extension resolves a token.Token from the container.
func WithToken(t token.Token) Option {
	return func(e *Extension) {
		e.token = t
	}
}

// WithVerifier sets the bearer token verifier used by the HTTP handler.
func WithVerifier(v api.Verifier) Option {
	return func(e *Extension) {
		e.verifier = v
	}
}

// WithLedgerOption passes a distribution.Option through to the ledger.
func WithLedgerOption(opt distribution.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, distribution.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithAdministrator sets the ledger administrator.
func WithAdministrator(addr common.Address) Option {
	return func(e *Extension) { e.config.Administrator = addr.Hex() }
}

// WithCustody sets the token account holding the reserve.
func WithCustody(addr common.Address) Option {
	return func(e *Extension) { e.config.Custody = addr.Hex() }
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.PluginTimeout = d }
}

// WithJWTSecret sets the secret for API bearer tokens.
func WithJWTSecret(secret string) Option {
	return func(e *Extension) { e.config.JWTSecret = secret }
}

// WithDisableRoutes prevents HTTP handler registration.
func WithDisableRoutes() Option {
	return func(e *Extension) { e.config.DisableRoutes = true }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithBasePath sets the URL prefix for distribution routes.
func WithBasePath(path string) Option {
	return func(e *Extension) { e.config.BasePath = path }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithGroveDatabase sets the name of the grove.DB to resolve from the DI container.
// The extension will auto-construct the appropriate store backend (postgres/sqlite/mongo)
// based on the grove driver type. Pass an empty string to use the default (unnamed) grove.DB.
func WithGroveDatabase(name string) Option {
	return func(e *Extension) {
		e.config.GroveDatabase = name
		e.useGrove = true
	}
}
