package extension

import "time"

// Config holds the distribution extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.distribution" or
// "distribution" keys).
type Config struct {
	// DisableRoutes prevents the HTTP handler from being built and
	// registered in the container.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for distribution routes (default: "/distribution").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// Administrator is the hex address that owns the ledger.
	Administrator string `json:"administrator" mapstructure:"administrator" yaml:"administrator"`

	// Custody is the hex address of the token account holding the reserve.
	Custody string `json:"custody" mapstructure:"custody" yaml:"custody"`

	// PluginTimeout bounds each plugin hook call (default: 5s).
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`

	// JWTSecret signs and verifies API bearer tokens. Required unless routes
	// are disabled or a verifier is supplied with WithVerifier.
	JWTSecret string `json:"jwt_secret" mapstructure:"jwt_secret" yaml:"jwt_secret"`

	// JWTIssuer is the expected token issuer (default: "distribution").
	JWTIssuer string `json:"jwt_issuer" mapstructure:"jwt_issuer" yaml:"jwt_issuer"`

	// GroveDatabase is the name of a grove.DB registered in the DI container.
	// When set, the extension resolves this named database and auto-constructs
	// the appropriate store based on the driver type (pg/sqlite/mongo).
	// When empty and WithGroveDatabase was called, the default (unnamed) DB is used.
	GroveDatabase string `json:"grove_database" mapstructure:"grove_database" yaml:"grove_database"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BasePath:      "/distribution",
		PluginTimeout: 5 * time.Second,
		JWTIssuer:     "distribution",
	}
}
