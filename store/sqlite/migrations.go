package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the distribution store (SQLite).
var Migrations = migrate.NewGroup("distribution")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_distribution_settings",
			Version: "20250301000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS distribution_settings (
    id            INTEGER PRIMARY KEY CHECK (id = 1),
    administrator TEXT NOT NULL DEFAULT '',
    locked        BOOLEAN NOT NULL DEFAULT 0,
    updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS distribution_settings`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_distribution_entitlements",
			Version: "20250301000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS distribution_entitlements (
    beneficiary TEXT PRIMARY KEY,
    amount      TEXT NOT NULL DEFAULT '0',
    created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_distribution_entitlements_nonzero ON distribution_entitlements (beneficiary) WHERE amount <> '0';
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS distribution_entitlements`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_distribution_events",
			Version: "20250301000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS distribution_events (
    seq            INTEGER PRIMARY KEY AUTOINCREMENT,
    id             TEXT NOT NULL UNIQUE,
    kind           TEXT NOT NULL,
    operation_id   TEXT NOT NULL DEFAULT '',
    account        TEXT NOT NULL DEFAULT '',
    balance_before TEXT NOT NULL DEFAULT '0',
    balance_after  TEXT NOT NULL DEFAULT '0',
    amount         TEXT NOT NULL DEFAULT '0',
    locked         BOOLEAN NOT NULL DEFAULT 0,
    created_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_distribution_events_kind ON distribution_events (kind, seq);
CREATE INDEX IF NOT EXISTS idx_distribution_events_account ON distribution_events (account, seq);
CREATE INDEX IF NOT EXISTS idx_distribution_events_operation ON distribution_events (operation_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS distribution_events`)
				return err
			},
		},
	)
}
