package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/distribution"
	"github.com/xraph/distribution/entitlement"
	"github.com/xraph/distribution/event"
	diststore "github.com/xraph/distribution/store"
	"github.com/xraph/distribution/types"
)

// compile-time interface check
var _ diststore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("distribution/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("distribution/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Entitlement Store ====================

func (s *Store) GetEntitlement(ctx context.Context, beneficiary common.Address) (types.Amount, error) {
	m := new(entitlementModel)
	err := s.sdb.NewSelect(m).
		Where("beneficiary = ?", addressKey(beneficiary)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return types.Zero, nil
		}
		return types.Zero, err
	}
	return types.ParseAmount(m.Amount)
}

func (s *Store) ListEntitlements(ctx context.Context, opts entitlement.ListOpts) ([]*entitlement.Entitlement, error) {
	var models []entitlementModel
	q := s.sdb.NewSelect(&models).Where("amount <> ?", "0")

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("beneficiary ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*entitlement.Entitlement, len(models))
	for i := range models {
		e, err := fromEntitlementModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

// ==================== Event Store ====================

func (s *Store) ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Event, error) {
	var models []eventModel
	q := s.sdb.NewSelect(&models)

	if opts.Kind != "" {
		q = q.Where("kind = ?", string(opts.Kind))
	}
	if opts.Account != (common.Address{}) {
		q = q.Where("account = ?", addressKey(opts.Account))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("seq ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*event.Event, len(models))
	for i := range models {
		e, err := fromEventModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

// ==================== Settings Store ====================

func (s *Store) InitSettings(ctx context.Context, admin common.Address) (common.Address, error) {
	_, err := s.sdb.NewRaw(`
INSERT INTO distribution_settings (id, administrator, locked, updated_at)
VALUES (?, ?, 0, ?)
ON CONFLICT (id) DO UPDATE
SET administrator = excluded.administrator, updated_at = excluded.updated_at
WHERE distribution_settings.administrator = ''`,
		settingsID, addressKey(admin), now(),
	).Exec(ctx)
	if err != nil {
		return common.Address{}, err
	}

	m, err := s.settings(ctx)
	if err != nil {
		return common.Address{}, err
	}
	return common.HexToAddress(m.Administrator), nil
}

func (s *Store) IsLocked(ctx context.Context) (bool, error) {
	m, err := s.settings(ctx)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, err
	}
	return m.Locked, nil
}

func (s *Store) settings(ctx context.Context) (*settingsModel, error) {
	m := new(settingsModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", settingsID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ==================== Mutations ====================

// Apply commits m in one transaction. SQLite serialises writers, so the
// expected values are checked inside the same transaction that writes.
func (s *Store) Apply(ctx context.Context, m *diststore.Mutation) (err error) {
	if m.Empty() {
		return nil
	}

	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback() //nolint:errcheck // original error wins
		}
	}()

	ts := now()

	scratch := make(map[common.Address]types.Amount, len(m.Changes))
	order := make([]common.Address, 0, len(m.Changes))
	for i, c := range m.Changes {
		current, seen := scratch[c.Beneficiary]
		if !seen {
			current, err = currentEntitlement(ctx, tx, c.Beneficiary)
			if err != nil {
				return err
			}
			order = append(order, c.Beneficiary)
		}
		if !current.Equal(c.Before) {
			return fmt.Errorf("distribution/sqlite: change %d for %s: have %s, expected %s: %w",
				i, c.Beneficiary.Hex(), current, c.Before, distribution.ErrConflict)
		}
		scratch[c.Beneficiary] = c.After
	}

	for _, b := range order {
		_, err = tx.NewInsert(&entitlementModel{
			Beneficiary: addressKey(b),
			Amount:      scratch[b].String(),
			CreatedAt:   ts,
			UpdatedAt:   ts,
		}).
			OnConflict("(beneficiary) DO UPDATE").
			Set("amount = excluded.amount").
			Set("updated_at = excluded.updated_at").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	if m.Locked != nil {
		_, err = tx.NewInsert(&settingsModel{ID: settingsID, Locked: *m.Locked, UpdatedAt: ts}).
			OnConflict("(id) DO UPDATE").
			Set("locked = excluded.locked").
			Set("updated_at = excluded.updated_at").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	for _, e := range m.Events {
		if _, err = tx.NewInsert(toEventModel(e)).Exec(ctx); err != nil {
			return err
		}
	}

	err = tx.Commit()
	return err
}

func currentEntitlement(ctx context.Context, tx *sqlitedriver.SqliteTx, beneficiary common.Address) (types.Amount, error) {
	m := new(entitlementModel)
	err := tx.NewSelect(m).
		Where("beneficiary = ?", addressKey(beneficiary)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return types.Zero, nil
		}
		return types.Zero, err
	}
	return types.ParseAmount(m.Amount)
}

// ==================== Helpers ====================

func now() time.Time {
	return time.Now().UTC()
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, grove.ErrNoRows)
}
