package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/distribution"
	"github.com/xraph/distribution/entitlement"
	"github.com/xraph/distribution/event"
	diststore "github.com/xraph/distribution/store"
	"github.com/xraph/distribution/types"
)

// Collection name constants.
const (
	colEntitlements = "distribution_entitlements"
	colEvents       = "distribution_events"
	colCounters     = "distribution_counters"
)

// eventSeqCounter is the counter document that numbers the event log.
const eventSeqCounter = "events"

// compile-time interface check
var _ diststore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM. Apply uses
// multi-document transactions and needs a replica set.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all distribution collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("distribution/mongo: migrate %s indexes: %w", col, err)
		}
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
	var m entitlementModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": addressKey(beneficiary)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return types.Zero, nil
		}
		return types.Zero, fmt.Errorf("distribution/mongo: get entitlement: %w", err)
	}
	return types.ParseAmount(m.Amount)
}

func (s *Store) ListEntitlements(ctx context.Context, opts entitlement.ListOpts) ([]*entitlement.Entitlement, error) {
	var models []entitlementModel
	q := s.mdb.NewFind(&models).
		Filter(bson.M{"amount": bson.M{"$ne": "0"}}).
		Sort(bson.D{{Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("distribution/mongo: list entitlements: %w", err)
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
	filter := bson.M{}
	if opts.Kind != "" {
		filter["kind"] = string(opts.Kind)
	}
	if opts.Account != (common.Address{}) {
		filter["account"] = addressKey(opts.Account)
	}

	var models []eventModel
	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "seq", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("distribution/mongo: list events: %w", err)
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
	key := addressKey(admin)

	_, err := s.mdb.NewUpdate(&settingsModel{}).
		Filter(bson.M{"_id": settingsID}).
		SetUpdate(bson.M{
			"$setOnInsert": bson.M{"administrator": key, "locked": false, "updated_at": now()},
		}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return common.Address{}, fmt.Errorf("distribution/mongo: init settings: %w", err)
	}

	// The document may predate the administrator if the lock was set first.
	_, err = s.mdb.NewUpdate(&settingsModel{}).
		Filter(bson.M{"_id": settingsID, "administrator": ""}).
		Set("administrator", key).
		Exec(ctx)
	if err != nil {
		return common.Address{}, fmt.Errorf("distribution/mongo: claim settings: %w", err)
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
		if isNoDocuments(err) {
			return false, nil
		}
		return false, err
	}
	return m.Locked, nil
}

func (s *Store) settings(ctx context.Context) (*settingsModel, error) {
	var m settingsModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": settingsID}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("distribution/mongo: get settings: %w", err)
	}
	return &m, nil
}

// ==================== Mutations ====================

// Apply commits m in a multi-document transaction. Concurrent writers to
// the same entitlement abort with a transient transaction error, reported
// as distribution.ErrConflict.
func (s *Store) Apply(ctx context.Context, m *diststore.Mutation) (err error) {
	if m.Empty() {
		return nil
	}

	raw, err := s.mdb.GroveTx(ctx, 0, false)
	if err != nil {
		return fmt.Errorf("distribution/mongo: begin: %w", err)
	}
	tx, ok := raw.(*mongodriver.MongoTx)
	if !ok {
		return fmt.Errorf("distribution/mongo: unexpected transaction type %T", raw)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback() //nolint:errcheck // original error wins
			err = translate(err)
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
			return fmt.Errorf("distribution/mongo: change %d for %s: have %s, expected %s: %w",
				i, c.Beneficiary.Hex(), current, c.Before, distribution.ErrConflict)
		}
		scratch[c.Beneficiary] = c.After
	}

	for _, b := range order {
		_, err = tx.NewUpdate(&entitlementModel{}).
			Filter(bson.M{"_id": addressKey(b)}).
			SetUpdate(bson.M{
				"$set":         bson.M{"amount": scratch[b].String(), "updated_at": ts},
				"$setOnInsert": bson.M{"created_at": ts},
			}).
			Upsert().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("distribution/mongo: write entitlement: %w", err)
		}
	}

	if m.Locked != nil {
		_, err = tx.NewUpdate(&settingsModel{}).
			Filter(bson.M{"_id": settingsID}).
			SetUpdate(bson.M{
				"$set":         bson.M{"locked": *m.Locked, "updated_at": ts},
				"$setOnInsert": bson.M{"administrator": ""},
			}).
			Upsert().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("distribution/mongo: write lock: %w", err)
		}
	}

	if len(m.Events) > 0 {
		last, err := s.reserveSeq(tx.SessionContext(ctx), int64(len(m.Events)))
		if err != nil {
			return err
		}
		first := last - int64(len(m.Events)) + 1
		for i, e := range m.Events {
			if _, err := tx.NewInsert(toEventModel(e, first+int64(i))).Exec(ctx); err != nil {
				return fmt.Errorf("distribution/mongo: insert event: %w", err)
			}
		}
	}

	err = tx.Commit()
	return err
}

func currentEntitlement(ctx context.Context, tx *mongodriver.MongoTx, beneficiary common.Address) (types.Amount, error) {
	var m entitlementModel
	err := tx.NewFind(&m).
		Filter(bson.M{"_id": addressKey(beneficiary)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return types.Zero, nil
		}
		return types.Zero, fmt.Errorf("distribution/mongo: read entitlement: %w", err)
	}
	return types.ParseAmount(m.Amount)
}

// reserveSeq advances the event counter by n and returns its new value.
func (s *Store) reserveSeq(ctx context.Context, n int64) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.mdb.Collection(colCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": eventSeqCounter},
		bson.M{"$inc": bson.M{"seq": n}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("distribution/mongo: reserve event sequence: %w", err)
	}
	return counter.Seq, nil
}

// ==================== Helpers ====================

func now() time.Time {
	return time.Now().UTC()
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// translate maps transient transaction failures to distribution.ErrConflict.
func translate(err error) error {
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorLabel("TransientTransactionError") {
		return fmt.Errorf("distribution/mongo: %w: %v", distribution.ErrConflict, err)
	}
	return err
}

// migrationIndexes returns the index definitions for all distribution collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colEntitlements: {
			{Keys: bson.D{{Key: "amount", Value: 1}}},
		},
		colEvents: {
			{
				Keys:    bson.D{{Key: "seq", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "seq", Value: 1}}},
			{Keys: bson.D{{Key: "account", Value: 1}, {Key: "seq", Value: 1}}},
			{Keys: bson.D{{Key: "operation_id", Value: 1}}},
		},
	}
}
