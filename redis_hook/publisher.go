// Package redishook publishes committed ledger events to a Redis stream.
//
// Each event becomes one stream entry with a JSON payload. Consumers read
// the stream with XREAD or consumer groups; entries carry the event id so
// redelivery can be deduplicated.
package redishook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/xraph/distribution/event"
	"github.com/xraph/distribution/plugin"
)

// DefaultStream is the stream key used when none is configured.
const DefaultStream = "distribution:events"

// Compile-time interface checks.
var (
	_ plugin.Plugin                      = (*Publisher)(nil)
	_ plugin.OnBeneficiaryBalanceChanged = (*Publisher)(nil)
	_ plugin.OnLockRewards               = (*Publisher)(nil)
	_ plugin.OnDeposit                   = (*Publisher)(nil)
	_ plugin.OnEmergencyWithdraw         = (*Publisher)(nil)
	_ plugin.OnClaim                     = (*Publisher)(nil)
	_ plugin.OnShutdown                  = (*Publisher)(nil)
)

// StreamClient is the subset of *redis.Client the publisher uses.
type StreamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// Publisher appends ledger events to a Redis stream.
type Publisher struct {
	rdb    StreamClient
	stream string
	maxLen int64
	logger *slog.Logger
	closer func() error
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithStream sets the stream key.
func WithStream(key string) Option {
	return func(p *Publisher) {
		if key != "" {
			p.stream = key
		}
	}
}

// WithMaxLen caps the stream at roughly n entries. Zero keeps everything.
func WithMaxLen(n int64) Option {
	return func(p *Publisher) { p.maxLen = n }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// WithCloseOnShutdown closes the client when the ledger stops.
func WithCloseOnShutdown(c interface{ Close() error }) Option {
	return func(p *Publisher) { p.closer = c.Close }
}

// New creates a Publisher writing through rdb.
func New(rdb StreamClient, opts ...Option) *Publisher {
	p := &Publisher{
		rdb:    rdb,
		stream: DefaultStream,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements plugin.Plugin.
func (p *Publisher) Name() string { return "redis-hook" }

// Stream returns the stream key.
func (p *Publisher) Stream() string { return p.stream }

// OnBeneficiaryBalanceChanged implements plugin.OnBeneficiaryBalanceChanged.
func (p *Publisher) OnBeneficiaryBalanceChanged(ctx context.Context, e *event.Event) error {
	return p.publish(ctx, e)
}

// OnLockRewards implements plugin.OnLockRewards.
func (p *Publisher) OnLockRewards(ctx context.Context, e *event.Event) error {
	return p.publish(ctx, e)
}

// OnDeposit implements plugin.OnDeposit.
func (p *Publisher) OnDeposit(ctx context.Context, e *event.Event) error {
	return p.publish(ctx, e)
}

// OnEmergencyWithdraw implements plugin.OnEmergencyWithdraw.
func (p *Publisher) OnEmergencyWithdraw(ctx context.Context, e *event.Event) error {
	return p.publish(ctx, e)
}

// OnClaim implements plugin.OnClaim.
func (p *Publisher) OnClaim(ctx context.Context, e *event.Event) error {
	return p.publish(ctx, e)
}

// OnShutdown implements plugin.OnShutdown.
func (p *Publisher) OnShutdown(_ context.Context) error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}

func (p *Publisher) publish(ctx context.Context, e *event.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("redis_hook: encode event: %w", err)
	}

	values := map[string]any{
		"id":           e.ID.String(),
		"kind":         string(e.Kind),
		"operation_id": e.OperationID.String(),
		"payload":      string(payload),
	}
	if e.Account != (common.Address{}) {
		values["account"] = e.Account.Hex()
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	entry, err := p.rdb.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("redis_hook: xadd %s: %w", p.stream, err)
	}
	p.logger.Debug("redis_hook: event published",
		"stream", p.stream,
		"entry", entry,
		"kind", string(e.Kind),
	)
	return nil
}
