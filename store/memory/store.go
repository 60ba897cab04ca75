// Package memory provides an in-memory store for tests and single-process
// deployments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/distribution"
	"github.com/xraph/distribution/entitlement"
	"github.com/xraph/distribution/event"
	"github.com/xraph/distribution/store"
	"github.com/xraph/distribution/types"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	// Entitlement storage
	entitlements map[common.Address]*entitlement.Entitlement

	// Event log, in recording order
	events []*event.Event

	// Settings
	administrator common.Address
	locked        bool

	closed bool
}

func New() *Store {
	return &Store{
		entitlements: make(map[common.Address]*entitlement.Entitlement),
		events:       make([]*event.Event, 0),
	}
}

// Entitlement Store implementation
func (s *Store) GetEntitlement(_ context.Context, beneficiary common.Address) (types.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.entitlements[beneficiary]; ok {
		return e.Amount, nil
	}
	return types.Zero, nil
}

func (s *Store) ListEntitlements(_ context.Context, opts entitlement.ListOpts) ([]*entitlement.Entitlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*entitlement.Entitlement, 0, len(s.entitlements))
	for _, e := range s.entitlements {
		if e.Amount.IsZero() {
			continue
		}
		cp := *e
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Beneficiary.Cmp(result[j].Beneficiary) < 0
	})

	return page(result, opts.Offset, opts.Limit), nil
}

// Event Store implementation
func (s *Store) ListEvents(_ context.Context, opts event.ListOpts) ([]*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*event.Event, 0)
	for _, e := range s.events {
		if opts.Matches(e) {
			cp := *e
			result = append(result, &cp)
		}
	}
	return page(result, opts.Offset, opts.Limit), nil
}

// Settings implementation
func (s *Store) InitSettings(_ context.Context, admin common.Address) (common.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.administrator == (common.Address{}) {
		s.administrator = admin
	}
	return s.administrator, nil
}

func (s *Store) IsLocked(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locked, nil
}

// Apply validates every change against a scratch copy of the touched
// entitlements and only then writes, so a failed mutation leaves no trace.
func (s *Store) Apply(_ context.Context, m *store.Mutation) error {
	if m.Empty() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("distribution/memory: %w", distribution.ErrStoreClosed)
	}

	scratch := make(map[common.Address]types.Amount, len(m.Changes))
	for i, c := range m.Changes {
		current, ok := scratch[c.Beneficiary]
		if !ok {
			if e, exists := s.entitlements[c.Beneficiary]; exists {
				current = e.Amount
			}
		}
		if !current.Equal(c.Before) {
			return fmt.Errorf("distribution/memory: change %d for %s: have %s, expected %s: %w",
				i, c.Beneficiary.Hex(), current, c.Before, distribution.ErrConflict)
		}
		scratch[c.Beneficiary] = c.After
	}

	now := time.Now().UTC()
	for _, c := range m.Changes {
		e, ok := s.entitlements[c.Beneficiary]
		if !ok {
			e = &entitlement.Entitlement{Entity: types.NewEntity(), Beneficiary: c.Beneficiary}
			s.entitlements[c.Beneficiary] = e
		}
		e.Amount = c.After
		e.UpdatedAt = now
	}
	if m.Locked != nil {
		s.locked = *m.Locked
	}
	s.events = append(s.events, m.Events...)
	return nil
}

// Core methods
func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return distribution.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func page[T any](items []T, offset, limit int) []T {
	start := offset
	if start > len(items) {
		start = len(items)
	}
	end := len(items)
	if limit > 0 && limit < end-start {
		end = start + limit
	}
	return items[start:end]
}
