// Package services implements the ledger engine: entry generation
// (installments, recurrences), the payment status state machine, the
// aggregation queries the dashboards are built from, and the savings
// transfer coordinator. Everything operates on a fresh snapshot of the
// stored collections; nothing is cached between calls.
package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Guilherme-Ramos-Nepomuceno/Dominio/internal/core"
	"github.com/Guilherme-Ramos-Nepomuceno/Dominio/internal/storage"
)

// Snapshot is a point-in-time view of every collection. Aggregations
// are pure functions of one snapshot; callers re-load after a mutation
// to observe consistent results.
type Snapshot struct {
	Entries      []core.Entry
	Categories   []core.Category
	Cards        []core.Card
	Goals        []core.Goal
	SavingsGoals []core.SavingsGoal
	Settings     core.Settings
}

// LoadSnapshot fetches all collections. The reads are independent, so
// they run concurrently; the snapshot itself is immutable afterwards.
func LoadSnapshot(ctx context.Context, store storage.Store) (*Snapshot, error) {
	var snap Snapshot
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		snap.Entries, err = store.Entries(ctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Categories, err = store.Categories(ctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Cards, err = store.Cards(ctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Goals, err = store.Goals(ctx)
		return err
	})
	g.Go(func() (err error) {
		snap.SavingsGoals, err = store.SavingsGoals(ctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Settings, err = store.Settings(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return &snap, nil
}

// CategoryByID resolves a category reference; ok is false for dangling
// IDs, which callers must treat as "unknown" rather than an error.
func (s *Snapshot) CategoryByID(id string) (core.Category, bool) {
	for _, c := range s.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return core.Category{}, false
}

// CardByID resolves a card reference; dangling IDs are tolerated the
// same way as categories.
func (s *Snapshot) CardByID(id string) (core.Card, bool) {
	for _, c := range s.Cards {
		if c.ID == id {
			return c, true
		}
	}
	return core.Card{}, false
}

// SavingsGoalByID resolves a savings goal reference.
func (s *Snapshot) SavingsGoalByID(id string) (core.SavingsGoal, bool) {
	for _, g := range s.SavingsGoals {
		if g.ID == id {
			return g, true
		}
	}
	return core.SavingsGoal{}, false
}
