// Package storage persists the application's collections. The contract
// is deliberately collection-oriented: callers read and replace whole
// typed lists, mirroring how the ledger services work on a full
// snapshot. There is no cross-process locking; the last writer wins.
package storage

import (
	"context"

	"github.com/Guilherme-Ramos-Nepomuceno/Dominio/internal/core"
)

// Store is the persistence contract the ledger services consume.
// Settings is a singleton record; callers merge partial updates before
// writing it back.
type Store interface {
	Entries(ctx context.Context) ([]core.Entry, error)
	SetEntries(ctx context.Context, entries []core.Entry) error

	Categories(ctx context.Context) ([]core.Category, error)
	SetCategories(ctx context.Context, categories []core.Category) error

	Cards(ctx context.Context) ([]core.Card, error)
	SetCards(ctx context.Context, cards []core.Card) error

	Goals(ctx context.Context) ([]core.Goal, error)
	SetGoals(ctx context.Context, goals []core.Goal) error

	SavingsGoals(ctx context.Context) ([]core.SavingsGoal, error)
	SetSavingsGoals(ctx context.Context, goals []core.SavingsGoal) error

	Settings(ctx context.Context) (core.Settings, error)
	SetSettings(ctx context.Context, settings core.Settings) error
}

// DefaultCategories seeds a fresh store. The reserved transfer and
// savings categories must always exist because the savings coordinator
// and the transfer operation reference them by ID.
func DefaultCategories() []core.Category {
	return []core.Category{
		{ID: "salary", Name: "Salário", Color: "#4ade80", Kind: core.Income, Icon: "Money"},
		{ID: "freelance", Name: "Freelance", Color: "#34d399", Kind: core.Income, Icon: "Briefcase"},
		{ID: core.CategoryTransferIncome, Name: "Transferência", Color: "#3b82f6", Kind: core.Income, Icon: "HandArrowDown"},
		{ID: core.CategoryTransferExpense, Name: "Transferência", Color: "#3b82f6", Kind: core.Expense, Icon: "HandArrowUp"},
		{ID: core.CategorySavingsDeposit, Name: "Investimento", Color: "#8b5cf6", Kind: core.Expense, Icon: "PiggyBank"},
		{ID: "food", Name: "Alimentação", Color: "#f87171", Kind: core.Expense, Icon: "ForkKnife"},
		{ID: "transport", Name: "Transporte", Color: "#fb923c", Kind: core.Expense, Icon: "Car"},
		{ID: "housing", Name: "Moradia", Color: "#ef4444", Kind: core.Expense, Icon: "House"},
		{ID: "leisure", Name: "Lazer", Color: "#a78bfa", Kind: core.Expense, Icon: "GameController"},
	}
}
