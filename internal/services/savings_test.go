package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Guilherme-Ramos-Nepomuceno/Dominio/internal/core"
	"github.com/Guilherme-Ramos-Nepomuceno/Dominio/internal/storage"
)

func newTestSavings(t *testing.T) (*Savings, *Ledger, *storage.Memory) {
	t.Helper()
	ledger, store := newTestLedger(t)
	savings := NewSavings(store, ledger, testLogger())
	savings.now = func() time.Time { return testNow }
	return savings, ledger, store
}

func seedGoal(t *testing.T, store *storage.Memory, goal core.SavingsGoal) {
	t.Helper()
	if err := store.SetSavingsGoals(context.Background(), []core.SavingsGoal{goal}); err != nil {
		t.Fatal(err)
	}
}

func storedGoal(t *testing.T, store *storage.Memory, id string) core.SavingsGoal {
	t.Helper()
	goals, err := store.SavingsGoals(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, g := range goals {
		if g.ID == id {
			return g
		}
	}
	t.Fatalf("savings goal %s not found", id)
	return core.SavingsGoal{}
}

func TestAddFundsWithCard(t *testing.T) {
	savings, _, store := newTestSavings(t)
	ctx := context.Background()
	if err := store.SetCards(ctx, []core.Card{
		{ID: "nubank", Name: "Nubank", Type: core.CardDebit},
	}); err != nil {
		t.Fatal(err)
	}
	seedGoal(t, store, core.SavingsGoal{
		ID: "viagem", Name: "Viagem", Target: core.Money{Cents: 500000}, CardID: "nubank",
	})

	if err := savings.AddFunds(ctx, "viagem", core.Money{Cents: 50000}, ""); err != nil {
		t.Fatalf("AddFunds: %v", err)
	}

	goal := storedGoal(t, store, "viagem")
	if goal.Current.Cents != 50000 {
		t.Errorf("goal current = %d, want 50000", goal.Current.Cents)
	}

	entries, err := store.Entries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d ledger entries, want the paired deposit", len(entries))
	}
	e := entries[0]
	if e.Kind != core.Expense || e.CategoryID != core.CategorySavingsDeposit {
		t.Errorf("paired entry kind=%s category=%s, want expense/%s", e.Kind, e.CategoryID, core.CategorySavingsDeposit)
	}
	if e.Status != core.StatusPaid {
		t.Errorf("paired entry status = %s, want paid", e.Status)
	}
	if e.CardID != "nubank" {
		t.Errorf("paired entry card = %q, want the goal's card", e.CardID)
	}
	if !strings.Contains(e.Description, "Viagem") {
		t.Errorf("paired entry description = %q, want the goal name in it", e.Description)
	}
}

func TestAddFundsTrackingOnly(t *testing.T) {
	savings, _, store := newTestSavings(t)
	ctx := context.Background()
	seedGoal(t, store, core.SavingsGoal{
		ID: "reserva", Name: "Reserva", Target: core.Money{Cents: 1000000},
	})

	if err := savings.AddFunds(ctx, "reserva", core.Money{Cents: 20000}, ""); err != nil {
		t.Fatalf("AddFunds: %v", err)
	}

	if got := storedGoal(t, store, "reserva").Current.Cents; got != 20000 {
		t.Errorf("goal current = %d, want 20000", got)
	}
	entries, err := store.Entries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("cardless deposit emitted %d ledger entries, want none", len(entries))
	}
}

func TestAddFundsRemembersExplicitCard(t *testing.T) {
	savings, _, store := newTestSavings(t)
	ctx := context.Background()
	if err := store.SetCards(ctx, []core.Card{
		{ID: "inter", Name: "Inter", Type: core.CardDebit},
	}); err != nil {
		t.Fatal(err)
	}
	seedGoal(t, store, core.SavingsGoal{
		ID: "carro", Name: "Carro", Target: core.Money{Cents: 3000000},
	})

	if err := savings.AddFunds(ctx, "carro", core.Money{Cents: 100000}, "inter"); err != nil {
		t.Fatalf("AddFunds: %v", err)
	}
	if got := storedGoal(t, store, "carro").CardID; got != "inter" {
		t.Errorf("goal card = %q, want the explicit card remembered", got)
	}
}

func TestAddFundsOverLimitLeavesGoalUntouched(t *testing.T) {
	savings, _, store := newTestSavings(t)
	ctx := context.Background()
	if err := store.SetCards(ctx, []core.Card{
		{ID: "visa", Name: "Visa", Type: core.CardCredit, Limit: core.Money{Cents: 10000}},
	}); err != nil {
		t.Fatal(err)
	}
	seedGoal(t, store, core.SavingsGoal{
		ID: "viagem", Name: "Viagem", Target: core.Money{Cents: 500000}, CardID: "visa",
	})

	err := savings.AddFunds(ctx, "viagem", core.Money{Cents: 20000}, "")
	if !errors.Is(err, core.ErrInsufficientLimit) {
		t.Fatalf("error = %v, want ErrInsufficientLimit", err)
	}

	// A rejected deposit commits nothing: no goal increase, no entry.
	if got := storedGoal(t, store, "viagem").Current.Cents; got != 0 {
		t.Errorf("goal current = %d after rejected deposit, want 0", got)
	}
	entries, err := store.Entries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("rejected deposit persisted %d entries", len(entries))
	}
}

func TestAddFundsUnknownCard(t *testing.T) {
	savings, _, store := newTestSavings(t)
	seedGoal(t, store, core.SavingsGoal{ID: "g", Name: "G", Target: core.Money{Cents: 1000}})

	err := savings.AddFunds(context.Background(), "g", core.Money{Cents: 100}, "nope")
	if !errors.Is(err, core.ErrUnknownCard) {
		t.Errorf("error = %v, want ErrUnknownCard", err)
	}
}

func TestRemoveFunds(t *testing.T) {
	savings, _, store := newTestSavings(t)
	ctx := context.Background()
	if err := store.SetCards(ctx, []core.Card{
		{ID: "nubank", Name: "Nubank", Type: core.CardDebit},
	}); err != nil {
		t.Fatal(err)
	}
	seedGoal(t, store, core.SavingsGoal{
		ID: "viagem", Name: "Viagem", Target: core.Money{Cents: 500000},
		Current: core.Money{Cents: 80000}, CardID: "nubank",
	})

	if err := savings.RemoveFunds(ctx, "viagem", core.Money{Cents: 30000}, ""); err != nil {
		t.Fatalf("RemoveFunds: %v", err)
	}

	if got := storedGoal(t, store, "viagem").Current.Cents; got != 50000 {
		t.Errorf("goal current = %d, want 50000", got)
	}

	entries, err := store.Entries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d ledger entries, want the paired withdrawal", len(entries))
	}
	e := entries[0]
	if e.Kind != core.Income || e.CategoryID != core.CategoryTransferIncome {
		t.Errorf("paired entry kind=%s category=%s, want income/%s", e.Kind, e.CategoryID, core.CategoryTransferIncome)
	}
	if e.Status != core.StatusPaid {
		t.Errorf("paired entry status = %s, want paid", e.Status)
	}
}

func TestRemoveFundsInsufficient(t *testing.T) {
	savings, _, store := newTestSavings(t)
	seedGoal(t, store, core.SavingsGoal{
		ID: "viagem", Name: "Viagem", Target: core.Money{Cents: 500000},
		Current: core.Money{Cents: 10000},
	})

	err := savings.RemoveFunds(context.Background(), "viagem", core.Money{Cents: 20000}, "")
	if !errors.Is(err, core.ErrInsufficientFunds) {
		t.Fatalf("error = %v, want ErrInsufficientFunds", err)
	}
	if got := storedGoal(t, store, "viagem").Current.Cents; got != 10000 {
		t.Errorf("goal current = %d after rejected withdrawal, want untouched 10000", got)
	}
}

func TestTransfer(t *testing.T) {
	savings, _, store := newTestSavings(t)
	ctx := context.Background()
	if err := store.SetCards(ctx, []core.Card{
		{ID: "nubank", Name: "Nubank", Type: core.CardDebit},
		{ID: "inter", Name: "Inter", Type: core.CardDebit},
	}); err != nil {
		t.Fatal(err)
	}

	if err := savings.Transfer(ctx, "nubank", "inter", core.Money{Cents: 75000}); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	entries, err := store.Entries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want the expense/income pair", len(entries))
	}

	var out, in core.Entry
	for _, e := range entries {
		switch e.Kind {
		case core.Expense:
			out = e
		case core.Income:
			in = e
		}
	}
	if out.CardID != "nubank" || out.CategoryID != core.CategoryTransferExpense {
		t.Errorf("outgoing = card %s category %s, want nubank/%s", out.CardID, out.CategoryID, core.CategoryTransferExpense)
	}
	if in.CardID != "inter" || in.CategoryID != core.CategoryTransferIncome {
		t.Errorf("incoming = card %s category %s, want inter/%s", in.CardID, in.CategoryID, core.CategoryTransferIncome)
	}
	for _, e := range entries {
		if e.Status != core.StatusPaid {
			t.Errorf("entry %q status = %s, want paid", e.Description, e.Status)
		}
		if !strings.Contains(strings.ToLower(e.Description), core.InterAccountMarker) {
			t.Errorf("entry %q lacks the inter-account marker", e.Description)
		}
		if e.Amount.Cents != 75000 {
			t.Errorf("entry %q amount = %d, want 75000", e.Description, e.Amount.Cents)
		}
	}
}

func TestTransferSameAccount(t *testing.T) {
	savings, _, store := newTestSavings(t)
	ctx := context.Background()
	if err := store.SetCards(ctx, []core.Card{
		{ID: "nubank", Name: "Nubank", Type: core.CardDebit},
	}); err != nil {
		t.Fatal(err)
	}

	err := savings.Transfer(ctx, "nubank", "nubank", core.Money{Cents: 1000})
	if !errors.Is(err, core.ErrSameAccount) {
		t.Fatalf("error = %v, want ErrSameAccount", err)
	}
	entries, err := store.Entries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("rejected transfer persisted %d entries", len(entries))
	}
}

func TestTransferUnknownCard(t *testing.T) {
	savings, _, store := newTestSavings(t)
	ctx := context.Background()
	if err := store.SetCards(ctx, []core.Card{
		{ID: "nubank", Name: "Nubank", Type: core.CardDebit},
	}); err != nil {
		t.Fatal(err)
	}

	if err := savings.Transfer(ctx, "nubank", "ghost", core.Money{Cents: 1000}); !errors.Is(err, core.ErrUnknownCard) {
		t.Errorf("error = %v, want ErrUnknownCard", err)
	}
}
