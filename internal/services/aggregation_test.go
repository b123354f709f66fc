package services

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/Guilherme-Ramos-Nepomuceno/Dominio/internal/core"
	"github.com/Guilherme-Ramos-Nepomuceno/Dominio/internal/storage"
)

func newTestReports(t *testing.T) (*Reports, *Ledger, *storage.Memory) {
	t.Helper()
	ledger, store := newTestLedger(t)
	return NewReports(store, testLogger()), ledger, store
}

func TestAccountBalanceCountsOnlyPaid(t *testing.T) {
	reports, ledger, store := newTestReports(t)
	ctx := context.Background()
	if err := store.SetCards(ctx, []core.Card{
		{ID: "nubank", Name: "Nubank", Type: core.CardDebit},
	}); err != nil {
		t.Fatal(err)
	}

	mustAdd(t, ledger, NewEntry{
		Description: "Salário", Amount: core.Money{Cents: 100000}, Kind: core.Income,
		CategoryID: "salary", Date: date(2024, time.June, 1), CardID: "nubank",
	})
	mustAdd(t, ledger, NewEntry{
		Description: "Mercado", Amount: core.Money{Cents: 30000}, Kind: core.Expense,
		CategoryID: "food", Date: date(2024, time.June, 5), CardID: "nubank",
	})
	mustAdd(t, ledger, NewEntry{
		Description: "Futuro", Amount: core.Money{Cents: 40000}, Kind: core.Expense,
		CategoryID: "food", Date: date(2024, time.July, 5), CardID: "nubank",
	})
	cancelled, _ := mustAdd(t, ledger, NewEntry{
		Description: "Desistido", Amount: core.Money{Cents: 900000}, Kind: core.Expense,
		CategoryID: "food", Date: date(2024, time.August, 1), CardID: "nubank",
	})
	if err := ledger.Cancel(ctx, cancelled.ID); err != nil {
		t.Fatal(err)
	}

	got, err := reports.AccountBalance(ctx, "nubank")
	if err != nil {
		t.Fatalf("AccountBalance: %v", err)
	}
	if got.Cents != 70000 {
		t.Errorf("balance = %d, want 70000 (pending and cancelled excluded)", got.Cents)
	}
}

func TestAggregationIdempotentReread(t *testing.T) {
	reports, ledger, store := newTestReports(t)
	ctx := context.Background()
	if err := store.SetCards(ctx, []core.Card{
		{ID: "visa", Name: "Visa", Type: core.CardCredit},
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.SetSavingsGoals(ctx, []core.SavingsGoal{
		{ID: "g", Name: "G", Target: core.Money{Cents: 100000}, Current: core.Money{Cents: 40000}},
	}); err != nil {
		t.Fatal(err)
	}

	mustAdd(t, ledger, NewEntry{
		Description: "Salário", Amount: core.Money{Cents: 300000}, Kind: core.Income,
		CategoryID: "salary", Date: date(2024, time.June, 1),
	})
	mustAdd(t, ledger, NewEntry{
		Description: "Parcelado", Amount: core.Money{Cents: 90000}, Kind: core.Expense,
		CategoryID: "leisure", Date: date(2024, time.June, 5), Installments: 3, CardID: "visa",
	})

	month := core.Month{Year: 2024, Mon: time.June}

	first, err := reports.TotalBalance(ctx, month)
	if err != nil {
		t.Fatalf("TotalBalance: %v", err)
	}
	second, err := reports.TotalBalance(ctx, month)
	if err != nil {
		t.Fatalf("TotalBalance: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("TotalBalance drifted without mutation: %+v then %+v", first, second)
	}

	inv1, err := reports.InvoiceSummary(ctx, "visa", month)
	if err != nil {
		t.Fatalf("InvoiceSummary: %v", err)
	}
	inv2, err := reports.InvoiceSummary(ctx, "visa", month)
	if err != nil {
		t.Fatalf("InvoiceSummary: %v", err)
	}
	if !reflect.DeepEqual(inv1, inv2) {
		t.Errorf("InvoiceSummary drifted without mutation: %+v then %+v", inv1, inv2)
	}
}

func TestInvoiceSummary(t *testing.T) {
	reports, ledger, store := newTestReports(t)
	ctx := context.Background()
	if err := store.SetCards(ctx, []core.Card{
		{ID: "visa", Name: "Visa", Type: core.CardCredit},
	}); err != nil {
		t.Fatal(err)
	}

	paid, _ := mustAdd(t, ledger, NewEntry{
		Description: "Paga", Amount: core.Money{Cents: 50000}, Kind: core.Expense,
		CategoryID: "leisure", Date: date(2024, time.June, 3), CardID: "visa",
	})
	if err := ledger.MarkPaid(ctx, paid.ID, "", time.Time{}); err != nil {
		t.Fatal(err)
	}
	mustAdd(t, ledger, NewEntry{
		Description: "Aberta", Amount: core.Money{Cents: 30000}, Kind: core.Expense,
		CategoryID: "leisure", Date: date(2024, time.June, 10), CardID: "visa",
	})
	mustAdd(t, ledger, NewEntry{
		Description: "Outro mês", Amount: core.Money{Cents: 9000}, Kind: core.Expense,
		CategoryID: "leisure", Date: date(2024, time.July, 2), CardID: "visa",
	})

	inv, err := reports.InvoiceSummary(ctx, "visa", core.Month{Year: 2024, Mon: time.June})
	if err != nil {
		t.Fatalf("InvoiceSummary: %v", err)
	}
	if inv.Total.Cents != 80000 {
		t.Errorf("total = %d, want 80000 regardless of status", inv.Total.Cents)
	}
	if inv.Pending.Cents != 30000 {
		t.Errorf("pending = %d, want 30000", inv.Pending.Cents)
	}
	if len(inv.Entries) != 2 {
		t.Errorf("invoice lists %d entries, want 2", len(inv.Entries))
	}
}

func TestProjectedExposure(t *testing.T) {
	reports, ledger, store := newTestReports(t)
	ctx := context.Background()
	if err := store.SetCards(ctx, []core.Card{
		{ID: "visa", Name: "Visa", Type: core.CardCredit},
	}); err != nil {
		t.Fatal(err)
	}

	// 1200 over 12 installments of exactly 100, starting January.
	head, _ := mustAdd(t, ledger, NewEntry{
		Description:  "Celular",
		Amount:       core.Money{Cents: 120000},
		Kind:         core.Expense,
		CategoryID:   "leisure",
		Date:         date(2024, time.January, 10),
		Installments: 12,
		CardID:       "visa",
	})

	tests := []struct {
		month core.Month
		want  int64
	}{
		{core.Month{Year: 2023, Mon: time.December}, 0},
		{core.Month{Year: 2024, Mon: time.January}, 10000},
		{core.Month{Year: 2024, Mon: time.June}, 10000},
		{core.Month{Year: 2024, Mon: time.December}, 10000},
		{core.Month{Year: 2025, Mon: time.January}, 0},
	}
	for _, tt := range tests {
		got, err := reports.ProjectedExposure(ctx, "visa", tt.month)
		if err != nil {
			t.Fatalf("ProjectedExposure(%s): %v", tt.month, err)
		}
		if got.Cents != tt.want {
			t.Errorf("exposure %s = %d, want %d", tt.month, got.Cents, tt.want)
		}
	}

	// Paying January's installment suppresses only January.
	if err := ledger.MarkPaid(ctx, head.ID, "", time.Time{}); err != nil {
		t.Fatal(err)
	}
	got, err := reports.ProjectedExposure(ctx, "visa", core.Month{Year: 2024, Mon: time.January})
	if err != nil {
		t.Fatal(err)
	}
	if got.Cents != 0 {
		t.Errorf("January exposure after payment = %d, want 0", got.Cents)
	}
	got, err = reports.ProjectedExposure(ctx, "visa", core.Month{Year: 2024, Mon: time.February})
	if err != nil {
		t.Fatal(err)
	}
	if got.Cents != 10000 {
		t.Errorf("February exposure = %d, want the series to keep projecting", got.Cents)
	}
}

func TestProjectedExposureIncludesSingleEntries(t *testing.T) {
	reports, ledger, store := newTestReports(t)
	ctx := context.Background()
	if err := store.SetCards(ctx, []core.Card{
		{ID: "visa", Name: "Visa", Type: core.CardCredit},
	}); err != nil {
		t.Fatal(err)
	}

	mustAdd(t, ledger, NewEntry{
		Description: "Jantar", Amount: core.Money{Cents: 15000}, Kind: core.Expense,
		CategoryID: "food", Date: date(2024, time.June, 20), CardID: "visa",
	})

	got, err := reports.ProjectedExposure(ctx, "visa", core.Month{Year: 2024, Mon: time.June})
	if err != nil {
		t.Fatal(err)
	}
	if got.Cents != 15000 {
		t.Errorf("exposure = %d, want the pending single entry", got.Cents)
	}
}

func TestCategoryGoalProgress(t *testing.T) {
	reports, ledger, store := newTestReports(t)
	ctx := context.Background()
	if err := store.SetSettings(ctx, core.Settings{
		SpendingGoal: core.Money{Cents: 100000},
		Currency:     "BRL",
		CategoryGoals: []core.CategoryGoal{
			{CategoryID: "food", Percentage: 50},
			{CategoryID: "leisure", Percentage: 0},
		},
	}); err != nil {
		t.Fatal(err)
	}

	mustAdd(t, ledger, NewEntry{
		Description: "Mercado", Amount: core.Money{Cents: 25000}, Kind: core.Expense,
		CategoryID: "food", Date: date(2024, time.June, 5),
	})
	mustAdd(t, ledger, NewEntry{
		Description: "Cinema", Amount: core.Money{Cents: 4000}, Kind: core.Expense,
		CategoryID: "leisure", Date: date(2024, time.June, 8),
	})

	statuses, err := reports.CategoryGoalProgress(ctx, core.Month{Year: 2024, Mon: time.June})
	if err != nil {
		t.Fatalf("CategoryGoalProgress: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("got %d goal statuses, want 2", len(statuses))
	}

	food := statuses[0]
	if food.Allowed.Cents != 50000 {
		t.Errorf("food allowance = %d, want 50000", food.Allowed.Cents)
	}
	if food.Achievement != 50 {
		t.Errorf("food achievement = %v, want 50", food.Achievement)
	}
	if food.Exceeded {
		t.Error("food goal marked exceeded at half the allowance")
	}

	// Zero allowance with spending clamps instead of dividing by zero.
	leisure := statuses[1]
	if leisure.Achievement != 100 {
		t.Errorf("zero-allowance achievement = %v, want clamped 100", leisure.Achievement)
	}
	if !leisure.Exceeded || leisure.Excess.Cents != 4000 {
		t.Errorf("zero-allowance exceeded=%v excess=%d, want true/4000", leisure.Exceeded, leisure.Excess.Cents)
	}
}

func TestTotalBalanceExcludesTransferPairs(t *testing.T) {
	reports, ledger, store := newTestReports(t)
	ctx := context.Background()
	if err := store.SetCards(ctx, []core.Card{
		{ID: "nubank", Name: "Nubank", Type: core.CardDebit},
		{ID: "inter", Name: "Inter", Type: core.CardDebit},
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.SetSavingsGoals(ctx, []core.SavingsGoal{
		{ID: "viagem", Name: "Viagem", Target: core.Money{Cents: 500000}, Current: core.Money{Cents: 150000}},
	}); err != nil {
		t.Fatal(err)
	}

	mustAdd(t, ledger, NewEntry{
		Description: "Salário", Amount: core.Money{Cents: 500000}, Kind: core.Income,
		CategoryID: "salary", Date: date(2024, time.June, 1), CardID: "nubank",
	})
	mustAdd(t, ledger, NewEntry{
		Description: "Mercado", Amount: core.Money{Cents: 200000}, Kind: core.Expense,
		CategoryID: "food", Date: date(2024, time.June, 5), CardID: "nubank",
	})

	savings := NewSavings(store, ledger, testLogger())
	savings.now = func() time.Time { return testNow }
	if err := savings.Transfer(ctx, "nubank", "inter", core.Money{Cents: 100000}); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	overview, err := reports.TotalBalance(ctx, core.Month{Year: 2024, Mon: time.June})
	if err != nil {
		t.Fatalf("TotalBalance: %v", err)
	}
	if overview.Checking.Cents != 300000 {
		t.Errorf("checking = %d, want 300000 (transfer pair cancelled out)", overview.Checking.Cents)
	}
	if overview.Savings.Cents != 150000 {
		t.Errorf("savings = %d, want 150000", overview.Savings.Cents)
	}
	if overview.Total.Cents != 450000 {
		t.Errorf("total = %d, want 450000", overview.Total.Cents)
	}
}

func TestMonthSummary(t *testing.T) {
	reports, ledger, _ := newTestReports(t)
	ctx := context.Background()

	mustAdd(t, ledger, NewEntry{
		Description: "Salário", Amount: core.Money{Cents: 400000}, Kind: core.Income,
		CategoryID: "salary", Date: date(2024, time.June, 1),
	})
	mustAdd(t, ledger, NewEntry{
		Description: "Aluguel", Amount: core.Money{Cents: 150000}, Kind: core.Expense,
		CategoryID: "housing", Date: date(2024, time.June, 5),
	})
	mustAdd(t, ledger, NewEntry{
		Description: "Pendente", Amount: core.Money{Cents: 99999}, Kind: core.Expense,
		CategoryID: "food", Date: date(2024, time.July, 1),
	})

	sum, err := reports.MonthSummary(ctx, core.Month{Year: 2024, Mon: time.June})
	if err != nil {
		t.Fatalf("MonthSummary: %v", err)
	}
	if sum.Income.Cents != 400000 || sum.Expense.Cents != 150000 || sum.Balance.Cents != 250000 {
		t.Errorf("summary = %+v, want 400000/150000/250000", sum)
	}
}

func TestActiveSeries(t *testing.T) {
	reports, ledger, _ := newTestReports(t)
	ctx := context.Background()

	mustAdd(t, ledger, NewEntry{
		Description: "Streaming", Amount: core.Money{Cents: 3990}, Kind: core.Expense,
		CategoryID: "leisure", Date: date(2024, time.July, 1), Recurrence: core.RecurMonthly,
	})
	head, _ := mustAdd(t, ledger, NewEntry{
		Description: "Geladeira", Amount: core.Money{Cents: 360000}, Kind: core.Expense,
		CategoryID: "housing", Date: date(2024, time.July, 10), Installments: 6,
	})

	overview, err := reports.ActiveSeries(ctx)
	if err != nil {
		t.Fatalf("ActiveSeries: %v", err)
	}
	if len(overview.Subscriptions) != 1 {
		t.Fatalf("got %d subscriptions, want 1", len(overview.Subscriptions))
	}
	if len(overview.Plans) != 1 {
		t.Fatalf("got %d plans, want 1", len(overview.Plans))
	}

	plan := overview.Plans[0]
	if plan.Next.ID != head.ID {
		t.Errorf("plan next = %s, want the first pending installment", plan.Next.Description)
	}
	if plan.InstallmentsLeft != 6 {
		t.Errorf("installments left = %d, want 6", plan.InstallmentsLeft)
	}
	if plan.RemainingDebt.Cents != 360000 {
		t.Errorf("remaining debt = %d, want the full 360000", plan.RemainingDebt.Cents)
	}
}

func TestActiveSeriesExactRemainingDebt(t *testing.T) {
	reports, ledger, _ := newTestReports(t)
	ctx := context.Background()

	// 100.00 over 3: shares are 33.34, 33.33, 33.33.
	mustAdd(t, ledger, NewEntry{
		Description: "Cadeira", Amount: core.Money{Cents: 10000}, Kind: core.Expense,
		CategoryID: "housing", Date: date(2024, time.July, 1), Installments: 3,
	})

	overview, err := reports.ActiveSeries(ctx)
	if err != nil {
		t.Fatalf("ActiveSeries: %v", err)
	}
	if len(overview.Plans) != 1 {
		t.Fatalf("got %d plans, want 1", len(overview.Plans))
	}

	plan := overview.Plans[0]
	if plan.InstallmentsLeft != 3 {
		t.Errorf("installments left = %d, want 3", plan.InstallmentsLeft)
	}
	// Summing the actual shares, not next-share times count: the first
	// share carries the remainder cent, so 3 x 3334 would overshoot.
	if plan.RemainingDebt.Cents != 10000 {
		t.Errorf("remaining debt = %d, want exactly 10000", plan.RemainingDebt.Cents)
	}
}

func TestActiveSeriesGroupsLegacyByDescription(t *testing.T) {
	reports, _, store := newTestReports(t)
	ctx := context.Background()

	legacy := []core.Entry{
		{ID: "a", Description: "Streaming", Amount: core.Money{Cents: 2000}, Kind: core.Expense,
			CategoryID: "leisure", Date: date(2024, time.July, 5), Recurrence: core.RecurMonthly,
			Status: core.StatusPending},
		{ID: "b", Description: "Streaming", Amount: core.Money{Cents: 2000}, Kind: core.Expense,
			CategoryID: "leisure", Date: date(2024, time.August, 5), Recurrence: core.RecurMonthly,
			Status: core.StatusPending},
	}
	if err := store.SetEntries(ctx, legacy); err != nil {
		t.Fatal(err)
	}

	overview, err := reports.ActiveSeries(ctx)
	if err != nil {
		t.Fatalf("ActiveSeries: %v", err)
	}
	if len(overview.Subscriptions) != 1 {
		t.Fatalf("got %d subscriptions, want 1 after description grouping", len(overview.Subscriptions))
	}
	if overview.Subscriptions[0].ID != "a" {
		t.Errorf("kept %s, want the earliest occurrence", overview.Subscriptions[0].ID)
	}
}

func TestSearch(t *testing.T) {
	reports, ledger, _ := newTestReports(t)
	ctx := context.Background()

	mustAdd(t, ledger, NewEntry{
		Description: "Supermercado Extra", Amount: core.Money{Cents: 10000}, Kind: core.Expense,
		CategoryID: "food", Date: date(2024, time.June, 1),
	})
	mustAdd(t, ledger, NewEntry{
		Description: "Gasolina", Amount: core.Money{Cents: 20000}, Kind: core.Expense,
		CategoryID: "transport", Date: date(2024, time.June, 2),
	})

	got, err := reports.Search(ctx, "mercado")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].Description != "Supermercado Extra" {
		t.Errorf("Search(mercado) = %v, want the supermarket entry", got)
	}
}
