package services

import (
	"context"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/Guilherme-Ramos-Nepomuceno/Dominio/internal/core"
	"github.com/Guilherme-Ramos-Nepomuceno/Dominio/internal/log"
	"github.com/Guilherme-Ramos-Nepomuceno/Dominio/internal/storage"
)

// Reports computes every derived figure from a fresh snapshot of the
// ledger. There is no persisted running balance and no cache: the same
// query against the same stored state always returns the same result.
type Reports struct {
	store  storage.Store
	logger *log.Logger
}

func NewReports(store storage.Store, logger *log.Logger) *Reports {
	return &Reports{store: store, logger: logger.WithComponent("reports")}
}

// AccountBalance sums the paid entries settled on a card: income adds,
// expense subtracts. Pending and cancelled entries contribute nothing.
func (r *Reports) AccountBalance(ctx context.Context, cardID string) (core.Money, error) {
	entries, err := r.store.Entries(ctx)
	if err != nil {
		return core.Money{}, err
	}

	var balance int64
	for _, e := range entries {
		if e.CardID != cardID || !e.Settled() {
			continue
		}
		if e.Kind == core.Income {
			balance += e.Amount.Cents
		} else {
			balance -= e.Amount.Cents
		}
	}
	return core.Money{Cents: balance}, nil
}

// Invoice is one credit card's statement for a month: every expense
// entry dated inside it, its grand total and the unpaid remainder.
type Invoice struct {
	Card    core.Card
	Month   core.Month
	Entries []core.Entry
	Total   core.Money
	Pending core.Money
}

// InvoiceSummary builds the invoice of one card for the given month.
// Total counts every expense entry regardless of status; Pending counts
// only the unpaid ones.
func (r *Reports) InvoiceSummary(ctx context.Context, cardID string, month core.Month) (Invoice, error) {
	snap, err := LoadSnapshot(ctx, r.store)
	if err != nil {
		return Invoice{}, err
	}
	card, _ := snap.CardByID(cardID)
	return buildInvoice(snap, card, cardID, month), nil
}

// Invoices builds the monthly invoice of every credit card.
func (r *Reports) Invoices(ctx context.Context, month core.Month) ([]Invoice, error) {
	snap, err := LoadSnapshot(ctx, r.store)
	if err != nil {
		return nil, err
	}

	var out []Invoice
	for _, card := range snap.Cards {
		if card.Type != core.CardCredit {
			continue
		}
		out = append(out, buildInvoice(snap, card, card.ID, month))
	}
	return out, nil
}

func buildInvoice(snap *Snapshot, card core.Card, cardID string, month core.Month) Invoice {
	inv := Invoice{Card: card, Month: month}
	for _, e := range snap.Entries {
		if e.CardID != cardID {
			continue
		}
		if cat, ok := snap.CategoryByID(e.CategoryID); !ok || cat.Kind != core.Expense {
			continue
		}
		if !month.Contains(e.Date) {
			continue
		}
		inv.Entries = append(inv.Entries, e)
		inv.Total.Cents += e.Amount.Cents
		if e.Status == core.StatusPending {
			inv.Pending.Cents += e.Amount.Cents
		}
	}
	sort.Slice(inv.Entries, func(i, j int) bool {
		return inv.Entries[i].Date.Before(inv.Entries[j].Date)
	})
	return inv
}

// ProjectedExposure estimates how much of a card's debt lands in the
// given month. Installment series are amortized analytically from the
// head: the per-installment share is attributed to installmentCount
// consecutive months from the purchase month, whether or not the
// member entry for that month still exists. Paid occurrences are
// suppressed individually; the rest of the series keeps projecting.
func (r *Reports) ProjectedExposure(ctx context.Context, cardID string, month core.Month) (core.Money, error) {
	entries, err := r.store.Entries(ctx)
	if err != nil {
		return core.Money{}, err
	}

	// Index installment members by series so a month's occurrence can
	// be looked up when it was materialized.
	members := make(map[string][]core.Entry)
	for _, e := range entries {
		if e.ParentID != "" && e.IsInstallment() {
			members[e.ParentID] = append(members[e.ParentID], e)
		}
	}

	var total int64
	for _, e := range entries {
		if e.CardID != cardID || e.Kind != core.Expense {
			continue
		}
		switch {
		case e.IsInstallment() && e.ParentID == "":
			origin := core.MonthOf(e.Date)
			diff := core.MonthsBetween(origin, month)
			if diff < 0 || diff >= e.Installments {
				continue
			}
			occ, found := e, diff == 0
			if !found {
				for _, m := range members[e.ID] {
					if m.InstallmentIndex == diff+1 {
						occ, found = m, true
						break
					}
				}
			}
			if found && occ.Status != core.StatusPending {
				continue
			}
			total += occ.Amount.Cents
		case e.IsInstallment():
			// Members are covered through their head above.
		default:
			if e.Status == core.StatusPending && month.Contains(e.Date) {
				total += e.Amount.Cents
			}
		}
	}
	return core.Money{Cents: total}, nil
}

// CategorySpending totals the month's settled expenses per category.
func (r *Reports) CategorySpending(ctx context.Context, month core.Month) (map[string]core.Money, error) {
	entries, err := r.store.Entries(ctx)
	if err != nil {
		return nil, err
	}

	spending := make(map[string]core.Money)
	for _, e := range entries {
		if e.Kind != core.Expense || !e.Settled() || !month.Contains(e.Date) {
			continue
		}
		m := spending[e.CategoryID]
		m.Cents += e.Amount.Cents
		spending[e.CategoryID] = m
	}
	return spending, nil
}

// CategoryGoalStatus reports one category's spending against its slice
// of the global monthly goal.
type CategoryGoalStatus struct {
	CategoryID  string
	Name        string
	Percentage  float64
	Allowed     core.Money
	Spent       core.Money
	Achievement float64 // percent of the allowance consumed
	Exceeded    bool
	Excess      core.Money
}

// CategoryGoalProgress evaluates every configured category goal for the
// month. When the allowance works out to zero the achievement clamps to
// 100 for any spending at all; it never divides by zero.
func (r *Reports) CategoryGoalProgress(ctx context.Context, month core.Month) ([]CategoryGoalStatus, error) {
	snap, err := LoadSnapshot(ctx, r.store)
	if err != nil {
		return nil, err
	}
	spending, err := r.CategorySpending(ctx, month)
	if err != nil {
		return nil, err
	}

	var out []CategoryGoalStatus
	for _, goal := range snap.Settings.CategoryGoals {
		allowed := int64(float64(snap.Settings.SpendingGoal.Cents) * goal.Percentage / 100)
		spent := spending[goal.CategoryID]

		status := CategoryGoalStatus{
			CategoryID: goal.CategoryID,
			Percentage: goal.Percentage,
			Allowed:    core.Money{Cents: allowed},
			Spent:      spent,
		}
		if cat, ok := snap.CategoryByID(goal.CategoryID); ok {
			status.Name = cat.Name
		}
		switch {
		case allowed > 0:
			status.Achievement = float64(spent.Cents) / float64(allowed) * 100
		case spent.Cents > 0:
			status.Achievement = 100
		}
		if spent.Cents > allowed {
			status.Exceeded = true
			status.Excess = core.Money{Cents: spent.Cents - allowed}
		}
		out = append(out, status)
	}
	return out, nil
}

// MonthSummary is the settled income/expense/balance triple for a month.
type MonthSummary struct {
	Month   core.Month
	Income  core.Money
	Expense core.Money
	Balance core.Money
}

func (r *Reports) MonthSummary(ctx context.Context, month core.Month) (MonthSummary, error) {
	entries, err := r.store.Entries(ctx)
	if err != nil {
		return MonthSummary{}, err
	}

	sum := MonthSummary{Month: month}
	for _, e := range entries {
		if !e.Settled() || !month.Contains(e.Date) {
			continue
		}
		if e.Kind == core.Income {
			sum.Income.Cents += e.Amount.Cents
		} else {
			sum.Expense.Cents += e.Amount.Cents
		}
	}
	sum.Balance.Cents = sum.Income.Cents - sum.Expense.Cents
	return sum, nil
}

// BalanceOverview is the dashboard headline: the month's checking
// balance plus everything parked in savings goals. Unsettled credit
// exposure never subtracts from it; invoices report that separately.
type BalanceOverview struct {
	Checking core.Money
	Savings  core.Money
	Total    core.Money
}

// TotalBalance computes the overview for a month. Inter-account
// transfer pairs cancel each other out and are excluded so moving money
// between cards never changes the total.
func (r *Reports) TotalBalance(ctx context.Context, month core.Month) (BalanceOverview, error) {
	snap, err := LoadSnapshot(ctx, r.store)
	if err != nil {
		return BalanceOverview{}, err
	}

	var overview BalanceOverview
	for _, e := range snap.Entries {
		if !e.Settled() || !month.Contains(e.Date) || isInterAccountTransfer(e) {
			continue
		}
		if e.Kind == core.Income {
			overview.Checking.Cents += e.Amount.Cents
		} else {
			overview.Checking.Cents -= e.Amount.Cents
		}
	}
	for _, g := range snap.SavingsGoals {
		overview.Savings.Cents += g.Current.Cents
	}
	overview.Total.Cents = overview.Checking.Cents + overview.Savings.Cents
	return overview, nil
}

func isInterAccountTransfer(e core.Entry) bool {
	if e.CategoryID != core.CategoryTransferIncome && e.CategoryID != core.CategoryTransferExpense {
		return false
	}
	return strings.Contains(strings.ToLower(e.Description), core.InterAccountMarker)
}

// InstallmentPlan summarizes an active installment series: the next
// pending member plus the debt still outstanding.
type InstallmentPlan struct {
	Next             core.Entry
	PerInstallment   core.Money
	InstallmentsLeft int
	RemainingDebt    core.Money
}

// SeriesOverview lists active subscriptions (recurrences) and
// installment plans.
type SeriesOverview struct {
	Subscriptions []core.Entry
	Plans         []InstallmentPlan
}

// ActiveSeries groups pending series entries: each recurrence shows its
// next occurrence, each installment plan its next share plus the exact
// sum of its unpaid shares. Grouping follows the same key rules as
// NextOccurrences, description fallback for legacy entries included.
func (r *Reports) ActiveSeries(ctx context.Context) (SeriesOverview, error) {
	entries, err := r.store.Entries(ctx)
	if err != nil {
		return SeriesOverview{}, err
	}

	hasChildren := make(map[string]bool)
	for _, e := range entries {
		if e.Status == core.StatusPending && e.ParentID != "" {
			hasChildren[e.ParentID] = true
		}
	}

	groups := make(map[string][]core.Entry)
	var order []string
	for _, e := range entries {
		if e.Status != core.StatusPending || !e.IsSeries() {
			continue
		}
		key := ""
		switch {
		case e.ParentID != "":
			key = e.ParentID
		case hasChildren[e.ID]:
			key = e.ID
		default:
			key = "desc:" + e.Description
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], e)
	}

	var overview SeriesOverview
	for _, key := range order {
		group := groups[key]
		next := group[0]
		var remaining int64
		for _, e := range group {
			if e.Date.Before(next.Date) {
				next = e
			}
			remaining += e.Amount.Cents
		}
		if next.IsInstallment() {
			overview.Plans = append(overview.Plans, InstallmentPlan{
				Next:             next,
				PerInstallment:   next.Amount,
				InstallmentsLeft: len(group),
				RemainingDebt:    core.Money{Cents: remaining},
			})
			continue
		}
		overview.Subscriptions = append(overview.Subscriptions, next)
	}

	sort.Slice(overview.Subscriptions, func(i, j int) bool {
		return overview.Subscriptions[i].Date.Before(overview.Subscriptions[j].Date)
	})
	sort.Slice(overview.Plans, func(i, j int) bool {
		return overview.Plans[i].Next.Date.Before(overview.Plans[j].Next.Date)
	})
	return overview, nil
}

// Search fuzzy-matches entry descriptions, best matches first.
func (r *Reports) Search(ctx context.Context, query string) ([]core.Entry, error) {
	entries, err := r.store.Entries(ctx)
	if err != nil {
		return nil, err
	}

	descriptions := make([]string, len(entries))
	for i, e := range entries {
		descriptions[i] = e.Description
	}

	ranks := fuzzy.RankFindNormalizedFold(query, descriptions)
	sort.Sort(ranks)

	out := make([]core.Entry, 0, len(ranks))
	for _, rank := range ranks {
		out = append(out, entries[rank.OriginalIndex])
	}
	return out, nil
}
