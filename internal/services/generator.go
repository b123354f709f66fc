package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"github.com/Guilherme-Ramos-Nepomuceno/Dominio/internal/core"
	"github.com/Guilherme-Ramos-Nepomuceno/Dominio/internal/log"
	"github.com/Guilherme-Ramos-Nepomuceno/Dominio/internal/storage"
)

// DefaultHorizon is how many occurrences a recurring entry materializes
// up front, the head included.
const DefaultHorizon = 12

// Ledger owns entry generation and the payment status state machine.
type Ledger struct {
	store   storage.Store
	logger  *log.Logger
	horizon int
	now     func() time.Time
}

func NewLedger(store storage.Store, logger *log.Logger) *Ledger {
	return &Ledger{
		store:   store,
		logger:  logger.WithComponent("ledger"),
		horizon: DefaultHorizon,
		now:     time.Now,
	}
}

// WithHorizon overrides the recurrence horizon (config-driven).
func (l *Ledger) WithHorizon(n int) *Ledger {
	if n > 0 {
		l.horizon = n
	}
	return l
}

// NewEntry is a transaction request: what the user typed in, before the
// generator expands it into concrete ledger entries.
type NewEntry struct {
	Description  string
	Amount       core.Money
	Kind         core.EntryKind
	CategoryID   string
	Date         time.Time
	Recurrence   core.Recurrence
	Installments int
	CardID       string

	// Status, when set, bypasses the initial status rule. Used by
	// internal composition (savings transfers force paid entries).
	Status core.Status
}

// Add validates the request and expands it into one or more stored
// entries. It returns the head entry plus any generated members.
// Nothing is persisted when validation fails.
func (l *Ledger) Add(ctx context.Context, req NewEntry) (core.Entry, []core.Entry, error) {
	snap, err := LoadSnapshot(ctx, l.store)
	if err != nil {
		return core.Entry{}, nil, err
	}

	card, err := l.validate(req, snap)
	if err != nil {
		return core.Entry{}, nil, err
	}

	now := l.now().UTC()
	head := core.Entry{
		ID:          uuid.NewString(),
		Description: req.Description,
		Amount:      req.Amount,
		Kind:        req.Kind,
		CategoryID:  req.CategoryID,
		Date:        req.Date,
		Recurrence:  req.Recurrence,
		Status:      req.Status,
		CardID:      req.CardID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Recurrence == "" {
		head.Recurrence = core.RecurNone
	}

	var members []core.Entry
	switch {
	case req.Installments > 1:
		head, members = l.expandInstallments(req, head, card, now)
	case head.Recurrence != core.RecurNone:
		head, members = l.expandRecurrence(req, head, card, now)
	default:
		if head.Status == "" {
			head.Status = l.initialStatus(head.Date, card)
		}
	}

	all := append(append([]core.Entry(nil), snap.Entries...), head)
	all = append(all, members...)
	if err := l.store.SetEntries(ctx, all); err != nil {
		return core.Entry{}, nil, fmt.Errorf("persist entries: %w", err)
	}

	l.logger.InfoContext(ctx, "entry added",
		"id", head.ID,
		"description", head.Description,
		"amount_cents", head.Amount.Cents,
		"kind", head.Kind,
		"recurrence", head.Recurrence,
		"installments", req.Installments,
		"members", len(members))

	return head, members, nil
}

// expandInstallments splits the requested total into N monthly shares.
// The head is installment 1; members 2..N point back at it. The first
// share absorbs the remainder cents so the series sums to the total.
func (l *Ledger) expandInstallments(req NewEntry, head core.Entry, card *core.Card, now time.Time) (core.Entry, []core.Entry) {
	n := req.Installments
	shares := req.Amount.Split(n)

	head.Amount = shares[0]
	head.Installments = n
	head.InstallmentIndex = 1
	if req.Status == "" {
		head.Status = l.initialStatus(head.Date, card)
	}

	members := make([]core.Entry, 0, n-1)
	for i := 1; i < n; i++ {
		m := head
		m.ID = uuid.NewString()
		m.ParentID = head.ID
		m.Amount = shares[i]
		m.InstallmentIndex = i + 1
		m.Date = core.AddMonthsClamped(req.Date, i)
		if req.Status == "" {
			m.Status = l.initialStatus(m.Date, card)
		}
		m.CreatedAt, m.UpdatedAt = now, now
		members = append(members, m)
	}
	return head, members
}

// expandRecurrence materializes the schedule up to the horizon. The
// head is occurrence zero; the full amount repeats each period and each
// occurrence gets its own status (a future occurrence starts pending
// even when the head is already payable).
func (l *Ledger) expandRecurrence(req NewEntry, head core.Entry, card *core.Card, now time.Time) (core.Entry, []core.Entry) {
	dates := occurrenceDates(req.Date, head.Recurrence, l.horizon)

	if req.Status == "" {
		head.Status = l.initialStatus(dates[0], card)
	}
	head.Date = dates[0]

	members := make([]core.Entry, 0, len(dates)-1)
	for _, d := range dates[1:] {
		m := head
		m.ID = uuid.NewString()
		m.ParentID = head.ID
		m.Date = d
		if req.Status == "" {
			m.Status = l.initialStatus(d, card)
		}
		m.CreatedAt, m.UpdatedAt = now, now
		members = append(members, m)
	}
	return head, members
}

// occurrenceDates returns n dates starting at base. Daily and weekly
// schedules go through rrule; monthly and yearly steps clamp the day of
// month so Jan 31 recurs on Feb 29/28 instead of overflowing.
func occurrenceDates(base time.Time, recur core.Recurrence, n int) []time.Time {
	switch recur {
	case core.RecurDaily, core.RecurWeekly:
		freq := rrule.DAILY
		if recur == core.RecurWeekly {
			freq = rrule.WEEKLY
		}
		r, err := rrule.NewRRule(rrule.ROption{Freq: freq, Count: n, Dtstart: base})
		if err == nil {
			return r.All()
		}
		// rrule only fails on malformed options; fall through to the
		// arithmetic path so generation still succeeds.
		step := 1
		if recur == core.RecurWeekly {
			step = 7
		}
		dates := make([]time.Time, n)
		for i := range dates {
			dates[i] = base.AddDate(0, 0, i*step)
		}
		return dates
	case core.RecurYearly:
		dates := make([]time.Time, n)
		for i := range dates {
			dates[i] = core.AddYearsClamped(base, i)
		}
		return dates
	default: // monthly
		dates := make([]time.Time, n)
		for i := range dates {
			dates[i] = core.AddMonthsClamped(base, i)
		}
		return dates
	}
}

// initialStatus applies the creation rule per occurrence: paid iff the
// date is not in the future and the settling card is not credit.
func (l *Ledger) initialStatus(date time.Time, card *core.Card) core.Status {
	if card != nil && card.Type == core.CardCredit {
		return core.StatusPending
	}
	if core.StartOfDay(date).After(core.StartOfDay(l.now())) {
		return core.StatusPending
	}
	return core.StatusPaid
}

func (l *Ledger) validate(req NewEntry, snap *Snapshot) (*core.Card, error) {
	if err := req.Amount.Validate(); err != nil {
		return nil, err
	}
	if req.Description == "" {
		return nil, core.ErrEmptyDescription
	}
	if req.Date.IsZero() {
		return nil, core.ErrInvalidDate
	}
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("invalid entry kind %q", req.Kind)
	}
	if req.Recurrence != "" && !req.Recurrence.Valid() {
		return nil, core.ErrInvalidRecurrence
	}
	if req.Installments > 1 && req.Recurrence != "" && req.Recurrence != core.RecurNone {
		return nil, core.ErrConflictingSchedule
	}
	if req.Status != "" && !req.Status.Valid() {
		return nil, fmt.Errorf("invalid status override %q", req.Status)
	}

	cat, ok := snap.CategoryByID(req.CategoryID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownCategory, req.CategoryID)
	}
	if cat.Kind != req.Kind {
		return nil, core.ErrKindMismatch
	}

	if req.CardID == "" {
		return nil, nil
	}
	card, ok := snap.CardByID(req.CardID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownCard, req.CardID)
	}

	if req.Kind == core.Expense && card.HasLimit() {
		var used int64
		for _, e := range snap.Entries {
			if e.CardID == card.ID && e.Kind == core.Expense &&
				(e.Status == core.StatusPaid || e.Status == core.StatusPending) {
				used += e.Amount.Cents
			}
		}
		if req.Amount.Cents > card.Limit.Cents-used {
			return nil, fmt.Errorf("%w: available %d cents, requested %d cents",
				core.ErrInsufficientLimit, card.Limit.Cents-used, req.Amount.Cents)
		}
	}
	return &card, nil
}
