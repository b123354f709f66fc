package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Guilherme-Ramos-Nepomuceno/Dominio/internal/core"
)

// MarkPaid transitions a pending entry to paid. When settleCardID is
// given it overwrites the entry's card; when settledAt is given it
// overwrites the entry's date, which from then on reads as the
// settlement date. Paid and cancelled entries reject the transition.
func (l *Ledger) MarkPaid(ctx context.Context, id, settleCardID string, settledAt time.Time) error {
	return l.transition(ctx, id, func(e *core.Entry) error {
		switch e.Status {
		case core.StatusPaid:
			return core.ErrAlreadySettled
		case core.StatusCancelled:
			return core.ErrAlreadyCancelled
		}
		e.Status = core.StatusPaid
		if settleCardID != "" {
			e.CardID = settleCardID
		}
		if !settledAt.IsZero() {
			e.Date = settledAt
		}
		return nil
	})
}

// Cancel transitions a pending entry to cancelled. Cancellation is
// terminal and never reverts a paid entry.
func (l *Ledger) Cancel(ctx context.Context, id string) error {
	return l.transition(ctx, id, func(e *core.Entry) error {
		switch e.Status {
		case core.StatusPaid:
			return core.ErrAlreadySettled
		case core.StatusCancelled:
			return core.ErrAlreadyCancelled
		}
		e.Status = core.StatusCancelled
		return nil
	})
}

func (l *Ledger) transition(ctx context.Context, id string, apply func(*core.Entry) error) error {
	entries, err := l.store.Entries(ctx)
	if err != nil {
		return err
	}

	idx := -1
	for i := range entries {
		if entries[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("entry %s: %w", id, core.ErrNotFound)
	}

	before := entries[idx].Status
	if err := apply(&entries[idx]); err != nil {
		return fmt.Errorf("entry %s: %w", id, err)
	}
	entries[idx].UpdatedAt = l.now().UTC()

	if err := l.store.SetEntries(ctx, entries); err != nil {
		return fmt.Errorf("persist entries: %w", err)
	}

	l.logger.InfoContext(ctx, "entry status changed",
		"id", id, "from", before, "to", entries[idx].Status)
	return nil
}

// Delete removes an entry together with every member generated from it.
func (l *Ledger) Delete(ctx context.Context, id string) error {
	entries, err := l.store.Entries(ctx)
	if err != nil {
		return err
	}

	kept := entries[:0]
	removed := 0
	for _, e := range entries {
		if e.ID == id || e.ParentID == id {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	if removed == 0 {
		return fmt.Errorf("entry %s: %w", id, core.ErrNotFound)
	}

	if err := l.store.SetEntries(ctx, kept); err != nil {
		return fmt.Errorf("persist entries: %w", err)
	}
	l.logger.InfoContext(ctx, "entry deleted", "id", id, "removed", removed)
	return nil
}

// Pending returns every pending entry ordered by date ascending.
func (l *Ledger) Pending(ctx context.Context) ([]core.Entry, error) {
	entries, err := l.store.Entries(ctx)
	if err != nil {
		return nil, err
	}

	var pending []core.Entry
	for _, e := range entries {
		if e.Status == core.StatusPending {
			pending = append(pending, e)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].Date.Before(pending[j].Date)
	})
	return pending, nil
}

// NextOccurrences is the "due soon" view: pending entries with each
// series collapsed to its earliest pending member. Once that member is
// paid or cancelled the next one surfaces on its own; there is no
// separate scheduling state.
func (l *Ledger) NextOccurrences(ctx context.Context) ([]core.Entry, error) {
	pending, err := l.Pending(ctx)
	if err != nil {
		return nil, err
	}

	// Heads referenced by a ParentID group under their own ID. Legacy
	// series entries carry no parent link at all; those fall back to
	// grouping by description, best effort.
	hasChildren := make(map[string]bool)
	for _, e := range pending {
		if e.ParentID != "" {
			hasChildren[e.ParentID] = true
		}
	}

	grouped := make(map[string]core.Entry)
	var order []string
	var singles []core.Entry

	for _, e := range pending {
		key := ""
		switch {
		case e.ParentID != "":
			key = e.ParentID
		case hasChildren[e.ID]:
			key = e.ID
		case e.IsSeries():
			key = "desc:" + e.Description
		}
		if key == "" {
			singles = append(singles, e)
			continue
		}
		existing, ok := grouped[key]
		if !ok {
			order = append(order, key)
		}
		if !ok || e.Date.Before(existing.Date) {
			grouped[key] = e
		}
	}

	out := singles
	for _, key := range order {
		out = append(out, grouped[key])
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// PayInvoice settles every pending expense of a credit card's monthly
// invoice. It returns how many entries were paid.
func (l *Ledger) PayInvoice(ctx context.Context, cardID string, month core.Month) (int, error) {
	pending, err := l.invoicePending(ctx, cardID, month)
	if err != nil {
		return 0, err
	}
	for _, e := range pending {
		if err := l.MarkPaid(ctx, e.ID, "", time.Time{}); err != nil {
			return 0, err
		}
	}
	return len(pending), nil
}

// PayInvoicePartial settles pending invoice entries oldest-first while
// the amount covers their full value. Paying more than the pending
// remainder is a validation error; nothing is committed in that case.
func (l *Ledger) PayInvoicePartial(ctx context.Context, cardID string, month core.Month, amount core.Money) (int, error) {
	if err := amount.Validate(); err != nil {
		return 0, err
	}
	pending, err := l.invoicePending(ctx, cardID, month)
	if err != nil {
		return 0, err
	}

	var remainder int64
	for _, e := range pending {
		remainder += e.Amount.Cents
	}
	if amount.Cents > remainder {
		return 0, fmt.Errorf("%w: remainder %d cents, requested %d cents",
			core.ErrExceedsPending, remainder, amount.Cents)
	}

	paid := 0
	remaining := amount.Cents
	for _, e := range pending {
		if remaining < e.Amount.Cents {
			break
		}
		if err := l.MarkPaid(ctx, e.ID, "", time.Time{}); err != nil {
			return paid, err
		}
		remaining -= e.Amount.Cents
		paid++
	}
	return paid, nil
}

// invoicePending lists a card's pending expense entries for the month,
// oldest first.
func (l *Ledger) invoicePending(ctx context.Context, cardID string, month core.Month) ([]core.Entry, error) {
	snap, err := LoadSnapshot(ctx, l.store)
	if err != nil {
		return nil, err
	}

	var pending []core.Entry
	for _, e := range snap.Entries {
		if e.CardID != cardID || e.Status != core.StatusPending {
			continue
		}
		if cat, ok := snap.CategoryByID(e.CategoryID); !ok || cat.Kind != core.Expense {
			continue
		}
		if !month.Contains(e.Date) {
			continue
		}
		pending = append(pending, e)
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].Date.Before(pending[j].Date)
	})
	return pending, nil
}
