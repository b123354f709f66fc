package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Guilherme-Ramos-Nepomuceno/Dominio/internal/core"
	"github.com/Guilherme-Ramos-Nepomuceno/Dominio/internal/log"
	"github.com/Guilherme-Ramos-Nepomuceno/Dominio/internal/storage"
)

// Savings coordinates savings goals with the ledger: moving money into
// or out of a goal both updates the goal balance and records a paired
// ledger entry on the funding card, so account balances and the goal
// stay consistent. Without a card the goal tracks the balance alone.
type Savings struct {
	store  storage.Store
	ledger *Ledger
	logger *log.Logger
	now    func() time.Time
}

func NewSavings(store storage.Store, ledger *Ledger, logger *log.Logger) *Savings {
	return &Savings{
		store:  store,
		ledger: ledger,
		logger: logger.WithComponent("savings"),
		now:    time.Now,
	}
}

// AddFunds deposits into a savings goal. The funding card is the one
// passed in, falling back to the card remembered on the goal; when one
// resolves it is remembered for next time and a paid expense entry is
// written against it. With no card the deposit is tracking-only.
func (s *Savings) AddFunds(ctx context.Context, goalID string, amount core.Money, cardID string) error {
	if err := amount.Validate(); err != nil {
		return err
	}
	snap, err := LoadSnapshot(ctx, s.store)
	if err != nil {
		return err
	}
	goal, ok := snap.SavingsGoalByID(goalID)
	if !ok {
		return fmt.Errorf("savings goal %s: %w", goalID, core.ErrNotFound)
	}

	card, err := s.resolveCard(snap, cardID, goal)
	if err != nil {
		return err
	}

	// The paired entry goes through the full generator validation
	// (card limits included), so it runs first: a rejected deposit
	// must leave the goal untouched.
	if card != nil {
		_, _, err = s.ledger.Add(ctx, NewEntry{
			Description: "Transferência para reserva: " + goal.Name,
			Amount:      amount,
			Kind:        core.Expense,
			CategoryID:  core.CategorySavingsDeposit,
			Date:        s.now().UTC(),
			CardID:      card.ID,
			Status:      core.StatusPaid,
		})
		if err != nil {
			return fmt.Errorf("record deposit entry: %w", err)
		}
		goal.CardID = card.ID
	}

	goal.Current.Cents += amount.Cents
	goal.UpdatedAt = s.now().UTC()
	if err := s.saveGoal(ctx, snap, goal); err != nil {
		return err
	}

	if card == nil {
		s.logger.WarnContext(ctx, "deposit without card, tracking only",
			"goal", goal.Name, "amount_cents", amount.Cents)
		return nil
	}

	s.logger.InfoContext(ctx, "funds added to goal",
		"goal", goal.Name, "amount_cents", amount.Cents, "card", card.ID)
	return nil
}

// RemoveFunds withdraws from a savings goal back to the funding card.
// Withdrawing more than the goal holds is rejected.
func (s *Savings) RemoveFunds(ctx context.Context, goalID string, amount core.Money, cardID string) error {
	if err := amount.Validate(); err != nil {
		return err
	}
	snap, err := LoadSnapshot(ctx, s.store)
	if err != nil {
		return err
	}
	goal, ok := snap.SavingsGoalByID(goalID)
	if !ok {
		return fmt.Errorf("savings goal %s: %w", goalID, core.ErrNotFound)
	}
	if amount.Cents > goal.Current.Cents {
		return fmt.Errorf("%w: goal holds %d cents, requested %d cents",
			core.ErrInsufficientFunds, goal.Current.Cents, amount.Cents)
	}

	card, err := s.resolveCard(snap, cardID, goal)
	if err != nil {
		return err
	}

	// Same ordering as AddFunds: emit the paired entry before touching
	// the goal so a rejected withdrawal commits nothing.
	if card != nil {
		_, _, err = s.ledger.Add(ctx, NewEntry{
			Description: "Retirada da reserva: " + goal.Name,
			Amount:      amount,
			Kind:        core.Income,
			CategoryID:  core.CategoryTransferIncome,
			Date:        s.now().UTC(),
			CardID:      card.ID,
			Status:      core.StatusPaid,
		})
		if err != nil {
			return fmt.Errorf("record withdrawal entry: %w", err)
		}
	}

	goal.Current.Cents -= amount.Cents
	goal.UpdatedAt = s.now().UTC()
	if err := s.saveGoal(ctx, snap, goal); err != nil {
		return err
	}

	if card == nil {
		s.logger.WarnContext(ctx, "withdrawal without card, tracking only",
			"goal", goal.Name, "amount_cents", amount.Cents)
		return nil
	}

	s.logger.InfoContext(ctx, "funds removed from goal",
		"goal", goal.Name, "amount_cents", amount.Cents, "card", card.ID)
	return nil
}

// Transfer moves money between two cards as a paired expense/income,
// both paid immediately. The pair carries the inter-account marker in
// its descriptions so total balance reports cancel it out.
func (s *Savings) Transfer(ctx context.Context, fromCardID, toCardID string, amount core.Money) error {
	if err := amount.Validate(); err != nil {
		return err
	}
	if fromCardID == toCardID {
		return core.ErrSameAccount
	}
	snap, err := LoadSnapshot(ctx, s.store)
	if err != nil {
		return err
	}
	from, ok := snap.CardByID(fromCardID)
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrUnknownCard, fromCardID)
	}
	to, ok := snap.CardByID(toCardID)
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrUnknownCard, toCardID)
	}

	date := s.now().UTC()
	_, _, err = s.ledger.Add(ctx, NewEntry{
		Description: "Transferência entre contas para " + to.Name,
		Amount:      amount,
		Kind:        core.Expense,
		CategoryID:  core.CategoryTransferExpense,
		Date:        date,
		CardID:      from.ID,
		Status:      core.StatusPaid,
	})
	if err != nil {
		return fmt.Errorf("record outgoing entry: %w", err)
	}
	_, _, err = s.ledger.Add(ctx, NewEntry{
		Description: "Transferência entre contas de " + from.Name,
		Amount:      amount,
		Kind:        core.Income,
		CategoryID:  core.CategoryTransferIncome,
		Date:        date,
		CardID:      to.ID,
		Status:      core.StatusPaid,
	})
	if err != nil {
		return fmt.Errorf("record incoming entry: %w", err)
	}

	s.logger.InfoContext(ctx, "transfer between accounts",
		"from", from.ID, "to", to.ID, "amount_cents", amount.Cents)
	return nil
}

// resolveCard picks the funding card: the explicit argument wins, then
// the card remembered on the goal. An explicit unknown card is an
// error; a dangling remembered card degrades to tracking-only.
func (s *Savings) resolveCard(snap *Snapshot, cardID string, goal core.SavingsGoal) (*core.Card, error) {
	if cardID != "" {
		card, ok := snap.CardByID(cardID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", core.ErrUnknownCard, cardID)
		}
		return &card, nil
	}
	if goal.CardID != "" {
		if card, ok := snap.CardByID(goal.CardID); ok {
			return &card, nil
		}
		s.logger.Warn("goal references missing card", "goal", goal.Name, "card", goal.CardID)
	}
	return nil, nil
}

func (s *Savings) saveGoal(ctx context.Context, snap *Snapshot, goal core.SavingsGoal) error {
	goals := append([]core.SavingsGoal(nil), snap.SavingsGoals...)
	for i := range goals {
		if goals[i].ID == goal.ID {
			goals[i] = goal
			break
		}
	}
	if err := s.store.SetSavingsGoals(ctx, goals); err != nil {
		return fmt.Errorf("persist savings goals: %w", err)
	}
	return nil
}
