package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Guilherme-Ramos-Nepomuceno/Dominio/internal/core"
	"github.com/Guilherme-Ramos-Nepomuceno/Dominio/internal/log"
	"github.com/Guilherme-Ramos-Nepomuceno/Dominio/internal/storage"
)

// Catalog manages the supporting collections: categories, cards, goals
// and settings. The ledger references them by ID but never cascades, so
// the only hard rule here is that a category with entries cannot go.
type Catalog struct {
	store  storage.Store
	logger *log.Logger
	now    func() time.Time
}

func NewCatalog(store storage.Store, logger *log.Logger) *Catalog {
	return &Catalog{store: store, logger: logger.WithComponent("catalog"), now: time.Now}
}

func (c *Catalog) AddCategory(ctx context.Context, cat core.Category) (core.Category, error) {
	if err := cat.Validate(); err != nil {
		return core.Category{}, err
	}
	if cat.ID == "" {
		cat.ID = uuid.NewString()
	}

	cats, err := c.store.Categories(ctx)
	if err != nil {
		return core.Category{}, err
	}
	if err := c.store.SetCategories(ctx, append(cats, cat)); err != nil {
		return core.Category{}, fmt.Errorf("persist categories: %w", err)
	}
	c.logger.InfoContext(ctx, "category added", "id", cat.ID, "name", cat.Name)
	return cat, nil
}

// DeleteCategory removes a category. Reserved categories and categories
// still referenced by entries are protected.
func (c *Catalog) DeleteCategory(ctx context.Context, id string) error {
	switch id {
	case core.CategorySavingsDeposit, core.CategoryTransferIncome, core.CategoryTransferExpense:
		return fmt.Errorf("category %s is reserved: %w", id, core.ErrCategoryInUse)
	}

	snap, err := LoadSnapshot(ctx, c.store)
	if err != nil {
		return err
	}
	for _, e := range snap.Entries {
		if e.CategoryID == id {
			return fmt.Errorf("category %s: %w", id, core.ErrCategoryInUse)
		}
	}

	cats, removed := removeByID(snap.Categories, id, func(v core.Category) string { return v.ID })
	if !removed {
		return fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	if err := c.store.SetCategories(ctx, cats); err != nil {
		return fmt.Errorf("persist categories: %w", err)
	}
	c.logger.InfoContext(ctx, "category deleted", "id", id)
	return nil
}

func (c *Catalog) AddCard(ctx context.Context, card core.Card) (core.Card, error) {
	if err := card.Validate(); err != nil {
		return core.Card{}, err
	}
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	card.CreatedAt = c.now().UTC()

	cards, err := c.store.Cards(ctx)
	if err != nil {
		return core.Card{}, err
	}
	if err := c.store.SetCards(ctx, append(cards, card)); err != nil {
		return core.Card{}, fmt.Errorf("persist cards: %w", err)
	}
	c.logger.InfoContext(ctx, "card added", "id", card.ID, "name", card.Name, "type", card.Type)
	return card, nil
}

func (c *Catalog) UpdateCard(ctx context.Context, card core.Card) error {
	if err := card.Validate(); err != nil {
		return err
	}

	cards, err := c.store.Cards(ctx)
	if err != nil {
		return err
	}
	found := false
	for i := range cards {
		if cards[i].ID == card.ID {
			card.CreatedAt = cards[i].CreatedAt
			cards[i] = card
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("card %s: %w", card.ID, core.ErrNotFound)
	}
	if err := c.store.SetCards(ctx, cards); err != nil {
		return fmt.Errorf("persist cards: %w", err)
	}
	return nil
}

// DeleteCard removes a card. Entries keep their card reference; lookups
// on the dangling ID resolve to nothing, they do not fail.
func (c *Catalog) DeleteCard(ctx context.Context, id string) error {
	cards, err := c.store.Cards(ctx)
	if err != nil {
		return err
	}
	cards, removed := removeByID(cards, id, func(v core.Card) string { return v.ID })
	if !removed {
		return fmt.Errorf("card %s: %w", id, core.ErrNotFound)
	}
	if err := c.store.SetCards(ctx, cards); err != nil {
		return fmt.Errorf("persist cards: %w", err)
	}
	c.logger.InfoContext(ctx, "card deleted", "id", id)
	return nil
}

func (c *Catalog) AddGoal(ctx context.Context, goal core.Goal) (core.Goal, error) {
	if err := goal.Target.Validate(); err != nil {
		return core.Goal{}, err
	}
	if goal.Name == "" {
		return core.Goal{}, core.ErrEmptyDescription
	}
	if goal.ID == "" {
		goal.ID = uuid.NewString()
	}
	goal.CreatedAt = c.now().UTC()

	goals, err := c.store.Goals(ctx)
	if err != nil {
		return core.Goal{}, err
	}
	if err := c.store.SetGoals(ctx, append(goals, goal)); err != nil {
		return core.Goal{}, fmt.Errorf("persist goals: %w", err)
	}
	return goal, nil
}

func (c *Catalog) UpdateGoal(ctx context.Context, goal core.Goal) error {
	goals, err := c.store.Goals(ctx)
	if err != nil {
		return err
	}
	found := false
	for i := range goals {
		if goals[i].ID == goal.ID {
			goal.CreatedAt = goals[i].CreatedAt
			goals[i] = goal
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("goal %s: %w", goal.ID, core.ErrNotFound)
	}
	if err := c.store.SetGoals(ctx, goals); err != nil {
		return fmt.Errorf("persist goals: %w", err)
	}
	return nil
}

func (c *Catalog) DeleteGoal(ctx context.Context, id string) error {
	goals, err := c.store.Goals(ctx)
	if err != nil {
		return err
	}
	goals, removed := removeByID(goals, id, func(v core.Goal) string { return v.ID })
	if !removed {
		return fmt.Errorf("goal %s: %w", id, core.ErrNotFound)
	}
	if err := c.store.SetGoals(ctx, goals); err != nil {
		return fmt.Errorf("persist goals: %w", err)
	}
	return nil
}

func (c *Catalog) AddSavingsGoal(ctx context.Context, goal core.SavingsGoal) (core.SavingsGoal, error) {
	if err := goal.Target.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	if goal.Name == "" {
		return core.SavingsGoal{}, core.ErrEmptyDescription
	}
	if goal.ID == "" {
		goal.ID = uuid.NewString()
	}
	now := c.now().UTC()
	goal.CreatedAt, goal.UpdatedAt = now, now

	goals, err := c.store.SavingsGoals(ctx)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	if err := c.store.SetSavingsGoals(ctx, append(goals, goal)); err != nil {
		return core.SavingsGoal{}, fmt.Errorf("persist savings goals: %w", err)
	}
	c.logger.InfoContext(ctx, "savings goal added", "id", goal.ID, "name", goal.Name)
	return goal, nil
}

// DeleteSavingsGoal removes a goal. Ledger entries emitted by past
// deposits stay; the money already moved.
func (c *Catalog) DeleteSavingsGoal(ctx context.Context, id string) error {
	goals, err := c.store.SavingsGoals(ctx)
	if err != nil {
		return err
	}
	goals, removed := removeByID(goals, id, func(v core.SavingsGoal) string { return v.ID })
	if !removed {
		return fmt.Errorf("savings goal %s: %w", id, core.ErrNotFound)
	}
	if err := c.store.SetSavingsGoals(ctx, goals); err != nil {
		return fmt.Errorf("persist savings goals: %w", err)
	}
	c.logger.InfoContext(ctx, "savings goal deleted", "id", id)
	return nil
}

func (c *Catalog) Settings(ctx context.Context) (core.Settings, error) {
	return c.store.Settings(ctx)
}

// SettingsPatch is a merge patch: nil fields keep their stored value.
type SettingsPatch struct {
	SpendingGoal   *core.Money
	Currency       *string
	FirstDayOfWeek *int
	CategoryGoals  *[]core.CategoryGoal
}

func (c *Catalog) UpdateSettings(ctx context.Context, patch SettingsPatch) (core.Settings, error) {
	settings, err := c.store.Settings(ctx)
	if err != nil {
		return core.Settings{}, err
	}

	if patch.SpendingGoal != nil {
		if err := patch.SpendingGoal.Validate(); err != nil {
			return core.Settings{}, err
		}
		settings.SpendingGoal = *patch.SpendingGoal
	}
	if patch.Currency != nil {
		settings.Currency = *patch.Currency
	}
	if patch.FirstDayOfWeek != nil {
		settings.FirstDayOfWeek = *patch.FirstDayOfWeek
	}
	if patch.CategoryGoals != nil {
		for _, g := range *patch.CategoryGoals {
			if g.Percentage < 0 || g.Percentage > 100 {
				return core.Settings{}, fmt.Errorf("category goal %s: percentage out of range", g.CategoryID)
			}
		}
		settings.CategoryGoals = *patch.CategoryGoals
	}

	if err := c.store.SetSettings(ctx, settings); err != nil {
		return core.Settings{}, fmt.Errorf("persist settings: %w", err)
	}
	c.logger.InfoContext(ctx, "settings updated")
	return settings, nil
}

func removeByID[T any](items []T, id string, key func(T) string) ([]T, bool) {
	kept := make([]T, 0, len(items))
	removed := false
	for _, v := range items {
		if key(v) == id {
			removed = true
			continue
		}
		kept = append(kept, v)
	}
	return kept, removed
}
