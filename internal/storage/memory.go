package storage

import (
	"context"
	"sync"

	"github.com/Guilherme-Ramos-Nepomuceno/Dominio/internal/core"
)

// Memory is an in-process Store used by tests and the ephemeral
// backend. It hands out copies so callers can't mutate shared state.
type Memory struct {
	mu           sync.Mutex
	entries      []core.Entry
	categories   []core.Category
	cards        []core.Card
	goals        []core.Goal
	savingsGoals []core.SavingsGoal
	settings     core.Settings
	hasSettings  bool
}

func NewMemory() *Memory {
	return &Memory{categories: DefaultCategories()}
}

func (m *Memory) Entries(_ context.Context) ([]core.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Entry(nil), m.entries...), nil
}

func (m *Memory) SetEntries(_ context.Context, entries []core.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append([]core.Entry(nil), entries...)
	return nil
}

func (m *Memory) Categories(_ context.Context) ([]core.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Category(nil), m.categories...), nil
}

func (m *Memory) SetCategories(_ context.Context, categories []core.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories = append([]core.Category(nil), categories...)
	return nil
}

func (m *Memory) Cards(_ context.Context) ([]core.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Card(nil), m.cards...), nil
}

func (m *Memory) SetCards(_ context.Context, cards []core.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards = append([]core.Card(nil), cards...)
	return nil
}

func (m *Memory) Goals(_ context.Context) ([]core.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Goal(nil), m.goals...), nil
}

func (m *Memory) SetGoals(_ context.Context, goals []core.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.goals = append([]core.Goal(nil), goals...)
	return nil
}

func (m *Memory) SavingsGoals(_ context.Context) ([]core.SavingsGoal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.SavingsGoal(nil), m.savingsGoals...), nil
}

func (m *Memory) SetSavingsGoals(_ context.Context, goals []core.SavingsGoal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.savingsGoals = append([]core.SavingsGoal(nil), goals...)
	return nil
}

func (m *Memory) Settings(_ context.Context) (core.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasSettings {
		return core.DefaultSettings(), nil
	}
	return m.settings, nil
}

func (m *Memory) SetSettings(_ context.Context, settings core.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = settings
	m.hasSettings = true
	return nil
}
