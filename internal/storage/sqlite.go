package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Guilherme-Ramos-Nepomuceno/Dominio/internal/core"
	"github.com/Guilherme-Ramos-Nepomuceno/Dominio/internal/log"

	_ "modernc.org/sqlite"
)

// SQLite persists the collections in a local database file. Reads fail
// open: a malformed row is logged and skipped, a failing query yields
// the collection's empty default, so a corrupted store degrades to an
// empty app instead of an unusable one.
type SQLite struct {
	db     *sql.DB
	logger *log.Logger
}

func NewSQLite(dbPath string, logger *log.Logger) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db, logger: logger.WithComponent("storage")}, nil
}

func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const entryColumns = `id, description, amount_cents, kind, category_id, date,
	recurrence, installments, installment_index, parent_id, status, card_id,
	created_at, updated_at`

func (s *SQLite) Entries(ctx context.Context) ([]core.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM entries ORDER BY date`)
	if err != nil {
		s.logger.WarnContext(ctx, "read entries failed, substituting empty collection", "error", err)
		return nil, nil
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		var e core.Entry
		var date, createdAt, updatedAt string
		err := rows.Scan(&e.ID, &e.Description, &e.Amount.Cents, &e.Kind, &e.CategoryID, &date,
			&e.Recurrence, &e.Installments, &e.InstallmentIndex, &e.ParentID, &e.Status, &e.CardID,
			&createdAt, &updatedAt)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping malformed entry row", "error", err)
			continue
		}
		if e.Date, err = parseTime(date); err != nil {
			s.logger.WarnContext(ctx, "skipping entry with malformed date", "id", e.ID, "error", err)
			continue
		}
		e.CreatedAt, _ = parseTime(createdAt)
		e.UpdatedAt, _ = parseTime(updatedAt)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		s.logger.WarnContext(ctx, "entry row iteration failed", "error", err)
	}
	return out, nil
}

func (s *SQLite) SetEntries(ctx context.Context, entries []core.Entry) error {
	return s.replaceAll(ctx, "entries", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO entries (`+entryColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, e := range entries {
			_, err := stmt.ExecContext(ctx, e.ID, e.Description, e.Amount.Cents, e.Kind, e.CategoryID,
				fmtTime(e.Date), e.Recurrence, e.Installments, e.InstallmentIndex, e.ParentID,
				e.Status, e.CardID, fmtTime(e.CreatedAt), fmtTime(e.UpdatedAt))
			if err != nil {
				return fmt.Errorf("insert entry %s: %w", e.ID, err)
			}
		}
		return nil
	})
}

func (s *SQLite) Categories(ctx context.Context) ([]core.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, color, kind, icon FROM categories ORDER BY name`)
	if err != nil {
		s.logger.WarnContext(ctx, "read categories failed, substituting empty collection", "error", err)
		return nil, nil
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.Kind, &c.Icon); err != nil {
			s.logger.WarnContext(ctx, "skipping malformed category row", "error", err)
			continue
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLite) SetCategories(ctx context.Context, categories []core.Category) error {
	return s.replaceAll(ctx, "categories", func(tx *sql.Tx) error {
		for _, c := range categories {
			_, err := tx.ExecContext(ctx, `INSERT INTO categories (id, name, color, kind, icon)
				VALUES (?, ?, ?, ?, ?)`, c.ID, c.Name, c.Color, c.Kind, c.Icon)
			if err != nil {
				return fmt.Errorf("insert category %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

func (s *SQLite) Cards(ctx context.Context) ([]core.Card, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, bank, last_digits, type, color,
		limit_cents, due_day, created_at FROM cards ORDER BY created_at`)
	if err != nil {
		s.logger.WarnContext(ctx, "read cards failed, substituting empty collection", "error", err)
		return nil, nil
	}
	defer rows.Close()

	var out []core.Card
	for rows.Next() {
		var c core.Card
		var createdAt string
		err := rows.Scan(&c.ID, &c.Name, &c.Bank, &c.LastDigits, &c.Type, &c.Color,
			&c.Limit.Cents, &c.DueDay, &createdAt)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping malformed card row", "error", err)
			continue
		}
		c.CreatedAt, _ = parseTime(createdAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLite) SetCards(ctx context.Context, cards []core.Card) error {
	return s.replaceAll(ctx, "cards", func(tx *sql.Tx) error {
		for _, c := range cards {
			_, err := tx.ExecContext(ctx, `INSERT INTO cards (id, name, bank, last_digits, type,
				color, limit_cents, due_day, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				c.ID, c.Name, c.Bank, c.LastDigits, c.Type, c.Color, c.Limit.Cents, c.DueDay,
				fmtTime(c.CreatedAt))
			if err != nil {
				return fmt.Errorf("insert card %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

func (s *SQLite) Goals(ctx context.Context) ([]core.Goal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, target_cents, current_cents, color,
		icon, deadline, created_at FROM goals ORDER BY created_at`)
	if err != nil {
		s.logger.WarnContext(ctx, "read goals failed, substituting empty collection", "error", err)
		return nil, nil
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		var g core.Goal
		var deadline, createdAt string
		err := rows.Scan(&g.ID, &g.Name, &g.Target.Cents, &g.Current.Cents, &g.Color,
			&g.Icon, &deadline, &createdAt)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping malformed goal row", "error", err)
			continue
		}
		if deadline != "" {
			g.Deadline, _ = parseTime(deadline)
		}
		g.CreatedAt, _ = parseTime(createdAt)
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *SQLite) SetGoals(ctx context.Context, goals []core.Goal) error {
	return s.replaceAll(ctx, "goals", func(tx *sql.Tx) error {
		for _, g := range goals {
			deadline := ""
			if !g.Deadline.IsZero() {
				deadline = fmtTime(g.Deadline)
			}
			_, err := tx.ExecContext(ctx, `INSERT INTO goals (id, name, target_cents, current_cents,
				color, icon, deadline, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				g.ID, g.Name, g.Target.Cents, g.Current.Cents, g.Color, g.Icon, deadline,
				fmtTime(g.CreatedAt))
			if err != nil {
				return fmt.Errorf("insert goal %s: %w", g.ID, err)
			}
		}
		return nil
	})
}

func (s *SQLite) SavingsGoals(ctx context.Context) ([]core.SavingsGoal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, target_cents, current_cents, color,
		icon, card_id, created_at, updated_at FROM savings_goals ORDER BY created_at`)
	if err != nil {
		s.logger.WarnContext(ctx, "read savings goals failed, substituting empty collection", "error", err)
		return nil, nil
	}
	defer rows.Close()

	var out []core.SavingsGoal
	for rows.Next() {
		var g core.SavingsGoal
		var createdAt, updatedAt string
		err := rows.Scan(&g.ID, &g.Name, &g.Target.Cents, &g.Current.Cents, &g.Color,
			&g.Icon, &g.CardID, &createdAt, &updatedAt)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping malformed savings goal row", "error", err)
			continue
		}
		g.CreatedAt, _ = parseTime(createdAt)
		g.UpdatedAt, _ = parseTime(updatedAt)
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *SQLite) SetSavingsGoals(ctx context.Context, goals []core.SavingsGoal) error {
	return s.replaceAll(ctx, "savings_goals", func(tx *sql.Tx) error {
		for _, g := range goals {
			_, err := tx.ExecContext(ctx, `INSERT INTO savings_goals (id, name, target_cents,
				current_cents, color, icon, card_id, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				g.ID, g.Name, g.Target.Cents, g.Current.Cents, g.Color, g.Icon, g.CardID,
				fmtTime(g.CreatedAt), fmtTime(g.UpdatedAt))
			if err != nil {
				return fmt.Errorf("insert savings goal %s: %w", g.ID, err)
			}
		}
		return nil
	})
}

func (s *SQLite) Settings(ctx context.Context) (core.Settings, error) {
	row := s.db.QueryRowContext(ctx, `SELECT spending_goal_cents, currency, first_day_of_week,
		category_goals FROM settings WHERE id = 1`)

	var settings core.Settings
	var categoryGoals string
	err := row.Scan(&settings.SpendingGoal.Cents, &settings.Currency,
		&settings.FirstDayOfWeek, &categoryGoals)
	if err != nil {
		if err != sql.ErrNoRows {
			s.logger.WarnContext(ctx, "read settings failed, substituting defaults", "error", err)
		}
		return core.DefaultSettings(), nil
	}
	if categoryGoals != "" {
		if err := json.Unmarshal([]byte(categoryGoals), &settings.CategoryGoals); err != nil {
			s.logger.WarnContext(ctx, "malformed category goals, dropping them", "error", err)
			settings.CategoryGoals = nil
		}
	}
	return settings, nil
}

func (s *SQLite) SetSettings(ctx context.Context, settings core.Settings) error {
	categoryGoals, err := json.Marshal(settings.CategoryGoals)
	if err != nil {
		return fmt.Errorf("marshal category goals: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO settings (id, spending_goal_cents, currency,
		first_day_of_week, category_goals) VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET spending_goal_cents = excluded.spending_goal_cents,
		currency = excluded.currency, first_day_of_week = excluded.first_day_of_week,
		category_goals = excluded.category_goals`,
		settings.SpendingGoal.Cents, settings.Currency, settings.FirstDayOfWeek, string(categoryGoals))
	if err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// replaceAll swaps a table's full contents inside one transaction, the
// storage-level equivalent of the set-collection contract.
func (s *SQLite) replaceAll(ctx context.Context, table string, insert func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	if err := insert(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", table, err)
	}
	return nil
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
