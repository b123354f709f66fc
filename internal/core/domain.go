package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  EntryKind = "income"
	Expense EntryKind = "expense"
)

const (
	RecurNone    Recurrence = "none"
	RecurDaily   Recurrence = "daily"
	RecurWeekly  Recurrence = "weekly"
	RecurMonthly Recurrence = "monthly"
	RecurYearly  Recurrence = "yearly"
)

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

const (
	CardCredit CardType = "credit"
	CardDebit  CardType = "debit"
)

// Reserved category identifiers seeded by the initial migration. The
// savings coordinator and the transfer operation emit their paired
// entries under these categories.
const (
	CategorySavingsDeposit  = "savings_deposit"
	CategoryTransferIncome  = "transfer_income"
	CategoryTransferExpense = "transfer_expense"
)

// InterAccountMarker appears in the description of the two entries a
// card-to-card transfer emits; the total balance query filters the pair
// out so a transfer never changes the overall balance.
const InterAccountMarker = "entre contas"

type (
	EntryKind  string
	Recurrence string
	Status     string
	CardType   string

	// Entry is one recorded income or expense occurrence. Generated
	// series (installments, recurrences) are stored as individual
	// entries sharing a ParentID.
	Entry struct {
		ID               string
		Description      string
		Amount           Money
		Kind             EntryKind
		CategoryID       string
		Date             time.Time
		Recurrence       Recurrence
		Installments     int
		InstallmentIndex int
		ParentID         string
		Status           Status
		CardID           string
		CreatedAt        time.Time
		UpdatedAt        time.Time
	}

	Category struct {
		ID    string
		Name  string
		Color string
		Kind  EntryKind
		Icon  string
	}

	Card struct {
		ID         string
		Name       string
		Bank       string
		LastDigits string
		Type       CardType
		Color      string
		Limit      Money // credit only; zero means no limit configured
		DueDay     int   // credit only; 1-31, zero when unset
		CreatedAt  time.Time
	}

	Goal struct {
		ID        string
		Name      string
		Target    Money
		Current   Money
		Color     string
		Icon      string
		Deadline  time.Time
		CreatedAt time.Time
	}

	SavingsGoal struct {
		ID        string
		Name      string
		Target    Money
		Current   Money
		Color     string
		Icon      string
		CardID    string
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	CategoryGoal struct {
		CategoryID string
		Percentage float64
	}

	Settings struct {
		SpendingGoal   Money
		Currency       string
		FirstDayOfWeek int
		CategoryGoals  []CategoryGoal
	}
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEmptyDescription    = errors.New("empty description")
	ErrInvalidDate         = errors.New("invalid date")
	ErrUnknownCategory     = errors.New("unknown category")
	ErrUnknownCard         = errors.New("unknown card")
	ErrKindMismatch        = errors.New("entry kind does not match category kind")
	ErrInvalidRecurrence   = errors.New("invalid recurrence")
	ErrConflictingSchedule = errors.New("entry cannot be both installment plan and recurrence")
	ErrInsufficientLimit   = errors.New("insufficient card limit")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrSameAccount         = errors.New("source and destination account are identical")
	ErrCategoryInUse       = errors.New("category is referenced by entries")
	ErrNotFound            = errors.New("not found")
	ErrAlreadySettled      = errors.New("entry already paid")
	ErrAlreadyCancelled    = errors.New("entry already cancelled")
	ErrExceedsPending      = errors.New("amount exceeds pending invoice remainder")
)

func (k EntryKind) Valid() bool {
	return k == Income || k == Expense
}

func (r Recurrence) Valid() bool {
	switch r {
	case RecurNone, RecurDaily, RecurWeekly, RecurMonthly, RecurYearly:
		return true
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

// Settled reports whether the entry counts towards balances. Only paid
// entries do; pending and cancelled contribute nothing.
func (e Entry) Settled() bool {
	return e.Status == StatusPaid
}

// IsSeries reports whether the entry belongs to a generated group,
// either a recurrence schedule or a multi-installment plan.
func (e Entry) IsSeries() bool {
	return (e.Recurrence != "" && e.Recurrence != RecurNone) || e.Installments > 1
}

func (e Entry) IsInstallment() bool {
	return e.Installments > 1
}

func (e Entry) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if !e.Kind.Valid() {
		return errors.New("invalid entry kind")
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	if !e.Recurrence.Valid() {
		return ErrInvalidRecurrence
	}
	if !e.Status.Valid() {
		return errors.New("invalid entry status")
	}
	return nil
}

func (c Category) Validate() error {
	if len(strings.TrimSpace(c.Name)) == 0 {
		return errors.New("empty category name")
	}
	if !c.Kind.Valid() {
		return errors.New("invalid category kind")
	}
	return nil
}

func (c Card) Validate() error {
	if len(strings.TrimSpace(c.Name)) == 0 {
		return errors.New("empty card name")
	}
	if c.Type != CardCredit && c.Type != CardDebit {
		return errors.New("invalid card type")
	}
	if c.DueDay < 0 || c.DueDay > 31 {
		return errors.New("due day out of range")
	}
	if c.Limit.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// HasLimit reports whether a credit limit is configured for the card.
func (c Card) HasLimit() bool {
	return c.Type == CardCredit && c.Limit.Cents > 0
}

// DefaultSettings mirrors the defaults substituted when no settings
// record has been stored yet.
func DefaultSettings() Settings {
	return Settings{
		SpendingGoal:   Money{Cents: 500000},
		Currency:       "BRL",
		FirstDayOfWeek: 0,
	}
}
