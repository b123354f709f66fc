package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Guilherme-Ramos-Nepomuceno/Dominio/internal/config"
	"github.com/Guilherme-Ramos-Nepomuceno/Dominio/internal/core"
	"github.com/Guilherme-Ramos-Nepomuceno/Dominio/internal/log"
	"github.com/Guilherme-Ramos-Nepomuceno/Dominio/internal/services"
	"github.com/Guilherme-Ramos-Nepomuceno/Dominio/internal/storage"
)

const usage = `dominio - personal finance ledger

Usage:
  dominio <command> [flags]

Commands:
  add            record an income or expense entry
  pending        list pending entries
  next           list upcoming occurrences (series collapsed)
  pay            mark an entry as paid
  cancel         cancel a pending entry
  delete         delete an entry and its generated series
  invoice        show a card's monthly invoice
  pay-invoice    pay a card's monthly invoice (fully or partially)
  balance        show a card's balance
  total          show the overall balance for a month
  stats          show monthly summary and category goal progress
  series         list active subscriptions and installment plans
  deposit        add funds to a savings goal
  withdraw       remove funds from a savings goal
  transfer       move money between two cards
  search         search entries by description
`

type app struct {
	cfg      *config.Config
	logger   *log.Logger
	ledger   *services.Ledger
	reports  *services.Reports
	savings  *services.Savings
	catalog  *services.Catalog
	currency string
}

func main() {
	// Optional; absence of a .env file is the normal case.
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	level, _ := log.ParseLevel(cfg.LogLevel)
	logger := log.New(log.Config{Level: level, Component: "dominio"})
	log.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store storage.Store
	switch cfg.Backend {
	case "sqlite":
		db, err := storage.NewSQLite(cfg.DBPath, logger)
		if err != nil {
			logger.Error("failed to open database", "path", cfg.DBPath, "error", err)
			os.Exit(1)
		}
		defer db.Close()
		store = db
	default:
		store = storage.NewMemory()
	}

	ledger := services.NewLedger(store, logger).WithHorizon(cfg.RecurrenceHorizon)
	a := &app{
		cfg:      cfg,
		logger:   logger,
		ledger:   ledger,
		reports:  services.NewReports(store, logger),
		savings:  services.NewSavings(store, ledger, logger),
		catalog:  services.NewCatalog(store, logger),
		currency: cfg.Currency,
	}
	if settings, err := a.catalog.Settings(ctx); err == nil && settings.Currency != "" {
		a.currency = settings.Currency
	}

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "add":
		return a.cmdAdd(ctx, args)
	case "pending":
		return a.cmdPending(ctx)
	case "next":
		return a.cmdNext(ctx)
	case "pay":
		return a.cmdPay(ctx, args)
	case "cancel":
		return a.cmdCancel(ctx, args)
	case "delete":
		return a.cmdDelete(ctx, args)
	case "invoice":
		return a.cmdInvoice(ctx, args)
	case "pay-invoice":
		return a.cmdPayInvoice(ctx, args)
	case "balance":
		return a.cmdBalance(ctx, args)
	case "total":
		return a.cmdTotal(ctx, args)
	case "stats":
		return a.cmdStats(ctx, args)
	case "series":
		return a.cmdSeries(ctx)
	case "deposit":
		return a.cmdDeposit(ctx, args)
	case "withdraw":
		return a.cmdWithdraw(ctx, args)
	case "transfer":
		return a.cmdTransfer(ctx, args)
	case "search":
		return a.cmdSearch(ctx, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) cmdAdd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	desc := fs.String("desc", "", "entry description")
	amount := fs.String("amount", "", "amount, e.g. 123.45")
	kind := fs.String("kind", "expense", "income or expense")
	category := fs.String("category", "", "category ID")
	dateStr := fs.String("date", "", "date YYYY-MM-DD (default today)")
	recur := fs.String("recur", "", "none, daily, weekly, monthly or yearly")
	installments := fs.Int("installments", 0, "number of monthly installments")
	card := fs.String("card", "", "card ID")
	if err := fs.Parse(args); err != nil {
		return err
	}

	money, err := core.ParseDecimalToCents(*amount)
	if err != nil {
		return err
	}
	when := time.Now()
	if *dateStr != "" {
		if when, err = time.Parse("2006-01-02", *dateStr); err != nil {
			return fmt.Errorf("invalid date %q: %w", *dateStr, err)
		}
	}

	head, members, err := a.ledger.Add(ctx, services.NewEntry{
		Description:  *desc,
		Amount:       money,
		Kind:         core.EntryKind(*kind),
		CategoryID:   *category,
		Date:         when,
		Recurrence:   core.Recurrence(*recur),
		Installments: *installments,
		CardID:       *card,
	})
	if err != nil {
		return err
	}

	fmt.Printf("added %s  %s  %s (%s)\n",
		head.ID, head.Amount.Format(a.currency), head.Description, head.Status)
	if len(members) > 0 {
		fmt.Printf("generated %d further occurrences through %s\n",
			len(members), members[len(members)-1].Date.Format("2006-01-02"))
	}
	return nil
}

func (a *app) cmdPending(ctx context.Context) error {
	entries, err := a.ledger.Pending(ctx)
	if err != nil {
		return err
	}
	a.printEntries(entries)
	return nil
}

func (a *app) cmdNext(ctx context.Context) error {
	entries, err := a.ledger.NextOccurrences(ctx)
	if err != nil {
		return err
	}
	a.printEntries(entries)
	return nil
}

func (a *app) cmdPay(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("pay", flag.ExitOnError)
	id := fs.String("id", "", "entry ID")
	card := fs.String("card", "", "settle with this card instead")
	dateStr := fs.String("date", "", "settlement date YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var settledAt time.Time
	if *dateStr != "" {
		var err error
		if settledAt, err = time.Parse("2006-01-02", *dateStr); err != nil {
			return fmt.Errorf("invalid date %q: %w", *dateStr, err)
		}
	}
	if err := a.ledger.MarkPaid(ctx, *id, *card, settledAt); err != nil {
		return err
	}
	fmt.Println("paid", *id)
	return nil
}

func (a *app) cmdCancel(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cancel", flag.ExitOnError)
	id := fs.String("id", "", "entry ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.ledger.Cancel(ctx, *id); err != nil {
		return err
	}
	fmt.Println("cancelled", *id)
	return nil
}

func (a *app) cmdDelete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.String("id", "", "entry ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.ledger.Delete(ctx, *id); err != nil {
		return err
	}
	fmt.Println("deleted", *id)
	return nil
}

func (a *app) cmdInvoice(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("invoice", flag.ExitOnError)
	card := fs.String("card", "", "card ID")
	monthStr := fs.String("month", "", "month YYYY-MM (default current)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	month, err := parseMonthFlag(*monthStr)
	if err != nil {
		return err
	}

	inv, err := a.reports.InvoiceSummary(ctx, *card, month)
	if err != nil {
		return err
	}
	fmt.Printf("invoice %s %s\n", inv.Card.Name, month)
	a.printEntries(inv.Entries)
	fmt.Printf("total   %s\n", inv.Total.Format(a.currency))
	fmt.Printf("pending %s\n", inv.Pending.Format(a.currency))

	exposure, err := a.reports.ProjectedExposure(ctx, *card, month)
	if err != nil {
		return err
	}
	fmt.Printf("projected %s\n", exposure.Format(a.currency))
	return nil
}

func (a *app) cmdPayInvoice(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("pay-invoice", flag.ExitOnError)
	card := fs.String("card", "", "card ID")
	monthStr := fs.String("month", "", "month YYYY-MM (default current)")
	amountStr := fs.String("amount", "", "partial amount; omit to pay everything")
	if err := fs.Parse(args); err != nil {
		return err
	}
	month, err := parseMonthFlag(*monthStr)
	if err != nil {
		return err
	}

	var paid int
	if *amountStr == "" {
		paid, err = a.ledger.PayInvoice(ctx, *card, month)
	} else {
		var amount core.Money
		if amount, err = core.ParseDecimalToCents(*amountStr); err != nil {
			return err
		}
		paid, err = a.ledger.PayInvoicePartial(ctx, *card, month, amount)
	}
	if err != nil {
		return err
	}
	fmt.Printf("paid %d entries\n", paid)
	return nil
}

func (a *app) cmdBalance(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	card := fs.String("card", "", "card ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	balance, err := a.reports.AccountBalance(ctx, *card)
	if err != nil {
		return err
	}
	fmt.Println(balance.Format(a.currency))
	return nil
}

func (a *app) cmdTotal(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("total", flag.ExitOnError)
	monthStr := fs.String("month", "", "month YYYY-MM (default current)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	month, err := parseMonthFlag(*monthStr)
	if err != nil {
		return err
	}

	overview, err := a.reports.TotalBalance(ctx, month)
	if err != nil {
		return err
	}
	fmt.Printf("checking %s\n", overview.Checking.Format(a.currency))
	fmt.Printf("savings  %s\n", overview.Savings.Format(a.currency))
	fmt.Printf("total    %s\n", overview.Total.Format(a.currency))
	return nil
}

func (a *app) cmdStats(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	monthStr := fs.String("month", "", "month YYYY-MM (default current)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	month, err := parseMonthFlag(*monthStr)
	if err != nil {
		return err
	}

	sum, err := a.reports.MonthSummary(ctx, month)
	if err != nil {
		return err
	}
	fmt.Printf("%s  income %s  expense %s  balance %s\n",
		month, sum.Income.Format(a.currency), sum.Expense.Format(a.currency), sum.Balance.Format(a.currency))

	goals, err := a.reports.CategoryGoalProgress(ctx, month)
	if err != nil {
		return err
	}
	for _, g := range goals {
		marker := " "
		if g.Exceeded {
			marker = "!"
		}
		fmt.Printf("%s %-20s %5.1f%%  spent %s of %s\n",
			marker, g.Name, g.Achievement, g.Spent.Format(a.currency), g.Allowed.Format(a.currency))
	}
	return nil
}

func (a *app) cmdSeries(ctx context.Context) error {
	overview, err := a.reports.ActiveSeries(ctx)
	if err != nil {
		return err
	}
	for _, s := range overview.Subscriptions {
		fmt.Printf("sub   %s  %s  %s  next %s\n",
			s.ID, s.Amount.Format(a.currency), s.Description, s.Date.Format("2006-01-02"))
	}
	for _, p := range overview.Plans {
		fmt.Printf("plan  %s  %s  %s  %d left, %s remaining\n",
			p.Next.ID, p.PerInstallment.Format(a.currency), p.Next.Description,
			p.InstallmentsLeft, p.RemainingDebt.Format(a.currency))
	}
	return nil
}

func (a *app) cmdDeposit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("deposit", flag.ExitOnError)
	goal := fs.String("goal", "", "savings goal ID")
	amountStr := fs.String("amount", "", "amount, e.g. 123.45")
	card := fs.String("card", "", "funding card (default: the goal's card)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	amount, err := core.ParseDecimalToCents(*amountStr)
	if err != nil {
		return err
	}
	if err := a.savings.AddFunds(ctx, *goal, amount, *card); err != nil {
		return err
	}
	fmt.Println("deposited", amount.Format(a.currency))
	return nil
}

func (a *app) cmdWithdraw(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("withdraw", flag.ExitOnError)
	goal := fs.String("goal", "", "savings goal ID")
	amountStr := fs.String("amount", "", "amount, e.g. 123.45")
	card := fs.String("card", "", "destination card (default: the goal's card)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	amount, err := core.ParseDecimalToCents(*amountStr)
	if err != nil {
		return err
	}
	if err := a.savings.RemoveFunds(ctx, *goal, amount, *card); err != nil {
		return err
	}
	fmt.Println("withdrew", amount.Format(a.currency))
	return nil
}

func (a *app) cmdTransfer(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("transfer", flag.ExitOnError)
	from := fs.String("from", "", "source card ID")
	to := fs.String("to", "", "destination card ID")
	amountStr := fs.String("amount", "", "amount, e.g. 123.45")
	if err := fs.Parse(args); err != nil {
		return err
	}
	amount, err := core.ParseDecimalToCents(*amountStr)
	if err != nil {
		return err
	}
	if err := a.savings.Transfer(ctx, *from, *to, amount); err != nil {
		return err
	}
	fmt.Println("transferred", amount.Format(a.currency))
	return nil
}

func (a *app) cmdSearch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	query := fs.String("q", "", "search text")
	if err := fs.Parse(args); err != nil {
		return err
	}
	entries, err := a.reports.Search(ctx, *query)
	if err != nil {
		return err
	}
	a.printEntries(entries)
	return nil
}

func (a *app) printEntries(entries []core.Entry) {
	for _, e := range entries {
		sign := "-"
		if e.Kind == core.Income {
			sign = "+"
		}
		fmt.Printf("%s  %s  %s%s  %-9s %s\n",
			e.ID, e.Date.Format("2006-01-02"), sign, e.Amount.Format(a.currency), e.Status, e.Description)
	}
}

func parseMonthFlag(s string) (core.Month, error) {
	if s == "" {
		return core.MonthOf(time.Now()), nil
	}
	return core.ParseMonth(s)
}
