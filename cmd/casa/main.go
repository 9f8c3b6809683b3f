package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"casa/internal/cli"
	"casa/internal/core"
	"casa/internal/cycle"
	"casa/internal/log"
	"casa/internal/services"
)

const usage = `usage: casa <command> [flags]

commands:
  show            show the current cycle, or the one on -date
  people          list every known person
  payers          list who may pay for -person
  add-person      add -name to the current cycle [-dependent]
  add-income      add or replace an income of -person
  remove-income   remove an income of -person
  add-expense     add or replace an expense of -person [-payer]
  remove-expense  remove an expense of -person
  close           close the current cycle and open the next one
  history         list the start dates of every cycle
`

// errNotApplied marks a command the cycle refused; its reason was printed.
var errNotApplied = errors.New("not applied")

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentCLI)

	ctx := log.NewContext(context.Background(), logger)
	res := cli.InitBackend(ctx, cfg)
	client := cli.InitAMQP(logger, cfg)

	app := &app{
		service: cli.NewCycleService(logger, res, client),
		out:     os.Stdout,
		errOut:  os.Stderr,
		fmt:     core.NewFormatter(cfg.Language(), cfg.CurrencyUnit()),
	}

	err := app.run(ctx, os.Args[1], os.Args[2:])

	if client != nil {
		client.Close()
	}
	if cerr := res.Close(); cerr != nil {
		logger.Warn("Failed to release backend", log.FieldError, cerr)
	}

	switch {
	case err == nil:
	case errors.Is(err, flag.ErrHelp):
		os.Exit(2)
	case errors.Is(err, errNotApplied):
		os.Exit(1)
	default:
		logger.Error("Command failed", "command", os.Args[1], log.FieldError, err)
		os.Exit(1)
	}
}

type app struct {
	service *services.CycleService
	out     io.Writer
	errOut  io.Writer
	fmt     *core.Formatter
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(a.errOut)

	var (
		asJSON    = fs.Bool("json", false, "print JSON instead of a table")
		date      = fs.String("date", "", "cycle date, yyyy-mm-dd")
		person    = fs.String("person", "", "person the entry belongs to")
		name      = fs.String("name", "", "person, income or expense name")
		amount    = fs.String("amount", "", "amount, e.g. 1234,56")
		payer     = fs.String("payer", "", "person who paid the expense")
		dependent = fs.Bool("dependent", false, "add the person as a dependent")
		withheld  = fs.Bool("withheld", false, "income was taxed at source")
		recurring = fs.Bool("recurring", false, "carry the entry into the next cycle")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch command {
	case "show":
		var view services.CycleView
		var err error
		if *date == "" {
			view, err = a.service.CurrentCycle(ctx)
		} else {
			var d core.Date
			if d, err = core.ParseDate(*date); err != nil {
				return err
			}
			view, err = a.service.CycleAt(ctx, d)
		}
		if err != nil {
			return err
		}
		if *asJSON {
			return writeJSON(a.out, view)
		}
		return renderCycle(a.out, a.fmt, view)

	case "people":
		people, err := a.service.People(ctx)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(people))
		for _, p := range people {
			names = append(names, p.Name)
		}
		return a.list(names, *asJSON)

	case "payers":
		if _, err := a.service.EnsureCurrentCycle(ctx); err != nil {
			return err
		}
		names, err := a.service.PayerOptions(ctx, *person)
		if err != nil {
			return err
		}
		return a.list(names, *asJSON)

	case "history":
		dates, err := a.service.History(ctx)
		if err != nil {
			return err
		}
		out := make([]string, 0, len(dates))
		for _, d := range dates {
			out = append(out, d.String())
		}
		return a.list(out, *asJSON)
	}

	if _, err := a.service.EnsureCurrentCycle(ctx); err != nil {
		return err
	}

	var (
		res cycle.Result
		err error
	)
	switch command {
	case "add-person":
		res, err = a.service.AddPerson(ctx, *name, *dependent)
	case "add-income":
		var cents int64
		if cents, err = core.ParseDecimalToCents(*amount); err != nil {
			return fmt.Errorf("amount %q: %w", *amount, err)
		}
		res, err = a.service.AddIncome(ctx, services.AddIncomeParams{
			Person:           *person,
			Name:             *name,
			Amount:           core.Money{Cents: cents},
			WithheldAtSource: *withheld,
			Recurring:        *recurring,
		})
	case "remove-income":
		res, err = a.service.RemoveIncome(ctx, *person, *name)
	case "add-expense":
		var cents int64
		if cents, err = core.ParseDecimalToCents(*amount); err != nil {
			return fmt.Errorf("amount %q: %w", *amount, err)
		}
		res, err = a.service.AddExpense(ctx, services.AddExpenseParams{
			Person:    *person,
			Name:      *name,
			Amount:    core.Money{Cents: cents},
			Payer:     *payer,
			Recurring: *recurring,
		})
	case "remove-expense":
		res, err = a.service.RemoveExpense(ctx, *person, *name)
	case "close":
		res, err = a.service.CloseCurrentCycle(ctx)
	default:
		fmt.Fprint(a.errOut, usage)
		return fmt.Errorf("unknown command %q", command)
	}
	if err != nil {
		return err
	}
	if !res.Applied() {
		fmt.Fprintf(a.errOut, "%s: %s\n", command, res)
		return errNotApplied
	}
	fmt.Fprintln(a.out, "ok")
	return nil
}

func (a *app) list(items []string, asJSON bool) error {
	if asJSON {
		return writeJSON(a.out, items)
	}
	for _, item := range items {
		fmt.Fprintln(a.out, item)
	}
	return nil
}
