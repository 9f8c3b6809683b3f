package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"casa/internal/core"
	"casa/internal/services"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderCycle prints one block per person followed by the household total.
func renderCycle(w io.Writer, f *core.Formatter, v services.CycleView) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	end := "open"
	if v.End != nil {
		end = *v.End
	}
	fmt.Fprintf(tw, "Cycle\t%s .. %s\n", v.Start, end)

	money := func(cents int64) string { return f.Format(core.Money{Cents: cents}) }

	for _, p := range v.People {
		role := "contributor"
		if p.Dependent {
			role = "dependent"
		}
		fmt.Fprintf(tw, "\n%s\t(%s)\n", p.Name, role)

		for _, i := range p.Incomes {
			fmt.Fprintf(tw, "  income\t%s\t%s\t%s\n", i.Name, money(i.AmountCents), flags(i.WithheldAtSource, i.Recurring))
		}
		for _, e := range p.Expenses {
			paid := "household"
			if e.Payer != nil {
				paid = "paid by " + *e.Payer
			}
			fmt.Fprintf(tw, "  expense\t%s\t%s\t%s %s\n", e.Name, money(e.AmountCents), paid, flags(false, e.Recurring))
		}

		fmt.Fprintf(tw, "  total income\t\t%s\n", money(p.TotalIncomeCents))
		fmt.Fprintf(tw, "  total expenses\t\t%s\n", money(p.TotalExpensesCents))
		fmt.Fprintf(tw, "  reimbursable\t\t%s\n", money(p.TotalReimbursableCents))
		if p.Dependent {
			fmt.Fprintf(tw, "  benefit\t\t%s\n", f.FormatCents(p.Benefit))
			fmt.Fprintf(tw, "  receivable\t\t%s\n", f.FormatCents(p.AmountReceivable))
		} else {
			fmt.Fprintf(tw, "  contribution\t\t%s\n", money(p.ContributionCents))
			fmt.Fprintf(tw, "  amount due\t\t%s\n", money(p.AmountDueCents))
		}
	}

	fmt.Fprintf(tw, "\nTotal collected\t\t%s\n", money(v.TotalCollectedCents))
	return tw.Flush()
}

func flags(withheld, recurring bool) string {
	s := ""
	if withheld {
		s += "[withheld]"
	}
	if recurring {
		s += "[recurring]"
	}
	return s
}
