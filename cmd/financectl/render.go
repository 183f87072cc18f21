package main

import (
	"encoding/json"
	"fmt"
	"io"

	"financeflow/internal/core"
	"financeflow/internal/ledger"
	"financeflow/internal/services"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSummary(w io.Writer, sum core.FinanceSummary) {
	fmt.Fprintf(w, "  Month:          %s\n", sum.CurrentMonth)
	fmt.Fprintf(w, "  Monthly credit: %s\n", sum.MonthlyCredit)
	fmt.Fprintf(w, "  Daily target:   %s\n", sum.DailyTarget)
	fmt.Fprintf(w, "  Total savings:  %s\n", sum.TotalSavings)
}

func printOverview(w io.Writer, ov ledger.Overview) {
	fmt.Fprintf(w, "  Month:            %s (%d days logged)\n", ov.Month, ov.Days)
	fmt.Fprintf(w, "  Monthly credit:   %s\n", ov.MonthlyCredit)
	fmt.Fprintf(w, "  Daily target:     %s\n", ov.DailyTarget)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Spent:            %s\n", ov.Totals.Spent)
	fmt.Fprintf(w, "  To savings:       %s\n", ov.Totals.SavingsTransferred)
	fmt.Fprintf(w, "  Borrowed:         %s\n", ov.Totals.Borrowed)
	fmt.Fprintf(w, "  Excess spending:  %s\n", ov.Totals.ExcessSpending)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Remaining credit: %s\n", ov.RemainingCredit)
	fmt.Fprintf(w, "  Savings:          %s\n", ov.AvailableSavings)
	fmt.Fprintf(w, "  Excess available: %s\n", ov.AvailableForExcessSpending)
	if ov.SetupStale {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  Setup is from an earlier month. Run `financectl setup` to start this one.")
	}
}

func printRecord(w io.Writer, rec core.DailyRecord, status ledger.DueStatus) {
	fmt.Fprintf(w, "  %s\n", rec.Date)
	if len(rec.Spending) == 0 {
		fmt.Fprintln(w, "  No spending")
	}
	for _, e := range rec.Spending {
		fmt.Fprintf(w, "    [%s] %-30s %10s\n", e.ID, e.Description, e.Amount)
	}
	for _, t := range rec.Tasks {
		mark := " "
		if t.Completed {
			mark = "x"
		}
		carried := ""
		if t.CarriedOver(rec.Date) {
			carried = fmt.Sprintf(" (from %s)", t.CreatedDate)
		}
		fmt.Fprintf(w, "    [%s] %s %s%s\n", mark, t.ID, t.Description, carried)
	}

	fmt.Fprintf(w, "  Spent:     %s\n", status.TotalSpent)
	if status.IsOverTarget {
		fmt.Fprintf(w, "  Due:       %s\n", status.CurrentDue)
	} else {
		fmt.Fprintf(w, "  Left:      %s\n", status.RemainingTarget)
	}
	printOptional(w, "To savings", rec.SavingsTransferred)
	printOptional(w, "Borrowed", rec.Borrowed)
	printOptional(w, "Excess", rec.ExcessSpending)
	if rec.ExcessSpendingReason != nil {
		fmt.Fprintf(w, "  Reason:    %s\n", *rec.ExcessSpendingReason)
	}
	if rec.Notes != nil && *rec.Notes != "" {
		fmt.Fprintf(w, "  Notes:     %s\n", *rec.Notes)
	}
}

func printOptional(w io.Writer, label string, m *core.Money) {
	if m == nil || m.IsZero() {
		return
	}
	fmt.Fprintf(w, "  %-10s %s\n", label+":", *m)
}

func printActionResult(w io.Writer, res services.ActionResult) {
	printRecord(w, res.Record, res.Status)
	if res.TotalSavings != nil {
		fmt.Fprintf(w, "  Savings:   %s\n", *res.TotalSavings)
	}
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "  Warning: %s\n", warn.Message)
	}
}
