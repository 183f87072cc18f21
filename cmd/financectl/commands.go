package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"financeflow/internal/core"
	"financeflow/internal/lifecycle"
)

func (a *app) setupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup <monthly-credit> <daily-target>",
		Short: "Start the current month; savings carry over",
		Args:  cobra.ExactArgs(2),
		RunE: a.withBudget(func(ctx context.Context, _ *cobra.Command, args []string) error {
			credit, err := core.ParseMoney(args[0])
			if err != nil {
				return fmt.Errorf("monthly credit: %w", err)
			}
			target, err := core.ParseMoney(args[1])
			if err != nil {
				return fmt.Errorf("daily target: %w", err)
			}
			sum, err := a.budget.SetupMonth(ctx, a.profile.User, credit, target)
			if err != nil {
				return err
			}
			if a.flagJSON {
				return printJSON(a.env.out, sum)
			}
			printSummary(a.env.out, sum)
			return nil
		}),
	}
}

func (a *app) overviewCmd() *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "overview",
		Short: "Reconcile a month",
		Args:  cobra.NoArgs,
		RunE: a.withBudget(func(ctx context.Context, _ *cobra.Command, _ []string) error {
			var m core.Month
			if month != "" {
				var err error
				if m, err = core.ParseMonth(month); err != nil {
					return err
				}
			}
			ov, err := a.budget.Overview(ctx, a.profile.User, m)
			if err != nil {
				return err
			}
			if a.flagJSON {
				return printJSON(a.env.out, ov)
			}
			printOverview(a.env.out, ov)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&month, "month", "m", "", "Month to reconcile, YYYY-MM (default: summary month)")
	return cmd
}

func (a *app) dayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "day",
		Short: "Show a day, carrying over open tasks",
		Args:  cobra.NoArgs,
		RunE: a.withBudget(func(ctx context.Context, _ *cobra.Command, _ []string) error {
			date, err := a.date()
			if err != nil {
				return err
			}
			view, err := a.budget.Day(ctx, a.profile.User, date)
			if err != nil {
				return err
			}
			if a.flagJSON {
				return printJSON(a.env.out, view)
			}
			printRecord(a.env.out, view.Record, view.Status)
			return nil
		}),
	}
}

// amountAction builds a command taking one amount argument.
func (a *app) amountAction(use, short string, kind lifecycle.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: a.withBudget(func(ctx context.Context, _ *cobra.Command, args []string) error {
			amount, err := core.ParseMoney(args[0])
			if err != nil {
				return err
			}
			return a.apply(ctx, lifecycle.Action{Kind: kind, Amount: amount})
		}),
	}
}

// idAction builds a command taking one entry or task id.
func (a *app) idAction(use, short string, kind lifecycle.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: a.withBudget(func(ctx context.Context, _ *cobra.Command, args []string) error {
			return a.apply(ctx, lifecycle.Action{Kind: kind, ID: args[0]})
		}),
	}
}

// noArgAction builds a command with no arguments.
func (a *app) noArgAction(use, short string, kind lifecycle.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: a.withBudget(func(ctx context.Context, _ *cobra.Command, _ []string) error {
			return a.apply(ctx, lifecycle.Action{Kind: kind})
		}),
	}
}

func (a *app) spendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "spend <amount> <description...>",
		Short: "Log a spending entry",
		Args:  cobra.MinimumNArgs(2),
		RunE: a.withBudget(func(ctx context.Context, _ *cobra.Command, args []string) error {
			amount, err := core.ParseMoney(args[0])
			if err != nil {
				return err
			}
			return a.apply(ctx, lifecycle.Action{
				Kind:        lifecycle.KindAddSpending,
				Amount:      amount,
				Description: strings.Join(args[1:], " "),
			})
		}),
	}
}

func (a *app) unspendCmd() *cobra.Command {
	return a.idAction("unspend <entry-id>", "Delete a spending entry", lifecycle.KindDeleteSpending)
}

func (a *app) taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage the day's tasks",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <description...>",
			Short: "Add a task",
			Args:  cobra.MinimumNArgs(1),
			RunE: a.withBudget(func(ctx context.Context, _ *cobra.Command, args []string) error {
				return a.apply(ctx, lifecycle.Action{Kind: lifecycle.KindAddTask, Description: strings.Join(args, " ")})
			}),
		},
		a.idAction("toggle <task-id>", "Flip a task's completion", lifecycle.KindToggleTask),
		a.idAction("delete <task-id>", "Delete a task", lifecycle.KindDeleteTask),
	)
	return cmd
}

func (a *app) transferCmd() *cobra.Command {
	return a.amountAction("transfer <amount>", "Move unspent target into savings", lifecycle.KindTransfer)
}

func (a *app) borrowCmd() *cobra.Command {
	cmd := a.amountAction("borrow <amount>", "Borrow from savings for the day", lifecycle.KindBorrow)
	cmd.AddCommand(
		a.amountAction("edit <amount>", "Replace the day's borrowed amount", lifecycle.KindEditBorrowed),
		a.noArgAction("delete", "Remove the day's borrowing and restore savings", lifecycle.KindDeleteBorrowed),
	)
	return cmd
}

func (a *app) excessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "excess <amount> <reason...>",
		Short: "Record spending beyond the daily target, paid from remaining credit",
		Args:  cobra.MinimumNArgs(2),
		RunE: a.withBudget(func(ctx context.Context, _ *cobra.Command, args []string) error {
			amount, err := core.ParseMoney(args[0])
			if err != nil {
				return err
			}
			return a.apply(ctx, lifecycle.Action{
				Kind:   lifecycle.KindExcessSpending,
				Amount: amount,
				Text:   strings.Join(args[1:], " "),
			})
		}),
	}
}

func (a *app) dueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "due",
		Short: "Manage the amount due over the daily target",
	}
	cmd.AddCommand(
		a.noArgAction("clear", "Pay off the day's due", lifecycle.KindClearDue),
		a.amountAction("set <amount>", "Set the day's due", lifecycle.KindSetDue),
	)
	return cmd
}

func (a *app) notesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notes [text...]",
		Short: "Replace the day's notes",
		RunE: a.withBudget(func(ctx context.Context, _ *cobra.Command, args []string) error {
			return a.apply(ctx, lifecycle.Action{Kind: lifecycle.KindSetNotes, Text: strings.Join(args, " ")})
		}),
	}
}
