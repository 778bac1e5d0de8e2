package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/costwatch/costwatch/pkg/client"
	"github.com/spf13/cobra"
)

func newBudgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Manage budgets",
	}

	cmd.AddCommand(newBudgetListCmd())
	cmd.AddCommand(newBudgetGetCmd())
	cmd.AddCommand(newBudgetCreateCmd())
	cmd.AddCommand(newBudgetDeleteCmd())
	cmd.AddCommand(newBudgetRecomputeCmd())
	cmd.AddCommand(newBudgetForecastCmd())

	return cmd
}

func newBudgetListCmd() *cobra.Command {
	var subscriptionID, status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List budgets",
		RunE: func(cmd *cobra.Command, args []string) error {
			budgets, err := apiClient.Budgets().List(context.Background(), subscriptionID, status)
			if err != nil {
				return fmt.Errorf("failed to list budgets: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(budgets)
			}

			t := NewTable("ID", "NAME", "PERIOD", "AMOUNT", "SPEND", "STATUS")
			for _, b := range budgets {
				t.AddRow(
					b.ID,
					truncate(b.Name, 30),
					b.Period,
					formatMoney(b.Amount, b.Currency),
					fmt.Sprintf("%.2f", b.CurrentSpend),
					formatStatus(b.Status),
				)
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&subscriptionID, "subscription", "", "filter by subscription ID")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (ok, warning, exceeded)")

	return cmd
}

func newBudgetGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get budget details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			budget, err := apiClient.Budgets().Get(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get budget: %w", err)
			}
			return printOutput(budget)
		},
	}
}

func newBudgetCreateCmd() *cobra.Command {
	var (
		req        client.BudgetRequest
		thresholds []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a budget",
		Long: `Create a budget for a subscription. Thresholds are given as
PERCENT:SEVERITY pairs, for example --threshold 80:warning --threshold 100:exceeded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, spec := range thresholds {
				parts := strings.SplitN(spec, ":", 2)
				if len(parts) != 2 {
					return fmt.Errorf("invalid threshold %q, expected PERCENT:SEVERITY", spec)
				}
				var pct float64
				if _, err := fmt.Sscanf(parts[0], "%f", &pct); err != nil {
					return fmt.Errorf("invalid threshold percentage %q", parts[0])
				}
				req.Thresholds = append(req.Thresholds, client.Threshold{
					Percentage: pct,
					Severity:   parts[1],
				})
			}

			budget, err := apiClient.Budgets().Create(context.Background(), req)
			if err != nil {
				return fmt.Errorf("failed to create budget: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(budget)
			}

			fmt.Printf("Created budget %s (%s)\n", budget.ID, budget.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.SubscriptionID, "subscription", "", "subscription ID")
	cmd.Flags().StringVar(&req.Name, "name", "", "budget name")
	cmd.Flags().Float64Var(&req.Amount, "amount", 0, "budget ceiling")
	cmd.Flags().StringVar(&req.Currency, "currency", "USD", "currency code")
	cmd.Flags().StringVar(&req.Period, "period", "monthly", "period: monthly, quarterly, custom")
	cmd.Flags().StringVar(&req.PeriodStart, "period-start", "", "custom period start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.PeriodEnd, "period-end", "", "custom period end (YYYY-MM-DD)")
	cmd.Flags().StringArrayVar(&thresholds, "threshold", []string{"80:warning", "100:exceeded"}, "threshold as PERCENT:SEVERITY")
	_ = cmd.MarkFlagRequired("subscription")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func newBudgetDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiClient.Budgets().Delete(context.Background(), args[0]); err != nil {
				return fmt.Errorf("failed to delete budget: %w", err)
			}
			fmt.Println("Budget deleted")
			return nil
		},
	}
}

func newBudgetRecomputeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recompute <id>",
		Short: "Recompute a budget's spend and status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := apiClient.Budgets().Recompute(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to recompute budget: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(result)
			}

			fmt.Printf("Status: %s, current spend: %.2f\n", formatStatus(result.Status), result.CurrentSpend)
			return nil
		},
	}
}

func newBudgetForecastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forecast <id>",
		Short: "Project a budget's spend to period end",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := apiClient.Budgets().Forecast(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to forecast budget: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(fc)
			}

			fmt.Printf("Projected spend:  %.2f of %.2f (%s)\n", fc.ProjectedSpend, fc.BudgetAmount, fc.Classification)
			fmt.Printf("Current spend:    %.2f (%.2f/day over %d days)\n", fc.CurrentSpend, fc.SpendPerDayRate, fc.DaysElapsed)
			fmt.Printf("Days remaining:   %d\n", fc.DaysRemaining)
			return nil
		},
	}
}
