package cli

import (
	"context"
	"fmt"

	"github.com/costwatch/costwatch/pkg/client"
	"github.com/spf13/cobra"
)

func newCostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cost",
		Short: "Query cost data",
	}

	cmd.AddCommand(newCostQueryCmd())
	cmd.AddCommand(newCostDailyCmd())

	return cmd
}

func costQueryFlags(cmd *cobra.Command, opts *client.CostQueryOptions) {
	cmd.Flags().StringVar(&opts.From, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.To, "to", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.ServiceName, "service", "", "filter by service name")
	cmd.Flags().StringVar(&opts.ResourceGroup, "resource-group", "", "filter by resource group")
	cmd.Flags().StringVar(&opts.Currency, "currency", "", "filter by currency code")
}

func newCostQueryCmd() *cobra.Command {
	var (
		subscriptionID string
		opts           client.CostQueryOptions
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query cost records for a subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := apiClient.Costs().Query(context.Background(), subscriptionID, &opts)
			if err != nil {
				return fmt.Errorf("failed to query costs: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(records)
			}

			t := NewTable("DATE", "SERVICE", "RESOURCE GROUP", "AMOUNT", "ANOMALY")
			var total float64
			for _, r := range records {
				anomaly := ""
				if r.IsAnomaly {
					anomaly = "[!]"
				}
				t.AddRow(
					formatDate(r.Date),
					truncate(r.ServiceName, 30),
					truncate(r.ResourceGroup, 30),
					formatMoney(r.Amount, r.Currency),
					anomaly,
				)
				total += r.Amount
			}
			t.Render()
			fmt.Printf("\n%d records, total %.2f\n", len(records), total)
			return nil
		},
	}

	cmd.Flags().StringVar(&subscriptionID, "subscription", "", "subscription ID")
	_ = cmd.MarkFlagRequired("subscription")
	costQueryFlags(cmd, &opts)
	cmd.Flags().BoolVar(&opts.AnomaliesOnly, "anomalies-only", false, "only records flagged as anomalous")

	return cmd
}

func newCostDailyCmd() *cobra.Command {
	var (
		subscriptionID string
		opts           client.CostQueryOptions
	)

	cmd := &cobra.Command{
		Use:   "daily",
		Short: "Show daily spend totals for a subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			totals, err := apiClient.Costs().DailyTotals(context.Background(), subscriptionID, &opts)
			if err != nil {
				return fmt.Errorf("failed to get daily totals: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(totals)
			}

			t := NewTable("DATE", "TOTAL")
			for _, d := range totals {
				t.AddRow(formatDate(d.Date), fmt.Sprintf("%.2f", d.Total))
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&subscriptionID, "subscription", "", "subscription ID")
	_ = cmd.MarkFlagRequired("subscription")
	costQueryFlags(cmd, &opts)

	return cmd
}
