package cli

import (
	"context"
	"fmt"

	"github.com/costwatch/costwatch/pkg/client"
	"github.com/spf13/cobra"
)

func newForecastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "View and generate spend forecasts",
	}

	cmd.AddCommand(newForecastListCmd())
	cmd.AddCommand(newForecastGenerateCmd())

	return cmd
}

func forecastTable(forecasts []client.Forecast) {
	t := NewTable("DATE", "PREDICTED", "LOWER", "UPPER", "MODEL", "ACCURACY")
	for _, f := range forecasts {
		accuracy := "-"
		if f.Accuracy != nil {
			accuracy = fmt.Sprintf("%.2f", *f.Accuracy)
		}
		t.AddRow(
			formatDate(f.ForecastDate),
			fmt.Sprintf("%.2f", f.Predicted),
			fmt.Sprintf("%.2f", f.LowerBound),
			fmt.Sprintf("%.2f", f.UpperBound),
			f.ModelType,
			accuracy,
		)
	}
	t.Render()
}

func newForecastListCmd() *cobra.Command {
	var opts client.ForecastListOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored forecasts",
		RunE: func(cmd *cobra.Command, args []string) error {
			forecasts, err := apiClient.Forecasts().List(context.Background(), &opts)
			if err != nil {
				return fmt.Errorf("failed to list forecasts: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(forecasts)
			}

			forecastTable(forecasts)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.SubscriptionID, "subscription", "", "filter by subscription ID")
	cmd.Flags().StringVar(&opts.ModelType, "model", "", "filter by model type")
	cmd.Flags().StringVar(&opts.From, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.To, "to", "", "end date (YYYY-MM-DD)")

	return cmd
}

func newForecastGenerateCmd() *cobra.Command {
	var req client.GenerateForecastRequest

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate fresh forecasts for a subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			forecasts, err := apiClient.Forecasts().Generate(context.Background(), req)
			if err != nil {
				return fmt.Errorf("failed to generate forecasts: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(forecasts)
			}

			forecastTable(forecasts)
			fmt.Printf("\n%d forecasts generated\n", len(forecasts))
			return nil
		},
	}

	cmd.Flags().StringVar(&req.SubscriptionID, "subscription", "", "subscription ID")
	cmd.Flags().IntVar(&req.HorizonDays, "horizon", 0, "forecast horizon in days (default server setting)")
	cmd.Flags().StringVar(&req.ModelType, "model", "", "model type: linear, seasonal (default best by accuracy)")
	_ = cmd.MarkFlagRequired("subscription")

	return cmd
}
