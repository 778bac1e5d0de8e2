package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/costwatch/costwatch/pkg/client"
	"github.com/spf13/cobra"
)

func newAnomalyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "anomaly",
		Short: "Review and manage cost anomalies",
	}

	cmd.AddCommand(newAnomalyListCmd())
	cmd.AddCommand(newAnomalyDetectCmd())
	cmd.AddCommand(newAnomalyAckCmd())

	return cmd
}

func newAnomalyListCmd() *cobra.Command {
	var opts client.AnomalyListOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List detected anomalies",
		RunE: func(cmd *cobra.Command, args []string) error {
			anomalies, total, err := apiClient.Anomalies().List(context.Background(), &opts)
			if err != nil {
				return fmt.Errorf("failed to list anomalies: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(anomalies)
			}

			t := NewTable("ID", "DATE", "SERVICE", "OBSERVED", "EXPECTED", "CONFIDENCE", "METHOD", "ACK")
			for _, a := range anomalies {
				t.AddRow(
					a.ID,
					formatDate(a.Date),
					truncate(a.ServiceName, 25),
					fmt.Sprintf("%.2f", a.ObservedAmount),
					fmt.Sprintf("%.2f", a.ExpectedAmount),
					fmt.Sprintf("%.2f", a.Confidence),
					a.DetectionMethod,
					strconv.FormatBool(a.Acknowledged),
				)
			}
			t.Render()
			fmt.Printf("\n%d of %d anomalies\n", len(anomalies), total)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.SubscriptionID, "subscription", "", "filter by subscription ID")
	cmd.Flags().StringVar(&opts.ServiceName, "service", "", "filter by service name")
	cmd.Flags().StringVar(&opts.Method, "method", "", "filter by detection method")
	cmd.Flags().BoolVar(&opts.Unacknowledged, "unacknowledged", false, "only unacknowledged anomalies")
	cmd.Flags().Float64Var(&opts.MinConfidence, "min-confidence", 0, "minimum confidence score")
	cmd.Flags().StringVar(&opts.From, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.To, "to", "", "end date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 20, "page size")

	return cmd
}

func newAnomalyDetectCmd() *cobra.Command {
	var req client.DetectAnomaliesRequest

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Run anomaly detection on demand",
		RunE: func(cmd *cobra.Command, args []string) error {
			anomalies, err := apiClient.Anomalies().Detect(context.Background(), req)
			if err != nil {
				return fmt.Errorf("failed to run detection: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(anomalies)
			}

			if len(anomalies) == 0 {
				fmt.Println("No anomalies detected")
				return nil
			}

			t := NewTable("DATE", "SERVICE", "OBSERVED", "EXPECTED", "CONFIDENCE", "METHOD")
			for _, a := range anomalies {
				t.AddRow(
					formatDate(a.Date),
					truncate(a.ServiceName, 25),
					fmt.Sprintf("%.2f", a.ObservedAmount),
					fmt.Sprintf("%.2f", a.ExpectedAmount),
					fmt.Sprintf("%.2f", a.Confidence),
					a.DetectionMethod,
				)
			}
			t.Render()
			fmt.Printf("\n%d anomalies detected\n", len(anomalies))
			return nil
		},
	}

	cmd.Flags().StringVar(&req.SubscriptionID, "subscription", "", "subscription ID")
	cmd.Flags().StringVar(&req.From, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.To, "to", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&req.Methods, "method", nil, "detection methods to run (default all)")
	_ = cmd.MarkFlagRequired("subscription")

	return cmd
}

func newAnomalyAckCmd() *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "acknowledge <id>",
		Short: "Acknowledge an anomaly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiClient.Anomalies().Acknowledge(context.Background(), args[0], note); err != nil {
				return fmt.Errorf("failed to acknowledge anomaly: %w", err)
			}
			fmt.Println("Anomaly acknowledged")
			return nil
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "analyst note")

	return cmd
}
