package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/costwatch/costwatch/pkg/client"
	"github.com/spf13/cobra"
)

func newAlertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alert",
		Short: "Manage alert rules and alerts",
	}

	cmd.AddCommand(newRuleCmd())
	cmd.AddCommand(newAlertListCmd())
	cmd.AddCommand(newAlertGetCmd())
	cmd.AddCommand(newAlertSummaryCmd())
	cmd.AddCommand(newAlertEvaluateCmd())
	cmd.AddCommand(newAlertAcknowledgeCmd())
	cmd.AddCommand(newAlertResolveCmd())

	return cmd
}

func newRuleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Manage alert rules",
	}

	cmd.AddCommand(newRuleListCmd())
	cmd.AddCommand(newRuleGetCmd())
	cmd.AddCommand(newRuleCreateCmd())
	cmd.AddCommand(newRuleDeleteCmd())

	return cmd
}

func newRuleListCmd() *cobra.Command {
	var (
		subscriptionID string
		activeOnly     bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List alert rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := apiClient.Alerts().ListRules(context.Background(), subscriptionID, activeOnly)
			if err != nil {
				return fmt.Errorf("failed to list rules: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(rules)
			}

			t := NewTable("ID", "NAME", "TYPE", "SEVERITY", "SCOPE", "CADENCE", "ACTIVE")
			for _, r := range rules {
				scope := r.SubscriptionID
				if scope == "" {
					scope = "all"
				}
				cadence := r.Cadence
				if cadence == "" {
					cadence = "-"
				}
				t.AddRow(
					r.ID,
					truncate(r.Name, 30),
					r.RuleType,
					formatSeverity(r.Severity),
					scope,
					cadence,
					strconv.FormatBool(r.IsActive),
				)
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&subscriptionID, "subscription", "", "filter by subscription ID")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only active rules")

	return cmd
}

func newRuleGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get alert rule details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, err := apiClient.Alerts().GetRule(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get rule: %w", err)
			}
			return printOutput(rule)
		},
	}
}

func newRuleCreateCmd() *cobra.Command {
	var (
		req        client.RuleRequest
		paramsJSON string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an alert rule",
		Long: `Create an alert rule. Condition parameters are given as JSON keyed by
rule type, for example:

  --params '{"budget_threshold":{"min_status":"warning"}}'
  --params '{"anomaly":{"min_confidence":0.8,"lookback_days":7}}'
  --params '{"forecast_overrun":{"budget_id":"..."}}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := json.Unmarshal([]byte(paramsJSON), &req.Params); err != nil {
				return fmt.Errorf("invalid --params JSON: %w", err)
			}

			rule, err := apiClient.Alerts().CreateRule(context.Background(), req)
			if err != nil {
				return fmt.Errorf("failed to create rule: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(rule)
			}

			fmt.Printf("Created rule %s (%s)\n", rule.ID, rule.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.SubscriptionID, "subscription", "", "subscription scope (empty for all)")
	cmd.Flags().StringVar(&req.Name, "name", "", "rule name")
	cmd.Flags().StringVar(&req.RuleType, "type", "", "rule type: budget_threshold, anomaly, forecast_overrun")
	cmd.Flags().StringVar(&req.Severity, "severity", "medium", "alert severity: low, medium, high, critical")
	cmd.Flags().StringVar(&req.Cadence, "cadence", "", "minimum re-evaluation interval, e.g. 1h")
	cmd.Flags().StringVar(&paramsJSON, "params", "{}", "condition parameters as JSON")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func newRuleDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an alert rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiClient.Alerts().DeleteRule(context.Background(), args[0]); err != nil {
				return fmt.Errorf("failed to delete rule: %w", err)
			}
			fmt.Println("Rule deleted")
			return nil
		},
	}
}

func newAlertListCmd() *cobra.Command {
	var opts client.AlertListOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			alerts, total, err := apiClient.Alerts().List(context.Background(), &opts)
			if err != nil {
				return fmt.Errorf("failed to list alerts: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(alerts)
			}

			t := NewTable("ID", "TYPE", "SEVERITY", "STATUS", "MESSAGE", "TRIGGERED")
			for _, a := range alerts {
				t.AddRow(
					a.ID,
					a.AlertType,
					formatSeverity(a.Severity),
					formatStatus(a.Status),
					truncate(a.Message, 50),
					a.TriggeredAt.Format("2006-01-02 15:04"),
				)
			}
			t.Render()
			fmt.Printf("\n%d of %d alerts\n", len(alerts), total)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.SubscriptionID, "subscription", "", "filter by subscription ID")
	cmd.Flags().StringVar(&opts.RuleID, "rule", "", "filter by rule ID")
	cmd.Flags().StringVar(&opts.Status, "status", "", "filter by status")
	cmd.Flags().StringVar(&opts.Severity, "severity", "", "filter by severity")
	cmd.Flags().StringVar(&opts.AlertType, "type", "", "filter by alert type")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 20, "page size")

	return cmd
}

func newAlertGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get alert details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			alert, err := apiClient.Alerts().Get(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get alert: %w", err)
			}
			return printOutput(alert)
		},
	}
}

func newAlertSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show active alert counts by severity",
		RunE: func(cmd *cobra.Command, args []string) error {
			counts, err := apiClient.Alerts().Summary(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get alert summary: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(counts)
			}

			t := NewTable("SEVERITY", "ACTIVE")
			for _, sev := range []string{"critical", "high", "medium", "low"} {
				t.AddRow(formatSeverity(sev), strconv.Itoa(counts[sev]))
			}
			t.Render()
			return nil
		},
	}
}

func newAlertEvaluateCmd() *cobra.Command {
	var subscriptionID string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate all rules against a subscription now",
		RunE: func(cmd *cobra.Command, args []string) error {
			alerts, err := apiClient.Alerts().Evaluate(context.Background(), subscriptionID)
			if err != nil {
				return fmt.Errorf("failed to evaluate rules: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(alerts)
			}

			fmt.Printf("%d alerts active after evaluation\n", len(alerts))
			return nil
		},
	}

	cmd.Flags().StringVar(&subscriptionID, "subscription", "", "subscription ID")
	_ = cmd.MarkFlagRequired("subscription")

	return cmd
}

func newAlertAcknowledgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "acknowledge <id>",
		Aliases: []string{"ack"},
		Short:   "Acknowledge an alert",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiClient.Alerts().Acknowledge(context.Background(), args[0]); err != nil {
				return fmt.Errorf("failed to acknowledge alert: %w", err)
			}
			fmt.Println("Alert acknowledged")
			return nil
		},
	}
}

func newAlertResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <id>",
		Short: "Resolve an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiClient.Alerts().Resolve(context.Background(), args[0]); err != nil {
				return fmt.Errorf("failed to resolve alert: %w", err)
			}
			fmt.Println("Alert resolved")
			return nil
		},
	}
}
