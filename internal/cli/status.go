package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show platform status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if getOutputFormat() != "table" {
				summary := map[string]interface{}{}

				if health, err := apiClient.Health(ctx); err == nil {
					summary["health"] = health["status"]
				}
				if ready, err := apiClient.Ready(ctx); err == nil {
					summary["database"] = ready["database"]
				}
				if subs, err := apiClient.Subscriptions().List(ctx, true); err == nil {
					summary["active_subscriptions"] = len(subs)
				}
				if counts, err := apiClient.Alerts().Summary(ctx); err == nil {
					summary["alerts"] = counts
				}
				return printOutput(summary)
			}

			fmt.Println("CostWatch Status")
			fmt.Println(strings.Repeat("=", 40))

			health, err := apiClient.Health(ctx)
			if err != nil {
				fmt.Printf("  Server:        (error: %v)\n", err)
			} else {
				fmt.Printf("  Server:        %s\n", health["status"])
			}

			ready, err := apiClient.Ready(ctx)
			if err != nil {
				fmt.Printf("  Database:      (error: %v)\n", err)
			} else {
				fmt.Printf("  Database:      %s\n", ready["database"])
			}

			subs, err := apiClient.Subscriptions().List(ctx, false)
			if err != nil {
				fmt.Printf("  Subscriptions: (error: %v)\n", err)
			} else {
				active := 0
				for _, s := range subs {
					if s.IsActive {
						active++
					}
				}
				fmt.Printf("  Subscriptions: %d active (%d total)\n", active, len(subs))
			}

			counts, err := apiClient.Alerts().Summary(ctx)
			if err != nil {
				fmt.Printf("  Alerts:        (error: %v)\n", err)
			} else if len(counts) == 0 {
				fmt.Println("  Alerts:        none active")
			} else {
				fmt.Println("  Alerts:")
				for _, sev := range []string{"critical", "high", "medium", "low"} {
					if n, ok := counts[sev]; ok && n > 0 {
						fmt.Printf("    %-12s %d\n", formatSeverity(sev), n)
					}
				}
			}

			return nil
		},
	}
}
