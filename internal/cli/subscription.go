package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/costwatch/costwatch/pkg/client"
	"github.com/spf13/cobra"
)

func newSubscriptionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subscription",
		Aliases: []string{"sub"},
		Short:   "Manage monitored subscriptions",
	}

	cmd.AddCommand(newSubscriptionListCmd())
	cmd.AddCommand(newSubscriptionGetCmd())
	cmd.AddCommand(newSubscriptionRegisterCmd())
	cmd.AddCommand(newSubscriptionSyncCmd())
	cmd.AddCommand(newSubscriptionDeactivateCmd())

	return cmd
}

func newSubscriptionListCmd() *cobra.Command {
	var activeOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List subscriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			subs, err := apiClient.Subscriptions().List(context.Background(), activeOnly)
			if err != nil {
				return fmt.Errorf("failed to list subscriptions: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(subs)
			}

			t := NewTable("ID", "NAME", "ACTIVE", "LAST SYNC", "SYNC STATUS")
			for _, s := range subs {
				t.AddRow(
					s.ID,
					truncate(s.DisplayName, 40),
					strconv.FormatBool(s.IsActive),
					formatTimePtr(s.LastSyncAt),
					formatStatus(s.LastSyncStatus),
				)
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&activeOnly, "active", false, "only active subscriptions")

	return cmd
}

func newSubscriptionGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get subscription details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, err := apiClient.Subscriptions().Get(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get subscription: %w", err)
			}
			return printOutput(sub)
		},
	}
}

func newSubscriptionRegisterCmd() *cobra.Command {
	var name, credentialRef string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a subscription for cost monitoring",
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, err := apiClient.Subscriptions().Register(context.Background(), client.RegisterSubscriptionRequest{
				DisplayName:   name,
				CredentialRef: credentialRef,
			})
			if err != nil {
				return fmt.Errorf("failed to register subscription: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(sub)
			}

			fmt.Printf("Registered subscription %s (%s)\n", sub.ID, sub.DisplayName)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&credentialRef, "credential-ref", "", "reference to stored provider credentials")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("credential-ref")

	return cmd
}

func newSubscriptionSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync <id>",
		Short: "Trigger an immediate sync cycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiClient.Subscriptions().SyncNow(context.Background(), args[0]); err != nil {
				return fmt.Errorf("failed to trigger sync: %w", err)
			}
			fmt.Println("Sync started")
			return nil
		},
	}
}

func newSubscriptionDeactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <id>",
		Short: "Deactivate a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiClient.Subscriptions().Deactivate(context.Background(), args[0]); err != nil {
				return fmt.Errorf("failed to deactivate subscription: %w", err)
			}
			fmt.Println("Subscription deactivated")
			return nil
		},
	}
}
