package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/costwatch/costwatch/pkg/client"
	"github.com/spf13/cobra"
)

func newEndpointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "endpoint",
		Short: "Manage webhook endpoints",
	}

	cmd.AddCommand(newEndpointListCmd())
	cmd.AddCommand(newEndpointCreateCmd())
	cmd.AddCommand(newEndpointDeleteCmd())
	cmd.AddCommand(newEndpointActivateCmd())
	cmd.AddCommand(newEndpointTestCmd())
	cmd.AddCommand(newDeliveryListCmd())

	return cmd
}

func newEndpointListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List webhook endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoints, err := apiClient.Endpoints().List(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list endpoints: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(endpoints)
			}

			t := NewTable("ID", "NAME", "URL", "ACTIVE", "FAILURES", "LAST DELIVERED")
			for _, e := range endpoints {
				t.AddRow(
					e.ID,
					truncate(e.Name, 30),
					truncate(e.URL, 50),
					strconv.FormatBool(e.IsActive),
					strconv.Itoa(e.ConsecutiveFailures),
					formatTimePtr(e.LastDeliveredAt),
				)
			}
			t.Render()
			return nil
		},
	}
}

func newEndpointCreateCmd() *cobra.Command {
	var req client.CreateEndpointRequest

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a webhook endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint, err := apiClient.Endpoints().Create(context.Background(), req)
			if err != nil {
				return fmt.Errorf("failed to create endpoint: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(endpoint)
			}

			fmt.Printf("Created endpoint %s (%s)\n", endpoint.ID, endpoint.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "endpoint name")
	cmd.Flags().StringVar(&req.URL, "url", "", "delivery URL")
	cmd.Flags().StringVar(&req.Secret, "secret", "", "HMAC signing secret (min 16 characters)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("secret")

	return cmd
}

func newEndpointDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a webhook endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiClient.Endpoints().Delete(context.Background(), args[0]); err != nil {
				return fmt.Errorf("failed to delete endpoint: %w", err)
			}
			fmt.Println("Endpoint deleted")
			return nil
		},
	}
}

func newEndpointActivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate <id>",
		Short: "Reactivate a disabled endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint, err := apiClient.Endpoints().Activate(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to activate endpoint: %w", err)
			}
			fmt.Printf("Endpoint %s is active\n", endpoint.ID)
			return nil
		},
	}
}

func newEndpointTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test <id>",
		Short: "Send a test event to an endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			delivery, err := apiClient.Endpoints().Test(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to send test event: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(delivery)
			}

			fmt.Printf("Test delivery %s: %s", delivery.ID, formatStatus(delivery.Status))
			if delivery.LastStatus > 0 {
				fmt.Printf(" (HTTP %d, %dms)", delivery.LastStatus, delivery.LastLatencyMs)
			}
			if delivery.LastError != "" {
				fmt.Printf(" error: %s", delivery.LastError)
			}
			fmt.Println()
			return nil
		},
	}
}

func newDeliveryListCmd() *cobra.Command {
	var opts client.DeliveryListOptions

	cmd := &cobra.Command{
		Use:   "deliveries",
		Short: "List webhook delivery attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			deliveries, total, err := apiClient.Endpoints().Deliveries(context.Background(), &opts)
			if err != nil {
				return fmt.Errorf("failed to list deliveries: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(deliveries)
			}

			t := NewTable("ID", "ENDPOINT", "EVENT", "STATUS", "ATTEMPTS", "LAST HTTP", "DELIVERED")
			for _, d := range deliveries {
				httpStatus := "-"
				if d.LastStatus > 0 {
					httpStatus = strconv.Itoa(d.LastStatus)
				}
				t.AddRow(
					d.ID,
					d.EndpointID,
					d.EventType,
					formatStatus(d.Status),
					strconv.Itoa(d.Attempts),
					httpStatus,
					formatTimePtr(d.DeliveredAt),
				)
			}
			t.Render()
			fmt.Printf("\n%d of %d deliveries\n", len(deliveries), total)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.EndpointID, "endpoint", "", "filter by endpoint ID")
	cmd.Flags().StringVar(&opts.Status, "status", "", "filter by delivery status")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 20, "page size")

	return cmd
}
