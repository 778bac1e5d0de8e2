package cli

import (
	"fmt"
	"time"

	"github.com/costwatch/costwatch/internal/auth"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API tokens",
	}

	cmd.AddCommand(newTokenMintCmd())
	cmd.AddCommand(newTokenSetCmd())

	return cmd
}

func newTokenMintCmd() *cobra.Command {
	var (
		actor  string
		email  string
		secret string
		ttl    time.Duration
		save   bool
	)

	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint a development token signed with the server's secret",
		Long: `Mint a short-lived HS256 token for local development. The signing
secret must match the server's JWT_SECRET. Production deployments
should obtain tokens from the identity service instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = viper.GetString("jwt_secret")
			}
			if secret == "" {
				return fmt.Errorf("signing secret is required (--secret or COSTWATCH_JWT_SECRET)")
			}
			if actor == "" {
				return fmt.Errorf("actor is required")
			}

			token, err := auth.MintToken(actor, email, secret, ttl)
			if err != nil {
				return fmt.Errorf("failed to mint token: %w", err)
			}

			if save {
				viper.Set("auth.token", token)
				return writeConfigFile()
			}

			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "", "actor identity to embed in the token")
	cmd.Flags().StringVar(&email, "email", "", "actor email")
	cmd.Flags().StringVar(&secret, "secret", "", "HS256 signing secret")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	cmd.Flags().BoolVar(&save, "save", false, "store the token in the CLI config")

	return cmd
}

func newTokenSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <token>",
		Short: "Store an API token in the CLI config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			viper.Set("auth.token", args[0])
			return writeConfigFile()
		},
	}
}
