package cli

import (
	"fmt"
	"os"

	"github.com/costwatch/costwatch/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile      string
	outputFormat string
	serverURL    string
	apiClient    *client.Client
)

var rootCmd = &cobra.Command{
	Use:   "costwatch",
	Short: "CostWatch CLI - Cloud Cost Observability",
	Long: `CostWatch CLI provides command-line access to the CostWatch platform
for querying cloud spend, managing budgets, reviewing anomalies and
forecasts, and operating alert rules and webhook endpoints.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Config and token commands work without a reachable server
		if cmd.Parent() != nil && (cmd.Parent().Name() == "config" || cmd.Parent().Name() == "token") {
			return nil
		}
		return initClient()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.costwatch/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (overrides config)")

	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("server_url", rootCmd.PersistentFlags().Lookup("server"))

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newSubscriptionCmd())
	rootCmd.AddCommand(newCostCmd())
	rootCmd.AddCommand(newBudgetCmd())
	rootCmd.AddCommand(newAnomalyCmd())
	rootCmd.AddCommand(newForecastCmd())
	rootCmd.AddCommand(newAlertCmd())
	rootCmd.AddCommand(newEndpointCmd())
	rootCmd.AddCommand(newTokenCmd())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return
		}
		configDir := home + "/.costwatch"
		_ = os.MkdirAll(configDir, 0700)
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("COSTWATCH")
	viper.AutomaticEnv()

	viper.SetDefault("server_url", "http://localhost:8080")
	viper.SetDefault("output", "table")

	_ = viper.ReadInConfig()
}

func initClient() error {
	url := viper.GetString("server_url")
	if serverURL != "" {
		url = serverURL
	}

	apiClient = client.New(client.Config{
		BaseURL: url,
	})

	// Reads are open; write commands need a token, which the server
	// enforces. Attach one when configured.
	if token := viper.GetString("auth.token"); token != "" {
		apiClient.SetToken(token)
	}
	return nil
}

func getOutputFormat() string {
	if outputFormat != "" && outputFormat != "table" {
		return outputFormat
	}
	return viper.GetString("output")
}
