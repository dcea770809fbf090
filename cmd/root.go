package cmd

import (
	"os"
	"strings"

	"github.com/NFTX-project/accounting/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "accounting",
	Short: "Replays NFTX vault staking history to audit fee distribution and claims",
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	initConfig(rootCmd)

	rootCmd.PersistentFlags().Bool(config.Debug, false, `"true" or "false"`)

	rootCmd.PersistentFlags().Bool(config.DatabaseEnabled, false, `Persist every run to PostgreSQL`)
	rootCmd.PersistentFlags().String(config.DatabaseHost, "localhost", `PostgreSQL host`)
	rootCmd.PersistentFlags().Int(config.DatabasePort, 5432, `PostgreSQL port`)
	rootCmd.PersistentFlags().String(config.DatabaseUser, "accounting", `PostgreSQL username`)
	rootCmd.PersistentFlags().String(config.DatabasePassword, "", `PostgreSQL password`)
	rootCmd.PersistentFlags().String(config.DatabaseDbName, "accounting", `PostgreSQL database name`)
	rootCmd.PersistentFlags().String(config.DatabaseSchemaName, "", `PostgreSQL schema name (default "public")`)
	rootCmd.PersistentFlags().String(config.DatabaseSSLMode, "disable", `PostgreSQL ssl mode (disable, require, verify-ca, verify-full)`)
	rootCmd.PersistentFlags().String(config.DatabaseSSLCert, "", `Path to the client certificate`)
	rootCmd.PersistentFlags().String(config.DatabaseSSLKey, "", `Path to the client private key`)
	rootCmd.PersistentFlags().String(config.DatabaseSSLRootCert, "", `Path to the root certificate`)

	rootCmd.PersistentFlags().Bool(config.DataDogStatsdEnabled, false, `e.g. "true" or "false"`)
	rootCmd.PersistentFlags().String(config.DataDogStatsdUrl, "", `e.g. "localhost:8125"`)
	rootCmd.PersistentFlags().Bool(config.DataDogTracingEnabled, false, `e.g. "true" or "false"`)

	rootCmd.PersistentFlags().Bool(config.PrometheusEnabled, false, `e.g. "true" or "false"`)
	rootCmd.PersistentFlags().String(config.PrometheusTextfilePath, "", `Write metrics to this file for the node-exporter textfile collector when the run ends`)

	// setup sub commands
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(runVersionCmd)

	// bind any subcommand flags
	replayCmd.PersistentFlags().String(config.InputLocation, "", `Directory or http(s) base URL of the subgraph export`)
	replayCmd.PersistentFlags().Bool(config.InputIncludeZapWithdrawals, false, `Replay zap withdrawals as plain withdrawals instead of dropping them`)
	replayCmd.PersistentFlags().Bool(config.InputStrictAddresses, false, `Reject records whose addresses are not 20-byte hex`)
	replayCmd.PersistentFlags().String(config.OutputDir, "./output", `Directory the report artifacts are written to`)
	replayCmd.PersistentFlags().String(config.ReportTickersFile, "", `Path to a tickers.yaml file`)
	replayCmd.PersistentFlags().String(config.ReportExcludedAddresses, "", `Comma separated addresses left out of the owed CSVs`)
	replayCmd.PersistentFlags().Int(config.ReplayParallelism, 0, `Number of vaults replayed concurrently (0 or 1 replays sequentially)`)
	replayCmd.PersistentFlags().Bool(config.ReplayProgress, false, `Show a progress bar while replaying`)

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		key := config.KebabToSnakeCase(f.Name)
		viper.BindPFlag(key, f) //nolint:errcheck
		viper.BindEnv(key)      //nolint:errcheck
	})
}

func initConfig(cmd *cobra.Command) {
	viper.SetEnvPrefix(config.ENV_PREFIX)

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.AutomaticEnv()
}

// bindCommandFlags binds a subcommand's own flags the same way init binds the
// persistent ones.
func bindCommandFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key := config.KebabToSnakeCase(f.Name)
		viper.BindPFlag(key, f) //nolint:errcheck
		viper.BindEnv(key)      //nolint:errcheck
	})
}
