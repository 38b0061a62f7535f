package cli

import (
	"github.com/spf13/cobra"

	"github.com/stackform-io/stackform/internal/logging"
)

var (
	logLevel string

	stateBackend   string
	stateFile      string
	stateBucket    string
	stateKey       string
	stateRegion    string
	stateLockTable string
)

var rootCmd = &cobra.Command{
	Use:   "stackform",
	Short: "Declarative infrastructure reconciliation",
	Long: `Stackform reconciles declared infrastructure against recorded state.

It evaluates a PKL configuration into a set of desired resources, diffs them
against the last applied state, and executes the resulting plan in dependency
order with bounded parallelism.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(logLevel)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&stateBackend, "state-backend", "local", "State backend (local or s3)")
	rootCmd.PersistentFlags().StringVar(&stateFile, "state-file", "", "Local state file path (default .stackform/state.json)")
	rootCmd.PersistentFlags().StringVar(&stateBucket, "state-bucket", "", "S3 bucket for remote state")
	rootCmd.PersistentFlags().StringVar(&stateKey, "state-key", "stackform/state.json", "S3 object key for remote state")
	rootCmd.PersistentFlags().StringVar(&stateRegion, "state-region", "", "AWS region of the state bucket")
	rootCmd.PersistentFlags().StringVar(&stateLockTable, "state-lock-table", "", "DynamoDB table for state locking")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(destroyCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(versionCmd)
}
