package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Validate the configuration",
	Long: `Evaluates the configuration and checks every resource against its kind
schema. Reference resolution happens at plan time, so a schema-valid
configuration with a dangling reference still validates.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	wd, entryPoint, err := resolveEntry(args)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	desired, err := loadDesired(ctx, wd, entryPoint, nil)
	if err != nil {
		return err
	}

	fmt.Printf("Configuration is valid. %d resources.\n", desired.Len())
	return nil
}
