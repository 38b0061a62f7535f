package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stackform-io/stackform/internal/engine"
)

var planProperties map[string]string

var planCmd = &cobra.Command{
	Use:   "plan [path]",
	Short: "Show the changes required to reach the desired state",
	Long: `Evaluates the configuration, diffs it against recorded state, and
prints the resulting change-set without executing anything.

The plan shows:
  • Resources to be created
  • Resources to be updated or replaced (with changed attributes)
  • Resources to be destroyed`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringToStringVarP(&planProperties, "prop", "D", nil, "Set external properties (format: key=value)")
}

func runPlan(cmd *cobra.Command, args []string) error {
	wd, entryPoint, err := resolveEntry(args)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	fmt.Print("Loading configuration... ")
	desired, err := loadDesired(ctx, wd, entryPoint, planProperties)
	if err != nil {
		fmt.Println("FAILED")
		return err
	}
	fmt.Println("OK")

	store, err := newStore(wd)
	if err != nil {
		return err
	}
	applied, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to read state: %w", err)
	}

	graph, err := engine.BuildGraph(desired)
	if err != nil {
		return err
	}

	fmt.Print("Calculating plan... ")
	eng := engine.New(newRegistry())
	cs, err := eng.Plan(desired, applied, graph)
	if err != nil {
		fmt.Println("FAILED")
		return fmt.Errorf("plan generation failed: %w", err)
	}
	fmt.Println("OK")

	if cs.Empty() {
		fmt.Println("\nNo changes. Infrastructure is up-to-date.")
		return nil
	}

	fmt.Println("\nStackform will perform the following actions:")
	renderChangeSet(cs)
	renderSummary(cs)
	return nil
}
