package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/stackform-io/stackform/internal/engine"
)

const timeRound = 10 * time.Millisecond

var (
	applyAutoApprove bool
	applyParallelism int
	applyProperties  map[string]string
)

var applyCmd = &cobra.Command{
	Use:   "apply [path]",
	Short: "Apply the configuration",
	Long: `Builds or changes infrastructure to match the configuration.

Operations run concurrently where the dependency graph allows; any resource
waits for its dependencies. State is committed after every successful
operation, so an interrupted apply leaves a consistent prefix behind.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runApply,
}

func init() {
	applyCmd.Flags().BoolVar(&applyAutoApprove, "auto-approve", false, "Skip interactive approval of plan before applying")
	applyCmd.Flags().IntVar(&applyParallelism, "parallelism", engine.DefaultParallelism, "Maximum concurrent operations")
	applyCmd.Flags().StringToStringVarP(&applyProperties, "prop", "D", nil, "Set external properties (format: key=value)")
}

func runApply(cmd *cobra.Command, args []string) error {
	wd, entryPoint, err := resolveEntry(args)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	fmt.Print("Loading configuration... ")
	desired, err := loadDesired(ctx, wd, entryPoint, applyProperties)
	if err != nil {
		fmt.Println("FAILED")
		return err
	}
	fmt.Println("OK")

	store, err := newStore(wd)
	if err != nil {
		return err
	}
	if err := store.Lock(); err != nil {
		return err
	}
	defer store.Unlock()

	applied, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to read state: %w", err)
	}

	registry := newRegistry()
	if err := loadRequiredProviders(registry, desired, applied); err != nil {
		return err
	}

	graph, err := engine.BuildGraph(desired)
	if err != nil {
		return err
	}

	fmt.Print("Calculating plan... ")
	eng := engine.New(registry)
	eng.Parallelism = applyParallelism
	cs, err := eng.Plan(desired, applied, graph)
	if err != nil {
		fmt.Println("FAILED")
		return fmt.Errorf("plan generation failed: %w", err)
	}
	fmt.Println("OK")

	if cs.Empty() {
		fmt.Println("No changes. Infrastructure is up-to-date.")
		return nil
	}

	fmt.Println("\nStackform will perform the following actions:")
	renderChangeSet(cs)
	renderSummary(cs)

	if !applyAutoApprove {
		if !confirm("Do you want to perform these actions?") {
			fmt.Println("Apply cancelled.")
			return nil
		}
	}

	fmt.Printf("\nApplying %d changes...\n", len(cs.Operations))
	eng.Callback = func(event engine.ApplyEvent) {
		switch event.Status {
		case "completed":
			fmt.Printf("%s%s: %sd (%s)%s\n", colorGreen, event.Address, event.Action, event.Duration.Round(timeRound), colorReset)
		case "failed":
			fmt.Printf("%s%s: %s failed: %v%s\n", colorRed, event.Address, event.Action, event.Error, colorReset)
		}
	}

	result, applyErr := eng.Apply(ctx, cs, graph, store)
	reportResults(result)
	if applyErr != nil {
		return fmt.Errorf("apply failed: %w", applyErr)
	}

	fmt.Printf("\nApply complete! Resources: %d added, %d changed, %d destroyed.\n",
		cs.Summary.Create+cs.Summary.Replace, cs.Summary.Update, cs.Summary.Destroy)
	return nil
}

// reportResults prints the per-resource outcome, including resources never
// attempted because the run halted.
func reportResults(result *engine.ApplyResult) {
	if result == nil {
		return
	}
	if failed := result.Failed(); failed > 0 {
		fmt.Printf("\n%d operations failed:\n", failed)
		for _, res := range result.Results {
			if res.Status == engine.StatusFailed {
				fmt.Printf("  %s: %v\n", res.Address, res.Err)
			}
		}
	}
	if pending := result.Pending(); pending > 0 {
		fmt.Printf("\n%d operations were not attempted:\n", pending)
		for _, res := range result.Results {
			if res.Status == engine.StatusPending {
				fmt.Printf("  %s\n", res.Address)
			}
		}
	}
}
