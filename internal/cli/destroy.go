package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stackform-io/stackform/internal/engine"
	"github.com/stackform-io/stackform/internal/ir"
)

var (
	destroyAutoApprove bool
	destroyParallelism int
)

var destroyCmd = &cobra.Command{
	Use:   "destroy [path]",
	Short: "Destroy all recorded infrastructure",
	Long: `Plans against an empty desired state, destroying every resource in
recorded state in reverse dependency order.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDestroy,
}

func init() {
	destroyCmd.Flags().BoolVar(&destroyAutoApprove, "auto-approve", false, "Skip interactive approval before destroying")
	destroyCmd.Flags().IntVar(&destroyParallelism, "parallelism", engine.DefaultParallelism, "Maximum concurrent operations")
}

func runDestroy(cmd *cobra.Command, args []string) error {
	wd, _, err := resolveEntry(args)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

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
	if err := loadRequiredProviders(registry, nil, applied); err != nil {
		return err
	}

	desired, err := ir.NewDesiredState(nil)
	if err != nil {
		return err
	}
	graph, err := engine.BuildGraph(desired)
	if err != nil {
		return err
	}

	eng := engine.New(registry)
	eng.Parallelism = destroyParallelism
	cs, err := eng.Plan(desired, applied, graph)
	if err != nil {
		return fmt.Errorf("plan generation failed: %w", err)
	}

	if cs.Empty() {
		fmt.Println("No resources to destroy.")
		return nil
	}

	fmt.Println("Stackform will destroy the following resources:")
	renderChangeSet(cs)
	renderSummary(cs)

	if !destroyAutoApprove {
		if !confirm("Do you really want to destroy all resources?") {
			fmt.Println("Destroy cancelled.")
			return nil
		}
	}

	fmt.Printf("\nDestroying %d resources...\n", len(cs.Operations))
	result, applyErr := eng.Apply(ctx, cs, graph, store)
	reportResults(result)
	if applyErr != nil {
		return fmt.Errorf("destroy failed: %w", applyErr)
	}

	fmt.Printf("\nDestroy complete! Resources: %d destroyed.\n", cs.Summary.Destroy)
	return nil
}
