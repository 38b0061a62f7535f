package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show [path]",
	Short: "Show the recorded state",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	wd, _, err := resolveEntry(args)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	store, err := newStore(wd)
	if err != nil {
		return err
	}
	applied, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to read state: %w", err)
	}

	if len(applied.Resources) == 0 {
		fmt.Println("The state is empty.")
		return nil
	}

	fmt.Printf("Serial: %d, Lineage: %s\n", applied.Serial, applied.Lineage)
	for _, addr := range applied.Addresses() {
		entry := applied.Get(addr)
		if entry == nil {
			continue
		}
		fmt.Printf("\nresource %q %q {\n", entry.Kind, entry.Name)
		fmt.Printf("    id = %q\n", entry.ID)
		for _, name := range sortedMapKeys(entry.Inputs) {
			fmt.Printf("    %s = %s\n", name, formatValue(entry.Inputs[name]))
		}
		for _, name := range sortedMapKeys(entry.Outputs) {
			fmt.Printf("    # %s = %s\n", name, formatValue(entry.Outputs[name]))
		}
		if len(entry.Dependencies) > 0 {
			fmt.Printf("    dependsOn = %v\n", entry.Dependencies)
		}
		fmt.Println("}")
	}
	return nil
}
