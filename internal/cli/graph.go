package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stackform-io/stackform/internal/engine"
)

var graphCmd = &cobra.Command{
	Use:   "graph [path]",
	Short: "Print the dependency graph in DOT format",
	Long: `Builds the reference graph from the configuration and prints it in
Graphviz DOT format, suitable for piping into dot -Tsvg.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGraph,
}

func runGraph(cmd *cobra.Command, args []string) error {
	wd, entryPoint, err := resolveEntry(args)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	desired, err := loadDesired(ctx, wd, entryPoint, nil)
	if err != nil {
		return err
	}
	graph, err := engine.BuildGraph(desired)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("digraph stackform {\n")
	b.WriteString("  rankdir = \"LR\";\n")
	for _, addr := range graph.CreationOrder() {
		fmt.Fprintf(&b, "  %q;\n", addr.String())
		for _, dep := range graph.Dependencies(addr) {
			fmt.Fprintf(&b, "  %q -> %q;\n", addr.String(), dep.String())
		}
	}
	b.WriteString("}\n")

	fmt.Print(b.String())
	return nil
}
