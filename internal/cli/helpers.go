package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/stackform-io/stackform/internal/eval"
	"github.com/stackform-io/stackform/internal/ir"
	"github.com/stackform-io/stackform/internal/provider"
	"github.com/stackform-io/stackform/internal/state"
	awsprovider "github.com/stackform-io/stackform/providers/aws"
	nullprovider "github.com/stackform-io/stackform/providers/null"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
)

// resolveEntry determines the project directory and PKL entry point from an
// optional positional argument (a directory or a file).
func resolveEntry(args []string) (wd string, entryPoint string, err error) {
	wd, err = os.Getwd()
	if err != nil {
		return "", "", fmt.Errorf("failed to get working directory: %w", err)
	}
	entryPoint = "main.pkl"

	if len(args) > 0 {
		absPath, err := filepath.Abs(args[0])
		if err != nil {
			return "", "", fmt.Errorf("failed to resolve path %s: %w", args[0], err)
		}
		info, err := os.Stat(absPath)
		if err != nil {
			return "", "", fmt.Errorf("failed to stat path %s: %w", args[0], err)
		}
		if info.IsDir() {
			wd = absPath
		} else {
			wd = filepath.Dir(absPath)
			entryPoint = filepath.Base(absPath)
		}
	}
	return wd, entryPoint, nil
}

// loadDesired evaluates the configuration and builds the validated desired
// state out of it.
func loadDesired(ctx context.Context, wd, entryPoint string, properties map[string]string) (*ir.DesiredState, error) {
	evaluator := eval.NewEvaluator(wd)
	cfg, err := evaluator.LoadConfig(ctx, entryPoint, properties)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return eval.BuildDesiredState(cfg)
}

// newStore builds the state store from the global backend flags.
func newStore(wd string) (state.Store, error) {
	cfg := state.Config{
		Type:          stateBackend,
		Path:          stateFile,
		Bucket:        stateBucket,
		Key:           stateKey,
		Region:        stateRegion,
		DynamoDBTable: stateLockTable,
	}
	if (cfg.Type == "" || cfg.Type == "local") && cfg.Path == "" {
		cfg.Path = filepath.Join(wd, ".stackform", "state.json")
	}
	return state.NewStore(cfg)
}

// newRegistry registers the built-in providers.
func newRegistry() *provider.Registry {
	registry := provider.NewRegistry()
	registry.Register("aws", func() provider.Client { return awsprovider.New() })
	registry.Register("null", func() provider.Client { return nullprovider.New() })
	return registry
}

// loadRequiredProviders loads every provider referenced by the desired
// resources or by resources already recorded in state. State entries matter
// for destroys of resources no longer declared.
func loadRequiredProviders(registry *provider.Registry, desired *ir.DesiredState, applied *ir.AppliedState) error {
	seen := make(map[string]bool)
	load := func(kind string) error {
		name := provider.ProviderName(kind)
		if name == "" || seen[name] {
			return nil
		}
		seen[name] = true
		if err := registry.Load(name); err != nil {
			return fmt.Errorf("failed to load provider %s: %w", name, err)
		}
		return nil
	}

	if desired != nil {
		for _, res := range desired.Resources() {
			if err := load(res.Kind); err != nil {
				return err
			}
		}
	}
	if applied != nil {
		for _, addr := range applied.Addresses() {
			entry := applied.Get(addr)
			if entry == nil {
				continue
			}
			if err := load(entry.Kind); err != nil {
				return err
			}
		}
	}
	return nil
}

func actionSymbol(action ir.Action) (symbol, color string) {
	switch action {
	case ir.ActionCreate:
		return "+", colorGreen
	case ir.ActionDestroy:
		return "-", colorRed
	case ir.ActionReplace:
		return "-/+", colorYellow
	default:
		return "~", colorYellow
	}
}

// renderChangeSet prints the detailed change list.
func renderChangeSet(cs *ir.ChangeSet) {
	for _, op := range cs.Operations {
		symbol, color := actionSymbol(op.Action)

		fmt.Printf("\n%s  # %s will be %sd%s\n", color, op.Address, op.Action, colorReset)
		if op.Reason != "" {
			fmt.Printf("%s  # (%s)%s\n", color, op.Reason, colorReset)
		}
		fmt.Printf("%s  %s resource %q %q {%s\n", color, symbol, op.Address.Kind, op.Address.Name, colorReset)

		switch op.Action {
		case ir.ActionCreate:
			for _, name := range sortedAttrNames(op.Desired.Attributes) {
				fmt.Printf("%s      + %s = %s%s\n", colorGreen, name, formatValue(ir.Interface(op.Desired.Attributes[name])), colorReset)
			}
		case ir.ActionDestroy:
			for _, name := range sortedMapKeys(op.Prior.Inputs) {
				fmt.Printf("%s      - %s = %s%s\n", colorRed, name, formatValue(op.Prior.Inputs[name]), colorReset)
			}
		default:
			for _, name := range op.ChangedAttributes {
				var before any
				if op.Prior != nil {
					before = op.Prior.Inputs[name]
				}
				var after any
				if v, ok := op.Desired.Attributes[name]; ok {
					after = ir.Interface(v)
				}
				fmt.Printf("%s      ~ %s = %s -> %s%s\n", colorYellow, name, formatValue(before), formatValue(after), colorReset)
			}
		}
		fmt.Printf("%s    }%s\n", color, colorReset)
	}
}

// renderSummary prints the change-set summary counts.
func renderSummary(cs *ir.ChangeSet) {
	fmt.Println("\nPlan Summary:")
	fmt.Printf("  Create:  %d\n", cs.Summary.Create)
	fmt.Printf("  Update:  %d\n", cs.Summary.Update)
	fmt.Printf("  Replace: %d\n", cs.Summary.Replace)
	fmt.Printf("  Destroy: %d\n", cs.Summary.Destroy)
	fmt.Printf("  NoOp:    %d\n", cs.Summary.NoOp)
}

// formatValue returns a human-readable representation of a value.
func formatValue(v any) string {
	if v == nil {
		return "null"
	}
	switch val := v.(type) {
	case string:
		return fmt.Sprintf("%q", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func sortedAttrNames(attrs map[string]ir.Value) []string {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedMapKeys(m map[string]any) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// confirm prompts for interactive approval.
func confirm(prompt string) bool {
	fmt.Printf("\n%s (y/n): ", prompt)
	var response string
	fmt.Scanln(&response)
	return response == "y" || response == "yes"
}
