// Package eval loads PKL configuration into the typed resource model.
package eval

import (
	"context"
	"fmt"
	"net/url"

	"github.com/apple/pkl-go/pkl"
)

// Config is the decoded top-level configuration: the resource declarations
// for one run. Variables live in PKL itself (declarations with defaults,
// amended by an environment values file or external properties).
type Config struct {
	Resources []*ResourceDecl `pkl:"resources"`
}

// ResourceDecl is one resource block as written. Count and ForEach are
// iteration constructs; they are expanded into concrete resources before the
// desired state exists.
type ResourceDecl struct {
	Kind       string         `pkl:"kind"`
	Name       string         `pkl:"name"`
	Count      int            `pkl:"count"`
	ForEach    map[string]any `pkl:"forEach"`
	DependsOn  []string       `pkl:"dependsOn"`
	Attributes map[string]any `pkl:"attributes"`
}

// Evaluator evaluates PKL modules into configuration.
type Evaluator struct {
	projectDir string
}

func NewEvaluator(projectDir string) *Evaluator {
	return &Evaluator{projectDir: projectDir}
}

// LoadConfig evaluates the entry point module. Properties override variable
// defaults as PKL external properties (the --prop flag and environment
// values files both land here).
func (e *Evaluator) LoadConfig(ctx context.Context, entryPoint string, properties map[string]string) (*Config, error) {
	u, err := url.Parse("file://" + e.projectDir + "/")
	if err != nil {
		return nil, fmt.Errorf("failed to parse project directory URL: %w", err)
	}

	opts := []func(*pkl.EvaluatorOptions){pkl.PreconfiguredOptions}
	if len(properties) > 0 {
		opts = append(opts, func(o *pkl.EvaluatorOptions) {
			if o.Properties == nil {
				o.Properties = make(map[string]string)
			}
			for k, v := range properties {
				o.Properties[k] = v
			}
		})
	}

	evaluator, err := pkl.NewProjectEvaluator(ctx, u, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create PKL evaluator: %w", err)
	}
	defer evaluator.Close()

	var cfg Config
	if err := evaluator.EvaluateModule(ctx, pkl.FileSource(entryPoint), &cfg); err != nil {
		return nil, fmt.Errorf("failed to evaluate config: %w", err)
	}
	return &cfg, nil
}
