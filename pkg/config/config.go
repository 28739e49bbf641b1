// Package config defines the run configuration, loaded by the CLI from
// flags, an optional config file and DEFOG_* environment variables.
package config

import (
	"fmt"

	"github.com/lcalzada-xor/defog/pkg/observability"
)

// Output formats for the residual program.
const (
	OutputJS   = "js"
	OutputJSON = "json"
)

// Evaluator holds the partial-evaluation limits and the ambient names
// treated as tainted free variables of the input.
type Evaluator struct {
	MaxLoopIterations int      `mapstructure:"max_loop_iterations"`
	MaxFixpointPasses int      `mapstructure:"max_fixpoint_passes"`
	MaxCallDepth      int      `mapstructure:"max_call_depth"`
	TaintedGlobals    []string `mapstructure:"tainted_globals"`
}

// Config is the full run configuration.
type Config struct {
	Output    string               `mapstructure:"output"`
	Evaluator Evaluator            `mapstructure:"evaluator"`
	Logger    observability.Config `mapstructure:"logger"`
}

// DefaultTaintedGlobals are the host names obfuscated browser payloads
// reach for. Reads of these stay symbolic instead of failing
// resolution.
var DefaultTaintedGlobals = []string{
	"window", "document", "location", "navigator", "history", "screen",
	"localStorage", "sessionStorage", "console", "globalThis", "self",
	"atob", "btoa", "eval", "unescape", "decodeURIComponent",
	"encodeURIComponent", "setTimeout", "setInterval", "fetch",
	"XMLHttpRequest", "String", "Number", "Boolean", "Object", "Array",
	"Function", "Math", "JSON", "Date", "RegExp", "parseInt",
	"parseFloat", "isNaN",
}

// Default returns the configuration used without a config file.
func Default() Config {
	return Config{
		Output: OutputJS,
		Evaluator: Evaluator{
			MaxLoopIterations: 10000,
			MaxFixpointPasses: 32,
			MaxCallDepth:      512,
			TaintedGlobals:    DefaultTaintedGlobals,
		},
		Logger: observability.DefaultConfig(),
	}
}

// Validate rejects values the pipeline cannot honor.
func (c Config) Validate() error {
	switch c.Output {
	case OutputJS, OutputJSON:
	default:
		return fmt.Errorf("unknown output format %q", c.Output)
	}
	if c.Evaluator.MaxLoopIterations < 1 {
		return fmt.Errorf("max_loop_iterations must be positive")
	}
	if c.Evaluator.MaxFixpointPasses < 1 {
		return fmt.Errorf("max_fixpoint_passes must be positive")
	}
	if c.Evaluator.MaxCallDepth < 1 {
		return fmt.Errorf("max_call_depth must be positive")
	}
	return nil
}
