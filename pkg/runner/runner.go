// Package runner wires the pipeline: source text goes through the
// frontend parser, the evaluator reduces it, and the printer (or the
// JSON encoder) renders the residual program.
package runner

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/lcalzada-xor/defog/pkg/config"
	"github.com/lcalzada-xor/defog/pkg/eval"
	"github.com/lcalzada-xor/defog/pkg/frontend"
	"github.com/lcalzada-xor/defog/pkg/printer"
	"github.com/lcalzada-xor/defog/pkg/syntax"
)

// Runner holds a run's configuration and logger.
type Runner struct {
	cfg config.Config
	log *zap.Logger
}

// New builds a runner.
func New(cfg config.Config, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{cfg: cfg, log: log}
}

// Run deobfuscates one source text and returns the rendered residual
// program.
func (r *Runner) Run(src string) (string, error) {
	prog, err := frontend.Parse(src)
	if err != nil {
		return "", err
	}
	r.log.Debug("parsed input", zap.Int("statements", len(prog.Body)))

	ev := eval.New(eval.Limits{
		MaxLoopIterations: r.cfg.Evaluator.MaxLoopIterations,
		MaxFixpointPasses: r.cfg.Evaluator.MaxFixpointPasses,
		MaxCallDepth:      r.cfg.Evaluator.MaxCallDepth,
	}, r.log)
	ev.TaintGlobals(r.cfg.Evaluator.TaintedGlobals...)

	residual, err := ev.Run(prog)
	if err != nil {
		return "", fmt.Errorf("evaluate: %w", err)
	}
	r.log.Info("reduced program",
		zap.Int("input_statements", len(prog.Body)),
		zap.Int("residual_statements", len(residual)))

	switch r.cfg.Output {
	case config.OutputJSON:
		data, err := syntax.MarshalProgram(residual)
		if err != nil {
			return "", err
		}
		return string(data) + "\n", nil
	default:
		return printer.Print(residual), nil
	}
}
