package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lcalzada-xor/defog/pkg/config"
	"github.com/lcalzada-xor/defog/pkg/observability"
	"github.com/lcalzada-xor/defog/pkg/runner"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "defog [file]",
	Short: "defog reduces obfuscated JavaScript by taint-aware partial evaluation",
	Long: `defog parses a JavaScript file, folds every statically determinable
value and rewrites everything else into a minimal residual form. Input
comes from the file argument or stdin; the residual program prints to
stdout.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default ./defog.yaml)")
	flags.StringP("output", "o", config.OutputJS, "output format: js, json")
	flags.Int("max-loop-iterations", 0, "concrete loop iteration cap")
	flags.Int("max-fixpoint-passes", 0, "ambiguous loop simplification cap")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: console, json")
	flags.String("log-file", "", "rotating JSON log file")

	must(viper.BindPFlag("output", flags.Lookup("output")))
	must(viper.BindPFlag("evaluator.max_loop_iterations", flags.Lookup("max-loop-iterations")))
	must(viper.BindPFlag("evaluator.max_fixpoint_passes", flags.Lookup("max-fixpoint-passes")))
	must(viper.BindPFlag("logger.level", flags.Lookup("log-level")))
	must(viper.BindPFlag("logger.format", flags.Lookup("log-format")))
	must(viper.BindPFlag("logger.file", flags.Lookup("log-file")))
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// loadConfig layers defaults, the optional config file, DEFOG_* env
// variables and flags.
func loadConfig() (config.Config, error) {
	cfg := config.Default()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("defog")
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("DEFOG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	// Zero-valued limits fall back to the defaults.
	def := config.Default()
	if cfg.Evaluator.MaxLoopIterations == 0 {
		cfg.Evaluator.MaxLoopIterations = def.Evaluator.MaxLoopIterations
	}
	if cfg.Evaluator.MaxFixpointPasses == 0 {
		cfg.Evaluator.MaxFixpointPasses = def.Evaluator.MaxFixpointPasses
	}
	if cfg.Evaluator.MaxCallDepth == 0 {
		cfg.Evaluator.MaxCallDepth = def.Evaluator.MaxCallDepth
	}
	return cfg, cfg.Validate()
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := observability.New(cfg.Logger)
	defer func() { _ = log.Sync() }()

	var src []byte
	if len(args) == 1 {
		src, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		log.Debug("reading input file", zap.String("path", args[0]))
	} else {
		src, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
	}

	out, err := runner.New(cfg, log).Run(string(src))
	if err != nil {
		log.Error("deobfuscation failed", zap.Error(err))
		return err
	}
	fmt.Print(out)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
