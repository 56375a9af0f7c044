package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/kgrepair/internal/check"
	"github.com/ppiankov/kgrepair/internal/pipeline"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <facts> <schema> [max-iterations]",
	Short: "Run the build, check and repair loop on a facts file",
	Long: `Run loads person facts (a story text file, JSON or YAML), then
iterates: build a graph, check it against the schema, interpret the report
and decide whether to stop, accept, or rebuild with repairs.

The loop ends on the first terminal decision or after max-iterations
passes (default 3). Either way the command exits 0; only input errors and
checker failures are reported as errors.

Example:
  kgrepair run examples/sample_story.txt examples/genealogy.mg
  kgrepair run family.yaml shapes.ttl 5 --checker command
  kgrepair run story.txt shapes.ttl --checker http --allow-warnings`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("run-id", "", "fixed run id (default: random uuid)")
	_ = viper.BindPFlag("run.run_id", runCmd.Flags().Lookup("run-id"))
}

func runRun(cmd *cobra.Command, args []string) error {
	factsPath, schemaPath := args[0], args[1]
	if len(args) == 3 {
		n, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("max-iterations must be an integer: %q", args[2])
		}
		cfg.Run.MaxIterations = n
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	checker, err := check.New(cfg, schemaPath, logger)
	if err != nil {
		return err
	}

	metrics := pipeline.NewMetrics()
	orch, err := pipeline.New(cfg, checker,
		pipeline.WithLogger(logger),
		pipeline.WithReporter(pipeline.NewTextReporter(os.Stdout, verbose)),
		pipeline.WithMetrics(metrics),
		pipeline.WithSchemaPath(schemaPath),
	)
	if err != nil {
		return err
	}

	result, err := orch.RunFile(ctx, factsPath)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	if cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Warn("write metrics textfile", zap.String("path", cfg.Metrics.Textfile), zap.Error(err))
		}
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Artifacts: %s/%s\n", cfg.Run.OutputDir, result.RunID)
	}
	return nil
}
