package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/kgrepair/internal/check"
	"github.com/ppiankov/kgrepair/internal/pipeline"
	"github.com/ppiankov/kgrepair/internal/score"
	"github.com/ppiankov/kgrepair/internal/worker"
)

var batchTimeout time.Duration

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <list-file> <schema>",
	Short: "Repair many facts files in parallel",
	Long: `Batch runs one independent repair loop per facts file listed in
list-file (one path per line, # starts a comment, relative paths are
resolved against the list file's directory). Every run gets its own run id
and artifact directory; all runs share the checker and its cache.

Example:
  kgrepair batch examples/batch.txt examples/genealogy.mg
  kgrepair batch stories.txt shapes.mg --workers 8 --timeout 30m`,
	Args: cobra.ExactArgs(2),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().Int("workers", 0, "number of concurrent runs (default from config)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	_ = viper.BindPFlag("batch.workers", batchCmd.Flags().Lookup("workers"))
}

func runBatch(cmd *cobra.Command, args []string) error {
	listPath, schemaPath := args[0], args[1]

	// one run id per file
	cfg.Run.RunID = ""
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, batchTimeout)
	defer cancel()

	paths, err := worker.ReadFactsList(listPath)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  kgrepair Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s (%d facts files)\n", listPath, len(paths))
	fmt.Fprintf(os.Stderr, "  Schema:       %s\n", schemaPath)
	fmt.Fprintf(os.Stderr, "  Checker:      %s\n", cfg.Checker.Kind)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Batch.Workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", cfg.Run.OutputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	checker, err := check.New(cfg, schemaPath, logger)
	if err != nil {
		return err
	}
	metrics := pipeline.NewMetrics()
	orch, err := pipeline.New(cfg, checker,
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(metrics),
		pipeline.WithSchemaPath(schemaPath),
	)
	if err != nil {
		return err
	}

	processor := worker.NewBatchProcessor(orch, cfg.Batch.Workers)
	outcomes := processor.ProcessFiles(ctx, paths)

	scorer := score.NewScorer()
	successCount, failureCount := 0, 0
	for _, o := range outcomes {
		if o.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", o.FactsPath, o.Error)
			continue
		}
		successCount++
		sc := scorer.Calculate(o.Result)
		fmt.Fprintf(os.Stderr, "✓ %s: %s after %d iteration(s) (%s), repair index %d/100, remaining %s\n",
			o.FactsPath, o.Result.FinalAction, o.Result.Iterations(), o.Result.StopReason, sc.Index, sc.Remaining)
	}

	if cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Warn("write metrics textfile", zap.String("path", cfg.Metrics.Textfile), zap.Error(err))
		}
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d facts files\n", len(outcomes))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", cfg.Run.OutputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if failureCount > 0 {
		return fmt.Errorf("%d of %d runs failed", failureCount, len(outcomes))
	}
	return nil
}
