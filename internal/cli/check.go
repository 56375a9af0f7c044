package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/kgrepair/internal/check"
	"github.com/ppiankov/kgrepair/internal/decide"
	"github.com/ppiankov/kgrepair/internal/graph"
	"github.com/ppiankov/kgrepair/internal/interpret"
)

var checkCmd = &cobra.Command{
	Use:   "check <artifact.ttl> <schema>",
	Short: "Check one graph artifact and interpret the report",
	Long: `Check runs the configured checker once against an existing Turtle
graph (for example an iteration artifact of an earlier run), then prints
the conformance report, its interpretation and the decision the repair
loop would take.`,
	Args: cobra.ExactArgs(2),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	artifactPath, schemaPath := args[0], args[1]
	if err := cfg.Validate(); err != nil {
		return err
	}

	f, err := os.Open(artifactPath)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	g, err := graph.DecodeTurtle(f)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("parse artifact: %w", err)
	}

	checker, err := check.New(cfg, schemaPath, logger)
	if err != nil {
		return err
	}
	res, err := check.WithTimeout(context.Background(), checker, cfg.Checker.Timeout, g, artifactPath)
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	in := interpret.New(cfg.Interpret.AllowWarnings).InterpretResult(res)
	fmt.Println(strings.TrimRight(res.Report, "\n"))
	fmt.Println()
	fmt.Printf("Interpretation: %s\n", in.Message)
	fmt.Printf("Decision: %s\n", decide.Decide(in.Status))
	return nil
}
