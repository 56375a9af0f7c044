package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/kgrepair/internal/model"
	"github.com/ppiankov/kgrepair/internal/score"
	"github.com/ppiankov/kgrepair/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs in the output directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := store.ListRunIDs(cfg.Run.OutputDir)
		if err != nil {
			return err
		}
		scorer := score.NewScorer()
		for _, id := range ids {
			res, err := store.ReadRecord(cfg.Run.OutputDir, id)
			if err != nil {
				fmt.Printf("%s\t(incomplete)\n", id)
				continue
			}
			sc := scorer.Calculate(res)
			fmt.Printf("%s\t%s\t%d iteration(s)\t%s\t%s\tindex %d/100\n",
				id, res.StartedAt.Format(time.RFC3339), res.Iterations(), res.FinalAction, res.StopReason, sc.Index)
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the run record and repair score of one run as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := store.ReadRecord(cfg.Run.OutputDir, args[0])
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(struct {
			*model.RunResult
			Score score.Score `json:"score"`
		}{res, score.NewScorer().Calculate(res)}, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal run record: %w", err)
		}
		fmt.Println(string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsShowCmd)
}
