package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/kgrepair/internal/extract"
)

var extractCmd = &cobra.Command{
	Use:   "extract <facts>",
	Short: "Print the normalized facts loaded from a file",
	Long: `Extract loads a story text, JSON or YAML facts file and prints the
normalized person facts the repair loop would start from, as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		facts, err := extract.NewRegistry(logger).LoadFile(args[0])
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(facts, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal facts: %w", err)
		}
		fmt.Println(string(data))
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ %d people\n", len(facts))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
