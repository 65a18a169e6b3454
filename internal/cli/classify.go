package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/atlastales/storygraph/pkg/classic"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [input.json]",
	Short: "Print the template a legacy export would convert as",
	Args:  cobra.ExactArgs(1),
	RunE:  runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}
	if _, err := classic.Parse(raw); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), classic.Classify(raw))
	return nil
}
