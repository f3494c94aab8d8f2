package workflowcmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fmeurisse/maestro-sub001/pkg/codec"
	"github.com/fmeurisse/maestro-sub001/pkg/step"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file.yaml>",
	Short: "Parse and validate a workflow revision document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		revision, err := codec.ParseRevision(step.Default, string(data), false)
		if err != nil {
			color.Red("invalid: %v", err)
			return err
		}
		color.Green("valid: %s/%s (steps: %s)", revision.Namespace, revision.ID, revision.Steps.Tag())
		return nil
	},
}
