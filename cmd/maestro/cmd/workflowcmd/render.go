package workflowcmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fmeurisse/maestro-sub001/pkg/codec"
	"github.com/fmeurisse/maestro-sub001/pkg/step"
)

var renderCmd = &cobra.Command{
	Use:   "render <file.yaml>",
	Short: "Parse a revision and re-emit it in canonical form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		revision, err := codec.ParseRevision(step.Default, string(data), false)
		if err != nil {
			return err
		}
		out, err := codec.ToYaml(step.Default, revision)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}
