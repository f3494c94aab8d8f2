// Package workflowcmd groups the "maestro workflow ..." subcommands.
package workflowcmd

import (
	"github.com/spf13/cobra"

	"github.com/fmeurisse/maestro-sub001/pkg/app"
	"github.com/fmeurisse/maestro-sub001/pkg/workflow"
)

// Cmd is the "workflow" command group, added to the root command.
var Cmd = &cobra.Command{
	Use:   "workflow",
	Short: "Manage and run workflow revisions",
}

// service returns a fresh Service for one command invocation. The
// in-memory stores don't survive past the process, so "create" then
// "run" only compose within a single command (see "run").
func service() *workflow.Service {
	return app.New()
}

func init() {
	Cmd.AddCommand(validateCmd)
	Cmd.AddCommand(renderCmd)
	Cmd.AddCommand(runCmd)
}
