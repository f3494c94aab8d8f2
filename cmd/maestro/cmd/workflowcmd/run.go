package workflowcmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fmeurisse/maestro-sub001/pkg/spec"
)

var runInputs []string

var runCmd = &cobra.Command{
	Use:   "run <file.yaml>",
	Short: "Define, activate, and run a workflow revision in one shot",
	Long: `run loads a workflow revision from file, creates it and its first
revision in a fresh in-memory catalog, activates it, and launches one
execution, printing the terminal status and per-step checkpoint trail.

Because the catalog is in-memory only, this is a single invocation:
there is no "maestro workflow run" against a revision defined by an
earlier command.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		inputParameters, err := parseInputs(runInputs)
		if err != nil {
			return err
		}

		svc := service()

		created, err := svc.CreateWorkflow(string(data))
		if err != nil {
			return fmt.Errorf("creating workflow: %w", err)
		}

		header := created.Revision.UpdatedAt.Format(time.RFC3339Nano)
		if _, err := svc.Activate(created.Revision.RevisionID(), header); err != nil {
			return fmt.Errorf("activating revision: %w", err)
		}

		execution, err := svc.LaunchExecution(context.Background(), created.Revision.RevisionID(), inputParameters)
		if err != nil {
			return fmt.Errorf("launching execution: %w", err)
		}

		printStatus(execution)
		printStepTable(svc.StepResults(execution.ExecutionID))
		return nil
	},
}

func init() {
	runCmd.Flags().StringArrayVar(&runInputs, "input", nil, "input parameter as key=value (repeatable)")
}

func parseInputs(pairs []string) (map[string]interface{}, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --input %q, expected key=value", pair)
		}
		out[k] = v
	}
	return out, nil
}

func printStatus(e *spec.WorkflowExecution) {
	switch e.Status {
	case spec.ExecutionCompleted:
		color.Green("execution %s: %s", e.ExecutionID, e.Status)
	case spec.ExecutionFailed:
		color.Red("execution %s: %s (%s)", e.ExecutionID, e.Status, e.ErrorMessage)
	case spec.ExecutionCancelled:
		color.Yellow("execution %s: %s", e.ExecutionID, e.Status)
	default:
		fmt.Printf("execution %s: %s\n", e.ExecutionID, e.Status)
	}
}

func printStepTable(results []*spec.ExecutionStepResult) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"INDEX", "STEP", "TYPE", "STATUS", "DURATION"})
	for _, r := range results {
		table.Append([]string{
			fmt.Sprintf("%d", r.StepIndex),
			r.StepID,
			r.StepType,
			string(r.Status),
			r.CompletedAt.Sub(r.StartedAt).String(),
		})
	}
	table.Render()
}
