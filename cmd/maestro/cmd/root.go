package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fmeurisse/maestro-sub001/cmd/maestro/cmd/workflowcmd"
	"github.com/fmeurisse/maestro-sub001/pkg/config"
	"github.com/fmeurisse/maestro-sub001/pkg/logger"
	"github.com/fmeurisse/maestro-sub001/pkg/step"
)

var verboseFlag bool

var limitFlags = config.DefaultLimits()

// rootCmd is the base command when maestro is called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "maestro",
	Short: "maestro defines and runs workflow lifecycle operations.",
	Long: `maestro is a command-line tool for authoring, versioning, and
running workflow revisions against the in-process execution engine.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logOpts := logger.DefaultOptions()
		logOpts.ColorConsole = true
		if verboseFlag {
			logOpts.ConsoleLevel = logger.DebugLevel
		}
		logger.Init(logOpts)
		config.SetActive(limitFlags)
		return nil
	},
}

// Execute adds all child commands to rootCmd and runs it. Called once by main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	step.Bootstrap()

	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().IntVar(&limitFlags.MaxStepDepth, "max-step-depth", limitFlags.MaxStepDepth, "Maximum step tree nesting depth")
	rootCmd.PersistentFlags().IntVar(&limitFlags.MaxStepNodes, "max-step-nodes", limitFlags.MaxStepNodes, "Maximum number of nodes in a step tree")
	rootCmd.PersistentFlags().IntVar(&limitFlags.DefaultPageLimit, "default-page-limit", limitFlags.DefaultPageLimit, "Default history page size")
	rootCmd.PersistentFlags().IntVar(&limitFlags.MaxPageLimit, "max-page-limit", limitFlags.MaxPageLimit, "Maximum history page size")

	rootCmd.AddCommand(workflowcmd.Cmd)
}
