package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shelfscan/shelfscan/internal/evalcmd"
)

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Shelf scanning evaluation tools",
		Long: `Evaluation tools for measuring how many of the books on a shelf the
pipeline finds, and how many of the books it reports are really there.`,
	}

	cmd.AddCommand(evalcmd.NewRunCmd())
	cmd.AddCommand(evalcmd.NewReportCmd())
	cmd.AddCommand(evalcmd.NewInspectCmd())

	return cmd
}
