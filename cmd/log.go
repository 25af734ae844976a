package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/melih-ucgun/clonectl/internal/consts"
	"github.com/melih-ucgun/clonectl/internal/core"
	"github.com/melih-ucgun/clonectl/internal/state"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View the operation log",
	Run: func(cmd *cobra.Command, args []string) {
		target, _ := cmd.Flags().GetString("target")
		limit, _ := cmd.Flags().GetInt("limit")
		showTrace, _ := cmd.Flags().GetBool("trace")

		dir := consts.GetStateDir()
		if target != "" {
			dir = consts.GetTargetStateDir(target)
		}
		mgr := state.NewManager(dir, &core.RealFS{})

		entries, err := mgr.Operations()
		if err != nil {
			pterm.Error.Println("Failed to load operation log:", err)
			return
		}
		if len(entries) == 0 {
			pterm.Info.Println("No operation log found.")
			return
		}

		pterm.DefaultHeader.Println("Operation Log")

		tableData := [][]string{{"Date", "Run", "Operation", "Error"}}

		// Show latest first (reverse iteration)
		shown := 0
		for i := len(entries) - 1; i >= 0 && (limit <= 0 || shown < limit); i-- {
			e := entries[i]
			runID := e.RunID
			if len(runID) > 8 {
				runID = runID[:8]
			}
			tableData = append(tableData, []string{
				e.Timestamp.Format("2006-01-02 15:04:05"),
				runID,
				e.Operation,
				pterm.NewStyle(pterm.FgRed).Sprint(e.SimplifiedError),
			})
			shown++
		}

		pterm.DefaultTable.WithHasHeader().WithData(tableData).Render()

		if showTrace {
			last := entries[len(entries)-1]
			pterm.DefaultSection.Println("Trace of the latest entry")
			pterm.Println(last.Trace)
		}
	},
}

func init() {
	rootCmd.AddCommand(logCmd)
	logCmd.Flags().String("target", "", "fleet target whose log to show")
	logCmd.Flags().Int("limit", 20, "number of entries to show (0 for all)")
	logCmd.Flags().Bool("trace", false, "print the stack trace of the latest entry")
}
