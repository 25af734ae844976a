package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/melih-ucgun/clonectl/internal/consts"
	"github.com/melih-ucgun/clonectl/internal/core"
	"github.com/melih-ucgun/clonectl/internal/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show changes waiting for a reset",
	Long:  `Displays the change log written by the last load: settings accepted by the controller that take effect after a reset.`,
	Run: func(cmd *cobra.Command, args []string) {
		target, _ := cmd.Flags().GetString("target")
		dir := consts.GetStateDir()
		if target != "" {
			dir = consts.GetTargetStateDir(target)
		}
		mgr := state.NewManager(dir, &core.RealFS{})

		log, err := mgr.Changes()
		if err != nil {
			fmt.Printf("❌ Could not load change log: %v\n", err)
			return
		}
		if log.RunID == "" {
			fmt.Println("No load has been run yet.")
			return
		}
		if len(log.Pending) == 0 {
			fmt.Printf("✅ Nothing pending (Last Run: %s)\n", log.Updated.Format(time.RFC822))
			return
		}

		fmt.Printf("📊 Pending changes (Last Run: %s)\n\n", log.Updated.Format(time.RFC822))

		// Tablo formatında çıktı
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "RESOURCE\tSCOPE\tPENDING")
		fmt.Fprintln(w, "--------\t-----\t-------")
		for _, c := range log.Pending {
			fmt.Fprintf(w, "%s\t%s\t%s\n", c.Resource, c.Scope, c.Pending)
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().String("target", "", "fleet target whose change log to show")
}
