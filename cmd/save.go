package cmd

import (
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/melih-ucgun/clonectl/internal/consts"
	"github.com/melih-ucgun/clonectl/internal/metrics"
)

// saveCmd represents the save command
var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Capture the controller configuration into a snapshot",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signalContext()
		defer cancel()

		rec := metrics.New()
		metricsFile, _ := cmd.Flags().GetString("metrics-file")
		rc := newRunContext(ctx)

		cfg, err := loadSettings(cmd)
		if err != nil {
			finish(rc, err, nil, "")
		}
		target := localTarget(cfg)
		rc.Target = target.Address
		opts, err := buildOptions(cmd, cfg, target)
		if err != nil {
			finish(rc, err, nil, "")
		}

		client, err := connect(ctx, cfg, target)
		if err != nil {
			finish(rc, err, nil, "")
		}

		eng, err := newEngine(client, consts.GetStateDir(), rec)
		if err != nil {
			finish(rc, err, nil, "")
		}

		start := time.Now()
		rep, err := eng.Save(rc, opts)
		rec.Duration(rc.Target, "save", time.Since(start))
		printSummary(rep)
		if err == nil {
			pterm.Success.Printf("Snapshot saved to %s\n", opts.Path)
		}
		_ = client.Close(ctx)
		finish(rc, err, rec, metricsFile)
	},
}

func init() {
	rootCmd.AddCommand(saveCmd)
	addDocumentFlags(saveCmd)
	saveCmd.Flags().Bool("include-bios", false, "include BIOS settings")
	saveCmd.Flags().Bool("include-storage", false, "include Smart Storage configuration")
	saveCmd.Flags().StringSlice("recipient", nil, "encrypt for these age recipients")
}

// addDocumentFlags registers the flags shared by save and load.
func addDocumentFlags(c *cobra.Command) {
	c.Flags().StringP("file", "f", consts.DefaultSnapshot, "snapshot document (sprig template)")
	c.Flags().String("encryption-key", "", "AES key of 16, 24 or 32 characters, or hex:<hex>")
}
