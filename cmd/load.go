package cmd

import (
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/melih-ucgun/clonectl/internal/consts"
	"github.com/melih-ucgun/clonectl/internal/metrics"
)

// loadCmd represents the load command
var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Reconcile the controller with a snapshot",
	Long: `Reads the snapshot, compares it with the live controller and applies the
differences: deletions, then creations, then patches, then resets.`,
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
		rc.DryRun = opts.DryRun

		client, err := connect(ctx, cfg, target)
		if err != nil {
			finish(rc, err, nil, "")
		}

		eng, err := newEngine(client, consts.GetStateDir(), rec)
		if err != nil {
			finish(rc, err, nil, "")
		}

		if opts.DryRun {
			pterm.DefaultHeader.Println("Dry run: nothing will be changed")
		}
		start := time.Now()
		rep, err := eng.Load(rc, opts)
		rec.Duration(rc.Target, "load", time.Since(start))
		printSummary(rep)
		if err == nil && !opts.DryRun {
			pterm.Success.Println("Controller reconciled with the snapshot.")
		}
		_ = client.Close(ctx)
		finish(rc, err, rec, metricsFile)
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
	addDocumentFlags(loadCmd)
	f := loadCmd.Flags()
	f.String("identity", "", "age identity file for recipient encrypted snapshots (default ~/.clonectl/age.key)")
	f.String("ssl-cert", "", "PEM certificate to import as the HTTPS certificate")
	f.String("sso-cert", "", "PEM certificate to import as the SSO trusted certificate")
	f.BoolP("yes", "y", false, "do not ask for confirmation")
	f.Bool("overwrite-unique", false, "also write system-unique values such as host names")
	f.Bool("dry-run", false, "show the differences without applying them")
	f.Bool("reset-bios-defaults", false, "reset BIOS to factory defaults before applying")
}
