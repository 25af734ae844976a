package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/melih-ucgun/clonectl/internal/clone"
	"github.com/melih-ucgun/clonectl/internal/config"
	"github.com/melih-ucgun/clonectl/internal/consts"
	"github.com/melih-ucgun/clonectl/internal/core"
	"github.com/melih-ucgun/clonectl/internal/fleet"
	"github.com/melih-ucgun/clonectl/internal/metrics"
)

// fleetCmd represents the fleet command
var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Run save or load across the configured targets",
	Long:  `Inventory based operations for multiple controllers. Targets are read from the targets list of the config file.`,
}

var fleetSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Capture a snapshot from every target",
	Run: func(cmd *cobra.Command, args []string) {
		runFleet(cmd, "save", func(eng *clone.Engine, rc *core.RunContext, opts clone.Options) error {
			_, err := eng.Save(rc, opts)
			return err
		})
	},
}

var fleetLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Reconcile every target with its snapshot",
	Run: func(cmd *cobra.Command, args []string) {
		runFleet(cmd, "load", func(eng *clone.Engine, rc *core.RunContext, opts clone.Options) error {
			_, err := eng.Load(rc, opts)
			if errors.Is(err, clone.ErrNoDifferences) {
				return nil
			}
			return err
		})
	},
}

type fleetStep func(eng *clone.Engine, rc *core.RunContext, opts clone.Options) error

// selectTargets resolves inventory entries, keeping only names when given.
// Every target ends up with its own snapshot document and log directory.
func selectTargets(cfg *config.Config, names []string) ([]config.Target, error) {
	var raw []config.Target
	if len(names) == 0 {
		raw = cfg.Targets
	} else {
		for _, name := range names {
			t, ok := cfg.Target(name)
			if !ok {
				return nil, fmt.Errorf("%w: unknown target %q", clone.ErrInvalidOptions, name)
			}
			raw = append(raw, t)
		}
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no targets configured", clone.ErrInvalidOptions)
	}

	out := make([]config.Target, 0, len(raw))
	seen := make(map[string]bool)
	owner := make(map[string]string)
	for _, t := range raw {
		if seen[t.Name] {
			return nil, fmt.Errorf("%w: target %q is listed twice", clone.ErrInvalidOptions, t.Name)
		}
		seen[t.Name] = true

		r := cfg.Resolve(t)
		if t.Snapshot == "" && !strings.Contains(cfg.Snapshot, ".Name") {
			r.Snapshot = filepath.Join(filepath.Dir(cfg.Snapshot), t.Name+"-"+filepath.Base(cfg.Snapshot))
		}
		path, err := snapshotPath(r.Snapshot, r)
		if err != nil {
			return nil, err
		}
		path = filepath.Clean(path)
		if other, ok := owner[path]; ok {
			return nil, fmt.Errorf("%w: targets %q and %q share the snapshot %s", clone.ErrInvalidOptions, other, t.Name, path)
		}
		owner[path] = t.Name
		out = append(out, r)
	}
	return out, nil
}

func runFleet(cmd *cobra.Command, label string, step fleetStep) {
	ctx, cancel := signalContext()
	defer cancel()

	rec := metrics.New()
	metricsFile, _ := cmd.Flags().GetString("metrics-file")
	base := newRunContext(ctx)
	base.UI = &core.NoOpUI{}

	cfg, err := loadSettings(cmd)
	if err != nil {
		finish(base, err, nil, "")
	}
	names, _ := cmd.Flags().GetStringSlice("target")
	targets, err := selectTargets(cfg, names)
	if err != nil {
		finish(base, err, nil, "")
	}
	concurrency := cfg.Concurrency
	if cmd.Flags().Changed("concurrency") {
		concurrency, _ = cmd.Flags().GetInt("concurrency")
	}

	job := func(ctx context.Context, t config.Target) error {
		rc := base.ForTarget(t.Name)
		rc.Context = ctx

		opts, err := buildOptions(cmd, cfg, t)
		if err != nil {
			return err
		}
		opts.Interactive = false
		rc.DryRun = opts.DryRun

		client, err := connect(ctx, cfg, t)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close(context.Background()) }()

		eng, err := newEngine(client, consts.GetTargetStateDir(t.Name), rec)
		if err != nil {
			return err
		}
		start := time.Now()
		err = step(eng, rc, opts)
		rec.Duration(t.Name, label, time.Since(start))
		return err
	}

	outcomes, err := fleet.NewExecutor(targets, concurrency).Run(ctx, label, job)
	printOutcomes(outcomes)

	if mErr := rec.WriteFile(metricsFile); mErr != nil {
		pterm.Warning.Printf("Metrics could not be written: %v\n", mErr)
	}
	switch {
	case err == nil:
		os.Exit(clone.ExitOK)
	case ctx.Err() != nil:
		pterm.Error.Println(cancelledMessage)
		os.Exit(clone.ExitCancelled)
	default:
		pterm.Error.Println(err.Error())
		os.Exit(clone.ExitPartial)
	}
}

func printOutcomes(outcomes []fleet.Outcome) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "TARGET\tRESULT\tDURATION")
	fmt.Fprintln(w, "------\t------\t--------")
	for _, o := range outcomes {
		result := "ok"
		if o.Err != nil {
			result = clone.Simplify(o.Err)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", o.Target, result, o.Duration.Round(time.Millisecond))
	}
	w.Flush()
}

func init() {
	rootCmd.AddCommand(fleetCmd)
	fleetCmd.AddCommand(fleetSaveCmd)
	fleetCmd.AddCommand(fleetLoadCmd)

	fleetCmd.PersistentFlags().StringSlice("target", nil, "only these inventory targets")
	fleetCmd.PersistentFlags().Int("concurrency", 4, "number of targets processed at once")

	addDocumentFlags(fleetSaveCmd)
	fleetSaveCmd.Flags().Bool("include-bios", false, "include BIOS settings")
	fleetSaveCmd.Flags().Bool("include-storage", false, "include Smart Storage configuration")
	fleetSaveCmd.Flags().StringSlice("recipient", nil, "encrypt for these age recipients")

	addDocumentFlags(fleetLoadCmd)
	f := fleetLoadCmd.Flags()
	f.String("identity", "", "age identity file for recipient encrypted snapshots (default ~/.clonectl/age.key)")
	f.BoolP("yes", "y", false, "apply resets and fingerprint mismatches without asking")
	f.Bool("overwrite-unique", false, "also write system-unique values such as host names")
	f.Bool("dry-run", false, "show the differences without applying them")
	f.Bool("reset-bios-defaults", false, "reset BIOS to factory defaults before applying")
}
