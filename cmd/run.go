package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/melih-ucgun/clonectl/internal/adapters/ui"
	"github.com/melih-ucgun/clonectl/internal/clone"
	"github.com/melih-ucgun/clonectl/internal/config"
	"github.com/melih-ucgun/clonectl/internal/consts"
	"github.com/melih-ucgun/clonectl/internal/core"
	"github.com/melih-ucgun/clonectl/internal/metrics"
	"github.com/melih-ucgun/clonectl/internal/redfish"
	"github.com/melih-ucgun/clonectl/internal/state"
)

// loadSettings merges the config file, .env, CLONECTL_* variables and flags.
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	if err := config.LoadEnvFile(consts.EnvFileName); err != nil {
		return nil, err
	}
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(nil); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if v, _ := flags.GetString("address"); v != "" {
		cfg.Address = v
	}
	if v, _ := flags.GetString("username"); v != "" {
		cfg.Username = v
	}
	if v, _ := flags.GetString("password"); v != "" {
		cfg.Password = v
	}
	if flags.Changed("insecure") {
		cfg.Insecure, _ = flags.GetBool("insecure")
	}
	if flags.Lookup("file") != nil && flags.Changed("file") {
		cfg.Snapshot, _ = flags.GetString("file")
	}
	if flags.Lookup("encryption-key") != nil && flags.Changed("encryption-key") {
		cfg.EncryptionKey, _ = flags.GetString("encryption-key")
	}
	return cfg, cfg.Validate()
}

// newRunContext wires the console logger and UI for one command.
func newRunContext(ctx context.Context) *core.RunContext {
	logger := core.NewDefaultLogger(os.Stderr, core.LevelFromVerbosity(verboseCount))
	return core.NewRunContext(ctx, logger, ui.NewPtermUI())
}

// snapshotPath renders the document path template for a target.
func snapshotPath(tmpl string, t config.Target) (string, error) {
	path, err := core.ExecuteTemplate(tmpl, map[string]any{
		"Name":    t.Name,
		"Address": t.Address,
		"Date":    time.Now().Format("20060102"),
	})
	if err != nil {
		return "", fmt.Errorf("invalid snapshot path %q: %w", tmpl, err)
	}
	return path, nil
}

// buildOptions reads the save/load flags over the configuration.
func buildOptions(cmd *cobra.Command, cfg *config.Config, t config.Target) (clone.Options, error) {
	opts := clone.DefaultOptions()
	path, err := snapshotPath(t.Snapshot, t)
	if err != nil {
		return opts, err
	}
	opts.Path = path
	opts.EncryptionKey = cfg.EncryptionKey
	opts.Username = t.Username
	opts.PlaceholderPassword = cfg.PlaceholderPassword
	opts.ResetInterval = cfg.ResetInterval
	opts.ReconnectTimeout = cfg.ReconnectTimeout
	opts.PostTimeout = cfg.PostTimeout
	opts.Interactive = !pterm.RawOutput && isTerminal()

	flags := cmd.Flags()
	get := func(name string) bool {
		if flags.Lookup(name) == nil {
			return false
		}
		v, _ := flags.GetBool(name)
		return v
	}
	str := func(name string) string {
		if flags.Lookup(name) == nil {
			return ""
		}
		v, _ := flags.GetString(name)
		return v
	}
	opts.IncludeBIOS = get("include-bios")
	opts.IncludeStorage = get("include-storage")
	opts.OverwriteUnique = get("overwrite-unique")
	opts.ResetBIOSDefaults = get("reset-bios-defaults")
	opts.DryRun = get("dry-run")
	opts.AutoConfirm = get("yes")
	if opts.AutoConfirm {
		opts.Interactive = false
	}
	opts.SSLCertPath = str("ssl-cert")
	opts.SSOCertPath = str("sso-cert")
	if flags.Lookup("recipient") != nil {
		opts.Recipients, _ = flags.GetStringSlice("recipient")
	}
	if flags.Lookup("identity") != nil {
		id, err := readIdentity(str("identity"))
		if err != nil {
			return opts, err
		}
		opts.Identity = id
	}
	return opts, nil
}

// readIdentity reads an age identity file. With no path the default
// identity under the home directory is used when it exists.
func readIdentity(path string) (string, error) {
	explicit := path != ""
	if !explicit {
		def, err := consts.GetAgeIdentityPath()
		if err != nil {
			return "", nil
		}
		path = def
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("%w: identity file: %v", clone.ErrInvalidOptions, err)
	}
	return string(data), nil
}

func isTerminal() bool {
	info, err := os.Stdin.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

// connect opens a session on the target controller.
func connect(ctx context.Context, cfg *config.Config, t config.Target) (*redfish.HTTPClient, error) {
	if t.Address == "" {
		return nil, errors.New("no controller address given (--address, CLONECTL_ADDRESS or config)")
	}
	insecure := cfg.Insecure
	if t.Insecure != nil {
		insecure = *t.Insecure
	}
	client := redfish.NewHTTPClient(redfish.HTTPConfig{
		Address:  t.Address,
		Username: t.Username,
		Password: t.Password,
		Insecure: insecure,
		Timeout:  cfg.Timeout,
	})
	if err := client.Reconnect(ctx); err != nil {
		return nil, fmt.Errorf("failed to log in to %s: %w", t.Address, err)
	}
	return client, nil
}

// newEngine builds an engine whose logs live under stateDir.
func newEngine(client redfish.Client, stateDir string, rec *metrics.Recorder) (*clone.Engine, error) {
	fs := &core.RealFS{}
	eng, err := clone.NewEngine(client, state.NewManager(stateDir, fs))
	if err != nil {
		return nil, err
	}
	eng.Backups = state.NewBackupManager(filepath.Join(stateDir, consts.BackupDirName), fs)
	eng.Metrics = rec
	return eng, nil
}

// localTarget is the single controller addressed by flags and config.
func localTarget(cfg *config.Config) config.Target {
	return cfg.Resolve(config.Target{Name: "default", Address: cfg.Address})
}

func signalContext() (context.Context, context.CancelFunc) {
	// Sinyalleri (Ctrl+C) yakala
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// finish reports the outcome and exits with its status.
func finish(rc *core.RunContext, err error, rec *metrics.Recorder, metricsFile string) {
	if mErr := rec.WriteFile(metricsFile); mErr != nil {
		pterm.Warning.Printf("Metrics could not be written: %v\n", mErr)
	}
	code, notice, msg := outcome(err)
	switch {
	case msg == "":
	case notice:
		pterm.Info.Println(msg)
	default:
		pterm.Error.Println(msg)
	}
	os.Exit(code)
}

// outcome maps a run error to its exit status and the line shown for it.
// notice marks lines that are not errors.
func outcome(err error) (code int, notice bool, msg string) {
	code = clone.ExitCode(err)
	switch {
	case err == nil:
		return code, false, ""
	case errors.Is(err, clone.ErrNoDifferences):
		return code, true, "No differences found, nothing to do."
	case errors.Is(err, clone.ErrPartial):
		return code, false, "An error occurred, check the log (clonectl log)."
	case code == clone.ExitCancelled:
		return code, false, cancelledMessage
	}
	return code, false, err.Error()
}

const cancelledMessage = "Operation cancelled by the user."

func printSummary(rep *clone.Report) {
	if rep == nil {
		return
	}
	for _, sec := range rep.Sections {
		if sec.Outcome == clone.OutcomeSkipped {
			pterm.Warning.Printf("%s skipped: %s\n", sec.Type, sec.Reason)
		}
	}
	for _, d := range rep.Diagnostics {
		pterm.Warning.Printf("%s %s: %s\n", d.Section, d.Path, d.Message)
	}
	s := rep.Summary
	if s.Changed+s.Failed > 0 {
		pterm.Info.Printf("%d change(s) applied, %d failed\n", s.Changed, s.Failed)
	}
	if len(rep.Pending) > 0 {
		pterm.Info.Printf("%d change(s) pending a reset (clonectl status)\n", len(rep.Pending))
	}
}
