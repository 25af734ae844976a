// Package clone captures a controller's configuration into a snapshot and
// reconciles a controller back to a snapshot.
package clone

import (
	"fmt"
	"strings"

	"github.com/melih-ucgun/clonectl/internal/composer"
	"github.com/melih-ucgun/clonectl/internal/core"
	"github.com/melih-ucgun/clonectl/internal/metrics"
	"github.com/melih-ucgun/clonectl/internal/plan"
	"github.com/melih-ucgun/clonectl/internal/reconcile"
	"github.com/melih-ucgun/clonectl/internal/redfish"
	"github.com/melih-ucgun/clonectl/internal/snapshot"
	"github.com/melih-ucgun/clonectl/internal/state"
	"github.com/melih-ucgun/clonectl/internal/tree"
)

// SupportedTypes are read on save, in document order.
var SupportedTypes = []string{
	"ComputerSystem",
	"Bios",
	"SecureBoot",
	"HpeServerBootSettings",
	"Manager",
	"ManagerNetworkService",
	"EthernetInterface",
	"HpeiLODateTime",
	"AccountService",
	"ManagerAccount",
	"HpeiLOFederationGroup",
	"HpeiLOLicense",
	"HpeSmartStorageConfig",
	"HpeiLOSnmpService",
	"HpeHttpsCert",
	"HpeiLOSSO",
	"HpeESKM",
}

// Engine runs save and load against one controller. It is not safe for
// concurrent use; fleet runs build one engine per target.
type Engine struct {
	Client   redfish.Client
	Registry *composer.Registry
	Policy   reconcile.Policy
	FS       core.FileSystem
	Logs     *state.Manager
	Backups  *state.BackupManager
	Metrics  *metrics.Recorder
	Types    []string
}

// NewEngine builds an engine with the default composers and deletion policy.
func NewEngine(client redfish.Client, logs *state.Manager) (*Engine, error) {
	registry, err := composer.NewDefaultRegistry()
	if err != nil {
		return nil, err
	}
	return &Engine{
		Client:   client,
		Registry: registry,
		Policy:   reconcile.DefaultPolicy(),
		FS:       &core.RealFS{},
		Logs:     logs,
		Types:    SupportedTypes,
	}, nil
}

// Diagnostic is a non-fatal problem met while reading or planning.
type Diagnostic struct {
	Section string
	Path    string
	Message string
}

// SectionReport tells what happened to one snapshot section on load.
type SectionReport struct {
	Type    string
	Outcome string
	Reason  string
	Entries int
}

// NoDifferences is the reason of a reconciled section that needs no change.
const NoDifferences = "no differences"

// Section outcomes.
const (
	OutcomeReconciled = "reconciled"
	OutcomeSkipped    = "skipped"
	OutcomeFailed     = "failed"
)

// Report is the outcome of one run.
type Report struct {
	RunID       string
	Target      string
	Sections    []SectionReport
	Diagnostics []Diagnostic
	Items       []plan.Item
	Results     []core.Result
	Pending     []redfish.PendingChange
	Preview     []string
	Summary     core.Summary
}

func (e *Engine) store(opts Options) *snapshot.Store {
	return &snapshot.Store{
		FS:         e.FS,
		Key:        opts.key(),
		Recipients: opts.Recipients,
		Identities: opts.Identity,
	}
}

func (e *Engine) env(rc *core.RunContext, opts Options, sslCert, ssoCert string) *composer.Env {
	return &composer.Env{
		Ctx:    rc,
		Client: e.Client,
		Logger: rc.Logger,
		UI:     rc.UI,
		Options: composer.Options{
			Username:            opts.Username,
			PlaceholderPassword: opts.PlaceholderPassword,
			Interactive:         opts.Interactive,
			OverwriteUnique:     opts.OverwriteUnique,
			ResetBIOSDefaults:   opts.ResetBIOSDefaults,
			SSLCert:             sslCert,
			SSOCert:             ssoCert,
		},
	}
}

// record logs err once and appends it to the Operation Log.
func (e *Engine) record(rc *core.RunContext, opErr *OpError) {
	rc.Logger.Error(opErr.Simplified, "op", opErr.Op)
	if e.Logs == nil {
		return
	}
	entry := state.OperationEntry{
		RunID:           rc.RunID,
		Target:          rc.Target,
		Operation:       opErr.Op,
		SimplifiedError: opErr.Simplified,
		Trace:           opErr.Trace(),
		Arguments:       opErr.Args,
	}
	if err := e.Logs.Append(entry); err != nil {
		rc.Logger.Warn(fmt.Sprintf("Operation log could not be written: %v", err))
	}
}

// fingerprint describes the system from its raw ComputerSystem and Manager.
func fingerprint(system, manager tree.Tree) snapshot.Fingerprint {
	fp := snapshot.Fingerprint{
		Model:            system.GetString("Model"),
		BIOSFamily:       system.GetString("Oem", "Hpe", "Bios", "Current", "Family"),
		BIOSDate:         system.GetString("Oem", "Hpe", "Bios", "Current", "Date"),
		FirmwareVersion:  manager.GetString("FirmwareVersion"),
		FirmwareRevision: manager.GetString("Oem", "Hpe", "Firmware", "Current", "VersionString"),
	}
	if fp.BIOSFamily == "" {
		// "U30 v2.44 (01/01/2021)"
		if f := strings.Fields(system.GetString("BiosVersion")); len(f) > 0 {
			fp.BIOSFamily = f[0]
		}
	}
	return fp
}

func first(instances []redfish.Instance) (redfish.Instance, bool) {
	if len(instances) == 0 {
		return redfish.Instance{}, false
	}
	return instances[0], true
}

func (e *Engine) liveFingerprint(rc *core.RunContext) (snapshot.Fingerprint, error) {
	systems, err := e.Client.Select(rc, "ComputerSystem")
	if err != nil {
		return snapshot.Fingerprint{}, err
	}
	managers, err := e.Client.Select(rc, "Manager")
	if err != nil {
		return snapshot.Fingerprint{}, err
	}
	sys, _ := first(systems)
	mgr, _ := first(managers)
	return fingerprint(sys.Tree, mgr.Tree), nil
}
