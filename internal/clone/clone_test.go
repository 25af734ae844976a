package clone

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih-ucgun/clonectl/internal/core"
	"github.com/melih-ucgun/clonectl/internal/redfish"
	"github.com/melih-ucgun/clonectl/internal/snapshot"
	"github.com/melih-ucgun/clonectl/internal/state"
	"github.com/melih-ucgun/clonectl/internal/tree"
)

const (
	systemPath   = "/redfish/v1/Systems/1/"
	managerPath  = "/redfish/v1/Managers/1/"
	accountsPath = "/redfish/v1/AccountService/Accounts/"
)

func system(assetTag string) redfish.Instance {
	return redfish.Instance{
		Path: systemPath,
		Type: "#ComputerSystem.v1_10_0.ComputerSystem",
		Tree: tree.Tree{
			"Id":          "1",
			"Model":       "ProLiant DL380 Gen10",
			"BiosVersion": "U30 v2.44 (01/01/2021)",
			"AssetTag":    assetTag,
			"Oem":         tree.Tree{"Hpe": tree.Tree{"PostState": "FinishedPost"}},
		},
	}
}

func account(id, user string, privs tree.Tree) redfish.Instance {
	return redfish.Instance{
		Path: accountsPath + id + "/",
		Type: "#ManagerAccount.v1_3_0.ManagerAccount",
		Tree: tree.Tree{
			"Id":       id,
			"UserName": user,
			"RoleId":   "Operator",
			"Oem":      tree.Tree{"Hpe": tree.Tree{"LoginName": user, "Privileges": privs}},
		},
	}
}

func baseline() []redfish.Instance {
	return []redfish.Instance{
		system("rack-7"),
		{
			Path: managerPath,
			Type: "#Manager.v1_5_1.Manager",
			Tree: tree.Tree{"Id": "1", "FirmwareVersion": "iLO 5 v2.44", "Oem": tree.Tree{"Hpe": tree.Tree{"Firmware": tree.Tree{"Current": tree.Tree{"VersionString": "iLO 5 v2.44"}}}}},
		},
		{
			Path: managerPath + "EthernetInterfaces/1/",
			Type: "#EthernetInterface.v1_4_1.EthernetInterface",
			Tree: tree.Tree{"Id": "1", "HostName": "ilo-a", "DHCPv4": tree.Tree{"DHCPEnabled": true}, "SpeedMbps": 1000},
		},
		{
			Path: systemPath + "Bios/",
			Type: "#Bios.v1_0_0.Bios",
			Tree: tree.Tree{"Id": "Bios", "Attributes": tree.Tree{"BootMode": "Uefi"}},
		},
		{
			Path: managerPath + "LicenseService/1/",
			Type: "#HpeiLOLicense.v2_3_0.HpeiLOLicense",
			Tree: tree.Tree{"Id": "1", "LicenseType": "Perpetual", "LicenseKey": "XXXXX-XXXXX-XXXXX-XXXXX-7Q2KB"},
		},
		account("1", "Administrator", tree.Tree{"LoginPriv": true, "UserConfigPriv": true}),
		account("2", "ops", tree.Tree{"LoginPriv": true, "RemoteConsolePriv": true}),
	}
}

type harness struct {
	dir    string
	logs   *state.Manager
	opts   Options
	client *redfish.MemoryClient
}

func newHarness(t *testing.T) *harness {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.Path = filepath.Join(dir, "clone.json")
	opts.EncryptionKey = strings.Repeat("k", 32)
	opts.AutoConfirm = true
	opts.ResetInterval = time.Millisecond
	opts.ReconnectTimeout = 50 * time.Millisecond
	opts.PostTimeout = 50 * time.Millisecond
	return &harness{
		dir:    dir,
		logs:   state.NewManager(filepath.Join(dir, ".clonectl"), &core.RealFS{}),
		opts:   opts,
		client: redfish.NewMemoryClient(baseline()...),
	}
}

func (h *harness) engine(t *testing.T) *Engine {
	e, err := NewEngine(h.client, h.logs)
	require.NoError(t, err)
	return e
}

func (h *harness) save(t *testing.T) {
	_, err := h.engine(t).Save(core.NewRunContext(context.Background(), nil, nil), h.opts)
	require.NoError(t, err)
}

func (h *harness) load(t *testing.T) (*Report, error) {
	return h.engine(t).Load(core.NewRunContext(context.Background(), nil, nil), h.opts)
}

func TestSaveLoadUnchangedSystem(t *testing.T) {
	h := newHarness(t)
	h.save(t)

	rep, err := h.load(t)
	assert.ErrorIs(t, err, ErrNoDifferences)
	assert.Equal(t, ExitNoDiff, ExitCode(err))
	assert.Empty(t, h.client.Mutations())
	assert.Zero(t, rep.Summary.Failed)
}

func TestSaveWritesFingerprintAndFeatures(t *testing.T) {
	h := newHarness(t)
	h.opts.EncryptionKey = ""
	h.save(t)

	snap, err := (&snapshot.Store{}).Read(h.opts.Path)
	require.NoError(t, err)
	assert.Equal(t, "ProLiant DL380 Gen10", snap.Fingerprint.Model)
	assert.Equal(t, "U30", snap.Fingerprint.BIOSFamily)
	assert.Equal(t, "iLO 5 v2.44", snap.Fingerprint.FirmwareVersion)

	_, ok := snap.Section("#Bios.v1_0_0.Bios")
	assert.False(t, ok, "BIOS is opt-in")

	lic, ok := snap.Section("#HpeiLOLicense.v2_3_0.HpeiLOLicense")
	require.True(t, ok)
	assert.Equal(t, "XXXXX-XXXXX-XXXXX-XXXXX-XXXXX", lic.Instances[0].Tree.GetString("LicenseKey"))

	h.opts.IncludeBIOS = true
	h.save(t)
	snap, err = (&snapshot.Store{}).Read(h.opts.Path)
	require.NoError(t, err)
	_, ok = snap.Section("#Bios.v1_0_0.Bios")
	assert.True(t, ok)
}

func TestSaveDiagnosticsAreNonFatal(t *testing.T) {
	h := newHarness(t)
	h.client.AddError("SELECT", "/ManagerAccount", errors.New("read timeout"))

	rep, err := h.engine(t).Save(core.NewRunContext(context.Background(), nil, nil), h.opts)
	assert.ErrorIs(t, err, ErrPartial)
	require.Len(t, rep.Diagnostics, 1)
	assert.Equal(t, "ManagerAccount", rep.Diagnostics[0].Section)

	snap, err := (&snapshot.Store{Key: []byte(h.opts.EncryptionKey)}).Read(h.opts.Path)
	require.NoError(t, err)
	_, ok := snap.Section("#ComputerSystem.v1_10_0.ComputerSystem")
	assert.True(t, ok)

	entries, err := h.logs.Operations()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "select ManagerAccount", entries[0].Operation)
}

func TestLoadAppliesDriftInPhaseOrder(t *testing.T) {
	h := newHarness(t)
	h.save(t)

	// The target lost "ops", gained "temp" and has a different asset tag.
	drifted := baseline()[:5]
	drifted = append(drifted,
		account("1", "Administrator", tree.Tree{"LoginPriv": true, "UserConfigPriv": true}),
		account("3", "temp", tree.Tree{"LoginPriv": true}),
	)
	drifted[0] = system("rack-9")
	h.client = redfish.NewMemoryClient(drifted...)

	rep, err := h.load(t)
	require.NoError(t, err)
	assert.Equal(t, 4, rep.Summary.Changed)

	calls := h.client.Mutations()
	require.Len(t, calls, 4)

	assert.Equal(t, "DELETE", calls[0].Method)
	assert.Equal(t, accountsPath+"3/", calls[0].Path)

	assert.Equal(t, "POST", calls[1].Method)
	assert.Equal(t, accountsPath, calls[1].Path)
	assert.Equal(t, "ops", calls[1].Body.GetString("UserName"))
	assert.Equal(t, "changeme", calls[1].Body.GetString("Password"))

	assert.Equal(t, "PATCH", calls[2].Method)
	assert.Equal(t, systemPath, calls[2].Path)
	assert.Equal(t, tree.Tree{"AssetTag": "rack-7"}, calls[2].Body)

	// Privileges go to the account created above.
	assert.Equal(t, "PATCH", calls[3].Method)
	assert.Equal(t, accountsPath+"101/", calls[3].Path)
	v, ok := calls[3].Body.GetBool("Oem", "Hpe", "Privileges", "RemoteConsolePriv")
	assert.True(t, ok && v)
}

func TestLoadContinuesAfterFailure(t *testing.T) {
	h := newHarness(t)
	h.save(t)

	drifted := baseline()
	drifted[0] = system("rack-9")
	drifted = append(drifted, account("3", "temp", nil))
	h.client = redfish.NewMemoryClient(drifted...)
	h.client.AddError("DELETE", accountsPath+"3/", errors.New("400 Bad Request"))

	rep, err := h.load(t)
	assert.ErrorIs(t, err, ErrPartial)
	assert.Equal(t, ExitPartial, ExitCode(err))
	assert.Equal(t, 1, rep.Summary.Failed)
	assert.Equal(t, 1, rep.Summary.Changed)

	// The patch after the failed delete still ran.
	assert.Len(t, h.client.Mutations("PATCH"), 1)

	entries, err := h.logs.Operations()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "DELETE "+accountsPath+"3/", entries[0].Operation)
	assert.Equal(t, "400 Bad Request", entries[0].SimplifiedError)
	assert.Contains(t, entries[0].Trace, "clone.")
	assert.Equal(t, rep.RunID, entries[0].RunID)
}

func TestLoadResetsForPendingChanges(t *testing.T) {
	h := newHarness(t)
	h.save(t)
	h.client.Pending = []redfish.PendingChange{
		{Resource: managerPath + "EthernetInterfaces/1/", Description: "HostName", Scope: redfish.ScopeManager},
		{Resource: systemPath + "Bios/", Description: "BootMode", Scope: redfish.ScopeSystem},
	}
	h.client.ReconnectFailures = 2

	rep, err := h.load(t)
	require.NoError(t, err)
	assert.Len(t, rep.Pending, 2)

	actions := h.client.Mutations("ACTION")
	require.Len(t, actions, 2)
	assert.Equal(t, ManagerReset, actions[0].Action)
	assert.Equal(t, managerPath, actions[0].Path)
	assert.Equal(t, SystemReset, actions[1].Action)
	assert.Equal(t, 3, h.client.Reconnects)

	log, err := h.logs.Changes()
	require.NoError(t, err)
	assert.Equal(t, rep.RunID, log.RunID)
	assert.Len(t, log.Pending, 2)
}

func TestLoadResetTimeout(t *testing.T) {
	h := newHarness(t)
	h.save(t)
	h.client.Pending = []redfish.PendingChange{{Resource: managerPath, Description: "FQDN", Scope: redfish.ScopeManager}}
	h.client.ReconnectFailures = 1 << 20
	h.opts.ReconnectTimeout = 20 * time.Millisecond

	_, err := h.load(t)
	assert.ErrorIs(t, err, ErrPartial)

	entries, err := h.logs.Operations()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "reset:manager", entries[0].Operation)
	assert.Contains(t, entries[0].SimplifiedError, "timed out")
}

func TestLoadDeclinedResetKeepsChangesPending(t *testing.T) {
	h := newHarness(t)
	h.save(t)
	h.client.Pending = []redfish.PendingChange{{Resource: systemPath + "Bios/", Description: "BootMode", Scope: redfish.ScopeSystem}}
	h.opts.AutoConfirm = false

	_, err := h.load(t)
	assert.ErrorIs(t, err, ErrNoDifferences)
	assert.Empty(t, h.client.Mutations("ACTION"))
}

func TestLoadDeclinedFingerprint(t *testing.T) {
	h := newHarness(t)
	h.save(t)

	other := baseline()
	other[0].Tree["Model"] = "ProLiant DL360 Gen10"
	other[0].Tree["AssetTag"] = "rack-9"
	h.client = redfish.NewMemoryClient(other...)
	h.opts.AutoConfirm = false

	_, err := h.load(t)
	assert.ErrorIs(t, err, ErrIncompatible)
	assert.Equal(t, ExitIncompatible, ExitCode(err))
	assert.Empty(t, h.client.Mutations())
}

func TestLoadDryRun(t *testing.T) {
	h := newHarness(t)
	h.save(t)

	drifted := baseline()
	drifted[0] = system("rack-9")
	h.client = redfish.NewMemoryClient(drifted...)
	h.opts.DryRun = true

	rep, err := h.load(t)
	require.NoError(t, err)
	assert.Empty(t, h.client.Mutations())
	require.Len(t, rep.Preview, 1)
	assert.Contains(t, rep.Preview[0], `+   "AssetTag": "rack-7"`)
	assert.Contains(t, rep.Preview[0], `-   "AssetTag": "rack-9"`)
}

func TestLoadSkipsIncompatibleSection(t *testing.T) {
	h := newHarness(t)
	h.opts.EncryptionKey = ""

	snap := &snapshot.Snapshot{}
	snap.Add("#ComputerSystem.v2_0_0.ComputerSystem", systemPath, tree.Tree{"Id": "1", "AssetTag": "rack-1"})
	snap.Add("#HpeESKM.v2_0_0.HpeESKM", managerPath+"SecurityService/ESKM/", tree.Tree{"PrimaryKeyServerAddress": "10.0.0.5"})
	require.NoError(t, (&snapshot.Store{}).Write(h.opts.Path, snap))

	rep, err := h.load(t)
	assert.ErrorIs(t, err, ErrNoDifferences)
	require.Len(t, rep.Sections, 2)
	assert.Equal(t, OutcomeSkipped, rep.Sections[0].Outcome)
	assert.Contains(t, rep.Sections[0].Reason, "ComputerSystem.v1_10_0")
	assert.Equal(t, OutcomeSkipped, rep.Sections[1].Outcome)
	assert.Empty(t, h.client.Mutations())
}

func TestLoadPreflightErrors(t *testing.T) {
	h := newHarness(t)

	_, err := h.load(t)
	assert.ErrorIs(t, err, snapshot.ErrNotFound)
	assert.Equal(t, ExitInvalidFile, ExitCode(err))

	h.save(t)
	h.opts.EncryptionKey = strings.Repeat("x", 32)
	_, err = h.load(t)
	assert.Equal(t, ExitDecrypt, ExitCode(err))

	h.opts.EncryptionKey = "short"
	_, err = h.load(t)
	assert.Equal(t, ExitDecrypt, ExitCode(err))
	assert.Empty(t, h.client.Mutations())
}
