package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih-ucgun/clonectl/internal/redfish"
	"github.com/melih-ucgun/clonectl/internal/tree"
)

func byPath(entries []Entry) map[string]Entry {
	out := make(map[string]Entry, len(entries))
	for _, e := range entries {
		out[e.Path] = e
	}
	return out
}

func TestSplitRoot(t *testing.T) {
	tests := []struct {
		path, id, root, suffix string
	}{
		{"/redfish/v1/Managers/1/EthernetInterfaces/2/", "2", "/redfish/v1/Managers/1/EthernetInterfaces/", "2"},
		{"/redfish/v1/Managers/1/EthernetInterfaces/2/", "", "/redfish/v1/Managers/1/EthernetInterfaces/", "2"},
		{"/redfish/v1/Systems/1/Bios/Settings/", "Bios", "/redfish/v1/Systems/1/", "Bios/Settings"},
		{"/r/", "", "/", "r"},
	}
	for _, tt := range tests {
		root, suffix := SplitRoot(tt.path, tt.id)
		assert.Equal(t, tt.root, root, tt.path)
		assert.Equal(t, tt.suffix, suffix, tt.path)
	}
}

func TestServerOnlyEntries(t *testing.T) {
	live := []redfish.Instance{
		{Path: "/r/1", Tree: tree.Tree{"Id": "1", "UserName": "Administrator"}},
		{Path: "/r/2", Tree: tree.Tree{"Id": "2", "UserName": "ops"}},
	}
	recorded := []Recorded{{Path: "/r/1", Tree: tree.Tree{"Id": "1", "UserName": "Administrator"}}}

	t.Run("unprotected type is deleted", func(t *testing.T) {
		scan := Reconcile(Input{TypeName: "Widget", Recorded: recorded, Live: live}, DefaultPolicy())
		assert.True(t, scan.Multi)

		entries := byPath(scan.Entries)
		require.Contains(t, entries, "/r/2/")
		assert.Equal(t, OriginServer, entries["/r/2/"].Origin)
		assert.Equal(t, ActionDelete, entries["/r/2/"].Action)
		assert.Equal(t, ActionPatch, entries["/r/1/"].Action)
	})

	t.Run("fixed type is skipped", func(t *testing.T) {
		scan := Reconcile(Input{TypeName: "EthernetInterface", Recorded: recorded, Live: live}, DefaultPolicy())
		entries := byPath(scan.Entries)
		assert.Equal(t, OriginServer, entries["/r/2/"].Origin)
		assert.Equal(t, ActionSkip, entries["/r/2/"].Action)
	})

	t.Run("protected singleton is skipped", func(t *testing.T) {
		// Only the second account is recorded; the administrator is live-only.
		rec := []Recorded{{Path: "/r/2", Tree: tree.Tree{"Id": "2", "UserName": "ops"}}}
		key := func(t tree.Tree) string { return t.GetString("UserName") }
		scan := Reconcile(Input{TypeName: "ManagerAccount", Recorded: rec, Live: live, Key: key}, DefaultPolicy())

		entries := byPath(scan.Entries)
		assert.Equal(t, OriginServer, entries["/r/1/"].Origin)
		assert.Equal(t, ActionSkip, entries["/r/1/"].Action)
		assert.Equal(t, ActionPatch, entries["/r/2/"].Action)
	})
}

func TestSingletCollapse(t *testing.T) {
	live := []redfish.Instance{
		{Path: "/eth/1", Tree: tree.Tree{"Id": "1"}},
		{Path: "/eth/2", Tree: tree.Tree{"Id": "2"}},
	}
	recorded := []Recorded{{Path: "/eth/3", Tree: tree.Tree{"Id": "3", "HostName": "a"}}}

	scan := Reconcile(Input{TypeName: "EthernetInterface", Recorded: recorded, Live: live}, DefaultPolicy())
	assert.False(t, scan.Multi)
	assert.Equal(t, 0, scan.Count(ActionCreate))

	entries := byPath(scan.Entries)
	require.Contains(t, entries, "/eth/1/")
	assert.Equal(t, OriginFile, entries["/eth/1/"].Origin)
	assert.Equal(t, ActionPatch, entries["/eth/1/"].Action)
	assert.Equal(t, "/eth/3/", entries["/eth/1/"].RecordedPath)
	assert.Equal(t, ActionSkip, entries["/eth/2/"].Action)
}

func TestMultiInstanceCreate(t *testing.T) {
	live := []redfish.Instance{
		{Path: "/acc/1", Tree: tree.Tree{"Id": "1", "UserName": "Administrator"}},
	}
	recorded := []Recorded{
		{Path: "/acc/1", Tree: tree.Tree{"Id": "1", "UserName": "Administrator"}},
		{Path: "/acc/7", Tree: tree.Tree{"Id": "7", "UserName": "backup"}},
	}

	key := func(t tree.Tree) string { return t.GetString("UserName") }
	scan := Reconcile(Input{TypeName: "ManagerAccount", Recorded: recorded, Live: live, Key: key}, DefaultPolicy())

	require.Len(t, scan.Entries, 2)
	assert.Equal(t, ActionPatch, scan.Entries[0].Action)
	assert.Equal(t, ActionCreate, scan.Entries[1].Action)
	assert.Equal(t, "/acc/7/", scan.Entries[1].Path)
	assert.Nil(t, scan.Entries[1].Live)
}

func TestIdentityBeatsPath(t *testing.T) {
	// The recorded account "backup" sits at a path the target uses for "ops".
	live := []redfish.Instance{
		{Path: "/acc/2", Tree: tree.Tree{"Id": "2", "UserName": "ops"}},
	}
	recorded := []Recorded{{Path: "/acc/2", Tree: tree.Tree{"Id": "2", "UserName": "backup"}}}
	key := func(t tree.Tree) string { return t.GetString("UserName") }

	scan := Reconcile(Input{TypeName: "ManagerAccount", Recorded: recorded, Live: live, Key: key}, DefaultPolicy())
	require.Len(t, scan.Entries, 2)
	assert.Equal(t, ActionCreate, scan.Entries[0].Action)
	assert.Equal(t, ActionDelete, scan.Entries[1].Action)
}

func TestNoRecordedPaths(t *testing.T) {
	live := []redfish.Instance{{Path: "/fed/DEFAULT", Tree: tree.Tree{"Name": "DEFAULT"}}}
	scan := Reconcile(Input{TypeName: "HpeiLOFederationGroup", Live: live}, DefaultPolicy())
	require.Len(t, scan.Entries, 1)
	assert.Equal(t, ActionSkip, scan.Entries[0].Action)
	assert.Equal(t, "default federation group", scan.Entries[0].Reason)
}

func TestSingleInstanceNeedsSharedRoot(t *testing.T) {
	live := []redfish.Instance{{Path: "/mgr/2/eth/1", Tree: tree.Tree{"Id": "1"}}}
	recorded := []Recorded{{Path: "/mgr/1/eth/1", Tree: tree.Tree{"Id": "1", "HostName": "a"}}}

	scan := Reconcile(Input{TypeName: "Widget", Recorded: recorded, Live: live}, DefaultPolicy())
	assert.False(t, scan.Multi)

	entries := byPath(scan.Entries)
	require.Len(t, entries, 2)
	assert.Equal(t, ActionCreate, entries["/mgr/1/eth/1/"].Action)
	assert.False(t, entries["/mgr/1/eth/1/"].Scanned)
	assert.Equal(t, OriginServer, entries["/mgr/2/eth/1/"].Origin)
	assert.Equal(t, ActionDelete, entries["/mgr/2/eth/1/"].Action)
}
