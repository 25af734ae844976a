package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih-ucgun/clonectl/internal/core"
)

func TestOperationLogAppends(t *testing.T) {
	m := NewManager(t.TempDir(), &core.RealFS{})

	entries, err := m.Operations()
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, m.Append(OperationEntry{RunID: "r1", Operation: "PATCH /redfish/v1/Managers/1/", SimplifiedError: "400 Bad Request"}))
	require.NoError(t, m.Append(OperationEntry{RunID: "r2", Operation: "POST /redfish/v1/AccountService/Accounts/", SimplifiedError: "timeout"}))

	entries, err = m.Operations()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "r1", entries[0].RunID)
	assert.NotEmpty(t, entries[0].ID)
	assert.False(t, entries[1].Timestamp.IsZero())
}

func TestOperationLogCap(t *testing.T) {
	m := NewManager(t.TempDir(), &core.RealFS{})
	m.MaxEntries = 2

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, m.Append(OperationEntry{RunID: id}))
	}
	entries, err := m.Operations()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].RunID)
}

func TestChangeLogOverwrites(t *testing.T) {
	m := NewManager(t.TempDir(), &core.RealFS{})

	require.NoError(t, m.ReplaceChanges("r1", "ilo1", []ChangeEntry{{Resource: "/redfish/v1/Systems/1/Bios/", Pending: "BootMode"}}))
	require.NoError(t, m.ReplaceChanges("r2", "ilo1", nil))

	log, err := m.Changes()
	require.NoError(t, err)
	assert.Equal(t, "r2", log.RunID)
	assert.Empty(t, log.Pending)
}
