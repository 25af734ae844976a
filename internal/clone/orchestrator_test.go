package clone

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih-ucgun/clonectl/internal/core"
	"github.com/melih-ucgun/clonectl/internal/redfish"
	"github.com/melih-ucgun/clonectl/internal/tree"
)

// noLocationClient answers creates without a Location header, and without a
// body when dropBody is set.
type noLocationClient struct {
	*redfish.MemoryClient
	dropBody bool
}

func (c *noLocationClient) Create(ctx context.Context, path string, body tree.Tree) (redfish.Response, error) {
	resp, err := c.MemoryClient.Create(ctx, path, body)
	resp.Location = ""
	if c.dropBody {
		resp.Body = nil
	}
	return resp, err
}

func withoutOps() []redfish.Instance {
	return append(baseline()[:5], account("1", "Administrator", tree.Tree{"LoginPriv": true, "UserConfigPriv": true}))
}

func TestLoadUsesCreatedResourceIDWithoutLocation(t *testing.T) {
	h := newHarness(t)
	h.save(t)
	h.client = redfish.NewMemoryClient(withoutOps()...)

	e, err := NewEngine(&noLocationClient{MemoryClient: h.client}, h.logs)
	require.NoError(t, err)
	_, err = e.Load(core.NewRunContext(context.Background(), nil, nil), h.opts)
	require.NoError(t, err)

	patches := h.client.Mutations("PATCH")
	require.Len(t, patches, 1)
	assert.Equal(t, accountsPath+"101/", patches[0].Path)
}

func TestLoadFailsDependentsWhenCreateReportsNoResource(t *testing.T) {
	h := newHarness(t)
	h.save(t)
	h.client = redfish.NewMemoryClient(withoutOps()...)

	e, err := NewEngine(&noLocationClient{MemoryClient: h.client, dropBody: true}, h.logs)
	require.NoError(t, err)
	rep, err := e.Load(core.NewRunContext(context.Background(), nil, nil), h.opts)
	assert.ErrorIs(t, err, ErrPartial)
	assert.Equal(t, 1, rep.Summary.Changed)
	assert.Equal(t, 1, rep.Summary.Failed)

	for _, c := range h.client.Mutations() {
		assert.NotEqual(t, "/", c.Path)
	}
	assert.Empty(t, h.client.Mutations("PATCH"))

	entries, err := h.logs.Operations()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].SimplifiedError, "did not create a resource")
}

func TestLoadReportsNoDifferencesPerSection(t *testing.T) {
	h := newHarness(t)
	h.save(t)
	drifted := baseline()
	drifted[0] = system("rack-9")
	h.client = redfish.NewMemoryClient(drifted...)

	var logs strings.Builder
	rc := core.NewRunContext(context.Background(), core.NewDefaultLogger(&logs, core.LevelInfo), nil)
	rep, err := h.engine(t).Load(rc, h.opts)
	require.NoError(t, err)

	reasons := make(map[string]string)
	for _, sec := range rep.Sections {
		require.Equal(t, OutcomeReconciled, sec.Outcome, sec.Type)
		reasons[sec.Type] = sec.Reason
	}
	assert.Empty(t, reasons["#ComputerSystem.v1_10_0.ComputerSystem"])
	assert.Equal(t, NoDifferences, reasons["#ManagerAccount.v1_3_0.ManagerAccount"])
	assert.Equal(t, NoDifferences, reasons["#Manager.v1_5_1.Manager"])
	assert.Contains(t, logs.String(), "#ManagerAccount.v1_3_0.ManagerAccount: no differences")
}
