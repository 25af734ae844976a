package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih-ucgun/clonectl/internal/tree"
)

func TestOrdered(t *testing.T) {
	var p Plan
	p.Add(
		Item{ID: "reset", Phase: PhaseReset, Method: MethodAction, TargetPath: "/m/"},
		Item{ID: "patch-bios", Phase: PhasePatch, Ordinal: 1, Method: MethodPatch, TargetPath: "/bios/"},
		Item{ID: "bios-defaults", Phase: PhasePatch, Ordinal: 0, Method: MethodAction, TargetPath: "/bios/"},
		Item{ID: "create", Phase: PhaseCreate, Method: MethodPost, TargetPath: "/accounts/"},
		Item{ID: "delete", Phase: PhaseDelete, Method: MethodDelete, TargetPath: "/accounts/3/"},
	)

	var ids []string
	for _, it := range p.Ordered() {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"delete", "create", "bios-defaults", "patch-bios", "reset"}, ids)
}

func TestOrderedMergesPatches(t *testing.T) {
	var p Plan
	p.Add(
		Item{ID: "eth", Phase: PhasePatch, Method: MethodPatch, TargetPath: "/eth/1/", Body: tree.Tree{"HostName": "a"}},
		Item{ID: "other", Phase: PhasePatch, Method: MethodPatch, TargetPath: "/eth/2/", Body: tree.Tree{"HostName": "b"}},
		Item{ID: "ntp", Phase: PhasePatch, Method: MethodPatch, TargetPath: "/eth/1/",
			Body: tree.Tree{"DHCPv4": tree.Tree{"UseNTPServers": false}}, Description: "ntp"},
	)

	items := p.Ordered()
	require.Len(t, items, 2)
	assert.Equal(t, "eth", items[0].ID)
	assert.Equal(t, tree.Tree{"HostName": "a", "DHCPv4": tree.Tree{"UseNTPServers": false}}, items[0].Body)
}

func TestRedacted(t *testing.T) {
	it := Item{Body: tree.Tree{"UserName": "bob", "Password": "secret"}, Secrets: []string{"Password"}}
	assert.Equal(t, "********", it.Redacted()["Password"])
	assert.Equal(t, "secret", it.Body["Password"])
}
