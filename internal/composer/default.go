package composer

import (
	"github.com/melih-ucgun/clonectl/internal/plan"
	"github.com/melih-ucgun/clonectl/internal/reconcile"
	"github.com/melih-ucgun/clonectl/internal/redfish"
	"github.com/melih-ucgun/clonectl/internal/tree"
)

// Default prunes, diffs and patches. Resources advertising a settings
// object are patched there.
type Default struct{}

func NewDefault() *Default { return &Default{} }

func (d *Default) Name() string { return "default" }

func (d *Default) Save(env *Env, inst redfish.Instance) (tree.Tree, error) {
	return inst.Tree, nil
}

func (d *Default) Plan(env *Env, sec Section, e reconcile.Entry) ([]plan.Item, error) {
	switch e.Action {
	case reconcile.ActionDelete:
		return []plan.Item{deleteItem(sec, e)}, nil
	case reconcile.ActionCreate:
		return []plan.Item{createItem(env, sec, e)}, nil
	case reconcile.ActionPatch:
		patch := Patch(env, e)
		if len(patch) == 0 {
			return nil, nil
		}
		return []plan.Item{patchItem(sec, e, patch)}, nil
	}
	return nil, nil
}

// Patch is the pruned difference between the live and recorded trees.
func Patch(env *Env, e reconcile.Entry) tree.Tree {
	block := PatchBlock(env.Options)
	live := tree.Prune(e.Live.Clone(), block)
	desired := tree.Prune(e.File.Clone(), block)
	return tree.Diff(live, desired)
}

// SettingsTarget is where writes to a live resource go: its advertised
// settings object, or the resource itself.
func SettingsTarget(e reconcile.Entry) string {
	if p := e.Live.GetString("@Redfish.Settings", "SettingsObject", "@odata.id"); p != "" {
		return redfish.NormalizePath(p)
	}
	return e.Path
}

func patchItem(sec Section, e reconcile.Entry, patch tree.Tree) plan.Item {
	return plan.Item{
		ID:          itemID(sec, e.Path, "patch"),
		Phase:       plan.PhasePatch,
		Ordinal:     1,
		Method:      plan.MethodPatch,
		TargetPath:  SettingsTarget(e),
		Body:        patch,
		Section:     sec.Type,
		Description: "update " + sec.Name,
	}
}

func deleteItem(sec Section, e reconcile.Entry) plan.Item {
	return plan.Item{
		ID:          itemID(sec, e.Path, "delete"),
		Phase:       plan.PhaseDelete,
		Method:      plan.MethodDelete,
		TargetPath:  e.Path,
		Section:     sec.Type,
		Description: "remove " + sec.Name + " not present in snapshot",
	}
}

func createItem(env *Env, sec Section, e reconcile.Entry) plan.Item {
	root, _ := reconcile.SplitRoot(e.Path, e.File.GetString("Id"))
	return plan.Item{
		ID:          itemID(sec, e.Path, "create"),
		Phase:       plan.PhaseCreate,
		Method:      plan.MethodPost,
		TargetPath:  root,
		Body:        tree.Prune(e.File.Clone(), CreateBlock(env.Options)),
		Section:     sec.Type,
		Description: "create " + sec.Name,
	}
}
