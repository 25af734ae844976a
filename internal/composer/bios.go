package composer

import (
	"github.com/melih-ucgun/clonectl/internal/plan"
	"github.com/melih-ucgun/clonectl/internal/reconcile"
	"github.com/melih-ucgun/clonectl/internal/redfish"
	"github.com/melih-ucgun/clonectl/internal/tree"
)

// ResetBios restores factory BIOS defaults.
const ResetBios = "Bios.ResetBios"

// Bios patches attributes through the pending settings object and can
// reset to factory defaults first.
type Bios struct {
	Default
}

func NewBios() *Bios { return &Bios{} }

func (b *Bios) Name() string { return "bios" }

func (b *Bios) Save(env *Env, inst redfish.Instance) (tree.Tree, error) {
	// Attribute registry links are only meaningful on the source system.
	delete(inst.Tree, "AttributeRegistry")
	return inst.Tree, nil
}

func (b *Bios) Plan(env *Env, sec Section, e reconcile.Entry) ([]plan.Item, error) {
	if e.Action != reconcile.ActionPatch {
		return b.Default.Plan(env, sec, e)
	}

	var items []plan.Item
	if env.Options.ResetBIOSDefaults {
		items = append(items, plan.Item{
			ID:          itemID(sec, e.Path, "defaults"),
			Phase:       plan.PhasePatch,
			Ordinal:     0,
			Method:      plan.MethodAction,
			TargetPath:  e.Path,
			Action:      ResetBios,
			Body:        tree.Tree{},
			Section:     sec.Type,
			Description: "reset BIOS to factory defaults",
		})
	}

	patch := Patch(env, e)
	if env.Options.ResetBIOSDefaults {
		// Every recorded attribute must be written again after a reset.
		patch = tree.Prune(e.File.Clone(), PatchBlock(env.Options))
	}
	if len(patch) > 0 {
		items = append(items, patchItem(sec, e, patch))
	}
	return items, nil
}
