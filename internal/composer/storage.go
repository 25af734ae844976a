package composer

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/melih-ucgun/clonectl/internal/plan"
	"github.com/melih-ucgun/clonectl/internal/reconcile"
	"github.com/melih-ucgun/clonectl/internal/redfish"
	"github.com/melih-ucgun/clonectl/internal/tree"
)

// CreateLogicalDrive is the action issued for every missing drive.
const CreateLogicalDrive = "CreateLogicalDrive"

// LogicalDrive is one array definition of a smart storage controller.
type LogicalDrive struct {
	LogicalDriveName string   `mapstructure:"LogicalDriveName,omitempty"`
	Raid             string   `mapstructure:"Raid"`
	DataDrives       []string `mapstructure:"DataDrives"`
	SpareDrives      []string `mapstructure:"SpareDrives,omitempty"`
	BlockSizeBytes   int      `mapstructure:"BlockSizeBytes,omitempty"`
	CapacityGiB      int      `mapstructure:"CapacityGiB,omitempty"`
	BootPriority     string   `mapstructure:"BootPriority,omitempty"`
	StripSizeBytes   int      `mapstructure:"StripSizeBytes,omitempty"`
	Accelerator      string   `mapstructure:"Accelerator,omitempty"`
}

// identity pairs recorded and live drives.
func (d LogicalDrive) identity() string {
	if d.LogicalDriveName != "" {
		return "name:" + d.LogicalDriveName
	}
	return "raid:" + d.Raid + ":" + strings.Join(d.DataDrives, ",")
}

// Storage turns logical drive definitions into one create action per
// missing drive, then patches the remaining controller settings.
type Storage struct {
	Default
}

func NewStorage() *Storage { return &Storage{} }

func (s *Storage) Name() string { return "storage" }

// Fields the controller reports per drive but does not accept back.
var driveVolatile = []string{"LogicalDriveNumber", "VolumeUniqueIdentifier", "LogicalDriveStatusReasons", "CapacityBlocks"}

func (s *Storage) Save(env *Env, inst redfish.Instance) (tree.Tree, error) {
	list, _ := inst.Tree["LogicalDrives"].([]any)
	for _, item := range list {
		if d, ok := tree.AsTree(item); ok {
			for _, k := range driveVolatile {
				delete(d, k)
			}
		}
	}
	return inst.Tree, nil
}

// DecodeDrives reads LogicalDrives of t.
func DecodeDrives(t tree.Tree) ([]LogicalDrive, error) {
	raw, ok := t["LogicalDrives"]
	if !ok {
		return nil, nil
	}
	var drives []LogicalDrive
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &drives,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode logical drives: %w", err)
	}
	return drives, nil
}

func encodeDrive(d LogicalDrive) (tree.Tree, error) {
	out := map[string]any{}
	if err := mapstructure.Decode(d, &out); err != nil {
		return nil, err
	}
	body := tree.Tree{}
	for k, v := range out {
		if ss, ok := v.([]string); ok {
			list := make([]any, len(ss))
			for i, s := range ss {
				list[i] = s
			}
			v = list
		}
		body[k] = v
	}
	return body, nil
}

func (s *Storage) Plan(env *Env, sec Section, e reconcile.Entry) ([]plan.Item, error) {
	switch e.Action {
	case reconcile.ActionCreate:
		env.logger().Warn("storage controller from snapshot not present on target", "path", e.RecordedPath)
		return nil, nil
	case reconcile.ActionPatch:
	default:
		return s.Default.Plan(env, sec, e)
	}

	desired, err := DecodeDrives(e.File)
	if err != nil {
		return nil, err
	}
	live, err := DecodeDrives(e.Live)
	if err != nil {
		return nil, err
	}
	present := make(map[string]bool, len(live))
	for _, d := range live {
		present[d.identity()] = true
	}
	wanted := make(map[string]bool, len(desired))

	var items []plan.Item
	for i, d := range desired {
		wanted[d.identity()] = true
		if present[d.identity()] {
			continue
		}
		body, err := encodeDrive(d)
		if err != nil {
			return nil, err
		}
		items = append(items, plan.Item{
			ID:          itemID(sec, e.Path, fmt.Sprintf("drive-%d", i)),
			Phase:       plan.PhaseCreate,
			Ordinal:     i,
			Method:      plan.MethodAction,
			TargetPath:  e.Path,
			Action:      CreateLogicalDrive,
			Body:        body,
			Section:     sec.Type,
			Description: fmt.Sprintf("create RAID %s logical drive on %s", d.Raid, strings.Join(d.DataDrives, ",")),
		})
	}
	for _, d := range live {
		if !wanted[d.identity()] {
			env.logger().Warn("logical drive not in snapshot is left in place", "drive", d.identity())
		}
	}

	rest := e
	rest.File = e.File.Clone()
	rest.Live = e.Live.Clone()
	delete(rest.File, "LogicalDrives")
	delete(rest.Live, "LogicalDrives")
	if patch := Patch(env, rest); len(patch) > 0 {
		items = append(items, patchItem(sec, e, patch))
	}
	return items, nil
}
