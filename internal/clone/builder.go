package clone

import (
	"errors"
	"fmt"

	"github.com/melih-ucgun/clonectl/internal/composer"
	"github.com/melih-ucgun/clonectl/internal/core"
	"github.com/melih-ucgun/clonectl/internal/redfish"
	"github.com/melih-ucgun/clonectl/internal/snapshot"
	"github.com/melih-ucgun/clonectl/internal/tree"
)

// Features select the optional subsystems of a save.
type Features struct {
	IncludeBIOS    bool
	IncludeStorage bool
}

func (f Features) excludes(typeName string) bool {
	switch typeName {
	case "Bios":
		return !f.IncludeBIOS
	case "HpeSmartStorageConfig":
		return !f.IncludeStorage
	}
	return false
}

// Build reads every supported type and returns the snapshot. A type or
// instance that cannot be read is left out and reported as a diagnostic.
func (e *Engine) Build(rc *core.RunContext, env *composer.Env, f Features) (*snapshot.Snapshot, []Diagnostic) {
	snap := &snapshot.Snapshot{}
	var diags []Diagnostic
	var system, manager tree.Tree

	diagnose := func(typeName, path, op string, err error) {
		opErr := NewOpError(op, err, map[string]any{"type": typeName, "path": path})
		e.record(rc, opErr)
		diags = append(diags, Diagnostic{Section: typeName, Path: path, Message: opErr.Simplified})
	}

	for _, typeName := range e.Types {
		if f.excludes(typeName) {
			rc.Logger.Debug(fmt.Sprintf("%s excluded from the snapshot", typeName))
			continue
		}
		instances, err := e.Client.Select(rc, typeName)
		if err != nil {
			if errors.Is(err, redfish.ErrNotFound) {
				rc.Logger.Debug(fmt.Sprintf("%s not available on this controller", typeName))
				continue
			}
			diagnose(typeName, "", "select "+typeName, err)
			continue
		}
		if len(instances) == 0 {
			rc.Logger.Debug(fmt.Sprintf("%s not available on this controller", typeName))
			continue
		}

		for _, inst := range instances {
			switch typeName {
			case "ComputerSystem":
				if system == nil {
					system = inst.Tree
				}
			case "Manager":
				if manager == nil {
					manager = inst.Tree
				}
			}

			c, err := e.Registry.Lookup(composer.Subject{Type: typeName, Path: inst.Path, Name: inst.Type})
			if err != nil {
				diagnose(typeName, inst.Path, "save "+inst.Path, err)
				continue
			}
			pruned := redfish.Instance{
				Path: inst.Path,
				Type: inst.Type,
				Tree: tree.Prune(inst.Tree.Clone(), tree.ReadOnly),
			}
			saved, err := c.Save(env, pruned)
			if err != nil {
				diagnose(typeName, inst.Path, "save "+inst.Path, err)
				continue
			}
			snap.Add(inst.Type, inst.Path, saved)
		}
		rc.Logger.Debug(fmt.Sprintf("%s: %d instance(s) read", typeName, len(instances)))
	}

	snap.Fingerprint = fingerprint(system, manager)
	return snap, diags
}

// Save builds a snapshot and writes it to opts.Path, keeping a copy of the
// document it replaces.
func (e *Engine) Save(rc *core.RunContext, opts Options) (*Report, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	rep := &Report{RunID: rc.RunID, Target: rc.Target}

	env := e.env(rc, opts, "", "")
	snap, diags := e.Build(rc, env, Features{IncludeBIOS: opts.IncludeBIOS, IncludeStorage: opts.IncludeStorage})
	rep.Diagnostics = diags
	if len(snap.Sections) == 0 {
		if len(diags) > 0 {
			return rep, fmt.Errorf("nothing could be read from the controller: %s", diags[0].Message)
		}
		return rep, errors.New("nothing could be read from the controller")
	}

	if e.Backups != nil {
		path, err := e.Backups.CreateBackup(rc.RunID, opts.Path)
		if err != nil {
			rc.Logger.Warn(fmt.Sprintf("Previous snapshot could not be backed up: %v", err))
		} else if path != "" {
			rc.Logger.Debug("Previous snapshot backed up", "path", path)
		}
	}

	if err := e.store(opts).Write(opts.Path, snap); err != nil {
		return rep, err
	}
	for _, sec := range snap.Sections {
		rep.Sections = append(rep.Sections, SectionReport{Type: sec.Type, Outcome: "saved", Entries: len(sec.Instances)})
	}
	rc.Logger.Info(fmt.Sprintf("Snapshot written to %s", opts.Path), "sections", len(snap.Sections))
	if len(diags) > 0 {
		return rep, fmt.Errorf("%w: %d resource(s) could not be saved", ErrPartial, len(diags))
	}
	return rep, nil
}
