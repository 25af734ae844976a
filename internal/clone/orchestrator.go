package clone

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/melih-ucgun/clonectl/internal/composer"
	"github.com/melih-ucgun/clonectl/internal/core"
	"github.com/melih-ucgun/clonectl/internal/plan"
	"github.com/melih-ucgun/clonectl/internal/reconcile"
	"github.com/melih-ucgun/clonectl/internal/redfish"
	"github.com/melih-ucgun/clonectl/internal/schema"
	"github.com/melih-ucgun/clonectl/internal/snapshot"
	"github.com/melih-ucgun/clonectl/internal/state"
)

// Reset actions issued once pending changes are confirmed.
const (
	ManagerReset = "Manager.Reset"
	SystemReset  = "ComputerSystem.Reset"
)

// Load reconciles the controller with the snapshot at opts.Path.
//
// Pre-flight problems (unreadable document, bad key, declined fingerprint
// mismatch) abort before anything is changed. Failures of single items are
// recorded and the remaining items still run.
func (e *Engine) Load(rc *core.RunContext, opts Options) (*Report, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	rep := &Report{RunID: rc.RunID, Target: rc.Target}

	snap, err := e.store(opts).Read(opts.Path)
	if err != nil {
		return rep, err
	}

	sslCert, err := e.readCert(opts.SSLCertPath)
	if err != nil {
		return rep, err
	}
	ssoCert, err := e.readCert(opts.SSOCertPath)
	if err != nil {
		return rep, err
	}

	if err := e.checkFingerprint(rc, opts, snap.Fingerprint); err != nil {
		return rep, err
	}

	env := e.env(rc, opts, sslCert, ssoCert)
	var p plan.Plan
	for _, sec := range snap.Sections {
		if rc.Err() != nil {
			return rep, fmt.Errorf("%w: %v", ErrCancelled, rc.Err())
		}
		e.planSection(rc, env, sec, &p, rep)
	}

	rep.Items = p.Ordered()
	e.countPlanned(rc, rep.Items)

	mutating := 0
	for _, it := range rep.Items {
		if it.Mutating() {
			mutating++
		}
	}

	if opts.DryRun {
		e.preview(rc, rep)
		return rep, e.finish(rep, mutating)
	}

	if mutating > 0 {
		if err := e.execute(rc, rep.Items, rep); err != nil {
			return rep, err
		}
	}

	rep.Pending = e.pending(rc)
	if len(rep.Pending) > 0 {
		if err := e.resets(rc, opts, rep); err != nil && errors.Is(err, ErrCancelled) {
			return rep, err
		}
	}
	return rep, e.finish(rep, mutating)
}

func (e *Engine) finish(rep *Report, mutating int) error {
	rep.Summary = core.Summarize(rep.Results)
	if rep.Summary.Failed > 0 {
		return fmt.Errorf("%w: %d of %d operation(s) failed", ErrPartial, rep.Summary.Failed, len(rep.Results))
	}
	if mutating == 0 && rep.Summary.Changed == 0 {
		return ErrNoDifferences
	}
	return nil
}

func (e *Engine) readCert(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := e.FS.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: certificate %s: %v", ErrInvalidOptions, path, err)
	}
	return string(data), nil
}

// checkFingerprint warns about a snapshot taken from a different system and
// asks before continuing.
func (e *Engine) checkFingerprint(rc *core.RunContext, opts Options, recorded snapshot.Fingerprint) error {
	if recorded == (snapshot.Fingerprint{}) {
		return nil
	}
	live, err := e.liveFingerprint(rc)
	if err != nil {
		return fmt.Errorf("failed to identify the target system: %w", err)
	}
	mismatches := recorded.Mismatches(live)
	if len(mismatches) == 0 {
		return nil
	}
	for _, m := range mismatches {
		rc.UI.Warning(m)
	}
	if opts.AutoConfirm {
		rc.Logger.Warn("Snapshot was taken from a different system, continuing")
		return nil
	}
	ok, err := rc.UI.Confirm("The snapshot was taken from a different system. Continue?", false)
	if err != nil || !ok {
		return fmt.Errorf("%w: %s", ErrIncompatible, strings.Join(mismatches, "; "))
	}
	return nil
}

func (e *Engine) planSection(rc *core.RunContext, env *composer.Env, sec snapshot.Section, p *plan.Plan, rep *Report) {
	desc := schema.Parse(sec.Type)
	report := func(outcome, reason string, entries int) {
		rep.Sections = append(rep.Sections, SectionReport{Type: sec.Type, Outcome: outcome, Reason: reason, Entries: entries})
		e.Metrics.Section(rc.Target, outcome)
		if outcome == OutcomeSkipped {
			rc.Logger.Warn(fmt.Sprintf("%s skipped: %s", sec.Type, reason))
		}
	}
	if desc.Name == "" {
		report(OutcomeSkipped, "unrecognised type", 0)
		return
	}

	live, err := e.Client.Select(rc, desc.Name)
	if err != nil && !errors.Is(err, redfish.ErrNotFound) {
		opErr := NewOpError("select "+desc.Name, err, map[string]any{"section": sec.Type})
		e.record(rc, opErr)
		rep.Results = append(rep.Results, core.Failure(opErr, opErr.Simplified))
		report(OutcomeFailed, opErr.Simplified, 0)
		return
	}

	liveTypes := make([]string, 0, len(live))
	seen := make(map[string]bool)
	for _, inst := range live {
		if !seen[inst.Type] {
			seen[inst.Type] = true
			liveTypes = append(liveTypes, inst.Type)
		}
	}
	sort.Strings(liveTypes)

	match, res := schema.Resolve(desc, liveTypes)
	switch res {
	case schema.NotFound:
		report(OutcomeSkipped, "type not present on the target", 0)
		return
	case schema.Incompatible:
		report(OutcomeSkipped, fmt.Sprintf("target runs %s, snapshot has %s", match, desc), 0)
		return
	}

	var compatible []redfish.Instance
	for _, inst := range live {
		if _, ok := schema.Compatible(desc, schema.Parse(inst.Type)); ok {
			compatible = append(compatible, inst)
		}
	}

	recorded := make([]reconcile.Recorded, 0, len(sec.Instances))
	for _, inst := range sec.Instances {
		recorded = append(recorded, reconcile.Recorded{Path: inst.Path, Tree: inst.Tree})
	}
	subject := composer.Subject{Type: desc.Name, Name: sec.Type}
	if len(recorded) > 0 {
		subject.Path = recorded[0].Path
	}
	c, err := e.Registry.Lookup(subject)
	if err != nil {
		report(OutcomeFailed, err.Error(), 0)
		return
	}

	in := reconcile.Input{TypeName: desc.Name, Recorded: recorded, Live: compatible}
	if k, ok := c.(composer.Keyer); ok {
		in.Key = k.Key
	}
	scan := reconcile.Reconcile(in, e.Policy)

	csec := composer.Section{Type: sec.Type, Name: desc.Name}
	planned, failed := 0, false
	for _, entry := range scan.Entries {
		if entry.Action == reconcile.ActionSkip {
			if entry.Reason != "" {
				rc.Logger.Debug(fmt.Sprintf("%s kept: %s", entry.Path, entry.Reason))
			}
			continue
		}
		if entry.Reason != "" {
			rc.Logger.Info(fmt.Sprintf("%s %s", entry.Path, entry.Reason))
		}
		items, err := c.Plan(env, csec, entry)
		if errors.Is(err, composer.ErrSkipped) {
			rc.Logger.Info(fmt.Sprintf("%s: %v", entry.Path, err))
			continue
		}
		if err != nil {
			opErr := NewOpError(fmt.Sprintf("%s %s", entry.Action, entry.Path), err, map[string]any{
				"section":  sec.Type,
				"composer": c.Name(),
			})
			e.record(rc, opErr)
			rep.Results = append(rep.Results, core.Failure(opErr, opErr.Simplified))
			failed = true
			continue
		}
		for _, it := range items {
			if it.Mutating() {
				planned++
			}
		}
		p.Add(items...)
	}
	if planned == 0 && !failed {
		rc.Logger.Info(fmt.Sprintf("%s: %s", sec.Type, NoDifferences))
		report(OutcomeReconciled, NoDifferences, len(scan.Entries))
		return
	}
	report(OutcomeReconciled, "", len(scan.Entries))
}

func (e *Engine) countPlanned(rc *core.RunContext, items []plan.Item) {
	counts := make(map[plan.Phase]int)
	for _, it := range items {
		if it.Mutating() {
			counts[it.Phase]++
		}
	}
	for _, phase := range []plan.Phase{plan.PhaseDelete, plan.PhaseCreate, plan.PhasePatch, plan.PhaseReset} {
		e.Metrics.Planned(rc.Target, phase.String(), counts[phase])
	}
}

// execute runs the ordered items. A failed item does not stop the ones after
// it, but items referring to a failed create are not attempted.
func (e *Engine) execute(rc *core.RunContext, items []plan.Item, rep *Report) error {
	created := make(map[string]string)
	for _, it := range items {
		if !it.Mutating() {
			continue
		}
		if rc.Err() != nil {
			return fmt.Errorf("%w: %v", ErrCancelled, rc.Err())
		}

		loc, err := e.run(rc, it, created)
		if err != nil {
			opErr := NewOpError(fmt.Sprintf("%s %s", it.Method, it.Target()), err, map[string]any{
				"item":    it.ID,
				"section": it.Section,
				"action":  it.Action,
				"body":    it.Redacted(),
			})
			e.record(rc, opErr)
			res := core.Failure(opErr, opErr.Simplified)
			res.ItemID = it.ID
			rep.Results = append(rep.Results, res)
			e.Metrics.Item(rc.Target, it.Phase.String(), "failed")
			continue
		}

		if loc != "" {
			created[it.ID] = loc
		}
		msg := it.Description
		if msg == "" {
			msg = fmt.Sprintf("%s %s", it.Method, it.Target())
		}
		rc.Logger.Info(msg, "item", it.ID)
		res := core.SuccessChange(msg)
		res.ItemID = it.ID
		res.Location = loc
		rep.Results = append(rep.Results, res)
		e.Metrics.Item(rc.Target, it.Phase.String(), "changed")
	}
	return nil
}

// run performs one item and returns the location of a created resource.
func (e *Engine) run(ctx context.Context, it plan.Item, created map[string]string) (string, error) {
	path := it.TargetPath
	if it.TargetRef != "" {
		loc, ok := created[it.TargetRef]
		if !ok {
			return "", fmt.Errorf("depends on %s, which did not create a resource", it.TargetRef)
		}
		path = loc
	}

	switch it.Method {
	case plan.MethodDelete:
		return "", e.Client.Delete(ctx, path)
	case plan.MethodPost:
		resp, err := e.Client.Create(ctx, path, it.Body)
		if err != nil {
			return "", err
		}
		return createdLocation(resp), nil
	case plan.MethodPatch, plan.MethodPut:
		return "", e.Client.Write(ctx, path, it.Body, it.Method)
	case plan.MethodAction:
		_, err := e.Client.InvokeAction(ctx, path, it.Action, it.Body)
		return "", err
	}
	return "", fmt.Errorf("unknown method %q", it.Method)
}

// createdLocation is the Location header of a create, or the @odata.id of
// the returned resource. Empty when the controller reported neither.
func createdLocation(resp redfish.Response) string {
	loc := resp.Location
	if loc == "" {
		loc = resp.Body.GetString("@odata.id")
	}
	if loc == "" {
		return ""
	}
	return redfish.NormalizePath(loc)
}

// pending reads the changes waiting for a reset and overwrites the Change Log.
func (e *Engine) pending(rc *core.RunContext) []redfish.PendingChange {
	changes, err := e.Client.Status(rc)
	if err != nil {
		e.record(rc, NewOpError("status", err, nil))
		return nil
	}
	if e.Logs != nil {
		entries := make([]state.ChangeEntry, 0, len(changes))
		for _, c := range changes {
			entries = append(entries, state.ChangeEntry{Resource: c.Resource, Pending: c.Description, Scope: c.Scope})
		}
		if err := e.Logs.ReplaceChanges(rc.RunID, rc.Target, entries); err != nil {
			rc.Logger.Warn(fmt.Sprintf("Change log could not be written: %v", err))
		}
	}
	for _, c := range changes {
		rc.Logger.Info(fmt.Sprintf("Pending: %s %s", c.Resource, c.Description))
	}
	return changes
}

// resets restarts the controller and then the system, as the pending changes
// require, after the operator agreed.
func (e *Engine) resets(rc *core.RunContext, opts Options, rep *Report) error {
	var manager, system bool
	for _, c := range rep.Pending {
		if c.Scope == redfish.ScopeManager {
			manager = true
		} else {
			system = true
		}
	}

	if !opts.AutoConfirm {
		ok, err := rc.UI.Confirm(fmt.Sprintf("%d change(s) need a reset to take effect. Reset now?", len(rep.Pending)), false)
		if err != nil || !ok {
			rc.UI.Info("Changes stay pending until the next reset.")
			return nil
		}
	}

	waiter := &Waiter{Client: e.Client, Logger: rc.Logger, Interval: opts.ResetInterval}

	if manager {
		path, err := e.firstPath(rc, "Manager")
		if err == nil {
			err = e.reset(rc, rep, plan.Item{
				ID:          "reset:manager",
				Phase:       plan.PhaseReset,
				Method:      plan.MethodAction,
				TargetPath:  path,
				Action:      ManagerReset,
				Body:        map[string]any{"ResetType": "GracefulRestart"},
				Description: "controller reset",
			})
		}
		if err == nil {
			rc.UI.Info("Waiting for the controller to come back...")
			err = waiter.Reconnect(rc, opts.ReconnectTimeout)
		}
		if err != nil {
			return e.resetFailed(rc, rep, "reset:manager", err)
		}
	}

	if system {
		path, err := e.firstPath(rc, "ComputerSystem")
		if err == nil {
			err = e.reset(rc, rep, plan.Item{
				ID:          "reset:system",
				Phase:       plan.PhaseReset,
				Method:      plan.MethodAction,
				TargetPath:  path,
				Action:      SystemReset,
				Body:        map[string]any{"ResetType": "ForceRestart"},
				Description: "system restart",
			})
		}
		if err == nil {
			rc.UI.Info("Waiting for the system to finish booting...")
			err = waiter.PostState(rc, path, opts.PostTimeout)
		}
		if err != nil {
			return e.resetFailed(rc, rep, "reset:system", err)
		}
	}
	return nil
}

func (e *Engine) reset(rc *core.RunContext, rep *Report, it plan.Item) error {
	if _, err := e.run(rc, it, nil); err != nil {
		return err
	}
	rep.Items = append(rep.Items, it)
	res := core.SuccessChange(it.Description)
	res.ItemID = it.ID
	rep.Results = append(rep.Results, res)
	e.Metrics.Item(rc.Target, it.Phase.String(), "changed")
	return nil
}

func (e *Engine) resetFailed(rc *core.RunContext, rep *Report, id string, err error) error {
	if errors.Is(err, ErrCancelled) {
		return err
	}
	opErr := NewOpError(id, err, nil)
	e.record(rc, opErr)
	res := core.Failure(opErr, opErr.Simplified)
	res.ItemID = id
	rep.Results = append(rep.Results, res)
	e.Metrics.Item(rc.Target, plan.PhaseReset.String(), "failed")
	return opErr
}

func (e *Engine) firstPath(rc *core.RunContext, typeName string) (string, error) {
	instances, err := e.Client.Select(rc, typeName)
	if err != nil {
		return "", err
	}
	inst, ok := first(instances)
	if !ok {
		return "", fmt.Errorf("%s: %w", typeName, redfish.ErrNotFound)
	}
	return inst.Path, nil
}
