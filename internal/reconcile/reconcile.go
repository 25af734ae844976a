// Package reconcile pairs the instance paths recorded in a snapshot section
// with the instances found on the live controller.
package reconcile

import (
	"sort"
	"strconv"
	"strings"

	"github.com/melih-ucgun/clonectl/internal/redfish"
	"github.com/melih-ucgun/clonectl/internal/tree"
)

// Origin tells where an entry was first seen.
type Origin int

const (
	OriginServer Origin = iota
	OriginFile
)

func (o Origin) String() string {
	if o == OriginFile {
		return "file"
	}
	return "server"
}

// Action is what the load path does with an entry.
type Action int

const (
	ActionSkip Action = iota
	ActionCreate
	ActionPatch
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionPatch:
		return "patch"
	case ActionDelete:
		return "delete"
	}
	return "skip"
}

// Entry is one resource path of a section after reconciliation.
type Entry struct {
	// Path is the key of the entry: the live path when a live counterpart
	// exists, otherwise the recorded path.
	Path         string
	RecordedPath string
	Origin       Origin
	Live         tree.Tree
	File         tree.Tree
	Action       Action
	// Scanned is set when the entry took part in the live scan set.
	Scanned bool
	Reason  string
}

// Recorded is one path of a snapshot section.
type Recorded struct {
	Path string
	Tree tree.Tree
}

// Input is everything known about one section.
type Input struct {
	TypeName string
	Recorded []Recorded
	Live     []redfish.Instance
	// Key, when set, derives an identity used to pair recorded and live
	// instances regardless of their paths.
	Key func(tree.Tree) string
}

// Scan is the reconciled view of one section.
type Scan struct {
	Multi   bool
	Root    string
	Suffix  string
	Entries []Entry
}

// Count returns the number of entries classified as a.
func (s Scan) Count(a Action) int {
	n := 0
	for _, e := range s.Entries {
		if e.Action == a {
			n++
		}
	}
	return n
}

// Reconcile builds the entries of one section and classifies each one with
// the deletion policy.
func Reconcile(in Input, policy Policy) Scan {
	live := make([]redfish.Instance, len(in.Live))
	copy(live, in.Live)
	for i := range live {
		live[i].Path = redfish.NormalizePath(live[i].Path)
	}
	sort.SliceStable(live, func(i, j int) bool { return live[i].Path < live[j].Path })

	var scan Scan
	if len(in.Recorded) == 0 {
		for _, inst := range live {
			scan.Entries = append(scan.Entries, serverEntry(inst))
		}
		classify(&scan, in.TypeName, policy)
		return scan
	}

	first := in.Recorded[0]
	scan.Root, scan.Suffix = SplitRoot(first.Path, first.Tree.GetString("Id"))

	var rootMatches []redfish.Instance
	exact := 0
	for _, inst := range live {
		if strings.HasPrefix(inst.Path, scan.Root) {
			rootMatches = append(rootMatches, inst)
		}
		if inst.Path == redfish.NormalizePath(first.Path) {
			exact++
		}
	}

	scan.Multi = len(in.Recorded) > 1 || in.Key != nil ||
		(len(rootMatches) > 1 && exact == 1 && (isNumeric(scan.Suffix) || isFederation(in.TypeName)))

	if scan.Multi {
		scan.Entries = multiInstance(in, live)
	} else {
		scan.Entries = singleInstance(first, live, rootMatches)
	}
	classify(&scan, in.TypeName, policy)
	return scan
}

// singleInstance reuses a live path as the key of the one recorded instance.
// Candidates are the live instances sharing the recorded root. With several
// candidates and no exact path match, the first in path order wins. Live
// instances under another root are never paired.
func singleInstance(rec Recorded, live, candidates []redfish.Instance) []Entry {
	recPath := redfish.NormalizePath(rec.Path)

	var target *redfish.Instance
	for i := range candidates {
		if candidates[i].Path == recPath {
			target = &candidates[i]
			break
		}
	}
	if target == nil && len(candidates) > 0 {
		target = &candidates[0]
	}

	var entries []Entry
	fe := Entry{Path: recPath, RecordedPath: recPath, Origin: OriginFile, File: rec.Tree}
	if target != nil {
		fe.Path = target.Path
		fe.Live = target.Tree
		fe.Scanned = true
		if target.Path != recPath {
			fe.Reason = "re-targeted from " + recPath
		}
	}
	entries = append(entries, fe)

	for _, inst := range live {
		if target != nil && inst.Path == target.Path {
			continue
		}
		entries = append(entries, serverEntry(inst))
	}
	return entries
}

func multiInstance(in Input, live []redfish.Instance) []Entry {
	byPath := make(map[string]int, len(live))
	byKey := make(map[string]int)
	for i, inst := range live {
		byPath[inst.Path] = i
		if in.Key != nil {
			if k := in.Key(inst.Tree); k != "" {
				if _, dup := byKey[k]; !dup {
					byKey[k] = i
				}
			}
		}
	}

	used := make(map[int]bool, len(live))
	var entries []Entry
	for _, rec := range in.Recorded {
		recPath := redfish.NormalizePath(rec.Path)
		fe := Entry{Path: recPath, RecordedPath: recPath, Origin: OriginFile, File: rec.Tree}

		idx, ok := -1, false
		if in.Key != nil {
			if k := in.Key(rec.Tree); k != "" {
				idx, ok = byKey[k]
			}
		}
		if !ok {
			idx, ok = byPath[recPath]
			// A path already claimed by identity belongs to another instance.
			if ok && in.Key != nil && in.Key(rec.Tree) != "" && in.Key(live[idx].Tree) != "" {
				ok = false
			}
		}
		if ok && !used[idx] {
			used[idx] = true
			fe.Path = live[idx].Path
			fe.Live = live[idx].Tree
			fe.Scanned = true
		}
		entries = append(entries, fe)
	}

	for i, inst := range live {
		if !used[i] {
			entries = append(entries, serverEntry(inst))
		}
	}
	return entries
}

func serverEntry(inst redfish.Instance) Entry {
	return Entry{Path: inst.Path, Origin: OriginServer, Live: inst.Tree, Scanned: true}
}

func classify(scan *Scan, typeName string, policy Policy) {
	for i := range scan.Entries {
		e := &scan.Entries[i]
		switch {
		case e.Origin == OriginFile && e.Live != nil:
			e.Action = ActionPatch
		case e.Origin == OriginFile:
			e.Action = ActionCreate
		default:
			if reason, keep := policy.Keep(typeName, e.Live); keep {
				e.Action = ActionSkip
				e.Reason = reason
			} else {
				e.Action = ActionDelete
			}
		}
	}
}

// SplitRoot separates a path into the collection root and the instance
// suffix. The split happens at the last segment equal to id, or before the
// last segment when id does not occur.
func SplitRoot(path, id string) (root, suffix string) {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(segs) == 1 && segs[0] == "" {
		return "/", ""
	}
	at := len(segs) - 1
	if id != "" {
		for i := len(segs) - 1; i >= 0; i-- {
			if segs[i] == id {
				at = i
				break
			}
		}
	}
	root = "/" + strings.Join(segs[:at], "/")
	if at > 0 {
		root += "/"
	}
	return root, strings.Join(segs[at:], "/")
}

func isNumeric(s string) bool {
	if i := strings.Index(s, "/"); i >= 0 {
		s = s[:i]
	}
	_, err := strconv.Atoi(s)
	return err == nil
}

func isFederation(typeName string) bool {
	return strings.Contains(strings.ToLower(typeName), "federation")
}
