// Package plan models the ordered operations an apply run executes.
package plan

import (
	"fmt"
	"sort"

	"github.com/melih-ucgun/clonectl/internal/tree"
)

// Phase buckets items; phases always execute in declaration order.
type Phase int

const (
	PhaseDelete Phase = iota
	PhaseCreate
	PhasePatch
	PhaseReset
)

func (p Phase) String() string {
	switch p {
	case PhaseDelete:
		return "delete"
	case PhaseCreate:
		return "create"
	case PhasePatch:
		return "patch"
	case PhaseReset:
		return "reset"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Methods of a plan item.
const (
	MethodPost   = "POST"
	MethodPatch  = "PATCH"
	MethodPut    = "PUT"
	MethodDelete = "DELETE"
	MethodAction = "ACTION"
)

// Item is one concrete operation against the controller.
type Item struct {
	ID    string
	Phase Phase
	// Ordinal orders items inside a phase; lower runs first.
	Ordinal    int
	Method     string
	TargetPath string
	// TargetRef names an earlier item whose created location replaces
	// TargetPath at execution time.
	TargetRef   string
	Action      string
	Body        tree.Tree
	Section     string
	Description string
	// Secrets lists body keys masked when the item is logged or displayed.
	Secrets []string
}

// Mutating reports whether executing the item changes the controller.
func (i Item) Mutating() bool {
	return i.Method != ""
}

// Target is a display form of the destination.
func (i Item) Target() string {
	if i.TargetRef != "" && i.TargetPath == "" {
		return "<created by " + i.TargetRef + ">"
	}
	return i.TargetPath
}

// Redacted returns the body with secrets masked at any depth.
func (i Item) Redacted() tree.Tree {
	body := i.Body.Clone()
	if len(i.Secrets) == 0 {
		return body
	}
	secret := make(map[string]bool, len(i.Secrets))
	for _, k := range i.Secrets {
		secret[k] = true
	}
	mask(body, secret)
	return body
}

func mask(v any, secret map[string]bool) {
	switch val := v.(type) {
	case tree.Tree:
		for k, sub := range val {
			if secret[k] {
				val[k] = "********"
				continue
			}
			mask(sub, secret)
		}
	case map[string]any:
		mask(tree.Tree(val), secret)
	case []any:
		for _, item := range val {
			mask(item, secret)
		}
	}
}

// Plan is the full ordered set of items of a run.
type Plan struct {
	Items []Item
}

// Add appends items.
func (p *Plan) Add(items ...Item) {
	p.Items = append(p.Items, items...)
}

// Len counts items.
func (p *Plan) Len() int {
	return len(p.Items)
}

// Ordered returns items sorted by phase then ordinal, keeping insertion order
// for ties. PATCH items aimed at the same target within a phase are merged
// into the first one, so augmenting composers can contribute to another
// instance's patch.
func (p *Plan) Ordered() []Item {
	items := append([]Item(nil), p.Items...)
	sort.SliceStable(items, func(a, b int) bool {
		if items[a].Phase != items[b].Phase {
			return items[a].Phase < items[b].Phase
		}
		return items[a].Ordinal < items[b].Ordinal
	})

	out := make([]Item, 0, len(items))
	patchAt := make(map[string]int)
	for _, it := range items {
		if it.Method == MethodPatch && it.TargetRef == "" {
			key := fmt.Sprintf("%d|%s", it.Phase, it.TargetPath)
			if idx, ok := patchAt[key]; ok {
				merged := out[idx]
				merged.Body = tree.Overlay(merged.Body, it.Body)
				merged.Secrets = append(merged.Secrets, it.Secrets...)
				if it.Description != "" && it.Description != merged.Description {
					merged.Description += "; " + it.Description
				}
				out[idx] = merged
				continue
			}
			patchAt[key] = len(out)
		}
		out = append(out, it)
	}
	return out
}

// CountMutating counts items that would change the controller.
func (p *Plan) CountMutating() int {
	n := 0
	for _, it := range p.Items {
		if it.Mutating() {
			n++
		}
	}
	return n
}
