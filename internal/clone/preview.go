package clone

import (
	"fmt"

	"github.com/melih-ucgun/clonectl/internal/core"
	"github.com/melih-ucgun/clonectl/internal/plan"
	"github.com/melih-ucgun/clonectl/internal/tree"
)

// preview renders what a load would do without changing anything.
func (e *Engine) preview(rc *core.RunContext, rep *Report) {
	for _, it := range rep.Items {
		if !it.Mutating() {
			continue
		}
		var text string
		switch it.Method {
		case plan.MethodPatch, plan.MethodPut:
			var current tree.Tree
			if it.TargetRef == "" {
				current, _ = e.Client.Read(rc, it.TargetPath)
			}
			text = core.GenerateJSONDiff(it.Target(), subset(current, it.Body), it.Redacted())
		case plan.MethodAction:
			text = fmt.Sprintf("ACTION %s %s", it.Action, it.Target())
		default:
			text = fmt.Sprintf("%s %s", it.Method, it.Target())
		}
		if it.Description != "" {
			text = fmt.Sprintf("# %s\n%s", it.Description, text)
		}
		rep.Preview = append(rep.Preview, text)
		rc.UI.Println(text)
	}
}

// subset keeps the parts of current that body would overwrite.
func subset(current, body tree.Tree) tree.Tree {
	out := tree.Tree{}
	for k, v := range body {
		cur, ok := current[k]
		if !ok {
			continue
		}
		sub, isTree := tree.AsTree(v)
		curTree, curIsTree := tree.AsTree(cur)
		if isTree && curIsTree {
			out[k] = subset(curTree, sub)
			continue
		}
		out[k] = cur
	}
	return out
}
