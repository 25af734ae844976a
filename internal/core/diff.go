package core

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// GenerateDiff generates a line diff between current and desired content.
// Lines are prefixed "+ ", "- " or "  ".
func GenerateDiff(name, current, desired string) string {
	dmp := diffmatchpatch.New()

	a, b, c := dmp.DiffLinesToChars(current, desired)
	diffs := dmp.DiffMain(a, b, false)
	result := dmp.DiffCharsToLines(diffs, c)

	var buff bytes.Buffer
	if name != "" {
		buff.WriteString("--- " + name + "\n")
	}
	for _, diff := range result {
		prefix := "  "
		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		}
		for _, line := range strings.Split(diff.Text, "\n") {
			if line == "" {
				continue
			}
			buff.WriteString(prefix + line + "\n")
		}
	}
	return buff.String()
}

// GenerateJSONDiff renders both values as indented JSON and diffs them.
func GenerateJSONDiff(name string, current, desired any) string {
	return GenerateDiff(name, indent(current), indent(desired))
}

func indent(v any) string {
	if v == nil {
		return ""
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return string(data) + "\n"
}
