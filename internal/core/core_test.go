package core

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDiff(t *testing.T) {
	out := GenerateDiff("bios", "a\nb\n", "a\nc\n")
	assert.Contains(t, out, "--- bios")
	assert.Contains(t, out, "  a")
	assert.Contains(t, out, "- b")
	assert.Contains(t, out, "+ c")
}

func TestGenerateJSONDiff(t *testing.T) {
	out := GenerateJSONDiff("", map[string]any{"HostName": "old"}, map[string]any{"HostName": "new"})
	assert.Contains(t, out, `-   "HostName": "old"`)
	assert.Contains(t, out, `+   "HostName": "new"`)
}

func TestExecuteTemplate(t *testing.T) {
	out, err := ExecuteTemplate(`clone-{{ .Target | lower }}-{{ .Missing | default "x" }}.json`, map[string]any{"Target": "ILO-01"})
	require.NoError(t, err)
	assert.Equal(t, "clone-ilo-01-x.json", out)

	_, err = ExecuteTemplate(`{{ .Target`, nil)
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	s := Summarize([]Result{
		SuccessChange("patched"),
		SuccessNoChange("nothing to do"),
		Failure(errors.New("boom"), "failed"),
		SuccessChange("created"),
	})
	assert.Equal(t, Summary{Changed: 2, Unchanged: 1, Failed: 1}, s)
}

func TestDefaultLoggerLevels(t *testing.T) {
	var out bytes.Buffer
	logger := NewDefaultLogger(&out, LevelWarn)
	logger.Info("hidden")
	logger.Warn("shown", "section", "Bios")
	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "shown section=Bios")

	var sink bytes.Buffer
	withSink := logger.WithSink(&sink).With("target", "ilo1")
	withSink.Error("failed")
	assert.True(t, strings.Contains(sink.String(), "target=ilo1"))
}

func TestLevelFromVerbosity(t *testing.T) {
	assert.Equal(t, LevelInfo, LevelFromVerbosity(0))
	assert.Equal(t, LevelDebug, LevelFromVerbosity(1))
	assert.Equal(t, LevelTrace, LevelFromVerbosity(3))
}
