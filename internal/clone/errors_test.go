package clone

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/melih-ucgun/clonectl/internal/crypto"
	"github.com/melih-ucgun/clonectl/internal/redfish"
	"github.com/melih-ucgun/clonectl/internal/snapshot"
)

func TestOpError(t *testing.T) {
	cause := &redfish.StatusError{Method: "PATCH", Path: systemPath, Code: 400}
	err := NewOpError("PATCH "+systemPath, fmt.Errorf("write: %w", cause), map[string]any{"item": "x"})

	assert.Equal(t, "PATCH "+systemPath+": "+cause.Error(), err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, strings.Contains(err.Trace(), "NewOpError"))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{ErrNoDifferences, ExitNoDiff},
		{fmt.Errorf("x: %w", snapshot.ErrNotFound), ExitInvalidFile},
		{snapshot.ErrMalformed, ExitInvalidFile},
		{snapshot.ErrDecrypt, ExitDecrypt},
		{crypto.ErrKeySize, ExitDecrypt},
		{ErrIncompatible, ExitIncompatible},
		{ErrPartial, ExitPartial},
		{ErrCancelled, ExitCancelled},
		{errors.New("boom"), ExitOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExitCode(tt.err), fmt.Sprint(tt.err))
	}
}

func TestOptionsValidate(t *testing.T) {
	opts := DefaultOptions()
	assert.NoError(t, opts.Validate())

	opts.EncryptionKey = "hex:" + strings.Repeat("ab", 16)
	assert.NoError(t, opts.Validate())

	opts.EncryptionKey = "tooshort"
	assert.ErrorIs(t, opts.Validate(), crypto.ErrKeySize)

	opts = DefaultOptions()
	opts.Path = ""
	opts.Recipients = []string{"ssh-ed25519 AAAA"}
	err := opts.Validate()
	assert.ErrorIs(t, err, ErrInvalidOptions)
	assert.Contains(t, err.Error(), "Path")
}
