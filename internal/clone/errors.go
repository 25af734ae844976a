package clone

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/melih-ucgun/clonectl/internal/crypto"
	"github.com/melih-ucgun/clonectl/internal/redfish"
	"github.com/melih-ucgun/clonectl/internal/snapshot"
)

var (
	ErrNoDifferences = stderrors.New("no differences found")
	ErrTimeout       = stderrors.New("timed out")
	ErrIncompatible  = stderrors.New("incompatible system")
	ErrCancelled     = stderrors.New("cancelled by operator")
	ErrPartial       = stderrors.New("some operations failed, check the log")
)

// Exit statuses of the command line.
const (
	ExitOK           = 0
	ExitOther        = 1
	ExitNoDiff       = 3
	ExitInvalidFile  = 4
	ExitDecrypt      = 5
	ExitIncompatible = 6
	ExitPartial      = 7
	ExitCancelled    = 130
)

// OpError is a failed operation with the context needed to diagnose it.
type OpError struct {
	Op string
	// Simplified is the one-line message shown to the operator.
	Simplified string
	// Err carries the stack of the point where the failure was recorded.
	Err  error
	Args map[string]any
}

// NewOpError wraps err with a stack trace.
func NewOpError(op string, err error, args map[string]any) *OpError {
	return &OpError{
		Op:         op,
		Simplified: Simplify(err),
		Err:        errors.WithStack(err),
		Args:       args,
	}
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Simplified)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Trace renders the wrapped error with its stack.
func (e *OpError) Trace() string {
	return fmt.Sprintf("%+v", e.Err)
}

// Simplify reduces an error to a single line.
func Simplify(err error) string {
	if err == nil {
		return ""
	}
	var se *redfish.StatusError
	if stderrors.As(err, &se) {
		return se.Error()
	}
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return msg
}

// ExitCode maps an error returned by Save or Load to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case stderrors.Is(err, ErrNoDifferences):
		return ExitNoDiff
	case stderrors.Is(err, snapshot.ErrNotFound), stderrors.Is(err, snapshot.ErrMalformed), stderrors.Is(err, ErrInvalidOptions):
		return ExitInvalidFile
	case stderrors.Is(err, snapshot.ErrDecrypt), stderrors.Is(err, crypto.ErrKeySize):
		return ExitDecrypt
	case stderrors.Is(err, ErrIncompatible):
		return ExitIncompatible
	case stderrors.Is(err, ErrPartial):
		return ExitPartial
	case stderrors.Is(err, ErrCancelled), stderrors.Is(err, context.Canceled):
		return ExitCancelled
	}
	return ExitOther
}
