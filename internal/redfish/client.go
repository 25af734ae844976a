// Package redfish defines the management-controller collaborator the clone
// engine talks to, with an HTTP implementation and an in-memory one.
package redfish

import (
	"context"
	"errors"
	"strings"

	"github.com/melih-ucgun/clonectl/internal/tree"
)

// Write methods accepted by Client.Write.
const (
	MethodPatch = "PATCH"
	MethodPut   = "PUT"
)

// Reset scopes reported by pending changes.
const (
	ScopeManager = "Manager"
	ScopeSystem  = "System"
)

var ErrNotFound = errors.New("resource not found")

// Instance is one resource on the controller.
type Instance struct {
	Path string
	Type string
	Tree tree.Tree
}

// Response is what the controller returned for a create or an action.
type Response struct {
	Status   int
	Location string
	Body     tree.Tree
}

// PendingChange describes a change that only takes effect after a reset.
type PendingChange struct {
	Resource    string
	Description string
	Scope       string
}

// Client is the protocol collaborator consumed by the engine.
type Client interface {
	// Select returns every instance whose type name matches typeName.
	Select(ctx context.Context, typeName string) ([]Instance, error)
	Read(ctx context.Context, path string) (tree.Tree, error)
	Write(ctx context.Context, path string, body tree.Tree, method string) error
	Create(ctx context.Context, path string, body tree.Tree) (Response, error)
	Delete(ctx context.Context, path string) error
	InvokeAction(ctx context.Context, path, action string, body tree.Tree) (Response, error)
	Status(ctx context.Context) ([]PendingChange, error)
	// Reconnect re-establishes the session after a controller reset.
	Reconnect(ctx context.Context) error
}

// TypeName strips the "#" and version from a raw @odata.type.
func TypeName(raw string) string {
	s := strings.TrimPrefix(strings.TrimSpace(raw), "#")
	if i := strings.Index(s, "."); i >= 0 {
		s = s[:i]
	}
	return s
}

// NormalizePath makes a resource path end with a single slash.
func NormalizePath(p string) string {
	if p == "" {
		return "/"
	}
	return strings.TrimRight(p, "/") + "/"
}
