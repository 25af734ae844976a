// Package composer holds the per-subsystem rules that turn live resources
// into portable snapshot trees and snapshot entries into plan items.
package composer

import (
	"context"
	"errors"

	"github.com/melih-ucgun/clonectl/internal/core"
	"github.com/melih-ucgun/clonectl/internal/plan"
	"github.com/melih-ucgun/clonectl/internal/reconcile"
	"github.com/melih-ucgun/clonectl/internal/redfish"
	"github.com/melih-ucgun/clonectl/internal/tree"
)

// PlaceholderLicense stands for a license key that could not be captured.
const PlaceholderLicense = "XXXXX-XXXXX-XXXXX-XXXXX-XXXXX"

var (
	// ErrPrivilege aborts an item that would grant a privilege the applying
	// identity does not hold.
	ErrPrivilege = errors.New("privilege escalation refused")
	// ErrSkipped marks an item deliberately left out; it is not a failure.
	ErrSkipped = errors.New("item skipped")
)

// Options steer how composers build plan items.
type Options struct {
	// Username is the identity performing the apply.
	Username string
	// PlaceholderPassword is used for new identities when nobody can be asked.
	PlaceholderPassword string
	Interactive         bool
	OverwriteUnique     bool
	ResetBIOSDefaults   bool
	// SSLCert and SSOCert hold PEM contents of supplementary certificates.
	SSLCert string
	SSOCert string
}

// Env is what a composer may use while saving or planning.
type Env struct {
	Ctx     context.Context
	Client  redfish.Client
	Logger  core.Logger
	UI      core.UI
	Options Options
}

// Section identifies the snapshot section being planned.
type Section struct {
	// Type is the raw versioned type recorded in the snapshot.
	Type string
	// Name is the bare type name.
	Name string
}

// Composer transforms one family of resources.
type Composer interface {
	Name() string
	// Save turns a pruned live tree into its portable form.
	Save(env *Env, inst redfish.Instance) (tree.Tree, error)
	// Plan turns a reconciled entry into zero or more plan items.
	Plan(env *Env, sec Section, e reconcile.Entry) ([]plan.Item, error)
}

// Keyer composers pair instances by identity rather than by path.
type Keyer interface {
	Key(t tree.Tree) string
}

// PatchBlock is the blocklist applied before diffing an entry.
func PatchBlock(opts Options) tree.Blocklist {
	block := tree.ReadOnly.With(keys(tree.Identity)...)
	if !opts.OverwriteUnique {
		block = block.With(keys(tree.Unique)...)
	}
	return block
}

// CreateBlock is the blocklist applied to the body of a create.
func CreateBlock(opts Options) tree.Blocklist {
	block := tree.ReadOnly.With("Id")
	if !opts.OverwriteUnique {
		block = block.With(keys(tree.Unique)...)
	}
	return block
}

func keys(b tree.Blocklist) []string {
	out := make([]string, 0, len(b))
	for k := range b {
		out = append(out, k)
	}
	return out
}

func (env *Env) context() context.Context {
	if env.Ctx == nil {
		return context.Background()
	}
	return env.Ctx
}

func (env *Env) logger() core.Logger {
	if env.Logger == nil {
		return core.NopLogger{}
	}
	return env.Logger
}

func (env *Env) ui() core.UI {
	if env.UI == nil {
		return &core.NoOpUI{}
	}
	return env.UI
}

// secret asks the operator for a value, falling back to the placeholder
// password when the run is not interactive or the prompt fails.
func (env *Env) secret(prompt string) string {
	if env.Options.Interactive {
		if v, err := env.ui().Secret(prompt); err == nil && v != "" {
			return v
		}
	}
	return env.Options.PlaceholderPassword
}

// itemID builds a stable plan item id.
func itemID(sec Section, path, suffix string) string {
	id := sec.Name + ":" + path
	if suffix != "" {
		id += "#" + suffix
	}
	return id
}
