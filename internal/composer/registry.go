package composer

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Subject is the environment a match expression is evaluated against.
type Subject struct {
	Type string `expr:"type"`
	Path string `expr:"path"`
	Name string `expr:"name"`
}

type rule struct {
	name     string
	source   string
	program  *vm.Program
	composer Composer
}

// Registry maps match expressions to composers. Rules are tried in order;
// the fallback serves everything no rule claims.
type Registry struct {
	rules    []rule
	fallback Composer
}

// NewRegistry returns an empty registry.
func NewRegistry(fallback Composer) *Registry {
	return &Registry{fallback: fallback}
}

// Register compiles expression once and appends a rule.
func (r *Registry) Register(expression string, c Composer) error {
	program, err := expr.Compile(expression, expr.Env(Subject{}), expr.AsBool())
	if err != nil {
		return fmt.Errorf("invalid match expression for %s composer %q: %w", c.Name(), expression, err)
	}
	r.rules = append(r.rules, rule{name: c.Name(), source: expression, program: program, composer: c})
	return nil
}

// Lookup returns the first composer whose expression holds for s.
func (r *Registry) Lookup(s Subject) (Composer, error) {
	for _, rl := range r.rules {
		out, err := expr.Run(rl.program, s)
		if err != nil {
			return nil, fmt.Errorf("evaluating %s rule: %w", rl.name, err)
		}
		if ok, _ := out.(bool); ok {
			return rl.composer, nil
		}
	}
	return r.fallback, nil
}

// Rules lists the registered rule names and expressions, in order.
func (r *Registry) Rules() [][2]string {
	out := make([][2]string, 0, len(r.rules))
	for _, rl := range r.rules {
		out = append(out, [2]string{rl.name, rl.source})
	}
	return out
}

// DefaultTable is the built-in rule set.
var DefaultTable = []struct {
	Expression string
	New        func() Composer
}{
	{`type in ["EthernetInterface", "ManagerNetworkService", "HpeiLOSnmpService"]`, func() Composer { return NewNetwork() }},
	{`type == "HpeiLODateTime"`, func() Composer { return NewDateTime() }},
	{`type == "HpeiLOLicense" || path contains "/LicenseService/"`, func() Composer { return NewLicense() }},
	{`type == "ManagerAccount" || path contains "/AccountService/Accounts/"`, func() Composer { return NewAccounts() }},
	{`type == "HpeiLOFederationGroup" || path contains "/FederationGroups/"`, func() Composer { return NewFederation() }},
	{`type == "HpeSmartStorageConfig"`, func() Composer { return NewStorage() }},
	{`type in ["HpeHttpsCert", "HpeiLOSSO"]`, func() Composer { return NewCertificates() }},
	{`type == "Bios"`, func() Composer { return NewBios() }},
}

// NewDefaultRegistry builds the registry from DefaultTable.
func NewDefaultRegistry() (*Registry, error) {
	r := NewRegistry(NewDefault())
	for _, row := range DefaultTable {
		if err := r.Register(row.Expression, row.New()); err != nil {
			return nil, err
		}
	}
	return r, nil
}
