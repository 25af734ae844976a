package composer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/melih-ucgun/clonectl/internal/plan"
	"github.com/melih-ucgun/clonectl/internal/reconcile"
	"github.com/melih-ucgun/clonectl/internal/redfish"
	"github.com/melih-ucgun/clonectl/internal/tree"
)

// Identity creates and configures accounts and federation groups in two
// steps: the identity with its secret first, then its privileges.
type Identity struct {
	Default
	name         string
	keyFields    []string
	secretField  string
	privileges   []string
	createFields [][]string
}

// NewAccounts handles local manager accounts.
func NewAccounts() *Identity {
	return &Identity{
		name:        "accounts",
		keyFields:   []string{"UserName"},
		secretField: "Password",
		privileges:  []string{"Oem", "Hpe", "Privileges"},
		createFields: [][]string{
			{"UserName"},
			{"RoleId"},
			{"Enabled"},
			{"Oem", "Hpe", "LoginName"},
		},
	}
}

// NewFederation handles federation groups.
func NewFederation() *Identity {
	return &Identity{
		name:         "federation",
		keyFields:    []string{"GroupName", "Name", "Id"},
		secretField:  "GroupKey",
		privileges:   []string{"Privileges"},
		createFields: [][]string{{"GroupName"}},
	}
}

func (i *Identity) Name() string { return i.name }

func (i *Identity) Key(t tree.Tree) string {
	for _, f := range i.keyFields {
		if v := t.GetString(f); v != "" {
			return strings.ToLower(v)
		}
	}
	return ""
}

func (i *Identity) Save(env *Env, inst redfish.Instance) (tree.Tree, error) {
	return tree.Prune(tree.RemoveKeys(inst.Tree, func(k string) bool {
		return k == i.secretField || isCredential(k)
	}), nil), nil
}

func (i *Identity) Plan(env *Env, sec Section, e reconcile.Entry) ([]plan.Item, error) {
	switch e.Action {
	case reconcile.ActionCreate:
		return i.planCreate(env, sec, e)
	case reconcile.ActionPatch:
		return i.planModify(env, sec, e)
	}
	return i.Default.Plan(env, sec, e)
}

func (i *Identity) planCreate(env *Env, sec Section, e reconcile.Entry) ([]plan.Item, error) {
	privs := privilegeMap(e.File, i.privileges)
	if err := i.guard(env, privs); err != nil {
		return nil, fmt.Errorf("%s %q: %w", i.name, i.Key(e.File), err)
	}

	body := tree.Tree{}
	for _, p := range i.createFields {
		if v, ok := e.File.Get(p...); ok {
			body.Set(v, p...)
		}
	}
	body[i.secretField] = env.secret(fmt.Sprintf("%s for %s %q", i.secretField, sec.Name, i.Key(e.File)))

	root, _ := reconcile.SplitRoot(e.Path, e.File.GetString("Id"))
	create := plan.Item{
		ID:          itemID(sec, e.Path, "create"),
		Phase:       plan.PhaseCreate,
		Method:      plan.MethodPost,
		TargetPath:  root,
		Body:        body,
		Section:     sec.Type,
		Description: "create " + sec.Name + " " + i.Key(e.File),
		Secrets:     []string{i.secretField},
	}
	items := []plan.Item{create}

	if len(privs) > 0 {
		configure := tree.Tree{}
		configure.Set(tree.Tree(privs), i.privileges...)
		items = append(items, plan.Item{
			ID:          itemID(sec, e.Path, "privileges"),
			Phase:       plan.PhasePatch,
			Ordinal:     1,
			Method:      plan.MethodPatch,
			TargetRef:   create.ID,
			Body:        configure,
			Section:     sec.Type,
			Description: "set privileges of " + i.Key(e.File),
		})
	}
	return items, nil
}

func (i *Identity) planModify(env *Env, sec Section, e reconcile.Entry) ([]plan.Item, error) {
	patch := Patch(env, e)
	delete(patch, i.secretField)
	for _, f := range i.keyFields {
		delete(patch, f)
	}
	if len(patch) == 0 {
		return nil, nil
	}
	if err := i.guard(env, privilegeMap(patch, i.privileges)); err != nil {
		return nil, fmt.Errorf("%s %q: %w", i.name, i.Key(e.File), err)
	}
	item := patchItem(sec, e, patch)
	item.Description = "modify " + sec.Name + " " + i.Key(e.File)
	return []plan.Item{item}, nil
}

func privilegeMap(t tree.Tree, path []string) map[string]any {
	v, ok := t.Get(path...)
	if !ok {
		return nil
	}
	m, ok := tree.AsTree(v)
	if !ok {
		return nil
	}
	return map[string]any(m.Clone())
}

// guard refuses to grant privileges the applying account lacks.
func (i *Identity) guard(env *Env, requested map[string]any) error {
	var wanted []string
	for name, v := range requested {
		if b, ok := v.(bool); ok && b {
			wanted = append(wanted, name)
		}
	}
	if len(wanted) == 0 {
		return nil
	}
	if env.Options.Username == "" {
		env.logger().Warn("applying identity unknown, privilege checks disabled")
		return nil
	}

	held, err := applierPrivileges(env)
	if err != nil {
		return err
	}
	var missing []string
	for _, name := range wanted {
		if b, _ := held[name].(bool); !b {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %s lacks %s", ErrPrivilege, env.Options.Username, strings.Join(missing, ", "))
	}
	return nil
}

func applierPrivileges(env *Env) (map[string]any, error) {
	accounts, err := env.Client.Select(env.context(), "ManagerAccount")
	if err != nil {
		return nil, fmt.Errorf("reading privileges of %s: %w", env.Options.Username, err)
	}
	for _, acc := range accounts {
		if strings.EqualFold(acc.Tree.GetString("UserName"), env.Options.Username) {
			return privilegeMap(acc.Tree, []string{"Oem", "Hpe", "Privileges"}), nil
		}
	}
	return nil, fmt.Errorf("%w: account %s not found on target", ErrPrivilege, env.Options.Username)
}
