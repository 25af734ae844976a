package composer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/melih-ucgun/clonectl/internal/plan"
	"github.com/melih-ucgun/clonectl/internal/reconcile"
	"github.com/melih-ucgun/clonectl/internal/redfish"
	"github.com/melih-ucgun/clonectl/internal/tree"
)

var licenseShape = regexp.MustCompile(`^[A-Za-z0-9]{5}(-[A-Za-z0-9]{5}){4}$`)

// License keeps a license key only when it was fully readable and installs
// it on load.
type License struct {
	Default
}

func NewLicense() *License { return &License{} }

func (l *License) Name() string { return "license" }

// ValidLicense reports whether key has five groups of five characters.
func ValidLicense(key string) bool {
	return licenseShape.MatchString(key)
}

// masked reports whether any group of key is hidden by the controller.
func masked(key string) bool {
	for _, g := range strings.Split(key, "-") {
		if strings.Trim(g, "X*") == "" {
			return true
		}
	}
	return false
}

func (l *License) Save(env *Env, inst redfish.Instance) (tree.Tree, error) {
	out := tree.Tree{}
	for _, k := range []string{"Id", "LicenseType", "LicenseKey"} {
		if v, ok := inst.Tree[k]; ok {
			out[k] = v
		}
	}
	key := inst.Tree.GetString("LicenseKey")
	if key == "" {
		key = inst.Tree.GetString("ConfirmationRequest", "EON", "LicenseKey")
	}
	if !ValidLicense(key) || masked(key) {
		key = PlaceholderLicense
	}
	out["LicenseKey"] = key
	return out, nil
}

func (l *License) Plan(env *Env, sec Section, e reconcile.Entry) ([]plan.Item, error) {
	if e.Action == reconcile.ActionDelete || e.Action == reconcile.ActionSkip {
		return l.Default.Plan(env, sec, e)
	}

	key := e.File.GetString("LicenseKey")
	if strings.TrimSpace(key) == "" || strings.EqualFold(key, PlaceholderLicense) {
		env.logger().Info("no license key on file, skipping license", "path", e.RecordedPath)
		return nil, nil
	}
	if !ValidLicense(key) {
		env.logger().Warn("license key has an invalid format, skipping license", "path", e.RecordedPath)
		return nil, fmt.Errorf("license key for %s: %w", e.RecordedPath, ErrSkipped)
	}
	if installed(e.Live.GetString("LicenseKey"), key) {
		return nil, nil
	}

	root, _ := reconcile.SplitRoot(e.Path, e.Live.GetString("Id"))
	return []plan.Item{{
		ID:          itemID(sec, e.Path, "install"),
		Phase:       plan.PhaseCreate,
		Method:      plan.MethodPost,
		TargetPath:  root,
		Body:        tree.Tree{"LicenseKey": key},
		Section:     sec.Type,
		Description: "install license",
		Secrets:     []string{"LicenseKey"},
	}}, nil
}

// installed compares a possibly masked live key with key group by group.
func installed(live, key string) bool {
	if live == "" {
		return false
	}
	lg := strings.Split(live, "-")
	kg := strings.Split(key, "-")
	if len(lg) != len(kg) {
		return false
	}
	seen := 0
	for i := range lg {
		if strings.Trim(lg[i], "X*") == "" {
			continue
		}
		if !strings.EqualFold(lg[i], kg[i]) {
			return false
		}
		seen++
	}
	return seen > 0
}
