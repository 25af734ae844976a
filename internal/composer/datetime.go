package composer

import (
	"fmt"

	"github.com/melih-ucgun/clonectl/internal/plan"
	"github.com/melih-ucgun/clonectl/internal/reconcile"
	"github.com/melih-ucgun/clonectl/internal/tree"
)

// Places an interface exposes the "use DHCP supplied NTP servers" flag.
var ntpFlags = [][]string{
	{"DHCPv4", "UseNTPServers"},
	{"DHCPv6", "UseNTPServers"},
	{"Oem", "Hpe", "DHCPv4", "UseNTPServers"},
	{"Oem", "Hpe", "DHCPv6", "UseNTPServers"},
}

// DateTime patches the time settings and, when static NTP servers are
// applied, switches off DHCP supplied NTP on every interface offering it.
type DateTime struct {
	Default
}

func NewDateTime() *DateTime { return &DateTime{} }

func (d *DateTime) Name() string { return "datetime" }

func (d *DateTime) Plan(env *Env, sec Section, e reconcile.Entry) ([]plan.Item, error) {
	if e.Action != reconcile.ActionPatch {
		return d.Default.Plan(env, sec, e)
	}
	patch := Patch(env, e)
	if len(patch) == 0 {
		return nil, nil
	}

	own := patchItem(sec, e, patch)
	// After the interfaces stop overriding the servers.
	own.Ordinal = 2

	items := []plan.Item{own}
	if !hasServers(patch["StaticNTPServers"]) {
		return items, nil
	}

	interfaces, err := env.Client.Select(env.context(), "EthernetInterface")
	if err != nil {
		return nil, fmt.Errorf("listing interfaces for NTP settings: %w", err)
	}
	for _, iface := range interfaces {
		body := tree.Tree{}
		for _, p := range ntpFlags {
			if on, ok := iface.Tree.GetBool(p...); ok && on {
				body.Set(false, p...)
			}
		}
		if len(body) == 0 {
			continue
		}
		target := SettingsTarget(reconcile.Entry{Path: iface.Path, Live: iface.Tree})
		items = append(items, plan.Item{
			ID:          itemID(sec, iface.Path, "ntp"),
			Phase:       plan.PhasePatch,
			Ordinal:     1,
			Method:      plan.MethodPatch,
			TargetPath:  target,
			Body:        body,
			Section:     sec.Type,
			Description: "use static NTP servers",
		})
	}
	return items, nil
}

func hasServers(v any) bool {
	list, ok := v.([]any)
	if !ok {
		return false
	}
	for _, s := range list {
		if str, ok := s.(string); ok && str != "" {
			return true
		}
	}
	return false
}
