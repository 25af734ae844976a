package composer

import (
	"strings"

	"github.com/melih-ucgun/clonectl/internal/plan"
	"github.com/melih-ucgun/clonectl/internal/reconcile"
	"github.com/melih-ucgun/clonectl/internal/redfish"
	"github.com/melih-ucgun/clonectl/internal/tree"
)

// Locations of the DHCP switch, most specific first.
var dhcpSwitches = [][]string{
	{"DHCPv4", "DHCPEnabled"},
	{"Oem", "Hpe", "DHCPv4", "Enabled"},
	{"DHCPEnabled"},
}

// Values that only apply while DHCP is off.
var staticFields = [][]string{
	{"IPv4Addresses"},
	{"IPv4StaticAddresses"},
	{"IPv6StaticAddresses"},
	{"IPv6DefaultGateway"},
	{"StaticNameServers"},
	{"NameServers"},
	{"Oem", "Hpe", "IPv4", "DNSServers"},
	{"Oem", "Hpe", "IPv4", "StaticRoutes"},
	{"Oem", "Hpe", "IPv4", "WINSServers"},
	{"Oem", "Hpe", "IPv6", "DNSServers"},
	{"Oem", "Hpe", "IPv6", "StaticRoutes"},
}

// Network resolves DHCP/static dependencies on interfaces and keeps
// credentials of network services out of snapshots.
type Network struct {
	Default
}

func NewNetwork() *Network { return &Network{} }

func (n *Network) Name() string { return "network" }

func isCredential(key string) bool {
	return strings.HasSuffix(key, "Password") ||
		strings.HasSuffix(key, "Passphrase") ||
		strings.HasSuffix(key, "Key")
}

func (n *Network) Save(env *Env, inst redfish.Instance) (tree.Tree, error) {
	return tree.Prune(tree.RemoveKeys(inst.Tree, isCredential), nil), nil
}

func (n *Network) Plan(env *Env, sec Section, e reconcile.Entry) ([]plan.Item, error) {
	if e.Action != reconcile.ActionPatch {
		return n.Default.Plan(env, sec, e)
	}

	patch := ResolveDHCP(Patch(env, e), e.Live, tree.Prune(e.File.Clone(), PatchBlock(env.Options)))
	secrets := n.fillSNMPSecrets(env, patch)
	if len(patch) == 0 {
		return nil, nil
	}
	item := patchItem(sec, e, patch)
	item.Secrets = secrets
	return []plan.Item{item}, nil
}

// dhcp returns the DHCP switch of t and whether one was found.
func dhcp(t tree.Tree) (bool, bool) {
	for _, p := range dhcpSwitches {
		if v, ok := t.GetBool(p...); ok {
			return v, true
		}
	}
	return false, false
}

// ResolveDHCP adjusts a diff patch to the DHCP state being applied. Turning
// DHCP on drops every static field; turning it off forces all recorded
// static fields into the patch.
func ResolveDHCP(patch, live, desired tree.Tree) tree.Tree {
	want, ok := dhcp(desired)
	if !ok {
		return patch
	}
	if want {
		for _, p := range staticFields {
			patch.Delete(p...)
		}
		return patch
	}
	if had, _ := dhcp(live); !had {
		return patch
	}
	for _, p := range staticFields {
		if v, ok := desired.Get(p...); ok {
			patch.Set(v, p...)
		}
	}
	return patch
}

// fillSNMPSecrets asks for the passphrases of SNMPv3 users present in the
// patch, since snapshots never carry them.
func (n *Network) fillSNMPSecrets(env *Env, patch tree.Tree) []string {
	users, ok := patch["SNMPv3Users"].([]any)
	if !ok {
		return nil
	}
	var secrets []string
	for _, u := range users {
		user, ok := tree.AsTree(u)
		if !ok {
			continue
		}
		name := user.GetString("SecurityName")
		for _, field := range []string{"AuthPassphrase", "PrivacyPassphrase"} {
			if user.GetString(field) != "" {
				continue
			}
			user[field] = env.secret(field + " for SNMPv3 user " + name)
			secrets = append(secrets, field)
		}
	}
	return secrets
}
