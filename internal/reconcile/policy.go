package reconcile

import (
	"strings"

	"github.com/melih-ucgun/clonectl/internal/tree"
)

// Guard reports whether a live-only instance must be kept, and why.
type Guard func(typeName string, live tree.Tree) (reason string, keep bool)

// Policy decides what happens to instances found only on the live system.
type Policy struct {
	// Fixed lists types backed by hardware or firmware; their instances are
	// never deleted.
	Fixed  map[string]struct{}
	Guards []Guard
}

// FixedTypes are the supported types that cannot be created or removed.
var FixedTypes = []string{
	"ComputerSystem",
	"Bios",
	"SecureBoot",
	"HpeServerBootSettings",
	"Manager",
	"ManagerNetworkService",
	"EthernetInterface",
	"HpeiLODateTime",
	"AccountService",
	"HpeSmartStorageConfig",
	"HpeiLOSnmpService",
	"HpeHttpsCert",
	"HpeiLOSSO",
	"HpeESKM",
}

// DefaultPolicy protects fixed types, the default administrator and the
// default federation group.
func DefaultPolicy() Policy {
	p := Policy{Fixed: make(map[string]struct{}, len(FixedTypes))}
	for _, t := range FixedTypes {
		p.Fixed[strings.ToLower(t)] = struct{}{}
	}
	p.Guards = []Guard{protectAdministrator, protectDefaultGroup}
	return p
}

// Keep reports whether a live-only instance of typeName is skipped.
func (p Policy) Keep(typeName string, live tree.Tree) (string, bool) {
	if _, ok := p.Fixed[strings.ToLower(typeName)]; ok {
		return "fixed resource type", true
	}
	for _, g := range p.Guards {
		if reason, keep := g(typeName, live); keep {
			return reason, true
		}
	}
	return "", false
}

func protectAdministrator(typeName string, live tree.Tree) (string, bool) {
	if !strings.EqualFold(typeName, "ManagerAccount") {
		return "", false
	}
	if live.GetString("Id") == "1" || strings.EqualFold(live.GetString("UserName"), "Administrator") {
		return "default administrator account", true
	}
	return "", false
}

func protectDefaultGroup(typeName string, live tree.Tree) (string, bool) {
	if !isFederation(typeName) {
		return "", false
	}
	if strings.EqualFold(live.GetString("Name"), "DEFAULT") || strings.EqualFold(live.GetString("Id"), "DEFAULT") {
		return "default federation group", true
	}
	return "", false
}
