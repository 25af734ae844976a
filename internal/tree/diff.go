package tree

// AtomicGroup is a set of sibling keys the controller only accepts together.
type AtomicGroup []string

// DefaultGroups covers address blocks and time-zone bound NTP settings.
var DefaultGroups = []AtomicGroup{
	{"Address", "SubnetMask", "Gateway"},
	{"Address", "PrefixLength"},
	{"StaticNTPServers", "TimeZone"},
}

// Diff returns the keys of desired that are missing from live or differ from
// it, recursing into mappings. Keys present only in live are never emitted.
func Diff(live, desired Tree) Tree {
	return DiffGroups(live, desired, DefaultGroups)
}

// DiffGroups is Diff with an explicit set of atomic groups applied at every
// mapping level.
func DiffGroups(live, desired Tree, groups []AtomicGroup) Tree {
	patch := Tree{}
	for k, dv := range desired {
		lv, ok := live[k]
		if !ok {
			patch[k] = cloneValue(dv)
			continue
		}
		if dt, ok := AsTree(dv); ok {
			if lt, ok := AsTree(lv); ok {
				if sub := DiffGroups(lt, dt, groups); len(sub) > 0 {
					patch[k] = sub
				}
				continue
			}
		}
		if !Equal(lv, dv) {
			patch[k] = cloneValue(dv)
		}
	}

	for _, g := range groups {
		touched := false
		for _, k := range g {
			if _, ok := patch[k]; ok {
				touched = true
				break
			}
		}
		if !touched {
			continue
		}
		for _, k := range g {
			if dv, ok := desired[k]; ok {
				if _, done := patch[k]; done {
					if _, isTree := AsTree(dv); !isTree {
						continue
					}
				}
				patch[k] = cloneValue(dv)
			}
		}
	}
	return patch
}
