package tree

// Blocklist is a set of top-level keys removed by Prune.
type Blocklist map[string]struct{}

// NewBlocklist builds a Blocklist from keys.
func NewBlocklist(keys ...string) Blocklist {
	b := make(Blocklist, len(keys))
	for _, k := range keys {
		b[k] = struct{}{}
	}
	return b
}

// With returns a copy extended by keys.
func (b Blocklist) With(keys ...string) Blocklist {
	out := make(Blocklist, len(b)+len(keys))
	for k := range b {
		out[k] = struct{}{}
	}
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out
}

// Without returns a copy with keys removed.
func (b Blocklist) Without(keys ...string) Blocklist {
	out := make(Blocklist, len(b))
	for k := range b {
		out[k] = struct{}{}
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// Navigation, status and action blocks never accepted on write-back.
var ReadOnly = NewBlocklist(
	"@odata.context",
	"@odata.etag",
	"@odata.id",
	"@odata.type",
	"@Redfish.Settings",
	"Actions",
	"Links",
	"Status",
	"Members",
	"Members@odata.count",
)

// Identity are the read-only identity fields. Snapshots keep them so
// instances can be addressed; write-back strips them.
var Identity = NewBlocklist("Id", "Name", "Description")

// Unique are values that identify one physical system. They are only written
// when overwriting unique values is allowed.
var Unique = NewBlocklist("UUID", "SerialNumber", "HostName", "FQDN", "PermanentMACAddress", "MACAddress")

// Placeholder values the controller reports for unset fields.
var sentinels = map[string]struct{}{
	"Unknown": {},
	"0.0.0.0": {},
	"::":      {},
}

// Prune removes blocklisted top-level keys, then recursively drops keys whose
// value is nil, an empty string, an empty container or a placeholder. Children
// are pruned before their parent is judged, so one pass reaches a fixpoint.
// The tree is modified in place and returned.
func Prune(t Tree, block Blocklist) Tree {
	if t == nil {
		return nil
	}
	for k := range block {
		delete(t, k)
	}
	pruneTree(t)
	return t
}

func pruneTree(t Tree) {
	for k, v := range t {
		v = pruneValue(v)
		if isEmpty(v) {
			delete(t, k)
			continue
		}
		t[k] = v
	}
}

// Sequence elements are pruned but never removed.
func pruneValue(v any) any {
	switch val := v.(type) {
	case Tree:
		pruneTree(val)
		return val
	case map[string]any:
		m := Tree(val)
		pruneTree(m)
		return m
	case []any:
		for i := range val {
			val[i] = pruneValue(val[i])
		}
		return val
	}
	return v
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		if val == "" {
			return true
		}
		_, ok := sentinels[val]
		return ok
	case Tree:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	case []any:
		return len(val) == 0
	}
	return false
}

// RemoveKeys deletes every key, at any depth, for which match returns true.
func RemoveKeys(t Tree, match func(key string) bool) Tree {
	for k, v := range t {
		if match(k) {
			delete(t, k)
			continue
		}
		removeKeysValue(v, match)
	}
	return t
}

func removeKeysValue(v any, match func(string) bool) {
	switch val := v.(type) {
	case Tree:
		RemoveKeys(val, match)
	case map[string]any:
		RemoveKeys(Tree(val), match)
	case []any:
		for _, item := range val {
			removeKeysValue(item, match)
		}
	}
}
