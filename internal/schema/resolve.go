package schema

// Resolution is the outcome of looking up a recorded type on a live system.
type Resolution int

const (
	NotFound Resolution = iota
	Found
	Incompatible
)

func (r Resolution) String() string {
	switch r {
	case Found:
		return "found"
	case Incompatible:
		return "incompatible"
	default:
		return "not found"
	}
}

// Resolve picks the live type a recorded type maps onto. A live type with the
// same name and major version is Found; a name-only match is Incompatible and
// the closest candidate is still returned so callers can report it.
func Resolve(file Descriptor, live []string) (Descriptor, Resolution) {
	var candidate Descriptor
	res := NotFound
	for _, raw := range live {
		d := Parse(raw)
		nameOK, versionOK := Compatible(file, d)
		if !nameOK {
			continue
		}
		if versionOK {
			return d, Found
		}
		if res == NotFound {
			candidate = d
			res = Incompatible
		}
	}
	return candidate, res
}
