package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var versionSegment = regexp.MustCompile(`^[vV](\d+)_(\d+)_(\d+)$`)

// Descriptor is the parsed form of a versioned resource type such as
// "#ManagerAccount.v1_3_0.ManagerAccount".
type Descriptor struct {
	Raw    string
	Name   string
	Major  int
	Minor  int
	Errata int
	known  bool
}

// Parse splits a raw type string on '#' and '.'. A "v<major>_<minor>_<errata>"
// segment wins; otherwise the first three purely numeric segments are assigned
// positionally. A descriptor without any version numbers is unknown.
func Parse(raw string) Descriptor {
	d := Descriptor{Raw: raw}

	s := strings.TrimSpace(raw)
	if i := strings.LastIndex(s, "#"); i >= 0 {
		s = s[i+1:]
	}
	segments := strings.Split(s, ".")
	if len(segments) == 0 {
		return d
	}
	d.Name = segments[0]

	for _, seg := range segments[1:] {
		if m := versionSegment.FindStringSubmatch(seg); m != nil {
			d.Major, _ = strconv.Atoi(m[1])
			d.Minor, _ = strconv.Atoi(m[2])
			d.Errata, _ = strconv.Atoi(m[3])
			d.known = true
			return d
		}
	}

	var nums []int
	for _, seg := range segments[1:] {
		n, err := strconv.Atoi(seg)
		if err != nil || seg == "" || strings.HasPrefix(seg, "-") || strings.HasPrefix(seg, "+") {
			continue
		}
		nums = append(nums, n)
		if len(nums) == 3 {
			break
		}
	}
	if len(nums) == 0 {
		return d
	}
	d.known = true
	d.Major = nums[0]
	if len(nums) > 1 {
		d.Minor = nums[1]
	}
	if len(nums) > 2 {
		d.Errata = nums[2]
	}
	return d
}

// Known reports whether a version could be extracted.
func (d Descriptor) Known() bool {
	return d.known
}

// String renders the descriptor in the canonical "Name.vX_Y_Z" form.
func (d Descriptor) String() string {
	if !d.known {
		return d.Name
	}
	return fmt.Sprintf("%s.v%d_%d_%d", d.Name, d.Major, d.Minor, d.Errata)
}

// SameName compares type names case-insensitively.
func (d Descriptor) SameName(o Descriptor) bool {
	return d.Name != "" && strings.EqualFold(d.Name, o.Name)
}

// Compatible decides whether a snapshot-recorded type may be applied to a live
// type. Minor and errata are informational; unknown versions never match.
func Compatible(file, live Descriptor) (nameMatches, versionMatches bool) {
	nameMatches = file.SameName(live)
	if !nameMatches {
		return false, false
	}
	versionMatches = file.Known() && live.Known() && file.Major == live.Major
	return nameMatches, versionMatches
}
