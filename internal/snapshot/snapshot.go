// Package snapshot is the portable configuration document: a fingerprint
// header followed by one ordered section per resource type.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/melih-ucgun/clonectl/internal/tree"
)

// CommentsKey holds the fingerprint in the document.
const CommentsKey = "Comments"

var (
	ErrNotFound  = errors.New("snapshot document not found")
	ErrMalformed = errors.New("snapshot document is malformed")
)

// Fingerprint identifies the system a snapshot was taken from.
type Fingerprint struct {
	Model            string `json:"Model,omitempty"`
	BIOSFamily       string `json:"BIOSFamily,omitempty"`
	BIOSDate         string `json:"BIOSDate,omitempty"`
	FirmwareVersion  string `json:"FirmwareVersion,omitempty"`
	FirmwareRevision string `json:"FirmwareRevision,omitempty"`
}

// Mismatches lists the fields that differ from other, in a readable form.
func (f Fingerprint) Mismatches(other Fingerprint) []string {
	var out []string
	check := func(name, a, b string) {
		if a != b {
			out = append(out, fmt.Sprintf("%s: snapshot %q, target %q", name, a, b))
		}
	}
	check("Model", f.Model, other.Model)
	check("BIOSFamily", f.BIOSFamily, other.BIOSFamily)
	check("FirmwareVersion", f.FirmwareVersion, other.FirmwareVersion)
	return out
}

// Instance is one recorded resource.
type Instance struct {
	Path string
	Tree tree.Tree
}

// Section holds every recorded instance of one type, in recorded order.
type Section struct {
	Type      string
	Instances []Instance
}

// Snapshot is the whole document.
type Snapshot struct {
	Fingerprint Fingerprint
	Sections    []Section
}

// Add appends an instance to the section of typ, creating the section.
func (s *Snapshot) Add(typ, path string, t tree.Tree) {
	for i := range s.Sections {
		if s.Sections[i].Type == typ {
			s.Sections[i].Instances = append(s.Sections[i].Instances, Instance{Path: path, Tree: t})
			return
		}
	}
	s.Sections = append(s.Sections, Section{Type: typ, Instances: []Instance{{Path: path, Tree: t}}})
}

// Section returns the section recorded for typ.
func (s *Snapshot) Section(typ string) (Section, bool) {
	for _, sec := range s.Sections {
		if sec.Type == typ {
			return sec, true
		}
	}
	return Section{}, false
}

// Validate checks that paths are unique within each section.
func (s *Snapshot) Validate() error {
	seen := make(map[string]bool)
	for _, sec := range s.Sections {
		if sec.Type == "" {
			return fmt.Errorf("%w: section without a type", ErrMalformed)
		}
		clear(seen)
		for _, inst := range sec.Instances {
			if seen[inst.Path] {
				return fmt.Errorf("%w: duplicate path %s in %s", ErrMalformed, inst.Path, sec.Type)
			}
			seen[inst.Path] = true
		}
	}
	return nil
}

// MarshalJSON writes the fingerprint first, then sections and paths in
// recorded order. Trees are written with sorted keys.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	writeKey := func(k string) error {
		data, err := json.Marshal(k)
		if err != nil {
			return err
		}
		buf.Write(data)
		buf.WriteByte(':')
		return nil
	}

	if err := writeKey(CommentsKey); err != nil {
		return nil, err
	}
	fp, err := json.Marshal(s.Fingerprint)
	if err != nil {
		return nil, err
	}
	buf.Write(fp)

	for _, sec := range s.Sections {
		buf.WriteByte(',')
		if err := writeKey(sec.Type); err != nil {
			return nil, err
		}
		buf.WriteByte('{')
		for i, inst := range sec.Instances {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(inst.Path); err != nil {
				return nil, err
			}
			t := inst.Tree
			if t == nil {
				t = tree.Tree{}
			}
			data, err := json.Marshal(t)
			if err != nil {
				return nil, fmt.Errorf("encoding %s: %w", inst.Path, err)
			}
			buf.Write(data)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a document keeping section and path order.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	var out Snapshot
	for dec.More() {
		key, err := stringToken(dec)
		if err != nil {
			return err
		}
		if key == CommentsKey {
			if err := dec.Decode(&out.Fingerprint); err != nil {
				return fmt.Errorf("%w: fingerprint: %v", ErrMalformed, err)
			}
			continue
		}

		sec := Section{Type: key}
		if err := expectDelim(dec, '{'); err != nil {
			return fmt.Errorf("section %s: %w", key, err)
		}
		for dec.More() {
			path, err := stringToken(dec)
			if err != nil {
				return err
			}
			var raw map[string]any
			if err := dec.Decode(&raw); err != nil {
				return fmt.Errorf("%w: %s %s: %v", ErrMalformed, key, path, err)
			}
			sec.Instances = append(sec.Instances, Instance{Path: path, Tree: tree.Normalize(raw)})
		}
		if err := expectDelim(dec, '}'); err != nil {
			return err
		}
		out.Sections = append(out.Sections, sec)
	}
	if err := expectDelim(dec, '}'); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("%w: trailing data after document", ErrMalformed)
	}
	*s = out
	return nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: expected %q, got %v", ErrMalformed, want, tok)
	}
	return nil
}

func stringToken(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	s, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected a key, got %v", ErrMalformed, tok)
	}
	return s, nil
}
