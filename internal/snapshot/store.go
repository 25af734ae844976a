package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/tidwall/jsonc"

	"github.com/melih-ucgun/clonectl/internal/core"
	"github.com/melih-ucgun/clonectl/internal/crypto"
)

// ErrDecrypt is returned when an encrypted document cannot be opened.
var ErrDecrypt = crypto.ErrDecrypt

// Encode renders a snapshot as indented JSON.
func Encode(s *Snapshot) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "    "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// Decode parses a document. Comments and trailing commas are tolerated so
// operators may annotate snapshots by hand.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(jsonc.ToJSON(data), &s); err != nil {
		if errors.Is(err, ErrMalformed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Store reads and writes snapshot documents, optionally encrypted with an
// AES key or for age recipients.
type Store struct {
	FS         core.FileSystem
	Key        []byte
	Recipients []string
	// Identities holds age private keys used to open recipient encrypted
	// documents.
	Identities string
}

// Write encodes, seals and atomically writes s to path.
func (st *Store) Write(path string, s *Snapshot) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}
	switch {
	case len(st.Recipients) > 0:
		data, err = crypto.AgeEncrypt(data, st.Recipients...)
		if err != nil {
			return fmt.Errorf("failed to encrypt snapshot: %w", err)
		}
	case len(st.Key) > 0:
		sealed, err := crypto.Encrypt(data, st.Key)
		if err != nil {
			return fmt.Errorf("failed to encrypt snapshot: %w", err)
		}
		data = []byte(sealed + "\n")
	}
	if err := core.WriteFileAtomic(st.fs(), path, data, 0600); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", path, err)
	}
	return nil
}

// Read loads and opens the document at path.
func (st *Store) Read(path string) (*Snapshot, error) {
	data, err := st.fs().ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}

	switch {
	case crypto.IsAgeArmored(data):
		if st.Identities == "" {
			return nil, fmt.Errorf("%w: %s is encrypted for age recipients, an identity is required", ErrDecrypt, path)
		}
		data, err = crypto.AgeDecrypt(data, st.Identities)
		if err != nil {
			return nil, err
		}
	case crypto.IsEncrypted(data):
		if len(st.Key) == 0 {
			return nil, fmt.Errorf("%w: %s is encrypted, an encryption key is required", ErrDecrypt, path)
		}
		data, err = crypto.Decrypt(string(data), st.Key)
		if err != nil {
			return nil, err
		}
	}
	return Decode(data)
}

func (st *Store) fs() core.FileSystem {
	if st.FS == nil {
		return &core.RealFS{}
	}
	return st.FS
}
