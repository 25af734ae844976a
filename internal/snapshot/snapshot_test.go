package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih-ucgun/clonectl/internal/crypto"
	"github.com/melih-ucgun/clonectl/internal/tree"
)

func sample() *Snapshot {
	s := &Snapshot{Fingerprint: Fingerprint{Model: "ProLiant DL380 Gen10", BIOSFamily: "U30", FirmwareVersion: "iLO 5 v2.44"}}
	s.Add("#ManagerAccount.v1_3_0.ManagerAccount", "/redfish/v1/AccountService/Accounts/2/", tree.Tree{"UserName": "zeta"})
	s.Add("#ManagerAccount.v1_3_0.ManagerAccount", "/redfish/v1/AccountService/Accounts/1/", tree.Tree{"UserName": "admin"})
	s.Add("#Bios.v1_0_0.Bios", "/redfish/v1/Systems/1/Bios/", tree.Tree{"Attributes": tree.Tree{"BootMode": "Uefi"}})
	return s
}

func TestEncodeDecodeKeepsOrder(t *testing.T) {
	data, err := Encode(sample())
	require.NoError(t, err)

	text := string(data)
	assert.True(t, strings.Index(text, CommentsKey) < strings.Index(text, "ManagerAccount"))
	assert.True(t, strings.Index(text, "ManagerAccount") < strings.Index(text, "#Bios"))
	assert.True(t, strings.Index(text, "Accounts/2/") < strings.Index(text, "Accounts/1/"))

	back, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, sample().Fingerprint, back.Fingerprint)
	require.Len(t, back.Sections, 2)
	assert.Equal(t, "/redfish/v1/AccountService/Accounts/2/", back.Sections[0].Instances[0].Path)
	assert.Equal(t, "Uefi", back.Sections[1].Instances[0].Tree.GetString("Attributes", "BootMode"))
}

func TestDecodeJSONC(t *testing.T) {
	doc := `{
		// taken before the firmware update
		"Comments": {"Model": "ProLiant"},
		"#Bios.v1_0_0.Bios": {
			"/redfish/v1/Systems/1/Bios/": {"Attributes": {"BootMode": "Uefi",}},
		},
	}`
	s, err := Decode([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "ProLiant", s.Fingerprint.Model)
	require.Len(t, s.Sections, 1)
}

func TestDecodeMalformed(t *testing.T) {
	for _, doc := range []string{
		`not json`,
		`[]`,
		`{"#Bios.v1_0_0.Bios": []}`,
		`{"#Bios.v1_0_0.Bios": {"/a/": {}, "/a/": {}}}`,
	} {
		_, err := Decode([]byte(doc))
		assert.ErrorIs(t, err, ErrMalformed, doc)
	}
}

func TestStoreEncrypted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clone.json")
	key := []byte(strings.Repeat("k", 24))

	st := &Store{Key: key}
	require.NoError(t, st.Write(path, sample()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "ENC[AES192:"))

	back, err := st.Read(path)
	require.NoError(t, err)
	assert.Len(t, back.Sections, 2)

	_, err = (&Store{Key: []byte(strings.Repeat("x", 24))}).Read(path)
	assert.ErrorIs(t, err, ErrDecrypt)

	_, err = (&Store{}).Read(path)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestStoreAge(t *testing.T) {
	identity, recipient, err := crypto.GenerateAgeKey()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "clone.json")
	require.NoError(t, (&Store{Recipients: []string{recipient}}).Write(path, sample()))

	back, err := (&Store{Identities: identity}).Read(path)
	require.NoError(t, err)
	assert.Len(t, back.Sections, 2)

	_, err = (&Store{}).Read(path)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestStoreErrorsAreDistinct(t *testing.T) {
	dir := t.TempDir()

	_, err := (&Store{}).Read(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, errors.Is(err, ErrMalformed))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0600))
	_, err = (&Store{}).Read(bad)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.False(t, errors.Is(err, ErrDecrypt))
}

func TestFingerprintMismatches(t *testing.T) {
	a := Fingerprint{Model: "DL380", BIOSFamily: "U30", FirmwareVersion: "2.44"}
	assert.Empty(t, a.Mismatches(a))
	b := a
	b.Model = "DL360"
	assert.Len(t, a.Mismatches(b), 1)
}
