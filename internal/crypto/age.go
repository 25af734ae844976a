package crypto

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"
)

// AgeDecrypt, age ile şifrelenmiş (ASCII armor) bir belgeyi verilen private key(ler) ile çözer.
func AgeDecrypt(data []byte, identities string) ([]byte, error) {
	ids, err := age.ParseIdentities(strings.NewReader(identities))
	if err != nil {
		return nil, fmt.Errorf("private key okunamadı: %w", err)
	}

	var src io.Reader = bytes.NewReader(data)
	if IsAgeArmored(data) {
		src = armor.NewReader(src)
	}
	r, err := age.Decrypt(src, ids...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	out := &bytes.Buffer{}
	if _, err := io.Copy(out, r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	return out.Bytes(), nil
}

// GenerateAgeKey, yeni bir age anahtar çifti oluşturur (identity, recipient).
func GenerateAgeKey() (string, string, error) {
	k, err := age.GenerateX25519Identity()
	if err != nil {
		return "", "", err
	}
	return k.String(), k.Recipient().String(), nil
}

// AgeEncrypt, bir belgeyi verilen public key'ler (recipient) için armored olarak şifreler.
func AgeEncrypt(plaintext []byte, recipients ...string) ([]byte, error) {
	recipient, err := age.ParseRecipients(strings.NewReader(strings.Join(recipients, "\n")))
	if err != nil {
		return nil, err
	}

	out := &bytes.Buffer{}
	aw := armor.NewWriter(out)
	w, err := age.Encrypt(aw, recipient...)
	if err != nil {
		return nil, err
	}

	if _, err := w.Write(plaintext); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	if err := aw.Close(); err != nil {
		return nil, err
	}

	return out.Bytes(), nil
}

// IsAgeArmored reports whether data starts with an age armor header.
func IsAgeArmored(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(data), []byte(armor.Header))
}
