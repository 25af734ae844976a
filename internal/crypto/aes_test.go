package crypto

import (
	"errors"
	"strings"
	"testing"
)

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	if len(key) != 32 {
		t.Errorf("Expected key length 32, got %d", len(key))
	}
	if _, err := ParseKey(key); err != nil {
		t.Errorf("generated key rejected: %v", err)
	}
}

func TestParseKey(t *testing.T) {
	for _, k := range []string{strings.Repeat("a", 16), strings.Repeat("b", 24), strings.Repeat("c", 32), "hex:" + strings.Repeat("ab", 16)} {
		if _, err := ParseKey(k); err != nil {
			t.Errorf("ParseKey(%q) failed: %v", k, err)
		}
	}
	for _, k := range []string{"", "short", strings.Repeat("a", 20), "hex:zz"} {
		if _, err := ParseKey(k); err == nil {
			t.Errorf("ParseKey(%q) accepted an invalid key", k)
		}
	}
}

func TestEncryptDecrypt(t *testing.T) {
	for _, size := range []int{16, 24, 32} {
		key := []byte(strings.Repeat("k", size))
		plaintext := []byte(`{"Comments":{"Model":"ProLiant DL380 Gen10"}}`)

		encrypted, err := Encrypt(plaintext, key)
		if err != nil {
			t.Fatalf("Encrypt failed: %v", err)
		}
		if !IsEncrypted([]byte(encrypted)) {
			t.Error("IsEncrypted returned false for valid encrypted string")
		}
		if !strings.HasPrefix(encrypted, "ENC[AES") {
			t.Errorf("unexpected envelope %q", encrypted[:10])
		}

		decrypted, err := Decrypt(encrypted, key)
		if err != nil {
			t.Fatalf("Decrypt failed: %v", err)
		}
		if string(decrypted) != string(plaintext) {
			t.Errorf("Decrypted text != plaintext. Got %q, want %q", decrypted, plaintext)
		}
	}
}

func TestDecryptInvalidFormat(t *testing.T) {
	_, err := Decrypt("invalid-format", []byte(strings.Repeat("k", 32)))
	if !errors.Is(err, ErrDecrypt) {
		t.Errorf("Expected ErrDecrypt for invalid format, got %v", err)
	}
}

func TestDecryptInvalidKey(t *testing.T) {
	key := []byte(strings.Repeat("a", 32))
	otherKey := []byte(strings.Repeat("b", 32))

	encrypted, _ := Encrypt([]byte("secret"), key)
	if _, err := Decrypt(encrypted, otherKey); !errors.Is(err, ErrDecrypt) {
		t.Errorf("Expected ErrDecrypt for wrong key, got %v", err)
	}
	if _, err := Decrypt(encrypted, []byte(strings.Repeat("a", 16))); !errors.Is(err, ErrDecrypt) {
		t.Errorf("Expected ErrDecrypt for key size mismatch, got %v", err)
	}
}

func TestAgeRoundTrip(t *testing.T) {
	identity, recipient, err := GenerateAgeKey()
	if err != nil {
		t.Fatal(err)
	}
	sealed, err := AgeEncrypt([]byte("snapshot"), recipient)
	if err != nil {
		t.Fatalf("AgeEncrypt failed: %v", err)
	}
	if !IsAgeArmored(sealed) {
		t.Error("expected armored output")
	}
	opened, err := AgeDecrypt(sealed, identity)
	if err != nil {
		t.Fatalf("AgeDecrypt failed: %v", err)
	}
	if string(opened) != "snapshot" {
		t.Errorf("got %q", opened)
	}

	other, _, _ := GenerateAgeKey()
	if _, err := AgeDecrypt(sealed, other); !errors.Is(err, ErrDecrypt) {
		t.Errorf("Expected ErrDecrypt for wrong identity, got %v", err)
	}
}
