package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
)

const (
	Prefix = "ENC[AES"
	Suffix = "]"

	hexPrefix = "hex:"
	alphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

var (
	// ErrDecrypt covers every failure to open an envelope: wrong key,
	// damaged ciphertext or an unreadable envelope.
	ErrDecrypt = errors.New("decryption failed")
	// ErrKeySize is returned for keys that are not 16, 24 or 32 bytes.
	ErrKeySize = errors.New("encryption key must be exactly 16, 24 or 32 bytes")
)

// ParseKey accepts a key given either as the raw 16/24/32 characters or as
// "hex:" followed by the hex encoding of 16/24/32 bytes.
func ParseKey(s string) ([]byte, error) {
	key := []byte(s)
	if strings.HasPrefix(s, hexPrefix) {
		decoded, err := hex.DecodeString(strings.TrimPrefix(s, hexPrefix))
		if err != nil {
			return nil, fmt.Errorf("invalid hex key: %w", err)
		}
		key = decoded
	}
	if !ValidKeySize(len(key)) {
		return nil, fmt.Errorf("%w (got %d)", ErrKeySize, len(key))
	}
	return key, nil
}

// ValidKeySize reports whether n is an AES key length.
func ValidKeySize(n int) bool {
	return n == 16 || n == 24 || n == 32
}

// GenerateKey generates a random 32-character alphanumeric key, usable
// directly as an AES-256 key.
func GenerateKey() (string, error) {
	var b strings.Builder
	limit := big.NewInt(int64(len(alphabet)))
	for i := 0; i < 32; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[n.Int64()])
	}
	return b.String(), nil
}

// Encrypt encrypts plaintext using AES-GCM with the provided key.
// Returns formatted string: ENC[AES<bits>:<base64_ciphertext>]
func Encrypt(plaintext, key []byte) (string, error) {
	if !ValidKeySize(len(key)) {
		return "", ErrKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return fmt.Sprintf("%s%d:%s%s", Prefix, len(key)*8, base64.StdEncoding.EncodeToString(ciphertext), Suffix), nil
}

// Decrypt opens an envelope produced by Encrypt.
func Decrypt(envelope string, key []byte) ([]byte, error) {
	envelope = strings.TrimSpace(envelope)
	if !IsEncrypted([]byte(envelope)) {
		return nil, fmt.Errorf("%w: invalid encrypted format", ErrDecrypt)
	}

	body := envelope[len(Prefix) : len(envelope)-len(Suffix)]
	bitsText, b64, ok := strings.Cut(body, ":")
	if !ok {
		return nil, fmt.Errorf("%w: invalid encrypted format", ErrDecrypt)
	}
	bits, err := strconv.Atoi(bitsText)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid key size marker %q", ErrDecrypt, bitsText)
	}
	if bits != len(key)*8 {
		return nil, fmt.Errorf("%w: document needs a %d-bit key, got %d bits", ErrDecrypt, bits, len(key)*8)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("%w: base64 decode failed: %v", ErrDecrypt, err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: wrong key or damaged document", ErrDecrypt)
	}

	return plaintext, nil
}

// IsEncrypted checks if data follows the encrypted format.
func IsEncrypted(data []byte) bool {
	s := strings.TrimSpace(string(data))
	return strings.HasPrefix(s, Prefix) && strings.HasSuffix(s, Suffix)
}
