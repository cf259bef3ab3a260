// Package vault seals account secrets at rest. Stored credentials are
// opaque blobs; only a process holding the vault key can recover them.
package vault

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

var (
	ErrBadKey     = errors.New("vault: key must be 32 bytes of hex")
	ErrBadBox     = errors.New("vault: sealed box too short")
	ErrOpenFailed = errors.New("vault: open failed")
)

type Vault struct {
	key [keySize]byte
}

// New builds a vault from a hex-encoded 32-byte key.
func New(hexKey string) (*Vault, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil || len(raw) != keySize {
		return nil, ErrBadKey
	}
	v := &Vault{}
	copy(v.key[:], raw)
	return v, nil
}

// FromEnv builds a vault from ACCOUNT_VAULT_KEY.
func FromEnv() (*Vault, error) {
	key := os.Getenv("ACCOUNT_VAULT_KEY")
	if key == "" {
		return nil, fmt.Errorf("vault: ACCOUNT_VAULT_KEY is required")
	}
	return New(key)
}

// GenerateKey returns a fresh hex-encoded key, for provisioning.
func GenerateKey() (string, error) {
	var key [keySize]byte
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return "", fmt.Errorf("vault: generate key: %w", err)
	}
	return hex.EncodeToString(key[:]), nil
}

// Seal encrypts plaintext with a fresh random nonce. The nonce is prepended
// to the returned blob.
func (v *Vault) Seal(plaintext []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("vault: nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &v.key), nil
}

// Open decrypts a blob produced by Seal. Tampering or a wrong key returns
// ErrOpenFailed.
func (v *Vault) Open(box []byte) ([]byte, error) {
	if len(box) < nonceSize {
		return nil, ErrBadBox
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plaintext, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &v.key)
	if !ok {
		return nil, ErrOpenFailed
	}
	return plaintext, nil
}
