// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package credstore

// Sealing primitives. A remembered credential is sealed with AES-256-GCM
// under a per-machine master key; passphrase-protected stores derive the
// key with PBKDF2-SHA-256 instead.

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// EncryptedPrefix marks a sealed value: ENC:base64(nonce|ciphertext|tag).
	EncryptedPrefix = "ENC:"

	// NonceSize is the AES-GCM nonce length (96 bits).
	NonceSize = 12

	// KeySize is the AES-256 key length.
	KeySize = 32

	// SaltSize is the key-derivation salt length.
	SaltSize = 32

	// PBKDF2Iterations follows the OWASP 2023 floor for PBKDF2-SHA-256.
	PBKDF2Iterations = 600000
)

var (
	// ErrNotInitialized indicates the cipher has no key loaded.
	ErrNotInitialized = errors.New("credential encryption not initialized")
	// ErrInvalidCiphertext indicates the stored value is not in the
	// expected sealed format.
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")
	// ErrDecryptionFailed indicates a wrong key or a tampered store file.
	ErrDecryptionFailed = errors.New("decryption failed: authentication tag mismatch")
)

// ZeroBytes overwrites sensitive material so tokens and passwords do not
// linger in crash dumps.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// GenerateSalt returns a fresh random key-derivation salt.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// GenerateMasterKey returns a fresh random AES-256 key.
func GenerateMasterKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate master key: %w", err)
	}
	return key, nil
}

// DeriveKey stretches a passphrase into an AES-256 key with
// PBKDF2-SHA-256. The same passphrase and salt always yield the same key.
func DeriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, PBKDF2Iterations, KeySize, sha256.New)
}

// Cipher seals and opens credential payloads with AES-256-GCM. Safe for
// concurrent use.
type Cipher struct {
	mu           sync.Mutex
	aead         cipher.AEAD
	nonceCounter uint64
}

// NewCipher creates a cipher from a 32-byte key. The caller keeps
// ownership of the key slice and should zero it after this returns.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM mode: %w", err)
	}

	return &Cipher{aead: gcm}, nil
}

// nextNonce builds a unique nonce: a per-process counter in the first
// eight bytes guarantees uniqueness within a run, the remaining four are
// random. Called with c.mu held.
func (c *Cipher) nextNonce() ([]byte, error) {
	nonce := make([]byte, NonceSize)

	c.nonceCounter++
	binary.LittleEndian.PutUint64(nonce, c.nonceCounter)

	if _, err := io.ReadFull(rand.Reader, nonce[8:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return nonce, nil
}

// Encrypt seals plaintext and returns nonce || ciphertext || tag.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.aead == nil {
		return nil, ErrNotInitialized
	}

	nonce, err := c.nextNonce()
	if err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a value produced by Encrypt.
func (c *Cipher) Decrypt(ciphertext []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.aead == nil {
		return nil, ErrNotInitialized
	}
	if len(ciphertext) < NonceSize {
		return nil, ErrInvalidCiphertext
	}

	nonce, sealed := ciphertext[:NonceSize], ciphertext[NonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		// Deliberately coarse: do not leak whether the key or the data
		// was at fault.
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// EncryptString seals a string into the ENC:base64 wire form.
func (c *Cipher) EncryptString(plaintext string) (string, error) {
	sealed, err := c.Encrypt([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return EncryptedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptString opens a value produced by EncryptString.
func (c *Cipher) DecryptString(value string) (string, error) {
	if !strings.HasPrefix(value, EncryptedPrefix) {
		return "", ErrInvalidCiphertext
	}

	sealed, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, EncryptedPrefix))
	if err != nil {
		return "", fmt.Errorf("invalid base64 encoding: %w", err)
	}

	plaintext, err := c.Decrypt(sealed)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// IsEncrypted reports whether a value carries the sealed-value marker.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, EncryptedPrefix)
}
