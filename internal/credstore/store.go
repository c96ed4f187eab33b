// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package credstore persists remembered sign-ins between fleetwatch runs.
//
// When a user logs in with "remember me", the session credentials are
// serialized to JSON, sealed with AES-256-GCM, and written to
// ~/.fleetwatch/credentials.enc. The AES key never appears beside the
// ciphertext: it lives in the platform key store (DPAPI on Windows, a
// 0600-permission file on Unix).
package credstore

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jeranaias/fleetwatch/internal/logging"
	"github.com/jeranaias/fleetwatch/internal/session"
	"github.com/jeranaias/fleetwatch/internal/util"
)

// CredentialsFileName is the name of the encrypted credentials file.
const CredentialsFileName = "credentials.enc"

// ErrNoCredentials indicates no remembered session is stored.
var ErrNoCredentials = errors.New("no remembered credentials")

// =============================================================================
// STORE
// =============================================================================

// Store reads and writes the encrypted credentials file.
// A Store is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	path   string
	keys   KeyStore
	cipher *Cipher
}

// NewStore creates a store using the default credentials path and the
// platform key store.
func NewStore() (*Store, error) {
	path, err := DefaultCredentialsPath()
	if err != nil {
		return nil, fmt.Errorf("failed to determine credentials path: %w", err)
	}
	return &Store{
		path: path,
		keys: NewKeyStore(),
	}, nil
}

// NewStoreAt creates a store with explicit paths. Used in tests.
func NewStoreAt(path string, keys KeyStore) *Store {
	return &Store{path: path, keys: keys}
}

// DefaultCredentialsPath returns ~/.fleetwatch/credentials.enc.
func DefaultCredentialsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".fleetwatch", CredentialsFileName), nil
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Save seals the credentials and writes them to disk. A master key is
// generated and stored on first save.
func (s *Store) Save(cred session.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureCipher(true); err != nil {
		return err
	}

	plaintext, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	ciphertext, err := s.cipher.Encrypt(plaintext)
	ZeroBytes(plaintext)
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	output := []byte(EncryptedPrefix)
	output = append(output, []byte(base64.StdEncoding.EncodeToString(ciphertext))...)

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	if err := util.AtomicWriteFileWithDir(s.path, output, 0600, 0700); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}

	logger := logging.Component("credstore")
	logger.Debug().
		Str("principal", cred.Principal.Username).
		Time("expires_at", cred.ExpiresAt).
		Msg("credentials saved")

	return nil
}

// Load reads and unseals the remembered credentials.
// Returns ErrNoCredentials when nothing is stored, and also when the
// ciphertext exists but the master key is gone: an unreadable remembered
// session is the same as none.
func (s *Store) Load() (session.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cred session.Credentials

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return cred, ErrNoCredentials
		}
		return cred, fmt.Errorf("failed to read credentials file: %w", err)
	}

	content := string(data)
	if !strings.HasPrefix(content, EncryptedPrefix) {
		return cred, ErrInvalidCiphertext
	}

	if !s.keys.Exists() {
		logger := logging.Component("credstore")
		logger.Warn().
			Str("path", s.path).
			Msg("credentials file present but master key missing")
		return cred, ErrNoCredentials
	}

	if err := s.ensureCipher(false); err != nil {
		return cred, err
	}

	encoded := strings.TrimPrefix(content, EncryptedPrefix)
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return cred, fmt.Errorf("invalid base64 encoding: %w", err)
	}

	plaintext, err := s.cipher.Decrypt(ciphertext)
	if err != nil {
		return cred, err
	}
	defer ZeroBytes(plaintext)

	if err := json.Unmarshal(plaintext, &cred); err != nil {
		return cred, fmt.Errorf("failed to decode credentials: %w", err)
	}

	return cred, nil
}

// Delete removes the credentials file. The master key is kept so future
// saves reuse it.
func (s *Store) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete credentials file: %w", err)
	}

	logger := logging.Component("credstore")
	logger.Debug().Msg("credentials deleted")
	return nil
}

// Purge removes both the credentials file and the master key.
func (s *Store) Purge() error {
	if err := s.Delete(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cipher = nil
	return s.keys.Delete()
}

// Exists reports whether a credentials file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// ensureCipher loads the master key and initializes the AEAD. When create
// is true and no key exists yet, a fresh one is generated and stored.
func (s *Store) ensureCipher(create bool) error {
	if s.cipher != nil {
		return nil
	}

	var key []byte
	var err error

	if s.keys.Exists() {
		key, err = s.keys.Retrieve()
		if err != nil {
			return fmt.Errorf("failed to retrieve master key: %w", err)
		}
	} else {
		if !create {
			return ErrNotInitialized
		}
		key, err = GenerateMasterKey()
		if err != nil {
			return err
		}
		if err := s.keys.Store(key); err != nil {
			ZeroBytes(key)
			return fmt.Errorf("failed to store master key: %w", err)
		}
	}
	// SECURITY: Zero key material to prevent memory disclosure
	defer ZeroBytes(key)

	cipher, err := NewCipher(key)
	if err != nil {
		return err
	}

	s.cipher = cipher
	return nil
}
