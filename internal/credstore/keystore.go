// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package credstore

// Master key storage. The portable file-based store lives here; the
// platform-specific stores (DPAPI on Windows) live in keystore_*.go.

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jeranaias/fleetwatch/internal/util"
)

// KeyStore abstracts where the master key lives:
//   - Windows: DPAPI (Data Protection API)
//   - Linux/macOS/BSD: restricted-permission file
type KeyStore interface {
	// Store persists the master key.
	Store(key []byte) error
	// Retrieve loads the master key.
	Retrieve() ([]byte, error)
	// Delete removes the key. Remembered sessions become unreadable.
	Delete() error
	// Exists reports whether a key is stored.
	Exists() bool
}

// FileKeyStore keeps the master key in a 0600 file. It is the Unix
// default and the test double on every platform.
type FileKeyStore struct {
	path string
}

// NewFileKeyStore creates a file-based key store at the given path.
func NewFileKeyStore(path string) *FileKeyStore {
	return &FileKeyStore{path: path}
}

// Store writes the key atomically so a crash mid-write cannot leave a
// truncated key and strand the credential store.
func (f *FileKeyStore) Store(key []byte) error {
	if err := util.AtomicWriteFileWithDir(f.path, key, 0600, 0700); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	return nil
}

// Retrieve reads the key file.
func (f *FileKeyStore) Retrieve() ([]byte, error) {
	key, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	return key, nil
}

// Delete removes the key file. A missing file is not an error.
func (f *FileKeyStore) Delete() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete key file: %w", err)
	}
	return nil
}

// Exists reports whether the key file is present.
func (f *FileKeyStore) Exists() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

// defaultKeyStorePath returns where the master key lives by default.
func defaultKeyStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".fleetwatch", "master.key")
	}
	return filepath.Join(home, ".fleetwatch", "master.key")
}
