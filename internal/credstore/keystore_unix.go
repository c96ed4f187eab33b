// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !windows
// +build !windows

package credstore

// Unix master key storage. A console shared between dispatch operators
// must not leak one operator's remembered session to another, so the
// store refuses key material that is readable by group or world.

import (
	"fmt"
	"os"
	"path/filepath"
)

// UnixKeyStore keeps the master key in a permission-checked file.
//
// Platform keyrings (macOS Keychain, libsecret) would be stronger, but
// kiosk images in the field run headless where neither is guaranteed;
// the file store works everywhere the client does.
type UnixKeyStore struct {
	path string
}

// NewKeyStore returns the Unix key store rooted at the state directory.
func NewKeyStore() KeyStore {
	return &UnixKeyStore{
		path: defaultKeyStorePath(),
	}
}

// requirePrivate rejects a path whose permissions grant any group or
// world access. want is the mode named in the remediation hint.
func requirePrivate(path string, want os.FileMode) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if mode := info.Mode().Perm(); mode&0077 != 0 {
		return fmt.Errorf("SECURITY ERROR: %s has insecure permissions (%o), "+
			"must be %o or more restrictive; fix with: chmod %o %s",
			path, mode, want, want, path)
	}
	return nil
}

// Store writes the key under 0600 and verifies the result, deleting the
// file if the filesystem widened the mode (some network mounts do).
func (u *UnixKeyStore) Store(key []byte) error {
	dir := filepath.Dir(u.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create key directory: %w", err)
	}
	if err := requirePrivate(dir, 0700); err != nil {
		return err
	}

	if err := os.WriteFile(u.path, key, 0600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}

	if err := requirePrivate(u.path, 0600); err != nil {
		_ = os.Remove(u.path)
		return fmt.Errorf("%w; the key file has been deleted, retry the operation", err)
	}
	return nil
}

// Retrieve reads the key after verifying both the directory and the file
// are still private.
func (u *UnixKeyStore) Retrieve() ([]byte, error) {
	if err := requirePrivate(filepath.Dir(u.path), 0700); err != nil {
		return nil, err
	}
	if err := requirePrivate(u.path, 0600); err != nil {
		return nil, err
	}

	key, err := os.ReadFile(u.path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	return key, nil
}

// Delete overwrites the key file with zeros before removing it. Best
// effort: journaling filesystems may keep old blocks anyway.
func (u *UnixKeyStore) Delete() error {
	info, err := os.Stat(u.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat key file for deletion: %w", err)
	}

	if size := info.Size(); size > 0 {
		if f, err := os.OpenFile(u.path, os.O_WRONLY, 0600); err == nil {
			_, _ = f.Write(make([]byte, size))
			_ = f.Sync()
			_ = f.Close()
		}
	}

	if err := os.Remove(u.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete key file: %w", err)
	}
	return nil
}

// Exists reports whether a key file is present.
func (u *UnixKeyStore) Exists() bool {
	_, err := os.Stat(u.path)
	return err == nil
}
