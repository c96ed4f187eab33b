// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build windows
// +build windows

package credstore

// Windows master key storage via DPAPI. CryptProtectData binds the blob
// to the logged-on user, so a remembered session copied off a dispatch
// console is useless on another machine or account.

import (
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/windows"
)

// WindowsKeyStore wraps the master key with DPAPI and keeps the wrapped
// blob in a file under the state directory.
type WindowsKeyStore struct {
	path string
}

// NewKeyStore returns the Windows DPAPI key store.
func NewKeyStore() KeyStore {
	return &WindowsKeyStore{
		path: defaultKeyStorePath(),
	}
}

// Store wraps the key with DPAPI and writes the blob.
func (w *WindowsKeyStore) Store(key []byte) error {
	wrapped, err := dpapiCall(procCryptProtectData, key)
	if err != nil {
		return fmt.Errorf("DPAPI encryption failed: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(w.path), 0700); err != nil {
		return fmt.Errorf("create key directory: %w", err)
	}
	if err := os.WriteFile(w.path, wrapped, 0600); err != nil {
		return fmt.Errorf("write wrapped key: %w", err)
	}
	return nil
}

// Retrieve reads the blob and unwraps it with DPAPI.
func (w *WindowsKeyStore) Retrieve() ([]byte, error) {
	wrapped, err := os.ReadFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("read wrapped key: %w", err)
	}

	key, err := dpapiCall(procCryptUnprotectData, wrapped)
	if err != nil {
		return nil, fmt.Errorf("DPAPI decryption failed: %w", err)
	}
	return key, nil
}

// Delete removes the wrapped key file. A missing file is not an error.
func (w *WindowsKeyStore) Delete() error {
	if err := os.Remove(w.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete key file: %w", err)
	}
	return nil
}

// Exists reports whether a wrapped key file is present.
func (w *WindowsKeyStore) Exists() bool {
	_, err := os.Stat(w.path)
	return err == nil
}

// dataBlob mirrors the Windows DATA_BLOB structure.
type dataBlob struct {
	cbData uint32
	pbData *byte
}

var (
	crypt32                = windows.NewLazySystemDLL("crypt32.dll")
	procCryptProtectData   = crypt32.NewProc("CryptProtectData")
	procCryptUnprotectData = crypt32.NewProc("CryptUnprotectData")
	kernel32               = windows.NewLazySystemDLL("kernel32.dll")
	procLocalFree          = kernel32.NewProc("LocalFree")
)

// CRYPTPROTECT_UI_FORBIDDEN: the client may be running under a service
// account or a locked-down kiosk shell where DPAPI must never prompt.
const cryptProtectUIForbidden = 0x01

// dpapiCall runs CryptProtectData or CryptUnprotectData, which share a
// signature, and copies the result out of the LocalAlloc'd buffer.
func dpapiCall(proc *windows.LazyProc, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty data")
	}

	in := dataBlob{
		cbData: uint32(len(data)),
		pbData: &data[0],
	}
	var out dataBlob

	ret, _, err := proc.Call(
		uintptr(unsafe.Pointer(&in)), // pDataIn
		0,                            // description / ppszDataDescr
		0,                            // pOptionalEntropy
		0,                            // pvReserved
		0,                            // pPromptStruct
		cryptProtectUIForbidden,      // dwFlags
		uintptr(unsafe.Pointer(&out)),
	)
	if ret == 0 {
		return nil, fmt.Errorf("%s failed: %w", proc.Name, err)
	}

	result := make([]byte, out.cbData)
	copy(result, unsafe.Slice(out.pbData, out.cbData))
	procLocalFree.Call(uintptr(unsafe.Pointer(out.pbData)))

	return result, nil
}
