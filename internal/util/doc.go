// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for the fleetwatch client.
//
// String helpers wrap github.com/mattn/go-runewidth so tables and labels
// stay aligned when session device descriptors contain double-width
// characters:
//
//	device := util.TruncateWidth(row.Device, 20)
//	cell := util.PadWidth(device, 22)
//
// AtomicWriteFile writes files crash-safely (temp file, fsync, rename)
// and backs the config writer and the credential store.
package util
