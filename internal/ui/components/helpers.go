// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/dustin/go-humanize"

	"github.com/jeranaias/fleetwatch/internal/util"
)

// fmtNumber renders an integer with thousand separators for the
// journal and status bar counters.
func fmtNumber(n int) string {
	return humanize.Comma(int64(n))
}

// truncateCell truncates a table cell to max display columns,
// appending "..." when content is cut. Device descriptors are free
// text and may carry wide characters, so byte or rune counts are not
// enough.
func truncateCell(s string, max int) string {
	return util.TruncateWidth(s, max)
}

// padCell pads a cell to exactly width display columns, truncating
// oversize content first.
func padCell(s string, width int) string {
	return util.PadWidth(s, width)
}
