// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package helpers

import (
	"path"
	"strings"
)

// SplitCompression strips a trailing ".gz" from p and reports whether it was there.
func SplitCompression(p string) (string, bool) {
	if strings.HasSuffix(strings.ToLower(p), ".gz") {
		return p[:len(p)-len(".gz")], true
	}
	return p, false
}

// FileExtension returns the lower-cased extension of p without the dot,
// ignoring a trailing ".gz".
func FileExtension(p string) string {
	base, _ := SplitCompression(path.Base(p))
	idx := strings.LastIndex(base, ".")
	if idx == -1 {
		return ""
	}
	return strings.ToLower(base[idx+1:])
}

// StripExtension returns the file name of p without its extension and
// without a trailing ".gz".
func StripExtension(p string) string {
	base, _ := SplitCompression(path.Base(p))
	if idx := strings.LastIndex(base, "."); idx > 0 {
		return base[:idx]
	}
	return base
}
