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
	"log/slog"
	"os"
	"path/filepath"
)

// SetupTempDir creates dir, or $TMPDIR/partseq when dir is empty, and
// points TMPDIR at it so later os.CreateTemp calls land there.
func SetupTempDir(dir string) (string, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "partseq")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.Setenv("TMPDIR", dir); err != nil {
		return "", err
	}
	return dir, nil
}

// CleanTempDir removes everything inside dir, leaving dir itself.
func CleanTempDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Info("Failed to read temp dir (ignoring)", slog.String("path", dir), slog.Any("error", err))
		return
	}

	for _, entry := range entries {
		_ = os.RemoveAll(filepath.Join(dir, entry.Name()))
	}
}
