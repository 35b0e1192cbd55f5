// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Frontdesk Contributors

package sqlite_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/frontdesk-dev/frontdesk/internal/store/sqlite"
	"github.com/stretchr/testify/require"
)

// testDir creates a temp directory for a test with automatic cleanup.
func testDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "frontdesk-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

// testDBPath returns a temp SQLite database path.
func testDBPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(testDir(t), name+".db")
}

// testClinicStore opens a fresh seeded clinic store.
func testClinicStore(t *testing.T, name string) *sqlite.ClinicStore {
	t.Helper()
	cs, err := sqlite.NewClinicStore(testDBPath(t, name))
	require.NoError(t, err)
	require.NoError(t, cs.Seed(context.Background()))
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}
