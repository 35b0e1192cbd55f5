// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Frontdesk Contributors

package store

import "errors"

// Sentinel errors for store operations, checkable with errors.Is.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a unique constraint violation or concurrent
	// modification.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates malformed input parameters.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDatabase is a catch-all for unexpected database failures.
	ErrDatabase = errors.New("database error")
)
