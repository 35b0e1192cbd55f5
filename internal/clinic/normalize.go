// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Frontdesk Contributors

package clinic

import (
	"strings"
	"time"
)

// NormalizeName lowercases and trims a full name so storage and lookup agree.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizePhone trims surrounding whitespace; digits are stored as given.
func NormalizePhone(phone string) string {
	return strings.TrimSpace(phone)
}

// NormalizeDoctor lowercases, trims, and enforces the "dr. " prefix.
func NormalizeDoctor(name string) string {
	d := strings.ToLower(strings.TrimSpace(name))
	if d == "" {
		return d
	}
	if !strings.HasPrefix(d, "dr.") {
		d = "dr. " + strings.TrimPrefix(d, "dr. ")
	}
	return d
}

// NormalizeDate converts dd/mm/yyyy input to yyyy-mm-dd before storage.
// Dates already in yyyy-mm-dd form (or any form without slashes) pass
// through trimmed.
func NormalizeDate(date string) (string, error) {
	date = strings.TrimSpace(date)
	if !strings.Contains(date, "/") {
		return date, nil
	}
	t, err := time.Parse("02/01/2006", date)
	if err != nil {
		return "", err
	}
	return t.Format("2006-01-02"), nil
}

// NormalizeClock lowercases and trims a clock-time string ("10:00", "5 pm").
func NormalizeClock(clock string) string {
	return strings.ToLower(strings.TrimSpace(clock))
}
