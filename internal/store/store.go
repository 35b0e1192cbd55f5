// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Frontdesk Contributors

package store

import (
	"context"
	"time"
)

// ConversationStore is the memory collaborator consumed by the agent loop.
// Implementations must guarantee monotonic append ordering per key and
// chronological order on retrieval.
type ConversationStore interface {
	// AppendTurn durably appends one turn for the given conversation key.
	AppendTurn(ctx context.Context, key string, role TurnRole, message string) error

	// LoadRecent returns at most limit of the most recent turns for the key,
	// in chronological order.
	LoadRecent(ctx context.Context, key string, limit int) ([]Turn, error)

	// Cleanup removes turns older than the cutoff across all keys and
	// returns how many were deleted.
	Cleanup(ctx context.Context, olderThan time.Time) (int64, error)
}

// PatientStore manages patient records.
type PatientStore interface {
	GetByPhone(ctx context.Context, phone string) (*Patient, error)
	Create(ctx context.Context, patient *Patient) error
}

// ServiceStore lists bookable services.
type ServiceStore interface {
	List(ctx context.Context) ([]Service, error)
}

// AppointmentStore manages appointment records.
type AppointmentStore interface {
	Create(ctx context.Context, appt *Appointment) error

	// FindActive returns the newest non-cancelled appointment matching the
	// phone/verification-code pair, or ErrNotFound.
	FindActive(ctx context.Context, phone, verificationCode string) (*Appointment, error)

	Cancel(ctx context.Context, id int64) error
	Reschedule(ctx context.Context, id int64, newDate, newTime string) error
	Get(ctx context.Context, id int64) (*Appointment, error)
}

// AuditStore manages the append-only audit log. Writes are best-effort from
// the caller's point of view.
type AuditStore interface {
	Append(ctx context.Context, entry *AuditEntry) error
	Query(ctx context.Context, filter AuditFilter) ([]*AuditEntry, error)
}

// ClinicStore groups all persistent collaborators behind one handle.
type ClinicStore interface {
	Patients() PatientStore
	Services() ServiceStore
	Appointments() AppointmentStore
	Conversations() ConversationStore
	AuditLog() AuditStore
	Close() error
}
