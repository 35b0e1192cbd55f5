// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Frontdesk Contributors

package store

import "time"

// --- Conversation types ---

// TurnRole identifies the author of a conversation turn.
type TurnRole string

const (
	TurnRoleUser  TurnRole = "user"
	TurnRoleAgent TurnRole = "agent"
	// TurnRoleToolNotice records a tool invocation and its result in the
	// transcript so the next model step can see what happened.
	TurnRoleToolNotice TurnRole = "tool_notice"
)

// AnonymousKey is the conversation key used before a phone number is known.
const AnonymousKey = "anonymous"

// Turn is one immutable unit of conversation content. Turns are appended in
// strict chronological order per conversation key.
type Turn struct {
	ID        int64
	Key       string
	Role      TurnRole
	Message   string
	CreatedAt time.Time
}

// --- Clinic types ---

// Patient is a clinic patient record, unique per phone number.
type Patient struct {
	ID       int64
	FullName string
	Phone    string
	Verified bool
}

// Service is a bookable clinic service offered by a doctor.
type Service struct {
	ID         int64
	Name       string
	DoctorName string
	Date       string
	Time       string
}

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Appointment links a patient to a service slot. VerificationCode is the
// confirmation token handed to the patient at booking time; cancel and
// reschedule require it back.
type Appointment struct {
	ID               int64
	PatientID        int64
	ServiceID        int64
	Date             string
	Time             string
	Status           AppointmentStatus
	VerificationCode string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// --- Audit types ---

// AuditEntry records one best-effort audit event.
type AuditEntry struct {
	ID        string
	Event     string
	Detail    string
	ActionBy  string
	CreatedAt time.Time
}

// AuditFilter narrows audit queries.
type AuditFilter struct {
	Event    string
	ActionBy string
	Limit    int
}
