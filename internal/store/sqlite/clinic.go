// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Frontdesk Contributors

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/frontdesk-dev/frontdesk/internal/store"
)

// Compile-time interface checks.
var (
	_ store.ClinicStore       = (*ClinicStore)(nil)
	_ store.PatientStore      = (*patientStore)(nil)
	_ store.ServiceStore      = (*serviceStore)(nil)
	_ store.AppointmentStore  = (*appointmentStore)(nil)
	_ store.ConversationStore = (*conversationStore)(nil)
	_ store.AuditStore        = (*auditStore)(nil)
)

// ClinicStore implements store.ClinicStore backed by a single SQLite database.
type ClinicStore struct {
	db            *sql.DB
	patients      *patientStore
	services      *serviceStore
	appointments  *appointmentStore
	conversations *conversationStore
	audit         *auditStore
}

// NewClinicStore opens (or creates) a SQLite database at dbPath and
// initialises the patients, services, appointments, conversation_memory,
// and audit_logs tables.
func NewClinicStore(dbPath string) (*ClinicStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening clinic db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging clinic db: %w", err)
	}

	if err := migrateClinic(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating clinic db: %w", err)
	}

	return &ClinicStore{
		db:            db,
		patients:      &patientStore{db: db},
		services:      &serviceStore{db: db},
		appointments:  &appointmentStore{db: db},
		conversations: &conversationStore{db: db},
		audit:         &auditStore{db: db},
	}, nil
}

func migrateClinic(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS patients (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	full_name TEXT NOT NULL,
	phone     TEXT UNIQUE NOT NULL,
	verified  INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_patients_phone ON patients(phone);

CREATE TABLE IF NOT EXISTS services (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL,
	doctor_name TEXT NOT NULL,
	date        TEXT NOT NULL DEFAULT '',
	time        TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS appointments (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	patient_id        INTEGER NOT NULL,
	service_id        INTEGER NOT NULL,
	date              TEXT NOT NULL,
	time              TEXT NOT NULL,
	status            TEXT NOT NULL,
	verification_code TEXT NOT NULL DEFAULT '',
	created_at        TEXT NOT NULL,
	updated_at        TEXT NOT NULL,
	FOREIGN KEY (patient_id) REFERENCES patients(id),
	FOREIGN KEY (service_id) REFERENCES services(id)
);

CREATE INDEX IF NOT EXISTS idx_appointments_patient ON appointments(patient_id, status);

CREATE TABLE IF NOT EXISTS conversation_memory (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_key   TEXT NOT NULL,
	role       TEXT NOT NULL,
	message    TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversation_memory_key ON conversation_memory(user_key, id);

CREATE TABLE IF NOT EXISTS audit_logs (
	id         TEXT PRIMARY KEY,
	event      TEXT NOT NULL,
	detail     TEXT NOT NULL DEFAULT '',
	action_by  TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_logs_event ON audit_logs(event);
`
	_, err := db.Exec(ddl)
	return err
}

// Seed inserts the demo service catalogue when the services table is empty.
func (c *ClinicStore) Seed(ctx context.Context) error {
	var count int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM services`).Scan(&count); err != nil {
		return fmt.Errorf("counting services: %w", err)
	}
	if count > 0 {
		return nil
	}

	seed := []store.Service{
		{Name: "Teeth Check", DoctorName: "dr. sammer", Date: "2025-11-23", Time: "11:30 AM"},
		{Name: "Teeth Cleaning", DoctorName: "dr. john", Date: "2025-11-23", Time: "05:15 PM"},
		{Name: "Dental Filling", DoctorName: "dr. sara", Date: "2025-11-23", Time: "01:30 AM"},
		{Name: "Tooth Extraction", DoctorName: "dr. farah", Date: "2025-11-23", Time: "11:30 AM"},
	}
	for _, svc := range seed {
		if _, err := c.db.ExecContext(ctx,
			`INSERT INTO services (name, doctor_name, date, time) VALUES (?, ?, ?, ?)`,
			svc.Name, svc.DoctorName, svc.Date, svc.Time,
		); err != nil {
			return fmt.Errorf("seeding service %q: %w", svc.Name, err)
		}
	}
	return nil
}

func (c *ClinicStore) Patients() store.PatientStore           { return c.patients }
func (c *ClinicStore) Services() store.ServiceStore           { return c.services }
func (c *ClinicStore) Appointments() store.AppointmentStore   { return c.appointments }
func (c *ClinicStore) Conversations() store.ConversationStore { return c.conversations }
func (c *ClinicStore) AuditLog() store.AuditStore             { return c.audit }

// Close closes the underlying database connection.
func (c *ClinicStore) Close() error {
	return c.db.Close()
}

// ---------- patientStore ----------

type patientStore struct {
	db *sql.DB
}

func (s *patientStore) GetByPhone(ctx context.Context, phone string) (*store.Patient, error) {
	const q = `SELECT id, full_name, phone, verified FROM patients WHERE phone = ?`

	var p store.Patient
	var verified int
	err := s.db.QueryRowContext(ctx, q, phone).Scan(&p.ID, &p.FullName, &p.Phone, &verified)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("patient with phone %s: %w", phone, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting patient by phone %s: %w", phone, err)
	}
	p.Verified = verified != 0
	return &p, nil
}

func (s *patientStore) Create(ctx context.Context, patient *store.Patient) error {
	const q = `INSERT INTO patients (full_name, phone, verified) VALUES (?, ?, ?)`

	verified := 0
	if patient.Verified {
		verified = 1
	}
	res, err := s.db.ExecContext(ctx, q, patient.FullName, patient.Phone, verified)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("patient with phone %s: %w", patient.Phone, store.ErrConflict)
		}
		return fmt.Errorf("creating patient %s: %w", patient.Phone, err)
	}

	patient.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading patient id: %w", err)
	}
	return nil
}

// ---------- serviceStore ----------

type serviceStore struct {
	db *sql.DB
}

func (s *serviceStore) List(ctx context.Context) ([]store.Service, error) {
	const q = `SELECT id, name, doctor_name, date, time FROM services ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing services: %w", err)
	}
	defer rows.Close()

	var services []store.Service
	for rows.Next() {
		var svc store.Service
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.DoctorName, &svc.Date, &svc.Time); err != nil {
			return nil, fmt.Errorf("scanning service row: %w", err)
		}
		services = append(services, svc)
	}

	return services, rows.Err()
}

// ---------- appointmentStore ----------

type appointmentStore struct {
	db *sql.DB
}

func (s *appointmentStore) Create(ctx context.Context, appt *store.Appointment) error {
	const q = `INSERT INTO appointments (patient_id, service_id, date, time, status, verification_code, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	now := time.Now()
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = now
	}
	appt.UpdatedAt = appt.CreatedAt

	res, err := s.db.ExecContext(ctx, q,
		appt.PatientID,
		appt.ServiceID,
		appt.Date,
		appt.Time,
		string(appt.Status),
		appt.VerificationCode,
		formatTime(appt.CreatedAt),
		formatTime(appt.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("creating appointment for patient %d: %w", appt.PatientID, err)
	}

	appt.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading appointment id: %w", err)
	}
	return nil
}

func (s *appointmentStore) FindActive(ctx context.Context, phone, verificationCode string) (*store.Appointment, error) {
	const q = `SELECT a.id, a.patient_id, a.service_id, a.date, a.time, a.status, a.verification_code, a.created_at, a.updated_at
FROM appointments a
JOIN patients p ON a.patient_id = p.id
WHERE p.phone = ? AND a.verification_code = ? AND a.status != 'cancelled'
ORDER BY a.id DESC LIMIT 1`

	return s.scanOne(s.db.QueryRowContext(ctx, q, strings.TrimSpace(phone), strings.TrimSpace(verificationCode)))
}

func (s *appointmentStore) Get(ctx context.Context, id int64) (*store.Appointment, error) {
	const q = `SELECT id, patient_id, service_id, date, time, status, verification_code, created_at, updated_at
FROM appointments WHERE id = ?`

	return s.scanOne(s.db.QueryRowContext(ctx, q, id))
}

func (s *appointmentStore) scanOne(row *sql.Row) (*store.Appointment, error) {
	var appt store.Appointment
	var createdAt, updatedAt string
	err := row.Scan(
		&appt.ID,
		&appt.PatientID,
		&appt.ServiceID,
		&appt.Date,
		&appt.Time,
		&appt.Status,
		&appt.VerificationCode,
		&createdAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("appointment: %w", store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning appointment row: %w", err)
	}
	appt.CreatedAt = parseTime(createdAt)
	appt.UpdatedAt = parseTime(updatedAt)
	return &appt, nil
}

func (s *appointmentStore) Cancel(ctx context.Context, id int64) error {
	const q = `UPDATE appointments SET status = 'cancelled', updated_at = ? WHERE id = ? AND status != 'cancelled'`

	res, err := s.db.ExecContext(ctx, q, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("cancelling appointment %d: %w", id, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected for appointment %d: %w", id, err)
	}
	if rows == 0 {
		return fmt.Errorf("appointment %d: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *appointmentStore) Reschedule(ctx context.Context, id int64, newDate, newTime string) error {
	const q = `UPDATE appointments SET date = ?, time = ?, updated_at = ? WHERE id = ? AND status != 'cancelled'`

	res, err := s.db.ExecContext(ctx, q, strings.TrimSpace(newDate), strings.TrimSpace(newTime), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("rescheduling appointment %d: %w", id, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected for appointment %d: %w", id, err)
	}
	if rows == 0 {
		return fmt.Errorf("appointment %d: %w", id, store.ErrNotFound)
	}
	return nil
}

// formatTime serialises a time.Time to RFC3339 with nanosecond precision.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime deserialises a time string stored in the database.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
