// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Frontdesk Contributors

// Package clinic implements the reception domain operations the agent can
// invoke: patient identity, the service catalogue, and appointment booking,
// cancellation, and rescheduling. Every operation returns a Result; an error
// is only returned for infrastructure faults.
package clinic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/frontdesk-dev/frontdesk/internal/store"
)

// ToolsConfig holds dependencies for Tools.
type ToolsConfig struct {
	Store   store.ClinicStore
	Lockout *Lockout
	Logger  *slog.Logger

	// CodeSource generates booking verification codes. Defaults to a random
	// 4-digit numeric code. Injectable for tests.
	CodeSource func() string
}

// Tools bundles the clinic domain operations over a ClinicStore.
type Tools struct {
	store   store.ClinicStore
	lockout *Lockout
	log     *slog.Logger
	newCode func() string
}

// NewTools creates Tools with the given configuration.
func NewTools(cfg ToolsConfig) *Tools {
	lockout := cfg.Lockout
	if lockout == nil {
		lockout = NewLockout(0, 0)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	newCode := cfg.CodeSource
	if newCode == nil {
		newCode = func() string {
			return fmt.Sprintf("%04d", 1000+rand.IntN(9000))
		}
	}
	return &Tools{
		store:   cfg.Store,
		lockout: lockout,
		log:     log,
		newCode: newCode,
	}
}

// EnsurePatient finds the patient by phone or creates a new record. An
// existing row is never duplicated; the result message distinguishes the two
// outcomes so the model can phrase its reply accordingly.
func (t *Tools) EnsurePatient(ctx context.Context, fullName, phone string) (Result, error) {
	fullName = NormalizeName(fullName)
	phone = NormalizePhone(phone)
	if fullName == "" || phone == "" {
		return Failure("Missing full name or phone."), nil
	}

	patient, err := t.store.Patients().GetByPhone(ctx, phone)
	switch {
	case err == nil:
		t.audit(ctx, "ensure_patient", "Existing patient found.", fullName)
		return Success("Existing patient found.", map[string]any{"patient_id": patient.ID}), nil
	case !isNotFound(err):
		return Result{}, err
	}

	patient = &store.Patient{FullName: fullName, Phone: phone, Verified: true}
	if err := t.store.Patients().Create(ctx, patient); err != nil {
		if isConflict(err) {
			// Lost a race with a concurrent ensure for the same phone.
			existing, lookupErr := t.store.Patients().GetByPhone(ctx, phone)
			if lookupErr != nil {
				return Result{}, lookupErr
			}
			t.audit(ctx, "ensure_patient", "Existing patient found.", fullName)
			return Success("Existing patient found.", map[string]any{"patient_id": existing.ID}), nil
		}
		return Result{}, err
	}

	t.audit(ctx, "ensure_patient", "New patient record created.", fullName)
	return Success("New patient record created.", map[string]any{"patient_id": patient.ID}), nil
}

// GetServices lists the service catalogue. Data is a list, one element per
// service, each carrying the doctor and the offered slot.
func (t *Tools) GetServices(ctx context.Context) (Result, error) {
	services, err := t.store.Services().List(ctx)
	if err != nil {
		return Result{}, err
	}

	data := make([]map[string]any, 0, len(services))
	for _, svc := range services {
		data = append(data, map[string]any{
			"id":          svc.ID,
			"name":        svc.Name,
			"doctor_name": svc.DoctorName,
			"date":        svc.Date,
			"time":        svc.Time,
		})
	}
	return Success("Services fetched successfully.", data), nil
}

// BookAppointment creates a confirmed appointment and returns the 4-digit
// verification code that proves the booking. The date is normalized to
// yyyy-mm-dd before storage.
func (t *Tools) BookAppointment(ctx context.Context, patientID, serviceID int64, date, clock string) (Result, error) {
	date, err := NormalizeDate(date)
	if err != nil {
		return Failure(fmt.Sprintf("Unrecognized date format: %v", err)), nil
	}
	clock = NormalizeClock(clock)
	if date == "" || clock == "" {
		return Failure("Missing date or time."), nil
	}

	appt := &store.Appointment{
		PatientID:        patientID,
		ServiceID:        serviceID,
		Date:             date,
		Time:             clock,
		Status:           store.AppointmentStatusConfirmed,
		VerificationCode: t.newCode(),
	}
	if err := t.store.Appointments().Create(ctx, appt); err != nil {
		return Result{}, err
	}

	t.audit(ctx, "book_appointment", fmt.Sprintf("Patient %d booked service %d.", patientID, serviceID), fmt.Sprintf("%d", patientID))
	return Success(fmt.Sprintf("Booked for %s at %s.", date, clock), map[string]any{
		"verification_code": appt.VerificationCode,
		"date":              date,
		"time":              clock,
	}), nil
}

// VerifyPatient verifies identity by phone, and when a code is supplied, by
// the phone/code pair against a non-cancelled appointment. Repeated failures
// inside the lockout window deny further attempts.
func (t *Tools) VerifyPatient(ctx context.Context, phone, code string) (Result, error) {
	phone = NormalizePhone(phone)
	if phone == "" {
		return Failure("Missing phone number."), nil
	}
	if t.lockout.Locked(phone) {
		return Failure("Too many failed verification attempts. Please try again later."), nil
	}

	patient, err := t.store.Patients().GetByPhone(ctx, phone)
	if err != nil {
		if isNotFound(err) {
			t.lockout.RecordFailure(phone)
			return Failure("No patient found for this phone number."), nil
		}
		return Result{}, err
	}

	if code != "" {
		if _, err := t.store.Appointments().FindActive(ctx, phone, code); err != nil {
			if isNotFound(err) {
				t.lockout.RecordFailure(phone)
				return Failure("Invalid phone number or verification code."), nil
			}
			return Result{}, err
		}
	}

	t.lockout.Reset(phone)
	t.audit(ctx, "verify_patient", "Verification successful.", phone)
	return Success("Verification successful.", map[string]any{"patient_id": patient.ID}), nil
}

// CancelAppointment cancels the active appointment matching the phone and
// verification code. A non-matching pair mutates nothing.
func (t *Tools) CancelAppointment(ctx context.Context, phone, code string) (Result, error) {
	phone = NormalizePhone(phone)
	if t.lockout.Locked(phone) {
		return Failure("Too many failed verification attempts. Please try again later."), nil
	}

	appt, err := t.store.Appointments().FindActive(ctx, phone, code)
	if err != nil {
		if isNotFound(err) {
			t.lockout.RecordFailure(phone)
			return Failure("No active appointment found for this phone and code."), nil
		}
		return Result{}, err
	}

	if err := t.store.Appointments().Cancel(ctx, appt.ID); err != nil {
		return Result{}, err
	}

	t.lockout.Reset(phone)
	t.audit(ctx, "cancel_appointment", fmt.Sprintf("Appointment %d cancelled via phone %s", appt.ID, phone), phone)
	return Success("Appointment cancelled successfully.", map[string]any{
		"appointment_id": fmt.Sprintf("%d", appt.ID),
	}), nil
}

// RescheduleAppointment moves the active appointment matching the phone and
// verification code to a new slot.
func (t *Tools) RescheduleAppointment(ctx context.Context, phone, code, newDate, newTime string) (Result, error) {
	phone = NormalizePhone(phone)
	if t.lockout.Locked(phone) {
		return Failure("Too many failed verification attempts. Please try again later."), nil
	}

	newDate, err := NormalizeDate(newDate)
	if err != nil {
		return Failure(fmt.Sprintf("Unrecognized date format: %v", err)), nil
	}
	newTime = NormalizeClock(newTime)

	appt, err := t.store.Appointments().FindActive(ctx, phone, code)
	if err != nil {
		if isNotFound(err) {
			t.lockout.RecordFailure(phone)
			return Failure("No active appointment found for this phone and code."), nil
		}
		return Result{}, err
	}

	if err := t.store.Appointments().Reschedule(ctx, appt.ID, newDate, newTime); err != nil {
		return Result{}, err
	}

	t.lockout.Reset(phone)
	t.audit(ctx, "reschedule_appointment", fmt.Sprintf("Rescheduled appointment %d to %s %s", appt.ID, newDate, newTime), phone)
	return Success(fmt.Sprintf("Appointment rescheduled to %s at %s.", newDate, newTime), map[string]any{
		"appointment_id": fmt.Sprintf("%d", appt.ID),
		"new_date":       newDate,
		"new_time":       newTime,
	}), nil
}

// audit writes a best-effort domain audit entry; failures are logged, never
// surfaced.
func (t *Tools) audit(ctx context.Context, event, detail, actionBy string) {
	entry := &store.AuditEntry{Event: event, Detail: detail, ActionBy: actionBy}
	if err := t.store.AuditLog().Append(ctx, entry); err != nil {
		t.log.WarnContext(ctx, "audit append failed",
			slog.String("event", event),
			slog.Any("error", err),
		)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

func isConflict(err error) bool {
	return errors.Is(err, store.ErrConflict)
}
