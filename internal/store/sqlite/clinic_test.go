// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Frontdesk Contributors

package sqlite_test

import (
	"context"
	"testing"

	"github.com/frontdesk-dev/frontdesk/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatientStore_CreateAndGetByPhone(t *testing.T) {
	ctx := context.Background()
	cs := testClinicStore(t, "patients")

	p := &store.Patient{FullName: "sara ali", Phone: "0790000002", Verified: true}
	require.NoError(t, cs.Patients().Create(ctx, p))
	assert.NotZero(t, p.ID, "Create should populate the generated id")

	got, err := cs.Patients().GetByPhone(ctx, "0790000002")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, "sara ali", got.FullName)
	assert.True(t, got.Verified)
}

func TestPatientStore_GetByPhoneNotFound(t *testing.T) {
	cs := testClinicStore(t, "patients-missing")

	_, err := cs.Patients().GetByPhone(context.Background(), "0000000000")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPatientStore_DuplicatePhoneConflicts(t *testing.T) {
	ctx := context.Background()
	cs := testClinicStore(t, "patients-dup")

	require.NoError(t, cs.Patients().Create(ctx, &store.Patient{FullName: "sara ali", Phone: "0790000002"}))

	err := cs.Patients().Create(ctx, &store.Patient{FullName: "other name", Phone: "0790000002"})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestServiceStore_ListSeeded(t *testing.T) {
	cs := testClinicStore(t, "services")

	services, err := cs.Services().List(context.Background())
	require.NoError(t, err)
	require.Len(t, services, 4)
	assert.Equal(t, "Teeth Check", services[0].Name)
	assert.Equal(t, "dr. sammer", services[0].DoctorName)
}

func TestClinicStore_SeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	cs := testClinicStore(t, "seed-twice")

	require.NoError(t, cs.Seed(ctx))

	services, err := cs.Services().List(ctx)
	require.NoError(t, err)
	assert.Len(t, services, 4, "second Seed must not duplicate the catalogue")
}

func TestAppointmentStore_CreateAndFindActive(t *testing.T) {
	ctx := context.Background()
	cs := testClinicStore(t, "appointments")

	p := &store.Patient{FullName: "sara ali", Phone: "0790000002"}
	require.NoError(t, cs.Patients().Create(ctx, p))

	appt := &store.Appointment{
		PatientID:        p.ID,
		ServiceID:        2,
		Date:             "2025-11-10",
		Time:             "10:00",
		Status:           store.AppointmentStatusConfirmed,
		VerificationCode: "4821",
	}
	require.NoError(t, cs.Appointments().Create(ctx, appt))
	assert.NotZero(t, appt.ID)

	got, err := cs.Appointments().FindActive(ctx, "0790000002", "4821")
	require.NoError(t, err)
	assert.Equal(t, appt.ID, got.ID)
	assert.Equal(t, "2025-11-10", got.Date)

	// Wrong code matches nothing.
	_, err = cs.Appointments().FindActive(ctx, "0790000002", "0000")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAppointmentStore_CancelExcludesFromActive(t *testing.T) {
	ctx := context.Background()
	cs := testClinicStore(t, "appointments-cancel")

	p := &store.Patient{FullName: "sara ali", Phone: "0790000002"}
	require.NoError(t, cs.Patients().Create(ctx, p))

	appt := &store.Appointment{
		PatientID:        p.ID,
		ServiceID:        1,
		Date:             "2025-11-10",
		Time:             "10:00",
		Status:           store.AppointmentStatusConfirmed,
		VerificationCode: "1234",
	}
	require.NoError(t, cs.Appointments().Create(ctx, appt))
	require.NoError(t, cs.Appointments().Cancel(ctx, appt.ID))

	_, err := cs.Appointments().FindActive(ctx, "0790000002", "1234")
	assert.ErrorIs(t, err, store.ErrNotFound)

	got, err := cs.Appointments().Get(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, store.AppointmentStatusCancelled, got.Status)

	// Cancelling an already-cancelled appointment is a no-match.
	assert.ErrorIs(t, cs.Appointments().Cancel(ctx, appt.ID), store.ErrNotFound)
}

func TestAppointmentStore_Reschedule(t *testing.T) {
	ctx := context.Background()
	cs := testClinicStore(t, "appointments-resched")

	p := &store.Patient{FullName: "sara ali", Phone: "0790000002"}
	require.NoError(t, cs.Patients().Create(ctx, p))

	appt := &store.Appointment{
		PatientID:        p.ID,
		ServiceID:        1,
		Date:             "2025-11-10",
		Time:             "10:00",
		Status:           store.AppointmentStatusConfirmed,
		VerificationCode: "1234",
	}
	require.NoError(t, cs.Appointments().Create(ctx, appt))

	require.NoError(t, cs.Appointments().Reschedule(ctx, appt.ID, "2025-11-12", "14:30"))

	got, err := cs.Appointments().Get(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, "2025-11-12", got.Date)
	assert.Equal(t, "14:30", got.Time)
	assert.Equal(t, store.AppointmentStatusConfirmed, got.Status)
}

func TestAuditStore_AppendAndQuery(t *testing.T) {
	ctx := context.Background()
	cs := testClinicStore(t, "audit")

	require.NoError(t, cs.AuditLog().Append(ctx, &store.AuditEntry{
		Event:    "book_appointment",
		Detail:   "patient 1 booked service 2",
		ActionBy: "0790000002",
	}))
	require.NoError(t, cs.AuditLog().Append(ctx, &store.AuditEntry{
		Event:    "tool_error",
		Detail:   "cancel_appointment failed",
		ActionBy: "0790000002",
	}))

	entries, err := cs.AuditLog().Query(ctx, store.AuditFilter{Event: "book_appointment"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ID)
	assert.Equal(t, "patient 1 booked service 2", entries[0].Detail)

	entries, err = cs.AuditLog().Query(ctx, store.AuditFilter{ActionBy: "0790000002"})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
