// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Frontdesk Contributors

package agent

import (
	"context"

	"github.com/frontdesk-dev/frontdesk/internal/clinic"
)

// ClinicRegistry builds the fixed tool set the receptionist declares to the
// inference backend, bound to the clinic operations.
func ClinicRegistry(tools *clinic.Tools) (*Registry, error) {
	reg := NewRegistry()

	entries := []Tool{
		{
			Name:        "get_services",
			Description: "List available services and doctors.",
			Schema:      objectSchema(map[string]any{}, nil),
			Class:       Idempotent,
			Handler: func(ctx context.Context, _ map[string]any) clinic.Result {
				return resultOf(tools.GetServices(ctx))
			},
		},
		{
			Name:        "ensure_patient",
			Description: "Ensure the patient exists or create a new record.",
			Schema: objectSchema(map[string]any{
				"full_name": map[string]any{"type": "string"},
				"phone":     map[string]any{"type": "string"},
			}, []string{"full_name", "phone"}),
			Class: Idempotent,
			Handler: func(ctx context.Context, args map[string]any) clinic.Result {
				return resultOf(tools.EnsurePatient(ctx, argString(args, "full_name"), argString(args, "phone")))
			},
		},
		{
			Name:        "verify_patient",
			Description: "Verify patient identity using phone number and, optionally, a verification code.",
			Schema: objectSchema(map[string]any{
				"phone": map[string]any{"type": "string"},
				"code":  map[string]any{"type": "string"},
			}, []string{"phone"}),
			Class: Idempotent,
			Handler: func(ctx context.Context, args map[string]any) clinic.Result {
				return resultOf(tools.VerifyPatient(ctx, argString(args, "phone"), argString(args, "code")))
			},
		},
		{
			Name:        "book_appointment",
			Description: "Book an appointment after collecting service, date, and time.",
			Schema: objectSchema(map[string]any{
				"patient_id": map[string]any{"type": "number"},
				"service_id": map[string]any{"type": "number"},
				"date":       map[string]any{"type": "string"},
				"time":       map[string]any{"type": "string"},
			}, []string{"patient_id", "service_id", "date", "time"}),
			Class: AtMostOnce,
			Handler: func(ctx context.Context, args map[string]any) clinic.Result {
				return resultOf(tools.BookAppointment(ctx,
					argInt64(args, "patient_id"),
					argInt64(args, "service_id"),
					argString(args, "date"),
					argString(args, "time")))
			},
		},
		{
			Name:        "cancel_appointment",
			Description: "Cancel an appointment using phone and verification code.",
			Schema: objectSchema(map[string]any{
				"phone":             map[string]any{"type": "string"},
				"verification_code": map[string]any{"type": "string"},
			}, []string{"phone", "verification_code"}),
			Class: AtMostOnce,
			Handler: func(ctx context.Context, args map[string]any) clinic.Result {
				return resultOf(tools.CancelAppointment(ctx, argString(args, "phone"), argString(args, "verification_code")))
			},
		},
		{
			Name:        "reschedule_appointment",
			Description: "Reschedule an appointment using phone, verification code, and the new date and time.",
			Schema: objectSchema(map[string]any{
				"phone":             map[string]any{"type": "string"},
				"verification_code": map[string]any{"type": "string"},
				"new_date":          map[string]any{"type": "string"},
				"new_time":          map[string]any{"type": "string"},
			}, []string{"phone", "verification_code", "new_date", "new_time"}),
			Class: AtMostOnce,
			Handler: func(ctx context.Context, args map[string]any) clinic.Result {
				return resultOf(tools.RescheduleAppointment(ctx,
					argString(args, "phone"),
					argString(args, "verification_code"),
					argString(args, "new_date"),
					argString(args, "new_time")))
			},
		},
	}

	for _, t := range entries {
		if err := reg.Register(t); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func objectSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// resultOf flattens the domain return shape for dispatch. Infrastructure
// faults become a generic failure so the model still gets an outcome to relay.
func resultOf(res clinic.Result, err error) clinic.Result {
	if err != nil {
		return clinic.Failure("Internal error. Please try again.")
	}
	return res
}

func argString(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

// argInt64 accepts the number shapes JSON decoding produces for ids.
func argInt64(args map[string]any, name string) int64 {
	switch v := args[name].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}
