// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Frontdesk Contributors

package errors_test

import (
	stderrors "errors"
	"net/http"
	"testing"

	fderr "github.com/frontdesk-dev/frontdesk/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIncludesCodeAndFields(t *testing.T) {
	err := fderr.New(
		fderr.CodeToolArgsInvalid,
		"missing required argument",
		fderr.FieldTool("book_appointment"),
		fderr.Field("missing", "patient_id"),
	)

	require.Error(t, err)
	assert.Equal(t, fderr.CodeToolArgsInvalid, fderr.CodeOf(err))
	assert.True(t, fderr.HasCode(err, fderr.CodeToolArgsInvalid))

	fields := fderr.FieldsOf(err)
	assert.Equal(t, "book_appointment", fields["tool"])
	assert.Equal(t, "patient_id", fields["missing"])
}

func TestErrorfWrapsInnerError(t *testing.T) {
	inner := stderrors.New("disk full")
	err := fderr.Errorf(fderr.CodeStoreDatabaseFailure, "write failed: %w", inner)
	require.Error(t, err)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, fderr.CodeStoreDatabaseFailure, fderr.CodeOf(err))
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, fderr.Wrap(nil, fderr.CodeStoreDatabaseFailure, "ignored"))
	assert.NoError(t, fderr.Wrapf(nil, fderr.CodeStoreDatabaseFailure, "ignored"))
	assert.NoError(t, fderr.With(nil))
}

func TestClassifiersByReasonSuffix(t *testing.T) {
	assert.True(t, fderr.IsNotFound(fderr.New(fderr.CodeStorePatientNotFound, "no such patient")))
	assert.True(t, fderr.IsTimeout(fderr.New(fderr.CodeLiveReceiveTimeout, "receive timed out")))
	assert.True(t, fderr.IsInvalidInput(fderr.New(fderr.CodeLiveInvalidFrame, "unknown frame type")))
	assert.True(t, fderr.IsDenied(fderr.New(fderr.CodeToolLockoutDenied, "too many failed attempts")))
	assert.True(t, fderr.IsConflict(fderr.New(fderr.CodeLiveSessionBusy, "turn in flight")))
	assert.True(t, fderr.IsUpstreamFailure(fderr.New(fderr.CodeLiveSendFailure, "send failed")))
	assert.False(t, fderr.IsNotFound(stderrors.New("plain")))
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fderr.New(fderr.CodeStorePatientNotFound, "x"), http.StatusNotFound},
		{"invalid input", fderr.New(fderr.CodeToolArgsInvalid, "x"), http.StatusBadRequest},
		{"conflict", fderr.New(fderr.CodeLiveSessionBusy, "x"), http.StatusConflict},
		{"denied", fderr.New(fderr.CodeToolLockoutDenied, "x"), http.StatusForbidden},
		{"budget", fderr.New(fderr.CodeAgentStepBudget, "x"), http.StatusTooManyRequests},
		{"timeout", fderr.New(fderr.CodeLiveReceiveTimeout, "x"), http.StatusGatewayTimeout},
		{"upstream", fderr.New(fderr.CodeLiveUpstreamError, "x"), http.StatusBadGateway},
		{"fallback", stderrors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fderr.HTTPStatus(tt.err))
		})
	}
}

func TestCodeOfNonOopsError(t *testing.T) {
	assert.Equal(t, fderr.Code(""), fderr.CodeOf(stderrors.New("plain")))
	assert.Equal(t, fderr.Code(""), fderr.CodeOf(nil))
}
