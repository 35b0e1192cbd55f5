// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Frontdesk Contributors

package agent_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontdesk-dev/frontdesk/internal/agent"
	"github.com/frontdesk-dev/frontdesk/internal/clinic"
	"github.com/frontdesk-dev/frontdesk/internal/live"
	"github.com/frontdesk-dev/frontdesk/internal/store"
	fderr "github.com/frontdesk-dev/frontdesk/pkg/errors"
)

func kinds(fragments []agent.Fragment) []agent.FragmentKind {
	out := make([]agent.FragmentKind, len(fragments))
	for i, f := range fragments {
		out[i] = f.Kind
	}
	return out
}

func TestRunTurnRejectsEmptyInput(t *testing.T) {
	f := newLoopFixture(t, 10, &scriptedBackend{})

	_, err := f.loop.RunTurn(context.Background(), "0790000001", "   ")
	require.Error(t, err)
	assert.True(t, fderr.HasCode(err, fderr.CodeAgentTurnInvalidInput))
}

func TestRunTurnStreamsTextAndStopsOnSilence(t *testing.T) {
	backend := &scriptedBackend{scripts: []turnScript{
		{events: []live.Event{
			{Type: live.EventText, Text: "Welcome to the clinic. "},
			{Type: live.EventText, Text: "May I have your name and phone number?"},
			{Type: live.EventEnd},
		}},
		// Next step yields nothing: backend silence ends the turn.
	}}
	f := newLoopFixture(t, 10, backend)

	ch, err := f.loop.RunTurn(context.Background(), "0790000001", "I want to book a cleaning")
	require.NoError(t, err)
	fragments := drain(t, ch)

	require.Equal(t,
		[]agent.FragmentKind{agent.FragmentText, agent.FragmentText, agent.FragmentDone},
		kinds(fragments))
	assert.Equal(t, "Welcome to the clinic. ", fragments[0].Text)

	// The user turn and the assembled agent turn were persisted.
	users := f.conv.byRole("0790000001", store.TurnRoleUser)
	require.Len(t, users, 1)
	agents := f.conv.byRole("0790000001", store.TurnRoleAgent)
	require.Len(t, agents, 1)
	assert.Equal(t, "Welcome to the clinic. May I have your name and phone number?", agents[0].Message)
}

func TestRunTurnNeverDispatchesIncompleteCalls(t *testing.T) {
	backend := &scriptedBackend{scripts: []turnScript{
		{events: []live.Event{
			{Type: live.EventFunctionCall, Call: &live.FunctionCall{
				Name: "ensure_patient",
				Args: map[string]any{"full_name": "sara ali"}, // phone missing
			}},
			{Type: live.EventEnd},
		}},
	}}
	f := newLoopFixture(t, 10, backend)
	f.register(t, "ensure_patient", []string{"full_name", "phone"},
		clinic.Success("ok", nil))

	ch, err := f.loop.RunTurn(context.Background(), "anon-1", "book me in")
	require.NoError(t, err)
	fragments := drain(t, ch)

	assert.Empty(t, f.invocations(), "an incomplete call must never reach the handler")
	assert.Contains(t, kinds(fragments), agent.FragmentNotice)

	notices := f.conv.byRole("anon-1", store.TurnRoleToolNotice)
	require.NotEmpty(t, notices)
	assert.Contains(t, notices[0].Message, "not executed")
}

func TestRunTurnTerminatesOnConfirmationToken(t *testing.T) {
	backend := &scriptedBackend{scripts: []turnScript{
		{events: []live.Event{
			{Type: live.EventFunctionCall, Call: &live.FunctionCall{
				Name: "book_appointment",
				Args: map[string]any{"patient_id": "1", "service_id": "2", "date": "2025-11-10", "time": "10:00"},
			}},
			{Type: live.EventEnd},
		}},
	}}
	f := newLoopFixture(t, 10, backend)
	f.register(t, "book_appointment", []string{"patient_id", "service_id", "date", "time"},
		clinic.Success("Appointment booked.", map[string]any{"verification_code": "4821"}))

	ch, err := f.loop.RunTurn(context.Background(), "0790000001", "yes, book it")
	require.NoError(t, err)
	fragments := drain(t, ch)

	assert.Equal(t, []string{"book_appointment"}, f.invocations())
	require.NotEmpty(t, fragments)
	assert.Equal(t, agent.FragmentDone, fragments[len(fragments)-1].Kind)
	assert.Equal(t, 1, backend.sendCount(), "confirmation token ends the loop without another step")
}

func TestRunTurnStepBudget(t *testing.T) {
	// Every step asks for the same idempotent lookup and never produces a
	// confirmation token, so only the budget can stop the loop.
	lookup := turnScript{events: []live.Event{
		{Type: live.EventFunctionCall, Call: &live.FunctionCall{Name: "get_services"}},
		{Type: live.EventEnd},
	}}
	backend := &scriptedBackend{scripts: []turnScript{lookup, lookup, lookup, lookup, lookup}}
	f := newLoopFixture(t, 3, backend)
	f.register(t, "get_services", nil,
		clinic.Success("Available services.", []map[string]any{{"id": int64(1), "name": "Teeth Check"}}))

	ch, err := f.loop.RunTurn(context.Background(), "0790000001", "what do you offer")
	require.NoError(t, err)
	fragments := drain(t, ch)

	assert.Len(t, f.invocations(), 3, "dispatches are bounded by the step budget")
	require.NotEmpty(t, fragments)
	last := fragments[len(fragments)-1]
	assert.Equal(t, agent.FragmentIncomplete, last.Kind)
	assert.NotEmpty(t, last.Text)
}

func TestRunTurnContinuesAfterTransportError(t *testing.T) {
	failing := &scriptedBackend{scripts: []turnScript{
		{err: errors.New("connection reset")},
	}}
	recovered := &scriptedBackend{scripts: []turnScript{
		{events: []live.Event{
			{Type: live.EventText, Text: "Sorry about that. How can I help?"},
			{Type: live.EventEnd},
		}},
	}}
	f := newLoopFixture(t, 10, failing, recovered)

	ch, err := f.loop.RunTurn(context.Background(), "0790000001", "hello")
	require.NoError(t, err)
	fragments := drain(t, ch)

	require.Equal(t,
		[]agent.FragmentKind{agent.FragmentNotice, agent.FragmentText, agent.FragmentDone},
		kinds(fragments))
	assert.True(t, failing.closed, "a failed connection is released before redialing")
	assert.Equal(t, 2, f.dials.dials)
}

func TestRunTurnRecoversFromStreamError(t *testing.T) {
	failing := &scriptedBackend{scripts: []turnScript{
		{events: []live.Event{{Type: live.EventError, Err: "server_close"}}},
	}}
	recovered := &scriptedBackend{scripts: []turnScript{
		{events: []live.Event{
			{Type: live.EventText, Text: "Back with you."},
			{Type: live.EventEnd},
		}},
	}}
	f := newLoopFixture(t, 10, failing, recovered)

	ch, err := f.loop.RunTurn(context.Background(), "0790000001", "hello")
	require.NoError(t, err)
	fragments := drain(t, ch)

	require.Equal(t,
		[]agent.FragmentKind{agent.FragmentNotice, agent.FragmentText, agent.FragmentDone},
		kinds(fragments))
	assert.True(t, failing.closed)
}

func TestRunTurnConsumerAbandonment(t *testing.T) {
	backend := &scriptedBackend{scripts: []turnScript{
		{events: []live.Event{
			{Type: live.EventText, Text: "one"},
			{Type: live.EventText, Text: "two"},
			{Type: live.EventText, Text: "three"},
			{Type: live.EventEnd},
		}},
	}}
	f := newLoopFixture(t, 10, backend)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := f.loop.RunTurn(ctx, "0790000001", "hello")
	require.NoError(t, err)

	<-ch
	cancel()

	drain(t, ch)
}

func TestRunTurnFoldsIdentityIntoSession(t *testing.T) {
	backend := &scriptedBackend{scripts: []turnScript{
		{events: []live.Event{
			{Type: live.EventFunctionCall, Call: &live.FunctionCall{
				Name: "ensure_patient",
				Args: map[string]any{"full_name": "sara ali", "phone": "0790000002"},
			}},
			{Type: live.EventEnd},
		}},
	}}
	f := newLoopFixture(t, 10, backend)
	f.register(t, "ensure_patient", []string{"full_name", "phone"},
		clinic.Success("Existing patient found.", map[string]any{"patient_id": int64(7)}))

	ch, err := f.loop.RunTurn(context.Background(), "0790000002", "صباح الخير، بدي موعد")
	require.NoError(t, err)
	drain(t, ch)

	sess := f.sessions.Acquire("0790000002")
	assert.Equal(t, int64(7), sess.Identity.PatientID)
	assert.Equal(t, "sara ali", sess.Identity.FullName)
	assert.Equal(t, "0790000002", sess.Identity.Phone)
	assert.Equal(t, agent.LanguageArabic, sess.Language, "language sticks from the first user turn")
}

func TestRunTurnAuditsOutcome(t *testing.T) {
	backend := &scriptedBackend{scripts: []turnScript{
		{events: []live.Event{
			{Type: live.EventText, Text: "Hi."},
			{Type: live.EventEnd},
		}},
	}}
	f := newLoopFixture(t, 10, backend)

	ch, err := f.loop.RunTurn(context.Background(), "0790000001", "hi")
	require.NoError(t, err)
	drain(t, ch)

	entries, err := f.audit.Query(context.Background(), store.AuditFilter{})
	require.NoError(t, err)
	var found bool
	for _, e := range entries {
		if e.Event == "agent_turn" {
			found = true
			assert.Equal(t, "0790000001", e.ActionBy)
		}
	}
	assert.True(t, found, "every turn writes an audit entry")
}
