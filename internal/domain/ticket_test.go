package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStates = []TicketState{
	TicketStateDraft,
	TicketStateRequested,
	TicketStateAssigned,
	TicketStateInEvaluation,
	TicketStateApproved,
	TicketStateRejected,
	TicketStateReturned,
}

func TestCanTransitionMatchesTable(t *testing.T) {
	allowed := map[[2]TicketState]bool{
		{TicketStateDraft, TicketStateRequested}:       true,
		{TicketStateRequested, TicketStateAssigned}:    true,
		{TicketStateAssigned, TicketStateInEvaluation}: true,
		{TicketStateInEvaluation, TicketStateDraft}:    true,
		{TicketStateInEvaluation, TicketStateApproved}: true,
		{TicketStateInEvaluation, TicketStateRejected}: true,
		{TicketStateReturned, TicketStateDraft}:        true,
		{TicketStateReturned, TicketStateRequested}:    true,
	}
	for _, from := range allStates {
		for _, to := range allStates {
			want := allowed[[2]TicketState{from, to}]
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestApprovedAndRejectedAreTerminal(t *testing.T) {
	for _, from := range []TicketState{TicketStateApproved, TicketStateRejected} {
		for _, to := range allStates {
			assert.False(t, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestParseTicketState(t *testing.T) {
	tests := []struct {
		raw  string
		want TicketState
	}{
		{"Borrador", TicketStateDraft},
		{"Solicitado", TicketStateRequested},
		{"Asignado", TicketStateAssigned},
		{"En evaluacion", TicketStateInEvaluation},
		{"Aprobado", TicketStateApproved},
		{"Rechazado", TicketStateRejected},
		{"Devuelto", TicketStateReturned},
		{"DRAFT", TicketStateDraft},
		{"IN_EVALUATION", TicketStateInEvaluation},
	}
	for _, test := range tests {
		state, ok := ParseTicketState(test.raw)
		require.True(t, ok, "parse %q", test.raw)
		assert.Equal(t, test.want, state)
	}

	for _, raw := range []string{"", "Cerrado", "draft", "OPEN"} {
		_, ok := ParseTicketState(raw)
		assert.False(t, ok, "parse %q", raw)
	}
}

func TestWireValueRoundTrip(t *testing.T) {
	for _, state := range allStates {
		wire := state.WireValue()
		require.NotEmpty(t, wire)
		parsed, ok := ParseTicketState(wire)
		require.True(t, ok)
		assert.Equal(t, state, parsed)
	}
}

func TestParseReversalType(t *testing.T) {
	typ, ok := ParseReversalType("Reversion por errores operativos")
	require.True(t, ok)
	assert.Equal(t, ReversalTypeOperationalError, typ)

	typ, ok = ParseReversalType("CLIENT_ERROR")
	require.True(t, ok)
	assert.Equal(t, ReversalTypeClientError, typ)

	_, ok = ParseReversalType("Reversion por otra cosa")
	assert.False(t, ok)
}
