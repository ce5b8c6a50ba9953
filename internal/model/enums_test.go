package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTypeValid(t *testing.T) {
	tests := []struct {
		value SessionType
		valid bool
	}{
		{TypeAnamnese, true},
		{TypeAvaliacaoNeuro, true},
		{TypeTCC, true},
		{TypeIntervencaoNeuro, true},
		{TypeRetorno, true},
		{TypeOutra, true},
		{SessionType(""), false},
		{SessionType("consulta"), false},
		{SessionType("Anamnese"), false}, // case matters on the wire
	}

	for _, tt := range tests {
		t.Run(string(tt.value), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.value.Valid())
		})
	}
}

func TestSessionModeValid(t *testing.T) {
	assert.True(t, ModeOnline.Valid())
	assert.True(t, ModePresencial.Valid())
	assert.True(t, ModeHibrida.Valid())
	assert.False(t, SessionMode("remoto").Valid())
	assert.False(t, SessionMode("").Valid())
}

func TestSessionStatusTerminal(t *testing.T) {
	assert.False(t, StatusAgendada.Terminal())
	assert.True(t, StatusConcluida.Terminal())
	assert.True(t, StatusCancelada.Terminal())
}

func TestSessionStatusCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    SessionStatus
		to      SessionStatus
		allowed bool
	}{
		{"agendada to concluida", StatusAgendada, StatusConcluida, true},
		{"agendada to cancelada", StatusAgendada, StatusCancelada, true},
		{"concluida to agendada", StatusConcluida, StatusAgendada, false},
		{"concluida to cancelada", StatusConcluida, StatusCancelada, false},
		{"cancelada to agendada", StatusCancelada, StatusAgendada, false},
		{"same terminal status is a no-op", StatusConcluida, StatusConcluida, true},
		{"same initial status is a no-op", StatusAgendada, StatusAgendada, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestValidateSession(t *testing.T) {
	valid := Session{
		ClinicID:    "c1",
		PatientID:   "p1",
		SessionDate: "2024-01-10",
		SessionType: TypeAnamnese,
		Mode:        ModePresencial,
		Status:      StatusAgendada,
	}
	require.NoError(t, ValidateSession(&valid))

	tests := []struct {
		name   string
		mutate func(*Session)
	}{
		{"missing clinic", func(s *Session) { s.ClinicID = "" }},
		{"missing patient", func(s *Session) { s.PatientID = "" }},
		{"bad type", func(s *Session) { s.SessionType = "consulta" }},
		{"bad mode", func(s *Session) { s.Mode = "remoto" }},
		{"bad status", func(s *Session) { s.Status = "pendente" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			err := ValidateSession(&s)
			require.Error(t, err)
			assert.True(t, IsValidation(err))
		})
	}
}
