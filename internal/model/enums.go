package model

import "fmt"

// SessionType classifies the clinical purpose of a session. Values are the
// Portuguese wire values used throughout the application and in exports.
type SessionType string

const (
	TypeAnamnese         SessionType = "anamnese"
	TypeAvaliacaoNeuro   SessionType = "avaliacao_neuropsicologica"
	TypeTCC              SessionType = "tcc"
	TypeIntervencaoNeuro SessionType = "intervencao_neuropsicologica"
	TypeRetorno          SessionType = "retorno"
	TypeOutra            SessionType = "outra"
)

// Valid reports whether t is a known session type.
func (t SessionType) Valid() bool {
	switch t {
	case TypeAnamnese, TypeAvaliacaoNeuro, TypeTCC, TypeIntervencaoNeuro, TypeRetorno, TypeOutra:
		return true
	}
	return false
}

// SessionMode is how the session is held.
type SessionMode string

const (
	ModeOnline     SessionMode = "online"
	ModePresencial SessionMode = "presencial"
	ModeHibrida    SessionMode = "hibrida"
)

// Valid reports whether m is a known session mode.
func (m SessionMode) Valid() bool {
	switch m {
	case ModeOnline, ModePresencial, ModeHibrida:
		return true
	}
	return false
}

// SessionStatus is the scheduling state of a session.
//
// StatusAgendada is the initial state; StatusConcluida and StatusCancelada
// are terminal. CanTransition encodes the allowed moves.
type SessionStatus string

const (
	StatusAgendada  SessionStatus = "agendada"
	StatusConcluida SessionStatus = "concluida"
	StatusCancelada SessionStatus = "cancelada"
)

// Valid reports whether s is a known session status.
func (s SessionStatus) Valid() bool {
	switch s {
	case StatusAgendada, StatusConcluida, StatusCancelada:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s SessionStatus) Terminal() bool {
	return s == StatusConcluida || s == StatusCancelada
}

// CanTransition reports whether a status update from s to next is allowed.
// Setting the same status again is a no-op and always allowed.
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	if s == next {
		return true
	}
	return !s.Terminal()
}

// ChangeType categorizes a session history row.
type ChangeType string

const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// Valid reports whether c is a known change type.
func (c ChangeType) Valid() bool {
	switch c {
	case ChangeCreated, ChangeUpdated, ChangeDeleted:
		return true
	}
	return false
}

// ValidateSession checks enum fields and required references on a session.
// Returns a ValidationError naming the first offending field.
func ValidateSession(s *Session) error {
	if s.ClinicID == "" {
		return NewValidation("session clinic_id is required")
	}
	if s.PatientID == "" {
		return NewValidation("session patient_id is required")
	}
	if !s.SessionType.Valid() {
		return NewValidation(fmt.Sprintf("invalid session_type %q", s.SessionType))
	}
	if !s.Mode.Valid() {
		return NewValidation(fmt.Sprintf("invalid mode %q", s.Mode))
	}
	if !s.Status.Valid() {
		return NewValidation(fmt.Sprintf("invalid status %q", s.Status))
	}
	return nil
}
