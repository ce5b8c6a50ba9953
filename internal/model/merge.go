package model

import "fmt"

// MergeSession applies a partial update to a stored session and returns the
// merged value. The input is validated before anything is touched:
//
//   - enum fields must hold known values
//   - status may not move out of a terminal state (concluida/cancelada);
//     re-asserting the current status is a no-op and allowed
//
// Timestamps are left for the caller to stamp.
func MergeSession(current Session, u SessionUpdate) (Session, error) {
	if u.SessionType != nil && !u.SessionType.Valid() {
		return Session{}, NewValidation(fmt.Sprintf("invalid session_type %q", *u.SessionType))
	}
	if u.Mode != nil && !u.Mode.Valid() {
		return Session{}, NewValidation(fmt.Sprintf("invalid mode %q", *u.Mode))
	}
	if u.Status != nil {
		if !u.Status.Valid() {
			return Session{}, NewValidation(fmt.Sprintf("invalid status %q", *u.Status))
		}
		if !current.Status.CanTransition(*u.Status) {
			return Session{}, NewValidation(fmt.Sprintf(
				"status %q is terminal and cannot change to %q", current.Status, *u.Status))
		}
	}

	merged := current
	if u.SessionDate != nil {
		merged.SessionDate = *u.SessionDate
	}
	if u.SessionType != nil {
		merged.SessionType = *u.SessionType
	}
	if u.Mode != nil {
		merged.Mode = *u.Mode
	}
	if u.Status != nil {
		merged.Status = *u.Status
	}
	if u.ScheduledDuration != nil {
		d := *u.ScheduledDuration
		merged.ScheduledDuration = &d
	}
	if u.MainComplaint != nil {
		v := *u.MainComplaint
		merged.MainComplaint = &v
	}
	if u.Hypotheses != nil {
		v := *u.Hypotheses
		merged.Hypotheses = &v
	}
	if u.Interventions != nil {
		v := *u.Interventions
		merged.Interventions = &v
	}
	if u.Observations != nil {
		v := *u.Observations
		merged.Observations = &v
	}
	if u.AISuggestions != nil {
		v := *u.AISuggestions
		merged.AISuggestions = &v
	}
	return merged, nil
}
