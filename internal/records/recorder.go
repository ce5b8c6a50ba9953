package records

import (
	"strconv"
	"time"

	"github.com/psiclin/psiclin/internal/model"
)

// Audit field names. These are the wire values stored in
// session_history.field_name and shown in the history view.
const (
	FieldSessionDate       = "session_date"
	FieldSessionType       = "session_type"
	FieldMode              = "mode"
	FieldStatus            = "status"
	FieldScheduledDuration = "scheduled_duration"
	FieldMainComplaint     = "main_complaint"
	FieldHypotheses        = "hypotheses"
	FieldInterventions     = "interventions"
	FieldObservations      = "observations"
	FieldAISuggestions     = "ai_suggestions"
)

// fieldChange is one changed scalar field: old and new values in string
// form, nil meaning the field held no value.
type fieldChange struct {
	Field string
	Old   *string
	New   *string
}

// diffSession compares a partial update against the stored session and
// returns one change per field whose value actually differs. Fields present
// in the update but equal to the stored value yield nothing.
func diffSession(current model.Session, u model.SessionUpdate) []fieldChange {
	var changes []fieldChange

	add := func(field string, old, new *string) {
		changes = append(changes, fieldChange{Field: field, Old: old, New: new})
	}

	if u.SessionDate != nil && *u.SessionDate != current.SessionDate {
		add(FieldSessionDate, strOrNil(current.SessionDate), u.SessionDate)
	}
	if u.SessionType != nil && *u.SessionType != current.SessionType {
		add(FieldSessionType, strOrNil(string(current.SessionType)), strVal(string(*u.SessionType)))
	}
	if u.Mode != nil && *u.Mode != current.Mode {
		add(FieldMode, strOrNil(string(current.Mode)), strVal(string(*u.Mode)))
	}
	if u.Status != nil && *u.Status != current.Status {
		add(FieldStatus, strOrNil(string(current.Status)), strVal(string(*u.Status)))
	}
	if u.ScheduledDuration != nil && !intEq(current.ScheduledDuration, u.ScheduledDuration) {
		add(FieldScheduledDuration, intStr(current.ScheduledDuration), intStr(u.ScheduledDuration))
	}
	if u.MainComplaint != nil && !strEq(current.MainComplaint, u.MainComplaint) {
		add(FieldMainComplaint, current.MainComplaint, u.MainComplaint)
	}
	if u.Hypotheses != nil && !strEq(current.Hypotheses, u.Hypotheses) {
		add(FieldHypotheses, current.Hypotheses, u.Hypotheses)
	}
	if u.Interventions != nil && !strEq(current.Interventions, u.Interventions) {
		add(FieldInterventions, current.Interventions, u.Interventions)
	}
	if u.Observations != nil && !strEq(current.Observations, u.Observations) {
		add(FieldObservations, current.Observations, u.Observations)
	}
	if u.AISuggestions != nil && !strEq(current.AISuggestions, u.AISuggestions) {
		add(FieldAISuggestions, current.AISuggestions, u.AISuggestions)
	}

	return changes
}

// historyRow builds one audit row. seq must come from the service clock
// while the record lock is held.
func historyRow(sess model.Session, actor string, change model.ChangeType, fc *fieldChange, seq int64) model.SessionHistory {
	h := model.SessionHistory{
		ID:         model.NewID(),
		SessionID:  sess.ID,
		ClinicID:   sess.ClinicID,
		ChangedBy:  resolveActor(actor),
		ChangeType: change,
		ChangedAt:  time.Now().UTC(),
		Seq:        seq,
	}
	if fc != nil {
		field := fc.Field
		h.FieldName = &field
		h.OldValue = fc.Old
		h.NewValue = fc.New
	}
	return h
}

// resolveActor maps an empty actor to the documented system sentinel.
// History attribution is never empty.
func resolveActor(actor string) string {
	if actor == "" {
		return model.SystemActor
	}
	return actor
}

func strEq(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func intEq(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func intStr(p *int) *string {
	if p == nil {
		return nil
	}
	s := strconv.Itoa(*p)
	return &s
}

func strVal(s string) *string {
	return &s
}

// strOrNil treats the empty string as "no value" for audit display.
func strOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
