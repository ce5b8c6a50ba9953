package model

import "time"

// Clinic is the tenant root. Every other entity references a clinic id and
// is exclusively owned by it.
type Clinic struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Logo holds the optional logo image payload (PNG/JPEG bytes).
	Logo []byte `json:"logo,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Patient is a person under care in one clinic.
//
// PublicID is the de-identified display code: unique within the clinic and
// immutable once assigned. It is the safe-to-display identifier at all
// times. FullName is the gated identifier - the only PII field - and must
// never be rendered without a true privacy disclosure decision.
type Patient struct {
	ID       string `json:"id"`
	ClinicID string `json:"clinic_id"`
	PublicID string `json:"public_id"`

	FullName  *string `json:"full_name,omitempty"`
	Gender    string  `json:"gender,omitempty"`
	BirthDate string  `json:"birth_date,omitempty"` // ISO date (YYYY-MM-DD)
	Notes     string  `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Session is a clinical session. PatientID must reference a patient in the
// same clinic; a cross-clinic reference is a validation error.
type Session struct {
	ID        string `json:"id"`
	ClinicID  string `json:"clinic_id"`
	PatientID string `json:"patient_id"`
	CreatedBy string `json:"created_by"`

	SessionDate string        `json:"session_date"` // ISO date (YYYY-MM-DD)
	SessionType SessionType   `json:"session_type"`
	Mode        SessionMode   `json:"mode"`
	Status      SessionStatus `json:"status"`

	// ScheduledDuration is the planned length in minutes, if scheduled.
	ScheduledDuration *int `json:"scheduled_duration,omitempty"`

	MainComplaint *string `json:"main_complaint,omitempty"`
	Hypotheses    *string `json:"hypotheses,omitempty"`
	Interventions *string `json:"interventions,omitempty"`
	Observations  *string `json:"observations,omitempty"`

	AISuggestions *string `json:"ai_suggestions,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionAttachment is a file attached to a session. Deleting the session
// removes its attachments (enforced inside the store, not left to callers).
type SessionAttachment struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`

	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
	// PayloadRef locates the stored file content (content-addressed path or
	// blob key). The store does not interpret it.
	PayloadRef string `json:"payload_ref"`

	UploadedAt time.Time `json:"uploaded_at"`
}

// SessionHistory is one append-only audit row for a session mutation.
//
// FieldName, OldValue and NewValue are nil for created/deleted rows. Seq is
// a monotonic logical sequence assigned under the per-record mutation lock;
// it breaks ChangedAt ties so the displayed trail always matches the order
// mutations were applied.
type SessionHistory struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	ClinicID  string `json:"clinic_id"`

	ChangedBy  string     `json:"changed_by"`
	ChangeType ChangeType `json:"change_type"`
	FieldName  *string    `json:"field_name,omitempty"`
	OldValue   *string    `json:"old_value,omitempty"`
	NewValue   *string    `json:"new_value,omitempty"`

	ChangedAt time.Time `json:"changed_at"`
	Seq       int64     `json:"seq"`
}

// SystemActor is the attribution recorded on history rows when no
// authenticated actor is available (system-initiated flows). Callers pass an
// empty actor and the recorder substitutes this sentinel; nothing else may
// write the literal value directly.
const SystemActor = "sistema"

// ClinicUpdate carries a partial clinic update. Nil fields are left
// untouched.
type ClinicUpdate struct {
	Name *string
	Logo []byte
}

// PatientUpdate carries a partial patient update. Nil fields are left
// untouched. PublicID is intentionally absent: it is immutable.
type PatientUpdate struct {
	FullName  *string
	Gender    *string
	BirthDate *string
	Notes     *string
}

// SessionUpdate carries a partial session update. Nil fields are left
// untouched.
type SessionUpdate struct {
	SessionDate       *string
	SessionType       *SessionType
	Mode              *SessionMode
	Status            *SessionStatus
	ScheduledDuration *int
	MainComplaint     *string
	Hypotheses        *string
	Interventions     *string
	Observations      *string
	AISuggestions     *string
}
