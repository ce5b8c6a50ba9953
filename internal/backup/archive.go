package backup

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/psiclin/psiclin/internal/model"
)

//go:embed schema.cue
var schemaCUE string

// Encode serializes an archive to canonical JSON. Identical archives always
// produce identical bytes.
func Encode(a model.ClinicArchive) ([]byte, error) {
	return model.MarshalCanonical(archiveMap(a))
}

// Decode validates archive bytes against the embedded CUE schema, then
// parses them. Schema violations come back as ValidationErrors naming the
// offending fields; the store is never touched by a file that fails here.
func Decode(data []byte) (model.ClinicArchive, error) {
	if err := validateSchema(data); err != nil {
		return model.ClinicArchive{}, err
	}

	var a model.ClinicArchive
	if err := json.Unmarshal(data, &a); err != nil {
		return model.ClinicArchive{}, model.NewValidation(fmt.Sprintf("malformed archive: %v", err))
	}
	return a, nil
}

// WriteFile encodes the archive and writes it to path.
func WriteFile(path string, a model.ClinicArchive) error {
	data, err := Encode(a)
	if err != nil {
		return fmt.Errorf("encode archive: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	return nil
}

// ReadFile reads and decodes an archive file.
func ReadFile(path string) (model.ClinicArchive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.ClinicArchive{}, fmt.Errorf("read archive: %w", err)
	}
	return Decode(data)
}

// validateSchema unifies the raw JSON with the #Archive definition.
func validateSchema(data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile archive schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Archive"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("lookup archive schema: %w", err)
	}

	expr, err := cuejson.Extract("archive.json", data)
	if err != nil {
		return model.NewValidation(fmt.Sprintf("archive is not valid JSON: %v", err))
	}
	val := ctx.BuildExpr(expr)
	if err := val.Err(); err != nil {
		return model.NewValidation(fmt.Sprintf("archive is not valid JSON: %v", err))
	}

	unified := def.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return model.NewValidation("archive schema violation: " + cueerrors.Details(err, nil))
	}
	return nil
}

// archiveMap lays the archive out with every field present - optional ones
// as explicit null - so output shape never varies with content.
func archiveMap(a model.ClinicArchive) map[string]any {
	patients := make([]any, len(a.Patients))
	for i, p := range a.Patients {
		patients[i] = patientMap(p)
	}
	sessions := make([]any, len(a.Sessions))
	for i, s := range a.Sessions {
		sessions[i] = sessionMap(s)
	}
	attachments := make([]any, len(a.Attachments))
	for i, att := range a.Attachments {
		attachments[i] = attachmentMap(att)
	}
	history := make([]any, len(a.History))
	for i, h := range a.History {
		history[i] = historyMap(h)
	}

	return map[string]any{
		"schema_version": a.SchemaVersion,
		"exported_at":    a.ExportedAt,
		"clinic":         clinicMap(a.Clinic),
		"patients":       patients,
		"sessions":       sessions,
		"attachments":    attachments,
		"history":        history,
	}
}

func clinicMap(c model.Clinic) map[string]any {
	var logo any
	if c.Logo != nil {
		logo = c.Logo
	}
	return map[string]any{
		"id":         c.ID,
		"name":       c.Name,
		"logo":       logo,
		"created_at": c.CreatedAt,
		"updated_at": c.UpdatedAt,
	}
}

func patientMap(p model.Patient) map[string]any {
	return map[string]any{
		"id":         p.ID,
		"clinic_id":  p.ClinicID,
		"public_id":  p.PublicID,
		"full_name":  p.FullName,
		"gender":     p.Gender,
		"birth_date": p.BirthDate,
		"notes":      p.Notes,
		"created_at": p.CreatedAt,
		"updated_at": p.UpdatedAt,
	}
}

func sessionMap(s model.Session) map[string]any {
	return map[string]any{
		"id":                 s.ID,
		"clinic_id":          s.ClinicID,
		"patient_id":         s.PatientID,
		"created_by":         s.CreatedBy,
		"session_date":       s.SessionDate,
		"session_type":       string(s.SessionType),
		"mode":               string(s.Mode),
		"status":             string(s.Status),
		"scheduled_duration": s.ScheduledDuration,
		"main_complaint":     s.MainComplaint,
		"hypotheses":         s.Hypotheses,
		"interventions":      s.Interventions,
		"observations":       s.Observations,
		"ai_suggestions":     s.AISuggestions,
		"created_at":         s.CreatedAt,
		"updated_at":         s.UpdatedAt,
	}
}

func attachmentMap(a model.SessionAttachment) map[string]any {
	return map[string]any{
		"id":          a.ID,
		"session_id":  a.SessionID,
		"file_name":   a.FileName,
		"file_size":   a.FileSize,
		"payload_ref": a.PayloadRef,
		"uploaded_at": a.UploadedAt,
	}
}

func historyMap(h model.SessionHistory) map[string]any {
	return map[string]any{
		"id":          h.ID,
		"session_id":  h.SessionID,
		"clinic_id":   h.ClinicID,
		"changed_by":  h.ChangedBy,
		"change_type": string(h.ChangeType),
		"field_name":  h.FieldName,
		"old_value":   h.OldValue,
		"new_value":   h.NewValue,
		"changed_at":  h.ChangedAt,
		"seq":         h.Seq,
	}
}
