package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/psiclin/psiclin/internal/model"
)

// ExportClinic serializes one clinic's entire partition into an archive.
// The archive carries the store's schema version so a later import can gate
// on compatibility.
func (s *Store) ExportClinic(ctx context.Context, clinicID string) (model.ClinicArchive, error) {
	clinic, err := s.GetClinic(ctx, clinicID)
	if err != nil {
		return model.ClinicArchive{}, err
	}

	version, err := s.SchemaVersion(ctx)
	if err != nil {
		return model.ClinicArchive{}, err
	}

	patients, err := s.ListPatients(ctx, clinicID)
	if err != nil {
		return model.ClinicArchive{}, err
	}

	sessions, err := s.listSessions(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE clinic_id = ?
		ORDER BY id ASC
	`, clinicID)
	if err != nil {
		return model.ClinicArchive{}, err
	}

	attachments := []model.SessionAttachment{}
	for _, sess := range sessions {
		atts, err := s.ListAttachmentsBySession(ctx, sess.ID)
		if err != nil {
			return model.ClinicArchive{}, err
		}
		attachments = append(attachments, atts...)
	}

	history, err := s.ListHistoryByClinic(ctx, clinicID)
	if err != nil {
		return model.ClinicArchive{}, err
	}

	return model.ClinicArchive{
		SchemaVersion: version,
		ExportedAt:    time.Now().UTC(),
		Clinic:        clinic,
		Patients:      patients,
		Sessions:      sessions,
		Attachments:   attachments,
		History:       history,
	}, nil
}

// ImportClinic atomically replaces the archived clinic's partition. Any
// existing rows for that clinic id are removed and the archive's contents
// inserted, all inside one transaction; on failure the prior partition
// remains untouched.
//
// The archive's schema version must match the store's. Older or newer
// archives are rejected: migration happens through the application, not on
// the import path.
func (s *Store) ImportClinic(ctx context.Context, archive model.ClinicArchive) error {
	version, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if archive.SchemaVersion != version {
		return model.NewValidation(fmt.Sprintf(
			"archive schema version %d does not match store version %d",
			archive.SchemaVersion, version))
	}
	if archive.Clinic.ID == "" {
		return model.NewValidation("archive clinic id is required")
	}

	return s.inTx(ctx, "import clinic", func(tx *sql.Tx) error {
		// Drop the existing partition. The clinic row cascades to patients,
		// sessions and attachments; history carries no foreign key and is
		// removed explicitly.
		clinicID := archive.Clinic.ID
		if _, err := tx.ExecContext(ctx, `DELETE FROM clinics WHERE id = ?`, clinicID); err != nil {
			return storageErr("import: clear clinic", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM session_history WHERE clinic_id = ?`, clinicID); err != nil {
			return storageErr("import: clear history", err)
		}

		c := archive.Clinic
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO clinics (id, name, logo, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`, c.ID, c.Name, c.Logo, fmtTime(c.CreatedAt), fmtTime(c.UpdatedAt)); err != nil {
			return storageErr("import: insert clinic", err)
		}

		for _, p := range archive.Patients {
			if p.ClinicID != clinicID {
				return model.NewValidation("archive patient " + p.ID + " belongs to another clinic")
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO patients
				(id, clinic_id, public_id, full_name, gender, birth_date, notes, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				p.ID, p.ClinicID, p.PublicID, nullStr(p.FullName),
				p.Gender, p.BirthDate, p.Notes,
				fmtTime(p.CreatedAt), fmtTime(p.UpdatedAt),
			); err != nil {
				return storageErr("import: insert patient", err)
			}
		}

		for _, sess := range archive.Sessions {
			if sess.ClinicID != clinicID {
				return model.NewValidation("archive session " + sess.ID + " belongs to another clinic")
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO sessions (`+sessionColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				sess.ID, sess.ClinicID, sess.PatientID, sess.CreatedBy,
				sess.SessionDate, string(sess.SessionType), string(sess.Mode), string(sess.Status),
				nullInt(sess.ScheduledDuration),
				nullStr(sess.MainComplaint), nullStr(sess.Hypotheses),
				nullStr(sess.Interventions), nullStr(sess.Observations),
				nullStr(sess.AISuggestions),
				fmtTime(sess.CreatedAt), fmtTime(sess.UpdatedAt),
			); err != nil {
				return storageErr("import: insert session", err)
			}
		}

		for _, a := range archive.Attachments {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO session_attachments (id, session_id, file_name, file_size, payload_ref, uploaded_at)
				VALUES (?, ?, ?, ?, ?, ?)
			`, a.ID, a.SessionID, a.FileName, a.FileSize, a.PayloadRef, fmtTime(a.UploadedAt)); err != nil {
				return storageErr("import: insert attachment", err)
			}
		}

		return appendHistoryTx(ctx, tx, archive.History)
	})
}
