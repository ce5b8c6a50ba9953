package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/psiclin/psiclin/internal/model"
)

const sessionColumns = `
	id, clinic_id, patient_id, created_by, session_date, session_type, mode,
	status, scheduled_duration, main_complaint, hypotheses, interventions,
	observations, ai_suggestions, created_at, updated_at`

// CreateSession inserts a session and its audit rows in one transaction.
// The session and its "created" history row land together or not at all.
//
// The patient must belong to the session's clinic; a cross-clinic reference
// is a ValidationError.
func (s *Store) CreateSession(ctx context.Context, sess model.Session, history []model.SessionHistory) (model.Session, error) {
	if err := model.ValidateSession(&sess); err != nil {
		return model.Session{}, err
	}
	if sess.ID == "" {
		sess.ID = model.NewID()
	}
	now := time.Now().UTC()
	sess.CreatedAt = now
	sess.UpdatedAt = now

	err := s.inTx(ctx, "create session", func(tx *sql.Tx) error {
		// Co-residence check: the patient row must exist in this clinic.
		var patientClinic string
		err := tx.QueryRowContext(ctx,
			`SELECT clinic_id FROM patients WHERE id = ?`, sess.PatientID,
		).Scan(&patientClinic)
		if errors.Is(err, sql.ErrNoRows) {
			return model.NewNotFound("patient", sess.PatientID)
		}
		if err != nil {
			return storageErr("create session: resolve patient", err)
		}
		if patientClinic != sess.ClinicID {
			return model.NewValidation(
				"patient " + sess.PatientID + " does not belong to clinic " + sess.ClinicID)
		}

		_, err = tx.ExecContext(ctx, `
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
		)
		if err != nil {
			return storageErr("create session", err)
		}

		return appendHistoryTx(ctx, tx, history)
	})
	if err != nil {
		return model.Session{}, err
	}
	return sess, nil
}

// GetSession retrieves a session by id.
func (s *Store) GetSession(ctx context.Context, id string) (model.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	return scanSession(row, id)
}

// ListSessionsByClinic returns the clinic's sessions, newest session_date
// first, ties broken by id descending (UUIDv7, so later-created first).
func (s *Store) ListSessionsByClinic(ctx context.Context, clinicID string) ([]model.Session, error) {
	return s.listSessions(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE clinic_id = ?
		ORDER BY session_date DESC, id DESC
	`, clinicID)
}

// ListSessionsByPatient returns the patient's sessions, newest session_date
// first, ties broken by id descending.
func (s *Store) ListSessionsByPatient(ctx context.Context, patientID string) ([]model.Session, error) {
	return s.listSessions(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE patient_id = ?
		ORDER BY session_date DESC, id DESC
	`, patientID)
}

func (s *Store) listSessions(ctx context.Context, query string, arg string) ([]model.Session, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, storageErr("list sessions", err)
	}
	defer rows.Close()

	sessions := []model.Session{}
	for rows.Next() {
		sess, err := scanSession(rows, "")
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate sessions", err)
	}
	return sessions, nil
}

// UpdateSession applies a partial update and appends the supplied audit rows
// in one transaction. The merge runs read-modify-write against the stored
// row; a failure at any point rolls the whole change back.
//
// Status moves out of a terminal state are rejected with a ValidationError.
func (s *Store) UpdateSession(ctx context.Context, id string, u model.SessionUpdate, history []model.SessionHistory) (model.Session, error) {
	var updated model.Session
	err := s.inTx(ctx, "update session", func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
		current, err := scanSession(row, id)
		if err != nil {
			return err
		}

		merged, err := model.MergeSession(current, u)
		if err != nil {
			return err
		}
		merged.UpdatedAt = time.Now().UTC()

		_, err = tx.ExecContext(ctx, `
			UPDATE sessions SET
				session_date = ?, session_type = ?, mode = ?, status = ?,
				scheduled_duration = ?, main_complaint = ?, hypotheses = ?,
				interventions = ?, observations = ?, ai_suggestions = ?,
				updated_at = ?
			WHERE id = ?
		`,
			merged.SessionDate, string(merged.SessionType), string(merged.Mode), string(merged.Status),
			nullInt(merged.ScheduledDuration),
			nullStr(merged.MainComplaint), nullStr(merged.Hypotheses),
			nullStr(merged.Interventions), nullStr(merged.Observations),
			nullStr(merged.AISuggestions),
			fmtTime(merged.UpdatedAt), id,
		)
		if err != nil {
			return storageErr("update session", err)
		}

		if err := appendHistoryTx(ctx, tx, history); err != nil {
			return err
		}
		updated = merged
		return nil
	})
	if err != nil {
		return model.Session{}, err
	}
	return updated, nil
}

// DeleteSession removes a session, its attachments, and appends the supplied
// audit rows, all in one transaction. The attachment cascade is enforced
// here (and by ON DELETE CASCADE in the schema) rather than left to callers.
// History rows for the session are retained: the trail outlives the record.
func (s *Store) DeleteSession(ctx context.Context, id string, history []model.SessionHistory) error {
	return s.inTx(ctx, "delete session", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM session_attachments WHERE session_id = ?`, id); err != nil {
			return storageErr("delete session attachments", err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
		if err != nil {
			return storageErr("delete session", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return storageErr("delete session: rows affected", err)
		}
		if n == 0 {
			return model.NewNotFound("session", id)
		}

		return appendHistoryTx(ctx, tx, history)
	})
}

func scanSession(row rowScanner, id string) (model.Session, error) {
	var (
		sess                                    model.Session
		sessionType, mode, status               string
		scheduledDuration                       sql.NullInt64
		complaint, hypotheses, interventions    sql.NullString
		observations, aiSuggestions             sql.NullString
		createdAt, updatedAt                    string
	)
	err := row.Scan(
		&sess.ID, &sess.ClinicID, &sess.PatientID, &sess.CreatedBy,
		&sess.SessionDate, &sessionType, &mode, &status,
		&scheduledDuration, &complaint, &hypotheses, &interventions,
		&observations, &aiSuggestions, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, model.NewNotFound("session", id)
	}
	if err != nil {
		return model.Session{}, storageErr("scan session", err)
	}

	sess.SessionType = model.SessionType(sessionType)
	sess.Mode = model.SessionMode(mode)
	sess.Status = model.SessionStatus(status)
	sess.ScheduledDuration = intPtr(scheduledDuration)
	sess.MainComplaint = strPtr(complaint)
	sess.Hypotheses = strPtr(hypotheses)
	sess.Interventions = strPtr(interventions)
	sess.Observations = strPtr(observations)
	sess.AISuggestions = strPtr(aiSuggestions)
	if sess.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Session{}, storageErr("scan session", err)
	}
	if sess.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.Session{}, storageErr("scan session", err)
	}
	return sess, nil
}
