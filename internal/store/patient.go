package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/psiclin/psiclin/internal/model"
)

// CreatePatient inserts a patient, generating its id and timestamps.
//
// public_id must be unique within the clinic; a duplicate surfaces as a
// ValidationError, not a storage failure.
func (s *Store) CreatePatient(ctx context.Context, p model.Patient) (model.Patient, error) {
	if p.ClinicID == "" {
		return model.Patient{}, model.NewValidation("patient clinic_id is required")
	}
	if p.PublicID == "" {
		return model.Patient{}, model.NewValidation("patient public_id is required")
	}
	if p.ID == "" {
		p.ID = model.NewID()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO patients
		(id, clinic_id, public_id, full_name, gender, birth_date, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID, p.ClinicID, p.PublicID, nullStr(p.FullName),
		p.Gender, p.BirthDate, p.Notes,
		fmtTime(p.CreatedAt), fmtTime(p.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Patient{}, model.NewValidation(
				"public_id " + p.PublicID + " already exists in clinic " + p.ClinicID)
		}
		return model.Patient{}, storageErr("create patient", err)
	}
	return p, nil
}

// GetPatient retrieves a patient by id.
func (s *Store) GetPatient(ctx context.Context, id string) (model.Patient, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, clinic_id, public_id, full_name, gender, birth_date, notes, created_at, updated_at
		FROM patients WHERE id = ?
	`, id)
	return scanPatient(row, id)
}

// ListPatients returns every patient belonging to the clinic, ordered by id.
// The clinic_id filter is the isolation boundary: rows from other clinics in
// the same file are never returned. Callers wanting name ordering collate on
// top of this deterministic base order.
func (s *Store) ListPatients(ctx context.Context, clinicID string) ([]model.Patient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, clinic_id, public_id, full_name, gender, birth_date, notes, created_at, updated_at
		FROM patients
		WHERE clinic_id = ?
		ORDER BY id ASC
	`, clinicID)
	if err != nil {
		return nil, storageErr("list patients", err)
	}
	defer rows.Close()

	patients := []model.Patient{}
	for rows.Next() {
		p, err := scanPatient(rows, "")
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate patients", err)
	}
	return patients, nil
}

// UpdatePatient applies a partial update inside a transaction. public_id and
// clinic_id are immutable; the update type cannot express changing them.
func (s *Store) UpdatePatient(ctx context.Context, id string, u model.PatientUpdate) (model.Patient, error) {
	var updated model.Patient
	err := s.inTx(ctx, "update patient", func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			SELECT id, clinic_id, public_id, full_name, gender, birth_date, notes, created_at, updated_at
			FROM patients WHERE id = ?
		`, id)
		current, err := scanPatient(row, id)
		if err != nil {
			return err
		}

		if u.FullName != nil {
			name := *u.FullName
			if name == "" {
				current.FullName = nil
			} else {
				current.FullName = &name
			}
		}
		if u.Gender != nil {
			current.Gender = *u.Gender
		}
		if u.BirthDate != nil {
			current.BirthDate = *u.BirthDate
		}
		if u.Notes != nil {
			current.Notes = *u.Notes
		}
		current.UpdatedAt = time.Now().UTC()

		_, err = tx.ExecContext(ctx, `
			UPDATE patients
			SET full_name = ?, gender = ?, birth_date = ?, notes = ?, updated_at = ?
			WHERE id = ?
		`,
			nullStr(current.FullName), current.Gender, current.BirthDate,
			current.Notes, fmtTime(current.UpdatedAt), id,
		)
		if err != nil {
			return storageErr("update patient", err)
		}
		updated = current
		return nil
	})
	if err != nil {
		return model.Patient{}, err
	}
	return updated, nil
}

// DeletePatient removes a patient. Sessions and attachments cascade via
// foreign keys; history rows survive.
func (s *Store) DeletePatient(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM patients WHERE id = ?`, id)
	if err != nil {
		return storageErr("delete patient", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("delete patient: rows affected", err)
	}
	if n == 0 {
		return model.NewNotFound("patient", id)
	}
	return nil
}

func scanPatient(row rowScanner, id string) (model.Patient, error) {
	var (
		p                    model.Patient
		fullName             sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(
		&p.ID, &p.ClinicID, &p.PublicID, &fullName,
		&p.Gender, &p.BirthDate, &p.Notes, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Patient{}, model.NewNotFound("patient", id)
	}
	if err != nil {
		return model.Patient{}, storageErr("scan patient", err)
	}
	p.FullName = strPtr(fullName)
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Patient{}, storageErr("scan patient", err)
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.Patient{}, storageErr("scan patient", err)
	}
	return p, nil
}

// isUniqueViolation detects a SQLite unique-constraint failure without
// importing driver error types into every call site.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
