package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/psiclin/psiclin/internal/model"
)

// CreateClinic inserts a clinic, generating its id and timestamps.
func (s *Store) CreateClinic(ctx context.Context, c model.Clinic) (model.Clinic, error) {
	if c.Name == "" {
		return model.Clinic{}, model.NewValidation("clinic name is required")
	}
	if c.ID == "" {
		c.ID = model.NewID()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clinics (id, name, logo, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.ID, c.Name, c.Logo, fmtTime(c.CreatedAt), fmtTime(c.UpdatedAt))
	if err != nil {
		return model.Clinic{}, storageErr("create clinic", err)
	}
	return c, nil
}

// GetClinic retrieves a clinic by id.
func (s *Store) GetClinic(ctx context.Context, id string) (model.Clinic, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, logo, created_at, updated_at
		FROM clinics WHERE id = ?
	`, id)
	return scanClinic(row, id)
}

// ListClinics returns all clinics ordered by id.
func (s *Store) ListClinics(ctx context.Context) ([]model.Clinic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, logo, created_at, updated_at
		FROM clinics ORDER BY id ASC
	`)
	if err != nil {
		return nil, storageErr("list clinics", err)
	}
	defer rows.Close()

	clinics := []model.Clinic{}
	for rows.Next() {
		var (
			c                    model.Clinic
			createdAt, updatedAt string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Logo, &createdAt, &updatedAt); err != nil {
			return nil, storageErr("scan clinic", err)
		}
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, storageErr("scan clinic", err)
		}
		if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, storageErr("scan clinic", err)
		}
		clinics = append(clinics, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate clinics", err)
	}
	return clinics, nil
}

// UpdateClinic applies a partial update to a clinic inside a transaction.
func (s *Store) UpdateClinic(ctx context.Context, id string, u model.ClinicUpdate) (model.Clinic, error) {
	var updated model.Clinic
	err := s.inTx(ctx, "update clinic", func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			SELECT id, name, logo, created_at, updated_at
			FROM clinics WHERE id = ?
		`, id)
		current, err := scanClinic(row, id)
		if err != nil {
			return err
		}

		if u.Name != nil {
			current.Name = *u.Name
		}
		if u.Logo != nil {
			current.Logo = u.Logo
		}
		current.UpdatedAt = time.Now().UTC()

		_, err = tx.ExecContext(ctx, `
			UPDATE clinics SET name = ?, logo = ?, updated_at = ? WHERE id = ?
		`, current.Name, current.Logo, fmtTime(current.UpdatedAt), id)
		if err != nil {
			return storageErr("update clinic", err)
		}
		updated = current
		return nil
	})
	if err != nil {
		return model.Clinic{}, err
	}
	return updated, nil
}

// DeleteClinic removes a clinic and, via ON DELETE CASCADE, every patient,
// session and attachment it owns. History rows for the clinic are removed
// explicitly (they carry no foreign key).
func (s *Store) DeleteClinic(ctx context.Context, id string) error {
	return s.inTx(ctx, "delete clinic", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM clinics WHERE id = ?`, id)
		if err != nil {
			return storageErr("delete clinic", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return storageErr("delete clinic: rows affected", err)
		}
		if n == 0 {
			return model.NewNotFound("clinic", id)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM session_history WHERE clinic_id = ?`, id); err != nil {
			return storageErr("delete clinic history", err)
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClinic(row rowScanner, id string) (model.Clinic, error) {
	var (
		c                    model.Clinic
		createdAt, updatedAt string
	)
	err := row.Scan(&c.ID, &c.Name, &c.Logo, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Clinic{}, model.NewNotFound("clinic", id)
	}
	if err != nil {
		return model.Clinic{}, storageErr("scan clinic", err)
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Clinic{}, storageErr("scan clinic", err)
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.Clinic{}, storageErr("scan clinic", err)
	}
	return c, nil
}
