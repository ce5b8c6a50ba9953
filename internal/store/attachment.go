package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/psiclin/psiclin/internal/model"
)

// CreateAttachment inserts an attachment for an existing session.
func (s *Store) CreateAttachment(ctx context.Context, a model.SessionAttachment) (model.SessionAttachment, error) {
	if a.SessionID == "" {
		return model.SessionAttachment{}, model.NewValidation("attachment session_id is required")
	}
	if a.FileName == "" {
		return model.SessionAttachment{}, model.NewValidation("attachment file_name is required")
	}
	if a.ID == "" {
		a.ID = model.NewID()
	}
	if a.UploadedAt.IsZero() {
		a.UploadedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_attachments (id, session_id, file_name, file_size, payload_ref, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.SessionID, a.FileName, a.FileSize, a.PayloadRef, fmtTime(a.UploadedAt))
	if err != nil {
		// FK failure means the session is gone
		if isForeignKeyViolation(err) {
			return model.SessionAttachment{}, model.NewNotFound("session", a.SessionID)
		}
		return model.SessionAttachment{}, storageErr("create attachment", err)
	}
	return a, nil
}

// GetAttachment retrieves an attachment by id.
func (s *Store) GetAttachment(ctx context.Context, id string) (model.SessionAttachment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, file_name, file_size, payload_ref, uploaded_at
		FROM session_attachments WHERE id = ?
	`, id)
	return scanAttachment(row, id)
}

// ListAttachmentsBySession returns the session's attachments, newest upload
// first, ties broken by id descending.
func (s *Store) ListAttachmentsBySession(ctx context.Context, sessionID string) ([]model.SessionAttachment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, file_name, file_size, payload_ref, uploaded_at
		FROM session_attachments
		WHERE session_id = ?
		ORDER BY uploaded_at DESC, id DESC
	`, sessionID)
	if err != nil {
		return nil, storageErr("list attachments", err)
	}
	defer rows.Close()

	attachments := []model.SessionAttachment{}
	for rows.Next() {
		a, err := scanAttachment(rows, "")
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate attachments", err)
	}
	return attachments, nil
}

// DeleteAttachment removes a single attachment.
func (s *Store) DeleteAttachment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM session_attachments WHERE id = ?`, id)
	if err != nil {
		return storageErr("delete attachment", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("delete attachment: rows affected", err)
	}
	if n == 0 {
		return model.NewNotFound("attachment", id)
	}
	return nil
}

func scanAttachment(row rowScanner, id string) (model.SessionAttachment, error) {
	var (
		a          model.SessionAttachment
		uploadedAt string
	)
	err := row.Scan(&a.ID, &a.SessionID, &a.FileName, &a.FileSize, &a.PayloadRef, &uploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SessionAttachment{}, model.NewNotFound("attachment", id)
	}
	if err != nil {
		return model.SessionAttachment{}, storageErr("scan attachment", err)
	}
	if a.UploadedAt, err = parseTime(uploadedAt); err != nil {
		return model.SessionAttachment{}, storageErr("scan attachment", err)
	}
	return a, nil
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
