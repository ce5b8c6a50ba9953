package store

import (
	"context"
	"database/sql"

	"github.com/psiclin/psiclin/internal/model"
)

// AppendHistory inserts one audit row. No update or delete method exists for
// session_history anywhere in this package: the trail is append-only by
// construction.
func (s *Store) AppendHistory(ctx context.Context, h model.SessionHistory) (model.SessionHistory, error) {
	if h.ID == "" {
		h.ID = model.NewID()
	}
	err := s.inTx(ctx, "append history", func(tx *sql.Tx) error {
		return appendHistoryTx(ctx, tx, []model.SessionHistory{h})
	})
	if err != nil {
		return model.SessionHistory{}, err
	}
	return h, nil
}

// appendHistoryTx writes audit rows inside an existing transaction so
// session mutations and their trail commit atomically.
func appendHistoryTx(ctx context.Context, tx *sql.Tx, rows []model.SessionHistory) error {
	for i := range rows {
		h := rows[i]
		if h.ID == "" {
			h.ID = model.NewID()
		}
		if !h.ChangeType.Valid() {
			return model.NewValidation("invalid change_type " + string(h.ChangeType))
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO session_history
			(id, session_id, clinic_id, changed_by, change_type, field_name, old_value, new_value, changed_at, seq)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			h.ID, h.SessionID, h.ClinicID, h.ChangedBy, string(h.ChangeType),
			nullStr(h.FieldName), nullStr(h.OldValue), nullStr(h.NewValue),
			fmtTime(h.ChangedAt), h.Seq,
		)
		if err != nil {
			return storageErr("append history", err)
		}
	}
	return nil
}

// ListHistoryBySession returns the session's audit rows for display, newest
// first: changed_at DESC with seq breaking same-timestamp ties in favor of
// the later mutation.
func (s *Store) ListHistoryBySession(ctx context.Context, sessionID string) ([]model.SessionHistory, error) {
	return s.listHistory(ctx, `
		SELECT id, session_id, clinic_id, changed_by, change_type, field_name, old_value, new_value, changed_at, seq
		FROM session_history
		WHERE session_id = ?
		ORDER BY changed_at DESC, seq DESC
	`, sessionID)
}

// ListHistoryByClinic returns every audit row in the clinic partition,
// oldest first (export order).
func (s *Store) ListHistoryByClinic(ctx context.Context, clinicID string) ([]model.SessionHistory, error) {
	return s.listHistory(ctx, `
		SELECT id, session_id, clinic_id, changed_by, change_type, field_name, old_value, new_value, changed_at, seq
		FROM session_history
		WHERE clinic_id = ?
		ORDER BY seq ASC, id ASC
	`, clinicID)
}

func (s *Store) listHistory(ctx context.Context, query string, arg string) ([]model.SessionHistory, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, storageErr("list history", err)
	}
	defer rows.Close()

	entries := []model.SessionHistory{}
	for rows.Next() {
		var (
			h                             model.SessionHistory
			changeType                    string
			fieldName, oldValue, newValue sql.NullString
			changedAt                     string
		)
		if err := rows.Scan(
			&h.ID, &h.SessionID, &h.ClinicID, &h.ChangedBy, &changeType,
			&fieldName, &oldValue, &newValue, &changedAt, &h.Seq,
		); err != nil {
			return nil, storageErr("scan history", err)
		}
		h.ChangeType = model.ChangeType(changeType)
		h.FieldName = strPtr(fieldName)
		h.OldValue = strPtr(oldValue)
		h.NewValue = strPtr(newValue)
		if h.ChangedAt, err = parseTime(changedAt); err != nil {
			return nil, storageErr("scan history", err)
		}
		entries = append(entries, h)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate history", err)
	}
	return entries, nil
}

// MaxHistorySeq returns the highest seq recorded across all history rows.
// The records service seeds its logical clock from this on startup so seq
// stays monotonic across process restarts.
func (s *Store) MaxHistorySeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM session_history`).Scan(&seq)
	if err != nil {
		return 0, storageErr("max history seq", err)
	}
	return seq.Int64, nil
}
