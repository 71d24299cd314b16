package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stemlabtz/stemquote/internal/models"
	"github.com/stemlabtz/stemquote/internal/storage"
)

// CreateSession persists a session and its ordered activity links in one
// transaction.
func (s *SQLiteStore) CreateSession(ctx context.Context, sess *models.Session) error {
	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	if sess.CreatedAt == 0 {
		sess.CreatedAt = time.Now().Unix()
	}
	if sess.Status == "" {
		sess.Status = models.SessionDraft
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, name, client_name, client_contact, student_count, margin_pct, status, notes, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Name, nullStr(sess.ClientName), nullStr(sess.ClientContact),
		sess.StudentCount, sess.MarginPct, sess.Status, nullStr(sess.Notes),
		nullStr(sess.CreatedBy), sess.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	if err := insertSessionActivities(ctx, tx, sess.ID, sess.ActivityIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func insertSessionActivities(ctx context.Context, tx *sql.Tx, sessionID string, activityIDs []string) error {
	for i, aid := range activityIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO session_activities (session_id, activity_id, sort_order) VALUES (?, ?, ?)`,
			sessionID, aid, i)
		if err != nil {
			return fmt.Errorf("insert session activity: %w", err)
		}
	}
	return nil
}

const sessionColumns = `s.id, s.name, s.client_name, s.client_contact, s.student_count, s.margin_pct,
	s.status, s.notes, s.rejection_note, s.created_by, COALESCE(u.name, ''), s.approved_by, s.approved_at, s.created_at`

func scanSession(rows interface{ Scan(...any) error }) (*models.Session, error) {
	var (
		sess                                               models.Session
		clientName, clientContact, notes, rejection        sql.NullString
		createdBy, approvedBy                              sql.NullString
		approvedAt                                         sql.NullInt64
	)
	err := rows.Scan(&sess.ID, &sess.Name, &clientName, &clientContact, &sess.StudentCount,
		&sess.MarginPct, &sess.Status, &notes, &rejection, &createdBy, &sess.CreatedByName,
		&approvedBy, &approvedAt, &sess.CreatedAt)
	if err != nil {
		return nil, err
	}
	sess.ClientName = clientName.String
	sess.ClientContact = clientContact.String
	sess.Notes = notes.String
	sess.RejectionNote = rejection.String
	sess.CreatedBy = createdBy.String
	sess.ApprovedBy = approvedBy.String
	sess.ApprovedAt = approvedAt.Int64
	return &sess, nil
}

// GetSession retrieves a session with its ordered activity IDs.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	sess, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions s
		 LEFT JOIN users u ON u.id = s.created_by
		 WHERE s.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT activity_id FROM session_activities WHERE session_id = ? ORDER BY sort_order`, id)
	if err != nil {
		return nil, fmt.Errorf("get session activities: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var aid string
		if err := rows.Scan(&aid); err != nil {
			return nil, fmt.Errorf("scan session activity: %w", err)
		}
		sess.ActivityIDs = append(sess.ActivityIDs, aid)
	}
	return sess, rows.Err()
}

// ListSessions returns sessions newest first, optionally filtered by owner
// and status.
func (s *SQLiteStore) ListSessions(ctx context.Context, f storage.SessionFilter) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions s
	          LEFT JOIN users u ON u.id = s.created_by WHERE 1=1`
	var args []any
	if f.CreatedBy != "" {
		query += ` AND s.created_by = ?`
		args = append(args, f.CreatedBy)
	}
	if f.Status != "" {
		query += ` AND s.status = ?`
		args = append(args, f.Status)
	}
	query += ` ORDER BY s.created_at DESC`

	return s.querySessions(ctx, query, args...)
}

func (s *SQLiteStore) querySessions(ctx context.Context, query string, args ...any) ([]models.Session, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

// UpdateSession updates the editable fields and, when replaceActivities is
// set, swaps the ordered activity links atomically.
func (s *SQLiteStore) UpdateSession(ctx context.Context, sess *models.Session, replaceActivities bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET name = ?, client_name = ?, client_contact = ?, student_count = ?,
		 margin_pct = ?, notes = ? WHERE id = ?`,
		sess.Name, nullStr(sess.ClientName), nullStr(sess.ClientContact),
		sess.StudentCount, sess.MarginPct, nullStr(sess.Notes), sess.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if err := requireRowChange(res); err != nil {
		return err
	}

	if replaceActivities {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM session_activities WHERE session_id = ?`, sess.ID); err != nil {
			return fmt.Errorf("clear session activities: %w", err)
		}
		if err := insertSessionActivities(ctx, tx, sess.ID, sess.ActivityIDs); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// UpdateSessionStatus moves a session through the workflow. The rejection
// note is stored on reject, approval audit fields on approve.
func (s *SQLiteStore) UpdateSessionStatus(ctx context.Context, id, status, rejectionNote, approvedBy string) error {
	var (
		res sql.Result
		err error
	)
	switch status {
	case models.SessionApproved:
		res, err = s.db.ExecContext(ctx,
			`UPDATE sessions SET status = ?, approved_by = ?, approved_at = ?, rejection_note = NULL WHERE id = ?`,
			status, approvedBy, time.Now().Unix(), id)
	case models.SessionRejected:
		res, err = s.db.ExecContext(ctx,
			`UPDATE sessions SET status = ?, rejection_note = ? WHERE id = ?`,
			status, nullStr(rejectionNote), id)
	default:
		res, err = s.db.ExecContext(ctx,
			`UPDATE sessions SET status = ? WHERE id = ?`, status, id)
	}
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	return requireRowChange(res)
}

// DeleteSession removes a session; activity links and invoices cascade.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return requireRowChange(res)
}

// SessionActivities returns the session's activity tree in stored order:
// activities by session sort order, usage lines by their own sort order.
// This ordering feeds the pricing engine and is preserved in its output.
func (s *SQLiteStore) SessionActivities(ctx context.Context, sessionID string) ([]models.Activity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.name FROM session_activities sa
		 JOIN activities a ON a.id = sa.activity_id
		 WHERE sa.session_id = ?
		 ORDER BY sa.sort_order`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session activities: %w", err)
	}
	defer rows.Close()

	var activities []models.Activity
	for rows.Next() {
		var a models.Activity
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, fmt.Errorf("scan session activity: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range activities {
		materials, err := s.activityMaterials(ctx, activities[i].ID)
		if err != nil {
			return nil, err
		}
		activities[i].Materials = materials
	}
	return activities, nil
}

// ListPendingSessions returns sessions awaiting an admin decision, oldest
// first so the queue is worked in submission order.
func (s *SQLiteStore) ListPendingSessions(ctx context.Context) ([]models.Session, error) {
	return s.querySessions(ctx,
		`SELECT `+sessionColumns+` FROM sessions s
		 LEFT JOIN users u ON u.id = s.created_by
		 WHERE s.status = 'pending' ORDER BY s.created_at ASC`)
}
