package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stemlabtz/stemquote/internal/models"
	"github.com/stemlabtz/stemquote/internal/storage"
)

// CreateInvoice persists a new invoice. The sequence and invoice number are
// computed inside the insert itself, so concurrent issuing cannot hand out
// the same number. The UNIQUE constraint on session_id guarantees at most
// one invoice per session.
func (s *SQLiteStore) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	if inv.IssuedAt == 0 {
		inv.IssuedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO invoices (id, session_id, seq, invoice_number, issued_by, issued_at)
		 SELECT ?, ?, COALESCE(MAX(seq), 0) + 1,
		        printf('STEM-%d-%04d', ?, COALESCE(MAX(seq), 0) + 1), ?, ?
		 FROM invoices`,
		inv.ID, inv.SessionID, time.Unix(inv.IssuedAt, 0).Year(), nullStr(inv.IssuedBy), inv.IssuedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return fmt.Errorf("invoice already exists for session %s: %w", inv.SessionID, err)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT invoice_number FROM invoices WHERE id = ?`, inv.ID,
	).Scan(&inv.InvoiceNumber)
	if err != nil {
		return fmt.Errorf("read invoice number: %w", err)
	}
	return nil
}

// GetInvoiceBySession retrieves the invoice issued for a session, if any.
func (s *SQLiteStore) GetInvoiceBySession(ctx context.Context, sessionID string) (*models.Invoice, error) {
	var (
		inv      models.Invoice
		issuedBy sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT iv.id, iv.session_id, iv.invoice_number, iv.issued_by, COALESCE(u.name, ''), iv.issued_at
		 FROM invoices iv
		 LEFT JOIN users u ON u.id = iv.issued_by
		 WHERE iv.session_id = ?`,
		sessionID,
	).Scan(&inv.ID, &inv.SessionID, &inv.InvoiceNumber, &issuedBy, &inv.IssuedByName, &inv.IssuedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	inv.IssuedBy = issuedBy.String
	return &inv, nil
}

// NextInvoiceSequence returns the next value of the monotonically growing
// invoice counter.
func (s *SQLiteStore) NextInvoiceSequence(ctx context.Context) (int, error) {
	var seq int
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM invoices`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next invoice sequence: %w", err)
	}
	return seq, nil
}
