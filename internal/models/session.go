package models

// Session statuses. Drafts and rejected sessions are editable by their
// owner; pending sessions await an admin decision; approved sessions can
// be invoiced.
const (
	SessionDraft    = "draft"
	SessionPending  = "pending"
	SessionApproved = "approved"
	SessionRejected = "rejected"
)

// Session is a client booking of one or more activities. StudentCount and
// MarginPct are the knobs the pricing engine applies to the activity tree.
type Session struct {
	// ID is the unique identifier for the session (UUID format).
	ID string `json:"id"`

	// Name is the quote title shown to the client.
	Name string `json:"name"`

	// ClientName and ClientContact identify who the quote is for (optional).
	ClientName    string `json:"clientName,omitempty"`
	ClientContact string `json:"clientContact,omitempty"`

	// StudentCount is the number of attending students.
	StudentCount int `json:"studentCount"`

	// MarginPct is the profit margin as a percentage of the selling price.
	// Must be below 100.
	MarginPct float64 `json:"marginPct"`

	// Status is one of draft, pending, approved, rejected.
	Status string `json:"status"`

	// Notes holds free-form planning text (optional).
	Notes string `json:"notes,omitempty"`

	// RejectionNote carries the admin's reason when Status is rejected.
	RejectionNote string `json:"rejectionNote,omitempty"`

	// CreatedBy is the user ID of the owner; CreatedByName is joined on read.
	CreatedBy     string `json:"createdBy"`
	CreatedByName string `json:"createdByName,omitempty"`

	// ApprovedBy and ApprovedAt record the admin decision.
	ApprovedBy string `json:"approvedBy,omitempty"`
	ApprovedAt int64  `json:"approvedAt,omitempty"`

	// CreatedAt is the Unix timestamp when the session was created.
	CreatedAt int64 `json:"createdAt"`

	// ActivityIDs are the linked activities in sort order.
	ActivityIDs []string `json:"activityIds,omitempty"`
}

// Invoice is the numbered billing record of an approved session. At most
// one invoice exists per session; re-issuing returns the existing record.
type Invoice struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionId"`

	// InvoiceNumber is the human-facing number, "STEM-YYYY-NNNN".
	InvoiceNumber string `json:"invoiceNumber"`

	// IssuedBy is the admin user ID; IssuedByName is joined on read.
	IssuedBy     string `json:"issuedBy"`
	IssuedByName string `json:"issuedByName,omitempty"`

	// IssuedAt is the Unix timestamp the invoice was generated.
	IssuedAt int64 `json:"issuedAt"`
}
