// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/stemlabtz/stemquote/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// MaterialFilter narrows ListMaterials. Zero values match everything.
type MaterialFilter struct {
	Query    string // case-insensitive substring on name
	Category string
}

// ActivityFilter narrows ListActivities. Zero values match everything.
type ActivityFilter struct {
	Query    string
	Category string
}

// SessionFilter narrows ListSessions. Zero values match everything.
type SessionFilter struct {
	CreatedBy string
	Status    string
}

// RoleCount is one row of the users-by-role analytics breakdown.
type RoleCount struct {
	Role  string `json:"role"`
	Count int    `json:"count"`
}

// SessionStats counts sessions by workflow status.
type SessionStats struct {
	Total    int `json:"totalSessions"`
	Approved int `json:"approved"`
	Pending  int `json:"pending"`
	Rejected int `json:"rejected"`
	Draft    int `json:"draft"`
}

// ActivityUsage is one row of the most-used-activities report.
type ActivityUsage struct {
	Name       string `json:"name"`
	Category   string `json:"category"`
	UsageCount int    `json:"usageCount"`
}

// MonthCount is one month of the session creation trend.
type MonthCount struct {
	Month string `json:"month"` // "2026-08"
	Count int    `json:"count"`
}

// Analytics is the admin dashboard report.
type Analytics struct {
	Users           []RoleCount   `json:"users"`
	Sessions        SessionStats  `json:"sessions"`
	TopActivities   []ActivityUsage `json:"topActivities"`
	MonthlyActivity []MonthCount  `json:"monthlyActivity"`
}

// Store defines the persistence operations of the costing service. The
// abstraction keeps the service layer independent of the backing database.
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUserRole(ctx context.Context, id, role string) error
	DeleteUser(ctx context.Context, id string) error
	SetResetToken(ctx context.Context, email, token string, expires int64) error
	GetUserByResetToken(ctx context.Context, token string, now int64) (*models.User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error

	// Materials
	CreateMaterial(ctx context.Context, m *models.Material) error
	GetMaterial(ctx context.Context, id string) (*models.Material, error)
	ListMaterials(ctx context.Context, f MaterialFilter) ([]models.Material, error)
	UpdateMaterial(ctx context.Context, m *models.Material) error
	ArchiveMaterial(ctx context.Context, id string) error
	AddPriceVersion(ctx context.Context, v *models.PriceVersion) error
	ListPriceVersions(ctx context.Context, materialID string) ([]models.PriceVersion, error)
	ListMaterialCategories(ctx context.Context) ([]string, error)

	// Activities. Create and Update persist the usage lines atomically.
	// With replaceMaterials set, Update swaps the stored line list for
	// a.Materials wholesale; an empty list clears every line. PUT handlers
	// always pass true, so an update is a full replace.
	CreateActivity(ctx context.Context, a *models.Activity) error
	GetActivity(ctx context.Context, id string) (*models.Activity, error)
	ListActivities(ctx context.Context, f ActivityFilter) ([]models.Activity, error)
	UpdateActivity(ctx context.Context, a *models.Activity, replaceMaterials bool) error
	SetActivityLocked(ctx context.Context, id string, locked bool) error
	ArchiveActivity(ctx context.Context, id string) error

	// Sessions
	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	ListSessions(ctx context.Context, f SessionFilter) ([]models.Session, error)
	UpdateSession(ctx context.Context, s *models.Session, replaceActivities bool) error
	UpdateSessionStatus(ctx context.Context, id, status, rejectionNote, approvedBy string) error
	DeleteSession(ctx context.Context, id string) error

	// SessionActivities returns the session's activities in their stored
	// sort order, each with its usage lines (joined with material fields)
	// in their own sort order. This is the tree the pricing engine walks;
	// the order chosen here is preserved all the way to the response.
	SessionActivities(ctx context.Context, sessionID string) ([]models.Activity, error)

	// Invoices
	CreateInvoice(ctx context.Context, inv *models.Invoice) error
	GetInvoiceBySession(ctx context.Context, sessionID string) (*models.Invoice, error)
	NextInvoiceSequence(ctx context.Context) (int, error)

	// Admin
	ListPendingSessions(ctx context.Context) ([]models.Session, error)
	GetAnalytics(ctx context.Context) (*Analytics, error)

	// Close releases any resources held by the store.
	Close() error
}
