package models

// Roles a user account can hold. Marketing staff build and submit session
// quotes, curators maintain the catalog, admins approve and invoice.
const (
	RoleAdmin     = "admin"
	RoleCurator   = "curator"
	RoleMarketing = "marketing"
)

// ValidRole reports whether s is one of the known roles.
func ValidRole(s string) bool {
	return s == RoleAdmin || s == RoleCurator || s == RoleMarketing
}

// User represents a registered staff account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string `json:"id"`

	// Name is the display name of the user.
	Name string `json:"name"`

	// Email is the user's email address (unique, stored lowercase).
	Email string `json:"email"`

	// Role controls what the user may do. New registrations start as marketing.
	Role string `json:"role"`

	// PasswordHash is the bcrypt hash of the user's password. Never serialized.
	PasswordHash string `json:"-"`

	// ResetToken and ResetTokenExpires track an outstanding password reset.
	// Both are zero when no reset is pending.
	ResetToken        string `json:"-"`
	ResetTokenExpires int64  `json:"-"`

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64 `json:"createdAt"`
}
