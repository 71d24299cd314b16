package models

// Material is a priced catalog item. Costing spreads PackPrice over PackSize
// base units; UnitType is a display label only and never enters arithmetic.
type Material struct {
	// ID is the unique identifier for the material (UUID format).
	ID string `json:"id"`

	// Name is the catalog display name (e.g. "Plastic Cups 200ml").
	Name string `json:"name"`

	// UnitType labels the base unit: "pcs", "g", "ml", ...
	UnitType string `json:"unitType"`

	// PackSize is the quantity of base units in one purchasable pack.
	// Must be > 0; the store refuses to persist anything else.
	PackSize float64 `json:"packSize"`

	// PackPrice is the cost of one pack in TZS.
	PackPrice float64 `json:"packPrice"`

	// Category groups materials in the library UI (optional).
	Category string `json:"category,omitempty"`

	// Notes holds free-form purchasing hints (optional).
	Notes string `json:"notes,omitempty"`

	// IsArchived hides the material from the catalog without breaking
	// activities that already reference it.
	IsArchived bool `json:"isArchived"`

	// CreatedBy is the user ID of the curator/admin who added the material.
	CreatedBy string `json:"createdBy,omitempty"`

	// CreatedAt is the Unix timestamp when the material was added.
	CreatedAt int64 `json:"createdAt"`
}

// PriceVersion records one historical pack price of a material. A new
// version is appended whenever the pack price changes, so old quotes can
// be explained after a price update.
type PriceVersion struct {
	ID         string  `json:"id"`
	MaterialID string  `json:"materialId"`
	PackPrice  float64 `json:"packPrice"`
	PackSize   float64 `json:"packSize"`

	// SetBy is the user ID who made the change.
	SetBy string `json:"setBy,omitempty"`

	// EffectiveFrom is the Unix timestamp the version was recorded.
	EffectiveFrom int64 `json:"effectiveFrom"`
}
