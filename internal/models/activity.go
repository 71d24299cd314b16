package models

// Activity is a reusable experiment: identity, classroom metadata, and an
// ordered list of material usage lines.
type Activity struct {
	// ID is the unique identifier for the activity (UUID format).
	ID string `json:"id"`

	// Name is the activity display name (e.g. "Elephant Toothpaste").
	Name string `json:"name"`

	// Category groups activities in the library ("Science", "Robotics", ...).
	Category string `json:"category"`

	// AgeGroup is the recommended audience (optional, e.g. "8-12").
	AgeGroup string `json:"ageGroup,omitempty"`

	// DurationMins is the expected running time (optional).
	DurationMins int `json:"durationMins,omitempty"`

	// DefaultStudents pre-fills the student count when a session adds
	// this activity.
	DefaultStudents int `json:"defaultStudents"`

	// Description holds the run-sheet text (optional).
	Description string `json:"description,omitempty"`

	// IsLocked marks curated activities only admins may edit.
	IsLocked bool `json:"isLocked"`

	// IsArchived hides the activity from the library.
	IsArchived bool `json:"isArchived"`

	// CreatedBy is the user ID of the author.
	CreatedBy string `json:"createdBy,omitempty"`

	// CreatedAt is the Unix timestamp when the activity was created.
	CreatedAt int64 `json:"createdAt"`

	// CreatedByName and MaterialCount are joined on list reads.
	CreatedByName string `json:"createdByName,omitempty"`
	MaterialCount int    `json:"materialCount,omitempty"`

	// Materials are the usage lines in sort order. Populated on detail
	// reads; nil on list reads.
	Materials []ActivityMaterial `json:"materials,omitempty"`
}

// ActivityMaterial is one material usage line inside an activity. The
// denormalized Material* fields are filled by join on read so the pricing
// engine and the UI need no second lookup.
type ActivityMaterial struct {
	ID         string `json:"id"`
	ActivityID string `json:"activityId"`
	MaterialID string `json:"materialId"`

	// QtyUsed is the consumed quantity per unit of whatever the
	// consumption mode multiplies.
	QtyUsed float64 `json:"qtyUsed"`

	// ConsumptionMode is per_student, per_group or per_session.
	ConsumptionMode string `json:"consumptionMode"`

	// GroupSize is the number of students sharing one charge; meaningful
	// only for per_group.
	GroupSize int `json:"groupSize"`

	// WastePct inflates the unit cost to cover spillage and spares.
	WastePct float64 `json:"wastePct"`

	// ManualOverride replaces the computed unit cost with ManualUnitCost.
	ManualOverride bool     `json:"manualOverride"`
	ManualUnitCost *float64 `json:"manualUnitCost,omitempty"`

	// SortOrder fixes the line's position in breakdowns.
	SortOrder int `json:"sortOrder"`

	// Joined material fields (read-only).
	MaterialName string  `json:"materialName,omitempty"`
	UnitType     string  `json:"unitType,omitempty"`
	PackSize     float64 `json:"packSize,omitempty"`
	PackPrice    float64 `json:"packPrice,omitempty"`
}
