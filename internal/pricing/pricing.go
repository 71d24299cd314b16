// Package pricing computes the material cost and suggested price of a
// multi-activity STEM session. It is pure: no state, no I/O, and identical
// inputs always produce identical results, so callers may invoke it
// concurrently without coordination.
//
// All monetary values are in TZS. Pricing uses margin-on-price:
// price = cost / (1 - margin), not cost * (1 + margin).
package pricing

import (
	"errors"
	"fmt"
	"math"
)

// ErrMarginTooHigh is returned when the margin percentage is 100 or more,
// which makes the price formula divide by zero or go negative.
var ErrMarginTooHigh = errors.New("margin must be less than 100%")

// ConsumptionMode determines how many times a usage line is charged.
type ConsumptionMode string

const (
	// ModePerStudent charges the line once per student.
	ModePerStudent ConsumptionMode = "per_student"
	// ModePerGroup charges the line once per group of GroupSize students,
	// with a partial group counting as a full group.
	ModePerGroup ConsumptionMode = "per_group"
	// ModePerSession charges the line once regardless of student count.
	ModePerSession ConsumptionMode = "per_session"
)

// ParseConsumptionMode normalizes untyped external input to a known mode.
// Unknown values degrade to ModePerSession rather than failing; stored rows
// from older imports rely on that fallback.
func ParseConsumptionMode(s string) ConsumptionMode {
	switch ConsumptionMode(s) {
	case ModePerStudent, ModePerGroup, ModePerSession:
		return ConsumptionMode(s)
	default:
		return ModePerSession
	}
}

// Material is a priced catalog item: one purchasable pack and how many base
// units it contains. UnitType is a display label only.
type Material struct {
	ID        string
	Name      string
	UnitType  string
	PackPrice float64
	PackSize  float64
}

// Usage is one material's consumption within one activity.
type Usage struct {
	QtyUsed        float64
	Mode           ConsumptionMode
	GroupSize      int
	WastePct       float64
	ManualOverride bool
	ManualUnitCost *float64
}

// Line pairs a material with its usage row, in the order the caller wants
// it to appear in the breakdown.
type Line struct {
	Material Material
	Usage    Usage
}

// ActivityInput is one activity and its ordered usage lines.
type ActivityInput struct {
	ID        string
	Name      string
	Materials []Line
}

// LineTotal is the charged amount of one usage line. Rounded is what flows
// into totals; Raw is kept for display and diagnostics only.
type LineTotal struct {
	Raw        float64
	Rounded    float64
	Multiplier int
}

// LineResult is the per-material display record of the breakdown.
type LineResult struct {
	MaterialID   string          `json:"materialId"`
	MaterialName string          `json:"materialName"`
	UnitType     string          `json:"unitType"`
	PackPrice    float64         `json:"packPrice"`
	PackSize     float64         `json:"packSize"`
	UnitCost     float64         `json:"unitCost"`
	QtyUsed      float64         `json:"qtyUsed"`
	Mode         ConsumptionMode `json:"consumptionMode"`
	Multiplier   int             `json:"multiplier"`
	WastePct     float64         `json:"wastePct"`
	ItemTotal    float64         `json:"itemTotal"`
}

// ActivityResult is one activity's ordered lines and their rounded sum.
type ActivityResult struct {
	ActivityID    string       `json:"activityId"`
	ActivityName  string       `json:"activityName"`
	Lines         []LineResult `json:"lines"`
	ActivityTotal float64      `json:"activityTotal"`
}

// Summary is the session-level pricing roll-up. Every field is independently
// rounded to the nearest 5, so Profit may differ from Price-TotalCost by a
// rounding step in boundary cases.
type Summary struct {
	TotalCost       float64 `json:"totalCost"`
	Price           float64 `json:"price"`
	Profit          float64 `json:"profit"`
	PricePerStudent float64 `json:"pricePerStudent"`
}

// Result is the complete output of ComputeSession.
type Result struct {
	Breakdown []ActivityResult `json:"breakdown"`
	Summary
}

// Round5 rounds a TZS value to the nearest multiple of 5, half away from zero.
func Round5(v float64) float64 {
	return math.Round(v/5) * 5
}

// UnitCost resolves the effective cost of one base unit for one usage line.
// A manual override wins outright: waste and pack math are ignored. Otherwise
// the pack price is spread over the pack size and inflated by the waste
// percentage. The value is kept at full precision; only display layers round it.
func UnitCost(m Material, u Usage) float64 {
	if u.ManualOverride && u.ManualUnitCost != nil {
		return *u.ManualUnitCost
	}
	return (m.PackPrice / m.PackSize) * (1 + u.WastePct/100)
}

// ComputeLineTotal applies the consumption mode and returns the line's raw
// and rounded totals together with the multiplier that was charged.
func ComputeLineTotal(unitCost float64, u Usage, studentCount int) LineTotal {
	var multiplier int
	switch u.Mode {
	case ModePerStudent:
		multiplier = studentCount
	case ModePerGroup:
		gs := u.GroupSize
		if gs < 1 {
			gs = 1
		}
		multiplier = int(math.Ceil(float64(studentCount) / float64(gs)))
	default:
		// per_session, and the documented fallback for anything unknown
		multiplier = 1
	}

	raw := unitCost * u.QtyUsed * float64(multiplier)
	return LineTotal{Raw: raw, Rounded: Round5(raw), Multiplier: multiplier}
}

// SessionPrice converts a total material cost into the pricing summary.
// The margin is a fraction of the selling price, so a margin of 100% or more
// is rejected rather than clamped.
func SessionPrice(totalCost, marginPct float64, studentCount int) (Summary, error) {
	margin := marginPct / 100
	if margin >= 1 {
		return Summary{}, ErrMarginTooHigh
	}

	price := totalCost / (1 - margin)
	profit := price - totalCost
	perStudent := 0.0
	if studentCount > 0 {
		perStudent = price / float64(studentCount)
	}

	return Summary{
		TotalCost:       Round5(totalCost),
		Price:           Round5(price),
		Profit:          Round5(profit),
		PricePerStudent: Round5(perStudent),
	}, nil
}

// ComputeSession walks the activity tree in input order and produces the
// nested cost breakdown plus the pricing summary. Each line total is rounded
// once; activity totals and the grand total sum those already-rounded values
// and are not rounded again.
func ComputeSession(activities []ActivityInput, studentCount int, marginPct float64) (*Result, error) {
	grandTotal := 0.0
	breakdown := make([]ActivityResult, 0, len(activities))

	for _, act := range activities {
		activityTotal := 0.0
		lines := make([]LineResult, 0, len(act.Materials))

		for _, line := range act.Materials {
			if !line.Usage.ManualOverride && line.Material.PackSize <= 0 {
				return nil, fmt.Errorf("material %q has invalid pack size %v", line.Material.Name, line.Material.PackSize)
			}

			unitCost := UnitCost(line.Material, line.Usage)
			total := ComputeLineTotal(unitCost, line.Usage, studentCount)
			activityTotal += total.Rounded

			lines = append(lines, LineResult{
				MaterialID:   line.Material.ID,
				MaterialName: line.Material.Name,
				UnitType:     line.Material.UnitType,
				PackPrice:    line.Material.PackPrice,
				PackSize:     line.Material.PackSize,
				UnitCost:     math.Round(unitCost*10000) / 10000,
				QtyUsed:      line.Usage.QtyUsed,
				Mode:         line.Usage.Mode,
				Multiplier:   total.Multiplier,
				WastePct:     line.Usage.WastePct,
				ItemTotal:    total.Rounded,
			})
		}

		grandTotal += activityTotal
		breakdown = append(breakdown, ActivityResult{
			ActivityID:    act.ID,
			ActivityName:  act.Name,
			Lines:         lines,
			ActivityTotal: activityTotal,
		})
	}

	summary, err := SessionPrice(grandTotal, marginPct, studentCount)
	if err != nil {
		return nil, err
	}

	return &Result{Breakdown: breakdown, Summary: summary}, nil
}
