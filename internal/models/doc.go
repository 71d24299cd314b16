// Package models defines the domain models for the STEM session costing
// service.
//
// # Entities
//
//   - User: staff account with a role (admin, curator, marketing)
//   - Material: priced catalog item (one purchasable pack)
//   - PriceVersion: historical pack price/size of a material
//   - Activity: reusable experiment with its ordered material usage lines
//   - Session: a client booking of one or more activities, carrying the
//     student count and margin that drive pricing
//   - Invoice: the numbered billing record issued for an approved session
//
// # Conventions
//
// IDs are UUID strings and timestamps are Unix seconds. Relationships are
// expressed with ID strings rather than pointers so the structs stay cheap
// to copy and free of cycles. The pricing arithmetic itself lives in
// internal/pricing; these models only carry the persisted fields.
package models
