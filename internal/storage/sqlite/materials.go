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

// CreateMaterial persists a new catalog item. Pack size must be positive;
// the schema enforces it and the error propagates to the caller.
func (s *SQLiteStore) CreateMaterial(ctx context.Context, m *models.Material) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt == 0 {
		m.CreatedAt = time.Now().Unix()
	}
	if m.UnitType == "" {
		m.UnitType = "pcs"
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO materials (id, name, unit_type, pack_size, pack_price, category, notes, is_archived, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		m.ID, m.Name, m.UnitType, m.PackSize, m.PackPrice,
		nullStr(m.Category), nullStr(m.Notes), nullStr(m.CreatedBy), m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert material: %w", err)
	}
	return nil
}

// GetMaterial retrieves a single material by ID.
func (s *SQLiteStore) GetMaterial(ctx context.Context, id string) (*models.Material, error) {
	var (
		m                          models.Material
		category, notes, createdBy sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, unit_type, pack_size, pack_price, category, notes, is_archived, created_by, created_at
		 FROM materials WHERE id = ?`, id,
	).Scan(&m.ID, &m.Name, &m.UnitType, &m.PackSize, &m.PackPrice,
		&category, &notes, &m.IsArchived, &createdBy, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get material: %w", err)
	}
	m.Category = category.String
	m.Notes = notes.String
	m.CreatedBy = createdBy.String
	return &m, nil
}

// ListMaterials returns non-archived materials, optionally filtered,
// ordered by category then name.
func (s *SQLiteStore) ListMaterials(ctx context.Context, f storage.MaterialFilter) ([]models.Material, error) {
	query := `SELECT id, name, unit_type, pack_size, pack_price, category, notes, is_archived, created_by, created_at
	          FROM materials WHERE is_archived = 0`
	var args []any
	if f.Query != "" {
		query += ` AND name LIKE ? COLLATE NOCASE`
		args = append(args, "%"+f.Query+"%")
	}
	if f.Category != "" {
		query += ` AND category = ?`
		args = append(args, f.Category)
	}
	query += ` ORDER BY category, name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	defer rows.Close()

	var materials []models.Material
	for rows.Next() {
		var (
			m                          models.Material
			category, notes, createdBy sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.Name, &m.UnitType, &m.PackSize, &m.PackPrice,
			&category, &notes, &m.IsArchived, &createdBy, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		m.Category = category.String
		m.Notes = notes.String
		m.CreatedBy = createdBy.String
		materials = append(materials, m)
	}
	return materials, rows.Err()
}

// UpdateMaterial updates catalog fields. Archival state is managed by
// ArchiveMaterial, not here.
func (s *SQLiteStore) UpdateMaterial(ctx context.Context, m *models.Material) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE materials SET name = ?, unit_type = ?, pack_size = ?, pack_price = ?, category = ?, notes = ?
		 WHERE id = ?`,
		m.Name, m.UnitType, m.PackSize, m.PackPrice, nullStr(m.Category), nullStr(m.Notes), m.ID,
	)
	if err != nil {
		return fmt.Errorf("update material: %w", err)
	}
	return requireRowChange(res)
}

// ArchiveMaterial hides a material from the catalog without deleting it,
// so existing activity lines keep resolving.
func (s *SQLiteStore) ArchiveMaterial(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE materials SET is_archived = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("archive material: %w", err)
	}
	return requireRowChange(res)
}

// AddPriceVersion appends a price history record for a material.
func (s *SQLiteStore) AddPriceVersion(ctx context.Context, v *models.PriceVersion) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.EffectiveFrom == 0 {
		v.EffectiveFrom = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO price_versions (id, material_id, pack_price, pack_size, set_by, effective_from)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		v.ID, v.MaterialID, v.PackPrice, v.PackSize, nullStr(v.SetBy), v.EffectiveFrom,
	)
	if err != nil {
		return fmt.Errorf("insert price version: %w", err)
	}
	return nil
}

// ListPriceVersions returns a material's price history, newest first.
func (s *SQLiteStore) ListPriceVersions(ctx context.Context, materialID string) ([]models.PriceVersion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, material_id, pack_price, pack_size, set_by, effective_from
		 FROM price_versions WHERE material_id = ? ORDER BY effective_from DESC, rowid DESC`,
		materialID)
	if err != nil {
		return nil, fmt.Errorf("list price versions: %w", err)
	}
	defer rows.Close()

	var versions []models.PriceVersion
	for rows.Next() {
		var (
			v     models.PriceVersion
			setBy sql.NullString
		)
		if err := rows.Scan(&v.ID, &v.MaterialID, &v.PackPrice, &v.PackSize, &setBy, &v.EffectiveFrom); err != nil {
			return nil, fmt.Errorf("scan price version: %w", err)
		}
		v.SetBy = setBy.String
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// ListMaterialCategories returns the distinct categories of live materials.
func (s *SQLiteStore) ListMaterialCategories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT category FROM materials
		 WHERE is_archived = 0 AND category IS NOT NULL ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("list material categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
