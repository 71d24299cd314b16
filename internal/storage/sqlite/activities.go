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

// CreateActivity persists an activity and its usage lines in one transaction.
func (s *SQLiteStore) CreateActivity(ctx context.Context, a *models.Activity) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt == 0 {
		a.CreatedAt = time.Now().Unix()
	}
	if a.Category == "" {
		a.Category = "Science"
	}
	if a.DefaultStudents == 0 {
		a.DefaultStudents = 20
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO activities (id, name, category, age_group, duration_mins, default_students, description, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Category, nullStr(a.AgeGroup), nullInt(int64(a.DurationMins)),
		a.DefaultStudents, nullStr(a.Description), nullStr(a.CreatedBy), a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}

	if err := insertActivityMaterials(ctx, tx, a.ID, a.Materials); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// insertActivityMaterials writes usage lines with their position as sort order.
func insertActivityMaterials(ctx context.Context, tx *sql.Tx, activityID string, lines []models.ActivityMaterial) error {
	for i := range lines {
		line := &lines[i]
		if line.ID == "" {
			line.ID = uuid.New().String()
		}
		if line.ConsumptionMode == "" {
			line.ConsumptionMode = "per_student"
		}
		if line.GroupSize < 1 {
			line.GroupSize = 1
		}
		line.ActivityID = activityID
		line.SortOrder = i

		var manualCost any
		if line.ManualUnitCost != nil {
			manualCost = *line.ManualUnitCost
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO activity_materials
			 (id, activity_id, material_id, qty_used, consumption_mode, group_size, waste_pct, manual_override, manual_unit_cost, sort_order)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			line.ID, activityID, line.MaterialID, line.QtyUsed, line.ConsumptionMode,
			line.GroupSize, line.WastePct, line.ManualOverride, manualCost, line.SortOrder,
		)
		if err != nil {
			return fmt.Errorf("insert activity material: %w", err)
		}
	}
	return nil
}

func scanActivityRow(rows interface{ Scan(...any) error }, a *models.Activity) error {
	var ageGroup, description, createdBy sql.NullString
	var durationMins sql.NullInt64
	err := rows.Scan(&a.ID, &a.Name, &a.Category, &ageGroup, &durationMins,
		&a.DefaultStudents, &description, &a.IsLocked, &a.IsArchived, &createdBy, &a.CreatedAt)
	if err != nil {
		return err
	}
	a.AgeGroup = ageGroup.String
	a.DurationMins = int(durationMins.Int64)
	a.Description = description.String
	a.CreatedBy = createdBy.String
	return nil
}

const activityColumns = `id, name, category, age_group, duration_mins, default_students, description, is_locked, is_archived, created_by, created_at`

// GetActivity retrieves an activity with its usage lines in sort order.
func (s *SQLiteStore) GetActivity(ctx context.Context, id string) (*models.Activity, error) {
	var a models.Activity
	err := scanActivityRow(s.db.QueryRowContext(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE id = ?`, id), &a)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get activity: %w", err)
	}

	materials, err := s.activityMaterials(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Materials = materials
	return &a, nil
}

// activityMaterials loads the usage lines of one activity, joined with the
// material fields the pricing engine and the UI need.
func (s *SQLiteStore) activityMaterials(ctx context.Context, activityID string) ([]models.ActivityMaterial, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT am.id, am.activity_id, am.material_id, am.qty_used, am.consumption_mode,
		        am.group_size, am.waste_pct, am.manual_override, am.manual_unit_cost, am.sort_order,
		        m.name, m.unit_type, m.pack_size, m.pack_price
		 FROM activity_materials am
		 JOIN materials m ON m.id = am.material_id
		 WHERE am.activity_id = ?
		 ORDER BY am.sort_order, am.id`,
		activityID)
	if err != nil {
		return nil, fmt.Errorf("get activity materials: %w", err)
	}
	defer rows.Close()

	var lines []models.ActivityMaterial
	for rows.Next() {
		var (
			line       models.ActivityMaterial
			manualCost sql.NullFloat64
		)
		if err := rows.Scan(&line.ID, &line.ActivityID, &line.MaterialID, &line.QtyUsed,
			&line.ConsumptionMode, &line.GroupSize, &line.WastePct, &line.ManualOverride,
			&manualCost, &line.SortOrder,
			&line.MaterialName, &line.UnitType, &line.PackSize, &line.PackPrice); err != nil {
			return nil, fmt.Errorf("scan activity material: %w", err)
		}
		if manualCost.Valid {
			v := manualCost.Float64
			line.ManualUnitCost = &v
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// ListActivities returns non-archived activities with creator name and line
// count, ordered by category then name.
func (s *SQLiteStore) ListActivities(ctx context.Context, f storage.ActivityFilter) ([]models.Activity, error) {
	query := `SELECT a.id, a.name, a.category, a.age_group, a.duration_mins, a.default_students,
	                 a.description, a.is_locked, a.is_archived, a.created_by, a.created_at,
	                 COALESCE(u.name, ''), COUNT(am.id)
	          FROM activities a
	          LEFT JOIN users u ON u.id = a.created_by
	          LEFT JOIN activity_materials am ON am.activity_id = a.id
	          WHERE a.is_archived = 0`
	var args []any
	if f.Category != "" {
		query += ` AND a.category = ?`
		args = append(args, f.Category)
	}
	if f.Query != "" {
		query += ` AND a.name LIKE ? COLLATE NOCASE`
		args = append(args, "%"+f.Query+"%")
	}
	query += ` GROUP BY a.id, u.name ORDER BY a.category, a.name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var activities []models.Activity
	for rows.Next() {
		var (
			a                             models.Activity
			ageGroup, description, createdBy sql.NullString
			durationMins                  sql.NullInt64
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.Category, &ageGroup, &durationMins,
			&a.DefaultStudents, &description, &a.IsLocked, &a.IsArchived, &createdBy, &a.CreatedAt,
			&a.CreatedByName, &a.MaterialCount); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.AgeGroup = ageGroup.String
		a.DurationMins = int(durationMins.Int64)
		a.Description = description.String
		a.CreatedBy = createdBy.String
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// UpdateActivity updates the activity record and, when replaceMaterials is
// set, swaps the full usage line list atomically.
func (s *SQLiteStore) UpdateActivity(ctx context.Context, a *models.Activity, replaceMaterials bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE activities SET name = ?, category = ?, age_group = ?, duration_mins = ?,
		 default_students = ?, description = ? WHERE id = ?`,
		a.Name, a.Category, nullStr(a.AgeGroup), nullInt(int64(a.DurationMins)),
		a.DefaultStudents, nullStr(a.Description), a.ID,
	)
	if err != nil {
		return fmt.Errorf("update activity: %w", err)
	}
	if err := requireRowChange(res); err != nil {
		return err
	}

	if replaceMaterials {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM activity_materials WHERE activity_id = ?`, a.ID); err != nil {
			return fmt.Errorf("clear activity materials: %w", err)
		}
		if err := insertActivityMaterials(ctx, tx, a.ID, a.Materials); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// SetActivityLocked toggles the admin-only edit lock.
func (s *SQLiteStore) SetActivityLocked(ctx context.Context, id string, locked bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE activities SET is_locked = ? WHERE id = ?`, locked, id)
	if err != nil {
		return fmt.Errorf("set activity lock: %w", err)
	}
	return requireRowChange(res)
}

// ArchiveActivity hides an activity from the library.
func (s *SQLiteStore) ArchiveActivity(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE activities SET is_archived = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("archive activity: %w", err)
	}
	return requireRowChange(res)
}
