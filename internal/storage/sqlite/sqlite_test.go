package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stemlabtz/stemquote/internal/models"
	"github.com/stemlabtz/stemquote/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "stemquote-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := &models.User{Name: "Asha", Email: "asha@example.com", Role: models.RoleCurator, PasswordHash: "x"}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	t.Run("CreateMaterial generates ID and timestamps", func(t *testing.T) {
		m := &models.Material{Name: "Plastic Cups", UnitType: "pcs", PackSize: 50, PackPrice: 5000, CreatedBy: user.ID}
		if err := store.CreateMaterial(ctx, m); err != nil {
			t.Fatalf("CreateMaterial failed: %v", err)
		}
		if m.ID == "" {
			t.Error("Expected material ID to be generated")
		}
		if m.CreatedAt == 0 {
			t.Error("Expected CreatedAt to be set")
		}

		got, err := store.GetMaterial(ctx, m.ID)
		if err != nil {
			t.Fatalf("GetMaterial failed: %v", err)
		}
		if got.Name != "Plastic Cups" || got.PackSize != 50 || got.PackPrice != 5000 {
			t.Errorf("Retrieved material mismatch: %+v", got)
		}
	})

	t.Run("Schema rejects non-positive pack size", func(t *testing.T) {
		m := &models.Material{Name: "Broken", UnitType: "g", PackSize: 0, PackPrice: 100}
		if err := store.CreateMaterial(ctx, m); err == nil {
			t.Error("Expected pack_size CHECK violation, got nil")
		}
	})

	t.Run("ListMaterials filters by search and skips archived", func(t *testing.T) {
		vinegar := &models.Material{Name: "Vinegar", UnitType: "ml", PackSize: 1000, PackPrice: 3000, Category: "Chemicals"}
		if err := store.CreateMaterial(ctx, vinegar); err != nil {
			t.Fatalf("CreateMaterial failed: %v", err)
		}

		found, err := store.ListMaterials(ctx, storage.MaterialFilter{Query: "vine"})
		if err != nil {
			t.Fatalf("ListMaterials failed: %v", err)
		}
		if len(found) != 1 || found[0].ID != vinegar.ID {
			t.Errorf("Expected only vinegar, got %d materials", len(found))
		}

		if err := store.ArchiveMaterial(ctx, vinegar.ID); err != nil {
			t.Fatalf("ArchiveMaterial failed: %v", err)
		}
		found, err = store.ListMaterials(ctx, storage.MaterialFilter{Query: "vine"})
		if err != nil {
			t.Fatalf("ListMaterials failed: %v", err)
		}
		if len(found) != 0 {
			t.Errorf("Expected archived material hidden, got %d", len(found))
		}
	})

	t.Run("Price history is newest first", func(t *testing.T) {
		m := &models.Material{Name: "Yeast", UnitType: "g", PackSize: 100, PackPrice: 2000}
		if err := store.CreateMaterial(ctx, m); err != nil {
			t.Fatalf("CreateMaterial failed: %v", err)
		}

		v1 := &models.PriceVersion{MaterialID: m.ID, PackPrice: 2000, PackSize: 100, EffectiveFrom: time.Now().Unix() - 100}
		v2 := &models.PriceVersion{MaterialID: m.ID, PackPrice: 2500, PackSize: 100, EffectiveFrom: time.Now().Unix()}
		if err := store.AddPriceVersion(ctx, v1); err != nil {
			t.Fatalf("AddPriceVersion failed: %v", err)
		}
		if err := store.AddPriceVersion(ctx, v2); err != nil {
			t.Fatalf("AddPriceVersion failed: %v", err)
		}

		versions, err := store.ListPriceVersions(ctx, m.ID)
		if err != nil {
			t.Fatalf("ListPriceVersions failed: %v", err)
		}
		if len(versions) != 2 || versions[0].PackPrice != 2500 {
			t.Errorf("Expected newest version first, got %+v", versions)
		}
	})

	t.Run("Activity round trip preserves line order", func(t *testing.T) {
		peroxide := &models.Material{Name: "Hydrogen Peroxide", UnitType: "ml", PackSize: 500, PackPrice: 8000}
		soap := &models.Material{Name: "Dish Soap", UnitType: "ml", PackSize: 250, PackPrice: 4000}
		for _, m := range []*models.Material{peroxide, soap} {
			if err := store.CreateMaterial(ctx, m); err != nil {
				t.Fatalf("CreateMaterial failed: %v", err)
			}
		}

		override := 12.5
		a := &models.Activity{
			Name:      "Elephant Toothpaste",
			Category:  "Science",
			CreatedBy: user.ID,
			Materials: []models.ActivityMaterial{
				{MaterialID: peroxide.ID, QtyUsed: 50, ConsumptionMode: "per_group", GroupSize: 5},
				{MaterialID: soap.ID, QtyUsed: 10, ConsumptionMode: "per_student", WastePct: 10, ManualOverride: true, ManualUnitCost: &override},
			},
		}
		if err := store.CreateActivity(ctx, a); err != nil {
			t.Fatalf("CreateActivity failed: %v", err)
		}

		got, err := store.GetActivity(ctx, a.ID)
		if err != nil {
			t.Fatalf("GetActivity failed: %v", err)
		}
		if len(got.Materials) != 2 {
			t.Fatalf("Expected 2 lines, got %d", len(got.Materials))
		}
		if got.Materials[0].MaterialID != peroxide.ID || got.Materials[1].MaterialID != soap.ID {
			t.Error("Line order not preserved")
		}
		if got.Materials[0].MaterialName != "Hydrogen Peroxide" || got.Materials[0].PackSize != 500 {
			t.Errorf("Joined material fields missing: %+v", got.Materials[0])
		}
		if got.Materials[1].ManualUnitCost == nil || *got.Materials[1].ManualUnitCost != 12.5 {
			t.Errorf("Manual unit cost lost: %+v", got.Materials[1])
		}
	})

	t.Run("UpdateActivity replaces lines wholesale", func(t *testing.T) {
		m := &models.Material{Name: "Balloons", UnitType: "pcs", PackSize: 20, PackPrice: 6000}
		if err := store.CreateMaterial(ctx, m); err != nil {
			t.Fatalf("CreateMaterial failed: %v", err)
		}
		a := &models.Activity{
			Name:      "Balloon Rockets",
			Materials: []models.ActivityMaterial{{MaterialID: m.ID, QtyUsed: 2}},
		}
		if err := store.CreateActivity(ctx, a); err != nil {
			t.Fatalf("CreateActivity failed: %v", err)
		}

		a.Name = "Balloon Rockets v2"
		a.Materials = []models.ActivityMaterial{{MaterialID: m.ID, QtyUsed: 3, ConsumptionMode: "per_group", GroupSize: 4}}
		if err := store.UpdateActivity(ctx, a, true); err != nil {
			t.Fatalf("UpdateActivity failed: %v", err)
		}

		got, err := store.GetActivity(ctx, a.ID)
		if err != nil {
			t.Fatalf("GetActivity failed: %v", err)
		}
		if got.Name != "Balloon Rockets v2" {
			t.Errorf("Name not updated: %s", got.Name)
		}
		if len(got.Materials) != 1 || got.Materials[0].QtyUsed != 3 || got.Materials[0].GroupSize != 4 {
			t.Errorf("Lines not replaced: %+v", got.Materials)
		}

		// An empty list clears all lines; an update is a full replace.
		a.Materials = nil
		if err := store.UpdateActivity(ctx, a, true); err != nil {
			t.Fatalf("UpdateActivity failed: %v", err)
		}
		got, err = store.GetActivity(ctx, a.ID)
		if err != nil {
			t.Fatalf("GetActivity failed: %v", err)
		}
		if len(got.Materials) != 0 {
			t.Errorf("Expected lines cleared, got %+v", got.Materials)
		}
	})

	t.Run("ListActivities joins creator name and line count", func(t *testing.T) {
		activities, err := store.ListActivities(ctx, storage.ActivityFilter{Query: "elephant"})
		if err != nil {
			t.Fatalf("ListActivities failed: %v", err)
		}
		if len(activities) != 1 {
			t.Fatalf("Expected 1 activity, got %d", len(activities))
		}
		if activities[0].CreatedByName != "Asha" {
			t.Errorf("Expected creator name Asha, got %q", activities[0].CreatedByName)
		}
		if activities[0].MaterialCount != 2 {
			t.Errorf("Expected 2 lines counted, got %d", activities[0].MaterialCount)
		}
	})

	t.Run("Session workflow and activity order", func(t *testing.T) {
		var activityIDs []string
		for _, name := range []string{"Zebra Slime", "Apple Battery"} {
			a := &models.Activity{Name: name}
			if err := store.CreateActivity(ctx, a); err != nil {
				t.Fatalf("CreateActivity failed: %v", err)
			}
			activityIDs = append(activityIDs, a.ID)
		}

		sess := &models.Session{
			Name:         "School Visit",
			StudentCount: 20,
			MarginPct:    30,
			CreatedBy:    user.ID,
			ActivityIDs:  activityIDs,
		}
		if err := store.CreateSession(ctx, sess); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
		if sess.Status != models.SessionDraft {
			t.Errorf("Expected draft status, got %s", sess.Status)
		}

		got, err := store.GetSession(ctx, sess.ID)
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if got.CreatedByName != "Asha" {
			t.Errorf("Expected creator name joined, got %q", got.CreatedByName)
		}
		// Order must match insertion, not alphabetical.
		if len(got.ActivityIDs) != 2 || got.ActivityIDs[0] != activityIDs[0] || got.ActivityIDs[1] != activityIDs[1] {
			t.Errorf("Activity order not preserved: %v", got.ActivityIDs)
		}

		tree, err := store.SessionActivities(ctx, sess.ID)
		if err != nil {
			t.Fatalf("SessionActivities failed: %v", err)
		}
		if len(tree) != 2 || tree[0].Name != "Zebra Slime" || tree[1].Name != "Apple Battery" {
			t.Errorf("Tree order not preserved: %+v", tree)
		}

		if err := store.UpdateSessionStatus(ctx, sess.ID, models.SessionPending, "", ""); err != nil {
			t.Fatalf("UpdateSessionStatus failed: %v", err)
		}
		pending, err := store.ListPendingSessions(ctx)
		if err != nil {
			t.Fatalf("ListPendingSessions failed: %v", err)
		}
		if len(pending) != 1 || pending[0].ID != sess.ID {
			t.Errorf("Expected session in pending queue, got %+v", pending)
		}

		if err := store.UpdateSessionStatus(ctx, sess.ID, models.SessionApproved, "", user.ID); err != nil {
			t.Fatalf("UpdateSessionStatus failed: %v", err)
		}
		got, err = store.GetSession(ctx, sess.ID)
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if got.Status != models.SessionApproved || got.ApprovedBy != user.ID || got.ApprovedAt == 0 {
			t.Errorf("Approval audit fields not set: %+v", got)
		}
	})

	t.Run("Rejection stores the note", func(t *testing.T) {
		sess := &models.Session{Name: "Rejected Visit", Status: models.SessionPending, CreatedBy: user.ID}
		if err := store.CreateSession(ctx, sess); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
		if err := store.UpdateSessionStatus(ctx, sess.ID, models.SessionRejected, "margin too low", ""); err != nil {
			t.Fatalf("UpdateSessionStatus failed: %v", err)
		}

		got, err := store.GetSession(ctx, sess.ID)
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if got.RejectionNote != "margin too low" {
			t.Errorf("Expected rejection note, got %q", got.RejectionNote)
		}
	})

	t.Run("DeleteSession cascades links", func(t *testing.T) {
		a := &models.Activity{Name: "Throwaway"}
		if err := store.CreateActivity(ctx, a); err != nil {
			t.Fatalf("CreateActivity failed: %v", err)
		}
		sess := &models.Session{Name: "Doomed", ActivityIDs: []string{a.ID}}
		if err := store.CreateSession(ctx, sess); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
		if err := store.DeleteSession(ctx, sess.ID); err != nil {
			t.Fatalf("DeleteSession failed: %v", err)
		}
		if _, err := store.GetSession(ctx, sess.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Missing records return ErrNotFound", func(t *testing.T) {
		if _, err := store.GetMaterial(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetMaterial: expected ErrNotFound, got %v", err)
		}
		if _, err := store.GetActivity(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetActivity: expected ErrNotFound, got %v", err)
		}
		if err := store.UpdateUserRole(ctx, "nope", models.RoleAdmin); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("UpdateUserRole: expected ErrNotFound, got %v", err)
		}
	})
}

func TestInvoiceNumbering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sessions := make([]*models.Session, 2)
	for i := range sessions {
		sess := &models.Session{Name: "Visit", Status: models.SessionApproved}
		if err := store.CreateSession(ctx, sess); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
		sessions[i] = sess
	}

	first := &models.Invoice{SessionID: sessions[0].ID, IssuedBy: ""}
	if err := store.CreateInvoice(ctx, first); err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}
	year := time.Now().Year()
	if !strings.HasPrefix(first.InvoiceNumber, "STEM-") || !strings.Contains(first.InvoiceNumber, "-0001") {
		t.Errorf("Expected STEM-%d-0001, got %s", year, first.InvoiceNumber)
	}

	second := &models.Invoice{SessionID: sessions[1].ID}
	if err := store.CreateInvoice(ctx, second); err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}
	if !strings.Contains(second.InvoiceNumber, "-0002") {
		t.Errorf("Expected sequence 0002, got %s", second.InvoiceNumber)
	}

	// A second invoice for the same session must be refused.
	dup := &models.Invoice{SessionID: sessions[0].ID}
	if err := store.CreateInvoice(ctx, dup); err == nil {
		t.Error("Expected UNIQUE violation for duplicate session invoice")
	}

	got, err := store.GetInvoiceBySession(ctx, sessions[0].ID)
	if err != nil {
		t.Fatalf("GetInvoiceBySession failed: %v", err)
	}
	if got.InvoiceNumber != first.InvoiceNumber {
		t.Errorf("Expected %s, got %s", first.InvoiceNumber, got.InvoiceNumber)
	}
}

func TestConcurrentInvoiceNumbers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	const n = 5
	sessions := make([]*models.Session, n)
	for i := range sessions {
		sess := &models.Session{Name: "Visit", Status: models.SessionApproved}
		if err := store.CreateSession(ctx, sess); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
		sessions[i] = sess
	}

	// Issue all invoices at once; every one must get a distinct number.
	var wg sync.WaitGroup
	invoices := make([]*models.Invoice, n)
	errs := make([]error, n)
	for i := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inv := &models.Invoice{SessionID: sessions[i].ID}
			errs[i] = store.CreateInvoice(ctx, inv)
			invoices[i] = inv
		}()
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i := range invoices {
		if errs[i] != nil {
			t.Fatalf("CreateInvoice %d failed: %v", i, errs[i])
		}
		if seen[invoices[i].InvoiceNumber] {
			t.Errorf("Duplicate invoice number %s", invoices[i].InvoiceNumber)
		}
		seen[invoices[i].InvoiceNumber] = true
	}
}

func TestAnalytics(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	admin := &models.User{Name: "Admin", Email: "admin@example.com", Role: models.RoleAdmin, PasswordHash: "x"}
	if err := store.CreateUser(ctx, admin); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	a := &models.Activity{Name: "Popular"}
	if err := store.CreateActivity(ctx, a); err != nil {
		t.Fatalf("CreateActivity failed: %v", err)
	}
	for _, status := range []string{models.SessionDraft, models.SessionPending, models.SessionApproved} {
		sess := &models.Session{Name: "S", Status: status, ActivityIDs: []string{a.ID}}
		if err := store.CreateSession(ctx, sess); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
	}

	report, err := store.GetAnalytics(ctx)
	if err != nil {
		t.Fatalf("GetAnalytics failed: %v", err)
	}
	if report.Sessions.Total != 3 || report.Sessions.Approved != 1 || report.Sessions.Pending != 1 || report.Sessions.Draft != 1 {
		t.Errorf("Session stats wrong: %+v", report.Sessions)
	}
	if len(report.TopActivities) != 1 || report.TopActivities[0].UsageCount != 3 {
		t.Errorf("Top activities wrong: %+v", report.TopActivities)
	}
	if len(report.Users) != 1 || report.Users[0].Role != models.RoleAdmin {
		t.Errorf("User counts wrong: %+v", report.Users)
	}
	if len(report.MonthlyActivity) != 1 || report.MonthlyActivity[0].Count != 3 {
		t.Errorf("Monthly trend wrong: %+v", report.MonthlyActivity)
	}
}
