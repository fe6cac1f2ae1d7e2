package estimate

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brickline/estimator-backend/pkg/db/models"
	"github.com/brickline/estimator-backend/pkg/enums"
)

func setupEstimateTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:estimate_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	estimateLines := `
CREATE TABLE IF NOT EXISTS estimate_lines (
  id TEXT PRIMARY KEY,
  project_id TEXT NOT NULL,
  category TEXT NOT NULL,
  material_code TEXT NOT NULL DEFAULT '',
  material_name TEXT NOT NULL,
  quantity NUMERIC NOT NULL DEFAULT 0,
  unit TEXT NOT NULL DEFAULT '',
  unit_price NUMERIC NOT NULL DEFAULT 0,
  section_name TEXT NOT NULL DEFAULT 'freeform',
  is_mapped INTEGER NOT NULL DEFAULT 1,
  takeoff_item_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	mergeKey := `
CREATE UNIQUE INDEX IF NOT EXISTS ux_estimate_lines_merge_key
  ON estimate_lines(project_id, category, material_name)
  WHERE takeoff_item_id IS NULL;`
	budgetLines := `
CREATE TABLE IF NOT EXISTS budget_lines (
  id TEXT PRIMARY KEY,
  project_id TEXT NOT NULL,
  category TEXT NOT NULL,
  material_code TEXT NOT NULL DEFAULT '',
  material_name TEXT NOT NULL,
  quantity NUMERIC NOT NULL DEFAULT 0,
  unit TEXT NOT NULL DEFAULT '',
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(estimateLines).Error)
	require.NoError(t, db.Exec(mergeKey).Error)
	require.NoError(t, db.Exec(budgetLines).Error)
	return db
}

func newLine(t *testing.T, db *gorm.DB, projectID uuid.UUID, category, name string, price float64, takeoffItemID *uuid.UUID) *models.EstimateLine {
	t.Helper()

	line := &models.EstimateLine{
		ID:            uuid.New(),
		ProjectID:     projectID,
		Category:      category,
		MaterialName:  name,
		UnitPrice:     decimal.NewFromFloat(price),
		SectionName:   enums.EstimateSectionMaterials,
		IsMapped:      true,
		TakeoffItemID: takeoffItemID,
	}
	require.NoError(t, db.Create(line).Error)
	return line
}

func TestEstimateRepoDeleteDerivedSparesManualRows(t *testing.T) {
	db := setupEstimateTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	projectID := uuid.New()
	itemID := uuid.New()
	newLine(t, db, projectID, "[15.001] Blockwork", "Cement", 12, &itemID)
	newLine(t, db, projectID, "[15.001] Blockwork", "Sand", 3, &itemID)
	manual := newLine(t, db, projectID, "Site works", "Crane rental", 900, nil)
	other := newLine(t, db, uuid.New(), "[15.001] Blockwork", "Cement", 12, &itemID)

	deleted, err := repo.DeleteDerived(ctx, projectID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	remaining, err := repo.ListByProject(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, manual.ID, remaining[0].ID, "manual rows survive any number of resyncs")

	otherRemaining, err := repo.ListByProject(ctx, other.ProjectID)
	require.NoError(t, err)
	assert.Len(t, otherRemaining, 1, "other projects are untouched")
}

func TestEstimateRepoUpsertMergesOnKeyAndKeepsPrice(t *testing.T) {
	db := setupEstimateTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	projectID := uuid.New()
	existing := newLine(t, db, projectID, "Concrete", "Cement", 6.20, nil)

	err := repo.UpsertMergeBatch(ctx, []models.EstimateLine{
		{
			ID:           uuid.New(),
			ProjectID:    projectID,
			Category:     "Concrete",
			MaterialName: "Cement",
			MaterialCode: "MAT-001",
			Quantity:     decimal.NewFromInt(80),
			Unit:         "bag",
			SectionName:  enums.EstimateSectionMaterials,
			IsMapped:     true,
		},
		{
			ID:           uuid.New(),
			ProjectID:    projectID,
			Category:     "Concrete",
			MaterialName: "Gravel",
			Quantity:     decimal.NewFromInt(40),
			Unit:         "t",
			SectionName:  enums.EstimateSectionMaterials,
			IsMapped:     true,
		},
	})
	require.NoError(t, err)

	lines, err := repo.ListByProject(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, lines, 2, "conflicting row merges instead of duplicating")

	byName := map[string]models.EstimateLine{}
	for _, line := range lines {
		byName[line.MaterialName] = line
	}
	cement := byName["Cement"]
	assert.Equal(t, existing.ID, cement.ID)
	assert.True(t, cement.Quantity.Equal(decimal.NewFromInt(80)), "quantity follows the source")
	assert.Equal(t, "MAT-001", cement.MaterialCode)
	assert.True(t, cement.UnitPrice.Equal(decimal.NewFromFloat(6.20)), "unit price never follows the source")
}

func TestEstimateRepoUpsertIgnoresDerivedRowsWithSameKey(t *testing.T) {
	db := setupEstimateTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	projectID := uuid.New()
	itemID := uuid.New()
	// A derived row under the same key sits outside the merge identity.
	newLine(t, db, projectID, "Concrete", "Cement", 12, &itemID)

	err := repo.UpsertMergeBatch(ctx, []models.EstimateLine{{
		ID:           uuid.New(),
		ProjectID:    projectID,
		Category:     "Concrete",
		MaterialName: "Cement",
		Quantity:     decimal.NewFromInt(80),
		SectionName:  enums.EstimateSectionMaterials,
	}})
	require.NoError(t, err)

	lines, err := repo.ListByProject(ctx, projectID)
	require.NoError(t, err)
	assert.Len(t, lines, 2, "derived row and synced row coexist")
}

func TestEstimateRepoBulkInsertAllowsDuplicateDerivedKeys(t *testing.T) {
	db := setupEstimateTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	projectID := uuid.New()
	itemID := uuid.New()
	// The engine does not deduplicate a resource pulled in twice.
	err := repo.BulkInsert(ctx, []models.EstimateLine{
		{ID: uuid.New(), ProjectID: projectID, Category: "[15.001] Blockwork", MaterialName: "Cement",
			Quantity: decimal.NewFromInt(10), TakeoffItemID: &itemID, SectionName: enums.EstimateSectionMaterials},
		{ID: uuid.New(), ProjectID: projectID, Category: "[15.001] Blockwork", MaterialName: "Cement",
			Quantity: decimal.NewFromInt(4), TakeoffItemID: &itemID, SectionName: enums.EstimateSectionMaterials},
	})
	require.NoError(t, err)

	lines, err := repo.ListByProject(ctx, projectID)
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

func TestBudgetRepoListByProject(t *testing.T) {
	db := setupEstimateTestDB(t)
	repo := NewBudgetRepository(db)
	ctx := context.Background()

	projectID := uuid.New()
	require.NoError(t, repo.Create(ctx, &models.BudgetLine{
		ID: uuid.New(), ProjectID: projectID, Category: "Concrete", MaterialName: "Cement",
		Quantity: decimal.NewFromInt(100), Unit: "bag",
	}))
	require.NoError(t, repo.Create(ctx, &models.BudgetLine{
		ID: uuid.New(), ProjectID: uuid.New(), Category: "Concrete", MaterialName: "Cement",
	}))

	rows, err := repo.ListByProject(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Cement", rows[0].MaterialName)
}
