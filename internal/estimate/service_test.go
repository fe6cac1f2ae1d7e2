package estimate

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/brickline/estimator-backend/internal/takeoff"
	"github.com/brickline/estimator-backend/pkg/db/models"
	"github.com/brickline/estimator-backend/pkg/enums"
	pkgerrors "github.com/brickline/estimator-backend/pkg/errors"
)

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeEstimateRepo struct {
	lines         []models.EstimateLine
	insertErr     error
	upsertErr     error
	deleteCalls   int
	upsertBatches [][]models.EstimateLine
}

func (f *fakeEstimateRepo) WithTx(_ *gorm.DB) Repository { return f }

func (f *fakeEstimateRepo) DeleteDerived(_ context.Context, projectID uuid.UUID) (int64, error) {
	f.deleteCalls++
	var kept []models.EstimateLine
	var deleted int64
	for _, line := range f.lines {
		if line.ProjectID == projectID && line.TakeoffItemID != nil {
			deleted++
			continue
		}
		kept = append(kept, line)
	}
	f.lines = kept
	return deleted, nil
}

func (f *fakeEstimateRepo) BulkInsert(_ context.Context, lines []models.EstimateLine) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	for i := range lines {
		lines[i].ID = uuid.New()
	}
	f.lines = append(f.lines, lines...)
	return nil
}

func (f *fakeEstimateRepo) UpsertMergeBatch(_ context.Context, lines []models.EstimateLine) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upsertBatches = append(f.upsertBatches, lines)
	for _, incoming := range lines {
		merged := false
		for i, existing := range f.lines {
			if existing.TakeoffItemID == nil &&
				existing.ProjectID == incoming.ProjectID &&
				existing.Category == incoming.Category &&
				existing.MaterialName == incoming.MaterialName {
				f.lines[i].MaterialCode = incoming.MaterialCode
				f.lines[i].Quantity = incoming.Quantity
				f.lines[i].Unit = incoming.Unit
				merged = true
				break
			}
		}
		if !merged {
			incoming.ID = uuid.New()
			f.lines = append(f.lines, incoming)
		}
	}
	return nil
}

func (f *fakeEstimateRepo) ListByProject(_ context.Context, projectID uuid.UUID) ([]models.EstimateLine, error) {
	var out []models.EstimateLine
	for _, line := range f.lines {
		if line.ProjectID == projectID {
			out = append(out, line)
		}
	}
	return out, nil
}

func (f *fakeEstimateRepo) FindLine(_ context.Context, lineID uuid.UUID) (*models.EstimateLine, error) {
	for i := range f.lines {
		if f.lines[i].ID == lineID {
			return &f.lines[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeEstimateRepo) CreateLine(_ context.Context, line *models.EstimateLine) error {
	line.ID = uuid.New()
	f.lines = append(f.lines, *line)
	return nil
}

func (f *fakeEstimateRepo) UpdateUnitPrice(_ context.Context, lineID uuid.UUID, price decimal.Decimal) error {
	for i := range f.lines {
		if f.lines[i].ID == lineID {
			f.lines[i].UnitPrice = price
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type fakeBudgetRepo struct {
	rows []models.BudgetLine
}

func (f *fakeBudgetRepo) ListByProject(_ context.Context, projectID uuid.UUID) ([]models.BudgetLine, error) {
	var out []models.BudgetLine
	for _, row := range f.rows {
		if row.ProjectID == projectID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeBudgetRepo) Create(_ context.Context, line *models.BudgetLine) error {
	f.rows = append(f.rows, *line)
	return nil
}

type fakeTakeoffRepo struct {
	items []models.TakeoffItem
}

func (f *fakeTakeoffRepo) WithTx(_ *gorm.DB) takeoff.Repository { return f }
func (f *fakeTakeoffRepo) CreateItem(_ context.Context, _ *models.TakeoffItem) error {
	return fmt.Errorf("not implemented")
}
func (f *fakeTakeoffRepo) CreateDetail(_ context.Context, _ *models.TakeoffDetail) error {
	return fmt.Errorf("not implemented")
}
func (f *fakeTakeoffRepo) FindItem(_ context.Context, _ uuid.UUID) (*models.TakeoffItem, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeTakeoffRepo) UpdateNormCode(_ context.Context, _ uuid.UUID, _ *string) error {
	return fmt.Errorf("not implemented")
}
func (f *fakeTakeoffRepo) ListByProject(_ context.Context, _ uuid.UUID) ([]models.TakeoffItem, error) {
	return f.items, nil
}
func (f *fakeTakeoffRepo) ListActiveWithNorm(_ context.Context, projectID uuid.UUID) ([]models.TakeoffItem, error) {
	var out []models.TakeoffItem
	for _, item := range f.items {
		if item.ProjectID == projectID && item.IsActive && item.NormCode != nil {
			out = append(out, item)
		}
	}
	return out, nil
}

type fakeNormRepo struct {
	norms map[string]*models.Norm
}

func (f *fakeNormRepo) FindByCode(_ context.Context, code string) (*models.Norm, error) {
	if norm, ok := f.norms[code]; ok {
		return norm, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeNormRepo) List(_ context.Context) ([]models.Norm, error) {
	var out []models.Norm
	for _, norm := range f.norms {
		out = append(out, *norm)
	}
	return out, nil
}

type fixture struct {
	svc       Service
	repo      *fakeEstimateRepo
	budgets   *fakeBudgetRepo
	items     *fakeTakeoffRepo
	norms     *fakeNormRepo
	projectID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := &fakeEstimateRepo{}
	budgets := &fakeBudgetRepo{}
	items := &fakeTakeoffRepo{}
	norms := &fakeNormRepo{norms: map[string]*models.Norm{}}
	svc, err := NewService(passthroughTx{}, repo, budgets, items, norms, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{
		svc:       svc,
		repo:      repo,
		budgets:   budgets,
		items:     items,
		norms:     norms,
		projectID: uuid.New(),
	}
}

func resourceFixture(code string, group enums.ResourceGroup, price float64) *models.Resource {
	return &models.Resource{
		ID:        uuid.New(),
		Code:      code,
		Name:      "resource " + code,
		Unit:      "kg",
		GroupCode: group,
		UnitPrice: decimal.NewFromFloat(price),
	}
}

func (f *fixture) addNorm(code string, details ...models.NormDetail) {
	f.norms.norms[code] = &models.Norm{
		ID:      uuid.New(),
		Code:    code,
		Name:    "norm " + code,
		Unit:    "m2",
		Details: details,
	}
}

func (f *fixture) addMappedItem(name, normCode string, factor float64) *models.TakeoffItem {
	item := models.TakeoffItem{
		ID:        uuid.New(),
		ProjectID: f.projectID,
		Name:      name,
		Unit:      "m2",
		NormCode:  &normCode,
		IsActive:  true,
		Details: []models.TakeoffDetail{
			{QuantityFactor: decimal.NewFromFloat(factor)},
		},
	}
	f.items.items = append(f.items.items, item)
	return &f.items.items[len(f.items.items)-1]
}

func TestResolveExpandsNormDeterministically(t *testing.T) {
	f := newFixture(t)
	resourceA := resourceFixture("MAT-001", enums.ResourceGroupMaterial, 12)
	resourceB := resourceFixture("NC-001", enums.ResourceGroupLabor, 30)
	f.addNorm("15.001",
		models.NormDetail{ResourceID: resourceA.ID, Quantity: decimal.NewFromFloat(2.0), Resource: resourceA},
		models.NormDetail{ResourceID: resourceB.ID, Quantity: decimal.NewFromFloat(0.5), Resource: resourceB},
	)
	f.addMappedItem("Blockwork", "15.001", 10)

	result, err := f.svc.ResolveTakeoff(context.Background(), f.projectID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.LinesWritten != 2 || result.ItemsResolved != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	lines, _ := f.repo.ListByProject(context.Background(), f.projectID)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	byCode := map[string]models.EstimateLine{}
	for _, line := range lines {
		byCode[line.MaterialCode] = line
	}

	lineA := byCode["MAT-001"]
	if !lineA.Quantity.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected quantity 20, got %s", lineA.Quantity)
	}
	if !lineA.TotalCost().Equal(decimal.NewFromInt(240)) {
		t.Fatalf("expected total 240, got %s", lineA.TotalCost())
	}
	if lineA.SectionName != enums.EstimateSectionMaterials {
		t.Fatalf("material resource should land in materials, got %s", lineA.SectionName)
	}
	if lineA.Category != "[15.001] Blockwork" {
		t.Fatalf("unexpected category %q", lineA.Category)
	}

	lineB := byCode["NC-001"]
	if !lineB.Quantity.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected quantity 5, got %s", lineB.Quantity)
	}
	if !lineB.TotalCost().Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected total 150, got %s", lineB.TotalCost())
	}
	if lineB.SectionName != enums.EstimateSectionLabor {
		t.Fatalf("NC resource should land in labor, got %s", lineB.SectionName)
	}
}

func TestResolveDanglingCodeEmitsUnmappedLine(t *testing.T) {
	f := newFixture(t)
	resource := resourceFixture("MAT-001", enums.ResourceGroupMaterial, 12)
	f.addNorm("15.001",
		models.NormDetail{ResourceID: resource.ID, Quantity: decimal.NewFromInt(1), Resource: resource},
	)
	f.addMappedItem("Blockwork", "15.001", 10)
	f.addMappedItem("Mystery works", "99.999", 7)

	result, err := f.svc.ResolveTakeoff(context.Background(), f.projectID)
	if err != nil {
		t.Fatalf("a dangling code must not fail the run: %v", err)
	}
	if result.ItemsUnmapped != 1 || result.ItemsResolved != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	lines, _ := f.repo.ListByProject(context.Background(), f.projectID)
	var unmapped []models.EstimateLine
	for _, line := range lines {
		if !line.IsMapped {
			unmapped = append(unmapped, line)
		}
	}
	if len(unmapped) != 1 {
		t.Fatalf("expected exactly one unmapped line, got %d", len(unmapped))
	}
	got := unmapped[0]
	if got.SectionName != enums.EstimateSectionUnmapped {
		t.Fatalf("expected unmapped section, got %s", got.SectionName)
	}
	if !got.Quantity.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("unmapped line should carry the rolled-up quantity, got %s", got.Quantity)
	}
	if got.MaterialName != "UNMAPPED: Mystery works" {
		t.Fatalf("material name should be flagged, got %q", got.MaterialName)
	}
	if got.Category != "[99.999] Mystery works" {
		t.Fatalf("unexpected category %q", got.Category)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	f := newFixture(t)
	resource := resourceFixture("MAT-001", enums.ResourceGroupMaterial, 12)
	f.addNorm("15.001",
		models.NormDetail{ResourceID: resource.ID, Quantity: decimal.NewFromInt(2), Resource: resource},
	)
	f.addMappedItem("Blockwork", "15.001", 10)

	ctx := context.Background()
	if _, err := f.svc.ResolveTakeoff(ctx, f.projectID); err != nil {
		t.Fatal(err)
	}
	first, _ := f.repo.ListByProject(ctx, f.projectID)

	second, err := f.svc.ResolveTakeoff(ctx, f.projectID)
	if err != nil {
		t.Fatal(err)
	}
	if second.LinesDeleted != int64(len(first)) {
		t.Fatalf("second run should replace the first run's %d lines, deleted %d", len(first), second.LinesDeleted)
	}

	after, _ := f.repo.ListByProject(ctx, f.projectID)
	if len(after) != len(first) {
		t.Fatalf("line count changed across runs: %d vs %d", len(first), len(after))
	}
	for i := range after {
		a, b := first[i], after[i]
		if a.Category != b.Category || a.MaterialName != b.MaterialName ||
			!a.Quantity.Equal(b.Quantity) || !a.UnitPrice.Equal(b.UnitPrice) {
			t.Fatalf("content drifted across identical runs: %+v vs %+v", a, b)
		}
	}
}

func TestResolveNothingToResolveLeavesLedgerUntouched(t *testing.T) {
	f := newFixture(t)
	itemID := uuid.New()
	f.repo.lines = append(f.repo.lines,
		models.EstimateLine{ID: uuid.New(), ProjectID: f.projectID, Category: "manual", MaterialName: "Rebar", UnitPrice: decimal.NewFromInt(5)},
		models.EstimateLine{ID: uuid.New(), ProjectID: f.projectID, Category: "old", MaterialName: "Sand", TakeoffItemID: &itemID},
	)

	_, err := f.svc.ResolveTakeoff(context.Background(), f.projectID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if f.repo.deleteCalls != 0 {
		t.Fatal("fail-fast run must not delete anything")
	}
	if len(f.repo.lines) != 2 {
		t.Fatalf("ledger changed: %d lines", len(f.repo.lines))
	}
}

func TestResolveInsertFailureRollsBackDelete(t *testing.T) {
	f := newFixture(t)
	resource := resourceFixture("MAT-001", enums.ResourceGroupMaterial, 12)
	f.addNorm("15.001",
		models.NormDetail{ResourceID: resource.ID, Quantity: decimal.NewFromInt(2), Resource: resource},
	)
	f.addMappedItem("Blockwork", "15.001", 10)
	f.repo.insertErr = fmt.Errorf("disk full")

	_, err := f.svc.ResolveTakeoff(context.Background(), f.projectID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestResolvePreservesManualPriceForZeroPricedResource(t *testing.T) {
	f := newFixture(t)
	unpriced := resourceFixture("MAT-002", enums.ResourceGroupMaterial, 0)
	f.addNorm("15.002",
		models.NormDetail{ResourceID: unpriced.ID, Quantity: decimal.NewFromInt(1), Resource: unpriced},
	)
	f.addMappedItem("Plaster", "15.002", 3)

	// The estimator priced this material by hand on a previous run.
	oldItemID := uuid.New()
	f.repo.lines = append(f.repo.lines, models.EstimateLine{
		ID:            uuid.New(),
		ProjectID:     f.projectID,
		Category:      "[15.002] Plaster",
		MaterialName:  unpriced.Name,
		UnitPrice:     decimal.NewFromFloat(8.75),
		TakeoffItemID: &oldItemID,
	})

	if _, err := f.svc.ResolveTakeoff(context.Background(), f.projectID); err != nil {
		t.Fatal(err)
	}
	lines, _ := f.repo.ListByProject(context.Background(), f.projectID)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if !lines[0].UnitPrice.Equal(decimal.NewFromFloat(8.75)) {
		t.Fatalf("hand-entered price lost: got %s", lines[0].UnitPrice)
	}
}

func TestSyncBudgetPreservesEditedPrice(t *testing.T) {
	f := newFixture(t)
	f.budgets.rows = append(f.budgets.rows, models.BudgetLine{
		ProjectID:    f.projectID,
		Category:     "Concrete",
		MaterialName: "Cement",
		Quantity:     decimal.NewFromInt(100),
		Unit:         "bag",
	})

	ctx := context.Background()
	if _, err := f.svc.SyncBudget(ctx, f.projectID); err != nil {
		t.Fatal(err)
	}

	lines, _ := f.repo.ListByProject(ctx, f.projectID)
	if len(lines) != 1 || !lines[0].UnitPrice.IsZero() {
		t.Fatalf("first sync should land with zero price: %+v", lines)
	}

	// Estimator types in a price, then the sync re-runs unchanged.
	if _, err := f.svc.UpdateUnitPrice(ctx, lines[0].ID, decimal.NewFromFloat(6.20)); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.SyncBudget(ctx, f.projectID); err != nil {
		t.Fatal(err)
	}

	lines, _ = f.repo.ListByProject(ctx, f.projectID)
	if len(lines) != 1 {
		t.Fatalf("resync must merge, not duplicate: %d lines", len(lines))
	}
	if !lines[0].UnitPrice.Equal(decimal.NewFromFloat(6.20)) {
		t.Fatalf("edited price lost on resync: %s", lines[0].UnitPrice)
	}
}

func TestSyncBudgetFallsBackToNameOnlyPrice(t *testing.T) {
	f := newFixture(t)
	// Existing manual line under a different category still lends its price.
	f.repo.lines = append(f.repo.lines, models.EstimateLine{
		ID:           uuid.New(),
		ProjectID:    f.projectID,
		Category:     "Old category",
		MaterialName: "Cement",
		UnitPrice:    decimal.NewFromFloat(6.20),
	})
	f.budgets.rows = append(f.budgets.rows, models.BudgetLine{
		ProjectID:    f.projectID,
		Category:     "Concrete",
		MaterialName: "Cement",
		Quantity:     decimal.NewFromInt(50),
	})

	if _, err := f.svc.SyncBudget(context.Background(), f.projectID); err != nil {
		t.Fatal(err)
	}
	batch := f.repo.upsertBatches[0]
	if len(batch) != 1 {
		t.Fatalf("expected 1 upserted row, got %d", len(batch))
	}
	if !batch[0].UnitPrice.Equal(decimal.NewFromFloat(6.20)) {
		t.Fatalf("name-only fallback price not applied: %s", batch[0].UnitPrice)
	}
}

func TestSyncBudgetNoRowsFailsFast(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.SyncBudget(context.Background(), f.projectID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestSyncBudgetCollapsesDuplicateMergeKeys(t *testing.T) {
	f := newFixture(t)
	f.budgets.rows = append(f.budgets.rows,
		models.BudgetLine{ProjectID: f.projectID, Category: "Concrete", MaterialName: "Cement", Quantity: decimal.NewFromInt(10)},
		models.BudgetLine{ProjectID: f.projectID, Category: "Concrete", MaterialName: "Cement", Quantity: decimal.NewFromInt(25)},
	)

	result, err := f.svc.SyncBudget(context.Background(), f.projectID)
	if err != nil {
		t.Fatal(err)
	}
	if result.LinesWritten != 1 {
		t.Fatalf("duplicate keys must collapse before the upsert, wrote %d", result.LinesWritten)
	}
	if got := f.repo.upsertBatches[0][0].Quantity; !got.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("last occurrence should win, got %s", got)
	}
}

func TestListComputesTotals(t *testing.T) {
	f := newFixture(t)
	f.repo.lines = append(f.repo.lines,
		models.EstimateLine{ID: uuid.New(), ProjectID: f.projectID, Category: "a", MaterialName: "x",
			Quantity: decimal.NewFromInt(4), UnitPrice: decimal.NewFromFloat(2.5)},
		models.EstimateLine{ID: uuid.New(), ProjectID: f.projectID, Category: "b", MaterialName: "y",
			Quantity: decimal.NewFromInt(3), UnitPrice: decimal.NewFromInt(10)},
	)

	ledger, err := f.svc.List(context.Background(), f.projectID)
	if err != nil {
		t.Fatal(err)
	}
	if !ledger.Lines[0].TotalCost.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected line total 10, got %s", ledger.Lines[0].TotalCost)
	}
	if !ledger.TotalCost.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("expected grand total 40, got %s", ledger.TotalCost)
	}
}

func TestUpdateUnitPriceUnknownLine(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.UpdateUnitPrice(context.Background(), uuid.New(), decimal.NewFromInt(1))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateManualLineDefaultsToFreeform(t *testing.T) {
	f := newFixture(t)
	line, err := f.svc.CreateManualLine(context.Background(), f.projectID, CreateLineInput{
		Category:     "Site works",
		MaterialName: "Crane rental",
		Quantity:     decimal.NewFromInt(2),
		Unit:         "day",
		UnitPrice:    decimal.NewFromInt(900),
	})
	if err != nil {
		t.Fatal(err)
	}
	if line.SectionName != enums.EstimateSectionFreeform {
		t.Fatalf("expected freeform section, got %s", line.SectionName)
	}
	if line.TakeoffItemID != nil {
		t.Fatal("manual line must not carry a takeoff back-reference")
	}
}
