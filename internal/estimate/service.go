package estimate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/brickline/estimator-backend/internal/catalog"
	"github.com/brickline/estimator-backend/internal/takeoff"
	"github.com/brickline/estimator-backend/pkg/db"
	"github.com/brickline/estimator-backend/pkg/db/models"
	"github.com/brickline/estimator-backend/pkg/enums"
	pkgerrors "github.com/brickline/estimator-backend/pkg/errors"
	"github.com/brickline/estimator-backend/pkg/logger"
	"github.com/brickline/estimator-backend/pkg/metrics"
)

const (
	pipelineResolve = "resolve"
	pipelineBudget  = "budget"

	unmappedNamePrefix = "UNMAPPED: "
)

// TxRunner runs a function inside one database transaction. db.Client
// satisfies it; service tests substitute a pass-through.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// SyncResult reports the outcome of a resolution or budget sync run.
type SyncResult struct {
	LinesWritten  int    `json:"lines_written"`
	LinesDeleted  int64  `json:"lines_deleted"`
	ItemsResolved int    `json:"items_resolved"`
	ItemsUnmapped int    `json:"items_unmapped"`
	Message       string `json:"message"`
}

// CreateLineInput is the payload for a hand-entered ledger row.
type CreateLineInput struct {
	Category     string          `json:"category" validate:"required"`
	MaterialCode string          `json:"material_code"`
	MaterialName string          `json:"material_name" validate:"required"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	SectionName  string          `json:"section_name"`
}

// LineView is one ledger row as the pricing screens consume it. TotalCost is
// recomputed on every read, never stored.
type LineView struct {
	ID            uuid.UUID             `json:"id"`
	Category      string                `json:"category"`
	MaterialCode  string                `json:"material_code"`
	MaterialName  string                `json:"material_name"`
	Quantity      decimal.Decimal       `json:"quantity"`
	Unit          string                `json:"unit"`
	UnitPrice     decimal.Decimal       `json:"unit_price"`
	TotalCost     decimal.Decimal       `json:"total_cost"`
	SectionName   enums.EstimateSection `json:"section_name"`
	IsMapped      bool                  `json:"is_mapped"`
	TakeoffItemID *uuid.UUID            `json:"takeoff_item_id,omitempty"`
}

// Ledger is the full priced view of one project's estimate.
type Ledger struct {
	Lines     []LineView      `json:"lines"`
	TotalCost decimal.Decimal `json:"total_cost"`
}

// Service runs the cost resolution engine and the budget sync pipeline.
type Service interface {
	ResolveTakeoff(ctx context.Context, projectID uuid.UUID) (SyncResult, error)
	SyncBudget(ctx context.Context, projectID uuid.UUID) (SyncResult, error)
	List(ctx context.Context, projectID uuid.UUID) (Ledger, error)
	CreateManualLine(ctx context.Context, projectID uuid.UUID, input CreateLineInput) (*models.EstimateLine, error)
	UpdateUnitPrice(ctx context.Context, lineID uuid.UUID, price decimal.Decimal) (*models.EstimateLine, error)
}

type service struct {
	tx      TxRunner
	repo    Repository
	budgets BudgetRepository
	items   takeoff.Repository
	norms   catalog.NormRepository
	syncs   *metrics.SyncMetrics
	logg    *logger.Logger
}

func NewService(
	tx TxRunner,
	repo Repository,
	budgets BudgetRepository,
	items takeoff.Repository,
	norms catalog.NormRepository,
	syncs *metrics.SyncMetrics,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("estimate repository required")
	}
	if budgets == nil {
		return nil, fmt.Errorf("budget repository required")
	}
	if items == nil {
		return nil, fmt.Errorf("takeoff repository required")
	}
	if norms == nil {
		return nil, fmt.Errorf("norm repository required")
	}
	return &service{
		tx:      tx,
		repo:    repo,
		budgets: budgets,
		items:   items,
		norms:   norms,
		syncs:   syncs,
		logg:    logg,
	}, nil
}

// ResolveTakeoff expands every active norm-tagged takeoff item into priced
// ledger lines and replaces the project's derived rows with the new set. The
// delete and the bulk insert share one transaction so a failed run leaves the
// ledger exactly as it was. Manual rows are never touched.
func (s *service) ResolveTakeoff(ctx context.Context, projectID uuid.UUID) (SyncResult, error) {
	started := time.Now()
	result, err := s.resolveTakeoff(ctx, projectID)
	s.observe(pipelineResolve, started, result, err)
	return result, err
}

func (s *service) resolveTakeoff(ctx context.Context, projectID uuid.UUID) (SyncResult, error) {
	if projectID == uuid.Nil {
		return SyncResult{}, pkgerrors.New(pkgerrors.CodeValidation, "project id is required")
	}
	ctx = s.withProject(ctx, projectID)

	items, err := s.items.ListActiveWithNorm(ctx, projectID)
	if err != nil {
		return SyncResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading takeoff items")
	}
	if len(items) == 0 {
		return SyncResult{}, pkgerrors.New(pkgerrors.CodeStateConflict,
			"nothing to resolve: assign norm codes to takeoff items first")
	}

	byKey, byName, err := s.priceSnapshot(ctx, projectID)
	if err != nil {
		return SyncResult{}, err
	}

	var result SyncResult
	batch := make([]models.EstimateLine, 0, len(items))
	for i := range items {
		item := items[i]
		quantity := takeoff.RollupQuantity(item.Details)
		code := strings.TrimSpace(derefString(item.NormCode))
		category := fmt.Sprintf("[%s] %s", code, item.Name)

		norm, err := s.norms.FindByCode(ctx, code)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Degrade, don't fail: a dangling code must surface as a
			// visible unpriced line instead of silently dropping its cost.
			batch = append(batch, s.unmappedLine(item, category, quantity, byKey, byName))
			result.ItemsUnmapped++
			if s.logg != nil {
				s.logg.Warn(s.logg.WithField(ctx, "norm_code", code), "estimate.resolve.norm_not_found")
			}
			continue
		}
		if err != nil {
			return SyncResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading norm "+code)
		}

		for _, nd := range norm.Details {
			if nd.Resource == nil {
				continue
			}
			resource := nd.Resource
			price := resource.UnitPrice
			if price.IsZero() {
				price = preservedPrice(byKey, byName, category, resource.Name)
			}
			batch = append(batch, models.EstimateLine{
				ProjectID:     projectID,
				Category:      category,
				MaterialCode:  resource.Code,
				MaterialName:  resource.Name,
				Quantity:      quantity.Mul(nd.Quantity),
				Unit:          resource.Unit,
				UnitPrice:     price,
				SectionName:   resource.GroupCode.Section(),
				IsMapped:      true,
				TakeoffItemID: &item.ID,
			})
		}
		result.ItemsResolved++
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		deleted, err := repo.DeleteDerived(ctx, projectID)
		if err != nil {
			return fmt.Errorf("deleting derived lines: %w", err)
		}
		result.LinesDeleted = deleted
		if err := repo.BulkInsert(ctx, batch); err != nil {
			return fmt.Errorf("inserting derived lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return SyncResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolution transaction failed")
	}

	result.LinesWritten = len(batch)
	result.Message = fmt.Sprintf("resolved %d takeoff items into %d estimate lines (%d unmapped)",
		result.ItemsResolved+result.ItemsUnmapped, result.LinesWritten, result.ItemsUnmapped)
	return result, nil
}

// SyncBudget merges the project's material budget into the ledger through a
// single batched upsert keyed by (project_id, category, material_name).
// Quantities and units follow the budget; a hand-entered unit price always
// wins over the incoming zero.
func (s *service) SyncBudget(ctx context.Context, projectID uuid.UUID) (SyncResult, error) {
	started := time.Now()
	result, err := s.syncBudget(ctx, projectID)
	s.observe(pipelineBudget, started, result, err)
	return result, err
}

func (s *service) syncBudget(ctx context.Context, projectID uuid.UUID) (SyncResult, error) {
	if projectID == uuid.Nil {
		return SyncResult{}, pkgerrors.New(pkgerrors.CodeValidation, "project id is required")
	}
	ctx = s.withProject(ctx, projectID)

	budgetRows, err := s.budgets.ListByProject(ctx, projectID)
	if err != nil {
		return SyncResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading budget rows")
	}
	if len(budgetRows) == 0 {
		return SyncResult{}, pkgerrors.New(pkgerrors.CodeStateConflict,
			"nothing to sync: import the material budget first")
	}

	byKey, byName, err := s.priceSnapshot(ctx, projectID)
	if err != nil {
		return SyncResult{}, err
	}

	// One upsert statement cannot touch the same row twice, so duplicate
	// merge keys in the source collapse to the last occurrence.
	deduped := make(map[string]models.EstimateLine, len(budgetRows))
	order := make([]string, 0, len(budgetRows))
	for _, row := range budgetRows {
		key := mergeKey(row.Category, row.MaterialName)
		if _, seen := deduped[key]; !seen {
			order = append(order, key)
		}
		deduped[key] = models.EstimateLine{
			ProjectID:    projectID,
			Category:     row.Category,
			MaterialCode: row.MaterialCode,
			MaterialName: row.MaterialName,
			Quantity:     row.Quantity,
			Unit:         row.Unit,
			UnitPrice:    preservedPrice(byKey, byName, row.Category, row.MaterialName),
			SectionName:  enums.EstimateSectionMaterials,
			IsMapped:     true,
		}
	}
	batch := make([]models.EstimateLine, 0, len(deduped))
	for _, key := range order {
		batch = append(batch, deduped[key])
	}

	if err := s.repo.UpsertMergeBatch(ctx, batch); err != nil {
		return SyncResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "budget upsert failed")
	}

	return SyncResult{
		LinesWritten: len(batch),
		Message:      fmt.Sprintf("synced %d budget rows into the estimate", len(batch)),
	}, nil
}

func (s *service) List(ctx context.Context, projectID uuid.UUID) (Ledger, error) {
	if projectID == uuid.Nil {
		return Ledger{}, pkgerrors.New(pkgerrors.CodeValidation, "project id is required")
	}

	lines, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		return Ledger{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing estimate lines")
	}

	ledger := Ledger{Lines: make([]LineView, 0, len(lines)), TotalCost: decimal.Zero}
	for _, line := range lines {
		total := line.TotalCost()
		ledger.TotalCost = ledger.TotalCost.Add(total)
		ledger.Lines = append(ledger.Lines, LineView{
			ID:            line.ID,
			Category:      line.Category,
			MaterialCode:  line.MaterialCode,
			MaterialName:  line.MaterialName,
			Quantity:      line.Quantity,
			Unit:          line.Unit,
			UnitPrice:     line.UnitPrice,
			TotalCost:     total,
			SectionName:   line.SectionName,
			IsMapped:      line.IsMapped,
			TakeoffItemID: line.TakeoffItemID,
		})
	}
	return ledger, nil
}

func (s *service) CreateManualLine(ctx context.Context, projectID uuid.UUID, input CreateLineInput) (*models.EstimateLine, error) {
	if projectID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id is required")
	}
	if input.Quantity.IsNegative() || input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity and unit price cannot be negative")
	}
	section := enums.EstimateSectionFreeform
	if raw := strings.TrimSpace(input.SectionName); raw != "" {
		parsed, err := enums.ParseEstimateSection(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid section name")
		}
		section = parsed
	}

	line := &models.EstimateLine{
		ProjectID:    projectID,
		Category:     strings.TrimSpace(input.Category),
		MaterialCode: strings.TrimSpace(input.MaterialCode),
		MaterialName: strings.TrimSpace(input.MaterialName),
		Quantity:     input.Quantity,
		Unit:         strings.TrimSpace(input.Unit),
		UnitPrice:    input.UnitPrice,
		SectionName:  section,
		IsMapped:     section != enums.EstimateSectionUnmapped,
	}
	if err := s.repo.CreateLine(ctx, line); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict,
				"a line with this category and material name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating estimate line")
	}
	return line, nil
}

func (s *service) UpdateUnitPrice(ctx context.Context, lineID uuid.UUID, price decimal.Decimal) (*models.EstimateLine, error) {
	if lineID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line id is required")
	}
	if price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}

	if _, err := s.repo.FindLine(ctx, lineID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "estimate line not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading estimate line")
	}
	if err := s.repo.UpdateUnitPrice(ctx, lineID, price); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating unit price")
	}
	line, err := s.repo.FindLine(ctx, lineID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading estimate line")
	}
	return line, nil
}

// priceSnapshot builds the two price-preservation lookup maps from the
// project's current lines before anything is deleted or overwritten: the
// composite (category, material_name) key, plus material_name alone to cover
// rows whose category changed. Zero prices carry no information and are
// skipped.
func (s *service) priceSnapshot(ctx context.Context, projectID uuid.UUID) (map[string]decimal.Decimal, map[string]decimal.Decimal, error) {
	lines, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading current estimate lines")
	}
	byKey := make(map[string]decimal.Decimal, len(lines))
	byName := make(map[string]decimal.Decimal, len(lines))
	for _, line := range lines {
		if line.UnitPrice.IsZero() {
			continue
		}
		byKey[mergeKey(line.Category, line.MaterialName)] = line.UnitPrice
		byName[line.MaterialName] = line.UnitPrice
	}
	return byKey, byName, nil
}

func (s *service) unmappedLine(item models.TakeoffItem, category string, quantity decimal.Decimal, byKey, byName map[string]decimal.Decimal) models.EstimateLine {
	name := unmappedNamePrefix + item.Name
	return models.EstimateLine{
		ProjectID:     item.ProjectID,
		Category:      category,
		MaterialName:  name,
		Quantity:      quantity,
		Unit:          item.Unit,
		UnitPrice:     preservedPrice(byKey, byName, category, name),
		SectionName:   enums.EstimateSectionUnmapped,
		IsMapped:      false,
		TakeoffItemID: &item.ID,
	}
}

func (s *service) observe(pipeline string, started time.Time, result SyncResult, err error) {
	s.syncs.ObserveDuration(pipeline, time.Since(started))
	if err != nil {
		s.syncs.IncFailure(pipeline)
		return
	}
	s.syncs.IncSuccess(pipeline)
	s.syncs.AddLines(pipeline, result.LinesWritten)
}

func (s *service) withProject(ctx context.Context, projectID uuid.UUID) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithProjectID(ctx, projectID.String())
}

func preservedPrice(byKey, byName map[string]decimal.Decimal, category, materialName string) decimal.Decimal {
	if price, ok := byKey[mergeKey(category, materialName)]; ok {
		return price
	}
	if price, ok := byName[materialName]; ok {
		return price
	}
	return decimal.Zero
}

func mergeKey(category, materialName string) string {
	return category + "\x1f" + materialName
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
