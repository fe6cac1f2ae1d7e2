package takeoff

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brickline/estimator-backend/pkg/db/models"
	"github.com/brickline/estimator-backend/pkg/enums"
	pkgerrors "github.com/brickline/estimator-backend/pkg/errors"
	"github.com/brickline/estimator-backend/pkg/logger"
)

// ExtractedDetail mirrors one measurement row in the extraction payload.
// Numeric fields absent in source arrive as 0, never null.
type ExtractedDetail struct {
	Explanation    string          `json:"explanation"`
	QuantityFactor decimal.Decimal `json:"quantity_factor"`
	Length         decimal.Decimal `json:"length"`
	Width          decimal.Decimal `json:"width"`
	Height         decimal.Decimal `json:"height"`
}

// ExtractedItem mirrors one takeoff item in the extraction payload.
// NormCode always arrives null; mapping happens after ingestion.
type ExtractedItem struct {
	ItemName string            `json:"item_name"`
	NormCode *string           `json:"norm_code"`
	Unit     string            `json:"unit"`
	Details  []ExtractedDetail `json:"details"`
}

// ExtractedSection mirrors one section of the extraction payload.
type ExtractedSection struct {
	SectionName string          `json:"section_name"`
	Items       []ExtractedItem `json:"items"`
}

// IngestResult reports how much of an extraction batch landed. Partial
// success is the expected common case for externally produced payloads.
type IngestResult struct {
	SectionsCreated int `json:"sections_created"`
	SectionsSkipped int `json:"sections_skipped"`
	ItemsCreated    int `json:"items_created"`
	ItemsSkipped    int `json:"items_skipped"`
	DetailsCreated  int `json:"details_created"`
	DetailsSkipped  int `json:"details_skipped"`
}

// ItemView is a takeoff item with its roll-up, shaped for the takeoff screen.
type ItemView struct {
	ID       uuid.UUID              `json:"id"`
	ParentID *uuid.UUID             `json:"parent_id,omitempty"`
	Name     string                 `json:"name"`
	Unit     string                 `json:"unit"`
	NormCode *string                `json:"norm_code,omitempty"`
	ItemType enums.TakeoffItemType  `json:"item_type"`
	Quantity decimal.Decimal        `json:"quantity"`
	Details  []models.TakeoffDetail `json:"details,omitempty"`
}

// Service exposes takeoff tree operations.
type Service interface {
	IngestExtraction(ctx context.Context, projectID uuid.UUID, sections []ExtractedSection) (IngestResult, error)
	AssignNorm(ctx context.Context, itemID uuid.UUID, normCode string) error
	List(ctx context.Context, projectID uuid.UUID) ([]ItemView, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires a takeoff service with the provided repository.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("takeoff repository required")
	}
	return &service{repo: repo, logg: logg}, nil
}

// IngestExtraction inserts the extraction payload section by section. A bad
// section or detail row is logged and skipped; the batch never aborts as a
// whole. Norm codes are always stored null at ingestion time regardless of
// what the payload carries.
func (s *service) IngestExtraction(ctx context.Context, projectID uuid.UUID, sections []ExtractedSection) (IngestResult, error) {
	if projectID == uuid.Nil {
		return IngestResult{}, pkgerrors.New(pkgerrors.CodeValidation, "project id is required")
	}

	var result IngestResult
	for pos, section := range sections {
		name := strings.TrimSpace(section.SectionName)
		if name == "" {
			name = fmt.Sprintf("Section %d", pos+1)
		}

		sectionItem := &models.TakeoffItem{
			ProjectID: projectID,
			Name:      name,
			ItemType:  enums.TakeoffItemTypeSection,
			Position:  pos,
			IsActive:  true,
		}
		if err := s.repo.CreateItem(ctx, sectionItem); err != nil {
			result.SectionsSkipped++
			s.logError(ctx, "takeoff.ingest.section_skipped", name, err)
			continue
		}
		result.SectionsCreated++

		for itemPos, extracted := range section.Items {
			item := &models.TakeoffItem{
				ProjectID: projectID,
				ParentID:  &sectionItem.ID,
				Name:      strings.TrimSpace(extracted.ItemName),
				Unit:      strings.TrimSpace(extracted.Unit),
				NormCode:  nil,
				ItemType:  enums.TakeoffItemTypeItem,
				Position:  itemPos,
				IsActive:  true,
			}
			if err := s.repo.CreateItem(ctx, item); err != nil {
				result.ItemsSkipped++
				s.logError(ctx, "takeoff.ingest.item_skipped", extracted.ItemName, err)
				continue
			}
			result.ItemsCreated++

			for _, row := range extracted.Details {
				detail := &models.TakeoffDetail{
					TakeoffItemID:  item.ID,
					Explanation:    row.Explanation,
					QuantityFactor: row.QuantityFactor,
					Length:         row.Length,
					Width:          row.Width,
					Height:         row.Height,
				}
				if err := s.repo.CreateDetail(ctx, detail); err != nil {
					result.DetailsSkipped++
					s.logError(ctx, "takeoff.ingest.detail_skipped", extracted.ItemName, err)
					continue
				}
				result.DetailsCreated++
			}
		}
	}

	return result, nil
}

func (s *service) AssignNorm(ctx context.Context, itemID uuid.UUID, normCode string) error {
	if itemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}

	if _, err := s.repo.FindItem(ctx, itemID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "takeoff item not found")
	}

	code := strings.TrimSpace(normCode)
	var value *string
	if code != "" {
		value = &code
	}
	if err := s.repo.UpdateNormCode(ctx, itemID, value); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating norm code")
	}
	return nil
}

func (s *service) List(ctx context.Context, projectID uuid.UUID) ([]ItemView, error) {
	if projectID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id is required")
	}

	items, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing takeoff items")
	}

	views := make([]ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, ItemView{
			ID:       item.ID,
			ParentID: item.ParentID,
			Name:     item.Name,
			Unit:     item.Unit,
			NormCode: item.NormCode,
			ItemType: item.ItemType,
			Quantity: RollupQuantity(item.Details),
			Details:  item.Details,
		})
	}
	return views, nil
}

func (s *service) logError(ctx context.Context, msg, subject string, err error) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithField(ctx, "subject", subject)
	s.logg.Error(ctx, msg, err)
}
