package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/brickline/estimator-backend/pkg/db/models"
	"github.com/brickline/estimator-backend/pkg/enums"
	pkgerrors "github.com/brickline/estimator-backend/pkg/errors"
	"github.com/brickline/estimator-backend/pkg/logger"
)

// DefaultCodePrefix is used when resource creation does not name one.
const DefaultCodePrefix = "RES"

// CreateResourceInput is the payload for adding a priceable catalog entry.
type CreateResourceInput struct {
	Name       string          `json:"name" validate:"required"`
	Unit       string          `json:"unit" validate:"required"`
	GroupCode  string          `json:"group_code" validate:"required"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	CodePrefix string          `json:"code_prefix"`
}

// Service exposes catalog reads plus resource creation with code allocation.
type Service interface {
	ListNorms(ctx context.Context) ([]models.Norm, error)
	GetNorm(ctx context.Context, code string) (*models.Norm, error)
	ListResources(ctx context.Context) ([]models.Resource, error)
	CreateResource(ctx context.Context, input CreateResourceInput) (*models.Resource, error)
}

type service struct {
	norms     NormRepository
	resources ResourceRepository
	logg      *logger.Logger
}

func NewService(norms NormRepository, resources ResourceRepository, logg *logger.Logger) (Service, error) {
	if norms == nil {
		return nil, fmt.Errorf("norm repository required")
	}
	if resources == nil {
		return nil, fmt.Errorf("resource repository required")
	}
	return &service{norms: norms, resources: resources, logg: logg}, nil
}

func (s *service) ListNorms(ctx context.Context) ([]models.Norm, error) {
	norms, err := s.norms.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing norms")
	}
	return norms, nil
}

func (s *service) GetNorm(ctx context.Context, code string) (*models.Norm, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "norm code is required")
	}
	norm, err := s.norms.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "norm not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading norm")
	}
	return norm, nil
}

func (s *service) ListResources(ctx context.Context) ([]models.Resource, error) {
	resources, err := s.resources.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing resources")
	}
	return resources, nil
}

func (s *service) CreateResource(ctx context.Context, input CreateResourceInput) (*models.Resource, error) {
	group, err := enums.ParseResourceGroup(input.GroupCode)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid group code")
	}
	if input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}

	prefix := strings.ToUpper(strings.TrimSpace(input.CodePrefix))
	if prefix == "" {
		prefix = DefaultCodePrefix
	}

	resource := &models.Resource{
		Name:      strings.TrimSpace(input.Name),
		Unit:      strings.TrimSpace(input.Unit),
		GroupCode: group,
		UnitPrice: input.UnitPrice,
	}
	_, err = allocateCode(ctx, s.resources, prefix, func(code string) error {
		resource.Code = code
		return s.resources.Create(ctx, resource)
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating resource")
	}
	return resource, nil
}
