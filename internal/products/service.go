package products

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/crumbhouse/bakery-backend/pkg/db"
	"github.com/crumbhouse/bakery-backend/pkg/db/models"
	pkgerrors "github.com/crumbhouse/bakery-backend/pkg/errors"
	"github.com/crumbhouse/bakery-backend/pkg/pagination"
)

// Service exposes catalog reads and admin product management.
type Service interface {
	List(ctx context.Context, input ListInput) (pagination.Page[ProductDTO], error)
	GetBySlug(ctx context.Context, slug string) (*ProductDTO, error)
	Create(ctx context.Context, input ProductInput) (*ProductDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ListInput captures catalog listing filters. Admin listings include unavailable products.
type ListInput struct {
	Category        string
	Query           string
	IncludeUnlisted bool
	Pagination      pagination.Params
}

// ProductInput is the validated payload to create a product.
type ProductInput struct {
	Name        string       `json:"name" validate:"required,max=200"`
	Slug        string       `json:"slug,omitempty" validate:"omitempty,max=200"`
	Category    string       `json:"category" validate:"required,max=80"`
	Description *string      `json:"description,omitempty"`
	ImageURL    *string      `json:"image_url,omitempty" validate:"omitempty,url"`
	Variants    []VariantDTO `json:"variants" validate:"required,min=1,dive"`
	IsAvailable *bool        `json:"is_available,omitempty"`
}

// UpdateProductInput holds optional mutations for a product.
type UpdateProductInput struct {
	Name        *string       `json:"name,omitempty" validate:"omitempty,max=200"`
	Slug        *string       `json:"slug,omitempty" validate:"omitempty,max=200"`
	Category    *string       `json:"category,omitempty" validate:"omitempty,max=80"`
	Description *string       `json:"description,omitempty"`
	ImageURL    *string       `json:"image_url,omitempty" validate:"omitempty,url"`
	Variants    *[]VariantDTO `json:"variants,omitempty" validate:"omitempty,min=1,dive"`
	IsAvailable *bool         `json:"is_available,omitempty"`
}

type productRepository interface {
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindBySlug(ctx context.Context, slug string) (*models.Product, error)
	List(ctx context.Context, filter ListFilter) ([]models.Product, error)
}

type service struct {
	repo productRepository
}

// NewService builds the product service.
func NewService(repo productRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, input ListInput) (pagination.Page[ProductDTO], error) {
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return pagination.Page[ProductDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, ListFilter{
		Category:      strings.TrimSpace(input.Category),
		Query:         input.Query,
		AvailableOnly: !input.IncludeUnlisted,
		Cursor:        cursor,
		Limit:         input.Pagination.Limit,
	})
	if err != nil {
		return pagination.Page[ProductDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}

	page := pagination.Build(rows, input.Pagination.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	out := pagination.Page[ProductDTO]{Items: make([]ProductDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		out.Items = append(out.Items, FromModel(&page.Items[i]))
	}
	return out, nil
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*ProductDTO, error) {
	product, err := s.repo.FindBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	dto := FromModel(product)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, input ProductInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	slug := Slugify(input.Slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug could not be derived from name")
	}
	variants, err := toVariants(input.Variants)
	if err != nil {
		return nil, err
	}

	available := true
	if input.IsAvailable != nil {
		available = *input.IsAvailable
	}
	product := &models.Product{
		Name:        name,
		Slug:        slug,
		Category:    strings.ToLower(strings.TrimSpace(input.Category)),
		Description: input.Description,
		ImageURL:    input.ImageURL,
		Variants:    variants,
		IsAvailable: available,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, mapWriteError(err, "create product")
	}
	dto := FromModel(product)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		product.Name = name
	}
	if input.Slug != nil {
		slug := Slugify(*input.Slug)
		if slug == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug cannot be empty")
		}
		product.Slug = slug
	}
	if input.Category != nil {
		product.Category = strings.ToLower(strings.TrimSpace(*input.Category))
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.ImageURL != nil {
		product.ImageURL = input.ImageURL
	}
	if input.Variants != nil {
		variants, err := toVariants(*input.Variants)
		if err != nil {
			return nil, err
		}
		product.Variants = variants
	}
	if input.IsAvailable != nil {
		product.IsAvailable = *input.IsAvailable
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, mapWriteError(err, "update product")
	}
	dto := FromModel(product)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete product")
	}
	return nil
}

func toVariants(in []VariantDTO) ([]models.ProductVariant, error) {
	if len(in) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one variant is required")
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]models.ProductVariant, 0, len(in))
	for _, v := range in {
		label := strings.TrimSpace(v.Label)
		if label == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant label is required")
		}
		if _, dup := seen[label]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("duplicate variant %q", label))
		}
		if !v.Price.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("variant %q must have a positive price", label))
		}
		seen[label] = struct{}{}
		out = append(out, models.ProductVariant{Label: label, Price: v.Price.Round(2)})
	}
	return out, nil
}

func mapWriteError(err error, op string) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.New(pkgerrors.CodeConflict, "slug already in use")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases value and joins its alphanumeric runs with dashes.
func Slugify(value string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "-"), "-")
}
