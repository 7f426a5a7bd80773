package homepage

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/crumbhouse/bakery-backend/internal/products"
	"github.com/crumbhouse/bakery-backend/pkg/db"
	"github.com/crumbhouse/bakery-backend/pkg/db/models"
	"github.com/crumbhouse/bakery-backend/pkg/enums"
	pkgerrors "github.com/crumbhouse/bakery-backend/pkg/errors"
)

const categorySectionLimit = 12

// Service arranges the storefront homepage.
type Service interface {
	Public(ctx context.Context) ([]PublicSection, error)
	List(ctx context.Context) ([]SectionDTO, error)
	Create(ctx context.Context, input SectionInput) (*SectionDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateSectionInput) (*SectionDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Reorder(ctx context.Context, ids []uuid.UUID) ([]SectionDTO, error)
}

type sectionRepository interface {
	Create(ctx context.Context, section *models.HomepageSection) error
	Update(ctx context.Context, section *models.HomepageSection) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.HomepageSection, error)
	List(ctx context.Context, visibleOnly bool) ([]models.HomepageSection, error)
	NextPosition(ctx context.Context) (int, error)
	Reorder(ctx context.Context, ids []uuid.UUID) error
}

type productLookup interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
	List(ctx context.Context, filter products.ListFilter) ([]models.Product, error)
}

type service struct {
	sections sectionRepository
	products productLookup
}

func NewService(sections sectionRepository, catalog productLookup) (Service, error) {
	if sections == nil {
		return nil, fmt.Errorf("section repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	return &service{sections: sections, products: catalog}, nil
}

// Public returns visible sections with their available products. Featured
// sections keep the admin's product order; unknown or unavailable ids are dropped.
func (s *service) Public(ctx context.Context) ([]PublicSection, error) {
	rows, err := s.sections.List(ctx, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list sections")
	}

	featured := make([]uuid.UUID, 0)
	for _, row := range rows {
		if row.Kind == enums.SectionKindFeatured {
			featured = append(featured, parseIDs(row.ProductIDs)...)
		}
	}
	byID, err := s.products.FindByIDs(ctx, featured)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load featured products")
	}

	out := make([]PublicSection, 0, len(rows))
	for _, row := range rows {
		section := PublicSection{
			ID:       row.ID,
			Title:    row.Title,
			Kind:     row.Kind,
			Category: row.Category,
			Products: []products.ProductDTO{},
		}
		switch row.Kind {
		case enums.SectionKindFeatured:
			for _, id := range parseIDs(row.ProductIDs) {
				if p, ok := byID[id]; ok && p.IsAvailable {
					section.Products = append(section.Products, products.FromModel(&p))
				}
			}
		case enums.SectionKindCategory:
			if row.Category == nil {
				break
			}
			list, err := s.products.List(ctx, products.ListFilter{
				Category:      *row.Category,
				AvailableOnly: true,
				Limit:         categorySectionLimit,
			})
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load category products")
			}
			if len(list) > categorySectionLimit {
				list = list[:categorySectionLimit]
			}
			for i := range list {
				section.Products = append(section.Products, products.FromModel(&list[i]))
			}
		}
		out = append(out, section)
	}
	return out, nil
}

func (s *service) List(ctx context.Context) ([]SectionDTO, error) {
	rows, err := s.sections.List(ctx, false)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list sections")
	}
	return toDTOs(rows), nil
}

func (s *service) Create(ctx context.Context, input SectionInput) (*SectionDTO, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	visible := true
	if input.Visible != nil {
		visible = *input.Visible
	}
	position, err := s.sections.NextPosition(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve section position")
	}

	section := &models.HomepageSection{
		Title:      title,
		Kind:       input.Kind,
		Category:   normalizeCategory(input.Category),
		ProductIDs: normalizeIDs(input.ProductIDs),
		Position:   position,
		Visible:    visible,
	}
	if err := validateSection(section); err != nil {
		return nil, err
	}
	if err := s.sections.Create(ctx, section); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create section")
	}
	dto := FromModel(section)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateSectionInput) (*SectionDTO, error) {
	section, err := s.sections.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "section not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load section")
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		section.Title = title
	}
	if input.Category != nil {
		section.Category = normalizeCategory(input.Category)
	}
	if input.ProductIDs != nil {
		section.ProductIDs = normalizeIDs(*input.ProductIDs)
	}
	if input.Visible != nil {
		section.Visible = *input.Visible
	}
	if err := validateSection(section); err != nil {
		return nil, err
	}
	if err := s.sections.Update(ctx, section); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update section")
	}
	dto := FromModel(section)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.sections.Delete(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "section not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete section")
	}
	return nil
}

// Reorder requires ids to name every section exactly once.
func (s *service) Reorder(ctx context.Context, ids []uuid.UUID) ([]SectionDTO, error) {
	current, err := s.sections.List(ctx, false)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list sections")
	}
	if len(ids) != len(current) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "section_ids must list every section once").
			WithDetails(map[string]any{"expected": len(current), "got": len(ids)})
	}
	known := make(map[uuid.UUID]bool, len(current))
	for _, row := range current {
		known[row.ID] = false
	}
	for _, id := range ids {
		seen, ok := known[id]
		if !ok || seen {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "section_ids must list every section once").
				WithDetails(map[string]any{"section_id": id.String()})
		}
		known[id] = true
	}

	if err := s.sections.Reorder(ctx, ids); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sections changed during reorder")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reorder sections")
	}
	return s.List(ctx)
}

func validateSection(section *models.HomepageSection) error {
	if !section.Kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "kind must be featured, category or banner")
	}
	switch section.Kind {
	case enums.SectionKindCategory:
		if section.Category == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "category sections need a category")
		}
	case enums.SectionKindFeatured:
		if len(section.ProductIDs) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "featured sections need product_ids")
		}
	}
	return nil
}

func normalizeCategory(category *string) *string {
	if category == nil {
		return nil
	}
	value := strings.ToLower(strings.TrimSpace(*category))
	if value == "" {
		return nil
	}
	return &value
}

func normalizeIDs(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, id := range parseIDs(raw) {
		out = append(out, id.String())
	}
	return out
}

func parseIDs(raw []string) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(raw))
	seen := make(map[uuid.UUID]struct{}, len(raw))
	for _, value := range raw {
		id, err := uuid.Parse(strings.TrimSpace(value))
		if err != nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func toDTOs(rows []models.HomepageSection) []SectionDTO {
	out := make([]SectionDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out
}
