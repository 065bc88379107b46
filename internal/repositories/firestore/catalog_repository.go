package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/iterator"

	domain "github.com/vintora/catalog-api/internal/domain"
	pfirestore "github.com/vintora/catalog-api/internal/platform/firestore"
	"github.com/vintora/catalog-api/internal/repositories"
)

const (
	attributeCollection       = "attributes"
	optionCollection          = "attributeOptions"
	categoryCollection        = "categories"
	brandCollection           = "brands"
	brandCollectionCollection = "brandCollections"
)

// CatalogRepository reads the reference entities edits are validated against.
type CatalogRepository struct {
	provider    *pfirestore.Provider
	attributes  *pfirestore.BaseRepository[attributeDocument]
	options     *pfirestore.BaseRepository[optionDocument]
	categories  *pfirestore.BaseRepository[categoryDocument]
	brands      *pfirestore.BaseRepository[brandDocument]
	collections *pfirestore.BaseRepository[brandCollectionDocument]
}

// NewCatalogRepository constructs a Firestore-backed catalog repository.
func NewCatalogRepository(provider *pfirestore.Provider) (*CatalogRepository, error) {
	if provider == nil {
		return nil, errors.New("catalog repository requires firestore provider")
	}
	return &CatalogRepository{
		provider:    provider,
		attributes:  pfirestore.NewBaseRepository[attributeDocument](provider, attributeCollection, nil),
		options:     pfirestore.NewBaseRepository[optionDocument](provider, optionCollection, nil),
		categories:  pfirestore.NewBaseRepository[categoryDocument](provider, categoryCollection, nil),
		brands:      pfirestore.NewBaseRepository[brandDocument](provider, brandCollection, nil),
		collections: pfirestore.NewBaseRepository[brandCollectionDocument](provider, brandCollectionCollection, nil),
	}, nil
}

// GetAttribute loads an attribute definition by ID.
func (r *CatalogRepository) GetAttribute(ctx context.Context, attributeID string) (domain.Attribute, error) {
	if r == nil || r.attributes == nil {
		return domain.Attribute{}, errors.New("catalog repository not initialised")
	}
	id := strings.TrimSpace(attributeID)
	if id == "" {
		return domain.Attribute{}, errors.New("catalog repository: attribute id is required")
	}
	doc, err := r.attributes.Get(ctx, id)
	if err != nil {
		return domain.Attribute{}, err
	}
	return doc.toDomain(id), nil
}

// ListOptions returns every option in the given option tree.
func (r *CatalogRepository) ListOptions(ctx context.Context, optionsGroupID string) ([]domain.Option, error) {
	if r == nil || r.options == nil {
		return nil, errors.New("catalog repository not initialised")
	}
	groupID := strings.TrimSpace(optionsGroupID)
	if groupID == "" {
		return nil, errors.New("catalog repository: options group id is required")
	}

	coll, err := r.options.CollectionRef(ctx)
	if err != nil {
		return nil, err
	}
	iter := coll.Where("groupId", "==", groupID).Documents(ctx)
	defer iter.Stop()

	var options []domain.Option
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("catalog.listOptions", err)
		}
		var doc optionDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode option %s: %w", snap.Ref.ID, err)
		}
		options = append(options, doc.toDomain(snap.Ref.ID))
	}
	return options, nil
}

// GetCategory loads a category node by ID.
func (r *CatalogRepository) GetCategory(ctx context.Context, categoryID string) (domain.Category, error) {
	if r == nil || r.categories == nil {
		return domain.Category{}, errors.New("catalog repository not initialised")
	}
	id := strings.TrimSpace(categoryID)
	if id == "" {
		return domain.Category{}, errors.New("catalog repository: category id is required")
	}
	doc, err := r.categories.Get(ctx, id)
	if err != nil {
		return domain.Category{}, err
	}
	return doc.toDomain(id), nil
}

// ListRubricCategories returns every category belonging to a rubric.
func (r *CatalogRepository) ListRubricCategories(ctx context.Context, rubricID string) ([]domain.Category, error) {
	if r == nil || r.categories == nil {
		return nil, errors.New("catalog repository not initialised")
	}
	id := strings.TrimSpace(rubricID)
	if id == "" {
		return nil, errors.New("catalog repository: rubric id is required")
	}

	coll, err := r.categories.CollectionRef(ctx)
	if err != nil {
		return nil, err
	}

	iter := coll.Where("rubricId", "==", id).Documents(ctx)
	defer iter.Stop()

	var categories []domain.Category
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("catalog.rubricCategories", err)
		}
		var doc categoryDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode category %s: %w", snap.Ref.ID, err)
		}
		categories = append(categories, doc.toDomain(snap.Ref.ID))
	}
	return categories, nil
}

// GetBrand loads a brand by ID.
func (r *CatalogRepository) GetBrand(ctx context.Context, brandID string) (domain.Brand, error) {
	if r == nil || r.brands == nil {
		return domain.Brand{}, errors.New("catalog repository not initialised")
	}
	id := strings.TrimSpace(brandID)
	if id == "" {
		return domain.Brand{}, errors.New("catalog repository: brand id is required")
	}
	doc, err := r.brands.Get(ctx, id)
	if err != nil {
		return domain.Brand{}, err
	}
	return domain.Brand{ID: id, Slug: doc.Slug, NameI18n: domain.LocalizedString(doc.NameI18n).Clone()}, nil
}

// GetBrandCollection loads a brand collection by ID.
func (r *CatalogRepository) GetBrandCollection(ctx context.Context, collectionID string) (domain.BrandCollection, error) {
	if r == nil || r.collections == nil {
		return domain.BrandCollection{}, errors.New("catalog repository not initialised")
	}
	id := strings.TrimSpace(collectionID)
	if id == "" {
		return domain.BrandCollection{}, errors.New("catalog repository: brand collection id is required")
	}
	doc, err := r.collections.Get(ctx, id)
	if err != nil {
		return domain.BrandCollection{}, err
	}
	return domain.BrandCollection{
		ID:        id,
		Slug:      doc.Slug,
		BrandSlug: doc.BrandSlug,
		NameI18n:  domain.LocalizedString(doc.NameI18n).Clone(),
	}, nil
}

var _ repositories.CatalogRepository = (*CatalogRepository)(nil)

type attributeDocument struct {
	Slug           string            `firestore:"slug"`
	NameI18n       map[string]string `firestore:"nameI18n,omitempty"`
	Variant        string            `firestore:"variant"`
	OptionsGroupID string            `firestore:"optionsGroupId,omitempty"`
	CreatedAt      time.Time         `firestore:"createdAt"`
	UpdatedAt      time.Time         `firestore:"updatedAt"`
}

func (d attributeDocument) toDomain(id string) domain.Attribute {
	return domain.Attribute{
		ID:             id,
		Slug:           d.Slug,
		NameI18n:       domain.LocalizedString(d.NameI18n).Clone(),
		Variant:        domain.AttributeVariant(d.Variant),
		OptionsGroupID: d.OptionsGroupID,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

type optionDocument struct {
	Slug     string            `firestore:"slug"`
	GroupID  string            `firestore:"groupId"`
	ParentID string            `firestore:"parentId,omitempty"`
	NameI18n map[string]string `firestore:"nameI18n,omitempty"`
}

func (d optionDocument) toDomain(id string) domain.Option {
	return domain.Option{
		ID:       id,
		Slug:     d.Slug,
		ParentID: d.ParentID,
		NameI18n: domain.LocalizedString(d.NameI18n).Clone(),
	}
}

type categoryDocument struct {
	Slug          string            `firestore:"slug"`
	RubricID      string            `firestore:"rubricId"`
	ParentID      string            `firestore:"parentId,omitempty"`
	ParentTreeIDs []string          `firestore:"parentTreeIds,omitempty"`
	NameI18n      map[string]string `firestore:"nameI18n,omitempty"`
}

func (d categoryDocument) toDomain(id string) domain.Category {
	return domain.Category{
		ID:            id,
		Slug:          d.Slug,
		RubricID:      d.RubricID,
		ParentID:      d.ParentID,
		ParentTreeIDs: append([]string(nil), d.ParentTreeIDs...),
		NameI18n:      domain.LocalizedString(d.NameI18n).Clone(),
	}
}

type brandDocument struct {
	Slug     string            `firestore:"slug"`
	NameI18n map[string]string `firestore:"nameI18n,omitempty"`
}

type brandCollectionDocument struct {
	Slug      string            `firestore:"slug"`
	BrandSlug string            `firestore:"brandSlug"`
	NameI18n  map[string]string `firestore:"nameI18n,omitempty"`
}
