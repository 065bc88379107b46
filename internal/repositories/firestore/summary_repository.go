package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	domain "github.com/vintora/catalog-api/internal/domain"
	pfirestore "github.com/vintora/catalog-api/internal/platform/firestore"
	"github.com/vintora/catalog-api/internal/repositories"
)

const (
	summaryCollection     = "productSummaries"
	facetCollection       = "productFacets"
	shopProductCollection = "shopProducts"
)

// SummaryRepository persists product summaries together with their facet and
// shop product projections.
type SummaryRepository struct {
	provider  *pfirestore.Provider
	summaries *pfirestore.BaseRepository[summaryDocument]
	facets    *pfirestore.BaseRepository[facetDocument]
	shops     *pfirestore.BaseRepository[shopProductDocument]
}

// NewSummaryRepository constructs a Firestore-backed summary repository.
func NewSummaryRepository(provider *pfirestore.Provider) (*SummaryRepository, error) {
	if provider == nil {
		return nil, errors.New("summary repository requires firestore provider")
	}
	return &SummaryRepository{
		provider:  provider,
		summaries: pfirestore.NewBaseRepository[summaryDocument](provider, summaryCollection, nil),
		facets:    pfirestore.NewBaseRepository[facetDocument](provider, facetCollection, nil),
		shops:     pfirestore.NewBaseRepository[shopProductDocument](provider, shopProductCollection, nil),
	}, nil
}

// FindByID loads the canonical summary for a product.
func (r *SummaryRepository) FindByID(ctx context.Context, productID string) (domain.ProductSummary, error) {
	if r == nil || r.summaries == nil {
		return domain.ProductSummary{}, errors.New("summary repository not initialised")
	}
	id := strings.TrimSpace(productID)
	if id == "" {
		return domain.ProductSummary{}, errors.New("summary repository: product id is required")
	}

	doc, err := r.summaries.Get(ctx, id)
	if err != nil {
		return domain.ProductSummary{}, err
	}
	return doc.toDomain(id), nil
}

// WriteThrough persists the summary and rewrites the projections named by the
// write set inside one transaction. The transaction reads the product's shop
// listings first so Firestore's read-before-write rule holds.
func (r *SummaryRepository) WriteThrough(ctx context.Context, req repositories.WriteThroughRequest) (domain.ProductSummary, error) {
	if r == nil || r.provider == nil {
		return domain.ProductSummary{}, errors.New("summary repository not initialised")
	}
	id := strings.TrimSpace(req.Summary.ID)
	if id == "" {
		return domain.ProductSummary{}, errors.New("summary repository: product id is required")
	}
	if !req.Stores.Summary {
		return domain.ProductSummary{}, errors.New("summary repository: write set must include the summary")
	}

	now := req.Now.UTC()
	if now.IsZero() {
		now = time.Now().UTC()
	}

	summary := req.Summary.Clone()
	summary.UpdatedAt = now

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		summaryRef, err := r.summaries.DocumentRef(ctx, id)
		if err != nil {
			return err
		}
		snap, err := tx.Get(summaryRef)
		if err != nil {
			return err
		}
		var current summaryDocument
		if err := snap.DataTo(&current); err != nil {
			return err
		}
		if summary.CreatedAt.IsZero() {
			summary.CreatedAt = current.CreatedAt
		}

		var shopRefs []*firestore.DocumentRef
		var shopDocs []shopProductDocument
		if req.Stores.ShopProducts {
			coll, err := r.shops.CollectionRef(ctx)
			if err != nil {
				return err
			}
			iter := tx.Documents(coll.Where("productId", "==", id))
			defer iter.Stop()
			for {
				shopSnap, err := iter.Next()
				if errors.Is(err, iterator.Done) {
					break
				}
				if err != nil {
					return err
				}
				var shopDoc shopProductDocument
				if err := shopSnap.DataTo(&shopDoc); err != nil {
					return err
				}
				shopRefs = append(shopRefs, shopSnap.Ref)
				shopDocs = append(shopDocs, shopDoc)
			}
		}

		if err := tx.Set(summaryRef, newSummaryDocument(summary)); err != nil {
			return err
		}

		if req.Stores.Facet {
			facetRef, err := r.facets.DocumentRef(ctx, id)
			if err != nil {
				return err
			}
			if err := tx.Set(facetRef, newFacetDocument(summary, now)); err != nil {
				return err
			}
		}

		for i, ref := range shopRefs {
			doc := shopDocs[i]
			doc.ItemID = summary.ItemID
			doc.RubricID = summary.RubricID
			doc.CategorySlugs = append([]string(nil), summary.CategorySlugs...)
			doc.BrandSlug = summary.BrandSlug
			doc.BrandCollectionSlug = summary.BrandCollectionSlug
			doc.AttributeIDs = append([]string(nil), summary.AttributeIDs...)
			doc.FilterSlugs = append([]string(nil), summary.FilterSlugs...)
			doc.UpdatedAt = now
			if err := tx.Set(ref, doc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.ProductSummary{}, pfirestore.WrapError("summary.writeThrough", err)
	}
	return summary, nil
}

var _ repositories.SummaryRepository = (*SummaryRepository)(nil)

type summaryDocument struct {
	Slug                string                     `firestore:"slug"`
	ItemID              string                     `firestore:"itemId,omitempty"`
	RubricID            string                     `firestore:"rubricId"`
	CategorySlugs       []string                   `firestore:"categorySlugs,omitempty"`
	TitleCategorySlugs  []string                   `firestore:"titleCategorySlugs,omitempty"`
	BrandSlug           string                     `firestore:"brandSlug,omitempty"`
	BrandCollectionSlug string                     `firestore:"brandCollectionSlug,omitempty"`
	Attributes          []productAttributeDocument `firestore:"attributes,omitempty"`
	AttributeIDs        []string                   `firestore:"attributeIds,omitempty"`
	FilterSlugs         []string                   `firestore:"filterSlugs,omitempty"`
	Variants            []productVariantDocument   `firestore:"variants,omitempty"`
	SnippetTitleI18n    map[string]string          `firestore:"snippetTitleI18n,omitempty"`
	CreatedAt           time.Time                  `firestore:"createdAt"`
	UpdatedAt           time.Time                  `firestore:"updatedAt"`
}

type productAttributeDocument struct {
	ID                string            `firestore:"id"`
	AttributeID       string            `firestore:"attributeId"`
	AttributeSlug     string            `firestore:"attributeSlug"`
	OptionIDs         []string          `firestore:"optionIds,omitempty"`
	OptionSlugs       []string          `firestore:"optionSlugs,omitempty"`
	TextI18n          map[string]string `firestore:"textI18n,omitempty"`
	Number            *float64          `firestore:"number,omitempty"`
	ReadableValueI18n map[string]string `firestore:"readableValueI18n,omitempty"`
	FilterSlugs       []string          `firestore:"filterSlugs,omitempty"`
}

type productVariantDocument struct {
	ID          string                   `firestore:"id"`
	AttributeID string                   `firestore:"attributeId"`
	Products    []variantProductDocument `firestore:"products,omitempty"`
}

type variantProductDocument struct {
	ProductID string `firestore:"productId"`
	OptionID  string `firestore:"optionId"`
	IsCurrent bool   `firestore:"isCurrent"`
}

type facetDocument struct {
	Slug                string    `firestore:"slug"`
	ItemID              string    `firestore:"itemId,omitempty"`
	RubricID            string    `firestore:"rubricId"`
	CategorySlugs       []string  `firestore:"categorySlugs,omitempty"`
	BrandSlug           string    `firestore:"brandSlug,omitempty"`
	BrandCollectionSlug string    `firestore:"brandCollectionSlug,omitempty"`
	AttributeIDs        []string  `firestore:"attributeIds,omitempty"`
	FilterSlugs         []string  `firestore:"filterSlugs,omitempty"`
	UpdatedAt           time.Time `firestore:"updatedAt"`
}

type shopProductDocument struct {
	ShopID              string    `firestore:"shopId"`
	ProductID           string    `firestore:"productId"`
	ItemID              string    `firestore:"itemId,omitempty"`
	RubricID            string    `firestore:"rubricId"`
	CategorySlugs       []string  `firestore:"categorySlugs,omitempty"`
	BrandSlug           string    `firestore:"brandSlug,omitempty"`
	BrandCollectionSlug string    `firestore:"brandCollectionSlug,omitempty"`
	AttributeIDs        []string  `firestore:"attributeIds,omitempty"`
	FilterSlugs         []string  `firestore:"filterSlugs,omitempty"`
	Available           int       `firestore:"available"`
	Price               int64     `firestore:"price"`
	UpdatedAt           time.Time `firestore:"updatedAt"`
}

func newSummaryDocument(summary domain.ProductSummary) summaryDocument {
	doc := summaryDocument{
		Slug:                summary.Slug,
		ItemID:              summary.ItemID,
		RubricID:            summary.RubricID,
		CategorySlugs:       append([]string(nil), summary.CategorySlugs...),
		TitleCategorySlugs:  append([]string(nil), summary.TitleCategorySlugs...),
		BrandSlug:           summary.BrandSlug,
		BrandCollectionSlug: summary.BrandCollectionSlug,
		AttributeIDs:        append([]string(nil), summary.AttributeIDs...),
		FilterSlugs:         append([]string(nil), summary.FilterSlugs...),
		SnippetTitleI18n:    summary.SnippetTitleI18n,
		CreatedAt:           summary.CreatedAt.UTC(),
		UpdatedAt:           summary.UpdatedAt.UTC(),
	}
	for _, attr := range summary.Attributes {
		doc.Attributes = append(doc.Attributes, productAttributeDocument{
			ID:                attr.ID,
			AttributeID:       attr.AttributeID,
			AttributeSlug:     attr.AttributeSlug,
			OptionIDs:         append([]string(nil), attr.OptionIDs...),
			OptionSlugs:       append([]string(nil), attr.OptionSlugs...),
			TextI18n:          attr.TextI18n,
			Number:            attr.Number,
			ReadableValueI18n: attr.ReadableValueI18n,
			FilterSlugs:       append([]string(nil), attr.FilterSlugs...),
		})
	}
	for _, variant := range summary.Variants {
		variantDoc := productVariantDocument{
			ID:          variant.ID,
			AttributeID: variant.AttributeID,
		}
		for _, product := range variant.Products {
			variantDoc.Products = append(variantDoc.Products, variantProductDocument{
				ProductID: product.ProductID,
				OptionID:  product.OptionID,
				IsCurrent: product.IsCurrent,
			})
		}
		doc.Variants = append(doc.Variants, variantDoc)
	}
	return doc
}

func newFacetDocument(summary domain.ProductSummary, now time.Time) facetDocument {
	return facetDocument{
		Slug:                summary.Slug,
		ItemID:              summary.ItemID,
		RubricID:            summary.RubricID,
		CategorySlugs:       append([]string(nil), summary.CategorySlugs...),
		BrandSlug:           summary.BrandSlug,
		BrandCollectionSlug: summary.BrandCollectionSlug,
		AttributeIDs:        append([]string(nil), summary.AttributeIDs...),
		FilterSlugs:         append([]string(nil), summary.FilterSlugs...),
		UpdatedAt:           now,
	}
}

func (d summaryDocument) toDomain(id string) domain.ProductSummary {
	summary := domain.ProductSummary{
		ID:                  id,
		Slug:                d.Slug,
		ItemID:              d.ItemID,
		RubricID:            d.RubricID,
		CategorySlugs:       append([]string(nil), d.CategorySlugs...),
		TitleCategorySlugs:  append([]string(nil), d.TitleCategorySlugs...),
		BrandSlug:           d.BrandSlug,
		BrandCollectionSlug: d.BrandCollectionSlug,
		AttributeIDs:        append([]string(nil), d.AttributeIDs...),
		FilterSlugs:         append([]string(nil), d.FilterSlugs...),
		SnippetTitleI18n:    domain.LocalizedString(d.SnippetTitleI18n).Clone(),
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
	for _, attr := range d.Attributes {
		summary.Attributes = append(summary.Attributes, domain.ProductAttribute{
			ID:                attr.ID,
			AttributeID:       attr.AttributeID,
			AttributeSlug:     attr.AttributeSlug,
			OptionIDs:         append([]string(nil), attr.OptionIDs...),
			OptionSlugs:       append([]string(nil), attr.OptionSlugs...),
			TextI18n:          domain.LocalizedString(attr.TextI18n).Clone(),
			Number:            attr.Number,
			ReadableValueI18n: domain.LocalizedString(attr.ReadableValueI18n).Clone(),
			FilterSlugs:       append([]string(nil), attr.FilterSlugs...),
		})
	}
	for _, variant := range d.Variants {
		domainVariant := domain.ProductVariant{
			ID:          variant.ID,
			AttributeID: variant.AttributeID,
		}
		for _, product := range variant.Products {
			domainVariant.Products = append(domainVariant.Products, domain.VariantProduct{
				ProductID: product.ProductID,
				OptionID:  product.OptionID,
				IsCurrent: product.IsCurrent,
			})
		}
		summary.Variants = append(summary.Variants, domainVariant)
	}
	return summary
}
