package handlers

import (
	"time"

	domain "github.com/vintora/catalog-api/internal/domain"
)

type productAttributeView struct {
	ID                string            `json:"id"`
	AttributeID       string            `json:"attributeId"`
	AttributeSlug     string            `json:"attributeSlug"`
	OptionIDs         []string          `json:"optionIds,omitempty"`
	OptionSlugs       []string          `json:"optionSlugs,omitempty"`
	TextI18n          map[string]string `json:"textI18n,omitempty"`
	Number            *float64          `json:"number,omitempty"`
	ReadableValueI18n map[string]string `json:"readableValueI18n,omitempty"`
	FilterSlugs       []string          `json:"filterSlugs,omitempty"`
}

type variantProductView struct {
	ProductID string `json:"productId"`
	OptionID  string `json:"optionId"`
	IsCurrent bool   `json:"isCurrent,omitempty"`
}

type productVariantView struct {
	ID          string               `json:"id"`
	AttributeID string               `json:"attributeId"`
	Products    []variantProductView `json:"products"`
}

type productSummaryView struct {
	ID                  string                 `json:"id"`
	Slug                string                 `json:"slug"`
	ItemID              string                 `json:"itemId,omitempty"`
	RubricID            string                 `json:"rubricId"`
	CategorySlugs       []string               `json:"categorySlugs,omitempty"`
	TitleCategorySlugs  []string               `json:"titleCategorySlugs,omitempty"`
	BrandSlug           string                 `json:"brandSlug,omitempty"`
	BrandCollectionSlug string                 `json:"brandCollectionSlug,omitempty"`
	Attributes          []productAttributeView `json:"attributes,omitempty"`
	AttributeIDs        []string               `json:"attributeIds,omitempty"`
	FilterSlugs         []string               `json:"filterSlugs,omitempty"`
	Variants            []productVariantView   `json:"variants,omitempty"`
	SnippetTitleI18n    map[string]string      `json:"snippetTitleI18n,omitempty"`
	CreatedAt           time.Time              `json:"createdAt,omitempty"`
	UpdatedAt           time.Time              `json:"updatedAt,omitempty"`
}

func buildProductSummaryView(summary domain.ProductSummary) productSummaryView {
	view := productSummaryView{
		ID:                  summary.ID,
		Slug:                summary.Slug,
		ItemID:              summary.ItemID,
		RubricID:            summary.RubricID,
		CategorySlugs:       summary.CategorySlugs,
		TitleCategorySlugs:  summary.TitleCategorySlugs,
		BrandSlug:           summary.BrandSlug,
		BrandCollectionSlug: summary.BrandCollectionSlug,
		AttributeIDs:        summary.AttributeIDs,
		FilterSlugs:         summary.FilterSlugs,
		SnippetTitleI18n:    summary.SnippetTitleI18n,
		CreatedAt:           summary.CreatedAt,
		UpdatedAt:           summary.UpdatedAt,
	}
	for _, attribute := range summary.Attributes {
		view.Attributes = append(view.Attributes, productAttributeView{
			ID:                attribute.ID,
			AttributeID:       attribute.AttributeID,
			AttributeSlug:     attribute.AttributeSlug,
			OptionIDs:         attribute.OptionIDs,
			OptionSlugs:       attribute.OptionSlugs,
			TextI18n:          attribute.TextI18n,
			Number:            attribute.Number,
			ReadableValueI18n: attribute.ReadableValueI18n,
			FilterSlugs:       attribute.FilterSlugs,
		})
	}
	for _, variant := range summary.Variants {
		variantView := productVariantView{
			ID:          variant.ID,
			AttributeID: variant.AttributeID,
		}
		for _, product := range variant.Products {
			variantView.Products = append(variantView.Products, variantProductView{
				ProductID: product.ProductID,
				OptionID:  product.OptionID,
				IsCurrent: product.IsCurrent,
			})
		}
		view.Variants = append(view.Variants, variantView)
	}
	return view
}

type summaryDiffView struct {
	Added   map[string][]string `json:"added,omitempty"`
	Updated map[string][]string `json:"updated,omitempty"`
	Deleted map[string][]string `json:"deleted,omitempty"`
}

func buildSummaryDiffView(diff domain.SummaryDiff) summaryDiffView {
	return summaryDiffView{
		Added:   diffGroupsToStrings(diff.Added),
		Updated: diffGroupsToStrings(diff.Updated),
		Deleted: diffGroupsToStrings(diff.Deleted),
	}
}

func diffGroupsToStrings(groups map[domain.DiffGroup][]string) map[string][]string {
	if len(groups) == 0 {
		return nil
	}
	result := make(map[string][]string, len(groups))
	for group, ids := range groups {
		result[string(group)] = ids
	}
	return result
}

type taskLogView struct {
	ID          string          `json:"id"`
	Diff        summaryDiffView `json:"diff"`
	PrevState   string          `json:"prevState,omitempty"`
	NextState   string          `json:"nextState,omitempty"`
	CreatedByID string          `json:"createdById,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type taskView struct {
	ID          string              `json:"id"`
	NameI18n    map[string]string   `json:"nameI18n,omitempty"`
	CompanySlug string              `json:"companySlug,omitempty"`
	State       string              `json:"state"`
	CreatedByID string              `json:"createdById,omitempty"`
	ExecutorID  string              `json:"executorId"`
	ProductID   string              `json:"productId"`
	VariantSlug string              `json:"variantSlug,omitempty"`
	Log         []taskLogView       `json:"log,omitempty"`
	Draft       *productSummaryView `json:"draft,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// buildTaskView flattens the task for the back-office board. The full log is
// included only when withLog is set; list responses stay shallow.
func buildTaskView(task domain.Task, withLog bool) taskView {
	view := taskView{
		ID:          task.ID,
		NameI18n:    task.NameI18n,
		CompanySlug: task.CompanySlug,
		State:       string(task.State),
		CreatedByID: task.CreatedByID,
		ExecutorID:  task.ExecutorID,
		ProductID:   task.ProductID,
		VariantSlug: task.VariantSlug,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
	if !withLog {
		return view
	}
	for _, entry := range task.Log {
		view.Log = append(view.Log, taskLogView{
			ID:          entry.ID,
			Diff:        buildSummaryDiffView(entry.Diff),
			PrevState:   string(entry.PrevState),
			NextState:   string(entry.NextState),
			CreatedByID: entry.CreatedByID,
			CreatedAt:   entry.CreatedAt,
		})
	}
	if draft, ok := task.LatestDraft(); ok {
		draftView := buildProductSummaryView(draft)
		view.Draft = &draftView
	}
	return view
}
