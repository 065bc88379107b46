package services

import (
	"errors"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	domain "github.com/vintora/catalog-api/internal/domain"
	"github.com/vintora/catalog-api/internal/platform/i18n"
)

var (
	// ErrOptionNotFound reports a selected option missing from the attribute's option tree.
	ErrOptionNotFound = errors.New("diff engine: option not found")
	// ErrVariantTypeMismatch reports a variant creation against a non-select attribute.
	ErrVariantTypeMismatch = errors.New("diff engine: variant requires a select attribute")
	// ErrVariantDuplicate reports an attribute already used as a variant axis.
	ErrVariantDuplicate = errors.New("diff engine: attribute already used as variant axis")
)

// textPolicy strips all markup from free-text attribute values before they are
// diffed or persisted. Safe for concurrent use.
var textPolicy = bluemonday.StrictPolicy()

// diffBuilder accumulates field-group changes for one edit.
type diffBuilder struct {
	diff domain.SummaryDiff
}

func (b *diffBuilder) added(group domain.DiffGroup, values ...string) {
	if len(values) == 0 {
		return
	}
	if b.diff.Added == nil {
		b.diff.Added = make(map[domain.DiffGroup][]string)
	}
	b.diff.Added[group] = append(b.diff.Added[group], values...)
}

func (b *diffBuilder) updated(group domain.DiffGroup, values ...string) {
	if len(values) == 0 {
		return
	}
	if b.diff.Updated == nil {
		b.diff.Updated = make(map[domain.DiffGroup][]string)
	}
	b.diff.Updated[group] = append(b.diff.Updated[group], values...)
}

func (b *diffBuilder) deleted(group domain.DiffGroup, values ...string) {
	if len(values) == 0 {
		return
	}
	if b.diff.Deleted == nil {
		b.diff.Deleted = make(map[domain.DiffGroup][]string)
	}
	b.diff.Deleted[group] = append(b.diff.Deleted[group], values...)
}

func (b *diffBuilder) build() domain.SummaryDiff {
	return b.diff
}

// applyBrand replaces the brand and/or brand collection slugs. A nil pointer
// leaves the field untouched; an empty string clears it. The input summary is
// never mutated.
func applyBrand(summary domain.ProductSummary, brandSlug, collectionSlug *string) (domain.ProductSummary, domain.SummaryDiff, bool) {
	next := summary.Clone()
	var builder diffBuilder
	changed := false

	if brandSlug != nil {
		newSlug := strings.TrimSpace(*brandSlug)
		if newSlug != next.BrandSlug {
			switch {
			case next.BrandSlug == "":
				builder.added(domain.DiffGroupBrand, newSlug)
			case newSlug == "":
				builder.deleted(domain.DiffGroupBrand, next.BrandSlug)
			default:
				builder.updated(domain.DiffGroupBrand, newSlug)
			}
			next.BrandSlug = newSlug
			changed = true
		}
	}

	if collectionSlug != nil {
		newSlug := strings.TrimSpace(*collectionSlug)
		if newSlug != next.BrandCollectionSlug {
			switch {
			case next.BrandCollectionSlug == "":
				builder.added(domain.DiffGroupBrandCollection, newSlug)
			case newSlug == "":
				builder.deleted(domain.DiffGroupBrandCollection, next.BrandCollectionSlug)
			default:
				builder.updated(domain.DiffGroupBrandCollection, newSlug)
			}
			next.BrandCollectionSlug = newSlug
			changed = true
		}
	}

	return next, builder.build(), changed
}

// applyCategory toggles the product's membership in a category. Selecting a
// category pulls in its full ancestor chain. Deselecting removes only the
// toggled slug while a sibling under the same parent is still selected;
// otherwise the walk continues upward and removes every ancestor that has no
// other selected descendant left.
func applyCategory(summary domain.ProductSummary, target domain.Category, rubric []domain.Category, selected bool) (domain.ProductSummary, domain.SummaryDiff, bool) {
	next := summary.Clone()
	var builder diffBuilder

	byID := make(map[string]domain.Category, len(rubric))
	for _, category := range rubric {
		byID[category.ID] = category
	}

	current := make(map[string]bool, len(next.CategorySlugs))
	for _, slug := range next.CategorySlugs {
		current[slug] = true
	}

	if selected {
		var added []string
		for _, id := range target.ParentTreeIDs {
			node, ok := byID[id]
			if !ok {
				continue
			}
			if !current[node.Slug] {
				current[node.Slug] = true
				next.CategorySlugs = append(next.CategorySlugs, node.Slug)
				added = append(added, node.Slug)
			}
		}
		if !current[target.Slug] {
			current[target.Slug] = true
			next.CategorySlugs = append(next.CategorySlugs, target.Slug)
			added = append(added, target.Slug)
		}
		if len(added) == 0 {
			return summary, domain.SummaryDiff{}, false
		}
		builder.added(domain.DiffGroupCategories, added...)
		next.FilterSlugs = rebuildFilterSlugs(next)
		return next, builder.build(), true
	}

	if !current[target.Slug] {
		return summary, domain.SummaryDiff{}, false
	}

	removed := []string{target.Slug}
	delete(current, target.Slug)

	node := target
	for node.ParentID != "" {
		parent, ok := byID[node.ParentID]
		if !ok {
			break
		}
		// A surviving selected child keeps the ancestor chain alive.
		hasSelectedChild := false
		for _, category := range rubric {
			if category.ParentID == parent.ID && current[category.Slug] {
				hasSelectedChild = true
				break
			}
		}
		if hasSelectedChild {
			break
		}
		if current[parent.Slug] {
			delete(current, parent.Slug)
			removed = append(removed, parent.Slug)
		}
		node = parent
	}

	next.CategorySlugs = filterSlugList(next.CategorySlugs, current)
	builder.deleted(domain.DiffGroupCategories, removed...)

	var removedTitles []string
	keptTitles := next.TitleCategorySlugs[:0]
	for _, slug := range next.TitleCategorySlugs {
		if current[slug] {
			keptTitles = append(keptTitles, slug)
		} else {
			removedTitles = append(removedTitles, slug)
		}
	}
	next.TitleCategorySlugs = keptTitles
	if len(next.TitleCategorySlugs) == 0 {
		next.TitleCategorySlugs = nil
	}
	builder.deleted(domain.DiffGroupTitleCategorySlugs, removedTitles...)

	next.FilterSlugs = rebuildFilterSlugs(next)
	return next, builder.build(), true
}

// applyTitleCategory toggles whether a selected category's slug appears in the
// product title. The category must already be part of CategorySlugs.
func applyTitleCategory(summary domain.ProductSummary, categorySlug string, visible bool) (domain.ProductSummary, domain.SummaryDiff, bool) {
	next := summary.Clone()
	var builder diffBuilder

	present := false
	for _, slug := range next.TitleCategorySlugs {
		if slug == categorySlug {
			present = true
			break
		}
	}

	if visible == present {
		return summary, domain.SummaryDiff{}, false
	}

	if visible {
		next.TitleCategorySlugs = append(next.TitleCategorySlugs, categorySlug)
		builder.added(domain.DiffGroupTitleCategorySlugs, categorySlug)
	} else {
		kept := next.TitleCategorySlugs[:0]
		for _, slug := range next.TitleCategorySlugs {
			if slug != categorySlug {
				kept = append(kept, slug)
			}
		}
		next.TitleCategorySlugs = kept
		if len(next.TitleCategorySlugs) == 0 {
			next.TitleCategorySlugs = nil
		}
		builder.deleted(domain.DiffGroupTitleCategorySlugs, categorySlug)
	}

	return next, builder.build(), true
}

// applySelectAttribute replaces the option set of a select attribute. Selected
// options are expanded to their ancestor closure before filter slugs are
// computed; an empty closure prunes the attribute entirely.
func applySelectAttribute(summary domain.ProductSummary, attribute domain.Attribute, options []domain.Option, optionIDs []string, newEntryID string) (domain.ProductSummary, domain.SummaryDiff, bool, error) {
	next := summary.Clone()
	var builder diffBuilder

	byID := make(map[string]domain.Option, len(options))
	for _, option := range options {
		byID[option.ID] = option
	}

	closure, err := optionClosure(byID, optionIDs)
	if err != nil {
		return summary, domain.SummaryDiff{}, false, err
	}

	existingIdx := -1
	for i, attr := range next.Attributes {
		if attr.AttributeID == attribute.ID {
			existingIdx = i
			break
		}
	}

	if len(closure) == 0 {
		if existingIdx < 0 {
			return summary, domain.SummaryDiff{}, false, nil
		}
		pruned := next.Attributes[existingIdx]
		next.Attributes = append(next.Attributes[:existingIdx], next.Attributes[existingIdx+1:]...)
		if len(next.Attributes) == 0 {
			next.Attributes = nil
		}
		builder.deleted(domain.DiffGroupSelectAttributes, pruned.ID)
		next.AttributeIDs = rebuildAttributeIDs(next)
		next.FilterSlugs = rebuildFilterSlugs(next)
		return next, builder.build(), true, nil
	}

	entry := domain.ProductAttribute{
		ID:            newEntryID,
		AttributeID:   attribute.ID,
		AttributeSlug: attribute.Slug,
	}
	if existingIdx >= 0 {
		entry.ID = next.Attributes[existingIdx].ID
	}
	for _, option := range closure {
		entry.OptionIDs = append(entry.OptionIDs, option.ID)
		entry.OptionSlugs = append(entry.OptionSlugs, option.Slug)
		entry.FilterSlugs = append(entry.FilterSlugs, attribute.Slug+":"+option.Slug)
	}
	entry.ReadableValueI18n = readableOptionNames(closure)

	if existingIdx >= 0 {
		if equalStringSets(next.Attributes[existingIdx].OptionIDs, entry.OptionIDs) {
			return summary, domain.SummaryDiff{}, false, nil
		}
		next.Attributes[existingIdx] = entry
		builder.updated(domain.DiffGroupSelectAttributes, entry.ID)
	} else {
		next.Attributes = append(next.Attributes, entry)
		builder.added(domain.DiffGroupSelectAttributes, entry.ID)
	}

	next.AttributeIDs = rebuildAttributeIDs(next)
	next.FilterSlugs = rebuildFilterSlugs(next)
	return next, builder.build(), true, nil
}

// textAttributeEdit is one resolved entry of a batched text attribute update.
type textAttributeEdit struct {
	attribute domain.Attribute
	entryID   string
	text      domain.LocalizedString
}

// applyTextAttributes processes a batch of text attribute edits in one pass.
// An item without default-locale text deletes the attribute even when other
// locales still carry text. No-op detection compares only the default and
// secondary locales.
func applyTextAttributes(summary domain.ProductSummary, locales i18n.Locales, edits []textAttributeEdit) (domain.ProductSummary, domain.SummaryDiff, bool) {
	next := summary.Clone()
	var builder diffBuilder
	changed := false

	for _, edit := range edits {
		text := sanitizeText(edit.text)

		existingIdx := -1
		for i, attr := range next.Attributes {
			if attr.AttributeID == edit.attribute.ID {
				existingIdx = i
				break
			}
		}

		if strings.TrimSpace(text[locales.Default]) == "" {
			if existingIdx < 0 {
				continue
			}
			pruned := next.Attributes[existingIdx]
			next.Attributes = append(next.Attributes[:existingIdx], next.Attributes[existingIdx+1:]...)
			builder.deleted(domain.DiffGroupTextAttributes, pruned.ID)
			changed = true
			continue
		}

		if existingIdx >= 0 && locales.Equal(next.Attributes[existingIdx].TextI18n, text) {
			continue
		}

		entry := domain.ProductAttribute{
			ID:                edit.entryID,
			AttributeID:       edit.attribute.ID,
			AttributeSlug:     edit.attribute.Slug,
			TextI18n:          text,
			ReadableValueI18n: text.Clone(),
		}
		if existingIdx >= 0 {
			entry.ID = next.Attributes[existingIdx].ID
			next.Attributes[existingIdx] = entry
			builder.updated(domain.DiffGroupTextAttributes, entry.ID)
		} else {
			next.Attributes = append(next.Attributes, entry)
			builder.added(domain.DiffGroupTextAttributes, entry.ID)
		}
		changed = true
	}

	if !changed {
		return summary, domain.SummaryDiff{}, false
	}

	if len(next.Attributes) == 0 {
		next.Attributes = nil
	}
	next.AttributeIDs = rebuildAttributeIDs(next)
	next.FilterSlugs = rebuildFilterSlugs(next)
	return next, builder.build(), true
}

// applyVariant attaches sibling products under a select attribute. At most one
// variant axis may exist per attribute.
func applyVariant(summary domain.ProductSummary, attribute domain.Attribute, variantID string, products []domain.VariantProduct) (domain.ProductSummary, domain.SummaryDiff, bool, error) {
	if !attribute.Variant.IsSelect() {
		return summary, domain.SummaryDiff{}, false, ErrVariantTypeMismatch
	}
	for _, variant := range summary.Variants {
		if variant.AttributeID == attribute.ID {
			return summary, domain.SummaryDiff{}, false, ErrVariantDuplicate
		}
	}

	next := summary.Clone()
	var builder diffBuilder

	variant := domain.ProductVariant{
		ID:          variantID,
		AttributeID: attribute.ID,
	}
	for _, product := range products {
		variant.Products = append(variant.Products, product)
	}
	next.Variants = append(next.Variants, variant)
	builder.added(domain.DiffGroupVariants, variantID)

	return next, builder.build(), true, nil
}

// optionClosure expands the selected option ids to include every ancestor,
// preserving selection order with ancestors appended after their descendants.
func optionClosure(byID map[string]domain.Option, optionIDs []string) ([]domain.Option, error) {
	seen := make(map[string]bool, len(optionIDs))
	var closure []domain.Option

	for _, id := range optionIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		option, ok := byID[id]
		if !ok {
			return nil, ErrOptionNotFound
		}
		seen[id] = true
		closure = append(closure, option)

		parentID := option.ParentID
		for parentID != "" && !seen[parentID] {
			parent, ok := byID[parentID]
			if !ok {
				break
			}
			seen[parent.ID] = true
			closure = append(closure, parent)
			parentID = parent.ParentID
		}
	}
	return closure, nil
}

// readableOptionNames joins option display names per locale in closure order.
func readableOptionNames(options []domain.Option) domain.LocalizedString {
	locales := make(map[string]bool)
	for _, option := range options {
		for locale := range option.NameI18n {
			locales[locale] = true
		}
	}
	if len(locales) == 0 {
		return nil
	}

	ordered := make([]string, 0, len(locales))
	for locale := range locales {
		ordered = append(ordered, locale)
	}
	sort.Strings(ordered)

	readable := make(domain.LocalizedString, len(ordered))
	for _, locale := range ordered {
		var names []string
		for _, option := range options {
			if name := strings.TrimSpace(option.NameI18n[locale]); name != "" {
				names = append(names, name)
			}
		}
		if len(names) > 0 {
			readable[locale] = strings.Join(names, ", ")
		}
	}
	if len(readable) == 0 {
		return nil
	}
	return readable
}

// rebuildAttributeIDs derives AttributeIDs from the attribute entries.
func rebuildAttributeIDs(summary domain.ProductSummary) []string {
	if len(summary.Attributes) == 0 {
		return nil
	}
	ids := make([]string, 0, len(summary.Attributes))
	for _, attr := range summary.Attributes {
		ids = append(ids, attr.AttributeID)
	}
	return ids
}

// rebuildFilterSlugs derives the summary's filter index from its attributes
// and category membership so the two can never diverge.
func rebuildFilterSlugs(summary domain.ProductSummary) []string {
	var slugs []string
	seen := make(map[string]bool)
	for _, attr := range summary.Attributes {
		for _, slug := range attr.FilterSlugs {
			if !seen[slug] {
				seen[slug] = true
				slugs = append(slugs, slug)
			}
		}
	}
	for _, slug := range summary.CategorySlugs {
		if !seen[slug] {
			seen[slug] = true
			slugs = append(slugs, slug)
		}
	}
	return slugs
}

func filterSlugList(slugs []string, keep map[string]bool) []string {
	kept := slugs[:0]
	for _, slug := range slugs {
		if keep[slug] {
			kept = append(kept, slug)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

func equalStringSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]int, len(a))
	for _, value := range a {
		set[value]++
	}
	for _, value := range b {
		set[value]--
		if set[value] < 0 {
			return false
		}
	}
	return true
}

// sanitizeText strips markup from every locale value and drops empty entries.
func sanitizeText(text domain.LocalizedString) domain.LocalizedString {
	if len(text) == 0 {
		return nil
	}
	cleaned := make(map[string]string, len(text))
	for locale, value := range text {
		cleaned[locale] = textPolicy.Sanitize(value)
	}
	return domain.LocalizedString(i18n.NormalizeStringMap(cleaned))
}
