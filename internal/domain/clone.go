package domain

// Deep-copy helpers. The diff engine operates on value copies only, so a
// mutation computed for one request can never alias state observed by another
// computation in the same request.

// Clone returns an independent copy of the localized string map.
func (s LocalizedString) Clone() LocalizedString {
	if s == nil {
		return nil
	}
	out := make(LocalizedString, len(s))
	for locale, value := range s {
		out[locale] = value
	}
	return out
}

// Clone returns an independent copy of the product attribute.
func (a ProductAttribute) Clone() ProductAttribute {
	out := a
	out.OptionIDs = cloneStrings(a.OptionIDs)
	out.OptionSlugs = cloneStrings(a.OptionSlugs)
	out.TextI18n = a.TextI18n.Clone()
	out.ReadableValueI18n = a.ReadableValueI18n.Clone()
	out.FilterSlugs = cloneStrings(a.FilterSlugs)
	if a.Number != nil {
		number := *a.Number
		out.Number = &number
	}
	return out
}

// Clone returns an independent copy of the variant grouping.
func (v ProductVariant) Clone() ProductVariant {
	out := v
	if v.Products != nil {
		out.Products = make([]VariantProduct, len(v.Products))
		copy(out.Products, v.Products)
	}
	return out
}

// Clone returns an independent deep copy of the summary.
func (p ProductSummary) Clone() ProductSummary {
	out := p
	out.CategorySlugs = cloneStrings(p.CategorySlugs)
	out.TitleCategorySlugs = cloneStrings(p.TitleCategorySlugs)
	out.AttributeIDs = cloneStrings(p.AttributeIDs)
	out.FilterSlugs = cloneStrings(p.FilterSlugs)
	out.SnippetTitleI18n = p.SnippetTitleI18n.Clone()
	if p.Attributes != nil {
		out.Attributes = make([]ProductAttribute, len(p.Attributes))
		for i, attr := range p.Attributes {
			out.Attributes[i] = attr.Clone()
		}
	}
	if p.Variants != nil {
		out.Variants = make([]ProductVariant, len(p.Variants))
		for i, variant := range p.Variants {
			out.Variants[i] = variant.Clone()
		}
	}
	return out
}

// Clone returns an independent copy of the diff.
func (d SummaryDiff) Clone() SummaryDiff {
	return SummaryDiff{
		Added:   cloneDiffMap(d.Added),
		Updated: cloneDiffMap(d.Updated),
		Deleted: cloneDiffMap(d.Deleted),
	}
}

func cloneDiffMap(src map[DiffGroup][]string) map[DiffGroup][]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[DiffGroup][]string, len(src))
	for group, ids := range src {
		out[group] = cloneStrings(ids)
	}
	return out
}

func cloneStrings(src []string) []string {
	if src == nil {
		return nil
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}
