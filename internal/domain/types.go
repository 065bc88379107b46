package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// CursorPage packages list results with an encoded next token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// LocalizedString maps a locale code to its translation. Lookups fall back to
// the default locale configured for the catalogue.
type LocalizedString map[string]string

// AttributeVariant enumerates the value kinds a catalogue attribute can carry.
type AttributeVariant string

const (
	// AttributeVariantSelect stores one or more options from an option tree.
	AttributeVariantSelect AttributeVariant = "select"
	// AttributeVariantMultipleSelect behaves like select but is rendered as a multi-picker.
	AttributeVariantMultipleSelect AttributeVariant = "multipleSelect"
	// AttributeVariantText stores localized free text.
	AttributeVariantText AttributeVariant = "text"
	// AttributeVariantNumber stores a single numeric value.
	AttributeVariantNumber AttributeVariant = "number"
)

// IsSelect reports whether the variant selects options from an option tree.
func (v AttributeVariant) IsSelect() bool {
	return v == AttributeVariantSelect || v == AttributeVariantMultipleSelect
}

// Attribute is a catalogue-level attribute definition shared by all products in a rubric.
type Attribute struct {
	ID             string
	Slug           string
	NameI18n       LocalizedString
	Variant        AttributeVariant
	OptionsGroupID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Option is a node in an attribute's option tree. ParentID is empty for roots.
type Option struct {
	ID       string
	Slug     string
	ParentID string
	NameI18n LocalizedString
}

// Category is a node in a rubric's category tree. ParentTreeIDs lists the
// ancestor chain from root to the node itself, in order.
type Category struct {
	ID            string
	Slug          string
	RubricID      string
	ParentID      string
	ParentTreeIDs []string
	NameI18n      LocalizedString
}

// Brand identifies a product manufacturer.
type Brand struct {
	ID       string
	Slug     string
	NameI18n LocalizedString
}

// BrandCollection is a named product line within a brand.
type BrandCollection struct {
	ID        string
	Slug      string
	BrandSlug string
	NameI18n  LocalizedString
}

// ProductAttribute is one attribute's value on a product. An attribute with no
// selected options and no text is pruned from the summary rather than stored empty.
type ProductAttribute struct {
	ID                string
	AttributeID       string
	AttributeSlug     string
	OptionIDs         []string
	OptionSlugs       []string
	TextI18n          LocalizedString
	Number            *float64
	ReadableValueI18n LocalizedString
	FilterSlugs       []string
}

// VariantProduct links one sibling product to its option on the variant axis.
type VariantProduct struct {
	ProductID string
	OptionID  string
	IsCurrent bool
}

// ProductVariant groups sibling products differentiated by one select-type
// attribute. A summary carries at most one variant per attribute.
type ProductVariant struct {
	ID          string
	AttributeID string
	Products    []VariantProduct
}

// ProductSummary is the canonical product record. FilterSlugs must always be
// derivable from Attributes and CategorySlugs; the two never diverge.
type ProductSummary struct {
	ID                  string
	Slug                string
	ItemID              string
	RubricID            string
	CategorySlugs       []string
	TitleCategorySlugs  []string
	BrandSlug           string
	BrandCollectionSlug string
	Attributes          []ProductAttribute
	AttributeIDs        []string
	FilterSlugs         []string
	Variants            []ProductVariant
	SnippetTitleI18n    LocalizedString
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ProductFacet mirrors the summary's classification and attribute fields for
// filter queries. It is rewritten on every direct-path mutation.
type ProductFacet struct {
	ID                  string
	Slug                string
	ItemID              string
	RubricID            string
	CategorySlugs       []string
	BrandSlug           string
	BrandCollectionSlug string
	AttributeIDs        []string
	FilterSlugs         []string
	UpdatedAt           time.Time
}

// ShopProduct is a per-shop listing copy of the summary's searchable fields.
type ShopProduct struct {
	ID                  string
	ShopID              string
	ProductID           string
	ItemID              string
	RubricID            string
	CategorySlugs       []string
	BrandSlug           string
	BrandCollectionSlug string
	AttributeIDs        []string
	FilterSlugs         []string
	Available           int
	Price               int64
	UpdatedAt           time.Time
}

// TaskState describes the workflow position of a draft task.
type TaskState string

const (
	// TaskStatePending indicates the task awaits moderation.
	TaskStatePending TaskState = "pending"
	// TaskStateInProgress indicates a moderator picked the task up.
	TaskStateInProgress TaskState = "inProgress"
	// TaskStateDone indicates the draft was accepted and merged.
	TaskStateDone TaskState = "done"
	// TaskStateDeclined indicates the draft was rejected.
	TaskStateDeclined TaskState = "declined"
)

// IsTerminal reports whether the state admits no further transitions.
func (s TaskState) IsTerminal() bool {
	return s == TaskStateDone || s == TaskStateDeclined
}

// IsOpen reports whether new log entries may still be appended.
func (s TaskState) IsOpen() bool {
	return s == TaskStatePending || s == TaskStateInProgress
}

// DiffGroup names a field group touched by an edit, used to key SummaryDiff maps.
type DiffGroup string

const (
	// DiffGroupBrand covers brand slug changes.
	DiffGroupBrand DiffGroup = "brand"
	// DiffGroupBrandCollection covers brand collection slug changes.
	DiffGroupBrandCollection DiffGroup = "brandCollection"
	// DiffGroupSelectAttributes covers select attribute values.
	DiffGroupSelectAttributes DiffGroup = "selectAttributes"
	// DiffGroupTextAttributes covers localized text attribute values.
	DiffGroupTextAttributes DiffGroup = "textAttributes"
	// DiffGroupNumberAttributes covers numeric attribute values.
	DiffGroupNumberAttributes DiffGroup = "numberAttributes"
	// DiffGroupVariants covers variant axis membership.
	DiffGroupVariants DiffGroup = "variants"
	// DiffGroupCategories covers category membership.
	DiffGroupCategories DiffGroup = "categories"
	// DiffGroupTitleCategorySlugs covers title-visibility of category slugs.
	DiffGroupTitleCategorySlugs DiffGroup = "titleCategorySlugs"
)

// SummaryDiff records which field groups an edit added, updated, or deleted.
// It is embedded in task log entries for audit display and never replayed.
type SummaryDiff struct {
	Added   map[DiffGroup][]string
	Updated map[DiffGroup][]string
	Deleted map[DiffGroup][]string
}

// IsZero reports whether the diff records no changes at all.
func (d SummaryDiff) IsZero() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Deleted) == 0
}

// TaskLog is an immutable append-only entry on a task. Draft is the full
// proposed summary after the edit; the latest entry's Draft is the task's
// current draft.
type TaskLog struct {
	ID          string
	Diff        SummaryDiff
	PrevState   TaskState
	NextState   TaskState
	Draft       ProductSummary
	CreatedByID string
	CreatedAt   time.Time
}

// Task is a deferred unit of work tying a product, an executor, and a workflow
// state to an append-only log of proposed drafts.
type Task struct {
	ID          string
	NameI18n    LocalizedString
	CompanySlug string
	State       TaskState
	CreatedByID string
	ExecutorID  string
	ProductID   string
	VariantSlug string
	Log         []TaskLog
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LatestDraft returns the draft snapshot from the most recent log entry.
func (t Task) LatestDraft() (ProductSummary, bool) {
	if len(t.Log) == 0 {
		return ProductSummary{}, false
	}
	return t.Log[len(t.Log)-1].Draft, true
}

// Role describes a back-office role and the operations it may perform.
type Role struct {
	ID               string
	Slug             string
	NameI18n         LocalizedString
	IsContentManager bool
	AllowedSlugs     []string
}

// Allows reports whether the role's allow-list contains the operation slug.
func (r Role) Allows(operationSlug string) bool {
	for _, slug := range r.AllowedSlugs {
		if slug == operationSlug {
			return true
		}
	}
	return false
}
