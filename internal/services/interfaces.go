package services

import (
	"context"

	domain "github.com/vintora/catalog-api/internal/domain"
)

// Operation slugs checked against the acting role's allow-list. One fixed slug
// per mutation orchestrator.
const (
	OpUpdateProductBrand           = "updateProductBrand"
	OpUpdateProductCategory        = "updateProductCategory"
	OpUpdateProductTitleCategory   = "updateProductTitleCategory"
	OpUpdateProductSelectAttribute = "updateProductSelectAttribute"
	OpUpdateProductTextAttribute   = "updateProductTextAttribute"
	OpCreateProductVariant         = "createProductVariant"
)

// Actor identifies the authenticated back-office user performing an edit.
type Actor struct {
	UserID           string
	RoleSlug         string
	CompanySlug      string
	IsContentManager bool
}

// EditResult is the service-level mutation outcome. Domain failures are
// expressed as Success=false with a localized message; they are not errors.
type EditResult struct {
	Success bool
	Message string
	Summary *domain.ProductSummary
	TaskID  string
}

// UpdateBrandCommand changes the product's brand and/or brand collection.
// A nil pointer leaves the field untouched; an empty string clears it.
type UpdateBrandCommand struct {
	ProductID         string
	TaskID            string
	BrandID           *string
	BrandCollectionID *string
	Locale            string
}

// UpdateCategoryCommand toggles the product's membership in a category.
type UpdateCategoryCommand struct {
	ProductID  string
	TaskID     string
	CategoryID string
	Selected   bool
	Locale     string
}

// UpdateTitleCategoryCommand toggles whether a selected category appears in
// the product's title.
type UpdateTitleCategoryCommand struct {
	ProductID  string
	TaskID     string
	CategoryID string
	Visible    bool
	Locale     string
}

// UpdateSelectAttributeCommand replaces the option set of a select attribute.
// An empty option list prunes the attribute from the product.
type UpdateSelectAttributeCommand struct {
	ProductID   string
	TaskID      string
	AttributeID string
	OptionIDs   []string
	Locale      string
}

// TextAttributeItem is one entry of a batched text attribute update. An item
// whose text lacks the default locale is treated as a deletion.
type TextAttributeItem struct {
	ProductAttributeID string
	AttributeID        string
	TextI18n           domain.LocalizedString
}

// UpdateTextAttributesCommand updates a batch of text attributes in one call.
type UpdateTextAttributesCommand struct {
	ProductID string
	TaskID    string
	Items     []TextAttributeItem
	Locale    string
}

// CreateVariantCommand attaches sibling products under a select attribute.
type CreateVariantCommand struct {
	ProductID   string
	TaskID      string
	AttributeID string
	Products    []domain.VariantProduct
	Locale      string
}

// ProductEditService exposes the per-field mutation orchestrators. Every
// operation runs permission check, draft resolution, diff computation, and a
// commit strategy chosen by the actor's content-manager flag.
type ProductEditService interface {
	UpdateProductBrand(ctx context.Context, actor Actor, cmd UpdateBrandCommand) (EditResult, error)
	UpdateProductCategory(ctx context.Context, actor Actor, cmd UpdateCategoryCommand) (EditResult, error)
	UpdateProductTitleCategory(ctx context.Context, actor Actor, cmd UpdateTitleCategoryCommand) (EditResult, error)
	UpdateProductSelectAttribute(ctx context.Context, actor Actor, cmd UpdateSelectAttributeCommand) (EditResult, error)
	UpdateProductTextAttributes(ctx context.Context, actor Actor, cmd UpdateTextAttributesCommand) (EditResult, error)
	CreateProductVariant(ctx context.Context, actor Actor, cmd CreateVariantCommand) (EditResult, error)
	GetProductSummary(ctx context.Context, actor Actor, productID string, taskID string, locale string) (EditResult, error)
}

// FindOrCreateTaskCommand requests the open task for an editing session.
type FindOrCreateTaskCommand struct {
	TaskID      string
	ProductID   string
	VariantSlug string
	ExecutorID  string
	CreatedByID string
	CompanySlug string
	NameI18n    domain.LocalizedString
}

// AddTaskLogCommand appends a draft snapshot to a task's log.
type AddTaskLogCommand struct {
	TaskID      string
	Diff        domain.SummaryDiff
	PrevState   domain.TaskState
	NextState   domain.TaskState
	Draft       domain.ProductSummary
	CreatedByID string
}

// UpdateTaskStateCommand moves a task through its workflow.
type UpdateTaskStateCommand struct {
	TaskID    string
	NextState domain.TaskState
	ActorID   string
}

// TaskListQuery filters back-office task listings.
type TaskListQuery struct {
	ProductID  string
	ExecutorID string
	States     []domain.TaskState
	Pagination domain.Pagination
}

// TaskService owns the draft task workflow.
type TaskService interface {
	FindOrCreateUserTask(ctx context.Context, cmd FindOrCreateTaskCommand) (domain.Task, bool, error)
	AddTaskLogItem(ctx context.Context, cmd AddTaskLogCommand) (domain.Task, error)
	GetTask(ctx context.Context, taskID string) (domain.Task, error)
	ListTasks(ctx context.Context, query TaskListQuery) (domain.CursorPage[domain.Task], error)
	UpdateTaskState(ctx context.Context, cmd UpdateTaskStateCommand) (domain.Task, error)
}

// PermissionDecision is the permission collaborator's verdict for one operation.
type PermissionDecision struct {
	Allow   bool
	Message string
	Role    domain.Role
}

// PermissionService checks an operation slug against the acting role's allow-list.
type PermissionService interface {
	Check(ctx context.Context, actor Actor, operationSlug string, locale string) (PermissionDecision, error)
}

// IndexRefreshPublisher schedules a search-index rebuild for a product.
type IndexRefreshPublisher interface {
	PublishIndexRefresh(ctx context.Context, productID string, reason string) (string, error)
}

// SystemService reports service health.
type SystemService interface {
	Health(ctx context.Context) (domain.SystemHealthReport, error)
}
