package repositories

import (
	"context"
	"time"

	domain "github.com/vintora/catalog-api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Summaries() SummaryRepository
	Tasks() TaskRepository
	Catalog() CatalogRepository
	Roles() RoleRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// WriteSet declares which denormalised stores a mutation rewrites alongside the
// canonical summary. Operations that never surface in filters or shop listings
// keep the corresponding flags off.
type WriteSet struct {
	Summary      bool
	Facet        bool
	ShopProducts bool
}

// WriteThroughRequest carries the post-edit summary plus the projection
// rebuild instructions for a single transactional commit.
type WriteThroughRequest struct {
	Summary domain.ProductSummary
	Stores  WriteSet
	Now     time.Time
}

// SummaryRepository persists canonical product summaries and their denormalised projections.
type SummaryRepository interface {
	FindByID(ctx context.Context, productID string) (domain.ProductSummary, error)
	// WriteThrough persists the summary and rewrites the projections named by
	// the write set inside one transaction. Shop product copies are updated for
	// every shop listing the product.
	WriteThrough(ctx context.Context, req WriteThroughRequest) (domain.ProductSummary, error)
}

// TaskKey identifies the open task an editing session attaches to. At most one
// open task exists per key at a time.
type TaskKey struct {
	ProductID   string
	VariantSlug string
	ExecutorID  string
}

// TaskListFilter narrows task listings for the back-office task board.
type TaskListFilter struct {
	ProductID  string
	ExecutorID string
	States     []domain.TaskState
	Pagination domain.Pagination
}

// TaskRepository owns draft task documents and their append-only logs.
type TaskRepository interface {
	// FindOrCreate returns the open task matching the key, creating the
	// provided task when none exists. The lookup and insert run in one
	// transaction so concurrent edits converge on a single task. The boolean
	// reports whether a new task was created.
	FindOrCreate(ctx context.Context, key TaskKey, task domain.Task) (domain.Task, bool, error)
	// AppendLog atomically appends a log entry to an open task and bumps its
	// updated timestamp. Appending to a terminal task returns a conflict.
	AppendLog(ctx context.Context, taskID string, entry domain.TaskLog) (domain.Task, error)
	FindByID(ctx context.Context, taskID string) (domain.Task, error)
	List(ctx context.Context, filter TaskListFilter) (domain.CursorPage[domain.Task], error)
	// UpdateState transitions the task workflow state, appending a state-change
	// log entry carrying the previous and next states.
	UpdateState(ctx context.Context, taskID string, entry domain.TaskLog) (domain.Task, error)
}

// CatalogRepository reads the reference entities edits are validated against.
type CatalogRepository interface {
	GetAttribute(ctx context.Context, attributeID string) (domain.Attribute, error)
	// ListOptions returns every option in the attribute's option tree, used to
	// expand selections to their ancestor closure.
	ListOptions(ctx context.Context, optionsGroupID string) ([]domain.Option, error)
	GetCategory(ctx context.Context, categoryID string) (domain.Category, error)
	// ListRubricCategories returns every category of a rubric, used to detect
	// surviving siblings when a category chain is removed.
	ListRubricCategories(ctx context.Context, rubricID string) ([]domain.Category, error)
	GetBrand(ctx context.Context, brandID string) (domain.Brand, error)
	GetBrandCollection(ctx context.Context, collectionID string) (domain.BrandCollection, error)
}

// RoleRepository resolves back-office roles for permission checks.
type RoleRepository interface {
	FindBySlug(ctx context.Context, slug string) (domain.Role, error)
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
