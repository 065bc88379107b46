package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	domain "github.com/vintora/catalog-api/internal/domain"
	"github.com/vintora/catalog-api/internal/platform/i18n"
	"github.com/vintora/catalog-api/internal/platform/requestctx"
	"github.com/vintora/catalog-api/internal/repositories"
)

// indexRefreshTimeout bounds the detached publish so it cannot linger forever.
const indexRefreshTimeout = 10 * time.Second

type productEditService struct {
	summaries   repositories.SummaryRepository
	catalog     repositories.CatalogRepository
	tasks       TaskService
	permissions PermissionService
	publisher   IndexRefreshPublisher
	messages    i18n.Messages
	locales     i18n.Locales
	clock       func() time.Time
	newID       func() string
	logger      *zap.Logger
}

// ProductEditServiceDeps bundles constructor inputs for the edit orchestrators.
type ProductEditServiceDeps struct {
	Summaries   repositories.SummaryRepository
	Catalog     repositories.CatalogRepository
	Tasks       TaskService
	Permissions PermissionService
	Publisher   IndexRefreshPublisher
	Messages    i18n.Messages
	Clock       func() time.Time
	NewID       func() string
	Logger      *zap.Logger
}

// NewProductEditService creates the mutation orchestrator service.
func NewProductEditService(deps ProductEditServiceDeps) (ProductEditService, error) {
	if deps.Summaries == nil {
		return nil, fmt.Errorf("product edit service: summary repository is required")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("product edit service: catalog repository is required")
	}
	if deps.Tasks == nil {
		return nil, fmt.Errorf("product edit service: task service is required")
	}
	if deps.Permissions == nil {
		return nil, fmt.Errorf("product edit service: permission service is required")
	}
	if deps.NewID == nil {
		return nil, fmt.Errorf("product edit service: id generator is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &productEditService{
		summaries:   deps.Summaries,
		catalog:     deps.Catalog,
		tasks:       deps.Tasks,
		permissions: deps.Permissions,
		publisher:   deps.Publisher,
		messages:    deps.Messages,
		locales:     deps.Messages.Locales(),
		clock:       func() time.Time { return clock().UTC() },
		newID:       deps.NewID,
		logger:      logger,
	}, nil
}

// editRequest describes one orchestrated mutation. compute runs the diff
// engine against the resolved draft; domain-rule violations come back as
// (messageCode, nil) through failCode.
type editRequest struct {
	operation    string
	productID    string
	taskID       string
	variantSlug  string
	locale       string
	writes       repositories.WriteSet
	refreshIndex bool
	compute      func(summary domain.ProductSummary) (domain.ProductSummary, domain.SummaryDiff, bool, error)
}

// editFailure carries a localized-message code out of a compute closure.
type editFailure struct {
	code string
}

func (f *editFailure) Error() string { return f.code }

func failCode(code string) error { return &editFailure{code: code} }

// applyProductEdit runs the shared pipeline: permission check, draft
// resolution, diff computation, commit through the strategy matching the
// actor, and the optional fire-and-forget index refresh. Domain failures are
// folded into the result; only infrastructure faults return an error.
func (s *productEditService) applyProductEdit(ctx context.Context, actor Actor, req editRequest) (EditResult, error) {
	locale := req.locale

	decision, err := s.permissions.Check(ctx, actor, req.operation, locale)
	if err != nil {
		return s.failInternal(ctx, locale, req.operation, err), nil
	}
	if !decision.Allow {
		return EditResult{Success: false, Message: decision.Message}, nil
	}

	if strings.TrimSpace(req.productID) == "" {
		return s.fail(locale, i18n.MsgInputMissing), nil
	}

	summary, found, err := s.resolveSummaryDraft(ctx, req.productID, req.taskID)
	if err != nil {
		return s.failInternal(ctx, locale, req.operation, err), nil
	}
	if !found {
		return s.fail(locale, i18n.MsgProductNotFound), nil
	}

	next, diff, changed, err := req.compute(summary)
	if err != nil {
		var failure *editFailure
		if errors.As(err, &failure) {
			return s.fail(locale, failure.code), nil
		}
		switch {
		case errors.Is(err, ErrOptionNotFound):
			return s.fail(locale, i18n.MsgOptionNotFound), nil
		case errors.Is(err, ErrVariantTypeMismatch):
			return s.fail(locale, i18n.MsgVariantTypeMismatch), nil
		case errors.Is(err, ErrVariantDuplicate):
			return s.fail(locale, i18n.MsgVariantDuplicate), nil
		}
		return s.failInternal(ctx, locale, req.operation, err), nil
	}

	if !changed {
		return EditResult{
			Success: true,
			Message: s.messages.Lookup(i18n.MsgProductUpdateSuccess, locale),
			Summary: &summary,
		}, nil
	}

	strategy := s.strategyFor(actor)
	outcome, err := strategy.Commit(ctx, editCommit{
		actor:       actor,
		operation:   req.operation,
		taskID:      req.taskID,
		variantSlug: req.variantSlug,
		summary:     next,
		diff:        diff,
		writes:      req.writes,
	})
	if err != nil {
		code := i18n.MsgProductUpdateError
		if actor.IsContentManager {
			code = i18n.MsgTaskCreateError
		}
		requestctx.Logger(ctx).Error("product edit commit failed",
			zap.String("operation", req.operation),
			zap.String("product_id", req.productID),
			zap.Bool("deferred", actor.IsContentManager),
			zap.Error(err),
		)
		return s.fail(locale, code), nil
	}

	if req.refreshIndex && !actor.IsContentManager {
		s.scheduleIndexRefresh(ctx, req.productID, req.operation)
	}

	result := EditResult{
		Success: true,
		Summary: &outcome.summary,
	}
	if outcome.task != nil {
		result.TaskID = outcome.task.ID
		result.Message = s.messages.Lookup(i18n.MsgTaskUpdateSuccess, locale)
	} else {
		result.Message = s.messages.Lookup(i18n.MsgProductUpdateSuccess, locale)
	}
	return result, nil
}

// resolveSummaryDraft returns the latest task draft when a task id is supplied
// and the task has log entries, otherwise the canonical summary.
func (s *productEditService) resolveSummaryDraft(ctx context.Context, productID string, taskID string) (domain.ProductSummary, bool, error) {
	if taskID = strings.TrimSpace(taskID); taskID != "" {
		task, err := s.tasks.GetTask(ctx, taskID)
		if err == nil {
			if draft, ok := task.LatestDraft(); ok && draft.ID == productID {
				return draft, true, nil
			}
		} else if !errors.Is(err, ErrTaskNotFound) {
			return domain.ProductSummary{}, false, err
		}
	}

	summary, err := s.summaries.FindByID(ctx, productID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return domain.ProductSummary{}, false, nil
		}
		return domain.ProductSummary{}, false, err
	}
	return summary, true, nil
}

func (s *productEditService) strategyFor(actor Actor) commitStrategy {
	if actor.IsContentManager {
		return deferToTaskStrategy{tasks: s.tasks}
	}
	return writeThroughStrategy{summaries: s.summaries, clock: s.clock}
}

// scheduleIndexRefresh fires the refresh publish on a detached goroutine. The
// outcome is logged but never awaited; a lost refresh only delays reindexing.
func (s *productEditService) scheduleIndexRefresh(ctx context.Context, productID string, reason string) {
	if s.publisher == nil {
		return
	}
	logger := requestctx.Logger(ctx)
	go func() {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), indexRefreshTimeout)
		defer cancel()
		if _, err := s.publisher.PublishIndexRefresh(refreshCtx, productID, reason); err != nil {
			logger.Warn("index refresh publish failed",
				zap.String("product_id", productID),
				zap.String("reason", reason),
				zap.Error(err),
			)
		}
	}()
}

func (s *productEditService) fail(locale string, code string) EditResult {
	return EditResult{Success: false, Message: s.messages.Lookup(code, locale)}
}

func (s *productEditService) failInternal(ctx context.Context, locale string, operation string, err error) EditResult {
	requestctx.Logger(ctx).Error("product edit failed",
		zap.String("operation", operation),
		zap.Error(err),
	)
	return s.fail(locale, i18n.MsgInternalError)
}

// UpdateProductBrand changes the brand and/or brand collection. Changing the
// brand without naming a collection clears any collection belonging to another
// brand.
func (s *productEditService) UpdateProductBrand(ctx context.Context, actor Actor, cmd UpdateBrandCommand) (EditResult, error) {
	if cmd.BrandID == nil && cmd.BrandCollectionID == nil {
		return s.fail(cmd.Locale, i18n.MsgInputMissing), nil
	}

	return s.applyProductEdit(ctx, actor, editRequest{
		operation: OpUpdateProductBrand,
		productID: cmd.ProductID,
		taskID:    cmd.TaskID,
		locale:    cmd.Locale,
		writes: repositories.WriteSet{
			Summary:      true,
			Facet:        true,
			ShopProducts: true,
		},
		refreshIndex: true,
		compute: func(summary domain.ProductSummary) (domain.ProductSummary, domain.SummaryDiff, bool, error) {
			var brandSlug *string
			if cmd.BrandID != nil {
				slug := ""
				if id := strings.TrimSpace(*cmd.BrandID); id != "" {
					brand, err := s.catalog.GetBrand(ctx, id)
					if err != nil {
						if isNotFound(err) {
							return summary, domain.SummaryDiff{}, false, failCode(i18n.MsgBrandNotFound)
						}
						return summary, domain.SummaryDiff{}, false, err
					}
					slug = brand.Slug
				}
				brandSlug = &slug
			}

			var collectionSlug *string
			if cmd.BrandCollectionID != nil {
				slug := ""
				if id := strings.TrimSpace(*cmd.BrandCollectionID); id != "" {
					collection, err := s.catalog.GetBrandCollection(ctx, id)
					if err != nil {
						if isNotFound(err) {
							return summary, domain.SummaryDiff{}, false, failCode(i18n.MsgBrandNotFound)
						}
						return summary, domain.SummaryDiff{}, false, err
					}
					// The collection must belong to the brand the summary ends
					// up with: the incoming one when supplied, the current one
					// otherwise.
					effectiveBrand := summary.BrandSlug
					if brandSlug != nil {
						effectiveBrand = *brandSlug
					}
					if collection.BrandSlug != effectiveBrand {
						return summary, domain.SummaryDiff{}, false, failCode(i18n.MsgBrandNotFound)
					}
					slug = collection.Slug
				}
				collectionSlug = &slug
			} else if brandSlug != nil && summary.BrandCollectionSlug != "" {
				// Brand replaced without a collection: drop the stale collection.
				empty := ""
				collectionSlug = &empty
			}

			next, diff, changed := applyBrand(summary, brandSlug, collectionSlug)
			return next, diff, changed, nil
		},
	})
}

// UpdateProductCategory toggles the product's membership in a category.
func (s *productEditService) UpdateProductCategory(ctx context.Context, actor Actor, cmd UpdateCategoryCommand) (EditResult, error) {
	if strings.TrimSpace(cmd.CategoryID) == "" {
		return s.fail(cmd.Locale, i18n.MsgInputMissing), nil
	}

	return s.applyProductEdit(ctx, actor, editRequest{
		operation: OpUpdateProductCategory,
		productID: cmd.ProductID,
		taskID:    cmd.TaskID,
		locale:    cmd.Locale,
		writes: repositories.WriteSet{
			Summary:      true,
			Facet:        true,
			ShopProducts: true,
		},
		refreshIndex: true,
		compute: func(summary domain.ProductSummary) (domain.ProductSummary, domain.SummaryDiff, bool, error) {
			target, err := s.catalog.GetCategory(ctx, cmd.CategoryID)
			if err != nil {
				if isNotFound(err) {
					return summary, domain.SummaryDiff{}, false, failCode(i18n.MsgCategoryNotFound)
				}
				return summary, domain.SummaryDiff{}, false, err
			}
			rubric, err := s.catalog.ListRubricCategories(ctx, target.RubricID)
			if err != nil {
				return summary, domain.SummaryDiff{}, false, err
			}

			next, diff, changed := applyCategory(summary, target, rubric, cmd.Selected)
			return next, diff, changed, nil
		},
	})
}

// UpdateProductTitleCategory toggles the title visibility of a selected category.
func (s *productEditService) UpdateProductTitleCategory(ctx context.Context, actor Actor, cmd UpdateTitleCategoryCommand) (EditResult, error) {
	if strings.TrimSpace(cmd.CategoryID) == "" {
		return s.fail(cmd.Locale, i18n.MsgInputMissing), nil
	}

	return s.applyProductEdit(ctx, actor, editRequest{
		operation: OpUpdateProductTitleCategory,
		productID: cmd.ProductID,
		taskID:    cmd.TaskID,
		locale:    cmd.Locale,
		writes: repositories.WriteSet{
			Summary: true,
			Facet:   true,
		},
		refreshIndex: true,
		compute: func(summary domain.ProductSummary) (domain.ProductSummary, domain.SummaryDiff, bool, error) {
			target, err := s.catalog.GetCategory(ctx, cmd.CategoryID)
			if err != nil {
				if isNotFound(err) {
					return summary, domain.SummaryDiff{}, false, failCode(i18n.MsgCategoryNotFound)
				}
				return summary, domain.SummaryDiff{}, false, err
			}

			selected := false
			for _, slug := range summary.CategorySlugs {
				if slug == target.Slug {
					selected = true
					break
				}
			}
			if !selected {
				return summary, domain.SummaryDiff{}, false, failCode(i18n.MsgCategoryNotFound)
			}

			next, diff, changed := applyTitleCategory(summary, target.Slug, cmd.Visible)
			return next, diff, changed, nil
		},
	})
}

// UpdateProductSelectAttribute replaces a select attribute's option set.
func (s *productEditService) UpdateProductSelectAttribute(ctx context.Context, actor Actor, cmd UpdateSelectAttributeCommand) (EditResult, error) {
	if strings.TrimSpace(cmd.AttributeID) == "" {
		return s.fail(cmd.Locale, i18n.MsgInputMissing), nil
	}

	return s.applyProductEdit(ctx, actor, editRequest{
		operation: OpUpdateProductSelectAttribute,
		productID: cmd.ProductID,
		taskID:    cmd.TaskID,
		locale:    cmd.Locale,
		writes: repositories.WriteSet{
			Summary:      true,
			Facet:        true,
			ShopProducts: true,
		},
		refreshIndex: true,
		compute: func(summary domain.ProductSummary) (domain.ProductSummary, domain.SummaryDiff, bool, error) {
			attribute, err := s.catalog.GetAttribute(ctx, cmd.AttributeID)
			if err != nil {
				if isNotFound(err) {
					return summary, domain.SummaryDiff{}, false, failCode(i18n.MsgAttributeNotFound)
				}
				return summary, domain.SummaryDiff{}, false, err
			}
			if !attribute.Variant.IsSelect() {
				return summary, domain.SummaryDiff{}, false, failCode(i18n.MsgAttributeNotFound)
			}

			options, err := s.catalog.ListOptions(ctx, attribute.OptionsGroupID)
			if err != nil {
				return summary, domain.SummaryDiff{}, false, err
			}

			return applySelectAttribute(summary, attribute, options, cmd.OptionIDs, s.newID())
		},
	})
}

// UpdateProductTextAttributes updates a batch of text attributes in one call.
func (s *productEditService) UpdateProductTextAttributes(ctx context.Context, actor Actor, cmd UpdateTextAttributesCommand) (EditResult, error) {
	if len(cmd.Items) == 0 {
		return s.fail(cmd.Locale, i18n.MsgInputMissing), nil
	}

	return s.applyProductEdit(ctx, actor, editRequest{
		operation: OpUpdateProductTextAttribute,
		productID: cmd.ProductID,
		taskID:    cmd.TaskID,
		locale:    cmd.Locale,
		writes: repositories.WriteSet{
			Summary:      true,
			Facet:        true,
			ShopProducts: true,
		},
		refreshIndex: true,
		compute: func(summary domain.ProductSummary) (domain.ProductSummary, domain.SummaryDiff, bool, error) {
			edits := make([]textAttributeEdit, 0, len(cmd.Items))
			for _, item := range cmd.Items {
				if strings.TrimSpace(item.AttributeID) == "" {
					return summary, domain.SummaryDiff{}, false, failCode(i18n.MsgInputMissing)
				}
				attribute, err := s.catalog.GetAttribute(ctx, item.AttributeID)
				if err != nil {
					if isNotFound(err) {
						return summary, domain.SummaryDiff{}, false, failCode(i18n.MsgAttributeNotFound)
					}
					return summary, domain.SummaryDiff{}, false, err
				}
				if attribute.Variant != domain.AttributeVariantText {
					return summary, domain.SummaryDiff{}, false, failCode(i18n.MsgAttributeNotFound)
				}

				entryID := strings.TrimSpace(item.ProductAttributeID)
				if entryID == "" {
					entryID = s.newID()
				}
				edits = append(edits, textAttributeEdit{
					attribute: attribute,
					entryID:   entryID,
					text:      item.TextI18n,
				})
			}

			next, diff, changed := applyTextAttributes(summary, s.locales, edits)
			return next, diff, changed, nil
		},
	})
}

// CreateProductVariant attaches sibling products under a select attribute.
func (s *productEditService) CreateProductVariant(ctx context.Context, actor Actor, cmd CreateVariantCommand) (EditResult, error) {
	if strings.TrimSpace(cmd.AttributeID) == "" || len(cmd.Products) == 0 {
		return s.fail(cmd.Locale, i18n.MsgInputMissing), nil
	}

	return s.applyProductEdit(ctx, actor, editRequest{
		operation:   OpCreateProductVariant,
		productID:   cmd.ProductID,
		taskID:      cmd.TaskID,
		variantSlug: cmd.AttributeID,
		locale:      cmd.Locale,
		writes: repositories.WriteSet{
			Summary: true,
		},
		refreshIndex: false,
		compute: func(summary domain.ProductSummary) (domain.ProductSummary, domain.SummaryDiff, bool, error) {
			attribute, err := s.catalog.GetAttribute(ctx, cmd.AttributeID)
			if err != nil {
				if isNotFound(err) {
					return summary, domain.SummaryDiff{}, false, failCode(i18n.MsgAttributeNotFound)
				}
				return summary, domain.SummaryDiff{}, false, err
			}

			return applyVariant(summary, attribute, s.newID(), cmd.Products)
		},
	})
}

// GetProductSummary resolves the summary (or the latest task draft) for display.
func (s *productEditService) GetProductSummary(ctx context.Context, actor Actor, productID string, taskID string, locale string) (EditResult, error) {
	if strings.TrimSpace(productID) == "" {
		return s.fail(locale, i18n.MsgInputMissing), nil
	}

	summary, found, err := s.resolveSummaryDraft(ctx, productID, taskID)
	if err != nil {
		return s.failInternal(ctx, locale, "getProductSummary", err), nil
	}
	if !found {
		return s.fail(locale, i18n.MsgProductNotFound), nil
	}
	return EditResult{Success: true, Summary: &summary}, nil
}

var _ ProductEditService = (*productEditService)(nil)
