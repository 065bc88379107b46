package services

import (
	"context"
	"reflect"
	"testing"
	"time"

	domain "github.com/vintora/catalog-api/internal/domain"
	"github.com/vintora/catalog-api/internal/platform/i18n"
	"github.com/vintora/catalog-api/internal/repositories"
)

// fakeSummaryRepository is an in-memory stand-in for the Firestore summary
// repository. It records every write-through request for assertions.
type fakeSummaryRepository struct {
	summaries map[string]domain.ProductSummary
	writes    []repositories.WriteThroughRequest
	finds     int
}

func newFakeSummaryRepository(summaries ...domain.ProductSummary) *fakeSummaryRepository {
	repo := &fakeSummaryRepository{summaries: make(map[string]domain.ProductSummary)}
	for _, summary := range summaries {
		repo.summaries[summary.ID] = summary
	}
	return repo
}

func (r *fakeSummaryRepository) FindByID(_ context.Context, productID string) (domain.ProductSummary, error) {
	r.finds++
	summary, ok := r.summaries[productID]
	if !ok {
		return domain.ProductSummary{}, &fakeRepoError{msg: "summary not found", notFound: true}
	}
	return summary, nil
}

func (r *fakeSummaryRepository) WriteThrough(_ context.Context, req repositories.WriteThroughRequest) (domain.ProductSummary, error) {
	r.writes = append(r.writes, req)
	summary := req.Summary
	summary.UpdatedAt = req.Now
	r.summaries[summary.ID] = summary
	return summary, nil
}

var _ repositories.SummaryRepository = (*fakeSummaryRepository)(nil)

// fakeCatalogRepository serves reference entities from fixture maps.
type fakeCatalogRepository struct {
	attributes  map[string]domain.Attribute
	options     map[string][]domain.Option
	categories  map[string]domain.Category
	rubrics     map[string][]domain.Category
	brands      map[string]domain.Brand
	collections map[string]domain.BrandCollection
}

func newFakeCatalogRepository() *fakeCatalogRepository {
	return &fakeCatalogRepository{
		attributes:  make(map[string]domain.Attribute),
		options:     make(map[string][]domain.Option),
		categories:  make(map[string]domain.Category),
		rubrics:     make(map[string][]domain.Category),
		brands:      make(map[string]domain.Brand),
		collections: make(map[string]domain.BrandCollection),
	}
}

func (r *fakeCatalogRepository) GetAttribute(_ context.Context, attributeID string) (domain.Attribute, error) {
	attribute, ok := r.attributes[attributeID]
	if !ok {
		return domain.Attribute{}, &fakeRepoError{msg: "attribute not found", notFound: true}
	}
	return attribute, nil
}

func (r *fakeCatalogRepository) ListOptions(_ context.Context, optionsGroupID string) ([]domain.Option, error) {
	return r.options[optionsGroupID], nil
}

func (r *fakeCatalogRepository) GetCategory(_ context.Context, categoryID string) (domain.Category, error) {
	category, ok := r.categories[categoryID]
	if !ok {
		return domain.Category{}, &fakeRepoError{msg: "category not found", notFound: true}
	}
	return category, nil
}

func (r *fakeCatalogRepository) ListRubricCategories(_ context.Context, rubricID string) ([]domain.Category, error) {
	return r.rubrics[rubricID], nil
}

func (r *fakeCatalogRepository) GetBrand(_ context.Context, brandID string) (domain.Brand, error) {
	brand, ok := r.brands[brandID]
	if !ok {
		return domain.Brand{}, &fakeRepoError{msg: "brand not found", notFound: true}
	}
	return brand, nil
}

func (r *fakeCatalogRepository) GetBrandCollection(_ context.Context, collectionID string) (domain.BrandCollection, error) {
	collection, ok := r.collections[collectionID]
	if !ok {
		return domain.BrandCollection{}, &fakeRepoError{msg: "brand collection not found", notFound: true}
	}
	return collection, nil
}

var _ repositories.CatalogRepository = (*fakeCatalogRepository)(nil)

// fakePermissionService grants or denies every operation uniformly.
type fakePermissionService struct {
	allow   bool
	message string
	checked []string
}

func (p *fakePermissionService) Check(_ context.Context, _ Actor, operationSlug string, _ string) (PermissionDecision, error) {
	p.checked = append(p.checked, operationSlug)
	return PermissionDecision{Allow: p.allow, Message: p.message}, nil
}

// fakeIndexRefreshPublisher signals each publish on a channel so tests can
// await the detached goroutine.
type fakeIndexRefreshPublisher struct {
	published chan string
}

func newFakeIndexRefreshPublisher() *fakeIndexRefreshPublisher {
	return &fakeIndexRefreshPublisher{published: make(chan string, 8)}
}

func (p *fakeIndexRefreshPublisher) PublishIndexRefresh(_ context.Context, productID string, _ string) (string, error) {
	p.published <- productID
	return "msg-1", nil
}

func (p *fakeIndexRefreshPublisher) await(t *testing.T) string {
	t.Helper()
	select {
	case productID := <-p.published:
		return productID
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for index refresh publish")
		return ""
	}
}

func (p *fakeIndexRefreshPublisher) count() int {
	return len(p.published)
}

type editServiceFixture struct {
	service     ProductEditService
	summaries   *fakeSummaryRepository
	catalog     *fakeCatalogRepository
	taskRepo    *fakeTaskRepository
	permissions *fakePermissionService
	publisher   *fakeIndexRefreshPublisher
}

func newEditServiceFixture(t *testing.T, summaries ...domain.ProductSummary) *editServiceFixture {
	t.Helper()

	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	summaryRepo := newFakeSummaryRepository(summaries...)
	catalog := newFakeCatalogRepository()
	taskRepo := newFakeTaskRepository()
	permissions := &fakePermissionService{allow: true}
	publisher := newFakeIndexRefreshPublisher()

	tasks, err := NewTaskService(TaskServiceDeps{
		Tasks: taskRepo,
		Clock: clock,
		NewID: sequenceIDs("task"),
	})
	if err != nil {
		t.Fatalf("NewTaskService: %v", err)
	}

	messages := i18n.NewMessages(i18n.NewLocales("en", "fr", []string{"en", "fr"}), nil)
	service, err := NewProductEditService(ProductEditServiceDeps{
		Summaries:   summaryRepo,
		Catalog:     catalog,
		Tasks:       tasks,
		Permissions: permissions,
		Publisher:   publisher,
		Messages:    messages,
		Clock:       clock,
		NewID:       sequenceIDs("id"),
	})
	if err != nil {
		t.Fatalf("NewProductEditService: %v", err)
	}

	return &editServiceFixture{
		service:     service,
		summaries:   summaryRepo,
		catalog:     catalog,
		taskRepo:    taskRepo,
		permissions: permissions,
		publisher:   publisher,
	}
}

func (f *editServiceFixture) withSelectAttribute() {
	attribute, options := selectAttributeFixture()
	f.catalog.attributes[attribute.ID] = attribute
	f.catalog.options[attribute.OptionsGroupID] = options
}

func strPtr(s string) *string { return &s }

func directEditor() Actor {
	return Actor{UserID: "u1", RoleSlug: "admin"}
}

func contentManager() Actor {
	return Actor{UserID: "cm-1", RoleSlug: "contentManager", IsContentManager: true}
}

func TestUpdateSelectAttributePermissionDenied(t *testing.T) {
	fixture := newEditServiceFixture(t, baseSummary())
	fixture.withSelectAttribute()
	fixture.permissions.allow = false
	fixture.permissions.message = "no access"

	result, err := fixture.service.UpdateProductSelectAttribute(context.Background(), directEditor(), UpdateSelectAttributeCommand{
		ProductID:   "p1",
		AttributeID: "a1",
		OptionIDs:   []string{"o1"},
		Locale:      "en",
	})
	if err != nil {
		t.Fatalf("UpdateProductSelectAttribute: %v", err)
	}
	if result.Success {
		t.Fatal("expected denial")
	}
	if result.Message != "no access" {
		t.Fatalf("expected permission message, got %q", result.Message)
	}
	// The pipeline must stop before touching any store.
	if fixture.summaries.finds != 0 || len(fixture.summaries.writes) != 0 {
		t.Fatalf("expected no repository access, got %d finds and %d writes", fixture.summaries.finds, len(fixture.summaries.writes))
	}
	if got := fixture.permissions.checked; !reflect.DeepEqual(got, []string{OpUpdateProductSelectAttribute}) {
		t.Fatalf("unexpected checked operations %v", got)
	}
}

func TestUpdateSelectAttributeDefersToTaskForContentManager(t *testing.T) {
	fixture := newEditServiceFixture(t, baseSummary())
	fixture.withSelectAttribute()

	result, err := fixture.service.UpdateProductSelectAttribute(context.Background(), contentManager(), UpdateSelectAttributeCommand{
		ProductID:   "p1",
		AttributeID: "a1",
		OptionIDs:   []string{"o1"},
		Locale:      "en",
	})
	if err != nil {
		t.Fatalf("UpdateProductSelectAttribute: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Message)
	}
	if result.TaskID == "" {
		t.Fatal("expected a task id on the deferred path")
	}

	// The canonical summary stays untouched.
	canonical := fixture.summaries.summaries["p1"]
	if len(canonical.Attributes) != 0 {
		t.Fatalf("canonical summary was modified: %+v", canonical.Attributes)
	}
	if len(fixture.summaries.writes) != 0 {
		t.Fatalf("expected no write-through, got %d", len(fixture.summaries.writes))
	}

	task, ok := fixture.taskRepo.tasks[result.TaskID]
	if !ok {
		t.Fatalf("task %s not persisted", result.TaskID)
	}
	if task.State != domain.TaskStatePending {
		t.Fatalf("expected pending task, got %s", task.State)
	}
	if len(task.Log) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(task.Log))
	}
	entry := task.Log[0]
	if len(entry.Diff.Added[domain.DiffGroupSelectAttributes]) != 1 {
		t.Fatalf("expected added selectAttributes in diff, got %+v", entry.Diff)
	}
	draft, ok := task.LatestDraft()
	if !ok || len(draft.Attributes) != 1 || !reflect.DeepEqual(draft.Attributes[0].OptionIDs, []string{"o1", "o2"}) {
		t.Fatalf("unexpected draft %+v", draft)
	}

	// Deferred edits never trigger an index refresh.
	if fixture.publisher.count() != 0 {
		t.Fatal("unexpected index refresh on deferred path")
	}
}

func TestUpdateSelectAttributeWritesThroughForDirectEditor(t *testing.T) {
	fixture := newEditServiceFixture(t, baseSummary())
	fixture.withSelectAttribute()

	result, err := fixture.service.UpdateProductSelectAttribute(context.Background(), directEditor(), UpdateSelectAttributeCommand{
		ProductID:   "p1",
		AttributeID: "a1",
		OptionIDs:   []string{"o1"},
		Locale:      "en",
	})
	if err != nil {
		t.Fatalf("UpdateProductSelectAttribute: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Message)
	}
	if result.TaskID != "" {
		t.Fatalf("unexpected task id %s on direct path", result.TaskID)
	}

	if len(fixture.summaries.writes) != 1 {
		t.Fatalf("expected 1 write-through, got %d", len(fixture.summaries.writes))
	}
	write := fixture.summaries.writes[0]
	wantStores := repositories.WriteSet{Summary: true, Facet: true, ShopProducts: true}
	if write.Stores != wantStores {
		t.Fatalf("unexpected write set %+v", write.Stores)
	}
	if !reflect.DeepEqual(write.Summary.FilterSlugs, []string{"grape:merlot", "grape:red"}) {
		t.Fatalf("unexpected committed filter slugs %v", write.Summary.FilterSlugs)
	}

	if got := fixture.publisher.await(t); got != "p1" {
		t.Fatalf("expected refresh for p1, got %s", got)
	}
	if len(fixture.taskRepo.tasks) != 0 {
		t.Fatal("unexpected task on direct path")
	}
}

func TestUpdateBrandNoOpSkipsCommit(t *testing.T) {
	summary := baseSummary()
	summary.BrandSlug = "margaux"
	fixture := newEditServiceFixture(t, summary)
	fixture.catalog.brands["b1"] = domain.Brand{ID: "b1", Slug: "margaux"}

	result, err := fixture.service.UpdateProductBrand(context.Background(), directEditor(), UpdateBrandCommand{
		ProductID: "p1",
		BrandID:   strPtr("b1"),
		Locale:    "en",
	})
	if err != nil {
		t.Fatalf("UpdateProductBrand: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected no-op success, got %q", result.Message)
	}
	if len(fixture.summaries.writes) != 0 {
		t.Fatalf("expected no writes on no-op, got %d", len(fixture.summaries.writes))
	}
	if fixture.publisher.count() != 0 {
		t.Fatal("unexpected index refresh on no-op")
	}
}

func TestUpdateBrandClearsStaleCollection(t *testing.T) {
	summary := baseSummary()
	summary.BrandSlug = "margaux"
	summary.BrandCollectionSlug = "grand-vin"
	fixture := newEditServiceFixture(t, summary)
	fixture.catalog.brands["b2"] = domain.Brand{ID: "b2", Slug: "latour"}

	result, err := fixture.service.UpdateProductBrand(context.Background(), directEditor(), UpdateBrandCommand{
		ProductID: "p1",
		BrandID:   strPtr("b2"),
		Locale:    "en",
	})
	if err != nil {
		t.Fatalf("UpdateProductBrand: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Message)
	}
	committed := fixture.summaries.summaries["p1"]
	if committed.BrandSlug != "latour" {
		t.Fatalf("expected brand latour, got %q", committed.BrandSlug)
	}
	if committed.BrandCollectionSlug != "" {
		t.Fatalf("expected stale collection cleared, got %q", committed.BrandCollectionSlug)
	}
	fixture.publisher.await(t)
}

func TestUpdateBrandRejectsForeignCollection(t *testing.T) {
	fixture := newEditServiceFixture(t, baseSummary())
	fixture.catalog.brands["b1"] = domain.Brand{ID: "b1", Slug: "margaux"}
	fixture.catalog.collections["col1"] = domain.BrandCollection{ID: "col1", Slug: "grand-vin", BrandSlug: "latour"}

	result, err := fixture.service.UpdateProductBrand(context.Background(), directEditor(), UpdateBrandCommand{
		ProductID:         "p1",
		BrandID:           strPtr("b1"),
		BrandCollectionID: strPtr("col1"),
		Locale:            "en",
	})
	if err != nil {
		t.Fatalf("UpdateProductBrand: %v", err)
	}
	if result.Success {
		t.Fatal("expected rejection for a collection of another brand")
	}
	if len(fixture.summaries.writes) != 0 {
		t.Fatal("expected no writes on rejection")
	}
}

func TestUpdateBrandRejectsForeignCollectionWithoutBrand(t *testing.T) {
	summary := baseSummary()
	summary.BrandSlug = "margaux"
	fixture := newEditServiceFixture(t, summary)
	fixture.catalog.collections["col1"] = domain.BrandCollection{ID: "col1", Slug: "grand-vin", BrandSlug: "latour"}

	result, err := fixture.service.UpdateProductBrand(context.Background(), directEditor(), UpdateBrandCommand{
		ProductID:         "p1",
		BrandCollectionID: strPtr("col1"),
		Locale:            "en",
	})
	if err != nil {
		t.Fatalf("UpdateProductBrand: %v", err)
	}
	if result.Success {
		t.Fatal("expected rejection when the collection belongs to another brand than the current one")
	}
	if len(fixture.summaries.writes) != 0 {
		t.Fatal("expected no writes on rejection")
	}
	committed := fixture.summaries.summaries["p1"]
	if committed.BrandSlug != "margaux" || committed.BrandCollectionSlug != "" {
		t.Fatalf("expected summary untouched, got %+v", committed)
	}
}

func TestUpdateBrandAcceptsCollectionOfCurrentBrand(t *testing.T) {
	summary := baseSummary()
	summary.BrandSlug = "margaux"
	fixture := newEditServiceFixture(t, summary)
	fixture.catalog.collections["col2"] = domain.BrandCollection{ID: "col2", Slug: "pavillon-rouge", BrandSlug: "margaux"}

	result, err := fixture.service.UpdateProductBrand(context.Background(), directEditor(), UpdateBrandCommand{
		ProductID:         "p1",
		BrandCollectionID: strPtr("col2"),
		Locale:            "en",
	})
	if err != nil {
		t.Fatalf("UpdateProductBrand: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Message)
	}
	committed := fixture.summaries.summaries["p1"]
	if committed.BrandSlug != "margaux" || committed.BrandCollectionSlug != "pavillon-rouge" {
		t.Fatalf("unexpected committed summary %+v", committed)
	}
	fixture.publisher.await(t)
}

func TestCreateVariantTypeMismatch(t *testing.T) {
	fixture := newEditServiceFixture(t, baseSummary())
	fixture.catalog.attributes["a-text"] = domain.Attribute{
		ID:      "a-text",
		Slug:    "description",
		Variant: domain.AttributeVariantText,
	}

	result, err := fixture.service.CreateProductVariant(context.Background(), directEditor(), CreateVariantCommand{
		ProductID:   "p1",
		AttributeID: "a-text",
		Products: []domain.VariantProduct{
			{ProductID: "p1", OptionID: "o1", IsCurrent: true},
		},
		Locale: "en",
	})
	if err != nil {
		t.Fatalf("CreateProductVariant: %v", err)
	}
	if result.Success {
		t.Fatal("expected type mismatch rejection")
	}
	if len(fixture.summaries.writes) != 0 {
		t.Fatal("expected no writes on rejection")
	}
}

func TestCreateVariantWritesSummaryOnly(t *testing.T) {
	fixture := newEditServiceFixture(t, baseSummary())
	fixture.withSelectAttribute()

	result, err := fixture.service.CreateProductVariant(context.Background(), directEditor(), CreateVariantCommand{
		ProductID:   "p1",
		AttributeID: "a1",
		Products: []domain.VariantProduct{
			{ProductID: "p1", OptionID: "o1", IsCurrent: true},
			{ProductID: "p2", OptionID: "o3"},
		},
		Locale: "en",
	})
	if err != nil {
		t.Fatalf("CreateProductVariant: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Message)
	}
	if len(fixture.summaries.writes) != 1 {
		t.Fatalf("expected 1 write, got %d", len(fixture.summaries.writes))
	}
	wantStores := repositories.WriteSet{Summary: true}
	if got := fixture.summaries.writes[0].Stores; got != wantStores {
		t.Fatalf("expected summary-only write set, got %+v", got)
	}
	// Variant membership never reaches the search index.
	if fixture.publisher.count() != 0 {
		t.Fatal("unexpected index refresh for variant creation")
	}
}

func TestUpdateCategoryProductNotFound(t *testing.T) {
	fixture := newEditServiceFixture(t)
	fixture.catalog.categories["c-red"] = domain.Category{ID: "c-red", Slug: "red-wine", RubricID: "wine"}

	result, err := fixture.service.UpdateProductCategory(context.Background(), directEditor(), UpdateCategoryCommand{
		ProductID:  "missing",
		CategoryID: "c-red",
		Selected:   true,
		Locale:     "en",
	})
	if err != nil {
		t.Fatalf("UpdateProductCategory: %v", err)
	}
	if result.Success {
		t.Fatal("expected product-not-found failure")
	}
	if result.Message != "Product not found" {
		t.Fatalf("unexpected message %q", result.Message)
	}
}

func TestContentManagerEditsAccumulateOnOneTask(t *testing.T) {
	fixture := newEditServiceFixture(t, baseSummary())
	fixture.withSelectAttribute()
	fixture.catalog.brands["b1"] = domain.Brand{ID: "b1", Slug: "margaux"}

	first, err := fixture.service.UpdateProductSelectAttribute(context.Background(), contentManager(), UpdateSelectAttributeCommand{
		ProductID:   "p1",
		AttributeID: "a1",
		OptionIDs:   []string{"o1"},
		Locale:      "en",
	})
	if err != nil {
		t.Fatalf("UpdateProductSelectAttribute: %v", err)
	}

	// The second edit must resolve the first edit's draft and append to the
	// same task.
	second, err := fixture.service.UpdateProductBrand(context.Background(), contentManager(), UpdateBrandCommand{
		ProductID: "p1",
		TaskID:    first.TaskID,
		BrandID:   strPtr("b1"),
		Locale:    "en",
	})
	if err != nil {
		t.Fatalf("UpdateProductBrand: %v", err)
	}
	if second.TaskID != first.TaskID {
		t.Fatalf("expected task reuse, got %s and %s", first.TaskID, second.TaskID)
	}

	task := fixture.taskRepo.tasks[first.TaskID]
	if len(task.Log) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(task.Log))
	}
	draft, _ := task.LatestDraft()
	if draft.BrandSlug != "margaux" {
		t.Fatalf("expected brand on latest draft, got %q", draft.BrandSlug)
	}
	if len(draft.Attributes) != 1 {
		t.Fatalf("expected first edit carried into latest draft, got %+v", draft.Attributes)
	}
}

func TestGetProductSummaryPrefersTaskDraft(t *testing.T) {
	fixture := newEditServiceFixture(t, baseSummary())
	fixture.withSelectAttribute()

	edited, err := fixture.service.UpdateProductSelectAttribute(context.Background(), contentManager(), UpdateSelectAttributeCommand{
		ProductID:   "p1",
		AttributeID: "a1",
		OptionIDs:   []string{"o1"},
		Locale:      "en",
	})
	if err != nil {
		t.Fatalf("UpdateProductSelectAttribute: %v", err)
	}

	withTask, err := fixture.service.GetProductSummary(context.Background(), contentManager(), "p1", edited.TaskID, "en")
	if err != nil {
		t.Fatalf("GetProductSummary: %v", err)
	}
	if !withTask.Success || withTask.Summary == nil {
		t.Fatalf("expected summary, got %+v", withTask)
	}
	if len(withTask.Summary.Attributes) != 1 {
		t.Fatalf("expected the task draft, got %+v", withTask.Summary)
	}

	canonical, err := fixture.service.GetProductSummary(context.Background(), directEditor(), "p1", "", "en")
	if err != nil {
		t.Fatalf("GetProductSummary: %v", err)
	}
	if len(canonical.Summary.Attributes) != 0 {
		t.Fatalf("expected the canonical summary, got %+v", canonical.Summary)
	}
}

func TestUpdateTextAttributesBatch(t *testing.T) {
	fixture := newEditServiceFixture(t, baseSummary())
	fixture.catalog.attributes["a-desc"] = domain.Attribute{
		ID:      "a-desc",
		Slug:    "description",
		Variant: domain.AttributeVariantText,
	}
	fixture.catalog.attributes["a-note"] = domain.Attribute{
		ID:      "a-note",
		Slug:    "tasting-note",
		Variant: domain.AttributeVariantText,
	}

	result, err := fixture.service.UpdateProductTextAttributes(context.Background(), directEditor(), UpdateTextAttributesCommand{
		ProductID: "p1",
		Items: []TextAttributeItem{
			{AttributeID: "a-desc", TextI18n: domain.LocalizedString{"en": "Full bodied"}},
			{AttributeID: "a-note", TextI18n: domain.LocalizedString{"en": "Oak <b>aged</b>"}},
		},
		Locale: "en",
	})
	if err != nil {
		t.Fatalf("UpdateProductTextAttributes: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Message)
	}

	committed := fixture.summaries.summaries["p1"]
	if len(committed.Attributes) != 2 {
		t.Fatalf("expected 2 text attributes, got %d", len(committed.Attributes))
	}
	for _, attribute := range committed.Attributes {
		if attribute.AttributeSlug == "tasting-note" && attribute.TextI18n["en"] != "Oak aged" {
			t.Fatalf("expected sanitized text, got %q", attribute.TextI18n["en"])
		}
	}
	fixture.publisher.await(t)
}
