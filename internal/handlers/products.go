package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/vintora/catalog-api/internal/domain"
	"github.com/vintora/catalog-api/internal/platform/httpx"
	"github.com/vintora/catalog-api/internal/platform/i18n"
	"github.com/vintora/catalog-api/internal/services"
)

// ProductHandlers exposes the per-field product edit endpoints. Every mutation
// resolves to one orchestrated edit; the commit path (direct or deferred into a
// task) is decided by the session, never by the client.
type ProductHandlers struct {
	edits   services.ProductEditService
	locales i18n.Locales
}

// NewProductHandlers constructs the product edit handler set.
func NewProductHandlers(edits services.ProductEditService, locales i18n.Locales) *ProductHandlers {
	return &ProductHandlers{edits: edits, locales: locales}
}

// Routes registers the product endpoints beneath /products.
func (h *ProductHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Route("/products/{productID}", func(pr chi.Router) {
		pr.Get("/summary", h.getSummary)
		pr.Patch("/brand", h.updateBrand)
		pr.Patch("/categories", h.updateCategory)
		pr.Patch("/title-categories", h.updateTitleCategory)
		pr.Patch("/attributes/select", h.updateSelectAttribute)
		pr.Patch("/attributes/text", h.updateTextAttributes)
		pr.Post("/variants", h.createVariant)
	})
}

type editResponse struct {
	Product *productSummaryView `json:"product,omitempty"`
	TaskID  string              `json:"taskId,omitempty"`
}

// writeEditResult folds the service outcome into the response envelope. Domain
// failures keep HTTP 200 with success=false; only infrastructure faults reach
// the 5xx path.
func writeEditResult(w http.ResponseWriter, r *http.Request, result services.EditResult, err error) {
	ctx := r.Context()
	if err != nil {
		httpx.WriteError(ctx, w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !result.Success {
		httpx.WriteFail(ctx, w, result.Message)
		return
	}

	payload := editResponse{TaskID: result.TaskID}
	if result.Summary != nil {
		view := buildProductSummaryView(*result.Summary)
		payload.Product = &view
	}
	httpx.WriteOK(ctx, w, result.Message, payload)
}

func (h *ProductHandlers) getSummary(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	taskID := strings.TrimSpace(r.URL.Query().Get("taskId"))
	locale := resolveLocale(r, h.locales)

	result, err := h.edits.GetProductSummary(r.Context(), actor, productID, taskID, locale)
	writeEditResult(w, r, result, err)
}

type updateBrandRequest struct {
	TaskID            string  `json:"taskId,omitempty"`
	BrandID           *string `json:"brandId,omitempty"`
	BrandCollectionID *string `json:"brandCollectionId,omitempty"`
}

func (h *ProductHandlers) updateBrand(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req updateBrandRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.edits.UpdateProductBrand(r.Context(), actor, services.UpdateBrandCommand{
		ProductID:         strings.TrimSpace(chi.URLParam(r, "productID")),
		TaskID:            req.TaskID,
		BrandID:           req.BrandID,
		BrandCollectionID: req.BrandCollectionID,
		Locale:            resolveLocale(r, h.locales),
	})
	writeEditResult(w, r, result, err)
}

type updateCategoryRequest struct {
	TaskID     string `json:"taskId,omitempty"`
	CategoryID string `json:"categoryId"`
	Selected   bool   `json:"selected"`
}

func (h *ProductHandlers) updateCategory(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req updateCategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.edits.UpdateProductCategory(r.Context(), actor, services.UpdateCategoryCommand{
		ProductID:  strings.TrimSpace(chi.URLParam(r, "productID")),
		TaskID:     req.TaskID,
		CategoryID: req.CategoryID,
		Selected:   req.Selected,
		Locale:     resolveLocale(r, h.locales),
	})
	writeEditResult(w, r, result, err)
}

type updateTitleCategoryRequest struct {
	TaskID     string `json:"taskId,omitempty"`
	CategoryID string `json:"categoryId"`
	Visible    bool   `json:"visible"`
}

func (h *ProductHandlers) updateTitleCategory(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req updateTitleCategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.edits.UpdateProductTitleCategory(r.Context(), actor, services.UpdateTitleCategoryCommand{
		ProductID:  strings.TrimSpace(chi.URLParam(r, "productID")),
		TaskID:     req.TaskID,
		CategoryID: req.CategoryID,
		Visible:    req.Visible,
		Locale:     resolveLocale(r, h.locales),
	})
	writeEditResult(w, r, result, err)
}

type updateSelectAttributeRequest struct {
	TaskID      string   `json:"taskId,omitempty"`
	AttributeID string   `json:"attributeId"`
	OptionIDs   []string `json:"optionIds"`
}

func (h *ProductHandlers) updateSelectAttribute(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req updateSelectAttributeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.edits.UpdateProductSelectAttribute(r.Context(), actor, services.UpdateSelectAttributeCommand{
		ProductID:   strings.TrimSpace(chi.URLParam(r, "productID")),
		TaskID:      req.TaskID,
		AttributeID: req.AttributeID,
		OptionIDs:   req.OptionIDs,
		Locale:      resolveLocale(r, h.locales),
	})
	writeEditResult(w, r, result, err)
}

type textAttributeItemRequest struct {
	ProductAttributeID string            `json:"productAttributeId,omitempty"`
	AttributeID        string            `json:"attributeId"`
	TextI18n           map[string]string `json:"textI18n"`
}

type updateTextAttributesRequest struct {
	TaskID string                     `json:"taskId,omitempty"`
	Items  []textAttributeItemRequest `json:"attributes"`
}

func (h *ProductHandlers) updateTextAttributes(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req updateTextAttributesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	items := make([]services.TextAttributeItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, services.TextAttributeItem{
			ProductAttributeID: item.ProductAttributeID,
			AttributeID:        item.AttributeID,
			TextI18n:           item.TextI18n,
		})
	}

	result, err := h.edits.UpdateProductTextAttributes(r.Context(), actor, services.UpdateTextAttributesCommand{
		ProductID: strings.TrimSpace(chi.URLParam(r, "productID")),
		TaskID:    req.TaskID,
		Items:     items,
		Locale:    resolveLocale(r, h.locales),
	})
	writeEditResult(w, r, result, err)
}

type createVariantRequest struct {
	TaskID      string                        `json:"taskId,omitempty"`
	AttributeID string                        `json:"attributeId"`
	Products    []createVariantProductRequest `json:"products"`
}

type createVariantProductRequest struct {
	ProductID string `json:"productId"`
	OptionID  string `json:"optionId"`
	IsCurrent bool   `json:"isCurrent,omitempty"`
}

func (h *ProductHandlers) createVariant(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req createVariantRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cmd := services.CreateVariantCommand{
		ProductID:   strings.TrimSpace(chi.URLParam(r, "productID")),
		TaskID:      req.TaskID,
		AttributeID: req.AttributeID,
		Locale:      resolveLocale(r, h.locales),
	}
	for _, product := range req.Products {
		cmd.Products = append(cmd.Products, domain.VariantProduct{
			ProductID: product.ProductID,
			OptionID:  product.OptionID,
			IsCurrent: product.IsCurrent,
		})
	}

	result, err := h.edits.CreateProductVariant(r.Context(), actor, cmd)
	writeEditResult(w, r, result, err)
}
