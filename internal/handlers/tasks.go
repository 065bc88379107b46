package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/vintora/catalog-api/internal/domain"
	"github.com/vintora/catalog-api/internal/platform/httpx"
	"github.com/vintora/catalog-api/internal/platform/i18n"
	"github.com/vintora/catalog-api/internal/services"
)

const (
	defaultTaskPageSize = 20
	maxTaskPageSize     = 100
)

// TaskHandlers exposes the back-office task board endpoints.
type TaskHandlers struct {
	tasks    services.TaskService
	messages i18n.Messages
	locales  i18n.Locales
}

// NewTaskHandlers constructs the task handler set.
func NewTaskHandlers(tasks services.TaskService, messages i18n.Messages) *TaskHandlers {
	return &TaskHandlers{
		tasks:    tasks,
		messages: messages,
		locales:  messages.Locales(),
	}
}

// Routes registers the task endpoints beneath /tasks.
func (h *TaskHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Route("/tasks", func(tr chi.Router) {
		tr.Get("/", h.list)
		tr.Post("/", h.findOrCreate)
		tr.Get("/{taskID}", h.get)
		tr.Patch("/{taskID}/state", h.updateState)
	})
}

// writeTaskError maps the task service sentinels onto domain-failure envelopes.
func (h *TaskHandlers) writeTaskError(w http.ResponseWriter, r *http.Request, locale string, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrTaskInvalidInput):
		httpx.WriteFail(ctx, w, h.messages.Lookup(i18n.MsgInputMissing, locale))
	case errors.Is(err, services.ErrTaskNotFound):
		httpx.WriteFail(ctx, w, h.messages.Lookup(i18n.MsgTaskNotFound, locale))
	case errors.Is(err, services.ErrTaskConflict):
		httpx.WriteFail(ctx, w, h.messages.Lookup(i18n.MsgTaskStateTransition, locale))
	default:
		httpx.WriteError(ctx, w, http.StatusInternalServerError, h.messages.Lookup(i18n.MsgInternalError, locale))
	}
}

type taskListResponse struct {
	Tasks         []taskView `json:"tasks"`
	NextPageToken string     `json:"nextPageToken,omitempty"`
}

func (h *TaskHandlers) list(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireActor(w, r); !ok {
		return
	}
	locale := resolveLocale(r, h.locales)
	query := r.URL.Query()

	pageSize := defaultTaskPageSize
	if raw := strings.TrimSpace(query.Get("pageSize")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httpx.WriteError(r.Context(), w, http.StatusBadRequest, "pageSize must be a positive integer")
			return
		}
		if parsed > maxTaskPageSize {
			parsed = maxTaskPageSize
		}
		pageSize = parsed
	}

	var states []domain.TaskState
	for _, raw := range query["state"] {
		switch state := domain.TaskState(strings.TrimSpace(raw)); state {
		case domain.TaskStatePending, domain.TaskStateInProgress, domain.TaskStateDone, domain.TaskStateDeclined:
			states = append(states, state)
		case "":
		default:
			httpx.WriteError(r.Context(), w, http.StatusBadRequest, "unknown task state filter")
			return
		}
	}

	page, err := h.tasks.ListTasks(r.Context(), services.TaskListQuery{
		ProductID:  strings.TrimSpace(query.Get("productId")),
		ExecutorID: strings.TrimSpace(query.Get("executorId")),
		States:     states,
		Pagination: domain.Pagination{
			PageSize:  pageSize,
			PageToken: strings.TrimSpace(query.Get("pageToken")),
		},
	})
	if err != nil {
		h.writeTaskError(w, r, locale, err)
		return
	}

	payload := taskListResponse{
		Tasks:         make([]taskView, 0, len(page.Items)),
		NextPageToken: page.NextPageToken,
	}
	for _, task := range page.Items {
		payload.Tasks = append(payload.Tasks, buildTaskView(task, false))
	}
	httpx.WriteOK(r.Context(), w, "", payload)
}

type findOrCreateTaskRequest struct {
	TaskID      string            `json:"taskId,omitempty"`
	ProductID   string            `json:"productId"`
	VariantSlug string            `json:"variantSlug,omitempty"`
	ExecutorID  string            `json:"executorId,omitempty"`
	NameI18n    map[string]string `json:"nameI18n,omitempty"`
}

type taskResponse struct {
	Task    taskView `json:"task"`
	Created bool     `json:"created,omitempty"`
}

func (h *TaskHandlers) findOrCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req findOrCreateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	locale := resolveLocale(r, h.locales)

	executorID := strings.TrimSpace(req.ExecutorID)
	if executorID == "" {
		executorID = actor.UserID
	}

	task, created, err := h.tasks.FindOrCreateUserTask(r.Context(), services.FindOrCreateTaskCommand{
		TaskID:      req.TaskID,
		ProductID:   req.ProductID,
		VariantSlug: req.VariantSlug,
		ExecutorID:  executorID,
		CreatedByID: actor.UserID,
		CompanySlug: actor.CompanySlug,
		NameI18n:    req.NameI18n,
	})
	if err != nil {
		h.writeTaskError(w, r, locale, err)
		return
	}
	httpx.WriteOK(r.Context(), w, "", taskResponse{Task: buildTaskView(task, true), Created: created})
}

func (h *TaskHandlers) get(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireActor(w, r); !ok {
		return
	}
	locale := resolveLocale(r, h.locales)

	task, err := h.tasks.GetTask(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		h.writeTaskError(w, r, locale, err)
		return
	}
	httpx.WriteOK(r.Context(), w, "", taskResponse{Task: buildTaskView(task, true)})
}

type updateTaskStateRequest struct {
	State string `json:"state"`
}

func (h *TaskHandlers) updateState(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req updateTaskStateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	locale := resolveLocale(r, h.locales)

	task, err := h.tasks.UpdateTaskState(r.Context(), services.UpdateTaskStateCommand{
		TaskID:    chi.URLParam(r, "taskID"),
		NextState: domain.TaskState(strings.TrimSpace(req.State)),
		ActorID:   actor.UserID,
	})
	if err != nil {
		h.writeTaskError(w, r, locale, err)
		return
	}
	httpx.WriteOK(r.Context(), w, h.messages.Lookup(i18n.MsgTaskUpdateSuccess, locale), taskResponse{Task: buildTaskView(task, true)})
}
