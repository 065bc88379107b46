package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	domain "github.com/vintora/catalog-api/internal/domain"
	"github.com/vintora/catalog-api/internal/platform/auth"
	"github.com/vintora/catalog-api/internal/platform/i18n"
	"github.com/vintora/catalog-api/internal/services"
)

type stubTaskService struct {
	findOrCreate func(ctx context.Context, cmd services.FindOrCreateTaskCommand) (domain.Task, bool, error)
	addLog       func(ctx context.Context, cmd services.AddTaskLogCommand) (domain.Task, error)
	get          func(ctx context.Context, taskID string) (domain.Task, error)
	list         func(ctx context.Context, query services.TaskListQuery) (domain.CursorPage[domain.Task], error)
	updateState  func(ctx context.Context, cmd services.UpdateTaskStateCommand) (domain.Task, error)
}

func (s *stubTaskService) FindOrCreateUserTask(ctx context.Context, cmd services.FindOrCreateTaskCommand) (domain.Task, bool, error) {
	return s.findOrCreate(ctx, cmd)
}

func (s *stubTaskService) AddTaskLogItem(ctx context.Context, cmd services.AddTaskLogCommand) (domain.Task, error) {
	return s.addLog(ctx, cmd)
}

func (s *stubTaskService) GetTask(ctx context.Context, taskID string) (domain.Task, error) {
	return s.get(ctx, taskID)
}

func (s *stubTaskService) ListTasks(ctx context.Context, query services.TaskListQuery) (domain.CursorPage[domain.Task], error) {
	return s.list(ctx, query)
}

func (s *stubTaskService) UpdateTaskState(ctx context.Context, cmd services.UpdateTaskStateCommand) (domain.Task, error) {
	return s.updateState(ctx, cmd)
}

var _ services.TaskService = (*stubTaskService)(nil)

func newTaskTestRouter(t *testing.T, tasks services.TaskService) (chi.Router, *auth.Verifier) {
	t.Helper()
	verifier := testVerifier(t)
	messages := i18n.NewMessages(testLocales(), nil)
	router := NewRouter(RouterDeps{
		Logger:   zap.NewNop(),
		Verifier: verifier,
		Tasks:    NewTaskHandlers(tasks, messages),
	})
	return router, verifier
}

func sampleTask() domain.Task {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	return domain.Task{
		ID:         "t1",
		State:      domain.TaskStatePending,
		ExecutorID: "cm-1",
		ProductID:  "p1",
		Log: []domain.TaskLog{{
			ID:        "log-1",
			NextState: domain.TaskStatePending,
			Draft:     domain.ProductSummary{ID: "p1", BrandSlug: "margaux"},
			CreatedAt: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestListTasksParsesFilters(t *testing.T) {
	var got services.TaskListQuery
	stub := &stubTaskService{
		list: func(_ context.Context, query services.TaskListQuery) (domain.CursorPage[domain.Task], error) {
			got = query
			return domain.CursorPage[domain.Task]{Items: []domain.Task{sampleTask()}, NextPageToken: "next"}, nil
		},
	}
	router, verifier := newTaskTestRouter(t, stub)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks?state=pending&state=inProgress&pageSize=5&executorId=cm-1&productId=p1&pageToken=tok", nil)
	req.Header.Set("Authorization", bearerToken(t, verifier, auth.Session{UserID: "mod-1"}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got.ProductID != "p1" || got.ExecutorID != "cm-1" {
		t.Fatalf("unexpected query %+v", got)
	}
	if len(got.States) != 2 || got.States[0] != domain.TaskStatePending || got.States[1] != domain.TaskStateInProgress {
		t.Fatalf("unexpected states %v", got.States)
	}
	if got.Pagination.PageSize != 5 || got.Pagination.PageToken != "tok" {
		t.Fatalf("unexpected pagination %+v", got.Pagination)
	}

	body := decodeEnvelope(t, rec)
	var payload taskListResponse
	if err := json.Unmarshal(body.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(payload.Tasks) != 1 || payload.Tasks[0].ID != "t1" {
		t.Fatalf("unexpected tasks %+v", payload.Tasks)
	}
	// List views stay shallow.
	if payload.Tasks[0].Draft != nil || len(payload.Tasks[0].Log) != 0 {
		t.Fatal("expected shallow task view in list response")
	}
	if payload.NextPageToken != "next" {
		t.Fatalf("unexpected next page token %q", payload.NextPageToken)
	}
}

func TestListTasksRejectsUnknownState(t *testing.T) {
	router, verifier := newTaskTestRouter(t, &stubTaskService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks?state=bogus", nil)
	req.Header.Set("Authorization", bearerToken(t, verifier, auth.Session{UserID: "mod-1"}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetTaskIncludesLogAndDraft(t *testing.T) {
	stub := &stubTaskService{
		get: func(_ context.Context, taskID string) (domain.Task, error) {
			if taskID != "t1" {
				t.Fatalf("unexpected task id %q", taskID)
			}
			return sampleTask(), nil
		},
	}
	router, verifier := newTaskTestRouter(t, stub)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/t1", nil)
	req.Header.Set("Authorization", bearerToken(t, verifier, auth.Session{UserID: "mod-1"}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	var payload taskResponse
	if err := json.Unmarshal(body.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(payload.Task.Log) != 1 {
		t.Fatalf("expected log in detail view, got %+v", payload.Task)
	}
	if payload.Task.Draft == nil || payload.Task.Draft.BrandSlug != "margaux" {
		t.Fatalf("expected latest draft, got %+v", payload.Task.Draft)
	}
}

func TestGetTaskNotFoundIsDomainFailure(t *testing.T) {
	stub := &stubTaskService{
		get: func(context.Context, string) (domain.Task, error) {
			return domain.Task{}, services.ErrTaskNotFound
		},
	}
	router, verifier := newTaskTestRouter(t, stub)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/missing", nil)
	req.Header.Set("Authorization", bearerToken(t, verifier, auth.Session{UserID: "mod-1"}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for domain failure, got %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if body.Success || body.Message != "Task not found" {
		t.Fatalf("unexpected envelope %+v", body)
	}
}

func TestFindOrCreateDefaultsExecutorToSession(t *testing.T) {
	var got services.FindOrCreateTaskCommand
	stub := &stubTaskService{
		findOrCreate: func(_ context.Context, cmd services.FindOrCreateTaskCommand) (domain.Task, bool, error) {
			got = cmd
			return sampleTask(), true, nil
		},
	}
	router, verifier := newTaskTestRouter(t, stub)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", strings.NewReader(`{"productId":"p1"}`))
	req.Header.Set("Authorization", bearerToken(t, verifier, auth.Session{UserID: "cm-1", CompanySlug: "vintora"}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got.ExecutorID != "cm-1" || got.CreatedByID != "cm-1" {
		t.Fatalf("expected session executor, got %+v", got)
	}
	if got.CompanySlug != "vintora" {
		t.Fatalf("expected session company, got %q", got.CompanySlug)
	}

	body := decodeEnvelope(t, rec)
	var payload taskResponse
	if err := json.Unmarshal(body.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if !payload.Created {
		t.Fatal("expected created flag")
	}
}

func TestUpdateTaskStateConflict(t *testing.T) {
	stub := &stubTaskService{
		updateState: func(context.Context, services.UpdateTaskStateCommand) (domain.Task, error) {
			return domain.Task{}, services.ErrTaskConflict
		},
	}
	router, verifier := newTaskTestRouter(t, stub)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/tasks/t1/state", strings.NewReader(`{"state":"declined"}`))
	req.Header.Set("Authorization", bearerToken(t, verifier, auth.Session{UserID: "mod-1"}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for domain failure, got %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if body.Success || body.Message != "The task cannot move to the requested state" {
		t.Fatalf("unexpected envelope %+v", body)
	}
}

func TestUpdateTaskStateForwardsActor(t *testing.T) {
	var got services.UpdateTaskStateCommand
	stub := &stubTaskService{
		updateState: func(_ context.Context, cmd services.UpdateTaskStateCommand) (domain.Task, error) {
			got = cmd
			task := sampleTask()
			task.State = domain.TaskStateDone
			return task, nil
		},
	}
	router, verifier := newTaskTestRouter(t, stub)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/tasks/t1/state", strings.NewReader(`{"state":"done"}`))
	req.Header.Set("Authorization", bearerToken(t, verifier, auth.Session{UserID: "mod-1"}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got.TaskID != "t1" || got.NextState != domain.TaskStateDone || got.ActorID != "mod-1" {
		t.Fatalf("unexpected command %+v", got)
	}
}
