package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/vintora/catalog-api/internal/domain"
	"github.com/vintora/catalog-api/internal/repositories"
)

var (
	// ErrTaskInvalidInput reports missing or malformed task command fields.
	ErrTaskInvalidInput = errors.New("task service: invalid input")
	// ErrTaskNotFound reports a task id with no matching document.
	ErrTaskNotFound = errors.New("task service: not found")
	// ErrTaskConflict reports an append or transition against a closed task.
	ErrTaskConflict = errors.New("task service: conflict")
	// ErrTaskUnavailable reports a transient persistence failure.
	ErrTaskUnavailable = errors.New("task service: unavailable")
)

type taskService struct {
	tasks repositories.TaskRepository
	clock func() time.Time
	newID func() string
}

// TaskServiceDeps bundles constructor inputs for the task workflow service.
type TaskServiceDeps struct {
	Tasks repositories.TaskRepository
	Clock func() time.Time
	NewID func() string
}

// NewTaskService creates the draft task workflow service.
func NewTaskService(deps TaskServiceDeps) (TaskService, error) {
	if deps.Tasks == nil {
		return nil, fmt.Errorf("task service: task repository is required")
	}
	if deps.NewID == nil {
		return nil, fmt.Errorf("task service: id generator is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &taskService{
		tasks: deps.Tasks,
		clock: func() time.Time { return clock().UTC() },
		newID: deps.NewID,
	}, nil
}

// FindOrCreateUserTask returns the open task for the editing session. An
// explicit task id short-circuits the lookup; otherwise the open task matching
// (product, variant slug, executor) is reused, and a fresh pending task is
// created when none exists.
func (s *taskService) FindOrCreateUserTask(ctx context.Context, cmd FindOrCreateTaskCommand) (domain.Task, bool, error) {
	productID := strings.TrimSpace(cmd.ProductID)
	executorID := strings.TrimSpace(cmd.ExecutorID)
	if productID == "" || executorID == "" {
		return domain.Task{}, false, fmt.Errorf("%w: product id and executor id are required", ErrTaskInvalidInput)
	}

	if taskID := strings.TrimSpace(cmd.TaskID); taskID != "" {
		task, err := s.tasks.FindByID(ctx, taskID)
		if err == nil {
			return task, false, nil
		}
		if !isNotFound(err) {
			return domain.Task{}, false, s.wrap(err)
		}
		// The referenced task is gone; fall through to the keyed lookup.
	}

	now := s.clock()
	candidate := domain.Task{
		ID:          s.newID(),
		NameI18n:    cmd.NameI18n.Clone(),
		CompanySlug: strings.TrimSpace(cmd.CompanySlug),
		State:       domain.TaskStatePending,
		CreatedByID: strings.TrimSpace(cmd.CreatedByID),
		ExecutorID:  executorID,
		ProductID:   productID,
		VariantSlug: strings.TrimSpace(cmd.VariantSlug),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if candidate.CreatedByID == "" {
		candidate.CreatedByID = executorID
	}

	task, created, err := s.tasks.FindOrCreate(ctx, repositories.TaskKey{
		ProductID:   productID,
		VariantSlug: candidate.VariantSlug,
		ExecutorID:  executorID,
	}, candidate)
	if err != nil {
		return domain.Task{}, false, s.wrap(err)
	}
	return task, created, nil
}

// AddTaskLogItem appends a draft snapshot to the task's log.
func (s *taskService) AddTaskLogItem(ctx context.Context, cmd AddTaskLogCommand) (domain.Task, error) {
	taskID := strings.TrimSpace(cmd.TaskID)
	if taskID == "" {
		return domain.Task{}, fmt.Errorf("%w: task id is required", ErrTaskInvalidInput)
	}
	if strings.TrimSpace(cmd.Draft.ID) == "" {
		return domain.Task{}, fmt.Errorf("%w: draft snapshot is required", ErrTaskInvalidInput)
	}

	entry := domain.TaskLog{
		ID:          s.newID(),
		Diff:        cmd.Diff.Clone(),
		PrevState:   cmd.PrevState,
		NextState:   cmd.NextState,
		Draft:       cmd.Draft.Clone(),
		CreatedByID: strings.TrimSpace(cmd.CreatedByID),
		CreatedAt:   s.clock(),
	}

	task, err := s.tasks.AppendLog(ctx, taskID, entry)
	if err != nil {
		return domain.Task{}, s.wrap(err)
	}
	return task, nil
}

// GetTask loads a task with its full log.
func (s *taskService) GetTask(ctx context.Context, taskID string) (domain.Task, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return domain.Task{}, fmt.Errorf("%w: task id is required", ErrTaskInvalidInput)
	}
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return domain.Task{}, s.wrap(err)
	}
	return task, nil
}

// ListTasks returns tasks for the back-office board, newest activity first.
func (s *taskService) ListTasks(ctx context.Context, query TaskListQuery) (domain.CursorPage[domain.Task], error) {
	page, err := s.tasks.List(ctx, repositories.TaskListFilter{
		ProductID:  strings.TrimSpace(query.ProductID),
		ExecutorID: strings.TrimSpace(query.ExecutorID),
		States:     query.States,
		Pagination: query.Pagination,
	})
	if err != nil {
		return domain.CursorPage[domain.Task]{}, s.wrap(err)
	}
	return page, nil
}

// UpdateTaskState transitions the task workflow. Allowed moves are
// pending→inProgress, pending/inProgress→done or declined; done and declined
// are terminal.
func (s *taskService) UpdateTaskState(ctx context.Context, cmd UpdateTaskStateCommand) (domain.Task, error) {
	taskID := strings.TrimSpace(cmd.TaskID)
	if taskID == "" {
		return domain.Task{}, fmt.Errorf("%w: task id is required", ErrTaskInvalidInput)
	}
	switch cmd.NextState {
	case domain.TaskStateInProgress, domain.TaskStateDone, domain.TaskStateDeclined:
	default:
		return domain.Task{}, fmt.Errorf("%w: state %q is not a valid transition target", ErrTaskInvalidInput, cmd.NextState)
	}

	entry := domain.TaskLog{
		ID:          s.newID(),
		NextState:   cmd.NextState,
		CreatedByID: strings.TrimSpace(cmd.ActorID),
		CreatedAt:   s.clock(),
	}

	task, err := s.tasks.UpdateState(ctx, taskID, entry)
	if err != nil {
		return domain.Task{}, s.wrap(err)
	}
	return task, nil
}

func (s *taskService) wrap(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrTaskNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrTaskConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrTaskUnavailable, err)
		}
	}
	return err
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}
