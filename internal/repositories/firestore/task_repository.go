package firestore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/vintora/catalog-api/internal/domain"
	pfirestore "github.com/vintora/catalog-api/internal/platform/firestore"
	"github.com/vintora/catalog-api/internal/repositories"
)

const taskCollection = "tasks"

var openTaskStates = []string{string(domain.TaskStatePending), string(domain.TaskStateInProgress)}

// TaskRepository persists draft tasks and their append-only logs in Firestore.
type TaskRepository struct {
	provider *pfirestore.Provider
	tasks    *pfirestore.BaseRepository[taskDocument]
}

// NewTaskRepository constructs a Firestore-backed task repository.
func NewTaskRepository(provider *pfirestore.Provider) (*TaskRepository, error) {
	if provider == nil {
		return nil, errors.New("task repository requires firestore provider")
	}
	return &TaskRepository{
		provider: provider,
		tasks:    pfirestore.NewBaseRepository[taskDocument](provider, taskCollection, nil),
	}, nil
}

// FindOrCreate returns the open task for the key, creating the provided task
// when none exists. The lookup and insert share a transaction so concurrent
// editing sessions converge on a single task.
func (r *TaskRepository) FindOrCreate(ctx context.Context, key repositories.TaskKey, task domain.Task) (domain.Task, bool, error) {
	if r == nil || r.provider == nil {
		return domain.Task{}, false, errors.New("task repository not initialised")
	}
	productID := strings.TrimSpace(key.ProductID)
	executorID := strings.TrimSpace(key.ExecutorID)
	if productID == "" || executorID == "" {
		return domain.Task{}, false, errors.New("task repository: product id and executor id are required")
	}
	if strings.TrimSpace(task.ID) == "" {
		return domain.Task{}, false, errors.New("task repository: task id is required")
	}

	var (
		found   domain.Task
		created bool
	)
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		coll, err := r.tasks.CollectionRef(ctx)
		if err != nil {
			return err
		}

		query := coll.
			Where("productId", "==", productID).
			Where("executorId", "==", executorID).
			Where("variantSlug", "==", strings.TrimSpace(key.VariantSlug)).
			Where("state", "in", openTaskStates).
			Limit(1)

		iter := tx.Documents(query)
		defer iter.Stop()

		snap, err := iter.Next()
		if err == nil {
			var doc taskDocument
			if err := snap.DataTo(&doc); err != nil {
				return fmt.Errorf("decode task %s: %w", snap.Ref.ID, err)
			}
			found = doc.toDomain(snap.Ref.ID)
			created = false
			return nil
		}
		if !errors.Is(err, iterator.Done) {
			return err
		}

		taskRef, err := r.tasks.DocumentRef(ctx, task.ID)
		if err != nil {
			return err
		}
		doc := newTaskDocument(task)
		if err := tx.Create(taskRef, doc); err != nil {
			return err
		}
		found = doc.toDomain(task.ID)
		created = true
		return nil
	})
	if err != nil {
		return domain.Task{}, false, pfirestore.WrapError("task.findOrCreate", err)
	}
	return found, created, nil
}

// AppendLog atomically appends a log entry to an open task.
func (r *TaskRepository) AppendLog(ctx context.Context, taskID string, entry domain.TaskLog) (domain.Task, error) {
	return r.appendEntry(ctx, taskID, entry, false)
}

// UpdateState transitions the workflow state, recording the transition as a log entry.
func (r *TaskRepository) UpdateState(ctx context.Context, taskID string, entry domain.TaskLog) (domain.Task, error) {
	return r.appendEntry(ctx, taskID, entry, true)
}

func (r *TaskRepository) appendEntry(ctx context.Context, taskID string, entry domain.TaskLog, transition bool) (domain.Task, error) {
	if r == nil || r.provider == nil {
		return domain.Task{}, errors.New("task repository not initialised")
	}
	id := strings.TrimSpace(taskID)
	if id == "" {
		return domain.Task{}, errors.New("task repository: task id is required")
	}
	if strings.TrimSpace(entry.ID) == "" {
		return domain.Task{}, errors.New("task repository: log entry id is required")
	}

	var updated domain.Task
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		taskRef, err := r.tasks.DocumentRef(ctx, id)
		if err != nil {
			return err
		}
		snap, err := tx.Get(taskRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return pfirestore.NewNotFoundError("task.append", fmt.Errorf("task %s not found", id))
			}
			return err
		}
		var doc taskDocument
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode task %s: %w", id, err)
		}

		state := domain.TaskState(doc.State)
		if !state.IsOpen() {
			return pfirestore.NewConflictError("task.append", fmt.Errorf("task %s is %s", id, doc.State))
		}
		if transition {
			if !validTaskTransition(state, entry.NextState) {
				return pfirestore.NewConflictError("task.append", fmt.Errorf("task %s cannot move from %s to %s", id, state, entry.NextState))
			}
			doc.State = string(entry.NextState)
		}

		// State transitions carry the latest draft forward when the caller
		// supplies none, so the log invariant (latest entry holds the current
		// draft) survives moderation entries.
		if transition && strings.TrimSpace(entry.Draft.ID) == "" && len(doc.Log) > 0 {
			entry.Draft = doc.Log[len(doc.Log)-1].Draft.toDomain(doc.ProductID)
		}

		logEntry := newTaskLogDocument(entry)
		logEntry.PrevState = string(state)
		doc.Log = append(doc.Log, logEntry)
		doc.UpdatedAt = entry.CreatedAt.UTC()

		if err := tx.Set(taskRef, doc); err != nil {
			return err
		}
		updated = doc.toDomain(id)
		return nil
	})
	if err != nil {
		return domain.Task{}, pfirestore.WrapError("task.append", err)
	}
	return updated, nil
}

// FindByID loads a task with its full log.
func (r *TaskRepository) FindByID(ctx context.Context, taskID string) (domain.Task, error) {
	if r == nil || r.tasks == nil {
		return domain.Task{}, errors.New("task repository not initialised")
	}
	id := strings.TrimSpace(taskID)
	if id == "" {
		return domain.Task{}, errors.New("task repository: task id is required")
	}
	doc, err := r.tasks.Get(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	return doc.toDomain(id), nil
}

// List returns tasks matching the filter ordered by most recent activity.
func (r *TaskRepository) List(ctx context.Context, filter repositories.TaskListFilter) (domain.CursorPage[domain.Task], error) {
	if r == nil || r.provider == nil {
		return domain.CursorPage[domain.Task]{}, errors.New("task repository not initialised")
	}

	pageSize := filter.Pagination.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}

	coll, err := r.tasks.CollectionRef(ctx)
	if err != nil {
		return domain.CursorPage[domain.Task]{}, err
	}

	query := coll.Query
	if productID := strings.TrimSpace(filter.ProductID); productID != "" {
		query = query.Where("productId", "==", productID)
	}
	if executorID := strings.TrimSpace(filter.ExecutorID); executorID != "" {
		query = query.Where("executorId", "==", executorID)
	}
	if len(filter.States) > 0 {
		states := make([]string, 0, len(filter.States))
		for _, state := range filter.States {
			states = append(states, string(state))
		}
		query = query.Where("state", "in", states)
	}
	query = query.
		OrderBy("updatedAt", firestore.Desc).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Limit(pageSize + 1)

	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		cursor, err := decodeTaskPageToken(token)
		if err != nil {
			return domain.CursorPage[domain.Task]{}, pfirestore.WrapError("task.list", err)
		}
		query = query.StartAfter(cursor.UpdatedAt, cursor.ID)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var tasks []domain.Task
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.CursorPage[domain.Task]{}, pfirestore.WrapError("task.list", err)
		}
		var doc taskDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.CursorPage[domain.Task]{}, fmt.Errorf("decode task %s: %w", snap.Ref.ID, err)
		}
		tasks = append(tasks, doc.toDomain(snap.Ref.ID))
	}

	hasMore := len(tasks) > pageSize
	if hasMore {
		tasks = tasks[:pageSize]
	}
	var nextToken string
	if hasMore && len(tasks) > 0 {
		last := tasks[len(tasks)-1]
		encoded, err := encodeTaskPageToken(taskPageToken{ID: last.ID, UpdatedAt: last.UpdatedAt})
		if err != nil {
			return domain.CursorPage[domain.Task]{}, pfirestore.WrapError("task.list", err)
		}
		nextToken = encoded
	}

	return domain.CursorPage[domain.Task]{Items: tasks, NextPageToken: nextToken}, nil
}

var _ repositories.TaskRepository = (*TaskRepository)(nil)

func validTaskTransition(from domain.TaskState, to domain.TaskState) bool {
	switch from {
	case domain.TaskStatePending:
		return to == domain.TaskStateInProgress || to == domain.TaskStateDone || to == domain.TaskStateDeclined
	case domain.TaskStateInProgress:
		return to == domain.TaskStateDone || to == domain.TaskStateDeclined
	default:
		return false
	}
}

type taskPageToken struct {
	ID        string    `json:"id"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func encodeTaskPageToken(token taskPageToken) (string, error) {
	raw, err := json.Marshal(token)
	if err != nil {
		return "", fmt.Errorf("encode task page token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func decodeTaskPageToken(encoded string) (taskPageToken, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return taskPageToken{}, fmt.Errorf("decode task page token: %w", err)
	}
	var token taskPageToken
	if err := json.Unmarshal(raw, &token); err != nil {
		return taskPageToken{}, fmt.Errorf("decode task page token: %w", err)
	}
	if strings.TrimSpace(token.ID) == "" || token.UpdatedAt.IsZero() {
		return taskPageToken{}, errors.New("decode task page token: missing fields")
	}
	return token, nil
}

type taskDocument struct {
	NameI18n    map[string]string `firestore:"nameI18n,omitempty"`
	CompanySlug string            `firestore:"companySlug,omitempty"`
	State       string            `firestore:"state"`
	CreatedByID string            `firestore:"createdById"`
	ExecutorID  string            `firestore:"executorId"`
	ProductID   string            `firestore:"productId"`
	VariantSlug string            `firestore:"variantSlug,omitempty"`
	Log         []taskLogDocument `firestore:"log,omitempty"`
	CreatedAt   time.Time         `firestore:"createdAt"`
	UpdatedAt   time.Time         `firestore:"updatedAt"`
}

type taskLogDocument struct {
	ID          string              `firestore:"id"`
	Diff        summaryDiffDocument `firestore:"diff"`
	PrevState   string              `firestore:"prevState,omitempty"`
	NextState   string              `firestore:"nextState,omitempty"`
	Draft       summaryDocument     `firestore:"draft"`
	CreatedByID string              `firestore:"createdById"`
	CreatedAt   time.Time           `firestore:"createdAt"`
}

type summaryDiffDocument struct {
	Added   map[string][]string `firestore:"added,omitempty"`
	Updated map[string][]string `firestore:"updated,omitempty"`
	Deleted map[string][]string `firestore:"deleted,omitempty"`
}

func newTaskDocument(task domain.Task) taskDocument {
	doc := taskDocument{
		NameI18n:    task.NameI18n,
		CompanySlug: task.CompanySlug,
		State:       string(task.State),
		CreatedByID: task.CreatedByID,
		ExecutorID:  task.ExecutorID,
		ProductID:   task.ProductID,
		VariantSlug: task.VariantSlug,
		CreatedAt:   task.CreatedAt.UTC(),
		UpdatedAt:   task.UpdatedAt.UTC(),
	}
	for _, entry := range task.Log {
		doc.Log = append(doc.Log, newTaskLogDocument(entry))
	}
	return doc
}

func newTaskLogDocument(entry domain.TaskLog) taskLogDocument {
	return taskLogDocument{
		ID:          entry.ID,
		Diff:        newSummaryDiffDocument(entry.Diff),
		PrevState:   string(entry.PrevState),
		NextState:   string(entry.NextState),
		Draft:       newSummaryDocument(entry.Draft),
		CreatedByID: entry.CreatedByID,
		CreatedAt:   entry.CreatedAt.UTC(),
	}
}

func newSummaryDiffDocument(diff domain.SummaryDiff) summaryDiffDocument {
	return summaryDiffDocument{
		Added:   diffGroupsToDocument(diff.Added),
		Updated: diffGroupsToDocument(diff.Updated),
		Deleted: diffGroupsToDocument(diff.Deleted),
	}
}

func diffGroupsToDocument(groups map[domain.DiffGroup][]string) map[string][]string {
	if len(groups) == 0 {
		return nil
	}
	out := make(map[string][]string, len(groups))
	for group, slugs := range groups {
		out[string(group)] = append([]string(nil), slugs...)
	}
	return out
}

func diffGroupsFromDocument(groups map[string][]string) map[domain.DiffGroup][]string {
	if len(groups) == 0 {
		return nil
	}
	out := make(map[domain.DiffGroup][]string, len(groups))
	for group, slugs := range groups {
		out[domain.DiffGroup(group)] = append([]string(nil), slugs...)
	}
	return out
}

func (d taskDocument) toDomain(id string) domain.Task {
	task := domain.Task{
		ID:          id,
		NameI18n:    domain.LocalizedString(d.NameI18n).Clone(),
		CompanySlug: d.CompanySlug,
		State:       domain.TaskState(d.State),
		CreatedByID: d.CreatedByID,
		ExecutorID:  d.ExecutorID,
		ProductID:   d.ProductID,
		VariantSlug: d.VariantSlug,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	for _, entry := range d.Log {
		task.Log = append(task.Log, domain.TaskLog{
			ID: entry.ID,
			Diff: domain.SummaryDiff{
				Added:   diffGroupsFromDocument(entry.Diff.Added),
				Updated: diffGroupsFromDocument(entry.Diff.Updated),
				Deleted: diffGroupsFromDocument(entry.Diff.Deleted),
			},
			PrevState:   domain.TaskState(entry.PrevState),
			NextState:   domain.TaskState(entry.NextState),
			Draft:       entry.Draft.toDomain(d.ProductID),
			CreatedByID: entry.CreatedByID,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return task
}
