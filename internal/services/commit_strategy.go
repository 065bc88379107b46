package services

import (
	"context"
	"fmt"
	"time"

	domain "github.com/vintora/catalog-api/internal/domain"
	"github.com/vintora/catalog-api/internal/repositories"
)

// editCommit carries everything a commit strategy needs to persist one edit.
type editCommit struct {
	actor       Actor
	operation   string
	taskID      string
	variantSlug string
	summary     domain.ProductSummary
	diff        domain.SummaryDiff
	writes      repositories.WriteSet
}

// commitOutcome reports where the edit landed: the canonical summary for the
// direct path, the task for the deferred path.
type commitOutcome struct {
	summary domain.ProductSummary
	task    *domain.Task
}

// commitStrategy persists a computed edit. The variant is chosen once per
// request from the actor's content-manager flag: content managers defer the
// draft into a task, direct editors write through to the canonical stores.
type commitStrategy interface {
	Commit(ctx context.Context, commit editCommit) (commitOutcome, error)
}

// deferToTaskStrategy appends the draft to the actor's open task, leaving the
// canonical summary and its projections untouched.
type deferToTaskStrategy struct {
	tasks TaskService
}

func (s deferToTaskStrategy) Commit(ctx context.Context, commit editCommit) (commitOutcome, error) {
	task, _, err := s.tasks.FindOrCreateUserTask(ctx, FindOrCreateTaskCommand{
		TaskID:      commit.taskID,
		ProductID:   commit.summary.ID,
		VariantSlug: commit.variantSlug,
		ExecutorID:  commit.actor.UserID,
		CreatedByID: commit.actor.UserID,
		CompanySlug: commit.actor.CompanySlug,
		NameI18n:    domain.LocalizedString{"en": commit.operation},
	})
	if err != nil {
		return commitOutcome{}, fmt.Errorf("defer to task: %w", err)
	}

	updated, err := s.tasks.AddTaskLogItem(ctx, AddTaskLogCommand{
		TaskID:      task.ID,
		Diff:        commit.diff,
		PrevState:   task.State,
		NextState:   task.State,
		Draft:       commit.summary,
		CreatedByID: commit.actor.UserID,
	})
	if err != nil {
		return commitOutcome{}, fmt.Errorf("defer to task: %w", err)
	}
	return commitOutcome{summary: commit.summary, task: &updated}, nil
}

// writeThroughStrategy commits the summary and its declared projections in one
// transaction. Any failed write aborts the whole transaction.
type writeThroughStrategy struct {
	summaries repositories.SummaryRepository
	clock     func() time.Time
}

func (s writeThroughStrategy) Commit(ctx context.Context, commit editCommit) (commitOutcome, error) {
	saved, err := s.summaries.WriteThrough(ctx, repositories.WriteThroughRequest{
		Summary: commit.summary,
		Stores:  commit.writes,
		Now:     s.clock(),
	})
	if err != nil {
		return commitOutcome{}, fmt.Errorf("write through: %w", err)
	}
	return commitOutcome{summary: saved}, nil
}
