package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/vintora/catalog-api/internal/platform/firestore"
	"github.com/vintora/catalog-api/internal/repositories"
)

// Registry bundles the Firestore-backed repositories behind the repositories.Registry contract.
type Registry struct {
	provider  *pfirestore.Provider
	summaries *SummaryRepository
	tasks     *TaskRepository
	catalog   *CatalogRepository
	roles     *RoleRepository
	health    repositories.HealthRepository
}

// NewRegistry wires every repository against the shared provider.
func NewRegistry(provider *pfirestore.Provider, health repositories.HealthRepository) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}
	if health == nil {
		return nil, errors.New("registry requires health repository")
	}

	summaries, err := NewSummaryRepository(provider)
	if err != nil {
		return nil, err
	}
	tasks, err := NewTaskRepository(provider)
	if err != nil {
		return nil, err
	}
	catalog, err := NewCatalogRepository(provider)
	if err != nil {
		return nil, err
	}
	roles, err := NewRoleRepository(provider)
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider:  provider,
		summaries: summaries,
		tasks:     tasks,
		catalog:   catalog,
		roles:     roles,
		health:    health,
	}, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

// Summaries returns the product summary repository.
func (r *Registry) Summaries() repositories.SummaryRepository { return r.summaries }

// Tasks returns the draft task repository.
func (r *Registry) Tasks() repositories.TaskRepository { return r.tasks }

// Catalog returns the reference catalog repository.
func (r *Registry) Catalog() repositories.CatalogRepository { return r.catalog }

// Roles returns the role repository.
func (r *Registry) Roles() repositories.RoleRepository { return r.roles }

// Health returns the dependency health repository.
func (r *Registry) Health() repositories.HealthRepository { return r.health }

var _ repositories.Registry = (*Registry)(nil)
