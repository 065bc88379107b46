package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/vintora/catalog-api/internal/platform/config"
	"github.com/vintora/catalog-api/internal/platform/i18n"
	"github.com/vintora/catalog-api/internal/repositories"
	"github.com/vintora/catalog-api/internal/services"
)

// Services bundles the service-layer contracts the handlers rely upon.
type Services struct {
	Edits       services.ProductEditService
	Tasks       services.TaskService
	Permissions services.PermissionService
	System      services.SystemService
}

// Deps carries the externally constructed collaborators into the container.
// The repository registry and the refresh publisher are injected so tests can
// swap in-memory implementations.
type Deps struct {
	Config    config.Config
	Registry  repositories.Registry
	Publisher services.IndexRefreshPublisher
	Logger    *zap.Logger
	Version   string
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
	Messages     i18n.Messages
	Locales      i18n.Locales
}

// NewContainer assembles the service graph on top of the injected registry.
func NewContainer(_ context.Context, deps Deps) (*Container, error) {
	if deps.Registry == nil {
		return nil, errors.New("di: repositories registry is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	locales := i18n.NewLocales(deps.Config.Locale.Default, deps.Config.Locale.Secondary, deps.Config.Locale.Supported)
	messages := i18n.NewMessages(locales, nil)
	newID := func() string { return ulid.Make().String() }

	taskSvc, err := services.NewTaskService(services.TaskServiceDeps{
		Tasks: deps.Registry.Tasks(),
		Clock: time.Now,
		NewID: newID,
	})
	if err != nil {
		return nil, fmt.Errorf("build task service: %w", err)
	}

	permissionSvc, err := services.NewPermissionService(services.PermissionServiceDeps{
		Roles:    deps.Registry.Roles(),
		Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("build permission service: %w", err)
	}

	editSvc, err := services.NewProductEditService(services.ProductEditServiceDeps{
		Summaries:   deps.Registry.Summaries(),
		Catalog:     deps.Registry.Catalog(),
		Tasks:       taskSvc,
		Permissions: permissionSvc,
		Publisher:   deps.Publisher,
		Messages:    messages,
		Clock:       time.Now,
		NewID:       newID,
		Logger:      logger.Named("edits"),
	})
	if err != nil {
		return nil, fmt.Errorf("build product edit service: %w", err)
	}

	systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
		Health:      deps.Registry.Health(),
		Version:     deps.Version,
		Environment: deps.Config.Environment,
	})
	if err != nil {
		return nil, fmt.Errorf("build system service: %w", err)
	}

	return &Container{
		Config:       deps.Config,
		Repositories: deps.Registry,
		Services: Services{
			Edits:       editSvc,
			Tasks:       taskSvc,
			Permissions: permissionSvc,
			System:      systemSvc,
		},
		Messages: messages,
		Locales:  locales,
	}, nil
}

// Close releases repository clients and other held resources.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}
