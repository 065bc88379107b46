package services

import (
	"context"
	"fmt"

	domain "github.com/vintora/catalog-api/internal/domain"
	"github.com/vintora/catalog-api/internal/repositories"
)

type systemService struct {
	health      repositories.HealthRepository
	version     string
	environment string
}

// SystemServiceDeps bundles constructor inputs for the system service.
type SystemServiceDeps struct {
	Health      repositories.HealthRepository
	Version     string
	Environment string
}

// NewSystemService creates the health reporting service.
func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("system service: health repository is required")
	}
	return &systemService{
		health:      deps.Health,
		version:     deps.Version,
		environment: deps.Environment,
	}, nil
}

// Health collects dependency status and stamps build metadata onto the report.
func (s *systemService) Health(ctx context.Context) (domain.SystemHealthReport, error) {
	report, err := s.health.Collect(ctx)
	if err != nil {
		return domain.SystemHealthReport{}, err
	}
	report.Version = s.version
	report.Environment = s.environment
	return report, nil
}
