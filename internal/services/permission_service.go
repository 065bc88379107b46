package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vintora/catalog-api/internal/platform/i18n"
	"github.com/vintora/catalog-api/internal/repositories"
)

type permissionService struct {
	roles    repositories.RoleRepository
	messages i18n.Messages
}

// PermissionServiceDeps bundles constructor inputs for the permission collaborator.
type PermissionServiceDeps struct {
	Roles    repositories.RoleRepository
	Messages i18n.Messages
}

// NewPermissionService creates the permission collaborator consulted before
// every mutation.
func NewPermissionService(deps PermissionServiceDeps) (PermissionService, error) {
	if deps.Roles == nil {
		return nil, fmt.Errorf("permission service: role repository is required")
	}
	return &permissionService{
		roles:    deps.Roles,
		messages: deps.Messages,
	}, nil
}

// Check resolves the actor's role and verifies the operation slug against its
// allow-list. An unknown role denies; backend outages surface as errors so the
// caller can distinguish a deny from a lookup failure.
func (s *permissionService) Check(ctx context.Context, actor Actor, operationSlug string, locale string) (PermissionDecision, error) {
	deny := PermissionDecision{
		Allow:   false,
		Message: s.messages.Lookup(i18n.MsgPermissionDenied, locale),
	}

	roleSlug := strings.TrimSpace(actor.RoleSlug)
	if roleSlug == "" || strings.TrimSpace(operationSlug) == "" {
		return deny, nil
	}

	role, err := s.roles.FindBySlug(ctx, roleSlug)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return deny, nil
		}
		return deny, fmt.Errorf("permission service: resolve role %s: %w", roleSlug, err)
	}

	if !role.Allows(operationSlug) {
		deny.Role = role
		return deny, nil
	}

	return PermissionDecision{Allow: true, Role: role}, nil
}
