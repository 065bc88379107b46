package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/iterator"

	domain "github.com/vintora/catalog-api/internal/domain"
	pfirestore "github.com/vintora/catalog-api/internal/platform/firestore"
	"github.com/vintora/catalog-api/internal/repositories"
)

const roleCollection = "roles"

// RoleRepository resolves back-office roles for permission checks.
type RoleRepository struct {
	provider *pfirestore.Provider
	roles    *pfirestore.BaseRepository[roleDocument]
}

// NewRoleRepository constructs a Firestore-backed role repository.
func NewRoleRepository(provider *pfirestore.Provider) (*RoleRepository, error) {
	if provider == nil {
		return nil, errors.New("role repository requires firestore provider")
	}
	return &RoleRepository{
		provider: provider,
		roles:    pfirestore.NewBaseRepository[roleDocument](provider, roleCollection, nil),
	}, nil
}

// FindBySlug resolves a role by its slug.
func (r *RoleRepository) FindBySlug(ctx context.Context, slug string) (domain.Role, error) {
	if r == nil || r.roles == nil {
		return domain.Role{}, errors.New("role repository not initialised")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return domain.Role{}, errors.New("role repository: slug is required")
	}

	coll, err := r.roles.CollectionRef(ctx)
	if err != nil {
		return domain.Role{}, err
	}

	iter := coll.Where("slug", "==", slug).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return domain.Role{}, pfirestore.NewNotFoundError("role.findBySlug", fmt.Errorf("role %s not found", slug))
	}
	if err != nil {
		return domain.Role{}, pfirestore.WrapError("role.findBySlug", err)
	}

	var doc roleDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Role{}, fmt.Errorf("decode role %s: %w", snap.Ref.ID, err)
	}
	return domain.Role{
		ID:               snap.Ref.ID,
		Slug:             doc.Slug,
		NameI18n:         domain.LocalizedString(doc.NameI18n).Clone(),
		IsContentManager: doc.IsContentManager,
		AllowedSlugs:     append([]string(nil), doc.AllowedSlugs...),
	}, nil
}

var _ repositories.RoleRepository = (*RoleRepository)(nil)

type roleDocument struct {
	Slug             string            `firestore:"slug"`
	NameI18n         map[string]string `firestore:"nameI18n,omitempty"`
	IsContentManager bool              `firestore:"isContentManager"`
	AllowedSlugs     []string          `firestore:"allowedSlugs,omitempty"`
}
