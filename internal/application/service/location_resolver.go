package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/application/port"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/entity"
)

// LocationResolver turns a country or city name into its reference id,
// inserting the name the first time it is seen.
type LocationResolver interface {
	Resolve(ctx context.Context, kind entity.LocationKind, name string) (int64, error)
}

type locationResolverImpl struct {
	repo   port.LocationRepository
	logger Logger
}

// NewLocationResolver creates a new LocationResolver
func NewLocationResolver(repo port.LocationRepository, logger Logger) LocationResolver {
	return &locationResolverImpl{
		repo:   repo,
		logger: logger,
	}
}

// Resolve is idempotent per name. A concurrent insert of the same name is
// absorbed by the unique constraint and answered with a re-read.
func (r *locationResolverImpl) Resolve(ctx context.Context, kind entity.LocationKind, name string) (int64, error) {
	if !kind.IsValid() {
		return 0, fmt.Errorf("unknown location kind %q", kind)
	}

	id, err := r.repo.FindByName(ctx, kind, name)
	if err != nil {
		return 0, err
	}
	if id != 0 {
		return id, nil
	}

	id, err = r.repo.Insert(ctx, kind, name)
	if err == nil {
		r.logger.Info("Location registered", "kind", kind, "name", name, "id", id)
		return id, nil
	}
	if !errors.Is(err, port.ErrDuplicate) {
		return 0, err
	}

	id, err = r.repo.FindByName(ctx, kind, name)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, fmt.Errorf("%s %q reported duplicate but is not readable", kind, name)
	}
	return id, nil
}
