package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/application/port"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/entity"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

var locationTables = map[entity.LocationKind]string{
	entity.LocationCountry: "countries",
	entity.LocationCity:    "cities",
}

// LocationRepository implements port.LocationRepository for countries and cities
type LocationRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewLocationRepository creates a new location repository
func NewLocationRepository(db *sqlite.DB, logger *zap.Logger) *LocationRepository {
	return &LocationRepository{
		db:     db,
		logger: logger,
	}
}

func tableFor(kind entity.LocationKind) (string, error) {
	table, ok := locationTables[kind]
	if !ok {
		return "", fmt.Errorf("unknown location kind %q", kind)
	}
	return table, nil
}

// FindByName returns the id of the row with exactly this name, or 0
func (r *LocationRepository) FindByName(ctx context.Context, kind entity.LocationKind, name string) (int64, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}

	var id int64
	err = r.db.Executor(ctx).QueryRowContext(ctx, `SELECT id FROM `+table+` WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		r.logger.Error("Failed to find location",
			zap.String("kind", string(kind)),
			zap.String("name", name),
			zap.Error(err))
		return 0, fmt.Errorf("failed to find %s: %w", kind, err)
	}

	return id, nil
}

// Insert adds a new name and returns its id, or port.ErrDuplicate
func (r *LocationRepository) Insert(ctx context.Context, kind entity.LocationKind, name string) (int64, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}

	result, err := r.db.Executor(ctx).ExecContext(ctx, `INSERT INTO `+table+` (name) VALUES (?)`, name)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%s %q: %w", kind, name, port.ErrDuplicate)
		}
		r.logger.Error("Failed to insert location",
			zap.String("kind", string(kind)),
			zap.String("name", name),
			zap.Error(err))
		return 0, fmt.Errorf("failed to insert %s: %w", kind, err)
	}

	return result.LastInsertId()
}

var _ port.LocationRepository = (*LocationRepository)(nil)
