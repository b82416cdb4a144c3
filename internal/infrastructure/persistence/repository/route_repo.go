package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/application/port"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/entity"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// RouteRepository implements port.RouteRepository over routes and request_routes
type RouteRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewRouteRepository creates a new route repository
func NewRouteRepository(db *sqlite.DB, logger *zap.Logger) *RouteRepository {
	return &RouteRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a route row and sets its ID. The route is not linked yet.
func (r *RouteRepository) Create(ctx context.Context, route *entity.Route) error {
	query := `
		INSERT INTO routes (
			sequence, origin_country_id, origin_city_id,
			destination_country_id, destination_city_id,
			starts_at, ends_at, needs_flight, needs_hotel
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		route.Sequence,
		route.OriginCountryID,
		route.OriginCityID,
		route.DestinationCountryID,
		route.DestinationCityID,
		route.StartsAt,
		route.EndsAt,
		route.NeedsFlight,
		route.NeedsHotel,
	)
	if err != nil {
		r.logger.Error("Failed to create route", zap.Int("sequence", route.Sequence), zap.Error(err))
		return fmt.Errorf("failed to create route: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	route.ID = id
	return nil
}

// Link associates a route with its request
func (r *RouteRepository) Link(ctx context.Context, requestID, routeID int64) error {
	_, err := r.db.Executor(ctx).ExecContext(ctx,
		`INSERT INTO request_routes (request_id, route_id) VALUES (?, ?)`,
		requestID, routeID)
	if err != nil {
		r.logger.Error("Failed to link route",
			zap.Int64("request_id", requestID),
			zap.Int64("route_id", routeID),
			zap.Error(err))
		return fmt.Errorf("failed to link route: %w", err)
	}
	return nil
}

// ListByRequest returns the request's legs ordered by sequence, with location names
func (r *RouteRepository) ListByRequest(ctx context.Context, requestID int64) ([]*entity.Route, error) {
	query := `
		SELECT r.id, r.sequence,
			r.origin_country_id, oc.name, r.origin_city_id, oci.name,
			r.destination_country_id, dc.name, r.destination_city_id, dci.name,
			r.starts_at, r.ends_at, r.needs_flight, r.needs_hotel
		FROM request_routes rr
		JOIN routes r ON r.id = rr.route_id
		JOIN countries oc ON oc.id = r.origin_country_id
		JOIN cities oci ON oci.id = r.origin_city_id
		JOIN countries dc ON dc.id = r.destination_country_id
		JOIN cities dci ON dci.id = r.destination_city_id
		WHERE rr.request_id = ?
		ORDER BY r.sequence ASC, r.id ASC
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to list routes", zap.Int64("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	defer rows.Close()

	var routes []*entity.Route
	for rows.Next() {
		var route entity.Route
		if err := rows.Scan(
			&route.ID,
			&route.Sequence,
			&route.OriginCountryID,
			&route.OriginCountry,
			&route.OriginCityID,
			&route.OriginCity,
			&route.DestinationCountryID,
			&route.DestinationCountry,
			&route.DestinationCityID,
			&route.DestinationCity,
			&route.StartsAt,
			&route.EndsAt,
			&route.NeedsFlight,
			&route.NeedsHotel,
		); err != nil {
			return nil, fmt.Errorf("failed to scan route: %w", err)
		}
		routes = append(routes, &route)
	}

	return routes, rows.Err()
}

// DeleteByRequest removes every link of the request, then the routes those
// links pointed to. It returns the number of routes removed.
func (r *RouteRepository) DeleteByRequest(ctx context.Context, requestID int64) (int64, error) {
	exec := r.db.Executor(ctx)

	rows, err := exec.QueryContext(ctx, `SELECT route_id FROM request_routes WHERE request_id = ?`, requestID)
	if err != nil {
		return 0, fmt.Errorf("failed to list linked routes: %w", err)
	}

	var ids []interface{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan linked route: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Close(); err != nil {
		return 0, fmt.Errorf("failed to list linked routes: %w", err)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to list linked routes: %w", err)
	}

	if _, err := exec.ExecContext(ctx, `DELETE FROM request_routes WHERE request_id = ?`, requestID); err != nil {
		r.logger.Error("Failed to delete route links", zap.Int64("request_id", requestID), zap.Error(err))
		return 0, fmt.Errorf("failed to delete route links: %w", err)
	}

	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	result, err := exec.ExecContext(ctx, `DELETE FROM routes WHERE id IN (`+placeholders+`)`, ids...)
	if err != nil {
		r.logger.Error("Failed to delete routes", zap.Int64("request_id", requestID), zap.Error(err))
		return 0, fmt.Errorf("failed to delete routes: %w", err)
	}

	return result.RowsAffected()
}

var _ port.RouteRepository = (*RouteRepository)(nil)
