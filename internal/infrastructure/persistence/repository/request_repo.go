package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/application/port"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/entity"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/workflow"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const requestColumns = `id, owner_id, status, notes, proposed_fee, imposed_fee, trip_days, created_at, updated_at`

// RequestRepository implements port.RequestRepository
type RequestRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *sqlite.DB, logger *zap.Logger) *RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a request and sets its ID
func (r *RequestRepository) Create(ctx context.Context, req *entity.Request) error {
	if !req.Status.IsValid() {
		return fmt.Errorf("failed to create request: %w: %d", workflow.ErrInvalidState, int(req.Status))
	}

	query := `
		INSERT INTO requests (
			owner_id, status, notes, proposed_fee, imposed_fee, trip_days, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		req.OwnerID,
		int(req.Status),
		req.Notes,
		req.ProposedFee,
		req.ImposedFee,
		req.TripDays,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create request", zap.Int64("owner_id", req.OwnerID), zap.Error(err))
		return fmt.Errorf("failed to create request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	req.ID = id
	return nil
}

// GetByID returns nil, nil when the request does not exist
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*entity.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = ?`

	req, err := scanRequest(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get request by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get request: %w", err)
	}

	return req, nil
}

// UpdateDetails writes notes, proposed fee, trip days and the modification time
func (r *RequestRepository) UpdateDetails(ctx context.Context, req *entity.Request) error {
	query := `
		UPDATE requests
		SET notes = ?, proposed_fee = ?, trip_days = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		req.Notes,
		req.ProposedFee,
		req.TripDays,
		req.UpdatedAt,
		req.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update request", zap.Int64("id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to update request: %w", err)
	}

	return requireAffected(result, "request", req.ID)
}

// UpdateStatus writes the status, and the imposed fee when given, in one statement
func (r *RequestRepository) UpdateStatus(ctx context.Context, update entity.StatusUpdate) error {
	if !update.Status.IsValid() {
		return fmt.Errorf("failed to update status: %w: %d", workflow.ErrInvalidState, int(update.Status))
	}

	var (
		result sql.Result
		err    error
	)
	exec := r.db.Executor(ctx)

	if update.ImposedFee != nil {
		result, err = exec.ExecContext(ctx,
			`UPDATE requests SET status = ?, imposed_fee = ?, updated_at = ? WHERE id = ?`,
			int(update.Status), *update.ImposedFee, update.UpdatedAt, update.RequestID)
	} else {
		result, err = exec.ExecContext(ctx,
			`UPDATE requests SET status = ?, updated_at = ? WHERE id = ?`,
			int(update.Status), update.UpdatedAt, update.RequestID)
	}
	if err != nil {
		r.logger.Error("Failed to update request status",
			zap.Int64("id", update.RequestID),
			zap.Stringer("status", update.Status),
			zap.Error(err))
		return fmt.Errorf("failed to update request status: %w", err)
	}

	return requireAffected(result, "request", update.RequestID)
}

// ListByOwner returns the owner's requests, newest first
func (r *RequestRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*entity.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE owner_id = ? ORDER BY id DESC`
	return r.list(ctx, query, ownerID)
}

// ListByStatus returns the requests currently in status, oldest first
func (r *RequestRepository) ListByStatus(ctx context.Context, status workflow.Status) ([]*entity.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE status = ? ORDER BY id ASC`
	return r.list(ctx, query, int(status))
}

func (r *RequestRepository) list(ctx context.Context, query string, arg interface{}) ([]*entity.Request, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, arg)
	if err != nil {
		r.logger.Error("Failed to list requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var requests []*entity.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, req)
	}

	return requests, rows.Err()
}

func scanRequest(row rowScanner) (*entity.Request, error) {
	var (
		req    entity.Request
		status int
	)

	err := row.Scan(
		&req.ID,
		&req.OwnerID,
		&status,
		&req.Notes,
		&req.ProposedFee,
		&req.ImposedFee,
		&req.TripDays,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if req.Status, err = workflow.ParseStatus(status); err != nil {
		return nil, err
	}

	return &req, nil
}

func requireAffected(result sql.Result, what string, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, port.ErrNotFound)
	}
	return nil
}

var _ port.RequestRepository = (*RequestRepository)(nil)
