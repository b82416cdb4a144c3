package repository

import (
	"context"
	"fmt"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/application/port"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/entity"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/workflow"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new status history repository
func NewHistoryRepository(db *sqlite.DB, logger *zap.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create records one status change
func (r *HistoryRepository) Create(ctx context.Context, change *entity.StatusChange) error {
	query := `
		INSERT INTO request_status_history (
			request_id, from_status, to_status, action, actor_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		change.RequestID,
		int(change.FromStatus),
		int(change.ToStatus),
		string(change.Action),
		change.ActorID,
		change.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create status change", zap.Int64("request_id", change.RequestID), zap.Error(err))
		return fmt.Errorf("failed to create status change: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	change.ID = id
	return nil
}

// ListByRequest returns the request's status changes oldest first
func (r *HistoryRepository) ListByRequest(ctx context.Context, requestID int64) ([]*entity.StatusChange, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, `
		SELECT id, request_id, from_status, to_status, action, actor_id, created_at
		FROM request_status_history
		WHERE request_id = ?
		ORDER BY id ASC
	`, requestID)
	if err != nil {
		r.logger.Error("Failed to list status history", zap.Int64("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to list status history: %w", err)
	}
	defer rows.Close()

	var changes []*entity.StatusChange
	for rows.Next() {
		var (
			change   entity.StatusChange
			from, to int
			action   string
		)
		if err := rows.Scan(&change.ID, &change.RequestID, &from, &to, &action, &change.ActorID, &change.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status change: %w", err)
		}
		change.FromStatus = workflow.Status(from)
		change.ToStatus = workflow.Status(to)
		change.Action = workflow.Action(action)
		changes = append(changes, &change)
	}

	return changes, rows.Err()
}

var _ port.HistoryRepository = (*HistoryRepository)(nil)
