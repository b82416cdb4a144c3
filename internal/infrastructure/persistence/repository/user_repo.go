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

// UserRepository implements port.UserRepository
type UserRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlite.DB, logger *zap.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a user and sets its ID. Name and email must already be encrypted.
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx,
		`INSERT INTO users (role, name_cipher, email_cipher, active, created_at) VALUES (?, ?, ?, ?, ?)`,
		int(user.Role), user.NameCipher, user.EmailCipher, user.Active, user.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create user", zap.Stringer("role", user.Role), zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	user.ID = id
	return nil
}

// GetByID returns nil, nil when the user does not exist
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	user, err := scanUser(r.db.Executor(ctx).QueryRowContext(ctx,
		`SELECT id, role, name_cipher, email_cipher, active, created_at FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ListActiveByRole returns active users holding role
func (r *UserRepository) ListActiveByRole(ctx context.Context, role workflow.Role) ([]*entity.User, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx,
		`SELECT id, role, name_cipher, email_cipher, active, created_at
		FROM users WHERE role = ? AND active = 1 ORDER BY id ASC`, int(role))
	if err != nil {
		r.logger.Error("Failed to list users by role", zap.Stringer("role", role), zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

func scanUser(row rowScanner) (*entity.User, error) {
	var (
		user entity.User
		role int
	)
	if err := row.Scan(&user.ID, &role, &user.NameCipher, &user.EmailCipher, &user.Active, &user.CreatedAt); err != nil {
		return nil, err
	}

	var err error
	if user.Role, err = workflow.ParseRole(role); err != nil {
		return nil, err
	}
	return &user, nil
}

var _ port.UserRepository = (*UserRepository)(nil)
