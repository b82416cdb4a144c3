package service

import (
	"context"
	"fmt"
	"time"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/application/port"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/apperror"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/entity"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/workflow"
	"github.com/coconsulting2/TC3005B.501-Backend/pkg/utils"
	"github.com/go-playground/validator/v10"
)

// NewUser is the administrator's registration payload
type NewUser struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email"`
	Role  int    `json:"role" validate:"required,min=1,max=6"`
}

// UserService manages the actors of the request lifecycle. It is also the
// role resolver every other service consults.
type UserService interface {
	port.RoleResolver
	Register(ctx context.Context, actorID int64, input NewUser) (*entity.User, error)
	ContactResolver
}

type userServiceImpl struct {
	userRepo port.UserRepository
	codec    port.PIICodec
	validate *validator.Validate
	logger   Logger
	now      func() time.Time
}

// NewUserService creates a new UserService
func NewUserService(userRepo port.UserRepository, codec port.PIICodec, logger Logger) UserService {
	return &userServiceImpl{
		userRepo: userRepo,
		codec:    codec,
		validate: utils.NewValidator(),
		logger:   logger,
		now:      time.Now,
	}
}

// RoleOf returns the stored role of an active user
func (s *userServiceImpl) RoleOf(ctx context.Context, userID int64) (workflow.Role, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load user", "user_id", userID, "error", err)
		return 0, apperror.Persistence(err)
	}
	if user == nil {
		return 0, ErrUserNotFound
	}
	if !user.Active {
		return 0, ErrUserInactive
	}
	return user.Role, nil
}

// Register stores a new user with encrypted contact fields. Only
// administrators may register users.
func (s *userServiceImpl) Register(ctx context.Context, actorID int64, input NewUser) (*entity.User, error) {
	role, err := s.RoleOf(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if role != workflow.RoleAdministrator {
		return nil, ErrRoleNotPermitted
	}

	if err := s.validate.Struct(input); err != nil {
		return nil, apperror.Validation(utils.DescribeValidation(err))
	}

	newRole, err := workflow.ParseRole(input.Role)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}

	nameCipher, err := s.codec.Encrypt(utils.SanitizeString(input.Name))
	if err != nil {
		return nil, apperror.Persistence(fmt.Errorf("encrypt name: %w", err))
	}
	emailCipher, err := s.codec.Encrypt(input.Email)
	if err != nil {
		return nil, apperror.Persistence(fmt.Errorf("encrypt email: %w", err))
	}

	user := &entity.User{
		Role:        newRole,
		NameCipher:  nameCipher,
		EmailCipher: emailCipher,
		Active:      true,
		CreatedAt:   s.now(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		s.logger.Error("Failed to create user", "role", newRole, "error", err)
		return nil, apperror.Persistence(err)
	}

	s.logger.Info("User registered", "user_id", user.ID, "role", newRole, "by", actorID)
	return user, nil
}

// Contact decrypts the notification fields of a user
func (s *userServiceImpl) Contact(ctx context.Context, user *entity.User) (*entity.Contact, error) {
	name, err := s.codec.Decrypt(user.NameCipher)
	if err != nil {
		return nil, fmt.Errorf("decrypt name of user %d: %w", user.ID, err)
	}
	email, err := s.codec.Decrypt(user.EmailCipher)
	if err != nil {
		return nil, fmt.Errorf("decrypt email of user %d: %w", user.ID, err)
	}
	return &entity.Contact{UserID: user.ID, Name: name, Email: email}, nil
}
