package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/application/port"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/entity"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/event"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/workflow"
)

// NotificationService tells the owner and the next queue about a status change
type NotificationService interface {
	// HandleStatusChange is registered on the dispatcher for request events
	HandleStatusChange(ctx context.Context, evt *event.Event) error
	Recipients(ctx context.Context, requestID int64, status workflow.Status) ([]*entity.User, error)
}

// ContactResolver decrypts the notification fields of a user. UserService
// is the production implementation.
type ContactResolver interface {
	Contact(ctx context.Context, user *entity.User) (*entity.Contact, error)
}

type notificationServiceImpl struct {
	requestRepo port.RequestRepository
	userRepo    port.UserRepository
	contacts    ContactResolver
	notifier    port.Notifier
	logger      Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	requestRepo port.RequestRepository,
	userRepo port.UserRepository,
	contacts ContactResolver,
	notifier port.Notifier,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		requestRepo: requestRepo,
		userRepo:    userRepo,
		contacts:    contacts,
		notifier:    notifier,
		logger:      logger,
	}
}

// HandleStatusChange notifies every recipient and reports the failures
// together. One failed delivery does not stop the others.
func (s *notificationServiceImpl) HandleStatusChange(ctx context.Context, evt *event.Event) error {
	status := evt.ToStatus()
	if !status.IsValid() {
		return fmt.Errorf("event %s carries no target status", evt.ID)
	}

	recipients, err := s.Recipients(ctx, evt.RequestID, status)
	if err != nil {
		s.logger.Error("Failed to resolve recipients", "request_id", evt.RequestID, "error", err)
		return err
	}

	var errs []error
	for _, user := range recipients {
		if err := s.notify(ctx, user, evt.RequestID, status); err != nil {
			s.logger.Error("Failed to notify user",
				"request_id", evt.RequestID,
				"user_id", user.ID,
				"error", err,
			)
			errs = append(errs, err)
		}
	}

	s.logger.Info("Status change notified",
		"request_id", evt.RequestID,
		"status", status,
		"recipients", len(recipients),
		"failed", len(errs),
	)

	return errors.Join(errs...)
}

// Recipients returns the active owner followed by every active user of the
// role that works the status queue, without duplicates.
func (s *notificationServiceImpl) Recipients(ctx context.Context, requestID int64, status workflow.Status) ([]*entity.User, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}

	var recipients []*entity.User
	seen := make(map[int64]bool)

	owner, err := s.userRepo.GetByID(ctx, req.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("get owner: %w", err)
	}
	if owner != nil && owner.Active {
		recipients = append(recipients, owner)
		seen[owner.ID] = true
	}

	role, ok := workflow.QueueRole(status)
	if !ok {
		return recipients, nil
	}

	queue, err := s.userRepo.ListActiveByRole(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("list %s users: %w", role, err)
	}
	for _, u := range queue {
		if !seen[u.ID] {
			recipients = append(recipients, u)
			seen[u.ID] = true
		}
	}

	return recipients, nil
}

func (s *notificationServiceImpl) notify(ctx context.Context, user *entity.User, requestID int64, status workflow.Status) error {
	contact, err := s.contacts.Contact(ctx, user)
	if err != nil {
		return err
	}
	return s.notifier.Notify(ctx, contact.Email, contact.Name, requestID, status.Label())
}
