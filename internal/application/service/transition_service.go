package service

import (
	"context"
	"fmt"
	"time"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/application/port"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/apperror"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/entity"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/event"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/workflow"
	"github.com/shopspring/decimal"
)

// TransitionService moves requests through the status graph. The actor's
// role is looked up on every call.
type TransitionService interface {
	Confirm(ctx context.Context, actorID, requestID int64) (*entity.Request, error)
	Authorize(ctx context.Context, actorID, requestID int64) (*entity.Request, error)
	// Decline is open to L1 and L2 from every non-terminal status. A request
	// already Finalized, Cancelled or Declined answers InvalidTransition (409).
	Decline(ctx context.Context, actorID, requestID int64) (*entity.Request, error)
	AttendPayables(ctx context.Context, actorID, requestID int64, imposedFee decimal.Decimal) (*entity.Request, error)
	// AttendAgency is reserved to the travel agency role; anyone else gets Unauthorized
	AttendAgency(ctx context.Context, actorID, requestID int64) (*entity.Request, error)
	Cancel(ctx context.Context, actorID, requestID int64) (*entity.Request, error)
	SendForValidation(ctx context.Context, actorID, requestID int64) (*entity.Request, error)

	// Advance fires a guard-free action on behalf of actorID without a role
	// lookup. Receipt reevaluation uses it.
	Advance(ctx context.Context, actorID, requestID int64, action workflow.Action) (*entity.Request, error)
}

type transitionServiceImpl struct {
	requestRepo port.RequestRepository
	routeRepo   port.RouteRepository
	historyRepo port.HistoryRepository
	roles       port.RoleResolver
	txManager   port.TransactionManager
	publisher   EventPublisher
	logger      Logger
	now         func() time.Time
}

// NewTransitionService creates a new TransitionService
func NewTransitionService(
	requestRepo port.RequestRepository,
	routeRepo port.RouteRepository,
	historyRepo port.HistoryRepository,
	roles port.RoleResolver,
	txManager port.TransactionManager,
	publisher EventPublisher,
	logger Logger,
) TransitionService {
	return &transitionServiceImpl{
		requestRepo: requestRepo,
		routeRepo:   routeRepo,
		historyRepo: historyRepo,
		roles:       roles,
		txManager:   txManager,
		publisher:   publisherOrNop(publisher),
		logger:      logger,
		now:         time.Now,
	}
}

type transitionCall struct {
	actorID    int64
	requestID  int64
	action     workflow.Action
	role       workflow.Role
	ownerOnly  bool
	imposedFee *decimal.Decimal
}

func (s *transitionServiceImpl) Confirm(ctx context.Context, actorID, requestID int64) (*entity.Request, error) {
	return s.fire(ctx, transitionCall{actorID: actorID, requestID: requestID, action: workflow.ActionSubmit, ownerOnly: true})
}

func (s *transitionServiceImpl) Authorize(ctx context.Context, actorID, requestID int64) (*entity.Request, error) {
	return s.fire(ctx, transitionCall{actorID: actorID, requestID: requestID, action: workflow.ActionAuthorize})
}

func (s *transitionServiceImpl) Decline(ctx context.Context, actorID, requestID int64) (*entity.Request, error) {
	return s.fire(ctx, transitionCall{actorID: actorID, requestID: requestID, action: workflow.ActionDecline})
}

// AttendPayables records the imposed fee and routes the request to the
// travel agency when any leg needs a flight or hotel.
func (s *transitionServiceImpl) AttendPayables(ctx context.Context, actorID, requestID int64, imposedFee decimal.Decimal) (*entity.Request, error) {
	if imposedFee.IsNegative() {
		return nil, apperror.Validation("imposed_fee: must not be negative")
	}
	return s.fire(ctx, transitionCall{actorID: actorID, requestID: requestID, action: workflow.ActionAttendPayables, imposedFee: &imposedFee})
}

func (s *transitionServiceImpl) AttendAgency(ctx context.Context, actorID, requestID int64) (*entity.Request, error) {
	return s.fire(ctx, transitionCall{actorID: actorID, requestID: requestID, action: workflow.ActionAttendAgency})
}

func (s *transitionServiceImpl) Cancel(ctx context.Context, actorID, requestID int64) (*entity.Request, error) {
	return s.fire(ctx, transitionCall{actorID: actorID, requestID: requestID, action: workflow.ActionCancel, ownerOnly: true})
}

func (s *transitionServiceImpl) SendForValidation(ctx context.Context, actorID, requestID int64) (*entity.Request, error) {
	return s.fire(ctx, transitionCall{actorID: actorID, requestID: requestID, action: workflow.ActionSendForValidation, ownerOnly: true})
}

func (s *transitionServiceImpl) Advance(ctx context.Context, actorID, requestID int64, action workflow.Action) (*entity.Request, error) {
	return s.apply(ctx, transitionCall{actorID: actorID, requestID: requestID, action: action})
}

func (s *transitionServiceImpl) fire(ctx context.Context, call transitionCall) (*entity.Request, error) {
	role, err := s.roles.RoleOf(ctx, call.actorID)
	if err != nil {
		return nil, err
	}
	call.role = role
	return s.apply(ctx, call)
}

// apply decides and writes one transition. The status update and its
// history row commit together; the event is published after commit.
func (s *transitionServiceImpl) apply(ctx context.Context, call transitionCall) (*entity.Request, error) {
	var (
		req  *entity.Request
		from workflow.Status
	)

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		req, err = s.requestRepo.GetByID(txCtx, call.requestID)
		if err != nil {
			return fmt.Errorf("failed to load request: %w", err)
		}
		if req == nil {
			return ErrRequestNotFound
		}
		if call.ownerOnly && req.OwnerID != call.actorID {
			return ErrNotOwner
		}

		facts := workflow.Facts{Role: call.role}
		if call.action == workflow.ActionAttendPayables {
			routes, err := s.routeRepo.ListByRequest(txCtx, req.ID)
			if err != nil {
				return fmt.Errorf("failed to load legs: %w", err)
			}
			facts.NeedsBooking = entity.AnyNeedsBooking(routes)
		}

		from = req.Status
		to, err := workflow.Decide(from, call.action, facts)
		if err != nil {
			return transitionError(err, from, call.action)
		}

		now := s.now()
		if err := s.requestRepo.UpdateStatus(txCtx, entity.StatusUpdate{
			RequestID:  req.ID,
			Status:     to,
			ImposedFee: call.imposedFee,
			UpdatedAt:  now,
		}); err != nil {
			return fmt.Errorf("failed to update status: %w", err)
		}

		if err := s.historyRepo.Create(txCtx, &entity.StatusChange{
			RequestID:  req.ID,
			FromStatus: from,
			ToStatus:   to,
			Action:     call.action,
			ActorID:    call.actorID,
			CreatedAt:  now,
		}); err != nil {
			return fmt.Errorf("failed to record status change: %w", err)
		}

		req.Status = to
		req.UpdatedAt = now
		if call.imposedFee != nil {
			req.ImposedFee = *call.imposedFee
		}
		return nil
	})
	if err != nil {
		if apperror.KindOf(err) == apperror.KindPersistence {
			s.logger.Error("Failed to apply transition",
				"request_id", call.requestID,
				"action", call.action,
				"error", err,
			)
		}
		return nil, persistenceError(err)
	}

	s.logger.Info("Request status changed",
		"request_id", req.ID,
		"action", call.action,
		"from", from,
		"to", req.Status,
		"actor_id", call.actorID,
	)

	s.publisher.DispatchAsync(ctx, event.NewTransition(event.TypeStatusChanged,
		req.ID, call.actorID, from, req.Status, call.action))

	return req, nil
}
