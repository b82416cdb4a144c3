package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/application/port"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/apperror"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/entity"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/event"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/workflow"
	"github.com/shopspring/decimal"
)

// LegInput is one leg as submitted. Blank names and zero times are stored as
// sentinels.
type LegInput struct {
	Sequence           int       `json:"sequence"`
	OriginCountry      string    `json:"origin_country"`
	OriginCity         string    `json:"origin_city"`
	DestinationCountry string    `json:"destination_country"`
	DestinationCity    string    `json:"destination_city"`
	StartsAt           time.Time `json:"starts_at"`
	EndsAt             time.Time `json:"ends_at"`
	NeedsFlight        bool      `json:"needs_flight"`
	NeedsHotel         bool      `json:"needs_hotel"`
}

// RequestDetails is the editable content of a request
type RequestDetails struct {
	Notes       string          `json:"notes"`
	ProposedFee decimal.Decimal `json:"proposed_fee"`
	Primary     LegInput        `json:"primary_route"`
	Additional  []LegInput      `json:"additional_routes"`
	// Draft keeps a new request out of every review queue until confirmed
	Draft       bool            `json:"draft"`
}

type plannedLeg struct {
	route *entity.Route
	names [4]string
}

// RequestService creates, edits and reads travel requests
type RequestService interface {
	Create(ctx context.Context, ownerID int64, details RequestDetails) (int64, error)
	// Edit replaces the details and the whole leg set of a request
	Edit(ctx context.Context, requestID int64, details RequestDetails) (int64, error)
	// EditOwned is Edit restricted to the owner of a request that is still open
	EditOwned(ctx context.Context, actorID, requestID int64, details RequestDetails) (int64, error)
	Get(ctx context.Context, requestID int64) (*entity.RequestDetail, error)
	ListOwned(ctx context.Context, ownerID int64) ([]*entity.Request, error)
	// Queue lists the requests waiting in status for the actor's role
	Queue(ctx context.Context, actorID int64, status workflow.Status) ([]*entity.Request, error)
	History(ctx context.Context, requestID int64) ([]*entity.StatusChange, error)
}

type requestServiceImpl struct {
	requestRepo port.RequestRepository
	routeRepo   port.RouteRepository
	historyRepo port.HistoryRepository
	locations   LocationResolver
	roles       port.RoleResolver
	txManager   port.TransactionManager
	publisher   EventPublisher
	logger      Logger
	now         func() time.Time
}

// NewRequestService creates a new RequestService
func NewRequestService(
	requestRepo port.RequestRepository,
	routeRepo port.RouteRepository,
	historyRepo port.HistoryRepository,
	locations LocationResolver,
	roles port.RoleResolver,
	txManager port.TransactionManager,
	publisher EventPublisher,
	logger Logger,
) RequestService {
	return &requestServiceImpl{
		requestRepo: requestRepo,
		routeRepo:   routeRepo,
		historyRepo: historyRepo,
		locations:   locations,
		roles:       roles,
		txManager:   txManager,
		publisher:   publisherOrNop(publisher),
		logger:      logger,
		now:         time.Now,
	}
}

// Create persists a request, its legs and their links in one transaction.
// The initial status follows the owner's role unless the request is a draft.
func (s *requestServiceImpl) Create(ctx context.Context, ownerID int64, details RequestDetails) (int64, error) {
	role, err := s.roles.RoleOf(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	if !role.CanCreateRequests() {
		s.logger.Info("Request creation refused", "owner_id", ownerID, "role", role)
		return 0, ErrRoleNotPermitted
	}

	status := workflow.StatusDraft
	if !details.Draft {
		status, err = workflow.InitialStatus(role)
		if err != nil {
			return 0, transitionError(err, workflow.StatusDraft, workflow.ActionSubmit)
		}
	}

	legs := planLegs(details)
	now := s.now()
	req := &entity.Request{
		OwnerID:     ownerID,
		Status:      status,
		Notes:       details.Notes,
		ProposedFee: details.ProposedFee,
		ImposedFee:  decimal.Zero,
		TripDays:    tripDays(legs),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.requestRepo.Create(txCtx, req); err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		if err := s.insertLegs(txCtx, req.ID, legs); err != nil {
			return err
		}
		if status == workflow.StatusDraft {
			return nil
		}
		return s.historyRepo.Create(txCtx, &entity.StatusChange{
			RequestID:  req.ID,
			FromStatus: workflow.StatusDraft,
			ToStatus:   status,
			Action:     workflow.ActionSubmit,
			ActorID:    ownerID,
			CreatedAt:  now,
		})
	})
	if err != nil {
		s.logger.Error("Failed to create request", "owner_id", ownerID, "error", err)
		return 0, persistenceError(err)
	}

	s.logger.Info("Request created", "id", req.ID, "owner_id", ownerID, "status", status, "legs", len(legs))

	if status != workflow.StatusDraft {
		s.publisher.DispatchAsync(ctx, event.NewTransition(event.TypeRequestSubmitted,
			req.ID, ownerID, workflow.StatusDraft, status, workflow.ActionSubmit))
	}

	return req.ID, nil
}

// Edit overwrites notes, fee and trip days and swaps the leg set. The
// status is left untouched.
func (s *requestServiceImpl) Edit(ctx context.Context, requestID int64, details RequestDetails) (int64, error) {
	return s.edit(ctx, requestID, details, nil)
}

func (s *requestServiceImpl) EditOwned(ctx context.Context, actorID, requestID int64, details RequestDetails) (int64, error) {
	return s.edit(ctx, requestID, details, func(req *entity.Request) error {
		if req.OwnerID != actorID {
			return ErrNotOwner
		}
		if req.Status.IsTerminal() {
			return ErrRequestClosed
		}
		return nil
	})
}

func (s *requestServiceImpl) edit(ctx context.Context, requestID int64, details RequestDetails, check func(*entity.Request) error) (int64, error) {
	legs := planLegs(details)

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := s.requestRepo.GetByID(txCtx, requestID)
		if err != nil {
			return fmt.Errorf("failed to load request: %w", err)
		}
		if req == nil {
			return ErrRequestNotFound
		}
		if check != nil {
			if err := check(req); err != nil {
				return err
			}
		}

		req.Notes = details.Notes
		req.ProposedFee = details.ProposedFee
		req.TripDays = tripDays(legs)
		req.UpdatedAt = s.now()
		if err := s.requestRepo.UpdateDetails(txCtx, req); err != nil {
			return fmt.Errorf("failed to update request: %w", err)
		}

		removed, err := s.routeRepo.DeleteByRequest(txCtx, requestID)
		if err != nil {
			return fmt.Errorf("failed to remove previous legs: %w", err)
		}
		s.logger.Info("Previous legs removed", "request_id", requestID, "count", removed)

		return s.insertLegs(txCtx, requestID, legs)
	})
	if err != nil {
		if apperror.KindOf(err) == apperror.KindPersistence {
			s.logger.Error("Failed to edit request", "id", requestID, "error", err)
		}
		return 0, persistenceError(err)
	}

	s.logger.Info("Request edited", "id", requestID, "legs", len(legs))
	return requestID, nil
}

func (s *requestServiceImpl) insertLegs(ctx context.Context, requestID int64, legs []plannedLeg) error {
	for _, leg := range legs {
		ids, err := s.resolveNames(ctx, leg.names)
		if err != nil {
			return err
		}
		leg.route.OriginCountryID = ids[0]
		leg.route.OriginCityID = ids[1]
		leg.route.DestinationCountryID = ids[2]
		leg.route.DestinationCityID = ids[3]

		if err := s.routeRepo.Create(ctx, leg.route); err != nil {
			return fmt.Errorf("failed to create leg %d: %w", leg.route.Sequence, err)
		}
		if err := s.routeRepo.Link(ctx, requestID, leg.route.ID); err != nil {
			return fmt.Errorf("failed to link leg %d: %w", leg.route.Sequence, err)
		}
	}
	return nil
}

// resolveNames resolves origin country, origin city, destination country and
// destination city in that order.
func (s *requestServiceImpl) resolveNames(ctx context.Context, names [4]string) ([4]int64, error) {
	kinds := [4]entity.LocationKind{entity.LocationCountry, entity.LocationCity, entity.LocationCountry, entity.LocationCity}
	var ids [4]int64
	for i, name := range names {
		id, err := s.locations.Resolve(ctx, kinds[i], name)
		if err != nil {
			return ids, fmt.Errorf("failed to resolve %s %q: %w", kinds[i], name, err)
		}
		ids[i] = id
	}
	return ids, nil
}

func (s *requestServiceImpl) Get(ctx context.Context, requestID int64) (*entity.RequestDetail, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		s.logger.Error("Failed to get request", "id", requestID, "error", err)
		return nil, apperror.Persistence(err)
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}

	routes, err := s.routeRepo.ListByRequest(ctx, requestID)
	if err != nil {
		s.logger.Error("Failed to list legs", "request_id", requestID, "error", err)
		return nil, apperror.Persistence(err)
	}

	return &entity.RequestDetail{
		Request:     req,
		StatusLabel: req.Status.Label(),
		Routes:      routes,
	}, nil
}

func (s *requestServiceImpl) ListOwned(ctx context.Context, ownerID int64) ([]*entity.Request, error) {
	reqs, err := s.requestRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Error("Failed to list requests", "owner_id", ownerID, "error", err)
		return nil, apperror.Persistence(err)
	}
	return reqs, nil
}

// Queue is open to the role that acts on status and to administrators
func (s *requestServiceImpl) Queue(ctx context.Context, actorID int64, status workflow.Status) ([]*entity.Request, error) {
	if !status.IsValid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown status %d", int(status)))
	}

	role, err := s.roles.RoleOf(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if queueRole, ok := workflow.QueueRole(status); role != workflow.RoleAdministrator && (!ok || queueRole != role) {
		return nil, ErrRoleNotPermitted
	}

	reqs, err := s.requestRepo.ListByStatus(ctx, status)
	if err != nil {
		s.logger.Error("Failed to list queue", "status", status, "error", err)
		return nil, apperror.Persistence(err)
	}
	return reqs, nil
}

func (s *requestServiceImpl) History(ctx context.Context, requestID int64) ([]*entity.StatusChange, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}

	changes, err := s.historyRepo.ListByRequest(ctx, requestID)
	if err != nil {
		s.logger.Error("Failed to list history", "request_id", requestID, "error", err)
		return nil, apperror.Persistence(err)
	}
	return changes, nil
}

// planLegs orders the primary leg first and fills sentinels for blanks.
// Legs without a sequence number take their position.
func planLegs(details RequestDetails) []plannedLeg {
	inputs := make([]LegInput, 0, 1+len(details.Additional))
	inputs = append(inputs, details.Primary)
	inputs = append(inputs, details.Additional...)

	legs := make([]plannedLeg, 0, len(inputs))
	for i, in := range inputs {
		seq := in.Sequence
		if seq == 0 {
			seq = i + 1
		}
		legs = append(legs, plannedLeg{
			route: &entity.Route{
				Sequence:    seq,
				StartsAt:    orEpoch(in.StartsAt),
				EndsAt:      orEpoch(in.EndsAt),
				NeedsFlight: in.NeedsFlight,
				NeedsHotel:  in.NeedsHotel,
			},
			names: [4]string{
				orUnselected(in.OriginCountry),
				orUnselected(in.OriginCity),
				orUnselected(in.DestinationCountry),
				orUnselected(in.DestinationCity),
			},
		})
	}
	return legs
}

func tripDays(legs []plannedLeg) int {
	routes := make([]*entity.Route, len(legs))
	for i, leg := range legs {
		routes[i] = leg.route
	}
	return entity.TripDays(routes)
}

// orUnselected stores non-blank names verbatim, so " Mexico" and "Mexico"
// are different locations.
func orUnselected(name string) string {
	if strings.TrimSpace(name) == "" {
		return entity.UnselectedLocation
	}
	return name
}

func orEpoch(t time.Time) time.Time {
	if t.IsZero() {
		return entity.EpochSentinel
	}
	return t.UTC()
}
