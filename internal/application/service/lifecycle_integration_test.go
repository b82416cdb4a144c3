package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/application/service"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/apperror"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/entity"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/workflow"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/infrastructure/persistence/repository"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/infrastructure/persistence/sqlite"
	"github.com/coconsulting2/TC3005B.501-Backend/migrations"
	"github.com/coconsulting2/TC3005B.501-Backend/pkg/database"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

type harness struct {
	db          *sqlite.DB
	users       *repository.UserRepository
	requests    service.RequestService
	transitions service.TransitionService
	receipts    service.ReceiptService
}

// failingResolver refuses one location name and resolves the rest normally
type failingResolver struct {
	service.LocationResolver
	reject string
}

func (r failingResolver) Resolve(ctx context.Context, kind entity.LocationKind, name string) (int64, error) {
	if name == r.reject {
		return 0, errResolve
	}
	return r.LocationResolver.Resolve(ctx, kind, name)
}

var errResolve = errors.New("lookup unavailable")

func newHarness(t *testing.T) *harness {
	return newHarnessWith(t, func(r service.LocationResolver) service.LocationResolver { return r })
}

func newHarnessWith(t *testing.T, wrap func(service.LocationResolver) service.LocationResolver) *harness {
	t.Helper()
	logger := zap.NewNop()

	raw, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "lifecycle.db"),
		MaxOpenConns: 1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })

	_, err = database.NewMigrator(raw, logger).Run(migrations.FS)
	require.NoError(t, err)

	db := sqlite.NewDB(raw.DB, logger)
	users := repository.NewUserRepository(db, logger)
	requestRepo := repository.NewRequestRepository(db, logger)
	routeRepo := repository.NewRouteRepository(db, logger)
	historyRepo := repository.NewHistoryRepository(db, logger)
	receiptRepo := repository.NewReceiptRepository(db, logger)
	locations := wrap(service.NewLocationResolver(repository.NewLocationRepository(db, logger), nopLogger{}))
	roles := service.NewUserService(users, nil, nopLogger{})

	transitions := service.NewTransitionService(requestRepo, routeRepo, historyRepo, roles, db, nil, nopLogger{})

	return &harness{
		db:          db,
		users:       users,
		requests:    service.NewRequestService(requestRepo, routeRepo, historyRepo, locations, roles, db, nil, nopLogger{}),
		transitions: transitions,
		receipts:    service.NewReceiptService(receiptRepo, requestRepo, transitions, roles, nil, nil, db, nopLogger{}),
	}
}

func (h *harness) user(t *testing.T, role workflow.Role) int64 {
	t.Helper()
	u := &entity.User{Role: role, NameCipher: "n", EmailCipher: "e", Active: true, CreatedAt: time.Now().UTC()}
	require.NoError(t, h.users.Create(context.Background(), u))
	return u.ID
}

func (h *harness) count(t *testing.T, query string, args ...interface{}) int {
	t.Helper()
	var n int
	require.NoError(t, h.db.QueryRow(query, args...).Scan(&n))
	return n
}

func leg(origin, destination string, start time.Time, days int, hotel bool) service.LegInput {
	return service.LegInput{
		OriginCountry:      "Mexico",
		OriginCity:         origin,
		DestinationCountry: "Mexico",
		DestinationCity:    destination,
		StartsAt:           start,
		EndsAt:             start.Add(time.Duration(days) * 24 * time.Hour),
		NeedsHotel:         hotel,
	}
}

func TestCreate_InitialStatusByRole(t *testing.T) {
	h := newHarness(t)
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	details := service.RequestDetails{Primary: leg("Monterrey", "CDMX", start, 1, false)}

	tests := []struct {
		role workflow.Role
		want workflow.Status
	}{
		{workflow.RoleRequester, workflow.StatusFirstReview},
		{workflow.RoleAuthorizerL1, workflow.StatusSecondReview},
		{workflow.RoleAuthorizerL2, workflow.StatusTripQuote},
	}

	for _, tt := range tests {
		t.Run(tt.role.String(), func(t *testing.T) {
			id, err := h.requests.Create(context.Background(), h.user(t, tt.role), details)
			require.NoError(t, err)

			got, err := h.requests.Get(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)
			assert.Equal(t, 1, got.TripDays)
			require.Len(t, got.Routes, 1)
			assert.Equal(t, "Monterrey", got.Routes[0].OriginCity)

			history, err := h.requests.History(context.Background(), id)
			require.NoError(t, err)
			require.Len(t, history, 1)
			assert.Equal(t, workflow.StatusDraft, history[0].FromStatus)
			assert.Equal(t, tt.want, history[0].ToStatus)
		})
	}
}

func TestCreate_NonCreatorPersistsNothing(t *testing.T) {
	h := newHarness(t)
	agency := h.user(t, workflow.RoleTravelAgency)

	_, err := h.requests.Create(context.Background(), agency, service.RequestDetails{})
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))

	assert.Equal(t, 0, h.count(t, "SELECT COUNT(*) FROM requests"))
	assert.Equal(t, 0, h.count(t, "SELECT COUNT(*) FROM routes"))
	assert.Equal(t, 0, h.count(t, "SELECT COUNT(*) FROM countries"))
}

func TestCreate_BlankLegUsesSentinels(t *testing.T) {
	h := newHarness(t)
	owner := h.user(t, workflow.RoleRequester)

	id, err := h.requests.Create(context.Background(), owner, service.RequestDetails{Draft: true})
	require.NoError(t, err)

	got, err := h.requests.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusDraft, got.Status)
	require.Len(t, got.Routes, 1)
	assert.Equal(t, entity.UnselectedLocation, got.Routes[0].OriginCountry)
	assert.Equal(t, entity.UnselectedLocation, got.Routes[0].DestinationCity)
	assert.True(t, got.Routes[0].StartsAt.Equal(entity.EpochSentinel))
	assert.Equal(t, 0, got.TripDays)
	assert.Equal(t, 1, h.count(t, "SELECT COUNT(*) FROM countries WHERE name = ?", entity.UnselectedLocation))
	assert.Equal(t, 0, h.count(t, "SELECT COUNT(*) FROM request_status_history"))
}

func TestCreate_KeepsLocationNamesVerbatim(t *testing.T) {
	h := newHarness(t)
	owner := h.user(t, workflow.RoleRequester)
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	primary := leg("Monterrey", "CDMX", start, 1, false)
	primary.OriginCountry = " Mexico"
	primary.DestinationCity = "   "

	id, err := h.requests.Create(context.Background(), owner, service.RequestDetails{Primary: primary})
	require.NoError(t, err)

	got, err := h.requests.Get(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, got.Routes, 1)
	assert.Equal(t, " Mexico", got.Routes[0].OriginCountry)
	assert.Equal(t, "Mexico", got.Routes[0].DestinationCountry)
	assert.Equal(t, entity.UnselectedLocation, got.Routes[0].DestinationCity)
	assert.Equal(t, 2, h.count(t, "SELECT COUNT(*) FROM countries"))
	assert.Equal(t, 2, h.count(t, "SELECT COUNT(*) FROM cities"))
}

func TestEdit_ReplacesLegSet(t *testing.T) {
	h := newHarness(t)
	owner := h.user(t, workflow.RoleRequester)
	start := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

	id, err := h.requests.Create(context.Background(), owner, service.RequestDetails{
		Primary: leg("Monterrey", "CDMX", start, 1, false),
		Additional: []service.LegInput{
			leg("CDMX", "Puebla", start.Add(24*time.Hour), 1, false),
			leg("Puebla", "Monterrey", start.Add(48*time.Hour), 1, false),
		},
	})
	require.NoError(t, err)
	require.Equal(t, 3, h.count(t, "SELECT COUNT(*) FROM request_routes WHERE request_id = ?", id))

	_, err = h.requests.EditOwned(context.Background(), owner, id, service.RequestDetails{
		Notes:       "shortened",
		ProposedFee: decimal.RequireFromString("800"),
		Primary:     leg("Monterrey", "Saltillo", start, 1, false),
		Additional:  []service.LegInput{leg("Saltillo", "Monterrey", start.Add(24*time.Hour), 2, true)},
	})
	require.NoError(t, err)

	got, err := h.requests.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "shortened", got.Notes)
	assert.Equal(t, 3, got.TripDays)
	assert.Equal(t, workflow.StatusFirstReview, got.Status)
	require.Len(t, got.Routes, 2)
	assert.Equal(t, "Saltillo", got.Routes[0].DestinationCity)
	assert.Equal(t, 2, h.count(t, "SELECT COUNT(*) FROM routes"))
	assert.Equal(t, 2, h.count(t, "SELECT COUNT(*) FROM request_routes WHERE request_id = ?", id))
	assert.Equal(t, 1, h.count(t, "SELECT COUNT(*) FROM cities WHERE name = ?", "Saltillo"))

	_, err = h.requests.EditOwned(context.Background(), h.user(t, workflow.RoleRequester), id, service.RequestDetails{})
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))

	_, err = h.requests.Edit(context.Background(), id+100, service.RequestDetails{})
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestCreate_FailedLegRollsBackEverything(t *testing.T) {
	h := newHarnessWith(t, func(r service.LocationResolver) service.LocationResolver {
		return failingResolver{LocationResolver: r, reject: "Nowhere"}
	})
	owner := h.user(t, workflow.RoleRequester)
	start := time.Date(2026, 4, 6, 9, 0, 0, 0, time.UTC)

	_, err := h.requests.Create(context.Background(), owner, service.RequestDetails{
		Notes:      "two legs",
		Primary:    leg("Monterrey", "CDMX", start, 1, false),
		Additional: []service.LegInput{leg("CDMX", "Nowhere", start.Add(24*time.Hour), 1, false)},
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindPersistence, apperror.KindOf(err))
	assert.ErrorIs(t, err, errResolve)

	assert.Equal(t, 0, h.count(t, "SELECT COUNT(*) FROM requests"))
	assert.Equal(t, 0, h.count(t, "SELECT COUNT(*) FROM routes"))
	assert.Equal(t, 0, h.count(t, "SELECT COUNT(*) FROM request_routes"))
	assert.Equal(t, 0, h.count(t, "SELECT COUNT(*) FROM request_status_history"))
	assert.Equal(t, 0, h.count(t, "SELECT COUNT(*) FROM cities"), "locations resolved by the first leg are rolled back too")
}

func TestEdit_FailedLegKeepsPreviousLegs(t *testing.T) {
	h := newHarnessWith(t, func(r service.LocationResolver) service.LocationResolver {
		return failingResolver{LocationResolver: r, reject: "Nowhere"}
	})
	owner := h.user(t, workflow.RoleRequester)
	start := time.Date(2026, 4, 6, 9, 0, 0, 0, time.UTC)

	id, err := h.requests.Create(context.Background(), owner, service.RequestDetails{
		Notes:      "original",
		Primary:    leg("Monterrey", "CDMX", start, 1, false),
		Additional: []service.LegInput{leg("CDMX", "Monterrey", start.Add(24*time.Hour), 1, false)},
	})
	require.NoError(t, err)

	_, err = h.requests.EditOwned(context.Background(), owner, id, service.RequestDetails{
		Notes:   "rerouted",
		Primary: leg("Monterrey", "Saltillo", start, 1, false),
		Additional: []service.LegInput{
			leg("Saltillo", "Nowhere", start.Add(24*time.Hour), 1, false),
			leg("Nowhere", "Monterrey", start.Add(48*time.Hour), 1, false),
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errResolve)

	got, err := h.requests.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "original", got.Notes)
	assert.Equal(t, 2, got.TripDays)
	require.Len(t, got.Routes, 2)
	assert.Equal(t, "CDMX", got.Routes[0].DestinationCity)
	assert.Equal(t, 2, h.count(t, "SELECT COUNT(*) FROM routes"))
	assert.Equal(t, 2, h.count(t, "SELECT COUNT(*) FROM request_routes WHERE request_id = ?", id))
	assert.Equal(t, 0, h.count(t, "SELECT COUNT(*) FROM cities WHERE name = ?", "Saltillo"))
}

func TestLifecycle_ToFinalized(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := h.user(t, workflow.RoleRequester)
	l1 := h.user(t, workflow.RoleAuthorizerL1)
	l2 := h.user(t, workflow.RoleAuthorizerL2)
	payables := h.user(t, workflow.RoleAccountsPayable)
	agency := h.user(t, workflow.RoleTravelAgency)
	start := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

	id, err := h.requests.Create(ctx, owner, service.RequestDetails{
		Primary:    leg("Monterrey", "CDMX", start, 1, false),
		Additional: []service.LegInput{leg("CDMX", "Monterrey", start.Add(24*time.Hour), 1, true)},
	})
	require.NoError(t, err)

	step := func(req *entity.Request, err error) *entity.Request {
		t.Helper()
		require.NoError(t, err)
		return req
	}

	assert.Equal(t, workflow.StatusSecondReview, step(h.transitions.Authorize(ctx, l1, id)).Status)
	assert.Equal(t, workflow.StatusTripQuote, step(h.transitions.Authorize(ctx, l2, id)).Status)
	assert.Equal(t, workflow.StatusTravelAgency, step(h.transitions.AttendPayables(ctx, payables, id, decimal.RequireFromString("950.25"))).Status)

	assert.Equal(t, workflow.StatusExpenseProof, step(h.transitions.AttendAgency(ctx, agency, id)).Status)

	_, err = h.transitions.Cancel(ctx, owner, id)
	assert.Same(t, service.ErrTooLateToCancel, err)

	n, err := h.receipts.CreateBatch(ctx, owner, []service.ReceiptInput{
		{ExpenseTypeID: "1", RequestID: service.NumberText(strconv.FormatInt(id, 10)), Amount: "1200"},
		{ExpenseTypeID: "3", RequestID: service.NumberText(strconv.FormatInt(id, 10)), Amount: "310.40"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	assert.Equal(t, workflow.StatusReceiptValidation, step(h.transitions.SendForValidation(ctx, owner, id)).Status)

	receipts, err := h.receipts.List(ctx, id)
	require.NoError(t, err)
	require.Len(t, receipts, 2)

	result, err := h.receipts.Decide(ctx, payables, receipts[0].ID, true)
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeStillPending, result.Outcome)

	_, err = h.receipts.Decide(ctx, payables, receipts[0].ID, false)
	assert.Same(t, service.ErrReceiptAlreadyDecided, err)

	result, err = h.receipts.Decide(ctx, payables, receipts[1].ID, true)
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeFinalized, result.Outcome)
	assert.True(t, result.Changed)

	got, err := h.requests.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusFinalized, got.Status)
	assert.Equal(t, "950.25", got.ImposedFee.String())

	again, err := h.receipts.Reevaluate(ctx, id)
	require.NoError(t, err)
	assert.False(t, again.Changed)

	history, err := h.requests.History(ctx, id)
	require.NoError(t, err)
	assert.Len(t, history, 7)
}

func TestCreateBatch_AbortsWholeBatch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := h.user(t, workflow.RoleAuthorizerL2)
	payables := h.user(t, workflow.RoleAccountsPayable)
	start := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)

	id, err := h.requests.Create(ctx, owner, service.RequestDetails{Primary: leg("Monterrey", "CDMX", start, 1, false)})
	require.NoError(t, err)
	ref := service.NumberText(strconv.FormatInt(id, 10))

	_, err = h.receipts.CreateBatch(ctx, owner, []service.ReceiptInput{{ExpenseTypeID: "1", RequestID: ref, Amount: "10"}})
	assert.Same(t, service.ErrNotCollectingProof, err)

	_, err = h.transitions.AttendPayables(ctx, payables, id, decimal.Zero)
	require.NoError(t, err)

	_, err = h.receipts.CreateBatch(ctx, owner, []service.ReceiptInput{
		{ExpenseTypeID: "1", RequestID: ref, Amount: "10"},
		{ExpenseTypeID: "1", RequestID: ref},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "receipts[1].amount")
	assert.Equal(t, 0, h.count(t, "SELECT COUNT(*) FROM receipts"))

	_, err = h.receipts.CreateBatch(ctx, owner, []service.ReceiptInput{
		{ExpenseTypeID: "1", RequestID: ref, Amount: "10"},
		{ExpenseTypeID: "1", RequestID: "9999", Amount: "10"},
	})
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	assert.Equal(t, 0, h.count(t, "SELECT COUNT(*) FROM receipts"))

	_, err = h.receipts.CreateBatch(ctx, payables, []service.ReceiptInput{{ExpenseTypeID: "1", RequestID: ref, Amount: "10"}})
	assert.Same(t, service.ErrNotOwner, err)
	assert.Equal(t, 0, h.count(t, "SELECT COUNT(*) FROM receipts"))
}
