package repository

import (
	"context"
	"testing"
	"time"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/application/port"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/entity"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/workflow"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRequestRepository_CreateAndGet(t *testing.T) {
	db := openTestDB(t)
	repo := NewRequestRepository(db, zap.NewNop())
	ctx := context.Background()
	owner := seedUser(t, db, workflow.RoleRequester)

	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	req := &entity.Request{
		OwnerID:     owner.ID,
		Status:      workflow.StatusFirstReview,
		Notes:       "client visit",
		ProposedFee: decimal.RequireFromString("1500.75"),
		TripDays:    3,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, repo.Create(ctx, req))
	require.NotZero(t, req.ID)

	got, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, workflow.StatusFirstReview, got.Status)
	assert.Equal(t, "client visit", got.Notes)
	assert.True(t, got.ProposedFee.Equal(decimal.RequireFromString("1500.75")))
	assert.True(t, got.ImposedFee.IsZero())
	assert.Equal(t, 3, got.TripDays)
	assert.True(t, got.CreatedAt.Equal(now))
}

func TestRequestRepository_GetMissingReturnsNil(t *testing.T) {
	repo := NewRequestRepository(openTestDB(t), zap.NewNop())

	got, err := repo.GetByID(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRequestRepository_RejectsUndefinedStatus(t *testing.T) {
	db := openTestDB(t)
	repo := NewRequestRepository(db, zap.NewNop())
	owner := seedUser(t, db, workflow.RoleRequester)

	err := repo.Create(context.Background(), &entity.Request{OwnerID: owner.ID, Status: workflow.Status(11)})
	assert.ErrorIs(t, err, workflow.ErrInvalidState)

	err = repo.UpdateStatus(context.Background(), entity.StatusUpdate{RequestID: 1, Status: workflow.Status(0)})
	assert.ErrorIs(t, err, workflow.ErrInvalidState)
}

func TestRequestRepository_UpdateStatusWithImposedFee(t *testing.T) {
	db := openTestDB(t)
	repo := NewRequestRepository(db, zap.NewNop())
	ctx := context.Background()
	owner := seedUser(t, db, workflow.RoleRequester)
	req := seedRequest(t, db, owner.ID, workflow.StatusTripQuote)

	fee := decimal.RequireFromString("980.00")
	require.NoError(t, repo.UpdateStatus(ctx, entity.StatusUpdate{
		RequestID:  req.ID,
		Status:     workflow.StatusTravelAgency,
		ImposedFee: &fee,
		UpdatedAt:  time.Now().UTC(),
	}))

	got, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusTravelAgency, got.Status)
	assert.True(t, got.ImposedFee.Equal(fee))

	require.NoError(t, repo.UpdateStatus(ctx, entity.StatusUpdate{
		RequestID: req.ID,
		Status:    workflow.StatusExpenseProof,
		UpdatedAt: time.Now().UTC(),
	}))
	got, err = repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, got.ImposedFee.Equal(fee), "fee kept when not given")
}

func TestRequestRepository_UpdateMissingIsNotFound(t *testing.T) {
	repo := NewRequestRepository(openTestDB(t), zap.NewNop())

	err := repo.UpdateStatus(context.Background(), entity.StatusUpdate{RequestID: 99, Status: workflow.StatusCancelled})
	assert.ErrorIs(t, err, port.ErrNotFound)

	err = repo.UpdateDetails(context.Background(), &entity.Request{ID: 99})
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestRequestRepository_Lists(t *testing.T) {
	db := openTestDB(t)
	repo := NewRequestRepository(db, zap.NewNop())
	ctx := context.Background()
	alice := seedUser(t, db, workflow.RoleRequester)
	bob := seedUser(t, db, workflow.RoleRequester)

	first := seedRequest(t, db, alice.ID, workflow.StatusFirstReview)
	second := seedRequest(t, db, alice.ID, workflow.StatusDraft)
	seedRequest(t, db, bob.ID, workflow.StatusFirstReview)

	mine, err := repo.ListByOwner(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)

	queue, err := repo.ListByStatus(ctx, workflow.StatusFirstReview)
	require.NoError(t, err)
	assert.Len(t, queue, 2)
}
