package workflow

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// expectedOutcome restates the request graph edge by edge
func expectedOutcome(from Status, action Action, f Facts) (Status, bool) {
	switch action {
	case ActionSubmit:
		if from != StatusDraft {
			return 0, false
		}
		switch f.Role {
		case RoleRequester:
			return StatusFirstReview, true
		case RoleAuthorizerL1:
			return StatusSecondReview, true
		case RoleAuthorizerL2:
			return StatusTripQuote, true
		}
	case ActionAuthorize:
		if from == StatusFirstReview && f.Role == RoleAuthorizerL1 {
			return StatusSecondReview, true
		}
		if (from == StatusFirstReview || from == StatusSecondReview) && f.Role == RoleAuthorizerL2 {
			return StatusTripQuote, true
		}
	case ActionDecline:
		if !from.IsTerminal() && f.Role.IsAuthorizer() {
			return StatusDeclined, true
		}
	case ActionAttendPayables:
		if from == StatusTripQuote && f.Role == RoleAccountsPayable {
			if f.NeedsBooking {
				return StatusTravelAgency, true
			}
			return StatusExpenseProof, true
		}
	case ActionAttendAgency:
		if from == StatusTravelAgency && f.Role == RoleTravelAgency {
			return StatusExpenseProof, true
		}
	case ActionCancel:
		if from >= StatusDraft && from <= StatusTravelAgency {
			return StatusCancelled, true
		}
	case ActionSendForValidation:
		if from == StatusExpenseProof {
			return StatusReceiptValidation, true
		}
	case ActionReturnForProof:
		if from == StatusReceiptValidation || from == StatusExpenseProof {
			return StatusExpenseProof, true
		}
	case ActionFinalize:
		if from == StatusReceiptValidation {
			return StatusFinalized, true
		}
	}
	return 0, false
}

func TestDecide_Exhaustive(t *testing.T) {
	for _, from := range AllStatuses {
		for _, action := range AllActions {
			for _, role := range AllRoles {
				for _, booking := range []bool{false, true} {
					facts := Facts{Role: role, NeedsBooking: booking}
					name := fmt.Sprintf("%s/%s/%s/booking=%v", from, action, role, booking)

					want, ok := expectedOutcome(from, action, facts)
					got, err := Decide(from, action, facts)

					if ok {
						if assert.NoError(t, err, name) {
							assert.Equal(t, want, got, name)
							assert.True(t, got.IsValid(), name)
						}
					} else {
						assert.Error(t, err, name)
					}
				}
			}
		}
	}
}

func TestDecide_CancelMatrix(t *testing.T) {
	for _, from := range AllStatuses {
		t.Run(from.String(), func(t *testing.T) {
			got, err := Decide(from, ActionCancel, Facts{Role: RoleRequester})

			switch {
			case from <= StatusTravelAgency:
				require.NoError(t, err)
				assert.Equal(t, StatusCancelled, got)
			case from == StatusCancelled:
				assert.ErrorIs(t, err, ErrAlreadyCancelled)
			default:
				assert.ErrorIs(t, err, ErrTooLateToCancel)
			}
		})
	}
}

func TestInitialStatus(t *testing.T) {
	tests := []struct {
		role    Role
		want    Status
		wantErr bool
	}{
		{RoleRequester, StatusFirstReview, false},
		{RoleAuthorizerL1, StatusSecondReview, false},
		{RoleAuthorizerL2, StatusTripQuote, false},
		{RoleTravelAgency, 0, true},
		{RoleAccountsPayable, 0, true},
		{RoleAdministrator, 0, true},
		{Role(0), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.role.String(), func(t *testing.T) {
			got, err := InitialStatus(tt.role)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrGuardFailed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecide_AttendPayables(t *testing.T) {
	got, err := Decide(StatusTripQuote, ActionAttendPayables, Facts{Role: RoleAccountsPayable, NeedsBooking: true})
	require.NoError(t, err)
	assert.Equal(t, StatusTravelAgency, got)

	got, err = Decide(StatusTripQuote, ActionAttendPayables, Facts{Role: RoleAccountsPayable})
	require.NoError(t, err)
	assert.Equal(t, StatusExpenseProof, got)

	_, err = Decide(StatusSecondReview, ActionAttendPayables, Facts{Role: RoleAccountsPayable})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestDecide_RejectsUndefinedStatus(t *testing.T) {
	_, err := Decide(Status(0), ActionCancel, Facts{})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestQueueRole(t *testing.T) {
	role, ok := QueueRole(StatusFirstReview)
	assert.True(t, ok)
	assert.Equal(t, RoleAuthorizerL1, role)

	role, ok = QueueRole(StatusReceiptValidation)
	assert.True(t, ok)
	assert.Equal(t, RoleAccountsPayable, role)

	_, ok = QueueRole(StatusExpenseProof)
	assert.False(t, ok)
}
