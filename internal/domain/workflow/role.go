package workflow

import "fmt"

// Role is the actor role of a user. Codes are persisted in the users table.
type Role int

const (
	RoleRequester       Role = 1
	RoleAuthorizerL1    Role = 2
	RoleAuthorizerL2    Role = 3
	RoleTravelAgency    Role = 4
	RoleAccountsPayable Role = 5
	RoleAdministrator   Role = 6
)

// AllRoles lists every defined role
var AllRoles = []Role{
	RoleRequester,
	RoleAuthorizerL1,
	RoleAuthorizerL2,
	RoleTravelAgency,
	RoleAccountsPayable,
	RoleAdministrator,
}

var roleNames = map[Role]string{
	RoleRequester:       "REQUESTER",
	RoleAuthorizerL1:    "AUTHORIZER_L1",
	RoleAuthorizerL2:    "AUTHORIZER_L2",
	RoleTravelAgency:    "TRAVEL_AGENCY",
	RoleAccountsPayable: "ACCOUNTS_PAYABLE",
	RoleAdministrator:   "ADMINISTRATOR",
}

// IsValid returns true if the role is one of the defined codes
func (r Role) IsValid() bool {
	_, ok := roleNames[r]
	return ok
}

// IsAuthorizer reports whether the role may authorize or decline requests
func (r Role) IsAuthorizer() bool {
	return r == RoleAuthorizerL1 || r == RoleAuthorizerL2
}

// CanCreateRequests reports whether the role is one of the creator roles
func (r Role) CanCreateRequests() bool {
	return r == RoleRequester || r.IsAuthorizer()
}

// String returns the stable name of the role
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("ROLE(%d)", int(r))
}

// ParseRole converts a persisted code into a Role
func ParseRole(code int) (Role, error) {
	r := Role(code)
	if !r.IsValid() {
		return 0, fmt.Errorf("unknown role code: %d", code)
	}
	return r, nil
}

// QueueRole returns the role whose work queue holds requests in the given
// status, and false for statuses that only the owner acts on.
func QueueRole(s Status) (Role, bool) {
	switch s {
	case StatusFirstReview:
		return RoleAuthorizerL1, true
	case StatusSecondReview:
		return RoleAuthorizerL2, true
	case StatusTripQuote, StatusReceiptValidation:
		return RoleAccountsPayable, true
	case StatusTravelAgency:
		return RoleTravelAgency, true
	default:
		return 0, false
	}
}
