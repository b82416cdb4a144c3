package port

import (
	"context"
	"errors"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/entity"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/workflow"
)

var (
	// ErrDuplicate is returned by repositories when a unique constraint rejects a write
	ErrDuplicate = errors.New("duplicate key")

	// ErrNotFound is returned by repository updates that matched no row
	ErrNotFound = errors.New("record not found")
)

// RequestRepository defines persistence operations for travel requests
type RequestRepository interface {
	Create(ctx context.Context, req *entity.Request) error
	GetByID(ctx context.Context, id int64) (*entity.Request, error)
	UpdateDetails(ctx context.Context, req *entity.Request) error
	UpdateStatus(ctx context.Context, update entity.StatusUpdate) error
	ListByOwner(ctx context.Context, ownerID int64) ([]*entity.Request, error)
	ListByStatus(ctx context.Context, status workflow.Status) ([]*entity.Request, error)
}

// RouteRepository defines persistence operations for request legs and their links
type RouteRepository interface {
	Create(ctx context.Context, route *entity.Route) error
	Link(ctx context.Context, requestID, routeID int64) error
	ListByRequest(ctx context.Context, requestID int64) ([]*entity.Route, error)
	// DeleteByRequest removes every link of the request and then the routes they pointed to
	DeleteByRequest(ctx context.Context, requestID int64) (int64, error)
}

// LocationRepository defines lookups for country and city reference rows
type LocationRepository interface {
	// FindByName returns 0 when no row has the exact name
	FindByName(ctx context.Context, kind entity.LocationKind, name string) (int64, error)
	// Insert returns ErrDuplicate when the name already exists
	Insert(ctx context.Context, kind entity.LocationKind, name string) (int64, error)
}

// ReceiptRepository defines persistence operations for receipts
type ReceiptRepository interface {
	Create(ctx context.Context, receipt *entity.Receipt) error
	GetByID(ctx context.Context, id int64) (*entity.Receipt, error)
	ListByRequest(ctx context.Context, requestID int64) ([]*entity.Receipt, error)
	// DecidePending sets the state only if the receipt is still pending and
	// reports whether a row changed.
	DecidePending(ctx context.Context, id int64, state entity.ValidationState) (bool, error)
	SetFileRefs(ctx context.Context, id int64, pdfRef, xmlRef string) error
	Delete(ctx context.Context, id int64) error
}

// UserRepository defines persistence operations for users
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	ListActiveByRole(ctx context.Context, role workflow.Role) ([]*entity.User, error)
}

// HistoryRepository defines persistence operations for the status audit trail
type HistoryRepository interface {
	Create(ctx context.Context, change *entity.StatusChange) error
	ListByRequest(ctx context.Context, requestID int64) ([]*entity.StatusChange, error)
}

// TransactionManager runs fn inside one transaction carried by the context
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
