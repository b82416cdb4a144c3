package port

import (
	"context"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/entity"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/workflow"
)

// RoleResolver derives the role of a caller. Roles are never taken from request payloads.
type RoleResolver interface {
	RoleOf(ctx context.Context, userID int64) (workflow.Role, error)
}

// Notifier delivers a status notification to one recipient. Callers treat it
// as fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, contact, name string, requestID int64, statusLabel string) error
}

// PIICodec encrypts and decrypts personal contact fields
type PIICodec interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// DocumentInspector checks uploaded PDF receipts
type DocumentInspector interface {
	PageCount(content []byte) (int, error)
}

// ReportRenderer renders an expense report document
type ReportRenderer interface {
	Render(report *entity.ExpenseReport) ([]byte, error)
	ContentType() string
}
