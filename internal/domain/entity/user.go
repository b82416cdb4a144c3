package entity

import (
	"time"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/workflow"
)

// User is an actor of the request lifecycle. Name and email are stored
// encrypted and only decrypted when a notification is sent.
type User struct {
	ID          int64         `json:"id"`
	Role        workflow.Role `json:"role"`
	NameCipher  string        `json:"-"`
	EmailCipher string        `json:"-"`
	Active      bool          `json:"active"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Contact is a decrypted notification recipient
type Contact struct {
	UserID int64
	Name   string
	Email  string
}
