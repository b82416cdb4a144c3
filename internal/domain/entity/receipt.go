package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ValidationState is the accounts-payable decision on a receipt
type ValidationState string

const (
	ValidationPending  ValidationState = "PENDING"
	ValidationApproved ValidationState = "APPROVED"
	ValidationRejected ValidationState = "REJECTED"
)

// IsValid returns true for the three defined states
func (v ValidationState) IsValid() bool {
	switch v {
	case ValidationPending, ValidationApproved, ValidationRejected:
		return true
	}
	return false
}

// Receipt represents an expense proof attached to a request
type Receipt struct {
	ID              int64           `json:"id"`
	RequestID       int64           `json:"request_id"`
	ExpenseTypeID   int64           `json:"expense_type_id"`
	ExpenseTypeName string          `json:"expense_type,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Validation      ValidationState `json:"validation"`
	PDFRef          string          `json:"pdf_ref,omitempty"`
	XMLRef          string          `json:"xml_ref,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// FileKind identifies one of the two files a receipt may carry
type FileKind string

const (
	FileKindPDF FileKind = "pdf"
	FileKindXML FileKind = "xml"
)

// Ref returns the blob reference stored for the given file kind
func (r *Receipt) Ref(kind FileKind) string {
	switch kind {
	case FileKindPDF:
		return r.PDFRef
	case FileKindXML:
		return r.XMLRef
	}
	return ""
}
