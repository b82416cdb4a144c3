package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/application/port"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/entity"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const receiptSelect = `
	SELECT rc.id, rc.request_id, rc.expense_type_id, et.name, rc.amount, rc.validation,
		rc.pdf_ref, rc.xml_ref, rc.created_at, rc.updated_at
	FROM receipts rc
	JOIN expense_types et ON et.id = rc.expense_type_id
`

// ReceiptRepository implements port.ReceiptRepository
type ReceiptRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(db *sqlite.DB, logger *zap.Logger) *ReceiptRepository {
	return &ReceiptRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a receipt and sets its ID
func (r *ReceiptRepository) Create(ctx context.Context, receipt *entity.Receipt) error {
	if receipt.Validation == "" {
		receipt.Validation = entity.ValidationPending
	}

	query := `
		INSERT INTO receipts (
			request_id, expense_type_id, amount, validation, pdf_ref, xml_ref, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		receipt.RequestID,
		receipt.ExpenseTypeID,
		receipt.Amount,
		string(receipt.Validation),
		receipt.PDFRef,
		receipt.XMLRef,
		receipt.CreatedAt,
		receipt.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create receipt", zap.Int64("request_id", receipt.RequestID), zap.Error(err))
		return fmt.Errorf("failed to create receipt: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	receipt.ID = id
	return nil
}

// GetByID returns nil, nil when the receipt does not exist
func (r *ReceiptRepository) GetByID(ctx context.Context, id int64) (*entity.Receipt, error) {
	receipt, err := scanReceipt(r.db.Executor(ctx).QueryRowContext(ctx, receiptSelect+` WHERE rc.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get receipt by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	return receipt, nil
}

// ListByRequest returns every receipt of the request in insertion order
func (r *ReceiptRepository) ListByRequest(ctx context.Context, requestID int64) ([]*entity.Receipt, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, receiptSelect+` WHERE rc.request_id = ? ORDER BY rc.id ASC`, requestID)
	if err != nil {
		r.logger.Error("Failed to list receipts", zap.Int64("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	defer rows.Close()

	var receipts []*entity.Receipt
	for rows.Next() {
		receipt, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		receipts = append(receipts, receipt)
	}

	return receipts, rows.Err()
}

// DecidePending moves a pending receipt to state. It reports false when the
// receipt is missing or was already decided.
func (r *ReceiptRepository) DecidePending(ctx context.Context, id int64, state entity.ValidationState) (bool, error) {
	result, err := r.db.Executor(ctx).ExecContext(ctx,
		`UPDATE receipts SET validation = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND validation = ?`,
		string(state), id, string(entity.ValidationPending))
	if err != nil {
		r.logger.Error("Failed to decide receipt", zap.Int64("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to decide receipt: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

// SetFileRefs records the blob references of the receipt's files
func (r *ReceiptRepository) SetFileRefs(ctx context.Context, id int64, pdfRef, xmlRef string) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx,
		`UPDATE receipts SET pdf_ref = ?, xml_ref = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		pdfRef, xmlRef, id)
	if err != nil {
		r.logger.Error("Failed to set receipt files", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to set receipt files: %w", err)
	}
	return requireAffected(result, "receipt", id)
}

// Delete removes the receipt row
func (r *ReceiptRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM receipts WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete receipt", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete receipt: %w", err)
	}
	return requireAffected(result, "receipt", id)
}

func scanReceipt(row rowScanner) (*entity.Receipt, error) {
	var (
		receipt    entity.Receipt
		validation string
	)

	err := row.Scan(
		&receipt.ID,
		&receipt.RequestID,
		&receipt.ExpenseTypeID,
		&receipt.ExpenseTypeName,
		&receipt.Amount,
		&validation,
		&receipt.PDFRef,
		&receipt.XMLRef,
		&receipt.CreatedAt,
		&receipt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	receipt.Validation = entity.ValidationState(validation)
	if !receipt.Validation.IsValid() {
		return nil, fmt.Errorf("receipt %d has unknown validation state %q", receipt.ID, validation)
	}

	return &receipt, nil
}

var _ port.ReceiptRepository = (*ReceiptRepository)(nil)
