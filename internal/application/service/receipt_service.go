package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/application/port"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/apperror"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/entity"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/workflow"
	"github.com/coconsulting2/TC3005B.501-Backend/pkg/utils"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// NumberText keeps a JSON number or string exactly as sent so that a
// non-numeric value is reported by field instead of failing the decode.
type NumberText string

func (n *NumberText) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*n = NumberText(text)
		return nil
	}
	*n = NumberText(strings.TrimSpace(string(data)))
	return nil
}

// ReceiptInput is one item of a batch
type ReceiptInput struct {
	ExpenseTypeID NumberText `json:"expense_type_id" validate:"required,number"`
	RequestID     NumberText `json:"request_id" validate:"required,number"`
	Amount        NumberText `json:"amount" validate:"required,numeric"`
}

type receiptBatch struct {
	Receipts []ReceiptInput `json:"receipts" validate:"dive"`
}

// FileUpload is one receipt file as received
type FileUpload struct {
	Name    string
	Content []byte
}

// Outcome is the result of reevaluating a request's receipts
type Outcome string

const (
	OutcomeReturnedForProof Outcome = "RETURNED_FOR_PROOF"
	OutcomeFinalized        Outcome = "FINALIZED"
	OutcomeStillPending     Outcome = "STILL_PENDING"
)

// ReevaluationResult reports what a reevaluation decided and whether it
// wrote a new status.
type ReevaluationResult struct {
	Outcome Outcome         `json:"outcome"`
	Status  workflow.Status `json:"status"`
	Changed bool            `json:"changed"`
}

// ReceiptService runs the receipt validation workflow
type ReceiptService interface {
	// CreateBatch stores Pending receipts. actorID must own every referenced
	// request, and each request must be collecting expense proof.
	CreateBatch(ctx context.Context, actorID int64, inputs []ReceiptInput) (int, error)
	// SetOutcome decides a pending receipt. It does not reevaluate the request.
	SetOutcome(ctx context.Context, receiptID int64, approved bool) error
	// Reevaluate rescans every receipt of the request and applies the result
	Reevaluate(ctx context.Context, requestID int64) (*ReevaluationResult, error)
	// Decide is SetOutcome followed by Reevaluate, for accounts payable only
	// and while the request awaits receipt validation
	Decide(ctx context.Context, actorID, receiptID int64, approved bool) (*ReevaluationResult, error)
	List(ctx context.Context, requestID int64) ([]*entity.Receipt, error)
	Delete(ctx context.Context, actorID, receiptID int64) error
	AttachFiles(ctx context.Context, actorID, receiptID int64, pdf, xml *FileUpload) (*entity.Receipt, error)
	OpenFile(ctx context.Context, receiptID int64, kind entity.FileKind) (io.ReadCloser, *port.BlobInfo, error)
}

type receiptServiceImpl struct {
	receiptRepo port.ReceiptRepository
	requestRepo port.RequestRepository
	transitions TransitionService
	roles       port.RoleResolver
	blobs       port.BlobStore
	inspector   port.DocumentInspector
	txManager   port.TransactionManager
	validate    *validator.Validate
	logger      Logger
	now         func() time.Time
}

// NewReceiptService creates a new ReceiptService
func NewReceiptService(
	receiptRepo port.ReceiptRepository,
	requestRepo port.RequestRepository,
	transitions TransitionService,
	roles port.RoleResolver,
	blobs port.BlobStore,
	inspector port.DocumentInspector,
	txManager port.TransactionManager,
	logger Logger,
) ReceiptService {
	return &receiptServiceImpl{
		receiptRepo: receiptRepo,
		requestRepo: requestRepo,
		transitions: transitions,
		roles:       roles,
		blobs:       blobs,
		inspector:   inspector,
		txManager:   txManager,
		validate:    utils.NewValidator(),
		logger:      logger,
		now:         time.Now,
	}
}

// CreateBatch validates every item before inserting any. All rows are
// inserted in one transaction.
func (s *receiptServiceImpl) CreateBatch(ctx context.Context, actorID int64, inputs []ReceiptInput) (int, error) {
	receipts, err := s.parseBatch(inputs)
	if err != nil {
		return 0, err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		seen := make(map[int64]bool)
		for _, r := range receipts {
			if seen[r.RequestID] {
				continue
			}
			req, err := s.requestRepo.GetByID(txCtx, r.RequestID)
			if err != nil {
				return fmt.Errorf("failed to load request: %w", err)
			}
			if req == nil {
				return apperror.NotFound(fmt.Sprintf("request %d not found", r.RequestID))
			}
			if req.OwnerID != actorID {
				return ErrNotOwner
			}
			if req.Status != workflow.StatusExpenseProof {
				return ErrNotCollectingProof
			}
			seen[r.RequestID] = true
		}

		for _, r := range receipts {
			if err := s.receiptRepo.Create(txCtx, r); err != nil {
				return fmt.Errorf("failed to create receipt: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if apperror.KindOf(err) == apperror.KindPersistence {
			s.logger.Error("Failed to create receipt batch", "count", len(receipts), "error", err)
		}
		return 0, persistenceError(err)
	}

	s.logger.Info("Receipt batch created", "count", len(receipts), "by", actorID)
	return len(receipts), nil
}

func (s *receiptServiceImpl) parseBatch(inputs []ReceiptInput) ([]*entity.Receipt, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyBatch
	}
	if err := s.validate.Struct(receiptBatch{Receipts: inputs}); err != nil {
		return nil, apperror.Validation(utils.DescribeValidation(err))
	}

	now := s.now()
	receipts := make([]*entity.Receipt, 0, len(inputs))
	for i, in := range inputs {
		typeID, err := strconv.ParseInt(string(in.ExpenseTypeID), 10, 64)
		if err != nil || !entity.IsKnownExpenseType(typeID) {
			return nil, apperror.Validation(fmt.Sprintf("receipts[%d].expense_type_id: unknown expense type", i))
		}
		requestID, err := strconv.ParseInt(string(in.RequestID), 10, 64)
		if err != nil || requestID <= 0 {
			return nil, apperror.Validation(fmt.Sprintf("receipts[%d].request_id: must be a positive whole number", i))
		}
		amount, err := decimal.NewFromString(string(in.Amount))
		if err != nil {
			return nil, apperror.Validation(fmt.Sprintf("receipts[%d].amount: must be numeric", i))
		}
		if amount.IsNegative() {
			return nil, apperror.Validation(fmt.Sprintf("receipts[%d].amount: must not be negative", i))
		}

		receipts = append(receipts, &entity.Receipt{
			RequestID:     requestID,
			ExpenseTypeID: typeID,
			Amount:        amount,
			Validation:    entity.ValidationPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}
	return receipts, nil
}

func (s *receiptServiceImpl) SetOutcome(ctx context.Context, receiptID int64, approved bool) error {
	state := entity.ValidationRejected
	if approved {
		state = entity.ValidationApproved
	}

	changed, err := s.receiptRepo.DecidePending(ctx, receiptID, state)
	if err != nil {
		s.logger.Error("Failed to decide receipt", "receipt_id", receiptID, "error", err)
		return apperror.Persistence(err)
	}
	if changed {
		s.logger.Info("Receipt decided", "receipt_id", receiptID, "validation", state)
		return nil
	}

	existing, err := s.receiptRepo.GetByID(ctx, receiptID)
	if err != nil {
		return apperror.Persistence(err)
	}
	if existing == nil {
		return ErrReceiptNotFound
	}
	return ErrReceiptAlreadyDecided
}

func (s *receiptServiceImpl) Reevaluate(ctx context.Context, requestID int64) (*ReevaluationResult, error) {
	return s.reevaluate(ctx, 0, requestID)
}

// reevaluate applies the first matching rule: any rejection returns the
// request for proof, all approved finalizes it, anything else waits.
// A request already at the target status is not written again.
func (s *receiptServiceImpl) reevaluate(ctx context.Context, actorID, requestID int64) (*ReevaluationResult, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}

	receipts, err := s.receiptRepo.ListByRequest(ctx, requestID)
	if err != nil {
		s.logger.Error("Failed to list receipts", "request_id", requestID, "error", err)
		return nil, apperror.Persistence(err)
	}

	outcome, action, target := assess(receipts)
	result := &ReevaluationResult{Outcome: outcome, Status: req.Status}
	if outcome == OutcomeStillPending || req.Status == target {
		return result, nil
	}

	updated, err := s.transitions.Advance(ctx, actorID, requestID, action)
	if err != nil {
		return nil, err
	}

	result.Status = updated.Status
	result.Changed = true
	s.logger.Info("Receipts reevaluated", "request_id", requestID, "outcome", outcome, "status", updated.Status)
	return result, nil
}

func assess(receipts []*entity.Receipt) (Outcome, workflow.Action, workflow.Status) {
	approved := 0
	for _, r := range receipts {
		switch r.Validation {
		case entity.ValidationRejected:
			return OutcomeReturnedForProof, workflow.ActionReturnForProof, workflow.StatusExpenseProof
		case entity.ValidationApproved:
			approved++
		}
	}
	if len(receipts) > 0 && approved == len(receipts) {
		return OutcomeFinalized, workflow.ActionFinalize, workflow.StatusFinalized
	}
	return OutcomeStillPending, "", 0
}

func (s *receiptServiceImpl) Decide(ctx context.Context, actorID, receiptID int64, approved bool) (*ReevaluationResult, error) {
	if err := s.requirePayables(ctx, actorID); err != nil {
		return nil, err
	}

	receipt, err := s.receiptRepo.GetByID(ctx, receiptID)
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	if receipt == nil {
		return nil, ErrReceiptNotFound
	}

	req, err := s.requestRepo.GetByID(ctx, receipt.RequestID)
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	if req.Status != workflow.StatusReceiptValidation {
		return nil, apperror.InvalidTransition(apperror.CodeInvalidTransition,
			fmt.Sprintf("receipts cannot be decided while the request is in status %s", req.Status))
	}

	if err := s.SetOutcome(ctx, receiptID, approved); err != nil {
		return nil, err
	}
	return s.reevaluate(ctx, actorID, receipt.RequestID)
}

func (s *receiptServiceImpl) List(ctx context.Context, requestID int64) ([]*entity.Receipt, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}

	receipts, err := s.receiptRepo.ListByRequest(ctx, requestID)
	if err != nil {
		s.logger.Error("Failed to list receipts", "request_id", requestID, "error", err)
		return nil, apperror.Persistence(err)
	}
	return receipts, nil
}

// Delete removes the receipt row, then its files. A file that cannot be
// removed is logged and left behind.
func (s *receiptServiceImpl) Delete(ctx context.Context, actorID, receiptID int64) error {
	receipt, err := s.loadForOwner(ctx, actorID, receiptID)
	if err != nil {
		return err
	}

	if err := s.receiptRepo.Delete(ctx, receiptID); err != nil {
		s.logger.Error("Failed to delete receipt", "receipt_id", receiptID, "error", err)
		return apperror.Persistence(err)
	}

	s.deleteBlobs(ctx, receiptID, receipt.PDFRef, receipt.XMLRef)
	s.logger.Info("Receipt deleted", "receipt_id", receiptID, "request_id", receipt.RequestID)
	return nil
}

// AttachFiles stores the PDF and XML of a receipt. Either file may be nil.
// Files being replaced are removed after the new refs are recorded.
func (s *receiptServiceImpl) AttachFiles(ctx context.Context, actorID, receiptID int64, pdf, xml *FileUpload) (*entity.Receipt, error) {
	if pdf == nil && xml == nil {
		return nil, apperror.Validation("at least one of pdf or xml is required")
	}

	receipt, err := s.loadForOwner(ctx, actorID, receiptID)
	if err != nil {
		return nil, err
	}

	if pdf != nil {
		if err := s.checkPDF(pdf); err != nil {
			return nil, err
		}
	}
	if xml != nil && !isXML(xml.Content) {
		return nil, apperror.Validation("xml: file is not an XML document")
	}

	pdfRef, xmlRef := receipt.PDFRef, receipt.XMLRef
	var replaced, stored []string

	put := func(upload *FileUpload, kind entity.FileKind, mimeType string) (string, error) {
		meta := map[string]string{
			"receipt_id": strconv.FormatInt(receiptID, 10),
			"request_id": strconv.FormatInt(receipt.RequestID, 10),
			"kind":       string(kind),
		}
		ref, err := s.blobs.Put(ctx, upload.Content, upload.Name, mimeType, meta)
		if err != nil {
			s.logger.Error("Failed to store receipt file", "receipt_id", receiptID, "kind", kind, "error", err)
			return "", apperror.Persistence(err)
		}
		stored = append(stored, ref)
		return ref, nil
	}

	if pdf != nil {
		ref, err := put(pdf, entity.FileKindPDF, "application/pdf")
		if err != nil {
			return nil, err
		}
		replaced = append(replaced, pdfRef)
		pdfRef = ref
	}
	if xml != nil {
		ref, err := put(xml, entity.FileKindXML, "application/xml")
		if err != nil {
			s.deleteBlobs(ctx, receiptID, stored...)
			return nil, err
		}
		replaced = append(replaced, xmlRef)
		xmlRef = ref
	}

	if err := s.receiptRepo.SetFileRefs(ctx, receiptID, pdfRef, xmlRef); err != nil {
		s.logger.Error("Failed to record receipt files", "receipt_id", receiptID, "error", err)
		s.deleteBlobs(ctx, receiptID, stored...)
		return nil, apperror.Persistence(err)
	}

	s.deleteBlobs(ctx, receiptID, replaced...)

	receipt.PDFRef = pdfRef
	receipt.XMLRef = xmlRef
	s.logger.Info("Receipt files attached", "receipt_id", receiptID, "pdf", pdf != nil, "xml", xml != nil)
	return receipt, nil
}

func (s *receiptServiceImpl) checkPDF(pdf *FileUpload) error {
	if !mimetype.Detect(pdf.Content).Is("application/pdf") {
		return apperror.Validation("pdf: file is not a PDF document")
	}
	pages, err := s.inspector.PageCount(pdf.Content)
	if err != nil {
		return apperror.Validation("pdf: document cannot be read")
	}
	if pages == 0 {
		return apperror.Validation("pdf: document has no pages")
	}
	return nil
}

// isXML also accepts the XML dialects mimetype detects as more specific types
func isXML(content []byte) bool {
	for m := mimetype.Detect(content); m != nil; m = m.Parent() {
		if m.Is("text/xml") {
			return true
		}
	}
	return false
}

func (s *receiptServiceImpl) OpenFile(ctx context.Context, receiptID int64, kind entity.FileKind) (io.ReadCloser, *port.BlobInfo, error) {
	if kind != entity.FileKindPDF && kind != entity.FileKindXML {
		return nil, nil, apperror.Validation(fmt.Sprintf("unknown file kind %q", kind))
	}

	receipt, err := s.receiptRepo.GetByID(ctx, receiptID)
	if err != nil {
		return nil, nil, apperror.Persistence(err)
	}
	if receipt == nil {
		return nil, nil, ErrReceiptNotFound
	}

	ref := receipt.Ref(kind)
	if ref == "" {
		return nil, nil, ErrFileNotFound
	}

	rc, info, err := s.blobs.Get(ctx, ref)
	if err != nil {
		s.logger.Error("Failed to open receipt file", "receipt_id", receiptID, "kind", kind, "error", err)
		return nil, nil, apperror.Persistence(err)
	}
	return rc, info, nil
}

// loadForOwner returns the receipt if actorID owns its request
func (s *receiptServiceImpl) loadForOwner(ctx context.Context, actorID, receiptID int64) (*entity.Receipt, error) {
	receipt, err := s.receiptRepo.GetByID(ctx, receiptID)
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	if receipt == nil {
		return nil, ErrReceiptNotFound
	}

	req, err := s.requestRepo.GetByID(ctx, receipt.RequestID)
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	if req.OwnerID != actorID {
		return nil, ErrNotOwner
	}
	return receipt, nil
}

func (s *receiptServiceImpl) requirePayables(ctx context.Context, actorID int64) error {
	role, err := s.roles.RoleOf(ctx, actorID)
	if err != nil {
		return err
	}
	if role != workflow.RoleAccountsPayable {
		return ErrRoleNotPermitted
	}
	return nil
}

func (s *receiptServiceImpl) deleteBlobs(ctx context.Context, receiptID int64, refs ...string) {
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if err := s.blobs.Delete(ctx, ref); err != nil {
			s.logger.Error("Failed to delete receipt file", "receipt_id", receiptID, "ref", ref, "error", err)
		}
	}
}
