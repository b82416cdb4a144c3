package service

import (
	"context"
	"fmt"
	"time"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/application/port"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/apperror"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/entity"
)

// Report is a rendered expense report
type Report struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ReportService renders the expense report of a request
type ReportService interface {
	Generate(ctx context.Context, requestID int64) (*Report, error)
}

type reportServiceImpl struct {
	requestRepo port.RequestRepository
	routeRepo   port.RouteRepository
	receiptRepo port.ReceiptRepository
	renderer    port.ReportRenderer
	logger      Logger
	now         func() time.Time
}

// NewReportService creates a new ReportService
func NewReportService(
	requestRepo port.RequestRepository,
	routeRepo port.RouteRepository,
	receiptRepo port.ReceiptRepository,
	renderer port.ReportRenderer,
	logger Logger,
) ReportService {
	return &reportServiceImpl{
		requestRepo: requestRepo,
		routeRepo:   routeRepo,
		receiptRepo: receiptRepo,
		renderer:    renderer,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *reportServiceImpl) Generate(ctx context.Context, requestID int64) (*Report, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}

	routes, err := s.routeRepo.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	receipts, err := s.receiptRepo.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, apperror.Persistence(err)
	}

	content, err := s.renderer.Render(entity.NewExpenseReport(req, routes, receipts, s.now()))
	if err != nil {
		s.logger.Error("Failed to render report", "request_id", requestID, "error", err)
		return nil, apperror.Persistence(err)
	}

	s.logger.Info("Report generated", "request_id", requestID, "bytes", len(content))
	return &Report{
		FileName:    reportFileName(requestID),
		ContentType: s.renderer.ContentType(),
		Content:     content,
	}, nil
}

func reportFileName(requestID int64) string {
	return fmt.Sprintf("request-%d-expenses.xlsx", requestID)
}
