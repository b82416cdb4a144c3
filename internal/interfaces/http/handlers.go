package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/application/service"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/apperror"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/entity"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/workflow"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Code    string      `json:"code,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Components map[string]string `json:"components,omitempty"`
}

// CreatedResponse carries the id of a new resource
type CreatedResponse struct {
	ID int64 `json:"id"`
}

// BatchResponse reports how many receipts a batch stored
type BatchResponse struct {
	Created int `json:"created"`
}

// UserResponse is a registered user without encrypted fields
type UserResponse struct {
	ID     int64  `json:"id"`
	Role   int    `json:"role"`
	Active bool   `json:"active"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
}

// TransitionResponse reports the status a request moved to
type TransitionResponse struct {
	ID          int64           `json:"id"`
	Status      workflow.Status `json:"status"`
	StatusLabel string          `json:"status_label"`
}

// AttendPayablesRequest is the body of POST /api/requests/:id/attend-payables
type AttendPayablesRequest struct {
	ImposedFee *decimal.Decimal `json:"imposed_fee"`
}

// DecisionRequest is the body of PATCH /api/receipts/:id/validation
type DecisionRequest struct {
	Approved *bool `json:"approved"`
}

// ReceiptBatchRequest is the body of POST /api/receipts
type ReceiptBatchRequest struct {
	Receipts []service.ReceiptInput `json:"receipts"`
}

// HealthCheck handles GET /health. An unhealthy component turns the answer into a 503.
func (h *Handlers) HealthCheck(c *gin.Context) {
	healthy, components := true, map[string]string(nil)
	if h.services.Health != nil {
		healthy, components = h.services.Health(c.Request.Context())
	}

	status, code := "healthy", http.StatusOK
	if !healthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	c.JSON(code, Response{
		Success: healthy,
		Data: HealthResponse{
			Status:     status,
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
			Components: components,
		},
	})
}

// RegisterUser handles POST /api/users
func (h *Handlers) RegisterUser(c *gin.Context) {
	var input service.NewUser
	if err := c.ShouldBindJSON(&input); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	user, err := h.services.Users.Register(c.Request.Context(), actorID(c), input)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data: UserResponse{
			ID:     user.ID,
			Role:   int(user.Role),
			Active: user.Active,
			Name:   input.Name,
			Email:  input.Email,
		},
	})
}

// CreateRequest handles POST /api/requests
func (h *Handlers) CreateRequest(c *gin.Context) {
	var details service.RequestDetails
	if err := c.ShouldBindJSON(&details); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	id, err := h.services.Requests.Create(c.Request.Context(), actorID(c), details)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: CreatedResponse{ID: id}})
}

// ListRequests handles GET /api/requests. With ?status=N it lists the queue
// for that status, otherwise the caller's own requests.
func (h *Handlers) ListRequests(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		requests []*entity.Request
		err      error
	)
	if raw := c.Query("status"); raw != "" {
		code, convErr := strconv.Atoi(raw)
		if convErr != nil {
			h.badRequest(c, "status must be a number")
			return
		}
		requests, err = h.services.Requests.Queue(ctx, actorID(c), workflow.Status(code))
	} else {
		requests, err = h.services.Requests.ListOwned(ctx, actorID(c))
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	if requests == nil {
		requests = []*entity.Request{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: requests})
}

// GetRequest handles GET /api/requests/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	detail, err := h.services.Requests.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: detail})
}

// EditRequest handles PUT /api/requests/:id
func (h *Handlers) EditRequest(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var details service.RequestDetails
	if err := c.ShouldBindJSON(&details); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	if _, err := h.services.Requests.EditOwned(c.Request.Context(), actorID(c), id, details); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: CreatedResponse{ID: id}})
}

// GetHistory handles GET /api/requests/:id/history
func (h *Handlers) GetHistory(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	history, err := h.services.Requests.History(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	if history == nil {
		history = []*entity.StatusChange{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: history})
}

// DownloadReport handles GET /api/requests/:id/report.xlsx
func (h *Handlers) DownloadReport(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	report, err := h.services.Reports.Generate(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName))
	c.Data(http.StatusOK, report.ContentType, report.Content)
}

type transitionFunc func(svc service.TransitionService, ctx context.Context, actorID, requestID int64) (*entity.Request, error)

// transition adapts a body-less lifecycle action to a handler
func (h *Handlers) transition(fn transitionFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.pathID(c)
		if !ok {
			return
		}

		req, err := fn(h.services.Transitions, c.Request.Context(), actorID(c), id)
		if err != nil {
			h.fail(c, err)
			return
		}

		h.transitioned(c, req)
	}
}

// AttendPayables handles POST /api/requests/:id/attend-payables
func (h *Handlers) AttendPayables(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var body AttendPayablesRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.ImposedFee == nil {
		h.badRequest(c, "imposed_fee is required")
		return
	}

	req, err := h.services.Transitions.AttendPayables(c.Request.Context(), actorID(c), id, *body.ImposedFee)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.transitioned(c, req)
}

func (h *Handlers) transitioned(c *gin.Context, req *entity.Request) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: TransitionResponse{
			ID:          req.ID,
			Status:      req.Status,
			StatusLabel: req.Status.Label(),
		},
	})
}

// pathID parses the :id parameter, answering 400 when it is not a positive integer
func (h *Handlers) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.badRequest(c, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handlers) badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Code:    apperror.CodeValidation,
		Error:   message,
	})
}

// fail writes err in the response envelope. Untagged errors and persistence
// failures are logged and reported as opaque internal errors.
func (h *Handlers) fail(c *gin.Context, err error) {
	appErr, ok := apperror.As(err)
	if !ok {
		appErr = apperror.Persistence(err)
	}

	if appErr.Kind == apperror.KindPersistence {
		h.logger.Error("Request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", err)
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}

	c.JSON(status, Response{
		Success: false,
		Code:    appErr.Code,
		Error:   appErr.Message,
	})
}
