package http

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/application/service"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/entity"
)

// maxReceiptFileSize bounds each uploaded receipt file
const maxReceiptFileSize = 10 << 20

// ListReceipts handles GET /api/requests/:id/receipts
func (h *Handlers) ListReceipts(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	receipts, err := h.services.Receipts.List(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	if receipts == nil {
		receipts = []*entity.Receipt{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: receipts})
}

// CreateReceipts handles POST /api/receipts
func (h *Handlers) CreateReceipts(c *gin.Context) {
	var body ReceiptBatchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	created, err := h.services.Receipts.CreateBatch(c.Request.Context(), actorID(c), body.Receipts)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: BatchResponse{Created: created}})
}

// DecideReceipt handles PATCH /api/receipts/:id/validation
func (h *Handlers) DecideReceipt(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var body DecisionRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.Approved == nil {
		h.badRequest(c, "approved is required")
		return
	}

	result, err := h.services.Receipts.Decide(c.Request.Context(), actorID(c), id, *body.Approved)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// DeleteReceipt handles DELETE /api/receipts/:id
func (h *Handlers) DeleteReceipt(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.services.Receipts.Delete(c.Request.Context(), actorID(c), id); err != nil {
		h.fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// UploadReceiptFiles handles POST /api/receipts/:id/files. The multipart
// form carries an optional "pdf" and an optional "xml" part.
func (h *Handlers) UploadReceiptFiles(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	pdf, err := formFile(c, "pdf")
	if err != nil {
		h.badRequest(c, err.Error())
		return
	}
	xml, err := formFile(c, "xml")
	if err != nil {
		h.badRequest(c, err.Error())
		return
	}
	if pdf == nil && xml == nil {
		h.badRequest(c, "at least one of pdf or xml is required")
		return
	}

	receipt, err := h.services.Receipts.AttachFiles(c.Request.Context(), actorID(c), id, pdf, xml)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: receipt})
}

// DownloadReceiptFile handles GET /api/receipts/:id/files/:kind
func (h *Handlers) DownloadReceiptFile(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	kind := entity.FileKind(c.Param("kind"))
	if kind != entity.FileKindPDF && kind != entity.FileKindXML {
		h.badRequest(c, "kind must be pdf or xml")
		return
	}

	content, info, err := h.services.Receipts.OpenFile(c.Request.Context(), id, kind)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer content.Close()

	headers := map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", info.Name),
	}
	c.DataFromReader(http.StatusOK, info.Size, info.MimeType, content, headers)
}

// formFile reads one optional multipart part. A missing part is not an error.
func formFile(c *gin.Context, field string) (*service.FileUpload, error) {
	header, err := c.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, nil
		}
		return nil, fmt.Errorf("invalid %s upload", field)
	}
	if header.Size > maxReceiptFileSize {
		return nil, fmt.Errorf("%s exceeds %d bytes", field, maxReceiptFileSize)
	}

	content, err := readPart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s upload", field)
	}
	return &service.FileUpload{Name: header.Filename, Content: content}, nil
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxReceiptFileSize+1))
}
