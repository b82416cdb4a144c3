package document

import (
	"errors"
	"fmt"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// ErrEmptyDocument is returned for zero-length input
var ErrEmptyDocument = errors.New("empty document")

// PDFInspector opens uploaded receipts with MuPDF to make sure they are
// readable documents.
type PDFInspector struct {
	logger *zap.Logger
}

// NewPDFInspector creates a new PDFInspector
func NewPDFInspector(logger *zap.Logger) *PDFInspector {
	return &PDFInspector{logger: logger}
}

// PageCount returns the number of pages of the PDF in content
func (i *PDFInspector) PageCount(content []byte) (int, error) {
	if len(content) == 0 {
		return 0, ErrEmptyDocument
	}

	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		i.logger.Debug("PDF rejected", zap.Int("size", len(content)), zap.Error(err))
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	i.logger.Debug("PDF inspected", zap.Int("pages", pages), zap.Int("size", len(content)))
	return pages, nil
}
