package report

import (
	"fmt"
	"time"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/entity"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Sheet names of the expense workbook
const (
	SheetSummary   = "Summary"
	SheetItinerary = "Itinerary"
	SheetReceipts  = "Receipts"

	dateLayout = "2006-01-02 15:04"
)

var (
	itineraryHeader = []interface{}{"Leg", "Origin country", "Origin city", "Destination country", "Destination city", "Starts", "Ends", "Flight", "Hotel"}
	receiptsHeader  = []interface{}{"Receipt", "Expense type", "Amount", "Validation", "PDF", "XML"}
)

// XLSXRenderer renders expense reports as Excel workbooks
type XLSXRenderer struct {
	logger *zap.Logger
}

// NewXLSXRenderer creates a new XLSXRenderer
func NewXLSXRenderer(logger *zap.Logger) *XLSXRenderer {
	return &XLSXRenderer{logger: logger}
}

func (r *XLSXRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Render writes a summary, the ordered itinerary and the receipts with totals
func (r *XLSXRenderer) Render(report *entity.ExpenseReport) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, fmt.Errorf("failed to name summary sheet: %w", err)
	}
	for _, name := range []string{SheetItinerary, SheetReceipts} {
		if _, err := file.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to add sheet %s: %w", name, err)
		}
	}

	bold, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := r.writeSummary(file, report, bold); err != nil {
		return nil, err
	}
	if err := r.writeItinerary(file, report.Routes, bold); err != nil {
		return nil, err
	}
	if err := r.writeReceipts(file, report, bold); err != nil {
		return nil, err
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	r.logger.Debug("Expense report rendered",
		zap.Int64("request_id", report.Request.ID),
		zap.Int("legs", len(report.Routes)),
		zap.Int("receipts", len(report.Receipts)),
		zap.Int("bytes", buf.Len()))

	return buf.Bytes(), nil
}

func (r *XLSXRenderer) writeSummary(file *excelize.File, report *entity.ExpenseReport, bold int) error {
	req := report.Request
	rows := [][]interface{}{
		{"Request", req.ID},
		{"Owner", req.OwnerID},
		{"Status", req.Status.Label()},
		{"Trip days", req.TripDays},
		{"Notes", req.Notes},
		{"Proposed fee", req.ProposedFee.InexactFloat64()},
		{"Imposed fee", req.ImposedFee.InexactFloat64()},
		{"Claimed total", report.ClaimedTotal.InexactFloat64()},
		{"Approved total", report.ApprovedTotal.InexactFloat64()},
		{"Generated", report.GeneratedAt.UTC().Format(dateLayout)},
	}
	if err := writeRows(file, SheetSummary, 1, rows); err != nil {
		return err
	}
	if err := file.SetCellStyle(SheetSummary, "A1", fmt.Sprintf("A%d", len(rows)), bold); err != nil {
		return fmt.Errorf("failed to style summary: %w", err)
	}
	return file.SetColWidth(SheetSummary, "A", "B", 22)
}

func (r *XLSXRenderer) writeItinerary(file *excelize.File, routes []*entity.Route, bold int) error {
	rows := [][]interface{}{itineraryHeader}
	for _, route := range routes {
		rows = append(rows, []interface{}{
			route.Sequence,
			route.OriginCountry,
			route.OriginCity,
			route.DestinationCountry,
			route.DestinationCity,
			formatTime(route.StartsAt),
			formatTime(route.EndsAt),
			yesNo(route.NeedsFlight),
			yesNo(route.NeedsHotel),
		})
	}
	if err := writeRows(file, SheetItinerary, 1, rows); err != nil {
		return err
	}
	if err := file.SetCellStyle(SheetItinerary, "A1", "I1", bold); err != nil {
		return fmt.Errorf("failed to style itinerary header: %w", err)
	}
	return file.SetColWidth(SheetItinerary, "B", "G", 20)
}

func (r *XLSXRenderer) writeReceipts(file *excelize.File, report *entity.ExpenseReport, bold int) error {
	rows := [][]interface{}{receiptsHeader}
	for _, receipt := range report.Receipts {
		rows = append(rows, []interface{}{
			receipt.ID,
			receipt.ExpenseTypeName,
			receipt.Amount.InexactFloat64(),
			string(receipt.Validation),
			yesNo(receipt.PDFRef != ""),
			yesNo(receipt.XMLRef != ""),
		})
	}
	rows = append(rows,
		[]interface{}{"Claimed total", "", report.ClaimedTotal.InexactFloat64()},
		[]interface{}{"Approved total", "", report.ApprovedTotal.InexactFloat64()},
	)
	if err := writeRows(file, SheetReceipts, 1, rows); err != nil {
		return err
	}

	totals := len(rows) - 1
	if err := file.SetCellStyle(SheetReceipts, "A1", "F1", bold); err != nil {
		return fmt.Errorf("failed to style receipts header: %w", err)
	}
	if err := file.SetCellStyle(SheetReceipts, fmt.Sprintf("A%d", totals), fmt.Sprintf("C%d", totals+1), bold); err != nil {
		return fmt.Errorf("failed to style receipt totals: %w", err)
	}
	return file.SetColWidth(SheetReceipts, "B", "B", 18)
}

func writeRows(file *excelize.File, sheet string, firstRow int, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, firstRow+i)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", firstRow+i, err)
		}
		values := row
		if err := file.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, firstRow+i, err)
		}
	}
	return nil
}

// formatTime leaves unset dates blank
func formatTime(t time.Time) string {
	if t.Equal(entity.EpochSentinel) {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
