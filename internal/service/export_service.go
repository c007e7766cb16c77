// internal/service/export_service.go
package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/xuri/excelize/v2"

	appErrors "github.com/unclebandit/jobmailer-backend/internal/errors"
	"github.com/unclebandit/jobmailer-backend/internal/model"
	"github.com/unclebandit/jobmailer-backend/internal/repository"
)

const ExportSheet = "Email Applications"

// ExportColumns are the workbook headers, in order
var ExportColumns = []string{
	"No",
	"Email",
	"Company Name",
	"Subject",
	"Application Date",
	"Application Time",
	"Full DateTime",
	"Status",
}

var exportColumnWidths = []float64{5, 30, 25, 40, 15, 15, 20, 10}

// ExportRow is one line of the spreadsheet
type ExportRow struct {
	No              int
	Email           string
	CompanyName     string
	Subject         string
	ApplicationDate string
	ApplicationTime string
	FullDateTime    string
	Status          string
}

func (r ExportRow) values() []interface{} {
	return []interface{}{
		r.No, r.Email, r.CompanyName, r.Subject,
		r.ApplicationDate, r.ApplicationTime, r.FullDateTime, r.Status,
	}
}

// ExportRows maps records to rows in the given order, numbering them from 1
func ExportRows(records []*model.SendRecord) []ExportRow {
	rows := make([]ExportRow, 0, len(records))
	for i, rec := range records {
		rows = append(rows, ExportRow{
			No:              i + 1,
			Email:           rec.ToEmail,
			CompanyName:     orDefault(rec.CompanyName, "Unknown"),
			Subject:         orDefault(rec.Subject, "No Subject"),
			ApplicationDate: rec.SentDate,
			ApplicationTime: rec.SentTime,
			FullDateTime:    rec.SentDate + " " + rec.SentTime,
			Status:          orDefault(rec.Status, "Sent"),
		})
	}
	return rows
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// ExportFilename is the download name for a snapshot taken at t
func ExportFilename(t time.Time) string {
	return fmt.Sprintf("Email_Applications_Export_%s.xlsx", t.Format(model.DateLayout))
}

// Workbook is a rendered export ready to be written out
type Workbook struct {
	Filename string
	Rows     int
	file     *excelize.File
}

func (w *Workbook) WriteTo(out io.Writer) (int64, error) {
	return w.file.WriteTo(out)
}

func (w *Workbook) Close() error {
	return w.file.Close()
}

type ExportService struct {
	Repo  repository.SendRecordRepositoryInterface
	Clock clockwork.Clock
}

// Export snapshots every record, newest first. An empty store yields appErrors.ErrNoRecords.
func (s *ExportService) Export(ctx context.Context) (*Workbook, error) {
	records, err := s.Repo.List(ctx, model.RecordFilter{})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, appErrors.ErrNoRecords
	}

	f, err := BuildWorkbook(ExportRows(records))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if s.Clock != nil {
		now = s.Clock.Now()
	}
	return &Workbook{Filename: ExportFilename(now), Rows: len(records), file: f}, nil
}

// BuildWorkbook writes rows into a single-sheet workbook with fixed column widths
func BuildWorkbook(rows []ExportRow) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", ExportSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	for i, width := range exportColumnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetColWidth(ExportSheet, col, col, width); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	header := make([]interface{}, len(ExportColumns))
	for i, h := range ExportColumns {
		header[i] = h
	}
	if err := f.SetSheetRow(ExportSheet, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range rows {
		values := row.values()
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(ExportSheet, cell, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	return f, nil
}
