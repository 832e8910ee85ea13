// Package tables appends order rows to the destination spreadsheet tabs.
package tables

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/multierr"
	gsheets "google.golang.org/api/sheets/v4"

	pkgerrors "github.com/aogosto/order-triage/pkg/errors"
	"github.com/aogosto/order-triage/pkg/logger"
	"github.com/aogosto/order-triage/pkg/retry"
	"github.com/aogosto/order-triage/pkg/sheets"
)

const (
	defaultTemplateRow = 2
	textFormatFields   = "userEnteredFormat.numberFormat"
)

// DefaultTextColumns hold values that sheets would otherwise coerce to dates
// or numbers: the order date (B), the delivery date (AA) and the phone (W).
var DefaultTextColumns = []int{2, 27, 23}

// Backend is the subset of the spreadsheet client the writer needs.
type Backend interface {
	Tab(ctx context.Context, title string) (*sheets.TabProperties, error)
	BatchUpdate(ctx context.Context, requests []*gsheets.Request) error
	UpdateRow(ctx context.Context, a1Range string, row []any) error
	ColumnValues(ctx context.Context, a1Range string) ([]string, error)
}

type Options struct {
	TemplateRow int
	TextColumns []int
	Retry       retry.Policy
	Logger      *logger.Logger
}

type Writer struct {
	backend     Backend
	templateRow int
	textColumns []int
	policy      retry.Policy
	logg        *logger.Logger
}

func NewWriter(backend Backend, opts Options) (*Writer, error) {
	if backend == nil {
		return nil, fmt.Errorf("sheets backend required")
	}
	w := &Writer{
		backend:     backend,
		templateRow: opts.TemplateRow,
		textColumns: opts.TextColumns,
		policy:      opts.Retry,
		logg:        opts.Logger,
	}
	if w.templateRow <= 0 {
		w.templateRow = defaultTemplateRow
	}
	if w.textColumns == nil {
		w.textColumns = DefaultTextColumns
	}
	if w.policy.OnRetry == nil && w.logg != nil {
		w.policy.OnRetry = func(ctx context.Context, attempt int, err error) {
			w.logg.Warn(w.logg.WithFields(ctx, map[string]any{"attempt": attempt, "error": err.Error()}), "tables.retry")
		}
	}
	return w, nil
}

// Write appends row to table and returns the 1-based row number written.
func (w *Writer) Write(ctx context.Context, table string, row []any) (int, error) {
	if len(row) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "row is empty")
	}

	var tab *sheets.TabProperties
	if err := w.do(ctx, func(ctx context.Context) (err error) {
		tab, err = w.backend.Tab(ctx, table)
		return err
	}); err != nil {
		return 0, err
	}

	var grow []*gsheets.Request
	if int64(len(row)) > tab.ColumnCount {
		grow = append(grow, resizeRequest(tab.SheetID, "gridProperties.columnCount", &gsheets.GridProperties{ColumnCount: int64(len(row))}))
	}

	target, err := w.nextRow(ctx, table)
	if err != nil {
		return 0, err
	}
	if int64(target) > tab.RowCount {
		grow = append(grow, &gsheets.Request{AppendDimension: &gsheets.AppendDimensionRequest{
			SheetId:         tab.SheetID,
			Dimension:       "ROWS",
			Length:          int64(target) - tab.RowCount,
			ForceSendFields: []string{"SheetId"},
		}})
	}
	if len(grow) > 0 {
		if err := w.do(ctx, func(ctx context.Context) error { return w.backend.BatchUpdate(ctx, grow) }); err != nil {
			return 0, err
		}
	}

	formats := w.rowFormatRequests(tab.SheetID, target, len(row))
	if err := w.do(ctx, func(ctx context.Context) error { return w.backend.BatchUpdate(ctx, formats) }); err != nil {
		return 0, err
	}

	a1 := fmt.Sprintf("%s!A%d:%s%d", quoteTab(table), target, ColumnLabel(len(row)), target)
	if err := w.do(ctx, func(ctx context.Context) error { return w.backend.UpdateRow(ctx, a1, row) }); err != nil {
		return 0, err
	}

	if w.logg != nil {
		lctx := w.logg.WithTable(ctx, table)
		w.logg.Debug(w.logg.WithField(lctx, "row", target), "tables.row_written")
	}
	return target, nil
}

// Contains reports whether column A of table already holds id.
func (w *Writer) Contains(ctx context.Context, table, id string) (bool, error) {
	id = strings.TrimSpace(id)
	values, err := w.columnA(ctx, table)
	if err != nil {
		return false, err
	}
	for _, v := range values {
		if strings.TrimSpace(v) == id {
			return true, nil
		}
	}
	return false, nil
}

// PrepareTextColumns formats whole columns as text on every table. Tabs
// that fail are reported together once all have been attempted.
func (w *Writer) PrepareTextColumns(ctx context.Context, tables []string, cols []int) error {
	var errs []error
	for _, table := range tables {
		var tab *sheets.TabProperties
		err := w.do(ctx, func(ctx context.Context) (err error) {
			tab, err = w.backend.Tab(ctx, table)
			return err
		})
		if err == nil {
			requests := make([]*gsheets.Request, 0, len(cols))
			for _, col := range cols {
				requests = append(requests, textRequest(&gsheets.GridRange{
					SheetId:          tab.SheetID,
					StartColumnIndex: int64(col - 1),
					EndColumnIndex:   int64(col),
					ForceSendFields:  []string{"SheetId"},
				}))
			}
			err = w.do(ctx, func(ctx context.Context) error { return w.backend.BatchUpdate(ctx, requests) })
		}
		if err != nil {
			if w.logg != nil {
				w.logg.Error(w.logg.WithTable(ctx, table), "tables.prepare_failed", err)
			}
			errs = append(errs, fmt.Errorf("prepare %s: %w", table, err))
		}
	}
	return multierr.Combine(errs...)
}

func (w *Writer) nextRow(ctx context.Context, table string) (int, error) {
	values, err := w.columnA(ctx, table)
	if err != nil {
		return 0, err
	}
	return len(values) + 1, nil
}

func (w *Writer) columnA(ctx context.Context, table string) ([]string, error) {
	var values []string
	err := w.do(ctx, func(ctx context.Context) (err error) {
		values, err = w.backend.ColumnValues(ctx, quoteTab(table)+"!A:A")
		return err
	})
	return values, err
}

func (w *Writer) rowFormatRequests(sheetID int64, target, width int) []*gsheets.Request {
	var requests []*gsheets.Request
	if target != w.templateRow {
		source := rowRange(sheetID, w.templateRow, width)
		dest := rowRange(sheetID, target, width)
		for _, pasteType := range []string{"PASTE_FORMAT", "PASTE_DATA_VALIDATION"} {
			requests = append(requests, &gsheets.Request{CopyPaste: &gsheets.CopyPasteRequest{
				Source:      source,
				Destination: dest,
				PasteType:   pasteType,
			}})
		}
	}
	for _, col := range w.textColumns {
		if col < 1 || col > width {
			continue
		}
		requests = append(requests, textRequest(&gsheets.GridRange{
			SheetId:          sheetID,
			StartRowIndex:    int64(target - 1),
			EndRowIndex:      int64(target),
			StartColumnIndex: int64(col - 1),
			EndColumnIndex:   int64(col),
			ForceSendFields:  []string{"SheetId", "StartRowIndex", "StartColumnIndex"},
		}))
	}
	return requests
}

func (w *Writer) do(ctx context.Context, fn func(ctx context.Context) error) error {
	return w.policy.Do(ctx, fn)
}

func rowRange(sheetID int64, row, width int) *gsheets.GridRange {
	return &gsheets.GridRange{
		SheetId:          sheetID,
		StartRowIndex:    int64(row - 1),
		EndRowIndex:      int64(row),
		StartColumnIndex: 0,
		EndColumnIndex:   int64(width),
		ForceSendFields:  []string{"SheetId", "StartRowIndex", "StartColumnIndex"},
	}
}

func textRequest(r *gsheets.GridRange) *gsheets.Request {
	return &gsheets.Request{RepeatCell: &gsheets.RepeatCellRequest{
		Range: r,
		Cell: &gsheets.CellData{UserEnteredFormat: &gsheets.CellFormat{
			NumberFormat: &gsheets.NumberFormat{Type: "TEXT"},
		}},
		Fields: textFormatFields,
	}}
}

func resizeRequest(sheetID int64, fields string, grid *gsheets.GridProperties) *gsheets.Request {
	return &gsheets.Request{UpdateSheetProperties: &gsheets.UpdateSheetPropertiesRequest{
		Properties: &gsheets.SheetProperties{
			SheetId:         sheetID,
			GridProperties:  grid,
			ForceSendFields: []string{"SheetId"},
		},
		Fields: fields,
	}}
}

// ColumnLabel converts a 1-based column number to its A1 letters.
func ColumnLabel(n int) string {
	if n <= 0 {
		return ""
	}
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

func quoteTab(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
