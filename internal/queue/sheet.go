package queue

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/bobarin/dramacast/internal/models"
)

// ---------------------------------------------------------------------------
// Sheet Queue
// The work queue is a Google Sheet: row 1 is the header, data starts at
// row 2. Columns: A=Title, B=Script, C=Status, D=Source URL, E=Video URL.
// The driver reads a snapshot per run and writes individual cells back as
// each row progresses; concurrent external edits are not observed until
// the next snapshot.
// ---------------------------------------------------------------------------

const (
	headerOffset = 2 // first data row, 1-based

	colStatus = "C"
	colResult = "E"
)

// googleScopes covers the sheet queue plus the optional Drive upload
// strategy, which shares the same service account.
var googleScopes = []string{
	"https://www.googleapis.com/auth/spreadsheets",
	"https://www.googleapis.com/auth/drive",
}

// NewGoogleClient builds an authenticated HTTP client from service-account
// JSON. The same client serves the sheets API and the Drive uploader.
func NewGoogleClient(ctx context.Context, credentialsJSON []byte) (*http.Client, error) {
	cfg, err := google.JWTConfigFromJSON(credentialsJSON, googleScopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
	}
	return cfg.Client(ctx), nil
}

// SheetQueue reads and mutates the spreadsheet queue.
type SheetQueue struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetTitle    string
}

// NewSheet opens the queue spreadsheet and resolves its first worksheet.
func NewSheet(ctx context.Context, httpClient *http.Client, spreadsheetID string, opts ...option.ClientOption) (*SheetQueue, error) {
	allOpts := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := sheets.NewService(ctx, allOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	q := &SheetQueue{
		svc:           svc,
		spreadsheetID: spreadsheetID,
	}
	if err := q.resolveSheetTitle(ctx); err != nil {
		return nil, err
	}

	log.Printf("[Queue] Using worksheet %q in spreadsheet %s", q.sheetTitle, spreadsheetID)
	return q, nil
}

// resolveSheetTitle looks up the first worksheet so ranges stay valid
// whatever the tab happens to be named.
func (q *SheetQueue) resolveSheetTitle(ctx context.Context) error {
	meta, err := q.svc.Spreadsheets.Get(q.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to open spreadsheet %s: %w", q.spreadsheetID, err)
	}
	if len(meta.Sheets) == 0 || meta.Sheets[0].Properties == nil {
		return fmt.Errorf("spreadsheet %s has no worksheets", q.spreadsheetID)
	}
	q.sheetTitle = meta.Sheets[0].Properties.Title
	return nil
}

// Title returns the worksheet name the queue operates on.
func (q *SheetQueue) Title() string { return q.sheetTitle }

// Rows returns a snapshot of every data row in the queue.
func (q *SheetQueue) Rows(ctx context.Context) ([]models.Row, error) {
	readRange := q.rangeRef(fmt.Sprintf("A%d:E", headerOffset))
	resp, err := q.svc.Spreadsheets.Values.Get(q.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read queue rows: %w", err)
	}

	rows := make([]models.Row, 0, len(resp.Values))
	for i, cells := range resp.Values {
		rows = append(rows, models.Row{
			Num:       headerOffset + i,
			Title:     cellString(cells, 0),
			Script:    cellString(cells, 1),
			Status:    cellString(cells, 2),
			SourceURL: cellString(cells, 3),
			ResultURL: cellString(cells, 4),
		})
	}
	return rows, nil
}

// Claim marks a row Processing if and only if its status cell still holds
// a pending value at write time. A row claimed by a concurrent run in the
// window since the snapshot causes a false return, not an error.
func (q *SheetQueue) Claim(ctx context.Context, rowNum int) (bool, error) {
	cellRange := q.rangeRef(fmt.Sprintf("%s%d", colStatus, rowNum))
	resp, err := q.svc.Spreadsheets.Values.Get(q.spreadsheetID, cellRange).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("failed to re-read status for row %d: %w", rowNum, err)
	}

	current := ""
	if len(resp.Values) > 0 {
		current = cellString(resp.Values[0], 0)
	}
	if !models.IsPending(current) {
		return false, nil
	}

	if err := q.SetStatus(ctx, rowNum, models.StatusProcessing); err != nil {
		return false, err
	}
	return true, nil
}

// SetStatus writes a row's status cell.
func (q *SheetQueue) SetStatus(ctx context.Context, rowNum int, status models.Status) error {
	return q.writeCell(ctx, colStatus, rowNum, string(status))
}

// SetResult writes a row's result URL cell.
func (q *SheetQueue) SetResult(ctx context.Context, rowNum int, url string) error {
	return q.writeCell(ctx, colResult, rowNum, url)
}

func (q *SheetQueue) writeCell(ctx context.Context, column string, rowNum int, value string) error {
	cellRange := q.rangeRef(fmt.Sprintf("%s%d", column, rowNum))
	body := &sheets.ValueRange{
		Values: [][]interface{}{{value}},
	}

	_, err := q.svc.Spreadsheets.Values.Update(q.spreadsheetID, cellRange, body).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write cell %s%d: %w", column, rowNum, err)
	}
	return nil
}

// rangeRef qualifies an A1 reference with the worksheet title.
func (q *SheetQueue) rangeRef(ref string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(q.sheetTitle, "'", "''"), ref)
}

func cellString(cells []interface{}, idx int) string {
	if idx >= len(cells) {
		return ""
	}
	s, _ := cells[idx].(string)
	return s
}
