// Package google mirrors bills into a Google Sheet through the Sheets v4 API.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"budget/internal/core"
	ports "budget/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

var _ ports.Mirror = (*Client)(nil)

// Options configure a Client. One of ServiceAccountJSON, ServiceAccountFile
// or the GOOGLE_APPLICATION_CREDENTIALS file must provide credentials.
type Options struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// New authenticates with a service account and returns a mirror client.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := credentialsJSON(ctx, opts)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "sheet", sheetName(opts.SheetName))
	return NewWithService(svc, opts.SpreadsheetID, opts.SheetName), nil
}

// NewWithService wraps an already configured service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheet string) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName(sheet)}
}

func sheetName(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "Bills"
	}
	return s
}

func credentialsJSON(ctx context.Context, opts Options) ([]byte, error) {
	inline := strings.TrimSpace(opts.ServiceAccountJSON)
	file := strings.TrimSpace(opts.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inline != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		return []byte(inline), nil
	case file != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", file)
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func (c *Client) fullRange() string {
	return c.sheetName + "!A:D"
}

func (c *Client) readAll(ctx context.Context) ([][]any, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.fullRange()).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.fullRange(), err)
	}
	return resp.Values, nil
}

func (c *Client) write(ctx context.Context, rng string, rows [][]any) error {
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func (c *Client) UpsertBill(ctx context.Context, b core.Bill) error {
	values, err := c.readAll(ctx)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		if err := c.write(ctx, rowRange(c.sheetName, 1, 1), [][]any{headerRow}); err != nil {
			return err
		}
	}

	row := findRow(values, b.ID)
	if row == 0 {
		row = nextFreeRow(values)
	}
	if err := c.write(ctx, rowRange(c.sheetName, row, row), [][]any{billRow(b)}); err != nil {
		return err
	}
	slog.DebugContext(ctx, "Bill mirrored", "id", b.ID, "row", row)
	return nil
}

func (c *Client) RemoveBill(ctx context.Context, id int64) error {
	values, err := c.readAll(ctx)
	if err != nil {
		return err
	}
	row := findRow(values, id)
	if row == 0 {
		return nil
	}
	rng := rowRange(c.sheetName, row, row)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	slog.DebugContext(ctx, "Bill removed from mirror", "id", id, "row", row)
	return nil
}

func (c *Client) ReplaceAll(ctx context.Context, bills []core.Bill) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, c.fullRange(), &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", c.fullRange(), err)
	}
	rows := make([][]any, 0, len(bills)+1)
	rows = append(rows, headerRow)
	for _, b := range bills {
		rows = append(rows, billRow(b))
	}
	return c.write(ctx, rowRange(c.sheetName, 1, len(rows)), rows)
}

func (c *Client) ListMirrored(ctx context.Context) ([]core.Bill, error) {
	values, err := c.readAll(ctx)
	if err != nil {
		return nil, err
	}
	return parseRows(values)
}
