// Package sheet appends log rows to a Google Sheets spreadsheet.
package sheet

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"linelogger/internal/domain"
)

// Client wraps the Sheets API for a single spreadsheet tab.
type Client struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string
	logger        *slog.Logger
}

// New builds a Sheets client. opts must carry the service-account
// credentials.
func New(ctx context.Context, spreadsheetID, sheetName string, logger *slog.Logger, opts ...option.ClientOption) (*Client, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	if sheetName == "" {
		sheetName = "Sheet1"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger,
	}, nil
}

// AppendRow appends one row after the last non-empty row of the tab.
func (c *Client) AppendRow(ctx context.Context, columns []string) error {
	row := make([]interface{}, len(columns))
	for i, v := range columns {
		row[i] = v
	}
	vr := &sheets.ValueRange{Values: [][]interface{}{row}}

	_, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, c.sheetName+"!A:E", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append row to %s: %w", c.sheetName, err)
	}
	return nil
}

// Ping verifies the spreadsheet is reachable with the configured
// credentials.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.svc.Spreadsheets.
		Get(c.spreadsheetID).
		Fields("spreadsheetId").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("spreadsheet unreachable: %w", err)
	}
	return nil
}

var _ domain.Sheet = (*Client)(nil)
