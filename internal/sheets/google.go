package sheets

import (
	"context"
	"fmt"

	"github.com/timbale/registration-service/pkg/logger"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// GoogleGateway reads and appends registration rows in a Google Sheets
// spreadsheet using a service-account credentials file.
type GoogleGateway struct {
	service *sheetsapi.Service
	sheetID string
	log     *logger.Logger
}

// NewGoogleGateway builds a Sheets API client from the credentials file
func NewGoogleGateway(ctx context.Context, credentialsPath, sheetID string, log *logger.Logger) (*GoogleGateway, error) {
	service, err := sheetsapi.NewService(ctx,
		option.WithCredentialsFile(credentialsPath),
		option.WithScopes(sheetsapi.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &GoogleGateway{
		service: service,
		sheetID: sheetID,
		log:     log,
	}, nil
}

// ReadRows fetches all values in the given range
func (g *GoogleGateway) ReadRows(ctx context.Context, readRange string) ([][]string, error) {
	g.log.Debug("Reading sheet %s range %s", g.sheetID, readRange)

	result, err := g.service.Spreadsheets.Values.Get(g.sheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", g.sheetID, err)
	}

	rows := make([][]string, 0, len(result.Values))
	for _, raw := range result.Values {
		row := make([]string, 0, len(raw))
		for _, cell := range raw {
			row = append(row, fmt.Sprintf("%v", cell))
		}
		rows = append(rows, row)
	}

	g.log.Debug("Read %d rows from sheet %s", len(rows), g.sheetID)
	return rows, nil
}

// AppendRow appends one row after the last row of the data region
func (g *GoogleGateway) AppendRow(ctx context.Context, row []string) error {
	values := make([]interface{}, len(row))
	for i, cell := range row {
		values[i] = cell
	}

	valueRange := &sheetsapi.ValueRange{Values: [][]interface{}{values}}

	_, err := g.service.Spreadsheets.Values.
		Append(g.sheetID, "A1", valueRange).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append row to sheet %s: %w", g.sheetID, err)
	}

	return nil
}
