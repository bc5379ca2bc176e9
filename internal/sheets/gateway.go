package sheets

import "context"

// Gateway abstracts the spreadsheet holding registration submissions. Rows
// are returned raw; mapping and validation are the caller's responsibility.
type Gateway interface {
	// ReadRows returns every row in the given A1-notation range.
	ReadRows(ctx context.Context, readRange string) ([][]string, error)
	// AppendRow appends one row after the current data region.
	AppendRow(ctx context.Context, row []string) error
}
