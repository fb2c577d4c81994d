package roster

import (
	"context"
	"fmt"
	"strings"

	"musicclub-backend/internal/logger"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Columns names the header cells that hold each roster field. Header cells
// are compared case-insensitively with spaces treated as underscores.
type Columns struct {
	StudentNumber string
	FullName      string
	Department    string
	Email         string
}

// SheetsSource reads the roster from a Google Sheets range whose first row
// is a header.
type SheetsSource struct {
	svc           *sheets.Service
	spreadsheetID string
	readRange     string
	columns       Columns
}

// NewSheetsService builds a read-only Sheets client from a service-account
// credentials file. Extra options are appended, which lets tests point the
// client at a local endpoint.
func NewSheetsService(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*sheets.Service, error) {
	all := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsReadonlyScope)}
	if credentialsFile != "" {
		all = append(all, option.WithCredentialsFile(credentialsFile))
	}
	all = append(all, opts...)

	svc, err := sheets.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	return svc, nil
}

func NewSheetsSource(svc *sheets.Service, spreadsheetID, readRange string, columns Columns) *SheetsSource {
	return &SheetsSource{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		readRange:     readRange,
		columns:       columns,
	}
}

func (s *SheetsSource) Rows(ctx context.Context) ([]Row, error) {
	logger.ExternalServiceCall("google-sheets", "values.get", "spreadsheet", s.spreadsheetID, "range", s.readRange)

	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.readRange).Context(ctx).Do()
	if err != nil {
		logger.ExternalServiceResult("google-sheets", "values.get", err, "spreadsheet", s.spreadsheetID)
		return nil, fmt.Errorf("failed to read roster range %s: %w", s.readRange, err)
	}

	rows, err := parseRows(resp.Values, s.columns)
	logger.ExternalServiceResult("google-sheets", "values.get", err, "spreadsheet", s.spreadsheetID, "rows", len(rows))
	return rows, err
}

func parseRows(values [][]interface{}, cols Columns) ([]Row, error) {
	if len(values) == 0 {
		return nil, nil
	}

	header := make(map[string]int, len(values[0]))
	for i, cell := range values[0] {
		header[normalizeHeader(cellString(cell))] = i
	}

	snIdx, ok := header[normalizeHeader(cols.StudentNumber)]
	if !ok {
		return nil, fmt.Errorf("roster header has no %q column", cols.StudentNumber)
	}
	lookup := func(row []interface{}, name string) string {
		idx, ok := header[normalizeHeader(name)]
		if !ok || idx >= len(row) {
			return ""
		}
		return cellString(row[idx])
	}

	var rows []Row
	for i, raw := range values[1:] {
		if snIdx >= len(raw) {
			continue
		}
		sn := cellString(raw[snIdx])
		if sn == "" {
			continue
		}
		rows = append(rows, Row{
			Line:          i + 2, // 1-based, after the header
			StudentNumber: sn,
			FullName:      lookup(raw, cols.FullName),
			Department:    lookup(raw, cols.Department),
			Email:         strings.ToLower(lookup(raw, cols.Email)),
		})
	}
	return rows, nil
}

func normalizeHeader(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}

func cellString(v interface{}) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
