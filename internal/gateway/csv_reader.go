// Package gateway reads IOUs from files for the command line tool.
package gateway

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/cashflow/internal/calculator"
)

// CSVIOUReader loads IOUs from CSV files with the columns
// lender,borrower,amount. A leading header row is skipped.
type CSVIOUReader struct{}

// NewCSVIOUReader creates a new reader instance.
func NewCSVIOUReader() *CSVIOUReader {
	return &CSVIOUReader{}
}

// ReadFile opens path and parses it. "-" reads standard input.
func (r *CSVIOUReader) ReadFile(ctx context.Context, path string) ([]calculator.IOU, error) {
	if path == "-" {
		return r.Read(ctx, os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open IOU file %s: %w", path, err)
	}
	defer file.Close()

	ious, err := r.Read(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ious, nil
}

// Read parses IOU records from in.
func (r *CSVIOUReader) Read(ctx context.Context, in io.Reader) ([]calculator.IOU, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = 3
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	var ious []calculator.IOU
	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading record: %w", err)
		}
		if len(ious) == 0 && isHeader(record) {
			continue
		}

		amount, err := decimal.NewFromString(strings.TrimSpace(record[2]))
		if err != nil {
			return nil, fmt.Errorf("record %d: could not parse amount '%s': %w", line, record[2], err)
		}

		ious = append(ious, calculator.IOU{
			Lender:   strings.TrimSpace(record[0]),
			Borrower: strings.TrimSpace(record[1]),
			Amount:   amount,
		})
	}
	return ious, nil
}

func isHeader(record []string) bool {
	return strings.EqualFold(strings.TrimSpace(record[0]), "lender") &&
		strings.EqualFold(strings.TrimSpace(record[2]), "amount")
}
