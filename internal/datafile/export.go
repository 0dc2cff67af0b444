// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package datafile

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/goccy/go-json"

	"github.com/magpierre/dsb-interpreter/internal/frame"
)

// ErrUnknownFormat is returned for an export format that is not supported.
var ErrUnknownFormat = errors.New("unknown export format")

// ExportFormat represents the supported export formats
type ExportFormat int

const (
	FormatParquet ExportFormat = iota
	FormatCSV
	FormatJSON
)

// ParseExportFormat maps a format name to an ExportFormat.
func ParseExportFormat(name string) (ExportFormat, error) {
	switch strings.ToLower(name) {
	case "parquet":
		return FormatParquet, nil
	case "csv", "":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Extension returns the file extension of the format, with the dot.
func (f ExportFormat) Extension() string {
	switch f {
	case FormatParquet:
		return ".parquet"
	case FormatJSON:
		return ".json"
	default:
		return ".csv"
	}
}

// ContentType returns the MIME type of the format.
func (f ExportFormat) ContentType() string {
	switch f {
	case FormatParquet:
		return "application/vnd.apache.parquet"
	case FormatJSON:
		return "application/json"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Export writes the frame to w in the given format.
func Export(w io.Writer, f *frame.Frame, format ExportFormat) error {
	if f == nil {
		return frame.ErrNoDataset
	}
	switch format {
	case FormatParquet:
		return ExportToParquet(w, f)
	case FormatCSV:
		return ExportToCSV(w, f)
	case FormatJSON:
		return ExportToJSON(w, f)
	}
	return fmt.Errorf("%w: %d", ErrUnknownFormat, format)
}

// ExportToParquet writes the frame as a snappy-compressed Parquet file
func ExportToParquet(w io.Writer, f *frame.Frame) error {
	table := f.Table()
	defer table.Release()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(table.Schema(), w, props, arrowProps)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}

	if err := writer.WriteTable(table, max(table.NumRows(), 1)); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write table to parquet: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return nil
}

// ExportToCSV writes the frame as CSV with a header row. Nulls are empty.
func ExportToCSV(w io.Writer, f *frame.Frame) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(f.Columns()); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	row := make([]string, f.NumCols())
	for r := 0; r < f.NumRows(); r++ {
		for c, v := range f.Row(r) {
			row[c] = formatValue(v)
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// ExportToJSON writes the frame as an array of records, keys in column
// order and values typed.
func ExportToJSON(w io.Writer, f *frame.Frame) error {
	bw := bufio.NewWriter(w)
	cols := f.Columns()

	keys := make([][]byte, len(cols))
	for i, c := range cols {
		b, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		keys[i] = b
	}

	bw.WriteByte('[')
	for r := 0; r < f.NumRows(); r++ {
		if r > 0 {
			bw.WriteByte(',')
		}
		bw.WriteString("\n  {")
		for c, v := range f.Row(r) {
			if c > 0 {
				bw.WriteByte(',')
			}
			b, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("failed to encode JSON: %w", err)
			}
			bw.Write(keys[c])
			bw.WriteByte(':')
			bw.Write(b)
		}
		bw.WriteByte('}')
	}
	if f.NumRows() > 0 {
		bw.WriteByte('\n')
	}
	bw.WriteString("]\n")
	return bw.Flush()
}

// formatValue converts a cell to its CSV text
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return frame.FormatFloat(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
