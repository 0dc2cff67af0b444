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
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/magpierre/dsb-interpreter/internal/frame"
)

// Cell texts read as missing values.
var naValues = map[string]bool{
	"": true, "NA": true, "N/A": true, "#N/A": true, "NaN": true, "nan": true,
	"null": true, "NULL": true, "None": true,
}

func readDelimited(r io.Reader, comma rune) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("%w: file is empty", ErrMalformed)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to read header: %v", ErrMalformed, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		rows = append(rows, rec)
	}
	return header, rows, nil
}

// readWorkbook reads the first worksheet of an xlsx workbook.
func readWorkbook(r io.Reader) ([]string, [][]string, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to open workbook: %v", ErrMalformed, err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("%w: workbook has no sheets", ErrMalformed)
	}
	rows, err := wb.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to read sheet %q: %v", ErrMalformed, sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%w: sheet %q is empty", ErrMalformed, sheets[0])
	}
	return rows[0], rows[1:], nil
}

// FromRecords builds a frame from a header and string rows, inferring
// each column's kind. Short rows are padded with missing values and extra
// cells are dropped.
func FromRecords(header []string, rows [][]string) (*frame.Frame, error) {
	if len(header) == 0 {
		return nil, errors.New("no columns")
	}

	names := columnNames(header)
	series := make([]*frame.Series, len(names))
	cells := make([]string, len(rows))
	for c, name := range names {
		for r, row := range rows {
			cells[r] = ""
			if c < len(row) {
				cells[r] = strings.TrimSpace(row[c])
			}
		}
		kind := inferKind(cells)
		values := make([]any, len(cells))
		for r, cell := range cells {
			values[r] = convert(cell, kind)
		}
		s, err := frame.NewSeries(name, kind, values)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		series[c] = s
	}
	return frame.FromSeries(series...)
}

// columnNames fills blank headers and makes duplicates unique.
func columnNames(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int)
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		names[i] = name
	}
	return names
}

// inferKind picks the narrowest kind that holds every non-missing cell,
// trying int64, float64 and bool before falling back to text.
func inferKind(cells []string) frame.Kind {
	isInt, isFloat, isBool := true, true, true
	seen := false
	for _, cell := range cells {
		if naValues[cell] {
			continue
		}
		seen = true
		if isInt {
			if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				isFloat = false
			}
		}
		if isBool {
			l := strings.ToLower(cell)
			isBool = l == "true" || l == "false"
		}
		if !isInt && !isFloat && !isBool {
			return frame.KindString
		}
	}
	switch {
	case !seen:
		return frame.KindFloat
	case isInt:
		return frame.KindInt
	case isFloat:
		return frame.KindFloat
	case isBool:
		return frame.KindBool
	}
	return frame.KindString
}

func convert(cell string, kind frame.Kind) any {
	if kind != frame.KindString && naValues[cell] {
		return nil
	}
	switch kind {
	case frame.KindInt:
		n, _ := strconv.ParseInt(cell, 10, 64)
		return n
	case frame.KindFloat:
		f, _ := strconv.ParseFloat(cell, 64)
		return f
	case frame.KindBool:
		return strings.EqualFold(cell, "true")
	}
	if naValues[cell] {
		return nil
	}
	return cell
}
