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
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/goccy/go-json"
	delta_sharing "github.com/magpierre/go_delta_sharing_client"

	"github.com/magpierre/dsb-interpreter/internal/frame"
)

var (
	ErrInvalidRequest = errors.New("invalid Delta Sharing request")
	ErrInvalidProfile = errors.New("invalid Delta Sharing profile")
	ErrShareNotFound  = errors.New("share not found")
	ErrTableNotFound  = errors.New("table not found")
	ErrFileNotFound   = errors.New("file not found in table")
	ErrNoColumns      = errors.New("no matching columns found")
	ErrSchemaMismatch = errors.New("table files have different schemas")
)

// DefaultSharingTimeout bounds each call to a sharing server.
const DefaultSharingTimeout = 60 * time.Second

// DeltaSharingRequest selects a table, and optionally one file of it, on a
// Delta Sharing server.
type DeltaSharingRequest struct {
	Profile string   `json:"profile"`
	Share   string   `json:"share"`
	Schema  string   `json:"schema"`
	Table   string   `json:"table"`
	FileID  string   `json:"file_id,omitempty"`
	Columns []string `json:"columns,omitempty"`
	Limit   int64    `json:"limit,omitempty"`
}

// Validate checks that the request names a table.
func (r DeltaSharingRequest) Validate() error {
	switch {
	case r.Share == "":
		return fmt.Errorf("%w: share is required", ErrInvalidRequest)
	case r.Schema == "":
		return fmt.Errorf("%w: schema is required", ErrInvalidRequest)
	case r.Table == "":
		return fmt.Errorf("%w: table is required", ErrInvalidRequest)
	case r.Limit < 0:
		return fmt.Errorf("%w: limit must not be negative", ErrInvalidRequest)
	}
	return nil
}

// TableSource is the part of a sharing server the loader needs.
type TableSource interface {
	Shares(ctx context.Context) ([]string, error)
	Tables(ctx context.Context) ([]delta_sharing.Table, error)
	Files(ctx context.Context, table delta_sharing.Table) ([]string, error)
	Load(ctx context.Context, table delta_sharing.Table, fileID string) (arrow.Table, error)
}

// SharingClient reads tables from a Delta Sharing server described by a
// profile.
type SharingClient struct {
	profile string
	timeout time.Duration
}

// IsDeltaSharingProfile checks if the content looks like a Delta Sharing profile
func IsDeltaSharingProfile(content string) bool {
	var profile map[string]any
	if err := json.Unmarshal([]byte(content), &profile); err != nil {
		return false
	}

	_, hasVersion := profile["shareCredentialsVersion"]
	_, hasEndpoint := profile["endpoint"]
	_, hasBearerToken := profile["bearerToken"]

	return hasVersion && hasEndpoint && hasBearerToken
}

// NewSharingClient validates profile and returns a client for it. A zero
// timeout means DefaultSharingTimeout.
func NewSharingClient(profile string, timeout time.Duration) (*SharingClient, error) {
	if !IsDeltaSharingProfile(profile) {
		return nil, ErrInvalidProfile
	}
	if _, err := delta_sharing.NewSharingClientV2FromString(profile); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if timeout <= 0 {
		timeout = DefaultSharingTimeout
	}
	return &SharingClient{profile: profile, timeout: timeout}, nil
}

func (c *SharingClient) timeoutContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// Shares lists the share names visible to the profile.
func (c *SharingClient) Shares(ctx context.Context) ([]string, error) {
	client, err := delta_sharing.NewSharingClientV2FromString(c.profile)
	if err != nil {
		return nil, fmt.Errorf("failed to create Delta Sharing client: %w", err)
	}

	ctx, cancel := c.timeoutContext(ctx)
	defer cancel()
	shares, _, err := client.ListShares(ctx, 0, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list shares: %w", err)
	}

	names := make([]string, 0, len(shares))
	for _, share := range shares {
		names = append(names, share.Name)
	}
	return names, nil
}

// Tables lists every table in every share.
func (c *SharingClient) Tables(ctx context.Context) ([]delta_sharing.Table, error) {
	client, err := delta_sharing.NewSharingClientV2FromString(c.profile)
	if err != nil {
		return nil, fmt.Errorf("failed to create Delta Sharing client: %w", err)
	}

	// maxConcurrency=0 uses the client default
	ctx, cancel := c.timeoutContext(ctx)
	defer cancel()
	tables, _, err := client.ListAllTables_V2(ctx, 0, "", 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list all tables: %w", err)
	}
	return tables, nil
}

// Files lists the data file ids of table.
func (c *SharingClient) Files(ctx context.Context, table delta_sharing.Table) ([]string, error) {
	ds, err := delta_sharing.NewSharingClientV2FromString(c.profile)
	if err != nil {
		return nil, fmt.Errorf("failed to create Delta Sharing client: %w", err)
	}

	ctx, cancel := c.timeoutContext(ctx)
	defer cancel()
	resp, err := ds.ListFilesInTable(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list files of %s: %w", table.Name, err)
	}

	ids := make([]string, 0, len(resp.AddFiles))
	for _, v := range resp.AddFiles {
		ids = append(ids, v.Id)
	}
	return ids, nil
}

// Load reads one data file of table.
func (c *SharingClient) Load(ctx context.Context, table delta_sharing.Table, fileID string) (arrow.Table, error) {
	ds, err := delta_sharing.NewSharingClientV2FromString(c.profile)
	if err != nil {
		return nil, fmt.Errorf("failed to create Delta Sharing client: %w", err)
	}

	ctx, cancel := c.timeoutContext(ctx)
	defer cancel()
	tbl, err := delta_sharing.LoadArrowTable(ctx, ds, table, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to load file %s of %s: %w", fileID, table.Name, err)
	}
	return tbl, nil
}

// LoadDeltaSharing fetches the requested table from src and converts it to
// a frame. Without a file id every file of the table is loaded.
func LoadDeltaSharing(ctx context.Context, src TableSource, req DeltaSharingRequest) (*frame.Frame, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	table, err := findTable(ctx, src, req)
	if err != nil {
		return nil, err
	}

	files, err := src.Files(ctx, table)
	if err != nil {
		return nil, err
	}
	if req.FileID != "" {
		if !slices.Contains(files, req.FileID) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, req.FileID)
		}
		files = []string{req.FileID}
	}

	parts := make([]arrow.Table, 0, len(files))
	defer func() {
		for _, p := range parts {
			p.Release()
		}
	}()
	for _, id := range files {
		tbl, err := src.Load(ctx, table, id)
		if err != nil {
			return nil, err
		}
		parts = append(parts, tbl)
	}

	combined, err := concatTables(parts)
	if err != nil {
		return nil, err
	}
	defer combined.Release()

	projected, err := applyQueryOptions(combined, req.Columns, req.Limit)
	if err != nil {
		return nil, err
	}
	defer projected.Release()

	return frame.FromTable(projected)
}

func findTable(ctx context.Context, src TableSource, req DeltaSharingRequest) (delta_sharing.Table, error) {
	tables, err := src.Tables(ctx)
	if err != nil {
		return delta_sharing.Table{}, err
	}
	for _, t := range tables {
		if t.Share == req.Share && t.Schema == req.Schema && t.Name == req.Table {
			return t, nil
		}
	}

	shares, err := src.Shares(ctx)
	if err == nil && !slices.Contains(shares, req.Share) {
		return delta_sharing.Table{}, fmt.Errorf("%w: %s", ErrShareNotFound, req.Share)
	}
	return delta_sharing.Table{}, fmt.Errorf("%w: %s.%s.%s", ErrTableNotFound, req.Share, req.Schema, req.Table)
}

// concatTables stacks tables with identical schemas into one. The result
// holds its own references.
func concatTables(parts []arrow.Table) (arrow.Table, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: table has no data files", ErrFileNotFound)
	}

	schema := parts[0].Schema()
	var rows int64
	for _, p := range parts {
		if !p.Schema().Equal(schema) {
			return nil, ErrSchemaMismatch
		}
		rows += p.NumRows()
	}

	columns := make([]arrow.Column, schema.NumFields())
	for i, field := range schema.Fields() {
		var chunks []arrow.Array
		for _, p := range parts {
			chunks = append(chunks, p.Column(i).Data().Chunks()...)
		}
		chunked := arrow.NewChunked(field.Type, chunks)
		columns[i] = *arrow.NewColumn(field, chunked)
		chunked.Release()
	}
	return array.NewTable(schema, columns, rows), nil
}

// applyQueryOptions applies column selection and row limiting to the Arrow
// table. The result holds its own references.
func applyQueryOptions(table arrow.Table, selected []string, limit int64) (arrow.Table, error) {
	schema := table.Schema()

	colIndices := make([]int, 0, schema.NumFields())
	if len(selected) > 0 {
		// selection order wins over schema order
		for _, name := range selected {
			idx := schema.FieldIndices(name)
			if len(idx) == 0 {
				continue
			}
			colIndices = append(colIndices, idx[0])
		}
		if len(colIndices) == 0 {
			return nil, ErrNoColumns
		}
	} else {
		for i := range schema.Fields() {
			colIndices = append(colIndices, i)
		}
	}

	rows := table.NumRows()
	if limit > 0 && limit < rows {
		rows = limit
	}

	fields := make([]arrow.Field, len(colIndices))
	columns := make([]arrow.Column, len(colIndices))
	for i, idx := range colIndices {
		col := table.Column(idx)
		fields[i] = col.Field()

		// Get the chunked array and slice it
		newChunks := make([]arrow.Array, 0)
		var rowCount int64
		for _, chunk := range col.Data().Chunks() {
			if rowCount >= rows {
				break
			}
			remaining := rows - rowCount
			if int64(chunk.Len()) <= remaining {
				chunk.Retain()
				newChunks = append(newChunks, chunk)
				rowCount += int64(chunk.Len())
			} else {
				newChunks = append(newChunks, array.NewSlice(chunk, 0, remaining))
				rowCount += remaining
			}
		}

		chunked := arrow.NewChunked(col.DataType(), newChunks)
		columns[i] = *arrow.NewColumn(col.Field(), chunked)
		chunked.Release()
		for _, c := range newChunks {
			c.Release()
		}
	}

	return array.NewTable(arrow.NewSchema(fields, nil), columns, rows), nil
}
