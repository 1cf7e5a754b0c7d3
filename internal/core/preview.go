package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/tablefeed/tablefeed/internal/flattext"
	"github.com/tablefeed/tablefeed/internal/profile"
)

// DefaultPreviewRows is the record cap for preview analysis.
var DefaultPreviewRows = 20

// PreviewResult shows what an ingest of the given input would produce,
// without writing anything to a sink.
type PreviewResult struct {
	ProfileKey  string              `json:"profile_key"`
	FieldNames  []string            `json:"field_names,omitempty"`
	Records     []*flattext.Record  `json:"records"`
	Lines       int                 `json:"lines"`
	Skipped     int                 `json:"skipped"`
	HeaderLines int                 `json:"header_lines"`
	Failed      int                 `json:"failed"`
	FailedLines []FailedLine        `json:"failed_lines,omitempty"`
	Truncated   bool                `json:"truncated"`
}

// Preview synchronously parses data with the named profile and returns
// the first maxRecords records plus any per-line failures. maxRecords
// <= 0 selects DefaultPreviewRows. Reading stops once the record cap is
// reached; Truncated is set when input remained.
func Preview(ctx context.Context, profileKey string, data []byte, maxRecords int) (*PreviewResult, error) {
	prof, ok := profile.Get(profileKey)
	if !ok {
		return nil, fmt.Errorf("unknown profile: %s", profileKey)
	}
	if maxRecords <= 0 {
		maxRecords = DefaultPreviewRows
	}

	mapper, err := prof.NewMapper()
	if err != nil {
		return nil, err
	}
	mapper.Reset()

	src := NewLineSource(bytes.NewReader(data), int64(len(data)))
	result := &PreviewResult{ProfileKey: profileKey}

	for len(result.Records) < maxRecords {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line, ok := src.Next()
		if !ok {
			break
		}
		result.Lines++

		row, err := mapper.ProcessRow(line)
		if err != nil {
			var parseErr *flattext.ParseError
			if errors.As(err, &parseErr) {
				result.Failed++
				result.FailedLines = append(result.FailedLines, FailedLine{
					LineNumber: src.Line(),
					Reason:     err.Error(),
					Line:       parseErr.Line,
				})
				continue
			}
			return nil, err
		}

		switch row.Kind {
		case flattext.RowSkipped:
			result.Skipped++
		case flattext.RowHeader:
			result.HeaderLines++
		case flattext.RowRecord:
			result.Records = append(result.Records, row.Record)
		}
	}

	if err := src.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if _, more := src.Next(); more {
		result.Truncated = true
	}

	result.FieldNames = mapper.FieldNames()
	return result, nil
}
