package core

import (
	"context"
	"time"

	"github.com/tablefeed/tablefeed/internal/flattext"
)

// IngestPhase indicates the current stage of ingest processing.
type IngestPhase string

const (
	PhaseStarting  IngestPhase = "starting"
	PhaseReading   IngestPhase = "reading"
	PhaseComplete  IngestPhase = "complete"
	PhaseFailed    IngestPhase = "failed"
	PhaseCancelled IngestPhase = "cancelled"
)

// IngestMeta identifies one ingest run for sinks and progress consumers.
type IngestMeta struct {
	IngestID   string
	ProfileKey string
	FileName   string
	StartedAt  time.Time
}

// IngestProgress represents the current state of an ingest operation.
type IngestProgress struct {
	IngestID   string      `json:"ingest_id"`
	ProfileKey string      `json:"profile_key"`
	FileName   string      `json:"file_name"`
	Phase      IngestPhase `json:"phase"`
	Lines      int         `json:"lines"`
	Records    int         `json:"records"`
	Skipped    int         `json:"skipped"`
	Failed     int         `json:"failed"`
	Error      string      `json:"error,omitempty"`

	// Byte-based progress; line counts alone cannot give a percentage
	// because the total line count is unknown while streaming.
	BytesRead  int64 `json:"bytes_read"`
	BytesTotal int64 `json:"bytes_total"`
}

// Percent returns the ingest progress as a percentage (0-100), based on
// bytes read. Returns 0 when the total size is unknown.
func (p IngestProgress) Percent() int {
	if p.BytesTotal <= 0 {
		return 0
	}
	pct := int(p.BytesRead * 100 / p.BytesTotal)
	if pct > 100 {
		pct = 100
	}
	return pct
}

// FailedLine describes one input line that could not be mapped.
type FailedLine struct {
	LineNumber int    `json:"line_number"`
	Reason     string `json:"reason"`
	Line       string `json:"line"`
}

// IngestResult contains the final outcome of an ingest operation.
type IngestResult struct {
	IngestID    string        `json:"ingest_id"`
	ProfileKey  string        `json:"profile_key"`
	FileName    string        `json:"file_name"`
	Lines       int           `json:"lines"`
	Records     int           `json:"records"`
	Skipped     int           `json:"skipped"`
	HeaderLines int           `json:"header_lines"`
	Failed      int           `json:"failed"`
	FailedLines []FailedLine  `json:"failed_lines,omitempty"`
	FieldNames  []string      `json:"field_names,omitempty"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
}

// ProgressCallback is called periodically during ingest processing.
type ProgressCallback func(IngestProgress)

// RecordSink receives the records produced for one ingest stream.
// Implementations may buffer; Close flushes and releases resources and
// is called exactly once, also on failure.
type RecordSink interface {
	// Write stores one record. line is the 1-based input line number the
	// record came from.
	Write(ctx context.Context, line int, rec *flattext.Record) error
	Close(ctx context.Context) error
}

// SinkFactory opens a sink for one ingest run.
type SinkFactory interface {
	Open(ctx context.Context, meta IngestMeta) (RecordSink, error)
}

// SinkFactoryFunc adapts a function to the SinkFactory interface.
type SinkFactoryFunc func(ctx context.Context, meta IngestMeta) (RecordSink, error)

// Open calls f.
func (f SinkFactoryFunc) Open(ctx context.Context, meta IngestMeta) (RecordSink, error) {
	return f(ctx, meta)
}
