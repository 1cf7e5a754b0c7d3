package core

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"github.com/tablefeed/tablefeed/internal/flattext"
)

// NDJSONSink writes each record as one JSON object per line. It buffers
// output; Close flushes. Used by the CLI's convert command.
type NDJSONSink struct {
	w *bufio.Writer
}

// NewNDJSONSink creates a sink writing NDJSON to w.
func NewNDJSONSink(w io.Writer) *NDJSONSink {
	return &NDJSONSink{w: bufio.NewWriter(w)}
}

// Write encodes one record as a JSON line. Field order is preserved.
func (s *NDJSONSink) Write(_ context.Context, _ int, rec *flattext.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := s.w.Write(data); err != nil {
		return err
	}
	return s.w.WriteByte('\n')
}

// Close flushes buffered output.
func (s *NDJSONSink) Close(context.Context) error {
	return s.w.Flush()
}
