package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tablefeed/tablefeed/internal/flattext"
	"github.com/tablefeed/tablefeed/internal/profile"
)

// DefaultIngestTimeout is the maximum duration for one ingest operation.
var DefaultIngestTimeout = 10 * time.Minute

// ContextCheckInterval is how often (in lines) to check for context
// cancellation. Checking every line would be wasteful; a few thousand
// lines is typically sub-millisecond of processing.
var ContextCheckInterval = 1000

// MaxStoredFailedLines caps the failed lines kept in an ingest result.
// The failure counter keeps counting past the cap.
var MaxStoredFailedLines = 100

// ServiceOptions tunes Service behavior. Zero values select defaults.
type ServiceOptions struct {
	MaxConcurrent int
	MaxWait       time.Duration
	Timeout       time.Duration
}

// Service runs asynchronous ingest operations: it streams flat-text
// input through a profile-configured row mapper into a record sink,
// broadcasting progress to subscribers.
type Service struct {
	sinks   SinkFactory
	limiter *IngestLimiter
	timeout time.Duration

	mu      sync.RWMutex
	ingests map[string]*activeIngest
}

type activeIngest struct {
	Meta   IngestMeta
	Cancel context.CancelFunc
	Result *IngestResult
	Done   chan struct{}

	// mu guards Progress and Listeners: the ingest goroutine writes
	// progress while subscribers read snapshots concurrently.
	mu        sync.Mutex
	Progress  IngestProgress
	Listeners []chan IngestProgress
}

// NewService creates a Service that writes records through sinks.
func NewService(sinks SinkFactory, opts ServiceOptions) *Service {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultIngestTimeout
	}
	return &Service{
		sinks:   sinks,
		limiter: NewIngestLimiter(opts.MaxConcurrent, opts.MaxWait),
		timeout: timeout,
		ingests: make(map[string]*activeIngest),
	}
}

// StartIngest begins an asynchronous ingest of r using the named profile.
// Returns the ingest ID immediately; use SubscribeProgress for updates
// and GetIngestResult for the final outcome. size is the raw input size
// in bytes when known, 0 otherwise.
func (s *Service) StartIngest(ctx context.Context, profileKey, fileName string, r io.Reader, size int64) (string, error) {
	prof, ok := profile.Get(profileKey)
	if !ok {
		return "", fmt.Errorf("unknown profile: %s", profileKey)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return "", err
	}

	ingestID := uuid.New().String()
	ingestCtx, cancel := context.WithTimeout(context.Background(), s.timeout)

	ing := &activeIngest{
		Meta: IngestMeta{
			IngestID:   ingestID,
			ProfileKey: profileKey,
			FileName:   fileName,
			StartedAt:  time.Now(),
		},
		Cancel: cancel,
		Progress: IngestProgress{
			IngestID:   ingestID,
			ProfileKey: profileKey,
			FileName:   fileName,
			Phase:      PhaseStarting,
			BytesTotal: size,
		},
		Done: make(chan struct{}),
	}

	s.mu.Lock()
	s.ingests[ingestID] = ing
	s.mu.Unlock()

	go s.processIngest(ingestCtx, ing, prof, r, size)

	return ingestID, nil
}

// processIngest runs one ingest to completion in the background.
func (s *Service) processIngest(ctx context.Context, ing *activeIngest, prof profile.Profile, r io.Reader, size int64) {
	defer s.limiter.Release()
	defer ing.Cancel()
	defer func() {
		ing.closeListeners()
		close(ing.Done)
		s.cleanup(ing.Meta.IngestID, 5*time.Minute)
	}()

	sink, err := s.sinks.Open(ctx, ing.Meta)
	if err != nil {
		ing.setPhase(PhaseFailed, fmt.Sprintf("open sink: %v", err))
		ing.Result = failedResult(ing.Meta, err.Error())
		return
	}

	result, err := RunStream(ctx, prof, r, size, sink, func(p IngestProgress) {
		p.IngestID = ing.Meta.IngestID
		p.ProfileKey = ing.Meta.ProfileKey
		p.FileName = ing.Meta.FileName
		ing.setProgress(p)
	})
	if err != nil {
		phase := PhaseFailed
		if errors.Is(err, context.Canceled) {
			phase = PhaseCancelled
		}
		ing.setPhase(phase, err.Error())

		if result == nil {
			result = &IngestResult{}
		}
		result.IngestID = ing.Meta.IngestID
		result.ProfileKey = ing.Meta.ProfileKey
		result.FileName = ing.Meta.FileName
		result.Error = err.Error()
		ing.Result = result
		return
	}

	result.IngestID = ing.Meta.IngestID
	result.ProfileKey = ing.Meta.ProfileKey
	result.FileName = ing.Meta.FileName
	ing.Result = result

	ing.setPhase(PhaseComplete, "")
}

// RunStream synchronously feeds one input stream through a fresh row
// mapper for prof, writing records to sink. It closes the sink in all
// cases. Parse failures are collected and the stream continues; sink and
// read failures abort.
//
// A partially filled result is returned alongside the error when the
// stream aborted midway.
func RunStream(ctx context.Context, prof profile.Profile, r io.Reader, size int64, sink RecordSink, cb ProgressCallback) (*IngestResult, error) {
	start := time.Now()

	mapper, err := prof.NewMapper()
	if err != nil {
		closeSink(sink)
		return nil, err
	}
	mapper.Reset()

	src := NewLineSource(r, size)
	result := &IngestResult{ProfileKey: prof.Key}
	progress := IngestProgress{Phase: PhaseReading, BytesTotal: src.BytesTotal()}

	notify := func() {
		if cb == nil {
			return
		}
		progress.Lines = result.Lines
		progress.Records = result.Records
		progress.Skipped = result.Skipped
		progress.Failed = result.Failed
		progress.BytesRead = src.BytesRead()
		cb(progress)
	}
	notify()

	abort := func(err error) (*IngestResult, error) {
		closeSink(sink)
		result.Duration = time.Since(start)
		result.FieldNames = mapper.FieldNames()
		return result, err
	}

	for {
		line, ok := src.Next()
		if !ok {
			break
		}
		result.Lines++

		if result.Lines%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return abort(err)
			}
			notify()
		}

		row, err := mapper.ProcessRow(line)
		if err != nil {
			var parseErr *flattext.ParseError
			if errors.As(err, &parseErr) {
				result.Failed++
				if len(result.FailedLines) < MaxStoredFailedLines {
					result.FailedLines = append(result.FailedLines, FailedLine{
						LineNumber: src.Line(),
						Reason:     err.Error(),
						Line:       parseErr.Line,
					})
				}
				continue
			}
			// Not a per-line failure: configuration mismatch.
			return abort(err)
		}

		switch row.Kind {
		case flattext.RowSkipped:
			result.Skipped++
		case flattext.RowHeader:
			result.HeaderLines++
		case flattext.RowRecord:
			if err := sink.Write(ctx, src.Line(), row.Record); err != nil {
				return abort(fmt.Errorf("write record: %w", err))
			}
			result.Records++
		}
	}

	if err := src.Err(); err != nil {
		return abort(fmt.Errorf("read input: %w", err))
	}
	if result.Lines == 0 {
		return abort(errors.New("empty file"))
	}

	if err := sink.Close(ctx); err != nil {
		result.Duration = time.Since(start)
		return result, fmt.Errorf("flush records: %w", err)
	}

	result.Duration = time.Since(start)
	result.FieldNames = mapper.FieldNames()
	progress.BytesRead = src.BytesRead()
	notify()
	return result, nil
}

// closeSink closes a sink on an error path where the close error cannot
// change the outcome.
func closeSink(sink RecordSink) {
	_ = sink.Close(context.Background())
}

func failedResult(meta IngestMeta, msg string) *IngestResult {
	return &IngestResult{
		IngestID:   meta.IngestID,
		ProfileKey: meta.ProfileKey,
		FileName:   meta.FileName,
		Error:      msg,
	}
}

// SubscribeProgress returns a channel that receives progress updates.
// The channel is closed when the ingest completes.
func (s *Service) SubscribeProgress(ingestID string) (<-chan IngestProgress, error) {
	s.mu.RLock()
	ing, ok := s.ingests[ingestID]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("ingest not found: %s", ingestID)
	}

	ch := make(chan IngestProgress, 10)

	ing.mu.Lock()
	ing.Listeners = append(ing.Listeners, ch)
	select {
	case ch <- ing.Progress:
	default:
	}
	ing.mu.Unlock()

	return ch, nil
}

// CancelIngest cancels an in-progress ingest.
func (s *Service) CancelIngest(ingestID string) error {
	s.mu.RLock()
	ing, ok := s.ingests[ingestID]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("ingest not found: %s", ingestID)
	}

	ing.Cancel()
	return nil
}

// GetIngestResult returns the result of a completed ingest.
// Blocks until the ingest completes if still in progress.
func (s *Service) GetIngestResult(ingestID string) (*IngestResult, error) {
	s.mu.RLock()
	ing, ok := s.ingests[ingestID]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("ingest not found: %s", ingestID)
	}

	<-ing.Done
	return ing.Result, nil
}

// GetIngestProgress returns the current progress without blocking.
func (s *Service) GetIngestProgress(ingestID string) (IngestProgress, error) {
	s.mu.RLock()
	ing, ok := s.ingests[ingestID]
	s.mu.RUnlock()

	if !ok {
		return IngestProgress{}, fmt.Errorf("ingest not found: %s", ingestID)
	}

	ing.mu.Lock()
	defer ing.mu.Unlock()
	return ing.Progress, nil
}

// LimiterStatus reports the concurrency limiter state for monitoring.
func (s *Service) LimiterStatus() IngestLimiterStatus {
	return s.limiter.Status()
}

// WaitForIngests blocks until all active ingests complete or ctx is
// cancelled. Used for graceful shutdown.
func (s *Service) WaitForIngests(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// setProgress replaces the progress snapshot and notifies listeners.
func (ing *activeIngest) setProgress(p IngestProgress) {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	ing.Progress = p
	ing.broadcastLocked()
}

// setPhase transitions the progress phase, with an optional error
// message, and notifies listeners.
func (ing *activeIngest) setPhase(phase IngestPhase, msg string) {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	ing.Progress.Phase = phase
	if msg != "" {
		ing.Progress.Error = msg
	}
	ing.broadcastLocked()
}

// broadcastLocked sends the current progress to all listeners, skipping
// any that are slow to drain. Callers must hold mu.
func (ing *activeIngest) broadcastLocked() {
	for _, ch := range ing.Listeners {
		select {
		case ch <- ing.Progress:
		default:
		}
	}
}

// closeListeners closes all listener channels.
func (ing *activeIngest) closeListeners() {
	ing.mu.Lock()
	defer ing.mu.Unlock()

	for _, ch := range ing.Listeners {
		close(ch)
	}
	ing.Listeners = nil
}

// cleanup removes the ingest from tracking after a delay, giving clients
// time to fetch the result.
func (s *Service) cleanup(ingestID string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.ingests, ingestID)
		s.mu.Unlock()
	})
}
