package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tablefeed/tablefeed/internal/core"
	"github.com/tablefeed/tablefeed/internal/profile"
)

// handleHealth reports process liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// profileResponse is the JSON shape for one format profile.
type profileResponse struct {
	Key            string   `json:"key"`
	Label          string   `json:"label"`
	Format         string   `json:"format"`
	HasHeaderRow   bool     `json:"has_header_row"`
	SkipHeaderRows int      `json:"skip_header_rows"`
	FieldNames     []string `json:"field_names,omitempty"`
}

// handleListProfiles returns the registered format profiles.
func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	all := profile.All()
	out := make([]profileResponse, 0, len(all))
	for _, p := range all {
		out = append(out, profileResponse{
			Key:            p.Key,
			Label:          p.Label,
			Format:         string(p.Format),
			HasHeaderRow:   p.HasHeaderRow,
			SkipHeaderRows: p.SkipHeaderRows,
			FieldNames:     p.FieldNames,
		})
	}
	writeJSON(w, map[string]any{"profiles": out})
}

// handleStatus reports ingest capacity for dashboards and load shedding.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.LimiterStatus())
}

// handleIngest starts a background ingest from a multipart file upload.
// The form is parsed up front, bounded by MaxFileSize, so the file part
// stays readable after this handler returns and the ingest goroutine can
// stream it through the pipeline.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	profileKey := chi.URLParam(r, "profileKey")
	if profileKey == "" {
		s.respondError(w, r, errors.New("unknown profile: (missing)"), http.StatusBadRequest)
		return
	}

	maxSize := s.cfg.Ingest.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	file, header, err := formFile(r, maxSize)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	defer file.Close()

	ingestID, err := s.service.StartIngest(r.Context(), profileKey, header.Filename, file, header.Size)
	if err != nil {
		s.respondError(w, r, err, startIngestStatus(err))
		return
	}

	writeJSON(w, map[string]string{"ingest_id": ingestID})
}

// handlePreview parses a bounded sample of the upload and returns the
// records it would produce, without writing anything.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	profileKey := chi.URLParam(r, "profileKey")

	maxSize := s.cfg.Ingest.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	file, _, err := formFile(r, maxSize)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("read upload: %w", err), http.StatusBadRequest)
		return
	}

	rows := parseIntParam(r, "rows", s.cfg.Ingest.PreviewRows)
	result, err := core.Preview(r.Context(), profileKey, data, rows)
	if err != nil {
		s.respondError(w, r, err, startIngestStatus(err))
		return
	}

	writeJSON(w, result)
}

// handleIngestProgress streams ingest progress via Server-Sent Events.
// Supports resumption via the lastEventId query parameter: the event ID
// is the progress percentage, so reconnecting clients skip events they
// already received.
func (s *Server) handleIngestProgress(w http.ResponseWriter, r *http.Request) {
	ingestID := chi.URLParam(r, "ingestID")

	lastEventIDStr := r.URL.Query().Get("lastEventId")
	var lastEventID int
	if lastEventIDStr != "" {
		lastEventID, _ = strconv.Atoi(lastEventIDStr)
	}

	progressCh, err := s.service.SubscribeProgress(ingestID)
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, r, errors.New("streaming not supported"), http.StatusInternalServerError)
		return
	}

	for {
		select {
		case progress, ok := <-progressCh:
			if !ok {
				// Channel closed: ingest complete or cancelled
				fmt.Fprintf(w, "event: complete\ndata: {}\n\n")
				flusher.Flush()
				return
			}

			currentPercent := progress.Percent()
			if lastEventIDStr != "" && currentPercent <= lastEventID {
				continue
			}

			data, _ := json.Marshal(progress)
			fmt.Fprintf(w, "id: %d\nevent: progress\ndata: %s\n\n", currentPercent, data)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// handleIngestResult returns the final result of an ingest. Blocks until
// the ingest finishes (bounded by the request timeout middleware).
func (s *Server) handleIngestResult(w http.ResponseWriter, r *http.Request) {
	ingestID := chi.URLParam(r, "ingestID")

	result, err := s.service.GetIngestResult(ingestID)
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}

	writeJSON(w, result)
}

// handleCancelIngest cancels an in-progress ingest.
func (s *Server) handleCancelIngest(w http.ResponseWriter, r *http.Request) {
	ingestID := chi.URLParam(r, "ingestID")

	if err := s.service.CancelIngest(ingestID); err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}

	writeJSON(w, map[string]string{"status": "cancelled"})
}

// handleRecentIngests returns the most recent ingest runs from storage.
func (s *Server) handleRecentIngests(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.respondError(w, r, errors.New("ingest history requires a database"), http.StatusServiceUnavailable)
		return
	}

	limit := parseIntParam(r, "limit", 50)
	rows, err := s.store.RecentIngests(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{"ingests": rows})
}

// handleIngestRecords returns stored record payloads for one ingest.
func (s *Server) handleIngestRecords(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.respondError(w, r, errors.New("ingest history requires a database"), http.StatusServiceUnavailable)
		return
	}

	ingestID := chi.URLParam(r, "ingestID")
	limit := parseIntParam(r, "limit", 100)
	offset := parseIntParam(r, "offset", 0)

	records, err := s.store.Records(r.Context(), ingestID, limit, offset)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{"ingest_id": ingestID, "records": records})
}

// handleDeleteIngest removes an ingest run and all its stored records.
func (s *Server) handleDeleteIngest(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.respondError(w, r, errors.New("ingest history requires a database"), http.StatusServiceUnavailable)
		return
	}

	ingestID := chi.URLParam(r, "ingestID")
	deleted, err := s.store.DeleteIngest(r.Context(), ingestID)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{"status": "deleted", "records": deleted})
}

// formFile extracts the uploaded "file" part from a multipart form.
func formFile(r *http.Request, maxSize int64) (io.ReadCloser, *fileHeader, error) {
	if err := r.ParseMultipartForm(maxSize); err != nil {
		return nil, nil, errors.New("file too large or invalid form")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, errors.New("no file provided")
	}
	return file, &fileHeader{Filename: header.Filename, Size: header.Size}, nil
}

// fileHeader carries the upload metadata handlers need.
type fileHeader struct {
	Filename string
	Size     int64
}

// startIngestStatus maps ingest startup errors to HTTP status codes.
func startIngestStatus(err error) int {
	switch {
	case errors.Is(err, core.ErrTooManyIngests):
		return http.StatusServiceUnavailable
	case strings.Contains(err.Error(), "unknown profile"):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

// parseIntParam reads an integer query parameter with a fallback.
func parseIntParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
