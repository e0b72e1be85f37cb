// Package heatmap serves an interactive alignment heatmap.
// It embeds a self-contained HTML/JS page that renders an uploaded vote file
// with Plotly and fetches data from a local JSON API.
package heatmap

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/julianne-789/tech-ga-analytics/internal/alignment"
	"github.com/julianne-789/tech-ga-analytics/internal/ingest"
	"github.com/julianne-789/tech-ga-analytics/internal/store"
)

//go:embed heatmap.html
var pageFS embed.FS

// UploadField is the multipart form field holding the vote file.
const UploadField = "csvFile"

// ServerConfig holds settings for the heatmap server.
type ServerConfig struct {
	Store          store.Store // optional; uploads are not persisted when nil
	Addr           string
	Fields         alignment.Fields
	Logger         *zap.Logger
	MaxUploadBytes int64
}

// UploadResponse is returned by POST /api/upload.
type UploadResponse struct {
	RunID    int64              `json:"run_id,omitempty"`
	File     string             `json:"file"`
	RowsRead int                `json:"rows_read"`
	RowsKept int                `json:"rows_kept"`
	Notice   string             `json:"notice,omitempty"`
	Heatmap  *alignment.Heatmap `json:"heatmap"`
}

// RunSummary is one entry of GET /api/runs.
type RunSummary struct {
	ID          int64     `json:"id"`
	SourceFile  string    `json:"source_file"`
	RowsRead    int       `json:"rows_read"`
	RowsKept    int       `json:"rows_kept"`
	Resolutions int       `json:"resolutions"`
	Entities    int       `json:"entities"`
	CreatedAt   time.Time `json:"created_at"`
}

// RunResponse is returned by GET /api/runs/{id}.
type RunResponse struct {
	RunSummary
	Heatmap *alignment.Heatmap `json:"heatmap"`
}

type server struct {
	cfg ServerConfig
	log *zap.Logger
}

// NewHandler builds the HTTP handler without starting a listener.
func NewHandler(cfg ServerConfig) http.Handler {
	cfg.Fields = cfg.Fields.WithDefaults()
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = ingest.DefaultMaxFileSize
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &server{cfg: cfg, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /api/upload", s.handleUpload)
	mux.HandleFunc("GET /api/runs", s.handleRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleRun)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	return s.logRequests(mux)
}

// Serve starts the heatmap server and blocks until ctx is cancelled or the
// listener fails.
func Serve(ctx context.Context, cfg ServerConfig) error {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("heatmap server listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listening on %s: %w", cfg.Addr, err)
	case <-ctx.Done():
	}

	log.Info("heatmap server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data, err := pageFS.ReadFile("heatmap.html")
	if err != nil {
		http.Error(w, "page not found", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

func (s *server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload: "+err.Error())
		return
	}
	file, header, err := r.FormFile(UploadField)
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if name == "" || name == "." {
		writeError(w, http.StatusBadRequest, "no file selected")
		return
	}
	if !ingest.Supported(name) {
		writeError(w, http.StatusBadRequest, "unsupported file type: upload a .csv, .tsv, .json or .yaml file")
		return
	}
	if header.Size > s.cfg.MaxUploadBytes {
		writeError(w, http.StatusBadRequest, ingest.ErrFileTooLarge.Error())
		return
	}

	rows, err := ingest.Parse(file, name)
	if err != nil {
		writeError(w, http.StatusBadRequest, "error processing file: "+err.Error())
		return
	}

	a := alignment.Analyze(rows, s.cfg.Fields)
	resp := UploadResponse{
		File:     name,
		RowsRead: a.RowsRead,
		RowsKept: a.RowsKept,
		Heatmap:  a.Heatmap,
	}
	switch err := a.Check(); {
	case errors.Is(err, alignment.ErrNoUsableData):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		resp.Notice = err.Error()
	}

	if s.cfg.Store != nil {
		run := store.NewRun(name, s.cfg.Fields, a)
		id, err := s.cfg.Store.SaveRun(r.Context(), run)
		if err != nil {
			s.log.Error("saving run", zap.String("file", name), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "saving run failed")
			return
		}
		resp.RunID = id
	}

	s.log.Info("computed alignment",
		zap.String("file", name),
		zap.Int("rows_read", a.RowsRead),
		zap.Int("rows_kept", a.RowsKept),
		zap.Int("entities", a.Result.Len()),
		zap.Int64("run_id", resp.RunID),
	)
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Store == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"runs": []RunSummary{}})
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	runs, err := s.cfg.Store.ListRuns(r.Context(), store.ListOpts{Limit: limit})
	if err != nil {
		s.log.Error("listing runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		out = append(out, summarize(run))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": out})
}

func (s *server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Store == nil {
		writeError(w, http.StatusNotFound, "run store disabled")
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}
	run, err := s.cfg.Store.GetRun(r.Context(), id)
	if err != nil {
		s.log.Error("getting run", zap.Int64("run_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("run %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, RunResponse{
		RunSummary: summarize(run),
		Heatmap:    alignment.Assemble(run.Result),
	})
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := &store.StoreStats{}
	if s.cfg.Store != nil {
		var err error
		if stats, err = s.cfg.Store.Stats(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]int64{
		"runs":          stats.RunCount,
		"source_files":  stats.SourceFiles,
		"db_size_bytes": stats.DBSizeBytes,
	})
}

func summarize(run *store.Run) RunSummary {
	return RunSummary{
		ID:          run.ID,
		SourceFile:  run.SourceFile,
		RowsRead:    run.RowsRead,
		RowsKept:    run.RowsKept,
		Resolutions: run.Resolutions,
		Entities:    len(run.Entities),
		CreatedAt:   run.CreatedAt,
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
