// Package server implements the video metadata service: container reads and
// stream-copy metadata stripping over multipart HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/ankit-chaubey/media-metadata-scrubber/core"
	"github.com/ankit-chaubey/media-metadata-scrubber/core/video"
	"github.com/ankit-chaubey/media-metadata-scrubber/core/video/probe"
)

const (
	formMemory      = 32 << 20
	shutdownTimeout = 5 * time.Second
)

// Options configures a Server.
type Options struct {
	Addr           string
	MaxUploadBytes int64 // 0 disables the cap
	TempDir        string
	Logger         *slog.Logger
}

// Server serves video.MetadataPath, video.ScrubPath and video.HealthPath.
type Server struct {
	opts   Options
	prober probe.Prober
	strip  probe.Stripper
	log    *slog.Logger
	router *mux.Router
}

// New wires the routes. prober and stripper do the container work.
func New(opts Options, prober probe.Prober, stripper probe.Stripper) *Server {
	s := &Server{opts: opts, prober: prober, strip: stripper, log: opts.Logger}
	if s.log == nil {
		s.log = slog.Default()
	}
	r := mux.NewRouter()
	r.HandleFunc(video.MetadataPath, s.handleMetadata).Methods(http.MethodPost)
	r.HandleFunc(video.ScrubPath, s.handleScrub).Methods(http.MethodPost)
	r.HandleFunc(video.HealthPath, s.handleHealth).Methods(http.MethodGet, http.MethodHead)
	r.Use(s.logRequests)
	s.router = r
	return s
}

// Handler returns the routed http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	h := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("video service listening", "addr", s.opts.Addr)
		errCh <- h.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	s.log.Info("shutting down video service")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := h.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// ──────────────────────────────────────────────────────────────────────────────
// Handlers
// ──────────────────────────────────────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	f, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	scratch := probe.NewScratch(s.opts.TempDir, s.log)
	defer scratch.Release()

	path, err := scratch.Write("video", f.Name, f.Data)
	if err != nil {
		s.fail(w, "Failed to process video metadata", err)
		return
	}
	fields, err := s.prober.Probe(r.Context(), path)
	if err != nil {
		s.fail(w, "Failed to process video metadata", err)
		return
	}

	out := make(video.Fields, 0, len(fields)+4)
	out = append(out, fields...)
	out = append(out,
		core.MetaField{Name: "File Name", Value: f.Name},
		core.MetaField{Name: "File Size", Value: core.FormatMB(f.Size())},
		core.MetaField{Name: "File Type", Value: f.MediaType},
	)
	if !f.LastModified.IsZero() {
		out = append(out, core.MetaField{Name: "Last Modified", Value: core.FormatTimestamp(f.LastModified)})
	}
	writeJSON(w, http.StatusOK, video.MetadataResponse{Success: true, Metadata: out})
}

func (s *Server) handleScrub(w http.ResponseWriter, r *http.Request) {
	f, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	var fields []string
	if raw := r.FormValue(video.FormFields); raw != "" {
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid fieldsToScrub", err.Error())
			return
		}
	}
	// Every container field is removed; the list is recorded only.
	s.log.Debug("scrub requested", "file", f.Name, "fields", fields)

	scratch := probe.NewScratch(s.opts.TempDir, s.log)
	defer scratch.Release()

	in, err := scratch.Write("input", f.Name, f.Data)
	if err != nil {
		s.fail(w, "Failed to scrub video metadata", err)
		return
	}
	out := scratch.Path("output", f.Name)
	if err := s.strip.Strip(r.Context(), in, out); err != nil {
		s.fail(w, "Failed to scrub video metadata", err)
		return
	}
	data, err := os.ReadFile(out)
	if err != nil {
		s.fail(w, "Failed to scrub video metadata", err)
		return
	}

	w.Header().Set("Content-Type", f.MediaType)
	w.Header().Set("Content-Disposition", ContentDisposition(core.OutputName(f.Name)))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.log.Warn("writing scrub response", "file", f.Name, "error", err)
	}
}

// readUpload parses the multipart body and writes a 4xx answer itself when
// the upload is unusable.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*core.UploadedFile, bool) {
	if s.opts.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large", fmt.Sprintf("limit is %d bytes", s.opts.MaxUploadBytes))
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "Invalid form data", err.Error())
		return nil, false
	}
	defer r.MultipartForm.RemoveAll()

	file, hdr, err := r.FormFile(video.FormFile)
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided", "")
		return nil, false
	}
	defer file.Close()

	mediaType := hdr.Header.Get("Content-Type")
	if !strings.HasPrefix(mediaType, "video/") {
		writeError(w, http.StatusBadRequest, "File is not a video", mediaType)
		return nil, false
	}
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form data", err.Error())
		return nil, false
	}

	f := &core.UploadedFile{Name: hdr.Filename, MediaType: mediaType, Data: data}
	if ms, err := strconv.ParseInt(r.FormValue(video.FormLastModified), 10, 64); err == nil && ms > 0 {
		f.LastModified = time.UnixMilli(ms)
	}
	return f, true
}

func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	s.log.Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, msg, err.Error())
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// ContentDisposition returns an attachment header for name.
func ContentDisposition(name string) string {
	return `attachment; filename="` + quoteEscaper.Replace(name) + `"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, video.ErrorResponse{Error: msg, Details: details})
}
