package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fwojciec/larder"
	"github.com/fwojciec/larder/imagecache"
)

// Search defaults for the HTTP API.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Server exposes search, source health, cached media and metrics over HTTP.
type Server struct {
	Searcher larder.Searcher
	Sources  larder.SourceService

	// Images rewrites result images to cached copies. Optional.
	Images larder.ImageCache

	// Detach schedules caching of images that are not cached yet. Optional.
	Detach func(urls []string)

	// Metrics serves /metrics. Optional.
	Metrics http.Handler

	// MediaDir is served under MediaURL when both are set and MediaURL is
	// a path.
	MediaDir string
	MediaURL string

	Logger *slog.Logger
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/sources", s.handleSources)
	if s.Metrics != nil {
		mux.Handle("GET /metrics", s.Metrics)
	}
	if s.MediaDir != "" && strings.HasPrefix(s.MediaURL, "/") {
		prefix := strings.TrimSuffix(s.MediaURL, "/") + "/"
		mux.Handle("GET "+prefix, http.StripPrefix(prefix, http.FileServer(http.Dir(s.MediaDir))))
	}
	return s.logRequests(mux)
}

// ListenAndServe serves Handler on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := larder.SearchRequest{
		Query:   strings.TrimSpace(q.Get("q")),
		Sources: q["source"],
		Page:    intParam(q.Get("page"), 1),
		PerPage: min(intParam(q.Get("per_page"), DefaultPerPage), MaxPerPage),
	}

	resp, err := s.Searcher.Search(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if s.Images != nil {
		missing, err := imagecache.LocalizeImages(r.Context(), s.Images, resp.Results)
		if err != nil {
			s.logger().Warn("image lookup failed", "error", err)
		} else if len(missing) > 0 && s.Detach != nil {
			s.Detach(missing)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.Sources.FindSources(r.Context(), larder.SourceFilter{})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": sources})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := larder.ErrorCode(err)
	if code == larder.EINTERNAL {
		s.logger().Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, statusFor(code), map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": larder.ErrorMessage(err),
		},
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		defer func(begin time.Time) {
			s.logger().Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.status,
				"duration", time.Since(begin),
			)
		}(time.Now())
		next.ServeHTTP(rw, r)
	})
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s.Logger
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func statusFor(code string) int {
	switch code {
	case larder.EINVALID:
		return http.StatusBadRequest
	case larder.ENOTFOUND:
		return http.StatusNotFound
	case larder.ECONFLICT:
		return http.StatusConflict
	case larder.EUNAVAILABLE:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func intParam(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		// Invalid values are passed through so request validation rejects them.
		return 0
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
