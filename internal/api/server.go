package api

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/banshee-data/eeg.report/internal/bands"
	"github.com/banshee-data/eeg.report/internal/dashboard"
	"github.com/banshee-data/eeg.report/internal/db"
	"github.com/banshee-data/eeg.report/internal/eeg"
	"github.com/banshee-data/eeg.report/internal/httputil"
	"github.com/banshee-data/eeg.report/internal/monitoring"
	"github.com/banshee-data/eeg.report/internal/playback"
	"github.com/banshee-data/eeg.report/internal/report"
	"github.com/banshee-data/eeg.report/internal/version"
	"github.com/banshee-data/eeg.report/internal/visualiser"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

//go:embed static
var staticFS embed.FS

// Options configures the HTTP surface.
type Options struct {
	TrendWindow int
	Dashboard   dashboard.Options
	// KeepAlive is the SSE comment interval.
	KeepAlive time.Duration
}

// Server serves the playback API. The database is optional; without one the
// dataset routes answer 404.
type Server struct {
	ctrl      playback.Controller
	publisher *visualiser.Publisher
	db        *db.DB
	opts      Options

	mu     sync.RWMutex
	source string
}

func NewServer(ctrl playback.Controller, publisher *visualiser.Publisher, database *db.DB, opts Options) *Server {
	if opts.TrendWindow <= 0 {
		opts.TrendWindow = bands.DefaultTrendWindow
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = 15 * time.Second
	}
	if opts.Dashboard.Panels == nil {
		opts.Dashboard = dashboard.DefaultOptions()
	}
	return &Server{
		ctrl:      ctrl,
		publisher: publisher,
		db:        database,
		opts:      opts,
	}
}

// SetSource records where the current dataset came from, for /api/status.
func (s *Server) SetSource(source string) {
	s.mu.Lock()
	s.source = source
	s.mu.Unlock()
}

func (s *Server) currentSource() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.showStatus)
	mux.HandleFunc("/api/frame", s.showFrame)
	mux.HandleFunc("/api/playback/", s.playbackCommand)
	mux.HandleFunc("/api/stream", s.streamFrames)
	mux.HandleFunc("/api/subjects", s.listSubjects)
	mux.HandleFunc("/api/datasets", s.listDatasets)
	mux.HandleFunc("/api/datasets/load", s.loadDataset)
	mux.HandleFunc("/api/report", s.showReport)
	mux.HandleFunc("/api/report/plot", s.plotSubject)
	mux.HandleFunc("/dashboard", s.showDashboard)

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	mux.Handle("/", http.FileServerFS(static))
	return mux
}

// Status is the /api/status payload.
type Status struct {
	Version   string                    `json:"version"`
	Ready     bool                      `json:"ready"`
	State     playback.State            `json:"state"`
	Source    string                    `json:"source,omitempty"`
	Subjects  int                       `json:"subjects"`
	Trials    int                       `json:"trials"`
	HasSlope  bool                      `json:"has_slope"`
	HasBSI    bool                      `json:"has_bsi"`
	Subject   string                    `json:"subject,omitempty"`
	Publisher visualiser.PublisherStats `json:"publisher"`
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	f, err := s.ctrl.Snapshot(r.Context())
	if err != nil {
		s.writePlaybackError(w, err)
		return
	}

	st := Status{
		Version: version.String(),
		Ready:   f.Ready,
		State:   f.State,
		Source:  s.currentSource(),
		Subject: f.Subject,
	}
	if ds := s.ctrl.Dataset(); ds != nil {
		st.Subjects, st.Trials = ds.SubjectCount(), ds.TrialCount()
		st.HasSlope, st.HasBSI = ds.HasSlope, ds.HasBSI
	}
	if s.publisher != nil {
		st.Publisher = s.publisher.Stats()
	}
	httputil.WriteJSONOK(w, st)
}

func (s *Server) showFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	f, err := s.ctrl.Snapshot(r.Context())
	if err != nil {
		s.writePlaybackError(w, err)
		return
	}
	if !f.Ready {
		httputil.ServiceUnavailable(w, playback.ErrNotReady.Error())
		return
	}
	httputil.WriteJSONOK(w, f)
}

func (s *Server) playbackCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w, http.MethodPost)
		return
	}
	cmd, err := playback.ParseCommand(strings.TrimPrefix(r.URL.Path, "/api/playback/"))
	if err != nil {
		httputil.NotFound(w, err.Error())
		return
	}
	f, err := s.ctrl.Do(r.Context(), cmd)
	if err != nil {
		s.writePlaybackError(w, err)
		return
	}
	httputil.WriteJSONOK(w, f)
}

func (s *Server) writePlaybackError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, playback.ErrNotReady), errors.Is(err, playback.ErrStopped):
		httputil.ServiceUnavailable(w, err.Error())
	case errors.Is(err, playback.ErrUnknownCommand):
		httputil.BadRequest(w, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		httputil.WriteJSONError(w, http.StatusGatewayTimeout, err.Error())
	default:
		httputil.InternalServerError(w, err.Error())
	}
}

// streamFrames sends every published frame as an SSE "frame" event.
func (s *Server) streamFrames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	if s.publisher == nil {
		httputil.ServiceUnavailable(w, "streaming disabled")
		return
	}
	sub, err := s.publisher.Subscribe()
	if err != nil {
		httputil.ServiceUnavailable(w, err.Error())
		return
	}
	defer s.publisher.Unsubscribe(sub.ID)

	sse, err := httputil.NewSSEWriter(w)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	keepAlive := time.NewTicker(s.opts.KeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case f, ok := <-sub.C:
			if !ok {
				return
			}
			if err := sse.Event("frame", f); err != nil {
				return
			}
		case <-keepAlive.C:
			if err := sse.Comment("keep-alive"); err != nil {
				return
			}
		}
	}
}

// SubjectInfo is one entry of /api/subjects.
type SubjectInfo struct {
	Position int    `json:"position"`
	Subject  string `json:"subject"`
	Trials   int    `json:"trials"`
}

func (s *Server) readyDataset(w http.ResponseWriter) (*eeg.Dataset, bool) {
	ds := s.ctrl.Dataset()
	if !ds.Ready() {
		httputil.ServiceUnavailable(w, playback.ErrNotReady.Error())
		return nil, false
	}
	return ds, true
}

func (s *Server) listSubjects(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	ds, ok := s.readyDataset(w)
	if !ok {
		return
	}
	out := make([]SubjectInfo, len(ds.Subjects))
	for i, series := range ds.Subjects {
		out[i] = SubjectInfo{Position: i, Subject: series.Subject, Trials: series.Len()}
	}
	httputil.WriteJSONOK(w, out)
}

func (s *Server) listDatasets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	if s.db == nil {
		httputil.NotFound(w, "no database configured")
		return
	}
	list, err := s.db.ListDatasets(r.Context())
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if list == nil {
		list = []db.DatasetInfo{}
	}
	httputil.WriteJSONOK(w, list)
}

func (s *Server) loadDataset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w, http.MethodPost)
		return
	}
	if s.db == nil {
		httputil.NotFound(w, "no database configured")
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		httputil.BadRequest(w, "missing 'id' parameter")
		return
	}

	ds, info, err := s.db.LoadDataset(r.Context(), id)
	if errors.Is(err, db.ErrDatasetNotFound) {
		httputil.NotFound(w, err.Error())
		return
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if err := s.ctrl.Load(r.Context(), ds); err != nil {
		s.writePlaybackError(w, err)
		return
	}
	s.SetSource("dataset " + info.Name)
	monitoring.Logf("[API] loaded dataset %s (%s)", info.ID, info.Name)
	httputil.WriteJSONOK(w, info)
}

func (s *Server) showReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	ds, ok := s.readyDataset(w)
	if !ok {
		return
	}
	sums := report.Summarize(ds, s.opts.TrendWindow)

	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(report.Markdown(s.currentSource(), sums)))
		return
	}
	httputil.WriteJSONOK(w, sums)
}

func (s *Server) plotSubject(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	ds, ok := s.readyDataset(w)
	if !ok {
		return
	}
	subject := r.URL.Query().Get("subject")
	if subject == "" {
		httputil.BadRequest(w, "missing 'subject' parameter")
		return
	}
	pos := -1
	for i, series := range ds.Subjects {
		if series.Subject == subject {
			pos = i
			break
		}
	}
	if pos < 0 {
		httputil.NotFound(w, "unknown subject "+subject)
		return
	}

	var buf bytes.Buffer
	if err := report.PlotSubject(ds, pos, s.opts.TrendWindow, &buf); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) showDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	f, err := s.ctrl.Snapshot(r.Context())
	if err != nil {
		s.writePlaybackError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := dashboard.Render(&buf, f, s.opts.Dashboard); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
