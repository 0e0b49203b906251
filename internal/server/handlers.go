package server

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/KaramelBytes/csvscope/internal/analysis"
	"github.com/KaramelBytes/csvscope/internal/charts"
	"github.com/KaramelBytes/csvscope/internal/metrics"
	"github.com/KaramelBytes/csvscope/internal/parser"
	"github.com/KaramelBytes/csvscope/internal/session"
)

const (
	downloadName    = "cleaned_data.csv"
	multipartMemory = 8 << 20
)

var templateFuncs = template.FuncMap{
	"kindTitle": func(k charts.Kind) string { return k.Title() },
	"join":      strings.Join,
	"accept":    func() string { return strings.Join(parser.Extensions(), ",") },
	"grid":      func(cols []string, rows [][]string) gridData { return gridData{Columns: cols, Rows: rows} },
}

type gridData struct {
	Columns []string
	Rows    [][]string
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{"status": "ok", "sessions": s.store.Len()})
}

type indexData struct {
	Error     string
	SessionID string
	MaxMB     int
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.page(w, r, http.StatusOK, "index.html", indexData{MaxMB: s.cfg.MaxUploadMB})
}

// readUpload parses the multipart "file" field into a table and stores it,
// replacing the session named by the "session" field when it is still live.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (session.Session, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.metrics.Uploads.WithLabelValues(metrics.ResultTooLarge).Inc()
			return session.Session{}, err
		}
		s.metrics.Uploads.WithLabelValues(metrics.ResultRejected).Inc()
		return session.Session{}, fieldErr("file", "must be sent as multipart/form-data")
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.metrics.Uploads.WithLabelValues(metrics.ResultRejected).Inc()
		return session.Session{}, fieldErr("file", "is required")
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	t, err := parser.Load(name, file, s.cfg.AnalysisOptions())
	if err != nil {
		s.metrics.Uploads.WithLabelValues(metrics.ResultRejected).Inc()
		s.logger.WarnContext(r.Context(), "upload rejected", slog.String("file", name), slog.String("error", err.Error()))
		return session.Session{}, err
	}
	sess := s.store.Put(r.FormValue("session"), name, header.Size, t)
	s.metrics.Uploads.WithLabelValues(metrics.ResultOK).Inc()
	s.metrics.UploadRows.Observe(float64(t.Rows()))
	return sess, nil
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess, err := s.readUpload(w, r)
	if err != nil {
		apiErr := errorFor(err)
		s.page(w, r, apiErr.StatusCode, "index.html", indexData{
			Error:     uploadMessage(apiErr),
			SessionID: r.FormValue("session"),
			MaxMB:     s.cfg.MaxUploadMB,
		})
		return
	}
	http.Redirect(w, r, "/s/"+sess.ID, http.StatusSeeOther)
}

func uploadMessage(e *APIError) string {
	if d, ok := e.Details.([]FieldError); ok && len(d) > 0 {
		return "Please choose a file to upload: " + d[0].Message + "."
	}
	return "Error reading the file: " + e.Message
}

func (s *Server) handleAPIUpload(w http.ResponseWriter, r *http.Request) {
	sess, err := s.readUpload(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, sess)
}

// session loads the session named in the URL.
func (s *Server) session(r *http.Request) (session.Session, error) {
	return s.store.Get(chi.URLParam(r, "id"))
}

type pageData struct {
	*View
	Error string
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		e := errorFor(err)
		s.page(w, r, e.StatusCode, "index.html", indexData{Error: e.Message, MaxMB: s.cfg.MaxUploadMB})
		return
	}
	q, err := parseQuery(r, s.cfg.PreviewRows)
	if err == nil {
		var v *View
		if v, err = s.buildView(sess, q); err == nil {
			s.page(w, r, http.StatusOK, "session.html", pageData{View: v})
			return
		}
	}
	// Fall back to the default view and show what was wrong with the request.
	e := errorFor(err)
	v, verr := s.buildView(sess, viewQuery{Fill: q.Fill, Limit: s.cfg.PreviewRows})
	if verr != nil {
		s.fail(w, r, verr)
		return
	}
	s.page(w, r, e.StatusCode, "session.html", pageData{View: v, Error: pageMessage(e)})
}

func pageMessage(e *APIError) string {
	if d, ok := e.Details.([]FieldError); ok && len(d) > 0 {
		msgs := make([]string, len(d))
		for i, fe := range d {
			msgs[i] = fe.Message
		}
		return strings.Join(msgs, "; ")
	}
	return e.Message
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	kind, err := charts.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q, err := parseQuery(r, s.cfg.PreviewRows)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	t, column := sess.Table, ""
	if q.Fill {
		t = analysis.FillNullsWith(sess.Table, s.cfg.FillText)
	}
	if kind != charts.Heatmap {
		if column, err = analysis.SelectPriceColumn(t, q.Column); err != nil {
			s.fail(w, r, err)
			return
		}
	}

	start := time.Now()
	var buf bytes.Buffer
	if err := charts.Render(&buf, t, column, kind, s.cfg.ChartOptions()); err != nil {
		s.fail(w, r, err)
		return
	}
	s.metrics.ObserveChart(string(kind), start)
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q, err := parseQuery(r, s.cfg.PreviewRows)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	t := sess.Table
	if q.Fill {
		t = analysis.FillNullsWith(sess.Table, s.cfg.FillText)
	}
	data, err := analysis.Export(t)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.metrics.Downloads.Inc()
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadName))
	_, _ = w.Write(data)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q, err := parseQuery(r, s.cfg.PreviewRows)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v, err := s.buildView(sess, q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, v)
}

// rowsResponse is a page of filtered rows.
type rowsResponse struct {
	Column  string     `json:"column"`
	Min     float64    `json:"min"`
	Max     float64    `json:"max"`
	Total   int        `json:"total"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q, err := parseQuery(r, s.cfg.PreviewRows)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	d, err := s.derive(sess, &q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if d.columnErr != nil {
		s.fail(w, r, d.columnErr)
		return
	}
	render.JSON(w, r, rowsResponse{
		Column:  d.column,
		Min:     q.Min,
		Max:     q.Max,
		Total:   d.filtered.Rows(),
		Columns: d.filtered.Names(),
		Rows:    d.filtered.Head(q.Limit),
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !s.store.Delete(chi.URLParam(r, "id")) {
		s.fail(w, r, session.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// page renders an HTML template, buffering so template errors become a 500.
func (s *Server) page(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "render template", slog.String("template", name), slog.String("error", err.Error()))
		http.Error(w, "Internal server error.", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.Copy(w, &buf)
}
