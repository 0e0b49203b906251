package server

import (
	"errors"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/KaramelBytes/csvscope/internal/analysis"
	"github.com/KaramelBytes/csvscope/internal/charts"
	"github.com/KaramelBytes/csvscope/internal/session"
)

// viewQuery is the interaction state carried in the query string.
type viewQuery struct {
	Fill   bool    `json:"fill"`
	Column string  `json:"column" validate:"max=256"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max" validate:"gtefield=Min"`
	Limit  int     `json:"limit" validate:"gte=1,lte=10000"`

	hasMin, hasMax bool
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// parseQuery reads fill, column, min, max and limit; the range is validated once
// the column bounds are known.
func parseQuery(r *http.Request, defaultLimit int) (viewQuery, error) {
	v := r.URL.Query()
	q := viewQuery{Column: v.Get("column"), Limit: defaultLimit}
	switch strings.ToLower(v.Get("fill")) {
	case "", "0", "false", "off":
	case "1", "true", "on":
		q.Fill = true
	default:
		return q, fieldErr("fill", "must be 1 or 0")
	}
	var err error
	if q.Min, q.hasMin, err = floatParam(v, "min"); err != nil {
		return q, err
	}
	if q.Max, q.hasMax, err = floatParam(v, "max"); err != nil {
		return q, err
	}
	if s := v.Get("limit"); s != "" {
		if q.Limit, err = strconv.Atoi(s); err != nil {
			return q, fieldErr("limit", "must be an integer")
		}
	}
	return q, nil
}

func floatParam(v url.Values, name string) (float64, bool, error) {
	s := strings.TrimSpace(v.Get(name))
	if s == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false, fieldErr(name, "must be a finite number")
	}
	return f, true, nil
}

func fieldErr(field, msg string) *APIError {
	e := newAPIError(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed.")
	e.Details = []FieldError{{Field: field, Rule: "format", Message: field + " " + msg}}
	return e
}

// encode returns the query string that reproduces q for chart and download links.
func (q viewQuery) encode(column string) string {
	v := url.Values{}
	if q.Fill {
		v.Set("fill", "1")
	}
	if column != "" {
		v.Set("column", column)
	}
	if q.hasMin {
		v.Set("min", strconv.FormatFloat(q.Min, 'g', -1, 64))
	}
	if q.hasMax {
		v.Set("max", strconv.FormatFloat(q.Max, 'g', -1, 64))
	}
	return v.Encode()
}

// View is everything one page render or summary call shows for a session.
type View struct {
	SessionID    string               `json:"session_id"`
	FileName     string               `json:"file_name"`
	Rows         int                  `json:"rows"`
	Columns      []string             `json:"columns"`
	Preview      [][]string           `json:"raw_preview"`
	Filled       bool                 `json:"filled"`
	Nulls        []analysis.NullCount `json:"nulls"`
	Numeric      []string             `json:"numeric_columns"`
	Text         []string             `json:"text_columns"`
	PriceColumns []string             `json:"price_columns"`
	Selected     string               `json:"selected_column,omitempty"`
	Bounds       *Bounds              `json:"bounds,omitempty"`
	Charts       []charts.Kind        `json:"charts"`
	FilteredRows int                  `json:"filtered_rows"`
	Filtered     [][]string           `json:"filtered_preview,omitempty"`
	Messages     []string             `json:"messages,omitempty"`

	query string
}

// Bounds holds the slider limits and the current range.
type Bounds struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Low  float64 `json:"low"`
	High float64 `json:"high"`
	Step float64 `json:"step"`
}

// Query returns the encoded interaction state for links.
func (v *View) Query() template.URL { return template.URL(v.query) }

// derived is a session table after fill, column resolution and filtering.
type derived struct {
	table    *analysis.Table
	column   string
	filtered *analysis.Table
	bounds   *Bounds
	messages []string
	// columnErr is why no column is selected, if none is.
	columnErr error
}

// derive recomputes the working table, selected column and filtered rows for q.
// A missing or unusable default price column becomes a message; a problem with
// an explicitly requested column is returned as an error.
func (s *Server) derive(sess session.Session, q *viewQuery) (*derived, error) {
	d := &derived{table: sess.Table}
	if q.Fill {
		d.table = analysis.FillNullsWith(sess.Table, s.cfg.FillText)
	}
	col, err := analysis.SelectPriceColumn(d.table, q.Column)
	switch {
	case err == nil:
	case q.Column == "" && errors.Is(err, analysis.ErrNoPriceColumn):
		d.messages = append(d.messages, "No price-related columns were detected, so price charts and filtering are unavailable.")
		d.columnErr = err
		return d, q.withoutRange()
	case q.Column == "" && (errors.Is(err, analysis.ErrNotNumeric) || errors.Is(err, analysis.ErrEmptyColumn)):
		d.messages = append(d.messages, fmt.Sprintf("The price column %q has no numeric values to plot or filter.", firstPrice(d.table)))
		d.columnErr = err
		return d, q.withoutRange()
	default:
		return nil, err
	}
	d.column = col

	lo, hi, err := analysis.Range(d.table, col)
	if err != nil {
		return nil, err
	}
	if !q.hasMin {
		q.Min = lo
	}
	if !q.hasMax {
		q.Max = hi
	}
	if err := validate.Struct(q); err != nil {
		return nil, err
	}
	d.bounds = &Bounds{Min: lo, Max: hi, Low: q.Min, High: q.Max, Step: sliderStep(lo, hi)}
	if d.filtered, err = analysis.Filter(d.table, col, q.Min, q.Max); err != nil {
		return nil, err
	}
	return d, nil
}

// withoutRange drops min and max, which mean nothing without a price column,
// and validates the rest.
func (q *viewQuery) withoutRange() error {
	q.Min, q.Max, q.hasMin, q.hasMax = 0, 0, false, false
	return validate.Struct(q)
}

func firstPrice(t *analysis.Table) string {
	if p := analysis.DetectPriceColumns(t); len(p) > 0 {
		return p[0]
	}
	return ""
}

func sliderStep(lo, hi float64) float64 {
	if hi <= lo {
		return 1
	}
	return (hi - lo) / 100
}

// buildView assembles the full page model.
func (s *Server) buildView(sess session.Session, q viewQuery) (*View, error) {
	d, err := s.derive(sess, &q)
	if err != nil {
		return nil, err
	}
	t := d.table
	numeric, text := analysis.ClassifyColumns(t)
	v := &View{
		SessionID:    sess.ID,
		FileName:     sess.FileName,
		Rows:         t.Rows(),
		Columns:      t.Names(),
		Preview:      sess.Table.Head(s.cfg.PreviewRows),
		Filled:       q.Fill,
		Nulls:        analysis.MissingColumns(sess.Table),
		Numeric:      numeric,
		Text:         text,
		PriceColumns: analysis.DetectPriceColumns(t),
		Selected:     d.column,
		Bounds:       d.bounds,
		Charts:       charts.Available(t, d.column),
		Messages:     d.messages,
		query:        q.encode(d.column),
	}
	if len(numeric) == 0 {
		v.Messages = append(v.Messages, "No numeric columns were found, so the correlation heatmap is unavailable.")
	}
	if d.filtered != nil {
		v.FilteredRows = d.filtered.Rows()
		v.Filtered = d.filtered.Head(min(q.Limit, s.cfg.PreviewRows))
	}
	return v, nil
}
