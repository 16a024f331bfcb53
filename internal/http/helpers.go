package http

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"time"

	"budget/internal/core"
	applog "budget/internal/log"
)

var templateFuncs = template.FuncMap{
	"monthURL":  MonthURL,
	"prevMonth": func(year int, month time.Month) string {
		t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
		return MonthURL(t.Year(), t.Month())
	},
	"nextMonth": func(year int, month time.Month) string {
		t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
		return MonthURL(t.Year(), t.Month())
	},
}

// months feeds the month navigation.
var months = func() []time.Month {
	out := make([]time.Month, 0, 12)
	for m := time.January; m <= time.December; m++ {
		out = append(out, m)
	}
	return out
}()

// errorPage is the data of error.html.
type errorPage struct {
	Status  int
	Title   string
	Message string
}

// statusFor maps a service error to its HTTP status and user-facing message.
// Store failures never leak their cause.
func statusFor(err error) (int, string) {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, core.ErrInvalidPeriod):
		return http.StatusBadRequest, "Start date must not be after end date"
	default:
		return http.StatusInternalServerError, "Something went wrong, please try again"
	}
}

// writeError logs err and renders it with the status from statusFor.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusFor(err)

	logger := applog.FromContext(r.Context())
	fields := applog.NewFields().WithError(err).WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", fields.ToSlice()...)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", fields.ToSlice()...)
	}

	s.render(w, r, status, "error.html", errorPage{
		Status:  status,
		Title:   http.StatusText(status),
		Message: message,
	})
}

// render executes name into a buffer first so a template failure still
// produces a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		if p, ok := data.(errorPage); ok {
			ErrorResponse(status, p.Message).Write(w)
			return
		}
		ErrorResponse(http.StatusInternalServerError, "Templates are not loaded").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			applog.FieldComponent, applog.ComponentTemplate,
			applog.FieldOperation, applog.OpRender,
			"template", name,
			applog.FieldError, err)
		ErrorResponse(http.StatusInternalServerError, "Something went wrong, please try again").Write(w)
		return
	}
	NewResponse().Status(status).NoStore().BodyHTML(buf.Bytes()).Write(w)
}
