package http

import (
	"fmt"
	"html/template"
	"net/http"
	"time"
)

const contentTypeHTML = "text/html; charset=utf-8"

// ResponseBuilder provides a fluent API for building HTML responses.
type ResponseBuilder struct {
	statusCode int
	body       []byte
	headers    map[string]string
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// BodyHTML sets the response body as HTML content.
func (b *ResponseBuilder) BodyHTML(html []byte) *ResponseBuilder {
	b.headers["Content-Type"] = contentTypeHTML
	b.body = html
	return b
}

// NoStore marks the response as uncacheable. Every bill page is.
func (b *ResponseBuilder) NoStore() *ResponseBuilder {
	return b.Header("Cache-Control", "no-store")
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse creates a minimal HTML error page. It is used when the
// templates are unavailable; message is escaped.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().
		Status(statusCode).
		NoStore().
		BodyHTML([]byte(`<!doctype html><title>` + http.StatusText(statusCode) +
			`</title><div class="error">` + template.HTMLEscapeString(message) + `</div>`))
}

// See Other after a successful POST, so a reload does not resubmit the form.
func redirectAfterPost(w http.ResponseWriter, r *http.Request, location string) {
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// MonthURL is the path of the month view for year and month.
func MonthURL(year int, month time.Month) string {
	return fmt.Sprintf("/%d/%d/", year, int(month))
}
