package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"budget/internal/core"
)

func TestParseMonthPath(t *testing.T) {
	tests := []struct {
		name      string
		year      string
		month     string
		wantYear  int
		wantMonth time.Month
		wantErr   bool
	}{
		{name: "valid", year: "2024", month: "3", wantYear: 2024, wantMonth: time.March},
		{name: "zero padded month", year: "2024", month: "03", wantYear: 2024, wantMonth: time.March},
		{name: "december", year: "1999", month: "12", wantYear: 1999, wantMonth: time.December},
		{name: "month zero", year: "2024", month: "0", wantErr: true},
		{name: "month thirteen", year: "2024", month: "13", wantErr: true},
		{name: "non numeric month", year: "2024", month: "march", wantErr: true},
		{name: "signed month", year: "2024", month: "+3", wantErr: true},
		{name: "non numeric year", year: "next", month: "3", wantErr: true},
		{name: "year zero", year: "0", month: "3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.SetPathValue("year", tt.year)
			req.SetPathValue("month", tt.month)

			got, err := ParseMonthPath(req)
			if tt.wantErr {
				if !errors.Is(err, core.ErrNotFound) {
					t.Fatalf("expected ErrNotFound, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Year != tt.wantYear || got.Month != tt.wantMonth {
				t.Errorf("got %d/%d, want %d/%d", got.Year, got.Month, tt.wantYear, tt.wantMonth)
			}
		})
	}
}

func TestParseBillID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{raw: "1", want: 1},
		{raw: "42", want: 42},
		{raw: "0", wantErr: true},
		{raw: "-1", wantErr: true},
		{raw: "abc", wantErr: true},
		{raw: "1.5", wantErr: true},
		{raw: "99999999999999999999", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.SetPathValue("id", tt.raw)

			got, err := ParseBillID(req)
			if tt.wantErr {
				if !errors.Is(err, core.ErrNotFound) {
					t.Fatalf("expected ErrNotFound, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("ParseBillID(%q) = %d, %v", tt.raw, got, err)
			}
		})
	}
}

func TestParseBillForm(t *testing.T) {
	body := "due_date=2024-03-01&bill_name=Rent&amount_due=1200.00&confirm=yes"
	req := httptest.NewRequest(http.MethodPost, "/confirm_edit/1", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	form, err := ParseBillForm(req)
	if err != nil {
		t.Fatalf("ParseBillForm() error = %v", err)
	}
	want := core.BillForm{DueDate: "2024-03-01", BillName: "Rent", AmountDue: "1200.00"}
	if form != want {
		t.Errorf("form = %+v, want %+v", form, want)
	}
	if !Confirmed(req) {
		t.Error("Confirmed() = false, want true")
	}
}

func TestParseBillFormIgnoresQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/2024/3/?bill_name=Injected", strings.NewReader("due_date=2024-03-01"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	form, err := ParseBillForm(req)
	if err != nil {
		t.Fatalf("ParseBillForm() error = %v", err)
	}
	if form.BillName != "" {
		t.Errorf("bill name taken from query string: %q", form.BillName)
	}
	if Confirmed(req) {
		t.Error("Confirmed() = true without confirm field")
	}
}

func TestParsePeriodParams(t *testing.T) {
	today := core.NewDate(2024, time.March, 20)

	tests := []struct {
		name         string
		query        url.Values
		wantPeriod   string
		wantExplicit bool
		wantErr      error
	}{
		{
			name:       "defaults to current pay period",
			query:      url.Values{},
			wantPeriod: "2024-03-16..2024-03-31",
		},
		{
			name:         "explicit range",
			query:        url.Values{"start_date": {"2024-03-01"}, "end_date": {"2024-03-15"}},
			wantPeriod:   "2024-03-01..2024-03-15",
			wantExplicit: true,
		},
		{
			name:         "single day",
			query:        url.Values{"start_date": {"2024-03-01"}, "end_date": {"2024-03-01"}},
			wantPeriod:   "2024-03-01..2024-03-01",
			wantExplicit: true,
		},
		{
			name:    "missing end",
			query:   url.Values{"start_date": {"2024-03-01"}},
			wantErr: core.ErrMissingField,
		},
		{
			name:    "malformed start",
			query:   url.Values{"start_date": {"03/01/2024"}, "end_date": {"2024-03-15"}},
			wantErr: core.ErrInvalidDate,
		},
		{
			name:    "start after end",
			query:   url.Values{"start_date": {"2024-03-15"}, "end_date": {"2024-03-01"}},
			wantErr: core.ErrInvalidPeriod,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, explicit, err := ParsePeriodParams(tt.query, today)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				var ve *core.ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("expected *core.ValidationError, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.String() != tt.wantPeriod || explicit != tt.wantExplicit {
				t.Errorf("got %s (explicit=%v), want %s (explicit=%v)", p, explicit, tt.wantPeriod, tt.wantExplicit)
			}
		})
	}
}

func TestErrorResponseEscapes(t *testing.T) {
	rr := httptest.NewRecorder()
	ErrorResponse(http.StatusBadRequest, `<script>alert(1)</script>`).Write(rr)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "<script>") {
		t.Fatalf("message not escaped: %s", rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != contentTypeHTML {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestMonthURL(t *testing.T) {
	if got := MonthURL(2024, time.March); got != "/2024/3/" {
		t.Errorf("MonthURL = %q", got)
	}
}
