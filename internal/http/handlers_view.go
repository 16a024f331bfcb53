package http

import (
	"net/http"
	"time"

	"budget/internal/core"
)

type monthPage struct {
	View   core.MonthView
	Months []time.Month
	Today  core.Date
	// DefaultDueDate prefills the create form with a day in the viewed month.
	DefaultDueDate string
}

type payPeriodPage struct {
	Period   core.PeriodTotal
	Next     *core.PeriodTotal
	Explicit bool
	Today    core.Date
}

// handleIndex redirects to the month containing today.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	today := s.bills.Today()
	http.Redirect(w, r, MonthURL(today.Year(), today.Month()), http.StatusFound)
}

func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthPath(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	view, err := s.bills.MonthView(r.Context(), params.Year, params.Month)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	today := s.bills.Today()
	due := core.NewDate(params.Year, params.Month, 1)
	if today.Year() == params.Year && today.Month() == params.Month {
		due = today
	}

	s.render(w, r, http.StatusOK, "month.html", monthPage{
		View:           view,
		Months:         months,
		Today:          today,
		DefaultDueDate: due.String(),
	})
}

// handlePayPeriod lists the bills of an explicit date range, or of the
// current and next pay periods when no range is given.
func (s *Server) handlePayPeriod(w http.ResponseWriter, r *http.Request) {
	today := s.bills.Today()
	period, explicit, err := ParsePeriodParams(r.URL.Query(), today)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	page := payPeriodPage{Explicit: explicit, Today: today}
	if explicit {
		page.Period, err = s.bills.RangeView(r.Context(), period)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
	} else {
		summary, err := s.bills.PayPeriodSummary(r.Context(), today)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		page.Period = summary.Current
		page.Next = &summary.Next
	}

	s.render(w, r, http.StatusOK, "pay_period.html", page)
}
