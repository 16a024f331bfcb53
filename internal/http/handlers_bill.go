package http

import (
	"net/http"

	"budget/internal/core"
)

type editPage struct {
	Bill  core.Bill
	Form  core.BillForm
	Years []int
}

type confirmEditPage struct {
	Current  core.Bill
	Proposed core.Bill
	Form     core.BillForm
}

type deletePage struct {
	Bill core.Bill
}

// handleCreateBill creates a bill from the month page form. The redirect
// follows the bill's due date, not the month the form was posted from.
func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	if _, err := ParseMonthPath(r); err != nil {
		s.writeError(w, r, err)
		return
	}
	form, err := ParseBillForm(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	bill, err := s.bills.CreateBill(r.Context(), form)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	redirectAfterPost(w, r, MonthURL(bill.DueDate.Year(), bill.DueDate.Month()))
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	bill, ok := s.loadBill(w, r)
	if !ok {
		return
	}
	years, err := s.bills.BillYears(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "edit.html", editPage{
		Bill:  bill,
		Form:  core.FormOf(bill),
		Years: years,
	})
}

// handleEditBill overwrites the bill in one step. An unknown id is a 404
// whatever the form holds.
func (s *Server) handleEditBill(w http.ResponseWriter, r *http.Request) {
	current, ok := s.loadBill(w, r)
	if !ok {
		return
	}
	form, err := ParseBillForm(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	bill, err := s.bills.UpdateBill(r.Context(), current.ID, form)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	redirectAfterPost(w, r, MonthURL(bill.DueDate.Year(), bill.DueDate.Month()))
}

// handleConfirmEdit is the two-step edit. The first POST validates the
// submitted values and shows them next to the stored ones; only a POST
// carrying confirm=yes writes, after validating again.
func (s *Server) handleConfirmEdit(w http.ResponseWriter, r *http.Request) {
	current, ok := s.loadBill(w, r)
	if !ok {
		return
	}
	form, err := ParseBillForm(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if !Confirmed(r) {
		proposed, err := form.Parse()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		proposed.ID = current.ID
		s.render(w, r, http.StatusOK, "confirm_edit.html", confirmEditPage{
			Current:  current,
			Proposed: proposed,
			Form:     core.FormOf(proposed),
		})
		return
	}

	bill, err := s.bills.UpdateBill(r.Context(), current.ID, form)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	redirectAfterPost(w, r, MonthURL(bill.DueDate.Year(), bill.DueDate.Month()))
}

func (s *Server) handleDeleteForm(w http.ResponseWriter, r *http.Request) {
	bill, ok := s.loadBill(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "delete.html", deletePage{Bill: bill})
}

func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	id, err := ParseBillID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.bills.DeleteBill(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	redirectAfterPost(w, r, "/")
}

// loadBill resolves {id} to a stored bill, writing the error response when
// it cannot.
func (s *Server) loadBill(w http.ResponseWriter, r *http.Request) (core.Bill, bool) {
	id, err := ParseBillID(r)
	if err != nil {
		s.writeError(w, r, err)
		return core.Bill{}, false
	}
	bill, err := s.bills.GetBill(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return core.Bill{}, false
	}
	return bill, true
}
