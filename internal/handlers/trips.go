package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"trip-expenses/internal/auth"
	"trip-expenses/internal/models"
	"trip-expenses/internal/report"
	"trip-expenses/internal/storage"
)

const dateLayout = "2006-01-02"

type tripForm struct {
	Title     string `validate:"required"`
	StartDate string `validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `validate:"omitempty,datetime=2006-01-02"`
}

var tripFormMessages = map[string]string{
	"Title":     "Informe o título da viagem.",
	"StartDate": "Data de início inválida.",
	"EndDate":   "Data de término inválida.",
}

// TripFormViewModel is the data passed to the new trip form.
type TripFormViewModel struct {
	Form  tripForm
	Error string
}

// TripListViewModel is the data passed to the trip list views.
type TripListViewModel struct {
	Trips []models.TripSummary
	Total decimal.Decimal
}

// TripDetailViewModel is the data passed to the trip detail view.
type TripDetailViewModel struct {
	Trip       *models.Trip
	Expenses   []models.Expense
	Total      decimal.Decimal
	UserTotals []models.UserTotal
	Statuses   []models.ExpenseStatus
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return nil
	}
	return &t
}

func sumTotals(trips []models.TripSummary) decimal.Decimal {
	total := decimal.Zero
	for _, t := range trips {
		total = total.Add(t.Total)
	}
	return total
}

// AdminTrips lists every trip with totals over all users.
func (h *Handlers) AdminTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := h.db.ListTripSummaries(r.Context(), 0)
	if err != nil {
		h.serverError(w, r, "list trip summaries failed", err)
		return
	}
	h.render(w, r, "admin_trips.html", TripListViewModel{Trips: trips, Total: sumTotals(trips)})
}

// NewTripForm renders the trip creation form.
func (h *Handlers) NewTripForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "trip_form.html", TripFormViewModel{})
}

// CreateTrip handles the trip creation form. Dates are optional and their
// order is not checked.
func (h *Handlers) CreateTrip(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderStatus(w, r, http.StatusBadRequest, "trip_form.html", TripFormViewModel{Error: invalidData})
		return
	}
	form := tripForm{
		Title:     strings.TrimSpace(r.FormValue("title")),
		StartDate: strings.TrimSpace(r.FormValue("start_date")),
		EndDate:   strings.TrimSpace(r.FormValue("end_date")),
	}
	if msg := h.validationMessage(form, tripFormMessages); msg != "" {
		h.renderStatus(w, r, http.StatusUnprocessableEntity, "trip_form.html", TripFormViewModel{Form: form, Error: msg})
		return
	}

	trip := &models.Trip{
		Title:     form.Title,
		StartDate: parseDate(form.StartDate),
		EndDate:   parseDate(form.EndDate),
		CreatedBy: GetSession(r).UserID,
	}
	if err := h.db.CreateTrip(r.Context(), trip); err != nil {
		h.serverError(w, r, "create trip failed", err)
		return
	}
	h.redirectWithFlash(w, r, "/admin/viagens", "Viagem criada.")
}

// Trips lists every trip so expenses can be filed against it. Totals only
// cover the viewer's own expenses unless the viewer may see everyone's.
func (h *Handlers) Trips(w http.ResponseWriter, r *http.Request) {
	trips, err := h.db.ListTripSummaries(r.Context(), scopeFor(GetSession(r)))
	if err != nil {
		h.serverError(w, r, "list trip summaries failed", err)
		return
	}
	h.render(w, r, "trips.html", TripListViewModel{Trips: trips, Total: sumTotals(trips)})
}

// TripDetail shows a trip with its expenses and total.
func (h *Handlers) TripDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Viagem não encontrada", http.StatusNotFound)
		return
	}
	trip, err := h.db.GetTrip(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "Viagem não encontrada", http.StatusNotFound)
		return
	} else if err != nil {
		h.serverError(w, r, "get trip failed", err)
		return
	}

	sess := GetSession(r)
	scope := scopeFor(sess)
	vm := TripDetailViewModel{Trip: trip}
	if vm.Expenses, err = h.db.ListTripExpenses(r.Context(), id, scope); err != nil {
		h.serverError(w, r, "list trip expenses failed", err)
		return
	}
	if vm.Total, err = h.db.TripTotal(r.Context(), id, scope); err != nil {
		h.serverError(w, r, "trip total failed", err)
		return
	}
	if sess.Can(auth.ViewAllExpenses) {
		if vm.UserTotals, err = h.db.UserTotals(r.Context(), id); err != nil {
			h.serverError(w, r, "user totals failed", err)
			return
		}
	}
	if sess.Can(auth.ReviewExpenses) {
		vm.Statuses = []models.ExpenseStatus{models.StatusPending, models.StatusApproved, models.StatusRejected}
	}
	h.render(w, r, "trip_detail.html", vm)
}

// TripReport streams a PDF with every expense of a trip.
func (h *Handlers) TripReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Viagem não encontrada", http.StatusNotFound)
		return
	}
	trip, err := h.db.GetTrip(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "Viagem não encontrada", http.StatusNotFound)
		return
	} else if err != nil {
		h.serverError(w, r, "get trip failed", err)
		return
	}

	data := report.Trip{Trip: *trip, GeneratedAt: h.now()}
	if data.Expenses, err = h.db.ListTripExpenses(r.Context(), id, 0); err != nil {
		h.serverError(w, r, "list trip expenses failed", err)
		return
	}
	if data.UserTotals, err = h.db.UserTotals(r.Context(), id); err != nil {
		h.serverError(w, r, "user totals failed", err)
		return
	}
	if data.Total, err = h.db.TripTotal(r.Context(), id, 0); err != nil {
		h.serverError(w, r, "trip total failed", err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteTripPDF(&buf, data); err != nil {
		h.serverError(w, r, "render trip report failed", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="viagem-%d.pdf"`, id))
	_, _ = buf.WriteTo(w)
}
