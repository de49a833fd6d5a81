package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"trip-expenses/internal/models"
	"trip-expenses/internal/money"
	"trip-expenses/internal/receipts"
	"trip-expenses/internal/storage"
)

const (
	msgSelectTrip    = "Selecione uma viagem."
	msgAmount        = "Informe um valor maior que zero."
	msgAmountTooHigh = "Valor acima do limite permitido."
	msgFileTooLarge  = "Arquivo muito grande (máximo 10 MB)."
	msgUploadFailure = "Não foi possível enviar o comprovante. Tente novamente."
)

// ExpenseFormViewModel is the data passed to the expense form.
type ExpenseFormViewModel struct {
	Trips       []models.Trip
	TripID      int64
	Amount      string
	Description string
	Error       string
}

func (h *Handlers) renderExpenseForm(w http.ResponseWriter, r *http.Request, status int, vm ExpenseFormViewModel) {
	trips, err := h.db.ListTrips(r.Context())
	if err != nil {
		h.serverError(w, r, "list trips failed", err)
		return
	}
	vm.Trips = trips
	h.renderStatus(w, r, status, "expense_form.html", vm)
}

// NewExpenseForm renders the expense form, preselecting ?trip_id= when given.
func (h *Handlers) NewExpenseForm(w http.ResponseWriter, r *http.Request) {
	tripID, _ := strconv.ParseInt(r.URL.Query().Get("trip_id"), 10, 64)
	h.renderExpenseForm(w, r, http.StatusOK, ExpenseFormViewModel{TripID: tripID})
}

// CreateExpense validates and stores a new expense. The receipt, when
// present, is uploaded only once the rest of the form is valid.
func (h *Handlers) CreateExpense(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBody)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			h.renderExpenseForm(w, r, http.StatusRequestEntityTooLarge, ExpenseFormViewModel{Error: msgFileTooLarge})
			return
		case errors.Is(err, http.ErrNotMultipart):
			if err := r.ParseForm(); err != nil {
				h.renderExpenseForm(w, r, http.StatusBadRequest, ExpenseFormViewModel{Error: invalidData})
				return
			}
		default:
			h.renderExpenseForm(w, r, http.StatusBadRequest, ExpenseFormViewModel{Error: invalidData})
			return
		}
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	tripID, _ := strconv.ParseInt(r.FormValue("trip_id"), 10, 64)
	vm := ExpenseFormViewModel{
		TripID:      tripID,
		Amount:      strings.TrimSpace(r.FormValue("amount")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}

	if tripID <= 0 {
		vm.Error = msgSelectTrip
		h.renderExpenseForm(w, r, http.StatusUnprocessableEntity, vm)
		return
	}
	if _, err := h.db.GetTrip(r.Context(), tripID); errors.Is(err, storage.ErrNotFound) {
		vm.Error = msgSelectTrip
		h.renderExpenseForm(w, r, http.StatusUnprocessableEntity, vm)
		return
	} else if err != nil {
		h.serverError(w, r, "get trip failed", err)
		return
	}

	amount := money.Cents(money.ParseBRL(vm.Amount))
	switch {
	case !amount.IsPositive():
		vm.Error = msgAmount
	case amount.GreaterThan(money.MaxAmount):
		vm.Error = msgAmountTooHigh
	}
	if vm.Error != "" {
		h.renderExpenseForm(w, r, http.StatusUnprocessableEntity, vm)
		return
	}
	vm.Amount = money.FormatInput(amount)

	sess := GetSession(r)
	expense := &models.Expense{
		TripID:      tripID,
		UserID:      sess.UserID,
		Description: vm.Description,
		Amount:      amount,
	}

	if r.MultipartForm != nil {
		file, header, err := r.FormFile("receipt")
		switch {
		case err == nil:
			defer file.Close()
			if header.Size > MaxUploadSize {
				vm.Error = msgFileTooLarge
				h.renderExpenseForm(w, r, http.StatusRequestEntityTooLarge, vm)
				return
			}
			url, err := h.uploadReceipt(r, file, header, tripID, sess.UserID)
			if errors.Is(err, receipts.ErrNotConfigured) {
				h.serverError(w, r, "receipt upload misconfigured", err)
				return
			} else if err != nil {
				logrus.WithError(err).WithField("trip_id", tripID).Error("receipt upload failed")
				vm.Error = msgUploadFailure
				h.renderExpenseForm(w, r, http.StatusBadGateway, vm)
				return
			}
			expense.ReceiptURL = url
		case errors.Is(err, http.ErrMissingFile):
			// no receipt attached
		default:
			h.renderExpenseForm(w, r, http.StatusBadRequest, ExpenseFormViewModel{Error: invalidData})
			return
		}
	}

	if err := h.db.CreateExpense(r.Context(), expense); errors.Is(err, storage.ErrInvalidAmount) {
		vm.Error = msgAmount
		h.renderExpenseForm(w, r, http.StatusUnprocessableEntity, vm)
		return
	} else if err != nil {
		h.serverError(w, r, "create expense failed", err)
		return
	}
	h.redirectWithFlash(w, r, "/viagens", "Despesa registrada.")
}

func (h *Handlers) uploadReceipt(r *http.Request, file multipart.File, header *multipart.FileHeader, tripID, userID int64) (string, error) {
	if header.Size == 0 && header.Filename == "" {
		return "", nil
	}
	return h.uploader.Upload(r.Context(), receipts.Receipt{
		Body:        file,
		Size:        header.Size,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}, tripID, userID)
}

// UpdateExpenseStatus records a review decision and returns to the trip.
func (h *Handlers) UpdateExpenseStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Despesa não encontrada", http.StatusNotFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	status := models.ExpenseStatus(r.FormValue("status"))
	if !status.Valid() {
		http.Error(w, "Status inválido", http.StatusBadRequest)
		return
	}

	expense, err := h.db.GetExpense(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "Despesa não encontrada", http.StatusNotFound)
		return
	} else if err != nil {
		h.serverError(w, r, "get expense failed", err)
		return
	}
	if err := h.db.UpdateExpenseStatus(r.Context(), id, status); err != nil {
		h.serverError(w, r, "update expense status failed", err)
		return
	}
	logrus.WithFields(logrus.Fields{
		"expense_id": id,
		"status":     status,
		"reviewer":   GetSession(r).UserID,
	}).Info("expense reviewed")
	h.redirectWithFlash(w, r, "/viagens/"+strconv.FormatInt(expense.TripID, 10), "Status atualizado.")
}
