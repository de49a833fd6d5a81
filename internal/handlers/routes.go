package handlers

import (
	"net/http"

	"trip-expenses/internal/auth"
)

// Routes registers every application route on a new mux.
func (h *Handlers) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /login", h.LoginForm)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("GET /healthz", h.Health)

	// Any authenticated user
	mux.Handle("GET /{$}", h.RequireAuth(http.HandlerFunc(h.Home)))
	mux.Handle("GET /logout", h.RequireAuth(http.HandlerFunc(h.Logout)))
	mux.Handle("GET /viagens", h.RequireAuth(http.HandlerFunc(h.Trips)))
	mux.Handle("GET /viagens/{id}", h.RequireAuth(http.HandlerFunc(h.TripDetail)))
	mux.Handle("GET /despesas/nova", h.Require(auth.SubmitExpenses, http.HandlerFunc(h.NewExpenseForm)))
	mux.Handle("POST /despesas/nova", h.Require(auth.SubmitExpenses, http.HandlerFunc(h.CreateExpense)))

	// Administration
	mux.Handle("GET /admin/viagens", h.Require(auth.ManageTrips, http.HandlerFunc(h.AdminTrips)))
	mux.Handle("GET /admin/viagens/nova", h.Require(auth.ManageTrips, http.HandlerFunc(h.NewTripForm)))
	mux.Handle("POST /admin/viagens/nova", h.Require(auth.ManageTrips, http.HandlerFunc(h.CreateTrip)))
	mux.Handle("GET /admin/viagens/{id}/relatorio.pdf", h.Require(auth.ManageTrips, http.HandlerFunc(h.TripReport)))
	mux.Handle("POST /admin/despesas/{id}/status", h.Require(auth.ReviewExpenses, http.HandlerFunc(h.UpdateExpenseStatus)))
	mux.Handle("GET /admin/usuarios/novo", h.Require(auth.ManageUsers, http.HandlerFunc(h.NewUserForm)))
	mux.Handle("POST /admin/usuarios/novo", h.Require(auth.ManageUsers, http.HandlerFunc(h.CreateUser)))

	return mux
}
