package handlers

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"trip-expenses/internal/auth"
	"trip-expenses/internal/storage"
)

// invalidCredentials never says which field was wrong.
const invalidCredentials = "Credenciais inválidas."

// LoginViewModel holds data for the login page.
type LoginViewModel struct {
	Email string
	Error string
}

// Home renders the welcome page.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "home.html", nil)
}

// LoginForm renders the login page.
func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	// If already logged in, go home
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if _, err := h.sessions.Verify(cookie.Value); err == nil {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
	}
	h.render(w, r, "login.html", LoginViewModel{})
}

// Login handles the login form submission.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, "login.html", LoginViewModel{Error: invalidCredentials})
		return
	}

	email := storage.NormalizeEmail(r.FormValue("email"))
	password := r.FormValue("password")
	fail := LoginViewModel{Email: email, Error: invalidCredentials}

	if email == "" || password == "" {
		h.render(w, r, "login.html", fail)
		return
	}

	user, err := h.db.GetUserByEmail(r.Context(), email)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		auth.SpendPasswordCheck(password)
		h.render(w, r, "login.html", fail)
		return
	case err != nil:
		h.serverError(w, r, "login lookup failed", err)
		return
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		h.render(w, r, "login.html", fail)
		return
	}

	token, _, err := h.sessions.Issue(user)
	if err != nil {
		h.serverError(w, r, "session issue failed", err)
		return
	}
	h.setSessionCookie(w, token)
	logrus.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("login")

	http.Redirect(w, r, "/", http.StatusFound)
}

// Logout clears the session and returns to the login page.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}
