package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"trip-expenses/internal/auth"
	"trip-expenses/internal/models"
	"trip-expenses/internal/storage"
)

const msgDuplicateEmail = "E-mail já cadastrado."

type userForm struct {
	Name     string `validate:"required"`
	Email    string `validate:"required"`
	Password string `validate:"required"`
	Role     models.Role
}

var userFormMessages = map[string]string{
	"Name":     "Informe o nome.",
	"Email":    "Informe o e-mail.",
	"Password": "Informe a senha.",
}

// UserFormViewModel is the data passed to the new user form.
type UserFormViewModel struct {
	Form  userForm
	Error string
}

// NewUserForm renders the user creation form.
func (h *Handlers) NewUserForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "user_form.html", UserFormViewModel{Form: userForm{Role: models.RoleUser}})
}

// CreateUser handles the user creation form.
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderStatus(w, r, http.StatusBadRequest, "user_form.html", UserFormViewModel{Error: invalidData})
		return
	}
	form := userForm{
		Name:     strings.TrimSpace(r.FormValue("name")),
		Email:    storage.NormalizeEmail(r.FormValue("email")),
		Password: r.FormValue("password"),
		Role:     models.ParseRole(r.FormValue("role")),
	}
	// The password is never echoed back into the form.
	failed := func(status int, msg string) {
		echo := form
		echo.Password = ""
		h.renderStatus(w, r, status, "user_form.html", UserFormViewModel{Form: echo, Error: msg})
	}

	if msg := h.validationMessage(form, userFormMessages); msg != "" {
		failed(http.StatusUnprocessableEntity, msg)
		return
	}

	hash, err := auth.HashPassword(form.Password)
	if err != nil {
		h.serverError(w, r, "hash password failed", err)
		return
	}
	user, err := h.db.CreateUser(r.Context(), form.Name, form.Email, form.Role, hash)
	if errors.Is(err, storage.ErrDuplicateEmail) {
		failed(http.StatusUnprocessableEntity, msgDuplicateEmail)
		return
	} else if err != nil {
		h.serverError(w, r, "create user failed", err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    user.ID,
		"role":       user.Role,
		"created_by": GetSession(r).UserID,
	}).Info("user created")
	h.redirectWithFlash(w, r, "/admin/viagens", "Usuário criado.")
}
