package handlers

import (
	"bytes"
	"context"
	"html/template"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/csrf"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"trip-expenses/internal/auth"
	"trip-expenses/internal/models"
	"trip-expenses/internal/money"
	"trip-expenses/internal/receipts"
)

// Context key type to avoid collisions.
type contextKey string

const (
	// SessionContextKey is the context key for the authenticated session.
	SessionContextKey contextKey = "session"
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"
	// FlashCookieName carries a one-shot message across a redirect.
	FlashCookieName = "flash"
	// MaxUploadSize bounds receipt uploads.
	MaxUploadSize = 10 << 20
	// MaxRequestBody bounds a whole expense submission: the receipt plus the
	// other form fields and multipart framing.
	MaxRequestBody = MaxUploadSize + 64<<10
)

// Store is the persistence the handlers depend on.
type Store interface {
	Ping(ctx context.Context) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, name, email string, role models.Role, passwordHash string) (*models.User, error)
	CreateTrip(ctx context.Context, t *models.Trip) error
	GetTrip(ctx context.Context, id int64) (*models.Trip, error)
	ListTrips(ctx context.Context) ([]models.Trip, error)
	ListTripSummaries(ctx context.Context, scopeUserID int64) ([]models.TripSummary, error)
	TripTotal(ctx context.Context, tripID, scopeUserID int64) (decimal.Decimal, error)
	UserTotals(ctx context.Context, tripID int64) ([]models.UserTotal, error)
	ListTripExpenses(ctx context.Context, tripID, scopeUserID int64) ([]models.Expense, error)
	CreateExpense(ctx context.Context, e *models.Expense) error
	GetExpense(ctx context.Context, id int64) (*models.Expense, error)
	UpdateExpenseStatus(ctx context.Context, id int64, status models.ExpenseStatus) error
}

// ReceiptUploader stores receipt files and returns their public URL.
type ReceiptUploader interface {
	Upload(ctx context.Context, r receipts.Receipt, tripID, userID int64) (string, error)
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db           Store
	uploader     ReceiptUploader
	sessions     *auth.Signer
	validate     *validator.Validate
	templateDir  string
	secureCookie bool
	now          func() time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db Store, uploader ReceiptUploader, sessions *auth.Signer, templateDir string, secureCookie bool) *Handlers {
	return &Handlers{
		db:           db,
		uploader:     uploader,
		sessions:     sessions,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		templateDir:  templateDir,
		secureCookie: secureCookie,
		now:          time.Now,
	}
}

// GetSession retrieves the authenticated session from request context.
func GetSession(r *http.Request) *auth.Session {
	if sess, ok := r.Context().Value(SessionContextKey).(*auth.Session); ok {
		return sess
	}
	return nil
}

// nobody is the Authorizer of anonymous requests.
type nobody struct{}

func (nobody) Can(auth.Permission) bool { return false }

// authorizer returns what permission checks for r run against.
func authorizer(r *http.Request) auth.Authorizer {
	if sess := GetSession(r); sess != nil {
		return sess
	}
	return nobody{}
}

// scopeFor returns the user id aggregates are restricted to, or zero when
// the session may see every user's expenses.
func scopeFor(sess *auth.Session) int64 {
	if sess.Can(auth.ViewAllExpenses) {
		return 0
	}
	return sess.UserID
}

// capabilities exposes the session's permissions to templates.
type capabilities struct {
	ManageTrips     bool
	ManageUsers     bool
	ReviewExpenses  bool
	ViewAllExpenses bool
}

func capabilitiesOf(a auth.Authorizer) capabilities {
	return capabilities{
		ManageTrips:     a.Can(auth.ManageTrips),
		ManageUsers:     a.Can(auth.ManageUsers),
		ReviewExpenses:  a.Can(auth.ReviewExpenses),
		ViewAllExpenses: a.Can(auth.ViewAllExpenses),
	}
}

// viewData is what every template receives.
type viewData struct {
	Session *auth.Session
	Can     capabilities
	Flash   string
	View    any
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("02/01/2006")
}

// formatPeriod renders a trip's dates; it is empty when neither is set.
func formatPeriod(start, end *time.Time) string {
	switch {
	case start == nil && end == nil:
		return ""
	case end == nil:
		return "a partir de " + formatDate(start)
	case start == nil:
		return "até " + formatDate(end)
	}
	return formatDate(start) + " a " + formatDate(end)
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, viewName string, data any) {
	h.renderStatus(w, r, http.StatusOK, viewName, data)
}

func (h *Handlers) renderStatus(w http.ResponseWriter, r *http.Request, status int, viewName string, data any) {
	sess := GetSession(r)
	funcs := template.FuncMap{
		"money":     money.Format,
		"date":      formatDate,
		"period":    formatPeriod,
		"csrfField": func() template.HTML { return csrf.TemplateField(r) },
	}
	tmpl, err := template.New("base.html").Funcs(funcs).ParseFiles(
		filepath.Join(h.templateDir, "base.html"),
		filepath.Join(h.templateDir, viewName),
	)
	if err != nil {
		logrus.WithError(err).WithField("view", viewName).Error("template parse failed")
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	target := "base.html"
	if r.Header.Get("HX-Request") == "true" {
		target = "content"
	}

	var buf bytes.Buffer
	vd := viewData{Session: sess, Can: capabilitiesOf(authorizer(r)), Flash: h.popFlash(w, r), View: data}
	if err := tmpl.ExecuteTemplate(&buf, target, vd); err != nil {
		logrus.WithError(err).WithField("view", viewName).Error("template execution failed")
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handlers) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logrus.WithError(err).WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}).Error(msg)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

func (h *Handlers) setFlash(w http.ResponseWriter, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    url.QueryEscape(msg),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) popFlash(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(FlashCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	msg, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return ""
	}
	return msg
}

func (h *Handlers) redirectWithFlash(w http.ResponseWriter, r *http.Request, path, msg string) {
	h.setFlash(w, msg)
	http.Redirect(w, r, path, http.StatusFound)
}

// Health reports whether the database answers.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		logrus.WithError(err).Warn("health check failed")
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	_, _ = w.Write([]byte("ok"))
}
