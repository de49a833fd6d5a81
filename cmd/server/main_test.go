package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trip-expenses/internal/auth"
	"trip-expenses/internal/config"
	"trip-expenses/internal/handlers"
	"trip-expenses/internal/models"
	"trip-expenses/internal/receipts"
	"trip-expenses/internal/storage"
)

func TestSetupRouter(t *testing.T) {
	db, err := storage.NewDB(":memory:")
	require.NoError(t, err, "failed to create database")
	defer db.Close()

	if _, err := os.Stat("../../web/templates"); os.IsNotExist(err) {
		t.Skip("Template directory not found, skipping router test")
	}

	uploader, err := receipts.NewUploader(config.Storage{})
	require.NoError(t, err)
	h := handlers.NewHandlers(db, uploader, auth.NewSigner("secret", time.Hour), "../../web/templates", false)
	mux := setupRouter(h, "../../web/static", "secret", false)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		allowAlt   []int // Alternative acceptable status codes
	}{
		{
			name:       "Root redirects to login",
			method:     "GET",
			path:       "/",
			wantStatus: http.StatusFound,
		},
		{
			name:       "Login page renders",
			method:     "GET",
			path:       "/login",
			wantStatus: http.StatusOK,
		},
		{
			name:       "Static file access",
			method:     "GET",
			path:       "/static/style.css",
			wantStatus: http.StatusOK,
			allowAlt:   []int{http.StatusNotFound},
		},
		{
			name:       "Trips require auth",
			method:     "GET",
			path:       "/viagens",
			wantStatus: http.StatusFound,
		},
		{
			name:       "Admin trips require auth",
			method:     "GET",
			path:       "/admin/viagens",
			wantStatus: http.StatusFound,
		},
		{
			name:       "Health check",
			method:     "GET",
			path:       "/healthz",
			wantStatus: http.StatusOK,
		},
		{
			name:       "POST without form token is refused",
			method:     "POST",
			path:       "/login",
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if len(tt.allowAlt) > 0 {
				acceptableStatuses := append([]int{tt.wantStatus}, tt.allowAlt...)
				assert.Contains(t, acceptableStatuses, w.Code,
					"%s %s returned unexpected status", tt.method, tt.path)
			} else {
				assert.Equal(t, tt.wantStatus, w.Code,
					"%s %s returned unexpected status", tt.method, tt.path)
			}
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestEnsureAdmin(t *testing.T) {
	db, err := storage.NewDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	admin := config.Admin{Name: "Administrador", Email: "Admin@RBN.local", Password: "admin123"}
	require.NoError(t, ensureAdmin(context.Background(), db, admin))
	require.NoError(t, ensureAdmin(context.Background(), db, admin))

	count, err := db.UserCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	u, err := db.GetUserByEmail(context.Background(), "admin@rbn.local")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.True(t, auth.CheckPassword("admin123", u.PasswordHash))
}

var csrfInput = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

func TestLoginThroughCSRF(t *testing.T) {
	db, err := storage.NewDB(":memory:")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, ensureAdmin(context.Background(), db, config.Admin{
		Name: "Administrador", Email: "admin@rbn.local", Password: "s3cret",
	}))

	uploader, err := receipts.NewUploader(config.Storage{})
	require.NoError(t, err)
	h := handlers.NewHandlers(db, uploader, auth.NewSigner("secret", time.Hour), "../../web/templates", false)
	router := setupRouter(h, "../../web/static", "secret", false)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", http.NoBody))
	require.Equal(t, http.StatusOK, w.Code)
	m := csrfInput.FindStringSubmatch(w.Body.String())
	require.Len(t, m, 2, "login form must carry a csrf token")

	form := url.Values{"email": {"admin@rbn.local"}, "password": {"s3cret"}, "csrf_token": {m[1]}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == handlers.SessionCookieName {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.NotEmpty(t, session.Value)
}
