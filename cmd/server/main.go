package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"trip-expenses/internal/auth"
	"trip-expenses/internal/config"
	"trip-expenses/internal/handlers"
	"trip-expenses/internal/receipts"
	"trip-expenses/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	db, err := storage.NewDB(cfg.DatabaseURL)
	if err != nil {
		logrus.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := ensureAdmin(context.Background(), db, cfg.Admin); err != nil {
		logrus.Fatalf("Failed to provision admin: %v", err)
	}

	uploader, err := receipts.NewUploader(cfg.Storage)
	if err != nil {
		logrus.Fatalf("Failed to configure receipt storage: %v", err)
	}
	if !cfg.Storage.Configured() {
		logrus.Warn("Receipt storage is not configured; uploads will fail")
	}

	sessions := auth.NewSigner(cfg.SessionSecret, cfg.SessionTTL)
	h := handlers.NewHandlers(db, uploader, sessions, cfg.TemplateDir, cfg.SecureCookie)
	router := setupRouter(h, cfg.StaticDir, cfg.SessionSecret, cfg.SecureCookie)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.Infof("Server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("Shutdown error: %v", err)
	}
}

// ensureAdmin provisions the bootstrap administrator when it does not exist.
func ensureAdmin(ctx context.Context, db *storage.DB, admin config.Admin) error {
	created, err := db.EnsureAdmin(ctx, admin.Name, admin.Email, func() (string, error) {
		return auth.HashPassword(admin.Password)
	})
	if err != nil {
		return err
	}
	if created {
		logrus.WithField("email", storage.NormalizeEmail(admin.Email)).Info("Created bootstrap admin")
		if admin.Password == config.DefaultAdminPassword {
			logrus.Warn("Bootstrap admin uses the default password; change it before production use")
		}
	}
	return nil
}

func setupRouter(h *handlers.Handlers, staticDir, secret string, secureCookie bool) http.Handler {
	mux := h.Routes()
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	protected := handlers.CSRF(secret, secureCookie)(mux)

	// Uploads are capped before the CSRF check parses the form.
	root := http.NewServeMux()
	root.Handle("POST /despesas/nova", handlers.LimitBody(handlers.MaxRequestBody)(protected))
	root.Handle("/", protected)
	return handlers.RequestLogger(root)
}
