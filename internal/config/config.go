package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v8"
	"github.com/joho/godotenv"
)

// DefaultAdminPassword is the bootstrap password used when ADMIN_PASSWORD is unset.
// It must be rotated before production use.
const DefaultAdminPassword = "admin123"

type Config struct {
	DatabaseURL   string        `env:"DATABASE_URL,required,notEmpty"`
	SessionSecret string        `env:"SESSION_SECRET,required,notEmpty"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"12h"`
	SecureCookie  bool          `env:"SECURE_COOKIE" envDefault:"false"`
	Port          string        `env:"PORT" envDefault:"8000"`
	TemplateDir   string        `env:"TEMPLATE_DIR" envDefault:"web/templates"`
	StaticDir     string        `env:"STATIC_DIR" envDefault:"web/static"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
	Storage       Storage
	Admin         Admin
}

// Storage configures the S3-compatible bucket receipts are uploaded to.
type Storage struct {
	Endpoint  string `env:"STORAGE_ENDPOINT"`
	AccessKey string `env:"STORAGE_ACCESS_KEY"`
	SecretKey string `env:"STORAGE_SECRET_KEY"`
	Bucket    string `env:"STORAGE_BUCKET" envDefault:"comprovantes"`
	Region    string `env:"STORAGE_REGION"`
	UseSSL    bool   `env:"STORAGE_USE_SSL" envDefault:"true"`
	PublicURL string `env:"STORAGE_PUBLIC_URL"`
}

// Configured reports whether credentials and endpoint are present.
func (s Storage) Configured() bool {
	return s.Endpoint != "" && s.AccessKey != "" && s.SecretKey != ""
}

// Admin describes the account provisioned at startup when missing.
type Admin struct {
	Name     string `env:"ADMIN_NAME" envDefault:"Administrador"`
	Email    string `env:"ADMIN_EMAIL" envDefault:"admin@rbn.local"`
	Password string `env:"ADMIN_PASSWORD" envDefault:"admin123"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
