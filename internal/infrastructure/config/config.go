package config

import (
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Database string `yaml:"database"`
}

type StorageConfig struct {
	// Root holds the upload tree: Root/pdfs and Root/qrcodes.
	Root string `yaml:"root"`
}

type AuthConfig struct {
	AdminUsername     string `yaml:"admin_username"`
	AdminPasswordHash string `yaml:"admin_password_hash"`
	TOTPSecret        string `yaml:"totp_secret"`
	RequireAuth       *bool  `yaml:"require_auth"`
}

type ApplicationConfig struct {
	Version string `yaml:"version"`
	// BaseURL overrides the request-derived origin in generated links.
	BaseURL string `yaml:"base_url"`
}

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Storage     StorageConfig     `yaml:"storage"`
	Auth        AuthConfig        `yaml:"auth"`
	Application ApplicationConfig `yaml:"application"`
}

// PDFDir returns the directory holding uploaded PDF binaries.
func (c *Config) PDFDir() string { return filepath.Join(c.Storage.Root, "pdfs") }

// QRDir returns the directory holding generated QR images.
func (c *Config) QRDir() string { return filepath.Join(c.Storage.Root, "qrcodes") }

// AuthRequired reports whether administrative routes are session-gated.
func (c *Config) AuthRequired() bool {
	if c.Auth.RequireAuth == nil {
		return true
	}
	return *c.Auth.RequireAuth
}

// Default returns a config populated with sensible defaults matching current behavior
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 3001,
		},
		Database: DatabaseConfig{
			Driver:   "sqlite",
			Database: "data/pdfqrhub.db",
		},
		Storage: StorageConfig{
			Root: "uploads",
		},
		Auth: AuthConfig{
			AdminUsername: "admin",
		},
		Application: ApplicationConfig{
			Version: "v1.0.0",
		},
	}
}

// Load attempts to read configs/app.yaml; if not present returns defaults.
// Environment variables override file values.
func Load() *Config {
	cfg := Default()
	path := filepath.Join("configs", "app.yaml")
	// A missing or unreadable config file is not fatal: defaults plus env
	// overrides keep the server bootable.
	if b, err := os.ReadFile(path); err == nil {
		_ = yaml.Unmarshal(b, cfg)
	}
	return applyEnv(cfg)
}

// applyEnv layers environment overrides (non-fatal) on top of cfg.
func applyEnv(cfg *Config) *Config {
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("PORT"); v != "" { // backward compatible env
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.Database.Database = v
	}
	if v := os.Getenv("STORAGE_DIR"); v != "" {
		cfg.Storage.Root = v
	}
	if v := os.Getenv("BASE_URL"); v != "" {
		cfg.Application.BaseURL = v
	}
	if v := os.Getenv("ADMIN_USERNAME"); v != "" {
		cfg.Auth.AdminUsername = v
	}
	if v := os.Getenv("ADMIN_PASSWORD_HASH"); v != "" {
		cfg.Auth.AdminPasswordHash = v
	}
	// A plaintext ADMIN_PASSWORD is accepted for compatibility and hashed
	// immediately; the plaintext is never stored or compared directly.
	if v := os.Getenv("ADMIN_PASSWORD"); v != "" && cfg.Auth.AdminPasswordHash == "" {
		if h, err := bcrypt.GenerateFromPassword([]byte(v), bcrypt.DefaultCost); err == nil {
			cfg.Auth.AdminPasswordHash = string(h)
		}
	}
	if v := os.Getenv("ADMIN_TOTP_SECRET"); v != "" {
		cfg.Auth.TOTPSecret = v
	}
	if v := os.Getenv("REQUIRE_AUTH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Auth.RequireAuth = &b
		}
	}
	return cfg
}
