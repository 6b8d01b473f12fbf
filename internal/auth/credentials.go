package auth

import (
	"crypto/subtle"
	"errors"

	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"pdf-qr-hub/internal/infrastructure/config"
)

// LoginRequest represents a login payload
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	OTP      string `json:"otp,omitempty"`
}

var (
	ErrMissingFields      = errors.New("username and password are required")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidOTP         = errors.New("invalid otp code")
)

// Authenticator validates a submitted credential pair against the configured
// admin credentials and mints sessions on success.
type Authenticator struct {
	cfg      *config.Config
	Sessions SessionStore
}

func NewAuthenticator(cfg *config.Config, store SessionStore) *Authenticator {
	return &Authenticator{cfg: cfg, Sessions: store}
}

// Login checks the credential pair (plus a TOTP code when a secret is
// configured) and returns a new session.
func (a *Authenticator) Login(req *LoginRequest) (*Session, error) {
	if req.Username == "" || req.Password == "" {
		return nil, ErrMissingFields
	}

	if !checkUsername(a.cfg.Auth.AdminUsername, req.Username) ||
		!checkPassword(a.cfg.Auth.AdminPasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	if a.cfg.Auth.TOTPSecret != "" {
		if req.OTP == "" || !totp.Validate(req.OTP, a.cfg.Auth.TOTPSecret) {
			return nil, ErrInvalidOTP
		}
	}

	return a.Sessions.Create(req.Username)
}

// Logout invalidates the session for token. Unknown tokens are a no-op.
func (a *Authenticator) Logout(token string) {
	a.Sessions.Delete(token)
}

// Check returns the active session for token, or nil.
func (a *Authenticator) Check(token string) *Session {
	return a.Sessions.Get(token)
}

func checkUsername(configured, submitted string) bool {
	return subtle.ConstantTimeCompare([]byte(configured), []byte(submitted)) == 1
}

func checkPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// HashPassword hashes a plaintext password for configuration seeding.
func HashPassword(password string) string {
	bytes, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes)
}
