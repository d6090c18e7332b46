// Package auth guards the admin surface (tenant management, model
// availability overrides) with basic auth against a bcrypt credential.
// Tenant-facing endpoints authenticate by API key instead, in the api layer.
package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Admin is the single operator credential, loaded from configuration.
// PasswordHash is a bcrypt hash, never the plaintext.
type Admin struct {
	Username     string
	PasswordHash string
}

// HashPassword produces the stored form for an admin password. Used by the
// provisioning tooling, not at request time.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Authenticate checks a username/password pair against the credential.
func (a Admin) Authenticate(username, password string) error {
	if a.Username == "" || a.PasswordHash == "" {
		return ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(username), []byte(a.Username)) != 1 {
		// Burn a comparison anyway so username mismatches cost the same.
		bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password))
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Middleware wraps admin handlers with basic auth.
func (a Admin) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok || a.Authenticate(username, password) != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="Router Admin"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
