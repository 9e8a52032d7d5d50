// Package identity derives canonical parent document keys from email
// addresses. Every caller (resolver, registration, parent migration) must go
// through NormalizeEmail so that keys stay byte-identical.
package identity

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ErrEmptyEmail is returned for input that is blank after trimming.
var ErrEmptyEmail = errors.New("identity: empty email")

// CanonicalEmail trims and lower-cases an address.
func CanonicalEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeEmail maps an email to a URL-safe document key: the base64 of the
// canonical address with '+' -> '-', '/' -> '_' and no '=' padding.
func NormalizeEmail(email string) (string, error) {
	s := CanonicalEmail(email)
	if s == "" {
		return "", ErrEmptyEmail
	}
	return base64.RawURLEncoding.EncodeToString([]byte(s)), nil
}
