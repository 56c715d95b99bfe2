// Package identity provides the current-user record, username rules, and
// credential derivation for outgoing requests.
package identity

import (
	"encoding/base64"
	"errors"
	"regexp"
)

var (
	ErrNoCurrentUser   = errors.New("no current user")
	ErrInvalidUsername = errors.New("invalid username")
)

// usernamePattern is the accepted account-name shape: 3-20 word characters.
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

// User is the authenticated account acting on behalf of all client calls.
// Exactly one User is persisted at a time (the "current user" slot).
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	AuthToken string `json:"auth_token"` // opaque Basic credential, base64(username:password)
}

// ValidUsername reports whether s is an acceptable account name.
func ValidUsername(s string) bool {
	return usernamePattern.MatchString(s)
}

// BasicToken derives the opaque credential stored alongside the user record
// and attached to every outgoing request as "Authorization: Basic <token>".
func BasicToken(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}
