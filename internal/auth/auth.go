// Package auth provides token generation and verification for interviewers.
package auth

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// users is the fixed interviewer account table. The only place accounts
// are defined.
var users = map[string]string{
	"hr1":   "123",
	"hr2":   "456",
	"admin": "000",
}

// Authenticate checks a username/password pair and returns a token on success.
func Authenticate(username, password string) (string, bool) {
	pw, ok := users[username]
	if !ok || pw != password {
		return "", false
	}
	return GenerateToken(username), true
}

// GenerateToken issues an opaque bearer token for the given username.
func GenerateToken(username string) string {
	payload := fmt.Sprintf("%s:%d", username, time.Now().Unix())
	return base64.StdEncoding.EncodeToString([]byte(payload))
}

// VerifyToken decodes a token and returns the owning username.
// Returns false for malformed tokens or unknown users.
func VerifyToken(token string) (string, bool) {
	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", false
	}
	username, _, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return "", false
	}
	if _, known := users[username]; !known {
		return "", false
	}
	return username, true
}
