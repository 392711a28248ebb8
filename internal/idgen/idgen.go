// Package idgen generates the random identifiers handed to browser sessions.
package idgen

import (
	"fmt"
	"strings"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// SessionPrefix starts every session id.
const SessionPrefix = "sess-"

// alphabet is URL- and cookie-safe.
const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// SessionLength is the number of random characters after the prefix.
const SessionLength = 24

// Session returns a new session id.
func Session() (string, error) {
	id, err := nanoid.Generate(alphabet, SessionLength)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return SessionPrefix + id, nil
}

// ValidSession reports whether id has the shape Session produces. Cookies
// that fail this check are replaced instead of looked up.
func ValidSession(id string) bool {
	rest, ok := strings.CutPrefix(id, SessionPrefix)
	if !ok || len(rest) != SessionLength {
		return false
	}
	for _, c := range rest {
		if !strings.ContainsRune(alphabet, c) {
			return false
		}
	}
	return true
}
