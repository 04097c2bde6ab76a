// Package token issues confirmation tokens.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"inkwell/internal/subscription/models"
)

// tokenBytes yields 43 URL-safe characters, 256 bits of search space.
const tokenBytes = 32

// Generate creates a cryptographically secure confirmation token in a
// URL-safe alphabet. Collisions within a process lifetime are negligible at
// this length.
func Generate() (models.ConfirmationToken, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate confirmation token: %w", err)
	}
	return models.ConfirmationToken(base64.RawURLEncoding.EncodeToString(buf)), nil
}
