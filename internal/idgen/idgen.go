// Package idgen generates record IDs in the backend's format: 15 random
// lowercase alphanumerics.
package idgen

import (
	"fmt"

	"github.com/google/uuid"
	nanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet is the character set of a record ID.
const Alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Length is the size of a record ID.
const Length = 15

// New returns a fresh record ID.
func New() (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return id, nil
}

// namespace scopes derived IDs to folio.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/pders01/folio"))

// Derive returns a stable record ID for seed, so importing the same source
// twice updates records instead of duplicating them.
func Derive(seed string) string {
	sum := uuid.NewSHA1(namespace, []byte(seed))
	id := make([]byte, Length)
	for i := range id {
		id[i] = Alphabet[int(sum[i])%len(Alphabet)]
	}
	return string(id)
}

// Valid reports whether id has the record ID shape.
func Valid(id string) bool {
	if len(id) != Length {
		return false
	}
	for _, r := range id {
		if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
