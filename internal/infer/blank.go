package infer

import (
	"strings"

	"github.com/google/uuid"
)

// BlankNodeGenerator mints labels for the fresh blank nodes of rule
// conclusions. Labels must be unique across one store.
type BlankNodeGenerator interface {
	Generate() string
}

// UUIDv7Generator mints time-sortable blank node labels from UUIDv7.
//
// Labels have the form "b" followed by 32 hex digits. Safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new label.
//
// Panics if UUID generation fails (crypto/rand exhausted).
func (UUIDv7Generator) Generate() string {
	return "b" + strings.ReplaceAll(uuid.Must(uuid.NewV7()).String(), "-", "")
}
