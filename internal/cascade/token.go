package cascade

import "github.com/google/uuid"

// TokenGenerator mints one token per outermost cascade. Implemented by
// UUIDv7Generator (production) and testutil.SequenceGenerator (tests).
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 cascade tokens, so that a
// journal listing cascades by token also lists them by creation time.
type UUIDv7Generator struct{}

// Generate returns a hyphenated UUIDv7.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
