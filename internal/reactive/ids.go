package reactive

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator generates stream IDs used in logs.
// Implemented by UUIDv7Generator (production) and SequenceGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 stream IDs, so log lines
// for streams created later sort after earlier ones.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SequenceGenerator returns "<prefix>-1", "<prefix>-2", ... for
// deterministic IDs in tests and scenarios.
//
// Thread-safety: safe for concurrent use (atomic counter).
type SequenceGenerator struct {
	prefix string
	next   atomic.Int64
}

// NewSequenceGenerator creates a generator. An empty prefix means "stream".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "stream"
	}
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next ID.
func (g *SequenceGenerator) Generate() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.next.Add(1))
}
