package testutil

// FixedIDGenerator returns the same stream ID every time, so log output
// of a scenario is byte-identical across runs.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a generator. If id is empty, Generate returns
// "test-stream".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-stream"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed ID. Implements reactive.IDGenerator.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}
