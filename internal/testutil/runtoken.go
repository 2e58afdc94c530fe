package testutil

// FixedRunGenerator returns the same run token every time.
//
// Scenarios set the token so journal records and golden traces are
// byte-identical across executions:
//
//	run_id: "scenario-run-0001"
//
// If token is empty, Generate() returns "test-run-default".
//
// Thread-safety: FixedRunGenerator is stateless and safe for concurrent use.
type FixedRunGenerator struct {
	token string
}

// NewFixedRunGenerator creates a fixed run token generator.
func NewFixedRunGenerator(token string) *FixedRunGenerator {
	if token == "" {
		token = "test-run-default"
	}
	return &FixedRunGenerator{token: token}
}

// Generate returns the fixed token. Implements engine.RunTokenGenerator.
func (g *FixedRunGenerator) Generate() string {
	return g.token
}
