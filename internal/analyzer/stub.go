package analyzer

import "context"

// Stub is a deterministic Client for tests and provider-less deployments.
type Stub struct {
	Verdict *Verdict
	Err     error

	// Calls counts AnalyzeAccessibility invocations.
	Calls int
}

// AnalyzeAccessibility returns the configured verdict or error.
func (s *Stub) AnalyzeAccessibility(ctx context.Context, input Input) (*Verdict, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_ = input
	s.Calls++
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Verdict != nil {
		v := *s.Verdict
		return &v, nil
	}
	reason := "stub verdict"
	accessible := true
	return &Verdict{Accessible: &accessible, Reason: reason, ModelVersion: "stub"}, nil
}

var _ Client = (*Stub)(nil)
