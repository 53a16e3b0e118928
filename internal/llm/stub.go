package llm

import (
	"context"
	"sync"
)

// StubGenerator returns a fixed response and records every call. It backs tests and
// offline runs (ai.provider: stub).
type StubGenerator struct {
	mu       sync.Mutex
	response string
	err      error
	calls    []StubCall
}

// StubCall is one recorded Generate invocation
type StubCall struct {
	SystemPrompt string
	UserPrompt   string
	Options      GenerationOptions
}

// NewStubGenerator creates a stub that answers with response, or a canned
// placeholder when response is empty.
func NewStubGenerator(response string) (*StubGenerator, error) {
	if response == "" {
		response = "This is a stubbed rewrite of the original article."
	}
	return &StubGenerator{response: response}, nil
}

// Name identifies the stub
func (s *StubGenerator) Name() string {
	return ProviderStub
}

// SetError makes subsequent calls fail with err
func (s *StubGenerator) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Generate records the call and returns the configured response
func (s *StubGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string, opts GenerationOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, StubCall{SystemPrompt: systemPrompt, UserPrompt: userPrompt, Options: opts})
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

// Calls returns the recorded invocations
func (s *StubGenerator) Calls() []StubCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StubCall(nil), s.calls...)
}
