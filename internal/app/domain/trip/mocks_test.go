package trip

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/FACorreiaa/plangenie/internal/pkg/llm"
)

// MockCaller is a testify mock for the LLM collaborator.
type MockCaller struct {
	mock.Mock
}

func (m *MockCaller) Generate(ctx context.Context, role llm.Role, prompt string) (string, error) {
	args := m.Called(ctx, role, prompt)
	return args.String(0), args.Error(1)
}

// failingCaller makes every LLM call fail so the deterministic fallback
// tiers are exercised.
func failingCaller() *MockCaller {
	m := new(MockCaller)
	m.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return("", assertAnError)
	return m
}
