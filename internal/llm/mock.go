package llm

import (
	"context"
	"sync"
)

// MockClient is a test double for Client.
type MockClient struct {
	ProviderName string
	StreamFunc   func(ctx context.Context, req Request) (<-chan Delta, error)
}

func (m *MockClient) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

func (m *MockClient) StreamCompletion(ctx context.Context, req Request) (<-chan Delta, error) {
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, req)
	}
	return Play([]Delta{
		{Content: "mock "},
		{Content: "response"},
		{FinishReason: FinishReasonStop},
	}), nil
}

// Play returns a channel that replays the given deltas and closes.
func Play(deltas []Delta) <-chan Delta {
	ch := make(chan Delta, len(deltas))
	for _, d := range deltas {
		ch <- d
	}
	close(ch)
	return ch
}

// Script returns a mock that plays delta sequences in order, one per
// StreamCompletion call. The last sequence repeats if called again.
func Script(sequences ...[]Delta) *MockClient {
	var mu sync.Mutex
	call := 0
	return &MockClient{
		StreamFunc: func(ctx context.Context, req Request) (<-chan Delta, error) {
			mu.Lock()
			idx := call
			if idx >= len(sequences) {
				idx = len(sequences) - 1
			}
			call++
			mu.Unlock()
			return Play(sequences[idx]), nil
		},
	}
}
