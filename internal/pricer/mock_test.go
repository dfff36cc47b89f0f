package pricer

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/deal-scout/pkg/anthropic"
	"github.com/sells-group/deal-scout/pkg/vectorstore"
)

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

type mockVectorStore struct {
	mock.Mock
}

func (m *mockVectorStore) Query(ctx context.Context, text string, k int) ([]vectorstore.Comparable, error) {
	args := m.Called(ctx, text, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]vectorstore.Comparable), args.Error(1)
}

type mockModalClient struct {
	mock.Mock
}

func (m *mockModalClient) Price(ctx context.Context, description string) (float64, error) {
	args := m.Called(ctx, description)
	return args.Get(0).(float64), args.Error(1)
}

// fixedEstimator returns the same estimate for every call.
type fixedEstimator struct {
	est Estimate
	err error
}

func (f fixedEstimator) Estimate(ctx context.Context, description string) (Estimate, error) {
	return f.est, f.err
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}
}
