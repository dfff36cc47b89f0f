package scanner

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/deal-scout/internal/config"
	"github.com/sells-group/deal-scout/internal/model"
)

func testCandidates() []model.Candidate {
	return []model.Candidate{
		{Title: "TV Deal", Summary: "4K TV for $199", URL: "https://deals.example.com/tv"},
		{Title: "Laptop Deal", Summary: "Gaming laptop for $899", URL: "https://deals.example.com/laptop"},
		{Title: "Vague Deal", Summary: "Up to 50% off", URL: "https://deals.example.com/vague"},
	}
}

func newTestScanner(ai *mockAnthropicClient) *Scanner {
	return New(ai, config.AnthropicConfig{ScannerModel: "test-model"}, 5)
}

func TestSelect_ParsesDeals(t *testing.T) {
	ai := new(mockAnthropicClient)
	ai.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(`{
		"deals": [
			{"product_description": "A 55-inch 4K television.", "price": 199, "url": "https://deals.example.com/tv"},
			{"product_description": "A gaming laptop.", "price": 899, "url": "https://deals.example.com/laptop"}
		]
	}`), nil)

	deals := newTestScanner(ai).Select(context.Background(), testCandidates())
	require.Len(t, deals, 2)
	assert.Equal(t, 199.0, deals[0].Price)
	assert.Equal(t, "https://deals.example.com/tv", deals[0].URL)
	ai.AssertExpectations(t)
}

func TestSelect_StripsCodeFences(t *testing.T) {
	ai := new(mockAnthropicClient)
	ai.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(
		"```json\n{\"deals\": [{\"product_description\": \"A TV.\", \"price\": 199, \"url\": \"https://deals.example.com/tv\"}]}\n```",
	), nil)

	deals := newTestScanner(ai).Select(context.Background(), testCandidates())
	require.Len(t, deals, 1)
}

func TestSelect_DropsInvalidAndUnknownDeals(t *testing.T) {
	ai := new(mockAnthropicClient)
	ai.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(`{
		"deals": [
			{"product_description": "Zero priced.", "price": 0, "url": "https://deals.example.com/tv"},
			{"product_description": "Not offered.", "price": 50, "url": "https://elsewhere.example.com/x"},
			{"product_description": "A gaming laptop.", "price": 899, "url": "https://deals.example.com/laptop"}
		]
	}`), nil)

	deals := newTestScanner(ai).Select(context.Background(), testCandidates())
	require.Len(t, deals, 1)
	assert.Equal(t, "https://deals.example.com/laptop", deals[0].URL)
}

func TestSelect_CapsAtMaxDeals(t *testing.T) {
	ai := new(mockAnthropicClient)
	ai.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse(`{
		"deals": [
			{"product_description": "A TV.", "price": 199, "url": "https://deals.example.com/tv"},
			{"product_description": "A laptop.", "price": 899, "url": "https://deals.example.com/laptop"}
		]
	}`), nil)

	s := New(ai, config.AnthropicConfig{ScannerModel: "test-model"}, 1)
	deals := s.Select(context.Background(), testCandidates())
	assert.Len(t, deals, 1)
}

func TestSelect_ModelErrorReturnsEmpty(t *testing.T) {
	ai := new(mockAnthropicClient)
	ai.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, eris.New("api down"))

	deals := newTestScanner(ai).Select(context.Background(), testCandidates())
	assert.Empty(t, deals)
}

func TestSelect_UnparseableResponseReturnsEmpty(t *testing.T) {
	ai := new(mockAnthropicClient)
	ai.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse("sorry, I cannot help"), nil)

	deals := newTestScanner(ai).Select(context.Background(), testCandidates())
	assert.Empty(t, deals)
}

func TestSelect_NoCandidatesSkipsModelCall(t *testing.T) {
	ai := new(mockAnthropicClient)
	deals := newTestScanner(ai).Select(context.Background(), nil)
	assert.Empty(t, deals)
	ai.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestCleanJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanJSON("Here you go: {\"a\":1} hope that helps"))
	assert.Equal(t, `{"a":1}`, cleanJSON("```\n{\"a\":1}\n```"))
}
