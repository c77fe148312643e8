package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MockClient is a canned-response implementation of LLMClient for local
// development and tests. It inspects the system prompt to decide which
// shape of structured response the caller expects.
type MockClient struct{}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Ensure MockClient implements LLMClient interface.
var _ LLMClient = (*MockClient)(nil)

// CreateChatCompletion returns a mock response matching the requested rubric.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	var system string
	if len(req.Messages) > 0 && req.Messages[0].Role == "system" {
		system = req.Messages[0].Content
	}

	var content string
	switch {
	case strings.Contains(system, "question classifier"):
		content = `{"is_question": true, "question_type": "behavioral_question", "confidence": "high"}`
	case strings.Contains(system, "interview analyst"):
		content = `{"quality_score": 72, "strengths": ["Concrete example", "Clear structure"], "weak_points": [{"component": "Result", "severity": "medium", "question": "What was the measurable outcome?"}], "suggestions": ["Quantify the impact"]}`
	case strings.Contains(system, "follow-up questions"):
		content = `["Can you walk me through the architecture?", "What trade-offs did you consider?", "How did you measure success?"]`
	default:
		content = "[MOCK] This is a mock response from the LLM client."
	}

	return &ChatCompletionResponse{
		ID:      fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []Choice{
			{
				Index: 0,
				Message: &ChatMessage{
					Role:    "assistant",
					Content: content,
				},
				FinishReason: "stop",
			},
		},
		Usage: &Usage{
			PromptTokens:     len(system) / 4,
			CompletionTokens: len(content) / 4,
			TotalTokens:      (len(system) + len(content)) / 4,
		},
	}, nil
}
