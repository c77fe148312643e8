// Package analysis invokes the text-completion service to classify questions,
// score answers, and propose follow-up questions. Every operation is
// best-effort: a failed or malformed response yields a deterministic
// fallback value instead of an error, so analysis can never take down a
// live session.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/Young6-101/ai-interview-assistant/internal/domain"
	"github.com/Young6-101/ai-interview-assistant/internal/llm"
)

// Analysis frameworks.
const (
	FrameworkSTAR      = "star"
	FrameworkTechnical = "technical"
	FrameworkGeneral   = "general"
)

// Analyzer wraps the LLM client with interview-specific operations.
// Calls are stateless and safe to invoke concurrently.
type Analyzer struct {
	client llm.LLMClient
	model  string
}

// NewAnalyzer creates a new analyzer using the given LLM client and model.
func NewAnalyzer(client llm.LLMClient, model string) *Analyzer {
	return &Analyzer{client: client, model: model}
}

// ClassifyQuestion classifies an HR statement. On any failure it returns a
// low-confidence general classification rather than an error.
func (a *Analyzer) ClassifyQuestion(ctx context.Context, text string) domain.Classification {
	fallback := domain.Classification{
		IsQuestion:   true,
		QuestionType: "general_question",
		Confidence:   "low",
		Text:         text,
	}

	temp := 0.3
	resp, err := a.client.CreateChatCompletion(ctx, &llm.ChatCompletionRequest{
		Model:       a.model,
		Temperature: &temp,
		Messages: []llm.ChatMessage{
			{Role: "system", Content: classifySystemPrompt},
			{Role: "user", Content: "Classify this HR statement:\n\n" + text},
		},
	})
	if err != nil {
		log.Printf("Classify question failed: %v", err)
		return fallback
	}

	var result domain.Classification
	if err := json.Unmarshal([]byte(resp.Content()), &result); err != nil {
		log.Printf("Classification response not parseable, using default: %v", err)
		return fallback
	}
	result.Text = text
	return result
}

// AnalyzeAnswer scores a candidate answer against the given framework.
// A malformed response yields a neutral mid-range placeholder; a transport
// failure yields a zero-score result that says analysis was unavailable.
func (a *Analyzer) AnalyzeAnswer(ctx context.Context, question, answer, framework string) domain.Analysis {
	framework = strings.ToLower(framework)
	system := fmt.Sprintf(analyzeSystemPromptFmt, strings.ToUpper(framework), frameworkInstruction(framework))
	user := fmt.Sprintf("Q: %s\n\nA: %s\n\nAnalyze using %s framework.", question, answer, strings.ToUpper(framework))

	temp := 0.5
	resp, err := a.client.CreateChatCompletion(ctx, &llm.ChatCompletionRequest{
		Model:       a.model,
		Temperature: &temp,
		Messages: []llm.ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		log.Printf("Analyze answer failed: %v", err)
		return domain.Analysis{
			QualityScore: 0,
			Strengths:    []string{},
			WeakPoints:   []domain.WeakPoint{},
			Suggestions:  []string{"Unable to analyze at this time"},
		}
	}

	var result domain.Analysis
	if err := json.Unmarshal([]byte(resp.Content()), &result); err != nil {
		log.Printf("Analysis response not parseable, using placeholder: %v", err)
		return domain.Analysis{
			QualityScore: 50,
			Strengths:    []string{"Provided answer", "Attempted to address question"},
			WeakPoints: []domain.WeakPoint{
				{Component: "Clarity", Severity: "medium", Question: "Can you elaborate more?"},
			},
			Suggestions: []string{"Provide more specific examples", "Add measurable outcomes"},
		}
	}
	return result
}

// GenerateFollowups proposes at most count follow-up questions for the given
// weak area. If the response is not a well-formed JSON list, it first tries
// to recover a list between the outermost brackets, then falls back to
// templated questions built from the weak area.
func (a *Analyzer) GenerateFollowups(ctx context.Context, interviewContext, weakArea string, count int) []string {
	temp := 0.8
	resp, err := a.client.CreateChatCompletion(ctx, &llm.ChatCompletionRequest{
		Model:       a.model,
		Temperature: &temp,
		Messages: []llm.ChatMessage{
			{Role: "system", Content: fmt.Sprintf(followupSystemPromptFmt, count)},
			{Role: "user", Content: followupUserPrompt(interviewContext, weakArea, count)},
		},
	})
	if err != nil {
		log.Printf("Generate followups failed: %v", err)
		return []string{}
	}

	questions, ok := parseQuestionList(resp.Content())
	if !ok {
		log.Printf("Followup response not parseable, using templated questions")
		questions = templatedFollowups(weakArea)
	}
	if len(questions) > count {
		questions = questions[:count]
	}
	return questions
}

// parseQuestionList extracts a JSON string array from the model output,
// scanning for the outermost brackets when the array is wrapped in prose.
func parseQuestionList(text string) ([]string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "[") {
		start := strings.Index(text, "[")
		end := strings.LastIndex(text, "]")
		if start < 0 || end <= start {
			return nil, false
		}
		text = text[start : end+1]
	}

	var questions []string
	if err := json.Unmarshal([]byte(text), &questions); err != nil {
		return nil, false
	}
	return questions, true
}

func templatedFollowups(weakArea string) []string {
	return []string{
		fmt.Sprintf("Can you tell me more about %s?", weakArea),
		fmt.Sprintf("What challenges did you face with %s?", weakArea),
		fmt.Sprintf("How would you approach %s differently next time?", weakArea),
	}
}
