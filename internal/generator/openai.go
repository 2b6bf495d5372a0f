// Package generator provides the question-generation collaborator: an OpenAI
// backed implementation, a deterministic placeholder, and a fallback wrapper
// that keeps quiz creation working when the model is unreachable.
package generator

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"classquest/internal/domain"
)

// OpenAI generates MCQ questions with a chat completion call.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(apiKey string) *OpenAI {
	return &OpenAI{client: openai.NewClient(apiKey), model: openai.GPT4o}
}

type generatedQuestion struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"` // 0-based index
}

// Generate asks the model for exactly count questions with arity options each
// and validates the response shape before returning it.
func (g *OpenAI) Generate(ctx context.Context, topic string, count, arity int) ([]domain.QuestionDraft, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(
					"You are an expert quiz question generator. Generate multiple choice questions with exactly %d options each. "+
						"Respond with a JSON object {\"questions\": [{\"text\", \"options\", \"correct_answer\"}]} where correct_answer is the 0-based index of the right option.",
					arity),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Generate %d questions about: %s", count, topic),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in completion response")
	}

	var payload struct {
		Questions []generatedQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &payload); err != nil {
		return nil, fmt.Errorf("parse completion payload: %w", err)
	}
	if len(payload.Questions) < count {
		return nil, fmt.Errorf("model returned %d questions, wanted %d", len(payload.Questions), count)
	}

	drafts := make([]domain.QuestionDraft, 0, count)
	for _, q := range payload.Questions[:count] {
		if len(q.Options) != arity {
			return nil, fmt.Errorf("question %q has %d options, wanted %d", q.Text, len(q.Options), arity)
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return nil, fmt.Errorf("question %q has out-of-range answer index %d", q.Text, q.CorrectAnswer)
		}
		drafts = append(drafts, domain.QuestionDraft{
			Text:          q.Text,
			Options:       q.Options,
			CorrectAnswer: q.Options[q.CorrectAnswer],
		})
	}
	return drafts, nil
}
