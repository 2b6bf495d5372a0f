package generator

import (
	"context"
	"fmt"
	"log"

	"classquest/internal/domain"
)

// Source is anything that can produce question drafts.
type Source interface {
	Generate(ctx context.Context, topic string, count, arity int) ([]domain.QuestionDraft, error)
}

// Placeholder produces a deterministic question set of the requested shape.
// It never fails, so quiz creation keeps working without the model.
type Placeholder struct{}

func NewPlaceholder() Placeholder { return Placeholder{} }

var optionLetters = []string{"A", "B", "C", "D"}

func (Placeholder) Generate(_ context.Context, topic string, count, arity int) ([]domain.QuestionDraft, error) {
	drafts := make([]domain.QuestionDraft, 0, count)
	for i := 1; i <= count; i++ {
		options := make([]string, 0, arity)
		for j := 0; j < arity; j++ {
			options = append(options, "Option "+optionLetters[j])
		}
		drafts = append(drafts, domain.QuestionDraft{
			Text:          fmt.Sprintf("Question %d (placeholder): %s", i, topic),
			Options:       options,
			CorrectAnswer: options[0],
		})
	}
	return drafts, nil
}

// Fallback tries the primary source and substitutes the placeholder set of
// the same shape when it is unavailable.
type Fallback struct {
	primary     Source
	placeholder Placeholder
}

func NewFallback(primary Source) *Fallback {
	return &Fallback{primary: primary}
}

func (f *Fallback) Generate(ctx context.Context, topic string, count, arity int) ([]domain.QuestionDraft, error) {
	if f.primary != nil {
		drafts, err := f.primary.Generate(ctx, topic, count, arity)
		if err == nil {
			return drafts, nil
		}
		log.Printf("question generation failed, using placeholder set: %v", err)
	}
	return f.placeholder.Generate(ctx, topic, count, arity)
}
