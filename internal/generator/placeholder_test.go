package generator_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"classquest/internal/domain"
	"classquest/internal/generator"
)

func TestPlaceholderShapeMatchesRequest(t *testing.T) {
	ctx := context.Background()
	src := generator.NewPlaceholder()

	for count := 5; count <= 20; count++ {
		for _, arity := range []int{3, 4} {
			drafts, err := src.Generate(ctx, "Roman Empire", count, arity)
			if err != nil {
				t.Fatalf("count=%d arity=%d: %v", count, arity, err)
			}
			if len(drafts) != count {
				t.Fatalf("count=%d arity=%d: got %d drafts", count, arity, len(drafts))
			}
			for _, draft := range drafts {
				if len(draft.Options) != arity {
					t.Fatalf("count=%d arity=%d: got %d options", count, arity, len(draft.Options))
				}
				if draft.CorrectAnswer != draft.Options[0] {
					t.Fatalf("placeholder answer must be the first option, got %q", draft.CorrectAnswer)
				}
				if !strings.Contains(draft.Text, "Roman Empire") {
					t.Fatalf("question text must carry the topic, got %q", draft.Text)
				}
			}
		}
	}
}

type failingSource struct{}

func (failingSource) Generate(context.Context, string, int, int) ([]domain.QuestionDraft, error) {
	return nil, errors.New("model unavailable")
}

type cannedSource struct{ drafts []domain.QuestionDraft }

func (c cannedSource) Generate(context.Context, string, int, int) ([]domain.QuestionDraft, error) {
	return c.drafts, nil
}

func TestFallbackSubstitutesPlaceholderOnFailure(t *testing.T) {
	drafts, err := generator.NewFallback(failingSource{}).Generate(context.Background(), "History", 5, 4)
	if err != nil {
		t.Fatalf("fallback must absorb the primary failure, got %v", err)
	}
	if len(drafts) != 5 || len(drafts[0].Options) != 4 {
		t.Fatalf("fallback set has the wrong shape: %d drafts", len(drafts))
	}
}

func TestFallbackPassesThroughPrimary(t *testing.T) {
	want := []domain.QuestionDraft{{Text: "Who founded Rome?", Options: []string{"Romulus", "Remus", "Numa"}, CorrectAnswer: "Romulus"}}
	drafts, err := generator.NewFallback(cannedSource{drafts: want}).Generate(context.Background(), "History", 5, 3)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(drafts) != 1 || drafts[0].Text != "Who founded Rome?" {
		t.Fatalf("expected the primary drafts verbatim, got %+v", drafts)
	}
}

func TestFallbackWithoutPrimaryUsesPlaceholder(t *testing.T) {
	drafts, err := generator.NewFallback(nil).Generate(context.Background(), "History", 6, 3)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(drafts) != 6 {
		t.Fatalf("expected 6 placeholder drafts, got %d", len(drafts))
	}
}
