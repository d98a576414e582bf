package bio

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/magify/flame-enhancer/internal/gateway"
	"github.com/magify/flame-enhancer/internal/questionnaire"
	"github.com/magify/flame-enhancer/internal/selection"
)

// scriptedLLM returns queued responses in order and records prompts.
type scriptedLLM struct {
	responses []string
	prompts   []string
	err       error
}

func (s *scriptedLLM) Generate(_ context.Context, req *gateway.Request) (*gateway.Response, error) {
	s.prompts = append(s.prompts, req.Body.Contents[0].Parts[0].Text)
	if s.err != nil {
		return nil, s.err
	}
	text := "fallback"
	if len(s.responses) > 0 {
		text = s.responses[0]
		s.responses = s.responses[1:]
	}
	return &gateway.Response{
		Provider:   "gemini",
		Candidates: []gateway.Candidate{{Content: gateway.Content{Parts: []gateway.Part{{Text: text}}}}},
	}, nil
}

func testAnswers() questionnaire.Answers {
	return questionnaire.Answers{Name: "Sam", Age: 29, Gender: "man", InterestedIn: "women", Hobbies: "climbing"}
}

func testPicks() []selection.Pick {
	return []selection.Pick{
		{Reason: "genuine laugh in golden hour light"},
		{Reason: "mid-climb action shot"},
	}
}

func TestGenerate(t *testing.T) {
	llm := &scriptedLLM{responses: []string{"  A bio about climbing.  "}}
	svc := NewService(llm, "")

	got, err := svc.Generate(context.Background(), testAnswers(), testPicks(), Settings{Vibe: 80})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if got != "A bio about climbing." {
		t.Errorf("got %q, want trimmed response", got)
	}

	prompt := llm.prompts[0]
	for _, want := range []string{"Sam", "golden hour", "bold and witty"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestGenerateEmptyResponse(t *testing.T) {
	llm := &scriptedLLM{responses: []string{"   "}}
	svc := NewService(llm, "")
	if _, err := svc.Generate(context.Background(), testAnswers(), nil, Settings{}); err == nil {
		t.Fatal("want error for empty model output")
	}
}

func TestRegenerateForceChange(t *testing.T) {
	const old = "I love climbing and cooking."

	t.Run("different text accepted first try", func(t *testing.T) {
		llm := &scriptedLLM{responses: []string{"Something brand new."}}
		svc := NewService(llm, "")
		got, err := svc.Regenerate(context.Background(), testAnswers(), nil, Settings{}, old)
		if err != nil {
			t.Fatal(err)
		}
		if got != "Something brand new." || len(llm.prompts) != 1 {
			t.Errorf("got %q after %d calls", got, len(llm.prompts))
		}
	})

	t.Run("echoed text triggers one forced retry", func(t *testing.T) {
		// Same text with reflowed whitespace still counts as unchanged.
		llm := &scriptedLLM{responses: []string{"I love  climbing and\ncooking.", "A genuinely new bio."}}
		svc := NewService(llm, "")
		got, err := svc.Regenerate(context.Background(), testAnswers(), nil, Settings{}, old)
		if err != nil {
			t.Fatal(err)
		}
		if got != "A genuinely new bio." {
			t.Errorf("got %q", got)
		}
		if len(llm.prompts) != 2 {
			t.Fatalf("calls = %d, want 2", len(llm.prompts))
		}
		if !strings.Contains(llm.prompts[1], "MUST") {
			t.Error("retry prompt should carry the strengthened instruction")
		}
	})

	t.Run("second echo is returned, not looped", func(t *testing.T) {
		llm := &scriptedLLM{responses: []string{old, old}}
		svc := NewService(llm, "")
		got, err := svc.Regenerate(context.Background(), testAnswers(), nil, Settings{}, old)
		if err != nil {
			t.Fatal(err)
		}
		if got != old || len(llm.prompts) != 2 {
			t.Errorf("got %q after %d calls, want exactly one retry", got, len(llm.prompts))
		}
	})
}

func TestRefineLimit(t *testing.T) {
	llm := &scriptedLLM{responses: []string{"v2", "v3"}}
	svc := NewService(llm, "")
	var limiter Limiter
	ctx := context.Background()

	if limiter.Remaining() != MaxChatRefinements {
		t.Fatalf("Remaining = %d", limiter.Remaining())
	}

	for i := 0; i < MaxChatRefinements; i++ {
		if _, err := svc.Refine(ctx, &limiter, testAnswers(), "bio", "make it funnier"); err != nil {
			t.Fatalf("refinement %d failed: %v", i+1, err)
		}
	}

	_, err := svc.Refine(ctx, &limiter, testAnswers(), "bio", "more")
	if !errors.Is(err, ErrRefinementLimit) {
		t.Fatalf("err = %v, want ErrRefinementLimit", err)
	}
	if calls := len(llm.prompts); calls != MaxChatRefinements {
		t.Errorf("llm calls = %d; limit must be enforced before the network", calls)
	}
}

func TestRefineEmptyInstruction(t *testing.T) {
	llm := &scriptedLLM{}
	svc := NewService(llm, "")
	var limiter Limiter
	if _, err := svc.Refine(context.Background(), &limiter, testAnswers(), "bio", "  "); err == nil {
		t.Fatal("want error for empty instruction")
	}
	if limiter.Remaining() != MaxChatRefinements {
		t.Error("invalid input must not spend the budget")
	}
}

func TestToneLines(t *testing.T) {
	t.Run("visiting phrasing", func(t *testing.T) {
		s := Settings{Location: "Lisbon", Visiting: true}
		if !strings.Contains(s.toneLines(), "visiting Lisbon") {
			t.Errorf("toneLines = %q", s.toneLines())
		}
	})

	t.Run("living phrasing", func(t *testing.T) {
		s := Settings{Location: "Berlin"}
		if !strings.Contains(s.toneLines(), "lives in Berlin") {
			t.Errorf("toneLines = %q", s.toneLines())
		}
	})

	t.Run("simple language overrides slider", func(t *testing.T) {
		s := Settings{Sophistication: 100, SimpleLanguage: true}
		lines := s.toneLines()
		if strings.Contains(lines, "polished") || !strings.Contains(lines, "everyday words") {
			t.Errorf("toneLines = %q", lines)
		}
	})

	t.Run("slider bands", func(t *testing.T) {
		if got := band(10, "low", "mid", "high"); got != "low" {
			t.Errorf("band(10) = %s", got)
		}
		if got := band(50, "low", "mid", "high"); got != "mid" {
			t.Errorf("band(50) = %s", got)
		}
		if got := band(90, "low", "mid", "high"); got != "high" {
			t.Errorf("band(90) = %s", got)
		}
	})
}
