// Package bio generates and refines the profile bio. Generation is grounded
// in the questionnaire answers and the reasons the selection step gave for
// each chosen photo, so the text matches what the profile actually shows.
package bio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/magify/flame-enhancer/internal/gateway"
	"github.com/magify/flame-enhancer/internal/questionnaire"
	"github.com/magify/flame-enhancer/internal/selection"
)

// MaxChatRefinements caps free-form chat refinements per session. The cap is
// enforced locally, before any network call.
const MaxChatRefinements = 2

// ErrRefinementLimit is returned once the chat refinement budget is spent.
var ErrRefinementLimit = fmt.Errorf("refinement limit of %d reached; regenerate the bio to start over", MaxChatRefinements)

// Settings steer tone and targeting. Slider values are 0..100 and map to
// three bands; see prompt.go.
type Settings struct {
	Vibe           int
	Goal           int
	Sophistication int

	// Location names where the profile is set. Visiting switches the
	// phrasing from living there to being in town.
	Location string
	Visiting bool

	// SimpleLanguage overrides the sophistication slider with plain words.
	SimpleLanguage bool
}

// Limiter tracks chat refinement spend for one session.
type Limiter struct {
	used int
}

// Remaining reports how many chat refinements are left.
func (l *Limiter) Remaining() int {
	return MaxChatRefinements - l.used
}

// take consumes one refinement or fails when the budget is spent.
func (l *Limiter) take() error {
	if l.used >= MaxChatRefinements {
		return ErrRefinementLimit
	}
	l.used++
	return nil
}

// Service runs bio operations through an LLM invoker.
type Service struct {
	llm      gateway.Invoker
	provider string
}

// NewService builds the bio service. provider may be empty to use the relay
// default.
func NewService(llm gateway.Invoker, provider string) *Service {
	return &Service{llm: llm, provider: provider}
}

// Generate writes a fresh bio from the answers, the selected photos'
// reasons, and the tone settings.
func (s *Service) Generate(ctx context.Context, answers questionnaire.Answers, picks []selection.Pick, settings Settings) (string, error) {
	return s.invoke(ctx, buildGeneratePrompt(answers, picks, settings))
}

// Regenerate produces a bio that must differ from previous. When the model
// echoes the old text back (compared with whitespace normalized), one retry
// is made with a strengthened instruction; the retry's answer is final.
func (s *Service) Regenerate(ctx context.Context, answers questionnaire.Answers, picks []selection.Pick, settings Settings, previous string) (string, error) {
	text, err := s.invoke(ctx, buildRegeneratePrompt(answers, picks, settings, previous, false))
	if err != nil {
		return "", err
	}
	if !sameText(text, previous) {
		return text, nil
	}

	log.Warn().Msg("Regenerated bio is unchanged, retrying with a stronger instruction")
	text, err = s.invoke(ctx, buildRegeneratePrompt(answers, picks, settings, previous, true))
	if err != nil {
		return "", err
	}
	if sameText(text, previous) {
		log.Warn().Msg("Bio still unchanged after forced retry")
	}
	return text, nil
}

// Refine applies one free-form chat instruction to the current bio, spending
// one unit of the session's refinement budget. The budget check runs before
// the network call.
func (s *Service) Refine(ctx context.Context, limiter *Limiter, answers questionnaire.Answers, current, instruction string) (string, error) {
	if strings.TrimSpace(instruction) == "" {
		return "", errors.New("refinement instruction is empty")
	}
	if err := limiter.take(); err != nil {
		return "", err
	}
	return s.invoke(ctx, buildRefinePrompt(answers, current, instruction))
}

func (s *Service) invoke(ctx context.Context, prompt string) (string, error) {
	temp := 1.0
	resp, err := s.llm.Generate(ctx, &gateway.Request{
		Provider: s.provider,
		Body: gateway.Body{
			Contents: []gateway.Content{{
				Role:  "user",
				Parts: []gateway.Part{{Text: prompt}},
			}},
			GenerationConfig: &gateway.GenerationConfig{Temperature: &temp},
		},
	})
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("model returned an empty bio")
	}
	return text, nil
}

// sameText compares two texts with all whitespace runs collapsed, so
// reflowed but otherwise identical output counts as unchanged.
func sameText(a, b string) bool {
	return strings.Join(strings.Fields(a), " ") == strings.Join(strings.Fields(b), " ")
}
