package wizard

import (
	"github.com/google/uuid"

	"github.com/magify/flame-enhancer/internal/bio"
	"github.com/magify/flame-enhancer/internal/questionnaire"
	"github.com/magify/flame-enhancer/internal/selection"
)

// Session is the whole wizard state for one run. Starting over means
// discarding the session and creating a new one; nothing is reused.
type Session struct {
	ID uuid.UUID

	Answers questionnaire.Answers

	// Photos is the submitted batch; Inline records which pipeline it
	// traveled. Picks and Bio fill in as the wizard advances.
	Photos []*selection.Photo
	Inline bool

	Picks []selection.Pick

	Bio         string
	BioSettings bio.Settings
	Refinements bio.Limiter
}

// NewSession creates a fresh session.
func NewSession(answers questionnaire.Answers) *Session {
	return &Session{ID: uuid.New(), Answers: answers}
}
