package bio

import (
	"fmt"
	"strings"

	"github.com/magify/flame-enhancer/internal/questionnaire"
	"github.com/magify/flame-enhancer/internal/selection"
)

// band picks the prompt phrasing for a 0..100 slider.
func band(v int, low, mid, high string) string {
	switch {
	case v < 34:
		return low
	case v < 67:
		return mid
	default:
		return high
	}
}

func (s Settings) toneLines() string {
	var sb strings.Builder

	sb.WriteString("Tone: " + band(s.Vibe,
		"warm and sincere",
		"playful and light",
		"bold and witty") + ".\n")

	sb.WriteString("Framing: the person is looking for " + band(s.Goal,
		"casual connections and fun",
		"something open-ended; see where it goes",
		"a serious, long-term relationship") + ".\n")

	if s.SimpleLanguage {
		sb.WriteString("Language: short sentences and everyday words only. No clever wordplay.\n")
	} else {
		sb.WriteString("Language: " + band(s.Sophistication,
			"simple, everyday words",
			"natural, conversational language",
			"polished, clever phrasing") + ".\n")
	}

	if s.Location != "" {
		if s.Visiting {
			fmt.Fprintf(&sb, "Location: visiting %s; write as someone in town for a while.\n", s.Location)
		} else {
			fmt.Fprintf(&sb, "Location: lives in %s.\n", s.Location)
		}
	}
	return sb.String()
}

func photoContext(picks []selection.Pick) string {
	if len(picks) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Their profile photos show:\n")
	for _, p := range picks {
		sb.WriteString("- " + p.Reason + "\n")
	}
	return sb.String()
}

const bioRules = `Rules:
- 2 to 4 short paragraphs, under 100 words total
- first person, as if they wrote it themselves
- specific over generic; use their real details
- no hashtags, no emoji walls, no opening with the person's name or age
- return ONLY the bio text, nothing else`

func buildGeneratePrompt(answers questionnaire.Answers, picks []selection.Pick, settings Settings) string {
	return fmt.Sprintf(`Write a dating profile bio for this person.

%s
%s%s
%s`, answers.Summary(), photoContext(picks), settings.toneLines(), bioRules)
}

func buildRegeneratePrompt(answers questionnaire.Answers, picks []selection.Pick, settings Settings, previous string, forced bool) string {
	instruction := "Write a NEW bio that takes a different angle from the previous one."
	if forced {
		instruction = "The previous attempt repeated the old bio. You MUST produce substantially different text: different opening, different structure, different details emphasized."
	}
	return fmt.Sprintf(`%s

Previous bio:
---
%s
---

%s
%s%s
%s`, instruction, previous, answers.Summary(), photoContext(picks), settings.toneLines(), bioRules)
}

func buildRefinePrompt(answers questionnaire.Answers, current, instruction string) string {
	return fmt.Sprintf(`Revise this dating profile bio following the instruction. Keep everything that the instruction does not touch.

Current bio:
---
%s
---

Instruction: %s

About the person:
%s
%s`, current, instruction, answers.Summary(), bioRules)
}
