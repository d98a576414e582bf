package selection

import (
	"fmt"
	"strings"

	"github.com/magify/flame-enhancer/internal/questionnaire"
)

// SystemInstruction frames the model as a profile photo consultant.
const SystemInstruction = `You are an expert dating profile consultant. You judge photos on how well they would perform on a dating app for the person described: clarity of the subject, genuine expression, variety, and story value. You are honest and specific.`

// BuildPrompt composes the selection request over n numbered photos. The
// photos themselves travel as separate parts, in the same order as the
// numbered references here.
func BuildPrompt(photos []*Photo, k int, answers questionnaire.Answers) string {
	want := Count(len(photos), k)

	var sb strings.Builder
	sb.WriteString("## ABOUT THE PERSON\n\n")
	sb.WriteString(answers.Summary())
	sb.WriteString("\n## PHOTOS\n\n")
	sb.WriteString(fmt.Sprintf("There are %d photos, numbered in the order they appear:\n", len(photos)))
	for i, p := range photos {
		line := fmt.Sprintf("%d. %s", i+1, p.Filename)
		if ctx := p.Context.PromptLine(); ctx != "" {
			line += " " + ctx
		}
		sb.WriteString(line + "\n")
	}

	sb.WriteString(fmt.Sprintf(`
## TASK

Select exactly the %d photos that would perform best on this person's dating profile. Favor variety: lead with a clear face photo, then cover different settings and activities.

Respond with ONLY a JSON array, no other text:
[{"index": <photo number>, "reason": "<one specific sentence>"}]

Rules:
- exactly %d entries
- "index" is the 1-based photo number from the list above
- no photo may appear twice
- every "reason" must be a non-empty, specific sentence
`, want, want))
	return sb.String()
}
