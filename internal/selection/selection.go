// Package selection asks the model to pick the strongest photos from a batch
// and validates its answer strictly. Selection is all-or-nothing: one
// malformed entry rejects the whole response, because a silently truncated
// pick list would misrepresent the user's best photos.
package selection

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/magify/flame-enhancer/internal/imaging"
	"github.com/magify/flame-enhancer/internal/jsonutil"
)

// ErrInvalidAnalysis is returned whenever the model's answer fails
// validation in any way. The message is the one users see.
var ErrInvalidAnalysis = errors.New("failed to provide a complete and valid analysis")

// Photo is one uploaded photo flowing through the wizard. The model only
// ever sees 1-based indexes; identity stays on this side of the wire.
type Photo struct {
	ID       uuid.UUID
	Filename string
	Data     []byte
	MIMEType string

	// URL and AnalysisURL are set on the CDN pipeline; empty on the
	// inline pipeline. EnhancedURL is filled after enhancement.
	URL         string
	AnalysisURL string
	EnhancedURL string

	Context imaging.CaptureContext
}

// Pick is one validated selection, mapped back to the photo it names.
type Pick struct {
	Photo  *Photo
	Reason string
}

// rawPick is the wire shape the model must produce.
type rawPick struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// Count returns how many picks a batch of n photos should produce when the
// user asked for at most k.
func Count(n, k int) int {
	if n < k {
		return n
	}
	return k
}

// ParseResponse extracts and validates the model's selection over n photos
// with a requested pick count k, then maps indexes back to photos. Every
// failure mode collapses to ErrInvalidAnalysis for the user; the wrapping
// detail is for logs.
func ParseResponse(raw string, photos []*Photo, k int) ([]Pick, error) {
	n := len(photos)
	want := Count(n, k)

	picks, err := jsonutil.Parse[[]rawPick](raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAnalysis, err)
	}

	if len(picks) != want {
		return nil, fmt.Errorf("%w: got %d selections, want %d", ErrInvalidAnalysis, len(picks), want)
	}

	seen := make(map[int]bool, len(picks))
	out := make([]Pick, 0, len(picks))
	for _, p := range picks {
		if p.Index < 1 || p.Index > n {
			return nil, fmt.Errorf("%w: index %d out of range 1..%d", ErrInvalidAnalysis, p.Index, n)
		}
		if seen[p.Index] {
			return nil, fmt.Errorf("%w: index %d selected twice", ErrInvalidAnalysis, p.Index)
		}
		if strings.TrimSpace(p.Reason) == "" {
			return nil, fmt.Errorf("%w: blank reason for index %d", ErrInvalidAnalysis, p.Index)
		}
		seen[p.Index] = true
		out = append(out, Pick{Photo: photos[p.Index-1], Reason: strings.TrimSpace(p.Reason)})
	}
	return out, nil
}
