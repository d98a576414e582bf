// Package questionnaire models the profile questions the wizard asks before
// any photo or model work happens. Validation runs entirely locally; invalid
// input never costs a network call.
package questionnaire

import (
	"errors"
	"fmt"
	"strings"
)

// Photo batch bounds. Fewer photos than MinPhotos gives the model nothing to
// choose between; more than MaxPhotos cannot be budgeted into one request.
const (
	MinPhotos = 4
	MaxPhotos = 24

	// DefaultPickCount is how many photos the wizard selects for the
	// final profile when the user does not override it.
	DefaultPickCount = 6
)

// Answers holds the essential questionnaire responses.
type Answers struct {
	Name         string
	Age          int
	Gender       string
	InterestedIn string

	// Free-text prompts.
	Work       string
	Hobbies    string
	LookingFor string
	FunFact    string
}

// Validate checks the answers the wizard cannot proceed without. Optional
// free-text fields may be blank.
func (a Answers) Validate() error {
	var problems []string
	if strings.TrimSpace(a.Name) == "" {
		problems = append(problems, "name is required")
	}
	if a.Age < 18 {
		problems = append(problems, "age must be 18 or older")
	}
	if a.Age > 120 {
		problems = append(problems, "age is not plausible")
	}
	if strings.TrimSpace(a.Gender) == "" {
		problems = append(problems, "gender is required")
	}
	if strings.TrimSpace(a.InterestedIn) == "" {
		problems = append(problems, "interested-in is required")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Summary renders the answers as a prompt context block.
func (a Answers) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Name: %s\nAge: %d\nGender: %s\nInterested in: %s\n", a.Name, a.Age, a.Gender, a.InterestedIn)
	if a.Work != "" {
		fmt.Fprintf(&sb, "Work: %s\n", a.Work)
	}
	if a.Hobbies != "" {
		fmt.Fprintf(&sb, "Hobbies: %s\n", a.Hobbies)
	}
	if a.LookingFor != "" {
		fmt.Fprintf(&sb, "Looking for: %s\n", a.LookingFor)
	}
	if a.FunFact != "" {
		fmt.Fprintf(&sb, "Fun fact: %s\n", a.FunFact)
	}
	return sb.String()
}

// ValidatePhotoCount checks the batch size before any upload or encode work.
func ValidatePhotoCount(n int) error {
	if n < MinPhotos {
		return fmt.Errorf("at least %d photos are needed, got %d", MinPhotos, n)
	}
	if n > MaxPhotos {
		return fmt.Errorf("at most %d photos are supported, got %d", MaxPhotos, n)
	}
	return nil
}
