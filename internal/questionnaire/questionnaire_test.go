package questionnaire

import (
	"strings"
	"testing"
)

func validAnswers() Answers {
	return Answers{
		Name:         "Sam",
		Age:          29,
		Gender:       "man",
		InterestedIn: "women",
		Hobbies:      "bouldering, cooking",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Answers)
		wantErr string
	}{
		{"valid", func(a *Answers) {}, ""},
		{"missing name", func(a *Answers) { a.Name = "  " }, "name"},
		{"underage", func(a *Answers) { a.Age = 17 }, "18"},
		{"implausible age", func(a *Answers) { a.Age = 200 }, "plausible"},
		{"missing gender", func(a *Answers) { a.Gender = "" }, "gender"},
		{"missing interest", func(a *Answers) { a.InterestedIn = "" }, "interested"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validAnswers()
			tt.mutate(&a)
			err := a.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}

	t.Run("multiple problems reported together", func(t *testing.T) {
		err := Answers{}.Validate()
		if err == nil || !strings.Contains(err.Error(), ";") {
			t.Fatalf("err = %v, want joined problems", err)
		}
	})
}

func TestSummary(t *testing.T) {
	a := validAnswers()
	s := a.Summary()
	for _, want := range []string{"Sam", "29", "bouldering"} {
		if !strings.Contains(s, want) {
			t.Errorf("Summary missing %q:\n%s", want, s)
		}
	}
	if strings.Contains(s, "Work:") {
		t.Error("blank optional fields must be omitted")
	}
}

func TestValidatePhotoCount(t *testing.T) {
	if err := ValidatePhotoCount(MinPhotos); err != nil {
		t.Errorf("min count rejected: %v", err)
	}
	if err := ValidatePhotoCount(MinPhotos - 1); err == nil {
		t.Error("want error below minimum")
	}
	if err := ValidatePhotoCount(MaxPhotos + 1); err == nil {
		t.Error("want error above maximum")
	}
}
