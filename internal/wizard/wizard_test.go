package wizard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/magify/flame-enhancer/internal/bio"
	"github.com/magify/flame-enhancer/internal/cloudinary"
	"github.com/magify/flame-enhancer/internal/gateway"
	"github.com/magify/flame-enhancer/internal/payload"
	"github.com/magify/flame-enhancer/internal/questionnaire"
	"github.com/magify/flame-enhancer/internal/selection"
	"github.com/magify/flame-enhancer/internal/submit"
)

type stubLLM struct {
	text  string
	err   error
	delay time.Duration
	got   *gateway.Request
}

func (s *stubLLM) Generate(ctx context.Context, req *gateway.Request) (*gateway.Response, error) {
	s.got = req
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &gateway.Response{
		Provider:   "gemini",
		Candidates: []gateway.Candidate{{Content: gateway.Content{Parts: []gateway.Part{{Text: s.text}}}}},
	}, nil
}

type stubUploader struct {
	unconfigured bool
}

func (s *stubUploader) Upload(_ context.Context, filename string, _ []byte) (*cloudinary.UploadResult, error) {
	if s.unconfigured {
		return nil, cloudinary.ErrNotConfigured
	}
	return &cloudinary.UploadResult{
		SecureURL: "https://res.cloudinary.com/demo/image/upload/v1/" + filename,
	}, nil
}

func answers() questionnaire.Answers {
	return questionnaire.Answers{Name: "Sam", Age: 29, Gender: "man", InterestedIn: "women"}
}

func photoFiles(t *testing.T, n int) []submit.File {
	t.Helper()
	files := make([]submit.File, n)
	for i := range files {
		var buf bytes.Buffer
		if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 200, 150))); err != nil {
			t.Fatal(err)
		}
		files[i] = submit.File{Name: fmt.Sprintf("p%d.png", i+1), Data: buf.Bytes()}
	}
	return files
}

func newWizard(llm gateway.Invoker, uploader submit.Uploader) *Wizard {
	b := payload.DefaultBudget()
	b.Concurrency = 2
	return New(llm, submit.NewPipeline(uploader, b), "")
}

func submittedSession(t *testing.T, w *Wizard, n int) *Session {
	t.Helper()
	sess := NewSession(answers())
	if err := w.SubmitPhotos(context.Background(), sess, photoFiles(t, n), nil); err != nil {
		t.Fatal(err)
	}
	return sess
}

func picksJSON(indexes ...int) string {
	entries := make([]string, len(indexes))
	for i, idx := range indexes {
		entries[i] = fmt.Sprintf(`{"index":%d,"reason":"reason %d"}`, idx, idx)
	}
	return "[" + strings.Join(entries, ",") + "]"
}

func TestSubmitPhotosValidation(t *testing.T) {
	w := newWizard(&stubLLM{}, &stubUploader{})
	ctx := context.Background()

	t.Run("invalid answers rejected", func(t *testing.T) {
		sess := NewSession(questionnaire.Answers{})
		if err := w.SubmitPhotos(ctx, sess, photoFiles(t, 5), nil); err == nil {
			t.Fatal("want validation error")
		}
	})

	t.Run("too few photos rejected", func(t *testing.T) {
		sess := NewSession(answers())
		if err := w.SubmitPhotos(ctx, sess, photoFiles(t, questionnaire.MinPhotos-1), nil); err == nil {
			t.Fatal("want photo count error")
		}
	})
}

func TestAnalyze(t *testing.T) {
	ctx := context.Background()

	t.Run("cdn session sends urls", func(t *testing.T) {
		llm := &stubLLM{text: picksJSON(1, 3, 2, 4, 5, 6)}
		w := newWizard(llm, &stubUploader{})
		sess := submittedSession(t, w, 8)

		if err := w.Analyze(ctx, sess); err != nil {
			t.Fatalf("Analyze error: %v", err)
		}
		if len(sess.Picks) != 6 {
			t.Fatalf("picks = %d", len(sess.Picks))
		}
		if len(llm.got.Body.ImageURLs) != 8 {
			t.Errorf("imageUrls = %d, want 8", len(llm.got.Body.ImageURLs))
		}
		if !strings.Contains(llm.got.Body.ImageURLs[0], "q_auto:eco") {
			t.Errorf("analysis variant not used: %s", llm.got.Body.ImageURLs[0])
		}
	})

	t.Run("inline session embeds bytes", func(t *testing.T) {
		llm := &stubLLM{text: picksJSON(1, 2, 3, 4)}
		w := newWizard(llm, &stubUploader{unconfigured: true})
		sess := submittedSession(t, w, 4)

		if err := w.Analyze(ctx, sess); err != nil {
			t.Fatalf("Analyze error: %v", err)
		}
		if len(llm.got.Body.ImageURLs) != 0 {
			t.Error("inline session must not send urls")
		}
		parts := llm.got.Body.Contents[0].Parts
		if len(parts) != 5 { // prompt + 4 photos
			t.Fatalf("parts = %d", len(parts))
		}
		if parts[1].InlineData == nil {
			t.Error("photo parts must be inline data")
		}
	})

	t.Run("invalid response keeps photos, drops picks", func(t *testing.T) {
		llm := &stubLLM{text: "I picked some good ones!"}
		w := newWizard(llm, &stubUploader{})
		sess := submittedSession(t, w, 5)

		err := w.Analyze(ctx, sess)
		if !errors.Is(err, selection.ErrInvalidAnalysis) {
			t.Fatalf("err = %v", err)
		}
		if len(sess.Photos) != 5 || sess.Picks != nil {
			t.Error("session state wrong after rejection")
		}
	})

	t.Run("watchdog timeout", func(t *testing.T) {
		llm := &stubLLM{text: picksJSON(1), delay: time.Second}
		w := newWizard(llm, &stubUploader{})
		w.analysisTimeout = 20 * time.Millisecond
		sess := submittedSession(t, w, 4)

		err := w.Analyze(ctx, sess)
		if !errors.Is(err, ErrAnalysisTimeout) {
			t.Fatalf("err = %v, want ErrAnalysisTimeout", err)
		}
		if len(sess.Photos) != 4 {
			t.Error("photos must survive a timeout for retry")
		}
	})
}

func TestBioFlow(t *testing.T) {
	ctx := context.Background()
	llm := &stubLLM{text: picksJSON(1, 2, 3, 4)}
	w := newWizard(llm, &stubUploader{})
	sess := submittedSession(t, w, 4)
	if err := w.Analyze(ctx, sess); err != nil {
		t.Fatal(err)
	}

	llm.text = "First bio."
	if err := w.GenerateBio(ctx, sess, bio.Settings{Vibe: 50}); err != nil {
		t.Fatal(err)
	}
	if sess.Bio != "First bio." {
		t.Fatalf("bio = %q", sess.Bio)
	}

	llm.text = "Refined bio."
	if err := w.RefineBio(ctx, sess, "shorter please"); err != nil {
		t.Fatal(err)
	}
	if sess.Bio != "Refined bio." || sess.Refinements.Remaining() != 1 {
		t.Errorf("bio = %q, remaining = %d", sess.Bio, sess.Refinements.Remaining())
	}
}

func TestEnhancePicks(t *testing.T) {
	t.Run("cdn picks enhanced", func(t *testing.T) {
		llm := &stubLLM{text: picksJSON(1, 2, 3, 4)}
		w := newWizard(llm, &stubUploader{})
		sess := submittedSession(t, w, 4)
		if err := w.Analyze(context.Background(), sess); err != nil {
			t.Fatal(err)
		}

		outcomes := w.EnhancePicks(sess)
		for _, o := range outcomes {
			if o.Err != nil {
				t.Errorf("%s: %v", o.Photo.Filename, o.Err)
			}
			if !strings.Contains(o.Photo.EnhancedURL, cloudinary.EnhanceChain) {
				t.Errorf("enhanced url = %q", o.Photo.EnhancedURL)
			}
		}
	})

	t.Run("inline picks report per-photo errors", func(t *testing.T) {
		llm := &stubLLM{text: picksJSON(1, 2, 3, 4)}
		w := newWizard(llm, &stubUploader{unconfigured: true})
		sess := submittedSession(t, w, 4)
		if err := w.Analyze(context.Background(), sess); err != nil {
			t.Fatal(err)
		}

		outcomes := w.EnhancePicks(sess)
		if len(outcomes) != 4 {
			t.Fatalf("outcomes = %d", len(outcomes))
		}
		for _, o := range outcomes {
			if o.Err == nil {
				t.Errorf("%s: want per-photo error on inline pipeline", o.Photo.Filename)
			}
		}
	})
}
