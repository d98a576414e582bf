// Package wizard orchestrates the profile flow: submit photos, analyze and
// pick the best, write the bio, refine it, enhance the keepers.
package wizard

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/magify/flame-enhancer/internal/bio"
	"github.com/magify/flame-enhancer/internal/cloudinary"
	"github.com/magify/flame-enhancer/internal/gateway"
	"github.com/magify/flame-enhancer/internal/questionnaire"
	"github.com/magify/flame-enhancer/internal/selection"
	"github.com/magify/flame-enhancer/internal/submit"
)

// DefaultAnalysisTimeout is the watchdog around the whole analysis phase.
const DefaultAnalysisTimeout = 3 * time.Minute

// ErrAnalysisTimeout tells the caller to send the user back to the upload
// step. The message is the user-facing guidance.
var ErrAnalysisTimeout = errors.New("analysis took too long; go back to the upload step and try fewer or smaller photos")

// Wizard wires the pipeline stages together.
type Wizard struct {
	llm      gateway.Invoker
	pipeline *submit.Pipeline
	bios     *bio.Service
	provider string

	pickCount       int
	analysisTimeout time.Duration
}

// New builds a Wizard. provider may be empty for the relay default.
func New(llm gateway.Invoker, pipeline *submit.Pipeline, provider string) *Wizard {
	return &Wizard{
		llm:             llm,
		pipeline:        pipeline,
		bios:            bio.NewService(llm, provider),
		provider:        provider,
		pickCount:       questionnaire.DefaultPickCount,
		analysisTimeout: DefaultAnalysisTimeout,
	}
}

// SetPickCount overrides how many photos the analysis selects.
func (w *Wizard) SetPickCount(k int) { w.pickCount = k }

// SubmitPhotos validates and submits the batch into the session.
func (w *Wizard) SubmitPhotos(ctx context.Context, sess *Session, files []submit.File, progress submit.ProgressFunc) error {
	if err := sess.Answers.Validate(); err != nil {
		return err
	}
	if err := questionnaire.ValidatePhotoCount(len(files)); err != nil {
		return err
	}

	res, err := w.pipeline.Submit(ctx, files, progress)
	if err != nil {
		return err
	}
	sess.Photos = res.Photos
	sess.Inline = res.Inline
	return nil
}

// Analyze asks the model to pick the best photos and stores the validated
// picks. The whole phase runs under a watchdog timeout; on expiry the
// session's photos survive so the user can retry with a smaller batch.
func (w *Wizard) Analyze(ctx context.Context, sess *Session) error {
	if len(sess.Photos) == 0 {
		return errors.New("no photos submitted")
	}

	ctx, cancel := context.WithTimeout(ctx, w.analysisTimeout)
	defer cancel()

	req := w.buildAnalysisRequest(sess)
	start := time.Now()
	resp, err := w.llm.Generate(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn().Dur("elapsed", time.Since(start)).Msg("Analysis watchdog fired")
			return ErrAnalysisTimeout
		}
		return err
	}

	picks, err := selection.ParseResponse(resp.Text(), sess.Photos, w.pickCount)
	if err != nil {
		log.Error().Err(err).Str("provider", resp.Provider).Msg("Selection response rejected")
		return err
	}

	sess.Picks = picks
	log.Info().
		Int("picked", len(picks)).
		Int("from", len(sess.Photos)).
		Dur("elapsed", time.Since(start)).
		Msg("Photo analysis complete")
	return nil
}

// buildAnalysisRequest assembles the selection call. CDN sessions reference
// analysis variants by URL and let the relay fetch them; inline sessions
// embed the re-encoded bytes directly.
func (w *Wizard) buildAnalysisRequest(sess *Session) *gateway.Request {
	prompt := selection.BuildPrompt(sess.Photos, w.pickCount, sess.Answers)
	parts := []gateway.Part{{Text: selection.SystemInstruction + "\n\n" + prompt}}

	var urls []string
	if sess.Inline {
		for _, p := range sess.Photos {
			parts = append(parts, gateway.Part{InlineData: &gateway.InlineData{
				MIMEType: p.MIMEType,
				Data:     base64.StdEncoding.EncodeToString(p.Data),
			}})
		}
	} else {
		for _, p := range sess.Photos {
			urls = append(urls, p.AnalysisURL)
		}
	}

	maxTokens := 4096
	return &gateway.Request{
		Provider: w.provider,
		Body: gateway.Body{
			Contents:  []gateway.Content{{Role: "user", Parts: parts}},
			ImageURLs: urls,
			GenerationConfig: &gateway.GenerationConfig{
				MaxOutputTokens:  &maxTokens,
				ResponseMIMEType: "application/json",
			},
		},
	}
}

// GenerateBio writes the first bio for the session.
func (w *Wizard) GenerateBio(ctx context.Context, sess *Session, settings bio.Settings) error {
	text, err := w.bios.Generate(ctx, sess.Answers, sess.Picks, settings)
	if err != nil {
		return err
	}
	sess.Bio = text
	sess.BioSettings = settings
	return nil
}

// RegenerateBio replaces the bio with a different take, retrying once if the
// model echoes the old text.
func (w *Wizard) RegenerateBio(ctx context.Context, sess *Session, settings bio.Settings) error {
	if sess.Bio == "" {
		return w.GenerateBio(ctx, sess, settings)
	}
	text, err := w.bios.Regenerate(ctx, sess.Answers, sess.Picks, settings, sess.Bio)
	if err != nil {
		return err
	}
	sess.Bio = text
	sess.BioSettings = settings
	return nil
}

// RefineBio applies one chat instruction against the session's refinement
// budget.
func (w *Wizard) RefineBio(ctx context.Context, sess *Session, instruction string) error {
	text, err := w.bios.Refine(ctx, &sess.Refinements, sess.Answers, sess.Bio, instruction)
	if err != nil {
		return err
	}
	sess.Bio = text
	return nil
}

// EnhanceOutcome reports enhancement for one picked photo.
type EnhanceOutcome struct {
	Photo *selection.Photo
	Err   error
}

// EnhancePicks attaches enhanced-delivery URLs to the picked photos. This is
// best-effort and per-photo: inline-pipeline photos have no CDN identity to
// enhance, and one failure never blocks the rest.
func (w *Wizard) EnhancePicks(sess *Session) []EnhanceOutcome {
	outcomes := make([]EnhanceOutcome, 0, len(sess.Picks))
	for _, pick := range sess.Picks {
		o := EnhanceOutcome{Photo: pick.Photo}
		if pick.Photo.URL == "" {
			o.Err = fmt.Errorf("%s was submitted inline and has no CDN copy to enhance", pick.Photo.Filename)
		} else {
			pick.Photo.EnhancedURL = cloudinary.EnhanceURL(pick.Photo.URL)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}
