// Package submit turns a pile of local photo files into analysis-ready
// photos, via one of two pipelines. The CDN pipeline uploads every photo and
// hands the model lightweight URL variants; the inline pipeline embeds
// re-encoded bytes directly. The CDN pipeline is always tried first, and the
// only thing that routes a session to the inline pipeline is the CDN being
// unconfigured. Real upload failures stay failures.
package submit

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/magify/flame-enhancer/internal/cloudinary"
	"github.com/magify/flame-enhancer/internal/imaging"
	"github.com/magify/flame-enhancer/internal/payload"
	"github.com/magify/flame-enhancer/internal/selection"
)

// DefaultAnalysisWidth is the width of the CDN variant served to the model.
const DefaultAnalysisWidth = 1024

// File is one photo as read from the user's device.
type File struct {
	Name string
	Data []byte
}

// ProgressFunc receives submission progress in [0, 1]. Progress is monotonic
// and driven by completed photos.
type ProgressFunc func(fraction float64)

// Uploader is the CDN upload surface the pipeline needs.
type Uploader interface {
	Upload(ctx context.Context, filename string, data []byte) (*cloudinary.UploadResult, error)
}

// Result is a submitted batch ready for analysis.
type Result struct {
	Photos []*selection.Photo

	// Inline is true when the batch fell back to the inline pipeline.
	Inline bool
}

// Pipeline performs photo submission. Zero-value fields get defaults from
// NewPipeline.
type Pipeline struct {
	uploader      Uploader
	budget        payload.Budget
	encode        imaging.EncodeFunc
	analysisWidth int
	concurrency   int
}

// NewPipeline builds a submission pipeline around an uploader.
func NewPipeline(uploader Uploader, budget payload.Budget) *Pipeline {
	return &Pipeline{
		uploader:      uploader,
		budget:        budget,
		encode:        imaging.EncodeJPEG,
		analysisWidth: DefaultAnalysisWidth,
		concurrency:   4,
	}
}

// Submit validates, decodes, re-encodes, and routes the batch. All photos
// travel the same pipeline; a batch is never half CDN, half inline.
func (p *Pipeline) Submit(ctx context.Context, files []File, progress ProgressFunc) (*Result, error) {
	if progress == nil {
		progress = func(float64) {}
	}

	for _, f := range files {
		if len(f.Data) == 0 {
			return nil, fmt.Errorf("%s is empty; if it lives in cloud storage, download the original first", f.Name)
		}
	}

	photos, err := p.prepare(ctx, files)
	if err != nil {
		return nil, err
	}

	// Probe the CDN with the first photo. ErrNotConfigured routes the
	// whole batch inline; anything else is a real failure.
	first, err := p.uploader.Upload(ctx, photos[0].Filename, photos[0].Data)
	if errors.Is(err, cloudinary.ErrNotConfigured) {
		log.Info().Int("photos", len(photos)).Msg("CDN not configured, using inline photo pipeline")
		progress(1)
		return &Result{Photos: photos, Inline: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", photos[0].Filename, err)
	}
	p.attachURLs(photos[0], first)

	var completed atomic.Int64
	completed.Store(1)
	progress(float64(1) / float64(len(photos)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, photo := range photos[1:] {
		g.Go(func() error {
			res, err := p.uploader.Upload(gctx, photo.Filename, photo.Data)
			if err != nil {
				return fmt.Errorf("uploading %s: %w", photo.Filename, err)
			}
			p.attachURLs(photo, res)
			progress(float64(completed.Add(1)) / float64(len(photos)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info().Int("photos", len(photos)).Msg("Photo batch uploaded to CDN")
	return &Result{Photos: photos}, nil
}

// prepare decodes every file and re-encodes the batch under the payload
// budget. Results keep input order.
func (p *Pipeline) prepare(ctx context.Context, files []File) ([]*selection.Photo, error) {
	items := make([]payload.Item, len(files))
	contexts := make([]imaging.CaptureContext, len(files))
	for i, f := range files {
		img, err := imaging.Decode(ctx, f.Data, f.Name)
		if err != nil {
			return nil, err
		}
		items[i] = payload.Item{Name: f.Name, Image: img}
		contexts[i] = imaging.ExtractCaptureContext(f.Data)
	}

	encoded, err := payload.EncodeBatch(ctx, items, p.budget, p.encode)
	if err != nil {
		return nil, err
	}

	photos := make([]*selection.Photo, len(files))
	for i, enc := range encoded {
		photos[i] = &selection.Photo{
			ID:       uuid.New(),
			Filename: files[i].Name,
			Data:     enc.Data,
			MIMEType: "image/jpeg",
			Context:  contexts[i],
		}
	}
	return photos, nil
}

func (p *Pipeline) attachURLs(photo *selection.Photo, res *cloudinary.UploadResult) {
	photo.URL = res.SecureURL
	photo.AnalysisURL = cloudinary.AnalysisURL(res.SecureURL, p.analysisWidth)
}
