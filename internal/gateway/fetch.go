package gateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	// fetchTimeout bounds each individual image download.
	fetchTimeout = 15 * time.Second

	// maxFetchBytes caps a single fetched image. Analysis variants are
	// megabyte-scale; anything larger is a misdirected URL.
	maxFetchBytes = 20 << 20

	// fetchConcurrency bounds the download fan-out per request.
	fetchConcurrency = 4
)

// ImageFetcher resolves client-supplied image URLs into inline parts so both
// vendor adapters work from bytes. Vendors never see the URLs.
type ImageFetcher struct {
	http *http.Client
}

// NewImageFetcher builds a fetcher. A nil client gets a default with sane
// timeouts.
func NewImageFetcher(client *http.Client) *ImageFetcher {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	return &ImageFetcher{http: client}
}

// Fetch downloads all URLs concurrently and returns inline parts in URL
// order. Any single failure fails the whole resolution; a request that names
// an image it cannot provide must not reach the vendor partially sighted.
func (f *ImageFetcher) Fetch(ctx context.Context, urls []string) ([]Part, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	parts := make([]Part, len(urls))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)

	start := time.Now()
	for i, url := range urls {
		g.Go(func() error {
			part, err := f.fetchOne(ctx, url)
			if err != nil {
				return err
			}
			parts[i] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Debug().
		Int("images", len(urls)).
		Dur("elapsed", time.Since(start)).
		Msg("Resolved image URLs to inline data")
	return parts, nil
}

func (f *ImageFetcher) fetchOne(ctx context.Context, url string) (Part, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Part{}, fmt.Errorf("building image fetch request: %w", err)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return Part{}, fmt.Errorf("fetching image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Part{}, fmt.Errorf("fetching image: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes+1))
	if err != nil {
		return Part{}, fmt.Errorf("reading image body: %w", err)
	}
	if len(data) > maxFetchBytes {
		return Part{}, fmt.Errorf("image exceeds %d byte fetch limit", maxFetchBytes)
	}
	if len(data) == 0 {
		return Part{}, fmt.Errorf("image fetch returned an empty body")
	}

	mime := resp.Header.Get("Content-Type")
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(data)
	}

	return Part{InlineData: &InlineData{
		MIMEType: mime,
		Data:     base64.StdEncoding.EncodeToString(data),
	}}, nil
}

// resolveImages appends fetched parts to the last user content. A body with
// imageUrls but no contents gets a synthetic user turn.
func resolveImages(ctx context.Context, fetcher *ImageFetcher, body *Body) error {
	if len(body.ImageURLs) == 0 {
		return nil
	}

	parts, err := fetcher.Fetch(ctx, body.ImageURLs)
	if err != nil {
		return err
	}

	for i := len(body.Contents) - 1; i >= 0; i-- {
		if body.Contents[i].Role == "" || body.Contents[i].Role == "user" {
			body.Contents[i].Parts = append(body.Contents[i].Parts, parts...)
			body.ImageURLs = nil
			return nil
		}
	}
	body.Contents = append(body.Contents, Content{Role: "user", Parts: parts})
	body.ImageURLs = nil
	return nil
}
