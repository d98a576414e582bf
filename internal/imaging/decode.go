package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/webp"
)

// DefaultDecodeTimeout bounds each individual decode strategy. A corrupt file
// must not stall the whole batch.
const DefaultDecodeTimeout = 10 * time.Second

// Decode turns raw photo bytes into an image, trying progressively more
// forgiving strategies:
//
//  1. the native decoder for the sniffed format
//  2. the generic registered-decoder path, which keys off content and
//     rescues files whose extension lies about their format
//  3. lenient reinterpretation as JPEG, for camera files with unusual
//     leading bytes
//
// Each strategy runs under its own timeout. HEIC/HEIF/AVIF files are
// rejected up front with a conversion hint; no decode is attempted.
func Decode(ctx context.Context, data []byte, filename string) (image.Image, error) {
	format := DetectFormat(data)
	if err := checkSupported(format, filename); err != nil {
		return nil, err
	}

	strategies := []struct {
		name string
		fn   func() (image.Image, error)
	}{
		{"native", func() (image.Image, error) { return decodeNative(data, format) }},
		{"generic", func() (image.Image, error) {
			img, _, err := image.Decode(bytes.NewReader(data))
			return img, err
		}},
		{"lenient-jpeg", func() (image.Image, error) { return jpeg.Decode(bytes.NewReader(data)) }},
	}

	var lastErr error
	for _, s := range strategies {
		img, err := runDecode(ctx, DefaultDecodeTimeout, s.fn)
		if err == nil {
			log.Debug().
				Str("file", filename).
				Str("format", string(format)).
				Str("strategy", s.name).
				Msg("Image decoded")
			return img, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Debug().
			Str("file", filename).
			Str("strategy", s.name).
			Err(err).
			Msg("Decode strategy failed, trying next")
	}

	return nil, fmt.Errorf("could not decode %s (%s): %w", filename, format, lastErr)
}

func decodeNative(data []byte, format Format) (image.Image, error) {
	r := bytes.NewReader(data)
	switch format {
	case FormatJPEG:
		return jpeg.Decode(r)
	case FormatPNG:
		return png.Decode(r)
	case FormatGIF:
		return gif.Decode(r)
	case FormatWebP:
		return webp.Decode(r)
	default:
		return nil, fmt.Errorf("no native decoder for format %q", format)
	}
}

// runDecode executes fn under a timeout. The decoder goroutine is left to
// finish in the background on timeout; the buffered channel keeps it from
// blocking forever.
func runDecode(ctx context.Context, timeout time.Duration, fn func() (image.Image, error)) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		img image.Image
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{nil, fmt.Errorf("decoder panic: %v", r)}
			}
		}()
		img, err := fn()
		ch <- result{img, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("decode timed out: %w", ctx.Err())
	case r := <-ch:
		return r.img, r.err
	}
}
