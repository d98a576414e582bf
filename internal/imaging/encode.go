package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
)

// Search step defaults. Quality drops in coarse steps because JPEG size
// responds roughly linearly to quality in the useful range; dimensions shrink
// by a larger factor because size responds quadratically to them.
const (
	DefaultQualityStep    = 0.07
	DefaultDimensionScale = 0.85
)

// Target describes the envelope an encoded photo must fit.
type Target struct {
	// TargetBytes is the byte budget for the encoded JPEG.
	TargetBytes int

	// MaxDimension caps the longest side before the search starts;
	// MinDimension is the floor below which dimensions never shrink.
	MaxDimension int
	MinDimension int

	// InitialQuality and MinQuality bound the JPEG quality sweep, in [0, 1].
	InitialQuality float64
	MinQuality     float64

	// QualityStep and DimensionScale override the search steps when
	// non-zero. Zero means the defaults above.
	QualityStep    float64
	DimensionScale float64
}

// Encoded is the outcome of a target-seeking encode.
type Encoded struct {
	Data    []byte
	Width   int
	Height  int
	Quality float64

	// Fit is false when the search bottomed out at MinDimension/MinQuality
	// without reaching TargetBytes and the last attempt was accepted anyway.
	Fit bool
}

// EncodeFunc serializes an image at a quality in [0, 1]. The search is pure
// over this function, which keeps the loop deterministic under test.
type EncodeFunc func(img image.Image, quality float64) ([]byte, error)

// EncodeJPEG is the production EncodeFunc.
func EncodeJPEG(img image.Image, quality float64) ([]byte, error) {
	var buf bytes.Buffer
	q := int(quality*100 + 0.5)
	if q < 1 {
		q = 1
	}
	if q > 100 {
		q = 100
	}
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeToTarget re-encodes img until it fits t.TargetBytes, sweeping quality
// downward at each dimension tier before shrinking dimensions. The first
// encoding at or under budget wins. When both floors are reached the last
// encoding is returned with Fit=false rather than failing; the caller's
// budgeter decides whether that is acceptable. The source image is never
// modified.
func EncodeToTarget(img image.Image, t Target, encode EncodeFunc) (*Encoded, error) {
	if t.TargetBytes <= 0 {
		return nil, fmt.Errorf("target bytes must be positive, got %d", t.TargetBytes)
	}
	qStep := t.QualityStep
	if qStep <= 0 {
		qStep = DefaultQualityStep
	}
	dScale := t.DimensionScale
	if dScale <= 0 || dScale >= 1 {
		dScale = DefaultDimensionScale
	}

	var last *Encoded
	dim := t.MaxDimension
	for {
		scaled := ScaleToFit(img, dim)
		w, h := scaled.Bounds().Dx(), scaled.Bounds().Dy()

		q := t.InitialQuality
		for {
			data, err := encode(scaled, q)
			if err != nil {
				return nil, err
			}
			last = &Encoded{Data: data, Width: w, Height: h, Quality: q}
			if len(data) <= t.TargetBytes {
				last.Fit = true
				return last, nil
			}
			if q <= t.MinQuality {
				break
			}
			q -= qStep
			if q < t.MinQuality {
				q = t.MinQuality
			}
		}

		if dim <= t.MinDimension {
			log.Debug().
				Int("size", len(last.Data)).
				Int("target", t.TargetBytes).
				Int("dimension", dim).
				Msg("Encode search exhausted, accepting oversized result")
			return last, nil
		}
		dim = int(float64(dim) * dScale)
		if dim < t.MinDimension {
			dim = t.MinDimension
		}
	}
}

// ScaleToFit returns img scaled so its longest side is at most maxDimension,
// preserving aspect ratio. Images already within bounds are returned as-is.
func ScaleToFit(img image.Image, maxDimension int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDimension && h <= maxDimension {
		return img
	}

	nw, nh := fitDimensions(w, h, maxDimension)
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func fitDimensions(width, height, maxDimension int) (int, int) {
	if width <= maxDimension && height <= maxDimension {
		return width, height
	}
	if width > height {
		return maxDimension, max(1, int(float64(height)*float64(maxDimension)/float64(width)))
	}
	return max(1, int(float64(width)*float64(maxDimension)/float64(height))), maxDimension
}
