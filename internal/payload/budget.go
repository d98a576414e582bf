// Package payload sizes a batch of photos so the serialized analysis request
// stays under the hosting platform's body ceiling. Budgets are derived from
// the batch size before any encoding starts, then tightened over bounded
// retry rounds if the projection still overshoots.
package payload

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/magify/flame-enhancer/internal/imaging"
)

// ErrOversize is returned only after every retry round is exhausted. The
// wrapping message names the remediation.
var ErrOversize = errors.New("photos exceed the request size limit")

// Budget holds the sizing parameters. All values are tunable configuration;
// DefaultBudget gives the production defaults.
type Budget struct {
	// CeilingBytes is the serialized request ceiling imposed by the host.
	CeilingBytes int

	// StructuralOverhead reserves room for the JSON envelope and prompt
	// text; PerImageOverhead reserves per-photo field overhead.
	StructuralOverhead int
	PerImageOverhead   int

	// FloorBytes and CapBytes clamp the per-image byte target. The floor
	// keeps tiny budgets from producing unusable mush; the cap stops small
	// batches from wasting the whole ceiling on one photo.
	FloorBytes int
	CapBytes   int

	// Retries is the number of tightening rounds after the first attempt.
	// Each round re-encodes every photo from scratch at TargetScale of the
	// previous byte target and DimensionScale of the previous dimension cap.
	Retries        int
	TargetScale    float64
	DimensionScale float64

	// Encoder quality bounds and the absolute dimension floor.
	InitialQuality float64
	MinQuality     float64
	MinDimension   int

	// Concurrency bounds the per-photo encode fan-out. Zero means 4.
	Concurrency int
}

// DefaultBudget returns the production parameters for a ~4.5 MB ceiling.
func DefaultBudget() Budget {
	return Budget{
		CeilingBytes:       4_500_000,
		StructuralOverhead: 60_000,
		PerImageOverhead:   1_500,
		FloorBytes:         60_000,
		CapBytes:           800_000,
		Retries:            4,
		TargetScale:        0.7,
		DimensionScale:     0.75,
		InitialQuality:     0.8,
		MinQuality:         0.4,
		MinDimension:       512,
	}
}

// PerImageTarget computes the clamped byte budget for each of n photos.
func (b Budget) PerImageTarget(n int) int {
	remaining := b.CeilingBytes - b.StructuralOverhead - n*b.PerImageOverhead
	target := remaining / n
	if target < b.FloorBytes {
		return b.FloorBytes
	}
	if target > b.CapBytes {
		return b.CapBytes
	}
	return target
}

// StartingDimension picks the initial longest-side cap for a batch of n.
// Bigger batches start smaller so the first round usually fits.
func (b Budget) StartingDimension(n int) int {
	switch {
	case n <= 6:
		return 1280
	case n <= 12:
		return 1024
	case n <= 20:
		return 896
	default:
		return 768
	}
}

// base64Len is the exact length of the standard base64 encoding of n bytes.
func base64Len(n int) int {
	return 4 * ((n + 2) / 3)
}

// SerializedSize projects the serialized request size for a set of encoded
// photos, accounting for base64 inflation and envelope overheads.
func (b Budget) SerializedSize(encoded []*imaging.Encoded) int {
	total := b.StructuralOverhead
	for _, e := range encoded {
		total += base64Len(len(e.Data)) + b.PerImageOverhead
	}
	return total
}

// Item is one photo awaiting encoding.
type Item struct {
	Name  string
	Image image.Image
}

// EncodeBatch re-encodes every photo to fit the batch under b.CeilingBytes.
// Rounds after the first shrink byte targets and dimension caps; within a
// round photos are encoded concurrently. Returns results in input order.
// After all rounds the batch either fits or the whole operation fails with
// ErrOversize; there are no partial results.
func EncodeBatch(ctx context.Context, items []Item, b Budget, encode imaging.EncodeFunc) ([]*imaging.Encoded, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("no photos to encode")
	}

	perTarget := b.PerImageTarget(len(items))
	dimension := b.StartingDimension(len(items))

	for round := 0; round <= b.Retries; round++ {
		encoded, err := encodeRound(ctx, items, b, perTarget, dimension, encode)
		if err != nil {
			return nil, err
		}

		size := b.SerializedSize(encoded)
		log.Debug().
			Int("round", round).
			Int("photos", len(items)).
			Int("perImageTarget", perTarget).
			Int("dimensionCap", dimension).
			Int("projectedSize", size).
			Int("ceiling", b.CeilingBytes).
			Msg("Payload budgeting round complete")

		if size <= b.CeilingBytes {
			return encoded, nil
		}

		perTarget = int(float64(perTarget) * b.TargetScale)
		if perTarget < b.FloorBytes {
			perTarget = b.FloorBytes
		}
		dimension = int(float64(dimension) * b.DimensionScale)
		if dimension < b.MinDimension {
			dimension = b.MinDimension
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: try fewer or smaller photos", ErrOversize, b.Retries+1)
}

func encodeRound(ctx context.Context, items []Item, b Budget, perTarget, dimension int, encode imaging.EncodeFunc) ([]*imaging.Encoded, error) {
	concurrency := b.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	results := make([]*imaging.Encoded, len(items))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, item := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			enc, err := imaging.EncodeToTarget(item.Image, imaging.Target{
				TargetBytes:    perTarget,
				MaxDimension:   dimension,
				MinDimension:   b.MinDimension,
				InitialQuality: b.InitialQuality,
				MinQuality:     b.MinQuality,
			}, encode)
			if err != nil {
				return fmt.Errorf("encoding %s: %w", item.Name, err)
			}
			results[i] = enc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
