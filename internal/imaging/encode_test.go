package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 7), uint8(y * 13), uint8((x + y) * 3), 255})
		}
	}
	return img
}

// sizeModel is a deterministic stand-in for JPEG encoding: output size is
// proportional to pixel count times quality.
func sizeModel(img image.Image, quality float64) ([]byte, error) {
	b := img.Bounds()
	n := int(float64(b.Dx()*b.Dy()) * quality / 10)
	return make([]byte, n), nil
}

func TestEncodeToTarget(t *testing.T) {
	base := Target{
		MaxDimension:   1000,
		MinDimension:   100,
		InitialQuality: 0.8,
		MinQuality:     0.4,
	}

	t.Run("fits at initial settings", func(t *testing.T) {
		tgt := base
		tgt.TargetBytes = 1 << 20
		got, err := EncodeToTarget(testImage(1000, 500), tgt, sizeModel)
		if err != nil {
			t.Fatalf("EncodeToTarget error: %v", err)
		}
		if !got.Fit {
			t.Error("want Fit=true")
		}
		if got.Width != 1000 || got.Height != 500 {
			t.Errorf("dimensions = %dx%d, want 1000x500", got.Width, got.Height)
		}
		if got.Quality != 0.8 {
			t.Errorf("quality = %v, want 0.8", got.Quality)
		}
	})

	t.Run("quality drops before dimensions", func(t *testing.T) {
		tgt := base
		// 1000x500 at q=0.8 is 40000 under the model; q=0.73 gives 36500.
		tgt.TargetBytes = 37000
		got, err := EncodeToTarget(testImage(1000, 500), tgt, sizeModel)
		if err != nil {
			t.Fatalf("EncodeToTarget error: %v", err)
		}
		if !got.Fit {
			t.Error("want Fit=true")
		}
		if got.Width != 1000 {
			t.Errorf("width = %d, want no dimension shrink", got.Width)
		}
		if got.Quality >= 0.8 {
			t.Errorf("quality = %v, want below initial", got.Quality)
		}
	})

	t.Run("dimensions shrink when quality floor insufficient", func(t *testing.T) {
		tgt := base
		tgt.TargetBytes = 10000
		got, err := EncodeToTarget(testImage(1000, 1000), tgt, sizeModel)
		if err != nil {
			t.Fatalf("EncodeToTarget error: %v", err)
		}
		if !got.Fit {
			t.Error("want Fit=true")
		}
		if got.Width >= 1000 {
			t.Errorf("width = %d, want shrunk", got.Width)
		}
		if len(got.Data) > tgt.TargetBytes {
			t.Errorf("size = %d, want <= %d", len(got.Data), tgt.TargetBytes)
		}
	})

	t.Run("graceful degradation at both floors", func(t *testing.T) {
		tgt := base
		tgt.TargetBytes = 1 // unreachable
		got, err := EncodeToTarget(testImage(1000, 1000), tgt, sizeModel)
		if err != nil {
			t.Fatalf("EncodeToTarget error: %v", err)
		}
		if got.Fit {
			t.Error("want Fit=false when budget unreachable")
		}
		if got.Width != tgt.MinDimension {
			t.Errorf("width = %d, want floor %d", got.Width, tgt.MinDimension)
		}
		if got.Quality > tgt.MinQuality {
			t.Errorf("quality = %v, want floor %v", got.Quality, tgt.MinQuality)
		}
	})

	t.Run("source never upscaled", func(t *testing.T) {
		tgt := base
		tgt.TargetBytes = 1 << 20
		got, err := EncodeToTarget(testImage(50, 40), tgt, sizeModel)
		if err != nil {
			t.Fatalf("EncodeToTarget error: %v", err)
		}
		if got.Width != 50 || got.Height != 40 {
			t.Errorf("dimensions = %dx%d, want original 50x40", got.Width, got.Height)
		}
	})

	t.Run("encode failure propagates", func(t *testing.T) {
		tgt := base
		tgt.TargetBytes = 100
		boom := errors.New("boom")
		_, err := EncodeToTarget(testImage(200, 200), tgt, func(image.Image, float64) ([]byte, error) {
			return nil, boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("err = %v, want boom", err)
		}
	})

	t.Run("invalid target rejected", func(t *testing.T) {
		if _, err := EncodeToTarget(testImage(10, 10), Target{}, sizeModel); err == nil {
			t.Fatal("want error for zero TargetBytes")
		}
	})

	t.Run("real jpeg encoder fits", func(t *testing.T) {
		tgt := base
		tgt.TargetBytes = 30_000
		got, err := EncodeToTarget(testImage(800, 600), tgt, EncodeJPEG)
		if err != nil {
			t.Fatalf("EncodeToTarget error: %v", err)
		}
		if !got.Fit {
			t.Fatalf("want fit, got %d bytes", len(got.Data))
		}
		if _, err := jpeg.Decode(bytes.NewReader(got.Data)); err != nil {
			t.Errorf("output is not valid JPEG: %v", err)
		}
	})
}

func TestScaleToFit(t *testing.T) {
	tests := []struct {
		w, h, maxDim int
		wantW, wantH int
	}{
		{1000, 500, 400, 400, 200},
		{500, 1000, 400, 200, 400},
		{300, 300, 400, 300, 300},
		{400, 400, 400, 400, 400},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%dx%d_max%d", tt.w, tt.h, tt.maxDim), func(t *testing.T) {
			got := ScaleToFit(testImage(tt.w, tt.h), tt.maxDim)
			b := got.Bounds()
			if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("scaled to %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	ctx := context.Background()

	t.Run("png via native path", func(t *testing.T) {
		var buf bytes.Buffer
		if err := png.Encode(&buf, testImage(20, 20)); err != nil {
			t.Fatal(err)
		}
		img, err := Decode(ctx, buf.Bytes(), "a.png")
		if err != nil {
			t.Fatalf("Decode error: %v", err)
		}
		if img.Bounds().Dx() != 20 {
			t.Errorf("width = %d, want 20", img.Bounds().Dx())
		}
	})

	t.Run("jpeg with lying extension", func(t *testing.T) {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, testImage(20, 20), nil); err != nil {
			t.Fatal(err)
		}
		if _, err := Decode(ctx, buf.Bytes(), "actually-jpeg.png"); err != nil {
			t.Fatalf("Decode error: %v", err)
		}
	})

	t.Run("heic fails fast", func(t *testing.T) {
		_, err := Decode(ctx, ftypHeader("heic"), "IMG_1.heic")
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
		}
	})

	t.Run("garbage exhausts all strategies", func(t *testing.T) {
		if _, err := Decode(ctx, []byte("definitely not image bytes here"), "bad.jpg"); err == nil {
			t.Fatal("want error for undecodable bytes")
		}
	})
}
