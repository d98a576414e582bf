package imaging

import (
	"errors"
	"testing"
)

// ftypHeader builds a minimal ISO BMFF header with the given major brand.
func ftypHeader(brand string) []byte {
	data := []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p'}
	data = append(data, []byte(brand)...)
	return append(data, make([]byte, 8)...)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{"jpeg", append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, make([]byte, 12)...), FormatJPEG},
		{"png", append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, 8)...), FormatPNG},
		{"gif89", append([]byte("GIF89a"), make([]byte, 8)...), FormatGIF},
		{"gif87", append([]byte("GIF87a"), make([]byte, 8)...), FormatGIF},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), FormatWebP},
		{"heic", ftypHeader("heic"), FormatHEIC},
		{"heif mif1", ftypHeader("mif1"), FormatHEIC},
		{"heic sequence", ftypHeader("hevc"), FormatHEIC},
		{"avif", ftypHeader("avif"), FormatAVIF},
		{"avif sequence", ftypHeader("avis"), FormatAVIF},
		{"mp4 is not heic", ftypHeader("isom"), FormatUnknown},
		{"garbage", []byte("this is not an image at all"), FormatUnknown},
		{"too short", []byte{0xFF, 0xD8}, FormatUnknown},
		{"empty", nil, FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFormat(tt.data); got != tt.want {
				t.Errorf("DetectFormat = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCheckSupported(t *testing.T) {
	t.Run("heic rejected with hint", func(t *testing.T) {
		err := checkSupported(FormatHEIC, "IMG_0042.heic")
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
		}
	})

	t.Run("avif rejected", func(t *testing.T) {
		if err := checkSupported(FormatAVIF, "x.avif"); !errors.Is(err, ErrUnsupportedFormat) {
			t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
		}
	})

	t.Run("jpeg allowed", func(t *testing.T) {
		if err := checkSupported(FormatJPEG, "a.jpg"); err != nil {
			t.Fatalf("err = %v, want nil", err)
		}
	})

	t.Run("unknown passes through to decode", func(t *testing.T) {
		if err := checkSupported(FormatUnknown, "mystery"); err != nil {
			t.Fatalf("err = %v, want nil", err)
		}
	})
}
