// Package imaging converts arbitrary user photos into JPEG payloads that fit
// a byte budget. Format detection reads container signatures, never file
// extensions or client-reported MIME types, because phone photo libraries
// routinely mislabel both.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
)

// Format is a sniffed image container format.
type Format string

const (
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatGIF     Format = "gif"
	FormatWebP    Format = "webp"
	FormatHEIC    Format = "heic"
	FormatAVIF    Format = "avif"
	FormatUnknown Format = "unknown"
)

// ErrUnsupportedFormat marks formats that are detected but cannot be decoded
// in pure Go (HEIC/HEIF/AVIF). Callers surface the remediation hint from the
// wrapping error to the user.
var ErrUnsupportedFormat = errors.New("unsupported image format")

var (
	pngMagic  = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	gif87     = []byte("GIF87a")
	gif89     = []byte("GIF89a")
	riffMagic = []byte("RIFF")
	webpTag   = []byte("WEBP")
)

// heicBrands are the ISO BMFF ftyp major brands used by HEIC/HEIF containers.
var heicBrands = map[string]bool{
	"heic": true, "heix": true, "heim": true, "heis": true,
	"hevc": true, "hevx": true, "hevm": true, "hevs": true,
	"mif1": true, "msf1": true,
}

// avifBrands are the ftyp major brands for AVIF stills and sequences.
var avifBrands = map[string]bool{"avif": true, "avis": true}

// DetectFormat sniffs the container format from the first bytes of data.
func DetectFormat(data []byte) Format {
	if len(data) < 12 {
		return FormatUnknown
	}

	switch {
	case data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return FormatJPEG
	case bytes.HasPrefix(data, pngMagic):
		return FormatPNG
	case bytes.HasPrefix(data, gif87) || bytes.HasPrefix(data, gif89):
		return FormatGIF
	case bytes.HasPrefix(data, riffMagic) && bytes.Equal(data[8:12], webpTag):
		return FormatWebP
	}

	// ISO BMFF: box size (4 bytes), "ftyp", then the major brand.
	if bytes.Equal(data[4:8], []byte("ftyp")) {
		brand := string(data[8:12])
		if heicBrands[brand] {
			return FormatHEIC
		}
		if avifBrands[brand] {
			return FormatAVIF
		}
	}

	return FormatUnknown
}

// checkSupported rejects sniffed-but-undecodable formats with a descriptive
// error before any decode attempt is made.
func checkSupported(format Format, filename string) error {
	switch format {
	case FormatHEIC:
		return fmt.Errorf("%w: %s is a HEIC/HEIF photo; export it as JPEG from your photo app and try again", ErrUnsupportedFormat, filename)
	case FormatAVIF:
		return fmt.Errorf("%w: %s is an AVIF photo; convert it to JPEG and try again", ErrUnsupportedFormat, filename)
	}
	return nil
}
