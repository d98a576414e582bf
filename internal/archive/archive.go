// Package archive bundles the finished profile (bio plus selected photos)
// into a ZIP the user can take anywhere.
package archive

import (
	"archive/zip"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/rs/zerolog/log"
)

// BioFilename is the bio's entry name inside the bundle.
const BioFilename = "bio.txt"

// Item is one photo going into the bundle.
type Item struct {
	Name string
	Data []byte
}

// Write streams a profile bundle to w. The bio is deflated; photos are
// stored uncompressed because JPEG does not deflate further. The deflate
// encoder is klauspost's, registered per writer.
func Write(w io.Writer, bio string, items []Item) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	bw, err := zw.CreateHeader(&zip.FileHeader{Name: BioFilename, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("creating %s: %w", BioFilename, err)
	}
	if _, err := bw.Write([]byte(bio)); err != nil {
		return fmt.Errorf("writing %s: %w", BioFilename, err)
	}

	for i, item := range items {
		name := fmt.Sprintf("photos/%02d-%s", i+1, item.Name)
		pw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
		if err != nil {
			return fmt.Errorf("creating %s: %w", name, err)
		}
		if _, err := pw.Write(item.Data); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing bundle: %w", err)
	}

	log.Debug().Int("photos", len(items)).Msg("Profile bundle written")
	return nil
}
