package imaging

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
)

// CaptureContext is the EXIF slice that is useful to a photo-selection
// prompt: when the photo was taken and on what camera. Everything else
// (GPS in particular) is deliberately not extracted.
type CaptureContext struct {
	Taken       time.Time
	HasDate     bool
	CameraMake  string
	CameraModel string
}

// ExtractCaptureContext reads EXIF metadata from raw photo bytes. Photos
// without usable metadata return a zero CaptureContext and no error; EXIF is
// an enrichment, never a requirement.
func ExtractCaptureContext(data []byte) CaptureContext {
	var cc CaptureContext

	exif, err := imagemeta.Decode(bytes.NewReader(data))
	if err != nil {
		return cc
	}

	switch {
	case !exif.DateTimeOriginal().IsZero():
		cc.Taken, cc.HasDate = exif.DateTimeOriginal(), true
	case !exif.CreateDate().IsZero():
		cc.Taken, cc.HasDate = exif.CreateDate(), true
	}

	cc.CameraMake = strings.TrimSpace(exif.Make)
	cc.CameraModel = strings.TrimSpace(exif.Model)
	return cc
}

// PromptLine renders the context as a short parenthetical for inclusion after
// a photo reference in a prompt, or "" when nothing useful was extracted.
func (c CaptureContext) PromptLine() string {
	var parts []string
	if c.HasDate {
		parts = append(parts, "taken "+c.Taken.Format("January 2006"))
	}
	if c.CameraMake != "" || c.CameraModel != "" {
		parts = append(parts, strings.TrimSpace(c.CameraMake+" "+c.CameraModel))
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, ", "))
}
