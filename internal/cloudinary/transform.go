package cloudinary

import (
	"fmt"
	"strings"
)

// EnhanceChain is the transformation applied to selected photos for the final
// profile: AI enhancement, maximum improvement, automatic quality and format.
const EnhanceChain = "e_enhance,e_improve:100,q_auto,f_auto"

// Transform inserts a transformation segment into a Cloudinary delivery URL,
// directly after the /upload/ path element. URLs without that element are
// returned unchanged; there is nowhere to put the transformation.
func Transform(url, transformation string) string {
	const marker = "/upload/"
	i := strings.Index(url, marker)
	if i == -1 || transformation == "" {
		return url
	}
	return url[:i+len(marker)] + transformation + "/" + url[i+len(marker):]
}

// EnhanceURL returns the enhanced-delivery variant of an uploaded photo.
func EnhanceURL(url string) string {
	return Transform(url, EnhanceChain)
}

// AnalysisURL returns a lightweight JPEG variant sized for LLM analysis.
// Eco quality keeps vendor-side fetches fast without visibly degrading the
// content the model needs to judge.
func AnalysisURL(url string, width int) string {
	return Transform(url, fmt.Sprintf("w_%d,q_auto:eco,f_jpg", width))
}
