// Package cloudinary talks to the Cloudinary upload API and builds
// transformation URLs. Credentials may be absent; every entry point reports
// that as ErrNotConfigured so callers can route to the inline pipeline
// instead of failing.
package cloudinary

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/magify/flame-enhancer/internal/config"
)

// ErrNotConfigured signals that no CDN account is configured. It is a routing
// signal, distinct from upload failures.
var ErrNotConfigured = errors.New("cloudinary is not configured")

// SignParams produces the Cloudinary api_sign_request signature: parameters
// sorted by key, joined as k=v with &, the API secret appended, SHA-1 hex
// over the whole string. Empty values are skipped, matching the upload API's
// signing rules.
func SignParams(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}

// SignatureResponse is the payload of the signature endpoint. Field names are
// part of the client contract.
type SignatureResponse struct {
	Signature    string `json:"signature"`
	Timestamp    int64  `json:"timestamp"`
	CloudName    string `json:"cloudname"`
	APIKey       string `json:"apikey"`
	UploadPreset string `json:"upload_preset"`
}

// IssueSignature creates a signed-upload grant for the configured preset.
// Returns ErrNotConfigured when the account lacks signing credentials.
func IssueSignature(cfg config.CloudinaryConfig, now time.Time) (*SignatureResponse, error) {
	if !cfg.Signable() {
		return nil, ErrNotConfigured
	}

	ts := now.Unix()
	sig := SignParams(map[string]string{
		"timestamp":     fmt.Sprintf("%d", ts),
		"upload_preset": cfg.UploadPreset,
	}, cfg.APISecret)

	return &SignatureResponse{
		Signature:    sig,
		Timestamp:    ts,
		CloudName:    cfg.CloudName,
		APIKey:       cfg.APIKey,
		UploadPreset: cfg.UploadPreset,
	}, nil
}
