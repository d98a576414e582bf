package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/magify/flame-enhancer/internal/cloudinary"
	"github.com/magify/flame-enhancer/internal/gateway"
	"github.com/magify/flame-enhancer/internal/metrics"
)

// maxRequestBody caps the decoded relay request. Inline-pipeline batches can
// approach the platform ceiling, so this sits just above it.
const maxRequestBody = 6 << 20

// handleGenerate serves POST /api/generate: the provider-normalizing relay.
func handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req gateway.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if len(req.Body.Contents) == 0 && len(req.Body.ImageURLs) == 0 {
		httpError(w, http.StatusBadRequest, "request has no contents")
		return
	}

	start := time.Now()
	resp, err := svc.Generate(r.Context(), &req)
	elapsed := time.Since(start)

	m := metrics.New().
		Dimension("Endpoint", "generate").
		Millis("RequestLatencyMs", elapsed).
		Count("Requests")
	defer m.Flush()

	if err != nil {
		m.Count("RequestErrors")
		var ve *gateway.VendorError
		if errors.As(err, &ve) {
			// The vendor's own verdict passes through untouched.
			httpError(w, ve.Status, ve.Message)
			return
		}
		httpError(w, http.StatusBadGateway, "the AI service is temporarily unavailable, please try again", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// handleSignature serves GET /api/cloudinary-signature. A 503 is the
// deliberate "no CDN here" signal that routes clients to the inline
// pipeline; it must stay distinguishable from real failures.
func handleSignature(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	sig, err := cloudinary.IssueSignature(cfg.Cloudinary, time.Now())
	if errors.Is(err, cloudinary.ErrNotConfigured) {
		httpError(w, http.StatusServiceUnavailable, "image uploads are not configured")
		return
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to create upload signature", err.Error())
		return
	}

	log.Debug().Str("cloud", sig.CloudName).Msg("Issued upload signature")
	respondJSON(w, http.StatusOK, sig)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "flame-enhancer-gateway",
	})
}
