package cloudinary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/magify/flame-enhancer/internal/config"
)

// uploadEndpoint is the Cloudinary image upload API, parameterized by cloud name.
const uploadEndpoint = "https://api.cloudinary.com/v1_1/%s/image/upload"

// Client uploads photos to a Cloudinary account using its unsigned preset.
type Client struct {
	cfg  config.CloudinaryConfig
	http *http.Client

	// baseURL overrides the API host in tests.
	baseURL string
}

// NewClient builds a Client for the given account. A client can always be
// constructed; Upload reports ErrNotConfigured when credentials are missing.
func NewClient(cfg config.CloudinaryConfig) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

// UploadResult is the subset of Cloudinary's upload response the wizard uses.
type UploadResult struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Bytes     int    `json:"bytes"`
}

// Upload sends photo bytes as an unsigned preset upload. Zero-byte payloads
// are rejected before any network call; cloud-placeholder files from phone
// photo libraries arrive as empty reads.
func (c *Client) Upload(ctx context.Context, filename string, data []byte) (*UploadResult, error) {
	if !c.cfg.Configured() {
		return nil, ErrNotConfigured
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s is empty; if it lives in cloud storage, download the original first", filename)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("building upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("building upload form: %w", err)
	}
	if err := mw.WriteField("upload_preset", c.cfg.UploadPreset); err != nil {
		return nil, fmt.Errorf("building upload form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("building upload form: %w", err)
	}

	url := fmt.Sprintf(uploadEndpoint, c.cfg.CloudName)
	if c.baseURL != "" {
		url = c.baseURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("uploading %s: cloudinary returned %d: %s", filename, resp.StatusCode, string(msg))
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding upload response for %s: %w", filename, err)
	}

	log.Debug().
		Str("file", filename).
		Str("publicId", result.PublicID).
		Int("bytes", result.Bytes).
		Dur("elapsed", time.Since(start)).
		Msg("Photo uploaded to CDN")

	return &result, nil
}
