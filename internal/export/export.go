// Package export optionally copies a finished profile bundle to S3 and hands
// back a presigned download link. Export is a convenience on top of the local
// bundle, never a requirement; an unconfigured bucket simply disables it.
package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// DefaultLinkTTL is how long the download link stays valid.
const DefaultLinkTTL = 24 * time.Hour

// Exporter uploads bundles and presigns download URLs.
type Exporter struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
}

// New builds an Exporter for bucket. Returns nil when bucket is empty, which
// callers treat as export disabled.
func New(client *s3.Client, bucket string) *Exporter {
	if bucket == "" {
		return nil
	}
	return &Exporter{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
	}
}

// Upload stores a bundle under sessions/<sessionID>/profile.zip and returns
// a presigned GET link valid for DefaultLinkTTL.
func (e *Exporter) Upload(ctx context.Context, sessionID string, bundle []byte) (string, error) {
	key := fmt.Sprintf("sessions/%s/profile.zip", sessionID)
	contentType := "application/zip"

	start := time.Now()
	_, err := e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &e.bucket,
		Key:         &key,
		Body:        bytes.NewReader(bundle),
		ContentType: &contentType,
	})
	if err != nil {
		return "", fmt.Errorf("uploading bundle to S3: %w", err)
	}

	presigned, err := e.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &e.bucket,
		Key:    &key,
	}, func(opts *s3.PresignOptions) {
		opts.Expires = DefaultLinkTTL
	})
	if err != nil {
		return "", fmt.Errorf("presigning bundle link: %w", err)
	}

	log.Info().
		Str("key", key).
		Int("bytes", len(bundle)).
		Dur("elapsed", time.Since(start)).
		Msg("Profile bundle exported to S3")
	return presigned.URL, nil
}
