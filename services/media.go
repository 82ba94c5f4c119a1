package services

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"meli_scrooper/models"
)

// Uploader stores a blob under key. storage.S3Uploader satisfies it.
type Uploader interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string) error
	Key(listingCode, runKey, ext string) string
}

// MediaService archives the optional screenshot and HTML captured on a run.
type MediaService struct {
	uploader Uploader
}

func NewMediaService(uploader Uploader) *MediaService {
	return &MediaService{uploader: uploader}
}

// Archive uploads whatever payloads meta carries and records their keys on it.
func (s *MediaService) Archive(ctx context.Context, listingCode, runKey string, meta *models.ScrapeMeta) error {
	if len(meta.Screenshot) > 0 {
		key := s.uploader.Key(listingCode, runKey, "png")
		if err := s.uploader.Upload(ctx, key, bytes.NewReader(meta.Screenshot), "image/png"); err != nil {
			return fmt.Errorf("upload screenshot: %w", err)
		}
		meta.ScreenshotKey = key
	}

	if meta.HTML != "" {
		key := s.uploader.Key(listingCode, runKey, "html")
		if err := s.uploader.Upload(ctx, key, bytes.NewReader([]byte(meta.HTML)), "text/html; charset=utf-8"); err != nil {
			return fmt.Errorf("upload html: %w", err)
		}
		meta.HTMLKey = key
	}
	return nil
}
