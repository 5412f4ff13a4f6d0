package service

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/enoylitydev/Collabglam-sub004/internal/domain"
	"github.com/enoylitydev/Collabglam-sub004/pkg/log"
	"github.com/enoylitydev/Collabglam-sub004/pkg/storage"
)

const thumbnailMaxEdge = 320

// UploadProcessor stores uploaded files and derives attachment metadata.
// Images additionally get intrinsic dimensions and a JPEG thumbnail.
type UploadProcessor struct {
	store storage.Storage
}

// NewUploadProcessor creates a processor writing to the given storage.
func NewUploadProcessor(store storage.Storage) *UploadProcessor {
	return &UploadProcessor{store: store}
}

// Process stores one upload and returns its attachment record. The MIME
// type is detected from content, never trusted from the client.
func (p *UploadProcessor) Process(ctx context.Context, originalName string, content []byte) (domain.Attachment, error) {
	l := log.Ctx(ctx)

	mt := mimetype.Detect(content)
	key := storedKey(originalName, mt.Extension())

	if err := p.store.Write(ctx, key, bytes.NewReader(content), int64(len(content)), mt.String()); err != nil {
		return domain.Attachment{}, fmt.Errorf("store upload: %w", err)
	}

	fileURL, err := p.store.GetURL(ctx, key)
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("resolve upload url: %w", err)
	}

	att := domain.Attachment{
		URL:          fileURL,
		OriginalName: originalName,
		MimeType:     mt.String(),
		Size:         int64(len(content)),
		Storage:      domain.StorageLocal,
	}

	if strings.HasPrefix(mt.String(), "image/") {
		if err := p.decorateImage(ctx, key, content, &att); err != nil {
			// An undecodable image still ships as a plain attachment.
			l.Warn().Err(err).Str("original_name", originalName).Msg("failed to process image upload")
		}
	}

	l.Debug().
		Str("original_name", originalName).
		Str("mime_type", att.MimeType).
		Int64("size", att.Size).
		Msg("upload processed")
	return att, nil
}

// decorateImage fills width/height and writes a thumbnail next to the
// original.
func (p *UploadProcessor) decorateImage(ctx context.Context, key string, content []byte, att *domain.Attachment) error {
	img, err := imaging.Decode(bytes.NewReader(content), imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	att.Width = bounds.Dx()
	att.Height = bounds.Dy()

	thumb := imaging.Fit(img, thumbnailMaxEdge, thumbnailMaxEdge, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return fmt.Errorf("encode thumbnail: %w", err)
	}

	thumbKey := "thumbs/" + strings.TrimSuffix(filepath.Base(key), filepath.Ext(key)) + ".jpg"
	if err := p.store.Write(ctx, thumbKey, &buf, int64(buf.Len()), "image/jpeg"); err != nil {
		return fmt.Errorf("store thumbnail: %w", err)
	}

	thumbURL, err := p.store.GetURL(ctx, thumbKey)
	if err != nil {
		return fmt.Errorf("resolve thumbnail url: %w", err)
	}
	att.ThumbnailURL = thumbURL
	return nil
}

// storedKey builds a collision-free storage key keeping a recognizable
// extension.
func storedKey(originalName, detectedExt string) string {
	ext := filepath.Ext(originalName)
	if ext == "" {
		ext = detectedExt
	}
	return uuid.New().String() + ext
}
