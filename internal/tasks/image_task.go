package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"
	"go.uber.org/zap"

	"yuva/server/internal/storage"
)

// HandleImageNormalizeTask shrinks an uploaded listing photo that exceeds the
// configured dimension and writes it back under the same key as JPEG, so the
// listing's image URL stays valid.
func (p *TaskProcessor) HandleImageNormalizeTask(ctx context.Context, t *asynq.Task) error {
	var payload ImageNormalizePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal image task payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.images == nil {
		p.logger.Warn("Image storage not configured, dropping task", zap.String("key", payload.Key))
		return nil
	}
	log := p.logger.With(zap.String("key", payload.Key), zap.String("listing_id", payload.ListingID))

	data, _, err := p.images.GetObject(ctx, payload.Key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		// Upload never completed.
		return fmt.Errorf("image %s not found: %w", payload.Key, asynq.SkipRetry)
	}
	if err != nil {
		return err
	}

	maxBytes := p.cfg.ImageMaxSizeMB * 1024 * 1024
	if len(data) > maxBytes {
		return fmt.Errorf("image %s is %d bytes, over the %d limit: %w", payload.Key, len(data), maxBytes, asynq.SkipRetry)
	}

	out, resized, err := normalizeImage(data, uint(p.cfg.ImageMaxDimension))
	if err != nil {
		return fmt.Errorf("image %s: %v: %w", payload.Key, err, asynq.SkipRetry)
	}
	if !resized {
		log.Debug("Image within limits")
		return nil
	}

	if err := p.images.PutObject(ctx, payload.Key, out, "image/jpeg"); err != nil {
		return err
	}
	log.Info("Image normalized", zap.Int("bytes_before", len(data)), zap.Int("bytes_after", len(out)))
	return nil
}

// normalizeImage fits data within maxDim x maxDim. It reports false and
// returns nil when the image is already small enough.
func normalizeImage(data []byte, maxDim uint) ([]byte, bool, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("unsupported or corrupt image: %w", err)
	}
	b := img.Bounds()
	if uint(b.Dx()) <= maxDim && uint(b.Dy()) <= maxDim {
		return nil, false, nil
	}

	thumb := resize.Thumbnail(maxDim, maxDim, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 85}); err != nil {
		return nil, false, fmt.Errorf("failed to encode resized image: %w", err)
	}
	return buf.Bytes(), true, nil
}
