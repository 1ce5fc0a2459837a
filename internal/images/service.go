package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"wheelcity-backend/internal/metrics"
	"wheelcity-backend/internal/storage/object"
	"wheelcity-backend/internal/telemetry"
	"wheelcity-backend/internal/util"
)

// AnalysisPurger removes analysis rows for an image and reports the region
// storage keys that should be deleted alongside the original object.
type AnalysisPurger interface {
	PurgeByImage(ctx context.Context, imageID string) (regionKeys []string, err error)
}

// Service contains business logic for image uploads and metadata.
type Service struct {
	Store  object.ObjectStore
	Repo   Repo
	Purger AnalysisPurger

	presignTTL time.Duration
	presigned  *cache.Cache
}

// NewService constructs a Service. presignTTL bounds the lifetime of minted
// GET URLs; URLs are cached for half of it so a cached URL stays valid.
func NewService(store object.ObjectStore, repo Repo, presignTTL time.Duration) *Service {
	if presignTTL <= 0 {
		presignTTL = 15 * time.Minute
	}
	return &Service{
		Store:      store,
		Repo:       repo,
		presignTTL: presignTTL,
		presigned:  cache.New(presignTTL/2, presignTTL),
	}
}

// UploadInput carries one multipart upload.
type UploadInput struct {
	FileName string
	PlaceID  string
	UserID   string
	Body     io.Reader
}

// Upload validates the file, writes it to object storage and records the
// image. The row is only created after the store write succeeded.
func (s *Service) Upload(ctx context.Context, in UploadInput) (Image, error) {
	fileName, err := util.SanitizeFileName(in.FileName)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if _, err := util.ImageExt(fileName); err != nil {
		return Image{}, ErrUnsupportedFormat
	}

	imageID := uuid.NewString()
	storageKey, size, mimeType, err := s.Store.Save(ctx, imageID, fileName, in.Body)
	if err != nil {
		return Image{}, fmt.Errorf("save upload: %w", err)
	}

	img := Image{
		ID:          imageID,
		FileName:    fileName,
		StorageKey:  storageKey,
		ContentType: mimeType,
		SizeBytes:   size,
		PlaceID:     in.PlaceID,
		UserID:      in.UserID,
		Status:      StatusUploaded,
		UploadedAt:  time.Now().UTC(),
	}

	if err := s.Repo.Create(ctx, img); err != nil {
		// Do not leave an orphan object behind the failed row.
		if delErr := s.Store.Delete(ctx, storageKey); delErr != nil {
			telemetry.Warn("images.orphan_object", map[string]any{
				"image_id":    imageID,
				"storage_key": storageKey,
				"error":       delErr.Error(),
			})
		}
		return Image{}, fmt.Errorf("record image: %w", err)
	}

	metrics.IncUpload()
	telemetry.Info("images.uploaded", map[string]any{
		"image_id":   imageID,
		"size_bytes": size,
		"mime_type":  mimeType,
	})
	return img, nil
}

// Get returns the image and, when the store supports it, a presigned GET URL.
func (s *Service) Get(ctx context.Context, imageID string) (Image, string, error) {
	img, err := s.Repo.Get(ctx, imageID)
	if err != nil {
		return Image{}, "", err
	}
	url := s.presignURL(ctx, img.StorageKey)
	return img, url, nil
}

// List returns images matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Image, error) {
	return s.Repo.List(ctx, filter)
}

// Delete removes the stored object, any cropped regions, the analysis rows
// and the image row. Missing objects are not an error.
func (s *Service) Delete(ctx context.Context, imageID string) error {
	img, err := s.Repo.Get(ctx, imageID)
	if err != nil {
		return err
	}

	var regionKeys []string
	if s.Purger != nil {
		regionKeys, err = s.Purger.PurgeByImage(ctx, imageID)
		if err != nil {
			return fmt.Errorf("purge analyses: %w", err)
		}
	}

	for _, key := range append(regionKeys, img.StorageKey) {
		if key == "" {
			continue
		}
		if err := s.Store.Delete(ctx, key); err != nil && !errors.Is(err, object.ErrNotFound) {
			return fmt.Errorf("delete object %s: %w", key, err)
		}
	}

	if err := s.Repo.Delete(ctx, imageID); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	telemetry.Info("images.deleted", map[string]any{"image_id": imageID})
	return nil
}

func (s *Service) presignURL(ctx context.Context, storageKey string) string {
	signer, ok := s.Store.(object.URLSigner)
	if !ok || storageKey == "" {
		return ""
	}
	if cached, found := s.presigned.Get(storageKey); found {
		if url, ok := cached.(string); ok {
			return url
		}
	}
	url, err := signer.PresignGet(ctx, storageKey, s.presignTTL)
	if err != nil {
		telemetry.Warn("images.presign_failed", map[string]any{
			"storage_key": storageKey,
			"error":       err.Error(),
		})
		return ""
	}
	s.presigned.SetDefault(storageKey, url)
	return url
}
