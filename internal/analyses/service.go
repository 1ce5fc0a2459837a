package analyses

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"wheelcity-backend/internal/analyzer"
	"wheelcity-backend/internal/images"
	"wheelcity-backend/internal/metrics"
	"wheelcity-backend/internal/storage/object"
	"wheelcity-backend/internal/telemetry"
	"wheelcity-backend/internal/vision"
)

// Service runs the synchronous analysis pipeline:
// fetch image bytes -> detect -> extract region -> AI verdict -> persist.
type Service struct {
	Images   images.Repo
	Repo     Repo
	Store    object.ObjectStore
	Detector vision.Detector
	Analyzer analyzer.Client
}

// Analyze runs the pipeline for one image. When the image is already
// analyzed and force is false, the current analysis is returned without
// touching the detector or the AI provider. A per-image status claim makes
// concurrent calls race for a single run; losers get ErrInProgress.
func (s *Service) Analyze(ctx context.Context, imageID string, force bool) (Analysis, error) {
	img, err := s.Images.Get(ctx, imageID)
	if err != nil {
		if errors.Is(err, images.ErrNotFound) {
			return Analysis{}, ErrNotFound
		}
		return Analysis{}, err
	}

	if img.Status == images.StatusAnalyzed && !force {
		current, err := s.Repo.GetByImage(ctx, imageID)
		if err == nil {
			metrics.IncAnalysisReused()
			telemetry.Info("analyses.reused", map[string]any{
				"image_id":    imageID,
				"analysis_id": current.ID,
			})
			return current, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Analysis{}, err
		}
		// Status says analyzed but the row is gone; fall through and run.
		force = true
	}

	claimed, err := s.Images.ClaimAnalyzing(ctx, imageID, force)
	if err != nil {
		return Analysis{}, fmt.Errorf("claim image: %w", err)
	}
	if !claimed {
		// Re-read to distinguish a lost race from an idempotent replay.
		img, err = s.Images.Get(ctx, imageID)
		if err != nil {
			if errors.Is(err, images.ErrNotFound) {
				return Analysis{}, ErrNotFound
			}
			return Analysis{}, err
		}
		if img.Status == images.StatusAnalyzed && !force {
			if current, err := s.Repo.GetByImage(ctx, imageID); err == nil {
				metrics.IncAnalysisReused()
				return current, nil
			}
		}
		return Analysis{}, ErrInProgress
	}

	return s.run(ctx, img)
}

func (s *Service) run(ctx context.Context, img images.Image) (Analysis, error) {
	start := time.Now()
	metrics.IncAnalysisStarted()
	telemetry.Info("analyses.started", map[string]any{
		"image_id":          img.ID,
		"status_transition": img.Status + "->analyzing",
	})

	result, perr := s.pipeline(ctx, img)
	elapsed := time.Since(start)

	now := time.Now().UTC()
	analysis := result
	analysis.ImageID = img.ID
	analysis.ProcessingMs = elapsed.Milliseconds()
	analysis.CreatedAt = now
	analysis.UpdatedAt = now
	if analysis.ID == "" {
		analysis.ID = uuid.NewString()
	}

	if perr != nil {
		analysis.Status = StatusFailed
		analysis.ErrorCode = perr.Code
		analysis.ErrorMessage = perr.Err.Error()
		analysis.Accessible = nil

		if err := s.Repo.Upsert(ctx, analysis); err != nil {
			telemetry.Error("analyses.persist_failed", map[string]any{
				"image_id": img.ID,
				"error":    err.Error(),
			})
		}
		if err := s.Images.SetStatus(ctx, img.ID, images.StatusFailed, nil); err != nil {
			telemetry.Error("analyses.status_failed", map[string]any{
				"image_id": img.ID,
				"error":    err.Error(),
			})
		}
		metrics.IncAnalysisFailed()
		metrics.ObserveAnalysisDurationMs(float64(elapsed.Milliseconds()))
		telemetry.Error("analyses.failed", map[string]any{
			"image_id":          img.ID,
			"analysis_id":       analysis.ID,
			"error_code":        perr.Code,
			"error":             perr.Err.Error(),
			"status_transition": "analyzing->failed",
		})
		return analysis, perr
	}

	analysis.Status = StatusSucceeded
	if err := s.Repo.Upsert(ctx, analysis); err != nil {
		// The run succeeded but cannot be recorded; surface as failure.
		if stErr := s.Images.SetStatus(ctx, img.ID, images.StatusFailed, nil); stErr != nil {
			telemetry.Error("analyses.status_failed", map[string]any{
				"image_id": img.ID,
				"error":    stErr.Error(),
			})
		}
		metrics.IncAnalysisFailed()
		return Analysis{}, fmt.Errorf("persist analysis: %w", err)
	}
	if err := s.Images.SetStatus(ctx, img.ID, images.StatusAnalyzed, &now); err != nil {
		telemetry.Error("analyses.status_failed", map[string]any{
			"image_id": img.ID,
			"error":    err.Error(),
		})
	}

	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(float64(elapsed.Milliseconds()))
	telemetry.Info("analyses.completed", map[string]any{
		"image_id":          img.ID,
		"analysis_id":       analysis.ID,
		"detections":        len(analysis.Detections),
		"degraded":          analysis.RegionKey == "",
		"processing_ms":     analysis.ProcessingMs,
		"status_transition": "analyzing->analyzed",
	})
	return analysis, nil
}

// pipeline runs the stages and returns the partial analysis plus the stage
// error, if any. No partial verdict is kept on failure.
func (s *Service) pipeline(ctx context.Context, img images.Image) (Analysis, *PipelineError) {
	var out Analysis

	rc, err := s.Store.Open(ctx, img.StorageKey)
	if err != nil {
		return out, &PipelineError{Code: CodeStorageUnavailable, Err: fmt.Errorf("open %s: %w", img.StorageKey, err)}
	}
	imageBytes, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return out, &PipelineError{Code: CodeStorageUnavailable, Err: fmt.Errorf("read %s: %w", img.StorageKey, err)}
	}

	detections, err := s.Detector.Detect(ctx, imageBytes)
	if err != nil {
		if errors.Is(err, vision.ErrModelUnavailable) {
			return out, &PipelineError{Code: CodeModelUnavailable, Err: err}
		}
		return out, &PipelineError{Code: CodeInternal, Err: fmt.Errorf("detect: %w", err)}
	}
	out.Detections = detections
	metrics.AddDetections(len(detections))

	region, err := vision.ExtractRegion(imageBytes, detections)
	if err != nil {
		return out, &PipelineError{Code: CodeInternal, Err: fmt.Errorf("extract region: %w", err)}
	}

	input := analyzer.Input{Image: imageBytes, MimeType: img.ContentType}
	if region == nil {
		metrics.IncDegradedRun()
		telemetry.Warn("analyses.degraded", map[string]any{
			"image_id":   img.ID,
			"detections": len(detections),
		})
	} else {
		regionKey := img.StorageKey + ".entrance.jpg"
		if _, err := s.Store.SaveWithKey(ctx, regionKey, "image/jpeg", bytes.NewReader(region.JPEG)); err != nil {
			return out, &PipelineError{Code: CodeStorageUnavailable, Err: fmt.Errorf("save region: %w", err)}
		}
		out.RegionKey = regionKey
		out.RegionSource = region.Source
		input = analyzer.Input{Image: region.JPEG, MimeType: "image/jpeg"}
	}

	verdict, err := s.Analyzer.AnalyzeAccessibility(ctx, input)
	if err != nil {
		switch {
		case errors.Is(err, analyzer.ErrInvalidResponse):
			return out, &PipelineError{Code: CodeAIResponseInvalid, Err: err}
		case errors.Is(err, analyzer.ErrService):
			return out, &PipelineError{Code: CodeAIServiceError, Err: err}
		default:
			return out, &PipelineError{Code: CodeAIServiceError, Err: fmt.Errorf("analyze: %w", err)}
		}
	}

	out.Accessible = verdict.Accessible
	out.Reason = verdict.Reason
	out.Features = verdict.Features
	out.Confidences = verdict.Confidences
	out.VerdictRaw = verdict.Raw
	out.ModelVersion = verdict.ModelVersion
	return out, nil
}

// CurrentForImage adapts the repo lookup for the images handler.
func (s *Service) CurrentForImage(ctx context.Context, imageID string) (any, bool, error) {
	a, err := s.Repo.GetByImage(ctx, imageID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return a, true, nil
}

// PurgeByImage implements images.AnalysisPurger.
func (s *Service) PurgeByImage(ctx context.Context, imageID string) ([]string, error) {
	return s.Repo.PurgeByImage(ctx, imageID)
}

var _ images.AnalysisSource = (*Service)(nil)
var _ images.AnalysisPurger = (*Service)(nil)
