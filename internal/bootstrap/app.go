// Package bootstrap wires configuration, storage, model backends and
// handlers into a runnable application.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"wheelcity-backend/internal/analyses"
	"wheelcity-backend/internal/analyzer"
	"wheelcity-backend/internal/analyzer/gemini"
	"wheelcity-backend/internal/config"
	"wheelcity-backend/internal/health"
	"wheelcity-backend/internal/images"
	"wheelcity-backend/internal/places"
	"wheelcity-backend/internal/server"
	"wheelcity-backend/internal/storage/db"
	"wheelcity-backend/internal/storage/object"
	localstore "wheelcity-backend/internal/storage/object/local"
	s3store "wheelcity-backend/internal/storage/object/s3"
	"wheelcity-backend/internal/vision"
	"wheelcity-backend/internal/vision/tflite"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore

	Detector vision.Detector
	Analyzer analyzer.Client

	ImagesRepo   images.Repo
	AnalysesRepo analyses.Repo
	PlacesRepo   places.Repo

	ImagesService   *images.Service
	AnalysesService *analyses.Service
	PlacesService   *places.Service
	Health          *health.Service
}

// Build prepares all dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	detector, detectorReady := buildDetector(cfg)
	aiClient, analyzerReady, err := buildAnalyzer(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		DB:       sqlDB,
		Store:    store,
		Detector: detector,
		Analyzer: aiClient,
	}

	if sqlDB != nil {
		app.ImagesRepo = &images.PGRepo{DB: sqlDB}
		app.AnalysesRepo = &analyses.PGRepo{DB: sqlDB}
		app.PlacesRepo = &places.PGRepo{DB: sqlDB}
	} else {
		app.ImagesRepo = images.NewMemoryRepo()
		app.AnalysesRepo = analyses.NewMemoryRepo()
		app.PlacesRepo = places.NewMemoryRepo()
	}

	app.AnalysesService = &analyses.Service{
		Images:   app.ImagesRepo,
		Repo:     app.AnalysesRepo,
		Store:    store,
		Detector: detector,
		Analyzer: aiClient,
	}
	app.ImagesService = images.NewService(store, app.ImagesRepo, cfg.PresignTTL)
	app.ImagesService.Purger = app.AnalysesService
	app.PlacesService = &places.Service{Repo: app.PlacesRepo}
	app.Health = &health.Service{
		DB:            sqlDB,
		Store:         store,
		DetectorReady: detectorReady,
		AnalyzerReady: analyzerReady,
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		ImagesHandler:   images.NewHandler(app.ImagesService, app.AnalysesService),
		AnalysesHandler: analyses.NewHandler(app.AnalysesService),
		PlacesHandler:   places.NewHandler(app.PlacesService),
		Health:          app.Health,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

// buildDetector loads the TFLite model when configured. A load failure does
// not abort startup; uploads still work and analyze calls report
// MODEL_UNAVAILABLE until the model is fixed.
func buildDetector(cfg config.Config) (vision.Detector, bool) {
	switch cfg.DetectorBackend {
	case "stub":
		return &vision.Stub{}, false
	default:
		detector, err := tflite.New(tflite.Config{
			ModelPath:  cfg.ModelPath,
			LabelsPath: cfg.LabelsPath,
			Threshold:  cfg.ConfidenceThreshold,
			Threads:    cfg.DetectorThreads,
			UseXNNPACK: cfg.DetectorUseXNNPACK,
		})
		if err != nil {
			log.Printf("bootstrap: detector load failed, analyze will report model unavailable: %v", err)
			return vision.Unavailable{}, false
		}
		return detector, true
	}
}

func buildAnalyzer(cfg config.Config) (analyzer.Client, bool, error) {
	switch cfg.AnalyzerBackend {
	case "stub":
		return &analyzer.Stub{}, false, nil
	default:
		client, err := gemini.NewClient(cfg.GoogleAPIKey, cfg.GeminiModel, cfg.GeminiTimeout)
		if err != nil {
			if isDevLike(cfg.Env) {
				log.Printf("bootstrap: gemini client unavailable, using stub analyzer: %v", err)
				return &analyzer.Stub{}, false, nil
			}
			return nil, false, err
		}
		return client, true, nil
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
