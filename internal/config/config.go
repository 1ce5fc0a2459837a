package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	InternalAPIKey  string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	PresignTTL      time.Duration

	DatabaseURL string

	DetectorBackend     string
	ModelPath           string
	LabelsPath          string
	ConfidenceThreshold float64
	DetectorThreads     int
	DetectorUseXNNPACK  bool

	AnalyzerBackend string
	GoogleAPIKey    string
	GeminiModel     string
	GeminiTimeout   time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		InternalAPIKey:  os.Getenv("INTERNAL_API_KEY"),

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", "images/"),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		PresignTTL:      getEnvDuration("PRESIGN_TTL", time.Hour),

		DatabaseURL: dbURL,

		DetectorBackend:     normalizeDetector(getEnv("DETECTOR", "tflite")),
		ModelPath:           getEnv("YOLO_MODEL_PATH", "./models/yolov8n.tflite"),
		LabelsPath:          getEnv("YOLO_LABELS", ""),
		ConfidenceThreshold: getEnvFloat("YOLO_CONFIDENCE", 0.5),
		DetectorThreads:     getEnvInt("DETECTOR_THREADS", 0),
		DetectorUseXNNPACK:  getEnvBool("DETECTOR_USE_XNNPACK", true),

		AnalyzerBackend: normalizeAnalyzer(getEnv("ANALYZER", "gemini")),
		GoogleAPIKey:    os.Getenv("GOOGLE_API_KEY"),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiTimeout:   getEnvDuration("GEMINI_TIMEOUT_SECONDS", 60*time.Second),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config: %s invalid int %q, using default", key, raw)
		return def
	}
	return val
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("config: %s invalid float %q, using default", key, raw)
		return def
	}
	return val
}

func getEnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("config: %s invalid bool %q, using default", key, raw)
		return def
	}
	return val
}

// getEnvDuration accepts either a bare number of seconds or a Go duration string.
func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	if dur, err := time.ParseDuration(raw); err == nil && dur > 0 {
		return dur
	}
	log.Printf("config: %s invalid duration %q, using default", key, raw)
	return def
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeDetector(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "stub", "none":
		return "stub"
	default:
		return "tflite"
	}
}

func normalizeAnalyzer(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "stub", "none":
		return "stub"
	default:
		return "gemini"
	}
}
