package bootstrap_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"wheelcity-backend/internal/bootstrap"
	"wheelcity-backend/internal/config"
)

func buildTestApp(t *testing.T) *bootstrap.App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Port:            "0",
		Env:             "dev",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		InternalAPIKey:  "secret",
		ObjectStoreType: "local",
		LocalStoreDir:   t.TempDir(),
		DetectorBackend: "stub",
		AnalyzerBackend: "stub",
	}

	app, err := bootstrap.Build(cfg)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	return app
}

func TestUploadThenAnalyzeFlow(t *testing.T) {
	app := buildTestApp(t)
	router := app.Router

	// Upload.
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fileWriter, err := writer.CreateFormFile("file", "entrance.jpg")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fileWriter.Write([]byte("jpeg bytes")); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/images/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body = %s", resp.Code, resp.Body.String())
	}

	var created struct {
		ImageID string `json:"image_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if created.ImageID == "" {
		t.Fatalf("expected image_id")
	}

	// Analyze. The stub detector returns no detections, so the run proceeds
	// in degraded mode and the stub analyzer still yields a verdict.
	analyzeBody := []byte(`{"image_id": "` + created.ImageID + `"}`)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/images/analyze", bytes.NewReader(analyzeBody))
	req.Header.Set("Content-Type", "application/json")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("analyze status = %d, body = %s", resp.Code, resp.Body.String())
	}

	var analysis struct {
		Status  string `json:"status"`
		ImageID string `json:"image_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&analysis); err != nil {
		t.Fatalf("decode analyze response: %v", err)
	}
	if analysis.Status != "succeeded" {
		t.Errorf("analysis status = %q, want succeeded", analysis.Status)
	}

	// Fetch the image with its current analysis attached.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/images/"+created.ImageID, nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("get status = %d, body = %s", resp.Code, resp.Body.String())
	}
	var got struct {
		Image struct {
			Status string `json:"status"`
		} `json:"image"`
		Analysis map[string]any `json:"analysis"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode get response: %v", err)
	}
	if got.Image.Status != "analyzed" {
		t.Errorf("image status = %q, want analyzed", got.Image.Status)
	}
	if got.Analysis == nil {
		t.Errorf("expected analysis in response")
	}
}

func TestHealthEndpoint(t *testing.T) {
	app := buildTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.Code, resp.Body.String())
	}
	var status struct {
		OK     bool              `json:"ok"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !status.OK {
		t.Errorf("health not OK: %+v", status)
	}
	if status.Checks["database"] != "memory" {
		t.Errorf("database check = %q, want memory", status.Checks["database"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	app := buildTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	if !bytes.Contains(resp.Body.Bytes(), []byte("images_uploaded_total")) {
		t.Errorf("metrics output missing counters: %s", resp.Body.String())
	}
}
