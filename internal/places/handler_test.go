package places

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"wheelcity-backend/internal/server/middleware"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := &Service{Repo: NewMemoryRepo()}
	router := gin.New()
	api := router.Group("/api/v1")
	NewHandler(svc).RegisterRoutes(api, middleware.InternalKey("secret"))
	return router, svc
}

func TestCreateEndpointRequiresInternalKey(t *testing.T) {
	router, _ := newTestRouter(t)

	body := []byte(`{"name": "shop", "lat": 37.5, "lng": 127.0}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/places/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("without key: status = %d, want 401", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/places/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", "secret")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("with key: status = %d, body = %s", resp.Code, resp.Body.String())
	}
}

func TestNearbyEndpoint(t *testing.T) {
	router, svc := newTestRouter(t)

	if _, err := svc.Create(context.Background(), CreateInput{Name: "close", Lat: 37.5664, Lng: 126.9780}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create(context.Background(), CreateInput{Name: "far", Lat: 37.60, Lng: 127.05}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/places/nearby?lat=37.5663&lng=126.9779&radius=500", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.Code, resp.Body.String())
	}

	var got struct {
		Places []NearbyPlace `json:"places"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got.Places) != 1 || got.Places[0].Name != "close" {
		t.Errorf("places = %+v, want only the close one", got.Places)
	}
}

func TestNearbyEndpointValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/places/nearby?lat=abc&lng=127", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}
}

func TestBboxEndpoint(t *testing.T) {
	router, svc := newTestRouter(t)

	if _, err := svc.Create(context.Background(), CreateInput{Name: "inside", Lat: 37.5664, Lng: 126.9780}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create(context.Background(), CreateInput{Name: "outside", Lat: 37.60, Lng: 127.05}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/places/bbox?minLat=37.56&minLng=126.97&maxLat=37.57&maxLng=126.98", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.Code, resp.Body.String())
	}

	var got struct {
		Places []Place `json:"places"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got.Places) != 1 || got.Places[0].Name != "inside" {
		t.Errorf("places = %+v, want only the one inside the box", got.Places)
	}
}

func TestBboxEndpointValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	// Missing params.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/places/bbox?minLat=37.56", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("missing params: status = %d, want 400", resp.Code)
	}

	// Inverted box.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/places/bbox?minLat=37.57&minLng=126.98&maxLat=37.56&maxLng=126.97", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("inverted box: status = %d, want 400", resp.Code)
	}
}

func TestReactEndpoint(t *testing.T) {
	router, svc := newTestRouter(t)

	place, err := svc.Create(context.Background(), CreateInput{Name: "shop", Lat: 37.5, Lng: 127.0})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	body := []byte(`{"vote": "up"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/places/"+place.ID+"/react", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.Code, resp.Body.String())
	}

	var got struct {
		Up   int `json:"up"`
		Down int `json:"down"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Up != 1 || got.Down != 0 {
		t.Errorf("counts = %d/%d, want 1/0", got.Up, got.Down)
	}
}
