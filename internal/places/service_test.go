package places

import (
	"context"
	"errors"
	"testing"
)

func seedPlaces(t *testing.T) *Service {
	t.Helper()
	repo := NewMemoryRepo()
	svc := &Service{Repo: repo}

	// Points around Seoul City Hall (37.5663, 126.9779).
	seeds := []CreateInput{
		{Name: "city-hall-cafe", Lat: 37.5665, Lng: 126.9780},   // ~25m
		{Name: "plaza-restaurant", Lat: 37.5640, Lng: 126.9750}, // ~360m
		{Name: "seoul-station", Lat: 37.5547, Lng: 126.9707},    // ~1.5km
	}
	for _, in := range seeds {
		if _, err := svc.Create(context.Background(), in); err != nil {
			t.Fatalf("seed %s: %v", in.Name, err)
		}
	}
	return svc
}

func TestNearbyRadiusAndOrder(t *testing.T) {
	svc := seedPlaces(t)

	got, err := svc.Nearby(context.Background(), 37.5663, 126.9779, 1000)
	if err != nil {
		t.Fatalf("Nearby: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d places, want 2 within 1km", len(got))
	}
	if got[0].Name != "city-hall-cafe" || got[1].Name != "plaza-restaurant" {
		t.Errorf("order = [%s, %s], want nearest first", got[0].Name, got[1].Name)
	}
	if got[0].DistanceM >= got[1].DistanceM {
		t.Errorf("distances not ascending: %f >= %f", got[0].DistanceM, got[1].DistanceM)
	}
}

func TestNearbyDefaultRadius(t *testing.T) {
	svc := seedPlaces(t)

	got, err := svc.Nearby(context.Background(), 37.5663, 126.9779, 0)
	if err != nil {
		t.Fatalf("Nearby: %v", err)
	}
	// Default 800m excludes seoul-station.
	for _, np := range got {
		if np.Name == "seoul-station" {
			t.Errorf("seoul-station inside default radius, distance %f", np.DistanceM)
		}
	}
}

func TestNearbyRejectsBadCoords(t *testing.T) {
	svc := seedPlaces(t)

	if _, err := svc.Nearby(context.Background(), 91, 0, 100); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("lat 91: err = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.Nearby(context.Background(), 0, 181, 100); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("lng 181: err = %v, want ErrInvalidInput", err)
	}
}

func TestBboxFiltersByBox(t *testing.T) {
	svc := seedPlaces(t)

	// Box tight around City Hall; seoul-station sits south of it.
	got, err := svc.Bbox(context.Background(), 37.5600, 126.9700, 37.5700, 126.9800)
	if err != nil {
		t.Fatalf("Bbox: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d places, want 2 inside the box", len(got))
	}
	for _, place := range got {
		if place.Name == "seoul-station" {
			t.Errorf("seoul-station inside box at (%f, %f)", place.Lat, place.Lng)
		}
	}
}

func TestBboxRejectsInvertedBox(t *testing.T) {
	svc := seedPlaces(t)

	if _, err := svc.Bbox(context.Background(), 37.57, 126.97, 37.56, 126.98); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("minLat > maxLat: err = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.Bbox(context.Background(), 37.56, 126.98, 37.57, 126.97); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("minLng > maxLng: err = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.Bbox(context.Background(), 91, 0, 92, 1); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("lat out of range: err = %v, want ErrInvalidInput", err)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := &Service{Repo: NewMemoryRepo()}

	if _, err := svc.Create(context.Background(), CreateInput{Lat: 1, Lng: 1}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("missing name: err = %v, want ErrInvalidInput", err)
	}
}

func TestIngestStampsSourceAndTime(t *testing.T) {
	svc := &Service{Repo: NewMemoryRepo()}

	place, err := svc.Create(context.Background(), CreateInput{Name: "shop", Lat: 37.5, Lng: 127.0})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	pred := map[string]any{"entrance": true, "ramp": false, "confidence": 0.87, "modelVersion": "v1"}
	if err := svc.Ingest(context.Background(), place.ID, pred); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	got, err := svc.Get(context.Background(), place.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Accessibility["source"] != "model" {
		t.Errorf("source = %v, want model", got.Accessibility["source"])
	}
	if got.Accessibility["confidence"] != 0.87 {
		t.Errorf("confidence = %v", got.Accessibility["confidence"])
	}
	if got.Accessibility["updatedAt"] == nil {
		t.Errorf("updatedAt not stamped")
	}
}

func TestReactCountsVotes(t *testing.T) {
	svc := &Service{Repo: NewMemoryRepo()}

	place, err := svc.Create(context.Background(), CreateInput{Name: "shop", Lat: 37.5, Lng: 127.0})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, _, err := svc.React(context.Background(), place.ID, "sideways"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad vote: err = %v, want ErrInvalidInput", err)
	}

	up, down, err := svc.React(context.Background(), place.ID, VoteUp)
	if err != nil {
		t.Fatalf("React up: %v", err)
	}
	if up != 1 || down != 0 {
		t.Errorf("counts = %d/%d, want 1/0", up, down)
	}

	up, down, err = svc.React(context.Background(), place.ID, VoteDown)
	if err != nil {
		t.Fatalf("React down: %v", err)
	}
	if up != 1 || down != 1 {
		t.Errorf("counts = %d/%d, want 1/1", up, down)
	}

	up, down, err = svc.Reactions(context.Background(), place.ID)
	if err != nil {
		t.Fatalf("Reactions: %v", err)
	}
	if up != 1 || down != 1 {
		t.Errorf("Reactions = %d/%d, want 1/1", up, down)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// Seoul City Hall to Seoul Station is roughly 1.4-1.6 km.
	d := haversineMeters(37.5663, 126.9779, 37.5547, 126.9707)
	if d < 1300 || d > 1700 {
		t.Errorf("distance = %f m, want ~1450m", d)
	}
}
