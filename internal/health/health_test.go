package health

import (
	"context"
	"testing"

	"wheelcity-backend/internal/storage/object/local"
)

func TestCheckWithoutDatabase(t *testing.T) {
	svc := &Service{
		Store:         local.New(t.TempDir()),
		DetectorReady: true,
		AnalyzerReady: true,
	}

	status := svc.Check(context.Background())
	if !status.OK {
		t.Fatalf("status not OK: %+v", status)
	}
	if status.Checks["database"] != "memory" {
		t.Errorf("database check = %q, want memory", status.Checks["database"])
	}
	if status.Checks["object_store"] != "ok" {
		t.Errorf("object_store check = %q", status.Checks["object_store"])
	}
}

func TestCheckReportsStubBackends(t *testing.T) {
	svc := &Service{Store: local.New(t.TempDir())}

	status := svc.Check(context.Background())
	if !status.OK {
		t.Fatalf("stub backends should not fail health: %+v", status)
	}
	if status.Checks["detector"] != "stub" || status.Checks["analyzer"] != "stub" {
		t.Errorf("checks = %+v, want stub detector and analyzer", status.Checks)
	}
	if len(status.Degraded) == 0 {
		t.Errorf("expected degraded entries")
	}
}
