package images

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoCreate(t *testing.T) {
	repo, mock := newMockRepo(t)

	img := Image{
		ID:          "img-1",
		FileName:    "entrance.jpg",
		StorageKey:  "images/img-1.jpg",
		ContentType: "image/jpeg",
		SizeBytes:   1234,
		PlaceID:     "place-1",
		Status:      StatusUploaded,
		UploadedAt:  time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO images").
		WithArgs(
			img.ID,
			img.FileName,
			img.StorageKey,
			img.ContentType,
			img.SizeBytes,
			img.PlaceID,
			nil, // user_id
			img.Status,
			img.UploadedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), img); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM images").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"image_id"}))

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPGRepoClaimAnalyzing(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE images[\s\S]+status IN \('uploaded', 'failed'\)`).
		WithArgs("img-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	claimed, err := repo.ClaimAnalyzing(context.Background(), "img-1", false)
	if err != nil {
		t.Fatalf("ClaimAnalyzing: %v", err)
	}
	if !claimed {
		t.Fatalf("expected claim to win")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoClaimAnalyzingForceIncludesAnalyzed(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE images[\s\S]+status IN \('uploaded', 'failed', 'analyzed'\)`).
		WithArgs("img-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := repo.ClaimAnalyzing(context.Background(), "img-1", true)
	if err != nil {
		t.Fatalf("ClaimAnalyzing: %v", err)
	}
	if claimed {
		t.Fatalf("expected claim to lose when no row matched")
	}
}

func TestPGRepoSetStatusNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE images").
		WithArgs("missing", StatusFailed, nil).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetStatus(context.Background(), "missing", StatusFailed, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
