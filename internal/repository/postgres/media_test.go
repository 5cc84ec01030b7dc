package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"shopple/internal/domain"
)

var mediaRowColumns = []string{
	"id", "product_id", "url", "type", "file_name", "file_size",
	"width", "height", "duration", "sort_order", "created_at",
}

func TestMediaRepository_AddAppends(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMediaRepository(db, createTestLogger())
	productID := uuid.New()

	mock.ExpectQuery("INSERT INTO product_media").
		WithArgs(sqlmock.AnyArg(), productID, "/media/u/a.png", "image", nil, nil, nil, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"sort_order", "created_at"}).AddRow(3, time.Now()))

	m := &domain.Media{ProductID: productID, URL: "/media/u/a.png", Type: domain.MediaTypeImage}
	if err := repo.Add(context.Background(), m); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if m.SortOrder != 3 {
		t.Errorf("SortOrder = %d, want 3", m.SortOrder)
	}
	expectationsMet(t, mock)
}

func TestMediaRepository_AddRejectsUnknownType(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMediaRepository(db, createTestLogger())

	if err := repo.Add(context.Background(), &domain.Media{Type: "audio"}); err == nil {
		t.Fatal("Add() expected error for unknown media type")
	}
	expectationsMet(t, mock)
}

func TestMediaRepository_DeleteReturnsRow(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMediaRepository(db, createTestLogger())
	id, productID := uuid.New(), uuid.New()

	mock.ExpectQuery("DELETE FROM product_media WHERE id = (.+) RETURNING").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(mediaRowColumns).AddRow(
			id.String(), productID.String(), "/media/u/v.mp4", "video", "v.mp4", int64(2048),
			nil, nil, 12.5, 0, time.Now(),
		))

	m, err := repo.Delete(context.Background(), id)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if m.Type != domain.MediaTypeVideo || m.URL != "/media/u/v.mp4" {
		t.Errorf("unexpected media %+v", m)
	}
	if m.Duration == nil || *m.Duration != 12.5 {
		t.Errorf("Duration = %v", m.Duration)
	}
	expectationsMet(t, mock)
}
