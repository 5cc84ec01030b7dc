package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"shopple/internal/domain"
)

func createTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		kind        domain.MediaType
		contentType string
		size        int64
		wantErr     error
		wantMessage string
	}{
		{"png ok", domain.MediaTypeImage, "image/png", 1024, nil, ""},
		{"jpeg with params", domain.MediaTypeImage, "image/jpeg; charset=binary", 1024, nil, ""},
		{"image at limit", domain.MediaTypeImage, "image/webp", MaxImageSize, nil, ""},
		{"svg rejected", domain.MediaTypeImage, "image/svg+xml", 10, ErrInvalidType, "Invalid image type. Allowed types: JPEG, PNG, WebP, GIF"},
		{"image too large", domain.MediaTypeImage, "image/gif", MaxImageSize + 1, ErrTooLarge, "File size exceeds the 5MB limit"},
		{"avi ok", domain.MediaTypeVideo, "video/x-msvideo", 50 << 20, nil, ""},
		{"mkv rejected", domain.MediaTypeVideo, "video/x-matroska", 10, ErrInvalidType, "Invalid video type. Allowed types: MP4, WebM, QuickTime, AVI"},
		{"video too large", domain.MediaTypeVideo, "video/mp4", MaxVideoSize + 1, ErrTooLarge, "File size exceeds the 100MB limit"},
		{"thumbnail kind", domain.MediaTypeThumbnail, "image/png", 10, ErrInvalidType, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.kind, tt.contentType, tt.size)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMessage != "" && err.Error() != tt.wantMessage {
				t.Errorf("message = %q, want %q", err.Error(), tt.wantMessage)
			}
		})
	}
}

func TestObjectKey(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		fileName    string
		contentType string
		wantExt     string
	}{
		{"Photo.JPG", "image/jpeg", ".jpg"},
		{"clip.mp4", "video/mp4", ".mp4"},
		{"noext", "image/png", ".png"},
		{"noext", "application/x-unknown-thing", ".bin"},
	}

	for _, tt := range tests {
		key := ObjectKey(userID, tt.fileName, tt.contentType)
		prefix := userID.String() + "/"
		if !strings.HasPrefix(key, prefix) {
			t.Errorf("ObjectKey(%q) = %q, want prefix %q", tt.fileName, key, prefix)
		}
		if !strings.HasSuffix(key, tt.wantExt) {
			t.Errorf("ObjectKey(%q) = %q, want suffix %q", tt.fileName, key, tt.wantExt)
		}
		id := strings.TrimSuffix(strings.TrimPrefix(key, prefix), tt.wantExt)
		if _, err := uuid.Parse(id); err != nil {
			t.Errorf("ObjectKey(%q) object name %q is not a uuid", tt.fileName, id)
		}
	}
}

func TestSaveAndDelete(t *testing.T) {
	fsys := afero.NewMemMapFs()
	store := NewStore(fsys, "/media/", createTestLogger())
	ctx := context.Background()
	userID := uuid.New()

	up, err := Save(ctx, store, userID, domain.MediaTypeVideo, "clip.webm", "video/webm", 4, strings.NewReader("data"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !strings.HasPrefix(up.URL, "/media/"+userID.String()+"/") {
		t.Errorf("URL = %q", up.URL)
	}
	if up.ThumbnailURL != VideoThumbnail {
		t.Errorf("ThumbnailURL = %q, want placeholder", up.ThumbnailURL)
	}

	name := strings.TrimPrefix(up.URL, "/media")
	content, err := afero.ReadFile(fsys, name)
	if err != nil || string(content) != "data" {
		t.Fatalf("stored content = %q, %v", content, err)
	}

	if err := store.Delete(ctx, up.URL); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if exists, _ := afero.Exists(fsys, name); exists {
		t.Error("object still exists after Delete")
	}
	if err := store.Delete(ctx, up.URL); err != nil {
		t.Errorf("second Delete() error = %v, want nil", err)
	}
}

func TestSaveRejectsBeforeWriting(t *testing.T) {
	fsys := afero.NewMemMapFs()
	store := NewStore(fsys, "/media", createTestLogger())

	_, err := Save(context.Background(), store, uuid.New(), domain.MediaTypeImage, "x.exe", "application/octet-stream", 10, strings.NewReader("MZ"))
	if !errors.Is(err, ErrInvalidType) {
		t.Fatalf("Save() error = %v, want ErrInvalidType", err)
	}

	entries, _ := afero.ReadDir(fsys, "/")
	if len(entries) != 0 {
		t.Errorf("expected nothing written, found %d entries", len(entries))
	}
}

func TestLocalStoreRejectsUnsafeKeys(t *testing.T) {
	store := NewStore(afero.NewMemMapFs(), "/media", createTestLogger())
	ctx := context.Background()

	for _, key := range []string{"../etc/passwd", "a/../../b", "", "/abs"} {
		if _, err := store.Put(ctx, key, "image/png", strings.NewReader("x")); err == nil {
			t.Errorf("Put(%q) expected error", key)
		}
	}

	if err := store.Delete(ctx, "https://elsewhere.example/img.png"); !errors.Is(err, ErrForeignURL) {
		t.Errorf("Delete() foreign error = %v", err)
	}
}

func TestLocalStoreHandler(t *testing.T) {
	store := NewStore(afero.NewMemMapFs(), "/media", createTestLogger())
	url, err := store.Put(context.Background(), "u1/a.txt", "text/plain", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	handler := http.StripPrefix("/media", store.Handler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "hello" {
		t.Errorf("GET %s = %d %q", url, rec.Code, rec.Body.String())
	}
}
