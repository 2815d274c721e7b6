package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/MakeNowJust/mastodon/internal/domain/enums"
	"github.com/MakeNowJust/mastodon/internal/domain/model"
)

type fakeStore struct {
	records  []model.MediaAttachment
	nextID   int64
	failWith error
}

func (f *fakeStore) Create(_ context.Context, m model.MediaAttachment) (model.MediaAttachment, error) {
	if f.failWith != nil {
		return model.MediaAttachment{}, f.failWith
	}
	f.nextID++
	m.ID = f.nextID
	f.records = append(f.records, m)
	return m, nil
}

type fakeStorage struct {
	putKeys     []string
	deleteCalls int
}

func (f *fakeStorage) EnsureBucket(_ context.Context) error {
	return nil
}

func (f *fakeStorage) Put(_ context.Context, key string, _ io.Reader, _ int64, _ string) error {
	f.putKeys = append(f.putKeys, key)
	return nil
}

func (f *fakeStorage) Delete(_ context.Context, _ string) error {
	f.deleteCalls++
	return nil
}

func TestUploadStoresObjectAndRecord(t *testing.T) {
	store := &fakeStore{}
	storage := &fakeStorage{}
	svc := NewService(store, storage)

	attachment, err := svc.Upload(context.Background(), 1, "cat.JPG", "image/jpeg", " a cat ", strings.NewReader("abc"), 3)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if attachment.Kind != enums.MediaKindImage {
		t.Fatalf("unexpected kind: got %q want %q", attachment.Kind, enums.MediaKindImage)
	}
	if attachment.StatusID != nil {
		t.Fatalf("fresh upload must be unattached")
	}
	if attachment.Description != "a cat" {
		t.Fatalf("unexpected description: got %q", attachment.Description)
	}
	if len(storage.putKeys) != 1 {
		t.Fatalf("expected one stored object, got %d", len(storage.putKeys))
	}
	if !strings.HasPrefix(storage.putKeys[0], "accounts/1/media/") || !strings.HasSuffix(storage.putKeys[0], ".jpg") {
		t.Fatalf("unexpected object key: %q", storage.putKeys[0])
	}
}

func TestUploadRejectsUnsupportedContentType(t *testing.T) {
	svc := NewService(&fakeStore{}, &fakeStorage{})

	_, err := svc.Upload(context.Background(), 1, "notes.txt", "text/plain", "", strings.NewReader("abc"), 3)
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestUploadCleansUpObjectWhenRecordFails(t *testing.T) {
	store := &fakeStore{failWith: errors.New("insert failed")}
	storage := &fakeStorage{}
	svc := NewService(store, storage)

	_, err := svc.Upload(context.Background(), 1, "clip.mp4", "video/mp4", "", strings.NewReader("abc"), 3)
	if err == nil {
		t.Fatalf("expected error from failing store")
	}
	if storage.deleteCalls != 1 {
		t.Fatalf("expected cleanup delete call, got %d", storage.deleteCalls)
	}
}
