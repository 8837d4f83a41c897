package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestCleanKey(t *testing.T) {
	valid := map[string]string{
		"guestbook/a.webm":      "guestbook/a.webm",
		"props//b.png":          "props/b.png",
		"costumes/./c.jpg":      "costumes/c.jpg",
		"guestbook/x/../y.webm": "guestbook/y.webm",
	}
	for in, want := range valid {
		got, err := CleanKey(in)
		if err != nil || got != want {
			t.Fatalf("CleanKey(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	for _, in := range []string{"", "/etc/passwd", "../secret", "a/../../b", "..", `a\b`} {
		if _, err := CleanKey(in); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("expected ErrInvalidKey for %q, got %v", in, err)
		}
	}
}

func TestExtensions(t *testing.T) {
	if ext, err := VideoExtension("video/webm;codecs=vp9"); err != nil || ext != ".webm" {
		t.Fatalf("unexpected webm extension %q %v", ext, err)
	}
	if _, err := VideoExtension("image/png"); !errors.Is(err, ErrUnsupportedContent) {
		t.Fatalf("expected unsupported content, got %v", err)
	}
	if ext, err := ImageExtension("IMAGE/JPEG"); err != nil || ext != ".jpg" {
		t.Fatalf("unexpected jpeg extension %q %v", ext, err)
	}
	if ct := ContentTypeForKey("guestbook/a.mov"); ct != "video/quicktime" {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestDiskStoreRoundTrip(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()
	key := NewKey("guestbook", ".webm")

	obj, err := store.Put(ctx, key, "video/webm", strings.NewReader("great scott"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if obj.Size != int64(len("great scott")) {
		t.Fatalf("unexpected size %d", obj.Size)
	}

	rc, info, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "great scott" || info.ContentType != "video/webm" {
		t.Fatalf("unexpected object %q %#v", data, info)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := store.Open(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("deleting a missing object should be a no-op, got %v", err)
	}
}
