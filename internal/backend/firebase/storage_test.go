package firebase

import (
	"context"
	"testing"
)

func TestPutAndResolve(t *testing.T) {
	f := newFakeFirebase(t)
	c := signedInClient(t, f)
	ctx := context.Background()

	addr, err := c.Blobs().Put(ctx, "profile-images/u1", []byte("\x89PNG\r\n\x1a\n"), "image/png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != "gs://demo.appspot.com/profile-images/u1" {
		t.Errorf("unexpected address %q", addr)
	}

	f.mu.Lock()
	blob, ok := f.blobs["profile-images/u1"]
	f.mu.Unlock()
	if !ok || blob.contentType != "image/png" {
		t.Fatalf("expected stored png blob, got %+v", blob)
	}

	url, err := c.Blobs().Resolve(ctx, addr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := f.srv.URL + "/v0/b/demo.appspot.com/o/profile-images%2Fu1?alt=media&token=tok-1"
	if url != want {
		t.Errorf("expected %q, got %q", want, url)
	}
}

func TestResolve_RejectsForeignAddress(t *testing.T) {
	f := newFakeFirebase(t)
	c := signedInClient(t, f)

	for _, addr := range []string{"https://example.com/a.png", "gs://bucket-only"} {
		if _, err := c.Blobs().Resolve(context.Background(), addr); err == nil {
			t.Errorf("expected error for %q", addr)
		}
	}
}

func TestPut_NoBucket(t *testing.T) {
	f := newFakeFirebase(t)
	opts := f.options(t.TempDir())
	opts.StorageBucket = ""
	c, err := NewWithOptions(context.Background(), opts)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer c.Close()

	if _, err := c.Blobs().Put(context.Background(), "profile-images/u1", []byte("x"), "image/png"); err == nil {
		t.Error("expected error without a bucket")
	}
}
