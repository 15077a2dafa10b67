package ai

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// 1x1 transparent PNG.
var tinyPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x62, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func TestResolveDataURIPassthrough(t *testing.T) {
	resolver := NewVisionResolver(nil)
	payload := base64.StdEncoding.EncodeToString(tinyPNG)

	img := resolver.Resolve(context.Background(), "data:image/png;base64,"+payload)
	if img == nil {
		t.Fatal("expected inline image")
	}
	if img.MimeType != "image/png" || img.Base64 != payload {
		t.Fatalf("unexpected image %+v", img)
	}
}

func TestResolveRemoteURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(tinyPNG)
	}))
	defer server.Close()

	resolver := NewVisionResolver(nil)
	img := resolver.Resolve(context.Background(), server.URL+"/photo.png")
	if img == nil {
		t.Fatal("expected inline image")
	}
	if img.MimeType != "image/png" {
		t.Fatalf("unexpected mime %q", img.MimeType)
	}
}

func TestResolveLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.png")
	if err := os.WriteFile(path, tinyPNG, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	resolver := NewVisionResolver(nil)
	img := resolver.Resolve(context.Background(), path)
	if img == nil {
		t.Fatal("expected inline image")
	}
	if img.MimeType != "image/png" {
		t.Fatalf("unexpected mime %q", img.MimeType)
	}
}

func TestResolveFailuresYieldNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>not an image</html>"))
	}))
	defer server.Close()

	resolver := NewVisionResolver(nil)
	cases := []string{
		"",
		"http://127.0.0.1:1/unreachable.jpg",
		"/no/such/file.png",
		"data:text/plain;base64,aGVsbG8=",
		"data:image/png;base64,!!!not-base64!!!",
		server.URL + "/page.html",
	}
	for _, ref := range cases {
		if img := resolver.Resolve(context.Background(), ref); img != nil {
			t.Fatalf("%q: expected nil, got %+v", ref, img)
		}
	}
}
