package graph

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func testAcquirer(t *testing.T) (*Acquirer, string) {
	t.Helper()
	dir := t.TempDir()
	a := &Acquirer{
		Client:    resty.New().SetTimeout(2 * time.Second),
		AssetsDir: filepath.Join(dir, "assets"),
		RelDir:    "assets",
	}
	return a, dir
}

func TestDownload_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes)
	}))
	defer srv.Close()

	a, dir := testAcquirer(t)
	rel, err := a.Download(context.Background(), Candidate{RemoteURL: srv.URL + "/graph.png"})
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if rel != "assets/graph-latest.png" {
		t.Fatalf("unexpected relative path: %q", rel)
	}
	b, err := os.ReadFile(filepath.Join(dir, "assets", "graph-latest.png"))
	if err != nil {
		t.Fatalf("read stored image: %v", err)
	}
	if string(b) != string(pngBytes) {
		t.Fatalf("stored bytes differ from served bytes")
	}
}

func TestDownload_ExtensionFromContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/svg+xml")
		_, _ = w.Write([]byte("<svg/>"))
	}))
	defer srv.Close()

	a, _ := testAcquirer(t)
	rel, err := a.Download(context.Background(), Candidate{RemoteURL: srv.URL + "/chart"})
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if rel != "assets/graph-latest.svg" {
		t.Fatalf("unexpected relative path: %q", rel)
	}
}

func TestDownload_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	a, _ := testAcquirer(t)
	if _, err := a.Download(context.Background(), Candidate{RemoteURL: srv.URL + "/missing.png"}); err == nil {
		t.Fatalf("expected error for 404")
	}
}

func TestDownload_RejectsNonImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>not an image</html>"))
	}))
	defer srv.Close()

	a, _ := testAcquirer(t)
	if _, err := a.Download(context.Background(), Candidate{RemoteURL: srv.URL + "/graph.png"}); err == nil {
		t.Fatalf("expected error for non-image content type")
	}
}

func TestDownload_RejectsOversizedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(make([]byte, 64))
	}))
	defer srv.Close()

	a, _ := testAcquirer(t)
	a.MaxBytes = 16
	if _, err := a.Download(context.Background(), Candidate{RemoteURL: srv.URL + "/big.png"}); err == nil {
		t.Fatalf("expected error for oversized payload")
	}
}

func TestDownload_EmptyURL(t *testing.T) {
	a, _ := testAcquirer(t)
	if _, err := a.Download(context.Background(), Candidate{}); err == nil {
		t.Fatalf("expected error for empty URL")
	}
}

func TestDownload_ReplacesPreviousImage(t *testing.T) {
	payload := []byte("first")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	a, dir := testAcquirer(t)
	if _, err := a.Download(context.Background(), Candidate{RemoteURL: srv.URL + "/g.png"}); err != nil {
		t.Fatalf("first download: %v", err)
	}
	payload = []byte("second")
	if _, err := a.Download(context.Background(), Candidate{RemoteURL: srv.URL + "/g.png"}); err != nil {
		t.Fatalf("second download: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "assets", "graph-latest.png"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "second" {
		t.Fatalf("image not replaced wholesale: %q", b)
	}
}
