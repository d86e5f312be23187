package graph

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-resty/resty/v2"
)

// Acquirer downloads the selected image into the published output tree.
// Download failures are soft: the caller keeps the remote reference and
// publishes without a local copy.
type Acquirer struct {
	Client *resty.Client
	// AssetsDir is the directory image bytes are written to.
	AssetsDir string
	// RelDir is the path prefix recorded in the artifact, e.g. "assets".
	RelDir string
	// MaxBytes rejects oversized payloads. Zero means default (10 MiB).
	MaxBytes int64
}

const defaultMaxBytes = 10 << 20

// latestBase is fixed so the artifact's local_path stays stable across runs
// and the previous image is replaced wholesale.
const latestBase = "graph-latest"

// Download fetches the candidate's bytes and writes them under AssetsDir.
// Returns the artifact-relative path of the stored image.
func (a *Acquirer) Download(ctx context.Context, c Candidate) (string, error) {
	if strings.TrimSpace(c.RemoteURL) == "" {
		return "", fmt.Errorf("download graph: empty remote URL")
	}
	resp, err := a.Client.R().SetContext(ctx).Get(c.RemoteURL)
	if err != nil {
		return "", fmt.Errorf("download graph: %w", err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("download graph: unexpected status %d", resp.StatusCode())
	}
	ct := strings.ToLower(strings.TrimSpace(resp.Header().Get("Content-Type")))
	if !strings.HasPrefix(ct, "image/") {
		return "", fmt.Errorf("download graph: non-image content type %q", ct)
	}
	body := resp.Body()
	max := a.MaxBytes
	if max <= 0 {
		max = defaultMaxBytes
	}
	if int64(len(body)) > max {
		return "", fmt.Errorf("download graph: payload %d bytes exceeds cap %d", len(body), max)
	}
	if len(body) == 0 {
		return "", fmt.Errorf("download graph: empty body")
	}

	if err := os.MkdirAll(a.AssetsDir, 0o755); err != nil {
		return "", fmt.Errorf("create assets dir: %w", err)
	}
	name := latestBase + extFor(c.RemoteURL, ct)
	dst := filepath.Join(a.AssetsDir, name)
	tmp, err := os.CreateTemp(a.AssetsDir, "."+latestBase+"-*")
	if err != nil {
		return "", fmt.Errorf("create temp image: %w", err)
	}
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close image: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("chmod image: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("publish image: %w", err)
	}
	rel := a.RelDir
	if rel == "" {
		rel = "assets"
	}
	return path.Join(rel, name), nil
}

var ctExt = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

func extFor(rawURL, contentType string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if ext := strings.ToLower(path.Ext(u.Path)); isSafeExt(ext) {
			return ext
		}
	}
	ct := contentType
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ext, ok := ctExt[ct]; ok {
		return ext
	}
	return ".img"
}

func isSafeExt(ext string) bool {
	if len(ext) < 2 || len(ext) > 6 {
		return false
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
