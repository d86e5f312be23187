package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pollsnap/pollsnap/internal/graph"
	"github.com/pollsnap/pollsnap/internal/table"
)

// Graph is the published form of the graph section. The section is omitted
// entirely when no image was selected for the run.
type Graph struct {
	LocalPath string `json:"local_path,omitempty"`
	RemoteURL string `json:"remote_url,omitempty"`
	Caption   string `json:"caption,omitempty"`
}

// Artifact is the snapshot consumed by the renderer. The schema is a stable
// contract; field names and shapes must not change between runs.
type Artifact struct {
	FetchedAt string      `json:"fetched_at"`
	SourceURL string      `json:"source_url"`
	Table     table.Table `json:"table"`
	Graph     *Graph      `json:"graph,omitempty"`
	Notes     []string    `json:"notes"`
}

// New assembles an artifact from the pipeline's outputs. fetchedAt is the
// time the run started, recording what we saw rather than when we finished.
func New(fetchedAt time.Time, sourceURL string, t table.Table, g graph.Graph, notes []string) Artifact {
	a := Artifact{
		FetchedAt: fetchedAt.UTC().Truncate(time.Second).Format(time.RFC3339),
		SourceURL: sourceURL,
		Table:     t,
		Notes:     notes,
	}
	switch g.Status {
	case graph.Downloaded:
		a.Graph = &Graph{LocalPath: g.LocalPath, RemoteURL: g.RemoteURL, Caption: g.Caption}
	case graph.RemoteOnly:
		a.Graph = &Graph{RemoteURL: g.RemoteURL, Caption: g.Caption}
	}
	return a
}

// Write publishes the artifact atomically: encode to a temp file in the
// target directory, then rename over the published path so a reader never
// observes a partial document.
func Write(path string, a Artifact) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	b, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	b = append(b, '\n')

	tmp, err := os.CreateTemp(dir, ".latest-*.json")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("chmod artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("publish artifact: %w", err)
	}
	return nil
}
