package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pollsnap/pollsnap/internal/graph"
	"github.com/pollsnap/pollsnap/internal/table"
)

func sampleTable() table.Table {
	return table.Table{
		Columns:  []string{"Pollster", "Date"},
		Rows:     []map[string]string{{"Pollster": "YouGov", "Date": "1 Jan"}},
		RowCount: 1,
	}
}

func TestNew_GraphStates(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 500, time.UTC)

	absent := New(now, "https://src", sampleTable(), graph.Graph{Status: graph.Absent}, []string{"No notes"})
	if absent.Graph != nil {
		t.Fatalf("absent graph must omit the section")
	}

	remote := New(now, "https://src", sampleTable(), graph.Graph{
		Status:    graph.RemoteOnly,
		RemoteURL: "https://img/x.png",
		Caption:   "cap",
	}, []string{"No notes"})
	if remote.Graph == nil || remote.Graph.LocalPath != "" || remote.Graph.RemoteURL == "" {
		t.Fatalf("remote-only graph malformed: %+v", remote.Graph)
	}

	dl := New(now, "https://src", sampleTable(), graph.Graph{
		Status:    graph.Downloaded,
		LocalPath: "assets/graph-latest.png",
		RemoteURL: "https://img/x.png",
		Caption:   "cap",
	}, []string{"No notes"})
	if dl.Graph == nil || dl.Graph.LocalPath == "" {
		t.Fatalf("downloaded graph malformed: %+v", dl.Graph)
	}
	if dl.Graph.LocalPath != "" && dl.Graph.RemoteURL == "" {
		t.Fatalf("local_path requires remote_url")
	}
}

func TestNew_TimestampFormat(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 30, 45, 999999999, time.UTC)
	a := New(now, "https://src", sampleTable(), graph.Graph{}, []string{"No notes"})
	if a.FetchedAt != "2025-06-01T12:30:45Z" {
		t.Fatalf("fetched_at = %q, want second-precision RFC3339 UTC", a.FetchedAt)
	}
	if _, err := time.Parse(time.RFC3339, a.FetchedAt); err != nil {
		t.Fatalf("fetched_at not RFC3339: %v", err)
	}
}

func TestWrite_SchemaShape(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "data", "latest.json")
	a := New(time.Now(), "https://src", sampleTable(), graph.Graph{Status: graph.Absent}, []string{"No notes"})
	if err := Write(out, a); err != nil {
		t.Fatalf("write: %v", err)
	}

	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("published artifact is not valid JSON: %v", err)
	}
	for _, key := range []string{"fetched_at", "source_url", "table", "notes"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing schema key %q", key)
		}
	}
	if _, ok := m["graph"]; ok {
		t.Errorf("graph key must be omitted when absent")
	}
	tbl, ok := m["table"].(map[string]any)
	if !ok {
		t.Fatalf("table section malformed")
	}
	rows, ok := tbl["rows"].([]any)
	if !ok {
		t.Fatalf("rows malformed")
	}
	if int(tbl["row_count"].(float64)) != len(rows) {
		t.Fatalf("row_count %v != len(rows) %d", tbl["row_count"], len(rows))
	}
	if !strings.HasSuffix(string(b), "\n") {
		t.Errorf("artifact should end with a newline")
	}
}

func TestWrite_ReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "latest.json")
	first := New(time.Now(), "https://first", sampleTable(), graph.Graph{}, []string{"No notes"})
	if err := Write(out, first); err != nil {
		t.Fatalf("first write: %v", err)
	}
	second := New(time.Now(), "https://second", sampleTable(), graph.Graph{}, []string{"No notes"})
	if err := Write(out, second); err != nil {
		t.Fatalf("second write: %v", err)
	}

	var got Artifact
	b, _ := os.ReadFile(out)
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.SourceURL != "https://second" {
		t.Fatalf("artifact not replaced wholesale: %q", got.SourceURL)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %d entries", len(entries))
	}
}
