package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/lwo2mesh/internal/config"
	"github.com/Faultbox/lwo2mesh/pkg/iff"
	lt "github.com/Faultbox/lwo2mesh/pkg/lwo/lwotest"
)

func triangle() []byte {
	return lt.New().
		Tags("mat").
		Surface("mat", "").
		Layer(0, "").
		Points([3]float32{0, 0, 0}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0}).
		Faces([]uint32{0, 1, 2}).
		SurfaceTags([2]uint32{0, 0}).
		Bytes()
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func newPipeline(t *testing.T, mutate func(*config.Config), log *zap.Logger) *Pipeline {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	p, err := New(cfg, log)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Mesh.Winding = "sideways"
	if _, err := New(cfg, nil); err == nil {
		t.Error("expected error for invalid winding")
	}
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.lwo", triangle())
	writeFile(t, dir, "a.LWO", triangle())
	writeFile(t, dir, "notes.txt", []byte("hello"))
	writeFile(t, dir, filepath.Join("sub", "c.lwo"), triangle())

	p := newPipeline(t, nil, nil)
	paths, err := p.Collect(dir)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	want := []string{
		filepath.Join(dir, "a.LWO"),
		filepath.Join(dir, "b.lwo"),
		filepath.Join(dir, "sub", "c.lwo"),
	}
	if len(paths) != len(want) {
		t.Fatalf("expected %d paths, got %v", len(want), paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("path %d: expected %s, got %s", i, want[i], paths[i])
		}
	}
}

func TestCollect_MissingRoot(t *testing.T) {
	p := newPipeline(t, nil, nil)
	if _, err := p.Collect(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing root")
	}
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "tri.lwo", triangle())

	p := newPipeline(t, nil, nil)
	m, err := p.Convert(path)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if len(m.Layers) != 1 || len(m.Layers[0].Surfaces) != 1 {
		t.Fatalf("unexpected model shape: %+v", m.Layers)
	}
	if n := m.Layers[0].Surfaces[0].TriangleCount(); n != 1 {
		t.Errorf("expected 1 triangle, got %d", n)
	}
}

func TestConvert_ErrorNamesObject(t *testing.T) {
	dir := t.TempDir()
	data := triangle()
	path := writeFile(t, dir, "cut.lwo", data[:len(data)-4])

	p := newPipeline(t, nil, nil)
	_, err := p.Convert(path)
	if !errors.Is(err, iff.ErrTruncatedRecord) {
		t.Fatalf("expected truncated record, got %v", err)
	}
	if !strings.Contains(err.Error(), "cut.lwo") {
		t.Errorf("expected error to name the file, got %q", err)
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	data := triangle()
	paths := []string{
		writeFile(t, dir, "a.lwo", data),
		writeFile(t, dir, "bad.lwo", data[:6]),
		writeFile(t, dir, "c.lwo", data),
		filepath.Join(dir, "missing.lwo"),
	}

	core, logs := observer.New(zapcore.InfoLevel)
	p := newPipeline(t, func(c *config.Config) { c.Pipeline.Workers = 2 }, zap.New(core))
	results := p.Run(context.Background(), paths)

	if len(results) != len(paths) {
		t.Fatalf("expected %d results, got %d", len(paths), len(results))
	}
	for i, r := range results {
		if r.Path != paths[i] {
			t.Errorf("result %d: expected path %s, got %s", i, paths[i], r.Path)
		}
	}
	if results[0].Err != nil || results[0].Model == nil {
		t.Errorf("a.lwo: unexpected failure %v", results[0].Err)
	}
	if !errors.Is(results[1].Err, iff.ErrTruncatedRecord) {
		t.Errorf("bad.lwo: expected truncated record, got %v", results[1].Err)
	}
	if results[2].Err != nil {
		t.Errorf("c.lwo: unexpected failure %v", results[2].Err)
	}
	if !errors.Is(results[3].Err, os.ErrNotExist) {
		t.Errorf("missing.lwo: expected not-exist error, got %v", results[3].Err)
	}

	failures := logs.FilterMessage("conversion failed").All()
	if len(failures) != 2 {
		t.Fatalf("expected 2 failure logs, got %d", len(failures))
	}
	kinds := map[string]bool{}
	for _, e := range failures {
		kinds[e.ContextMap()["kind"].(string)] = true
	}
	if !kinds["truncated"] || !kinds["io"] {
		t.Errorf("unexpected failure kinds: %v", kinds)
	}
	if logs.FilterMessage("batch finished").Len() != 1 {
		t.Error("expected a batch finished log")
	}

	s := Summarize(results)
	if s.Total != 4 || s.Succeeded != 2 || s.Failed != 2 {
		t.Errorf("unexpected summary counts: %+v", s)
	}
	if s.Layers != 2 || s.Surfaces != 2 || s.Triangles != 2 {
		t.Errorf("unexpected summary geometry: %+v", s)
	}
}

func TestRun_Empty(t *testing.T) {
	p := newPipeline(t, nil, nil)
	if results := p.Run(context.Background(), nil); len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestRun_FailFast(t *testing.T) {
	dir := t.TempDir()
	data := triangle()
	paths := []string{
		writeFile(t, dir, "bad.lwo", data[:6]),
		writeFile(t, dir, "a.lwo", data),
		writeFile(t, dir, "b.lwo", data),
	}

	p := newPipeline(t, func(c *config.Config) {
		c.Pipeline.Workers = 1
		c.Pipeline.FailFast = true
	}, nil)
	results := p.Run(context.Background(), paths)

	if !errors.Is(results[0].Err, iff.ErrTruncatedRecord) {
		t.Errorf("expected truncated record first, got %v", results[0].Err)
	}
	for _, r := range results[1:] {
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("%s: expected cancellation, got %v", filepath.Base(r.Path), r.Err)
		}
	}
}

func TestRun_Canceled(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.lwo", triangle())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newPipeline(t, nil, nil)
	results := p.Run(ctx, []string{path, path})
	for _, r := range results {
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("expected cancellation, got %v", r.Err)
		}
	}
	if s := Summarize(results); s.Failed != 2 {
		t.Errorf("expected 2 failures, got %+v", s)
	}
}

func TestSummarize_Incomplete(t *testing.T) {
	data := lt.New().
		Tags("mat").
		Surface("mat", "", lt.UVImageMap("\x80", 0, "uv")).
		Layer(0, "").
		Points([3]float32{0, 0, 0}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0}).
		Faces([]uint32{0, 1, 2}).
		SurfaceTags([2]uint32{0, 0}).
		VMap("TXUV", 2, "uv",
			lt.MapEntry{Point: 0, Values: []float32{0, 0}},
			lt.MapEntry{Point: 1, Values: []float32{1, 0}}).
		Bytes()
	path := writeFile(t, t.TempDir(), "uv.lwo", data)

	p := newPipeline(t, nil, nil)
	s := Summarize(p.Run(context.Background(), []string{path}))
	if s.Incomplete != 1 {
		t.Errorf("expected 1 incomplete vertex, got %+v", s)
	}
}
