// Package pipeline converts batches of LWO2 files with a worker pool. Each
// object is decoded and reconstructed independently, so objects are the
// unit of parallelism.
package pipeline

import (
	"context"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/lwo2mesh/internal/config"
	"github.com/Faultbox/lwo2mesh/pkg/iff"
	"github.com/Faultbox/lwo2mesh/pkg/lwo"
	"github.com/Faultbox/lwo2mesh/pkg/mesh"
)

// progressInterval is how often Run reports progress.
var progressInterval = 2 * time.Second

// Result holds the outcome of converting one file.
type Result struct {
	Path     string
	Model    *mesh.Model
	Err      error
	Duration time.Duration
}

// Pipeline converts files using one configuration.
type Pipeline struct {
	cfg    config.PipelineConfig
	log    *zap.Logger
	decode lwo.Options
	mesh   mesh.Options
}

// New builds a pipeline from cfg. A nil log discards diagnostics.
func New(cfg *config.Config, log *zap.Logger) (*Pipeline, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dec, err := cfg.DecodeOptions()
	if err != nil {
		return nil, err
	}
	m, err := cfg.MeshOptions(log.Named("mesh"))
	if err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg.Pipeline, log: log, decode: dec, mesh: m}, nil
}

// Convert decodes and reconstructs one file. Errors name the file and, for
// decode failures, the record path.
func (p *Pipeline) Convert(path string) (*mesh.Model, error) {
	obj, err := lwo.DecodeFile(path, p.decode)
	if err != nil {
		return nil, errors.Wrapf(err, "object %s", path)
	}
	opts := p.mesh
	opts.Logger = opts.Logger.With(zap.String("object", filepath.Base(path)))
	model, err := mesh.Build(obj, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "object %s", path)
	}
	return model, nil
}

// Collect returns the files under root whose extension is configured,
// sorted by path.
func (p *Pipeline) Collect(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && p.matches(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "collecting %s", root)
	}
	sort.Strings(paths)
	return paths, nil
}

func (p *Pipeline) matches(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range p.cfg.Extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

func (p *Pipeline) workers(n int) int {
	w := p.cfg.Workers
	if w <= 0 {
		w = runtime.NumCPU()
	}
	return max(1, min(w, n))
}

// Run converts paths with a worker pool and returns one result per path,
// in input order. Files not started before ctx is done (or before the first
// failure, with fail-fast) carry the context error.
func (p *Pipeline) Run(ctx context.Context, paths []string) []Result {
	total := len(paths)
	results := make([]Result, total)
	if total == 0 {
		return results
	}

	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var processed, failed atomic.Int64
	start := time.Now()
	workers := p.workers(total)
	p.log.Info("batch started", zap.Int("files", total), zap.Int("workers", workers))

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if n := processed.Load(); n > 0 {
					p.log.Info("batch progress",
						zap.Int64("processed", n),
						zap.Int("total", total),
						zap.Float64("per_sec", float64(n)/time.Since(start).Seconds()))
				}
			}
		}
	}()

	jobs := make(chan int, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if err := ctx.Err(); err != nil {
					results[idx] = Result{Path: paths[idx], Err: err}
					continue
				}
				results[idx] = p.process(paths[idx])
				processed.Add(1)
				if results[idx].Err != nil {
					failed.Add(1)
					if p.cfg.FailFast {
						cancel()
					}
				}
			}
		}()
	}

	for i := range paths {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	close(done)

	p.log.Info("batch finished",
		zap.Int64("processed", processed.Load()),
		zap.Int64("failed", failed.Load()),
		zap.Duration("elapsed", time.Since(start)))
	return results
}

func (p *Pipeline) process(path string) Result {
	start := time.Now()
	model, err := p.Convert(path)
	r := Result{Path: path, Model: model, Err: err, Duration: time.Since(start)}
	if err != nil {
		p.log.Error("conversion failed",
			zap.String("object", path),
			zap.String("kind", kindName(err)),
			zap.Error(err))
	}
	return r
}

func kindName(err error) string {
	switch iff.Kind(err) {
	case iff.ErrTruncatedRecord:
		return "truncated"
	case iff.ErrMalformedField:
		return "malformed"
	case iff.ErrUnresolvedReference:
		return "unresolved"
	}
	return "io"
}
