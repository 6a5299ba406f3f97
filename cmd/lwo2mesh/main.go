// lwo2mesh converts LightWave LWO2 objects into indexed triangle meshes in
// batch, reporting per-file results.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/Faultbox/lwo2mesh/internal/config"
	"github.com/Faultbox/lwo2mesh/internal/logger"
	"github.com/Faultbox/lwo2mesh/internal/pipeline"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	command := args[0]
	args = args[1:]

	switch command {
	case "convert", "c":
		return cmdConvert(args, stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage(stderr)
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `lwo2mesh - LightWave LWO2 batch converter

Usage:
  lwo2mesh convert [options] <path>...

Options:
  -config <file>    Configuration file
  -workers <n>      Parallel workers (0 = one per CPU)
  -fail-fast        Stop at the first failure

Examples:
  lwo2mesh convert ./objects
  lwo2mesh convert -workers 4 -fail-fast a.lwo b.lwo`)
}

func cmdConvert(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Configuration file")
	workers := fs.Int("workers", -1, "Parallel workers (0 = one per CPU)")
	failFast := fs.Bool("fail-fast", false, "Stop at the first failure")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(stderr, "Usage: lwo2mesh convert [options] <path>...")
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if *workers >= 0 {
		cfg.Pipeline.Workers = *workers
	}
	if *failFast {
		cfg.Pipeline.FailFast = true
	}

	if err := logger.Init(cfg.LoggerOptions()); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	p, err := pipeline.New(cfg, logger.Named("pipeline"))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	var paths []string
	for _, arg := range fs.Args() {
		info, err := os.Stat(arg)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		found, err := p.Collect(arg)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		paths = append(paths, found...)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results := p.Run(ctx, paths)
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(stdout, "FAIL %s: %v\n", r.Path, r.Err)
			continue
		}
		tris := 0
		for _, l := range r.Model.Layers {
			for _, s := range l.Surfaces {
				tris += s.TriangleCount()
			}
		}
		fmt.Fprintf(stdout, "ok   %s (%d layers, %d triangles)\n", r.Path, len(r.Model.Layers), tris)
	}

	s := pipeline.Summarize(results)
	fmt.Fprintf(stderr, "\n%d converted, %d failed, %d triangles, %d incomplete vertices\n",
		s.Succeeded, s.Failed, s.Triangles, s.Incomplete)
	if s.Failed > 0 {
		return 1
	}
	return 0
}
