// Command dpixdemo renders a small procedural scene through the line
// pipeline and writes the stroked frames as BMP images.
//
// Usage:
//
//	dpixdemo -frames 8 -out frames/
//	dpixdemo -backend wgpu -settings dpix.toml -dump atlas/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/image/bmp"

	"github.com/gogpu/dpix"
	"github.com/gogpu/dpix/atlas"
	"github.com/gogpu/dpix/backend"
	_ "github.com/gogpu/dpix/backend/software"
	_ "github.com/gogpu/dpix/backend/wgpu"
	"github.com/gogpu/dpix/gpucore"
	"github.com/gogpu/dpix/stroke"
)

type config struct {
	width, height int
	frames        int
	speed         float64
	backend       string
	workers       int
	settings      string
	style         string
	out           string
	dump          string
}

func main() {
	var cfg config
	flag.IntVar(&cfg.width, "width", 640, "image width")
	flag.IntVar(&cfg.height, "height", 480, "image height")
	flag.IntVar(&cfg.frames, "frames", 4, "number of frames to render")
	flag.Float64Var(&cfg.speed, "speed", 0.5, "animation distance per frame")
	flag.StringVar(&cfg.backend, "backend", backend.BackendSoftware, "device backend (software, wgpu, auto)")
	flag.IntVar(&cfg.workers, "workers", 0, "software device workers (0 = GOMAXPROCS)")
	flag.StringVar(&cfg.settings, "settings", "", "TOML settings file")
	flag.StringVar(&cfg.style, "style", "", "TOML style file")
	flag.StringVar(&cfg.out, "out", ".", "output directory")
	flag.StringVar(&cfg.dump, "dump", "", "dump the atlas textures of the first frame into this directory")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	dpix.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(context.Background(), cfg); err != nil {
		log.Fatalf("dpixdemo: %v", err)
	}
}

func openDevice(cfg config) (gpucore.Adapter, error) {
	bc := backend.Config{Workers: cfg.workers}
	if cfg.backend == "auto" {
		return backend.Default(bc)
	}
	return backend.Open(cfg.backend, bc)
}

func loadConfig(cfg config) (dpix.Settings, *dpix.Style, error) {
	settings := dpix.DefaultSettings()
	style := dpix.DefaultStyle()
	var err error
	if cfg.settings != "" {
		if settings, err = dpix.LoadSettings(cfg.settings); err != nil {
			return settings, nil, err
		}
	}
	if cfg.workers > 0 {
		settings.Workers = cfg.workers
	}
	if cfg.style != "" {
		if style, err = dpix.LoadStyle(cfg.style); err != nil {
			return settings, nil, err
		}
	}
	return settings, style, nil
}

func run(ctx context.Context, cfg config) error {
	if cfg.frames < 1 {
		return fmt.Errorf("frames must be at least 1, got %d", cfg.frames)
	}
	settings, style, err := loadConfig(cfg)
	if err != nil {
		return err
	}
	scene, lap, err := buildScene(float32(cfg.speed))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.out, 0o755); err != nil {
		return err
	}

	dev, err := openDevice(cfg)
	if err != nil {
		return err
	}
	defer dev.Destroy()

	sa, err := atlas.New(dev, atlas.WithSettings(settings), atlas.WithStyle(style))
	if err != nil {
		return err
	}
	defer sa.Destroy()
	if cfg.dump != "" {
		sa.DumpNextFrame(cfg.dump)
	}

	cam := demoCamera(cfg.width, cfg.height)
	renderer := stroke.NewRenderer()
	sink := stroke.NewImageSink(cfg.width, cfg.height, style)
	logger := dpix.Logger()
	logger.Info("dpixdemo: rendering", "device", dev.Name(), "frames", cfg.frames, "lap", lap,
		"segments", scene.TotalSegments())

	for frame := range cfg.frames {
		scene.SetFrame(frame)
		start := time.Now()
		drawn, err := sa.Draw(ctx, scene, &cam)
		if err != nil {
			// Device errors poison the atlas.
			return fmt.Errorf("frame %d: %w", frame, err)
		}
		sink.Clear()
		quads := 0
		if drawn {
			if quads, err = renderer.Render(ctx, sa, style, sink); err != nil {
				return fmt.Errorf("frame %d: stroke: %w", frame, err)
			}
		}
		path := filepath.Join(cfg.out, fmt.Sprintf("frame_%03d.bmp", frame))
		if err := writeBMP(path, sink); err != nil {
			return err
		}
		logger.Info("dpixdemo: frame",
			"frame", frame,
			"segments", sa.TotalSegments(),
			"samples", sa.TotalSamples(),
			"quads", quads,
			"elapsed", time.Since(start).Round(time.Microsecond),
			"file", path)
	}
	return nil
}

func writeBMP(path string, sink *stroke.ImageSink) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := bmp.Encode(f, sink.Image()); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
