package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/menta2k/vehicle-counter/internal/config"
	"github.com/menta2k/vehicle-counter/pkg/processing"
	"github.com/menta2k/vehicle-counter/pkg/types"
)

func writeFrames(t *testing.T, dir string, n int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	p := processing.NewProcessor()
	for i := 0; i < n; i++ {
		img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
		for y := 0; y < 64; y++ {
			for x := 0; x < 64; x++ {
				c := color.NRGBA{20, 20, 20, 255}
				if x >= 16 && x < 32 && y >= 16 && y < 32 {
					c = color.NRGBA{250, 250, 250, 255}
				}
				img.SetNRGBA(x, y, c)
			}
		}
		name := filepath.Join(dir, string(rune('a'+i))+".png")
		require.NoError(t, p.SaveImage(img, name, "png", 90, false))
	}
}

func saliencyConfig(in, out string) *config.Config {
	cfg := config.Default()
	cfg.Input = config.InputConfig{Path: in, Backend: config.BackendImages}
	cfg.Output = config.OutputConfig{Path: out, Backend: config.BackendImages, FPS: 20, Codec: "png"}
	cfg.Detectors = []config.DetectorConfig{{Category: "car", Backend: config.DetectorSaliency}}
	cfg.Logging.Level = "error"
	return cfg
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	in, out := filepath.Join(dir, "in"), filepath.Join(dir, "out")
	writeFrames(t, in, 3)

	cfgPath := filepath.Join(dir, "config.json")
	require.NoError(t, saliencyConfig(in, out).SaveToFile(cfgPath))

	var buf bytes.Buffer
	app := newApp()
	app.Writer = &buf
	require.NoError(t, app.Run([]string{"vehicle-counter", "run", "--config", cfgPath, "--labels"}))

	text := buf.String()
	require.Contains(t, text, "Inference time for frame 1:")
	require.Contains(t, text, "Inference time for frame 2:")
	require.Contains(t, text, "Cars: 2")

	written, err := filepath.Glob(filepath.Join(out, "*.png"))
	require.NoError(t, err)
	require.Len(t, written, 2)
}

func TestRunCommandProbeFrameFlag(t *testing.T) {
	dir := t.TempDir()
	in, out := filepath.Join(dir, "in"), filepath.Join(dir, "out")
	writeFrames(t, in, 2)
	cfgPath := filepath.Join(dir, "config.json")
	require.NoError(t, saliencyConfig(in, out).SaveToFile(cfgPath))

	var buf bytes.Buffer
	app := newApp()
	app.Writer = &buf
	require.NoError(t, app.Run([]string{"vehicle-counter", "run", "-c", cfgPath, "--process-probe-frame"}))
	require.Contains(t, buf.String(), "Cars: 2")
}

func TestRunCommandInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.json")
	require.NoError(t, saliencyConfig(filepath.Join(dir, "in"), filepath.Join(dir, "out")).SaveToFile(cfgPath))

	app := newApp()
	app.Writer = &bytes.Buffer{}
	require.Error(t, app.Run([]string{"vehicle-counter", "run", "-c", cfgPath, "--fps", "0"}))
}

func TestRunCommandEmptyInput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	require.NoError(t, os.MkdirAll(in, 0o755))
	cfgPath := filepath.Join(dir, "config.json")
	require.NoError(t, saliencyConfig(in, filepath.Join(dir, "out")).SaveToFile(cfgPath))

	app := newApp()
	app.Writer = &bytes.Buffer{}
	require.Error(t, app.Run([]string{"vehicle-counter", "run", "-c", cfgPath}))
	require.NoDirExists(t, filepath.Join(dir, "out"))
}

func TestInitConfigCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vc", "config.json")
	run := func(args ...string) error {
		app := newApp()
		app.Writer = &bytes.Buffer{}
		return app.Run(append([]string{"vehicle-counter", "init-config"}, args...))
	}

	require.NoError(t, run(path))
	cfg, err := config.LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, config.Default(), cfg)

	require.Error(t, run(path))
	require.NoError(t, run("--force", path))
}

func TestBuildHandles(t *testing.T) {
	cfg := config.Default()
	cfg.Detectors = []config.DetectorConfig{
		{Category: "car", Backend: config.DetectorSaliency},
		{Category: "bus", Backend: config.DetectorOllama, Model: "llava", URL: "http://127.0.0.1:1", Color: &types.Color{R: 1}},
		{Category: "bike", Backend: config.DetectorLlamaCpp, Model: "qwen-vl", URL: "http://127.0.0.1:1", Labels: []string{"bicycle"}, MinConfidence: 0.5},
	}

	handles, cleanup, err := buildHandles(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, cleanup.Close())
	require.Len(t, handles, 3)
	require.Equal(t, types.Car, handles[0].Category())
	require.Equal(t, types.Color{R: 1}, handles[1].Color())
	require.Equal(t, types.Color{G: 255}, handles[2].Color())

	cfg.Detectors = []config.DetectorConfig{{Category: "car", Backend: config.DetectorCascade, ModelPath: filepath.Join(t.TempDir(), "cars.xml"), ScaleFactor: 1.1}}
	_, _, err = buildHandles(context.Background(), cfg, zaptest.NewLogger(t))
	require.Error(t, err)
}

func TestStreamOpeners(t *testing.T) {
	for _, backend := range []string{config.BackendOpenCV, config.BackendFFmpeg, config.BackendImages} {
		cfg := config.Default()
		cfg.Input.Backend = backend
		cfg.Output.Backend = backend
		open, create, err := streamOpeners(cfg)
		require.NoError(t, err)
		require.NotNil(t, open)
		require.NotNil(t, create)
	}

	cfg := config.Default()
	cfg.Output.Backend = "gstreamer"
	_, _, err := streamOpeners(cfg)
	require.Error(t, err)
}

func TestBuildAnnotator(t *testing.T) {
	a := buildAnnotator(config.OverlayConfig{Thickness: 3, Labels: true})
	require.Equal(t, 3, a.Thickness)
	require.True(t, a.Labels)
	require.False(t, buildAnnotator(config.OverlayConfig{Thickness: 2}).Labels)
}
