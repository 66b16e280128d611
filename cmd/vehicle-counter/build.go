package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/menta2k/vehicle-counter/internal/config"
	"github.com/menta2k/vehicle-counter/pkg/annotate"
	"github.com/menta2k/vehicle-counter/pkg/cascade"
	"github.com/menta2k/vehicle-counter/pkg/client"
	"github.com/menta2k/vehicle-counter/pkg/detection"
	"github.com/menta2k/vehicle-counter/pkg/ffmpeg"
	"github.com/menta2k/vehicle-counter/pkg/llamacpp"
	"github.com/menta2k/vehicle-counter/pkg/ollama"
	"github.com/menta2k/vehicle-counter/pkg/stream"
	"github.com/menta2k/vehicle-counter/pkg/types"
	"github.com/menta2k/vehicle-counter/pkg/video"
	"github.com/menta2k/vehicle-counter/pkg/vision"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultLlamaCppURL = "http://localhost:8080"
	healthTimeout      = 5 * time.Second
)

// closers releases detector resources in reverse creation order
type closers []io.Closer

func (c closers) Close() error {
	var err error
	for i := len(c) - 1; i >= 0; i-- {
		err = multierr.Append(err, c[i].Close())
	}
	return err
}

// buildHandles creates one handle per configured detector, in config order
func buildHandles(ctx context.Context, cfg *config.Config, logger *zap.Logger) ([]*detection.Handle, closers, error) {
	var (
		handles []*detection.Handle
		cleanup closers
	)
	for i, dc := range cfg.Detectors {
		det, closer, err := buildDetector(ctx, dc, logger)
		if err != nil {
			_ = cleanup.Close()
			return nil, nil, fmt.Errorf("detectors[%d] (%s): %w", i, dc.Category, err)
		}
		if closer != nil {
			cleanup = append(cleanup, closer)
		}
		h, err := detection.NewHandle(types.Category(dc.Category), dc.OverlayColor(), det)
		if err != nil {
			_ = cleanup.Close()
			return nil, nil, err
		}
		logger.Info("detector ready",
			zap.String("category", dc.Category),
			zap.String("backend", dc.Backend))
		handles = append(handles, h)
	}
	return handles, cleanup, nil
}

func buildDetector(ctx context.Context, dc config.DetectorConfig, logger *zap.Logger) (detection.Detector, io.Closer, error) {
	switch dc.Backend {
	case config.DetectorCascade:
		d, err := cascade.New(cascade.Config{
			ModelPath:    dc.ModelPath,
			ScaleFactor:  dc.ScaleFactor,
			MinNeighbors: dc.MinNeighbors,
			MinSize:      dc.MinSize,
		})
		if err != nil {
			return nil, nil, err
		}
		return d, d, nil
	case config.DetectorSaliency:
		return vision.New(), nil, nil
	case config.DetectorOllama, config.DetectorLlamaCpp:
		c, err := visionClient(dc)
		if err != nil {
			return nil, nil, err
		}
		checkHealth(ctx, c, dc, logger)
		vc := detection.DefaultVisionConfig(dc.Model, types.Category(dc.Category))
		if len(dc.Labels) > 0 {
			vc.Labels = dc.Labels
		}
		if dc.MinConfidence > 0 {
			vc.MinConfidence = dc.MinConfidence
		}
		d, err := detection.NewVisionDetector(c, vc)
		if err != nil {
			return nil, nil, err
		}
		return d, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown detector backend %q", dc.Backend)
}

func visionClient(dc config.DetectorConfig) (client.VisionClient, error) {
	url := dc.URL
	switch dc.Backend {
	case config.DetectorOllama:
		if url == "" {
			url = defaultOllamaURL
		}
		return ollama.NewClient(url)
	default:
		if url == "" {
			url = defaultLlamaCppURL
		}
		return llamacpp.NewClient(url)
	}
}

// checkHealth warns when a model server is not reachable yet. Detection
// still fails per frame if it stays down.
func checkHealth(ctx context.Context, c client.VisionClient, dc config.DetectorConfig, logger *zap.Logger) {
	hc, ok := c.(client.HealthChecker)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	if err := hc.Health(ctx); err != nil {
		logger.Warn("model server not ready",
			zap.String("category", dc.Category),
			zap.String("backend", dc.Backend),
			zap.Error(err))
	}
}

// streamOpeners returns the source and sink openers for the configured backends
func streamOpeners(cfg *config.Config) (stream.Opener, stream.SinkOpener, error) {
	var (
		open   stream.Opener
		create stream.SinkOpener
	)
	switch cfg.Input.Backend {
	case config.BackendOpenCV:
		open = video.Open
	case config.BackendFFmpeg:
		open = ffmpeg.Open
	case config.BackendImages:
		open = stream.OpenImageSequence
	default:
		return nil, nil, fmt.Errorf("unknown input backend %q", cfg.Input.Backend)
	}
	switch cfg.Output.Backend {
	case config.BackendOpenCV:
		create = video.Create
	case config.BackendFFmpeg:
		create = ffmpeg.Create
	case config.BackendImages:
		create = stream.CreateImageSequence
	default:
		return nil, nil, fmt.Errorf("unknown output backend %q", cfg.Output.Backend)
	}
	return open, create, nil
}

func buildAnnotator(cfg config.OverlayConfig) *annotate.Annotator {
	if cfg.Labels {
		return annotate.NewWithLabels(cfg.Thickness)
	}
	return &annotate.Annotator{Thickness: cfg.Thickness}
}
