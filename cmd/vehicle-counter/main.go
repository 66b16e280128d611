package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	vehiclecounter "github.com/menta2k/vehicle-counter"
	"github.com/menta2k/vehicle-counter/internal/config"
	"github.com/menta2k/vehicle-counter/internal/logging"
	"github.com/menta2k/vehicle-counter/internal/report"
	"github.com/menta2k/vehicle-counter/internal/utils"
	"github.com/menta2k/vehicle-counter/pkg/pipeline"
)

const (
	flagConfig            = "config"
	flagInput             = "input"
	flagOutput            = "output"
	flagInputBackend      = "input-backend"
	flagOutputBackend     = "output-backend"
	flagFPS               = "fps"
	flagCodec             = "codec"
	flagLogLevel          = "log-level"
	flagDev               = "dev"
	flagProcessProbeFrame = "process-probe-frame"
	flagLabels            = "labels"
	flagForce             = "force"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "vehicle-counter",
		Usage:   "count cars, bikes, pedestrians and buses in a video",
		Version: vehiclecounter.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "process a video and write the annotated result",
				Action: runAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    flagConfig,
						Aliases: []string{"c"},
						Usage:   "load configuration from `FILE`",
					},
					&cli.StringFlag{Name: flagInput, Aliases: []string{"i"}, Usage: "input video, device or image directory"},
					&cli.StringFlag{Name: flagOutput, Aliases: []string{"o"}, Usage: "output video or image directory"},
					&cli.StringFlag{Name: flagInputBackend, Usage: "input backend: opencv, ffmpeg or images"},
					&cli.StringFlag{Name: flagOutputBackend, Usage: "output backend: opencv, ffmpeg or images"},
					&cli.Float64Flag{Name: flagFPS, Usage: "output frame rate"},
					&cli.StringFlag{Name: flagCodec, Usage: "output codec (fourcc for opencv, encoder for ffmpeg, format for images)"},
					&cli.StringFlag{Name: flagLogLevel, Usage: "debug, info, warn or error"},
					&cli.BoolFlag{Name: flagDev, Usage: "human readable development logging"},
					&cli.BoolFlag{Name: flagProcessProbeFrame, Usage: "count the first frame instead of only using it to size the output"},
					&cli.BoolFlag{Name: flagLabels, Usage: "draw category names above boxes"},
				},
			},
			{
				Name:      "init-config",
				Usage:     "write the default configuration",
				ArgsUsage: "[FILE]",
				Action:    initConfigAction,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: flagForce, Aliases: []string{"f"}, Usage: "overwrite an existing file"},
				},
			},
		},
	}
}

// loadConfig reads the config file, if any, and applies flag overrides
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String(flagConfig); path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.IsSet(flagInput) {
		cfg.Input.Path = c.String(flagInput)
	}
	if c.IsSet(flagOutput) {
		cfg.Output.Path = c.String(flagOutput)
	}
	if c.IsSet(flagInputBackend) {
		cfg.Input.Backend = c.String(flagInputBackend)
	}
	if c.IsSet(flagOutputBackend) {
		cfg.Output.Backend = c.String(flagOutputBackend)
	}
	if c.IsSet(flagFPS) {
		cfg.Output.FPS = c.Float64(flagFPS)
	}
	if c.IsSet(flagCodec) {
		cfg.Output.Codec = c.String(flagCodec)
	}
	if c.IsSet(flagLogLevel) {
		cfg.Logging.Level = c.String(flagLogLevel)
	}
	if c.IsSet(flagDev) {
		cfg.Logging.Development = c.Bool(flagDev)
	}
	if c.IsSet(flagProcessProbeFrame) {
		cfg.Pipeline.ProcessProbeFrame = c.Bool(flagProcessProbeFrame)
	}
	if c.IsSet(flagLabels) {
		cfg.Overlay.Labels = c.Bool(flagLabels)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runAction(c *cli.Context) (err error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	handles, cleanup, err := buildHandles(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, cleanup.Close())
	}()

	open, create, err := streamOpeners(cfg)
	if err != nil {
		return err
	}

	out := c.App.Writer
	vc, err := vehiclecounter.New(handles,
		vehiclecounter.WithStreams(open, create),
		vehiclecounter.WithPipelineOptions(
			pipeline.WithLogger(logger),
			pipeline.WithOutputFPS(cfg.Output.FPS),
			pipeline.WithCodec(cfg.Output.Codec),
			pipeline.WithProcessProbeFrame(cfg.Pipeline.ProcessProbeFrame),
			pipeline.WithAnnotator(buildAnnotator(cfg.Overlay)),
			pipeline.WithFrameHook(func(s pipeline.FrameStats) {
				fmt.Fprintf(out, "Inference time for frame %d: %.4f seconds\n", s.Index, s.Elapsed.Seconds())
			}),
		),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintln(out, "Processing video...")
	summary, runErr := vc.Process(ctx, cfg.Input.Path, cfg.Output.Path)
	if summary != nil {
		if werr := report.Write(out, summary); werr != nil {
			logger.Warn("failed to write report", zap.Error(werr))
		}
	}
	return runErr
}

func initConfigAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		path = config.GetConfigPath()
	}
	if utils.FileExists(path) && !c.Bool(flagForce) {
		return fmt.Errorf("%s already exists (use --%s to overwrite)", path, flagForce)
	}
	if err := config.Default().SaveToFile(path); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Wrote default configuration to %s\n", path)
	return nil
}
