package main

import (
	"colorseg/internal/capture"
	"colorseg/internal/classify"
	"colorseg/internal/config"
	"colorseg/internal/display"
	"colorseg/internal/logging"
	"colorseg/internal/model"
	"colorseg/pkg/colorutil"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var errUsage = errors.New("usage error")

// env is the state shared by every subcommand once flags and the config
// file have been merged.
type env struct {
	configPath string
	flags      config.Config
	cfg        config.Config
	log        zerolog.Logger
}

func newRootCmd() *cobra.Command {
	e := &env{flags: config.Default()}

	root := &cobra.Command{
		Use:           "colorseg",
		Short:         "segment video by Mahalanobis distance to a painted color region",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&e.configPath, "config", config.DefaultPath(), "YAML configuration file")
	pf.Float64Var(&e.flags.Threshold, "threshold", e.flags.Threshold, "distance below which a pixel is foreground")
	pf.IntVar(&e.flags.MaxSamples, "max-samples", e.flags.MaxSamples, "maximum number of training samples")
	pf.IntVar(&e.flags.WarmupFrames, "warmup", e.flags.WarmupFrames, "frames discarded when the source opens")
	pf.Float64Var(&e.flags.StrokeWidth, "stroke-width", e.flags.StrokeWidth, "paint brush width in pixels")
	pf.IntVar(&e.flags.Workers, "workers", e.flags.Workers, "parallel classification workers (0 = all CPUs)")
	pf.StringVar((*string)(&e.flags.ColorSpace), "color-space", string(e.flags.ColorSpace), colorSpaceHelp())
	pf.BoolVar(&e.flags.Equalize, "equalize", e.flags.Equalize, "equalize each channel's histogram before use")
	pf.Float64Var(&e.flags.Regularization, "regularization", e.flags.Regularization, "variance added to each channel when the covariance is singular")
	pf.Float64Var(&e.flags.EigenTolerance, "eigen-tolerance", e.flags.EigenTolerance, "relative eigenvalue cutoff of the pseudo-inverse")
	pf.Float64Var(&e.flags.DistanceScale, "distance-scale", e.flags.DistanceScale, "gray levels per unit distance in distance maps")
	pf.StringVar(&e.flags.OutputDir, "output-dir", e.flags.OutputDir, "write per-frame masks to this directory")
	pf.StringVar(&e.flags.LogLevel, "log-level", e.flags.LogLevel, "debug, info, warn or error")
	pf.StringVar(&e.flags.LogFormat, "log-format", e.flags.LogFormat, "console or json")

	root.AddCommand(
		newRunCmd(e),
		newTrainCmd(e),
		newClassifyCmd(e),
		newVersionCmd(),
	)
	return root
}

// load reads the config file and applies every flag set explicitly on the
// command line over it.
func (e *env) load(cmd *cobra.Command) error {
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return err
	}

	fs := cmd.Flags()
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("threshold", func() { cfg.Threshold = e.flags.Threshold })
	set("max-samples", func() { cfg.MaxSamples = e.flags.MaxSamples })
	set("warmup", func() { cfg.WarmupFrames = e.flags.WarmupFrames })
	set("stroke-width", func() { cfg.StrokeWidth = e.flags.StrokeWidth })
	set("workers", func() { cfg.Workers = e.flags.Workers })
	set("color-space", func() { cfg.ColorSpace = e.flags.ColorSpace })
	set("equalize", func() { cfg.Equalize = e.flags.Equalize })
	set("regularization", func() { cfg.Regularization = e.flags.Regularization })
	set("eigen-tolerance", func() { cfg.EigenTolerance = e.flags.EigenTolerance })
	set("distance-scale", func() { cfg.DistanceScale = e.flags.DistanceScale })
	set("output-dir", func() { cfg.OutputDir = e.flags.OutputDir })
	set("log-level", func() { cfg.LogLevel = e.flags.LogLevel })
	set("log-format", func() { cfg.LogFormat = e.flags.LogFormat })

	if err := cfg.Validate(); err != nil {
		return err
	}
	e.cfg = cfg

	log, err := logging.Stderr(cfg.LogLevel, logging.Format(cfg.LogFormat))
	if err != nil {
		return errors.Wrap(config.ErrInvalid, err.Error())
	}
	e.log = log
	e.log.Debug().Str("config", e.configPath).Interface("settings", cfg).Msg("configuration loaded")
	return nil
}

// source resolves the positional SOURCE argument against the config.
func (e *env) source(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return e.cfg.Source
}

func (e *env) openSource(args []string) (capture.Source, error) {
	target := e.source(args)
	e.log.Info().Str("source", target).Msg("opening source")
	return capture.Open(target, capture.Options{
		WarmupFrames: e.cfg.WarmupFrames,
		ColorSpace:   e.cfg.ColorSpace,
		Equalize:     e.cfg.Equalize,
		Log:          logging.Component(e.log, "capture"),
	})
}

func (e *env) trainOptions() model.Options {
	return model.Options{
		MaxSamples:     e.cfg.MaxSamples,
		Tolerance:      e.cfg.EigenTolerance,
		Regularization: e.cfg.Regularization,
	}
}

func (e *env) classifier(md *model.Model) *classify.Classifier {
	return md.Classifier(
		classify.WithThreshold(e.cfg.Threshold),
		classify.WithWorkers(e.cfg.Workers),
	)
}

// fileSink returns the configured file sink, or nil when output_dir is unset.
func (e *env) fileSink() (display.Sink, error) {
	if e.cfg.OutputDir == "" {
		return nil, nil
	}
	fs, err := display.NewFileSink(e.cfg.OutputDir, e.cfg.DistanceScale, logging.Component(e.log, "display"))
	if err != nil {
		return nil, err
	}
	return fs, nil
}

// logModel reports a freshly trained or loaded model.
func (e *env) logModel(md *model.Model) {
	ev := e.log.Info()
	if md.Singular() {
		ev = e.log.Warn().Bool("singular", true)
	}
	ev.Floats64("mean", md.Mean[:]).
		Int("samples", md.Samples).
		Int("rank", md.Rank).
		Bool("regularized", md.Regularized).
		Str("order", md.Order).
		Msg("color model ready")
	if md.Truncated {
		e.log.Info().Int("max_samples", e.cfg.MaxSamples).Msg("sample cap reached, training used the first samples only")
	}
}

// checkOrder warns when frames arrive in a different channel order than the
// model was trained on.
func (e *env) checkOrder(md *model.Model, order string) {
	if md.Order != order {
		e.log.Warn().Str("model", md.Order).Str("source", order).
			Msg("channel order differs from training, distances will be meaningless")
	}
}

func colorSpaceHelp() string {
	return string(colorutil.SpaceNative) + ", " + string(colorutil.SpaceRGB) + " or " + string(colorutil.SpaceHSV)
}
