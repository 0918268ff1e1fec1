package main

import (
	"context"

	"colorseg/internal/frame"
	"colorseg/internal/logging"
	"colorseg/internal/mask"
	"colorseg/internal/model"
	"colorseg/internal/session"
	"colorseg/pkg/colorutil"
	"colorseg/ui/paintwin"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newTrainCmd(e *env) *cobra.Command {
	var (
		framePath string
		maskPath  string
		output    string
	)

	cmd := &cobra.Command{
		Use:   "train [SOURCE]",
		Short: "train a color model and save it",
		Long: "Train a color model from a reference frame and a training mask. " +
			"Without --mask the reference frame opens for painting. " +
			"Without --frame the first frame of SOURCE is used.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if output == "" {
				return errors.Wrap(errUsage, "--output is required")
			}

			ref, err := e.referenceFrame(ctx, framePath, args)
			if err != nil {
				return err
			}

			save := func(m *mask.Mask) (*model.Model, error) {
				md, err := model.Train(ref, m, e.trainOptions())
				if err != nil {
					return nil, err
				}
				e.logModel(md)
				if err := md.Save(output); err != nil {
					return nil, err
				}
				e.log.Info().Str("path", output).Msg("model saved")
				return md, nil
			}

			if maskPath != "" {
				m, err := mask.Load(maskPath)
				if err != nil {
					return err
				}
				_, err = save(m)
				return err
			}

			opts := paintwin.Options{
				Title:       "colorseg train",
				StrokeWidth: e.cfg.StrokeWidth,
				Zoom:        1,
				Log:         logging.Component(e.log, "paint"),
			}
			return paintwin.Run(ctx, ref, opts, func(ctx context.Context, m *mask.Mask, live *paintwin.LiveSink) error {
				md, err := save(m)
				if err != nil {
					return err
				}
				// Preview the trained model on the reference frame itself.
				res, err := e.classifier(md).Classify(ctx, ref)
				if err != nil {
					return err
				}
				return live.Show(ctx, res)
			})
		},
	}

	cmd.Flags().StringVar(&framePath, "frame", "", "reference image file (default: first frame of SOURCE)")
	cmd.Flags().StringVar(&maskPath, "mask", "", "training mask image, non-zero pixels are trained on")
	cmd.Flags().StringVarP(&output, "output", "o", "model.json", "model file to write")
	return cmd
}

// referenceFrame loads path when set, else captures the first frame of the
// configured source.
func (e *env) referenceFrame(ctx context.Context, path string, args []string) (*frame.Frame, error) {
	if path != "" {
		f, err := frame.Load(path)
		if err != nil {
			return nil, err
		}
		if e.cfg.Equalize {
			e.log.Warn().Str("frame", path).
				Msg("histogram equalization needs OpenCV, training colors are not equalized")
		}
		if e.cfg.ColorSpace == colorutil.SpaceHSV {
			f = f.ToHSV()
		}
		return f, nil
	}

	src, err := e.openSource(args)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return session.Reference(ctx, src)
}
