package main

import (
	"context"

	"colorseg/internal/display"
	"colorseg/internal/logging"
	"colorseg/internal/mask"
	"colorseg/internal/model"
	"colorseg/internal/session"
	"colorseg/ui/paintwin"

	"github.com/spf13/cobra"
)

func newRunCmd(e *env) *cobra.Command {
	var (
		saveModel string
		distance  bool
		zoom      float32
	)

	cmd := &cobra.Command{
		Use:   "run [SOURCE]",
		Short: "paint a region on the first frame, then segment the stream live",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			src, err := e.openSource(args)
			if err != nil {
				return err
			}
			defer src.Close()

			ref, err := session.Reference(ctx, src)
			if err != nil {
				return err
			}
			e.log.Info().Int("width", ref.Width).Int("height", ref.Height).Msg("reference frame captured")

			opts := paintwin.Options{
				Title:         "colorseg",
				StrokeWidth:   e.cfg.StrokeWidth,
				Zoom:          zoom,
				DistanceView:  distance,
				DistanceScale: e.cfg.DistanceScale,
				Log:           logging.Component(e.log, "paint"),
			}
			return paintwin.Run(ctx, ref, opts, func(ctx context.Context, m *mask.Mask, live *paintwin.LiveSink) error {
				md, err := model.Train(ref, m, e.trainOptions())
				if err != nil {
					return err
				}
				e.logModel(md)
				if saveModel != "" {
					if err := md.Save(saveModel); err != nil {
						return err
					}
					e.log.Info().Str("path", saveModel).Msg("model saved")
				}

				sinks := display.Multi{live}
				fs, err := e.fileSink()
				if err != nil {
					return err
				}
				if fs != nil {
					sinks = append(sinks, fs)
				}
				defer sinks.Close()

				loop := &session.Loop{
					Source:     session.Prepend(ref, src),
					Classifier: e.classifier(md),
					Sink:       sinks,
					Log:        logging.Component(e.log, "session"),
				}
				_, err = loop.Run(ctx)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&saveModel, "save-model", "", "also save the trained model to this file")
	cmd.Flags().BoolVar(&distance, "distance", false, "show the distance map instead of the mask")
	cmd.Flags().Float32Var(&zoom, "zoom", 1, "display scale of the painting window")
	return cmd
}
