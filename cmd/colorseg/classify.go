package main

import (
	"colorseg/internal/display"
	"colorseg/internal/logging"
	"colorseg/internal/model"
	"colorseg/internal/session"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newClassifyCmd(e *env) *cobra.Command {
	var (
		modelPath string
		headless  bool
		maxFrames int
	)

	cmd := &cobra.Command{
		Use:   "classify [SOURCE]",
		Short: "segment a stream with a saved model",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if modelPath == "" {
				return errors.Wrap(errUsage, "--model is required")
			}

			md, err := model.Load(modelPath)
			if err != nil {
				return err
			}
			e.logModel(md)

			src, err := e.openSource(args)
			if err != nil {
				return err
			}
			defer src.Close()

			ref, err := session.Reference(ctx, src)
			if err != nil {
				return err
			}
			e.checkOrder(md, ref.Order.String())

			var sinks display.Multi
			if !headless {
				w, err := display.NewWindowSink("colorseg", e.cfg.DistanceScale, e.cfg.OutputDir, logging.Component(e.log, "display"))
				if err != nil {
					return err
				}
				sinks = append(sinks, w)
			}
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
				MaxFrames:  maxFrames,
			}
			st, err := loop.Run(ctx)
			if err != nil {
				return err
			}
			if st.Pixels > 0 {
				e.log.Info().
					Float64("foreground_ratio", float64(st.Foreground)/float64(st.Pixels)).
					Dur("elapsed", st.Elapsed).
					Msg("classification summary")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&modelPath, "model", "m", "", "model file written by train")
	cmd.Flags().BoolVar(&headless, "headless", false, "do not open a window")
	cmd.Flags().IntVar(&maxFrames, "frames", 0, "stop after this many frames (0 = whole stream)")
	return cmd
}
