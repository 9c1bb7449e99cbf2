package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/npuflow/decode"
	"github.com/kbukum/npuflow/logger"
)

type runOptions struct {
	model     string
	synthetic int
	results   bool
}

// runSummary is printed to stdout once the batch completes.
type runSummary struct {
	Model      string          `json:"model"`
	Mode       string          `json:"mode"`
	Window     int             `json:"window"`
	Count      int             `json:"count"`
	DurationMS float64         `json:"duration_ms"`
	Throughput float64         `json:"throughput_fps"`
	Results    []decode.Result `json:"results,omitempty"`
}

func newRunCommand(root *rootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [frames...]",
		Short: "Run one batch and print a summary",
		Long: `Run loads the model, runs one batch and prints a JSON summary.

Frames are raw interleaved files matching harness.layout. Without files,
--synthetic generated frames are used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if opts.model != "" {
				cfg.Harness.Model = opts.model
			}
			return runBatch(cmd, cfg, opts, args)
		},
	}
	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "model path, overrides harness.model")
	cmd.Flags().IntVarP(&opts.synthetic, "synthetic", "n", 64, "number of synthetic frames when no files are given")
	cmd.Flags().BoolVar(&opts.results, "results", false, "include per-frame results in the summary")
	return cmd
}

func runBatch(cmd *cobra.Command, cfg *AppConfig, opts *runOptions, paths []string) error {
	// stdout carries the summary.
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}
	app, sub, err := newApplication(cfg)
	if err != nil {
		return err
	}

	var summary runSummary
	err = app.RunTask(cmd.Context(), func(ctx context.Context) error {
		var (
			results []decode.Result
			err     error
		)
		start := time.Now()
		if len(paths) > 0 {
			results, err = sub.RunFiles(ctx, paths)
		} else {
			results, err = sub.RunBatch(ctx, syntheticFrames(opts.synthetic, cfg.Harness.Layout.PackedBytes()))
		}
		if err != nil {
			return err
		}
		elapsed := time.Since(start)

		summary = runSummary{
			Model:      cfg.Harness.Model,
			Mode:       string(cfg.Harness.Scheduler.Mode),
			Window:     cfg.Harness.Scheduler.Window,
			Count:      len(results),
			DurationMS: float64(elapsed.Microseconds()) / 1000,
		}
		if elapsed > 0 {
			summary.Throughput = float64(len(results)) / elapsed.Seconds()
		}
		if opts.results {
			summary.Results = results
		}
		app.Logger.Info("batch complete", logger.Fields(
			"count", summary.Count,
			logger.FieldDuration, elapsed.Milliseconds(),
		))
		return nil
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

// syntheticFrames returns n frames of size bytes. Frame i is filled with
// byte(i) so frames differ.
func syntheticFrames(n, size int) [][]byte {
	frames := make([][]byte, n)
	for i := range frames {
		frame := make([]byte, size)
		for j := range frame {
			frame[j] = byte(i + j)
		}
		frames[i] = frame
	}
	return frames
}
