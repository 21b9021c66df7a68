package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/plus3/rewind/codec"
	"github.com/plus3/rewind/examples/pong"
	"github.com/plus3/rewind/replay"
)

func (a *app) newSimulation(frames int) (*pong.ScriptedSimulation, error) {
	match, err := pong.NewMatch(a.matchConfig())
	if err != nil {
		return nil, err
	}
	return &pong.ScriptedSimulation{
		Match:  match,
		Script: pong.RandomScript(a.cfg.Match.Seed, frames),
	}, nil
}

func (a *app) framesFlag(cmd *cobra.Command, frames *int) {
	cmd.Flags().IntVarP(frames, "frames", "n", 0, "frames to simulate (default from config)")
}

func (a *app) frames(flag int) int {
	if flag > 0 {
		return flag
	}
	return a.cfg.Match.Frames
}

func (a *app) runCmd() *cobra.Command {
	var frames int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Play a scripted match and log the desync checksums",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n := a.frames(frames)
			sim, err := a.newSimulation(n)
			if err != nil {
				return err
			}
			every := a.cfg.Replay.ChecksumEvery

			a.log.Info("match started", zap.Int("frames", n), zap.Uint64("seed", a.cfg.Match.Seed))
			start := time.Now()
			for f := 0; f < n; f++ {
				tick := time.Now()
				if err := sim.Step(f); err != nil {
					return err
				}
				a.measureSince("tick", tick)
				a.incr("frames")

				if sim.Match.Frame()%every == 0 {
					sum, err := sim.Match.Checksum()
					if err != nil {
						return err
					}
					score := sim.Match.Score()
					a.log.Info("frame",
						zap.Int("frame", sim.Match.Frame()),
						zap.String("checksum", fmt.Sprintf("%016x", sum)),
						zap.Int("left", score.Left),
						zap.Int("right", score.Right))
				}
			}

			score := sim.Match.Score()
			a.log.Info("match finished",
				zap.Int("left", score.Left),
				zap.Int("right", score.Right),
				zap.Duration("elapsed", time.Since(start)))
			for _, s := range sim.Match.Stats().Systems {
				a.log.Debug("system",
					zap.String("name", s.Name),
					zap.Int64("executions", s.ExecutionCount),
					zap.Duration("avg", s.AvgDuration),
					zap.Duration("max", s.MaxDuration))
			}
			return nil
		},
	}
	a.framesFlag(cmd, &frames)
	return cmd
}

func (a *app) replayCmd() *cobra.Command {
	var (
		frames          int
		checkpointEvery int
		replays         int
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Roll back to every checkpoint and verify the match resimulates identically",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n := a.frames(frames)
			sim, err := a.newSimulation(n)
			if err != nil {
				return err
			}
			if checkpointEvery <= 0 {
				checkpointEvery = a.cfg.Replay.CheckpointEvery
			}
			if replays <= 0 {
				replays = a.cfg.Replay.Replays
			}

			opts := []replay.Option{
				replay.WithLogger(a.log),
				replay.WithCheckpointEvery(checkpointEvery),
				replay.WithReplays(replays),
			}
			if a.metrics != nil {
				opts = append(opts, replay.WithMetrics(a.metrics))
			}

			report, err := replay.New[pong.Score](opts...).Run(sim, n)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d frames, %d checkpoints, %d replays, final checksum %016x\n",
				report.RunID, report.Frames, len(report.Checkpoints), report.Replays, report.FinalChecksum)
			return report.Err()
		},
	}
	a.framesFlag(cmd, &frames)
	cmd.Flags().IntVar(&checkpointEvery, "checkpoint-every", 0, "frames between checkpoints (default from config)")
	cmd.Flags().IntVar(&replays, "replays", 0, "reruns per checkpoint (default from config)")
	return cmd
}

func (a *app) checksumCmd() *cobra.Command {
	var (
		frames int
		out    string
	)
	cmd := &cobra.Command{
		Use:   "checksum",
		Short: "Simulate a match and print the checksum of its final snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n := a.frames(frames)
			sim, err := a.newSimulation(n)
			if err != nil {
				return err
			}
			for f := 0; f < n; f++ {
				if err := sim.Step(f); err != nil {
					return err
				}
			}

			start := time.Now()
			snap := sim.Match.Store().Snapshot()
			a.measureSince("snapshot", start)
			sum, err := codec.Checksum(snap)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%016x\n", sum)

			if out == "" {
				return nil
			}
			packed, err := codec.Pack(snap)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, packed, 0o644); err != nil {
				return eris.Wrapf(err, "write %s", out)
			}
			a.log.Info("snapshot written", zap.String("path", out), zap.Int("bytes", len(packed)))
			return nil
		},
	}
	a.framesFlag(cmd, &frames)
	cmd.Flags().StringVarP(&out, "out", "o", "", "also write the packed snapshot to this file")
	return cmd
}

func (a *app) decodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode [file]",
		Short: "Load a packed snapshot into a fresh match and print its checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			packed, err := os.ReadFile(args[0])
			if err != nil {
				return eris.Wrapf(err, "read %s", args[0])
			}
			snap, err := codec.Unpack[pong.Score](pong.NewRegistry(), packed)
			if err != nil {
				return err
			}

			match, err := pong.NewMatch(a.matchConfig())
			if err != nil {
				return err
			}
			start := time.Now()
			if err := match.Restore(pong.SavedFrame{Snapshot: snap}); err != nil {
				return err
			}
			a.measureSince("restore", start)
			a.incr("restores")

			sum, err := match.Checksum()
			if err != nil {
				return err
			}
			score := match.Score()
			fmt.Fprintf(cmd.OutOrStdout(), "%016x entities=%d score=%d-%d\n",
				sum, match.Store().Len(), score.Left, score.Right)
			return nil
		},
	}
}
