// Package replay checks that a simulation built on an ecs.Store is
// deterministic under snapshot and restore.
//
// A Verifier runs the simulation forward, keeps a snapshot every few frames,
// then rolls back to each of them and simulates to the end again. Every
// rerun must land on the same final state, and rolling back must never
// change the snapshot it started from.
//
// Identifiers are never reused, so entities a rerun creates get fresh ones.
// Final states are therefore compared with codec.ShapeChecksum, which hashes
// entities by rank. A restored store must match its checkpoint exactly.
package replay

import (
	"errors"
	"fmt"
	"time"

	"github.com/armon/go-metrics"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/plus3/rewind/codec"
	"github.com/plus3/rewind/ecs"
)

// ErrDiverged is returned by Report.Err when a rerun did not reproduce the
// original run.
var ErrDiverged = errors.New("simulation diverged")

// Simulation is a fixed-step simulation over a store.
// Step must derive everything it does from the store content and frame.
type Simulation[S any] interface {
	Store() *ecs.Store[S]
	Step(frame int) error
}

type options struct {
	logger          *zap.Logger
	metrics         *metrics.Metrics
	checkpointEvery int
	replays         int
}

// Option configures a Verifier.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics reports counters and timings to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithCheckpointEvery sets the number of frames between two checkpoints.
func WithCheckpointEvery(frames int) Option {
	return func(o *options) {
		if frames > 0 {
			o.checkpointEvery = frames
		}
	}
}

// WithReplays sets how many times each checkpoint is restored and rerun.
func WithReplays(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.replays = n
		}
	}
}

// Verifier runs determinism checks against simulations of state type S.
type Verifier[S any] struct {
	opts options
}

// New creates a verifier. By default it checkpoints every 60 frames, the
// desync check interval of the pong match, and reruns each checkpoint once.
func New[S any](opts ...Option) *Verifier[S] {
	o := options{
		logger:          zap.NewNop(),
		checkpointEvery: 60,
		replays:         1,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Verifier[S]{opts: o}
}

// Checkpoint is a snapshot taken during the original run.
type Checkpoint struct {
	Frame    int
	Checksum uint64
}

// Divergence describes one failed comparison.
type Divergence struct {
	Frame  int
	Replay int
	Stage  string
	Want   uint64
	Got    uint64
}

func (d Divergence) String() string {
	return fmt.Sprintf("checkpoint %d replay %d: %s checksum %016x, want %016x",
		d.Frame, d.Replay, d.Stage, d.Got, d.Want)
}

const (
	// StageRestore means the store did not match the checkpoint right after
	// restoring it.
	StageRestore = "restore"
	// StageSnapshot means the checkpoint itself changed after being taken.
	StageSnapshot = "snapshot"
	// StageFinal means the rerun ended on a different final state.
	StageFinal = "final"
)

// Report is the outcome of one Run.
type Report struct {
	RunID         uuid.UUID
	Frames        int
	FinalChecksum uint64
	// FinalShape is the codec.ShapeChecksum of the final state, the value
	// reruns are compared against.
	FinalShape  uint64
	Checkpoints []Checkpoint
	Divergences []Divergence
	Replays     int
	Elapsed     time.Duration
}

// OK reports whether every rerun reproduced the original run.
func (r *Report) OK() bool {
	return len(r.Divergences) == 0
}

// Err returns an error wrapping ErrDiverged describing the first divergence,
// or nil.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	return eris.Wrapf(ErrDiverged, "run %s: %d divergences, first %s",
		r.RunID, len(r.Divergences), r.Divergences[0])
}

type checkpoint[S any] struct {
	Checkpoint
	snap *ecs.Snapshot[S]
}

// Run simulates frames steps of sim from its current state, then reruns the
// simulation from every checkpoint. It fails only when the simulation itself
// fails; divergences are collected in the report.
// The store is left at the final state of the last rerun.
func (v *Verifier[S]) Run(sim Simulation[S], frames int) (*Report, error) {
	start := time.Now()
	report := &Report{
		RunID:  uuid.New(),
		Frames: frames,
	}
	log := v.opts.logger.With(zap.Stringer("run", report.RunID))
	log.Info("replay run started",
		zap.Int("frames", frames),
		zap.Int("checkpoint_every", v.opts.checkpointEvery),
		zap.Int("replays", v.opts.replays))

	store := sim.Store()
	var (
		checkpoints []checkpoint[S]
		err         error
	)
	for frame := 0; frame < frames; frame++ {
		if frame%v.opts.checkpointEvery == 0 {
			cp, err := v.capture(store, frame)
			if err != nil {
				return nil, err
			}
			checkpoints = append(checkpoints, cp)
			report.Checkpoints = append(report.Checkpoints, cp.Checkpoint)
			log.Debug("checkpoint", zap.Int("frame", frame), zap.Uint64("checksum", cp.Checksum))
		}
		if err := v.step(sim, frame); err != nil {
			return nil, err
		}
	}

	last := store.Snapshot()
	if report.FinalChecksum, err = codec.Checksum(last); err != nil {
		return nil, eris.Wrap(err, "final checksum")
	}
	final, err := codec.ShapeChecksum(last)
	if err != nil {
		return nil, eris.Wrap(err, "final checksum")
	}
	report.FinalShape = final

	for _, cp := range checkpoints {
		for r := 0; r < v.opts.replays; r++ {
			divs, err := v.rerun(sim, cp, r, frames, final)
			if err != nil {
				return nil, err
			}
			report.Replays++
			for _, d := range divs {
				log.Warn("divergence", zap.Stringer("divergence", d))
				v.incr("divergences")
			}
			report.Divergences = append(report.Divergences, divs...)
		}
	}

	report.Elapsed = time.Since(start)
	log.Info("replay run finished",
		zap.Bool("ok", report.OK()),
		zap.Int("checkpoints", len(report.Checkpoints)),
		zap.Int("divergences", len(report.Divergences)),
		zap.Uint64("final_checksum", report.FinalChecksum),
		zap.Duration("elapsed", report.Elapsed))
	return report, nil
}

func (v *Verifier[S]) capture(store *ecs.Store[S], frame int) (checkpoint[S], error) {
	start := time.Now()
	snap := store.Snapshot()
	v.measureSince("snapshot", start)

	sum, err := codec.Checksum(snap)
	if err != nil {
		return checkpoint[S]{}, eris.Wrapf(err, "checksum at frame %d", frame)
	}
	return checkpoint[S]{
		Checkpoint: Checkpoint{Frame: frame, Checksum: sum},
		snap:       snap,
	}, nil
}

func (v *Verifier[S]) step(sim Simulation[S], frame int) error {
	if err := sim.Step(frame); err != nil {
		return eris.Wrapf(err, "step frame %d", frame)
	}
	v.incr("frames")
	return nil
}

func (v *Verifier[S]) rerun(sim Simulation[S], cp checkpoint[S], replay, frames int, final uint64) ([]Divergence, error) {
	var divs []Divergence
	store := sim.Store()

	start := time.Now()
	if err := store.Restore(cp.snap); err != nil {
		return nil, eris.Wrapf(err, "restore frame %d", cp.Frame)
	}
	v.measureSince("restore", start)
	v.incr("restores")

	restored, err := codec.Checksum(store.Snapshot())
	if err != nil {
		return nil, err
	}
	if restored != cp.Checksum {
		divs = append(divs, Divergence{Frame: cp.Frame, Replay: replay, Stage: StageRestore, Want: cp.Checksum, Got: restored})
	}

	for frame := cp.Frame; frame < frames; frame++ {
		if err := v.step(sim, frame); err != nil {
			return nil, err
		}
	}

	got, err := codec.ShapeChecksum(store.Snapshot())
	if err != nil {
		return nil, err
	}
	if got != final {
		divs = append(divs, Divergence{Frame: cp.Frame, Replay: replay, Stage: StageFinal, Want: final, Got: got})
	}

	kept, err := codec.Checksum(cp.snap)
	if err != nil {
		return nil, err
	}
	if kept != cp.Checksum {
		divs = append(divs, Divergence{Frame: cp.Frame, Replay: replay, Stage: StageSnapshot, Want: cp.Checksum, Got: kept})
	}
	return divs, nil
}

func (v *Verifier[S]) incr(name string) {
	if v.opts.metrics != nil {
		v.opts.metrics.IncrCounter([]string{"replay", name}, 1)
	}
}

func (v *Verifier[S]) measureSince(name string, start time.Time) {
	if v.opts.metrics != nil {
		v.opts.metrics.MeasureSince([]string{"replay", name}, start)
	}
}
