package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"runtime"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/plus3/rewind/codec"
	"github.com/plus3/rewind/ecs"
)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "The total duration the test should run for.")
	entityCount := flag.Int("entities", 10000, "The initial number of entities to create.")
	rollbackEvery := flag.Int("rollback-every", 10, "Roll back every N frames.")
	rollbackDepth := flag.Int("rollback-depth", 8, "How many frames each rollback rewinds and resimulates.")
	seed := flag.Uint64("seed", 1, "Seed for the random population.")
	checksums := flag.Bool("checksums", false, "Hash every restored snapshot and compare it with the capture.")
	gcPauseMetrics := flag.Bool("gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger, options{
		duration:       *duration,
		entities:       *entityCount,
		rollbackEvery:  max(*rollbackEvery, 1),
		rollbackDepth:  max(*rollbackDepth, 1),
		seed:           *seed,
		checksums:      *checksums,
		gcPauseMetrics: *gcPauseMetrics,
	}); err != nil {
		logger.Fatal("stress test failed", zap.Error(err))
	}
}

type options struct {
	duration       time.Duration
	entities       int
	rollbackEvery  int
	rollbackDepth  int
	seed           uint64
	checksums      bool
	gcPauseMetrics bool
}

func run(logger *zap.Logger, opts options) error {
	logger.Info("starting ECS rollback stress test")

	// 1. Setup registry, store and scheduler
	rng := rand.New(rand.NewPCG(opts.seed, opts.seed))
	store := ecs.New(newRegistry(), Counters{})
	scheduler := ecs.NewScheduler(store)
	scheduler.Register(&MoveSystem{})
	scheduler.Register(&TrailSystem{})
	scheduler.Register(&LifetimeSystem{rng: rng})

	// 2. Populate the store
	logger.Info("populating store", zap.Int("entities", opts.entities))
	for i := 0; i < opts.entities; i++ {
		if err := spawnRandomEntity(store, rng); err != nil {
			return err
		}
	}

	report := &Report{
		Duration:       opts.duration,
		Entities:       opts.entities,
		Kinds:          len(store.Registry().Kinds()),
		Systems:        scheduler.GetStats().SystemCount,
		RollbackEvery:  opts.rollbackEvery,
		RollbackDepth:  opts.rollbackDepth,
		GCPauseMetrics: opts.gcPauseMetrics,
	}
	runtime.ReadMemStats(&report.MemStatsStart)

	// 3. Run the simulation loop, keeping a ring of recent snapshots
	logger.Info("running simulation", zap.Duration("duration", opts.duration))
	ctx, cancel := context.WithTimeout(context.Background(), opts.duration)
	defer cancel()

	history := make([]*ecs.Snapshot[Counters], opts.rollbackDepth)
	const dt = 1.0 / 60
	startTime := time.Now()
	frame := 0

Loop:
	for {
		select {
		case <-ctx.Done():
			break Loop
		default:
		}

		snapStart := time.Now()
		history[frame%opts.rollbackDepth] = store.Snapshot()
		report.SnapshotTime.Samples = append(report.SnapshotTime.Samples, time.Since(snapStart))

		updateStart := time.Now()
		if err := scheduler.Once(dt); err != nil {
			return err
		}
		report.UpdateTime.Samples = append(report.UpdateTime.Samples, time.Since(updateStart))
		frame++

		if frame%opts.rollbackEvery != 0 || frame < opts.rollbackDepth {
			continue
		}

		// rewind to the oldest snapshot in the ring and catch up again
		target := history[frame%opts.rollbackDepth]
		restoreStart := time.Now()
		if err := store.Restore(target); err != nil {
			return err
		}
		report.RestoreTime.Samples = append(report.RestoreTime.Samples, time.Since(restoreStart))
		report.Rollbacks++

		if opts.checksums {
			if err := compareChecksums(target, store.Snapshot()); err != nil {
				return err
			}
		}

		for i := 0; i < opts.rollbackDepth; i++ {
			if err := scheduler.Once(dt); err != nil {
				return err
			}
			report.ResimulatedFrames++
		}
	}

	report.TotalTime = time.Since(startTime)
	report.TotalFrames = int64(frame)
	report.UpdateTime.Finalize()
	report.SnapshotTime.Finalize()
	report.RestoreTime.Finalize()
	report.Store = store.CollectStats()
	report.Counters = store.State()
	runtime.ReadMemStats(&report.MemStatsEnd)

	logger.Info("simulation finished", zap.Int64("frames", report.TotalFrames), zap.Int64("rollbacks", report.Rollbacks))

	// 4. Generate report to console
	fmt.Println("\n\n--- Stress Test Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		return err
	}
	fmt.Println("--- End of Report ---")
	return nil
}

func compareChecksums(want, got *ecs.Snapshot[Counters]) error {
	a, err := codec.Checksum(want)
	if err != nil {
		return err
	}
	b, err := codec.Checksum(got)
	if err != nil {
		return err
	}
	if a != b {
		return eris.Errorf("restored store checksum %016x, snapshot %016x", b, a)
	}
	return nil
}
