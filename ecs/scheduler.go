package ecs

import (
	"context"
	"reflect"
	"time"

	"github.com/rotisserie/eris"
)

// SchedulerStats provides statistics about scheduler execution.
type SchedulerStats struct {
	SystemCount     int
	TotalExecutions int64
	Systems         []SystemStats
}

// SystemStats provides execution statistics for a single system.
type SystemStats struct {
	Name           string
	ExecutionCount int64
	FailureCount   int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
}

type systemStatsInternal struct {
	name           string
	executionCount int64
	failureCount   int64
	minDuration    time.Duration
	maxDuration    time.Duration
	totalDuration  time.Duration
	lastDuration   time.Duration
}

// Scheduler manages and executes systems in order.
type Scheduler[S any] struct {
	store       *Store[S]
	systems     []System[S]
	systemStats []*systemStatsInternal
}

// NewScheduler creates a new scheduler for the given store.
func NewScheduler[S any](store *Store[S]) *Scheduler[S] {
	return &Scheduler[S]{
		store:   store,
		systems: make([]System[S], 0),
	}
}

// Register appends a system; systems run in registration order.
func (s *Scheduler[S]) Register(system System[S]) {
	s.systems = append(s.systems, system)

	systemType := reflect.TypeOf(system)
	if systemType.Kind() == reflect.Ptr {
		systemType = systemType.Elem()
	}

	s.systemStats = append(s.systemStats, &systemStatsInternal{
		name:        systemType.Name(),
		minDuration: time.Duration(1<<63 - 1),
	})
}

// Once executes all registered systems once with the given delta time, then
// flushes the commands they queued. The first failing system aborts the step
// and its error is returned; queued commands are dropped in that case.
func (s *Scheduler[S]) Once(dt float64) error {
	frame := newUpdateFrame(dt, s.store)

	for i, system := range s.systems {
		start := time.Now()
		err := system.Execute(frame)
		duration := time.Since(start)

		stats := s.systemStats[i]
		stats.executionCount++
		stats.lastDuration = duration
		stats.totalDuration += duration

		if duration < stats.minDuration {
			stats.minDuration = duration
		}
		if duration > stats.maxDuration {
			stats.maxDuration = duration
		}

		if err != nil {
			stats.failureCount++
			return eris.Wrapf(err, "system %s", stats.name)
		}
	}

	return frame.Commands.Flush(s.store)
}

// Run executes all systems repeatedly at the given interval until the context
// is cancelled or a step fails.
func (s *Scheduler[S]) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			dt := now.Sub(lastTime).Seconds()
			lastTime = now
			if err := s.Once(dt); err != nil {
				return err
			}
		}
	}
}

// GetStats returns statistics about system execution.
func (s *Scheduler[S]) GetStats() *SchedulerStats {
	stats := &SchedulerStats{
		SystemCount: len(s.systems),
		Systems:     make([]SystemStats, len(s.systemStats)),
	}

	var totalExecs int64
	for i, internal := range s.systemStats {
		avgDuration := time.Duration(0)
		if internal.executionCount > 0 {
			avgDuration = internal.totalDuration / time.Duration(internal.executionCount)
		}

		stats.Systems[i] = SystemStats{
			Name:           internal.name,
			ExecutionCount: internal.executionCount,
			FailureCount:   internal.failureCount,
			MinDuration:    internal.minDuration,
			MaxDuration:    internal.maxDuration,
			AvgDuration:    avgDuration,
			LastDuration:   internal.lastDuration,
			TotalDuration:  internal.totalDuration,
		}
		totalExecs += internal.executionCount
	}

	stats.TotalExecutions = totalExecs
	return stats
}
