// Command pongsim runs headless pong matches on the rollback store. It logs
// the periodic desync checksums a networked session would exchange and
// verifies that rolling back and resimulating reproduces the same match.
package main

import (
	"os"
	"time"

	"github.com/armon/go-metrics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/plus3/rewind/examples/pong"
	"github.com/plus3/rewind/internal/config"
)

type app struct {
	configPath string
	cfg        *config.Config
	log        *zap.Logger
	metrics    *metrics.Metrics
	sink       *metrics.InmemSink
}

func main() {
	a := &app{}
	if err := a.rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pongsim",
		Short:         "Headless pong simulation on the rollback store",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.flushMetrics()
			_ = a.log.Sync()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a TOML config file")

	root.AddCommand(
		a.runCmd(),
		a.replayCmd(),
		a.checksumCmd(),
		a.decodeCmd(),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.log, err = newLogger(cfg.Logging)
	if err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		a.sink = metrics.NewInmemSink(cfg.Metrics.Interval, cfg.Metrics.Retain)
		mcfg := metrics.DefaultConfig(cfg.Metrics.ServiceName)
		mcfg.EnableHostname = false
		mcfg.EnableRuntimeMetrics = false
		a.metrics, err = metrics.New(mcfg, a.sink)
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *app) matchConfig() pong.Config {
	m := a.cfg.Match
	return pong.Config{
		Width:       m.Width,
		Height:      m.Height,
		Step:        m.StepMillis,
		BallSpeed:   m.BallSpeed,
		PaddleSpeed: m.PaddleSpeed,
	}
}

func (a *app) incr(name string) {
	if a.metrics != nil {
		a.metrics.IncrCounter([]string{"pongsim", name}, 1)
	}
}

func (a *app) measureSince(name string, start time.Time) {
	if a.metrics != nil {
		a.metrics.MeasureSince([]string{"pongsim", name}, start)
	}
}

// flushMetrics logs every aggregate the in-memory sink holds.
func (a *app) flushMetrics() {
	if a.sink == nil || a.log == nil {
		return
	}
	for _, interval := range a.sink.Data() {
		for _, c := range interval.Counters {
			a.log.Info("counter", zap.String("name", c.Name), zap.Int("count", c.Count), zap.Float64("sum", c.Sum))
		}
		for _, s := range interval.Samples {
			a.log.Info("sample", zap.String("name", s.Name), zap.Int("count", s.Count),
				zap.Float64("mean_ms", s.AggregateSample.Mean()), zap.Float64("max_ms", s.Max))
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
