package profiling

import (
	"fmt"
	"log/slog"

	pyroscope "github.com/grafana/pyroscope-go"
)

// Config names the pyroscope server and how this process is tagged.
type Config struct {
	ServerAddress   string
	ApplicationName string
	Tags            map[string]string
}

// Start begins continuous profiling. An empty ServerAddress is a no-op. The
// returned stop func is always safe to call.
func Start(cfg Config, logger *slog.Logger) (stop func() error, err error) {
	if cfg.ServerAddress == "" {
		return func() error { return nil }, nil
	}
	if cfg.ApplicationName == "" {
		cfg.ApplicationName = "execfeed"
	}
	if logger == nil {
		logger = slog.Default()
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ApplicationName,
		ServerAddress:   cfg.ServerAddress,
		Tags:            cfg.Tags,
		Logger:          slogLogger{logger},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
	if err != nil {
		return func() error { return nil }, fmt.Errorf("pyroscope start: %w", err)
	}
	logger.Info("profiling enabled", "server", cfg.ServerAddress, "app", cfg.ApplicationName)
	return profiler.Stop, nil
}

// slogLogger adapts slog to the pyroscope logger interface.
type slogLogger struct {
	l *slog.Logger
}

func (s slogLogger) Infof(format string, args ...interface{}) {
	s.l.Debug(fmt.Sprintf(format, args...), "component", "pyroscope")
}

func (s slogLogger) Debugf(format string, args ...interface{}) {
	s.l.Debug(fmt.Sprintf(format, args...), "component", "pyroscope")
}

func (s slogLogger) Errorf(format string, args ...interface{}) {
	s.l.Warn(fmt.Sprintf(format, args...), "component", "pyroscope")
}
