// Package observers provides observers for monitoring intersection runs
package observers

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/anggasct/crossroads"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the logging level
type LogLevel int

const (
	// LogError logs only errors
	LogError LogLevel = iota
	// LogWarning logs errors and warnings
	LogWarning
	// LogInfo logs errors, warnings, and info
	LogInfo
	// LogDebug logs errors, warnings, info, and debug
	LogDebug
)

func (l LogLevel) String() string {
	switch l {
	case LogError:
		return "ERROR"
	case LogWarning:
		return "WARN"
	case LogInfo:
		return "INFO"
	case LogDebug:
		return "DEBUG"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// ZapLevel returns the zap level l logs at
func (l LogLevel) ZapLevel() zapcore.Level {
	switch {
	case l <= LogError:
		return zapcore.ErrorLevel
	case l == LogWarning:
		return zapcore.WarnLevel
	case l == LogInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// LevelFromZap maps a zap level onto the nearest LogLevel. Levels above
// error collapse into LogError.
func LevelFromZap(l zapcore.Level) LogLevel {
	switch {
	case l <= zapcore.DebugLevel:
		return LogDebug
	case l == zapcore.InfoLevel:
		return LogInfo
	case l == zapcore.WarnLevel:
		return LogWarning
	default:
		return LogError
	}
}

// ParseLogLevel parses a level name such as "info" or "debug"
func ParseLogLevel(s string) (LogLevel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(s)); err != nil || l > zapcore.ErrorLevel {
		return LogInfo, fmt.Errorf("unknown log level %q", s)
	}
	return LevelFromZap(l), nil
}

// LoggingObserver logs intersection events through a zap logger
type LoggingObserver struct {
	crossroads.BaseObserver

	level     LogLevel
	prefix    string
	logger    *zap.SugaredLogger
	mutex     sync.RWMutex
	formatter LogFormatter
}

// LogFormatter formats log messages
type LogFormatter func(level LogLevel, format string, args ...interface{}) string

// DefaultLogFormatter formats the message only. The level and prefix are
// written by the logger's encoder.
func DefaultLogFormatter(level LogLevel, format string, args ...interface{}) string {
	return fmt.Sprintf(format, args...)
}

// NewLoggingObserver creates a new logging observer writing to stderr
func NewLoggingObserver(level LogLevel, prefix string) *LoggingObserver {
	return NewLoggingObserverWithLogger(consoleLogger(os.Stderr, level), level).named(prefix)
}

// NewLoggingObserverWithLogger creates a logging observer on top of an
// existing logger. Events below level are dropped before they reach it.
func NewLoggingObserverWithLogger(logger *zap.Logger, level LogLevel) *LoggingObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingObserver{
		level:     level,
		logger:    logger.Sugar(),
		formatter: DefaultLogFormatter,
	}
}

// consoleLogger builds a development-style console logger over w without
// timestamps or callers, so each line reads LEVEL, name, message, fields.
func consoleLogger(w io.Writer, level LogLevel) *zap.Logger {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = ""
	cfg.CallerKey = ""
	cfg.StacktraceKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(w), level.ZapLevel())
	return zap.New(core)
}

func (o *LoggingObserver) named(prefix string) *LoggingObserver {
	o.prefix = prefix
	if prefix != "" {
		o.logger = o.logger.Named(prefix)
	}
	return o
}

// SetFormatter sets the log formatter
func (o *LoggingObserver) SetFormatter(formatter LogFormatter) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.formatter = formatter
}

// SetOutput replaces the logger with a console logger writing to w
func (o *LoggingObserver) SetOutput(w io.Writer) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	logger := consoleLogger(w, o.level).Sugar()
	if o.prefix != "" {
		logger = logger.Named(o.prefix)
	}
	o.logger = logger
}

// Logger returns the underlying logger
func (o *LoggingObserver) Logger() *zap.SugaredLogger {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return o.logger
}

// Sync flushes any buffered log entries
func (o *LoggingObserver) Sync() error {
	return o.Logger().Sync()
}

// log logs a message at the specified level with optional key/value fields
func (o *LoggingObserver) log(level LogLevel, fields []interface{}, format string, args ...interface{}) {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	if level > o.level {
		return
	}

	message := ""
	if o.formatter != nil {
		message = o.formatter(level, format, args...)
	} else {
		message = fmt.Sprintf(format, args...)
	}

	switch level {
	case LogError:
		o.logger.Errorw(message, fields...)
	case LogWarning:
		o.logger.Warnw(message, fields...)
	case LogInfo:
		o.logger.Infow(message, fields...)
	default:
		o.logger.Debugw(message, fields...)
	}
}

// OnRunStarted logs the start of a run
func (o *LoggingObserver) OnRunStarted(info crossroads.RunInfo) {
	o.log(LogInfo, []interface{}{"run", info.RunID.String()},
		"Run %s started: %d vehicles, lane capacity %d, route policy %s",
		info.RunID, info.Vehicles, info.LaneCapacity, info.Policy)
}

// OnRunStopped logs the end of a run
func (o *LoggingObserver) OnRunStopped(summary crossroads.Summary, err error) {
	fields := []interface{}{"run", summary.RunID.String()}
	if err != nil {
		o.log(LogError, append(fields, zap.Error(err)), "Run %s halted after %d crossings", summary.RunID, summary.Passed())
		return
	}
	o.log(LogInfo, fields, "Run %s finished: %d crossed, %d rejected", summary.RunID, summary.Passed(), summary.Rejected())
}

// OnWorkerStateChange logs worker lifecycle changes
func (o *LoggingObserver) OnWorkerStateChange(lane crossroads.Approach, role crossroads.WorkerRole, from, to crossroads.WorkerState) {
	o.log(LogDebug, nil, "Worker %s/%s: %s -> %s", lane, role, from, to)
}

// OnVehicleQueued logs a vehicle entering its lane buffer
func (o *LoggingObserver) OnVehicleQueued(lane crossroads.Approach, v *crossroads.Vehicle, occupancy int) {
	o.log(LogDebug, []interface{}{"occupancy", occupancy}, "Queued %s on %s lane", v, lane)
}

// OnQuadrantsAcquired logs a vehicle taking its path
func (o *LoggingObserver) OnQuadrantsAcquired(v *crossroads.Vehicle, path crossroads.Path) {
	o.log(LogDebug, nil, "Vehicle %d holds %s", v.ID(), path)
}

// OnQuadrantsReleased logs a vehicle giving its path back
func (o *LoggingObserver) OnQuadrantsReleased(v *crossroads.Vehicle, path crossroads.Path) {
	o.log(LogDebug, nil, "Vehicle %d releases %s", v.ID(), path)
}

// OnCrossing logs a completed crossing
func (o *LoggingObserver) OnCrossing(rec crossroads.Record) {
	o.log(LogInfo, []interface{}{"seq", rec.Seq}, "Vehicle %d crossed %s -> %s via %s", rec.VehicleID, rec.In, rec.Out, rec.Path)
}

// OnVehicleRejected logs a dropped vehicle
func (o *LoggingObserver) OnVehicleRejected(v *crossroads.Vehicle, err error) {
	o.log(LogWarning, []interface{}{"vehicle", v.ID(), zap.Error(err)}, "Dropped %s", v)
}

// OnError logs a run-fatal error
func (o *LoggingObserver) OnError(err error) {
	o.log(LogError, nil, "%v", err)
}
