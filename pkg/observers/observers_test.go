package observers_test

import (
	"bytes"
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/anggasct/crossroads"
	"github.com/anggasct/crossroads/pkg/observers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var _ crossroads.ExtendedObserver = (*observers.LoggingObserver)(nil)
var _ crossroads.ExtendedObserver = (*observers.MetricsObserver)(nil)
var _ crossroads.ExtendedObserver = (*observers.ValidationObserver)(nil)
var _ crossroads.Observer = (*observers.ConsoleReporter)(nil)

func run(t *testing.T, vehicles []*crossroads.Vehicle, opts ...crossroads.Option) error {
	t.Helper()
	ix, err := crossroads.New(opts...)
	require.NoError(t, err)
	require.NoError(t, ix.Load(vehicles))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return ix.Run(ctx)
}

func randomVehicles(n int, seed int64) []*crossroads.Vehicle {
	rng := rand.New(rand.NewSource(seed))
	vehicles := make([]*crossroads.Vehicle, 0, n)
	for i := 0; i < n; i++ {
		in := crossroads.Approach(rng.Intn(crossroads.NumApproaches))
		out := crossroads.Approach((int(in) + 1 + rng.Intn(crossroads.NumApproaches-1)) % crossroads.NumApproaches)
		vehicles = append(vehicles, crossroads.NewVehicle(i, in, out))
	}
	return vehicles
}

func observedLogger(level observers.LogLevel) (*observers.LoggingObserver, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return observers.NewLoggingObserverWithLogger(zap.New(core), level), logs
}

func TestLoggingObserver(t *testing.T) {
	t.Run("Info level", func(t *testing.T) {
		logger, logs := observedLogger(observers.LogInfo)

		err := run(t, []*crossroads.Vehicle{crossroads.NewVehicle(1, crossroads.North, crossroads.South)},
			crossroads.WithObserver(logger))
		require.NoError(t, err)

		crossed := logs.FilterMessage("Vehicle 1 crossed north -> south via [q2 q3]").All()
		require.Len(t, crossed, 1)
		assert.Equal(t, zapcore.InfoLevel, crossed[0].Level)
		assert.Equal(t, int64(1), crossed[0].ContextMap()["seq"])
		assert.Equal(t, 1, logs.FilterMessageSnippet("finished: 1 crossed, 0 rejected").Len())
		assert.Zero(t, logs.FilterLevelExact(zapcore.DebugLevel).Len())
	})

	t.Run("Debug level", func(t *testing.T) {
		logger, logs := observedLogger(observers.LogDebug)

		err := run(t, []*crossroads.Vehicle{crossroads.NewVehicle(7, crossroads.West, crossroads.South)},
			crossroads.WithObserver(logger))
		require.NoError(t, err)

		debug := logs.FilterLevelExact(zapcore.DebugLevel)
		assert.Equal(t, 1, debug.FilterMessage("Vehicle 7 holds [q3]").Len())
		assert.Equal(t, 1, debug.FilterMessage("Vehicle 7 releases [q3]").Len())
		assert.NotZero(t, debug.FilterMessageSnippet("Worker west/arrival").Len())
		queued := debug.FilterMessageSnippet("Queued").All()
		require.Len(t, queued, 1)
		assert.Contains(t, queued[0].ContextMap(), "occupancy")
	})

	t.Run("Error level", func(t *testing.T) {
		logger, logs := observedLogger(observers.LogError)

		err := run(t, []*crossroads.Vehicle{crossroads.NewVehicle(3, crossroads.East, crossroads.East)},
			crossroads.WithObserver(logger))
		require.Error(t, err)

		assert.NotZero(t, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
		assert.Zero(t, logs.FilterLevelExact(zapcore.InfoLevel).Len())
		halted := logs.FilterMessageSnippet("halted after 0 crossings").All()
		require.Len(t, halted, 1)
		assert.Contains(t, halted[0].ContextMap(), "error")
	})

	t.Run("Custom formatter", func(t *testing.T) {
		logger, logs := observedLogger(observers.LogWarning)
		logger.SetFormatter(func(level observers.LogLevel, format string, args ...interface{}) string {
			return "custom " + level.String()
		})

		err := run(t, []*crossroads.Vehicle{crossroads.NewVehicle(3, crossroads.East, crossroads.East)},
			crossroads.WithObserver(logger), crossroads.WithRoutePolicy(crossroads.PolicySkip))
		require.NoError(t, err)

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "custom WARN", entries[0].Message)
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
		assert.Equal(t, int64(3), entries[0].ContextMap()["vehicle"])
	})

	t.Run("Console output", func(t *testing.T) {
		var buf bytes.Buffer
		logger := observers.NewLoggingObserver(observers.LogWarning, "test")
		logger.SetOutput(&buf)

		logger.OnCrossing(crossroads.Record{VehicleID: 1, In: crossroads.North, Out: crossroads.South})
		logger.OnVehicleRejected(crossroads.NewVehicle(9, crossroads.East, crossroads.East), crossroads.NewUTurnError(crossroads.East))
		require.NoError(t, logger.Sync())

		out := buf.String()
		assert.Equal(t, 1, strings.Count(out, "\n"))
		assert.True(t, strings.HasPrefix(out, "WARN\ttest\tDropped"), out)
		assert.Contains(t, out, "u-turn")
	})
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want observers.LogLevel
	}{
		{"error", observers.LogError},
		{"WARN", observers.LogWarning},
		{"warning", observers.LogWarning},
		{"", observers.LogInfo},
		{" debug ", observers.LogDebug},
	}
	for _, tt := range tests {
		got, err := observers.ParseLogLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"loud", "fatal"} {
		_, err := observers.ParseLogLevel(bad)
		assert.Error(t, err, bad)
	}
}

func TestLogLevel_Zap(t *testing.T) {
	for _, l := range []observers.LogLevel{observers.LogError, observers.LogWarning, observers.LogInfo, observers.LogDebug} {
		assert.Equal(t, l, observers.LevelFromZap(l.ZapLevel()), l.String())
	}
	assert.Equal(t, observers.LogError, observers.LevelFromZap(zapcore.FatalLevel))
}

func TestDefaultLoggingObserver(t *testing.T) {
	var buf bytes.Buffer
	logger := observers.NewDefaultLoggingObserver()
	logger.SetOutput(&buf)
	logger.OnError(crossroads.ErrHalted)
	assert.Equal(t, "ERROR\tcrossroads\t"+crossroads.ErrHalted.Error()+"\n", buf.String())
}

func TestMetricsObserver(t *testing.T) {
	metrics := observers.NewMetricsObserver()
	vehicles := []*crossroads.Vehicle{
		crossroads.NewVehicle(1, crossroads.North, crossroads.South),
		crossroads.NewVehicle(2, crossroads.North, crossroads.West),
		crossroads.NewVehicle(3, crossroads.South, crossroads.East),
		crossroads.NewVehicle(4, crossroads.West, crossroads.West),
	}

	err := run(t, vehicles, crossroads.WithObserver(metrics), crossroads.WithRoutePolicy(crossroads.PolicySkip))
	require.NoError(t, err)

	assert.Equal(t, int64(3), metrics.GetTotalCrossings())
	assert.Equal(t, map[crossroads.Approach]int64{crossroads.North: 2, crossroads.South: 1}, metrics.GetCrossings())
	assert.Equal(t, map[crossroads.Approach]int64{crossroads.West: 1}, metrics.GetRejected())
	assert.Equal(t, map[crossroads.Quadrant]int64{
		crossroads.Q2: 2,
		crossroads.Q3: 1,
		crossroads.Q4: 1,
	}, metrics.GetQuadrantCounts())

	assert.GreaterOrEqual(t, metrics.GetMaxConcurrent(), 1)
	assert.LessOrEqual(t, metrics.GetPeakOccupancy(crossroads.North), crossroads.DefaultLaneCapacity)
	assert.GreaterOrEqual(t, metrics.GetMaxHold(crossroads.Q2), metrics.GetAverageHold(crossroads.Q2))
	assert.LessOrEqual(t, metrics.GetHoldPercentile(crossroads.Q2, 50), metrics.GetMaxHold(crossroads.Q2))
	assert.Zero(t, metrics.GetAverageHold(crossroads.Q1))
	assert.Zero(t, metrics.GetHoldPercentile(crossroads.Q1, 99))
	assert.Zero(t, metrics.GetErrorCount())

	metrics.Reset()
	assert.Zero(t, metrics.GetTotalCrossings())
	assert.Empty(t, metrics.GetQuadrantCounts())
	assert.Zero(t, metrics.GetMaxConcurrent())
}

func TestMetricsObserver_CountsErrors(t *testing.T) {
	metrics := observers.NewMetricsObserver()
	err := run(t, []*crossroads.Vehicle{crossroads.NewVehicle(1, crossroads.South, crossroads.South)},
		crossroads.WithObserver(metrics))
	require.Error(t, err)
	assert.Equal(t, int64(1), metrics.GetErrorCount())
}

func TestValidationObserver_CleanRun(t *testing.T) {
	validator := observers.NewValidationObserver()
	vehicles := randomVehicles(300, 42)
	validator.Expect(vehicles)

	err := run(t, vehicles, crossroads.WithObserver(validator), crossroads.WithLaneCapacity(3))
	require.NoError(t, err)
	assert.False(t, validator.HasViolations(), "%v", validator.GetViolations())
}

func TestValidationObserver_DetectsViolations(t *testing.T) {
	a := crossroads.NewVehicle(1, crossroads.North, crossroads.South)
	b := crossroads.NewVehicle(2, crossroads.East, crossroads.West)

	t.Run("Shared quadrant", func(t *testing.T) {
		validator := observers.NewValidationObserver()
		validator.OnQuadrantsAcquired(a, crossroads.Path{crossroads.Q2, crossroads.Q3})
		validator.OnQuadrantsAcquired(b, crossroads.Path{crossroads.Q1, crossroads.Q2})
		require.True(t, validator.HasViolations())
		assert.Contains(t, validator.GetViolations()[0], "acquired q2 while vehicle 1 held it")
	})

	t.Run("Release without hold", func(t *testing.T) {
		validator := observers.NewValidationObserver()
		validator.OnQuadrantsReleased(a, crossroads.Path{crossroads.Q2})
		assert.True(t, validator.HasViolations())
	})

	t.Run("Wrong path", func(t *testing.T) {
		validator := observers.NewValidationObserver()
		validator.OnCrossing(crossroads.Record{VehicleID: 1, In: crossroads.North, Out: crossroads.South, Path: crossroads.Path{crossroads.Q2}})
		require.True(t, validator.HasViolations())
		assert.Contains(t, validator.GetViolations()[0], "expected [q2 q3]")
	})

	t.Run("Lane order", func(t *testing.T) {
		validator := observers.NewValidationObserver()
		first := crossroads.NewVehicle(10, crossroads.West, crossroads.South)
		second := crossroads.NewVehicle(11, crossroads.West, crossroads.South)
		validator.Expect([]*crossroads.Vehicle{first, second})

		validator.OnCrossing(crossroads.Record{VehicleID: 11, In: crossroads.West, Out: crossroads.South, Path: crossroads.Path{crossroads.Q3}})
		require.True(t, validator.HasViolations())
		assert.Contains(t, validator.GetViolations()[0], "ahead of vehicle 10")

		validator.Reset()
		assert.False(t, validator.HasViolations())
	})

	t.Run("Undrained clean run", func(t *testing.T) {
		validator := observers.NewValidationObserver()
		var summary crossroads.Summary
		summary.Lanes[0] = crossroads.LaneSummary{Lane: crossroads.North, Inc: 2, Passed: 1}
		validator.OnRunStopped(summary, nil)
		assert.True(t, validator.HasViolations())
	})
}

func TestConsoleReporter(t *testing.T) {
	var buf bytes.Buffer
	reporter := observers.NewConsoleReporter(&buf)

	vehicles := []*crossroads.Vehicle{
		crossroads.NewVehicle(42, crossroads.North, crossroads.South),
		crossroads.NewVehicle(43, crossroads.North, crossroads.West),
	}
	err := run(t, vehicles, crossroads.WithObserver(reporter))
	require.NoError(t, err)
	assert.Equal(t, "0 1 42\n0 3 43\n", buf.String())
}
