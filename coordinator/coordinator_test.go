package coordinator

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/citymesh/action"
	"github.com/hupe1980/citymesh/core"
	"github.com/hupe1980/citymesh/metrics"
)

func testConfig() Config {
	cfg := DefaultConfig
	cfg.TickDuration = 10 * time.Millisecond
	cfg.MaxDuration = 250 * time.Millisecond
	cfg.ThinkInterval = 20 * time.Millisecond
	cfg.ActionInterval = 10 * time.Millisecond
	cfg.MetricsInterval = 30 * time.Millisecond
	return cfg
}

func testCitizens(n int) []*core.Citizen {
	names := []string{"alice", "bob", "carol", "dave", "erin", "frank"}
	citizens := make([]*core.Citizen, 0, n)
	for i := 0; i < n; i++ {
		citizens = append(citizens, core.NewCitizen(names[i%len(names)]))
	}
	return citizens
}

func TestCoordinator_SetupIsIdempotent(t *testing.T) {
	c := New(testCitizens(3), WithConfig(testConfig()))

	c.Setup()
	c.Setup()

	assert.Len(t, c.AgentStates(), 3)
}

func TestCoordinator_RunProducesResults(t *testing.T) {
	c := New(testCitizens(4), WithConfig(testConfig()))

	results, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, results.AgentCount)
	assert.Len(t, results.AgentStats, 4)
	assert.Greater(t, results.TotalTicks, int64(0))
	assert.GreaterOrEqual(t, results.Duration, 250*time.Millisecond)
	assert.NotEmpty(t, results.MetricsHistory)

	// The utility fallback guarantees decisions resolve even with no
	// external provider configured.
	var actions int64
	for _, s := range results.AgentStats {
		actions += s.ActionsTaken
	}
	assert.Greater(t, actions, int64(0))
}

func TestCoordinator_RunStopsAllRunners(t *testing.T) {
	c := New(testCitizens(5), WithConfig(testConfig()))

	_, err := c.Run(context.Background())
	require.NoError(t, err)

	// Every exit path unregisters every agent from the bus.
	assert.Zero(t, c.Bus().Statistics().RegisteredAgents)
	for _, state := range c.AgentStates() {
		assert.Equal(t, "IDLE", state.String())
	}
}

func TestCoordinator_ContextCancelStopsRun(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDuration = time.Minute

	c := New(testCitizens(3), WithConfig(cfg))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := c.Run(ctx)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Zero(t, c.Bus().Statistics().RegisteredAgents)
}

func TestCoordinator_TickCallbacks(t *testing.T) {
	c := New(testCitizens(2), WithConfig(testConfig()))

	var ticks atomic.Int64
	var lastTick atomic.Int64
	c.OnTick(func(tick int64) {
		ticks.Add(1)
		lastTick.Store(tick)
	})

	results, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, results.TotalTicks, ticks.Load())
	assert.Equal(t, results.TotalTicks, lastTick.Load())
}

func TestCoordinator_CallbackPanicsAreContained(t *testing.T) {
	c := New(testCitizens(2), WithConfig(testConfig()))

	var survived atomic.Int64
	c.OnTick(func(int64) { panic("observer bug") })
	c.OnTick(func(int64) { survived.Add(1) })

	results, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Greater(t, results.TotalTicks, int64(0))
	assert.Greater(t, survived.Load(), int64(0))
}

func TestCoordinator_ActionCallbacks(t *testing.T) {
	c := New(testCitizens(2),
		WithConfig(testConfig()),
		WithActions([]core.Action{action.NewRest()}),
	)

	var observed atomic.Int64
	c.OnAction(func(citizen *core.Citizen, a core.Action, result core.ActionResult) {
		if a.Kind() == core.ActionRest && result.Success {
			observed.Add(1)
		}
	})

	_, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Greater(t, observed.Load(), int64(0))
}

func TestCoordinator_MetricsHistoryGrows(t *testing.T) {
	c := New(testCitizens(2), WithConfig(testConfig()))

	results, err := c.Run(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, results.MetricsHistory)
	last := results.MetricsHistory[len(results.MetricsHistory)-1]
	assert.Equal(t, 2, last.AgentsTotal)
	assert.Greater(t, last.Tick, int64(0))
}

func TestCoordinator_CollectorUpdated(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	c := New(testCitizens(2),
		WithConfig(testConfig()),
		WithCollector(collector),
	)

	_, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Greater(t, testutil.ToFloat64(collector.Ticks), 0.0)
}

func TestCoordinator_AgentLocations(t *testing.T) {
	citizens := []*core.Citizen{
		core.NewCitizen("alice", core.WithLocation("market")),
		core.NewCitizen("bob"),
	}
	c := New(citizens, WithConfig(testConfig()))
	c.Setup()

	locations := c.AgentLocations()
	assert.Equal(t, "market", locations[citizens[0].ID])
	assert.Equal(t, "unknown", locations[citizens[1].ID])
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := []byte("tick_duration: 250ms\nsocial_probability: 0.8\ncollect_metrics: false\n")
	require.NoError(t, os.WriteFile(path, doc, 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.TickDuration)
	assert.Equal(t, 0.8, cfg.SocialProbability)
	assert.False(t, cfg.CollectMetrics)

	// Fields absent from the file keep their defaults.
	assert.Equal(t, DefaultConfig.MaxDuration, cfg.MaxDuration)
	assert.Equal(t, DefaultConfig.ThinkInterval, cfg.ThinkInterval)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tick_duration: fast\n"), 0o600))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}
