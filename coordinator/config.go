package coordinator

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines tuning parameters for a simulation run. All durations are
// wall-clock; the coordinator stops the steady-state loop once MaxDuration
// has elapsed.
type Config struct {
	// TickDuration is the cadence of the coordinator's steady-state loop.
	TickDuration time.Duration `yaml:"tick_duration"`

	// MaxDuration bounds the whole run.
	MaxDuration time.Duration `yaml:"max_duration"`

	// ThinkInterval is the minimum time between one agent's decisions.
	ThinkInterval time.Duration `yaml:"think_interval"`

	// ActionInterval is the minimum time between one agent's actions.
	ActionInterval time.Duration `yaml:"action_interval"`

	// SocialProbability scales how readily agents initiate interactions.
	SocialProbability float64 `yaml:"social_probability"`

	// InteractionCooldown is the minimum gap between same-kind interactions.
	InteractionCooldown time.Duration `yaml:"interaction_cooldown"`

	// DecisionTimeout bounds external decision-provider calls.
	DecisionTimeout time.Duration `yaml:"decision_timeout"`

	// CollectMetrics enables periodic metrics snapshots.
	CollectMetrics bool `yaml:"collect_metrics"`

	// MetricsInterval is the time between metrics snapshots.
	MetricsInterval time.Duration `yaml:"metrics_interval"`
}

// DefaultConfig holds sensible defaults for interactive runs.
var DefaultConfig = Config{
	TickDuration:        100 * time.Millisecond,
	MaxDuration:         60 * time.Second,
	ThinkInterval:       time.Second,
	ActionInterval:      500 * time.Millisecond,
	SocialProbability:   0.3,
	InteractionCooldown: 5 * time.Second,
	DecisionTimeout:     5 * time.Second,
	CollectMetrics:      true,
	MetricsInterval:     5 * time.Second,
}

// UnmarshalYAML decodes durations from strings like "500ms" or "1m30s".
// Fields absent from the document keep whatever value the Config already
// holds, so decoding over DefaultConfig yields defaults for unset fields.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		TickDuration        string   `yaml:"tick_duration"`
		MaxDuration         string   `yaml:"max_duration"`
		ThinkInterval       string   `yaml:"think_interval"`
		ActionInterval      string   `yaml:"action_interval"`
		SocialProbability   *float64 `yaml:"social_probability"`
		InteractionCooldown string   `yaml:"interaction_cooldown"`
		DecisionTimeout     string   `yaml:"decision_timeout"`
		CollectMetrics      *bool    `yaml:"collect_metrics"`
		MetricsInterval     string   `yaml:"metrics_interval"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	durations := []struct {
		dst *time.Duration
		src string
	}{
		{&c.TickDuration, raw.TickDuration},
		{&c.MaxDuration, raw.MaxDuration},
		{&c.ThinkInterval, raw.ThinkInterval},
		{&c.ActionInterval, raw.ActionInterval},
		{&c.InteractionCooldown, raw.InteractionCooldown},
		{&c.DecisionTimeout, raw.DecisionTimeout},
		{&c.MetricsInterval, raw.MetricsInterval},
	}
	for _, d := range durations {
		if d.src == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.src)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", d.src, err)
		}
		*d.dst = parsed
	}

	if raw.SocialProbability != nil {
		c.SocialProbability = *raw.SocialProbability
	}
	if raw.CollectMetrics != nil {
		c.CollectMetrics = *raw.CollectMetrics
	}
	return nil
}

// LoadConfig reads a YAML config file, filling unset fields from
// DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
