// Package config loads the simulator configuration from YAML with
// environment overrides for deployment-specific values.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration accepts "250ms" style strings in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: bad duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	App      AppConfig      `yaml:"app"`
	Market   MarketConfig   `yaml:"market"`
	Sim      SimConfig      `yaml:"sim"`
	Journal  JournalConfig  `yaml:"journal"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Log      LogConfig      `yaml:"log"`
}

type AppConfig struct {
	Name string `yaml:"name"`
}

type MarketConfig struct {
	Symbol    string `yaml:"symbol"`
	TickSize  string `yaml:"tick_size"`  // decimal string, e.g. "0.01"
	LotSize   string `yaml:"lot_size"`   // decimal string, e.g. "0.01"
	BasePrice string `yaml:"base_price"` // decimal string, e.g. "100.00"
	SelfMatch string `yaml:"self_match"` // allow | cancel-taker | cancel-resting
}

type SimConfig struct {
	Seed         int64               `yaml:"seed"`
	Steps        int                 `yaml:"steps"`
	DT           float64             `yaml:"dt"` // simulated seconds per step
	Noise        []NoiseConfig       `yaml:"noise_traders"`
	Informed     []InformedConfig    `yaml:"informed_traders"`
	MarketMakers []MarketMakerConfig `yaml:"market_makers"`
}

type NoiseConfig struct {
	LambdaRate float64 `yaml:"lambda_rate"`
	PriceVol   float64 `yaml:"price_vol"`
	MinQty     string  `yaml:"min_qty"`
	MaxQty     string  `yaml:"max_qty"`
}

type InformedConfig struct {
	TrueValue    string  `yaml:"true_value"`
	Threshold    float64 `yaml:"threshold"`
	InfoStrength float64 `yaml:"info_strength"`
	LambdaRate   float64 `yaml:"lambda_rate"`
	MinQty       string  `yaml:"min_qty"`
	MaxQty       string  `yaml:"max_qty"`
}

type MarketMakerConfig struct {
	Offset     string  `yaml:"offset"` // absolute quote offset from mid
	BaseSize   string  `yaml:"base_size"`
	SizeJitter float64 `yaml:"size_jitter"`
	InvLimit   string  `yaml:"inv_limit"`
	RefreshAbs string  `yaml:"refresh_abs"`
}

type JournalConfig struct {
	Dir             string   `yaml:"dir"`
	SegmentSize     int64    `yaml:"segment_size"`
	SegmentDuration Duration `yaml:"segment_duration"`
	FlushInterval   Duration `yaml:"flush_interval"`
	Format          string   `yaml:"format"` // binary | proto
}

type SnapshotConfig struct {
	Dir      string   `yaml:"dir"`
	Interval Duration `yaml:"interval"`
}

type KafkaConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Brokers     []string `yaml:"brokers"`
	TradeTopic  string   `yaml:"trade_topic"`
	DepthTopic  string   `yaml:"depth_topic"`
	OutboxDir   string   `yaml:"outbox_dir"`
	Interval    Duration `yaml:"interval"`
	DepthLevels int      `yaml:"depth_levels"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads path (optional) over defaults, then applies env overrides.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		App:    AppConfig{Name: "vega"},
		Market: MarketConfig{Symbol: "SIM", TickSize: "0.01", LotSize: "0.01", BasePrice: "100.00", SelfMatch: "allow"},
		Sim: SimConfig{
			Seed:  42,
			Steps: 200,
			DT:    1.0,
		},
		Journal: JournalConfig{
			Dir:             "./data/journal",
			SegmentSize:     2 * 1024 * 1024,
			SegmentDuration: Duration(time.Minute),
			FlushInterval:   Duration(2 * time.Second),
			Format:          "proto",
		},
		Snapshot: SnapshotConfig{Dir: "./data/snapshot", Interval: Duration(30 * time.Second)},
		Kafka: KafkaConfig{
			Enabled:     false,
			Brokers:     []string{"localhost:9092"},
			TradeTopic:  "vega.trades",
			DepthTopic:  "vega.depth",
			OutboxDir:   "./data/outbox",
			Interval:    Duration(250 * time.Millisecond),
			DepthLevels: 10,
		},
		Log: LogConfig{Level: "info"},
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("VEGA_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("VEGA_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("VEGA_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
}

func (c *Config) validate() error {
	switch c.Market.SelfMatch {
	case "allow", "cancel-taker", "cancel-resting":
	default:
		return fmt.Errorf("config: unknown self_match policy %q", c.Market.SelfMatch)
	}
	switch c.Journal.Format {
	case "binary", "proto":
	default:
		return fmt.Errorf("config: unknown journal format %q", c.Journal.Format)
	}
	if c.Sim.Steps <= 0 {
		return fmt.Errorf("config: sim steps must be positive, got %d", c.Sim.Steps)
	}
	return nil
}
