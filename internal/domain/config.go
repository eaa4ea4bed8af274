package domain

import "time"

// Config holds the complete Harrier configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Tier determines backing-service selection
	Tier Tier `json:"tier"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Knowledge files (rule set and weight map)
	Knowledge KnowledgeConfig `json:"knowledge"`

	// Pipeline behavior
	Pipeline PipelineConfig `json:"pipeline"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// KnowledgeConfig locates the external configuration documents.
type KnowledgeConfig struct {
	RulesPath   string `json:"rulesPath"`
	WeightsPath string `json:"weightsPath"`
}

// PipelineConfig holds evaluation pipeline settings.
type PipelineConfig struct {
	// EvalLogPath is the append-only evaluation log file.
	EvalLogPath string `json:"evalLogPath"`

	// BatchWorkers bounds batch-evaluation concurrency. 1 means the
	// strictly sequential loop.
	BatchWorkers int `json:"batchWorkers"`

	// CacheTTL is the result-cache TTL in seconds. 0 disables caching.
	CacheTTL int `json:"cacheTtl"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"serviceName"`
	Endpoint    string `json:"endpoint"`
}

// Tier represents the deployment tier.
type Tier string

const (
	// TierCommunity runs on SQLite + in-process channels + LRU cache
	TierCommunity Tier = "community"

	// TierPro runs on PostgreSQL + NATS + Redis
	TierPro Tier = "pro"
)

// DefaultConfig returns a default configuration for the Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier: TierCommunity,
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./harrier.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Knowledge: KnowledgeConfig{
			RulesPath:   "./knowledge/rules.json",
			WeightsPath: "./knowledge/weights.json",
		},
		Pipeline: PipelineConfig{
			EvalLogPath:  "./harrier_evaluations.log",
			BatchWorkers: 1,
			CacheTTL:     0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "harrier",
		},
	}
}

// ProConfig returns a configuration for the Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:          "postgres",
		PostgresHost:    "localhost",
		PostgresPort:    5432,
		PostgresUser:    "harrier",
		PostgresDB:      "harrier",
		PostgresSSLMode: "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   10000,
	}
	cfg.EventBus = EventBusConfig{
		Type:    "nats",
		NATSUrl: "nats://localhost:4222",
	}
	cfg.Pipeline.BatchWorkers = 8
	cfg.Pipeline.CacheTTL = 300
	return cfg
}
