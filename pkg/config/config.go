package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "AI_DEMOS"

type Config struct {
	Server    ServerConfig
	HTTP      HTTPConfig
	DocInt    BackendConfig
	Vision    VisionConfig
	RAG       RAGConfig
	Session   SessionConfig
	Redis     RedisConfig
	SQLite    SQLiteConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    int
	WriteTimeout   int
	BodyLimit      int
	AllowedOrigins []string
	IsDevelopment  bool
}

// HTTPConfig applies to every backend client.
type HTTPConfig struct {
	TimeoutSec         int
	MaxRecallNumber    int
	RejectAuthFailures bool
}

type BackendConfig struct {
	BaseURL string
}

type VisionConfig struct {
	BaseURL                   string
	UpperProbabilityThreshold float64
	LowerProbabilityThreshold float64
	Tags                      []TagConfig
}

type TagConfig struct {
	ID    string
	Key   string
	Name  string
	Image string
}

type RAGConfig struct {
	BaseURL     string
	PromptsPath string
}

type SessionConfig struct {
	Store      string
	TTLMinutes int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type SQLiteConfig struct {
	Enabled bool
	Path    string
}

type RateLimitConfig struct {
	MaxRequestsPerMinute int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads the given config file, or searches the default locations
// when path is empty. Environment variables prefixed with AI_DEMOS_ win over
// file values.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/ai-demos")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	lower, upper := c.Vision.LowerProbabilityThreshold, c.Vision.UpperProbabilityThreshold
	if lower < 0 || upper > 1 || lower > upper {
		return fmt.Errorf("invalid probability thresholds: lower=%v upper=%v", lower, upper)
	}

	switch c.Session.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown session store %q", c.Session.Store)
	}

	seen := make(map[string]bool, len(c.Vision.Tags))
	for _, tag := range c.Vision.Tags {
		if tag.ID == "" || tag.Key == "" {
			return fmt.Errorf("vision tag requires id and key: %+v", tag)
		}
		if seen[tag.ID] {
			return fmt.Errorf("duplicate vision tag id %s", tag.ID)
		}
		seen[tag.ID] = true
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 60)
	v.SetDefault("server.writeTimeout", 60)
	v.SetDefault("server.bodyLimit", 20*1024*1024)
	v.SetDefault("server.allowedOrigins", []string{"http://localhost:5173"})
	v.SetDefault("server.isDevelopment", false)

	v.SetDefault("http.timeoutSec", 120)
	v.SetDefault("http.maxRecallNumber", 5)
	v.SetDefault("http.rejectAuthFailures", false)

	v.SetDefault("docint.baseURL", "https://app-docintback-dev-we-004.azurewebsites.net")

	v.SetDefault("vision.baseURL", "https://app-customvisionback-dev-we-004.azurewebsites.net")
	v.SetDefault("vision.upperProbabilityThreshold", 0.5)
	v.SetDefault("vision.lowerProbabilityThreshold", 0.25)
	v.SetDefault("vision.tags", []map[string]any{
		{"id": "9fc45a4c-3443-4752-a2a3-3fdcd0cbfcfb", "key": "butano6", "name": "Butano 6 kg", "image": "/bombona-6.png"},
		{"id": "8fd4b2da-fce6-40c2-b62d-baa6f88b577e", "key": "butano12", "name": "Butano 12 kg", "image": "/bombona-12.png"},
		{"id": "40b49e70-6c5f-4542-bc15-291e98bb92b7", "key": "butano125", "name": "Butano 12,5 kg", "image": "/bombona-12.5.png"},
		{"id": "340357f5-080b-4c1d-acdf-cd60b771f064", "key": "butanoPropano35", "name": "Propano 35 kg", "image": "/bombona-propano.png"},
	})

	v.SetDefault("rag.baseURL", "https://aspback-rag-dev-fc-poc03.azurewebsites.net")
	v.SetDefault("rag.promptsPath", "")

	v.SetDefault("session.store", "memory")
	v.SetDefault("session.ttlMinutes", 120)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("sqlite.enabled", true)
	v.SetDefault("sqlite.path", "./data/calls.db")

	v.SetDefault("rateLimit.maxRequestsPerMinute", 120)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")
}
