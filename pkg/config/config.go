package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	SQLite  SQLiteConfig
	Redis   RedisConfig
	LLM     LLMConfig
	Search  SearchConfig
	FAQ     FAQConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type LLMConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	TimeoutSec  int
}

// SearchConfig covers both the scheme matcher and the query popularity
// tracker.
type SearchConfig struct {
	DefaultLimit        int
	SimilarityThreshold float64
	CacheTTLSec         int
	ExternalStub        ExternalStubConfig
}

// ExternalStubConfig is the boilerplate used when a per-language search
// finds nothing locally. "{keyword}" in templates is replaced with the
// original search text. Placeholder pending a real external-data
// integration.
type ExternalStubConfig struct {
	Name            string
	NameHI          string
	NameTA          string
	Description     string
	DescriptionHI   string
	DescriptionTA   string
	EligibilityNote string
}

type FAQConfig struct {
	TopQueries     int
	GeneratedCount int
	LockTTLSec     int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/sahayak")

	viper.SetEnvPrefix("SAHAYAK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 10485760)

	viper.SetDefault("sqlite.path", "./data/sahayak.db")

	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("llm.baseURL", "")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.maxTokens", 1024)
	viper.SetDefault("llm.timeoutSec", 10)

	viper.SetDefault("search.defaultLimit", 50)
	viper.SetDefault("search.similarityThreshold", 0.7)
	viper.SetDefault("search.cacheTTLSec", 300)
	viper.SetDefault("search.externalStub.name", "Schemes related to \"{keyword}\"")
	viper.SetDefault("search.externalStub.nameHI", "\"{keyword}\" से संबंधित योजनाएं")
	viper.SetDefault("search.externalStub.nameTA", "\"{keyword}\" தொடர்பான திட்டங்கள்")
	viper.SetDefault("search.externalStub.description",
		"We could not find a matching scheme for \"{keyword}\" in our database yet. Government portals may list newer schemes on this topic.")
	viper.SetDefault("search.externalStub.descriptionHI",
		"हमें \"{keyword}\" के लिए अभी कोई योजना नहीं मिली। सरकारी पोर्टल पर इस विषय की नई योजनाएं उपलब्ध हो सकती हैं।")
	viper.SetDefault("search.externalStub.descriptionTA",
		"\"{keyword}\" தொடர்பான திட்டம் எங்கள் தரவுத்தளத்தில் இன்னும் இல்லை. அரசு இணையதளங்களில் புதிய திட்டங்கள் இருக்கலாம்.")
	viper.SetDefault("search.externalStub.eligibilityNote",
		"Please check the official government website for eligibility details.")

	viper.SetDefault("faq.topQueries", 4)
	viper.SetDefault("faq.generatedCount", 3)
	viper.SetDefault("faq.lockTTLSec", 60)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
