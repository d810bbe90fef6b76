package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Remote fetch
	FetchBackend    string // "renderapi" (default) or "chrome"
	RenderAPIKey    string
	RenderAPIURL    string
	ProxyCountry    string
	FetchTimeoutMs  int
	MinBodyBytes    int // bodies shorter than this count as "no data"
	ChromeBin       string

	// Orchestration
	SourceTimeoutMs   int
	SearchTimeoutMs   int
	MinResultsPerPass int
	MaxConcurrency    int

	// Postgres
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	PostgresEnabled  bool

	// Redis cache
	RedisAddr     string
	RedisPassword string
	RedisEnabled  bool

	// Kafka events
	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool

	CSVOutputPath string
	LogLevel      string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		FetchBackend:   getEnv("FETCH_BACKEND", "renderapi"),
		RenderAPIKey:   getEnv("RENDER_API_KEY", ""),
		RenderAPIURL:   getEnv("RENDER_API_URL", "https://app.scrapingbee.com/api/v1/"),
		ProxyCountry:   getEnv("PROXY_COUNTRY", "fr"),
		FetchTimeoutMs: getEnvInt("FETCH_TIMEOUT_MS", 45000),
		MinBodyBytes:   getEnvInt("MIN_BODY_BYTES", 512),
		ChromeBin:      getEnv("CHROME_BIN", ""),

		SourceTimeoutMs:   getEnvInt("SOURCE_TIMEOUT_MS", 60000),
		SearchTimeoutMs:   getEnvInt("SEARCH_TIMEOUT_MS", 120000),
		MinResultsPerPass: getEnvInt("MIN_RESULTS_PER_PASS", 3),
		MaxConcurrency:    getEnvInt("MAX_CONCURRENCY", 4),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "carscout"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "carscout123"),
		PostgresDB:       getEnv("POSTGRES_DB", "carscout_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresEnabled:  getEnvBool("POSTGRES_ENABLED", false),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisEnabled:  getEnvBool("REDIS_ENABLED", false),

		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "carscout-events"),
		KafkaEnabled: getEnvBool("KAFKA_ENABLED", false),

		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", "./output/listings.csv"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
