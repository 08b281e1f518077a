package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	// DatabaseURL, если задан, имеет приоритет над DB_* параметрами
	DatabaseURL string
	// Storage: "postgres" или "memory"
	Storage    string
	ServerPort string
	LogLevel   string

	GitHub      GitHubConfig
	Workers     WorkerConfig
	Publish     PublishConfig
	ScoringFile string
}

// GitHubConfig настраивает клиент удалённого хоста, кэш и ограничение частоты запросов.
type GitHubConfig struct {
	Token         string
	APIURL        string
	MetadataTTL   time.Duration
	FilesTTL      time.Duration
	CacheCapacity int
	SoftFloor     int
	HardFloor     int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	MaxResetWait  time.Duration
	Timeout       time.Duration
}

// WorkerConfig задаёт параллелизм разбора файлов. Сбой одного файла никогда не прерывает анализ.
type WorkerConfig struct {
	MaxWorkers int
}

type PublishConfig struct {
	MaxCandidates int
	MaxInline     int
	MaxDetailed   int
}

func LoadConfig() (Config, error) {

	err := godotenv.Load()

	return Config{
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASSWORD", "password"),
		DBName:      getEnv("DB_NAME", "pr_review"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Storage:     getEnv("STORAGE", "postgres"),
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		GitHub: GitHubConfig{
			Token:         getEnv("GITHUB_TOKEN", ""),
			APIURL:        getEnv("GITHUB_API_URL", ""),
			MetadataTTL:   getEnvDuration("GITHUB_METADATA_TTL", 30*time.Second),
			FilesTTL:      getEnvDuration("GITHUB_FILES_TTL", 60*time.Second),
			CacheCapacity: getEnvInt("GITHUB_CACHE_CAPACITY", 500),
			SoftFloor:     getEnvInt("GITHUB_RATE_SOFT_FLOOR", 10),
			HardFloor:     getEnvInt("GITHUB_RATE_HARD_FLOOR", 2),
			BaseDelay:     getEnvDuration("GITHUB_RATE_BASE_DELAY", time.Second),
			MaxDelay:      getEnvDuration("GITHUB_RATE_MAX_DELAY", 30*time.Second),
			MaxResetWait:  getEnvDuration("GITHUB_RATE_MAX_RESET_WAIT", 5*time.Minute),
			Timeout:       getEnvDuration("GITHUB_HTTP_TIMEOUT", 30*time.Second),
		},
		Workers: WorkerConfig{
			MaxWorkers: getEnvInt("ANALYSIS_MAX_WORKERS", 4),
		},
		Publish: PublishConfig{
			MaxCandidates: getEnvInt("PUBLISH_MAX_CANDIDATES", 50),
			MaxInline:     getEnvInt("PUBLISH_MAX_INLINE", 20),
			MaxDetailed:   getEnvInt("PUBLISH_MAX_DETAILED", 10),
		},
		ScoringFile: getEnv("SCORING_CONFIG", ""),
	}, err
}

// DSN возвращает строку подключения к PostgreSQL.
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
