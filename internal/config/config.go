// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/andresuchdata/replenish/internal/calendar"
	"github.com/andresuchdata/replenish/internal/demand"
	"github.com/andresuchdata/replenish/internal/engine"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Drive    DriveConfig
	Engine   EngineConfig
	Pipeline PipelineConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	MaxUploadMB    int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns URL when set, otherwise a key/value connection string.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type AppConfig struct {
	LogLevel  string
	LogJSON   bool
	UploadDir string
	DataDir   string
}

type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	AnalysisTTLHours int
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

type DriveConfig struct {
	CredentialsFile string
	FolderID        string
}

type EngineConfig struct {
	HolidayTable        string
	DefaultLeadWeeks    float64
	PlanningWindowDays  int
	EstimatorPeriods    int
	EstimatorAlpha      float64
	VolatilityThreshold float64
	// EvaluationDate pins "today" (YYYY-MM-DD) for reproducible runs.
	EvaluationDate string
}

type PipelineConfig struct {
	WorkerCount   int
	OutputDir     string
	WorkDir       string
	BatchSize     int
	RetryAttempts int
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		v := viper.New()
		setDefaults(v)
		v.AutomaticEnv()

		instance = fromViper(v)

		ensureDir(instance.App.UploadDir)
		ensureDir(instance.App.DataDir)
	})

	return instance
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 15)
	v.SetDefault("SERVER_MAX_UPLOAD_MB", 32)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "replenish")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("APP_LOG_LEVEL", "info")
	v.SetDefault("APP_LOG_JSON", false)
	v.SetDefault("APP_UPLOAD_DIR", "./data/uploads")
	v.SetDefault("APP_DATA_DIR", "./data/output")

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_ANALYSIS_TTL_HOURS", 24)

	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "")
	v.SetDefault("S3_USE_SSL", true)
	v.SetDefault("S3_PREFIX", "")

	v.SetDefault("GOOGLE_CREDENTIALS_FILE", "")
	v.SetDefault("GOOGLE_DRIVE_FOLDER_ID", "")

	v.SetDefault("ENGINE_HOLIDAY_TABLE", "")
	v.SetDefault("ENGINE_DEFAULT_LEAD_WEEKS", 2.0)
	v.SetDefault("ENGINE_PLANNING_WINDOW_DAYS", 90)
	v.SetDefault("ENGINE_ESTIMATOR_PERIODS", 12)
	v.SetDefault("ENGINE_ESTIMATOR_ALPHA", 0.4)
	v.SetDefault("ENGINE_VOLATILITY_THRESHOLD", 1.5)
	v.SetDefault("ENGINE_EVALUATION_DATE", "")

	v.SetDefault("PIPELINE_WORKER_COUNT", 4)
	v.SetDefault("PIPELINE_OUTPUT_DIR", "./data/output/batch")
	v.SetDefault("PIPELINE_WORK_DIR", "./data/work")
	v.SetDefault("PIPELINE_BATCH_SIZE", 10)
	v.SetDefault("PIPELINE_RETRY_ATTEMPTS", 1)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			MaxUploadMB:    v.GetInt("SERVER_MAX_UPLOAD_MB"),
			AllowedOrigins: splitList(v.GetStringSlice("SERVER_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			URL:      v.GetString("DATABASE_URL"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		App: AppConfig{
			LogLevel:  v.GetString("APP_LOG_LEVEL"),
			LogJSON:   v.GetBool("APP_LOG_JSON"),
			UploadDir: v.GetString("APP_UPLOAD_DIR"),
			DataDir:   v.GetString("APP_DATA_DIR"),
		},
		Cache: CacheConfig{
			Enabled:          v.GetBool("CACHE_ENABLED"),
			RedisURL:         v.GetString("REDIS_URL"),
			RedisHost:        v.GetString("REDIS_HOST"),
			RedisPort:        v.GetString("REDIS_PORT"),
			RedisPassword:    v.GetString("REDIS_PASSWORD"),
			RedisDB:          v.GetInt("REDIS_DB"),
			AnalysisTTLHours: v.GetInt("CACHE_ANALYSIS_TTL_HOURS"),
		},
		Storage: StorageConfig{
			Endpoint:  v.GetString("S3_ENDPOINT"),
			AccessKey: v.GetString("S3_ACCESS_KEY"),
			SecretKey: v.GetString("S3_SECRET_KEY"),
			Bucket:    v.GetString("S3_BUCKET"),
			Region:    v.GetString("S3_REGION"),
			UseSSL:    v.GetBool("S3_USE_SSL"),
			Prefix:    v.GetString("S3_PREFIX"),
		},
		Drive: DriveConfig{
			CredentialsFile: v.GetString("GOOGLE_CREDENTIALS_FILE"),
			FolderID:        v.GetString("GOOGLE_DRIVE_FOLDER_ID"),
		},
		Engine: EngineConfig{
			HolidayTable:        v.GetString("ENGINE_HOLIDAY_TABLE"),
			DefaultLeadWeeks:    v.GetFloat64("ENGINE_DEFAULT_LEAD_WEEKS"),
			PlanningWindowDays:  v.GetInt("ENGINE_PLANNING_WINDOW_DAYS"),
			EstimatorPeriods:    v.GetInt("ENGINE_ESTIMATOR_PERIODS"),
			EstimatorAlpha:      v.GetFloat64("ENGINE_ESTIMATOR_ALPHA"),
			VolatilityThreshold: v.GetFloat64("ENGINE_VOLATILITY_THRESHOLD"),
			EvaluationDate:      v.GetString("ENGINE_EVALUATION_DATE"),
		},
		Pipeline: PipelineConfig{
			WorkerCount:   v.GetInt("PIPELINE_WORKER_COUNT"),
			OutputDir:     v.GetString("PIPELINE_OUTPUT_DIR"),
			WorkDir:       v.GetString("PIPELINE_WORK_DIR"),
			BatchSize:     v.GetInt("PIPELINE_BATCH_SIZE"),
			RetryAttempts: v.GetInt("PIPELINE_RETRY_ATTEMPTS"),
		},
	}
}

// CacheTTL is the analysis cache lifetime.
func (c CacheConfig) CacheTTL() time.Duration {
	return time.Duration(c.AnalysisTTLHours) * time.Hour
}

// EngineConfig builds the injected engine configuration, loading the holiday
// table from disk when one is configured.
func (c *Config) EngineConfig() (engine.Config, error) {
	cfg := engine.DefaultConfig()

	if c.Engine.HolidayTable != "" {
		table, err := calendar.LoadTable(c.Engine.HolidayTable)
		if err != nil {
			return cfg, err
		}
		cal, err := calendar.New(table)
		if err != nil {
			return cfg, fmt.Errorf("holiday table %s: %w", c.Engine.HolidayTable, err)
		}
		cfg.Calendar = cal
	}

	if c.Engine.DefaultLeadWeeks > 0 {
		cfg.DefaultLeadWeeks = c.Engine.DefaultLeadWeeks
	}
	cfg.PlanningWindowDays = c.Engine.PlanningWindowDays
	cfg.Estimator = demand.EstimatorConfig{
		Periods:             c.Engine.EstimatorPeriods,
		Alpha:               c.Engine.EstimatorAlpha,
		VolatilityThreshold: c.Engine.VolatilityThreshold,
	}

	if c.Engine.EvaluationDate != "" {
		day, err := calendar.ParseISO(c.Engine.EvaluationDate)
		if err != nil {
			return cfg, fmt.Errorf("evaluation date %q: %w", c.Engine.EvaluationDate, err)
		}
		cfg.Now = func() time.Time { return day }
	}
	return cfg, nil
}

// splitList accepts both a real list and a single comma-separated env value.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func ensureDir(dir string) {
	if dir == "" {
		return
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("failed to create directory")
		}
	}
}
