package config

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/andresuchdata/erpflow/internal/schema"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Ingest   IngestConfig
	Rules    RulesConfig
	Drive    DriveConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
	LogLevel       string
	// LogFormat is "console" or "json".
	LogFormat      string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxOpen  int
	MaxIdle  int
}

type AppConfig struct {
	UploadDir string
}

type CacheConfig struct {
	Enabled             bool
	RedisURL            string
	RedisHost           string
	RedisPort           string
	RedisPassword       string
	RedisDB             int
	DashboardTTLSeconds int
}

// StorageConfig points at the S3-compatible bucket uploads are archived to.
// Archiving is off when Endpoint is empty.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

type IngestConfig struct {
	BatchSize     int
	WorkerCount   int
	QueueSize     int
	RetryAttempts int
	RetryBackoff  time.Duration
	MaxRowErrors  int
	JobTimeout    time.Duration
}

type RulesConfig struct {
	FactoryPlant      int
	DistributionPlant int
	MTOPrefix         string
	MTSTargetDays     int
	MTOTargetDays     int
	Tolerance         float64
	StuckMediumHours  int
	StuckHighHours    int
	StuckCritHours    int
	LowYieldThreshold float64
}

type DriveConfig struct {
	CredentialsJSON string
	FolderID        string
	Port            string
	// PollInterval enables the folder watcher when positive.
	PollInterval    time.Duration
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 30)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 60)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("LOG_LEVEL", "info")
		viper.SetDefault("LOG_FORMAT", "console")
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "erpflow")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
		viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
		viper.SetDefault("APP_UPLOAD_DIR", "./data/uploads")
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_DASHBOARD_TTL_SECONDS", 60)
		viper.SetDefault("STORAGE_ENDPOINT", "")
		viper.SetDefault("STORAGE_BUCKET", "erpflow-uploads")
		viper.SetDefault("STORAGE_REGION", "us-east-1")
		viper.SetDefault("STORAGE_USE_SSL", true)
		viper.SetDefault("STORAGE_PREFIX", "uploads")
		viper.SetDefault("INGEST_BATCH_SIZE", 500)
		viper.SetDefault("INGEST_WORKER_COUNT", 4)
		viper.SetDefault("INGEST_QUEUE_SIZE", 64)
		viper.SetDefault("INGEST_RETRY_ATTEMPTS", 3)
		viper.SetDefault("INGEST_RETRY_BACKOFF", "500ms")
		viper.SetDefault("INGEST_MAX_ROW_ERRORS", 50)
		viper.SetDefault("INGEST_JOB_TIMEOUT", "30m")

		defaults := schema.DefaultRules()
		viper.SetDefault("RULES_FACTORY_PLANT", defaults.FactoryPlant)
		viper.SetDefault("RULES_DISTRIBUTION_PLANT", defaults.DistributionPlant)
		viper.SetDefault("RULES_MTO_PREFIX", defaults.MTOPrefix)
		viper.SetDefault("RULES_MTS_TARGET_DAYS", defaults.MTSTargetDays)
		viper.SetDefault("RULES_MTO_TARGET_DAYS", defaults.MTOTargetDays)
		viper.SetDefault("RULES_TOLERANCE", defaults.Tolerance.InexactFloat64())
		viper.SetDefault("STUCK_IN_TRANSIT_HOURS", int(defaults.StuckMedium.Hours()))
		viper.SetDefault("STUCK_HIGH_HOURS", int(defaults.StuckHigh.Hours()))
		viper.SetDefault("STUCK_CRITICAL_HOURS", int(defaults.StuckCritical.Hours()))
		viper.SetDefault("LOW_YIELD_THRESHOLD", defaults.LowYieldPercent.InexactFloat64())

		viper.SetDefault("DRIVE_PORT", "8090")
		viper.SetDefault("DRIVE_POLL_INTERVAL", "0s")

		// Read from environment variables
		viper.AutomaticEnv()

		ensureDir(viper.GetString("APP_UPLOAD_DIR"))

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
				LogLevel:       viper.GetString("LOG_LEVEL"),
				LogFormat:      viper.GetString("LOG_FORMAT"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
				MaxOpen:  viper.GetInt("DB_MAX_OPEN_CONNS"),
				MaxIdle:  viper.GetInt("DB_MAX_IDLE_CONNS"),
			},
			App: AppConfig{
				UploadDir: viper.GetString("APP_UPLOAD_DIR"),
			},
			Cache: CacheConfig{
				Enabled:             viper.GetBool("CACHE_ENABLED"),
				RedisURL:            viper.GetString("REDIS_URL"),
				RedisHost:           viper.GetString("REDIS_HOST"),
				RedisPort:           viper.GetString("REDIS_PORT"),
				RedisPassword:       viper.GetString("REDIS_PASSWORD"),
				RedisDB:             viper.GetInt("REDIS_DB"),
				DashboardTTLSeconds: viper.GetInt("CACHE_DASHBOARD_TTL_SECONDS"),
			},
			Storage: StorageConfig{
				Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
				AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
				SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
				Bucket:    viper.GetString("STORAGE_BUCKET"),
				Region:    viper.GetString("STORAGE_REGION"),
				UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
				Prefix:    viper.GetString("STORAGE_PREFIX"),
			},
			Ingest: IngestConfig{
				BatchSize:     viper.GetInt("INGEST_BATCH_SIZE"),
				WorkerCount:   viper.GetInt("INGEST_WORKER_COUNT"),
				QueueSize:     viper.GetInt("INGEST_QUEUE_SIZE"),
				RetryAttempts: viper.GetInt("INGEST_RETRY_ATTEMPTS"),
				RetryBackoff:  viper.GetDuration("INGEST_RETRY_BACKOFF"),
				MaxRowErrors:  viper.GetInt("INGEST_MAX_ROW_ERRORS"),
				JobTimeout:    viper.GetDuration("INGEST_JOB_TIMEOUT"),
			},
			Rules: RulesConfig{
				FactoryPlant:      viper.GetInt("RULES_FACTORY_PLANT"),
				DistributionPlant: viper.GetInt("RULES_DISTRIBUTION_PLANT"),
				MTOPrefix:         viper.GetString("RULES_MTO_PREFIX"),
				MTSTargetDays:     viper.GetInt("RULES_MTS_TARGET_DAYS"),
				MTOTargetDays:     viper.GetInt("RULES_MTO_TARGET_DAYS"),
				Tolerance:         viper.GetFloat64("RULES_TOLERANCE"),
				StuckMediumHours:  viper.GetInt("STUCK_IN_TRANSIT_HOURS"),
				StuckHighHours:    viper.GetInt("STUCK_HIGH_HOURS"),
				StuckCritHours:    viper.GetInt("STUCK_CRITICAL_HOURS"),
				LowYieldThreshold: viper.GetFloat64("LOW_YIELD_THRESHOLD"),
			},
			Drive: DriveConfig{
				CredentialsJSON: viper.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
				FolderID:        viper.GetString("GOOGLE_DRIVE_FOLDER_ID"),
				Port:            viper.GetString("DRIVE_PORT"),
				PollInterval:    viper.GetDuration("DRIVE_POLL_INTERVAL"),
			},
		}
	})

	return instance
}

// Schema converts the configured rules, keeping the declared default for
// anything left unset.
func (r RulesConfig) Schema() schema.Rules {
	out := schema.DefaultRules()
	if r.FactoryPlant > 0 {
		out.FactoryPlant = r.FactoryPlant
	}
	if r.DistributionPlant > 0 {
		out.DistributionPlant = r.DistributionPlant
	}
	if r.MTOPrefix != "" {
		out.MTOPrefix = r.MTOPrefix
	}
	if r.MTSTargetDays > 0 {
		out.MTSTargetDays = r.MTSTargetDays
	}
	if r.MTOTargetDays > 0 {
		out.MTOTargetDays = r.MTOTargetDays
	}
	if r.Tolerance > 0 {
		out.Tolerance = decimal.NewFromFloat(r.Tolerance)
	}
	if r.StuckMediumHours > 0 {
		out.StuckMedium = time.Duration(r.StuckMediumHours) * time.Hour
	}
	if r.StuckHighHours > 0 {
		out.StuckHigh = time.Duration(r.StuckHighHours) * time.Hour
	}
	if r.StuckCritHours > 0 {
		out.StuckCritical = time.Duration(r.StuckCritHours) * time.Hour
	}
	if r.LowYieldThreshold > 0 {
		out.LowYieldPercent = decimal.NewFromFloat(r.LowYieldThreshold)
	}
	return out
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
