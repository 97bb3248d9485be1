package config

import (
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Log       LogConfig
	Cache     CacheConfig
	Storage   StorageConfig
	Analytics AnalyticsConfig
}

type ServerConfig struct {
	Port            string
	Mode            string
	ReadTimeout     int
	WriteTimeout    int
	ShutdownTimeout int
	AllowedOrigins  []string
}

type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MaxConcurrency int64
}

type LogConfig struct {
	Level  string
	Format string
}

type CacheConfig struct {
	Enabled             bool
	RedisURL            string
	RedisHost           string
	RedisPort           string
	RedisPassword       string
	RedisDB             int
	AnalyticsTTLSeconds int
}

// StorageConfig points at the S3-compatible bucket ingest files are read from.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

// AnalyticsConfig holds request defaults and engine thresholds.
type AnalyticsConfig struct {
	LookbackDays          int
	SeasonalLookbackDays  int
	ForecastType          string
	HorizonBuckets        int
	MaxDaysLookahead      int
	TopLimit              int
	MaxFoodCostPercent    string
	MinNonZeroBuckets     int
	HighConfidenceBuckets int
	ForecastWindow        int
	FlatSlopeTolerance    string
	SafetyCycles          int
	LeadTimeDays          int
	MinSeasonalSamples    int
	MaxEntityIDs          int
	Workers               int
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults(viper.GetViper())

		// Read from environment variables
		viper.AutomaticEnv()

		instance = fromViper(viper.GetViper())
	})

	return instance
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", 5)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "costbook")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONCURRENCY", 8)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_ANALYTICS_TTL_SECONDS", 300)
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "")
	v.SetDefault("S3_USE_SSL", true)
	v.SetDefault("S3_PREFIX", "")
	v.SetDefault("ANALYTICS_LOOKBACK_DAYS", 90)
	v.SetDefault("ANALYTICS_SEASONAL_LOOKBACK_DAYS", 730)
	v.SetDefault("ANALYTICS_FORECAST_TYPE", "ingredients")
	v.SetDefault("ANALYTICS_HORIZON_BUCKETS", 7)
	v.SetDefault("ANALYTICS_MAX_DAYS_LOOKAHEAD", 14)
	v.SetDefault("ANALYTICS_TOP_LIMIT", 10)
	v.SetDefault("ANALYTICS_MAX_FOOD_COST_PERCENT", "35")
	v.SetDefault("ANALYTICS_MIN_NONZERO_BUCKETS", 3)
	v.SetDefault("ANALYTICS_HIGH_CONFIDENCE_BUCKETS", 12)
	v.SetDefault("ANALYTICS_FORECAST_WINDOW", 0)
	v.SetDefault("ANALYTICS_FLAT_SLOPE_TOLERANCE", "0.01")
	v.SetDefault("ANALYTICS_SAFETY_CYCLES", 1)
	v.SetDefault("ANALYTICS_LEAD_TIME_DAYS", 0)
	v.SetDefault("ANALYTICS_MIN_SEASONAL_SAMPLES", 3)
	v.SetDefault("ANALYTICS_MAX_ENTITY_IDS", 500)
	v.SetDefault("ANALYTICS_WORKERS", 4)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:            v.GetString("SERVER_PORT"),
			Mode:            v.GetString("SERVER_MODE"),
			ReadTimeout:     v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:    v.GetInt("SERVER_WRITE_TIMEOUT"),
			ShutdownTimeout: v.GetInt("SERVER_SHUTDOWN_TIMEOUT"),
			AllowedOrigins:  v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:           v.GetString("DB_HOST"),
			Port:           v.GetString("DB_PORT"),
			User:           v.GetString("DB_USER"),
			Password:       v.GetString("DB_PASSWORD"),
			DBName:         v.GetString("DB_NAME"),
			SSLMode:        v.GetString("DB_SSLMODE"),
			MaxConcurrency: v.GetInt64("DB_MAX_CONCURRENCY"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Cache: CacheConfig{
			Enabled:             v.GetBool("CACHE_ENABLED"),
			RedisURL:            v.GetString("REDIS_URL"),
			RedisHost:           v.GetString("REDIS_HOST"),
			RedisPort:           v.GetString("REDIS_PORT"),
			RedisPassword:       v.GetString("REDIS_PASSWORD"),
			RedisDB:             v.GetInt("REDIS_DB"),
			AnalyticsTTLSeconds: v.GetInt("CACHE_ANALYTICS_TTL_SECONDS"),
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
		Analytics: AnalyticsConfig{
			LookbackDays:          v.GetInt("ANALYTICS_LOOKBACK_DAYS"),
			SeasonalLookbackDays:  v.GetInt("ANALYTICS_SEASONAL_LOOKBACK_DAYS"),
			ForecastType:          v.GetString("ANALYTICS_FORECAST_TYPE"),
			HorizonBuckets:        v.GetInt("ANALYTICS_HORIZON_BUCKETS"),
			MaxDaysLookahead:      v.GetInt("ANALYTICS_MAX_DAYS_LOOKAHEAD"),
			TopLimit:              v.GetInt("ANALYTICS_TOP_LIMIT"),
			MaxFoodCostPercent:    v.GetString("ANALYTICS_MAX_FOOD_COST_PERCENT"),
			MinNonZeroBuckets:     v.GetInt("ANALYTICS_MIN_NONZERO_BUCKETS"),
			HighConfidenceBuckets: v.GetInt("ANALYTICS_HIGH_CONFIDENCE_BUCKETS"),
			ForecastWindow:        v.GetInt("ANALYTICS_FORECAST_WINDOW"),
			FlatSlopeTolerance:    v.GetString("ANALYTICS_FLAT_SLOPE_TOLERANCE"),
			SafetyCycles:          v.GetInt("ANALYTICS_SAFETY_CYCLES"),
			LeadTimeDays:          v.GetInt("ANALYTICS_LEAD_TIME_DAYS"),
			MinSeasonalSamples:    v.GetInt("ANALYTICS_MIN_SEASONAL_SAMPLES"),
			MaxEntityIDs:          v.GetInt("ANALYTICS_MAX_ENTITY_IDS"),
			Workers:               v.GetInt("ANALYTICS_WORKERS"),
		},
	}
}
