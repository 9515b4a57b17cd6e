// internal/config/config.go
package config

import (
	"log"
	"sync"
	"time"

	"github.com/andresuchdata/bakeplan/internal/forecast"
	"github.com/andresuchdata/bakeplan/internal/reconcile"
	"github.com/andresuchdata/bakeplan/internal/storage"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Drive    DriveConfig
	Forecast ForecastConfig
	Accuracy AccuracyConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string

	// MaxConcurrentTx bounds concurrent write transactions.
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	MaxConcurrentTx    int
}

type LogConfig struct {
	Level  string
	Format string
}

type CacheConfig struct {
	Enabled            bool
	RedisURL           string
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	AnalysisTTLSeconds int
}

// StorageConfig points at an S3 compatible bucket used for ingest files
// and exported accuracy reports.
type StorageConfig struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	Bucket       string
	Region       string
	UseSSL       bool
	ReportPrefix string
}

type DriveConfig struct {
	CredentialsJSON string
	FolderPath      string
	DownloadDir     string
}

type ForecastConfig struct {
	LookbackDays       int
	SameWeekdaySamples int
	FallbackSamples    int
	MinSamples         int
	OutlierK           float64
	RecencyDecay       float64
	IntervalWidth      float64
	ConfidenceScale    float64
	ServiceLevel       float64
	Workers            int
	FallbackEnabled    bool
}

type AccuracyConfig struct {
	BiasThreshold     float64
	AccuracyThreshold float64
	MinSamples        int
	HighPriorityCost  float64
	HighPriorityShare float64
	TopN              int
	PartitionDays     int
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults()
		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),

				MaxOpenConns:       viper.GetInt("DB_MAX_OPEN_CONNS"),
				MaxIdleConns:       viper.GetInt("DB_MAX_IDLE_CONNS"),
				ConnMaxLifetimeMin: viper.GetInt("DB_CONN_MAX_LIFETIME_MINUTES"),
				MaxConcurrentTx:    viper.GetInt("DB_MAX_CONCURRENT_TX"),
			},
			Log: LogConfig{
				Level:  viper.GetString("LOG_LEVEL"),
				Format: viper.GetString("LOG_FORMAT"),
			},
			Cache: CacheConfig{
				Enabled:            viper.GetBool("CACHE_ENABLED"),
				RedisURL:           viper.GetString("REDIS_URL"),
				RedisHost:          viper.GetString("REDIS_HOST"),
				RedisPort:          viper.GetString("REDIS_PORT"),
				RedisPassword:      viper.GetString("REDIS_PASSWORD"),
				RedisDB:            viper.GetInt("REDIS_DB"),
				AnalysisTTLSeconds: viper.GetInt("CACHE_ANALYSIS_TTL_SECONDS"),
			},
			Storage: StorageConfig{
				Endpoint:     viper.GetString("STORAGE_ENDPOINT"),
				AccessKey:    viper.GetString("STORAGE_ACCESS_KEY"),
				SecretKey:    viper.GetString("STORAGE_SECRET_KEY"),
				Bucket:       viper.GetString("STORAGE_BUCKET"),
				Region:       viper.GetString("STORAGE_REGION"),
				UseSSL:       viper.GetBool("STORAGE_USE_SSL"),
				ReportPrefix: viper.GetString("STORAGE_REPORT_PREFIX"),
			},
			Drive: DriveConfig{
				CredentialsJSON: viper.GetString("GOOGLE_CREDENTIALS_JSON"),
				FolderPath:      viper.GetString("DRIVE_FOLDER_PATH"),
				DownloadDir:     viper.GetString("DRIVE_DOWNLOAD_DIR"),
			},
			Forecast: ForecastConfig{
				LookbackDays:       viper.GetInt("FORECAST_LOOKBACK_DAYS"),
				SameWeekdaySamples: viper.GetInt("FORECAST_SAME_WEEKDAY_SAMPLES"),
				FallbackSamples:    viper.GetInt("FORECAST_FALLBACK_SAMPLES"),
				MinSamples:         viper.GetInt("FORECAST_MIN_SAMPLES"),
				OutlierK:           viper.GetFloat64("FORECAST_OUTLIER_K"),
				RecencyDecay:       viper.GetFloat64("FORECAST_RECENCY_DECAY"),
				IntervalWidth:      viper.GetFloat64("FORECAST_INTERVAL_WIDTH"),
				ConfidenceScale:    viper.GetFloat64("FORECAST_CONFIDENCE_SCALE"),
				ServiceLevel:       viper.GetFloat64("FORECAST_SERVICE_LEVEL"),
				Workers:            viper.GetInt("FORECAST_WORKERS"),
				FallbackEnabled:    viper.GetBool("FORECAST_FALLBACK_ENABLED"),
			},
			Accuracy: AccuracyConfig{
				BiasThreshold:     viper.GetFloat64("ACCURACY_BIAS_THRESHOLD"),
				AccuracyThreshold: viper.GetFloat64("ACCURACY_THRESHOLD"),
				MinSamples:        viper.GetInt("ACCURACY_MIN_SAMPLES"),
				HighPriorityCost:  viper.GetFloat64("ACCURACY_HIGH_PRIORITY_COST"),
				HighPriorityShare: viper.GetFloat64("ACCURACY_HIGH_PRIORITY_SHARE"),
				TopN:              viper.GetInt("ACCURACY_TOP_N"),
				PartitionDays:     viper.GetInt("ACCURACY_PARTITION_DAYS"),
			},
		}

		if instance.Forecast.IntervalWidth <= 0 || instance.Forecast.IntervalWidth >= 1 {
			log.Fatalf("FORECAST_INTERVAL_WIDTH must be in (0,1), got %v", instance.Forecast.IntervalWidth)
		}
	})

	return instance
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("SERVER_READ_TIMEOUT", 15)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "bakeplan")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	viper.SetDefault("DB_MAX_CONCURRENT_TX", 10)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "console")
	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_ANALYSIS_TTL_SECONDS", 300)
	viper.SetDefault("STORAGE_REGION", "us-east-1")
	viper.SetDefault("STORAGE_USE_SSL", true)
	viper.SetDefault("STORAGE_REPORT_PREFIX", "reports/accuracy")
	viper.SetDefault("DRIVE_DOWNLOAD_DIR", "./data/drive")
	viper.SetDefault("FORECAST_LOOKBACK_DAYS", 84)
	viper.SetDefault("FORECAST_SAME_WEEKDAY_SAMPLES", 8)
	viper.SetDefault("FORECAST_FALLBACK_SAMPLES", 28)
	viper.SetDefault("FORECAST_MIN_SAMPLES", 3)
	viper.SetDefault("FORECAST_OUTLIER_K", 3.0)
	viper.SetDefault("FORECAST_RECENCY_DECAY", 1.0)
	viper.SetDefault("FORECAST_INTERVAL_WIDTH", 0.9)
	viper.SetDefault("FORECAST_CONFIDENCE_SCALE", 8.0)
	viper.SetDefault("FORECAST_SERVICE_LEVEL", 0.0)
	viper.SetDefault("FORECAST_WORKERS", 8)
	viper.SetDefault("FORECAST_FALLBACK_ENABLED", true)
	viper.SetDefault("ACCURACY_BIAS_THRESHOLD", 30.0)
	viper.SetDefault("ACCURACY_THRESHOLD", 70.0)
	viper.SetDefault("ACCURACY_MIN_SAMPLES", 3)
	viper.SetDefault("ACCURACY_HIGH_PRIORITY_COST", 50.0)
	viper.SetDefault("ACCURACY_HIGH_PRIORITY_SHARE", 0.25)
	viper.SetDefault("ACCURACY_TOP_N", 5)
	viper.SetDefault("ACCURACY_PARTITION_DAYS", 31)
}

// AnalysisTTL returns the cache lifetime of accuracy reports.
func (c CacheConfig) AnalysisTTL() time.Duration {
	return time.Duration(c.AnalysisTTLSeconds) * time.Second
}

// Configured reports whether enough is set to reach a bucket.
func (c StorageConfig) Configured() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

// ClientConfig converts the storage section into client settings.
func (c StorageConfig) ClientConfig() storage.Config {
	return storage.Config{
		Endpoint:  c.Endpoint,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		Bucket:    c.Bucket,
		Region:    c.Region,
		UseSSL:    c.UseSSL,
	}
}

// Params converts the forecast section into engine parameters.
func (c ForecastConfig) Params() forecast.Params {
	return forecast.Params{
		LookbackDays:       c.LookbackDays,
		SameWeekdaySamples: c.SameWeekdaySamples,
		FallbackSamples:    c.FallbackSamples,
		MinSamples:         c.MinSamples,
		OutlierK:           c.OutlierK,
		RecencyDecay:       c.RecencyDecay,
		IntervalWidth:      c.IntervalWidth,
		ConfidenceScale:    c.ConfidenceScale,
		ServiceLevel:       c.ServiceLevel,
	}
}

// AnalysisOptions converts the accuracy section into report options.
func (c AccuracyConfig) AnalysisOptions() reconcile.AnalysisOptions {
	return reconcile.AnalysisOptions{
		TopN: c.TopN,
		Recommendations: reconcile.RecommendationConfig{
			BiasThreshold:     c.BiasThreshold,
			AccuracyThreshold: c.AccuracyThreshold,
			MinSamples:        c.MinSamples,
			HighPriorityCost:  c.HighPriorityCost,
			HighPriorityShare: c.HighPriorityShare,
		},
	}
}
