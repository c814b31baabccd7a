package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	S3        S3Config        `mapstructure:"s3"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	CheckIn   CheckInConfig   `mapstructure:"checkin"`
	Sweeper   SweeperConfig   `mapstructure:"sweeper"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	CORS      CORSConfig      `mapstructure:"cors"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
	Mode    string `mapstructure:"mode"` // gin mode: debug, release, test
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

// RedisConfig points at the store that keeps each user's active check-in.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// LogConfig controls the zap logger and its rolling file sink.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Path       string `mapstructure:"path"` // empty disables the file sink
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// CheckInConfig holds the attendance rules.
type CheckInConfig struct {
	RadiusMeters        float64       `mapstructure:"radius_meters"`
	NearbyRadiusMeters  float64       `mapstructure:"nearby_radius_meters"`
	MinVerifiedMinutes  int           `mapstructure:"min_verified_minutes"`
	LocateTimeout       time.Duration `mapstructure:"locate_timeout"`
	MaxFixAge           time.Duration `mapstructure:"max_fix_age"`
	Timezone            string        `mapstructure:"timezone"` // IANA name used for "today"
	HistoryDefaultLimit int           `mapstructure:"history_default_limit"`
}

// SweeperConfig controls the job that expires forgotten check-ins.
type SweeperConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Schedule      string        `mapstructure:"schedule"`
	MaxSessionAge time.Duration `mapstructure:"max_session_age"`
}

// RateLimitConfig is applied per user to the check-in endpoints.
type RateLimitConfig struct {
	PerMinute int `mapstructure:"per_minute"`
	Burst     int `mapstructure:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Location resolves the configured timezone, falling back to the local zone.
func (c CheckInConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// LoadConfig reads configuration from a .env file, a config file in path
// and environment variables, in increasing order of precedence.
func LoadConfig(path string) (config Config, err error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// server.address -> SERVER_ADDRESS, jwt.expiration -> JWT_EXPIRATION
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	setDefaults(v)

	err = v.ReadInConfig()
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	} else if err != nil {
		return
	}

	err = v.Unmarshal(&config)
	if err != nil {
		return
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	// Keys without a useful default are still registered so AutomaticEnv
	// can fill them from the environment alone.
	for _, key := range []string{
		"jwt.secret", "redis.password", "log.path", "checkin.timezone",
		"s3.endpoint", "s3.region", "s3.access_key_id", "s3.secret_access_key", "s3.bucket_name",
	} {
		v.SetDefault(key, "")
	}

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "gymez")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "gymez:")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("jwt.expiration", "24h")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 7)
	v.SetDefault("checkin.radius_meters", 100.0)
	v.SetDefault("checkin.nearby_radius_meters", 500.0)
	v.SetDefault("checkin.min_verified_minutes", 30)
	v.SetDefault("checkin.locate_timeout", "15s")
	v.SetDefault("checkin.max_fix_age", "10s")
	v.SetDefault("checkin.history_default_limit", 30)
	v.SetDefault("sweeper.enabled", true)
	v.SetDefault("sweeper.schedule", "@every 30m")
	v.SetDefault("sweeper.max_session_age", "12h")
	v.SetDefault("rate_limit.per_minute", 10)
	v.SetDefault("rate_limit.burst", 3)
	v.SetDefault("cors.allowed_origins", []string{"*"})
}
