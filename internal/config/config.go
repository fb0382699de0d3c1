package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	AccessSecret string
	// Required=false runs the unowned variant: requests without a token are
	// accepted and records are stored without an owner.
	Required bool
}

type GeocoderConfig struct {
	URL      string
	APIKey   string
	Timeout  time.Duration
	CacheTTL time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type NATSConfig struct {
	URL string
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Geocoder    GeocoderConfig
	Redis       RedisConfig
	NATS        NATSConfig
}

const defaultGeocoderURL = "https://maps.googleapis.com/maps/api/geocode/json"

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")

	v.SetDefault("AUTH_REQUIRED", true)
	v.SetDefault("GEOCODER_URL", defaultGeocoderURL)
	v.SetDefault("GEOCODER_TIMEOUT", 10*time.Second)
	v.SetDefault("GEOCODE_CACHE_TTL", 24*time.Hour)

	v.AutomaticEnv()

	_ = v.ReadInConfig()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
			Required:     v.GetBool("AUTH_REQUIRED"),
		},
		Geocoder: GeocoderConfig{
			URL:      v.GetString("GEOCODER_URL"),
			APIKey:   v.GetString("GOOGLE_MAPS_API_KEY"),
			Timeout:  v.GetDuration("GEOCODER_TIMEOUT"),
			CacheTTL: v.GetDuration("GEOCODE_CACHE_TTL"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		NATS: NATSConfig{
			URL: v.GetString("NATS_URL"),
		},
	}

	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 5000
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Geocoder.URL == "" {
		cfg.Geocoder.URL = defaultGeocoderURL
	}
	if cfg.Geocoder.Timeout <= 0 {
		cfg.Geocoder.Timeout = 10 * time.Second
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.Required && cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required when AUTH_REQUIRED is set")
	}
	if cfg.Geocoder.APIKey == "" {
		return fmt.Errorf("GOOGLE_MAPS_API_KEY is required")
	}
	return nil
}
