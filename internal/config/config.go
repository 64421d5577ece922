// Package config loads service configuration from the environment.
package config

import (
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

type Config struct {
	Port     int    `env:"PORT,default=3000"`
	DSN      string `env:"DSN,required"`
	JWTKey   string `env:"JWT_SECRET_KEY,required"`
	LogLevel string `env:"LOG_LEVEL,default=info"`

	Media struct {
		AccountID       string `env:"ACCOUNT_ID,required"`
		AccessKeyID     string `env:"ACCESS_KEY_ID,required"`
		AccessKeySecret string `env:"ACCESS_KEY_SECRET,required"`
		Bucket          string `env:"BUCKET_NAME,required"`
		PublicURL       string `env:"PUBLIC_URL,required"`
	}
}

// Load reads .env when present, then decodes the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := envdecode.StrictDecode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
