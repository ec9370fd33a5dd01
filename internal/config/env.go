package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// envOverrides are secrets and deployment knobs that should not live in
// the YAML file.
type envOverrides struct {
	Env               string `env:"VBG_ENV"`
	Port              int    `env:"VBG_PORT"`
	SessionSecret     string `env:"VBG_SESSION_SECRET"`
	DBPassword        string `env:"VBG_DB_PASSWORD"`
	DBDSN             string `env:"VBG_DB_DSN"`
	RedisURL          string `env:"VBG_REDIS_URL"`
	S3AccessKeyID     string `env:"VBG_S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"VBG_S3_SECRET_ACCESS_KEY"`
}

// loadEnvOverrides reads overrides from environ, or from the process
// environment when environ is nil.
func loadEnvOverrides(environ map[string]string) (envOverrides, error) {
	var o envOverrides
	if err := env.ParseWithOptions(&o, env.Options{Environment: environ}); err != nil {
		return o, fmt.Errorf("parse env: %w", err)
	}
	return o, nil
}

func (o envOverrides) apply(cfg *AppConfig) {
	if o.Env != "" {
		cfg.Env = o.Env
	}
	if o.Port != 0 {
		cfg.Port = o.Port
	}
	if o.SessionSecret != "" {
		cfg.SessionSecret = o.SessionSecret
	}
	if o.DBPassword != "" {
		cfg.Database.Password = o.DBPassword
	}
	if o.DBDSN != "" {
		cfg.Database.DSN = o.DBDSN
	}
	if o.RedisURL != "" {
		cfg.Redis.URL = o.RedisURL
	}
	if o.S3AccessKeyID != "" {
		cfg.Storage.S3.AccessKeyID = o.S3AccessKeyID
	}
	if o.S3SecretAccessKey != "" {
		cfg.Storage.S3.SecretAccessKey = o.S3SecretAccessKey
	}
}
