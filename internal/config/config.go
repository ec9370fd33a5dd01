package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML file at configPath, applies environment overrides
// and validates the result.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	overrides, err := loadEnvOverrides(nil)
	if err != nil {
		return nil, err
	}
	cfg, err := parse(content, overrides)
	if err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	if abs, err := filepath.Abs(path); err == nil {
		cfg.anchorPaths(filepath.Dir(abs))
	}
	return cfg, nil
}

func parse(content []byte, overrides envOverrides) (*AppConfig, error) {
	cfg := defaultAppConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	raw := rawAppConfig{}
	if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	applyRawAppConfig(&cfg, raw)
	overrides.apply(&cfg)
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Database: DatabaseRuntimeConfig{
			Driver:         defaultDBDriver,
			Host:           defaultDBHost,
			Port:           defaultDBPort,
			User:           defaultDBUser,
			Name:           defaultDBName,
			Charset:        defaultDBCharset,
			Loc:            defaultDBLoc,
			TimeoutSeconds: defaultDBTimeoutSecs,
			Path:           defaultSQLitePath,
		},
		Redis: RedisRuntimeConfig{Port: defaultRedisPort},
		Storage: StorageConfig{
			Driver:         defaultStorageDriver,
			LocalDir:       defaultUploadDir,
			MediaPrefix:    defaultMediaPrefix,
			OrphanAgeHours: defaultOrphanAgeHours,
			S3: S3Options{
				Prefix:         defaultS3Prefix,
				TimeoutSeconds: defaultS3TimeoutSecs,
			},
		},
		Metrics: MetricsConfig{Enable: true},
		Auth:    AuthConfig{BcryptCost: defaultBcryptCost},
	}
}

func applyRawAppConfig(cfg *AppConfig, raw rawAppConfig) {
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	if v := firstNonEmpty(raw.Env, raw.NodeEnv); v != "" {
		cfg.Env = v
	}
	if len(raw.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = raw.AllowedOrigins
	}
	if len(raw.TrustedProxies) > 0 {
		cfg.TrustedProxies = raw.TrustedProxies
	}
	if raw.SessionSecret != "" {
		cfg.SessionSecret = raw.SessionSecret
	}

	cfg.Database = applyRawDatabaseConfig(cfg.Database, raw.Database)
	cfg.Redis = applyRawRedisConfig(cfg.Redis, raw.Redis, raw.RedisURL)
	cfg.Storage = applyRawStorageConfig(cfg.Storage, raw.Storage)

	if v := firstNonEmpty(raw.Paths.Logs, raw.LogDir); v != "" {
		cfg.Paths.Logs = v
	}
	if raw.Metrics.Enable != nil {
		cfg.Metrics.Enable = *raw.Metrics.Enable
	}
	if raw.Auth.BcryptCost != 0 {
		cfg.Auth.BcryptCost = raw.Auth.BcryptCost
	}
}

func applyRawDatabaseConfig(current DatabaseRuntimeConfig, raw rawDatabaseConfig) DatabaseRuntimeConfig {
	if raw.Driver != "" {
		current.Driver = raw.Driver
	}
	if raw.DSN != "" {
		current.DSN = raw.DSN
	}
	if raw.Host != "" {
		current.Host = raw.Host
	}
	if raw.Port != 0 {
		current.Port = raw.Port
	}
	if v := firstNonEmpty(raw.User, raw.Username); v != "" {
		current.User = v
	}
	if raw.Password != "" {
		current.Password = raw.Password
	}
	if v := firstNonEmpty(raw.Name, raw.DBName); v != "" {
		current.Name = v
	}
	if raw.Charset != "" {
		current.Charset = raw.Charset
	}
	if raw.Loc != "" {
		current.Loc = raw.Loc
	}
	if raw.TLS != "" {
		current.TLS = raw.TLS
	}
	if raw.TimeoutSeconds != 0 {
		current.TimeoutSeconds = raw.TimeoutSeconds
	}
	if len(raw.Params) > 0 {
		current.Params = raw.Params
	}
	if raw.Path != "" {
		current.Path = raw.Path
	}
	return current
}

func applyRawRedisConfig(current RedisRuntimeConfig, raw rawRedisConfig, legacyURL string) RedisRuntimeConfig {
	if v := firstNonEmpty(raw.URL, legacyURL); v != "" {
		current.URL = v
	}
	if raw.Host != "" {
		current.Host = raw.Host
	}
	if raw.Port != 0 {
		current.Port = raw.Port
	}
	if raw.Username != "" {
		current.Username = raw.Username
	}
	if raw.Password != "" {
		current.Password = raw.Password
	}
	if raw.DB != nil {
		current.DB = *raw.DB
	}
	if raw.TLS != nil {
		current.TLS = *raw.TLS
	}
	return current
}

func applyRawStorageConfig(current StorageConfig, raw rawStorageConfig) StorageConfig {
	if raw.Driver != "" {
		current.Driver = raw.Driver
	}
	if raw.LocalDir != "" {
		current.LocalDir = raw.LocalDir
	}
	if raw.MediaPrefix != "" {
		current.MediaPrefix = raw.MediaPrefix
	}
	if raw.OrphanAgeHours != 0 {
		current.OrphanAgeHours = raw.OrphanAgeHours
	}
	s3 := raw.S3
	if s3.Endpoint != "" {
		current.S3.Endpoint = s3.Endpoint
	}
	if s3.Region != "" {
		current.S3.Region = s3.Region
	}
	if s3.Bucket != "" {
		current.S3.Bucket = s3.Bucket
	}
	if s3.AccessKeyID != "" {
		current.S3.AccessKeyID = s3.AccessKeyID
	}
	if s3.SecretAccessKey != "" {
		current.S3.SecretAccessKey = s3.SecretAccessKey
	}
	if s3.CustomDomain != "" {
		current.S3.CustomDomain = s3.CustomDomain
	}
	if s3.PathStyleAccess != nil {
		current.S3.PathStyleAccess = *s3.PathStyleAccess
	}
	if s3.Prefix != "" {
		current.S3.Prefix = s3.Prefix
	}
	if s3.TimeoutSeconds != 0 {
		current.S3.TimeoutSeconds = s3.TimeoutSeconds
	}
	return current
}

func (c *AppConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", c.Port)
	}
	switch c.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return fmt.Errorf("invalid env %q, expected development, production or test", c.Env)
	}
	if c.IsProduction() && len(c.SessionSecret) < minSessionSecretLength {
		return fmt.Errorf("session_secret must be at least %d characters in production", minSessionSecretLength)
	}

	switch c.Database.Driver {
	case DriverMySQL:
		if c.Database.DSN == "" && (c.Database.Port < 1 || c.Database.Port > 65535) {
			return fmt.Errorf("invalid database.port %d, expected 1-65535", c.Database.Port)
		}
		if _, err := time.LoadLocation(c.Database.Loc); err != nil {
			return fmt.Errorf("invalid database.loc %q: %w", c.Database.Loc, err)
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("invalid database.driver %q, expected mysql or sqlite", c.Database.Driver)
	}

	if c.Redis.Enabled() {
		if c.Redis.URL == "" && (c.Redis.Port < 1 || c.Redis.Port > 65535) {
			return fmt.Errorf("invalid redis.port %d, expected 1-65535", c.Redis.Port)
		}
		if c.Redis.DB < 0 {
			return fmt.Errorf("invalid redis.db %d, expected >= 0", c.Redis.DB)
		}
	}

	switch c.Storage.Driver {
	case StorageLocal:
		if c.Storage.LocalDir == "" {
			return errors.New("storage.local_dir is required for local storage")
		}
	case StorageS3:
		s3 := c.Storage.S3
		var missing []string
		for name, value := range map[string]string{
			"bucket":            s3.Bucket,
			"region":            s3.Region,
			"access_key_id":     s3.AccessKeyID,
			"secret_access_key": s3.SecretAccessKey,
		} {
			if value == "" {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("storage.s3 is missing required fields: %s", strings.Join(sortedCopy(missing), ", "))
		}
	default:
		return fmt.Errorf("invalid storage.driver %q, expected local or s3", c.Storage.Driver)
	}

	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("invalid auth.bcrypt_cost %d, expected 4-31", c.Auth.BcryptCost)
	}
	return nil
}

func (c *AppConfig) IsDev() bool {
	return c.Env == EnvDevelopment
}

func (c *AppConfig) IsProduction() bool {
	return c.Env == EnvProduction
}

// LogDir returns the absolute log directory.
func (c *AppConfig) LogDir() string {
	return ResolveRuntimePath(c.Paths.Logs, defaultLogDir)
}

// UploadDir returns the absolute local upload directory.
func (c *AppConfig) UploadDir() string {
	return ResolveRuntimePath(c.Storage.LocalDir, defaultUploadDir)
}

// OrphanAge is how old an unreferenced local blob must be before it is swept.
func (c *AppConfig) OrphanAge() time.Duration {
	return time.Duration(c.Storage.OrphanAgeHours) * time.Hour
}

func (s S3Options) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Enabled reports whether a Redis server was configured.
func (c RedisRuntimeConfig) Enabled() bool {
	return c.URL != "" || c.Host != ""
}
