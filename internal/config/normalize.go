package config

import (
	"sort"
	"strings"
)

func (c *AppConfig) normalize() {
	c.Env = normalizeEnv(c.Env)
	c.AllowedOrigins = normalizeOrigins(c.AllowedOrigins)
	c.TrustedProxies = normalizeList(c.TrustedProxies)
	c.SessionSecret = strings.TrimSpace(c.SessionSecret)
	c.Database = normalizeDatabaseConfig(c.Database)
	c.Redis = normalizeRedisConfig(c.Redis)
	c.Storage = normalizeStorageConfig(c.Storage)
	c.Paths.Logs = strings.TrimSpace(c.Paths.Logs)
}

func normalizeDatabaseConfig(cfg DatabaseRuntimeConfig) DatabaseRuntimeConfig {
	cfg.Driver = strings.ToLower(strings.TrimSpace(cfg.Driver))
	cfg.DSN = strings.TrimSpace(cfg.DSN)
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.User = strings.TrimSpace(cfg.User)
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.Charset = strings.TrimSpace(cfg.Charset)
	cfg.Loc = strings.TrimSpace(cfg.Loc)
	cfg.TLS = strings.ToLower(strings.TrimSpace(cfg.TLS))
	cfg.Path = strings.TrimSpace(cfg.Path)

	if cfg.Driver == "sqlite3" {
		cfg.Driver = DriverSQLite
	}
	if cfg.Host == "" {
		cfg.Host = defaultDBHost
	}
	if cfg.Name == "" {
		cfg.Name = defaultDBName
	}
	if cfg.Charset == "" {
		cfg.Charset = defaultDBCharset
	}
	if cfg.Loc == "" {
		cfg.Loc = defaultDBLoc
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = defaultDBTimeoutSecs
	}
	if cfg.Params != nil {
		cfg.Params = copyStringMap(cfg.Params)
	}
	return cfg
}

func normalizeRedisConfig(cfg RedisRuntimeConfig) RedisRuntimeConfig {
	cfg.URL = normalizeRedisRawURL(cfg.URL)
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.Username = strings.TrimSpace(cfg.Username)
	cfg.Password = strings.TrimSpace(cfg.Password)
	if cfg.Port == 0 {
		cfg.Port = defaultRedisPort
	}
	return cfg
}

func normalizeRedisRawURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "redis://") || strings.HasPrefix(trimmed, "rediss://") {
		return trimmed
	}
	return "redis://" + trimmed
}

func normalizeStorageConfig(cfg StorageConfig) StorageConfig {
	cfg.Driver = strings.ToLower(strings.TrimSpace(cfg.Driver))
	cfg.LocalDir = strings.TrimSpace(cfg.LocalDir)
	cfg.MediaPrefix = "/" + strings.Trim(strings.TrimSpace(cfg.MediaPrefix), "/")
	if cfg.MediaPrefix == "/" {
		cfg.MediaPrefix = defaultMediaPrefix
	}
	if cfg.OrphanAgeHours <= 0 {
		cfg.OrphanAgeHours = defaultOrphanAgeHours
	}

	s3 := &cfg.S3
	s3.Endpoint = strings.TrimSpace(s3.Endpoint)
	s3.Region = strings.TrimSpace(s3.Region)
	s3.Bucket = strings.TrimSpace(s3.Bucket)
	s3.AccessKeyID = strings.TrimSpace(s3.AccessKeyID)
	s3.SecretAccessKey = strings.TrimSpace(s3.SecretAccessKey)
	s3.CustomDomain = strings.TrimRight(strings.TrimSpace(s3.CustomDomain), "/")
	s3.Prefix = strings.Trim(strings.TrimSpace(s3.Prefix), "/")
	if s3.Prefix == "" {
		s3.Prefix = defaultS3Prefix
	}
	if s3.TimeoutSeconds <= 0 {
		s3.TimeoutSeconds = defaultS3TimeoutSecs
	}
	return cfg
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		trimmed := strings.TrimRight(strings.TrimSpace(origin), "/")
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(env string) string {
	trimmed := strings.ToLower(strings.TrimSpace(env))
	switch trimmed {
	case "":
		return defaultEnv
	case "dev":
		return EnvDevelopment
	case "prod":
		return EnvProduction
	}
	return trimmed
}

func copyStringMap(input map[string]string) map[string]string {
	if input == nil {
		return nil
	}
	out := make(map[string]string, len(input))
	for key, value := range input {
		k := strings.TrimSpace(key)
		v := strings.TrimSpace(value)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func sortedCopy(items []string) []string {
	out := append([]string(nil), items...)
	sort.Strings(out)
	return out
}
