package config

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                   `yaml:"port"`
	Env            string                `yaml:"env"` // "development" | "production" | "test"
	AllowedOrigins []string              `yaml:"allowed_origins"`
	TrustedProxies []string              `yaml:"trusted_proxies"`
	SessionSecret  string                `yaml:"session_secret"`
	Database       DatabaseRuntimeConfig `yaml:"database"`
	Redis          RedisRuntimeConfig    `yaml:"redis"`
	Storage        StorageConfig         `yaml:"storage"`
	Paths          RuntimePathsConfig    `yaml:"paths"`
	Metrics        MetricsConfig         `yaml:"metrics"`
	Auth           AuthConfig            `yaml:"auth"`
}

type DatabaseRuntimeConfig struct {
	Driver         string            `yaml:"driver"`
	DSN            string            `yaml:"dsn"`
	Host           string            `yaml:"host"`
	Port           int               `yaml:"port"`
	User           string            `yaml:"user"`
	Password       string            `yaml:"password"`
	Name           string            `yaml:"name"`
	Charset        string            `yaml:"charset"`
	Loc            string            `yaml:"loc"`
	TLS            string            `yaml:"tls"` // "", "true", "skip-verify", "preferred"
	TimeoutSeconds int               `yaml:"timeout_seconds"`
	Params         map[string]string `yaml:"params"`
	Path           string            `yaml:"path"` // sqlite file
}

// RedisRuntimeConfig is optional. When neither URL nor Host is set the
// service keeps sessions and rate-limit counters in memory.
type RedisRuntimeConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TLS      bool   `yaml:"tls"`
}

type StorageConfig struct {
	Driver         string    `yaml:"driver"` // "local" | "s3"
	LocalDir       string    `yaml:"local_dir"`
	MediaPrefix    string    `yaml:"media_prefix"`
	OrphanAgeHours int       `yaml:"orphan_age_hours"`
	S3             S3Options `yaml:"s3"`
}

type S3Options struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	CustomDomain    string `yaml:"custom_domain"`
	PathStyleAccess bool   `yaml:"path_style_access"`
	Prefix          string `yaml:"prefix"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
}

type RuntimePathsConfig struct {
	Logs string `yaml:"logs"`
}

type MetricsConfig struct {
	Enable bool `yaml:"enable"`
}

type AuthConfig struct {
	BcryptCost int `yaml:"bcrypt_cost"`
}

type rawAppConfig struct {
	Port           int               `yaml:"port"`
	Env            string            `yaml:"env"`
	NodeEnv        string            `yaml:"node_env"`
	AllowedOrigins []string          `yaml:"allowed_origins"`
	TrustedProxies []string          `yaml:"trusted_proxies"`
	SessionSecret  string            `yaml:"session_secret"`
	Database       rawDatabaseConfig `yaml:"database"`
	Redis          rawRedisConfig    `yaml:"redis"`
	RedisURL       string            `yaml:"redis_url"`
	Storage        rawStorageConfig  `yaml:"storage"`
	Paths          rawPathsConfig    `yaml:"paths"`
	LogDir         string            `yaml:"log_dir"`
	Metrics        rawMetricsConfig  `yaml:"metrics"`
	Auth           AuthConfig        `yaml:"auth"`
}

type rawDatabaseConfig struct {
	Driver         string            `yaml:"driver"`
	DSN            string            `yaml:"dsn"`
	Host           string            `yaml:"host"`
	Port           int               `yaml:"port"`
	User           string            `yaml:"user"`
	Username       string            `yaml:"username"`
	Password       string            `yaml:"password"`
	Name           string            `yaml:"name"`
	DBName         string            `yaml:"db_name"`
	Charset        string            `yaml:"charset"`
	Loc            string            `yaml:"loc"`
	TLS            string            `yaml:"tls"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
	Params         map[string]string `yaml:"params"`
	Path           string            `yaml:"path"`
}

type rawRedisConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       *int   `yaml:"db"`
	TLS      *bool  `yaml:"tls"`
}

type rawStorageConfig struct {
	Driver         string       `yaml:"driver"`
	LocalDir       string       `yaml:"local_dir"`
	MediaPrefix    string       `yaml:"media_prefix"`
	OrphanAgeHours int          `yaml:"orphan_age_hours"`
	S3             rawS3Options `yaml:"s3"`
}

type rawS3Options struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	CustomDomain    string `yaml:"custom_domain"`
	PathStyleAccess *bool  `yaml:"path_style_access"`
	Prefix          string `yaml:"prefix"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
}

type rawPathsConfig struct {
	Logs string `yaml:"logs"`
}

type rawMetricsConfig struct {
	Enable *bool `yaml:"enable"`
}
