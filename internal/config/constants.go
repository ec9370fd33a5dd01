package config

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"

	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"

	StorageLocal = "local"
	StorageS3    = "s3"

	defaultPort            = 3000
	defaultEnv             = EnvDevelopment
	defaultDBDriver        = DriverMySQL
	defaultDBHost          = "127.0.0.1"
	defaultDBPort          = 3306
	defaultDBUser          = "root"
	defaultDBName          = "vbg"
	defaultDBCharset       = "utf8mb4"
	defaultDBLoc           = "UTC"
	defaultDBTimeoutSecs   = 10
	defaultSQLitePath      = "data/vbg.db"
	defaultRedisPort       = 6379
	defaultStorageDriver   = StorageLocal
	defaultUploadDir       = "uploads"
	defaultLogDir          = "logs"
	defaultMediaPrefix     = "/media"
	defaultS3Prefix        = "vbg-temoignages"
	defaultS3TimeoutSecs   = 45
	defaultBcryptCost      = 12
	defaultOrphanAgeHours  = 24
	minSessionSecretLength = 64
)
