package config

// StorageConfig selects the SQL backend holding tracked resources and their slots.
// Driver "sqlite" uses SQLitePath; driver "postgres" uses DSN.
type StorageConfig struct {
	Driver     string `json:"driver,omitempty" yaml:"driver,omitempty" env:"DATABASE_DRIVER" validate:"required,storagedriver"`
	SQLitePath string `json:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty" env:"DATABASE_PATH"`
	DSN        string `json:"dsn,omitempty" yaml:"dsn,omitempty" env:"DATABASE_URL"`
}

// NewDefaultStorageConfig creates default storage configuration
func NewDefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Driver:     DefaultStorageDriver,
		SQLitePath: DefaultStorageSQLitePath,
	}
}

// DataSourceName returns the connection string for the configured driver.
func (sc StorageConfig) DataSourceName() string {
	if sc.Driver == "postgres" {
		return sc.DSN
	}
	return sc.SQLitePath
}
