package extension

import "github.com/xraph/keep"

// Config holds the keep extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.keep" or "keep" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Database is the database name (default: "keep").
	Database string `json:"database" mapstructure:"database" yaml:"database"`

	// UserCollection holds principal documents (default: "keep_identity").
	UserCollection string `json:"user_collection" mapstructure:"user_collection" yaml:"user_collection"`

	// RoleCollection holds role documents. Empty shares UserCollection.
	RoleCollection string `json:"role_collection" mapstructure:"role_collection" yaml:"role_collection"`

	// PartitionByID uses each document id as its partition key.
	PartitionByID bool `json:"partition_by_id" mapstructure:"partition_by_id" yaml:"partition_by_id"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	d := keep.DefaultConfig()
	return Config{
		Database:       d.Database,
		UserCollection: d.UserCollection,
	}
}

func (c Config) keepConfig() keep.Config {
	kc := keep.DefaultConfig()
	if c.Database != "" {
		kc.Database = c.Database
	}
	if c.UserCollection != "" {
		kc.UserCollection = c.UserCollection
	}
	kc.RoleCollection = c.RoleCollection
	if c.PartitionByID {
		kc.UserPartitionKey = keep.PartitionByID
		kc.RolePartitionKey = keep.PartitionByID
	}
	return kc
}
