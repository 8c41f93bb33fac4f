package keep

import "fmt"

// Default collection layout.
const (
	DefaultDatabase       = "keep"
	DefaultUserCollection = "keep_identity"
)

// Config holds the document layout shared by the user and role stores.
type Config struct {
	// Database is the database name used by backends that need one.
	// Defaults to "keep".
	Database string `json:"database,omitempty" yaml:"database"`

	// UserCollection holds principal documents. Defaults to "keep_identity".
	UserCollection string `json:"user_collection,omitempty" yaml:"user_collection"`

	// RoleCollection holds role documents. Empty means roles share
	// UserCollection, told apart by the documentType discriminator.
	RoleCollection string `json:"role_collection,omitempty" yaml:"role_collection"`

	// UserPartitionKey derives the partition key of a principal document
	// from its id. Nil means the collection is not partitioned.
	UserPartitionKey func(id string) string `json:"-" yaml:"-"`

	// RolePartitionKey derives the partition key of a role document from
	// its id. Nil means the collection is not partitioned.
	RolePartitionKey func(id string) string `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Database:       DefaultDatabase,
		UserCollection: DefaultUserCollection,
	}
}

// PartitionByID uses the document id as its own partition key.
func PartitionByID(id string) string { return id }

// Validate reports a Config that cannot address any collection.
func (c Config) Validate() error {
	if c.UserCollection == "" {
		return fmt.Errorf("%w: user collection is empty", ErrInvalidArgument)
	}
	return nil
}

// RoleCollectionName returns the collection holding role documents.
func (c Config) RoleCollectionName() string {
	if c.RoleCollection != "" {
		return c.RoleCollection
	}
	return c.UserCollection
}

// Collections returns the distinct collections the stores write to.
func (c Config) Collections() []string {
	if r := c.RoleCollectionName(); r != c.UserCollection {
		return []string{c.UserCollection, r}
	}
	return []string{c.UserCollection}
}

// UserPartition returns the partition key for principal id.
func (c Config) UserPartition(id string) string {
	if c.UserPartitionKey == nil {
		return ""
	}
	return c.UserPartitionKey(id)
}

// RolePartition returns the partition key for role id.
func (c Config) RolePartition(id string) string {
	if c.RolePartitionKey == nil {
		return ""
	}
	return c.RolePartitionKey(id)
}
