package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xraph/keep"
)

// defaultConfigPath is read when --config is not given. It is optional.
const defaultConfigPath = "keep.yaml"

// fileConfig is the on-disk CLI configuration.
type fileConfig struct {
	Driver         string `yaml:"driver"`
	URI            string `yaml:"uri,omitempty"`
	Database       string `yaml:"database,omitempty"`
	UserCollection string `yaml:"user_collection,omitempty"`
	RoleCollection string `yaml:"role_collection,omitempty"`
	PartitionByID  bool   `yaml:"partition_by_id,omitempty"`
	Output         string `yaml:"output,omitempty"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Driver: "mongo",
		URI:    "mongodb://localhost:27017",
		Output: "json",
	}
}

// loadConfig reads path over the defaults. A missing file is an error only
// when the path was given explicitly.
func loadConfig(path string, explicit bool) (fileConfig, error) {
	cfg := defaultFileConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func (c fileConfig) keepConfig() keep.Config {
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
