// Package config handles loading and parsing application configuration.
// It supports two sources (in priority order):
//  1. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//  2. A command-line flag:      --config=/path/to/config.yaml
//
// Every value can also be overridden by the environment variable named in
// its env:"..." tag.
package config

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Storage backends.
const (
	BackendRelational = "relational"
	BackendDocument   = "document"
)

// Config is the root configuration structure.
type Config struct {
	// Env controls log format and verbosity. Valid values: "dev", "staging", "prod".
	Env string `yaml:"env" env:"ENV" env-required:"true"`

	Storage    Storage `yaml:"storage"`
	HTTPServer `yaml:"http_server"`
}

// Storage selects the persistence backend the registry syncs against.
type Storage struct {
	// Backend is "relational" or "document".
	Backend string `yaml:"backend" env:"STORAGE_BACKEND" env-default:"relational"`

	// Driver is the database/sql driver for the relational backend:
	// "sqlite3" (cgo), "sqlite" (pure Go) or "pgx" (PostgreSQL).
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"sqlite3"`

	// DSN is the SQLite file path or the PostgreSQL connection URL.
	DSN string `yaml:"dsn" env:"STORAGE_DSN" env-default:"storage/school.db"`

	Document Document `yaml:"document"`
}

// Document configures where the document backend keeps its single JSON
// document.
type Document struct {
	Key  string `yaml:"key" env:"DOCUMENT_KEY" env-default:"data.json"`
	Blob Blob   `yaml:"blob"`
}

// Blob selects the blob driver holding the document.
type Blob struct {
	// Driver is "fs", "s3" or "memory".
	Driver string `yaml:"driver" env:"BLOB_DRIVER" env-default:"fs"`
	FSRoot string `yaml:"fs_root" env:"BLOB_FS_ROOT" env-default:"./blobdata"`
	S3     S3     `yaml:"s3"`
}

// S3 holds the bucket settings for the s3 blob driver. Credentials fall
// back to the default AWS chain when left empty.
type S3 struct {
	Bucket          string `yaml:"bucket" env:"BLOB_S3_BUCKET"`
	Region          string `yaml:"region" env:"BLOB_S3_REGION" env-default:"us-east-1"`
	Endpoint        string `yaml:"endpoint" env:"BLOB_S3_ENDPOINT"`
	PathStyle       bool   `yaml:"path_style" env:"BLOB_S3_PATH_STYLE"`
	AccessKeyID     string `yaml:"access_key_id" env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"AWS_SECRET_ACCESS_KEY"`
}

// HTTPServer holds settings specific to the HTTP front-end.
type HTTPServer struct {
	Addr string `yaml:"address" env:"HTTP_SERVER_ADDR" env-required:"true"`
}

// MustLoad reads, validates, and returns the application config. It exits
// the process if the config cannot be loaded.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to the configuration YAML file")
		flag.Parse()
		configPath = *flags
	}

	if configPath == "" {
		log.Fatal("config path is not set: use --config flag or CONFIG_PATH env var")
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err.Error())
	}
	return cfg
}

// Load reads the YAML file at path, applies environment overrides and
// checks the storage selection.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Storage.check(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s Storage) check() error {
	switch s.Backend {
	case BackendRelational:
		switch s.Driver {
		case "sqlite3", "sqlite", "pgx":
		default:
			return fmt.Errorf("storage.driver %q: want sqlite3, sqlite or pgx", s.Driver)
		}
	case BackendDocument:
		switch s.Document.Blob.Driver {
		case "fs", "memory":
		case "s3":
			if s.Document.Blob.S3.Bucket == "" {
				return fmt.Errorf("storage.document.blob.s3.bucket is required for the s3 driver")
			}
		default:
			return fmt.Errorf("storage.document.blob.driver %q: want fs, s3 or memory", s.Document.Blob.Driver)
		}
	default:
		return fmt.Errorf("storage.backend %q: want relational or document", s.Backend)
	}
	return nil
}
