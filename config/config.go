// Package config loads the gateway configuration.
//
// Values come from three layers, later layers winning:
//
//	1. the embedded defaultConfig below
//	2. an optional TOML file
//	3. environment variables
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

const defaultConfig = `
[server]
host = "0.0.0.0"
port = 1000
allowed-origins = ["*"]
read-timeout = "15s"
write-timeout = "15s"
idle-timeout = "60s"
shutdown-timeout = "10s"

[store]
# mongo, sqlite, postgres, json, memory
backend = "mongo"
mongo-uri = "mongodb://localhost:27017"
database = "playerDB"
collection = "playerCollection"
data-dir = "./data"
postgres-dsn = "postgres://localhost:5432/playerdb?sslmode=disable"
connect-timeout = "10s"

[log]
# debug, info, warn, error
level = "info"
# console, json
format = "console"
`

// Duration wraps time.Duration so it can be written as "15s" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

type ServerConfig struct {
	Host            string   `toml:"host"`
	Port            int      `toml:"port"`
	AllowedOrigins  []string `toml:"allowed-origins"`
	ReadTimeout     Duration `toml:"read-timeout"`
	WriteTimeout    Duration `toml:"write-timeout"`
	IdleTimeout     Duration `toml:"idle-timeout"`
	ShutdownTimeout Duration `toml:"shutdown-timeout"`
}

// StoreConfig selects and configures the document store backend.
type StoreConfig struct {
	Backend        string   `toml:"backend"`
	MongoURI       string   `toml:"mongo-uri"`
	Database       string   `toml:"database"`
	Collection     string   `toml:"collection"`
	DataDir        string   `toml:"data-dir"`
	PostgresDSN    string   `toml:"postgres-dsn"`
	ConnectTimeout Duration `toml:"connect-timeout"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Config struct {
	Server ServerConfig `toml:"server"`
	Store  StoreConfig  `toml:"store"`
	Log    LogConfig    `toml:"log"`
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// Load builds a Config from the defaults, the optional file at path and the
// process environment.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.Decode(defaultConfig, cfg); err != nil {
		return nil, errors.Wrap(err, "decode default config")
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, errors.Wrapf(err, "decode config file %s", path)
		}
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("HOST", &c.Server.Host)
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid PORT %q", v)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("ALLOWED_ORIGINS"); ok && v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.Server.AllowedOrigins = origins
	}

	str("STORE_BACKEND", &c.Store.Backend)
	str("MONGO_URI", &c.Store.MongoURI)
	str("MONGO_DATABASE", &c.Store.Database)
	str("MONGO_COLLECTION", &c.Store.Collection)
	str("DATA_DIR", &c.Store.DataDir)
	str("POSTGRES_DSN", &c.Store.PostgresDSN)

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	return nil
}
