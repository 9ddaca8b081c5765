// Package config loads the server configuration from defaults, an optional
// TOML file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Server struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port" validate:"min=1,max=65535"`
}

// Addr is the listen address of the server.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type Gemini struct {
	Model string `koanf:"model" validate:"required"`
	// APIKey may be left empty; the adapter then reads GOOGLE_API_KEY itself.
	APIKey string `koanf:"api_key"`
}

type MongoDB struct {
	// URI enables MongoDB thread storage. Threads are kept in memory when empty.
	URI        string `koanf:"uri" validate:"omitempty,uri"`
	Database   string `koanf:"database" validate:"required_with=URI"`
	Collection string `koanf:"collection"`
}

type Log struct {
	Level      string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	Format     string `koanf:"format" validate:"oneof=text json"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb" validate:"min=0"`
	MaxBackups int    `koanf:"max_backups" validate:"min=0"`
}

type Config struct {
	Server  Server  `koanf:"server"`
	Gemini  Gemini  `koanf:"gemini"`
	MongoDB MongoDB `koanf:"mongodb"`
	Log     Log     `koanf:"log"`
}

var defaults = map[string]any{
	"server.host":        "",
	"server.port":        8080,
	"gemini.model":       "gemini-2.5-flash",
	"mongodb.database":   "gemini_adapter",
	"mongodb.collection": "threads",
	"log.level":          "info",
	"log.format":         "text",
	"log.max_size_mb":    10,
	"log.max_backups":    3,
}

// envKeys maps environment variables to configuration keys.
var envKeys = map[string]string{
	"HTTP_HOST":          "server.host",
	"HTTP_PORT":          "server.port",
	"MODEL":              "gemini.model",
	"GOOGLE_API_KEY":     "gemini.api_key",
	"MONGODB_URI":        "mongodb.uri",
	"MONGODB_DB":         "mongodb.database",
	"MONGODB_COLLECTION": "mongodb.collection",
	"LOG_LEVEL":          "log.level",
	"LOG_FORMAT":         "log.format",
	"LOG_FILE":           "log.file",
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadDotEnv loads variables from a .env file into the process environment.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// Load builds the configuration. path is an optional TOML file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(".", env.Opt{
		TransformFunc: func(key, value string) (string, any) {
			if strings.TrimSpace(value) == "" {
				return "", nil
			}
			return envKeys[key], strings.TrimSpace(value)
		},
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	return &cfg, nil
}
