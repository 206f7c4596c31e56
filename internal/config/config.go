package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	daerrors "da/internal/errors"
)

// EnvPrefix prefixes every environment override, e.g. DA_NEO4J_URI.
const EnvPrefix = "DA"

// Config represents the complete da configuration
type Config struct {
	Format           string   `json:"format" mapstructure:"format" validate:"oneof=table pretty json yaml toml prometheus"`
	Precision        int      `json:"precision" mapstructure:"precision" validate:"gte=0,lte=6"`
	InterfaceMode    string   `json:"interfaceMode" mapstructure:"interface_mode" validate:"oneof=faithful symmetric"`
	Classpath        []string `json:"classpath" mapstructure:"classpath"`
	StrictResolution bool     `json:"strictResolution" mapstructure:"strict_resolution"`
	Workers          int      `json:"workers" mapstructure:"workers" validate:"gte=0,lte=256"`

	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
	Storage StorageConfig `json:"storage" mapstructure:"storage"`
	Rules   RulesConfig   `json:"rules" mapstructure:"rules"`
	Neo4j   Neo4jConfig   `json:"neo4j" mapstructure:"neo4j"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format" validate:"oneof=human json"`
	Level  string `json:"level" mapstructure:"level" validate:"oneof=debug info warn warning error"`
}

// StorageConfig locates the snapshot history database.
type StorageConfig struct {
	Path string `json:"path" mapstructure:"path" validate:"required"`
}

// RulesConfig locates the default rules file for `da check`.
type RulesConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// Neo4jConfig contains the graph export connection.
type Neo4jConfig struct {
	URI       string `json:"uri" mapstructure:"uri" validate:"required,uri"`
	User      string `json:"user" mapstructure:"user"`
	Password  string `json:"-" mapstructure:"password"`
	Database  string `json:"database" mapstructure:"database"`
	BatchSize int    `json:"batchSize" mapstructure:"batch_size" validate:"gte=0"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Format:        "table",
		Precision:     2,
		InterfaceMode: "faithful",
		Classpath:     []string{},
		Workers:       1,
		Logging: LoggingConfig{
			Format: "human",
			Level:  "warn",
		},
		Storage: StorageConfig{
			Path: ".da/history.db",
		},
		Rules: RulesConfig{
			Path: ".da/rules.toml",
		},
		Neo4j: Neo4jConfig{
			URI:       "bolt://localhost:7687",
			User:      "neo4j",
			BatchSize: 500,
		},
	}
}

// setDefaults registers every key so that environment overrides apply to keys
// absent from the config file.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("format", d.Format)
	v.SetDefault("precision", d.Precision)
	v.SetDefault("interface_mode", d.InterfaceMode)
	v.SetDefault("classpath", d.Classpath)
	v.SetDefault("strict_resolution", d.StrictResolution)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("rules.path", d.Rules.Path)
	v.SetDefault("neo4j.uri", d.Neo4j.URI)
	v.SetDefault("neo4j.user", d.Neo4j.User)
	v.SetDefault("neo4j.password", d.Neo4j.Password)
	v.SetDefault("neo4j.database", d.Neo4j.Database)
	v.SetDefault("neo4j.batch_size", d.Neo4j.BatchSize)
}

// Load builds the configuration from, in increasing priority: defaults, the
// config file, the .env file of dir and DA_* environment variables. configFile
// overrides the lookup of .da.{yaml,toml,json} in dir. A missing file is not an
// error; an explicit configFile that does not exist is.
func Load(dir, configFile string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, daerrors.New(daerrors.ConfigInvalid, daerrors.StageConfig, "cannot read .env", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".da")
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, daerrors.New(daerrors.ConfigInvalid, daerrors.StageConfig, "cannot read config file", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, daerrors.New(daerrors.ConfigInvalid, daerrors.StageConfig, "cannot decode config", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, daerrors.New(daerrors.ConfigInvalid, daerrors.StageConfig, "invalid configuration", err)
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	c.InterfaceMode = strings.ToLower(strings.TrimSpace(c.InterfaceMode))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	// DA_CLASSPATH may be a single path-list-separated string.
	var cp []string
	for _, entry := range c.Classpath {
		for _, part := range filepath.SplitList(entry) {
			if part = strings.TrimSpace(part); part != "" {
				cp = append(cp, part)
			}
		}
	}
	c.Classpath = cp
}

var validate = validator.New()

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
			e := validationErrs[0]
			return &ConfigError{
				Field:   strings.TrimPrefix(e.Namespace(), "Config."),
				Message: validationMessage(e),
			}
		}
		return err
	}
	return nil
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", e.Param(), e.Value())
	case "gte":
		return "must be at least " + e.Param()
	case "lte":
		return "must be at most " + e.Param()
	case "uri":
		return fmt.Sprintf("%q is not a valid URI", e.Value())
	default:
		return "failed " + e.Tag() + " validation"
	}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
