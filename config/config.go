package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

const DefaultPath = "./config.jsonc"

// Config is the typed view of the configuration document.
type Config struct {
	Token     string                     `json:"token"`
	Prefix    string                     `json:"prefix"`
	Shards    int                        `json:"shards" validate:"gte=0"`
	OwnerIDs  []string                   `json:"ownerIds"`
	LogLevel  string                     `json:"logLevel"`
	Database  DatabaseConfig             `json:"database"`
	RateLimit RateLimitConfig            `json:"rateLimit"`
	Modules   map[string]json.RawMessage `json:"modules" validate:"required"`
}

type DatabaseConfig struct {
	Driver  string `json:"driver" validate:"oneof=badger postgres json"`
	Path    string `json:"path"`
	ConnStr string `json:"connStr" validate:"required_if=Driver postgres"`
}

type RateLimitConfig struct {
	PerSecond float64 `json:"perSecond" validate:"gt=0"`
	Burst     int     `json:"burst" validate:"gte=1"`
}

// ModuleConfig holds the fields every entry under modules must carry.
// Feature options are decoded by the owning module.
type ModuleConfig struct {
	Enabled bool `json:"enabled"`
}

// Env holds overrides read from the environment. They are applied to the
// typed view only and never written to the file.
type Env struct {
	Token    string `env:"WARDEN_TOKEN"`
	Path     string `env:"WARDEN_CONFIG" envDefault:"./config.jsonc"`
	LogLevel string `env:"WARDEN_LOG_LEVEL"`
}

// LoadEnv reads overrides from the environment.
func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

var structValidator = validator.New()

func (c *Config) applyDefaults() {
	if c.Prefix == "" {
		c.Prefix = "!"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "badger"
	}
	if c.Database.Path == "" && c.Database.Driver != "postgres" {
		if c.Database.Driver == "json" {
			c.Database.Path = "./data.json"
		} else {
			c.Database.Path = "./data"
		}
	}
	if c.RateLimit.PerSecond <= 0 {
		c.RateLimit.PerSecond = 1
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 3
	}
}

func (c *Config) applyEnv(e Env) {
	if e.Token != "" {
		c.Token = e.Token
	}
	if e.LogLevel != "" {
		c.LogLevel = e.LogLevel
	}
}

func (c *Config) validate() error {
	if err := structValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fieldError(verrs[0])
		}
		return err
	}
	if strings.ContainsAny(c.Prefix, " \t\n") {
		return fmt.Errorf("prefix %q contains whitespace", c.Prefix)
	}
	for name, raw := range c.Modules {
		var mc ModuleConfig
		if err := json.Unmarshal(raw, &mc); err != nil {
			return fmt.Errorf("module %q: %w", name, err)
		}
	}
	return nil
}

func fieldError(fe validator.FieldError) error {
	switch fe.Namespace() {
	case "Config.Modules":
		return errors.New("missing modules section")
	case "Config.Database.Driver":
		return fmt.Errorf("unknown database driver %q", fe.Value())
	case "Config.Database.ConnStr":
		return errors.New("postgres driver needs database.connStr")
	case "Config.Shards":
		return fmt.Errorf("shards must not be negative, got %v", fe.Value())
	default:
		return fmt.Errorf("%v: failed %q check", fe.Namespace(), fe.Tag())
	}
}

func (c Config) clone() Config {
	out := c
	out.OwnerIDs = append([]string(nil), c.OwnerIDs...)
	out.Modules = make(map[string]json.RawMessage, len(c.Modules))
	for k, v := range c.Modules {
		out.Modules[k] = v
	}
	return out
}

// IsOwner reports whether uid is listed in ownerIds.
func (c Config) IsOwner(uid string) bool {
	for _, id := range c.OwnerIDs {
		if id == uid {
			return true
		}
	}
	return false
}
