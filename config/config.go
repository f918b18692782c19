// Package config loads the tool configuration from componentgen.yaml, the
// environment and a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/jshufro/componentgen/oracle"
	"github.com/jshufro/componentgen/project"
	"github.com/jshufro/componentgen/script"
	"github.com/spf13/viper"
)

const (
	FileName  = "componentgen"
	EnvPrefix = "COMPONENTGEN"
)

// Oracle overrides or adds the deployment of an oracle kind on a network.
type Oracle struct {
	Type      string `mapstructure:"type"`
	NetworkID uint64 `mapstructure:"network_id"`
	Address   string `mapstructure:"address"`
}

type Config struct {
	Network     string   `mapstructure:"network"`
	Verbose     bool     `mapstructure:"verbose"`
	Parallelism int      `mapstructure:"parallelism"`
	CacheSize   int      `mapstructure:"cache_size"`
	Project     string   `mapstructure:"project"`
	Oracles     []Oracle `mapstructure:"oracles"`
}

// SetDefaults registers the default of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("network", string(script.NetworkLocal))
	v.SetDefault("verbose", false)
	v.SetDefault("parallelism", runtime.NumCPU())
	v.SetDefault("cache_size", project.DefaultCacheSize)
	v.SetDefault("project", ".")
}

// Load reads the configuration into v. An explicit file must exist;
// otherwise componentgen.yaml is looked up in the working directory and is
// optional. Variables from .env are loaded into the environment first.
func Load(v *viper.Viper, file string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if _, err := script.ParseNetwork(c.Network); err != nil {
		return err
	}
	if c.Parallelism < 1 {
		return fmt.Errorf("parallelism must be at least 1, got %d", c.Parallelism)
	}
	for i, o := range c.Oracles {
		if _, err := oracle.ParseKind(o.Type); err != nil {
			return fmt.Errorf("oracles[%d]: %w", i, err)
		}
		if !common.IsHexAddress(o.Address) {
			return fmt.Errorf("oracles[%d]: '%s' is not an address", i, o.Address)
		}
	}
	return nil
}

// ScriptNetwork is the configured deployment network.
func (c *Config) ScriptNetwork() script.Network {
	return script.Network(c.Network)
}

// Registry is the built-in oracle registry with the configured deployments
// applied on top.
func (c *Config) Registry() (*oracle.Registry, error) {
	r := oracle.NewRegistry()
	for i, o := range c.Oracles {
		kind, err := oracle.ParseKind(o.Type)
		if err != nil {
			return nil, fmt.Errorf("oracles[%d]: %w", i, err)
		}
		r.Set(kind, o.NetworkID, common.HexToAddress(o.Address))
	}
	return r, nil
}
