package main

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jpl-au/ldt/source"
)

type config struct {
	Config   string        `mapstructure:"config"`
	Registry string        `mapstructure:"registry"`
	Parser   string        `mapstructure:"parser"`
	Source   source.Config `mapstructure:"source"`
	Log      logConfig     `mapstructure:"log"`
}

type logConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// defaults lists every key so that LDT_* environment variables resolve
// even when no config file mentions them.
var defaults = map[string]any{
	"registry":                 "",
	"parser":                   "",
	"log.level":                "info",
	"log.format":               "text",
	"log.file":                 "",
	"source.provider":          source.ProviderFile,
	"source.dir":               ".",
	"source.bucket":            "",
	"source.region":            "",
	"source.endpoint":          "",
	"source.path_style":        false,
	"source.access_key":        "",
	"source.secret_key":        "",
	"source.account_url":       "",
	"source.container":         "",
	"source.connection_string": "",
	"source.cache_dir":         "",
	"source.cache_ttl":         time.Hour,
}

// flagKeys maps persistent flags to config keys.
var flagKeys = map[string]string{
	"registry":   "registry",
	"parser":     "parser",
	"log-level":  "log.level",
	"log-format": "log.format",
	"log-file":   "log.file",
	"source":     "source.provider",
	"source-dir": "source.dir",
	"bucket":     "source.bucket",
	"cache-dir":  "source.cache_dir",
}

// loadConfig merges, lowest first: defaults, ldtctl.yaml, LDT_* environment
// variables and command line flags.
func loadConfig(cmd *cobra.Command) (*config, error) {
	flags := cmd.Flags()
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	v.SetEnvPrefix("LDT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	path, _ := flags.GetString("config")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else {
		v.SetConfigName("ldtctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, err
			}
		}
	}

	cfg := &config{Config: v.ConfigFileUsed()}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
