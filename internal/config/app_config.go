package config

import (
	"time"
)

type AppConfig struct {
	Port           int           `yaml:"port"`
	DefaultTimeout time.Duration `yaml:"default_timeout"`
	Pretty         bool          `yaml:"pretty" env-default:"false"`
}
