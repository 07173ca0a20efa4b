package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/stockpile/internal/flagx"
	"github.com/dmitrijs2005/stockpile/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape. Durations accept "15s" style strings or
// integer nanoseconds. Absent or zero fields leave the current value alone.
type FileConfig struct {
	EndpointAddrGRPC string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	EndpointAddrHTTP string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	DatabaseDSN      string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey        string         `json:"secret_key" yaml:"secret_key"`
	SessionBackend   string         `json:"session_backend" yaml:"session_backend"`
	RedisAddr        string         `json:"redis_addr" yaml:"redis_addr"`
	RedisPassword    string         `json:"redis_password" yaml:"redis_password"`
	RedisDB          int            `json:"redis_db" yaml:"redis_db"`
	RedisDialTimeout timex.Duration `json:"redis_dial_timeout" yaml:"redis_dial_timeout"`
	PurgeInterval    timex.Duration `json:"purge_interval" yaml:"purge_interval"`
	LogLevel         string         `json:"log_level" yaml:"log_level"`
	LogFormat        string         `json:"log_format" yaml:"log_format"`
}

// parseFile overlays the file named by -c/-config, if any. The format is
// picked by extension: .yaml/.yml are YAML, everything else JSON.
func parseFile(config *Config) error {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	fc.apply(config)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (fc *FileConfig) apply(c *Config) {
	setString(&c.EndpointAddrGRPC, fc.EndpointAddrGRPC)
	setString(&c.EndpointAddrHTTP, fc.EndpointAddrHTTP)
	setString(&c.DatabaseDSN, fc.DatabaseDSN)
	setString(&c.SecretKey, fc.SecretKey)
	setString(&c.SessionBackend, fc.SessionBackend)
	setString(&c.RedisAddr, fc.RedisAddr)
	setString(&c.RedisPassword, fc.RedisPassword)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.LogFormat, fc.LogFormat)

	if fc.RedisDB != 0 {
		c.RedisDB = fc.RedisDB
	}
	if fc.RedisDialTimeout.Duration != 0 {
		c.RedisDialTimeout = fc.RedisDialTimeout.Duration
	}
	if fc.PurgeInterval.Duration != 0 {
		c.PurgeInterval = fc.PurgeInterval.Duration
	}
}
