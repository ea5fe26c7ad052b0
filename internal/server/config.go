package server

import (
	"github.com/sectools/secrules/internal/rulestore"
)

const (
	DefaultAddr   = "127.0.0.1:8080"
	DefaultSocket = "/tmp/secrules.sock"
)

type Config struct {
	HTTP    HTTPConfig
	Control ControlConfig
	Store   StoreConfig

	// DBPath is the sqlite file backing the audit log. ":memory:" keeps
	// it ephemeral; empty disables auditing entirely.
	DBPath string
}

type HTTPConfig struct {
	Addr     string
	CertFile string
	KeyFile  string
}

type ControlConfig struct {
	Socket string
}

type StoreConfig struct {
	MaxRules  int
	ExportCap int
}

func (c *Config) withDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultAddr
	}
	if c.Control.Socket == "" {
		c.Control.Socket = DefaultSocket
	}
	if c.Store.MaxRules <= 0 {
		c.Store.MaxRules = rulestore.DefaultMaxRules
	}
	if c.Store.ExportCap <= 0 {
		c.Store.ExportCap = rulestore.DefaultExportCap
	}
}
