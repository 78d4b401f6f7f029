// Package config provides bridge configuration loaded from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/morezero/frame-bridge/pkg/commsutil"
	"github.com/morezero/frame-bridge/pkg/semver"
)

const logPrefix = "config:LoadConfig"

// Config holds frame-bridge configuration.
type Config struct {
	// COMMS: connect to standalone NATS at COMMSURL.
	COMMSURL  string `envconfig:"COMMS_URL" default:"nats://127.0.0.1:4222"`
	COMMSName string `envconfig:"SERVICE_NAME" default:"frame-bridge"`

	// Bridge
	LocalOrigin           string        `envconfig:"BRIDGE_LOCAL_ORIGIN" default:"bridge://frame"`
	TargetOrigin          string        `envconfig:"BRIDGE_TARGET_ORIGIN" default:"*"`
	Timeout               time.Duration `envconfig:"BRIDGE_TIMEOUT" default:"60s"`
	RequestSubject        string        `envconfig:"BRIDGE_REQUEST_SUBJECT"`
	ReplySubject          string        `envconfig:"BRIDGE_REPLY_SUBJECT"`
	EventSubject          string        `envconfig:"BRIDGE_EVENT_SUBJECT"`
	HostVersionConstraint string        `envconfig:"BRIDGE_HOST_VERSION"`

	// Database (optional; empty disables the call journal)
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	RunMigrations bool   `envconfig:"RUN_MIGRATIONS" default:"false"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"migrations"`

	// HTTP endpoint (BRIDGE_HTTP_ADDR preferred, e.g. "0.0.0.0:8080")
	HTTPAddr           string        `envconfig:"BRIDGE_HTTP_ADDR"`
	HTTPPort           int           `envconfig:"HTTP_PORT" default:"8080"`
	HealthCheckTimeout time.Duration `envconfig:"HEALTH_CHECK_TIMEOUT" default:"5s"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Development host
	HostOrigin    string   `envconfig:"HOST_ORIGIN" default:"bridge://host"`
	HostChainID   string   `envconfig:"HOST_CHAIN_ID" default:"0x1"`
	HostNetworkID string   `envconfig:"HOST_NETWORK_ID" default:"1"`
	HostAccounts  []string `envconfig:"HOST_ACCOUNTS"`
	HostVersion   string   `envconfig:"HOST_VERSION" default:"1.0.0"`
	// HostFixtureFile is a JSON wallet fixture layered over the HOST_* values.
	HostFixtureFile string `envconfig:"HOST_FIXTURE_FILE"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	c.applySubjectDefaults()
	return &c, nil
}

// applySubjectDefaults fills unset or blank subjects with the COMMS defaults.
func (c *Config) applySubjectDefaults() {
	if c.RequestSubject == "" {
		c.RequestSubject = commsutil.SubjectRequests
	}
	if c.ReplySubject == "" {
		c.ReplySubject = commsutil.SubjectReplies
	}
	if c.EventSubject == "" {
		c.EventSubject = commsutil.SubjectEvents
	}
}

// JournalEnabled reports whether calls are journaled to the database.
func (c *Config) JournalEnabled() bool {
	return c.DatabaseURL != ""
}

// ListenAddr returns the HTTP listen address.
func (c *Config) ListenAddr() string {
	if c.HTTPAddr != "" {
		return c.HTTPAddr
	}
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// ValidateForServe checks required config when running the frame-side bridge.
func (c *Config) ValidateForServe() error {
	if err := c.validateComms(); err != nil {
		return err
	}
	if c.LocalOrigin == "" {
		return fmt.Errorf("%s - BRIDGE_LOCAL_ORIGIN is required for serve", logPrefix)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%s - BRIDGE_TIMEOUT must be positive", logPrefix)
	}
	if c.HealthCheckTimeout <= 0 {
		return fmt.Errorf("%s - HEALTH_CHECK_TIMEOUT must be positive", logPrefix)
	}
	if _, err := semver.ParseConstraint(c.HostVersionConstraint); err != nil {
		return fmt.Errorf("%s - BRIDGE_HOST_VERSION: %w", logPrefix, err)
	}
	return nil
}

// ValidateForHost checks required config when running the development host.
func (c *Config) ValidateForHost() error {
	if err := c.validateComms(); err != nil {
		return err
	}
	if c.HostOrigin == "" {
		return fmt.Errorf("%s - HOST_ORIGIN is required for host", logPrefix)
	}
	if c.HostChainID == "" {
		return fmt.Errorf("%s - HOST_CHAIN_ID is required for host", logPrefix)
	}
	if c.HostVersion != "" && !semver.IsExactVersion(c.HostVersion) {
		return fmt.Errorf("%s - HOST_VERSION %q is not an exact version", logPrefix, c.HostVersion)
	}
	return nil
}

// ValidateForDB checks required config when running DB-dependent commands (migrate, clear, ensure-db).
func (c *Config) ValidateForDB() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s - DATABASE_URL is required", logPrefix)
	}
	return nil
}

func (c *Config) validateComms() error {
	if c.COMMSURL == "" {
		return fmt.Errorf("%s - COMMS_URL is required", logPrefix)
	}
	if c.RequestSubject == "" || c.ReplySubject == "" {
		return fmt.Errorf("%s - BRIDGE_REQUEST_SUBJECT and BRIDGE_REPLY_SUBJECT are required", logPrefix)
	}
	if c.RequestSubject == c.ReplySubject {
		return fmt.Errorf("%s - BRIDGE_REQUEST_SUBJECT and BRIDGE_REPLY_SUBJECT must differ", logPrefix)
	}
	return nil
}
