// Package config loads the HCL configuration of a send-data host.
//
//	serial {
//	  port = "/dev/ttyACM0"
//	  baud = 115200
//	}
//
//	driver {
//	  timeout             = "10s"
//	  ack_timeout         = "1600ms"
//	  max_retransmissions = 3
//	}
//
//	log {
//	  level = "info"
//	}
//
//	metrics {
//	  listen = ":9100"
//	}
//
// Every block and attribute is optional; omitted values keep their
// defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/pion/logging"

	"github.com/backkem/zwave/pkg/driver"
	"github.com/backkem/zwave/pkg/transport"
)

// Defaults.
const (
	DefaultBaud     = 115200
	DefaultLogLevel = "info"
)

// Errors returned by the config package.
var (
	ErrInvalidBaud     = errors.New("config: baud must be positive")
	ErrInvalidDuration = errors.New("config: invalid duration")
	ErrInvalidLevel    = errors.New("config: unknown log level")
	ErrInvalidRetries  = errors.New("config: max_retransmissions must not be negative")
)

type Config struct {
	Serial  *SerialSchema  `hcl:"serial,block"`
	Driver  *DriverSchema  `hcl:"driver,block"`
	Log     *LogSchema     `hcl:"log,block"`
	Metrics *MetricsSchema `hcl:"metrics,block"`
}

type SerialSchema struct {
	Port string `hcl:"port,optional"`
	Baud int    `hcl:"baud,optional"`
}

type DriverSchema struct {
	Timeout            string `hcl:"timeout,optional"`
	AckTimeout         string `hcl:"ack_timeout,optional"`
	MaxRetransmissions *int   `hcl:"max_retransmissions,optional"`
}

type LogSchema struct {
	Level string `hcl:"level,optional"`
}

type MetricsSchema struct {
	Listen string `hcl:"listen,optional"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	retries := transport.DefaultMaxRetransmissions
	return &Config{
		Serial: &SerialSchema{Baud: DefaultBaud},
		Driver: &DriverSchema{
			Timeout:            driver.DefaultTimeout.String(),
			AckTimeout:         transport.DefaultAckTimeout.String(),
			MaxRetransmissions: &retries,
		},
		Log:     &LogSchema{Level: DefaultLogLevel},
		Metrics: &MetricsSchema{},
	}
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, path)
}

// Parse decodes src on top of Default and validates the result.
func Parse(src []byte, filename string) (*Config, error) {
	file, diag := hclsyntax.ParseConfig(src, filename, hcl.Pos{Line: 1, Column: 1})
	if diag.HasErrors() {
		return nil, diag
	}

	c := &Config{}
	if diag := gohcl.DecodeBody(file.Body, nil, c); diag.HasErrors() {
		return nil, diag
	}
	c.fill(Default())

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// fill copies every value c leaves unset from d.
func (c *Config) fill(d *Config) {
	if c.Serial == nil {
		c.Serial = &SerialSchema{}
	}
	if c.Serial.Baud == 0 {
		c.Serial.Baud = d.Serial.Baud
	}

	if c.Driver == nil {
		c.Driver = &DriverSchema{}
	}
	if c.Driver.Timeout == "" {
		c.Driver.Timeout = d.Driver.Timeout
	}
	if c.Driver.AckTimeout == "" {
		c.Driver.AckTimeout = d.Driver.AckTimeout
	}
	if c.Driver.MaxRetransmissions == nil {
		c.Driver.MaxRetransmissions = d.Driver.MaxRetransmissions
	}

	if c.Log == nil {
		c.Log = &LogSchema{}
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}

	if c.Metrics == nil {
		c.Metrics = &MetricsSchema{}
	}
}

// Validate checks every value. The port may be empty; callers that need
// one check it themselves.
func (c *Config) Validate() error {
	if c.Serial.Baud <= 0 {
		return ErrInvalidBaud
	}
	if _, err := c.DriverTimeout(); err != nil {
		return err
	}
	if _, err := c.AckTimeout(); err != nil {
		return err
	}
	if c.Driver.MaxRetransmissions != nil && *c.Driver.MaxRetransmissions < 0 {
		return ErrInvalidRetries
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// DriverTimeout returns the per-exchange timeout.
func (c *Config) DriverTimeout() (time.Duration, error) {
	return parseDuration("timeout", c.Driver.Timeout)
}

// AckTimeout returns the link-layer ACK timeout.
func (c *Config) AckTimeout() (time.Duration, error) {
	return parseDuration("ack_timeout", c.Driver.AckTimeout)
}

// Retransmissions returns the link-layer retry budget for
// transport.SerialConfig, where a negative value disables retries.
func (c *Config) Retransmissions() int {
	if c.Driver.MaxRetransmissions == nil {
		return transport.DefaultMaxRetransmissions
	}
	if *c.Driver.MaxRetransmissions == 0 {
		return -1
	}
	return *c.Driver.MaxRetransmissions
}

func parseDuration(name, val string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(val))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %s = %q", ErrInvalidDuration, name, val)
	}
	return d, nil
}

// LogLevel maps the configured level name to a pion log level.
func (c *Config) LogLevel() (logging.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "disabled", "off":
		return logging.LogLevelDisabled, nil
	case "error":
		return logging.LogLevelError, nil
	case "warn", "warning":
		return logging.LogLevelWarn, nil
	case "info":
		return logging.LogLevelInfo, nil
	case "debug":
		return logging.LogLevelDebug, nil
	case "trace":
		return logging.LogLevelTrace, nil
	default:
		return logging.LogLevelDisabled, fmt.Errorf("%w: %q", ErrInvalidLevel, c.Log.Level)
	}
}

// LoggerFactory returns a pion logger factory at the configured level.
func (c *Config) LoggerFactory() (*logging.DefaultLoggerFactory, error) {
	level, err := c.LogLevel()
	if err != nil {
		return nil, err
	}
	f := logging.NewDefaultLoggerFactory()
	f.DefaultLogLevel = level
	return f, nil
}

// Encode renders c as HCL.
func (c *Config) Encode() []byte {
	f := hclwrite.NewEmptyFile()
	gohcl.EncodeIntoBody(c, f.Body())
	return f.Bytes()
}
