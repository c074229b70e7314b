package config

import (
	"fmt"
	"strings"
	"time"
)

// HTTPConfig is the REST listener of the cart agent.
type HTTPConfig struct {
	Port           int `koanf:"port"`
	MaxHeaderBytes int `koanf:"maxHeaderBytes"`
	Timeout        struct {
		Read       time.Duration `koanf:"read"`
		Write      time.Duration `koanf:"write"`
		Idle       time.Duration `koanf:"idle"`
		ReadHeader time.Duration `koanf:"readHeader"`
	} `koanf:"timeout"`
}

func (c *HTTPConfig) String() string {
	return NewSection("Server").
		Field("port", c.Port).
		Field("maxHeaderBytes", c.MaxHeaderBytes).
		Field("timeout.read", c.Timeout.Read).
		Field("timeout.write", c.Timeout.Write).
		Field("timeout.idle", c.Timeout.Idle).
		Field("timeout.readHeader", c.Timeout.ReadHeader).
		String()
}

func (c *HTTPConfig) Validate() error {
	if err := validatePort("HTTP server", c.Port); err != nil {
		return err
	}
	if c.MaxHeaderBytes < 0 {
		return fmt.Errorf("server.maxHeaderBytes must not be negative")
	}
	for key, d := range map[string]time.Duration{
		"server.timeout.read":       c.Timeout.Read,
		"server.timeout.write":      c.Timeout.Write,
		"server.timeout.idle":       c.Timeout.Idle,
		"server.timeout.readHeader": c.Timeout.ReadHeader,
	} {
		if err := requirePositive(key, d); err != nil {
			return err
		}
	}
	return nil
}

// GrpcServerConfig is the listener carrying the health service.
type GrpcServerConfig struct {
	Port              int  `koanf:"port"`
	ReflectionEnabled bool `koanf:"reflection"`
}

func (c *GrpcServerConfig) String() string {
	return NewSection("gRPC Server").
		Field("port", c.Port).
		Field("reflection", c.ReflectionEnabled).
		String()
}

func (c *GrpcServerConfig) Validate() error {
	return validatePort("gRPC server", c.Port)
}

type LogConfig struct {
	Level string `koanf:"level"`
}

func (c *LogConfig) String() string {
	return NewSection("Log").Field("level", c.Level).String()
}

func (c *LogConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "", "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("unknown log level: %s", c.Level)
	}
}

type PProfConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

func (c *PProfConfig) String() string {
	return NewSection("PProf").
		Field("enabled", c.Enabled).
		Field("address", c.Addr).
		String()
}

func (c *PProfConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if err := requireValue("pprof.addr", c.Addr); err != nil {
		return err
	}
	if !strings.Contains(c.Addr, ":") {
		return fmt.Errorf("pprof address must be host:port, got %q", c.Addr)
	}
	return nil
}

// ShutdownConfig bounds how long the servers get to drain.
type ShutdownConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

func (c *ShutdownConfig) String() string {
	return NewSection("Shutdown").Field("timeout", c.Timeout).String()
}

func (c *ShutdownConfig) Validate() error {
	return requirePositive("shutdown.timeout", c.Timeout)
}

type TelemetryConfig struct {
	Enabled bool         `koanf:"enabled"`
	Traces  TracesConfig `koanf:"traces"`
}

type TracesConfig struct {
	OtlpHttp OtlpHttpConfig `koanf:"otlphttp"`
}

type OtlpHttpConfig struct {
	Endpoint string        `koanf:"endpoint"`
	Insecure bool          `koanf:"insecure"`
	Timeout  time.Duration `koanf:"timeout"`
}

func (c *TelemetryConfig) String() string {
	return NewSection("Telemetry").
		Field("enabled", c.Enabled).
		Field("traces.otlphttp.endpoint", c.Traces.OtlpHttp.Endpoint).
		Field("traces.otlphttp.insecure", c.Traces.OtlpHttp.Insecure).
		Field("traces.otlphttp.timeout", c.Traces.OtlpHttp.Timeout).
		String()
}

// Validate only checks the exporter when tracing is enabled.
func (c *TelemetryConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if err := requireValue("telemetry.traces.otlphttp.endpoint", c.Traces.OtlpHttp.Endpoint); err != nil {
		return err
	}
	return requirePositive("telemetry.traces.otlphttp.timeout", c.Traces.OtlpHttp.Timeout)
}
