package api

import "time"

// Config configures the Bayeux HTTP server.
type Config struct {
	// Port is the HTTP port for the Bayeux endpoints.
	// Default: 8080
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	// BasePath is the path prefix shared by all four endpoints unless a
	// per-endpoint base overrides it. Default: "/"
	BasePath string `mapstructure:"base_path" yaml:"base_path"`

	// HandshakeBasePath, SubscribeBasePath, ConnectBasePath and
	// DisconnectBasePath override BasePath for their endpoint when set.
	HandshakeBasePath  string `mapstructure:"handshake_base_path" yaml:"handshake_base_path"`
	SubscribeBasePath  string `mapstructure:"subscribe_base_path" yaml:"subscribe_base_path"`
	ConnectBasePath    string `mapstructure:"connect_base_path" yaml:"connect_base_path"`
	DisconnectBasePath string `mapstructure:"disconnect_base_path" yaml:"disconnect_base_path"`

	// ReadTimeout bounds reading the entire request, including the body.
	// Default: 10s
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout bounds writing the response. It must exceed the
	// long-poll timeout or parked connects are cut off mid-wait.
	// Default: 30s
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout bounds keep-alive waits between requests.
	// Default: 60s
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

func (c *Config) applyDefaults() {
	if c.Port <= 0 {
		c.Port = 8080
	}
	if c.BasePath == "" {
		c.BasePath = "/"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
}
