package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/c360/moodlink/emotion"
	"github.com/c360/moodlink/errors"
	"github.com/c360/moodlink/link"
)

// Roles.
const (
	RoleReceiver = "receiver"
	RoleSender   = "sender"
)

// Transports.
const (
	TransportTCP       = "tcp"
	TransportWebSocket = "websocket"
)

// UI sinks.
const (
	SinkLog  = "log"
	SinkNATS = "nats"
	SinkBoth = "both"
)

// Config is the complete application configuration.
type Config struct {
	Role       string           `yaml:"role" json:"role"`
	Link       LinkConfig       `yaml:"link" json:"link"`
	Classifier ClassifierConfig `yaml:"classifier" json:"classifier"`
	UI         UIConfig         `yaml:"ui" json:"ui"`
	NATS       NATSConfig       `yaml:"nats" json:"nats"`
	Sensor     SensorConfig     `yaml:"sensor" json:"sensor"`
	Metrics    MetricsConfig    `yaml:"metrics" json:"metrics"`
}

// LinkConfig configures the point-to-point link.
type LinkConfig struct {
	Transport     string        `yaml:"transport" json:"transport"`
	ListenAddress string        `yaml:"listen_address" json:"listen_address"`
	PeerAddress   string        `yaml:"peer_address" json:"peer_address"`
	PairedPeers   []link.Peer   `yaml:"paired_peers" json:"paired_peers"`
	ServiceUUID   string        `yaml:"service_uuid" json:"service_uuid"`
	MaxRetries    int           `yaml:"max_retries" json:"max_retries"`
	RetryDelay    time.Duration `yaml:"retry_delay" json:"retry_delay"`
	DialTimeout   time.Duration `yaml:"dial_timeout" json:"dial_timeout"`
	AutoReconnect bool          `yaml:"auto_reconnect" json:"auto_reconnect"`
	ReadPoll      time.Duration `yaml:"read_poll" json:"read_poll"`

	// Permitted is the availability gate. When false every start is denied.
	Permitted bool `yaml:"permitted" json:"permitted"`
}

// ClassifierConfig selects the classification mode.
type ClassifierConfig struct {
	Mode       string `yaml:"mode" json:"mode"`
	WindowSize int    `yaml:"window_size" json:"window_size"`
}

// UIConfig configures update delivery.
type UIConfig struct {
	Sink      string `yaml:"sink" json:"sink"`
	QueueSize int    `yaml:"queue_size" json:"queue_size"`
	Subject   string `yaml:"subject" json:"subject"`
}

// NATSConfig configures the NATS connection used by the nats sink.
type NATSConfig struct {
	URL     string        `yaml:"url" json:"url"`
	Name    string        `yaml:"name" json:"name"`
	Token   string        `yaml:"token" json:"token,omitempty"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// ConnectAttempts bounds the initial connect; the delay between attempts doubles.
	ConnectAttempts int `yaml:"connect_attempts" json:"connect_attempts"`
}

// SensorConfig configures the simulated sensor used by the sender.
type SensorConfig struct {
	Interval         time.Duration `yaml:"interval" json:"interval"`
	RestingHeartRate float64       `yaml:"resting_heart_rate" json:"resting_heart_rate"`
	Agitation        float64       `yaml:"agitation" json:"agitation"`
	Limit            int           `yaml:"limit" json:"limit"`
	Seed             int64         `yaml:"seed" json:"seed"`
}

// MetricsConfig configures the metrics and health server.
type MetricsConfig struct {
	Port int `yaml:"port" json:"port"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Role: RoleReceiver,
		Link: LinkConfig{
			Transport:     TransportTCP,
			ListenAddress: "127.0.0.1:7070",
			ServiceUUID:   link.DefaultServiceUUID.String(),
			MaxRetries:    link.DefaultMaxRetries,
			RetryDelay:    link.DefaultRetryDelay,
			DialTimeout:   link.DefaultDialTimeout,
			AutoReconnect: true,
			Permitted:     true,
			ReadPoll:      500 * time.Millisecond,
		},
		Classifier: ClassifierConfig{
			Mode:       string(emotion.ModeWindowed),
			WindowSize: 5,
		},
		UI: UIConfig{
			Sink:      SinkLog,
			QueueSize: 64,
			Subject:   "moodlink.ui",
		},
		NATS: NATSConfig{
			URL:             "nats://127.0.0.1:4222",
			Name:            "moodlink",
			Timeout:         5 * time.Second,
			ConnectAttempts: 3,
		},
		Sensor: SensorConfig{
			Interval:         time.Second,
			RestingHeartRate: 72,
			Agitation:        0.2,
			Seed:             1,
		},
	}
}

// Validate checks cross-field constraints and normalizes enumerations to lower case.
func (c *Config) Validate() error {
	c.Role = strings.ToLower(strings.TrimSpace(c.Role))
	c.Link.Transport = strings.ToLower(strings.TrimSpace(c.Link.Transport))
	c.Classifier.Mode = strings.ToLower(strings.TrimSpace(c.Classifier.Mode))
	c.UI.Sink = strings.ToLower(strings.TrimSpace(c.UI.Sink))

	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Role != RoleReceiver && c.Role != RoleSender {
		add("role %q must be %q or %q", c.Role, RoleReceiver, RoleSender)
	}
	if c.Link.Transport != TransportTCP && c.Link.Transport != TransportWebSocket {
		add("link.transport %q must be %q or %q", c.Link.Transport, TransportTCP, TransportWebSocket)
	}
	if c.Role == RoleReceiver && c.Link.ListenAddress == "" {
		add("link.listen_address is required for the receiver")
	}
	if c.Role == RoleSender && c.Link.PeerAddress == "" && len(c.Link.PairedPeers) == 0 {
		add("link.peer_address or link.paired_peers is required for the sender")
	}
	for i, p := range c.Link.PairedPeers {
		if p.Address == "" {
			add("link.paired_peers[%d].address is required", i)
		}
	}
	if _, err := uuid.Parse(c.Link.ServiceUUID); err != nil {
		add("link.service_uuid %q is not a UUID", c.Link.ServiceUUID)
	}
	if c.Link.MaxRetries < 1 {
		add("link.max_retries must be at least 1")
	}
	if c.Link.RetryDelay < 0 {
		add("link.retry_delay cannot be negative")
	}
	if c.Link.ReadPoll <= 0 {
		add("link.read_poll must be positive")
	}
	if _, err := emotion.New(emotion.Mode(c.Classifier.Mode)); err != nil {
		add("classifier.mode %q is not supported", c.Classifier.Mode)
	}
	if c.Classifier.WindowSize < 1 {
		add("classifier.window_size must be at least 1")
	}
	switch c.UI.Sink {
	case SinkLog:
	case SinkNATS, SinkBoth:
		if c.NATS.URL == "" {
			add("nats.url is required for ui.sink %q", c.UI.Sink)
		}
		if c.UI.Subject == "" {
			add("ui.subject is required for ui.sink %q", c.UI.Sink)
		}
	default:
		add("ui.sink %q must be one of %q, %q, %q", c.UI.Sink, SinkLog, SinkNATS, SinkBoth)
	}
	if c.Role == RoleSender && c.Sensor.Interval <= 0 {
		add("sensor.interval must be positive")
	}
	if c.Sensor.Agitation < 0 || c.Sensor.Agitation > 1 {
		add("sensor.agitation must be within [0,1]")
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		add("metrics.port %d is out of range", c.Metrics.Port)
	}

	if len(problems) > 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrInvalidConfig, strings.Join(problems, "; ")),
			"Config", "Validate", "validate configuration")
	}
	return nil
}

// ServiceID returns the parsed service UUID. Call after Validate.
func (c *Config) ServiceID() uuid.UUID {
	id, err := uuid.Parse(c.Link.ServiceUUID)
	if err != nil {
		return link.DefaultServiceUUID
	}
	return id
}

// String renders the configuration as YAML with secrets removed.
func (c *Config) String() string {
	redacted := *c
	if redacted.NATS.Token != "" {
		redacted.NATS.Token = "REDACTED"
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&redacted); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return buf.String()
}

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
	lookupEnv  func(string) (string, bool)
}

// NewLoader creates a loader with validation enabled.
func NewLoader() *Loader {
	return &Loader{
		validation: true,
		envPrefix:  "MOODLINK",
		lookupEnv:  os.LookupEnv,
	}
}

// AddLayer adds a configuration file layer
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads defaults overridden by a single file.
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load applies defaults, every layer in order, then environment overrides.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	for _, path := range l.layers {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load", fmt.Sprintf("read %s", path))
		}
		if err := Parse(data, cfg); err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load", fmt.Sprintf("parse %s", path))
		}
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Parse decodes YAML or JSON into cfg, overriding only the keys present.
// Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
	}
	return nil
}

func (l *Loader) applyEnvOverrides(cfg *Config) error {
	env := func(key string) (string, bool) {
		v, ok := l.lookupEnv(l.envPrefix + "_" + key)
		return v, ok && v != ""
	}

	if v, ok := env("ROLE"); ok {
		cfg.Role = v
	}
	if v, ok := env("LINK_TRANSPORT"); ok {
		cfg.Link.Transport = v
	}
	if v, ok := env("LINK_LISTEN"); ok {
		cfg.Link.ListenAddress = v
	}
	if v, ok := env("LINK_PEER"); ok {
		cfg.Link.PeerAddress = v
	}
	if v, ok := env("CLASSIFIER_MODE"); ok {
		cfg.Classifier.Mode = v
	}
	if v, ok := env("UI_SINK"); ok {
		cfg.UI.Sink = v
	}
	if v, ok := env("NATS_URL"); ok {
		cfg.NATS.URL = v
	}
	if v, ok := env("NATS_TOKEN"); ok {
		cfg.NATS.Token = v
	}
	if v, ok := env("METRICS_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.WrapInvalid(fmt.Errorf("%w: %s_METRICS_PORT=%q", errors.ErrInvalidConfig, l.envPrefix, v),
				"Loader", "applyEnvOverrides", "parse metrics port")
		}
		cfg.Metrics.Port = port
	}
	return nil
}
