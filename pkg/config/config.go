// Package config loads the ground station configuration from a YAML file,
// then applies environment-variable overrides on top. Every field has a
// sensible default so an empty file is a runnable development config.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the process-wide configuration.
type Config struct {
	// Speech service endpoints.
	SpeechTranscriptionAPI      string `yaml:"speech_transcription_api" env:"GS_SPEECH_TRANSCRIPTION_API"`
	SpeechTranscriptionAPIToken string `yaml:"speech_transcription_api_token" env:"GS_SPEECH_TRANSCRIPTION_API_TOKEN"`
	SpeechSynthesisAPI          string `yaml:"speech_synthesis_api" env:"GS_SPEECH_SYNTHESIS_API"`
	SpeechSynthesisAPIToken     string `yaml:"speech_synthesis_api_token" env:"GS_SPEECH_SYNTHESIS_API_TOKEN"`

	ClientID               string `yaml:"client_id" env:"GS_CLIENT_ID"`
	MaxCommandInputSeconds int    `yaml:"max_command_input_seconds" env:"GS_MAX_COMMAND_INPUT_SECONDS"`
	MaxBufferSize          int    `yaml:"max_buffer_size" env:"GS_MAX_BUFFER_SIZE"`

	// MQTT broker.
	MQTTServerHost string `yaml:"mqtt_server_host" env:"GS_MQTT_SERVER_HOST"`
	MQTTServerPort int    `yaml:"mqtt_server_port" env:"GS_MQTT_SERVER_PORT"`
	BroadcastTopic string `yaml:"broadcast_topic" env:"GS_BROADCAST_TOPIC"`

	// Topic overrides. When empty the computed defaults apply.
	BaseTopicOverwrite   string `yaml:"base_topic_overwrite" env:"GS_BASE_TOPIC_OVERWRITE"`
	InputTopicOverwrite  string `yaml:"input_topic_overwrite" env:"GS_INPUT_TOPIC_OVERWRITE"`
	OutputTopicOverwrite string `yaml:"output_topic_overwrite" env:"GS_OUTPUT_TOPIC_OVERWRITE"`

	// HTTP / WebSocket surface.
	HTTPHost       string `yaml:"http_host" env:"GS_HTTP_HOST"`
	HTTPPort       int    `yaml:"http_port" env:"GS_HTTP_PORT"`
	APIToken       string `yaml:"api_token" env:"GS_API_TOKEN"`
	MaxConnections int    `yaml:"max_connections" env:"GS_MAX_CONNECTIONS"`

	// Broker reconnect backoff.
	ReconnectInitialDelaySeconds int `yaml:"reconnect_initial_delay_seconds" env:"GS_RECONNECT_INITIAL_DELAY_SECONDS"`
	ReconnectMaxDelaySeconds     int `yaml:"reconnect_max_delay_seconds" env:"GS_RECONNECT_MAX_DELAY_SECONDS"`

	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
}

func defaults() Config {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "ground-station"
	}
	return Config{
		SpeechTranscriptionAPI:       "http://localhost:8000/transcribe",
		SpeechSynthesisAPI:           "http://localhost:8080/synthesizeSpeech",
		ClientID:                     hostname,
		MaxCommandInputSeconds:       30,
		MaxBufferSize:                1024 * 1024,
		MQTTServerHost:               "localhost",
		MQTTServerPort:               1883,
		BroadcastTopic:               "assistant/ground_station/broadcast",
		HTTPHost:                     "0.0.0.0",
		HTTPPort:                     8000,
		MaxConnections:               50,
		ReconnectInitialDelaySeconds: 5,
		ReconnectMaxDelaySeconds:     60,
		LogLevel:                     "info",
	}
}

// Load reads the YAML file at path, applies env overrides and validates.
// A missing file is an error; pass LoadDefault for a file-less config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault builds a config from defaults plus env overrides only.
func LoadDefault() (*Config, error) {
	cfg := defaults()
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.MaxCommandInputSeconds <= 0 {
		return fmt.Errorf("max_command_input_seconds must be positive, got %d", c.MaxCommandInputSeconds)
	}
	if c.MaxBufferSize <= 0 {
		return fmt.Errorf("max_buffer_size must be positive, got %d", c.MaxBufferSize)
	}
	if c.MQTTServerPort <= 0 || c.MQTTServerPort > 65535 {
		return fmt.Errorf("mqtt_server_port out of range: %d", c.MQTTServerPort)
	}
	if c.BroadcastTopic == "" {
		return fmt.Errorf("broadcast_topic must not be empty")
	}
	if c.ReconnectInitialDelaySeconds <= 0 || c.ReconnectMaxDelaySeconds < c.ReconnectInitialDelaySeconds {
		return fmt.Errorf("invalid reconnect delays: initial=%d max=%d",
			c.ReconnectInitialDelaySeconds, c.ReconnectMaxDelaySeconds)
	}
	return nil
}

// BaseTopic is the per-instance topic prefix on the broker.
func (c *Config) BaseTopic() string {
	if c.BaseTopicOverwrite != "" {
		return c.BaseTopicOverwrite
	}
	return fmt.Sprintf("assistant/ground_station/all/%s", c.ClientID)
}

// InputTopic carries every outbound ClientRequest, regardless of origin session.
func (c *Config) InputTopic() string {
	if c.InputTopicOverwrite != "" {
		return c.InputTopicOverwrite
	}
	return c.BaseTopic() + "/input"
}

// OutputTopic is this instance's own output topic.
func (c *Config) OutputTopic() string {
	if c.OutputTopicOverwrite != "" {
		return c.OutputTopicOverwrite
	}
	return c.BaseTopic() + "/output"
}

func (c *Config) ReconnectInitialDelay() time.Duration {
	return time.Duration(c.ReconnectInitialDelaySeconds) * time.Second
}

func (c *Config) ReconnectMaxDelay() time.Duration {
	return time.Duration(c.ReconnectMaxDelaySeconds) * time.Second
}
