package config

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel zapcore.Level
	Driver   DriverConfig  `mapstructure:"driver"`
	MQTT     MQTTConfig    `mapstructure:"mqtt"`
	Console  ConsoleConfig `mapstructure:"console"`
	Port     uint          `mapstructure:"port"`
	HttpLog  bool          `mapstructure:"http_log"`
}

type DriverConfig struct {
	ConfigPath           string `mapstructure:"config_path"`
	Device               string
	SaveConfiguration    bool   `mapstructure:"save_configuration"`
	SaveIntervalSeconds  uint32 `mapstructure:"save_interval_seconds"`
	NotificationBuffer   int    `mapstructure:"notification_buffer"`
	RequestTimeoutMillis uint32 `mapstructure:"request_timeout_millis"`
	SimulatorDelayMillis uint32 `mapstructure:"simulator_delay_millis"`
}

type ConsoleConfig struct {
	Prompt      string
	HistoryFile string `mapstructure:"history_file"`
}

type MQTTConfig struct {
	Enable    bool
	Host      string
	Port      int
	Username  string
	Password  string
	BaseTopic string `mapstructure:"base_topic"`
}

func (c DriverConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMillis) * time.Millisecond
}

// ClientTimeout bounds how long a caller waits for accept or reject. A
// request may sit behind one in-flight request, so it covers two driver
// calls plus mailbox latency.
func (c DriverConfig) ClientTimeout() time.Duration {
	return 2*c.RequestTimeout() + time.Second
}

// SaveInterval is zero when periodic saving is disabled.
func (c DriverConfig) SaveInterval() time.Duration {
	return time.Duration(c.SaveIntervalSeconds) * time.Second
}

func (c DriverConfig) SimulatorDelay() time.Duration {
	return time.Duration(c.SimulatorDelayMillis) * time.Millisecond
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
