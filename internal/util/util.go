package util

import (
	"github.com/berfenger/zwconsole/internal/config"
	"github.com/berfenger/zwconsole/pkg/zwave"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Driver: config.DriverConfig{
			ConfigPath:           "./config/",
			Device:               zwave.SimulatorDevice,
			SaveConfiguration:    false,
			SaveIntervalSeconds:  0,
			NotificationBuffer:   64,
			RequestTimeoutMillis: 2000,
		},
		MQTT: config.MQTTConfig{
			Enable:    false,
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "zwconsole",
		},
		Console: config.ConsoleConfig{
			Prompt: "> ",
		},
		Port: 8080,
	}
}
