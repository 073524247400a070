package config

import (
	"log"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/DeltaHotelKilo/DWS7612-Logger/pkg/pathing"
)

var ActiveLoggerConfig *LoggerConfig

func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		SerialDevice:       "/dev/ttyUSB0",
		DeviceName:         "",
		CycleSeconds:       60,
		ReadTimeoutSeconds: 3,
		PersistenceEnabled: true,
		ApiListen:          "",
		Registers: []RegisterConfig{
			{Obis: "1-0:1.8.0", EntityID: 2},
			{Obis: "1-0:2.8.0", EntityID: 3},
		},
	}
}

func LoadLoggerConfig() error {
	configPath := filepath.Join(pathing.GetConfigDir(), "logger.toml")

	// Create default if not exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultLoggerConfig()
		cfgFile, err := os.Create(configPath)
		if err != nil {
			return err
		}
		defer cfgFile.Close()
		if err := toml.NewEncoder(cfgFile).Encode(cfg); err != nil {
			log.Printf("Failed to write default config to %s: %v", configPath, err)
		}
		ActiveLoggerConfig = cfg
		return nil
	}

	// Load existing config
	var config LoggerConfig
	_, err := toml.DecodeFile(configPath, &config)
	if err != nil {
		return err
	}
	if config.CycleSeconds < 2 {
		config.CycleSeconds = 60
	}
	if config.ReadTimeoutSeconds < 1 {
		config.ReadTimeoutSeconds = 3
	}
	ActiveLoggerConfig = &config
	return nil
}
