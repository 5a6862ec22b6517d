/*
 * This file is part of Dienas (https://github.com/dienaslabs/dienas).
 * Copyright (C) 2025 Dienas Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the Dienas hub. It is loaded once at
// process start and treated as read-only afterwards; provider code receives
// the values it needs explicitly and never reads ambient state.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Providers ProvidersConfig
	Audio     AudioConfig
	LocalSim  LocalSimConfig
	OnDevice  OnDeviceConfig
	Logging   LoggingConfig
	NATS      NATSConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	UploadDir    string
	SessionTTL   time.Duration
}

// DatabaseConfig holds SQLite configuration
type DatabaseConfig struct {
	Path string
}

// ProvidersConfig holds speech-to-text provider credentials and ordering
type ProvidersConfig struct {
	AssemblyAIKey  string
	OpenAIKey      string
	GoogleKey      string
	AzureKey       string
	AzureRegion    string // unused until the Azure wire client lands; loaded so deployments can set it now
	Priority       []string // provider ids, highest priority first
	Language       string   // default language hint, e.g. "lv"
	PollInterval   time.Duration
	MaxPollRetries int
}

// AudioConfig holds quality-analysis and admission thresholds
type AudioConfig struct {
	// LowQualityBytes and HighQualityBytes bound the medium tier.
	LowQualityBytes  int64
	HighQualityBytes int64
	MinDuration      time.Duration
	MaxDuration      time.Duration
	MaxFileSize      int64
}

// LocalSimConfig holds local-simulation (mock provider) settings
type LocalSimConfig struct {
	Enabled       bool
	Delay         time.Duration
	MinConfidence float64
	MaxConfidence float64
}

// OnDeviceConfig holds embedded recognition engine settings
type OnDeviceConfig struct {
	WhisperModelPath string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// NATSConfig holds NATS messaging configuration
type NATSConfig struct {
	URL           string
	MaxReconnect  int
	ReconnectWait time.Duration
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Host:         getEnvString("DIENAS_HOST", "0.0.0.0"),
			Port:         getEnvInt("DIENAS_PORT", 8080),
			ReadTimeout:  getEnvDuration("DIENAS_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("DIENAS_WRITE_TIMEOUT", 120*time.Second),
			UploadDir:    getEnvString("DIENAS_UPLOAD_DIR", "./data/uploads"),
			SessionTTL:   getEnvDuration("DIENAS_SESSION_TTL", 720*time.Hour),
		},
		Database: DatabaseConfig{
			Path: getEnvString("DB_PATH", "./data/dienas-hub.db"),
		},
		Providers: ProvidersConfig{
			AssemblyAIKey:  getEnvString("ASSEMBLYAI_API_KEY", ""),
			OpenAIKey:      getEnvString("OPENAI_API_KEY", ""),
			GoogleKey:      getEnvString("GOOGLE_SPEECH_API_KEY", ""),
			AzureKey:       getEnvString("AZURE_SPEECH_KEY", ""),
			AzureRegion:    getEnvString("AZURE_SPEECH_REGION", "eastus"),
			Priority:       getEnvList("PROVIDER_PRIORITY", []string{"assemblyai", "openai", "google", "azure"}),
			Language:       getEnvString("SPEECH_LANGUAGE", "lv"),
			PollInterval:   getEnvDuration("PROVIDER_POLL_INTERVAL", 1500*time.Millisecond),
			MaxPollRetries: getEnvInt("PROVIDER_MAX_POLLS", 20),
		},
		Audio: AudioConfig{
			LowQualityBytes:  getEnvInt64("AUDIO_LOW_QUALITY_BYTES", 50_000),
			HighQualityBytes: getEnvInt64("AUDIO_HIGH_QUALITY_BYTES", 200_000),
			MinDuration:      getEnvDuration("AUDIO_MIN_DURATION", 1*time.Second),
			MaxDuration:      getEnvDuration("AUDIO_MAX_DURATION", 5*time.Minute),
			MaxFileSize:      getEnvInt64("AUDIO_MAX_FILE_SIZE", 25*1024*1024),
		},
		LocalSim: LocalSimConfig{
			Enabled:       getEnvBool("LOCAL_SIM_ENABLED", false),
			Delay:         getEnvDuration("LOCAL_SIM_DELAY", 2*time.Second),
			MinConfidence: getEnvFloat64("LOCAL_SIM_MIN_CONFIDENCE", 0.85),
			MaxConfidence: getEnvFloat64("LOCAL_SIM_MAX_CONFIDENCE", 1.0),
		},
		OnDevice: OnDeviceConfig{
			WhisperModelPath: getEnvString("WHISPER_MODEL_PATH", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		NATS: NATSConfig{
			URL:           getEnvString("NATS_URL", ""),
			MaxReconnect:  getEnvInt("NATS_MAX_RECONNECT", 10),
			ReconnectWait: getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		},
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// validate checks if the configuration is valid
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path must be provided")
	}

	if len(c.Providers.Priority) == 0 {
		return fmt.Errorf("provider priority list must not be empty")
	}

	if c.Providers.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive: %v", c.Providers.PollInterval)
	}

	if c.Providers.MaxPollRetries <= 0 {
		return fmt.Errorf("max poll retries must be positive: %d", c.Providers.MaxPollRetries)
	}

	if c.Audio.LowQualityBytes >= c.Audio.HighQualityBytes {
		return fmt.Errorf("low quality threshold %d must be below high quality threshold %d",
			c.Audio.LowQualityBytes, c.Audio.HighQualityBytes)
	}

	if c.Audio.MinDuration >= c.Audio.MaxDuration {
		return fmt.Errorf("min duration %v must be below max duration %v",
			c.Audio.MinDuration, c.Audio.MaxDuration)
	}

	if c.Audio.MaxFileSize <= 0 {
		return fmt.Errorf("max file size must be positive: %d", c.Audio.MaxFileSize)
	}

	if c.LocalSim.MinConfidence < 0 || c.LocalSim.MaxConfidence > 1 ||
		c.LocalSim.MinConfidence > c.LocalSim.MaxConfidence {
		return fmt.Errorf("invalid local simulation confidence range [%f, %f]",
			c.LocalSim.MinConfidence, c.LocalSim.MaxConfidence)
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
