package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration loaded from config.yaml.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Gateway struct {
		MinParticipants int    `yaml:"min_participants"`
		QuestionFile    string `yaml:"question_file"`
	} `yaml:"gateway"`
	Activity struct {
		Enabled      bool   `yaml:"enabled"`
		NATSUrl      string `yaml:"nats_url"`
		PollInterval string `yaml:"poll_interval"`
	} `yaml:"activity"`
	GenAI struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"genai"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN returns the Postgres connection URL.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	var config Config
	config.Server.Port = "3000"
	config.Gateway.MinParticipants = 2

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &config, nil
}

func databaseConfigFromEnv() DatabaseConfig {
	return DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvAsInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		Database: getEnv("DB_NAME", "pairboard"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}
}
