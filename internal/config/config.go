package config

import (
	"os"
	"strconv"
)

type Config struct {
	Business BusinessConfig
	Web      WebConfig
}

type BusinessConfig struct {
	Name            string // slug subject and copyright holder (e.g. the studio's name)
	DefaultCategory string // category preselected for metadata generation
}

type WebConfig struct {
	Host string
	Port int
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envString reads an environment variable with a default.
func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func Load() *Config {
	return &Config{
		Business: BusinessConfig{
			Name:            envString("BUSINESS_NAME", "Studio"),
			DefaultCategory: envString("DEFAULT_CATEGORY", "main_room_wide"),
		},
		Web: WebConfig{
			Host: envString("WEB_HOST", "0.0.0.0"),
			Port: envInt("WEB_PORT", 8080),
		},
	}
}
