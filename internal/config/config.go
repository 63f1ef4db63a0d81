package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config contains runtime configuration required by the service.
type Config struct {
	DBURL        string
	ListenAddr   string
	GeoIPDBPath  string          // path to an MMDB file; empty disables geo enrichment
	InternalKeys map[string]bool // X-API-Key values accepted on /internal routes
}

// LoadEnv overlays variables from local .env files onto the process
// environment. Missing files are fine; broken ones are only warned about.
func LoadEnv(logger *logrus.Logger) {
	for _, file := range []string{".env", ".env.dev"} {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Overload(file); err != nil && logger != nil {
			logger.WithError(err).Warnf("failed to load %s", file)
		}
	}
}

// GetEnv gets an environment variable with a default value.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Load reads required values from environment variables.
// INTERNAL_API_KEYS format: "key1,key2"
func Load() (Config, error) {
	dbURL := strings.TrimSpace(os.Getenv("DB_URL"))
	if dbURL == "" {
		return Config{}, errors.New("DB_URL required")
	}

	keys := map[string]bool{}
	for _, k := range strings.Split(os.Getenv("INTERNAL_API_KEYS"), ",") {
		k = strings.TrimSpace(k)
		if k != "" {
			keys[k] = true
		}
	}
	// Local dev fallback so the service runs out-of-the-box.
	if len(keys) == 0 {
		keys["internal-key-123"] = true
	}

	return Config{
		DBURL:        dbURL,
		ListenAddr:   GetEnv("LISTEN_ADDR", ":8080"),
		GeoIPDBPath:  strings.TrimSpace(os.Getenv("GEOIP_DB")),
		InternalKeys: keys,
	}, nil
}
