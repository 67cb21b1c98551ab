/*
config.go - Runtime configuration for the fleet asset server and tools

SOURCES (lowest to highest precedence):
  1. Built-in defaults
  2. .env file in the working directory (optional)
  3. Environment variables
  4. Command-line flags (see RegisterFlags)

VARIABLES:
  PORT                  HTTP port (default 8080)
  DB_PATH               SQLite database path (default fleet.db, ":memory:" allowed)
  CORS_ORIGINS          Comma-separated allowed origins
  RECONCILE_INTERVAL    Duplicate reconciliation period, Go duration (default 1h)
  RECONCILE_ENABLED     Run the background reconciler (default true)
  EXPIRY_WINDOW_DAYS    Reminder window for insurance/inspection/tax (default 30)
*/
package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              int
	DBPath            string
	CORSOrigins       []string
	ReconcileInterval time.Duration
	ReconcileEnabled  bool
	ExpiryWindowDays  int
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:              8080,
		DBPath:            "fleet.db",
		CORSOrigins:       []string{"http://localhost:5173", "http://localhost:8080"},
		ReconcileInterval: time.Hour,
		ReconcileEnabled:  true,
		ExpiryWindowDays:  30,
	}
}

// Load reads .env (when present) and the environment on top of the defaults.
// Malformed values are reported and the default is kept.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[Config] Ignoring .env: %v", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) *Config {
	cfg := Default()

	if v := getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Port = n
		} else {
			log.Printf("[Config] Invalid PORT %q, using %d", v, cfg.Port)
		}
	}
	if v := getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	if v := getenv("RECONCILE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ReconcileInterval = d
		} else {
			log.Printf("[Config] Invalid RECONCILE_INTERVAL %q, using %v", v, cfg.ReconcileInterval)
		}
	}
	if v := getenv("RECONCILE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.ReconcileEnabled = b
		} else {
			log.Printf("[Config] Invalid RECONCILE_ENABLED %q, using %v", v, cfg.ReconcileEnabled)
		}
	}
	if v := getenv("EXPIRY_WINDOW_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.ExpiryWindowDays = n
		} else {
			log.Printf("[Config] Invalid EXPIRY_WINDOW_DAYS %q, using %d", v, cfg.ExpiryWindowDays)
		}
	}
	return cfg
}

// RegisterFlags binds the server flags to cfg so that flag values override
// the environment. Call before flag.Parse.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.Port, "port", c.Port, "HTTP server port")
	fs.StringVar(&c.DBPath, "db", c.DBPath, "SQLite database path")
	fs.DurationVar(&c.ReconcileInterval, "reconcile-interval", c.ReconcileInterval, "duplicate reconciliation interval")
	fs.BoolVar(&c.ReconcileEnabled, "reconcile", c.ReconcileEnabled, "run the background reconciler")
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// ExpiryWindow is the reminder window as a duration.
func (c *Config) ExpiryWindow() time.Duration {
	return time.Duration(c.ExpiryWindowDays) * 24 * time.Hour
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
